package config

import (
	"fmt"
	"net"
	"os"
	"path/filepath"
	"strconv"
	"strings"
	"time"

	"github.com/spf13/pflag"
	"github.com/spf13/viper"

	"github.com/b0bbywan/go-odio-portal/logger"
)

const (
	AppName     = "odio-portal"
	AppVersion  = "0.1.0"
	envPrefix   = "ODIO_PORTAL"
	serviceType = "_http._tcp"
	domain      = "local."
)

type Config struct {
	Api           *ApiConfig
	RemoteDesktop *RemoteDesktopConfig
	Screenshot    *ScreenshotConfig
	Zeroconf      *ZeroConfig
	LogLevel      logger.Level
	LogLevels     map[string]logger.Level
}

type ApiConfig struct {
	Enabled bool
	Port    int
	Listens []string
	SSE     bool
	CORS    *CORSConfig
}

type CORSConfig struct {
	Origins []string
}

type RemoteDesktopConfig struct {
	Enabled bool
	// Devices requested by Open when the caller names none. Empty means all available.
	Devices []string
	// AutoStart opens a session when the backend starts.
	AutoStart       bool
	Persist         string
	TokenFile       string
	ParentWindow    string
	ResponseTimeout time.Duration
	PropertiesTTL   time.Duration
}

type ScreenshotConfig struct {
	Enabled         bool
	ResponseTimeout time.Duration
}

type ZeroConfig struct {
	Enabled      bool
	InstanceName string
	ServiceType  string
	Domain       string
	Port         int
	TxtRecords   []string
	Listen       []net.Interface
}

var validDevices = []string{"keyboard", "pointer", "touchscreen"}

// parseLogLevel converts a string to a logger.Level
func parseLogLevel(levelStr string) logger.Level {
	switch strings.ToUpper(levelStr) {
	case "DEBUG":
		return logger.DEBUG
	case "INFO":
		return logger.INFO
	case "WARN":
		return logger.WARN
	case "ERROR":
		return logger.ERROR
	case "FATAL":
		return logger.FATAL
	default:
		return logger.WARN // default
	}
}

func parseLogLevels(raw map[string]string) map[string]logger.Level {
	levels := make(map[string]logger.Level, len(raw))
	for component, level := range raw {
		levels[component] = parseLogLevel(level)
	}
	return levels
}

func validateDevices(devices []string) error {
	for _, d := range devices {
		ok := false
		for _, valid := range validDevices {
			if strings.EqualFold(strings.TrimSpace(d), valid) {
				ok = true
				break
			}
		}
		if !ok {
			return fmt.Errorf("invalid remotedesktop device %q (want one of %v)", d, validDevices)
		}
	}
	return nil
}

func validatePersist(mode string) error {
	switch strings.ToLower(mode) {
	case "", "none", "transient", "permanent":
		return nil
	}
	return fmt.Errorf("invalid remotedesktop persist mode %q", mode)
}

func interfaceForIP(ip string) (*net.Interface, error) {
	if ip == "127.0.0.1" {
		return nil, nil
	}
	listenIP := net.ParseIP(ip)
	if listenIP == nil {
		return nil, fmt.Errorf("invalid bind: %s", ip)
	}
	ifaces, err := net.Interfaces()
	if err != nil {
		return nil, err
	}

	for _, iface := range ifaces {
		addrs, _ := iface.Addrs()
		for _, addr := range addrs {
			var ifaceIP net.IP

			switch v := addr.(type) {
			case *net.IPNet:
				ifaceIP = v.IP
			case *net.IPAddr:
				ifaceIP = v.IP
			}

			if ifaceIP != nil && ifaceIP.Equal(listenIP) {
				return &iface, nil
			}
		}
	}

	return nil, fmt.Errorf("no interface found for IP %s", ip)
}

func defaultTokenFile() string {
	stateDir := os.Getenv("XDG_STATE_HOME")
	if stateDir == "" {
		home, err := os.UserHomeDir()
		if err != nil {
			return ""
		}
		stateDir = filepath.Join(home, ".local", "state")
	}
	return filepath.Join(stateDir, AppName, "restore_token")
}

// Flags declares the command line overrides bound by New.
func Flags() *pflag.FlagSet {
	fs := pflag.NewFlagSet(AppName, pflag.ContinueOnError)
	fs.String("config", "", "path to a config file (default: /etc/odio-portal/config.yaml, ~/.config/odio-portal/config.yaml)")
	fs.String("log-level", "", "log level: debug, info, warn, error")
	fs.Int("port", 0, "HTTP API port")
	fs.String("bind", "", "HTTP API bind address")
	fs.Bool("autostart", false, "open a remote desktop session at startup")
	fs.BoolP("help", "h", false, "show help")
	return fs
}

func setDefaults(v *viper.Viper) {
	v.SetDefault("api.enabled", true)
	v.SetDefault("api.port", 8018)
	v.SetDefault("api.sse", true)
	v.SetDefault("api.cors.origins", []string{})
	v.SetDefault("bind", "127.0.0.1")

	v.SetDefault("remotedesktop.enabled", true)
	v.SetDefault("remotedesktop.devices", []string{"keyboard", "pointer"})
	v.SetDefault("remotedesktop.autostart", false)
	v.SetDefault("remotedesktop.persist", "permanent")
	v.SetDefault("remotedesktop.token_file", defaultTokenFile())
	v.SetDefault("remotedesktop.parent_window", "")
	v.SetDefault("remotedesktop.response_timeout", "2m")
	v.SetDefault("remotedesktop.properties_ttl", "0s")

	v.SetDefault("screenshot.enabled", true)
	v.SetDefault("screenshot.response_timeout", "1m")

	v.SetDefault("zeroconf.enabled", false)

	v.SetDefault("LogLevel", "WARN")
	v.SetDefault("LogLevels", map[string]string{})
}

// New loads the configuration from defaults, config file, environment and flags.
// flags may be nil; when given it must already be parsed.
func New(flags *pflag.FlagSet) (*Config, error) {
	v := viper.New()
	setDefaults(v)

	v.SetEnvPrefix(envPrefix)
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	if flags != nil {
		bindFlag(v, flags, "api.port", "port")
		bindFlag(v, flags, "bind", "bind")
		bindFlag(v, flags, "LogLevel", "log-level")
		bindFlag(v, flags, "remotedesktop.autostart", "autostart")
	}

	var configFile string
	if flags != nil {
		configFile, _ = flags.GetString("config")
	}
	if configFile != "" {
		v.SetConfigFile(configFile)
	} else {
		v.SetConfigName("config")                       // name of config file (without extension)
		v.SetConfigType("yaml")                         // config file format
		v.AddConfigPath(filepath.Join("/etc", AppName)) // Global configuration path
		if home, err := os.UserHomeDir(); err == nil {
			v.AddConfigPath(filepath.Join(home, ".config", AppName)) // User config path
		}
	}

	if err := v.ReadInConfig(); err != nil {
		if configFile != "" {
			return nil, fmt.Errorf("read config %s: %w", configFile, err)
		}
		// Config file is optional, continue with defaults if not found
		if _, isNotFound := err.(viper.ConfigFileNotFoundError); !isNotFound {
			logger.Warn("[config] failed to read config: %v", err)
		}
	}

	return fromViper(v)
}

func bindFlag(v *viper.Viper, flags *pflag.FlagSet, key, name string) {
	if f := flags.Lookup(name); f != nil {
		if err := v.BindPFlag(key, f); err != nil {
			logger.Warn("[config] cannot bind flag --%s: %v", name, err)
		}
	}
}

func fromViper(v *viper.Viper) (*Config, error) {
	port := v.GetInt("api.port")
	if port <= 0 || port > 65535 {
		return nil, fmt.Errorf("invalid port: %d", port)
	}

	bind := v.GetString("bind")
	var interfaces []net.Interface
	inet, err := interfaceForIP(bind)
	if err == nil && inet != nil {
		interfaces = append(interfaces, *inet)
	}

	devices := v.GetStringSlice("remotedesktop.devices")
	if err := validateDevices(devices); err != nil {
		return nil, err
	}
	persist := v.GetString("remotedesktop.persist")
	if err := validatePersist(persist); err != nil {
		return nil, err
	}

	rdTimeout := v.GetDuration("remotedesktop.response_timeout")
	if rdTimeout <= 0 {
		rdTimeout = 2 * time.Minute
	}
	shotTimeout := v.GetDuration("screenshot.response_timeout")
	if shotTimeout <= 0 {
		shotTimeout = time.Minute
	}

	apiCfg := ApiConfig{
		Enabled: v.GetBool("api.enabled"),
		Port:    port,
		Listens: []string{net.JoinHostPort(bind, strconv.Itoa(port))},
		SSE:     v.GetBool("api.sse"),
	}
	if origins := v.GetStringSlice("api.cors.origins"); len(origins) > 0 {
		apiCfg.CORS = &CORSConfig{Origins: origins}
	}

	rdCfg := RemoteDesktopConfig{
		Enabled:         v.GetBool("remotedesktop.enabled"),
		Devices:         devices,
		AutoStart:       v.GetBool("remotedesktop.autostart"),
		Persist:         persist,
		TokenFile:       v.GetString("remotedesktop.token_file"),
		ParentWindow:    v.GetString("remotedesktop.parent_window"),
		ResponseTimeout: rdTimeout,
		PropertiesTTL:   v.GetDuration("remotedesktop.properties_ttl"),
	}

	shotCfg := ScreenshotConfig{
		Enabled:         v.GetBool("screenshot.enabled"),
		ResponseTimeout: shotTimeout,
	}

	zerocfg := ZeroConfig{
		Enabled:      v.GetBool("zeroconf.enabled"),
		InstanceName: AppName,
		ServiceType:  serviceType,
		Port:         port,
		Domain:       domain,
		TxtRecords:   []string{"version=" + AppVersion, "path=/remote"},
		Listen:       interfaces,
	}

	cfg := Config{
		Api:           &apiCfg,
		RemoteDesktop: &rdCfg,
		Screenshot:    &shotCfg,
		Zeroconf:      &zerocfg,
		LogLevel:      parseLogLevel(v.GetString("LogLevel")),
		LogLevels:     parseLogLevels(v.GetStringMapString("LogLevels")),
	}

	return &cfg, nil
}
