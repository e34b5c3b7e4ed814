package config

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/b0bbywan/go-odio-portal/logger"
)

func TestParseLogLevel(t *testing.T) {
	tests := []struct {
		input    string
		expected logger.Level
	}{
		{"debug", logger.DEBUG},
		{"DEBUG", logger.DEBUG},
		{"Debug", logger.DEBUG},
		{"info", logger.INFO},
		{"INFO", logger.INFO},
		{"warn", logger.WARN},
		{"WARN", logger.WARN},
		{"error", logger.ERROR},
		{"ERROR", logger.ERROR},
		{"fatal", logger.FATAL},
		{"FATAL", logger.FATAL},
		{"unknown", logger.WARN}, // default
		{"", logger.WARN},        // default
	}

	for _, tt := range tests {
		t.Run(tt.input, func(t *testing.T) {
			result := parseLogLevel(tt.input)
			if result != tt.expected {
				t.Errorf("parseLogLevel(%q) = %d, want %d", tt.input, result, tt.expected)
			}
		})
	}
}

func TestValidateDevices(t *testing.T) {
	if err := validateDevices([]string{"keyboard", "Pointer", " touchscreen "}); err != nil {
		t.Errorf("valid devices rejected: %v", err)
	}
	if err := validateDevices(nil); err != nil {
		t.Errorf("empty list rejected: %v", err)
	}
	if err := validateDevices([]string{"keyboard", "joystick"}); err == nil {
		t.Error("joystick should be rejected")
	}
}

func TestValidatePersist(t *testing.T) {
	for _, mode := range []string{"", "none", "transient", "Permanent"} {
		if err := validatePersist(mode); err != nil {
			t.Errorf("validatePersist(%q) = %v", mode, err)
		}
	}
	if err := validatePersist("forever"); err == nil {
		t.Error("forever should be rejected")
	}
}

// isolate keeps New away from the developer's real config and state.
func isolate(t *testing.T) {
	t.Helper()
	home := t.TempDir()
	t.Setenv("HOME", home)
	t.Setenv("XDG_STATE_HOME", filepath.Join(home, "state"))
}

func writeConfig(t *testing.T, body string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "config.yaml")
	if err := os.WriteFile(path, []byte(body), 0o600); err != nil {
		t.Fatal(err)
	}
	return path
}

func TestNewDefaults(t *testing.T) {
	isolate(t)

	cfg, err := New(nil)
	if err != nil {
		t.Fatalf("New(nil) error = %v", err)
	}

	if !cfg.Api.Enabled || cfg.Api.Port != 8018 {
		t.Errorf("api = %+v, want enabled on 8018", cfg.Api)
	}
	if len(cfg.Api.Listens) != 1 || cfg.Api.Listens[0] != "127.0.0.1:8018" {
		t.Errorf("Listens = %v", cfg.Api.Listens)
	}
	if cfg.Api.CORS != nil {
		t.Error("CORS should be nil without origins")
	}
	rd := cfg.RemoteDesktop
	if !rd.Enabled || rd.AutoStart {
		t.Errorf("remotedesktop = %+v", rd)
	}
	if rd.Persist != "permanent" {
		t.Errorf("Persist = %q, want permanent", rd.Persist)
	}
	if rd.ResponseTimeout != 2*time.Minute {
		t.Errorf("ResponseTimeout = %v", rd.ResponseTimeout)
	}
	if filepath.Base(rd.TokenFile) != "restore_token" {
		t.Errorf("TokenFile = %q", rd.TokenFile)
	}
	if cfg.Screenshot.ResponseTimeout != time.Minute {
		t.Errorf("screenshot timeout = %v", cfg.Screenshot.ResponseTimeout)
	}
	if cfg.Zeroconf.Enabled {
		t.Error("zeroconf should be disabled by default")
	}
	if cfg.LogLevel != logger.WARN {
		t.Errorf("LogLevel = %v", cfg.LogLevel)
	}
}

func TestNewFromFile(t *testing.T) {
	isolate(t)
	path := writeConfig(t, `
api:
  port: 9000
  cors:
    origins: ["http://localhost:3000"]
remotedesktop:
  devices: [keyboard]
  autostart: true
  persist: transient
  response_timeout: 5s
screenshot:
  enabled: false
LogLevel: debug
LogLevels:
  portal: error
`)

	flags := Flags()
	if err := flags.Parse([]string{"--config", path}); err != nil {
		t.Fatal(err)
	}
	cfg, err := New(flags)
	if err != nil {
		t.Fatalf("New() error = %v", err)
	}

	if cfg.Api.Port != 9000 {
		t.Errorf("Port = %d, want 9000", cfg.Api.Port)
	}
	if cfg.Api.CORS == nil || len(cfg.Api.CORS.Origins) != 1 {
		t.Errorf("CORS = %+v", cfg.Api.CORS)
	}
	rd := cfg.RemoteDesktop
	if len(rd.Devices) != 1 || rd.Devices[0] != "keyboard" {
		t.Errorf("Devices = %v", rd.Devices)
	}
	if !rd.AutoStart || rd.Persist != "transient" || rd.ResponseTimeout != 5*time.Second {
		t.Errorf("remotedesktop = %+v", rd)
	}
	if cfg.Screenshot.Enabled {
		t.Error("screenshot should be disabled")
	}
	if cfg.LogLevel != logger.DEBUG {
		t.Errorf("LogLevel = %v", cfg.LogLevel)
	}
	if cfg.LogLevels["portal"] != logger.ERROR {
		t.Errorf("LogLevels = %v", cfg.LogLevels)
	}
}

func TestNewFlagsOverrideFile(t *testing.T) {
	isolate(t)
	path := writeConfig(t, "api:\n  port: 9000\n")

	flags := Flags()
	if err := flags.Parse([]string{"--config", path, "--port", "9100", "--log-level", "error", "--autostart"}); err != nil {
		t.Fatal(err)
	}
	cfg, err := New(flags)
	if err != nil {
		t.Fatalf("New() error = %v", err)
	}
	if cfg.Api.Port != 9100 {
		t.Errorf("Port = %d, want flag value 9100", cfg.Api.Port)
	}
	if cfg.LogLevel != logger.ERROR {
		t.Errorf("LogLevel = %v", cfg.LogLevel)
	}
	if !cfg.RemoteDesktop.AutoStart {
		t.Error("--autostart should enable autostart")
	}
}

func TestNewEnvOverride(t *testing.T) {
	isolate(t)
	t.Setenv("ODIO_PORTAL_API_PORT", "9200")
	t.Setenv("ODIO_PORTAL_REMOTEDESKTOP_PERSIST", "none")

	cfg, err := New(nil)
	if err != nil {
		t.Fatalf("New() error = %v", err)
	}
	if cfg.Api.Port != 9200 {
		t.Errorf("Port = %d, want 9200", cfg.Api.Port)
	}
	if cfg.RemoteDesktop.Persist != "none" {
		t.Errorf("Persist = %q", cfg.RemoteDesktop.Persist)
	}
}

func TestNewRejectsInvalid(t *testing.T) {
	tests := map[string]string{
		"port":    "api:\n  port: 70000\n",
		"device":  "remotedesktop:\n  devices: [joystick]\n",
		"persist": "remotedesktop:\n  persist: forever\n",
	}
	for name, body := range tests {
		t.Run(name, func(t *testing.T) {
			isolate(t)
			flags := Flags()
			if err := flags.Parse([]string{"--config", writeConfig(t, body)}); err != nil {
				t.Fatal(err)
			}
			if _, err := New(flags); err == nil {
				t.Error("New() should fail")
			}
		})
	}
}

func TestNewMissingExplicitFile(t *testing.T) {
	isolate(t)
	flags := Flags()
	if err := flags.Parse([]string{"--config", filepath.Join(t.TempDir(), "absent.yaml")}); err != nil {
		t.Fatal(err)
	}
	if _, err := New(flags); err == nil {
		t.Error("an explicit missing config file should be an error")
	}
}

func BenchmarkParseLogLevel(b *testing.B) {
	for i := 0; i < b.N; i++ {
		parseLogLevel("DEBUG")
	}
}
