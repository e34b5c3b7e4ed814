package remotedesktop

import (
	"github.com/godbus/dbus/v5"

	"github.com/b0bbywan/go-odio-portal/backend/portal"
)

// CreateOptions configures CreateSession.
type CreateOptions struct {
	HandleToken        portal.HandleToken
	SessionHandleToken portal.HandleToken
}

// SelectDevicesOptions configures SelectDevices.
type SelectDevicesOptions struct {
	HandleToken portal.HandleToken
	// Types is the requested set. Empty means every kind the broker supports.
	Types CapabilitySet
	// PersistMode and RestoreToken are only sent to brokers implementing version 2.
	PersistMode  PersistMode
	RestoreToken string
}

// StartOptions configures Start.
type StartOptions struct {
	HandleToken portal.HandleToken
}

func validateTokens(tokens ...portal.HandleToken) error {
	for _, tok := range tokens {
		if tok == "" {
			continue
		}
		if err := tok.Validate(); err != nil {
			return err
		}
	}
	return nil
}

func (o CreateOptions) validate() error {
	return validateTokens(o.HandleToken, o.SessionHandleToken)
}

func (o CreateOptions) vardict(sessionToken portal.HandleToken) map[string]dbus.Variant {
	return map[string]dbus.Variant{
		OPTION_SESSION_HANDLE_TOKEN: dbus.MakeVariant(string(sessionToken)),
	}
}

func (o SelectDevicesOptions) validate() error {
	return validateTokens(o.HandleToken)
}

func (o SelectDevicesOptions) vardict(requested CapabilitySet, version uint32) map[string]dbus.Variant {
	opts := map[string]dbus.Variant{
		OPTION_TYPES: dbus.MakeVariant(requested.Bits()),
	}
	if version >= persistMinVersion {
		if o.PersistMode != PersistNone {
			opts[OPTION_PERSIST_MODE] = dbus.MakeVariant(uint32(o.PersistMode))
		}
		if o.RestoreToken != "" {
			opts[OPTION_RESTORE_TOKEN] = dbus.MakeVariant(o.RestoreToken)
		}
	}
	return opts
}

func (o StartOptions) validate() error {
	return validateTokens(o.HandleToken)
}

// emptyOptions is the vardict sent with input notifications; no keys are defined yet.
func emptyOptions() map[string]dbus.Variant {
	return map[string]dbus.Variant{}
}
