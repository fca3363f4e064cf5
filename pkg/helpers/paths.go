package helpers

import (
	"path/filepath"

	"github.com/ModPilotProject/modpilot-core/pkg/config"
	"github.com/adrg/xdg"
)

// ConfigDir is where config.toml lives unless overridden by the environment.
func ConfigDir() string {
	return filepath.Join(xdg.ConfigHome, config.AppName)
}

// DataDir holds the session database and logs.
func DataDir() string {
	return filepath.Join(xdg.DataHome, config.AppName)
}

// LogDir is kept separate from DataDir so purging logs never touches data.
func LogDir() string {
	return filepath.Join(xdg.StateHome, config.AppName, "logs")
}
