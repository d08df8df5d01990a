// Package paths resolves where hbnb keeps its configuration and its data.
//
// Each location has a precedence chain. The config directory is chosen by
// flag, then HBNB_CONFIG_DIR, then the platform config directory. The data
// directory is chosen by flag, then config.yaml, then HBNB_DATA_DIR, then
// .hbnb-db under the working directory.
package paths

import (
	"os"
	"path/filepath"
	"runtime"
)

// AppName is the directory created under platform config and data roots.
const AppName = "hbnb"

// Working-directory relative names.
const (
	DefaultConfigDirName = ".hbnb"
	DefaultDataDirName   = ".hbnb-db"
)

// File names inside the config directory.
const (
	ConfigFileName = "config.yaml"
	DotEnvFileName = ".env"
)

// Environment variables that override directory locations.
const (
	EnvConfigDir = "HBNB_CONFIG_DIR"
	EnvDataDir   = "HBNB_DATA_DIR"
)

// platformDir holds the OS lookups so tests can replace them.
var platformDir = struct {
	goos          string
	homeDir       func() (string, error)
	userConfigDir func() (string, error)
}{
	goos:          runtime.GOOS,
	homeDir:       os.UserHomeDir,
	userConfigDir: os.UserConfigDir,
}

// xdgDir returns $env/hbnb when env is set, otherwise ~/<fallback...>/hbnb.
// Outside Linux both config and data live under os.UserConfigDir.
func xdgDir(env string, fallback ...string) (string, error) {
	if platformDir.goos != "linux" {
		dir, err := platformDir.userConfigDir()
		if err != nil {
			return "", err
		}
		return filepath.Join(dir, AppName), nil
	}
	if v := os.Getenv(env); v != "" {
		return filepath.Join(v, AppName), nil
	}
	home, err := platformDir.homeDir()
	if err != nil {
		return "", err
	}
	parts := append([]string{home}, fallback...)
	return filepath.Join(append(parts, AppName)...), nil
}

// DefaultConfigDir returns the platform configuration directory:
// $XDG_CONFIG_HOME/hbnb or ~/.config/hbnb on Linux, and
// os.UserConfigDir()/hbnb elsewhere.
func DefaultConfigDir() (string, error) {
	return xdgDir("XDG_CONFIG_HOME", ".config")
}

// DefaultDataDir returns the platform data directory:
// $XDG_DATA_HOME/hbnb or ~/.local/share/hbnb on Linux, and
// os.UserConfigDir()/hbnb elsewhere.
func DefaultDataDir() (string, error) {
	return xdgDir("XDG_DATA_HOME", ".local", "share")
}

// ResolveConfigDir picks the configuration directory: flag, then
// HBNB_CONFIG_DIR, then DefaultConfigDir. The result is absolute.
func ResolveConfigDir(flag string) (string, error) {
	if dir := firstNonEmpty(flag, os.Getenv(EnvConfigDir)); dir != "" {
		return filepath.Abs(dir)
	}
	return DefaultConfigDir()
}

// ResolveDataDir picks the data directory: flag, then the data_dir value
// from config.yaml, then HBNB_DATA_DIR, then .hbnb-db in the working
// directory. The result is absolute.
func ResolveDataDir(flag, configValue string) (string, error) {
	if dir := firstNonEmpty(flag, configValue, os.Getenv(EnvDataDir)); dir != "" {
		return filepath.Abs(dir)
	}
	return filepath.Abs(DefaultDataDirName)
}

// ConfigFile returns the config.yaml path inside configDir.
func ConfigFile(configDir string) string {
	return filepath.Join(configDir, ConfigFileName)
}

// DotEnvFiles returns the .env files to load, most specific first: the
// working directory, then configDir. Only files that exist are returned.
func DotEnvFiles(configDir string) []string {
	var files []string
	for _, p := range []string{DotEnvFileName, filepath.Join(configDir, DotEnvFileName)} {
		if info, err := os.Stat(p); err == nil && !info.IsDir() {
			files = append(files, p)
		}
	}
	return files
}

func firstNonEmpty(values ...string) string {
	for _, v := range values {
		if v != "" {
			return v
		}
	}
	return ""
}
