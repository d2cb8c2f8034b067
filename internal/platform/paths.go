package platform

import (
	"fmt"
	"os"
	"path/filepath"
	"runtime"
	"strings"
)

// defaultAppName names the per-user config and data directories.
const defaultAppName = "pejl"

// Paths locates the config file and the snapshot cache for one app name.
type Paths struct {
	ConfigPath string
	DataDir    string
	CachePath  string
}

// Options select the app directory name. DevMode appends a "-dev" suffix so
// a development build never touches the real cache or config.
type Options struct {
	AppName string
	DevMode bool
}

// DefaultPaths resolves paths for the standard app name.
func DefaultPaths() (Paths, error) {
	return DefaultPathsWithOptions(Options{AppName: defaultAppName})
}

// DefaultPathsWithOptions resolves paths from the host environment.
func DefaultPathsWithOptions(opts Options) (Paths, error) {
	appName := strings.TrimSpace(opts.AppName)
	if appName == "" {
		appName = defaultAppName
	}
	if opts.DevMode {
		appName += "-dev"
	}

	configDir, err := os.UserConfigDir()
	if err != nil {
		return Paths{}, fmt.Errorf("user config dir: %w", err)
	}
	dataDir, err := hostDataDir(configDir)
	if err != nil {
		return Paths{}, err
	}

	env := map[string]string{
		"XDG_CONFIG_HOME": os.Getenv("XDG_CONFIG_HOME"),
		"XDG_DATA_HOME":   os.Getenv("XDG_DATA_HOME"),
		"APPDATA":         os.Getenv("APPDATA"),
		"LOCALAPPDATA":    os.Getenv("LOCALAPPDATA"),
	}
	return PathsFor(runtime.GOOS, env, configDir, dataDir, appName)
}

// hostDataDir picks the platform data directory before env overrides apply.
func hostDataDir(configDir string) (string, error) {
	switch runtime.GOOS {
	case "linux":
		home, err := os.UserHomeDir()
		if err != nil {
			return "", fmt.Errorf("user home dir: %w", err)
		}
		return filepath.Join(home, ".local", "share"), nil
	case "windows":
		if v := strings.TrimSpace(os.Getenv("LOCALAPPDATA")); v != "" {
			return v, nil
		}
		return configDir, nil
	default:
		// macOS and the rest keep config and data side by side.
		return configDir, nil
	}
}

// PathsFor resolves paths for an explicit platform and environment. The
// seam exists so tests can cover linux/windows/darwin resolution without
// touching the real host.
func PathsFor(goos string, env map[string]string, userConfigDir, userDataDir, appName string) (Paths, error) {
	if userConfigDir == "" || userDataDir == "" {
		return Paths{}, fmt.Errorf("empty base dirs")
	}
	appName = strings.TrimSpace(appName)
	if appName == "" {
		return Paths{}, fmt.Errorf("empty app name")
	}

	configBase := baseDirFor(goos, env, "XDG_CONFIG_HOME", "APPDATA", userConfigDir)
	dataBase := baseDirFor(goos, env, "XDG_DATA_HOME", "LOCALAPPDATA", userDataDir)

	appDataDir := filepath.Join(dataBase, appName)
	return Paths{
		ConfigPath: filepath.Join(configBase, appName, "config.toml"),
		DataDir:    appDataDir,
		CachePath:  filepath.Join(appDataDir, appName+".db"),
	}, nil
}

// baseDirFor applies the per-platform env override for one base directory.
// darwin and unknown platforms keep the caller-provided fallback.
func baseDirFor(goos string, env map[string]string, linuxKey, windowsKey, fallback string) string {
	switch goos {
	case "linux":
		if v := env[linuxKey]; v != "" {
			return v
		}
	case "windows":
		if v := env[windowsKey]; v != "" {
			return v
		}
	}
	return fallback
}
