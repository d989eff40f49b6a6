// Package pathresolver implements the working-directory discovery described
// in videocatalogd's settings design: the first writable candidate directory
// from an ordered list becomes the service's working directory, holding
// settings.json, data/, logs/, and exports/.
package pathresolver

import (
	"errors"
	"os"
	"path/filepath"
)

// EnvLookup abstracts environment/candidate-directory lookups so tests can
// supply a fake environment instead of touching the real filesystem.
type EnvLookup interface {
	// Getenv returns the value of an environment variable, or "" if unset.
	Getenv(key string) string
	// UserHomeDir returns the current user's home directory.
	UserHomeDir() (string, error)
}

// OSEnv is the real-environment EnvLookup implementation.
type OSEnv struct{}

func (OSEnv) Getenv(key string) string { return os.Getenv(key) }
func (OSEnv) UserHomeDir() (string, error) { return os.UserHomeDir() }

// ErrNoWritableDirectory is returned when no candidate directory is writable
// and no home directory is known to fall back to.
var ErrNoWritableDirectory = errors.New("pathresolver: no writable candidate directory found")

const probeFileName = ".videocatalog_write_probe"

// candidates returns the ordered list of candidate working directories:
// an explicit override, then platform-conventional data directories, then
// the current working directory.
func candidates(env EnvLookup) []string {
	var out []string
	if override := env.Getenv("VIDEOCATALOG_WORKDIR"); override != "" {
		out = append(out, override)
	}
	if xdg := env.Getenv("XDG_DATA_HOME"); xdg != "" {
		out = append(out, filepath.Join(xdg, "videocatalog"))
	}
	if home, err := env.UserHomeDir(); err == nil && home != "" {
		out = append(out, filepath.Join(home, ".local", "share", "videocatalog"))
		out = append(out, filepath.Join(home, ".videocatalog"))
	}
	if cwd, err := os.Getwd(); err == nil {
		out = append(out, filepath.Join(cwd, ".videocatalog"))
	}
	return out
}

// isWritable creates then removes a probe file inside dir, creating dir
// (and its parents) first if necessary.
func isWritable(dir string) bool {
	if err := os.MkdirAll(dir, 0o750); err != nil {
		return false
	}
	probe := filepath.Join(dir, probeFileName)
	f, err := os.OpenFile(probe, os.O_CREATE|os.O_WRONLY|os.O_TRUNC, 0o640)
	if err != nil {
		return false
	}
	_ = f.Close()
	_ = os.Remove(probe)
	return true
}

// Resolve returns the first writable candidate directory. If none is
// writable it returns the home-based ~/.videocatalog path without an error;
// ErrNoWritableDirectory is returned only when no home directory is known.
func Resolve(env EnvLookup) (string, error) {
	for _, dir := range candidates(env) {
		if dir == "" {
			continue
		}
		if isWritable(dir) {
			return dir, nil
		}
	}
	if home, err := env.UserHomeDir(); err == nil && home != "" {
		return filepath.Join(home, ".videocatalog"), nil
	}
	return "", ErrNoWritableDirectory
}

// WorkingDir describes the well-known subdirectories beneath the resolved
// working directory.
type WorkingDir struct {
	Root    string
	Data    string
	Logs    string
	Exports string
	Shards  string
}

// Layout builds a WorkingDir rooted at root and ensures every subdirectory
// exists.
func Layout(root string) (WorkingDir, error) {
	wd := WorkingDir{
		Root:    root,
		Data:    filepath.Join(root, "data"),
		Logs:    filepath.Join(root, "logs"),
		Exports: filepath.Join(root, "exports"),
		Shards:  filepath.Join(root, "data", "shards"),
	}
	for _, dir := range []string{wd.Data, wd.Logs, wd.Exports, wd.Shards} {
		if err := os.MkdirAll(dir, 0o750); err != nil {
			return WorkingDir{}, err
		}
	}
	return wd, nil
}

// SettingsPath returns the path to settings.json within the working
// directory.
func (w WorkingDir) SettingsPath() string {
	return filepath.Join(w.Root, "settings.json")
}
