package discovery

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
)

// ErrNoConfig indicates that no config file was found during discovery.
var ErrNoConfig = errors.New("no config file discovered")

// ConfigFile returns the path of the config file to load. An explicit path is
// resolved against dir and validated. Otherwise name is looked up in dir and
// then in each parent directory up to the filesystem root.
func ConfigFile(dir, name, explicit string) (string, error) {
	if explicit != "" {
		return resolveExplicit(dir, explicit)
	}

	current := filepath.Clean(dir)
	for {
		candidate := filepath.Join(current, name)
		info, err := os.Stat(candidate)
		switch {
		case err == nil && !info.IsDir():
			return candidate, nil
		case err != nil && !errors.Is(err, os.ErrNotExist):
			return "", fmt.Errorf("stat %q: %w", candidate, err)
		}

		parent := filepath.Dir(current)
		if parent == current {
			return "", ErrNoConfig
		}
		current = parent
	}
}

func resolveExplicit(dir, explicit string) (string, error) {
	cleaned := explicit
	if !filepath.IsAbs(cleaned) {
		cleaned = filepath.Join(dir, cleaned)
	}
	info, err := os.Stat(cleaned)
	if err != nil {
		if errors.Is(err, os.ErrNotExist) {
			return "", fmt.Errorf("config %q not found", explicit)
		}
		return "", fmt.Errorf("stat %q: %w", explicit, err)
	}
	if info.IsDir() {
		return "", fmt.Errorf("config %q is a directory", explicit)
	}
	return filepath.Clean(cleaned), nil
}
