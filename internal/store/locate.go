package store

import (
	"os"
	"path/filepath"
)

// AppDirName is the per-user configuration directory under ~/.config.
const AppDirName = "stmt-ingest"

// FindConfigFile looks for filename in the current directory, ./config,
// ./database and ~/.config/stmt-ingest, in that order. Absolute paths are
// only checked for existence.
func FindConfigFile(filename string) (string, error) {
	if filepath.IsAbs(filename) {
		if _, err := os.Stat(filename); err != nil {
			return "", err
		}
		return filename, nil
	}

	locations := []string{
		filename,
		filepath.Join("config", filename),
		filepath.Join("database", filename),
	}
	if homeDir, err := os.UserHomeDir(); err == nil {
		locations = append(locations, filepath.Join(homeDir, ".config", AppDirName, filename))
	}

	for _, location := range locations {
		if _, err := os.Stat(location); err == nil {
			return location, nil
		}
	}
	return "", os.ErrNotExist
}
