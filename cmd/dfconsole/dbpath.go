// ABOUTME: Location and validation of the API call log database path.
// ABOUTME: Follows the XDG Base Directory layout with Windows and working-directory fallbacks.

package main

import (
	"fmt"
	"os"
	"path/filepath"
	"runtime"
	"strings"

	"go.uber.org/zap"
)

const dbFileName = "dfconsole.db"

// validateAndCleanDBPath validates and cleans a database path.
// Handles Unix/Linux, macOS, and Windows paths (including UNC and drive letters).
func validateAndCleanDBPath(path string) (string, error) {
	cleanPath := strings.TrimSpace(path)
	if cleanPath == ":memory:" {
		return cleanPath, nil
	}
	cleanPath = filepath.Clean(cleanPath)

	// Reject empty and root-like paths
	if cleanPath == "" || cleanPath == "." || cleanPath == "/" {
		return "", fmt.Errorf("database path cannot be empty, '.', or '/'")
	}

	// Windows: reject bare drive letters (e.g., "C:", "D:")
	if runtime.GOOS == "windows" && len(cleanPath) == 2 && cleanPath[1] == ':' {
		return "", fmt.Errorf("database path cannot be a bare drive letter")
	}

	if strings.Contains(cleanPath, "..") {
		return "", fmt.Errorf("database path cannot contain '..'")
	}

	badPatterns := []string{
		".git",
		".svn",
		"node_modules",
		".env",
		"credentials",
		"secret",
	}
	lowerPath := strings.ToLower(cleanPath)
	for _, pattern := range badPatterns {
		if strings.Contains(lowerPath, pattern) {
			return "", fmt.Errorf("database path cannot contain '%s' directory", pattern)
		}
	}

	return cleanPath, nil
}

// getDefaultDBPath returns the call log location.
// Priority: configured path > ./dfconsole.db if present > XDG_DATA_HOME/dfconsole/dfconsole.db
func getDefaultDBPath(configured string, logger *zap.Logger) string {
	if logger == nil {
		logger = zap.NewNop()
	}

	if configured = strings.TrimSpace(configured); configured != "" {
		configured = filepath.Clean(configured)
		if configured != "." {
			return configured
		}
		logger.Warn("DFCONSOLE_DB_PATH is invalid, using the default path")
	}

	cwdPath := "./" + dbFileName
	if _, err := os.Stat(cwdPath); err == nil {
		return cwdPath
	}

	dataHome := os.Getenv("XDG_DATA_HOME")
	if dataHome == "" {
		homeDir, err := os.UserHomeDir()
		if err != nil || homeDir == "" || homeDir == "/" {
			logger.Warn("could not determine a home directory, using the working directory",
				zap.String("home", homeDir), zap.Error(err))
			return cwdPath
		}

		// Windows: %LOCALAPPDATA% or ~/AppData/Local
		// Unix/Linux/macOS: ~/.local/share
		if runtime.GOOS == "windows" {
			dataHome = os.Getenv("LOCALAPPDATA")
			if dataHome == "" {
				dataHome = filepath.Join(homeDir, "AppData", "Local")
			}
		} else {
			dataHome = filepath.Join(homeDir, ".local", "share")
		}
	}

	dataDir := filepath.Join(dataHome, "dfconsole")
	if err := os.MkdirAll(dataDir, 0755); err != nil {
		logger.Warn("could not create data directory, using the working directory",
			zap.String("dir", dataDir), zap.Error(err))
		return cwdPath
	}

	testFile := filepath.Join(dataDir, ".write-test")
	f, err := os.Create(testFile)
	if err != nil {
		logger.Warn("cannot write to data directory, using the working directory",
			zap.String("dir", dataDir), zap.Error(err))
		return cwdPath
	}
	f.Close()
	os.Remove(testFile)

	return filepath.Join(dataDir, dbFileName)
}
