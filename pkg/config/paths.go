// Copyright © 2026 Teradata Corporation - All Rights Reserved.
//
// Licensed under the Apache License, Version 2.0 (the "License");
// you may not use this file except in compliance with the License.

package config

import (
	"os"
	"path/filepath"
	"strings"
)

// GetSkeinDataDir returns the Skein data directory.
//
// Priority:
// 1. SKEIN_DATA_DIR environment variable (if set and non-empty)
// 2. ~/.skein (default)
//
// The returned path is always absolute. Tilde (~) in SKEIN_DATA_DIR is
// expanded to the user's home directory. Relative paths in SKEIN_DATA_DIR
// are converted to absolute paths.
//
// This function reads os.Getenv directly, independent of internal/config's
// viper-backed Load, so shell_execute can resolve a sandbox boundary before
// any config file has been loaded.
func GetSkeinDataDir() string {
	if dataDir := os.Getenv("SKEIN_DATA_DIR"); dataDir != "" {
		return expandPath(dataDir)
	}

	homeDir, err := os.UserHomeDir()
	if err != nil {
		return ".skein"
	}
	return filepath.Join(homeDir, ".skein")
}

// GetSkeinSandboxDir returns the directory shell_execute runs commands in by
// default.
//
// Priority:
// 1. SKEIN_SANDBOX_DIR environment variable (if set and non-empty)
// 2. SKEIN_DATA_DIR (default)
//
// It is kept separate from SKEIN_DATA_DIR, which stores the event store,
// blobs, and config: SKEIN_SANDBOX_DIR is where an agent's shell commands
// execute, SKEIN_DATA_DIR is where skein itself persists state.
func GetSkeinSandboxDir() string {
	if sandboxDir := os.Getenv("SKEIN_SANDBOX_DIR"); sandboxDir != "" {
		return expandPath(sandboxDir)
	}
	return GetSkeinDataDir()
}

// GetSkeinSubDir returns a subdirectory within the Skein data directory.
// Example: GetSkeinSubDir("artifacts") returns ~/.skein/artifacts.
func GetSkeinSubDir(subdir string) string {
	return filepath.Join(GetSkeinDataDir(), subdir)
}

// expandPath expands a leading ~ and resolves path to an absolute path.
func expandPath(path string) string {
	if strings.HasPrefix(path, "~/") {
		homeDir, err := os.UserHomeDir()
		if err != nil {
			return path
		}
		return filepath.Join(homeDir, path[2:])
	}

	absPath, err := filepath.Abs(path)
	if err != nil {
		return path
	}
	return absPath
}
