package tui

import (
	"os"
	"path/filepath"
)

// GetLogFilePath returns the path to the log file.
// If MOCHE_LOG_FILE is set, uses that path.
// Otherwise, uses ~/.moche/logs/moche.log
func GetLogFilePath() string {
	if customPath := os.Getenv("MOCHE_LOG_FILE"); customPath != "" {
		return customPath
	}

	homeDir, err := os.UserHomeDir()
	if err != nil {
		return "moche.log"
	}

	return filepath.Join(homeDir, ".moche", "logs", "moche.log")
}
