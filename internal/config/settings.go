package config

import (
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"strings"

	"github.com/BurntSushi/toml"
)

// Settings are per-user defaults for the command line, read from
// ~/.moche/settings.toml.
type Settings struct {
	LogLevel           string   `toml:"log_level"`
	InputLevel         string   `toml:"input_level"`
	LogFile            string   `toml:"log_file"`
	History            bool     `toml:"history"`
	HistoryDB          string   `toml:"history_db"`
	GitHubTokenEnv     string   `toml:"github_token_env"`
	HideExternalOutput bool     `toml:"hide_external_output"`
	HideExternalError  bool     `toml:"hide_external_error"`
	RetrievalType      []string `toml:"retrieval_type"`
}

// DefaultSettings returns the settings used when no file exists.
func DefaultSettings() *Settings {
	s := &Settings{
		LogLevel:       "Info",
		InputLevel:     "Error",
		History:        true,
		GitHubTokenEnv: "GITHUB_TOKEN",
	}
	if dir, err := SettingsDir(); err == nil {
		s.HistoryDB = filepath.Join(dir, "history.db")
	}
	return s
}

// SettingsDir returns ~/.moche.
func SettingsDir() (string, error) {
	home, err := os.UserHomeDir()
	if err != nil {
		return "", fmt.Errorf("failed to get home directory: %w", err)
	}
	return filepath.Join(home, ".moche"), nil
}

// SettingsPath returns the default settings file location.
func SettingsPath() (string, error) {
	dir, err := SettingsDir()
	if err != nil {
		return "", err
	}
	return filepath.Join(dir, "settings.toml"), nil
}

// LoadSettings reads the settings file at path over the defaults and applies
// environment overrides. An empty path uses SettingsPath. A missing file is not an error.
func LoadSettings(path string) (*Settings, error) {
	s := DefaultSettings()
	if path == "" {
		p, err := SettingsPath()
		if err != nil {
			s.ApplyEnvOverrides()
			return s, nil //nolint:nilerr // no home directory means no settings file
		}
		path = p
	}
	if _, err := toml.DecodeFile(path, s); err != nil && !errors.Is(err, fs.ErrNotExist) {
		return nil, fmt.Errorf("failed to decode settings %s: %w", path, err)
	}
	s.ApplyEnvOverrides()
	return s, nil
}

// ApplyEnvOverrides applies MOCHE_* environment variables.
func (s *Settings) ApplyEnvOverrides() {
	if v := os.Getenv("MOCHE_LOG_LEVEL"); v != "" {
		s.LogLevel = v
	}
	if v := os.Getenv("MOCHE_INPUT_LEVEL"); v != "" {
		s.InputLevel = v
	}
	if v := os.Getenv("MOCHE_LOG_FILE"); v != "" {
		s.LogFile = v
	}
	if v := os.Getenv("MOCHE_HISTORY_DB"); v != "" {
		s.HistoryDB = v
	}
	if v := os.Getenv("MOCHE_NO_HISTORY"); v != "" {
		s.History = !envBool(v)
	}
	if v := os.Getenv("MOCHE_GITHUB_TOKEN_ENV"); v != "" {
		s.GitHubTokenEnv = v
	}
	if v := os.Getenv("MOCHE_RETRIEVAL_TYPE"); v != "" {
		s.RetrievalType = strings.Split(v, ",")
	}
}

// GitHubToken returns the token named by GitHubTokenEnv, if any.
func (s *Settings) GitHubToken() string {
	if s.GitHubTokenEnv == "" {
		return ""
	}
	return os.Getenv(s.GitHubTokenEnv)
}

// RetrievalTypes parses RetrievalType.
func (s *Settings) RetrievalTypes() ([]RetrievalType, error) {
	var types []RetrievalType
	for _, name := range s.RetrievalType {
		name = strings.TrimSpace(name)
		if name == "" {
			continue
		}
		t, err := ParseRetrievalType(name)
		if err != nil {
			return nil, err
		}
		types = append(types, t)
	}
	return types, nil
}

func envBool(v string) bool {
	return v == "1" || strings.EqualFold(v, "true")
}
