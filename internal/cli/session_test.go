package cli

import (
	"bytes"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"moche.dev/moche/internal/config"
	"moche.dev/moche/internal/tui"
)

func TestLevels(t *testing.T) {
	t.Parallel()

	tests := []struct {
		name      string
		flags     globalFlags
		settings  config.Settings
		wantLevel tui.Level
		wantInput tui.InputLevel
	}{
		{
			name:      "settings",
			settings:  config.Settings{LogLevel: "Debug", InputLevel: "Confirm"},
			wantLevel: tui.LevelDebug,
			wantInput: tui.InputConfirm,
		},
		{
			name:      "flags override settings",
			flags:     globalFlags{logLevel: "error", inputLevel: "none"},
			settings:  config.Settings{LogLevel: "Debug", InputLevel: "Confirm"},
			wantLevel: tui.LevelError,
			wantInput: tui.InputNone,
		},
		{
			name:      "verbose",
			flags:     globalFlags{verbose: true, logLevel: "Error"},
			settings:  config.Settings{LogLevel: "Info", InputLevel: "Error"},
			wantLevel: tui.LevelTrace,
			wantInput: tui.InputError,
		},
		{
			name:      "quiet",
			flags:     globalFlags{quiet: true, interactive: true},
			settings:  config.Settings{LogLevel: "Info", InputLevel: "Confirm"},
			wantLevel: tui.LevelWarning,
			wantInput: tui.InputNone,
		},
		{
			name:      "interactive",
			flags:     globalFlags{interactive: true},
			settings:  config.Settings{LogLevel: "Info", InputLevel: "Error"},
			wantLevel: tui.LevelInfo,
			wantInput: tui.InputChoice,
		},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()
			level, input, err := tt.flags.levels(&tt.settings)
			require.NoError(t, err)
			assert.Equal(t, tt.wantLevel, level)
			assert.Equal(t, tt.wantInput, input)
		})
	}

	_, _, err := (&globalFlags{logLevel: "loud"}).levels(config.DefaultSettings())
	require.Error(t, err)
}

func TestParseAge(t *testing.T) {
	t.Parallel()

	tests := []struct {
		in   string
		want time.Duration
	}{
		{"30d", 30 * 24 * time.Hour},
		{"0d", 0},
		{"90m", 90 * time.Minute},
		{"1h30m", 90 * time.Minute},
	}
	for _, tt := range tests {
		got, err := parseAge(tt.in)
		require.NoError(t, err, tt.in)
		assert.Equal(t, tt.want, got, tt.in)
	}

	for _, in := range []string{"xd", "-1d", "soon"} {
		_, err := parseAge(in)
		assert.Error(t, err, in)
	}
}

func TestRootCommand(t *testing.T) {
	t.Parallel()

	t.Run("version", func(t *testing.T) {
		t.Parallel()
		cmd := NewRootCmd("1.2.3", "abc", "today")
		var out bytes.Buffer
		cmd.SetOut(&out)
		cmd.SetArgs([]string{"version"})
		require.NoError(t, cmd.Execute())
		assert.Equal(t, "moche 1.2.3\ncommit: abc\nbuilt: today\n", out.String())
	})

	t.Run("unexpected argument", func(t *testing.T) {
		t.Parallel()
		cmd := NewRootCmd("dev", "none", "unknown")
		cmd.SetOut(&bytes.Buffer{})
		cmd.SetErr(&bytes.Buffer{})
		cmd.SetArgs([]string{"configure"})
		require.Error(t, cmd.Execute())
	})

	t.Run("bad retrieval type", func(t *testing.T) {
		t.Parallel()
		cmd := NewRootCmd("dev", "none", "unknown")
		cmd.SetOut(&bytes.Buffer{})
		cmd.SetErr(&bytes.Buffer{})
		cmd.SetArgs([]string{"--settings", t.TempDir() + "/settings.toml", "--retrieval-type", "Magic", "dump"})
		require.ErrorContains(t, cmd.Execute(), "Magic")
	})
}
