package cli

import (
	"fmt"
	"os"

	"github.com/charmbracelet/lipgloss"
	"github.com/google/uuid"
	"github.com/muesli/termenv"
	"github.com/spf13/cobra"

	"moche.dev/moche/internal/actions"
	"moche.dev/moche/internal/config"
	"moche.dev/moche/internal/fetch"
	"moche.dev/moche/internal/history"
	"moche.dev/moche/internal/runtime"
	"moche.dev/moche/internal/tui"
)

// globalFlags are the flags shared by every command.
type globalFlags struct {
	build      string
	src        string
	fromScript bool
	noop       bool

	logLevel        string
	verbose         bool
	quiet           bool
	inputLevel      string
	interactive     bool
	noExternalLog   bool
	noExternalError bool
	noColor         bool
	logFile         string

	retrievalType []string
	settings      string
	apiURL        string
}

func (f *globalFlags) register(cmd *cobra.Command) {
	pf := cmd.PersistentFlags()
	pf.StringVarP(&f.build, "build", "b", "", "Build directory, or a moche.config in it (default: working directory)")
	pf.StringVarP(&f.src, "src", "s", "", "Source directory holding moche.config (default: the one recorded in moche.build)")
	pf.BoolVar(&f.fromScript, "from-script", false, "Run from the generated launcher script")
	pf.BoolVar(&f.noop, "noop", false, "Log side effects instead of performing them")

	pf.StringVarP(&f.logLevel, "log-level", "l", "", "Console log level: None, Fatal, Error, Warning, Info, Debug or Trace")
	pf.BoolVarP(&f.verbose, "verbose", "v", false, "Log everything (same as --log-level Trace)")
	pf.BoolVarP(&f.quiet, "quiet", "q", false, "Only log warnings and errors, never ask and hide external output")
	pf.StringVarP(&f.inputLevel, "input-level", "I", "", "Prompt level: None, Exit, Fatal, Error, Choice or Confirm")
	pf.BoolVarP(&f.interactive, "interactive", "i", false, "Ask about choices (same as --input-level Choice)")
	pf.BoolVar(&f.noExternalLog, "no-external-log", false, "Hide the output of external commands")
	pf.BoolVar(&f.noExternalError, "no-external-error", false, "Hide the error output of external commands")
	pf.BoolVar(&f.noColor, "no-color", false, "Disable colored output")
	pf.StringVar(&f.logFile, "log-file", "", "Also write a full trace log to this file")

	pf.StringSliceVar(&f.retrievalType, "retrieval-type", nil, "Retrieval types to try, in order: Path, Binary, Source")
	pf.StringVar(&f.settings, "settings", "", "Settings file (default: ~/.moche/settings.toml)")
	pf.StringVar(&f.apiURL, "github-api-url", "", "GitHub API endpoint, for GitHub Enterprise")
}

// session is everything a command needs to run: the runtime context and the
// services configured from settings and flags.
type session struct {
	rc             *runtime.Context
	settings       *config.Settings
	fetcher        *fetch.Fetcher
	history        *history.Store
	retrievalTypes []config.RetrievalType
	gitToken       string
}

func (s *session) close() {
	if s.history != nil {
		if err := s.history.Close(); err != nil {
			s.rc.Splog.Debug("Failed to close history: %v", err)
		}
	}
	_ = s.rc.Splog.Close()
}

func (f *globalFlags) levels(settings *config.Settings) (tui.Level, tui.InputLevel, error) {
	logName := settings.LogLevel
	if f.logLevel != "" {
		logName = f.logLevel
	}
	level, err := tui.ParseLevel(logName)
	if err != nil {
		return 0, 0, err
	}
	inputName := settings.InputLevel
	if f.inputLevel != "" {
		inputName = f.inputLevel
	}
	input, err := tui.ParseInputLevel(inputName)
	if err != nil {
		return 0, 0, err
	}

	switch {
	case f.verbose:
		level = tui.LevelTrace
	case f.quiet:
		level = tui.LevelWarning
	}
	switch {
	case f.quiet:
		input = tui.InputNone
	case f.interactive:
		input = tui.InputChoice
	}
	return level, input, nil
}

// open builds a session from the settings file and flags. withHistory opens
// the run ledger when settings enable it.
func (f *globalFlags) open(cmd *cobra.Command, withHistory bool) (*session, error) {
	if f.noColor {
		lipgloss.SetColorProfile(termenv.Ascii)
	}
	settings, err := config.LoadSettings(f.settings)
	if err != nil {
		return nil, err
	}
	level, input, err := f.levels(settings)
	if err != nil {
		return nil, err
	}

	runID := uuid.NewString()
	logFile := settings.LogFile
	if f.logFile != "" {
		logFile = f.logFile
	}
	splog, err := tui.NewSplogWithOptions(tui.SplogOptions{
		Writer:    cmd.OutOrStdout(),
		ErrWriter: cmd.ErrOrStderr(),
		Level:     level,
		LogFile:   logFile,
		RunID:     runID,
	})
	if err != nil {
		return nil, err
	}

	wd, err := os.Getwd()
	if err != nil {
		return nil, fmt.Errorf("failed to get working directory: %w", err)
	}
	rc := runtime.NewContext(splog, wd)
	rc.RunID = runID
	rc.Prompter = tui.NewPrompter(input)
	rc.DryRun = f.noop
	rc.HideExternalOutput = settings.HideExternalOutput || f.noExternalLog || f.quiet
	rc.HideExternalError = settings.HideExternalError || f.noExternalError

	s := &session{rc: rc, settings: settings, gitToken: settings.GitHubToken()}

	if len(f.retrievalType) > 0 {
		settings.RetrievalType = f.retrievalType
	}
	if s.retrievalTypes, err = settings.RetrievalTypes(); err != nil {
		s.close()
		return nil, err
	}

	s.fetcher, err = fetch.New(cmd.Context(), fetch.Options{Token: s.gitToken, APIBaseURL: f.apiURL})
	if err != nil {
		s.close()
		return nil, err
	}

	if withHistory && settings.History && settings.HistoryDB != "" {
		store, err := history.Open(settings.HistoryDB)
		if err != nil {
			splog.Warn("Run history is unavailable: %v", err)
		} else {
			s.history = store
		}
	}
	return s, nil
}

func (f *globalFlags) workspace() actions.WorkspaceOptions {
	return actions.WorkspaceOptions{
		BuildDir:   f.build,
		SourceDir:  f.src,
		FromScript: f.fromScript,
		Executable: actions.Executable(),
	}
}

func (s *session) runOptions(f *globalFlags, requested []string) actions.RunOptions {
	return actions.RunOptions{
		Workspace:      f.workspace(),
		Actions:        requested,
		RetrievalTypes: s.retrievalTypes,
		Fetcher:        s.fetcher,
		GitToken:       s.gitToken,
		History:        s.history,
	}
}
