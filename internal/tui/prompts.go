package tui

import (
	"errors"
	"fmt"
	"os"
	"strings"

	"github.com/AlecAivazis/survey/v2"
	"github.com/AlecAivazis/survey/v2/terminal"
	"github.com/mattn/go-isatty"
)

// InputLevel is how readily moche asks the user for input. A prompt is shown
// only when its own level does not exceed the configured one.
type InputLevel int

// Input levels.
const (
	InputNone InputLevel = iota
	// InputExit asks before exiting normally
	InputExit
	// InputFatal asks about unrecoverable situations
	InputFatal
	// InputError asks about recoverable errors
	InputError
	InputChoice
	InputConfirm
)

var inputLevelNames = []string{"None", "Exit", "Fatal", "Error", "Choice", "Confirm"}

func (l InputLevel) String() string {
	if int(l) < len(inputLevelNames) {
		return inputLevelNames[l]
	}
	return inputLevelNames[0]
}

// ParseInputLevel reads an input level name, ignoring case.
func ParseInputLevel(s string) (InputLevel, error) {
	for i, name := range inputLevelNames {
		if strings.EqualFold(s, name) {
			return InputLevel(i), nil
		}
	}
	return InputError, fmt.Errorf("unknown input level %q (expected one of %s)", s, strings.Join(inputLevelNames, ", "))
}

// ErrInteractiveDisabled is returned when interactive prompts are disabled via MOCHE_TEST_NO_INTERACTIVE
var ErrInteractiveDisabled = fmt.Errorf("interactive prompts are disabled (MOCHE_TEST_NO_INTERACTIVE is set)")

// ErrCanceled is returned when the user interrupts a prompt.
var ErrCanceled = errors.New("canceled")

func checkInteractiveAllowed() error {
	if os.Getenv("MOCHE_TEST_NO_INTERACTIVE") != "" {
		return ErrInteractiveDisabled
	}
	return nil
}

// IsTTY returns true if stdin and stdout are both terminals
func IsTTY() bool {
	return (isatty.IsTerminal(os.Stdin.Fd()) || isatty.IsCygwinTerminal(os.Stdin.Fd())) &&
		(isatty.IsTerminal(os.Stdout.Fd()) || isatty.IsCygwinTerminal(os.Stdout.Fd()))
}

// Prompter asks questions up to a configured input level.
type Prompter struct {
	Level InputLevel
	// ask is replaced in tests
	ask func(p survey.Prompt, response any) error
}

// NewPrompter creates a prompter answering prompts above level with their default.
func NewPrompter(level InputLevel) *Prompter {
	return &Prompter{Level: level}
}

// NewScriptedPrompter returns a prompter that answers confirmations with
// answers, in order, instead of reading a terminal. Once answers run out the
// default is given.
func NewScriptedPrompter(level InputLevel, answers ...bool) *Prompter {
	return &Prompter{Level: level, ask: func(_ survey.Prompt, response any) error {
		if len(answers) == 0 {
			return nil
		}
		*(response.(*bool)) = answers[0]
		answers = answers[1:]
		return nil
	}}
}

// Interactive reports whether a prompt at level would be shown.
func (p *Prompter) Interactive(level InputLevel) bool {
	if level > p.Level || checkInteractiveAllowed() != nil {
		return false
	}
	return p.ask != nil || IsTTY()
}

// Confirm asks a yes/no question at level. When the question is not shown,
// def is returned.
func (p *Prompter) Confirm(level InputLevel, message string, def bool) (bool, error) {
	if !p.Interactive(level) {
		return def, nil
	}
	ask := p.ask
	if ask == nil {
		ask = func(prompt survey.Prompt, response any) error {
			return survey.AskOne(prompt, response)
		}
	}
	answer := def
	if err := ask(&survey.Confirm{Message: message, Default: def}, &answer); err != nil {
		if errors.Is(err, terminal.InterruptErr) {
			return false, ErrCanceled
		}
		return false, err
	}
	return answer, nil
}
