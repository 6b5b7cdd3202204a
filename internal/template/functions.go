package template

import (
	"path/filepath"
	"strings"

	"github.com/kballard/go-shellquote"
	"golang.org/x/text/cases"
	"golang.org/x/text/language"

	mocheerrors "moche.dev/moche/internal/errors"
)

// Func is a pure template function. It receives the text following the function
// name with nested placeholders already substituted.
type Func func(args string) (string, error)

func pure(fn func(string) string) Func {
	return func(args string) (string, error) {
		return fn(args), nil
	}
}

func defaultFuncs() map[string]Func {
	return map[string]Func{
		"Upper":     pure(cases.Upper(language.Und).String),
		"Lower":     pure(cases.Lower(language.Und).String),
		"Title":     pure(cases.Title(language.Und).String),
		"Trim":      pure(strings.TrimSpace),
		"Base":      pure(filepath.Base),
		"Dir":       pure(filepath.Dir),
		"Ext":       pure(filepath.Ext),
		"Clean":     pure(filepath.Clean),
		"ToSlash":   pure(filepath.ToSlash),
		"FromSlash": pure(filepath.FromSlash),
		"Replace":   replace,
	}
}

// replace takes "old new text", split with shell quoting so either part may
// hold spaces, and replaces every old in text with new.
func replace(args string) (string, error) {
	words, err := shellquote.Split(args)
	if err != nil {
		return "", mocheerrors.NewParseError(0, "Replace %q: %v", args, err)
	}
	if len(words) != 3 {
		return "", mocheerrors.NewParseError(0, "Replace expects old, new and text, got %d arguments in %q", len(words), args)
	}
	return strings.ReplaceAll(words[2], words[0], words[1]), nil
}
