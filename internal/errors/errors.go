// Package errors provides sentinel errors and custom error types for moche.
// Use errors.Is() and errors.As() to check for specific error types.
package errors

import (
	"context"
	"errors"
	"fmt"
	"strings"
)

// Sentinel errors for common conditions
var (
	// ErrParse indicates a malformed document or template
	ErrParse = errors.New("parse error")

	// ErrSchema indicates a document member that does not fit the target type
	ErrSchema = errors.New("schema error")

	// ErrUnresolvedArgument indicates a template referenced an argument with no value
	ErrUnresolvedArgument = errors.New("unresolved argument")

	// ErrRetrievalExhausted indicates no retrieval method could satisfy a repo
	ErrRetrievalExhausted = errors.New("retrieval exhausted")

	// ErrCircularDependency indicates an action or repo depends on itself
	ErrCircularDependency = errors.New("circular dependency")

	// ErrBuildFailure indicates a repo build command failed
	ErrBuildFailure = errors.New("build failure")

	// ErrNotFound indicates a named action, command, tool or repo is not declared
	ErrNotFound = errors.New("not found")
)

// ParseError represents a syntax error in a document or template
type ParseError struct {
	File    string
	Line    int
	Message string
}

func (e *ParseError) Error() string {
	switch {
	case e.File != "" && e.Line > 0:
		return fmt.Sprintf("%s:%d: %s", e.File, e.Line, e.Message)
	case e.Line > 0:
		return fmt.Sprintf("line %d: %s", e.Line, e.Message)
	case e.File != "":
		return fmt.Sprintf("%s: %s", e.File, e.Message)
	}
	return e.Message
}

// Is returns true if the target error is ErrParse
func (e *ParseError) Is(target error) bool {
	return target == ErrParse
}

// NewParseError creates a new ParseError
func NewParseError(line int, format string, args ...any) *ParseError {
	return &ParseError{Line: line, Message: fmt.Sprintf(format, args...)}
}

// SchemaError represents a document member that is unknown or cannot be converted
type SchemaError struct {
	File    string
	Line    int
	Type    string
	Member  string
	Message string
}

func (e *SchemaError) Error() string {
	msg := e.Message
	if e.Member != "" {
		msg = fmt.Sprintf("%s.%s: %s", e.Type, e.Member, e.Message)
	}
	switch {
	case e.File != "" && e.Line > 0:
		return fmt.Sprintf("%s:%d: %s", e.File, e.Line, msg)
	case e.Line > 0:
		return fmt.Sprintf("line %d: %s", e.Line, msg)
	case e.File != "":
		return fmt.Sprintf("%s: %s", e.File, msg)
	}
	return msg
}

// Is returns true if the target error is ErrSchema
func (e *SchemaError) Is(target error) bool {
	return target == ErrSchema
}

// NewSchemaError creates a new SchemaError
func NewSchemaError(line int, typeName, member, message string) *SchemaError {
	return &SchemaError{Line: line, Type: typeName, Member: member, Message: message}
}

// WithFile attaches a file name to parse and schema errors. Other errors are returned unchanged.
func WithFile(err error, file string) error {
	var pe *ParseError
	if errors.As(err, &pe) && pe.File == "" {
		pe.File = file
		return pe
	}
	var se *SchemaError
	if errors.As(err, &se) && se.File == "" {
		se.File = file
		return se
	}
	return err
}

// UnresolvedArgumentError represents a template placeholder with no value in scope
type UnresolvedArgumentError struct {
	Name string
}

func (e *UnresolvedArgumentError) Error() string {
	return fmt.Sprintf("Argument %s not found", e.Name)
}

// Is returns true if the target error is ErrUnresolvedArgument
func (e *UnresolvedArgumentError) Is(target error) bool {
	return target == ErrUnresolvedArgument
}

// NewUnresolvedArgumentError creates a new UnresolvedArgumentError
func NewUnresolvedArgumentError(name string) *UnresolvedArgumentError {
	return &UnresolvedArgumentError{Name: name}
}

// RetrievalExhaustedError represents a repo for which every candidate method failed
type RetrievalExhaustedError struct {
	Repo   string
	Reason string
	Tried  []string
	// Err is the failure of the last candidate, if any.
	Err error
}

func (e *RetrievalExhaustedError) Error() string {
	msg := fmt.Sprintf("failed to retrieve %s", e.Repo)
	if e.Reason != "" {
		msg += ": " + e.Reason
	}
	if len(e.Tried) > 0 {
		msg += fmt.Sprintf(" (tried %s)", strings.Join(e.Tried, ", "))
	}
	return msg
}

// Is returns true if the target error is ErrRetrievalExhausted
func (e *RetrievalExhaustedError) Is(target error) bool {
	return target == ErrRetrievalExhausted
}

func (e *RetrievalExhaustedError) Unwrap() error {
	return e.Err
}

// NewRetrievalExhaustedError creates a new RetrievalExhaustedError
func NewRetrievalExhaustedError(repo, reason string, tried []string) *RetrievalExhaustedError {
	return &RetrievalExhaustedError{Repo: repo, Reason: reason, Tried: tried}
}

// CircularDependencyError represents a dependency cycle. Kind is "action" or "repo".
type CircularDependencyError struct {
	Kind string
	Name string
}

func (e *CircularDependencyError) Error() string {
	return fmt.Sprintf("Circular dependency detected, %s %s needed by itself", e.Name, e.Kind)
}

// Is returns true if the target error is ErrCircularDependency
func (e *CircularDependencyError) Is(target error) bool {
	return target == ErrCircularDependency
}

// NewCircularDependencyError creates a new CircularDependencyError
func NewCircularDependencyError(kind, name string) *CircularDependencyError {
	return &CircularDependencyError{Kind: kind, Name: name}
}

// BuildFailure represents a failed build of a retrieved repo
type BuildFailure struct {
	Repo string
	Err  error
}

func (e *BuildFailure) Error() string {
	if e.Err != nil {
		return fmt.Sprintf("failed to build %s: %v", e.Repo, e.Err)
	}
	return fmt.Sprintf("failed to build %s", e.Repo)
}

// Is returns true if the target error is ErrBuildFailure
func (e *BuildFailure) Is(target error) bool {
	return target == ErrBuildFailure
}

func (e *BuildFailure) Unwrap() error {
	return e.Err
}

// NewBuildFailure creates a new BuildFailure
func NewBuildFailure(repo string, err error) *BuildFailure {
	return &BuildFailure{Repo: repo, Err: err}
}

// NotFoundError represents a reference to an undeclared action, command, tool or repo
type NotFoundError struct {
	Kind string
	Name string
}

func (e *NotFoundError) Error() string {
	kind := e.Kind
	if kind != "" {
		kind = strings.ToUpper(kind[:1]) + kind[1:]
	}
	return fmt.Sprintf("%s %s not defined", kind, e.Name)
}

// Is returns true if the target error is ErrNotFound
func (e *NotFoundError) Is(target error) bool {
	return target == ErrNotFound
}

// NewNotFoundError creates a new NotFoundError
func NewNotFoundError(kind, name string) *NotFoundError {
	return &NotFoundError{Kind: kind, Name: name}
}

// CommandError represents an error from an external process execution
type CommandError struct {
	Command string
	Args    []string
	Stdout  string
	Stderr  string
	Err     error
}

func (e *CommandError) Error() string {
	msg := fmt.Sprintf("command failed: %s", e.Command)
	if len(e.Args) > 0 {
		msg += fmt.Sprintf(" %v", e.Args)
	}
	if e.Stderr != "" {
		msg += fmt.Sprintf("\nstderr: %s", e.Stderr)
	}
	if e.Stdout != "" {
		msg += fmt.Sprintf("\nstdout: %s", e.Stdout)
	}
	if e.Err != nil {
		msg += fmt.Sprintf("\n%v", e.Err)
	}
	return msg
}

func (e *CommandError) Unwrap() error {
	return e.Err
}

// NewCommandError creates a new CommandError
func NewCommandError(command string, args []string, stdout, stderr string, err error) *CommandError {
	return &CommandError{
		Command: command,
		Args:    args,
		Stdout:  stdout,
		Stderr:  stderr,
		Err:     err,
	}
}

// IsFatal reports whether err must abort the whole run rather than being
// treated as a recoverable failure of a single retrieval candidate.
func IsFatal(err error) bool {
	return errors.Is(err, ErrParse) ||
		errors.Is(err, ErrSchema) ||
		errors.Is(err, ErrUnresolvedArgument) ||
		errors.Is(err, ErrCircularDependency) ||
		errors.Is(err, context.Canceled)
}
