package template

import (
	"fmt"
	"strings"

	mocheerrors "moche.dev/moche/internal/errors"
)

// DefaultMaxDepth bounds recursive expansion of argument values.
const DefaultMaxDepth = 32

// Expander resolves placeholders, conditionals and function calls in format
// strings against a Scope.
type Expander struct {
	funcs    map[string]Func
	maxDepth int
}

// NewExpander creates an expander with the standard function registry.
func NewExpander() *Expander {
	return &Expander{funcs: defaultFuncs(), maxDepth: DefaultMaxDepth}
}

// Register adds or replaces a template function.
func (e *Expander) Register(name string, fn Func) {
	e.funcs[name] = fn
}

// Expand resolves format against scope. The first unresolved argument in scan
// order is reported as an UnresolvedArgumentError.
func (e *Expander) Expand(format string, scope Scope) (string, error) {
	return e.expand(format, scope, 0)
}

// Arg expands the argument name, as if format were "{name}".
func (e *Expander) Arg(scope Scope, name string) (string, error) {
	return e.expand("{"+name+"}", scope, 0)
}

// Bool reads name as a flag. An undeclared name yields def.
func (e *Expander) Bool(scope Scope, name string, def bool) (bool, error) {
	if _, ok := scope.Lookup(name); !ok {
		return def, nil
	}
	s, err := e.Arg(scope, name)
	if err != nil {
		return false, err
	}
	return Truthy(s), nil
}

// Truthy reports whether s counts as true: anything except blank text, "0" and "false".
func Truthy(s string) bool {
	t := strings.TrimSpace(s)
	return t != "" && t != "0" && !strings.EqualFold(t, "false")
}

type frameKind int

const (
	frameRoot frameKind = iota
	framePlaceholder
	frameBlock
)

type frame struct {
	kind     frameKind
	text     strings.Builder
	children int

	unresolved    string
	hasUnresolved bool

	// inline conditional: {if {Name} body}
	conditional bool
	negate      bool
	condSet     bool
	truth       bool

	// inline function: {function {Name} args}
	function bool
	funcName string

	// skip marks frames inside a discarded branch; nothing in them is evaluated
	skip bool
}

func (f *frame) discarding() bool {
	return f.skip || (f.condSet && !f.truth)
}

func (f *frame) markUnresolved(name string) {
	if !f.hasUnresolved {
		f.unresolved = name
		f.hasUnresolved = true
	}
}

func (f *frame) adopt(child *frame) {
	f.text.WriteString(child.text.String())
	if child.hasUnresolved {
		f.markUnresolved(child.unresolved)
	}
}

type expansion struct {
	e     *Expander
	scope Scope
	depth int
	stack []*frame
}

func (x *expansion) top() *frame {
	return x.stack[len(x.stack)-1]
}

func (x *expansion) push(f *frame) {
	x.stack = append(x.stack, f)
}

func (x *expansion) pop() *frame {
	f := x.top()
	x.stack = x.stack[:len(x.stack)-1]
	return f
}

func (e *Expander) expand(format string, scope Scope, depth int) (string, error) {
	if depth > e.maxDepth {
		return "", mocheerrors.NewParseError(0, "expansion of %q exceeds %d nested levels", format, e.maxDepth)
	}
	x := &expansion{e: e, scope: scope, depth: depth, stack: []*frame{{kind: frameRoot}}}

	for i := 0; i < len(format); {
		switch format[i] {
		case '{':
			if i+1 < len(format) && format[i+1] == '{' {
				x.top().text.WriteByte('{')
				i += 2
				continue
			}
			x.open()
			i++
		case '}':
			run := 1
			for i+run < len(format) && format[i+run] == '}' {
				run++
			}
			swallow, err := x.closeRun(run)
			if err != nil {
				return "", err
			}
			i += run
			if swallow && i < len(format) && format[i] == ' ' {
				i++
			}
		default:
			j := strings.IndexAny(format[i:], "{}")
			if j < 0 {
				j = len(format) - i
			}
			x.top().text.WriteString(format[i : i+j])
			i += j
		}
	}

	if len(x.stack) > 1 {
		if t := x.top(); t.kind == frameBlock {
			return "", mocheerrors.NewParseError(0, "{if} without corresponding {} in %q", format)
		}
		return "", mocheerrors.NewParseError(0, "{ without corresponding } in %q", format)
	}
	root := x.top()
	if root.hasUnresolved {
		return "", mocheerrors.NewUnresolvedArgumentError(root.unresolved)
	}
	return root.text.String(), nil
}

// open starts a placeholder frame. A pending "if ", "if not " or "function "
// prefix in the enclosing frame turns that frame into an inline conditional or
// function call whose first nested placeholder names the condition or function.
func (x *expansion) open() {
	t := x.top()
	if t.kind == framePlaceholder && t.children == 0 && !t.conditional && !t.function {
		switch prefix := t.text.String(); {
		case strings.EqualFold(prefix, "if "):
			t.conditional = true
			t.text.Reset()
		case strings.EqualFold(prefix, "if not "):
			t.conditional, t.negate = true, true
			t.text.Reset()
		case prefix == "function ":
			t.function = true
			t.text.Reset()
		}
	}
	x.push(&frame{kind: framePlaceholder, skip: t.discarding()})
}

// closeRun handles a run of closing braces. Each brace closes the innermost
// placeholder frame; braces left over once none is open must pair up and each
// pair becomes a literal }. It reports whether the last brace closed a
// condition, after which one space is swallowed.
func (x *expansion) closeRun(run int) (bool, error) {
	swallow := false
	for k := 0; k < run; k++ {
		if x.top().kind != framePlaceholder {
			left := run - k
			if left%2 != 0 {
				return false, mocheerrors.NewParseError(0, "} without corresponding {")
			}
			x.top().text.WriteString(strings.Repeat("}", left/2))
			return false, nil
		}
		var err error
		if swallow, err = x.close(); err != nil {
			return false, err
		}
	}
	return swallow, nil
}

func (x *expansion) close() (bool, error) {
	f := x.pop()
	parent := x.top()
	text := f.text.String()

	switch {
	case f.conditional:
		if !f.skip && f.condSet && f.truth {
			parent.adopt(f)
		}
		parent.children++
		return false, nil

	case f.function:
		parent.children++
		if f.skip {
			return false, nil
		}
		return false, x.call(parent, f, f.funcName, strings.TrimPrefix(text, " "))

	case parent.conditional && !parent.condSet && parent.children == 0:
		parent.children++
		parent.condSet = true
		if !parent.skip {
			truth, err := x.condition(text)
			if err != nil {
				return false, err
			}
			parent.truth = truth != parent.negate
		}
		return true, nil

	case parent.function && parent.funcName == "" && parent.children == 0 && parent.text.Len() == 0:
		parent.children++
		parent.funcName = text
		return false, nil

	case text == "" && f.children == 0:
		if parent.kind != frameBlock {
			return false, mocheerrors.NewParseError(0, "{} without corresponding {if}")
		}
		block := x.pop()
		outer := x.top()
		if !block.skip && block.truth {
			outer.adopt(block)
		}
		outer.children++
		return false, nil
	}

	// The condition name of a block may itself be composed, as in {if Has{Idx}}.
	if name, negate, ok := blockCondition(text); ok {
		parent.children++
		block := &frame{kind: frameBlock, skip: f.skip, condSet: true}
		if !f.skip {
			if f.hasUnresolved {
				return false, mocheerrors.NewUnresolvedArgumentError(f.unresolved)
			}
			truth, err := x.condition(name)
			if err != nil {
				return false, err
			}
			block.truth = truth != negate
		}
		x.push(block)
		return true, nil
	}

	parent.children++
	if f.skip {
		return false, nil
	}

	if rest, ok := strings.CutPrefix(text, "function "); ok {
		name, args, _ := strings.Cut(rest, " ")
		return false, x.call(parent, f, name, args)
	}

	v, ok := x.scope.Lookup(text)
	if !ok || v == nil {
		parent.markUnresolved(text)
		return false, nil
	}
	value, err := x.e.expand(*v, x.scope, x.depth+1)
	if err != nil {
		return false, err
	}
	parent.text.WriteString(value)
	return false, nil
}

func (x *expansion) call(parent, f *frame, name, args string) error {
	if f.hasUnresolved {
		parent.markUnresolved(f.unresolved)
		return nil
	}
	fn, ok := x.e.funcs[name]
	if !ok {
		return mocheerrors.NewSchemaError(0, "function", name, "unknown function")
	}
	out, err := fn(args)
	if err != nil {
		return fmt.Errorf("function %s: %w", name, err)
	}
	value, err := x.e.expand(out, x.scope, x.depth+1)
	if err != nil {
		return err
	}
	parent.text.WriteString(value)
	return nil
}

// condition evaluates a condition name. Unlike placeholders, a condition with no
// value is an error right away.
func (x *expansion) condition(name string) (bool, error) {
	v, ok := x.scope.Lookup(name)
	if !ok || v == nil {
		return false, mocheerrors.NewUnresolvedArgumentError(name)
	}
	value, err := x.e.expand(*v, x.scope, x.depth+1)
	if err != nil {
		return false, err
	}
	return Truthy(value), nil
}

// blockCondition recognizes "if Name" and "if not Name", case-insensitively.
func blockCondition(text string) (string, bool, bool) {
	if len(text) > 7 && strings.EqualFold(text[:7], "if not ") {
		name := strings.TrimSpace(text[7:])
		return name, true, name != ""
	}
	if len(text) > 3 && strings.EqualFold(text[:3], "if ") {
		name := strings.TrimSpace(text[3:])
		return name, false, name != ""
	}
	return "", false, false
}
