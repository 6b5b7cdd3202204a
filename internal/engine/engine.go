// Package engine retrieves and builds repos, resolves tools and runs commands
// and actions against the merged catalog.
package engine

import (
	"context"
	"fmt"
	"strings"

	"moche.dev/moche/internal/builtins"
	"moche.dev/moche/internal/config"
	mocheerrors "moche.dev/moche/internal/errors"
	"moche.dev/moche/internal/fetch"
	"moche.dev/moche/internal/process"
	"moche.dev/moche/internal/retrieval"
	"moche.dev/moche/internal/runtime"
	"moche.dev/moche/internal/template"
)

// StrategyFactory returns the strategy declared by a retrieval method.
type StrategyFactory func(m *config.RetrievalMethod) (retrieval.Strategy, error)

// Options configures an Engine.
type Options struct {
	Catalog *config.Catalog
	// RetrievalTypes restricts the strategies of repos and tools that do not
	// restrict them themselves.
	RetrievalTypes []config.RetrievalType
	Expander       *template.Expander
	Builtins       *builtins.Registry
	Fetcher        *fetch.Fetcher
	// NewStrategy overrides how retrieval methods become strategies.
	NewStrategy StrategyFactory
}

// Engine holds the per-run state of repos and tools. It is not safe for
// concurrent use.
type Engine struct {
	rc             *runtime.Context
	catalog        *config.Catalog
	retrievalTypes []config.RetrievalType
	expander       *template.Expander
	builtins       *builtins.Registry
	newStrategy    StrategyFactory

	action     string
	repos      map[string]*repoState
	tools      map[string]string
	strategies map[*config.RetrievalMethod]retrieval.Strategy
}

// New creates an engine running in rc.
func New(rc *runtime.Context, opts Options) *Engine {
	e := &Engine{
		rc:             rc,
		catalog:        opts.Catalog,
		retrievalTypes: opts.RetrievalTypes,
		expander:       opts.Expander,
		builtins:       opts.Builtins,
		newStrategy:    opts.NewStrategy,
	}
	if e.catalog == nil {
		e.catalog = config.NewCatalog()
	}
	if e.expander == nil {
		e.expander = template.NewExpander()
	}
	if e.builtins == nil {
		e.builtins = builtins.NewRegistry(builtins.Options{Fetcher: opts.Fetcher})
	}
	if e.newStrategy == nil {
		deps := retrieval.Deps{Fetcher: opts.Fetcher, Invoker: e}
		e.newStrategy = func(m *config.RetrievalMethod) (retrieval.Strategy, error) {
			return retrieval.New(m, deps)
		}
	}
	e.Reset()
	return e
}

// Reset forgets which repos and tools were resolved during this run.
func (e *Engine) Reset() {
	e.repos = make(map[string]*repoState)
	e.tools = make(map[string]string)
	e.strategies = make(map[*config.RetrievalMethod]retrieval.Strategy)
}

// Facts returns the arguments shared by every invocation: platform facts,
// roots and the running action.
func (e *Engine) Facts() template.Scope {
	l := e.rc.Facts()
	l["Action"] = template.Value(e.action)
	return template.NewScope(l)
}

// Invoke runs the command called by ci. Arguments are looked up in ci's own
// arguments, then its mode arguments, then the invoked command defaults, then base.
func (e *Engine) Invoke(ctx context.Context, ci *config.CommandInvocation, mode config.Mode, base template.Scope) error {
	return e.invoke(ctx, ci, mode, nil, base)
}

func (e *Engine) invoke(ctx context.Context, ci *config.CommandInvocation, mode config.Mode, extra template.Layer, base template.Scope) error {
	cmd, ok := e.catalog.Command.Get(ci.Command)
	if !ok {
		return mocheerrors.NewNotFoundError("command", ci.Command)
	}
	call := template.NewScope(ci.Explicit(), ci.ModeDefaults(mode), mode.Facts(), extra)
	if err := e.runCommand(ctx, cmd, call, base); err != nil {
		return fmt.Errorf("command %s: %w", cmd.Name, err)
	}
	return nil
}

func (e *Engine) runCommand(ctx context.Context, cmd *config.Command, call, base template.Scope) error {
	if cmd.Tool != "" {
		exe, err := e.ResolveTool(ctx, cmd.Tool)
		if err != nil {
			return err
		}
		base = base.With(template.Layer{"Executable": template.Value(exe)})
	}
	for _, inv := range cmd.Invoke {
		if err := ctx.Err(); err != nil {
			return err
		}
		scope := call.Then(inv.Defaults()).Chain(base)
		if inv.BuiltIn != "" {
			err := e.builtins.Call(ctx, e.rc, inv.BuiltIn, builtins.Args{Expander: e.expander, Scope: scope})
			if err != nil {
				return err
			}
			continue
		}
		exe, err := e.expander.Expand(inv.CommandLineExecutable, scope)
		if err != nil {
			return err
		}
		args, err := e.expander.Expand(inv.CommandLineArguments, scope)
		if err != nil {
			return err
		}
		e.rc.Splog.Debug("%s> %s %s", e.rc.Dir(), exe, args)
		if err := process.Run(ctx, e.rc, exe, args); err != nil {
			return err
		}
	}
	return nil
}

// ResolveTool retrieves the repo providing tool name and returns the path of
// its executable. The result is memoized for the run.
func (e *Engine) ResolveTool(ctx context.Context, name string) (string, error) {
	if p, ok := e.tools[name]; ok {
		return p, nil
	}
	tool, ok := e.catalog.Tool.Get(name)
	if !ok {
		return "", mocheerrors.NewNotFoundError("tool", name)
	}
	repo, ok := e.catalog.Repo.Get(tool.Repo)
	if !ok {
		return "", fmt.Errorf("tool %s: %w", name, mocheerrors.NewNotFoundError("repo", tool.Repo))
	}

	st, err := e.Retrieve(ctx, repo, restriction{methods: tool.AllowedRetrieval, types: tool.RetrievalType})
	if err != nil {
		return "", fmt.Errorf("tool %s: %w", name, err)
	}
	exe := tool.Executable
	if exe == "" {
		exe = tool.Name
	}
	if exe, err = st.target.Expand(exe); err != nil {
		return "", fmt.Errorf("tool %s: %w", name, err)
	}
	path, err := st.strategy.ExecutablePath(st.target, exe)
	if err != nil {
		return "", fmt.Errorf("tool %s: %w", name, err)
	}
	e.rc.Splog.Debug("Tool %s is %s", name, path)
	e.tools[name] = path
	return path, nil
}

// RetrieveMandatoryTools resolves every tool flagged Mandatory, in declaration order.
func (e *Engine) RetrieveMandatoryTools(ctx context.Context) error {
	for name, tool := range e.catalog.Tool.All() {
		if !tool.Mandatory {
			continue
		}
		if _, err := e.ResolveTool(ctx, name); err != nil {
			return err
		}
	}
	return nil
}

// CleanTools removes the directory of every declared repo.
func (e *Engine) CleanTools() error {
	for _, repo := range e.catalog.Repo.All() {
		if err := e.clean(repo); err != nil {
			return err
		}
	}
	e.Reset()
	return nil
}

// RunActions runs requested and their dependencies in dependency order.
func (e *Engine) RunActions(ctx context.Context, actions *config.Project, requested []string) error {
	e.rc.Splog.Info("Action Requested: %s", strings.Join(requested, ", "))
	order, err := ComputeActionOrder(&actions.Action, requested)
	if err != nil {
		return err
	}
	names := make([]string, len(order))
	for i, a := range order {
		names[i] = a.Name
	}
	e.rc.Splog.Debug("Actions to execute: %s", strings.Join(names, ", "))

	for _, action := range order {
		if err := e.RunAction(ctx, action); err != nil {
			return err
		}
	}
	return nil
}

// RunAction runs a single action, without its dependencies.
func (e *Engine) RunAction(ctx context.Context, action *config.Action) error {
	e.rc.Splog.Info("Execute action %s", action.Name)
	e.rc.Record("action", action.Name, "")
	e.action = action.Name
	defer func() { e.action = "" }()

	var err error
	switch action.Name {
	case config.ActionRetrieveTools:
		err = e.RetrieveMandatoryTools(ctx)
	case config.ActionCleanTools:
		err = e.CleanTools()
	}
	if err != nil {
		return fmt.Errorf("action %s: %w", action.Name, err)
	}

	depth := e.rc.Depth()
	defer e.rc.Restore(depth)
	for _, ci := range action.Command {
		if err := e.Invoke(ctx, ci, config.ModeRun, e.Facts()); err != nil {
			return fmt.Errorf("action %s: %w", action.Name, err)
		}
	}
	return nil
}
