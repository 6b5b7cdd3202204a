package config

import (
	"moche.dev/moche/internal/document"
	"moche.dev/moche/internal/template"
)

// DefaultExecutable is the command line executable of an invocation that does
// not name one: the path of the tool bound to the command.
const DefaultExecutable = "{Executable}"

// Catalog holds every tool, command and repo declared by *.moche documents.
type Catalog struct {
	Tool    document.Map[string, *Tool]    `yaml:"Tool"`
	Command document.Map[string, *Command] `yaml:"Command"`
	Repo    document.Map[string, *Repo]    `yaml:"Repo"`
}

// Tool is an executable provided by a repo.
type Tool struct {
	Name       string `yaml:"Name"`
	Executable string `yaml:"Executable,omitempty"`
	Repo       string `yaml:"Repo"`
	Mandatory  bool   `yaml:"Mandatory,omitempty"`
	// AllowedRetrieval and RetrievalType restrict how the repo may be retrieved
	// when it is retrieved for this tool.
	AllowedRetrieval []string        `yaml:"AllowedRetrieval,omitempty"`
	RetrievalType    []RetrievalType `yaml:"RetrievalType,omitempty"`
}

// Command is a named sequence of executable invocations, optionally bound to a tool.
type Command struct {
	Name   string                  `yaml:"Name"`
	Tool   string                  `yaml:"Tool,omitempty"`
	Invoke []*ExecutableInvocation `yaml:"Invoke"`
}

// ExecutableInvocation runs either a built-in or an external process.
type ExecutableInvocation struct {
	CommandLineExecutable string                       `yaml:"CommandLineExecutable,omitempty"`
	CommandLineArguments  string                       `yaml:"CommandLineArguments,omitempty"`
	Arguments             document.Map[string, string] `yaml:"Arguments,omitempty"`
	// Required names arguments the caller must supply.
	Required []string `yaml:"Required,omitempty"`
	BuiltIn  string   `yaml:"BuiltIn,omitempty"`
}

// Defaults returns the argument layer declared by the invocation itself.
func (e *ExecutableInvocation) Defaults() template.Layer {
	l := make(template.Layer, len(e.Required)+e.Arguments.Len())
	for _, name := range e.Required {
		l[name] = nil
	}
	for k, v := range e.Arguments.All() {
		l[k] = template.Value(v)
	}
	return l
}

// Mode is the reason a command is invoked.
type Mode int

// Invocation modes.
const (
	ModeRun Mode = iota
	ModeRetrieve
	ModeUpdate
	ModeBuild
)

var modeNames = []string{"Run", "Retrieve", "Update", "Build"}

func (m Mode) String() string {
	if int(m) < len(modeNames) {
		return modeNames[m]
	}
	return modeNames[0]
}

// Facts returns the Mode argument and one Is<Mode> flag per mode.
func (m Mode) Facts() template.Layer {
	l := template.Layer{"Mode": template.Value(m.String())}
	for i, name := range modeNames {
		v := "false"
		if Mode(i) == m {
			v = "true"
		}
		l["Is"+name] = template.Value(v)
	}
	return l
}

// CommandInvocation calls a command with explicit arguments.
type CommandInvocation struct {
	Command           string                       `yaml:"Command"`
	Arguments         document.Map[string, string] `yaml:"Arguments,omitempty"`
	RetrieveArguments document.Map[string, string] `yaml:"RetrieveArguments,omitempty"`
	UpdateArguments   document.Map[string, string] `yaml:"UpdateArguments,omitempty"`
	BuildArguments    document.Map[string, string] `yaml:"BuildArguments,omitempty"`
}

// Explicit returns the invocation's own arguments.
func (c *CommandInvocation) Explicit() template.Layer {
	return mapLayer(&c.Arguments)
}

// ModeDefaults returns the arguments that only apply in mode.
func (c *CommandInvocation) ModeDefaults(mode Mode) template.Layer {
	switch mode {
	case ModeRetrieve:
		return mapLayer(&c.RetrieveArguments)
	case ModeUpdate:
		return mapLayer(&c.UpdateArguments)
	case ModeBuild:
		return mapLayer(&c.BuildArguments)
	}
	return nil
}

func mapLayer(m *document.Map[string, string]) template.Layer {
	if m.Len() == 0 {
		return nil
	}
	l := make(template.Layer, m.Len())
	for k, v := range m.All() {
		l[k] = template.Value(v)
	}
	return l
}

// ToolSchema describes Tool documents.
var ToolSchema = document.NewSchema("Tool",
	document.String("Name", func(t *Tool) *string { return &t.Name }),
	document.String("Executable", func(t *Tool) *string { return &t.Executable }),
	document.String("Repo", func(t *Tool) *string { return &t.Repo }),
	document.Bool("Mandatory", func(t *Tool) *bool { return &t.Mandatory }),
	document.StringList("AllowedRetrieval", func(t *Tool) *[]string { return &t.AllowedRetrieval }).ClearOnMerge(),
	document.EnumList("RetrievalType", func(t *Tool) *[]RetrievalType { return &t.RetrievalType },
		ParseRetrievalType, RetrievalType.String).ClearOnMerge(),
)

// ExecutableInvocationSchema describes ExecutableInvocation documents.
var ExecutableInvocationSchema = document.NewSchema("ExecutableInvocation",
	document.String("CommandLineExecutable", func(e *ExecutableInvocation) *string { return &e.CommandLineExecutable }),
	document.String("CommandLineArguments", func(e *ExecutableInvocation) *string { return &e.CommandLineArguments }),
	document.StringMap("Arguments", func(e *ExecutableInvocation) *document.Map[string, string] { return &e.Arguments }),
	document.StringList("Required", func(e *ExecutableInvocation) *[]string { return &e.Required }),
	document.String("BuiltIn", func(e *ExecutableInvocation) *string { return &e.BuiltIn }),
).WithDefaults(func(e *ExecutableInvocation) {
	e.CommandLineExecutable = DefaultExecutable
})

// CommandSchema describes Command documents.
var CommandSchema = document.NewSchema("Command",
	document.String("Name", func(c *Command) *string { return &c.Name }),
	document.String("Tool", func(c *Command) *string { return &c.Tool }),
	document.ObjectList("Invoke", func(c *Command) *[]*ExecutableInvocation { return &c.Invoke }, ExecutableInvocationSchema).ClearOnMerge(),
)

// CommandInvocationSchema describes CommandInvocation documents.
var CommandInvocationSchema = document.NewSchema("CommandInvocation",
	document.String("Command", func(c *CommandInvocation) *string { return &c.Command }),
	document.StringMap("Arguments", func(c *CommandInvocation) *document.Map[string, string] { return &c.Arguments }),
	document.StringMap("RetrieveArguments", func(c *CommandInvocation) *document.Map[string, string] { return &c.RetrieveArguments }),
	document.StringMap("UpdateArguments", func(c *CommandInvocation) *document.Map[string, string] { return &c.UpdateArguments }),
	document.StringMap("BuildArguments", func(c *CommandInvocation) *document.Map[string, string] { return &c.BuildArguments }),
)

// CatalogSchema describes *.moche documents.
var CatalogSchema = document.NewSchema("Configuration",
	document.EmbeddedMap("Tool", func(c *Catalog) *document.Map[string, *Tool] { return &c.Tool },
		func(t *Tool) string { return t.Name }, ToolSchema),
	document.EmbeddedMap("Command", func(c *Catalog) *document.Map[string, *Command] { return &c.Command },
		func(c *Command) string { return c.Name }, CommandSchema),
	document.EmbeddedMap("Repo", func(c *Catalog) *document.Map[string, *Repo] { return &c.Repo },
		func(r *Repo) string { return r.Name }, RepoSchema),
)

// NewCatalog returns an empty catalog.
func NewCatalog() *Catalog {
	return CatalogSchema.New()
}
