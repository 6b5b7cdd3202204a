package config

import (
	"fmt"
	"strings"

	"moche.dev/moche/internal/document"
)

// File names looked up in the source and build directories.
const (
	ProjectFileName   = "moche.config"
	BuildInfoFileName = "moche.build"
	CatalogExtension  = ".moche"
)

// Names of the actions every project declares.
const (
	ActionRetrieveTools = "retrieve-tools"
	ActionCleanTools    = "clean-tools"
)

// RetrievalType is the kind of strategy a retrieval method uses.
type RetrievalType int

// Retrieval types.
const (
	RetrievalPath RetrievalType = iota
	RetrievalBinary
	RetrievalSource
)

var retrievalTypeNames = []string{"Path", "Binary", "Source"}

func (t RetrievalType) String() string {
	if int(t) < len(retrievalTypeNames) {
		return retrievalTypeNames[t]
	}
	return fmt.Sprintf("RetrievalType(%d)", int(t))
}

// MarshalYAML renders the type by name.
func (t RetrievalType) MarshalYAML() (any, error) {
	return t.String(), nil
}

// ParseRetrievalType reads a retrieval type name, ignoring case.
func ParseRetrievalType(s string) (RetrievalType, error) {
	for i, name := range retrievalTypeNames {
		if strings.EqualFold(s, name) {
			return RetrievalType(i), nil
		}
	}
	return 0, fmt.Errorf("unknown retrieval type %q (expected Path, Binary or Source)", s)
}

// Project is the content of moche.config.
type Project struct {
	ToolsConfigRootPath string                        `yaml:"ToolsConfigRootPath,omitempty"`
	RecursiveSearch     bool                          `yaml:"RecursiveSearch,omitempty"`
	RetrievalType       []RetrievalType               `yaml:"RetrievalType,omitempty"`
	Action              document.Map[string, *Action] `yaml:"Action"`
}

// Action is a named list of command invocations run after its dependencies.
type Action struct {
	Name       string               `yaml:"Name"`
	Dependency []string             `yaml:"Dependency,omitempty"`
	Command    []*CommandInvocation `yaml:"Command,omitempty"`
}

// BuildInfo is the content of moche.build, written in a build directory to
// remember the source directory it was configured from.
type BuildInfo struct {
	Source string `yaml:"Source"`
}

// ActionSchema describes Action documents.
var ActionSchema = document.NewSchema("Action",
	document.String("Name", func(a *Action) *string { return &a.Name }),
	document.StringList("Dependency", func(a *Action) *[]string { return &a.Dependency }),
	document.ObjectList("Command", func(a *Action) *[]*CommandInvocation { return &a.Command }, CommandInvocationSchema),
)

// ProjectSchema describes moche.config.
var ProjectSchema = document.NewSchema("Config",
	document.String("ToolsConfigRootPath", func(p *Project) *string { return &p.ToolsConfigRootPath }),
	document.Bool("RecursiveSearch", func(p *Project) *bool { return &p.RecursiveSearch }),
	document.EnumList("RetrievalType", func(p *Project) *[]RetrievalType { return &p.RetrievalType },
		ParseRetrievalType, RetrievalType.String).ClearOnMerge(),
	document.EmbeddedMap("Action", func(p *Project) *document.Map[string, *Action] { return &p.Action },
		func(a *Action) string { return a.Name }, ActionSchema),
).WithDefaults(func(p *Project) {
	p.Action.Set(ActionCleanTools, &Action{Name: ActionCleanTools})
	p.Action.Set(ActionRetrieveTools, &Action{Name: ActionRetrieveTools})
})

// BuildInfoSchema describes moche.build.
var BuildInfoSchema = document.NewSchema("BuildInfo",
	document.String("Source", func(b *BuildInfo) *string { return &b.Source }),
)

// NewProject returns a project with only the built-in actions.
func NewProject() *Project {
	return ProjectSchema.New()
}
