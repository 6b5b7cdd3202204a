package actions

import (
	"fmt"
	"io"
	"strings"

	"gopkg.in/yaml.v3"

	"moche.dev/moche/internal/config"
	"moche.dev/moche/internal/document"
	"moche.dev/moche/internal/engine"
	"moche.dev/moche/internal/runtime"
)

// Dump formats.
const (
	FormatMoche = "moche"
	FormatYAML  = "yaml"
)

// DumpOptions configures DumpAction.
type DumpOptions struct {
	Workspace WorkspaceOptions
	Format    string
	// Actions, when set, prints the execution order of these actions instead
	// of the merged configuration.
	Actions []string
}

type dumpDocument struct {
	SourceDir string          `yaml:"SourceDir"`
	BuildDir  string          `yaml:"BuildDir"`
	Documents []string        `yaml:"Documents"`
	Config    *config.Project `yaml:"Config"`
	Catalog   *config.Catalog `yaml:"Catalog"`
}

// DumpAction prints the merged configuration of the workspace to out.
func DumpAction(rc *runtime.Context, opts DumpOptions, out io.Writer) error {
	wsOpts := opts.Workspace
	wsOpts.ReadOnly = true
	ws, err := OpenWorkspace(rc, wsOpts)
	if err != nil {
		return err
	}

	if len(opts.Actions) > 0 {
		order, err := engine.ComputeActionOrder(&ws.Project.Action, opts.Actions)
		if err != nil {
			return err
		}
		for i, a := range order {
			if _, err := fmt.Fprintf(out, "%d. %s\n", i+1, a.Name); err != nil {
				return err
			}
		}
		return nil
	}

	switch strings.ToLower(opts.Format) {
	case "", FormatMoche:
		if _, err := fmt.Fprintf(out, "# %s\n", ws.SourceConfig); err != nil {
			return err
		}
		if err := document.Write(out, ws.Project, config.ProjectSchema); err != nil {
			return err
		}
		if _, err := fmt.Fprintf(out, "\n# %d tool documents\n", len(ws.Documents)); err != nil {
			return err
		}
		return document.Write(out, ws.Catalog, config.CatalogSchema)
	case FormatYAML:
		enc := yaml.NewEncoder(out)
		enc.SetIndent(2)
		if err := enc.Encode(dumpDocument{
			SourceDir: ws.SourceDir,
			BuildDir:  ws.BuildDir,
			Documents: ws.Documents,
			Config:    ws.Project,
			Catalog:   ws.Catalog,
		}); err != nil {
			return fmt.Errorf("failed to encode yaml: %w", err)
		}
		return enc.Close()
	}
	return fmt.Errorf("unknown dump format %q (expected %s or %s)", opts.Format, FormatMoche, FormatYAML)
}
