package config

import (
	"moche.dev/moche/internal/document"
	"moche.dev/moche/internal/platform"
)

// Repo is a source of one or more tools, with the ordered methods that can
// retrieve it and the commands that build it.
type Repo struct {
	Name             string               `yaml:"Name"`
	Retrieval        []*RetrievalMethod   `yaml:"Retrieval"`
	Build            []*CommandInvocation `yaml:"Build,omitempty"`
	RetrievalType    []RetrievalType      `yaml:"RetrievalType,omitempty"`
	AllowedRetrieval []string             `yaml:"AllowedRetrieval,omitempty"`

	VersionCheckExecutable        string `yaml:"VersionCheckExecutable,omitempty"`
	VersionCheckArguments         string `yaml:"VersionCheckArguments,omitempty"`
	VersionCheckRegex             string `yaml:"VersionCheckRegex,omitempty"`
	VersionCheckRegexCaptureIndex int    `yaml:"VersionCheckRegexCaptureIndex"`
	VersionMin                    string `yaml:"VersionMin,omitempty"`
	VersionMax                    string `yaml:"VersionMax,omitempty"`
}

// Method returns the retrieval method called name.
func (r *Repo) Method(name string) *RetrievalMethod {
	for _, m := range r.Retrieval {
		if m.Name == name {
			return m
		}
	}
	return nil
}

// RetrievalMethod is one way of obtaining a repo. Exactly one of Path, Binary
// and Source is expected to be set.
type RetrievalMethod struct {
	Name    string        `yaml:"Name"`
	Version string        `yaml:"Version,omitempty"`
	Branch  string        `yaml:"Branch,omitempty"`
	Path    *PathMethod   `yaml:"Path,omitempty"`
	Binary  *BinaryMethod `yaml:"Binary,omitempty"`
	Source  *SourceMethod `yaml:"Source,omitempty"`
}

// PathMethod finds the tool already installed on the machine.
type PathMethod struct {
	Path string `yaml:"Path,omitempty"`
}

// BinaryMethod downloads a prebuilt archive for the host platform.
type BinaryMethod struct {
	Url document.Map[platform.Platform, *RemoteFile] `yaml:"Url"`
}

// RemoteFile locates an archive either by URL or by GitHub release asset.
type RemoteFile struct {
	Url             string `yaml:"Url,omitempty"`
	FolderToExtract string `yaml:"FolderToExtract,omitempty"`
	// Release is an owner/repo pair; Asset is a pattern matched against the
	// asset names of the release tagged with the method version.
	Release string `yaml:"Release,omitempty"`
	Asset   string `yaml:"Asset,omitempty"`
}

// SourceMethod runs commands that fetch the sources, which are then built.
type SourceMethod struct {
	Updatable    bool                 `yaml:"Updatable,omitempty"`
	AlwaysUpdate bool                 `yaml:"AlwaysUpdate,omitempty"`
	Command      []*CommandInvocation `yaml:"Command"`
}

// RemoteFileSchema describes RemoteFile documents.
var RemoteFileSchema = document.NewSchema("RemoteFile",
	document.String("Url", func(f *RemoteFile) *string { return &f.Url }),
	document.String("FolderToExtract", func(f *RemoteFile) *string { return &f.FolderToExtract }),
	document.String("Release", func(f *RemoteFile) *string { return &f.Release }),
	document.String("Asset", func(f *RemoteFile) *string { return &f.Asset }),
)

// PathMethodSchema describes the Path block of a retrieval method.
var PathMethodSchema = document.NewSchema("PathRetrievalMethod",
	document.String("Path", func(m *PathMethod) *string { return &m.Path }),
)

// BinaryMethodSchema describes the Binary block of a retrieval method.
var BinaryMethodSchema = document.NewSchema("BinaryRetrievalMethod",
	document.KeyedMap("Url", func(m *BinaryMethod) *document.Map[platform.Platform, *RemoteFile] { return &m.Url },
		platform.Parse, platform.Platform.String, RemoteFileSchema),
)

// SourceMethodSchema describes the Source block of a retrieval method.
var SourceMethodSchema = document.NewSchema("SourceRetrievalMethod",
	document.Bool("Updatable", func(m *SourceMethod) *bool { return &m.Updatable }),
	document.Bool("AlwaysUpdate", func(m *SourceMethod) *bool { return &m.AlwaysUpdate }),
	document.ObjectList("Command", func(m *SourceMethod) *[]*CommandInvocation { return &m.Command }, CommandInvocationSchema),
)

// RetrievalMethodSchema describes RetrievalMethod documents.
var RetrievalMethodSchema = document.NewSchema("RetrievalMethod",
	document.String("Name", func(m *RetrievalMethod) *string { return &m.Name }),
	document.String("Version", func(m *RetrievalMethod) *string { return &m.Version }),
	document.String("Branch", func(m *RetrievalMethod) *string { return &m.Branch }),
	document.Object("Path", func(m *RetrievalMethod) **PathMethod { return &m.Path }, PathMethodSchema),
	document.Object("Binary", func(m *RetrievalMethod) **BinaryMethod { return &m.Binary }, BinaryMethodSchema),
	document.Object("Source", func(m *RetrievalMethod) **SourceMethod { return &m.Source }, SourceMethodSchema),
)

// RepoSchema describes Repo documents.
var RepoSchema = document.NewSchema("Repo",
	document.String("Name", func(r *Repo) *string { return &r.Name }),
	document.ObjectList("Retrieval", func(r *Repo) *[]*RetrievalMethod { return &r.Retrieval }, RetrievalMethodSchema),
	document.ObjectList("Build", func(r *Repo) *[]*CommandInvocation { return &r.Build }, CommandInvocationSchema),
	document.EnumList("RetrievalType", func(r *Repo) *[]RetrievalType { return &r.RetrievalType },
		ParseRetrievalType, RetrievalType.String).ClearOnMerge(),
	document.StringList("AllowedRetrieval", func(r *Repo) *[]string { return &r.AllowedRetrieval }).ClearOnMerge(),
	document.String("VersionCheckExecutable", func(r *Repo) *string { return &r.VersionCheckExecutable }),
	document.String("VersionCheckArguments", func(r *Repo) *string { return &r.VersionCheckArguments }),
	document.String("VersionCheckRegex", func(r *Repo) *string { return &r.VersionCheckRegex }),
	document.Int("VersionCheckRegexCaptureIndex", func(r *Repo) *int { return &r.VersionCheckRegexCaptureIndex }),
	document.String("VersionMin", func(r *Repo) *string { return &r.VersionMin }),
	document.String("VersionMax", func(r *Repo) *string { return &r.VersionMax }),
).WithDefaults(func(r *Repo) {
	r.VersionCheckRegexCaptureIndex = 1
})
