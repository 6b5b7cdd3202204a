package builtins

import (
	"moche.dev/moche/internal/config"
)

func invocation(builtin string, required []string, args ...string) *config.ExecutableInvocation {
	inv := &config.ExecutableInvocation{
		CommandLineExecutable: config.DefaultExecutable,
		BuiltIn:               builtin,
		Required:              required,
	}
	for i := 0; i+1 < len(args); i += 2 {
		inv.Arguments.Set(args[i], args[i+1])
	}
	return inv
}

func command(name string, invocations ...*config.ExecutableInvocation) *config.Command {
	return &config.Command{Name: name, Invoke: invocations}
}

// Commands returns the commands wrapping each builtin, with their default
// arguments. Documents may redefine them.
func Commands() []*config.Command {
	return []*config.Command{
		command("download", invocation("download", []string{"Url"},
			"DownloadDest", "{Dest}",
			"Dest", "{SourcePath}",
		)),
		command("uncompress", invocation("uncompress", []string{"Archive", "Dest"},
			"UncompressDest", "{Dest}",
			"Format", "",
			"FolderToUncompress", "",
		)),
		command("download-archive",
			invocation("download", []string{"Url", "Dest"},
				"UncompressDest", "{Dest}",
				"DownloadDest", "{UncompressDest}-{function Base {Url}}",
			),
			invocation("uncompress", []string{"Url", "Dest"},
				"Archive", "{UncompressDest}-{function Base {Url}}",
				"UncompressDest", "{Dest}",
				"Format", "",
				"FolderToUncompress", "",
			),
			invocation("rm", []string{"Url", "Dest"},
				"Path", "{UncompressDest}-{function Base {Url}}",
				"UncompressDest", "{Dest}",
				"IgnoreUnexisting", "true",
				"Recursive", "false",
			),
		),
		command("pushd", invocation("pushd", []string{"Path"}, "Create", "true")),
		command("popd", invocation("popd", nil)),
		command("cd", invocation("cd", []string{"Path"}, "Create", "true")),
		command("mkdir", invocation("mkdir", []string{"Path"},
			"IgnoreExisting", "true",
			"Recursive", "true",
		)),
		command("rm", invocation("rm", []string{"Path"},
			"IgnoreUnexisting", "true",
			"Recursive", "true",
		)),
		command("move", invocation("move", []string{"Source", "Dest"},
			"IgnoreUnexisting", "false",
			"CreateDest", "true",
			"Overwrite", "true",
			"MoveSource", "{Source}",
			"MoveDest", "{Dest}",
		)),
		command("copy", invocation("copy", []string{"Source", "Dest"},
			"IgnoreUnexisting", "false",
			"CreateDest", "true",
			"Overwrite", "true",
			"CopySource", "{Source}",
			"CopyDest", "{Dest}",
		)),
		command("git-clone", invocation("git-clone", []string{"Url"},
			"Dest", "{SourcePath}",
			"Depth", "0",
		)),
		command("git-pull", invocation("git-pull", nil,
			"Dest", "{SourcePath}",
		)),
		command("github-release", invocation("github-release", []string{"Release", "Asset"},
			"Dest", "{SourcePath}",
			"FolderToUncompress", "",
			"Format", "",
		)),
	}
}

// Install declares the builtin commands in cat, replacing any existing
// definition with the same name.
func Install(cat *config.Catalog) {
	for _, cmd := range Commands() {
		cat.Command.Set(cmd.Name, cmd)
	}
}
