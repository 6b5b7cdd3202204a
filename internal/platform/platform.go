// Package platform identifies the host operating system and architecture and
// parses the platform names used as keys in binary retrieval documents.
package platform

import (
	"fmt"
	goruntime "runtime"
	"strings"

	"moche.dev/moche/internal/template"
)

// OS is an operating system family.
type OS int

// Operating system families.
const (
	UnknownOS OS = iota
	Windows
	Unix
	Mac
)

var osNames = []string{"Unknown", "Windows", "Unix", "Mac"}

func (o OS) String() string {
	if int(o) < len(osNames) {
		return osNames[o]
	}
	return osNames[0]
}

// Arch is a processor architecture.
type Arch int

// Processor architectures.
const (
	UnknownArch Arch = iota
	X86
	X64
	ARM
	ARM64
	IA64
)

var archNames = []string{"Unknown", "x86", "x64", "ARM", "ARM64", "IA64"}

func (a Arch) String() string {
	if int(a) < len(archNames) {
		return archNames[a]
	}
	return archNames[0]
}

// Bits returns the pointer width of the architecture, or 0 when unknown.
func (a Arch) Bits() int {
	switch a {
	case X86, ARM:
		return 32
	case X64, ARM64, IA64:
		return 64
	}
	return 0
}

// Platform is an OS and architecture pair such as Unix-x64.
type Platform struct {
	OS   OS
	Arch Arch
}

func (p Platform) String() string {
	return fmt.Sprintf("%s-%s", p.OS, p.Arch)
}

// ParseOS maps the common spellings of an operating system name.
func ParseOS(s string) OS {
	switch strings.ToLower(s) {
	case "win", "windows", "win32", "win64":
		return Windows
	case "unix", "linux":
		return Unix
	case "mac", "macos", "macosx", "darwin", "osx":
		return Mac
	}
	return UnknownOS
}

// ParseArch maps the common spellings of an architecture name.
func ParseArch(s string) Arch {
	switch strings.ToLower(s) {
	case "x86", "i386", "i586", "i686", "386", "win32":
		return X86
	case "x64", "x86-64", "x86_64", "amd64":
		return X64
	case "itanium", "ia64":
		return IA64
	case "arm", "arm6", "armv6", "arm7", "armv7", "arm32":
		return ARM
	case "arm64", "arm8", "armv8", "aarch64":
		return ARM64
	}
	return UnknownArch
}

// Parse reads "OS-Arch" or "OS_Arch". The first separator splits the name, so
// "linux-x86_64" is Unix-x64.
func Parse(s string) (Platform, error) {
	idx := strings.IndexAny(s, "-_")
	if idx < 0 {
		return Platform{}, fmt.Errorf("platform %q is not of the form OS-Arch", s)
	}
	p := Platform{OS: ParseOS(s[:idx]), Arch: ParseArch(s[idx+1:])}
	if p.OS == UnknownOS || p.Arch == UnknownArch {
		return p, fmt.Errorf("unknown platform %q", s)
	}
	return p, nil
}

// FromGo maps GOOS and GOARCH values.
func FromGo(goos, goarch string) Platform {
	p := Platform{OS: ParseOS(goos), Arch: ParseArch(goarch)}
	if p.OS == UnknownOS && goos != "" && goos != "js" && goos != "wasip1" && goos != "plan9" {
		// the BSDs, solaris, aix and illumos are unix flavours
		p.OS = Unix
	}
	return p
}

// Current returns the platform the process runs on.
func Current() Platform {
	return FromGo(goruntime.GOOS, goruntime.GOARCH)
}

// Facts returns the platform arguments every command invocation can reference.
func (p Platform) Facts(goos string) template.Layer {
	flag := func(b bool) string {
		if b {
			return "true"
		}
		return "false"
	}
	return template.Strings(map[string]string{
		"Platform":  p.String(),
		"OS":        p.OS.String(),
		"Arch":      p.Arch.String(),
		"IsWindows": flag(p.OS == Windows),
		"IsUnix":    flag(p.OS == Unix || p.OS == Mac),
		"IsLinux":   flag(goos == "linux"),
		"IsMac":     flag(p.OS == Mac),
		"Is32Bits":  flag(p.Arch.Bits() == 32),
		"Is64Bits":  flag(p.Arch.Bits() == 64),
		"IsArm":     flag(p.Arch == ARM || p.Arch == ARM64),
	})
}

// HostFacts returns Facts for the current process.
func HostFacts() template.Layer {
	return Current().Facts(goruntime.GOOS)
}
