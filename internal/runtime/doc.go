// Package runtime provides the execution context of a moche run.
//
// It encapsulates the logger, the prompt policy, the dry-run and external
// output flags, the host platform and a working directory stack used by
// processes and file built-ins.
package runtime
