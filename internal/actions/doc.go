// Package actions implements the moche commands on top of the engine.
//
// An action opens a Workspace, which resolves the source and build
// directories, merges moche.config from both and every *.moche tool document
// over the builtin commands, then binds the runtime.Context to it.
//
// Key entry points:
//   - RunAction runs project actions with their dependencies
//   - DumpAction prints the merged configuration or an action order
//   - HistoryAction reads the run ledger
//   - WatchAction runs again whenever a document changes
package actions
