// Package config defines the document-backed configuration model of moche.
//
// It handles:
//   - Project settings read from moche.config and moche.build
//   - The catalog of tools, commands and repos merged from *.moche files
//   - The version stamp stored next to each retrieved repo
//   - User settings read from ~/.moche/settings.toml
//
// Every document-backed type has an explicit schema declared next to it. Values
// are built once per run and treated as read-only afterwards.
package config
