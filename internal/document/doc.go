// Package document implements the indentation based configuration format used by
// every moche file (moche.config, moche.build, *.moche and version stamps).
//
// A document is a list of lines of the form
//
//	NAME value
//	[NAME]
//	  NAME value
//
// where a bracketed line opens a block whose members are the following lines
// that are strictly more indented. Blank lines and lines starting with # are ignored.
//
// It handles:
//   - Parsing text into a node tree
//   - Merging node trees into typed values through explicit per-type schemas
//   - Writing typed values back in the same format
//
// Merging many documents into the same value layers them: scalars are last write
// wins, lists append, keyed maps merge per key. A list or map field registered with
// ClearOnMerge is emptied the first time a block touches it, so a later document
// replaces it instead of extending it.
package document
