// Package template expands the argument templates used by command invocations.
//
// Syntax:
//   - {Name} is replaced by the value of Name, itself expanded
//   - {{ is a literal {, and }} outside any placeholder a literal }
//   - {if Name}...{} and {if not Name}...{} keep or drop a block
//   - {if {Name} ...} is the inline form of the same conditional
//   - {function Upper ...} calls a registered function on the following text
//
// Values are looked up in a Scope, an ordered stack of layers where the first
// layer declaring a name wins.
package template
