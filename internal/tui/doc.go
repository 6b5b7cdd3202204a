// Package tui provides terminal output for moche.
//
// It handles:
//   - Levelled console and file logging (Splog)
//   - Confirmation prompts gated by the input level (using survey)
//   - Download progress bars (using bubbletea)
//   - Terminal colors (using lipgloss)
package tui
