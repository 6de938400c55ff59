// Package ui renders collage progress in the terminal.
//
// Two front ends consume the same [tasks.ProgressUpdate] stream:
//  1. [Printer] : plain styled lines, one per update, for scripts and non-interactive shells
//  2. [Model] : a bubbletea program with a spinner for the current phase and a checklist of finished phases
//
// The (view) [Model] implements bubbletea/Elm's standard Init/Update/View pattern. The pipeline runs in its own
// goroutine and progress flows through a channel, so rendering never blocks the work.
//
// Styles come from a single lipgloss [Palette].
package ui
