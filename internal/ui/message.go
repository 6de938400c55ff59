package ui

import (
	tea "github.com/charmbracelet/bubbletea"
	"github.com/desertthunder/vibes/internal/tasks"
)

// progressUpdateMsg carries one update from the pipeline goroutine.
type progressUpdateMsg struct {
	update tasks.ProgressUpdate
}

// runCompleteMsg is sent once the pipeline returns.
type runCompleteMsg struct {
	result *tasks.CollageResult
	err    error
}

var (
	_ tea.Msg = progressUpdateMsg{}
	_ tea.Msg = runCompleteMsg{}
)
