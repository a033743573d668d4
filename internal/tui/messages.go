package tui

import (
	"mailsweep/internal/export"
	"mailsweep/internal/gmail"
	"mailsweep/internal/model"
)

// Async message types for Bubble Tea commands.

type scanDoneMsg struct {
	res *gmail.ScanResult
	err error
}

type downloadDoneMsg struct {
	res *export.Result
	err error
}

type actionDoneMsg struct {
	action string // "Archive" or "Trash"
	count  int
	err    error
}

type unsubscribeMsg struct {
	err error
}

type statsMsg model.ExportStats

type statusMsg string
