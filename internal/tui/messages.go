package tui

import (
	"mailbucket/internal/bucket"
	"mailbucket/internal/model"
)

// Async message types for Bubble Tea commands.

type progressMsg model.FetchProgress

type runCompleteMsg struct {
	result  bucket.Result
	summary model.Summary
	err     error
}

type statusMsg string
