package tui

import (
	"context"
	"fmt"
	"strings"
	"time"

	"mailbucket/internal/bucket"
	"mailbucket/internal/model"
	"mailbucket/internal/progress"

	"github.com/charmbracelet/bubbles/list"
	"github.com/charmbracelet/bubbles/spinner"
	"github.com/charmbracelet/bubbles/viewport"
	tea "github.com/charmbracelet/bubbletea"
)

type viewState int

const (
	viewRunning viewState = iota // fetch in progress
	viewBuckets                  // day buckets of the finished run
	viewRecords                  // records within a bucket
	viewBody                     // single record body
)

// RunFunc performs the fetch. It must report progress through onProgress and
// return once the results file has been written (or the run failed).
type RunFunc func(ctx context.Context, onProgress func(model.FetchProgress)) (bucket.Result, model.Summary, error)

type AppModel struct {
	// Core state
	run    RunFunc
	ctx    context.Context
	cancel context.CancelFunc
	Err    error
	status string

	// Run state
	view     viewState
	progress model.FetchProgress
	started  bool
	result   bucket.Result
	summary  model.Summary

	selectedBucket *bucket.Bucket
	selectedRecord *model.MessageRecord

	// Sub-models
	spinner      spinner.Model
	bucketsList  list.Model
	recordsList  list.Model
	bodyViewport viewport.Model

	// Layout
	width, height int

	// Program reference for sending messages from goroutines
	program *tea.Program
}

// SetProgram stores a reference to the tea.Program so the fetch goroutine can
// send progress messages back to the Update loop.
func (m *AppModel) SetProgram(p *tea.Program) {
	m.program = p
}

func NewAppModel(ctx context.Context, run RunFunc) AppModel {
	ctx, cancel := context.WithCancel(ctx)

	sp := spinner.New()
	sp.Spinner = spinner.Dot
	sp.Style = headerStyle.PaddingBottom(0)

	bl := list.New([]list.Item{}, list.NewDefaultDelegate(), 0, 0)
	// Remove esc from the list's built-in Quit binding so it doesn't exit on home
	bl.KeyMap.Quit.SetKeys("q")

	return AppModel{
		run:          run,
		ctx:          ctx,
		cancel:       cancel,
		status:       progress.Calculating,
		view:         viewRunning,
		spinner:      sp,
		bucketsList:  bl,
		recordsList:  list.New([]list.Item{}, list.NewDefaultDelegate(), 0, 0),
		bodyViewport: viewport.New(0, 0),
	}
}

// Summary returns the summary of the finished run.
func (m *AppModel) Summary() model.Summary { return m.summary }

// Finished reports whether the run completed before the program exited.
func (m *AppModel) Finished() bool { return m.view != viewRunning }

func (m *AppModel) Init() tea.Cmd {
	return tea.Batch(m.spinner.Tick, m.runCmd())
}

func (m *AppModel) runCmd() tea.Cmd {
	return func() tea.Msg {
		onProgress := func(p model.FetchProgress) {
			if m.program != nil {
				m.program.Send(progressMsg(p))
			}
		}
		res, summary, err := m.run(m.ctx, onProgress)
		return runCompleteMsg{result: res, summary: summary, err: err}
	}
}

func (m *AppModel) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	switch msg := msg.(type) {
	case tea.WindowSizeMsg:
		m.width = msg.Width
		m.height = msg.Height
		listH := msg.Height - 4 // room for footer
		m.bucketsList.SetSize(msg.Width, listH)
		m.recordsList.SetSize(msg.Width, listH)
		m.bodyViewport.Width = msg.Width
		m.bodyViewport.Height = msg.Height - 6 // room for header + footer
		return m, nil

	case tea.KeyMsg:
		return m.handleKey(msg)

	case spinner.TickMsg:
		if m.view != viewRunning {
			return m, nil
		}
		var cmd tea.Cmd
		m.spinner, cmd = m.spinner.Update(msg)
		return m, cmd

	case progressMsg:
		m.started = true
		m.progress = model.FetchProgress(msg)
		m.status = progressLine(m.progress)
		return m, nil

	case runCompleteMsg:
		m.cancel()
		if msg.err != nil {
			m.Err = msg.err
			m.status = "Fetch failed!"
			return m, tea.Quit
		}
		m.result = msg.result
		m.summary = msg.summary
		m.bucketsList.SetItems(bucketsToItems(m.result))
		m.bucketsList.Title = fmt.Sprintf("%s (%d days, %d emails)", m.summary.Output, len(m.result), m.result.Records())
		m.view = viewBuckets
		m.status = fmt.Sprintf("Processed %d, skipped %d", m.summary.Processed, m.summary.Skipped)
		return m, clearStatusAfter(3 * time.Second)

	case statusMsg:
		if string(msg) == "" {
			m.status = ""
		}
		return m, nil
	}

	// Delegate to active sub-model
	var cmd tea.Cmd
	switch m.view {
	case viewBuckets:
		m.bucketsList, cmd = m.bucketsList.Update(msg)
	case viewRecords:
		m.recordsList, cmd = m.recordsList.Update(msg)
	case viewBody:
		m.bodyViewport, cmd = m.bodyViewport.Update(msg)
	}
	return m, cmd
}

func (m *AppModel) handleKey(msg tea.KeyMsg) (tea.Model, tea.Cmd) {
	key := msg.String()

	// Global keys
	switch key {
	case "ctrl+c":
		m.cancel()
		return m, tea.Quit
	}

	switch m.view {
	case viewRunning:
		if key == "q" {
			m.cancel()
			return m, tea.Quit
		}
		return m, nil

	case viewBuckets:
		// When the list is filtering, let it handle all keys except ctrl+c
		if m.bucketsList.FilterState() == list.Filtering {
			var cmd tea.Cmd
			m.bucketsList, cmd = m.bucketsList.Update(msg)
			return m, cmd
		}
		switch key {
		case "q":
			return m, tea.Quit
		case "enter":
			return m.enterBucket()
		}
		var cmd tea.Cmd
		m.bucketsList, cmd = m.bucketsList.Update(msg)
		return m, cmd

	case viewRecords:
		if m.recordsList.FilterState() == list.Filtering {
			var cmd tea.Cmd
			m.recordsList, cmd = m.recordsList.Update(msg)
			return m, cmd
		}
		switch key {
		case "q":
			return m, tea.Quit
		case "esc":
			m.view = viewBuckets
			m.selectedBucket = nil
			return m, nil
		case "enter":
			return m.enterRecord()
		}
		var cmd tea.Cmd
		m.recordsList, cmd = m.recordsList.Update(msg)
		return m, cmd

	case viewBody:
		switch key {
		case "q":
			return m, tea.Quit
		case "esc":
			m.view = viewRecords
			m.selectedRecord = nil
			return m, nil
		}
		var cmd tea.Cmd
		m.bodyViewport, cmd = m.bodyViewport.Update(msg)
		return m, cmd
	}

	return m, nil
}

func (m *AppModel) enterBucket() (tea.Model, tea.Cmd) {
	selected := m.bucketsList.SelectedItem()
	if selected == nil {
		return m, nil
	}
	b := selected.(bucketItem).Bucket
	m.selectedBucket = &b
	m.recordsList.SetItems(recordsToItems(b.Records))
	m.recordsList.Title = fmt.Sprintf("%s (%d emails)", b.Key, len(b.Records))
	m.view = viewRecords
	return m, nil
}

func (m *AppModel) enterRecord() (tea.Model, tea.Cmd) {
	selected := m.recordsList.SelectedItem()
	if selected == nil {
		return m, nil
	}
	rec := selected.(recordItem).MessageRecord
	m.selectedRecord = &rec
	m.bodyViewport.SetContent(bodyHeader(rec) + "\n\n" + rec.Body)
	m.bodyViewport.GotoTop()
	m.view = viewBody
	return m, nil
}

func clearStatusAfter(d time.Duration) tea.Cmd {
	return tea.Tick(d, func(time.Time) tea.Msg {
		return statusMsg("")
	})
}

// progressLine renders a progress snapshot on one line.
func progressLine(p model.FetchProgress) string {
	line := fmt.Sprintf("Processed %d / %d  |  %s  |  Remaining %d", p.Processed, p.Total, progress.Speed(p), p.Remaining)
	if p.Calculating {
		return line + "  |  ETA " + progress.Calculating
	}
	return fmt.Sprintf("%s  |  ETA %s (%s)", line, p.ETA, p.RemainingTime)
}

// View renders the appropriate view based on current state.
func (m *AppModel) View() string {
	// Error state
	if m.Err != nil {
		return "Error: " + m.Err.Error() + "\n"
	}

	if m.view == viewRunning {
		title := "Listing messages..."
		if m.started {
			title = "Fetching messages..."
		}
		return m.spinner.View() + " " + title + "\n\n" + m.status + "\n" + runningFooter()
	}

	var b strings.Builder

	switch m.view {
	case viewBuckets:
		b.WriteString(m.bucketsList.View())
		b.WriteString("\n")
		b.WriteString(bucketsFooter())
	case viewRecords:
		b.WriteString(m.recordsList.View())
		b.WriteString("\n")
		b.WriteString(recordsFooter())
	case viewBody:
		b.WriteString(m.bodyViewport.View())
		b.WriteString("\n")
		b.WriteString(bodyFooter())
	}

	if m.status != "" {
		b.WriteString("\n")
		b.WriteString(m.status)
	}

	return b.String()
}

// shortDate formats a record timestamp for list rows.
func shortDate(ts *time.Time) string {
	if ts == nil {
		return ""
	}
	return ts.Format("Jan 2, 2006 15:04")
}
