package tui

import (
	"fmt"
	"strings"

	"mailbucket/internal/model"

	"github.com/charmbracelet/lipgloss"
)

var headerStyle = lipgloss.NewStyle().
	Bold(true).
	Foreground(lipgloss.Color("39")).
	PaddingBottom(1)

func bodyHeader(rec model.MessageRecord) string {
	date := shortDate(rec.Date)
	if date == "" {
		date = "unknown"
	}
	lines := fmt.Sprintf("From: %s\nTo: %s\nSubject: %s\nDate: %s", rec.From, rec.To, rec.Subject, date)
	if len(rec.Attachments) > 0 {
		lines += "\nAttachments: " + strings.Join(rec.Attachments, ", ")
	}
	return headerStyle.Render(lines)
}

func bodyFooter() string {
	return footerStyle.Render("esc: back  q: quit")
}
