package tui

import (
	"fmt"

	"mailbucket/internal/bucket"

	"github.com/charmbracelet/bubbles/list"
	"github.com/charmbracelet/lipgloss"
)

// bucketItem wraps a day bucket to customize list display.
type bucketItem struct {
	bucket.Bucket
}

func (b bucketItem) FilterValue() string { return b.Key }
func (b bucketItem) Title() string       { return fmt.Sprintf("%s (%d)", b.Key, len(b.Records)) }
func (b bucketItem) Description() string {
	if len(b.Records) == 0 {
		return ""
	}
	return b.Records[0].Subject
}

var footerStyle = lipgloss.NewStyle().
	Foreground(lipgloss.Color("241")).
	PaddingTop(1)

func runningFooter() string {
	return footerStyle.Render("q: cancel")
}

func bucketsFooter() string {
	return footerStyle.Render("enter: open  /: filter  q: quit")
}

func bucketsToItems(r bucket.Result) []list.Item {
	items := make([]list.Item, len(r))
	for i, b := range r {
		items[i] = bucketItem{b}
	}
	return items
}
