package tui

import (
	"fmt"

	"mailbucket/internal/model"

	"github.com/charmbracelet/bubbles/list"
)

// recordItem wraps MessageRecord for the list display.
type recordItem struct {
	model.MessageRecord
}

func (r recordItem) FilterValue() string { return r.Subject + " " + r.From }
func (r recordItem) Title() string       { return r.Subject }
func (r recordItem) Description() string {
	desc := fmt.Sprintf("From: %s", r.From)
	if r.Date != nil {
		desc += "  Date: " + shortDate(r.Date)
	}
	if n := len(r.Attachments); n > 0 {
		desc += fmt.Sprintf("  📎 %d", n)
	}
	return desc
}

func recordsFooter() string {
	return footerStyle.Render("enter: view body  esc: back  q: quit")
}

// recordsToItems keeps the bucket's fetch order.
func recordsToItems(recs []model.MessageRecord) []list.Item {
	items := make([]list.Item, len(recs))
	for i, r := range recs {
		items[i] = recordItem{r}
	}
	return items
}
