package report

import (
	"fmt"
	"io"
	"strconv"
	"strings"

	"mailbucket/internal/model"
	"mailbucket/internal/progress"

	"github.com/charmbracelet/lipgloss"
	"github.com/charmbracelet/lipgloss/table"
	"github.com/samber/lo"
)

var (
	titleStyle  = lipgloss.NewStyle().Bold(true).Foreground(lipgloss.Color("39"))
	headerStyle = lipgloss.NewStyle().Bold(true).Padding(0, 1)
	cellStyle   = lipgloss.NewStyle().Padding(0, 1)
	mutedStyle  = lipgloss.NewStyle().Foreground(lipgloss.Color("241"))
)

func newTable(headers ...string) *table.Table {
	return table.New().
		Border(lipgloss.NormalBorder()).
		BorderStyle(mutedStyle).
		StyleFunc(func(row, _ int) lipgloss.Style {
			if row == table.HeaderRow {
				return headerStyle
			}
			return cellStyle
		}).
		Headers(headers...)
}

// WriteCounts prints the series chosen by Granularity(MaxPoints). When g is
// non-empty that series is printed instead.
func WriteCounts(w io.Writer, c Counts, g Granularity) error {
	if g == "" {
		var ok bool
		g, ok = c.Granularity(MaxPoints)
		if !ok {
			_, err := fmt.Fprintf(w, "%d messages match %q; too many years to tabulate.\n", c.Total, c.Phrase)
			return err
		}
	}
	pts := c.Series[g]
	title := fmt.Sprintf("Messages matching %q per %s", c.Phrase, g)
	if len(pts) == 0 {
		_, err := fmt.Fprintln(w, titleStyle.Render(title)+"\n"+mutedStyle.Render("no matching messages"))
		return err
	}
	t := newTable(capitalize(string(g)), "Count").
		Rows(lo.Map(pts, func(p Point, _ int) []string {
			return []string{p.Label, strconv.Itoa(p.Count)}
		})...)
	footer := fmt.Sprintf("total %d", c.Total)
	if c.Undated > 0 {
		footer += fmt.Sprintf(", %d without a date", c.Undated)
	}
	_, err := fmt.Fprintln(w, titleStyle.Render(title)+"\n"+t.String()+"\n"+mutedStyle.Render(footer))
	return err
}

// WriteSenders prints a ranked sender table. byDomain only changes the
// headings.
func WriteSenders(w io.Writer, senders []SenderCount, byDomain bool) error {
	if len(senders) == 0 {
		return nil
	}
	title, column := "Top senders", "Sender"
	if byDomain {
		title, column = "Top sender domains", "Domain"
	}
	t := newTable("#", column, "Messages").
		Rows(lo.Map(senders, func(s SenderCount, i int) []string {
			return []string{strconv.Itoa(i + 1), s.Sender, strconv.Itoa(s.Count)}
		})...)
	_, err := fmt.Fprintln(w, titleStyle.Render(title)+"\n"+t.String())
	return err
}

// WriteHistory prints archived runs, newest first, followed by the number of
// messages stored across all of them.
func WriteHistory(w io.Writer, runs []model.Summary, archived int) error {
	if len(runs) == 0 {
		_, err := fmt.Fprintln(w, mutedStyle.Render("no archived runs"))
		return err
	}
	t := newTable("Started", "Session", "Listed", "Processed", "Skipped", "Days", "Took", "Output").
		Rows(lo.Map(runs, func(s model.Summary, _ int) []string {
			return []string{
				s.Started.Local().Format("2006-01-02 15:04:05"),
				shortID(s.SessionID),
				strconv.Itoa(s.Listed),
				strconv.Itoa(s.Processed),
				strconv.Itoa(s.Skipped),
				strconv.Itoa(s.Buckets),
				progress.FormatDuration(s.Finished.Sub(s.Started).Seconds()),
				s.Output,
			}
		})...)
	footer := fmt.Sprintf("%d messages archived", archived)
	_, err := fmt.Fprintln(w, titleStyle.Render("Run history")+"\n"+t.String()+"\n"+mutedStyle.Render(footer))
	return err
}

func shortID(id string) string {
	if len(id) > 8 {
		return id[:8]
	}
	return id
}

func capitalize(s string) string {
	if s == "" {
		return s
	}
	return strings.ToUpper(s[:1]) + s[1:]
}
