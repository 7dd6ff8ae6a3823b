// Package cliout renders command-line output: progress lines, run history
// and record listings.
package cliout

import (
	"encoding/json"
	"fmt"
	"io"
	"strconv"
	"time"

	"github.com/charmbracelet/lipgloss"
	"github.com/charmbracelet/lipgloss/table"

	"github.com/starford/indexsync/internal/journal"
	"github.com/starford/indexsync/internal/models"
)

// Styles contains pre-configured lipgloss styles.
type Styles struct {
	Header  lipgloss.Style
	Cell    lipgloss.Style
	OK      lipgloss.Style
	Failed  lipgloss.Style
	Skipped lipgloss.Style
	Muted   lipgloss.Style
	Border  lipgloss.Color
}

// DefaultStyles returns the default palette.
func DefaultStyles() Styles {
	return Styles{
		Header:  lipgloss.NewStyle().Bold(true).Foreground(lipgloss.Color("#7C3AED")).Padding(0, 1),
		Cell:    lipgloss.NewStyle().Padding(0, 1),
		OK:      lipgloss.NewStyle().Foreground(lipgloss.Color("#A6E3A1")),
		Failed:  lipgloss.NewStyle().Foreground(lipgloss.Color("#F38BA8")),
		Skipped: lipgloss.NewStyle().Foreground(lipgloss.Color("#F9E2AF")),
		Muted:   lipgloss.NewStyle().Foreground(lipgloss.Color("#6C7086")),
		Border:  lipgloss.Color("#45475A"),
	}
}

// Printer writes command output to one writer.
type Printer struct {
	w      io.Writer
	styles Styles
}

// NewPrinter creates a Printer with the default styles.
func NewPrinter(w io.Writer) *Printer {
	return &Printer{w: w, styles: DefaultStyles()}
}

// Line prints one progress line. It always reports true so it can be used as
// a progress emitter.
func (p *Printer) Line(line string) bool {
	fmt.Fprintln(p.w, line)
	return true
}

// Error prints a failure line.
func (p *Printer) Error(err error) {
	fmt.Fprintln(p.w, p.styles.Failed.Render("error: "+err.Error()))
}

// Records prints one JSON object per record.
func (p *Printer) Records(recs []models.Record) error {
	enc := json.NewEncoder(p.w)
	for _, r := range recs {
		if err := enc.Encode(r); err != nil {
			return err
		}
	}
	return nil
}

// Runs prints journal entries as a table.
func (p *Printer) Runs(runs []journal.Run) {
	if len(runs) == 0 {
		fmt.Fprintln(p.w, p.styles.Muted.Render("no runs recorded"))
		return
	}
	fmt.Fprintln(p.w, RunsTable(runs, p.styles))
}

// RunsTable renders runs newest first, one row each.
func RunsTable(runs []journal.Run, s Styles) string {
	rows := make([][]string, len(runs))
	for i, r := range runs {
		rows[i] = []string{
			r.StartedAt.Local().Format(time.DateTime),
			r.Index,
			r.Status,
			strconv.Itoa(r.Local),
			strconv.Itoa(r.Deleted),
			strconv.Itoa(r.Upserted),
			shortDigest(r.Digest),
			r.ID,
		}
	}

	t := table.New().
		Border(lipgloss.NormalBorder()).
		BorderStyle(lipgloss.NewStyle().Foreground(s.Border)).
		Headers("STARTED", "INDEX", "STATUS", "LOCAL", "DELETED", "UPSERTED", "DIGEST", "RUN").
		Rows(rows...).
		StyleFunc(func(row, col int) lipgloss.Style {
			if row == table.HeaderRow {
				return s.Header
			}
			if col == 2 && row >= 0 && row < len(runs) {
				return s.Cell.Inherit(statusStyle(runs[row].Status, s))
			}
			return s.Cell
		})
	return t.String()
}

func statusStyle(status string, s Styles) lipgloss.Style {
	switch status {
	case journal.StatusOK:
		return s.OK
	case journal.StatusFailed:
		return s.Failed
	case journal.StatusSkipped:
		return s.Skipped
	default:
		return s.Muted
	}
}

func shortDigest(d string) string {
	if len(d) > 12 {
		return d[:12]
	}
	return d
}
