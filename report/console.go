package report

import (
	"fmt"
	"io"
	"time"

	"github.com/charmbracelet/lipgloss"
	"github.com/charmbracelet/lipgloss/table"

	"github.com/maxpert/shapebench/equivalence"
	"github.com/maxpert/shapebench/rank"
)

var (
	colorAccent  = lipgloss.Color("#20B9B4")
	colorBorder  = lipgloss.Color("#16858E")
	colorFaster  = lipgloss.Color("#2CD7C7")
	colorSlower  = lipgloss.Color("#E74C3C")
	colorWarning = lipgloss.Color("#F4D03F")
	colorMuted   = lipgloss.Color("#5C7A84")
)

// Console writes r as terminal tables. Colors are only emitted when w is
// a terminal.
func Console(w io.Writer, r *BenchmarkReport) error {
	re := lipgloss.NewRenderer(w)
	title := re.NewStyle().Bold(true).Foreground(colorAccent)
	muted := re.NewStyle().Foreground(colorMuted)
	warn := re.NewStyle().Foreground(colorWarning)

	fmt.Fprintln(w, title.Render("Query shape benchmark"))
	fmt.Fprintln(w, muted.Render(fmt.Sprintf("run %s  engine %s  host %s  baseline %s  statistic %s",
		r.RunID, r.Engine, r.Host, r.BaselineID, r.Statistic)))
	fmt.Fprintln(w, muted.Render(fmt.Sprintf("%d rows, %d iterations (+%d warmup), fingerprint %s, took %s",
		r.Rows, r.Iterations, r.Warmup, r.Fingerprint, r.Duration.Round(time.Millisecond))))
	fmt.Fprintln(w)

	rows := make([][]string, 0, len(r.Variants))
	for _, rv := range r.Variants {
		rows = append(rows, rankingRow(rv))
	}
	verdictCol := indexOf(rankingHeaders, "Verdict")
	improvementCol := indexOf(rankingHeaders, "Improvement")

	ranking := table.New().
		Border(lipgloss.RoundedBorder()).
		BorderStyle(re.NewStyle().Foreground(colorBorder)).
		Headers(rankingHeaders...).
		Rows(rows...).
		StyleFunc(func(row, col int) lipgloss.Style {
			cell := re.NewStyle().Padding(0, 1)
			if row == table.HeaderRow {
				return cell.Bold(true).Foreground(colorAccent)
			}
			if row < 0 || row >= len(r.Variants) || (col != verdictCol && col != improvementCol) {
				return cell
			}
			switch r.Variants[row].Verdict {
			case rank.VerdictFaster:
				return cell.Foreground(colorFaster)
			case rank.VerdictSlower:
				return cell.Foreground(colorSlower)
			case rank.VerdictUnavailable, rank.VerdictUnknown:
				return cell.Foreground(colorWarning)
			}
			return cell
		})
	fmt.Fprintln(w, ranking.String())

	if len(r.Validation) > 0 {
		fmt.Fprintln(w)
		renderValidation(w, re, r.Validation)
	}

	if len(r.Warnings) > 0 {
		fmt.Fprintln(w)
		fmt.Fprintln(w, warn.Render("Warnings"))
		for _, msg := range r.Warnings {
			fmt.Fprintln(w, warn.Render("  ! "+msg))
		}
	}

	if len(r.SQL) > 0 {
		fmt.Fprintln(w)
		fmt.Fprintln(w, title.Render("Statements"))
		for _, rv := range r.Variants {
			for _, stmt := range r.SQL[rv.VariantID] {
				fmt.Fprintf(w, "%s: %s\n", rv.VariantID, stmt)
			}
		}
	}

	if winner, ok := r.Winner(); ok {
		fmt.Fprintln(w)
		fmt.Fprintln(w, title.Render(fmt.Sprintf("Fastest: %s (%s)", displayName(winner), formatMs(winner.Value))))
	}
	return nil
}

// ConsoleValidation writes only the equivalence validation results.
func ConsoleValidation(w io.Writer, records []equivalence.Record, warnings []string) error {
	re := lipgloss.NewRenderer(w)
	renderValidation(w, re, records)
	if len(warnings) > 0 {
		warn := re.NewStyle().Foreground(colorWarning)
		fmt.Fprintln(w)
		for _, msg := range warnings {
			fmt.Fprintln(w, warn.Render("  ! "+msg))
		}
	}
	return nil
}

func renderValidation(w io.Writer, re *lipgloss.Renderer, records []equivalence.Record) {
	title := re.NewStyle().Bold(true).Foreground(colorAccent)
	rows := make([][]string, 0, len(records))
	for _, rec := range records {
		rows = append(rows, validationRow(rec))
	}
	validation := table.New().
		Border(lipgloss.RoundedBorder()).
		BorderStyle(re.NewStyle().Foreground(colorBorder)).
		Headers(validationHeaders...).
		Rows(rows...).
		StyleFunc(func(row, col int) lipgloss.Style {
			cell := re.NewStyle().Padding(0, 1)
			if row == table.HeaderRow {
				return cell.Bold(true).Foreground(colorAccent)
			}
			if row >= 0 && row < len(records) && col == len(validationHeaders)-1 && !records[row].MatchesBaseline {
				return cell.Foreground(colorSlower)
			}
			return cell
		})
	fmt.Fprintln(w, title.Render("Equivalence validation"))
	fmt.Fprintln(w, validation.String())
}

func indexOf(list []string, s string) int {
	for i, item := range list {
		if item == s {
			return i
		}
	}
	return -1
}
