package report

import (
	"fmt"
	"io"
	"strings"
)

// Markdown writes r as GitHub-flavoured markdown tables.
func Markdown(w io.Writer, r *BenchmarkReport) error {
	fmt.Fprintln(w, "## Query Shape Benchmark")
	fmt.Fprintln(w)
	fmt.Fprintf(w, "- Run: `%s`\n", r.RunID)
	fmt.Fprintf(w, "- Engine: %s on %s\n", r.Engine, r.Host)
	fmt.Fprintf(w, "- Baseline: `%s`, ranked by %s\n", r.BaselineID, r.Statistic)
	fmt.Fprintf(w, "- Dataset: %d rows, %d iterations, %d warmup\n", r.Rows, r.Iterations, r.Warmup)
	fmt.Fprintf(w, "- Fingerprint: `%s`\n", r.Fingerprint)
	fmt.Fprintln(w)

	writeMarkdownTable(w, rankingHeaders, func(emit func([]string)) {
		for _, rv := range r.Variants {
			emit(rankingRow(rv))
		}
	})

	if len(r.Validation) > 0 {
		fmt.Fprintln(w)
		fmt.Fprintln(w, "### Equivalence Validation")
		fmt.Fprintln(w)
		writeMarkdownTable(w, validationHeaders, func(emit func([]string)) {
			for _, rec := range r.Validation {
				emit(validationRow(rec))
			}
		})
	}

	if len(r.Warnings) > 0 {
		fmt.Fprintln(w)
		fmt.Fprintln(w, "### Warnings")
		fmt.Fprintln(w)
		for _, msg := range r.Warnings {
			fmt.Fprintf(w, "- %s\n", msg)
		}
	}

	if len(r.SQL) > 0 {
		fmt.Fprintln(w)
		fmt.Fprintln(w, "### Statements")
		for _, rv := range r.Variants {
			fmt.Fprintln(w)
			fmt.Fprintf(w, "**%s**\n\n```sql\n", rv.VariantID)
			for _, stmt := range r.SQL[rv.VariantID] {
				fmt.Fprintf(w, "%s;\n", stmt)
			}
			fmt.Fprintln(w, "```")
		}
	}
	return nil
}

func writeMarkdownTable(w io.Writer, headers []string, rows func(emit func([]string))) {
	fmt.Fprintf(w, "| %s |\n", strings.Join(headers, " | "))

	sep := make([]string, len(headers))
	for i, h := range headers {
		sep[i] = strings.Repeat("-", len(h))
	}
	fmt.Fprintf(w, "|%s|\n", strings.Join(sep, "|"))

	rows(func(cells []string) {
		escaped := make([]string, len(cells))
		for i, c := range cells {
			escaped[i] = strings.ReplaceAll(c, "|", "\\|")
		}
		fmt.Fprintf(w, "| %s |\n", strings.Join(escaped, " | "))
	})
}
