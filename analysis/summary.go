package analysis

import (
	"fmt"
	"io"
	"maps"
	"slices"
	"strings"

	"github.com/jedib0t/go-pretty/v6/table"
	"github.com/jedib0t/go-pretty/v6/text"
	"github.com/urizennnn/swebench-contributions/classify"
)

// PrintSummary writes the per-repository breakdown followed by the detailed
// record list.
func PrintSummary(w io.Writer, out *Output) {
	if out == nil || len(out.Results) == 0 {
		fmt.Fprintln(w, "No contributions found.")
		return
	}
	fmt.Fprintf(w, "Found %d instances with contributions for %s\n\n", len(out.Results), out.Metadata.Username)

	byRepo := make(map[string][]classify.Record)
	for _, rec := range out.Results {
		byRepo[rec.Repo] = append(byRepo[rec.Repo], rec)
	}

	summary := table.NewWriter()
	summary.SetOutputMirror(w)
	summary.SetStyle(table.StyleLight)
	summary.AppendHeader(table.Row{"Repository", "Contributions", "Types"})
	for _, repo := range slices.Sorted(maps.Keys(byRepo)) {
		recs := byRepo[repo]
		summary.AppendRow(table.Row{repo, len(recs), typeCounts(recs)})
	}
	summary.AppendFooter(table.Row{"Total", len(out.Results), ""})
	summary.SetColumnConfigs([]table.ColumnConfig{{Number: 2, Align: text.AlignRight}})
	summary.Render()

	fmt.Fprintln(w)
	detail := table.NewWriter()
	detail.SetOutputMirror(w)
	detail.SetStyle(table.StyleLight)
	detail.AppendHeader(table.Row{"#", "Repository", "Types", "Title", "URL", "Created", "Dataset"})
	for i, rec := range out.Results {
		detail.AppendRow(table.Row{i + 1, rec.Repo, rec.ContributionTypes.String(), rec.Title, rec.URL, rec.CreatedAt, rec.Dataset})
	}
	detail.SetColumnConfigs([]table.ColumnConfig{{Number: 4, WidthMax: 60}})
	detail.Render()

	if cs := out.Metadata.CacheStats; cs != nil && cs.Enabled {
		fmt.Fprintf(w, "\nCache: %d hits, %d misses (%s)\n", cs.Hits, cs.Misses, cs.HitRate)
	}
}

// typeCounts renders e.g. "author: 2, commenter: 1".
func typeCounts(recs []classify.Record) string {
	var counts [8]int
	var all classify.Set
	for _, rec := range recs {
		all = all.Union(rec.ContributionTypes)
		for _, t := range rec.ContributionTypes.Types() {
			counts[t]++
		}
	}
	parts := make([]string, 0, all.Len())
	for _, t := range all.Types() {
		parts = append(parts, fmt.Sprintf("%s: %d", t, counts[t]))
	}
	return strings.Join(parts, ", ")
}
