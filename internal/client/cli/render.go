package cli

import (
	"bytes"
	"fmt"
	"io"
	"strconv"
	"strings"
	"text/tabwriter"
	"time"

	"github.com/charmbracelet/lipgloss"
	"github.com/dmitrijs2005/fileflow/internal/client/models"
	"github.com/dustin/go-humanize"
)

// palette holds the styles used by the table and detail renderers.
// Colors are chosen per the darkMode preference.
type palette struct {
	header lipgloss.Style
	label  lipgloss.Style
	accent lipgloss.Style
	muted  lipgloss.Style
	warn   lipgloss.Style
}

func newPalette(dark bool) palette {
	accent, muted, warn := lipgloss.Color("25"), lipgloss.Color("243"), lipgloss.Color("160")
	if dark {
		accent, muted, warn = lipgloss.Color("117"), lipgloss.Color("246"), lipgloss.Color("210")
	}
	return palette{
		header: lipgloss.NewStyle().Bold(true).Foreground(accent),
		label:  lipgloss.NewStyle().Bold(true),
		accent: lipgloss.NewStyle().Foreground(accent),
		muted:  lipgloss.NewStyle().Foreground(muted),
		warn:   lipgloss.NewStyle().Foreground(warn),
	}
}

func uploadedAt(ts models.Timestamp, now time.Time) string {
	if ts.IsZero() {
		return "-"
	}
	return humanize.RelTime(ts.Time, now, "ago", "from now")
}

// renderTable aligns the cells first and styles the header line afterwards,
// so escape sequences do not count towards column widths.
func renderTable(w io.Writer, p palette, header []string, rows [][]string) {
	var buf bytes.Buffer
	tw := tabwriter.NewWriter(&buf, 0, 0, 2, ' ', 0)
	fmt.Fprintln(tw, strings.Join(header, "\t"))
	for _, r := range rows {
		fmt.Fprintln(tw, strings.Join(r, "\t"))
	}
	_ = tw.Flush()

	head, rest, _ := strings.Cut(buf.String(), "\n")
	fmt.Fprintln(w, p.header.Render(strings.TrimRight(head, " ")))
	fmt.Fprint(w, rest)
}

func renderDocuments(w io.Writer, p palette, docs []models.Document, now time.Time) {
	if len(docs) == 0 {
		fmt.Fprintln(w, p.muted.Render("No documents."))
		return
	}

	rows := make([][]string, 0, len(docs))
	for _, d := range docs {
		rows = append(rows, []string{strconv.FormatInt(d.ID, 10), d.Title, d.Kind(), d.CategoryName, uploadedAt(d.UploadedAt, now)})
	}
	renderTable(w, p, []string{"ID", "TITLE", "KIND", "CATEGORY", "UPLOADED"}, rows)
}

// renderCategories prints one row per category with its document count.
func renderCategories(w io.Writer, p palette, cats []models.Category, docs []models.Document) {
	if len(cats) == 0 {
		fmt.Fprintln(w, p.muted.Render("No categories."))
		return
	}

	counts := make(map[int64]int, len(cats))
	for _, d := range docs {
		counts[d.CategoryID]++
	}

	rows := make([][]string, 0, len(cats))
	for _, c := range cats {
		rows = append(rows, []string{strconv.FormatInt(c.ID, 10), c.Name, strconv.Itoa(counts[c.ID])})
	}
	renderTable(w, p, []string{"ID", "NAME", "DOCUMENTS"}, rows)
}

func renderDocument(w io.Writer, p palette, d models.Document, now time.Time) {
	row := func(label, value string) {
		if value == "" {
			value = p.muted.Render("-")
		}
		fmt.Fprintf(w, "%s %s\n", p.label.Render(fmt.Sprintf("%-10s", label+":")), value)
	}

	row("ID", strconv.FormatInt(d.ID, 10))
	row("Title", d.Title)
	row("Type", d.ContentType)
	row("Category", d.CategoryName)
	if d.UploadedAt.IsZero() {
		row("Uploaded", "")
	} else {
		row("Uploaded", d.UploadedAt.Local().Format(time.DateTime)+" ("+uploadedAt(d.UploadedAt, now)+")")
	}
	row("Path", d.FilePath)
}
