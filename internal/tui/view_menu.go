package tui

import (
	"fmt"
	"sort"
	"strings"

	"mailsweep/internal/export"
	"mailsweep/internal/model"

	"github.com/charmbracelet/lipgloss"
)

var headerStyle = lipgloss.NewStyle().
	Bold(true).
	Foreground(lipgloss.Color("39")).
	PaddingBottom(1)

func menuView(account string, stats model.ExportStats) string {
	var b strings.Builder
	title := "Mailsweep"
	if account != "" {
		title = fmt.Sprintf("Mailsweep (%s)", account)
	}
	b.WriteString(headerStyle.Render(title))
	b.WriteString("\n")
	if stats.Files > 0 {
		b.WriteString(fmt.Sprintf("Saved so far: %d files from %d senders, %s\n\n",
			stats.Files, stats.Senders, humanBytes(stats.Bytes)))
	}
	b.WriteString("  s  scan inbox by sender\n")
	b.WriteString("  d  download recent attachments\n")
	b.WriteString("  q  quit\n")
	return b.String()
}

func summaryView(res *export.Result) string {
	var b strings.Builder
	b.WriteString(headerStyle.Render("Download summary"))
	b.WriteString("\n")
	if res.Saved == 0 && len(res.Failures) == 0 {
		b.WriteString("No attachments found.\n")
		return b.String()
	}
	b.WriteString(fmt.Sprintf("Saved %d files.\n\n", res.Saved))
	senders := make([]string, 0, len(res.BySender))
	for s := range res.BySender {
		senders = append(senders, s)
	}
	sort.Strings(senders)
	for _, s := range senders {
		sum := res.BySender[s]
		b.WriteString(fmt.Sprintf("  %-40s %3d files %10s\n", s, sum.Files, humanBytes(sum.Bytes)))
	}
	if len(res.Failures) > 0 {
		b.WriteString(fmt.Sprintf("\nFailed (%d):\n", len(res.Failures)))
		for _, f := range res.Failures {
			b.WriteString(fmt.Sprintf("  %s %s: %v\n", f.Sender, f.Filename, f.Err))
		}
	}
	return b.String()
}

func summaryFooter() string {
	return footerStyle.Render("enter: menu  q: quit")
}

func humanBytes(n int64) string {
	const unit = 1024
	if n < unit {
		return fmt.Sprintf("%d B", n)
	}
	div, exp := int64(unit), 0
	for m := n / unit; m >= unit; m /= unit {
		div *= unit
		exp++
	}
	return fmt.Sprintf("%.1f %cB", float64(n)/float64(div), "KMGTPE"[exp])
}
