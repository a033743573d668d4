package tui

import (
	"strconv"
	"time"

	"mailsweep/internal/model"

	"github.com/charmbracelet/bubbles/table"
	"github.com/charmbracelet/lipgloss"
)

var footerStyle = lipgloss.NewStyle().
	Foreground(lipgloss.Color("241")).
	PaddingTop(1)

func sendersFooter() string {
	return footerStyle.Render("enter: emails  e: archive  #: trash  u: unsubscribe  s: rescan  esc: menu  q: quit")
}

// newSenderTable builds the per-sender overview table. Column widths are
// recomputed on every window resize.
func newSenderTable(width, height int) table.Model {
	t := table.New(
		table.WithColumns(senderColumns(width)),
		table.WithFocused(true),
		table.WithHeight(height),
	)
	st := table.DefaultStyles()
	st.Header = st.Header.Bold(true).Foreground(lipgloss.Color("39"))
	st.Selected = st.Selected.Foreground(lipgloss.Color("229")).Background(lipgloss.Color("57"))
	t.SetStyles(st)
	return t
}

func senderColumns(width int) []table.Column {
	subject := width - 72
	if subject < 12 {
		subject = 12
	}
	return []table.Column{
		{Title: "Sender", Width: 34},
		{Title: "Count", Width: 5},
		{Title: "Newest", Width: 12},
		{Title: "Subject", Width: subject},
		{Title: "Att", Width: 3},
		{Title: "U", Width: 1},
	}
}

func senderRows(groups []model.EmailGroup) []table.Row {
	rows := make([]table.Row, len(groups))
	for i, g := range groups {
		att := ""
		if g.TotalAttachments > 0 {
			att = strconv.Itoa(g.TotalAttachments)
		}
		unsub := ""
		if g.HasUnsubscribe {
			unsub = "@"
		}
		rows[i] = table.Row{
			senderLabel(g),
			strconv.Itoa(g.Count),
			shortDate(g.NewestDate),
			g.NewestSubject,
			att,
			unsub,
		}
	}
	return rows
}

func senderLabel(g model.EmailGroup) string {
	if g.SenderName != "" && g.SenderName != g.SenderEmail {
		return g.SenderName + " <" + g.SenderEmail + ">"
	}
	return g.SenderEmail
}

func shortDate(t time.Time) string {
	if t.IsZero() {
		return ""
	}
	return t.Format("Jan 2, 2006")
}
