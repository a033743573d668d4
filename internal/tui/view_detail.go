package tui

import (
	"sort"

	"mailsweep/internal/model"

	"github.com/charmbracelet/bubbles/list"
)

type emailItem struct {
	model.IndividualEmail
}

func (e emailItem) FilterValue() string { return e.Subject }

func (e emailItem) Title() string {
	if e.Subject == "" {
		return "(no subject)"
	}
	return e.Subject
}

func (e emailItem) Description() string {
	return e.Date.Format("Jan 2, 2006 15:04")
}

func detailFooter() string {
	return footerStyle.Render("esc: back  q: quit")
}

// sortedEmailItems returns a group's emails newest first as list items.
func sortedEmailItems(emails []model.IndividualEmail) []list.Item {
	sorted := make([]model.IndividualEmail, len(emails))
	copy(sorted, emails)
	sort.SliceStable(sorted, func(i, j int) bool {
		return sorted[i].Date.After(sorted[j].Date)
	})
	items := make([]list.Item, len(sorted))
	for i, e := range sorted {
		items[i] = emailItem{e}
	}
	return items
}
