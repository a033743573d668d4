package gmail

import (
	"fmt"
	"sort"
	"strings"

	"mailsweep/internal/model"
	"mailsweep/internal/util"

	gmailv1 "google.golang.org/api/gmail/v1"
)

// GroupBySender folds message records into per-sender groups and reports how
// many records were skipped for an unparseable From or Date. The grouping key
// is the lowercased sender address; the stored SenderEmail keeps the casing
// of the first message seen for that sender.
func GroupBySender(msgs []*gmailv1.Message, report ReportFunc) ([]model.EmailGroup, int) {
	groups := make(map[string]*model.EmailGroup)
	skipped := 0
	for i, m := range msgs {
		if !accumulate(groups, m) {
			skipped++
		}
		if p := i + 1; p%100 == 0 || p == len(msgs) {
			report.Send(Progress{
				Status: fmt.Sprintf("Analyzing emails... (%d/%d)", p, len(msgs)),
				Done:   p,
				Total:  len(msgs),
			})
		}
	}
	out := make([]model.EmailGroup, 0, len(groups))
	for _, g := range groups {
		out = append(out, *g)
	}
	return out, skipped
}

// accumulate folds one message into its sender group, creating the group on
// first contact. It reports false when the message cannot be attributed.
func accumulate(groups map[string]*model.EmailGroup, m *gmailv1.Message) bool {
	if m == nil || m.Payload == nil {
		return false
	}
	h := headerMap(m.Payload.Headers)
	name, email, ok := util.ParseSender(h["from"])
	if !ok {
		return false
	}
	date, err := util.ParseDate(h["date"])
	if err != nil {
		return false
	}
	subject := h["subject"]

	key := strings.ToLower(email)
	g, ok := groups[key]
	if !ok {
		g = &model.EmailGroup{
			SenderName:    name,
			SenderEmail:   email,
			OldestDate:    date,
			NewestDate:    date,
			NewestSubject: subject,
		}
		groups[key] = g
	}
	g.Count++
	if date.Before(g.OldestDate) {
		g.OldestDate = date
	}
	// Strictly-newer only, so the subject shown for a date tie stays the one
	// seen first in stream order.
	if date.After(g.NewestDate) {
		g.NewestDate = date
		g.NewestSubject = subject
	}
	g.TotalAttachments += countAttachmentParts(m.Payload)
	if lu := h["list-unsubscribe"]; lu != "" {
		g.HasUnsubscribe = true
		if g.UnsubscribeURL == "" {
			g.UnsubscribeURL = extractHTTPUnsubscribeURL(lu)
		}
	}
	g.Emails = append(g.Emails, model.IndividualEmail{ID: m.Id, Subject: subject, Date: date})
	return true
}

// headerMap indexes payload headers by lowercased name. The first occurrence
// of a repeated header wins.
func headerMap(headers []*gmailv1.MessagePartHeader) map[string]string {
	m := make(map[string]string, len(headers))
	for _, h := range headers {
		k := strings.ToLower(h.Name)
		if _, ok := m[k]; !ok {
			m[k] = h.Value
		}
	}
	return m
}

// countAttachmentParts counts direct child parts carrying a filename. Summary
// records come back in metadata format with a single-level part list, so no
// recursion happens here.
func countAttachmentParts(payload *gmailv1.MessagePart) int {
	n := 0
	for _, p := range payload.Parts {
		if p.Filename != "" {
			n++
		}
	}
	return n
}

// extractHTTPUnsubscribeURL finds the first HTTP(S) URL in a List-Unsubscribe
// header value. The header typically contains comma-separated angle-bracketed
// URLs like:
// <https://example.com/unsub>, <mailto:unsub@example.com>
func extractHTTPUnsubscribeURL(header string) string {
	parts := strings.Split(header, ",")
	for _, p := range parts {
		p = strings.TrimSpace(p)
		p = strings.Trim(p, "<>")
		p = strings.TrimSpace(p)
		lower := strings.ToLower(p)
		if strings.HasPrefix(lower, "http://") || strings.HasPrefix(lower, "https://") {
			return p
		}
	}
	return ""
}

// SortGroups orders groups by message count, most first, with the sender
// address breaking ties.
func SortGroups(groups []model.EmailGroup) {
	sort.SliceStable(groups, func(i, j int) bool {
		if groups[i].Count == groups[j].Count {
			return groups[i].SenderEmail < groups[j].SenderEmail
		}
		return groups[i].Count > groups[j].Count
	})
}
