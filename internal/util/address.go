package util

import (
	"errors"
	"fmt"
	"net/mail"
	"strings"
	"time"
)

// ParseSender extracts the display name and address from a From header.
// - Parses RFC 5322 values like "Name <user@Example.COM>"
// - Falls back to the first parseable entry when the header is a list
// - Preserves the address case; callers decide how to compare
// - name falls back to the address when the header carries no display name
// Returns ok=false when no address can be extracted.
func ParseSender(fromHeader string) (name, email string, ok bool) {
	if strings.TrimSpace(fromHeader) == "" {
		return "", "", false
	}
	addr, err := mail.ParseAddress(fromHeader)
	if err != nil || addr == nil {
		// Some headers are a list; try a crude fallback by splitting on comma.
		for _, p := range strings.Split(fromHeader, ",") {
			a, e := mail.ParseAddress(strings.TrimSpace(p))
			if e == nil && a != nil {
				addr = a
				break
			}
		}
		if addr == nil {
			return "", "", false
		}
	}
	email = strings.TrimSpace(addr.Address)
	if email == "" {
		return "", "", false
	}
	name = strings.TrimSpace(addr.Name)
	if name == "" {
		name = email
	}
	return name, email, true
}

// dateLayouts covers Date header variants seen in the wild that
// mail.ParseDate rejects.
var dateLayouts = []string{
	time.RFC1123Z,
	time.RFC1123,
	time.RFC822Z,
	time.RFC822,
	time.RFC850,
	time.RFC3339,
	"Mon, 2 Jan 2006 15:04:05 -0700",
	"2 Jan 2006 15:04:05 -0700",
	"Mon, 2 Jan 2006 15:04:05", // no zone; treated as UTC
}

// ParseDate parses an RFC 5322 Date header into UTC. Headers without a zone
// are taken as UTC so all comparisons happen on one absolute timeline.
func ParseDate(h string) (time.Time, error) {
	h = strings.TrimSpace(h)
	if h == "" {
		return time.Time{}, errors.New("empty date header")
	}
	if t, err := mail.ParseDate(h); err == nil {
		return t.UTC(), nil
	}
	for _, l := range dateLayouts {
		if t, err := time.Parse(l, h); err == nil {
			return t.UTC(), nil
		}
	}
	return time.Time{}, fmt.Errorf("unrecognized date format %q", h)
}
