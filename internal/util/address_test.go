package util

import (
	"testing"
	"time"
)

func TestParseSender_Basic(t *testing.T) {
	tests := []struct {
		in        string
		wantName  string
		wantEmail string
		wantOK    bool
	}{
		{`Name <User@Example.COM>`, "Name", "User@Example.COM", true}, // case preserved
		{`"Quoted Name" <user@example.com>`, "Quoted Name", "user@example.com", true},
		{`user@example.com`, "user@example.com", "user@example.com", true}, // name falls back to address
		{`bad address`, "", "", false},
		{`"A" <not-an-email> , "B" <c@D.com>`, "B", "c@D.com", true}, // list fallback picks first valid
		{``, "", "", false},
		{`   `, "", "", false},
	}
	for _, tc := range tests {
		name, email, ok := ParseSender(tc.in)
		if ok != tc.wantOK || name != tc.wantName || email != tc.wantEmail {
			t.Errorf("ParseSender(%q) = (%q, %q, %v); want (%q, %q, %v)",
				tc.in, name, email, ok, tc.wantName, tc.wantEmail, tc.wantOK)
		}
	}
}

func TestParseDate_Formats(t *testing.T) {
	tests := []struct {
		in   string
		want time.Time
	}{
		{"Mon, 02 Jan 2006 15:04:05 -0700", time.Date(2006, 1, 2, 22, 4, 5, 0, time.UTC)},
		{"Tue, 2 Jan 2024 09:30:00 +0200", time.Date(2024, 1, 2, 7, 30, 0, 0, time.UTC)},
		{"02 Jan 06 15:04 -0700", time.Date(2006, 1, 2, 22, 4, 0, 0, time.UTC)},
		{"2024-03-01T12:00:00Z", time.Date(2024, 3, 1, 12, 0, 0, 0, time.UTC)},
		{"Mon, 2 Jan 2006 15:04:05", time.Date(2006, 1, 2, 15, 4, 5, 0, time.UTC)}, // zoneless -> UTC
	}
	for _, tc := range tests {
		got, err := ParseDate(tc.in)
		if err != nil {
			t.Errorf("ParseDate(%q): %v", tc.in, err)
			continue
		}
		if !got.Equal(tc.want) {
			t.Errorf("ParseDate(%q) = %s; want %s", tc.in, got, tc.want)
		}
	}
}

func TestParseDate_Invalid(t *testing.T) {
	for _, in := range []string{"", "not a date", "32 Foo 2024"} {
		if _, err := ParseDate(in); err == nil {
			t.Errorf("ParseDate(%q): expected error", in)
		}
	}
}

func TestParseDate_NormalizesToUTC(t *testing.T) {
	got, err := ParseDate("Fri, 01 Mar 2024 18:30:00 -0500")
	if err != nil {
		t.Fatalf("ParseDate: %v", err)
	}
	if got.Location() != time.UTC {
		t.Fatalf("expected UTC location, got %v", got.Location())
	}
	want := time.Date(2024, 3, 1, 23, 30, 0, 0, time.UTC)
	if !got.Equal(want) {
		t.Fatalf("got %s want %s", got, want)
	}
}
