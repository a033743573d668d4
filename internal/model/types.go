package model

import "time"

// IndividualEmail is the per-message projection kept inside an EmailGroup.
// Immutable once appended.
type IndividualEmail struct {
	ID      string
	Subject string
	Date    time.Time
}

// EmailGroup aggregates every message seen from one sender address during a
// single scan. The aggregation map is keyed by the lowercased address;
// SenderEmail preserves the case of the first occurrence. Groups are never
// persisted: each scan rebuilds them from scratch.
type EmailGroup struct {
	SenderName       string
	SenderEmail      string
	Count            int
	OldestDate       time.Time
	NewestDate       time.Time
	NewestSubject    string // subject of the message carrying NewestDate
	TotalAttachments int
	HasUnsubscribe   bool   // true once any message carried List-Unsubscribe
	UnsubscribeURL   string // first HTTP(S) unsubscribe target seen, if any
	Emails           []IndividualEmail
}

// AttachmentMetadata identifies one downloadable attachment together with the
// provenance needed to file it on disk. Produced by the locator pass, consumed
// once by the download step.
type AttachmentMetadata struct {
	MessageID    string
	AttachmentID string
	Sender       string
	EmailDate    time.Time
	Filename     string
	Size         int64
}

// ExportRecord is one manifest row, written after an attachment has been
// saved to its final path.
type ExportRecord struct {
	MessageID    string
	AttachmentID string
	Sender       string
	Filename     string
	Path         string
	Size         int64
	EmailDate    time.Time
	SavedAt      time.Time
}

// ExportStats summarizes the manifest for display on the menu screen.
type ExportStats struct {
	Files   int
	Bytes   int64
	Senders int
}
