package export

import (
	"context"
	"fmt"
	"time"

	"mailsweep/internal/files"
	"mailsweep/internal/gmail"
	"mailsweep/internal/model"
	"mailsweep/internal/store"

	"github.com/charmbracelet/log"
)

// SenderSummary totals what one sender contributed to a run.
type SenderSummary struct {
	Files int
	Bytes int64
}

// Failure records one attachment that could not be downloaded or saved.
type Failure struct {
	Sender   string
	Filename string
	Err      error
}

// Result is the outcome of one download run. Failures do not abort the run,
// so a Result can carry both saved files and failures.
type Result struct {
	Saved    int
	BySender map[string]SenderSummary
	Failures []Failure
}

// Runner downloads attachments from the mailbox and files them on disk,
// recording each saved file in the manifest.
type Runner struct {
	Mailbox  gmail.Mailbox
	Saver    *files.Saver
	Manifest *store.Manifest
	Log      *log.Logger
	PageSize int64
}

// Run finds every attachment received in the last days days and downloads
// each one. A failed item is recorded and skipped; the run keeps going.
func (r *Runner) Run(ctx context.Context, days int, report gmail.ReportFunc) (*Result, error) {
	atts, err := gmail.ListAttachments(ctx, r.Mailbox, days, r.PageSize, report)
	if err != nil {
		return nil, err
	}
	return r.Download(ctx, atts, report)
}

// Download fetches and saves the given attachments one at a time. On
// cancellation the partial result is returned alongside the context error;
// files already written stay on disk.
func (r *Runner) Download(ctx context.Context, atts []model.AttachmentMetadata, report gmail.ReportFunc) (*Result, error) {
	res := &Result{BySender: make(map[string]SenderSummary)}
	recs := make([]model.ExportRecord, 0, len(atts))
	for i, att := range atts {
		select {
		case <-ctx.Done():
			return res, ctx.Err()
		default:
		}

		report.Send(gmail.Progress{
			Status: fmt.Sprintf("Downloading '%s' (%d/%d)", att.Filename, i+1, len(atts)),
			Done:   i + 1,
			Total:  len(atts),
		})

		data, err := r.Mailbox.DownloadAttachment(ctx, att.MessageID, att.AttachmentID)
		if err != nil {
			r.fail(res, att, err)
			continue
		}
		path, err := r.Saver.Save(data, att.Sender, att.Filename, att.EmailDate)
		if err != nil {
			r.fail(res, att, err)
			continue
		}

		sum := res.BySender[att.Sender]
		sum.Files++
		sum.Bytes += int64(len(data))
		res.BySender[att.Sender] = sum
		res.Saved++
		recs = append(recs, model.ExportRecord{
			MessageID:    att.MessageID,
			AttachmentID: att.AttachmentID,
			Sender:       att.Sender,
			Filename:     att.Filename,
			Path:         path,
			Size:         int64(len(data)),
			EmailDate:    att.EmailDate,
			SavedAt:      time.Now().UTC(),
		})
	}

	// The manifest is a ledger of what already sits on disk, so a failed
	// append downgrades to a warning rather than undoing the run.
	if r.Manifest != nil && len(recs) > 0 {
		if err := r.Manifest.Append(ctx, recs); err != nil && r.Log != nil {
			r.Log.Warn("could not record exports in manifest", "count", len(recs), "err", err)
		}
	}
	return res, nil
}

func (r *Runner) fail(res *Result, att model.AttachmentMetadata, err error) {
	res.Failures = append(res.Failures, Failure{Sender: att.Sender, Filename: att.Filename, Err: err})
	if r.Log != nil {
		r.Log.Error("attachment export failed", "sender", att.Sender, "filename", att.Filename, "err", err)
	}
}
