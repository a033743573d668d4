package gmail

import (
	"context"
	"fmt"

	"mailsweep/internal/model"

	gmailv1 "google.golang.org/api/gmail/v1"
)

// ListMessageIDs walks the paginated listing until the continuation token
// runs out or the cap is reached. limit <= 0 means unbounded; the result is
// truncated to exactly limit ids when the last page overshoots. A page
// failure aborts the walk rather than returning a silent partial list.
func ListMessageIDs(ctx context.Context, mbox Mailbox, q ListQuery, limit int, report ReportFunc) ([]string, error) {
	var ids []string
	pageToken := ""
	for pageNum := 1; ; pageNum++ {
		report.Send(Progress{Status: fmt.Sprintf("Fetching email list (page %d)...", pageNum)})
		page, err := mbox.ListPage(ctx, q, pageToken)
		if err != nil {
			return nil, fmt.Errorf("list page %d: %w", pageNum, err)
		}
		ids = append(ids, page.IDs...)
		pageToken = page.NextPageToken
		if pageToken == "" || (limit > 0 && len(ids) >= limit) {
			break
		}
	}
	if limit > 0 && len(ids) > limit {
		ids = ids[:limit]
	}
	return ids, nil
}

// FetchMessages resolves ids to message records in ChunkSize batches, one
// chunk at a time. Failures inside a chunk drop those messages and count
// toward the returned failure total; a failed chunk round trip aborts the
// whole fetch.
func FetchMessages(ctx context.Context, mbox Mailbox, ids []string, format Format, report ReportFunc) ([]*gmailv1.Message, int, error) {
	msgs := make([]*gmailv1.Message, 0, len(ids))
	failed := 0
	for start := 0; start < len(ids); start += ChunkSize {
		end := start + ChunkSize
		if end > len(ids) {
			end = len(ids)
		}
		chunk, dropped, err := mbox.FetchChunk(ctx, ids[start:end], format)
		if err != nil {
			return nil, failed, fmt.Errorf("fetch chunk %d-%d: %w", start, end, err)
		}
		msgs = append(msgs, chunk...)
		failed += dropped
		report.Send(Progress{
			Status: fmt.Sprintf("Fetching details... (%d/%d)", end, len(ids)),
			Done:   end,
			Total:  len(ids),
		})
	}
	return msgs, failed, nil
}

// ScanResult is the outcome of one full inbox scan.
type ScanResult struct {
	Groups  []model.EmailGroup
	Fetched int // messages resolved
	Dropped int // ids whose fetch failed inside a chunk
	Skipped int // messages excluded for an unparseable sender or date
}

// ScanInbox lists the inbox, resolves summary headers in batches and folds
// the messages into per-sender groups sorted by volume. limit caps how many
// messages the scan considers; 0 scans everything.
func ScanInbox(ctx context.Context, mbox Mailbox, pageSize int64, limit int, report ReportFunc) (*ScanResult, error) {
	q := ListQuery{LabelIDs: []string{"INBOX"}, PageSize: pageSize}
	ids, err := ListMessageIDs(ctx, mbox, q, limit, report)
	if err != nil {
		return nil, err
	}
	report.Send(Progress{Status: fmt.Sprintf("Found %d emails. Fetching details...", len(ids))})
	msgs, dropped, err := FetchMessages(ctx, mbox, ids, FormatMetadata, report)
	if err != nil {
		return nil, err
	}
	report.Send(Progress{Status: fmt.Sprintf("Analyzing %d emails...", len(msgs))})
	groups, skipped := GroupBySender(msgs, report)
	SortGroups(groups)
	return &ScanResult{Groups: groups, Fetched: len(msgs), Dropped: dropped, Skipped: skipped}, nil
}
