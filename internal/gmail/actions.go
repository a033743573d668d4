package gmail

import (
	"context"
	"fmt"
)

// Archive removes the given messages from the inbox, ChunkSize ids per round
// trip. A failed chunk aborts the run; earlier chunks stay applied.
func Archive(ctx context.Context, mbox Mailbox, ids []string, report ReportFunc) error {
	return applyChange(ctx, mbox, ids, ChangeArchive, "Archiving", report)
}

// Trash moves the given messages to the trash, ChunkSize ids per round trip.
// A failed chunk aborts the run; earlier chunks stay applied.
func Trash(ctx context.Context, mbox Mailbox, ids []string, report ReportFunc) error {
	return applyChange(ctx, mbox, ids, ChangeTrash, "Deleting", report)
}

func applyChange(ctx context.Context, mbox Mailbox, ids []string, change LabelChange, verb string, report ReportFunc) error {
	for start := 0; start < len(ids); start += ChunkSize {
		end := start + ChunkSize
		if end > len(ids) {
			end = len(ids)
		}
		if err := mbox.ModifyChunk(ctx, ids[start:end], change); err != nil {
			return fmt.Errorf("modify messages %d-%d: %w", start, end, err)
		}
		report.Send(Progress{
			Status: fmt.Sprintf("%s emails... (%d/%d)", verb, end, len(ids)),
			Done:   end,
			Total:  len(ids),
		})
	}
	return nil
}
