package gmail

import (
	"context"
	"fmt"
	"testing"
)

func TestArchive_Chunks(t *testing.T) {
	f := newFakeMailbox()
	ids := make([]string, 250)
	for i := range ids {
		ids[i] = fmt.Sprintf("m%03d", i)
	}

	var events []Progress
	if err := Archive(context.Background(), f, ids, collectProgress(&events)); err != nil {
		t.Fatalf("Archive: %v", err)
	}
	if len(f.modChunks) != 3 {
		t.Fatalf("want 3 chunks, got %d", len(f.modChunks))
	}
	if len(f.modChunks[0]) != 100 || len(f.modChunks[2]) != 50 {
		t.Fatalf("chunk sizes got %d/%d/%d", len(f.modChunks[0]), len(f.modChunks[1]), len(f.modChunks[2]))
	}
	for _, ch := range f.modChanges {
		if len(ch.RemoveLabelIDs) != 1 || ch.RemoveLabelIDs[0] != "INBOX" || len(ch.AddLabelIDs) != 0 {
			t.Fatalf("archive change got %+v", ch)
		}
	}
	if events[0].Status != "Archiving emails... (100/250)" {
		t.Fatalf("first status got %q", events[0].Status)
	}
	if events[2].Status != "Archiving emails... (250/250)" {
		t.Fatalf("last status got %q", events[2].Status)
	}
}

func TestTrash_AddsTrashLabel(t *testing.T) {
	f := newFakeMailbox()
	var events []Progress
	if err := Trash(context.Background(), f, []string{"a", "b"}, collectProgress(&events)); err != nil {
		t.Fatalf("Trash: %v", err)
	}
	if len(f.modChunks) != 1 || len(f.modChunks[0]) != 2 {
		t.Fatalf("chunks got %v", f.modChunks)
	}
	ch := f.modChanges[0]
	if len(ch.AddLabelIDs) != 1 || ch.AddLabelIDs[0] != "TRASH" || len(ch.RemoveLabelIDs) != 0 {
		t.Fatalf("trash change got %+v", ch)
	}
	if events[0].Status != "Deleting emails... (2/2)" {
		t.Fatalf("status got %q", events[0].Status)
	}
}

func TestArchive_ChunkFailureAborts(t *testing.T) {
	f := newFakeMailbox()
	f.modifyErrAt = 2
	ids := make([]string, 250)
	for i := range ids {
		ids[i] = fmt.Sprintf("m%03d", i)
	}

	if err := Archive(context.Background(), f, ids, nil); err == nil {
		t.Fatal("want error from failed chunk")
	}
	if len(f.modChunks) != 2 {
		t.Fatalf("no chunk may run after a failure, got %d", len(f.modChunks))
	}
}
