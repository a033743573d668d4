package gmail

import (
	"context"
	"strings"
	"testing"
	"time"

	gmailv1 "google.golang.org/api/gmail/v1"
)

func attPart(filename, attID string, size int64) *gmailv1.MessagePart {
	return &gmailv1.MessagePart{
		Filename: filename,
		Body:     &gmailv1.MessagePartBody{AttachmentId: attID, Size: size},
	}
}

func fullMsg(id, from, date string, parts ...*gmailv1.MessagePart) *gmailv1.Message {
	return &gmailv1.Message{
		Id: id,
		Payload: &gmailv1.MessagePart{
			Headers: []*gmailv1.MessagePartHeader{
				{Name: "From", Value: from},
				{Name: "Date", Value: date},
			},
			Parts: parts,
		},
	}
}

func TestFindAttachmentParts_WalksNestedParts(t *testing.T) {
	root := &gmailv1.MessagePart{
		MimeType: "multipart/mixed",
		Parts: []*gmailv1.MessagePart{
			{MimeType: "multipart/alternative", Parts: []*gmailv1.MessagePart{
				{MimeType: "text/plain", Body: &gmailv1.MessagePartBody{Data: "aGk="}},
				{MimeType: "text/html", Body: &gmailv1.MessagePartBody{Data: "aGk="}},
			}},
			attPart("report.pdf", "att-1", 1234),
			{MimeType: "multipart/mixed", Parts: []*gmailv1.MessagePart{
				attPart("deep.png", "att-2", 99),
				{Filename: "inline.gif", Body: &gmailv1.MessagePartBody{}},
			}},
			{Filename: "nobody.txt"},
		},
	}

	got := FindAttachmentParts(root)
	if len(got) != 2 {
		t.Fatalf("want 2 attachment parts, got %d", len(got))
	}
	if got[0].Filename != "report.pdf" || got[1].Filename != "deep.png" {
		t.Fatalf("got %q, %q", got[0].Filename, got[1].Filename)
	}
}

func TestFindAttachmentParts_RootNeverQualifies(t *testing.T) {
	root := &gmailv1.MessagePart{
		Filename: "root.bin",
		Body:     &gmailv1.MessagePartBody{AttachmentId: "att-root"},
	}
	if got := FindAttachmentParts(root); len(got) != 0 {
		t.Fatalf("root part must not qualify, got %d parts", len(got))
	}
	if got := FindAttachmentParts(nil); got != nil {
		t.Fatalf("nil root: got %v", got)
	}
}

func TestCollectAttachments(t *testing.T) {
	msgs := []*gmailv1.Message{
		fullMsg("m1", `Alice <Alice@Example.com>`, "Mon, 01 Jan 2024 10:00:00 +0000",
			attPart("report.pdf", "att-1", 10),
			&gmailv1.MessagePart{MimeType: "multipart/mixed", Parts: []*gmailv1.MessagePart{
				attPart("deep.png", "att-2", 20),
			}},
		),
		fullMsg("m2", "not an address", "Mon, 01 Jan 2024 10:00:00 +0000",
			attPart("orphan.pdf", "att-3", 30),
		),
		fullMsg("m3", "carol@example.com", "garbage date",
			attPart("orphan2.pdf", "att-4", 40),
		),
		fullMsg("m4", "bob@example.com", "Mon, 01 Jan 2024 10:00:00 +0000"),
	}

	atts := CollectAttachments(msgs)
	if len(atts) != 2 {
		t.Fatalf("want 2 attachments, got %d", len(atts))
	}
	first := atts[0]
	if first.MessageID != "m1" || first.AttachmentID != "att-1" || first.Filename != "report.pdf" || first.Size != 10 {
		t.Fatalf("got %+v", first)
	}
	if first.Sender != "Alice@Example.com" {
		t.Fatalf("sender should be the address only, got %q", first.Sender)
	}
	want := time.Date(2024, 1, 1, 10, 0, 0, 0, time.UTC)
	if !first.EmailDate.Equal(want) {
		t.Fatalf("email date got %v", first.EmailDate)
	}
	if atts[1].AttachmentID != "att-2" {
		t.Fatalf("nested attachment missing, got %+v", atts[1])
	}
}

func TestListAttachments_EndToEnd(t *testing.T) {
	f := newFakeMailbox(
		fullMsg("m1", "alice@example.com", "Mon, 01 Jan 2024 10:00:00 +0000",
			attPart("report.pdf", "att-1", 10)),
		fullMsg("m2", "bob@example.com", "Tue, 02 Jan 2024 10:00:00 +0000",
			attPart("photo.jpg", "att-2", 20)),
	)

	var events []Progress
	atts, err := ListAttachments(context.Background(), f, 30, 100, collectProgress(&events))
	if err != nil {
		t.Fatalf("ListAttachments: %v", err)
	}
	if len(atts) != 2 {
		t.Fatalf("want 2 attachments, got %d", len(atts))
	}
	if len(events) == 0 || !strings.Contains(events[0].Status, "Searching for emails with attachments from last 30 days") {
		t.Fatalf("first status got %+v", events)
	}
}

func TestDecodeBase64URL(t *testing.T) {
	if b, err := decodeBase64URL("aGVsbG8="); err != nil || string(b) != "hello" {
		t.Fatalf("padded: %q %v", b, err)
	}
	if b, err := decodeBase64URL("aGVsbG8"); err != nil || string(b) != "hello" {
		t.Fatalf("unpadded: %q %v", b, err)
	}
	if _, err := decodeBase64URL("!!!"); err == nil {
		t.Fatal("want error for invalid input")
	}
}
