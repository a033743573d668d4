package gmail

import (
	"context"
	"encoding/base64"
	"fmt"

	"mailsweep/internal/model"
	"mailsweep/internal/util"

	gmailv1 "google.golang.org/api/gmail/v1"
)

// ListAttachments finds every downloadable attachment on inbox messages
// received within the last days days. Records are resolved in full format so
// the part tree carries attachment references.
func ListAttachments(ctx context.Context, mbox Mailbox, days int, pageSize int64, report ReportFunc) ([]model.AttachmentMetadata, error) {
	report.Send(Progress{Status: fmt.Sprintf("Searching for emails with attachments from last %d days...", days)})
	q := ListQuery{
		LabelIDs: []string{"INBOX"},
		Search:   fmt.Sprintf("has:attachment newer_than:%dd", days),
		PageSize: pageSize,
	}
	ids, err := ListMessageIDs(ctx, mbox, q, 0, report)
	if err != nil {
		return nil, err
	}
	msgs, _, err := FetchMessages(ctx, mbox, ids, FormatFull, report)
	if err != nil {
		return nil, err
	}
	return CollectAttachments(msgs), nil
}

// CollectAttachments extracts attachment references from full-format message
// records. A message whose sender or date cannot be parsed is skipped whole,
// attachments included.
func CollectAttachments(msgs []*gmailv1.Message) []model.AttachmentMetadata {
	var out []model.AttachmentMetadata
	for _, m := range msgs {
		if m == nil || m.Payload == nil {
			continue
		}
		h := headerMap(m.Payload.Headers)
		_, email, ok := util.ParseSender(h["from"])
		if !ok {
			continue
		}
		date, err := util.ParseDate(h["date"])
		if err != nil {
			continue
		}
		for _, p := range FindAttachmentParts(m.Payload) {
			out = append(out, model.AttachmentMetadata{
				MessageID:    m.Id,
				AttachmentID: p.Body.AttachmentId,
				Sender:       email,
				EmailDate:    date,
				Filename:     p.Filename,
				Size:         p.Body.Size,
			})
		}
	}
	return out
}

// FindAttachmentParts walks the part tree below root and returns every part
// that references a downloadable attachment, meaning it carries both a
// filename and an attachment id. The root part is a container and never
// qualifies itself; a message without child parts yields nothing.
func FindAttachmentParts(root *gmailv1.MessagePart) []*gmailv1.MessagePart {
	if root == nil {
		return nil
	}
	var found []*gmailv1.MessagePart
	var walk func(parts []*gmailv1.MessagePart)
	walk = func(parts []*gmailv1.MessagePart) {
		for _, p := range parts {
			if p.Filename != "" && p.Body != nil && p.Body.AttachmentId != "" {
				found = append(found, p)
			}
			if len(p.Parts) > 0 {
				walk(p.Parts)
			}
		}
	}
	walk(root.Parts)
	return found
}

func decodeBase64URL(data string) ([]byte, error) {
	b, err := base64.URLEncoding.DecodeString(data)
	if err != nil {
		// Gmail uses unpadded base64url
		b, err = base64.RawURLEncoding.DecodeString(data)
		if err != nil {
			return nil, err
		}
	}
	return b, nil
}
