package gmail

import (
	"context"
	"fmt"
	"net/http"

	"github.com/charmbracelet/log"
	gmailv1 "google.golang.org/api/gmail/v1"
	"google.golang.org/api/option"
)

// ChunkSize is the number of ids bundled into one batched round trip, shared
// by reads (FetchChunk) and mutations (ModifyChunk).
const ChunkSize = 100

// metadataHeaders are the only headers requested during summary scans.
var metadataHeaders = []string{"From", "Subject", "Date", "List-Unsubscribe"}

// Format selects how much of each message a fetch resolves.
type Format string

const (
	// FormatMetadata returns headers only.
	FormatMetadata Format = "metadata"
	// FormatFull returns the complete payload, including the part tree with
	// attachment references.
	FormatFull Format = "full"
)

// LabelChange is a bulk mailbox mutation applied to a set of message ids.
type LabelChange struct {
	AddLabelIDs    []string
	RemoveLabelIDs []string
}

var (
	// ChangeArchive removes messages from the inbox.
	ChangeArchive = LabelChange{RemoveLabelIDs: []string{"INBOX"}}
	// ChangeTrash moves messages to the trash.
	ChangeTrash = LabelChange{AddLabelIDs: []string{"TRASH"}}
)

// ListQuery filters a mailbox listing.
type ListQuery struct {
	LabelIDs []string // e.g. INBOX
	Search   string   // Gmail search syntax, e.g. "has:attachment newer_than:30d"
	PageSize int64    // per-page size; 0 uses the remote default
}

// ListPage is one page of a listing plus the continuation token for the next.
type ListPage struct {
	IDs           []string
	NextPageToken string
	SizeEstimate  int64
}

// Progress is an immutable event emitted by pipeline phases. Status carries a
// human-readable phase description; Done/Total carry monotonic progress when
// Total is non-zero.
type Progress struct {
	Status string
	Done   int
	Total  int
}

// ReportFunc receives Progress events. Callers own delivery to the UI loop;
// implementations must not block the pipeline. A nil ReportFunc is valid and
// disables reporting.
type ReportFunc func(Progress)

// Send delivers p when a receiver is set. Safe to call on a nil ReportFunc.
func (f ReportFunc) Send(p Progress) {
	if f != nil {
		f(p)
	}
}

// Mailbox is the remote boundary the pipeline phases run against. Tests drive
// the flows through a fake; Service implements it over the Gmail API.
type Mailbox interface {
	// ListPage returns one page of message ids for the query. pageToken is
	// the opaque continuation token from the previous page, "" for the first.
	ListPage(ctx context.Context, q ListQuery, pageToken string) (*ListPage, error)

	// FetchChunk resolves up to ChunkSize ids in one batched round trip.
	// Failed sub-requests are dropped from the result and counted; the
	// returned slice carries no ordering guarantee.
	FetchChunk(ctx context.Context, ids []string, format Format) ([]*gmailv1.Message, int, error)

	// ModifyChunk applies one label change to up to ChunkSize ids in one
	// round trip. The remote accepts or rejects the chunk as a whole.
	ModifyChunk(ctx context.Context, ids []string, change LabelChange) error

	// DownloadAttachment returns the decoded bytes of one attachment.
	DownloadAttachment(ctx context.Context, messageID, attachmentID string) ([]byte, error)
}

// Service implements Mailbox for one authorized session.
type Service struct {
	api  *gmailv1.Service
	hc   *http.Client
	user string
	log  *log.Logger

	batchURL string // test override; empty selects the API default
}

// NewService wraps an authorized HTTP client. The client must already carry
// the session's credentials; Service never refreshes or persists tokens.
func NewService(ctx context.Context, client *http.Client, logger *log.Logger) (*Service, error) {
	api, err := gmailv1.NewService(ctx, option.WithHTTPClient(client))
	if err != nil {
		return nil, fmt.Errorf("create gmail service: %w", err)
	}
	return &Service{api: api, hc: client, user: "me", log: logger}, nil
}

func (s *Service) ListPage(ctx context.Context, q ListQuery, pageToken string) (*ListPage, error) {
	call := s.api.Users.Messages.List(s.user).Context(ctx)
	if len(q.LabelIDs) > 0 {
		call = call.LabelIds(q.LabelIDs...)
	}
	if q.Search != "" {
		call = call.Q(q.Search)
	}
	if q.PageSize > 0 {
		call = call.MaxResults(q.PageSize)
	}
	if pageToken != "" {
		call = call.PageToken(pageToken)
	}
	resp, err := call.Do()
	if err != nil {
		return nil, fmt.Errorf("list messages: %w", err)
	}
	page := &ListPage{
		IDs:           make([]string, 0, len(resp.Messages)),
		NextPageToken: resp.NextPageToken,
		SizeEstimate:  resp.ResultSizeEstimate,
	}
	for _, m := range resp.Messages {
		page.IDs = append(page.IDs, m.Id)
	}
	return page, nil
}

func (s *Service) ModifyChunk(ctx context.Context, ids []string, change LabelChange) error {
	req := &gmailv1.BatchModifyMessagesRequest{
		Ids:            ids,
		AddLabelIds:    change.AddLabelIDs,
		RemoveLabelIds: change.RemoveLabelIDs,
	}
	if err := s.api.Users.Messages.BatchModify(s.user, req).Context(ctx).Do(); err != nil {
		return fmt.Errorf("batch modify %d messages: %w", len(ids), err)
	}
	return nil
}

func (s *Service) DownloadAttachment(ctx context.Context, messageID, attachmentID string) ([]byte, error) {
	att, err := s.api.Users.Messages.Attachments.Get(s.user, messageID, attachmentID).Context(ctx).Do()
	if err != nil {
		return nil, fmt.Errorf("get attachment %s of message %s: %w", attachmentID, messageID, err)
	}
	data, err := decodeBase64URL(att.Data)
	if err != nil {
		return nil, fmt.Errorf("decode attachment %s of message %s: %w", attachmentID, messageID, err)
	}
	return data, nil
}
