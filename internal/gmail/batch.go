package gmail

import (
	"bufio"
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"mime"
	"mime/multipart"
	"net/http"
	"net/textproto"
	"net/url"
	"strconv"
	"strings"

	gmailv1 "google.golang.org/api/gmail/v1"
)

const defaultBatchURL = "https://gmail.googleapis.com/batch/gmail/v1"

// FetchChunk resolves ids through one multipart/mixed batch request. Each id
// becomes an application/http sub-request; sub-responses come back in
// arbitrary order, matched to their request via the Content-ID echo. A failed
// sub-request drops that message from the result and increments the failure
// count; a failed batch round trip fails the whole chunk.
func (s *Service) FetchChunk(ctx context.Context, ids []string, format Format) ([]*gmailv1.Message, int, error) {
	if len(ids) == 0 {
		return nil, 0, nil
	}
	if len(ids) > ChunkSize {
		return nil, 0, fmt.Errorf("chunk of %d exceeds %d ids", len(ids), ChunkSize)
	}

	var body bytes.Buffer
	w := multipart.NewWriter(&body)
	for i, id := range ids {
		h := make(textproto.MIMEHeader)
		h.Set("Content-Type", "application/http")
		h.Set("Content-ID", fmt.Sprintf("<item-%d>", i))
		part, err := w.CreatePart(h)
		if err != nil {
			return nil, 0, fmt.Errorf("build batch part: %w", err)
		}
		fmt.Fprintf(part, "GET %s HTTP/1.1\r\n\r\n", messagePath(id, format))
	}
	if err := w.Close(); err != nil {
		return nil, 0, fmt.Errorf("finish batch body: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, s.batchEndpoint(), &body)
	if err != nil {
		return nil, 0, fmt.Errorf("build batch request: %w", err)
	}
	req.Header.Set("Content-Type", "multipart/mixed; boundary="+w.Boundary())

	resp, err := s.hc.Do(req)
	if err != nil {
		return nil, 0, fmt.Errorf("batch fetch %d messages: %w", len(ids), err)
	}
	defer resp.Body.Close()
	if resp.StatusCode != http.StatusOK {
		slurp, _ := io.ReadAll(io.LimitReader(resp.Body, 4<<10))
		return nil, 0, fmt.Errorf("batch fetch %d messages: status %s: %s", len(ids), resp.Status, strings.TrimSpace(string(slurp)))
	}

	mediaType, params, err := mime.ParseMediaType(resp.Header.Get("Content-Type"))
	if err != nil || !strings.HasPrefix(mediaType, "multipart/") {
		return nil, 0, fmt.Errorf("batch response is not multipart: %q", resp.Header.Get("Content-Type"))
	}

	msgs := make([]*gmailv1.Message, 0, len(ids))
	failed := 0
	mr := multipart.NewReader(resp.Body, params["boundary"])
	for {
		part, err := mr.NextPart()
		if err == io.EOF {
			break
		}
		if err != nil {
			return nil, 0, fmt.Errorf("read batch response part: %w", err)
		}
		msg, err := decodeBatchPart(part)
		part.Close()
		if err != nil {
			failed++
			s.log.Warn("message fetch failed in batch", "id", requestIDFor(part, ids), "err", err)
			continue
		}
		msgs = append(msgs, msg)
	}
	return msgs, failed, nil
}

// decodeBatchPart parses one application/http sub-response into a message.
func decodeBatchPart(part *multipart.Part) (*gmailv1.Message, error) {
	hr, err := http.ReadResponse(bufio.NewReader(part), nil)
	if err != nil {
		return nil, fmt.Errorf("parse embedded response: %w", err)
	}
	defer hr.Body.Close()
	payload, err := io.ReadAll(hr.Body)
	if err != nil {
		return nil, fmt.Errorf("read embedded response: %w", err)
	}
	if hr.StatusCode < 200 || hr.StatusCode > 299 {
		return nil, fmt.Errorf("status %s: %s", hr.Status, strings.TrimSpace(string(payload)))
	}
	var msg gmailv1.Message
	if err := json.Unmarshal(payload, &msg); err != nil {
		return nil, fmt.Errorf("decode message: %w", err)
	}
	return &msg, nil
}

// requestIDFor maps a sub-response back to the message id it answers. The API
// echoes Content-ID <item-N> as <response-item-N>.
func requestIDFor(part *multipart.Part, ids []string) string {
	cid := strings.Trim(part.Header.Get("Content-ID"), "<>")
	idx := strings.TrimPrefix(cid, "response-item-")
	if n, err := strconv.Atoi(idx); err == nil && n >= 0 && n < len(ids) {
		return ids[n]
	}
	return cid
}

func (s *Service) batchEndpoint() string {
	if s.batchURL != "" {
		return s.batchURL
	}
	return defaultBatchURL
}

func messagePath(id string, format Format) string {
	v := url.Values{}
	v.Set("format", string(format))
	if format == FormatMetadata {
		for _, h := range metadataHeaders {
			v.Add("metadataHeaders", h)
		}
	}
	return "/gmail/v1/users/me/messages/" + url.PathEscape(id) + "?" + v.Encode()
}
