// Package mail finds receipt messages in a Gmail inbox and turns their
// PDF attachments into model payloads.
package mail

import (
	"context"
	"encoding/base64"
	"fmt"
	netmail "net/mail"
	"strings"
	"time"

	"google.golang.org/api/gmail/v1"
)

// Grabber queries the mailbox for receipt messages from the configured
// senders and extracts their attachments.
type Grabber struct {
	svc     Service
	senders []string
}

// NewGrabber creates a Grabber over the given mail service.
func NewGrabber(svc Service, senders []string) *Grabber {
	return &Grabber{svc: svc, senders: senders}
}

// IngestHistorical fetches every matching message from every configured
// sender and extracts payloads, oldest message first.
func (g *Grabber) IngestHistorical(ctx context.Context) ([]Payload, error) {
	candidates, err := g.listCandidates(ctx, "")
	if err != nil {
		return nil, err
	}

	// Gmail returns newest first but rows must land oldest first.
	reverse(candidates)

	return g.extractPayloads(ctx, candidates)
}

// IngestNewer fetches only messages strictly newer than lastInternalMs.
//
// The Gmail query can only filter at day granularity, and several
// receipts can arrive on the same day, so every candidate's exact
// internalDate is compared against the watermark before it is kept.
// The returned maxMs is the largest internalDate observed among kept
// candidates (at least lastInternalMs), computed independently of
// delivery order.
func (g *Grabber) IngestNewer(ctx context.Context, lastInternalMs int64) ([]Payload, int64, error) {
	candidates, err := g.listCandidates(ctx, coarseAfter(lastInternalMs))
	if err != nil {
		return nil, 0, err
	}

	var newer []Candidate
	maxMs := lastInternalMs
	for _, c := range candidates {
		msg, err := g.svc.GetMessage(ctx, c.ID)
		if err != nil {
			return nil, 0, fmt.Errorf("failed to get message %s: %w", c.ID, err)
		}
		ms := msg.InternalDate
		if ms > lastInternalMs {
			newer = append(newer, Candidate{ID: c.ID, InternalMs: ms})
			if ms > maxMs {
				maxMs = ms
			}
		}
	}

	reverse(newer)

	payloads, err := g.extractPayloads(ctx, newer)
	if err != nil {
		return nil, 0, err
	}
	return payloads, maxMs, nil
}

// listCandidates pages through the sender queries and concatenates the
// results. Candidates are not deduplicated across senders; senders are
// assumed disjoint.
func (g *Grabber) listCandidates(ctx context.Context, after string) ([]Candidate, error) {
	var out []Candidate
	for _, sender := range g.senders {
		query := fmt.Sprintf("from:%s has:attachment", sender)
		if after != "" {
			query += " after:" + after
		}

		pageToken := ""
		for {
			resp, err := g.svc.ListMessages(ctx, query, pageToken)
			if err != nil {
				return nil, fmt.Errorf("failed to list messages from %s: %w", sender, err)
			}
			for _, m := range resp.Messages {
				out = append(out, Candidate{ID: m.Id})
			}
			pageToken = resp.NextPageToken
			if pageToken == "" {
				break
			}
		}
	}
	return out, nil
}

func (g *Grabber) extractPayloads(ctx context.Context, candidates []Candidate) ([]Payload, error) {
	var payloads []Payload
	for _, c := range candidates {
		p, err := g.attachmentPayload(ctx, c.ID, c.InternalMs)
		if err != nil {
			return nil, err
		}
		if p != nil {
			payloads = append(payloads, *p)
		}
	}
	return payloads, nil
}

// attachmentPayload fetches the message and extracts its first PDF
// attachment. A message with no PDF, or an attachment with no data, is
// skipped silently by returning a nil payload.
func (g *Grabber) attachmentPayload(ctx context.Context, id string, internalMsHint int64) (*Payload, error) {
	msg, err := g.svc.GetMessage(ctx, id)
	if err != nil {
		return nil, fmt.Errorf("failed to get message %s: %w", id, err)
	}

	attachmentID := ""
	if msg.Payload != nil {
		for _, part := range msg.Payload.Parts {
			if isPDF(part) && part.Body != nil && part.Body.AttachmentId != "" {
				attachmentID = part.Body.AttachmentId
				break
			}
		}
	}
	if attachmentID == "" {
		return nil, nil
	}

	body, err := g.svc.GetAttachment(ctx, id, attachmentID)
	if err != nil {
		return nil, fmt.Errorf("failed to get attachment for message %s: %w", id, err)
	}
	if body == nil || body.Data == "" {
		return nil, nil
	}
	data, err := decodeBase64URL(body.Data)
	if err != nil {
		return nil, nil
	}

	internalMs := internalMsHint
	if internalMs == 0 {
		internalMs = msg.InternalDate
	}

	var date time.Time
	if internalMs > 0 {
		date = dayOf(time.UnixMilli(internalMs).UTC())
	} else if msg.Payload != nil {
		date = dateFromHeaders(msg.Payload.Headers)
	}

	return &Payload{Data: data, Date: date, InternalMs: internalMs}, nil
}

func isPDF(part *gmail.MessagePart) bool {
	if part == nil {
		return false
	}
	return part.MimeType == "application/pdf" ||
		strings.HasSuffix(strings.ToLower(part.Filename), ".pdf")
}

// decodeBase64URL handles both padded and unpadded base64url data; the
// Gmail API usually omits padding.
func decodeBase64URL(s string) ([]byte, error) {
	if data, err := base64.RawURLEncoding.DecodeString(strings.TrimRight(s, "=")); err == nil {
		return data, nil
	}
	return base64.URLEncoding.DecodeString(s)
}

// coarseAfter turns a millisecond watermark into a Gmail "after:" date
// string at UTC day granularity, or "" for a zero watermark.
func coarseAfter(ms int64) string {
	if ms <= 0 {
		return ""
	}
	return time.UnixMilli(ms).UTC().Format("2006/01/02")
}

// dateFromHeaders parses the RFC 822 Date header; a message that has
// neither internalDate nor a parseable header yields a zero date.
func dateFromHeaders(headers []*gmail.MessagePartHeader) time.Time {
	for _, h := range headers {
		if h == nil || h.Name != "Date" {
			continue
		}
		if t, err := netmail.ParseDate(h.Value); err == nil {
			return dayOf(t.UTC())
		}
	}
	return time.Time{}
}

func dayOf(t time.Time) time.Time {
	return time.Date(t.Year(), t.Month(), t.Day(), 0, 0, 0, 0, time.UTC)
}

func reverse(candidates []Candidate) {
	for i, j := 0, len(candidates)-1; i < j; i, j = i+1, j-1 {
		candidates[i], candidates[j] = candidates[j], candidates[i]
	}
}
