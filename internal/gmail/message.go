package gmail

import (
	"context"
	"fmt"
	"net/mail"
	"strings"
	"time"

	"mailbucket/internal/model"

	"github.com/charmbracelet/log"
	gmailv1 "google.golang.org/api/gmail/v1"
)

// RecordOptions carries what FetchRecord needs besides the message id.
type RecordOptions struct {
	Attachments AttachmentGetter
	Sink        AttachmentSink
	Body        BodyOptions
	Logger      *log.Logger
}

// FetchRecord fetches one message in full and builds its record. Attachment
// failures are logged and skipped; any error returned means the message
// itself could not be fetched.
func FetchRecord(ctx context.Context, getter MessageGetter, id string, opts RecordOptions) (model.MessageRecord, error) {
	msg, err := getter.GetMessage(ctx, id)
	if err != nil {
		return model.MessageRecord{}, fmt.Errorf("get message %s: %w", id, err)
	}
	if msg == nil || msg.Payload == nil {
		return model.MessageRecord{}, fmt.Errorf("get message %s: response has no payload", id)
	}
	if msg.Id == "" {
		msg.Id = id
	}
	return BuildRecord(ctx, msg, opts), nil
}

// BuildRecord composes a record from an already fetched message.
func BuildRecord(ctx context.Context, msg *gmailv1.Message, opts RecordOptions) model.MessageRecord {
	headers := Headers(msg.Payload)
	rec := model.MessageRecord{
		ID:      msg.Id,
		Subject: headerOr(headers, "Subject", model.DefaultSubject),
		From:    headerOr(headers, "From", model.DefaultSender),
		To:      headerOr(headers, "To", model.DefaultRecipient),
		Date:    ParseDate(headers["Date"]),
		Body:    ExtractBody(msg.Payload, opts.Body),
	}
	if opts.Attachments != nil && opts.Sink != nil {
		rec.Attachments = SaveAttachments(ctx, opts.Attachments, msg, opts.Sink, opts.Logger)
	} else {
		rec.Attachments = []string{}
	}
	return rec
}

// Headers flattens the payload's header list. When a name repeats the last
// value wins.
func Headers(payload *gmailv1.MessagePart) model.HeaderMap {
	out := make(model.HeaderMap)
	if payload == nil {
		return out
	}
	for _, h := range payload.Headers {
		if h == nil {
			continue
		}
		out[h.Name] = h.Value
	}
	return out
}

func headerOr(h model.HeaderMap, name, def string) string {
	if v, ok := h[name]; ok {
		return v
	}
	return def
}

// Common layouts seen in Date headers that net/mail rejects.
var dateLayouts = []string{
	time.RFC1123Z,
	time.RFC1123,
	time.RFC822Z,
	time.RFC822,
	time.RFC850,
	time.RFC3339,
	"Mon, 2 Jan 2006 15:04:05 -0700",
	"Mon, 2 Jan 2006 15:04:05 MST",
	"2 Jan 2006 15:04:05 -0700",
}

// ParseDate parses a Date header best-effort. It returns nil for a missing or
// malformed value and never fails.
func ParseDate(h string) *time.Time {
	h = strings.TrimSpace(h)
	if h == "" {
		return nil
	}
	if t, err := mail.ParseDate(h); err == nil {
		return &t
	}
	// Drop a trailing comment such as "(UTC)" or "(PST)".
	if i := strings.LastIndex(h, "("); i > 0 && strings.HasSuffix(h, ")") {
		h = strings.TrimSpace(h[:i])
	}
	for _, l := range dateLayouts {
		if t, err := time.Parse(l, h); err == nil {
			return &t
		}
	}
	return nil
}
