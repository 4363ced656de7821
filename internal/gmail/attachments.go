package gmail

import (
	"context"
	"errors"
	"fmt"
	"os"
	"path/filepath"

	"github.com/charmbracelet/log"
	gmailv1 "google.golang.org/api/gmail/v1"
)

// AttachmentSink stores decoded attachment bytes under a file name.
type AttachmentSink interface {
	WriteAttachment(name string, data []byte) error
}

// DirSink writes attachments into Dir, creating it on first use. Existing
// files with the same name are overwritten.
type DirSink struct {
	Dir string
}

func (s DirSink) WriteAttachment(name string, data []byte) error {
	if err := os.MkdirAll(s.Dir, 0o755); err != nil {
		return fmt.Errorf("create attachment dir: %w", err)
	}
	return os.WriteFile(filepath.Join(s.Dir, name), data, 0o644)
}

// SaveAttachments downloads every direct part of msg that has both a file
// name and an attachment id and hands the bytes to sink. A failing attachment
// is logged and skipped. The returned names are in part order.
func SaveAttachments(ctx context.Context, getter AttachmentGetter, msg *gmailv1.Message, sink AttachmentSink, logger *log.Logger) []string {
	names := []string{}
	if msg == nil || msg.Payload == nil {
		return names
	}
	if logger == nil {
		logger = log.Default()
	}
	for _, part := range msg.Payload.Parts {
		if part == nil || part.Filename == "" || part.Body == nil || part.Body.AttachmentId == "" {
			continue
		}
		if err := saveAttachment(ctx, getter, msg.Id, part, sink); err != nil {
			logger.Error("skipping attachment", "id", msg.Id, "file", part.Filename, "error", err)
			continue
		}
		names = append(names, part.Filename)
	}
	return names
}

func saveAttachment(ctx context.Context, getter AttachmentGetter, messageID string, part *gmailv1.MessagePart, sink AttachmentSink) error {
	name := filepath.Base(part.Filename)
	if name == "." || name == ".." || name == string(filepath.Separator) {
		return fmt.Errorf("unusable file name %q", part.Filename)
	}
	body, err := getter.GetAttachment(ctx, messageID, part.Body.AttachmentId)
	if err != nil {
		return fmt.Errorf("get attachment: %w", err)
	}
	if body == nil {
		return errors.New("get attachment: empty response")
	}
	data, ok := decodeBase64URL(body.Data)
	if !ok {
		return errors.New("decode attachment: invalid base64url")
	}
	if err := sink.WriteAttachment(name, data); err != nil {
		return fmt.Errorf("write attachment: %w", err)
	}
	return nil
}
