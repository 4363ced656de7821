package gmail

import (
	"context"
	"encoding/base64"
	"errors"
	"fmt"
	"io"
	"net/http"

	"github.com/charmbracelet/log"
	gmailv1 "google.golang.org/api/gmail/v1"
	"google.golang.org/api/googleapi"
)

// fakeAPI serves canned pages, messages and attachments.
type fakeAPI struct {
	pages    []*gmailv1.ListMessagesResponse
	pageErrs map[int]error // keyed by 1-based page number
	requests []ListPageRequest

	messages    map[string]*gmailv1.Message
	messageErrs map[string]error

	attachments    map[string]string // attachment id -> base64url data
	attachmentErrs map[string]error
}

func (f *fakeAPI) ListMessages(_ context.Context, req ListPageRequest) (*gmailv1.ListMessagesResponse, error) {
	f.requests = append(f.requests, req)
	n := len(f.requests)
	if err := f.pageErrs[n]; err != nil {
		return nil, err
	}
	if n > len(f.pages) {
		return nil, fmt.Errorf("unexpected page %d", n)
	}
	return f.pages[n-1], nil
}

func (f *fakeAPI) GetMessage(_ context.Context, id string) (*gmailv1.Message, error) {
	if err := f.messageErrs[id]; err != nil {
		return nil, err
	}
	m, ok := f.messages[id]
	if !ok {
		return nil, &googleapi.Error{Code: http.StatusNotFound, Message: "not found"}
	}
	return m, nil
}

func (f *fakeAPI) GetAttachment(_ context.Context, _ string, attachmentID string) (*gmailv1.MessagePartBody, error) {
	if err := f.attachmentErrs[attachmentID]; err != nil {
		return nil, err
	}
	data, ok := f.attachments[attachmentID]
	if !ok {
		return nil, errors.New("no such attachment")
	}
	return &gmailv1.MessagePartBody{AttachmentId: attachmentID, Data: data, Size: int64(len(data))}, nil
}

// memSink records attachment writes and can fail selected names.
type memSink struct {
	files map[string][]byte
	fail  map[string]bool
}

func newMemSink() *memSink {
	return &memSink{files: map[string][]byte{}, fail: map[string]bool{}}
}

func (s *memSink) WriteAttachment(name string, data []byte) error {
	if s.fail[name] {
		return errors.New("disk full")
	}
	s.files[name] = data
	return nil
}

func b64(s string) string {
	return base64.URLEncoding.EncodeToString([]byte(s))
}

func page(next string, ids ...string) *gmailv1.ListMessagesResponse {
	resp := &gmailv1.ListMessagesResponse{NextPageToken: next, ResultSizeEstimate: int64(len(ids))}
	for _, id := range ids {
		resp.Messages = append(resp.Messages, &gmailv1.Message{Id: id})
	}
	return resp
}

func textPart(mime, body string) *gmailv1.MessagePart {
	return &gmailv1.MessagePart{MimeType: mime, Body: &gmailv1.MessagePartBody{Data: b64(body)}}
}

func attachmentPart(filename, attachmentID string) *gmailv1.MessagePart {
	return &gmailv1.MessagePart{
		MimeType: "application/octet-stream",
		Filename: filename,
		Body:     &gmailv1.MessagePartBody{AttachmentId: attachmentID},
	}
}

func header(name, value string) *gmailv1.MessagePartHeader {
	return &gmailv1.MessagePartHeader{Name: name, Value: value}
}

func discardLogger() *log.Logger {
	return log.New(io.Discard)
}
