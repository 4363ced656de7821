package gmail

import (
	"context"
	"errors"
	"testing"
	"time"

	"mailbucket/internal/model"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	gmailv1 "google.golang.org/api/gmail/v1"
)

func TestFetchRecord_FullMessage(t *testing.T) {
	msg := messageWithParts("m1",
		textPart("text/plain", "Thanks for applying"),
		attachmentPart("offer.pdf", "att-1"),
	)
	msg.Payload.Headers = []*gmailv1.MessagePartHeader{
		header("Subject", "Your application was sent to Acme"),
		header("From", "LinkedIn <jobs-noreply@linkedin.com>"),
		header("To", "me@example.com"),
		header("Date", "Mon, 07 Apr 2025 14:31:02 +0000"),
	}
	api := &fakeAPI{
		messages:    map[string]*gmailv1.Message{"m1": msg},
		attachments: map[string]string{"att-1": b64("pdf")},
	}
	sink := newMemSink()

	rec, err := FetchRecord(context.Background(), api, "m1", RecordOptions{Attachments: api, Sink: sink, Logger: discardLogger()})
	require.NoError(t, err)

	assert.Equal(t, "m1", rec.ID)
	assert.Equal(t, "Your application was sent to Acme", rec.Subject)
	assert.Equal(t, "LinkedIn <jobs-noreply@linkedin.com>", rec.From)
	assert.Equal(t, "me@example.com", rec.To)
	require.NotNil(t, rec.Date)
	assert.Equal(t, time.Date(2025, time.April, 7, 14, 31, 2, 0, time.UTC), rec.Date.UTC())
	assert.Equal(t, "Thanks for applying", rec.Body)
	assert.Equal(t, []string{"offer.pdf"}, rec.Attachments)
	assert.Equal(t, []byte("pdf"), sink.files["offer.pdf"])
}

func TestFetchRecord_Defaults(t *testing.T) {
	msg := &gmailv1.Message{Id: "m2", Payload: &gmailv1.MessagePart{MimeType: "text/plain"}}
	api := &fakeAPI{messages: map[string]*gmailv1.Message{"m2": msg}}

	rec, err := FetchRecord(context.Background(), api, "m2", RecordOptions{Logger: discardLogger()})
	require.NoError(t, err)

	assert.Equal(t, model.DefaultSubject, rec.Subject)
	assert.Equal(t, model.DefaultSender, rec.From)
	assert.Equal(t, model.DefaultRecipient, rec.To)
	assert.Nil(t, rec.Date)
	assert.Equal(t, NoBody, rec.Body)
	assert.NotNil(t, rec.Attachments)
	assert.Empty(t, rec.Attachments)
}

func TestFetchRecord_MalformedDateIsNil(t *testing.T) {
	msg := &gmailv1.Message{Id: "m3", Payload: &gmailv1.MessagePart{
		Headers: []*gmailv1.MessagePartHeader{header("Date", "sometime last week")},
	}}
	api := &fakeAPI{messages: map[string]*gmailv1.Message{"m3": msg}}

	rec, err := FetchRecord(context.Background(), api, "m3", RecordOptions{})
	require.NoError(t, err)
	assert.Nil(t, rec.Date)
}

func TestFetchRecord_PropagatesFetchError(t *testing.T) {
	boom := errors.New("connection reset")
	api := &fakeAPI{messageErrs: map[string]error{"m4": boom}}

	_, err := FetchRecord(context.Background(), api, "m4", RecordOptions{})
	assert.ErrorIs(t, err, boom)
}

func TestFetchRecord_MissingPayload(t *testing.T) {
	api := &fakeAPI{messages: map[string]*gmailv1.Message{"m5": {Id: "m5"}}}
	_, err := FetchRecord(context.Background(), api, "m5", RecordOptions{})
	assert.Error(t, err)
}

func TestHeaders_LastOccurrenceWins(t *testing.T) {
	payload := &gmailv1.MessagePart{Headers: []*gmailv1.MessagePartHeader{
		header("Received", "first hop"),
		header("Subject", "one"),
		header("Received", "second hop"),
		header("Subject", "two"),
	}}
	h := Headers(payload)
	assert.Equal(t, "two", h["Subject"])
	assert.Equal(t, "second hop", h["Received"])
	assert.Len(t, h, 2)
}

func TestParseDate(t *testing.T) {
	tests := []struct {
		in   string
		want time.Time
		ok   bool
	}{
		{"Mon, 07 Apr 2025 14:31:02 +0000", time.Date(2025, 4, 7, 14, 31, 2, 0, time.UTC), true},
		{"Tue, 2 Jan 2024 09:00:00 -0500", time.Date(2024, 1, 2, 14, 0, 0, 0, time.UTC), true},
		{"Tue, 2 Jan 2024 09:00:00 +0000 (UTC)", time.Date(2024, 1, 2, 9, 0, 0, 0, time.UTC), true},
		{"2024-01-02T09:00:00Z", time.Date(2024, 1, 2, 9, 0, 0, 0, time.UTC), true},
		{"", time.Time{}, false},
		{"not a date", time.Time{}, false},
	}
	for _, tc := range tests {
		got := ParseDate(tc.in)
		if !tc.ok {
			assert.Nil(t, got, "ParseDate(%q)", tc.in)
			continue
		}
		if assert.NotNil(t, got, "ParseDate(%q)", tc.in) {
			assert.True(t, tc.want.Equal(*got), "ParseDate(%q) = %v; want %v", tc.in, *got, tc.want)
		}
	}
}

func TestParseDate_KeepsOriginalOffset(t *testing.T) {
	got := ParseDate("Tue, 2 Jan 2024 23:30:00 -0300")
	require.NotNil(t, got)
	_, offset := got.Zone()
	assert.Equal(t, -3*3600, offset)
	assert.Equal(t, 2, got.Day())
}
