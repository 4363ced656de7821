package model

import (
	"bytes"
	"encoding/json"
	"time"
)

// Defaults used when a header is absent from the message.
const (
	DefaultSubject   = "No Subject"
	DefaultSender    = "Unknown Sender"
	DefaultRecipient = "Unknown Recipient"
)

// TimestampLayout is how a record's Date is written to the results file.
const TimestampLayout = "2006-01-02 15:04:05"

// HeaderMap maps header name to value. Repeated names keep the last value.
type HeaderMap map[string]string

// MessageRecord is the structured view of one fetched message.
type MessageRecord struct {
	ID          string
	Subject     string
	From        string
	To          string
	Date        *time.Time // nil when the Date header is missing or unparseable
	Body        string
	Attachments []string
}

type recordJSON struct {
	ID          string   `json:"Email ID"`
	Subject     string   `json:"Subject"`
	From        string   `json:"From"`
	To          string   `json:"To"`
	Date        string   `json:"Date,omitempty"`
	Body        string   `json:"Body"`
	Attachments []string `json:"Attachments"`
}

func (r MessageRecord) MarshalJSON() ([]byte, error) {
	out := recordJSON{
		ID:          r.ID,
		Subject:     r.Subject,
		From:        r.From,
		To:          r.To,
		Body:        r.Body,
		Attachments: r.Attachments,
	}
	if out.Attachments == nil {
		out.Attachments = []string{}
	}
	if r.Date != nil {
		out.Date = r.Date.Format(TimestampLayout)
	}
	// Bodies are often HTML; keep <, > and & literal.
	var buf bytes.Buffer
	enc := json.NewEncoder(&buf)
	enc.SetEscapeHTML(false)
	if err := enc.Encode(out); err != nil {
		return nil, err
	}
	return bytes.TrimRight(buf.Bytes(), "\n"), nil
}

// UnmarshalJSON reads a record written by MarshalJSON. The timestamp comes back
// without its original offset (the file format does not carry one).
func (r *MessageRecord) UnmarshalJSON(b []byte) error {
	var in recordJSON
	if err := json.Unmarshal(b, &in); err != nil {
		return err
	}
	*r = MessageRecord{
		ID:          in.ID,
		Subject:     in.Subject,
		From:        in.From,
		To:          in.To,
		Body:        in.Body,
		Attachments: in.Attachments,
	}
	if in.Date != "" {
		if t, err := time.Parse(TimestampLayout, in.Date); err == nil {
			r.Date = &t
		}
	}
	return nil
}

// FetchProgress is a snapshot of run throughput, recomputed after every message.
type FetchProgress struct {
	Processed      int
	Total          int
	ElapsedSeconds float64
	SpeedPerSecond float64
	Remaining      int
	ETASeconds     float64
	RemainingTime  string // "1h 1m 5s" or the calculating sentinel
	ETA            string // wall clock "15:04:05" or the calculating sentinel
	Calculating    bool
}

// Summary describes the outcome of one pipeline run.
type Summary struct {
	SessionID string
	Listed    int
	Processed int
	Skipped   int
	Buckets   int
	Output    string
	Started   time.Time
	Finished  time.Time
}
