package bucket

import (
	"bytes"
	"encoding/json"
	"fmt"
	"io"
	"os"
	"path/filepath"

	"mailbucket/internal/model"
)

// DefaultFileName is the conventional name of the results document.
const DefaultFileName = "email_results.json"

// Result is the finalized aggregation. It encodes as a JSON object whose keys
// keep the slice order.
type Result []Bucket

// Records returns how many records the result holds.
func (r Result) Records() int {
	n := 0
	for _, b := range r {
		n += len(b.Records)
	}
	return n
}

func (r Result) MarshalJSON() ([]byte, error) {
	var buf bytes.Buffer
	buf.WriteByte('{')
	for i, b := range r {
		if i > 0 {
			buf.WriteByte(',')
		}
		if err := encodeTo(&buf, b.Key); err != nil {
			return nil, err
		}
		buf.WriteByte(':')
		records := b.Records
		if records == nil {
			records = []model.MessageRecord{}
		}
		if err := encodeTo(&buf, records); err != nil {
			return nil, err
		}
	}
	buf.WriteByte('}')
	return buf.Bytes(), nil
}

// UnmarshalJSON reads the object back in document order.
func (r *Result) UnmarshalJSON(b []byte) error {
	dec := json.NewDecoder(bytes.NewReader(b))
	tok, err := dec.Token()
	if err != nil {
		return err
	}
	if d, ok := tok.(json.Delim); !ok || d != '{' {
		return fmt.Errorf("results: expected object, got %v", tok)
	}
	out := Result{}
	for dec.More() {
		tok, err := dec.Token()
		if err != nil {
			return err
		}
		key, ok := tok.(string)
		if !ok {
			return fmt.Errorf("results: expected key, got %v", tok)
		}
		var records []model.MessageRecord
		if err := dec.Decode(&records); err != nil {
			return fmt.Errorf("results: bucket %q: %w", key, err)
		}
		out = append(out, Bucket{Key: key, Records: records})
	}
	if _, err := dec.Token(); err != nil {
		return err
	}
	*r = out
	return nil
}

// Encode writes r as indented UTF-8 JSON. Non-ASCII text and HTML
// characters are written literally.
func Encode(w io.Writer, r Result) error {
	enc := json.NewEncoder(w)
	enc.SetEscapeHTML(false)
	enc.SetIndent("", "  ")
	return enc.Encode(r)
}

// WriteFile stores r at path, replacing any previous file only once the new
// content is fully written.
func WriteFile(path string, r Result) error {
	if dir := filepath.Dir(path); dir != "" {
		if err := os.MkdirAll(dir, 0o755); err != nil {
			return fmt.Errorf("create results dir: %w", err)
		}
	}
	tmp := path + ".tmp"
	f, err := os.Create(tmp)
	if err != nil {
		return fmt.Errorf("create results file: %w", err)
	}
	if err := Encode(f, r); err != nil {
		f.Close()
		os.Remove(tmp)
		return fmt.Errorf("encode results: %w", err)
	}
	if err := f.Close(); err != nil {
		os.Remove(tmp)
		return fmt.Errorf("close results file: %w", err)
	}
	if err := os.Rename(tmp, path); err != nil {
		return fmt.Errorf("rename results file: %w", err)
	}
	return nil
}

// ReadFile loads a results document written by WriteFile.
func ReadFile(path string) (Result, error) {
	b, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read results: %w", err)
	}
	var r Result
	if err := json.Unmarshal(b, &r); err != nil {
		return nil, fmt.Errorf("parse results: %w", err)
	}
	return r, nil
}

func encodeTo(buf *bytes.Buffer, v any) error {
	enc := json.NewEncoder(buf)
	enc.SetEscapeHTML(false)
	if err := enc.Encode(v); err != nil {
		return err
	}
	// Encode terminates each value with a newline.
	buf.Truncate(buf.Len() - 1)
	return nil
}
