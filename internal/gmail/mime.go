package gmail

import (
	"encoding/base64"
	"mime"
	"strings"

	"github.com/jaytaylor/html2text"
	"golang.org/x/text/encoding/ianaindex"
	"golang.org/x/text/transform"
	gmailv1 "google.golang.org/api/gmail/v1"
)

// NoBody is returned by ExtractBody when no readable part exists.
const NoBody = "No body found."

// BodyOptions tunes body extraction.
type BodyOptions struct {
	// HTMLToText converts an HTML body to plain text instead of returning markup.
	HTMLToText bool
}

// ExtractBody returns the readable text of a message payload.
//
// Only the payload's direct parts are scanned, in order, and the first
// text/plain or text/html part with data wins. Parts nested inside those parts
// are not inspected. A payload without parts is decoded directly.
func ExtractBody(payload *gmailv1.MessagePart, opts BodyOptions) string {
	if payload == nil {
		return NoBody
	}
	if len(payload.Parts) == 0 {
		if text, ok := decodePart(payload); ok {
			if isHTML(payload) && opts.HTMLToText {
				return htmlToText(text)
			}
			return text
		}
		return NoBody
	}
	for _, part := range payload.Parts {
		if part == nil {
			continue
		}
		switch mediaType(part) {
		case "text/plain":
			if text, ok := decodePart(part); ok {
				return text
			}
		case "text/html":
			if text, ok := decodePart(part); ok {
				if opts.HTMLToText {
					return htmlToText(text)
				}
				return text
			}
		}
	}
	return NoBody
}

func mediaType(part *gmailv1.MessagePart) string {
	return strings.ToLower(strings.TrimSpace(part.MimeType))
}

func isHTML(part *gmailv1.MessagePart) bool {
	return mediaType(part) == "text/html"
}

// decodePart base64url-decodes the part's body and converts it to UTF-8 when
// the part declares another charset. Bytes that are still not UTF-8 become
// U+FFFD, so the text is exactly what the results file stores. ok is false
// when there is no data.
func decodePart(part *gmailv1.MessagePart) (string, bool) {
	if part.Body == nil || part.Body.Data == "" {
		return "", false
	}
	b, ok := decodeBase64URL(part.Body.Data)
	if !ok {
		return "", false
	}
	return strings.ToValidUTF8(toUTF8(b, partCharset(part)), "\uFFFD"), true
}

func partCharset(part *gmailv1.MessagePart) string {
	for _, h := range part.Headers {
		if !strings.EqualFold(h.Name, "Content-Type") {
			continue
		}
		_, params, err := mime.ParseMediaType(h.Value)
		if err != nil {
			return ""
		}
		return params["charset"]
	}
	return ""
}

func toUTF8(b []byte, charset string) string {
	cs := strings.ToLower(strings.TrimSpace(charset))
	switch cs {
	case "", "utf-8", "utf8", "us-ascii":
		return string(b)
	}
	enc, err := ianaindex.IANA.Encoding(cs)
	if err != nil || enc == nil {
		return string(b)
	}
	out, _, err := transform.Bytes(enc.NewDecoder(), b)
	if err != nil {
		return string(b)
	}
	return string(out)
}

func htmlToText(html string) string {
	text, err := html2text.FromString(html, html2text.Options{OmitLinks: false})
	if err != nil || strings.TrimSpace(text) == "" {
		return html
	}
	return text
}

// decodeBase64URL accepts both padded and unpadded base64url; Gmail uses
// either depending on the endpoint.
func decodeBase64URL(data string) ([]byte, bool) {
	b, err := base64.URLEncoding.DecodeString(data)
	if err != nil {
		b, err = base64.RawURLEncoding.DecodeString(data)
		if err != nil {
			return nil, false
		}
	}
	return b, true
}
