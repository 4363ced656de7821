package util

import (
	"net/mail"
	"strings"
)

// NormalizeSender reduces a From header to a comparable address: the first
// parsable mailbox, lowercased, with any +tag removed from the local part.
// Dots are kept. Returns "" when no address can be parsed.
func NormalizeSender(fromHeader string) string {
	addr := firstAddress(fromHeader)
	if addr == "" {
		return ""
	}
	email := strings.ToLower(addr)
	at := strings.LastIndexByte(email, '@')
	if at <= 0 {
		return email
	}
	local, domain := email[:at], email[at+1:]
	if plus := strings.IndexByte(local, '+'); plus > -1 {
		local = local[:plus]
	}
	return local + "@" + domain
}

// SenderDomain returns the domain of the normalized sender, or "".
func SenderDomain(fromHeader string) string {
	email := NormalizeSender(fromHeader)
	at := strings.LastIndexByte(email, '@')
	if at < 0 {
		return ""
	}
	return email[at+1:]
}

func firstAddress(header string) string {
	header = strings.TrimSpace(header)
	if header == "" {
		return ""
	}
	if a, err := mail.ParseAddress(header); err == nil {
		return strings.TrimSpace(a.Address)
	}
	if list, err := mail.ParseAddressList(header); err == nil && len(list) > 0 {
		return strings.TrimSpace(list[0].Address)
	}
	// A list with one malformed entry fails as a whole; try each part.
	for _, p := range strings.Split(header, ",") {
		if a, err := mail.ParseAddress(strings.TrimSpace(p)); err == nil {
			return strings.TrimSpace(a.Address)
		}
	}
	return ""
}
