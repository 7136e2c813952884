package pipeline

import (
	"strings"

	"parlor-chat/internal/domain"
)

// contentEscaper escapes the characters that matter on an untrusted HTML
// rendering surface. Ampersand is escaped first, so applying the sanitizer
// to already-escaped content visibly double-escapes ("&lt;" becomes
// "&amp;lt;"); callers own applying it exactly once.
var contentEscaper = strings.NewReplacer(
	"&", "&amp;",
	"<", "&lt;",
	">", "&gt;",
)

// SanitizeContent trims surrounding whitespace and escapes HTML-sensitive
// characters. Pure and deterministic; stored history is never sanitized,
// this is strictly a read-side view.
func SanitizeContent(content string) string {
	return contentEscaper.Replace(strings.TrimSpace(content))
}

// SanitizeMessage returns a copy of msg with sanitized content. System
// messages pass through the same rule; their content is registry-built
// from display names, which are untrusted input too.
func SanitizeMessage(msg domain.Message) domain.Message {
	msg.Content = SanitizeContent(msg.Content)
	return msg
}

// Sanitized composes the content sanitizer over a live message stream.
// The returned channel closes when in closes.
func Sanitized(in <-chan domain.Message) <-chan domain.Message {
	out := make(chan domain.Message, cap(in))
	go func() {
		defer close(out)
		for msg := range in {
			out <- SanitizeMessage(msg)
		}
	}()
	return out
}
