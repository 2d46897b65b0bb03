package usecase

import (
	"regexp"
	"strings"

	"github.com/kirillkom/pitchroom-backend/internal/core/domain"
)

var placeholderPattern = regexp.MustCompile(`\{\{\s*([a-zA-Z0-9_.]+)\s*\}\}`)

// RenderPrompt substitutes {{key}} placeholders from the context map.
// Placeholders without a mapping render as the empty string, so a stale
// template never leaks raw tokens into a system prompt.
func RenderPrompt(template string, context map[string]string) string {
	return placeholderPattern.ReplaceAllStringFunc(template, func(match string) string {
		key := placeholderPattern.FindStringSubmatch(match)[1]
		return context[key]
	})
}

// RenderDocumentList renders the display documents of a page as a bullet
// list for the documents_display_list placeholder.
func RenderDocumentList(docs []domain.PageDocument) string {
	if len(docs) == 0 {
		return ""
	}
	var b strings.Builder
	for i, doc := range docs {
		if i > 0 {
			b.WriteByte('\n')
		}
		b.WriteString("- ")
		b.WriteString(doc.DisplayTitle)
		if doc.DisplayCaption != "" {
			b.WriteString(": ")
			b.WriteString(doc.DisplayCaption)
		}
	}
	return b.String()
}
