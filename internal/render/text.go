package render

import (
	"strings"
	"unicode/utf8"

	"github.com/Lllllllleong/underwritingdocumentflow/internal/models"
)

const (
	textWidth    = 72
	bulletMarker = "• "
)

// TextBackend renders the summary as plain text with underlined headings.
type TextBackend struct{}

func (TextBackend) Name() string        { return "text" }
func (TextBackend) Ext() string         { return "txt" }
func (TextBackend) ContentType() string { return "text/plain; charset=utf-8" }

func (TextBackend) Render(rec *models.StructuredRecord) ([]byte, error) {
	var b strings.Builder
	for _, l := range layout(rec) {
		switch l.kind {
		case kindTitle:
			if pad := (textWidth - utf8.RuneCountInString(l.text)) / 2; pad > 0 {
				b.WriteString(strings.Repeat(" ", pad))
			}
			b.WriteString(l.text)
			b.WriteString("\n")
		case kindBlank:
			b.WriteString("\n")
		case kindHeading:
			b.WriteString(l.text)
			b.WriteString("\n")
			b.WriteString(strings.Repeat("_", utf8.RuneCountInString(l.text)))
			b.WriteString("\n")
		case kindSubheading:
			b.WriteString(l.text)
			b.WriteString("\n")
		case kindField:
			b.WriteString(l.label)
			b.WriteString(l.text)
			b.WriteString("\n")
		case kindBullet:
			b.WriteString(bulletMarker)
			b.WriteString(l.text)
			b.WriteString("\n")
		}
	}
	return []byte(b.String()), nil
}
