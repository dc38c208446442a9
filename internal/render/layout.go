package render

import (
	"strings"

	"github.com/Lllllllleong/underwritingdocumentflow/internal/models"
)

// Title is the document title every backend renders.
const Title = "Underwriting Summary"

// lineKind says how a backend should style a line.
type lineKind int

const (
	kindTitle lineKind = iota
	kindBlank
	kindHeading    // bold and underlined
	kindSubheading // bold
	kindField      // bold label followed by a plain value
	kindBullet
)

type line struct {
	kind  lineKind
	text  string
	label string // kindField only
}

// Keep reports whether a finding or bullet text should be rendered. Empty,
// whitespace-only and "N/A" texts are omitted.
func Keep(text string) bool {
	t := strings.TrimSpace(text)
	return t != "" && t != models.NotAvailable
}

// layout flattens a record into the ordered lines all backends share, so the
// formatted and plain-text documents carry the same structure.
func layout(rec *models.StructuredRecord) []line {
	lines := []line{
		{kind: kindTitle, text: Title},
		{kind: kindBlank},
		{kind: kindHeading, text: "Applicant Information"},
		{kind: kindField, label: "Name: ", text: rec.Applicant.Name},
		{kind: kindField, label: "DOB: ", text: rec.Applicant.DOB},
		{kind: kindField, label: "State: ", text: rec.Applicant.State},
		{kind: kindBlank},
	}

	for _, section := range rec.UnderwritingSections {
		if name := strings.TrimSpace(section.Section); name != "" {
			lines = append(lines, line{kind: kindHeading, text: name})
		}
		lines = appendBullets(lines, section.Findings)
		lines = append(lines, line{kind: kindBlank})
	}

	if !rec.HasSummary() {
		return lines
	}
	lines = append(lines, line{kind: kindHeading, text: "Summary"})

	if len(rec.Summary.DisclosureSummary) > 0 {
		lines = append(lines, line{kind: kindBlank}, line{kind: kindSubheading, text: "Disclosure Summary"})
		for _, d := range rec.Summary.DisclosureSummary {
			heading := strings.TrimSpace(d.Heading)
			if heading == "" {
				continue
			}
			lines = append(lines, line{kind: kindSubheading, text: heading})
			lines = appendBullets(lines, d.Bullets)
			lines = append(lines, line{kind: kindBlank})
		}
	}

	if len(rec.Summary.RedFlags) > 0 {
		lines = append(lines, line{kind: kindSubheading, text: "Red Flags"})
		lines = appendBullets(lines, rec.Summary.RedFlags)
	}
	return lines
}

func appendBullets(lines []line, entries []models.TextEntry) []line {
	for _, e := range entries {
		if Keep(e.Text) {
			lines = append(lines, line{kind: kindBullet, text: strings.TrimSpace(e.Text)})
		}
	}
	return lines
}
