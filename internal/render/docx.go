package render

import (
	"archive/zip"
	"bytes"
	"encoding/xml"
	"fmt"

	"github.com/Lllllllleong/underwritingdocumentflow/internal/models"
)

// DOCXBackend renders the summary as a Word document with direct run
// formatting, so no style part is required.
type DOCXBackend struct{}

func (DOCXBackend) Name() string { return "docx" }
func (DOCXBackend) Ext() string  { return "docx" }
func (DOCXBackend) ContentType() string {
	return "application/vnd.openxmlformats-officedocument.wordprocessingml.document"
}

const (
	docxContentTypes = `<?xml version="1.0" encoding="UTF-8" standalone="yes"?>
<Types xmlns="http://schemas.openxmlformats.org/package/2006/content-types">` +
		`<Default Extension="rels" ContentType="application/vnd.openxmlformats-package.relationships+xml"/>` +
		`<Default Extension="xml" ContentType="application/xml"/>` +
		`<Override PartName="/word/document.xml" ContentType="application/vnd.openxmlformats-officedocument.wordprocessingml.document.main+xml"/>` +
		`</Types>`

	docxRels = `<?xml version="1.0" encoding="UTF-8" standalone="yes"?>
<Relationships xmlns="http://schemas.openxmlformats.org/package/2006/relationships">` +
		`<Relationship Id="rId1" Type="http://schemas.openxmlformats.org/officeDocument/2006/relationships/officeDocument" Target="word/document.xml"/>` +
		`</Relationships>`

	docxDocumentOpen = `<?xml version="1.0" encoding="UTF-8" standalone="yes"?>
<w:document xmlns:w="http://schemas.openxmlformats.org/wordprocessingml/2006/main"><w:body>`

	// A4 with one inch margins, in twentieths of a point.
	docxDocumentClose = `<w:sectPr><w:pgSz w:w="11906" w:h="16838"/>` +
		`<w:pgMar w:top="1440" w:right="1440" w:bottom="1440" w:left="1440" w:header="720" w:footer="720" w:gutter="0"/>` +
		`</w:sectPr></w:body></w:document>`
)

func (DOCXBackend) Render(rec *models.StructuredRecord) ([]byte, error) {
	var body bytes.Buffer
	body.WriteString(docxDocumentOpen)
	for _, l := range layout(rec) {
		if err := writeParagraph(&body, l); err != nil {
			return nil, fmt.Errorf("docx paragraph: %w", err)
		}
	}
	body.WriteString(docxDocumentClose)

	var buf bytes.Buffer
	zw := zip.NewWriter(&buf)
	parts := []struct {
		name string
		data []byte
	}{
		{"[Content_Types].xml", []byte(docxContentTypes)},
		{"_rels/.rels", []byte(docxRels)},
		{"word/document.xml", body.Bytes()},
	}
	for _, p := range parts {
		w, err := zw.Create(p.name)
		if err != nil {
			return nil, fmt.Errorf("docx %s: %w", p.name, err)
		}
		if _, err := w.Write(p.data); err != nil {
			return nil, fmt.Errorf("docx %s: %w", p.name, err)
		}
	}
	if err := zw.Close(); err != nil {
		return nil, fmt.Errorf("docx write: %w", err)
	}
	return buf.Bytes(), nil
}

type docxRun struct {
	text            string
	bold, underline bool
	size            int // half-points, 0 keeps the default
}

func writeParagraph(b *bytes.Buffer, l line) error {
	switch l.kind {
	case kindBlank:
		b.WriteString(`<w:p/>`)
		return nil
	case kindTitle:
		return paragraph(b, `<w:jc w:val="center"/>`, docxRun{text: l.text, bold: true, size: 32})
	case kindHeading:
		return paragraph(b, "", docxRun{text: l.text, bold: true, underline: true})
	case kindSubheading:
		return paragraph(b, "", docxRun{text: l.text, bold: true})
	case kindField:
		return paragraph(b, "", docxRun{text: l.label, bold: true}, docxRun{text: l.text})
	case kindBullet:
		return paragraph(b, `<w:ind w:left="360" w:hanging="360"/>`, docxRun{text: bulletMarker + l.text})
	}
	return nil
}

func paragraph(b *bytes.Buffer, props string, runs ...docxRun) error {
	b.WriteString(`<w:p>`)
	if props != "" {
		b.WriteString(`<w:pPr>` + props + `</w:pPr>`)
	}
	for _, r := range runs {
		b.WriteString(`<w:r>`)
		if r.bold || r.underline || r.size > 0 {
			b.WriteString(`<w:rPr>`)
			if r.bold {
				b.WriteString(`<w:b/>`)
			}
			if r.underline {
				b.WriteString(`<w:u w:val="single"/>`)
			}
			if r.size > 0 {
				fmt.Fprintf(b, `<w:sz w:val="%d"/>`, r.size)
			}
			b.WriteString(`</w:rPr>`)
		}
		b.WriteString(`<w:t xml:space="preserve">`)
		if err := xml.EscapeText(b, []byte(r.text)); err != nil {
			return err
		}
		b.WriteString(`</w:t></w:r>`)
	}
	b.WriteString(`</w:p>`)
	return nil
}
