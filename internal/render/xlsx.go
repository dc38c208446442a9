package render

import (
	"fmt"
	"unicode/utf8"

	"github.com/xuri/excelize/v2"

	"github.com/Lllllllleong/underwritingdocumentflow/internal/models"
)

const sheetName = "Underwriting Summary"

// XLSXBackend renders the summary as a formatted single-sheet workbook.
type XLSXBackend struct{}

func (XLSXBackend) Name() string { return "xlsx" }
func (XLSXBackend) Ext() string  { return "xlsx" }
func (XLSXBackend) ContentType() string {
	return "application/vnd.openxmlformats-officedocument.spreadsheetml.sheet"
}

type xlsxStyles struct {
	title, heading, subheading, bullet int
}

func (XLSXBackend) Render(rec *models.StructuredRecord) ([]byte, error) {
	f := excelize.NewFile()
	defer f.Close()

	if err := f.SetSheetName("Sheet1", sheetName); err != nil {
		return nil, fmt.Errorf("xlsx sheet: %w", err)
	}
	styles, err := newStyles(f)
	if err != nil {
		return nil, err
	}
	if err := f.SetColWidth(sheetName, "A", "A", 100); err != nil {
		return nil, fmt.Errorf("xlsx column width: %w", err)
	}
	inch := 1.0
	if err := f.SetPageMargins(sheetName, &excelize.PageLayoutMarginsOptions{
		Top: &inch, Bottom: &inch, Left: &inch, Right: &inch,
	}); err != nil {
		return nil, fmt.Errorf("xlsx margins: %w", err)
	}

	for i, l := range layout(rec) {
		cell, err := excelize.CoordinatesToCellName(1, i+1)
		if err != nil {
			return nil, err
		}
		if err := writeLine(f, cell, l, styles); err != nil {
			return nil, fmt.Errorf("xlsx %s: %w", cell, err)
		}
	}

	buf, err := f.WriteToBuffer()
	if err != nil {
		return nil, fmt.Errorf("xlsx write: %w", err)
	}
	return buf.Bytes(), nil
}

func newStyles(f *excelize.File) (xlsxStyles, error) {
	var s xlsxStyles
	var err error
	if s.title, err = f.NewStyle(&excelize.Style{
		Font:      &excelize.Font{Bold: true, Size: 16, Family: "Calibri"},
		Alignment: &excelize.Alignment{Horizontal: "center"},
	}); err != nil {
		return s, fmt.Errorf("xlsx title style: %w", err)
	}
	if s.heading, err = f.NewStyle(&excelize.Style{
		Font: &excelize.Font{Bold: true, Underline: "single"},
	}); err != nil {
		return s, fmt.Errorf("xlsx heading style: %w", err)
	}
	if s.subheading, err = f.NewStyle(&excelize.Style{
		Font: &excelize.Font{Bold: true},
	}); err != nil {
		return s, fmt.Errorf("xlsx subheading style: %w", err)
	}
	if s.bullet, err = f.NewStyle(&excelize.Style{
		Alignment: &excelize.Alignment{Indent: 1, WrapText: true},
	}); err != nil {
		return s, fmt.Errorf("xlsx bullet style: %w", err)
	}
	return s, nil
}

func writeLine(f *excelize.File, cell string, l line, s xlsxStyles) error {
	switch l.kind {
	case kindBlank:
		return nil
	case kindField:
		if err := checkCellLength(l.label + l.text); err != nil {
			return err
		}
		return f.SetCellRichText(sheetName, cell, []excelize.RichTextRun{
			{Text: l.label, Font: &excelize.Font{Bold: true}},
			{Text: l.text},
		})
	case kindBullet:
		return setStyled(f, cell, bulletMarker+l.text, s.bullet)
	case kindTitle:
		return setStyled(f, cell, l.text, s.title)
	case kindHeading:
		return setStyled(f, cell, l.text, s.heading)
	case kindSubheading:
		return setStyled(f, cell, l.text, s.subheading)
	}
	return nil
}

// checkCellLength rejects values excelize would otherwise truncate.
func checkCellLength(value string) error {
	if n := utf8.RuneCountInString(value); n > excelize.TotalCellChars {
		return fmt.Errorf("%w: got %d", excelize.ErrCellCharsLength, n)
	}
	return nil
}

func setStyled(f *excelize.File, cell, value string, style int) error {
	if err := checkCellLength(value); err != nil {
		return err
	}
	if err := f.SetCellValue(sheetName, cell, value); err != nil {
		return err
	}
	return f.SetCellStyle(sheetName, cell, cell, style)
}
