package models

import "strings"

// NotAvailable is the value the model is told to emit for unknown fields.
const NotAvailable = "N/A"

// StructuredRecord is the fixed-schema representation of one underwriting
// application, as produced by the structuring model.
type StructuredRecord struct {
	Applicant            Applicant             `json:"applicant"`
	UnderwritingSections []UnderwritingSection `json:"underwritingSections"`
	Summary              Summary               `json:"summary"`
}

// Applicant holds the identifying fields of the person applying for cover.
type Applicant struct {
	Name  string `json:"name"`
	DOB   string `json:"dob"`
	State string `json:"state"`
}

// UnderwritingSection is one named area of the application (e.g. "BMI").
type UnderwritingSection struct {
	Section  string      `json:"section"`
	Findings []TextEntry `json:"findings"`
}

// TextEntry wraps a single line of text. The model emits {"text": "..."}.
type TextEntry struct {
	Text string `json:"text"`
}

// Summary is the closing part of the record.
type Summary struct {
	DisclosureSummary []Disclosure `json:"disclosureSummary"`
	RedFlags          []TextEntry  `json:"redFlags"`
}

// Disclosure groups summary bullets under a heading.
type Disclosure struct {
	Heading string      `json:"heading"`
	Bullets []TextEntry `json:"bullets"`
}

// FallbackRecord returns the empty-valued record substituted whenever
// structuring fails.
func FallbackRecord() *StructuredRecord {
	return &StructuredRecord{
		Applicant: Applicant{
			Name:  NotAvailable,
			DOB:   NotAvailable,
			State: NotAvailable,
		},
		UnderwritingSections: []UnderwritingSection{},
		Summary: Summary{
			DisclosureSummary: []Disclosure{},
			RedFlags:          []TextEntry{},
		},
	}
}

// Normalize fills blank applicant fields with "N/A" and replaces nil slices
// with empty ones so the serialized record never carries null collections.
func (r *StructuredRecord) Normalize() {
	r.Applicant.Name = orNotAvailable(r.Applicant.Name)
	r.Applicant.DOB = orNotAvailable(r.Applicant.DOB)
	r.Applicant.State = orNotAvailable(r.Applicant.State)

	if r.UnderwritingSections == nil {
		r.UnderwritingSections = []UnderwritingSection{}
	}
	for i := range r.UnderwritingSections {
		if r.UnderwritingSections[i].Findings == nil {
			r.UnderwritingSections[i].Findings = []TextEntry{}
		}
	}
	if r.Summary.DisclosureSummary == nil {
		r.Summary.DisclosureSummary = []Disclosure{}
	}
	for i := range r.Summary.DisclosureSummary {
		if r.Summary.DisclosureSummary[i].Bullets == nil {
			r.Summary.DisclosureSummary[i].Bullets = []TextEntry{}
		}
	}
	if r.Summary.RedFlags == nil {
		r.Summary.RedFlags = []TextEntry{}
	}
}

// HasSummary reports whether the summary has anything to render.
func (r *StructuredRecord) HasSummary() bool {
	return len(r.Summary.DisclosureSummary) > 0 || len(r.Summary.RedFlags) > 0
}

func orNotAvailable(s string) string {
	if strings.TrimSpace(s) == "" {
		return NotAvailable
	}
	return s
}
