package corpus

import (
	"strings"
)

// RequiredSections are the headings every skill document is expected to carry.
var RequiredSections = []string{"Overview", "Best Practices"}

// SectionReport lists the required sections a document is missing.
type SectionReport struct {
	Path    string   `json:"path"`
	ID      string   `json:"id"`
	Missing []string `json:"missing"`
}

// MissingSections returns the entries of required that do not appear as a
// heading of doc. Matching is case-insensitive on the trimmed heading text.
func MissingSections(doc SkillDocument, required []string) []string {
	have := make(map[string]struct{}, len(doc.Headings))
	for _, h := range doc.Headings {
		have[strings.ToLower(strings.TrimSpace(h))] = struct{}{}
	}
	var missing []string
	for _, r := range required {
		if _, ok := have[strings.ToLower(r)]; !ok {
			missing = append(missing, r)
		}
	}
	return missing
}

// CheckSections parses docs and reports every document missing a required
// section. Documents that fail to parse are reported with Missing set to
// the parse error.
func CheckSections(docs []RawDocument, required []string) []SectionReport {
	var reports []SectionReport
	for _, raw := range docs {
		doc, err := Parse(raw)
		if err != nil {
			reports = append(reports, SectionReport{Path: raw.Path, Missing: []string{"parse error: " + err.Error()}})
			continue
		}
		if missing := MissingSections(doc, required); len(missing) > 0 {
			reports = append(reports, SectionReport{Path: raw.Path, ID: doc.ID, Missing: missing})
		}
	}
	return reports
}
