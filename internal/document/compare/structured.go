package compare

import (
	"context"

	"github.com/google/go-cmp/cmp"

	"github.com/odfmonitor/odf-monitor/internal/document"
	"github.com/odfmonitor/odf-monitor/internal/document/content"
)

// Content difference kinds.
const (
	KindXML   = "xml"
	KindJSON  = "json"
	KindMixed = "mixed"
	KindError = "error"
)

type FieldDifference struct {
	Field     string `json:"field"`
	Document1 string `json:"document1"`
	Document2 string `json:"document2"`
}

// ContentDifference is reported when the raw payloads differ. Parsed trees
// are only present for kind xml. Equivalent marks XML payloads whose trees
// are equal and that differ only in formatting.
type ContentDifference struct {
	Kind            string `json:"kind"`
	Document1Parsed any    `json:"document1Parsed,omitempty"`
	Document2Parsed any    `json:"document2Parsed,omitempty"`
	Document1Raw    string `json:"document1Raw"`
	Document2Raw    string `json:"document2Raw"`
	Error           string `json:"error,omitempty"`
	Equivalent      bool   `json:"equivalent,omitempty"`
}

type StructuredComparison struct {
	Document1ID string             `json:"document1Id"`
	Document2ID string             `json:"document2Id"`
	Identical   bool               `json:"identical"`
	Differences []FieldDifference  `json:"differences"`
	Content     *ContentDifference `json:"content,omitempty"`
}

func (StructuredComparison) Mode() Mode { return ModeStructured }

// StructuredComparator reports metadata field differences and a content
// difference. A content parse failure becomes an error entry; it never
// fails the comparison.
type StructuredComparator struct {
	store Finder
}

func NewStructured(store Finder) *StructuredComparator {
	return &StructuredComparator{store: store}
}

func (c *StructuredComparator) Compare(ctx context.Context, id1, id2 string) (res Comparison, err error) {
	outcome := "identical"
	defer func() { observe(ModeStructured, outcome, err) }()

	d1, d2, err := fetchPair(ctx, c.store, id1, id2)
	if err != nil {
		return nil, err
	}
	out := Diff(d1, d2)
	if !out.Identical {
		outcome = "different"
	}
	return out, nil
}

// Diff compares two loaded documents.
func Diff(d1, d2 *document.Document) StructuredComparison {
	out := StructuredComparison{
		Document1ID: d1.ID,
		Document2ID: d2.ID,
		Differences: []FieldDifference{},
	}
	fields := []struct{ name, a, b string }{
		{"competitionCode", d1.CompetitionCode, d2.CompetitionCode},
		{"documentCode", d1.DocumentCode, d2.DocumentCode},
		{"documentType", d1.DocumentType, d2.DocumentType},
		{"version", d1.Version, d2.Version},
	}
	for _, f := range fields {
		if f.a != f.b {
			out.Differences = append(out.Differences, FieldDifference{Field: f.name, Document1: f.a, Document2: f.b})
		}
	}
	if d1.Content != d2.Content {
		out.Content = diffContent(d1.Content, d2.Content)
	}
	out.Identical = len(out.Differences) == 0 && out.Content == nil
	return out
}

func diffContent(raw1, raw2 string) *ContentDifference {
	cd := &ContentDifference{Document1Raw: raw1, Document2Raw: raw2}
	x1, x2 := content.IsXML(raw1), content.IsXML(raw2)
	switch {
	case x1 && x2:
	case !x1 && !x2:
		cd.Kind = KindJSON
		return cd
	default:
		cd.Kind = KindMixed
		return cd
	}

	t1, err := content.Parse(raw1, content.KindXML)
	if err != nil {
		cd.Kind, cd.Error = KindError, "document1: "+err.Error()
		return cd
	}
	t2, err := content.Parse(raw2, content.KindXML)
	if err != nil {
		cd.Kind, cd.Error = KindError, "document2: "+err.Error()
		return cd
	}
	cd.Kind = KindXML
	cd.Document1Parsed, cd.Document2Parsed = t1, t2
	cd.Equivalent = cmp.Equal(t1, t2)
	return cd
}
