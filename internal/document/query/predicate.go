package query

import (
	"regexp"
	"strings"
	"time"

	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/bson/primitive"

	"github.com/odfmonitor/odf-monitor/internal/document"
)

// Stored field names.
const (
	FieldCompetitionCode = "competitionCode"
	FieldDocumentCode    = "documentCode"
	FieldDocumentType    = "documentType"
	FieldDocumentSubtype = "documentSubtype"
	FieldDate            = "date"
	FieldContentHash     = "contentHash"
)

// Op is the comparison a Term applies to its field.
type Op int

const (
	OpEq Op = iota
	// OpRegex is a case-insensitive match against Pattern.
	OpRegex
	// OpRange bounds a date field by From and/or To, both inclusive.
	OpRange
)

// Term is one conjunct of a Predicate. Only the bounds a caller supplied are
// set on a range term.
type Term struct {
	Field   string
	Op      Op
	Value   string
	Pattern string
	From    *time.Time
	To      *time.Time
}

// Predicate is an immutable conjunction of terms. The zero value matches
// every document.
type Predicate struct {
	terms []Term
}

// Build maps filters onto a predicate, in priority order:
// competitionCode, discipline (else documentCode), documentType,
// documentSubtype, date range.
func Build(f document.Filters) Predicate {
	var terms []Term
	if f.CompetitionCode != "" {
		terms = append(terms, Term{Field: FieldCompetitionCode, Op: OpEq, Value: f.CompetitionCode})
	}
	switch {
	case f.Discipline != "":
		terms = append(terms, Term{Field: FieldDocumentCode, Op: OpRegex, Value: f.Discipline, Pattern: PrefixPattern(f.Discipline)})
	case f.DocumentCode != "":
		terms = append(terms, Term{Field: FieldDocumentCode, Op: OpRegex, Value: f.DocumentCode, Pattern: ContainsPattern(f.DocumentCode)})
	}
	if f.DocumentType != "" {
		terms = append(terms, Term{Field: FieldDocumentType, Op: OpEq, Value: f.DocumentType})
	}
	if f.DocumentSubtype != "" {
		terms = append(terms, Term{Field: FieldDocumentSubtype, Op: OpEq, Value: f.DocumentSubtype})
	}
	if f.DateFrom != nil || f.DateTo != nil {
		terms = append(terms, Term{Field: FieldDate, Op: OpRange, From: f.DateFrom, To: f.DateTo})
	}
	return Predicate{terms: terms}
}

// DocumentCodeContains matches documents whose code contains code, ignoring case.
func DocumentCodeContains(code string) Predicate {
	return Build(document.Filters{DocumentCode: code})
}

// ContentHash matches the document with the given fingerprint.
func ContentHash(hash string) Predicate {
	return Predicate{terms: []Term{{Field: FieldContentHash, Op: OpEq, Value: hash}}}
}

// PrefixPattern anchors the literal s at the start of the value.
func PrefixPattern(s string) string {
	return "^" + regexp.QuoteMeta(s)
}

// ContainsPattern matches the literal s anywhere in the value.
func ContainsPattern(s string) string {
	return regexp.QuoteMeta(s)
}

// Terms returns a copy of the predicate's terms.
func (p Predicate) Terms() []Term {
	out := make([]Term, len(p.terms))
	copy(out, p.terms)
	return out
}

// IsEmpty reports whether the predicate matches everything.
func (p Predicate) IsEmpty() bool { return len(p.terms) == 0 }

// BSON renders the predicate as a MongoDB filter document.
func (p Predicate) BSON() bson.D {
	out := bson.D{}
	for _, t := range p.terms {
		switch t.Op {
		case OpEq:
			out = append(out, bson.E{Key: t.Field, Value: t.Value})
		case OpRegex:
			out = append(out, bson.E{Key: t.Field, Value: primitive.Regex{Pattern: t.Pattern, Options: "i"}})
		case OpRange:
			bounds := bson.D{}
			if t.From != nil {
				bounds = append(bounds, bson.E{Key: "$gte", Value: *t.From})
			}
			if t.To != nil {
				bounds = append(bounds, bson.E{Key: "$lte", Value: *t.To})
			}
			out = append(out, bson.E{Key: t.Field, Value: bounds})
		}
	}
	return out
}

// Matches evaluates the predicate against d in process.
func (p Predicate) Matches(d *document.Document) bool {
	for _, t := range p.terms {
		if !t.matches(d) {
			return false
		}
	}
	return true
}

func (t Term) matches(d *document.Document) bool {
	switch t.Op {
	case OpEq:
		return stringField(d, t.Field) == t.Value
	case OpRegex:
		re, err := regexp.Compile("(?i)" + t.Pattern)
		if err != nil {
			return false
		}
		return re.MatchString(stringField(d, t.Field))
	case OpRange:
		if t.From != nil && d.Date.Before(*t.From) {
			return false
		}
		if t.To != nil && d.Date.After(*t.To) {
			return false
		}
		return true
	}
	return false
}

func stringField(d *document.Document, field string) string {
	switch field {
	case FieldCompetitionCode:
		return d.CompetitionCode
	case FieldDocumentCode:
		return d.DocumentCode
	case FieldDocumentType:
		return d.DocumentType
	case FieldDocumentSubtype:
		return d.DocumentSubtype
	case FieldContentHash:
		return d.ContentHash
	}
	return ""
}

// String is a compact human-readable form used in debug logs.
func (p Predicate) String() string {
	if p.IsEmpty() {
		return "{}"
	}
	parts := make([]string, 0, len(p.terms))
	for _, t := range p.terms {
		switch t.Op {
		case OpEq:
			parts = append(parts, t.Field+"="+t.Value)
		case OpRegex:
			parts = append(parts, t.Field+"~/"+t.Pattern+"/i")
		case OpRange:
			s := t.Field + " in ["
			if t.From != nil {
				s += t.From.Format(time.RFC3339)
			}
			s += ","
			if t.To != nil {
				s += t.To.Format(time.RFC3339)
			}
			parts = append(parts, s+"]")
		}
	}
	return "{" + strings.Join(parts, " AND ") + "}"
}
