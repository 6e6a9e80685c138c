package document

import "time"

// MaxPageSize bounds a single listing page.
const MaxPageSize = 500

// Document is a stored ODF result artifact. Content is raw XML or JSON and is
// never rewritten by this service.
type Document struct {
	ID              string    `json:"id"`
	CompetitionCode string    `json:"competitionCode"`
	DocumentCode    string    `json:"documentCode"`
	DocumentType    string    `json:"documentType"`
	DocumentSubtype string    `json:"documentSubtype,omitempty"`
	Version         string    `json:"version"`
	Date            time.Time `json:"date"`
	Content         string    `json:"content"`
	ResultStatus    string    `json:"resultStatus,omitempty"`
	UnitCodes       []string  `json:"unitCodes,omitempty"`
	ContentHash     string    `json:"contentHash,omitempty"`
	CreatedAt       time.Time `json:"createdAt"`
	UpdatedAt       time.Time `json:"updatedAt"`
}

// Response is the API projection of a Document. Audit timestamps fall back
// to the document date when the store never set them.
func (d *Document) Response() Document {
	out := *d
	if out.CreatedAt.IsZero() {
		out.CreatedAt = d.Date
	}
	if out.UpdatedAt.IsZero() {
		out.UpdatedAt = d.Date
	}
	return out
}

// Filters narrows a listing. Empty strings and nil dates mean "no filter".
// Discipline, when set, replaces DocumentCode as the documentCode filter.
type Filters struct {
	CompetitionCode string
	DocumentCode    string
	DocumentType    string
	DocumentSubtype string
	Discipline      string
	DateFrom        *time.Time
	DateTo          *time.Time
}

// Pagination is applied only when both fields were supplied by the caller.
type Pagination struct {
	Page     int
	PageSize int
}

// Skip is the number of matching documents before the requested page.
func (p Pagination) Skip() int64 {
	return int64(p.Page-1) * int64(p.PageSize)
}

// ListResult is one page of documents plus the unpaginated match count.
type ListResult struct {
	Documents []Document `json:"documents"`
	Total     int64      `json:"total"`
	Page      int        `json:"page"`
	PageSize  int        `json:"pageSize"`
}

// DisciplineSetting is an entry of the trusted discipline reference collection.
type DisciplineSetting struct {
	Name     string              `json:"name" bson:"name"`
	Metadata *DisciplineMetadata `json:"metadata,omitempty" bson:"metadata,omitempty"`
	DateInfo *DisciplineDates    `json:"dateInfo,omitempty" bson:"dateInfo,omitempty"`
}

type DisciplineMetadata struct {
	Discipline string `json:"discipline,omitempty" bson:"discipline,omitempty"`
	RSCCode    string `json:"rscCode,omitempty" bson:"rscCode,omitempty"`
}

type DisciplineDates struct {
	StartDate time.Time `json:"startDate,omitempty" bson:"startDate,omitempty"`
	EndDate   time.Time `json:"endDate,omitempty" bson:"endDate,omitempty"`
}

// Code is the effective discipline code of the entry: metadata.discipline
// when present, otherwise name.
func (s DisciplineSetting) Code() string {
	if s.Metadata != nil && s.Metadata.Discipline != "" {
		return s.Metadata.Discipline
	}
	return s.Name
}
