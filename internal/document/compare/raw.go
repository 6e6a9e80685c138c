package compare

import (
	"context"

	"github.com/odfmonitor/odf-monitor/internal/document/content"
	"github.com/odfmonitor/odf-monitor/pkg/apperr"
)

// RawSide is one document's verbatim XML, for rendering in a diff viewer.
type RawSide struct {
	ID         string `json:"id"`
	XMLContent string `json:"xmlContent"`
}

type RawComparison struct {
	Document1 RawSide `json:"document1"`
	Document2 RawSide `json:"document2"`
}

func (RawComparison) Mode() Mode { return ModeRaw }

// RawComparator returns both XML payloads untouched. Only XML documents can
// be compared.
type RawComparator struct {
	store Finder
}

func NewRaw(store Finder) *RawComparator {
	return &RawComparator{store: store}
}

func (c *RawComparator) Compare(ctx context.Context, id1, id2 string) (res Comparison, err error) {
	defer func() { observe(ModeRaw, "ok", err) }()

	d1, d2, err := fetchPair(ctx, c.store, id1, id2)
	if err != nil {
		return nil, err
	}
	for _, side := range []struct{ id, body string }{{id1, d1.Content}, {id2, d2.Content}} {
		if !content.IsXML(side.body) {
			return nil, apperr.Newf(apperr.CodeValidation,
				"document %s is not XML; comparison is only available for XML documents", side.id)
		}
	}
	return RawComparison{
		Document1: RawSide{ID: d1.ID, XMLContent: d1.Content},
		Document2: RawSide{ID: d2.ID, XMLContent: d2.Content},
	}, nil
}
