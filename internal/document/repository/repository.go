package repository

import (
	"context"
	"errors"

	"go.mongodb.org/mongo-driver/mongo"

	"github.com/odfmonitor/odf-monitor/internal/document"
	"github.com/odfmonitor/odf-monitor/internal/document/query"
	"github.com/odfmonitor/odf-monitor/pkg/apperr"
)

var (
	ErrNotFound = errors.New("document not found")
)

// FindOptions pages a Find. A zero Limit means no limit.
type FindOptions struct {
	Skip  int64
	Limit int64
}

// DocumentStore is the read side of the ODF document collection. Results of
// Find are ordered by date descending, ties in insertion order.
type DocumentStore interface {
	Find(ctx context.Context, pred query.Predicate, opts FindOptions) ([]*document.Document, error)
	Count(ctx context.Context, pred query.Predicate) (int64, error)
	FindByID(ctx context.Context, id string) (*document.Document, error)
	FindOne(ctx context.Context, pred query.Predicate) (*document.Document, error)
	// XMLDisciplinePrefixes returns the distinct uppercased 3-letter
	// documentCode prefixes of XML documents, sorted ascending.
	XMLDisciplinePrefixes(ctx context.Context) ([]string, error)
}

// ReferenceStore is the trusted discipline reference collection.
type ReferenceStore interface {
	Exists(ctx context.Context, code string) (bool, error)
	FindAllCodes(ctx context.Context) ([]string, error)
	// FindExisting resolves which of codes are registered, in one lookup.
	FindExisting(ctx context.Context, codes []string) (map[string]struct{}, error)
}

// storeErr classifies driver failures: unreachable stores become
// upstream_unavailable, anything else internal_error.
func storeErr(op string, err error) error {
	if err == nil {
		return nil
	}
	if mongo.IsNetworkError(err) || mongo.IsTimeout(err) ||
		errors.Is(err, context.DeadlineExceeded) || errors.Is(err, mongo.ErrClientDisconnected) {
		return apperr.Wrap(err, apperr.CodeUnavailable, op+": store unavailable")
	}
	return apperr.Wrap(err, apperr.CodeInternal, op+": store error")
}
