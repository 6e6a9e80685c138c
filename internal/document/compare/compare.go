package compare

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"golang.org/x/sync/errgroup"

	"github.com/odfmonitor/odf-monitor/internal/document"
	"github.com/odfmonitor/odf-monitor/internal/document/repository"
	"github.com/odfmonitor/odf-monitor/pkg/apperr"
	"github.com/odfmonitor/odf-monitor/pkg/metrics"
)

// Mode selects the comparison payload served by a deployment. The two shapes
// are not wire compatible.
type Mode string

const (
	ModeRaw        Mode = "raw"
	ModeStructured Mode = "structured"
)

// ParseMode accepts "raw" or "structured", case-insensitively. Empty means raw.
func ParseMode(s string) (Mode, error) {
	switch Mode(strings.ToLower(strings.TrimSpace(s))) {
	case "", ModeRaw:
		return ModeRaw, nil
	case ModeStructured:
		return ModeStructured, nil
	}
	return "", fmt.Errorf("unknown compare mode %q (want raw or structured)", s)
}

// Finder loads a document by id. repository.DocumentStore satisfies it.
type Finder interface {
	FindByID(ctx context.Context, id string) (*document.Document, error)
}

// Comparison is the payload of a comparison; it marshals to JSON as-is.
type Comparison interface {
	Mode() Mode
}

// Comparator compares two stored documents without modifying them.
type Comparator interface {
	Compare(ctx context.Context, id1, id2 string) (Comparison, error)
}

// New returns the comparator for mode.
func New(mode Mode, store Finder) Comparator {
	if mode == ModeStructured {
		return NewStructured(store)
	}
	return NewRaw(store)
}

// fetchPair loads both documents concurrently. The first failure cancels the
// other fetch and is returned.
func fetchPair(ctx context.Context, store Finder, id1, id2 string) (*document.Document, *document.Document, error) {
	var d1, d2 *document.Document
	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		var err error
		d1, err = fetch(gctx, store, id1)
		return err
	})
	g.Go(func() error {
		var err error
		d2, err = fetch(gctx, store, id2)
		return err
	})
	if err := g.Wait(); err != nil {
		return nil, nil, err
	}
	return d1, d2, nil
}

func fetch(ctx context.Context, store Finder, id string) (*document.Document, error) {
	d, err := store.FindByID(ctx, id)
	if errors.Is(err, repository.ErrNotFound) {
		return nil, apperr.Newf(apperr.CodeNotFound, "document %s not found", id)
	}
	if err != nil {
		return nil, err
	}
	return d, nil
}

func observe(mode Mode, outcome string, err error) {
	if err != nil {
		outcome = string(apperr.CodeOf(err))
	}
	metrics.Comparisons.WithLabelValues(string(mode), outcome).Inc()
}
