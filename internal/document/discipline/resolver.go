package discipline

import (
	"context"
	"sort"
	"strings"

	"github.com/odfmonitor/odf-monitor/internal/document/repository"
	"github.com/odfmonitor/odf-monitor/pkg/metrics"
)

// Resolver answers which disciplines both occur in stored XML documents and
// are registered in the reference collection.
type Resolver struct {
	docs  repository.DocumentStore
	refs  repository.ReferenceStore
	cache Cache
}

// NewResolver wires a resolver. A nil cache gets a MemoryCache with DefaultTTL.
func NewResolver(docs repository.DocumentStore, refs repository.ReferenceStore, cache Cache) *Resolver {
	if cache == nil {
		cache = NewMemoryCache(DefaultTTL, SystemClock{})
	}
	return &Resolver{docs: docs, refs: refs, cache: cache}
}

// List returns the sorted, uppercased discipline codes. Store failures are
// returned as-is and nothing is cached.
func (r *Resolver) List(ctx context.Context) ([]string, error) {
	if codes, ok := r.cache.Get(ctx); ok {
		metrics.DisciplineCacheLookups.WithLabelValues("hit").Inc()
		return codes, nil
	}
	metrics.DisciplineCacheLookups.WithLabelValues("miss").Inc()

	prefixes, err := r.docs.XMLDisciplinePrefixes(ctx)
	if err != nil {
		return nil, err
	}
	existing, err := r.refs.FindExisting(ctx, prefixes)
	if err != nil {
		return nil, err
	}

	seen := make(map[string]struct{}, len(existing))
	codes := []string{}
	for _, p := range prefixes {
		if _, ok := existing[p]; !ok {
			continue
		}
		up := strings.ToUpper(p)
		if _, dup := seen[up]; dup {
			continue
		}
		seen[up] = struct{}{}
		codes = append(codes, up)
	}
	sort.Strings(codes)

	r.cache.Set(ctx, codes)
	return codes, nil
}

// Exists reports whether code is registered. Lookup is by the uppercased code.
func (r *Resolver) Exists(ctx context.Context, code string) (bool, error) {
	return r.refs.Exists(ctx, strings.ToUpper(code))
}

// Reference lists every registered discipline code.
func (r *Resolver) Reference(ctx context.Context) ([]string, error) {
	return r.refs.FindAllCodes(ctx)
}
