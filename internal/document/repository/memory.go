package repository

import (
	"context"
	"fmt"
	"regexp"
	"sort"
	"strings"
	"sync"
	"time"

	"go.mongodb.org/mongo-driver/bson/primitive"

	"github.com/odfmonitor/odf-monitor/internal/document"
	"github.com/odfmonitor/odf-monitor/internal/document/content"
	"github.com/odfmonitor/odf-monitor/internal/document/query"
)

var disciplineCode = regexp.MustCompile(`^[A-Z]{3}$`)

// MemoryRepo is an in-memory DocumentStore used for unit tests and local runs
// without MongoDB. Documents keep insertion order for tie-breaking.
type MemoryRepo struct {
	mu    sync.RWMutex
	order []string
	store map[string]*document.Document
}

func NewMemoryRepo() *MemoryRepo {
	return &MemoryRepo{store: make(map[string]*document.Document)}
}

// Insert seeds a document, assigning an ObjectID-style id and audit
// timestamps when absent. The corpus is read-only to the service; this
// exists for fixtures.
func (m *MemoryRepo) Insert(doc *document.Document) string {
	m.mu.Lock()
	defer m.mu.Unlock()
	if doc.ID == "" {
		doc.ID = primitive.NewObjectID().Hex()
	}
	if doc.CreatedAt.IsZero() {
		doc.CreatedAt = time.Now().UTC()
		doc.UpdatedAt = doc.CreatedAt
	}
	if _, ok := m.store[doc.ID]; !ok {
		m.order = append(m.order, doc.ID)
	}
	m.store[doc.ID] = doc
	return doc.ID
}

func (m *MemoryRepo) matching(pred query.Predicate) []*document.Document {
	out := []*document.Document{}
	for _, id := range m.order {
		if d := m.store[id]; pred.Matches(d) {
			out = append(out, d)
		}
	}
	sort.SliceStable(out, func(i, j int) bool { return out[i].Date.After(out[j].Date) })
	return out
}

func (m *MemoryRepo) Find(ctx context.Context, pred query.Predicate, opts FindOptions) ([]*document.Document, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	if opts.Skip < 0 || opts.Limit < 0 {
		return nil, fmt.Errorf("invalid find options: skip=%d limit=%d", opts.Skip, opts.Limit)
	}
	m.mu.RLock()
	defer m.mu.RUnlock()
	all := m.matching(pred)
	if opts.Skip >= int64(len(all)) {
		return []*document.Document{}, nil
	}
	all = all[opts.Skip:]
	if opts.Limit > 0 && opts.Limit < int64(len(all)) {
		all = all[:opts.Limit]
	}
	out := make([]*document.Document, len(all))
	for i, d := range all {
		c := *d
		out[i] = &c
	}
	return out, nil
}

func (m *MemoryRepo) Count(ctx context.Context, pred query.Predicate) (int64, error) {
	if err := ctx.Err(); err != nil {
		return 0, err
	}
	m.mu.RLock()
	defer m.mu.RUnlock()
	return int64(len(m.matching(pred))), nil
}

func (m *MemoryRepo) FindByID(ctx context.Context, id string) (*document.Document, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	m.mu.RLock()
	defer m.mu.RUnlock()
	if d, ok := m.store[id]; ok {
		c := *d
		return &c, nil
	}
	return nil, ErrNotFound
}

func (m *MemoryRepo) FindOne(ctx context.Context, pred query.Predicate) (*document.Document, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	m.mu.RLock()
	defer m.mu.RUnlock()
	for _, id := range m.order {
		if d := m.store[id]; pred.Matches(d) {
			c := *d
			return &c, nil
		}
	}
	return nil, ErrNotFound
}

func (m *MemoryRepo) XMLDisciplinePrefixes(ctx context.Context) ([]string, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	m.mu.RLock()
	defer m.mu.RUnlock()
	seen := map[string]struct{}{}
	for _, d := range m.store {
		if !content.IsXML(d.Content) {
			continue
		}
		code := d.DocumentCode
		if len(code) > 3 {
			code = code[:3]
		}
		code = strings.ToUpper(code)
		if disciplineCode.MatchString(code) {
			seen[code] = struct{}{}
		}
	}
	out := make([]string, 0, len(seen))
	for c := range seen {
		out = append(out, c)
	}
	sort.Strings(out)
	return out, nil
}

// MemoryReferenceRepo is an in-memory ReferenceStore.
type MemoryReferenceRepo struct {
	mu      sync.RWMutex
	entries []document.DisciplineSetting
}

func NewMemoryReferenceRepo(entries ...document.DisciplineSetting) *MemoryReferenceRepo {
	return &MemoryReferenceRepo{entries: append([]document.DisciplineSetting(nil), entries...)}
}

func (m *MemoryReferenceRepo) Add(e document.DisciplineSetting) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.entries = append(m.entries, e)
}

func metadataCode(e document.DisciplineSetting) string {
	if e.Metadata == nil {
		return ""
	}
	return e.Metadata.Discipline
}

func (m *MemoryReferenceRepo) Exists(ctx context.Context, code string) (bool, error) {
	if err := ctx.Err(); err != nil {
		return false, err
	}
	m.mu.RLock()
	defer m.mu.RUnlock()
	for _, e := range m.entries {
		if e.Name == code || metadataCode(e) == code {
			return true, nil
		}
	}
	return false, nil
}

func (m *MemoryReferenceRepo) FindAllCodes(ctx context.Context) ([]string, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	m.mu.RLock()
	defer m.mu.RUnlock()
	out := []string{}
	for _, e := range m.entries {
		if c := e.Code(); c != "" {
			out = append(out, c)
		}
	}
	sort.Strings(out)
	return out, nil
}

func (m *MemoryReferenceRepo) FindExisting(ctx context.Context, codes []string) (map[string]struct{}, error) {
	out := map[string]struct{}{}
	if len(codes) == 0 {
		return out, nil
	}
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	m.mu.RLock()
	defer m.mu.RUnlock()
	return collectExisting(m.entries, codes), nil
}

// collectExisting returns every candidate matched by either the name or the
// metadata.discipline of an entry.
func collectExisting(entries []document.DisciplineSetting, codes []string) map[string]struct{} {
	want := make(map[string]struct{}, len(codes))
	for _, c := range codes {
		want[c] = struct{}{}
	}
	out := map[string]struct{}{}
	for _, e := range entries {
		for _, c := range []string{e.Name, metadataCode(e)} {
			if _, ok := want[c]; ok && c != "" {
				out[c] = struct{}{}
			}
		}
	}
	return out
}
