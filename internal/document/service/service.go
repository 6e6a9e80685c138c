package service

import (
	"context"
	"errors"
	"math"
	"strings"

	"github.com/odfmonitor/odf-monitor/internal/document"
	"github.com/odfmonitor/odf-monitor/internal/document/compare"
	"github.com/odfmonitor/odf-monitor/internal/document/content"
	"github.com/odfmonitor/odf-monitor/internal/document/discipline"
	"github.com/odfmonitor/odf-monitor/internal/document/query"
	"github.com/odfmonitor/odf-monitor/internal/document/repository"
	"github.com/odfmonitor/odf-monitor/internal/document/reprocess"
	"github.com/odfmonitor/odf-monitor/pkg/apperr"
	"github.com/odfmonitor/odf-monitor/pkg/logger"
)

// Service defines the document operations used by the handler layer and the CLI.
type Service interface {
	List(ctx context.Context, f document.Filters, p *document.Pagination) (*document.ListResult, error)
	Get(ctx context.Context, id string) (*document.Document, error)
	GetParsed(ctx context.Context, id string) (any, error)
	FindByDocumentCode(ctx context.Context, code string) ([]document.Document, error)
	FindByContentHash(ctx context.Context, hash string) (*document.Document, error)
	ListDisciplines(ctx context.Context) ([]string, error)
	ListReferenceDisciplines(ctx context.Context) ([]string, error)
	Compare(ctx context.Context, id1, id2 string) (compare.Comparison, error)
	Reprocess(ctx context.Context, id, backendURL string) (*reprocess.Result, error)
}

// Reprocessor triggers re-ingestion of a document.
type Reprocessor interface {
	Reprocess(ctx context.Context, doc *document.Document, backendURL string) (*reprocess.Result, error)
}

// Deps are the collaborators of the document service.
type Deps struct {
	Docs       repository.DocumentStore
	Resolver   *discipline.Resolver
	Comparator compare.Comparator
	// Reprocessor may be nil, in which case Reprocess needs a backendUrl
	// and allows no host.
	Reprocessor Reprocessor
}

// New returns a Service. A nil Comparator defaults to raw mode.
func New(d Deps) Service {
	if d.Comparator == nil {
		d.Comparator = compare.NewRaw(d.Docs)
	}
	if d.Reprocessor == nil {
		d.Reprocessor = reprocess.NewClient("", nil, 0)
	}
	return &documentService{docs: d.Docs, resolver: d.Resolver, comparator: d.Comparator, reprocessor: d.Reprocessor}
}

type documentService struct {
	docs        repository.DocumentStore
	resolver    *discipline.Resolver
	comparator  compare.Comparator
	reprocessor Reprocessor
}

// ValidatePagination rejects pages below 1, sizes outside 1..MaxPageSize and
// pages whose offset does not fit in an int64.
func ValidatePagination(p *document.Pagination) error {
	if p == nil {
		return nil
	}
	if p.Page < 1 {
		return apperr.New(apperr.CodeBadRequest, "page must be a positive integer")
	}
	if p.PageSize < 1 || p.PageSize > document.MaxPageSize {
		return apperr.Newf(apperr.CodeBadRequest, "pageSize must be between 1 and %d", document.MaxPageSize)
	}
	if int64(p.Page-1) > math.MaxInt64/int64(p.PageSize) {
		return apperr.New(apperr.CodeBadRequest, "page is out of range")
	}
	return nil
}

func (s *documentService) List(ctx context.Context, f document.Filters, p *document.Pagination) (*document.ListResult, error) {
	if err := ValidatePagination(p); err != nil {
		return nil, err
	}
	if f.DateFrom != nil && f.DateTo != nil && f.DateFrom.After(*f.DateTo) {
		return nil, apperr.New(apperr.CodeBadRequest, "dateFrom must not be after dateTo")
	}
	if f.Discipline != "" {
		code := strings.ToUpper(f.Discipline)
		ok, err := s.resolver.Exists(ctx, code)
		if err != nil {
			return nil, err
		}
		if !ok {
			return nil, apperr.Newf(apperr.CodeBadRequest, "%s not found", code)
		}
	}

	pred := query.Build(f)
	logger.Debugf("list documents: filter=%s pagination=%+v", pred, p)
	var opts repository.FindOptions
	if p != nil {
		opts = repository.FindOptions{Skip: p.Skip(), Limit: int64(p.PageSize)}
	}
	docs, err := s.docs.Find(ctx, pred, opts)
	if err != nil {
		return nil, err
	}
	total, err := s.docs.Count(ctx, pred)
	if err != nil {
		return nil, err
	}

	out := &document.ListResult{Documents: responses(docs), Total: total, Page: 1, PageSize: len(docs)}
	if p != nil {
		out.Page, out.PageSize = p.Page, p.PageSize
	}
	return out, nil
}

func responses(docs []*document.Document) []document.Document {
	out := make([]document.Document, 0, len(docs))
	for _, d := range docs {
		out = append(out, d.Response())
	}
	return out
}

func (s *documentService) load(ctx context.Context, id string) (*document.Document, error) {
	d, err := s.docs.FindByID(ctx, id)
	if errors.Is(err, repository.ErrNotFound) {
		return nil, apperr.Newf(apperr.CodeNotFound, "document %s not found", id)
	}
	if err != nil {
		return nil, err
	}
	return d, nil
}

func (s *documentService) Get(ctx context.Context, id string) (*document.Document, error) {
	d, err := s.load(ctx, id)
	if err != nil {
		return nil, err
	}
	r := d.Response()
	return &r, nil
}

func (s *documentService) GetParsed(ctx context.Context, id string) (any, error) {
	d, err := s.load(ctx, id)
	if err != nil {
		return nil, err
	}
	v, kind, err := content.ParseAuto(d.Content)
	if err != nil {
		return nil, apperr.Wrap(err, apperr.CodeParse, "parse "+kind.String()+" content of document "+id)
	}
	return v, nil
}

func (s *documentService) FindByDocumentCode(ctx context.Context, code string) ([]document.Document, error) {
	if strings.TrimSpace(code) == "" {
		return nil, apperr.New(apperr.CodeBadRequest, "documentCode is required")
	}
	docs, err := s.docs.Find(ctx, query.DocumentCodeContains(code), repository.FindOptions{})
	if err != nil {
		return nil, err
	}
	return responses(docs), nil
}

func (s *documentService) FindByContentHash(ctx context.Context, hash string) (*document.Document, error) {
	if strings.TrimSpace(hash) == "" {
		return nil, apperr.New(apperr.CodeBadRequest, "content hash is required")
	}
	d, err := s.docs.FindOne(ctx, query.ContentHash(hash))
	if errors.Is(err, repository.ErrNotFound) {
		return nil, apperr.Newf(apperr.CodeNotFound, "no document with content hash %s", hash)
	}
	if err != nil {
		return nil, err
	}
	r := d.Response()
	return &r, nil
}

func (s *documentService) ListDisciplines(ctx context.Context) ([]string, error) {
	return s.resolver.List(ctx)
}

func (s *documentService) ListReferenceDisciplines(ctx context.Context) ([]string, error) {
	return s.resolver.Reference(ctx)
}

func (s *documentService) Compare(ctx context.Context, id1, id2 string) (compare.Comparison, error) {
	return s.comparator.Compare(ctx, id1, id2)
}

func (s *documentService) Reprocess(ctx context.Context, id, backendURL string) (*reprocess.Result, error) {
	d, err := s.load(ctx, id)
	if err != nil {
		return nil, err
	}
	return s.reprocessor.Reprocess(ctx, d, backendURL)
}
