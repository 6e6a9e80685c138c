package repository

import (
	"context"
	"fmt"
	"testing"
	"time"

	"github.com/stretchr/testify/require"

	"github.com/odfmonitor/odf-monitor/internal/document"
	"github.com/odfmonitor/odf-monitor/internal/document/query"
)

const xmlBody = `<?xml version="1.0"?><OdfBody/>`

func seed(r *MemoryRepo, code string, date time.Time, body string) string {
	return r.Insert(&document.Document{
		CompetitionCode: "OG2024",
		DocumentCode:    code,
		DocumentType:    "DT_RESULT",
		Version:         "1",
		Date:            date,
		Content:         body,
	})
}

func TestMemoryRepoFindSortAndPage(t *testing.T) {
	ctx := context.Background()
	r := NewMemoryRepo()
	base := time.Date(2024, 8, 1, 0, 0, 0, 0, time.UTC)
	for i := 0; i < 25; i++ {
		seed(r, fmt.Sprintf("ATH%03d", i), base.Add(time.Duration(i)*time.Hour), xmlBody)
	}

	all, err := r.Find(ctx, query.Predicate{}, FindOptions{})
	require.NoError(t, err)
	require.Len(t, all, 25)
	require.Equal(t, "ATH024", all[0].DocumentCode, "newest first")
	require.Equal(t, "ATH000", all[24].DocumentCode)

	page, err := r.Find(ctx, query.Predicate{}, FindOptions{Skip: 10, Limit: 10})
	require.NoError(t, err)
	require.Len(t, page, 10)
	require.Equal(t, "ATH014", page[0].DocumentCode)

	tail, err := r.Find(ctx, query.Predicate{}, FindOptions{Skip: 20, Limit: 10})
	require.NoError(t, err)
	require.Len(t, tail, 5)

	none, err := r.Find(ctx, query.Predicate{}, FindOptions{Skip: 30, Limit: 10})
	require.NoError(t, err)
	require.Empty(t, none)

	n, err := r.Count(ctx, query.Predicate{})
	require.NoError(t, err)
	require.Equal(t, int64(25), n)
}

func TestMemoryRepoRejectsNegativeSkip(t *testing.T) {
	r := NewMemoryRepo()
	seed(r, "ATH1", time.Now(), xmlBody)
	_, err := r.Find(context.Background(), query.Predicate{}, FindOptions{Skip: -1, Limit: 10})
	require.Error(t, err)
}

func TestMemoryRepoTiesKeepInsertionOrder(t *testing.T) {
	ctx := context.Background()
	r := NewMemoryRepo()
	same := time.Date(2024, 8, 1, 0, 0, 0, 0, time.UTC)
	first := seed(r, "ATH1", same, xmlBody)
	second := seed(r, "ATH2", same, xmlBody)

	for i := 0; i < 3; i++ {
		got, err := r.Find(ctx, query.Predicate{}, FindOptions{})
		require.NoError(t, err)
		require.Equal(t, []string{first, second}, []string{got[0].ID, got[1].ID})
	}
}

func TestMemoryRepoFindByIDAndFindOne(t *testing.T) {
	ctx := context.Background()
	r := NewMemoryRepo()
	id := r.Insert(&document.Document{DocumentCode: "SWM1", ContentHash: "h1", Date: time.Now()})
	require.Len(t, id, 24, "ids are ObjectID hex")

	got, err := r.FindByID(ctx, id)
	require.NoError(t, err)
	require.Equal(t, "SWM1", got.DocumentCode)
	require.False(t, got.CreatedAt.IsZero())

	// returned values are copies
	got.DocumentCode = "changed"
	again, _ := r.FindByID(ctx, id)
	require.Equal(t, "SWM1", again.DocumentCode)

	_, err = r.FindByID(ctx, "missing")
	require.ErrorIs(t, err, ErrNotFound)

	byHash, err := r.FindOne(ctx, query.ContentHash("h1"))
	require.NoError(t, err)
	require.Equal(t, id, byHash.ID)

	_, err = r.FindOne(ctx, query.ContentHash("nope"))
	require.ErrorIs(t, err, ErrNotFound)
}

func TestMemoryRepoXMLDisciplinePrefixes(t *testing.T) {
	ctx := context.Background()
	r := NewMemoryRepo()
	now := time.Now()
	seed(r, "mtiXXXX", now, xmlBody)
	seed(r, "ATH100", now, "  <OdfBody></OdfBody>")
	seed(r, "ATH200", now, xmlBody)
	seed(r, "BOX100", now, `{"json":true}`)
	seed(r, "A1", now, xmlBody)
	seed(r, "12345", now, xmlBody)

	got, err := r.XMLDisciplinePrefixes(ctx)
	require.NoError(t, err)
	require.Equal(t, []string{"ATH", "MTI"}, got)
}

func TestMemoryRepoHonoursContext(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	r := NewMemoryRepo()
	_, err := r.Find(ctx, query.Predicate{}, FindOptions{})
	require.ErrorIs(t, err, context.Canceled)
}

func TestMemoryReferenceRepo(t *testing.T) {
	ctx := context.Background()
	r := NewMemoryReferenceRepo(
		document.DisciplineSetting{Name: "ATH"},
		document.DisciplineSetting{Name: "Modern Pentathlon", Metadata: &document.DisciplineMetadata{Discipline: "MPN"}},
	)
	r.Add(document.DisciplineSetting{Name: "SWM"})

	ok, err := r.Exists(ctx, "MPN")
	require.NoError(t, err)
	require.True(t, ok)
	ok, err = r.Exists(ctx, "Modern Pentathlon")
	require.NoError(t, err)
	require.True(t, ok)
	ok, err = r.Exists(ctx, "ZZZ")
	require.NoError(t, err)
	require.False(t, ok)

	codes, err := r.FindAllCodes(ctx)
	require.NoError(t, err)
	require.Equal(t, []string{"ATH", "MPN", "SWM"}, codes)

	existing, err := r.FindExisting(ctx, []string{"ATH", "MPN", "XXX"})
	require.NoError(t, err)
	require.Equal(t, map[string]struct{}{"ATH": {}, "MPN": {}}, existing)

	empty, err := r.FindExisting(ctx, nil)
	require.NoError(t, err)
	require.Empty(t, empty)
}
