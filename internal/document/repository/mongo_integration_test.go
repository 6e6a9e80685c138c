//go:build integration

package repository

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/require"
	"github.com/testcontainers/testcontainers-go"
	tcmongo "github.com/testcontainers/testcontainers-go/modules/mongodb"
	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"

	"github.com/odfmonitor/odf-monitor/internal/document"
	"github.com/odfmonitor/odf-monitor/internal/document/query"
)

func startMongo(t *testing.T) *mongo.Database {
	t.Helper()
	ctx := context.Background()

	container, err := tcmongo.Run(ctx, "mongo:7")
	if err != nil {
		t.Fatalf("failed to start mongo container: %v", err)
	}
	t.Cleanup(func() { _ = testcontainers.TerminateContainer(container) })

	uri, err := container.ConnectionString(ctx)
	require.NoError(t, err)

	client, err := mongo.Connect(ctx, options.Client().ApplyURI(uri))
	require.NoError(t, err)
	t.Cleanup(func() { _ = client.Disconnect(context.Background()) })
	require.NoError(t, client.Ping(ctx, nil))

	return client.Database("odf_test")
}

func TestMongoRepoIntegration(t *testing.T) {
	ctx, cancel := context.WithTimeout(context.Background(), time.Minute)
	defer cancel()
	db := startMongo(t)
	col := db.Collection("odf_documents")
	repo := NewMongoRepo(col)
	require.NoError(t, repo.EnsureIndexes(ctx))

	base := time.Date(2024, 8, 1, 10, 0, 0, 0, time.UTC)
	_, err := col.InsertMany(ctx, []interface{}{
		bson.M{"competitionCode": "OG2024", "documentCode": "ATHM100M", "documentType": "DT_RESULT", "version": "1", "date": base, "content": `<?xml version="1.0"?><OdfBody/>`, "contentHash": "a"},
		bson.M{"competitionCode": "OG2024", "documentCode": "ath-relay", "documentType": "DT_RESULT", "version": "1", "date": base.Add(time.Hour), "content": ` <OdfBody Foo="1"/>`, "contentHash": "b"},
		bson.M{"competitionCode": "OG2024", "documentCode": "SWM200", "documentType": "DT_SCHEDULE", "version": "2", "date": base.Add(2 * time.Hour), "content": `{"k":1}`, "contentHash": "c"},
		bson.M{"competitionCode": "WCH2025", "documentCode": "MTI_X", "documentType": "DT_RESULT", "version": "1", "date": base, "content": `<OdfBody/>`},
	})
	require.NoError(t, err)

	docs, err := repo.Find(ctx, query.Build(document.Filters{Discipline: "ATH"}), FindOptions{})
	require.NoError(t, err)
	require.Len(t, docs, 2)
	require.Equal(t, "ath-relay", docs[0].DocumentCode)

	n, err := repo.Count(ctx, query.Build(document.Filters{CompetitionCode: "OG2024"}))
	require.NoError(t, err)
	require.Equal(t, int64(3), n)

	page, err := repo.Find(ctx, query.Predicate{}, FindOptions{Skip: 1, Limit: 2})
	require.NoError(t, err)
	require.Len(t, page, 2)

	got, err := repo.FindByID(ctx, docs[0].ID)
	require.NoError(t, err)
	require.Equal(t, docs[0].ContentHash, got.ContentHash)

	_, err = repo.FindByID(ctx, "not-an-object-id")
	require.ErrorIs(t, err, ErrNotFound)

	byHash, err := repo.FindOne(ctx, query.ContentHash("c"))
	require.NoError(t, err)
	require.Equal(t, "SWM200", byHash.DocumentCode)

	prefixes, err := repo.XMLDisciplinePrefixes(ctx)
	require.NoError(t, err)
	require.Equal(t, []string{"ATH", "MTI"}, prefixes)
}

func TestMongoReferenceRepoIntegration(t *testing.T) {
	ctx, cancel := context.WithTimeout(context.Background(), time.Minute)
	defer cancel()
	db := startMongo(t)
	col := db.Collection("discipline-settings")
	refs := NewMongoReferenceRepo(col)
	require.NoError(t, refs.EnsureIndexes(ctx))

	_, err := col.InsertMany(ctx, []interface{}{
		bson.M{"name": "ATH"},
		bson.M{"name": "Modern Pentathlon", "metadata": bson.M{"discipline": "MPN", "rscCode": "MPN"}},
	})
	require.NoError(t, err)

	ok, err := refs.Exists(ctx, "MPN")
	require.NoError(t, err)
	require.True(t, ok)
	ok, err = refs.Exists(ctx, "ZZZ")
	require.NoError(t, err)
	require.False(t, ok)

	codes, err := refs.FindAllCodes(ctx)
	require.NoError(t, err)
	require.Equal(t, []string{"ATH", "MPN"}, codes)

	existing, err := refs.FindExisting(ctx, []string{"ATH", "MPN", "MTI"})
	require.NoError(t, err)
	require.Len(t, existing, 2)
}
