package repository

import (
	"context"
	"errors"
	"fmt"
	"sort"
	"time"

	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/bson/primitive"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"

	"github.com/odfmonitor/odf-monitor/internal/document"
	"github.com/odfmonitor/odf-monitor/internal/document/query"
)

// documentEntity is the stored shape of an ODF document. createdAt and
// updatedAt are written by the ingestion path and may be missing.
type documentEntity struct {
	ID              primitive.ObjectID `bson:"_id,omitempty"`
	CompetitionCode string             `bson:"competitionCode"`
	DocumentCode    string             `bson:"documentCode"`
	DocumentType    string             `bson:"documentType"`
	DocumentSubtype string             `bson:"documentSubtype,omitempty"`
	Version         string             `bson:"version"`
	Date            time.Time          `bson:"date"`
	Content         string             `bson:"content"`
	ResultStatus    string             `bson:"resultStatus,omitempty"`
	UnitCodes       []string           `bson:"unitCodes,omitempty"`
	ContentHash     string             `bson:"contentHash,omitempty"`
	CreatedAt       time.Time          `bson:"createdAt,omitempty"`
	UpdatedAt       time.Time          `bson:"updatedAt,omitempty"`
}

func (e *documentEntity) toModel() *document.Document {
	return &document.Document{
		ID:              e.ID.Hex(),
		CompetitionCode: e.CompetitionCode,
		DocumentCode:    e.DocumentCode,
		DocumentType:    e.DocumentType,
		DocumentSubtype: e.DocumentSubtype,
		Version:         e.Version,
		Date:            e.Date,
		Content:         e.Content,
		ResultStatus:    e.ResultStatus,
		UnitCodes:       e.UnitCodes,
		ContentHash:     e.ContentHash,
		CreatedAt:       e.CreatedAt,
		UpdatedAt:       e.UpdatedAt,
	}
}

// listSort orders by date descending; _id ascending keeps ties in insertion order.
var listSort = bson.D{{Key: "date", Value: -1}, {Key: "_id", Value: 1}}

// MongoRepo implements DocumentStore on the odf_documents collection.
type MongoRepo struct {
	col *mongo.Collection
}

func NewMongoRepo(col *mongo.Collection) *MongoRepo {
	return &MongoRepo{col: col}
}

// DocumentIndexes backs the listing filters, the sort, and hash lookups.
func DocumentIndexes() []mongo.IndexModel {
	return []mongo.IndexModel{
		{Keys: bson.D{{Key: "documentCode", Value: 1}, {Key: "date", Value: -1}}},
		{Keys: bson.D{{Key: "documentCode", Value: 1}}},
		{Keys: bson.D{{Key: "competitionCode", Value: 1}, {Key: "documentType", Value: 1}, {Key: "date", Value: -1}}},
		{Keys: bson.D{{Key: "documentType", Value: 1}, {Key: "documentSubtype", Value: 1}}},
		{Keys: bson.D{{Key: "date", Value: -1}}},
		{Keys: bson.D{{Key: "competitionCode", Value: 1}}},
		{Keys: bson.D{{Key: "contentHash", Value: 1}}, Options: options.Index().SetUnique(true).SetSparse(true)},
	}
}

// EnsureIndexes creates the collection indexes (idempotent).
func (m *MongoRepo) EnsureIndexes(ctx context.Context) error {
	_, err := m.col.Indexes().CreateMany(ctx, DocumentIndexes())
	return storeErr("ensure document indexes", err)
}

func (m *MongoRepo) Find(ctx context.Context, pred query.Predicate, opts FindOptions) ([]*document.Document, error) {
	if opts.Skip < 0 || opts.Limit < 0 {
		return nil, fmt.Errorf("invalid find options: skip=%d limit=%d", opts.Skip, opts.Limit)
	}
	fo := options.Find().SetSort(listSort)
	if opts.Skip > 0 {
		fo.SetSkip(opts.Skip)
	}
	if opts.Limit > 0 {
		fo.SetLimit(opts.Limit)
	}
	cur, err := m.col.Find(ctx, pred.BSON(), fo)
	if err != nil {
		return nil, storeErr("find documents", err)
	}
	defer cur.Close(ctx)
	out := []*document.Document{}
	for cur.Next(ctx) {
		var e documentEntity
		if err := cur.Decode(&e); err != nil {
			return nil, storeErr("decode document", err)
		}
		out = append(out, e.toModel())
	}
	if err := cur.Err(); err != nil {
		return nil, storeErr("find documents", err)
	}
	return out, nil
}

func (m *MongoRepo) Count(ctx context.Context, pred query.Predicate) (int64, error) {
	n, err := m.col.CountDocuments(ctx, pred.BSON())
	if err != nil {
		return 0, storeErr("count documents", err)
	}
	return n, nil
}

func (m *MongoRepo) FindByID(ctx context.Context, id string) (*document.Document, error) {
	oid, err := primitive.ObjectIDFromHex(id)
	if err != nil {
		// a malformed id cannot name a stored document
		return nil, ErrNotFound
	}
	return m.findOne(ctx, bson.D{{Key: "_id", Value: oid}})
}

func (m *MongoRepo) FindOne(ctx context.Context, pred query.Predicate) (*document.Document, error) {
	return m.findOne(ctx, pred.BSON())
}

func (m *MongoRepo) findOne(ctx context.Context, filter bson.D) (*document.Document, error) {
	var e documentEntity
	err := m.col.FindOne(ctx, filter).Decode(&e)
	if err != nil {
		if errors.Is(err, mongo.ErrNoDocuments) {
			return nil, ErrNotFound
		}
		return nil, storeErr("find document", err)
	}
	return e.toModel(), nil
}

// DisciplinePipeline derives XML discipline prefixes inside MongoDB so large
// payloads never leave the server.
func DisciplinePipeline() mongo.Pipeline {
	return mongo.Pipeline{
		{{Key: "$match", Value: bson.D{{Key: "content", Value: primitive.Regex{Pattern: `^\s*(<\?xml|<OdfBody)`}}}}},
		{{Key: "$project", Value: bson.D{
			{Key: "_id", Value: 0},
			{Key: "discipline", Value: bson.D{{Key: "$toUpper", Value: bson.D{{Key: "$substrCP", Value: bson.A{"$documentCode", 0, 3}}}}}},
		}}},
		{{Key: "$match", Value: bson.D{{Key: "discipline", Value: primitive.Regex{Pattern: `^[A-Z]{3}$`}}}}},
		{{Key: "$group", Value: bson.D{{Key: "_id", Value: "$discipline"}}}},
		{{Key: "$sort", Value: bson.D{{Key: "_id", Value: 1}}}},
	}
}

func (m *MongoRepo) XMLDisciplinePrefixes(ctx context.Context) ([]string, error) {
	cur, err := m.col.Aggregate(ctx, DisciplinePipeline(), options.Aggregate().SetAllowDiskUse(true))
	if err != nil {
		return nil, storeErr("aggregate disciplines", err)
	}
	defer cur.Close(ctx)
	var rows []struct {
		ID string `bson:"_id"`
	}
	if err := cur.All(ctx, &rows); err != nil {
		return nil, storeErr("aggregate disciplines", err)
	}
	out := make([]string, 0, len(rows))
	for _, r := range rows {
		out = append(out, r.ID)
	}
	return out, nil
}

// MongoReferenceRepo implements ReferenceStore on discipline-settings.
type MongoReferenceRepo struct {
	col *mongo.Collection
}

func NewMongoReferenceRepo(col *mongo.Collection) *MongoReferenceRepo {
	return &MongoReferenceRepo{col: col}
}

func (r *MongoReferenceRepo) EnsureIndexes(ctx context.Context) error {
	_, err := r.col.Indexes().CreateMany(ctx, []mongo.IndexModel{
		{Keys: bson.D{{Key: "name", Value: 1}}},
		{Keys: bson.D{{Key: "metadata.discipline", Value: 1}}},
	})
	return storeErr("ensure discipline indexes", err)
}

func (r *MongoReferenceRepo) Exists(ctx context.Context, code string) (bool, error) {
	filter := bson.D{{Key: "$or", Value: bson.A{
		bson.D{{Key: "name", Value: code}},
		bson.D{{Key: "metadata.discipline", Value: code}},
	}}}
	n, err := r.col.CountDocuments(ctx, filter, options.Count().SetLimit(1))
	if err != nil {
		return false, storeErr("find discipline", err)
	}
	return n > 0, nil
}

var referenceProjection = bson.D{{Key: "name", Value: 1}, {Key: "metadata.discipline", Value: 1}}

func (r *MongoReferenceRepo) find(ctx context.Context, filter bson.D) ([]document.DisciplineSetting, error) {
	cur, err := r.col.Find(ctx, filter, options.Find().SetProjection(referenceProjection))
	if err != nil {
		return nil, storeErr("find disciplines", err)
	}
	defer cur.Close(ctx)
	var out []document.DisciplineSetting
	if err := cur.All(ctx, &out); err != nil {
		return nil, storeErr("find disciplines", err)
	}
	return out, nil
}

func (r *MongoReferenceRepo) FindAllCodes(ctx context.Context) ([]string, error) {
	entries, err := r.find(ctx, bson.D{})
	if err != nil {
		return nil, err
	}
	codes := []string{}
	for _, e := range entries {
		if c := e.Code(); c != "" {
			codes = append(codes, c)
		}
	}
	sort.Strings(codes)
	return codes, nil
}

func (r *MongoReferenceRepo) FindExisting(ctx context.Context, codes []string) (map[string]struct{}, error) {
	if len(codes) == 0 {
		return map[string]struct{}{}, nil
	}
	filter := bson.D{{Key: "$or", Value: bson.A{
		bson.D{{Key: "name", Value: bson.D{{Key: "$in", Value: codes}}}},
		bson.D{{Key: "metadata.discipline", Value: bson.D{{Key: "$in", Value: codes}}}},
	}}}
	entries, err := r.find(ctx, filter)
	if err != nil {
		return nil, err
	}
	return collectExisting(entries, codes), nil
}
