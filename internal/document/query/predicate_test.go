package query

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/bson/primitive"

	"github.com/odfmonitor/odf-monitor/internal/document"
)

func day(s string) *time.Time {
	t, err := time.Parse("2006-01-02", s)
	if err != nil {
		panic(err)
	}
	return &t
}

func TestBuildEmpty(t *testing.T) {
	p := Build(document.Filters{})
	assert.True(t, p.IsEmpty())
	assert.Equal(t, bson.D{}, p.BSON())
	assert.True(t, p.Matches(&document.Document{DocumentCode: "anything"}))
	assert.Equal(t, "{}", p.String())
}

func TestDisciplineSupersedesDocumentCode(t *testing.T) {
	p := Build(document.Filters{Discipline: "mti", DocumentCode: "ATH"})

	terms := p.Terms()
	require.Len(t, terms, 1)
	assert.Equal(t, FieldDocumentCode, terms[0].Field)
	assert.Equal(t, "^mti", terms[0].Pattern)
	assert.Equal(t, "mti", terms[0].Value)

	assert.True(t, p.Matches(&document.Document{DocumentCode: "MTI1234"}))
	assert.False(t, p.Matches(&document.Document{DocumentCode: "ATH1234"}))
	assert.False(t, p.Matches(&document.Document{DocumentCode: "XMTI"}), "discipline is a prefix match")

	assert.Equal(t, bson.D{{Key: "documentCode", Value: primitive.Regex{Pattern: "^mti", Options: "i"}}}, p.BSON())
}

func TestDisciplineMetacharactersEscaped(t *testing.T) {
	p := Build(document.Filters{Discipline: "A.*"})
	terms := p.Terms()
	require.Len(t, terms, 1)
	assert.Equal(t, `^A\.\*`, terms[0].Pattern)
	assert.True(t, p.Matches(&document.Document{DocumentCode: "a.*XYZ"}))
	assert.False(t, p.Matches(&document.Document{DocumentCode: "ABC"}))
}

func TestDocumentCodeIsCaseInsensitiveInfix(t *testing.T) {
	p := Build(document.Filters{DocumentCode: "m100"})
	assert.True(t, p.Matches(&document.Document{DocumentCode: "ATHM100M----"}))
	assert.False(t, p.Matches(&document.Document{DocumentCode: "ATHM200M"}))

	// metacharacters are literal
	p = Build(document.Filters{DocumentCode: "(a+)+$"})
	assert.Equal(t, `\(a\+\)\+\$`, p.Terms()[0].Pattern)
	assert.False(t, p.Matches(&document.Document{DocumentCode: "aaaa"}))
	assert.True(t, p.Matches(&document.Document{DocumentCode: "x(A+)+$y"}))
}

func TestDateRangeOnlySuppliedBounds(t *testing.T) {
	from := day("2024-07-01")
	p := Build(document.Filters{DateFrom: from})

	got := p.BSON()
	require.Len(t, got, 1)
	assert.Equal(t, "date", got[0].Key)
	bounds := got[0].Value.(bson.D)
	require.Len(t, bounds, 1)
	assert.Equal(t, "$gte", bounds[0].Key)
	assert.Equal(t, *from, bounds[0].Value)
	assert.NotContains(t, bounds.Map(), "$lte")

	to := day("2024-07-31")
	p = Build(document.Filters{DateTo: to})
	bounds = p.BSON()[0].Value.(bson.D)
	require.Len(t, bounds, 1)
	assert.Equal(t, "$lte", bounds[0].Key)

	p = Build(document.Filters{DateFrom: from, DateTo: to})
	bounds = p.BSON()[0].Value.(bson.D)
	assert.Equal(t, bson.D{{Key: "$gte", Value: *from}, {Key: "$lte", Value: *to}}, bounds)

	assert.True(t, p.Matches(&document.Document{Date: *from}), "bounds are inclusive")
	assert.True(t, p.Matches(&document.Document{Date: *to}))
	assert.False(t, p.Matches(&document.Document{Date: to.Add(time.Second)}))
	assert.False(t, p.Matches(&document.Document{Date: from.Add(-time.Second)}))
}

func TestBuildFieldOrderAndConjunction(t *testing.T) {
	p := Build(document.Filters{
		CompetitionCode: "OG2024",
		DocumentCode:    "ATH",
		DocumentType:    "DT_RESULT",
		DocumentSubtype: "FINAL",
		DateFrom:        day("2024-01-01"),
	})
	keys := []string{}
	for _, e := range p.BSON() {
		keys = append(keys, e.Key)
	}
	assert.Equal(t, []string{"competitionCode", "documentCode", "documentType", "documentSubtype", "date"}, keys)

	doc := &document.Document{
		CompetitionCode: "OG2024",
		DocumentCode:    "ATHM100M",
		DocumentType:    "DT_RESULT",
		DocumentSubtype: "FINAL",
		Date:            *day("2024-08-04"),
	}
	assert.True(t, p.Matches(doc))
	doc.DocumentSubtype = "HEAT"
	assert.False(t, p.Matches(doc))
}

func TestContentHashPredicate(t *testing.T) {
	p := ContentHash("abc")
	assert.Equal(t, bson.D{{Key: "contentHash", Value: "abc"}}, p.BSON())
	assert.True(t, p.Matches(&document.Document{ContentHash: "abc"}))
	assert.False(t, p.Matches(&document.Document{}))
}

func TestTermsReturnsCopy(t *testing.T) {
	p := Build(document.Filters{CompetitionCode: "A"})
	terms := p.Terms()
	terms[0].Value = "B"
	assert.Equal(t, "A", p.Terms()[0].Value)
}
