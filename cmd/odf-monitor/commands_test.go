package main

import (
	"bytes"
	"context"
	"encoding/json"
	"testing"
	"time"

	"github.com/stretchr/testify/require"

	"github.com/odfmonitor/odf-monitor/internal/config"
	"github.com/odfmonitor/odf-monitor/internal/document"
	"github.com/odfmonitor/odf-monitor/internal/document/compare"
	"github.com/odfmonitor/odf-monitor/internal/document/discipline"
	"github.com/odfmonitor/odf-monitor/internal/document/repository"
	"github.com/odfmonitor/odf-monitor/internal/document/service"
	"github.com/odfmonitor/odf-monitor/internal/server"
)

func stubApp(t *testing.T) map[string]string {
	t.Helper()
	t.Setenv("MONGODB_URI", "mongodb://localhost:27017/odf")
	store := repository.NewMemoryRepo()
	ids := map[string]string{
		"a": store.Insert(&document.Document{DocumentCode: "ATH1", Version: "1", Date: time.Now(), Content: `<OdfBody><X>1</X></OdfBody>`}),
		"b": store.Insert(&document.Document{DocumentCode: "ATH1", Version: "2", Date: time.Now(), Content: `<OdfBody><X>2</X></OdfBody>`}),
	}
	refs := repository.NewMemoryReferenceRepo(document.DisciplineSetting{Name: "ATH"})
	svc := service.New(service.Deps{
		Docs:       store,
		Resolver:   discipline.NewResolver(store, refs, nil),
		Comparator: compare.NewStructured(store),
	})
	prev := buildApp
	buildApp = func(_ context.Context, cfg *config.Config) (*server.App, error) {
		return &server.App{Config: cfg, Service: svc}, nil
	}
	t.Cleanup(func() { buildApp = prev })
	return ids
}

func run(t *testing.T, args ...string) (string, error) {
	t.Helper()
	cmd := newRootCmd()
	var out bytes.Buffer
	cmd.SetOut(&out)
	cmd.SetArgs(args)
	err := cmd.ExecuteContext(context.Background())
	return out.String(), err
}

func TestDisciplinesCommand(t *testing.T) {
	stubApp(t)
	out, err := run(t, "disciplines")
	require.NoError(t, err)
	require.JSONEq(t, `{"disciplines":["ATH"]}`, out)
}

func TestParsedCommand(t *testing.T) {
	ids := stubApp(t)
	out, err := run(t, "parsed", ids["a"])
	require.NoError(t, err)
	require.JSONEq(t, `{"OdfBody":{"#text":"","X":{"#text":1}}}`, out)

	_, err = run(t, "parsed", "missing")
	require.Error(t, err)
}

func TestCompareCommand(t *testing.T) {
	ids := stubApp(t)
	out, err := run(t, "compare", ids["a"], ids["b"])
	require.NoError(t, err)
	var res compare.StructuredComparison
	require.NoError(t, json.Unmarshal([]byte(out), &res))
	require.False(t, res.Identical)
	require.Equal(t, "version", res.Differences[0].Field)

	_, err = run(t, "compare", ids["a"])
	require.Error(t, err)
}
