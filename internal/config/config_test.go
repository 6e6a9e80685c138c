package config

import (
	"testing"
	"time"

	"github.com/stretchr/testify/require"
)

func TestLoadConfig(t *testing.T) {
	t.Setenv("MONGODB_URI", "mongodb://user:pw@localhost:27017/odf_test?authSource=admin")
	t.Setenv("MONGODB_DATABASE", "")
	t.Setenv("REDIS_HOST", "localhost")
	t.Setenv("REPROCESS_ALLOWED_HOSTS", " ingest.local , backend:8080 ,")
	t.Setenv("DISCIPLINE_CACHE_TTL", "15m")
	t.Setenv("PORT", "4000")

	cfg, err := LoadConfig()
	require.NoError(t, err)
	require.Equal(t, "odf_test", cfg.MongoDB.Database)
	require.Equal(t, "odf_documents", cfg.MongoDB.DocumentsCollection)
	require.Equal(t, "discipline-settings", cfg.MongoDB.DisciplinesCollection)
	require.Equal(t, "4000", cfg.Server.Port)
	require.Equal(t, "api", cfg.Server.GlobalPrefix)
	require.Equal(t, 15*time.Minute, cfg.Disciplines.CacheTTL)
	require.Equal(t, []string{"ingest.local", "backend:8080"}, cfg.Reprocess.AllowedHosts)
	require.Equal(t, 10*time.Second, cfg.Reprocess.Timeout)
	require.Equal(t, "localhost:6379", cfg.Redis.Addr())
	require.True(t, cfg.IsDevelopment())
}

func TestLoadConfigRejectsBadValues(t *testing.T) {
	cases := map[string]map[string]string{
		"missing uri":         {"MONGODB_URI": ""},
		"bad scheme":          {"MONGODB_URI": "postgres://localhost/db"},
		"bad environment":     {"MONGODB_URI": "mongodb://localhost", "SERVER_ENVIRONMENT": "staging"},
		"redis cache no host": {"MONGODB_URI": "mongodb://localhost", "DISCIPLINE_CACHE_BACKEND": "redis", "REDIS_HOST": ""},
	}
	for name, env := range cases {
		t.Run(name, func(t *testing.T) {
			for k, v := range env {
				t.Setenv(k, v)
			}
			_, err := LoadConfig()
			require.Error(t, err)
		})
	}
}

func TestDatabaseFromURI(t *testing.T) {
	require.Equal(t, "results", DatabaseFromURI("mongodb+srv://cluster.example.net/results?retryWrites=true"))
	require.Equal(t, "odf", DatabaseFromURI("mongodb://localhost:27017"))
	require.Equal(t, "odf", DatabaseFromURI("mongodb://localhost:27017/"))
}
