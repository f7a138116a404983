package config

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestLoad_Defaults(t *testing.T) {
	cfg, err := Load("")
	require.NoError(t, err)

	assert.Equal(t, 8080, cfg.Server.Port)
	assert.Equal(t, "sqlite3", cfg.Database.Driver)
	assert.Equal(t, "announcer.db", cfg.Database.GetDSN())
	assert.Equal(t, "deny", cfg.Announcer.DefaultAdverb)
	assert.Equal(t, []string{"email"}, cfg.Announcer.Distributors)

	strategy := cfg.Announcer.RetryStrategy()
	assert.Equal(t, 3, strategy.MaxAttempts)
	assert.Equal(t, 500*time.Millisecond, strategy.BaseDelay)
	assert.Equal(t, 5*time.Second, strategy.MaxDelay)
}

func TestLoad_FileAndEnv(t *testing.T) {
	path := filepath.Join(t.TempDir(), "announcer.yaml")
	require.NoError(t, os.WriteFile(path, []byte(`
server:
  port: 9090
database:
  driver: postgres
  host: db
  port: 5432
  user: trac
  password: secret
  name: trac
announcer:
  project_url: https://trac.example.org/
  default_domain: example.org
  ignore_cc_changes: true
`), 0o600))
	t.Setenv("SERVER_PORT", "9191")

	cfg, err := Load(path)
	require.NoError(t, err)

	assert.Equal(t, 9191, cfg.Server.Port)
	assert.Equal(t, "host=db port=5432 user=trac password=secret dbname=trac sslmode=disable", cfg.Database.GetDSN())
	assert.Equal(t, "example.org", cfg.Announcer.DefaultDomain)
	assert.True(t, cfg.Announcer.IgnoreCCChanges)
}

func TestLoad_Invalid(t *testing.T) {
	tests := []struct {
		name string
		env  map[string]string
	}{
		{"unknown driver", map[string]string{"DATABASE_DRIVER": "oracle"}},
		{"mysql without password", map[string]string{"DATABASE_DRIVER": "mysql"}},
		{"bad adverb", map[string]string{"ANNOUNCER_DEFAULT_ADVERB": "maybe"}},
		{"bad level", map[string]string{"LOGGING_LEVEL": "loud"}},
		{"no attempts", map[string]string{"ANNOUNCER_RETRY_ATTEMPTS": "0"}},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			for k, v := range tt.env {
				t.Setenv(k, v)
			}
			_, err := Load("")
			assert.Error(t, err)
		})
	}
}

func TestGetDSN_MySQL(t *testing.T) {
	c := DatabaseConfig{Driver: "mysql", Host: "db", Port: 3306, User: "u", Password: "p", Name: "trac"}
	assert.Equal(t, "u:p@tcp(db:3306)/trac?parseTime=true&multiStatements=true", c.GetDSN())
}
