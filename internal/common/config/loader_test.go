package config

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestResolveEnv(t *testing.T) {
	t.Setenv("TEST_DB_HOST", "db.internal")

	in := []byte("host: ${TEST_DB_HOST}\nport: ${TEST_DB_PORT:5432}\n")
	out := string(resolveEnv(in))
	assert.Equal(t, "host: db.internal\nport: 5432\n", out)
}

func TestLoadConfig(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "apiserver.yaml")
	content := `
server:
  port: 8080
database:
  type: sqlite
  dbname: ./data/console.db
jwt:
  secret_key: ${JWT_SECRET:0123456789abcdef0123456789abcdef}
`
	require.NoError(t, os.WriteFile(path, []byte(content), 0644))

	cfg, cfgPath, err := LoadConfig(path)
	require.NoError(t, err)
	assert.Equal(t, path, cfgPath)
	assert.Equal(t, 8080, cfg.Server.Port)
	assert.Equal(t, "sqlite", cfg.Database.Type)
	assert.Equal(t, "0123456789abcdef0123456789abcdef", cfg.JWT.SecretKey)

	// defaults
	assert.Equal(t, 24*time.Hour, cfg.JWT.Duration)
	assert.Equal(t, "memory", cfg.Session.Type)
	assert.Equal(t, "console", cfg.Metrics.Namespace)
}

func TestGetDSN(t *testing.T) {
	pg := &DatabaseConfig{Type: "postgres", Host: "localhost", Port: 5432, User: "postgres", Password: "pw", DBName: "console", SSLMode: "disable"}
	assert.Equal(t, "postgres://postgres:pw@localhost:5432/console?sslmode=disable", pg.GetDSN())

	my := &DatabaseConfig{Type: "mysql", Host: "localhost", Port: 3306, User: "root", Password: "pw", DBName: "console"}
	assert.Equal(t, "root:pw@tcp(localhost:3306)/console?charset=utf8mb4&parseTime=True&loc=Local", my.GetDSN())

	lite := &DatabaseConfig{Type: "sqlite", DBName: "./console.db"}
	assert.Equal(t, "./console.db", lite.GetDSN())

	assert.Equal(t, "", (&DatabaseConfig{Type: "oracle"}).GetDSN())
}
