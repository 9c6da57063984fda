package testutil

import (
	"net/url"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestDefaultTestDBConfig_Defaults(t *testing.T) {
	for _, k := range []string{"TEST_DB_HOST", "TEST_DB_PORT", "TEST_DB_USER", "TEST_DB_PASSWORD", "TEST_DB_NAME", "TEST_DB_SSL_MODE"} {
		t.Setenv(k, "")
	}

	cfg := DefaultTestDBConfig()
	assert.Equal(t, TestDBConfig{
		Host:     "localhost",
		Port:     "55432",
		User:     "kavach",
		Password: "kavach",
		DBName:   "kavach_test",
		SSLMode:  "disable",
	}, cfg)
}

func TestDefaultTestDBConfig_CI(t *testing.T) {
	t.Setenv("TEST_DB_HOST", "postgres")
	t.Setenv("TEST_DB_PORT", "5432")

	cfg := DefaultTestDBConfig()
	assert.Equal(t, "postgres", cfg.Host)
	assert.Equal(t, "5432", cfg.Port)
}

func TestTestDBConfig_DSN(t *testing.T) {
	cfg := TestDBConfig{Host: "db", Port: "5432", User: "u", Password: "p@ss", DBName: "kv", SSLMode: "require"}
	u, err := url.Parse(cfg.DSN())
	require.NoError(t, err)
	assert.Equal(t, "postgres", u.Scheme)
	assert.Equal(t, "db:5432", u.Host)
	pw, _ := u.User.Password()
	assert.Equal(t, "p@ss", pw)
	assert.Equal(t, "/kv", u.Path)
	assert.Equal(t, "require", u.Query().Get("sslmode"))
}

func TestEnvBool(t *testing.T) {
	t.Setenv("KAVACH_TEST_FLAG", "Yes")
	assert.True(t, envBool("KAVACH_TEST_FLAG"))
	t.Setenv("KAVACH_TEST_FLAG", "0")
	assert.False(t, envBool("KAVACH_TEST_FLAG"))
}
