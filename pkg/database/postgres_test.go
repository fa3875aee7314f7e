package database

import (
	"net/url"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/noah-isme/timetable-api/pkg/config"
)

func TestDSNEscapesCredentials(t *testing.T) {
	dsn := DSN(config.DatabaseConfig{Host: "db", Port: 5432, User: "app", Password: "p@ss word", Name: "timetables"})

	parsed, err := url.Parse(dsn)
	require.NoError(t, err)
	assert.Equal(t, "db:5432", parsed.Host)
	password, _ := parsed.User.Password()
	assert.Equal(t, "p@ss word", password)
	assert.Equal(t, "/timetables", parsed.Path)
	assert.Equal(t, "disable", parsed.Query().Get("sslmode"))
	assert.Equal(t, "timetable-api", parsed.Query().Get("application_name"))
}

func TestDSNKeepsSSLMode(t *testing.T) {
	dsn := DSN(config.DatabaseConfig{Host: "db", Port: 5432, Name: "timetables", SSLMode: "require"})
	parsed, err := url.Parse(dsn)
	require.NoError(t, err)
	assert.Equal(t, "require", parsed.Query().Get("sslmode"))
}
