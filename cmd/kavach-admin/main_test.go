package main

import (
	"bytes"
	"context"
	"errors"
	"io"
	"log/slog"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/kavach-app/kavach/config"
	domainauth "github.com/kavach-app/kavach/internal/domain/auth"
)

func TestPrintUsageListsCommandsSorted(t *testing.T) {
	var buf bytes.Buffer
	require.NoError(t, printUsage(&buf))

	out := buf.String()
	assert.True(t, strings.HasPrefix(out, "Usage: kavach-admin"))
	m, p, r := strings.Index(out, "migrate"), strings.Index(out, "provision"), strings.Index(out, "revoke")
	assert.True(t, m > 0 && m < p && p < r, out)
}

func TestParseProvisionFlags(t *testing.T) {
	opts, err := parseProvisionFlags([]string{
		"-email", "ravi@example.in",
		"-password", "secret123",
		"-role", "station_admin",
		"-station-id", "st-7",
		"-station-name", "Koramangala",
	})
	require.NoError(t, err)
	assert.Equal(t, domainauth.RoleStationAdmin, opts.Role)

	in := opts.input()
	assert.Equal(t, "ravi@example.in", in.Email)
	assert.Equal(t, "st-7", in.Fields.StationID)
	assert.Equal(t, "Koramangala", in.Fields.StationName)
}

func TestParseProvisionFlagsRejectsBadInput(t *testing.T) {
	tests := map[string][]string{
		"missing email":        {"-password", "secret123"},
		"missing password":     {"-email", "a@example.in"},
		"both password inputs": {"-email", "a@example.in", "-password", "x", "-password-stdin"},
		"unknown role":         {"-email", "a@example.in", "-password", "secret123", "-role", "admin"},
		"admin without station": {
			"-email", "a@example.in", "-password", "secret123", "-role", "station_admin",
		},
		"station on citizen": {
			"-email", "a@example.in", "-password", "secret123", "-station-id", "st-1",
		},
	}
	for name, args := range tests {
		t.Run(name, func(t *testing.T) {
			_, err := parseProvisionFlags(args)
			require.Error(t, err)
		})
	}
}

func TestReadPassword(t *testing.T) {
	pw, err := readPassword(strings.NewReader("hunter22\r\nignored\n"))
	require.NoError(t, err)
	assert.Equal(t, "hunter22", pw)

	pw, err = readPassword(strings.NewReader("no-newline"))
	require.NoError(t, err)
	assert.Equal(t, "no-newline", pw)

	_, err = readPassword(strings.NewReader("\n"))
	require.Error(t, err)
}

func TestParseRevokeFlags(t *testing.T) {
	opts, err := parseRevokeFlags([]string{"-client-id", " a , b,,c "})
	require.NoError(t, err)
	assert.Equal(t, []string{"a", "b", "c"}, opts.ClientIDs)

	_, err = parseRevokeFlags(nil)
	require.Error(t, err)
}

type fakeRevoker struct {
	ttls    map[string]time.Duration
	deleted []string
	delErr  error
}

func (f *fakeRevoker) TTL(_ context.Context, id string) (time.Duration, error) {
	return f.ttls[id], nil
}

func (f *fakeRevoker) Delete(_ context.Context, id string) error {
	if f.delErr != nil {
		return f.delErr
	}
	f.deleted = append(f.deleted, id)
	return nil
}

func TestRevokeCredentials(t *testing.T) {
	logger := slog.New(slog.NewTextHandler(io.Discard, nil))
	store := &fakeRevoker{ttls: map[string]time.Duration{"sid-1": 90*time.Minute + 400*time.Millisecond}}
	var buf bytes.Buffer

	require.NoError(t, revokeCredentials(context.Background(), store, []string{"sid-1", "sid-2"}, &buf, logger))
	assert.Equal(t, []string{"sid-1", "sid-2"}, store.deleted)

	lines := strings.Split(strings.TrimSpace(buf.String()), "\n")
	require.Len(t, lines, 2)
	assert.Equal(t, []string{"sid-1", "revoked", "1h30m0s"}, strings.Fields(lines[0]))
	assert.Equal(t, []string{"sid-2", "absent", "0s"}, strings.Fields(lines[1]))

	failing := &fakeRevoker{delErr: errors.New("redis down")}
	err := revokeCredentials(context.Background(), failing, []string{"sid-3"}, io.Discard, logger)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "revoke sid-3")
}

func TestParseMigrateFlags(t *testing.T) {
	opts, err := parseMigrateFlags(nil)
	require.NoError(t, err)
	assert.Equal(t, defaultMigrationTimeout, opts.Timeout)
	assert.False(t, opts.Status)

	opts, err = parseMigrateFlags([]string{"-status", "-timeout", "1m"})
	require.NoError(t, err)
	assert.True(t, opts.Status)

	_, err = parseMigrateFlags([]string{"-timeout", "0s"})
	require.Error(t, err)
}

func TestPrintPending(t *testing.T) {
	var buf bytes.Buffer
	require.NoError(t, printPending(&buf, nil))
	assert.Equal(t, "schema is up to date\n", buf.String())

	buf.Reset()
	require.NoError(t, printPending(&buf, []string{"0001_accounts", "0002_profiles"}))
	assert.Contains(t, buf.String(), "2 pending migration(s)")
	assert.Contains(t, buf.String(), "0002_profiles")
}

func TestPrintPrincipal(t *testing.T) {
	p := domainauth.NewCitizen("uid-1", "asha@example.in", domainauth.ProfileAttributes{})
	var buf bytes.Buffer
	require.NoError(t, printPrincipal(&buf, p))
	assert.Contains(t, buf.String(), "uid:   uid-1")
	assert.Contains(t, buf.String(), "role:  citizen")
	assert.NotContains(t, buf.String(), "station")
}

func TestHasRedisConfig(t *testing.T) {
	assert.False(t, hasRedisConfig(nil))
	assert.False(t, hasRedisConfig(&config.RedisConfig{}))
	assert.True(t, hasRedisConfig(&config.RedisConfig{URI: "localhost:6379"}))
	assert.True(t, hasRedisConfig(&config.RedisConfig{UseSentinel: true, SentinelNodes: []string{"s:26379"}}))
	assert.False(t, hasRedisConfig(&config.RedisConfig{UseCluster: true}))
}
