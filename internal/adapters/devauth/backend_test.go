package devauth

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	domainauth "github.com/kavach-app/kavach/internal/domain/auth"
	authmocks "github.com/kavach-app/kavach/internal/mocks/auth"
)

func TestParseSeeds(t *testing.T) {
	seeds, err := ParseSeeds([]string{
		"asha@example.in:secret1:citizen",
		" sho@police.gov.in:secret1:station_admin:st-12:Kothrud PS ",
		"",
	})
	require.NoError(t, err)
	require.Len(t, seeds, 2)
	assert.Equal(t, domainauth.RoleCitizen, seeds[0].Role)
	assert.Equal(t, "st-12", seeds[1].StationID)
	assert.Equal(t, "Kothrud PS", seeds[1].StationName)

	_, err = ParseSeeds([]string{"a@x.io:secret1"})
	require.Error(t, err)
	_, err = ParseSeeds([]string{"a@x.io:secret1:admin"})
	require.Error(t, err)
}

func TestNewBackend_RejectsInvalidSeeds(t *testing.T) {
	_, err := NewBackend(Config{Seeds: []Seed{{Email: "sho@x.io", Password: "secret1", Role: domainauth.RoleStationAdmin}}})
	require.Error(t, err)

	_, err = NewBackend(Config{Seeds: []Seed{
		{Email: "a@x.io", Password: "secret1", Role: domainauth.RoleCitizen},
		{Email: "A@x.io", Password: "secret1", Role: domainauth.RoleCitizen},
	}})
	require.ErrorIs(t, err, domainauth.ErrEmailInUse)
}

func TestBackend_AuthenticateAndRegister(t *testing.T) {
	ctx := context.Background()
	b, err := NewBackend(Config{Seeds: []Seed{{Email: "asha@example.in", Password: "secret1", Role: domainauth.RoleCitizen}}})
	require.NoError(t, err)

	acct, err := b.Authenticate(ctx, "ASHA@example.in", "secret1")
	require.NoError(t, err)
	assert.Equal(t, AccountID("asha@example.in"), acct.UID)

	_, err = b.Authenticate(ctx, "asha@example.in", "wrong1")
	require.ErrorIs(t, err, domainauth.ErrInvalidCredentials)
	_, err = b.Authenticate(ctx, "nobody@example.in", "secret1")
	require.ErrorIs(t, err, domainauth.ErrInvalidCredentials)

	_, err = b.Register(ctx, "asha@example.in", "secret2")
	require.ErrorIs(t, err, domainauth.ErrEmailInUse)
	_, err = b.Register(ctx, "new@example.in", "123")
	require.Error(t, err)

	created, err := b.Register(ctx, "new@example.in", "secret2")
	require.NoError(t, err)
	assert.Equal(t, AccountID("new@example.in"), created.UID)
}

func TestBackend_PasswordReset(t *testing.T) {
	ctx := context.Background()
	sender := &authmocks.RecordingResetSender{}
	b, err := NewBackend(Config{
		Seeds:  []Seed{{Email: "asha@example.in", Password: "secret1", Role: domainauth.RoleCitizen}},
		Sender: sender,
	})
	require.NoError(t, err)

	require.NoError(t, b.RequestPasswordReset(ctx, "nobody@example.in"))
	require.NoError(t, b.RequestPasswordReset(ctx, "asha@example.in"))
	token, ok := sender.Token("asha@example.in")
	require.True(t, ok)

	require.NoError(t, b.ConfirmPasswordReset(ctx, token, "fresh-pass"))
	require.Error(t, b.ConfirmPasswordReset(ctx, token, "fresh-pass"))

	_, err = b.Authenticate(ctx, "asha@example.in", "fresh-pass")
	require.NoError(t, err)
}

func TestBackend_ResetUnsupportedWithoutSender(t *testing.T) {
	b, err := NewBackend(Config{})
	require.NoError(t, err)
	err = b.RequestPasswordReset(context.Background(), "asha@example.in")
	var pe *domainauth.ProviderError
	require.ErrorAs(t, err, &pe)
}

func TestBackend_SeedProfiles(t *testing.T) {
	ctx := context.Background()
	store := authmocks.NewMemoryProfileStore()
	now := time.Date(2024, 3, 1, 9, 0, 0, 0, time.UTC)
	b, err := NewBackend(Config{Seeds: []Seed{
		{Email: "asha@example.in", Password: "secret1", Role: domainauth.RoleCitizen},
		{Email: "dsp@gov.in", Password: "secret1", Role: domainauth.RoleOfficial, StationID: "d-1", StationName: "Pune District"},
	}})
	require.NoError(t, err)

	n, err := b.SeedProfiles(ctx, store, now)
	require.NoError(t, err)
	assert.Equal(t, 2, n)

	doc, ok := store.Profile(AccountID("dsp@gov.in"))
	require.True(t, ok)
	p, err := domainauth.PrincipalFromProfile(AccountID("dsp@gov.in"), doc)
	require.NoError(t, err)
	assert.Equal(t, domainauth.RoleOfficial, p.Role())

	n, err = b.SeedProfiles(ctx, store, now)
	require.NoError(t, err)
	assert.Zero(t, n)
}
