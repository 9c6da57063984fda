package auth

import (
	"context"
	"errors"
	"testing"
	"time"

	domainauth "github.com/kavach-app/kavach/internal/domain/auth"
	"github.com/kavach-app/kavach/internal/ports"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestFakeIdentity_SignInBroadcasts(t *testing.T) {
	fi := NewFakeIdentity()
	fi.SignInFunc = func(_ context.Context, email, _ string) (domainauth.Credential, error) {
		return domainauth.Credential{UID: "u1", Email: email}, nil
	}

	var seen []*domainauth.Credential
	unsub := fi.Subscribe(func(c *domainauth.Credential) { seen = append(seen, c) })

	cred, err := fi.SignIn(context.Background(), "a@x.io", "pw")
	require.NoError(t, err)
	assert.Equal(t, "u1", cred.UID)
	require.Len(t, seen, 1)
	assert.Equal(t, "a@x.io", seen[0].Email)

	unsub()
	require.NoError(t, fi.SignOut(context.Background()))
	assert.Len(t, seen, 1)
	assert.Equal(t, 0, fi.Listeners())
}

func TestFakeIdentity_DefaultsRejectSignIn(t *testing.T) {
	fi := NewFakeIdentity()
	_, err := fi.SignIn(context.Background(), "a@x.io", "pw")
	assert.ErrorIs(t, err, domainauth.ErrInvalidCredentials)
}

func TestMemoryCredentialStore(t *testing.T) {
	ctx := context.Background()
	s := NewMemoryCredentialStore()

	require.Error(t, s.Save(ctx, "", "tok", time.Minute))
	require.NoError(t, s.Save(ctx, "c1", "tok", time.Minute))

	got, err := s.Get(ctx, "c1")
	require.NoError(t, err)
	assert.Equal(t, "tok", got)

	require.NoError(t, s.Delete(ctx, "c1"))
	_, err = s.Get(ctx, "c1")
	assert.True(t, errors.Is(err, ports.ErrCredentialNotFound))
	require.NoError(t, s.Delete(ctx, "c1"))
}

func TestMemoryProfileStore(t *testing.T) {
	ctx := context.Background()
	s := NewMemoryProfileStore()

	_, err := s.GetProfile(ctx, "u1")
	require.ErrorIs(t, err, domainauth.ErrProfileNotFound)

	require.NoError(t, s.SetProfile(ctx, "u1", domainauth.ProfileDocument{Role: "citizen"}))
	doc, err := s.GetProfile(ctx, "u1")
	require.NoError(t, err)
	assert.Equal(t, "citizen", doc.Role)
	assert.Equal(t, 2, s.Gets)
}

func TestRecordingNotifier(t *testing.T) {
	var n RecordingNotifier
	n.Notify(context.Background(), ports.NotifySuccess, "ok")
	n.Notify(context.Background(), ports.NotifyError, "bad")
	assert.Equal(t, []string{"ok", "bad"}, n.Messages())
	assert.Equal(t, ports.NotifyError, n.All()[1].Kind)
}

func TestMemoryFlash_DrainsPerClient(t *testing.T) {
	ctx := context.Background()
	f := NewMemoryFlash()
	f.For("c1").Notify(ctx, ports.NotifySuccess, "one")
	f.For("c2").Notify(ctx, ports.NotifyError, "two")

	got, err := f.Drain(ctx, "c1")
	require.NoError(t, err)
	require.Len(t, got, 1)
	assert.Equal(t, "one", got[0].Message)

	got, err = f.Drain(ctx, "c1")
	require.NoError(t, err)
	assert.Empty(t, got)

	got, err = f.Drain(ctx, "c2")
	require.NoError(t, err)
	require.Len(t, got, 1)
	assert.Equal(t, ports.NotifyError, got[0].Kind)
}
