package cryptoutil

import (
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestAESGCMSealer_RoundTrip(t *testing.T) {
	s, err := NewSealerFromSecret("a credential sealing secret of some length")
	require.NoError(t, err)

	sealed, err := s.Seal([]byte("header.payload.sig"), "client-1")
	require.NoError(t, err)
	assert.True(t, strings.HasPrefix(sealed, "v1:"))
	assert.NotContains(t, sealed, "payload")

	again, err := s.Seal([]byte("header.payload.sig"), "client-1")
	require.NoError(t, err)
	assert.NotEqual(t, sealed, again, "nonce must differ")

	pt, err := s.Open(sealed, "client-1")
	require.NoError(t, err)
	assert.Equal(t, "header.payload.sig", string(pt))
}

func TestAESGCMSealer_RejectsForeignValues(t *testing.T) {
	s, err := NewSealerFromSecret("key-one")
	require.NoError(t, err)
	other, err := NewSealerFromSecret("key-two")
	require.NoError(t, err)

	sealed, err := s.Seal([]byte("token"), "client-1")
	require.NoError(t, err)

	mid := len(sealed) / 2
	flip := byte('A')
	if sealed[mid] == 'A' {
		flip = 'B'
	}
	tampered := sealed[:mid] + string(flip) + sealed[mid+1:]

	tests := map[string]struct {
		sealer  *AESGCMSealer
		value   string
		binding string
	}{
		"other binding": {s, sealed, "client-2"},
		"other key":     {other, sealed, "client-1"},
		"no prefix":     {s, strings.TrimPrefix(sealed, "v1:"), "client-1"},
		"bad base64":    {s, "v1:***", "client-1"},
		"too short":     {s, "v1:AAAA", "client-1"},
		"tampered":      {s, tampered, "client-1"},
	}
	for name, tt := range tests {
		t.Run(name, func(t *testing.T) {
			_, err := tt.sealer.Open(tt.value, tt.binding)
			require.ErrorIs(t, err, ErrUnsealable)
		})
	}
}

func TestNewSealerFromSecret(t *testing.T) {
	_, err := NewSealerFromSecret("  ")
	require.Error(t, err)

	hexKey := strings.Repeat("ab", 32)
	a, err := NewSealerFromSecret(hexKey)
	require.NoError(t, err)
	b, err := NewAESGCMSealer([]byte(strings.Repeat("\xab", 32)))
	require.NoError(t, err)

	sealed, err := a.Seal([]byte("x"), "c")
	require.NoError(t, err)
	pt, err := b.Open(sealed, "c")
	require.NoError(t, err)
	assert.Equal(t, "x", string(pt))

	_, err = NewAESGCMSealer([]byte("short"))
	require.Error(t, err)
}
