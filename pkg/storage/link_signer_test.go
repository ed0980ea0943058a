package storage

import (
	"testing"
	"time"

	"github.com/stretchr/testify/require"
)

func TestLinkSignerRoundTrip(t *testing.T) {
	signer := NewLinkSigner("secret", time.Hour)
	now := time.Date(2026, 3, 2, 9, 0, 0, 0, time.UTC)

	token, expiresAt, err := signer.Sign("sess-1", now, time.Time{})
	require.NoError(t, err)
	require.Equal(t, now.Add(time.Hour), expiresAt)

	id, err := signer.Verify(token, now.Add(10*time.Minute))
	require.NoError(t, err)
	require.Equal(t, "sess-1", id)
}

func TestLinkSignerCapsAtNotAfter(t *testing.T) {
	signer := NewLinkSigner("secret", time.Hour)
	now := time.Date(2026, 3, 2, 9, 0, 0, 0, time.UTC)
	end := now.Add(20 * time.Minute)

	token, expiresAt, err := signer.Sign("sess-1", now, end)
	require.NoError(t, err)
	require.Equal(t, end, expiresAt)

	_, err = signer.Verify(token, end.Add(time.Second))
	require.ErrorIs(t, err, ErrLinkExpired)
}

func TestLinkSignerRejectsTampering(t *testing.T) {
	signer := NewLinkSigner("secret", time.Hour)
	now := time.Now()
	token, _, err := signer.Sign("sess-1", now, time.Time{})
	require.NoError(t, err)

	other := NewLinkSigner("other", time.Hour)
	_, err = other.Verify(token, now)
	require.ErrorIs(t, err, ErrInvalidLink)

	_, err = signer.Verify("not-a-token", now)
	require.ErrorIs(t, err, ErrInvalidLink)
}
