package storage

import (
	"testing"
	"time"

	"github.com/stretchr/testify/require"
)

func TestPreviewSignerSignAndVerify(t *testing.T) {
	signer := NewPreviewSigner("secret", time.Hour)
	token, expiresAt, err := signer.Sign("draft-1", "pending/0")
	require.NoError(t, err)
	require.NotEmpty(t, token)
	require.False(t, expiresAt.IsZero())

	grant, err := signer.Verify(token)
	require.NoError(t, err)
	require.Equal(t, "draft-1", grant.DraftID)
	require.Equal(t, "pending/0", grant.Key)
	require.WithinDuration(t, expiresAt, grant.ExpiresAt, time.Second)
}

func TestPreviewSignerExpired(t *testing.T) {
	signer := NewPreviewSigner("secret", time.Minute)
	token, _, err := signer.Sign("draft-1", "k")
	require.NoError(t, err)

	signer.now = func() time.Time { return time.Now().Add(2 * time.Minute) }
	_, err = signer.Verify(token)
	require.ErrorIs(t, err, ErrTokenExpired)
}

func TestPreviewSignerRejectsTampering(t *testing.T) {
	signer := NewPreviewSigner("secret", time.Hour)
	token, _, err := signer.Sign("draft-1", "k")
	require.NoError(t, err)

	other := NewPreviewSigner("other", time.Hour)
	_, err = other.Verify(token)
	require.ErrorIs(t, err, ErrTokenSignature)

	_, err = signer.Verify("a.b.c")
	require.ErrorIs(t, err, ErrTokenFormat)

	_, _, err = NewPreviewSigner("", time.Hour).Sign("d", "k")
	require.Error(t, err)
}
