package storage

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestSignedURLSignerRoundTrip(t *testing.T) {
	signer := NewSignedURLSigner("secret", time.Hour)
	token, expiresAt, err := signer.Sign("export-1", "2024-03-01/حالات_الطوارئ_2024-03-01.xlsx")
	require.NoError(t, err)
	require.NotEmpty(t, token)

	download, err := signer.Verify(token)
	require.NoError(t, err)
	assert.Equal(t, "export-1", download.ExportID)
	assert.Equal(t, "2024-03-01/حالات_الطوارئ_2024-03-01.xlsx", download.Path)
	assert.True(t, expiresAt.Equal(download.ExpiresAt))
}

func TestSignedURLSignerExpired(t *testing.T) {
	signer := NewSignedURLSigner("secret", time.Minute)
	issued := time.Date(2024, 3, 1, 10, 0, 0, 0, time.UTC)
	signer.now = func() time.Time { return issued }
	token, _, err := signer.Sign("export-1", "cases.csv")
	require.NoError(t, err)

	signer.now = func() time.Time { return issued.Add(2 * time.Minute) }
	download, err := signer.Verify(token)
	assert.ErrorIs(t, err, ErrTokenExpired)
	assert.Equal(t, "cases.csv", download.Path)
}

func TestSignedURLSignerRejectsTampering(t *testing.T) {
	signer := NewSignedURLSigner("secret", time.Hour)
	token, _, err := signer.Sign("export-1", "cases.csv")
	require.NoError(t, err)

	other := NewSignedURLSigner("other", time.Hour)
	_, err = other.Verify(token)
	assert.ErrorIs(t, err, ErrTokenSignature)

	_, err = signer.Verify("not-a-token")
	assert.ErrorIs(t, err, ErrTokenMalformed)

	_, _, err = signer.Sign("", "cases.csv")
	assert.Error(t, err)
}
