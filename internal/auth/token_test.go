package auth

import (
	"context"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/stretchr/testify/require"
)

func testVerifier() *Verifier {
	return NewVerifier(Config{
		Secret:      "test-secret",
		Issuer:      "private-chat",
		TokenHeader: "Authorization",
		QueryKey:    "token",
		TTL:         time.Hour,
	})
}

func TestIssueVerify(t *testing.T) {
	t.Parallel()

	v := testVerifier()
	token, err := v.Issue(Identity{UserID: 42, Username: "alice"})
	require.NoError(t, err)

	id, err := v.Verify(token)
	require.NoError(t, err)
	require.Equal(t, Identity{UserID: 42, Username: "alice"}, id)
}

func TestVerifyRejects(t *testing.T) {
	t.Parallel()

	v := testVerifier()

	_, err := v.Verify("not-a-token")
	require.Equal(t, ErrInvalidToken, err)

	other := NewVerifier(Config{Secret: "other", Issuer: "private-chat", TTL: time.Hour})
	token, err := other.Issue(Identity{UserID: 1})
	require.NoError(t, err)
	_, err = v.Verify(token)
	require.Equal(t, ErrInvalidToken, err)

	expired := NewVerifier(Config{Secret: "test-secret", Issuer: "private-chat", TTL: -time.Minute})
	token, err = expired.Issue(Identity{UserID: 1})
	require.NoError(t, err)
	_, err = v.Verify(token)
	require.Equal(t, ErrInvalidToken, err)

	token, err = v.Issue(Identity{UserID: 0})
	require.NoError(t, err)
	_, err = v.Verify(token)
	require.Equal(t, ErrInvalidToken, err)
}

func TestExtractToken(t *testing.T) {
	t.Parallel()

	v := testVerifier()

	r := httptest.NewRequest("GET", "/ws", nil)
	r.Header.Set("Authorization", "Bearer abc")
	require.Equal(t, "abc", v.ExtractToken(r))

	r = httptest.NewRequest("GET", "/ws?token=xyz", nil)
	require.Equal(t, "xyz", v.ExtractToken(r))

	r = httptest.NewRequest("GET", "/ws", nil)
	require.Empty(t, v.ExtractToken(r))
}

func TestContext(t *testing.T) {
	t.Parallel()

	_, ok := FromContext(context.Background())
	require.False(t, ok)

	ctx := NewContext(context.Background(), Identity{UserID: 3, Username: "bob"})
	id, ok := FromContext(ctx)
	require.True(t, ok)
	require.Equal(t, int64(3), id.UserID)
}
