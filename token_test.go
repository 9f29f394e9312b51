package itemgate

import (
	"strings"
	"testing"
	"time"

	"github.com/golang-jwt/jwt/v5"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestNewTokenService(t *testing.T) {
	_, err := NewTokenService(nil, 0)
	assert.Error(t, err)

	_, err = NewTokenService([]byte("s"), -time.Second)
	assert.Error(t, err)

	s, err := NewTokenService([]byte("s"), time.Hour)
	require.NoError(t, err)
	assert.Equal(t, time.Hour, s.ttl)
}

func TestTokenService_IssueVerify(t *testing.T) {
	s, err := NewTokenService([]byte("secret"), 0)
	require.NoError(t, err)

	t.Run("round trip", func(t *testing.T) {
		token, err := s.Issue(Claims{UID: "uid-1", Email: "ada@example.com"})
		require.NoError(t, err)

		claims, err := s.Verify(token)
		require.NoError(t, err)
		assert.Equal(t, Claims{UID: "uid-1", Email: "ada@example.com"}, claims)
	})

	t.Run("no expiry when ttl is zero", func(t *testing.T) {
		token, err := s.Issue(Claims{UID: "u"})
		require.NoError(t, err)

		var parsed tokenClaims
		_, _, err = jwt.NewParser().ParseUnverified(token, &parsed)
		require.NoError(t, err)
		assert.Nil(t, parsed.ExpiresAt)
		assert.NotNil(t, parsed.IssuedAt)
	})

	t.Run("missing uid", func(t *testing.T) {
		_, err := s.Issue(Claims{Email: "x"})
		assert.ErrorIs(t, err, ErrInvalidInput)
	})

	t.Run("different secret fails", func(t *testing.T) {
		other, err := NewTokenService([]byte("other-secret"), 0)
		require.NoError(t, err)
		token, err := other.Issue(Claims{UID: "u"})
		require.NoError(t, err)

		_, err = s.Verify(token)
		assert.ErrorIs(t, err, ErrInvalidToken)
	})

	t.Run("malformed and empty", func(t *testing.T) {
		for _, raw := range []string{"", "abc", "a.b.c"} {
			_, err := s.Verify(raw)
			assert.ErrorIs(t, err, ErrInvalidToken, raw)
		}
	})

	t.Run("tampered payload", func(t *testing.T) {
		token, err := s.Issue(Claims{UID: "u"})
		require.NoError(t, err)
		parts := strings.Split(token, ".")
		forged, err := NewTokenService([]byte("x"), 0)
		require.NoError(t, err)
		other, err := forged.Issue(Claims{UID: "admin"})
		require.NoError(t, err)

		_, err = s.Verify(parts[0] + "." + strings.Split(other, ".")[1] + "." + parts[2])
		assert.ErrorIs(t, err, ErrInvalidToken)
	})

	t.Run("rejects other algorithms", func(t *testing.T) {
		token := jwt.NewWithClaims(jwt.SigningMethodHS512, tokenClaims{UID: "u"})
		signed, err := token.SignedString([]byte("secret"))
		require.NoError(t, err)

		_, err = s.Verify(signed)
		assert.ErrorIs(t, err, ErrInvalidToken)

		none := jwt.NewWithClaims(jwt.SigningMethodNone, tokenClaims{UID: "u"})
		unsigned, err := none.SignedString(jwt.UnsafeAllowNoneSignatureType)
		require.NoError(t, err)

		_, err = s.Verify(unsigned)
		assert.ErrorIs(t, err, ErrInvalidToken)
	})

	t.Run("missing uid claim", func(t *testing.T) {
		token := jwt.NewWithClaims(jwt.SigningMethodHS256, tokenClaims{Email: "e"})
		signed, err := token.SignedString([]byte("secret"))
		require.NoError(t, err)

		_, err = s.Verify(signed)
		assert.ErrorIs(t, err, ErrInvalidToken)
	})
}

func TestTokenService_Expiry(t *testing.T) {
	s, err := NewTokenService([]byte("secret"), time.Minute)
	require.NoError(t, err)

	issued := time.Date(2026, 1, 1, 12, 0, 0, 0, time.UTC)
	s.now = func() time.Time { return issued }

	token, err := s.Issue(Claims{UID: "u"})
	require.NoError(t, err)

	s.now = func() time.Time { return issued.Add(30 * time.Second) }
	_, err = s.Verify(token)
	assert.NoError(t, err)

	s.now = func() time.Time { return issued.Add(2 * time.Minute) }
	_, err = s.Verify(token)
	assert.ErrorIs(t, err, ErrInvalidToken)
}
