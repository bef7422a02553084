package session

import (
	"errors"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/golang-jwt/jwt/v5"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const (
	testIssuer   = "authbridge"
	testAudience = "openhands"
)

func testConfig(now func() time.Time) *Config {
	return &Config{
		Secret:   []byte("test-signing-secret"),
		Issuer:   testIssuer,
		Audience: testAudience,
		Now:      now,
	}
}

func testIdentity() Identity {
	return Identity{
		GitHubID:    12345,
		Login:       "octocat",
		Name:        "The Octocat",
		Email:       "octocat@example.com",
		AvatarURL:   "https://avatars.example.com/u/12345",
		AccessToken: "gho_testtoken",
	}
}

func mintAndVerify(t *testing.T, cfg *Config, id Identity) *Claims {
	t.Helper()

	minter, err := NewMinter(cfg)
	require.NoError(t, err)
	token, err := minter.Mint(id)
	require.NoError(t, err)

	verifier, err := NewVerifier(cfg)
	require.NoError(t, err)
	claims, err := verifier.Verify(token)
	require.NoError(t, err)
	return claims
}

func TestMintVerify_RoundTrip(t *testing.T) {
	cfg := testConfig(nil)
	claims := mintAndVerify(t, cfg, testIdentity())

	assert.Equal(t, "12345", claims.Subject)
	assert.Equal(t, int64(12345), claims.GitHubID)
	assert.Equal(t, "octocat", claims.GitHubLogin)
	assert.Equal(t, "octocat@example.com", claims.Email)
	assert.Equal(t, "The Octocat", claims.Name)
	assert.Equal(t, "gho_testtoken", claims.GitHubToken)
	assert.Equal(t, testIssuer, claims.Issuer)
	assert.Contains(t, []string(claims.Audience), testAudience)
}

func TestMint_EmptyEmailTolerated(t *testing.T) {
	id := testIdentity()
	id.Email = ""
	id.Name = ""

	claims := mintAndVerify(t, testConfig(nil), id)
	assert.Empty(t, claims.Email)
	assert.Empty(t, claims.Name)
}

func TestMint_ExpirySetTo24h(t *testing.T) {
	issued := time.Date(2026, 3, 1, 12, 0, 0, 0, time.UTC)
	cfg := testConfig(func() time.Time { return issued })

	claims := mintAndVerify(t, cfg, testIdentity())
	require.NotNil(t, claims.ExpiresAt)
	assert.Equal(t, issued.Add(24*time.Hour).Unix(), claims.ExpiresAt.Unix())
}

func TestVerify_Expired(t *testing.T) {
	issued := time.Now().Add(-25 * time.Hour)
	mintCfg := testConfig(func() time.Time { return issued })

	minter, err := NewMinter(mintCfg)
	require.NoError(t, err)
	token, err := minter.Mint(testIdentity())
	require.NoError(t, err)

	// Signature is valid; only the validity window has passed.
	verifier, err := NewVerifier(testConfig(nil))
	require.NoError(t, err)
	_, err = verifier.Verify(token)
	assert.ErrorIs(t, err, ErrInvalidSession)
}

func TestVerify_Rejections(t *testing.T) {
	base := testConfig(nil)

	otherSecret := testConfig(nil)
	otherSecret.Secret = []byte("a-different-secret")

	otherIssuer := testConfig(nil)
	otherIssuer.Issuer = "someone-else"

	otherAudience := testConfig(nil)
	otherAudience.Audience = "another-app"

	tests := []struct {
		name    string
		mintCfg *Config
	}{
		{"wrong secret", otherSecret},
		{"wrong issuer", otherIssuer},
		{"wrong audience", otherAudience},
	}

	verifier, err := NewVerifier(base)
	require.NoError(t, err)

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			minter, err := NewMinter(tt.mintCfg)
			require.NoError(t, err)
			token, err := minter.Mint(testIdentity())
			require.NoError(t, err)

			_, err = verifier.Verify(token)
			assert.ErrorIs(t, err, ErrInvalidSession)
		})
	}
}

func TestVerify_RejectsUnsignedToken(t *testing.T) {
	// alg=none must never pass, even with matching claims.
	claims := &Claims{
		RegisteredClaims: jwt.RegisteredClaims{
			Subject:   "12345",
			Issuer:    testIssuer,
			Audience:  jwt.ClaimStrings{testAudience},
			ExpiresAt: jwt.NewNumericDate(time.Now().Add(time.Hour)),
		},
	}
	token := jwt.NewWithClaims(jwt.SigningMethodNone, claims)
	unsigned, err := token.SignedString(jwt.UnsafeAllowNoneSignatureType)
	require.NoError(t, err)

	verifier, err := NewVerifier(testConfig(nil))
	require.NoError(t, err)
	_, err = verifier.Verify(unsigned)
	assert.ErrorIs(t, err, ErrInvalidSession)
}

func TestVerify_Garbage(t *testing.T) {
	verifier, err := NewVerifier(testConfig(nil))
	require.NoError(t, err)

	for _, token := range []string{"garbage", "a.b.c", "", "e30.e30."} {
		_, err := verifier.Verify(token)
		assert.Error(t, err, "token %q", token)
		assert.False(t, errors.Is(err, ErrNoToken))
	}
}

func TestFromRequest_CookieTakesPrecedence(t *testing.T) {
	cfg := testConfig(nil)
	minter, err := NewMinter(cfg)
	require.NoError(t, err)

	cookieID := testIdentity()
	cookieToken, err := minter.Mint(cookieID)
	require.NoError(t, err)

	bearerID := testIdentity()
	bearerID.GitHubID = 99999
	bearerID.Login = "someone-else"
	bearerToken, err := minter.Mint(bearerID)
	require.NoError(t, err)

	r := httptest.NewRequest(http.MethodGet, "/oauth/session", nil)
	r.AddCookie(&http.Cookie{Name: CookieName, Value: cookieToken})
	r.Header.Set("Authorization", "Bearer "+bearerToken)

	verifier, err := NewVerifier(cfg)
	require.NoError(t, err)
	claims, err := verifier.FromRequest(r)
	require.NoError(t, err)
	assert.Equal(t, int64(12345), claims.GitHubID, "cookie claims must win over bearer header")
}

func TestFromRequest_BearerFallback(t *testing.T) {
	cfg := testConfig(nil)
	minter, err := NewMinter(cfg)
	require.NoError(t, err)
	token, err := minter.Mint(testIdentity())
	require.NoError(t, err)

	r := httptest.NewRequest(http.MethodGet, "/oauth/session", nil)
	r.Header.Set("Authorization", "Bearer "+token)

	verifier, err := NewVerifier(cfg)
	require.NoError(t, err)
	claims, err := verifier.FromRequest(r)
	require.NoError(t, err)
	assert.Equal(t, "octocat", claims.GitHubLogin)
}

func TestFromRequest_NoCredential(t *testing.T) {
	verifier, err := NewVerifier(testConfig(nil))
	require.NoError(t, err)

	tests := []struct {
		name  string
		setup func(r *http.Request)
	}{
		{"nothing", func(*http.Request) {}},
		{"empty cookie", func(r *http.Request) {
			r.AddCookie(&http.Cookie{Name: CookieName, Value: ""})
		}},
		{"non-bearer authorization", func(r *http.Request) {
			r.Header.Set("Authorization", "Basic dXNlcjpwYXNz")
		}},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			r := httptest.NewRequest(http.MethodGet, "/oauth/session", nil)
			tt.setup(r)
			_, err := verifier.FromRequest(r)
			assert.ErrorIs(t, err, ErrNoToken)
		})
	}
}

func TestCookie_Attributes(t *testing.T) {
	cfg := testConfig(nil)
	cfg.SecureCookies = true
	minter, err := NewMinter(cfg)
	require.NoError(t, err)

	c := minter.Cookie("tok")
	assert.Equal(t, CookieName, c.Name)
	assert.Equal(t, "tok", c.Value)
	assert.Equal(t, int(Lifetime.Seconds()), c.MaxAge)
	assert.True(t, c.HttpOnly)
	assert.True(t, c.Secure)
	assert.Equal(t, http.SameSiteLaxMode, c.SameSite)
	assert.Equal(t, "/", c.Path)
}

func TestClearCookie(t *testing.T) {
	c := ClearCookie(false)
	assert.Equal(t, CookieName, c.Name)
	assert.Empty(t, c.Value)
	assert.Negative(t, c.MaxAge)
	assert.True(t, c.HttpOnly)
}
