package auth

import (
	"net/http"
	"testing"
	"time"

	"github.com/lestrrat-go/jwx/v2/jwa"
	"github.com/lestrrat-go/jwx/v2/jwt"
	"github.com/stretchr/testify/require"

	"github.com/tokoanjar/pos-api/internal/common"
)

func newTokenService(t *testing.T, now func() time.Time) *Service {
	t.Helper()
	svc, err := NewService(ServiceConfig{Secret: "unit-test-secret", Now: now})
	require.NoError(t, err)
	return svc
}

func TestSignAndParseAccessToken(t *testing.T) {
	fixed := time.Date(2026, time.September, 2, 9, 0, 0, 0, time.UTC)
	svc := newTokenService(t, func() time.Time { return fixed })

	token, expiresAt, err := svc.signAccessToken("7f9c24e5-0a1b-4c3d-9e8f-001122334455", RoleCashier)
	require.NoError(t, err)
	require.Equal(t, fixed.Add(12*time.Hour), expiresAt)

	subject, role, err := svc.ParseAccessToken(token)
	require.NoError(t, err)
	require.Equal(t, "7f9c24e5-0a1b-4c3d-9e8f-001122334455", subject)
	require.Equal(t, RoleCashier, role)
}

func TestParseAccessTokenUsesInjectedClock(t *testing.T) {
	fixed := time.Now().Add(365 * 24 * time.Hour)
	svc := newTokenService(t, func() time.Time { return fixed })

	token, _, err := svc.signAccessToken("user-1", RoleCashier)
	require.NoError(t, err)

	// The token's iat sits a year ahead of the wall clock; validation must
	// run against the service clock, not time.Now.
	subject, _, err := svc.ParseAccessToken(token)
	require.NoError(t, err)
	require.Equal(t, "user-1", subject)
}

func TestParseAccessTokenExpired(t *testing.T) {
	issued := time.Date(2026, time.September, 2, 9, 0, 0, 0, time.UTC)
	clock := issued
	svc := newTokenService(t, func() time.Time { return clock })

	token, _, err := svc.signAccessToken("user-1", RoleAdmin)
	require.NoError(t, err)

	clock = issued.Add(13 * time.Hour)
	_, _, err = svc.ParseAccessToken(token)
	requireUnauthorized(t, err)
}

func TestParseAccessTokenWrongSecret(t *testing.T) {
	svc := newTokenService(t, nil)
	other, err := NewService(ServiceConfig{Secret: "a-different-secret"})
	require.NoError(t, err)

	token, _, err := other.signAccessToken("user-1", RoleAdmin)
	require.NoError(t, err)

	_, _, err = svc.ParseAccessToken(token)
	requireUnauthorized(t, err)
}

func TestParseAccessTokenWrongIssuer(t *testing.T) {
	svc := newTokenService(t, nil)
	other, err := NewService(ServiceConfig{Secret: "unit-test-secret", Issuer: "someone-else"})
	require.NoError(t, err)

	token, _, err := other.signAccessToken("user-1", RoleCashier)
	require.NoError(t, err)

	_, _, err = svc.ParseAccessToken(token)
	requireUnauthorized(t, err)
}

func TestParseAccessTokenRejectsForeignAlgorithm(t *testing.T) {
	svc := newTokenService(t, nil)

	tok, err := jwt.NewBuilder().
		Subject("user-1").
		Issuer("pos-api").
		Expiration(time.Now().Add(time.Hour)).
		Build()
	require.NoError(t, err)
	signed, err := jwt.Sign(tok, jwt.WithKey(jwa.HS512, []byte("unit-test-secret")))
	require.NoError(t, err)

	_, _, err = svc.ParseAccessToken(string(signed))
	requireUnauthorized(t, err)
}

func TestParseAccessTokenGarbage(t *testing.T) {
	svc := newTokenService(t, nil)

	_, _, err := svc.ParseAccessToken("")
	requireUnauthorized(t, err)

	_, _, err = svc.ParseAccessToken("not.a.token")
	requireUnauthorized(t, err)
}

func requireUnauthorized(t *testing.T, err error) {
	t.Helper()
	var appErr *common.AppError
	require.ErrorAs(t, err, &appErr)
	require.Equal(t, http.StatusUnauthorized, appErr.HTTPStatus)
}
