package identity

import (
	"context"
	"errors"
	"fmt"

	"github.com/golang-jwt/jwt/v5"
)

// ErrTokenInvalid is returned when an ID token fails to parse or verify.
var ErrTokenInvalid = errors.New("id token invalid")

// Principal identifies the authenticated operator. The Email is what gets
// stamped into authenticatedBy fields on the records this operator approves.
type Principal struct {
	UserID string
	Email  string
}

// CredentialVerifier checks an email/password pair against the external auth
// provider and returns the resulting principal. Implementations wrap the
// provider SDK or REST surface.
type CredentialVerifier interface {
	Verify(ctx context.Context, email, password string) (Principal, error)
}

type idTokenClaims struct {
	Email string `json:"email"`
	jwt.RegisteredClaims
}

// ParseIDToken extracts the Principal from a provider-issued JWT ID token.
// keyFunc supplies the verification key, as with jwt.Parse; signature and
// registered-claim validation (exp, nbf) apply.
func ParseIDToken(token string, keyFunc jwt.Keyfunc) (Principal, error) {
	claims := &idTokenClaims{}
	parsed, err := jwt.ParseWithClaims(token, claims, keyFunc)
	if err != nil {
		return Principal{}, fmt.Errorf("%w: %v", ErrTokenInvalid, err)
	}
	if !parsed.Valid {
		return Principal{}, ErrTokenInvalid
	}
	if claims.Subject == "" {
		return Principal{}, fmt.Errorf("%w: missing subject", ErrTokenInvalid)
	}
	return Principal{
		UserID: claims.Subject,
		Email:  claims.Email,
	}, nil
}
