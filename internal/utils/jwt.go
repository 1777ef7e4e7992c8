package utils // package utils provides helpers for token issuing and password hashing

import (
	"errors"  // sentinel error for rejected tokens
	"strconv" // user ids travel as decimal strings in the sub claim
	"time"    // expiry computation

	"github.com/golang-jwt/jwt/v5" // JWT library for creating and verifying signed tokens

	"github.com/iliyamo/shop-api/internal/model"
)

// ErrInvalidToken is returned for any token that fails to parse, carries a
// bad signature, uses an unexpected algorithm, is expired or holds claims
// that do not describe a known role.
var ErrInvalidToken = errors.New("invalid token")

// AccessToken represents a signed JWT access token along with its expiry.
// There is no refresh token: clients sign in again once it expires.
type AccessToken struct {
	Token string    // the serialized JWT string
	Exp   time.Time // the UTC expiration time
}

// Claims is the payload of an access token. The subject holds the user id.
type Claims struct {
	Username string `json:"username"`
	Role     string `json:"role"`
	jwt.RegisteredClaims
}

// NewAccessToken builds and signs an HS256 JWT for the identity. The token
// embeds the username, the user id (as sub) and the role, and expires
// after ttl.
func NewAccessToken(secret string, id model.Identity, ttl time.Duration) (AccessToken, error) {
	now := time.Now().UTC()
	exp := now.Add(ttl)
	claims := Claims{
		Username: id.Username,
		Role:     string(id.Role),
		RegisteredClaims: jwt.RegisteredClaims{
			Subject:   strconv.FormatUint(id.ID, 10),
			ExpiresAt: jwt.NewNumericDate(exp),
			IssuedAt:  jwt.NewNumericDate(now),
		},
	}
	signed, err := jwt.NewWithClaims(jwt.SigningMethodHS256, claims).SignedString([]byte(secret))
	if err != nil {
		return AccessToken{}, err
	}
	return AccessToken{Token: signed, Exp: exp}, nil
}

// ParseAccessToken verifies raw against secret and returns the identity it
// carries. Only HS256 is accepted and the exp claim is mandatory.
func ParseAccessToken(secret, raw string) (model.Identity, error) {
	var claims Claims
	tok, err := jwt.ParseWithClaims(raw, &claims, func(t *jwt.Token) (interface{}, error) {
		return []byte(secret), nil
	}, jwt.WithValidMethods([]string{jwt.SigningMethodHS256.Alg()}), jwt.WithExpirationRequired())
	if err != nil || !tok.Valid {
		return model.Identity{}, ErrInvalidToken
	}
	uid, err := strconv.ParseUint(claims.Subject, 10, 64)
	if err != nil || uid == 0 {
		return model.Identity{}, ErrInvalidToken
	}
	role, ok := model.ParseRole(claims.Role)
	if !ok || role == model.RoleGuest {
		return model.Identity{}, ErrInvalidToken
	}
	return model.Identity{ID: uid, Username: claims.Username, Role: role}, nil
}
