package core

import (
	"errors"
	"strconv"
	"time"

	"github.com/golang-jwt/jwt/v5"
)

// TokenLifetime is the fixed validity of an issued token. It is never extended.
const TokenLifetime = 86_400_000 * time.Millisecond

// TokenIssuer produces signed bearer tokens for a principal.
type TokenIssuer interface {
	Issue(p Principal) (string, error)
}

// TokenVerifier validates a bearer token and recovers its principal.
type TokenVerifier interface {
	Verify(token string) (Principal, error)
}

// SigningKey is the process-wide HS256 secret. It is shared read-only by the
// issuer and the verifier.
type SigningKey []byte

type userClaims struct {
	Email string `json:"email"`
	Role  Role   `json:"role"`
	jwt.RegisteredClaims
}

// JWTIssuer issues HS256 JWTs.
type JWTIssuer struct {
	key SigningKey
	now func() time.Time
}

// NewJWTIssuer returns an issuer using key; now defaults to time.Now.
func NewJWTIssuer(key SigningKey, now func() time.Time) *JWTIssuer {
	if now == nil {
		now = time.Now
	}
	return &JWTIssuer{key: key, now: now}
}

// Issue signs {sub, email, role, iat, exp} with exp = iat + TokenLifetime.
func (i *JWTIssuer) Issue(p Principal) (string, error) {
	// NumericDate has second precision; truncating here keeps exp-iat exact.
	issuedAt := i.now().Truncate(time.Second)
	claims := userClaims{
		Email: p.Email,
		Role:  p.Role,
		RegisteredClaims: jwt.RegisteredClaims{
			Subject:   strconv.FormatInt(p.ID, 10),
			IssuedAt:  jwt.NewNumericDate(issuedAt),
			ExpiresAt: jwt.NewNumericDate(issuedAt.Add(TokenLifetime)),
		},
	}
	return jwt.NewWithClaims(jwt.SigningMethodHS256, claims).SignedString([]byte(i.key))
}

// JWTVerifier verifies tokens produced by JWTIssuer.
type JWTVerifier struct {
	key    SigningKey
	parser *jwt.Parser
}

// NewJWTVerifier returns a verifier using key; now defaults to time.Now.
func NewJWTVerifier(key SigningKey, now func() time.Time) *JWTVerifier {
	if now == nil {
		now = time.Now
	}
	return &JWTVerifier{
		key: key,
		parser: jwt.NewParser(
			jwt.WithValidMethods([]string{jwt.SigningMethodHS256.Alg()}),
			jwt.WithExpirationRequired(),
			jwt.WithStrictDecoding(),
			jwt.WithTimeFunc(now),
		),
	}
}

// Verify checks the signature first, then expiry. A bad signature is always
// TokenInvalid, even on an expired token.
func (v *JWTVerifier) Verify(tokenString string) (Principal, error) {
	if tokenString == "" {
		return Principal{}, tokenInvalid(errors.New("empty token"))
	}
	var claims userClaims
	_, err := v.parser.ParseWithClaims(tokenString, &claims, func(*jwt.Token) (any, error) {
		return []byte(v.key), nil
	})
	if err != nil {
		if errors.Is(err, jwt.ErrTokenExpired) && !errors.Is(err, jwt.ErrTokenSignatureInvalid) {
			return Principal{}, &Error{Kind: KindTokenExpired, Message: "token expired", Cause: err}
		}
		return Principal{}, tokenInvalid(err)
	}

	id, err := strconv.ParseInt(claims.Subject, 10, 64)
	if err != nil || id <= 0 {
		return Principal{}, tokenInvalid(errors.New("bad subject claim"))
	}
	if claims.Email == "" {
		return Principal{}, tokenInvalid(errors.New("missing email claim"))
	}
	if !claims.Role.Valid() {
		return Principal{}, tokenInvalid(errors.New("bad role claim"))
	}
	return Principal{ID: id, Email: claims.Email, Role: claims.Role}, nil
}
