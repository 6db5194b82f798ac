package token

import (
	"errors"
	"time"

	"github.com/ethereum/go-ethereum/common"
	"github.com/golang-jwt/jwt/v5"
	"github.com/google/uuid"

	"didregistry/internal/platform/middleware"
	dErrors "didregistry/pkg/domain-errors"
)

// Claims represents the JWT claims for registry access tokens. The subject
// claim carries the caller's hex-encoded address; the registry itself never
// verifies signatures beyond this token - establishing who the caller is
// belongs to the authentication layer that issued it.
type Claims struct {
	jwt.RegisteredClaims
}

// JWTService handles token creation and validation.
type JWTService struct {
	signingKey []byte
	issuer     string
	audience   string
}

func NewJWTService(signingKey string, issuer string, audience string) *JWTService {
	return &JWTService{
		signingKey: []byte(signingKey),
		issuer:     issuer,
		audience:   audience,
	}
}

// GenerateAccessToken issues a token for the given caller identity. Used by
// tests and local tooling; production deployments mint tokens in the
// external auth layer with the shared signing key.
func (s *JWTService) GenerateAccessToken(caller common.Address, expiresIn time.Duration) (string, error) {
	newToken := jwt.NewWithClaims(jwt.SigningMethodHS256, Claims{
		RegisteredClaims: jwt.RegisteredClaims{
			Subject:   caller.Hex(),
			ExpiresAt: jwt.NewNumericDate(time.Now().Add(expiresIn)),
			IssuedAt:  jwt.NewNumericDate(time.Now()),
			Issuer:    s.issuer,
			Audience:  []string{s.audience},
			ID:        uuid.NewString(),
		},
	})
	return newToken.SignedString(s.signingKey)
}

// ValidateToken verifies the token and extracts the caller identity.
func (s *JWTService) ValidateToken(tokenString string) (*middleware.Claims, error) {
	parsed, err := jwt.ParseWithClaims(tokenString, &Claims{}, func(token *jwt.Token) (interface{}, error) {
		if _, ok := token.Method.(*jwt.SigningMethodHMAC); !ok {
			return nil, jwt.ErrTokenUnverifiable
		}
		return s.signingKey, nil
	})
	if err != nil {
		if errors.Is(err, jwt.ErrTokenExpired) {
			return nil, dErrors.New(dErrors.CodeUnauthorized, "token has expired")
		}
		return nil, dErrors.New(dErrors.CodeUnauthorized, "invalid token")
	}
	if !parsed.Valid {
		return nil, dErrors.New(dErrors.CodeUnauthorized, "invalid token")
	}

	claims, ok := parsed.Claims.(*Claims)
	if !ok {
		return nil, dErrors.New(dErrors.CodeUnauthorized, "invalid token claims")
	}
	if !common.IsHexAddress(claims.Subject) {
		return nil, dErrors.New(dErrors.CodeUnauthorized, "token subject is not a valid identity")
	}

	return &middleware.Claims{Caller: common.HexToAddress(claims.Subject)}, nil
}
