package jwttoken

import (
	"errors"
	"time"

	"github.com/golang-jwt/jwt/v5"
	"github.com/google/uuid"

	"idbcrm/internal/scope"
	"idbcrm/pkg/domain"
	dErrors "idbcrm/pkg/domain-errors"
)

// Claims is the access token payload. It carries exactly what the scope
// resolver needs: who, which role, which branch.
type Claims struct {
	Role     string `json:"role"`
	BranchID string `json:"branch_id,omitempty"`
	jwt.RegisteredClaims
}

// JWTService issues and verifies HS256 access tokens.
type JWTService struct {
	signingKey []byte
	issuer     string
	now        func() time.Time
}

func NewJWTService(signingKey string, issuer string) *JWTService {
	return &JWTService{
		signingKey: []byte(signingKey),
		issuer:     issuer,
		now:        time.Now,
	}
}

// Issue signs a token for the actor valid for ttl.
func (s *JWTService) Issue(actor scope.Actor, ttl time.Duration) (string, time.Time, error) {
	now := s.now()
	expires := now.Add(ttl)
	claims := Claims{
		Role: actor.Role.String(),
		RegisteredClaims: jwt.RegisteredClaims{
			Subject:   actor.ID.String(),
			ExpiresAt: jwt.NewNumericDate(expires),
			IssuedAt:  jwt.NewNumericDate(now),
			NotBefore: jwt.NewNumericDate(now),
			Issuer:    s.issuer,
			ID:        uuid.NewString(),
		},
	}
	if actor.HasBranch() {
		claims.BranchID = actor.BranchID.String()
	}

	signed, err := jwt.NewWithClaims(jwt.SigningMethodHS256, claims).SignedString(s.signingKey)
	if err != nil {
		return "", time.Time{}, err
	}
	return signed, expires, nil
}

// ValidateToken parses and verifies a token, rejecting non-HMAC algorithms.
func (s *JWTService) ValidateToken(tokenString string) (*Claims, error) {
	parsed, err := jwt.ParseWithClaims(tokenString, &Claims{}, func(token *jwt.Token) (any, error) {
		if _, ok := token.Method.(*jwt.SigningMethodHMAC); !ok {
			return nil, jwt.ErrTokenUnverifiable
		}
		return s.signingKey, nil
	},
		jwt.WithIssuer(s.issuer),
		jwt.WithTimeFunc(s.now),
		jwt.WithExpirationRequired(),
	)
	if err != nil {
		if errors.Is(err, jwt.ErrTokenExpired) {
			return nil, dErrors.New(dErrors.CodeUnauthorized, "token has expired")
		}
		return nil, dErrors.New(dErrors.CodeUnauthorized, "invalid token")
	}

	claims, ok := parsed.Claims.(*Claims)
	if !ok || !parsed.Valid {
		return nil, dErrors.New(dErrors.CodeUnauthorized, "invalid token claims")
	}
	return claims, nil
}

// Verify decodes a token into the actor it was issued for.
func (s *JWTService) Verify(tokenString string) (scope.Actor, error) {
	claims, err := s.ValidateToken(tokenString)
	if err != nil {
		return scope.Actor{}, err
	}
	id, err := domain.ParsePartnerID(claims.Subject)
	if err != nil {
		return scope.Actor{}, dErrors.New(dErrors.CodeUnauthorized, "invalid token subject")
	}
	role, err := scope.ParseRole(claims.Role)
	if err != nil {
		return scope.Actor{}, dErrors.New(dErrors.CodeUnauthorized, "invalid token role")
	}
	actor := scope.Actor{ID: id, Role: role}
	if claims.BranchID != "" {
		branch, err := domain.ParseBranchID(claims.BranchID)
		if err != nil {
			return scope.Actor{}, dErrors.New(dErrors.CodeUnauthorized, "invalid token branch")
		}
		actor.BranchID = &branch
	}
	return actor, nil
}
