package auth

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/golang-jwt/jwt/v5"
	"github.com/google/uuid"

	wrap "github.com/Temutjin2k/ride-lifecycle/pkg/logger/wrapper"
)

const accessTokenType = "access"

// TokenService signs and verifies HS256 bearer tokens. The subject is the opaque user id.
type TokenService struct {
	AccessTTL time.Duration
	issuer    string
	secret    string
}

func NewTokenService(secret, issuer string, accessTTL time.Duration) *TokenService {
	return &TokenService{
		AccessTTL: accessTTL,
		issuer:    issuer,
		secret:    secret,
	}
}

type accessClaims struct {
	TokenType string `json:"typ"`
	UserID    string `json:"user_id"`
	jwt.RegisteredClaims
}

// Issue returns a signed access token for userID, used by the seed tool and tests.
func (s *TokenService) Issue(userID string) (string, time.Time, error) {
	if userID == "" {
		return "", time.Time{}, fmt.Errorf("%w: empty user id", ErrTokenGenerateFail)
	}

	issuedAt := time.Now().UTC()
	exp := issuedAt.Add(s.AccessTTL)

	claims := accessClaims{
		TokenType: accessTokenType,
		UserID:    userID,
		RegisteredClaims: jwt.RegisteredClaims{
			ID:        uuid.NewString(),
			Subject:   userID,
			Issuer:    s.issuer,
			IssuedAt:  jwt.NewNumericDate(issuedAt),
			ExpiresAt: jwt.NewNumericDate(exp),
		},
	}

	token, err := jwt.NewWithClaims(jwt.SigningMethodHS256, claims).SignedString([]byte(s.secret))
	if err != nil {
		return "", time.Time{}, fmt.Errorf("%w: %v", ErrTokenGenerateFail, err)
	}
	return token, exp, nil
}

// Verify validates the signature and expiry and returns the subject.
func (s *TokenService) Verify(ctx context.Context, token string) (string, error) {
	ctx = wrap.WithAction(ctx, "validate_token")

	var claims accessClaims
	parsed, err := jwt.ParseWithClaims(token, &claims, func(t *jwt.Token) (any, error) {
		return []byte(s.secret), nil
	}, jwt.WithValidMethods([]string{jwt.SigningMethodHS256.Alg()}), jwt.WithExpirationRequired())
	if err != nil {
		if errors.Is(err, jwt.ErrTokenExpired) {
			return "", wrap.Error(ctx, ErrExpToken)
		}
		return "", wrap.Error(ctx, ErrInvalidToken)
	}
	if !parsed.Valid || claims.TokenType != accessTokenType {
		return "", wrap.Error(ctx, ErrInvalidToken)
	}
	if s.issuer != "" && claims.Issuer != s.issuer {
		return "", wrap.Error(ctx, ErrInvalidToken)
	}

	userID := claims.Subject
	if userID == "" {
		userID = claims.UserID
	}
	if userID == "" {
		return "", wrap.Error(ctx, fmt.Errorf("%w: missing subject", ErrInvalidToken))
	}
	return userID, nil
}
