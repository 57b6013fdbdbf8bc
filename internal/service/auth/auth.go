package auth

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"strings"
	"time"

	"github.com/golang-jwt/jwt/v5"
	"github.com/google/uuid"

	"github.com/nkiryanov/escrowledger/internal/apperrors"
)

const (
	defaultSigningMethod    = "HS256"
	defaultAccessHeaderName = "Authorization"
	defaultAccessAuthScheme = "Bearer"
)

// Access token the marketplace issues for a profile
type AccessTokenClaims struct {
	jwt.RegisteredClaims
	ProfileID uuid.UUID `json:"pid"`
}

type Config struct {
	// Secret key shared with the marketplace to verify access tokens
	// Required to be set
	SecretKey string

	// JWT MAC (Message Authentication Code) algorithm
	// If not set than default is used
	Alg string
}

// Authenticate profiles by bearer access token
// Tokens are issued by the marketplace, Issue exists for tools and tests
type Service struct {
	key string
	alg jwt.SigningMethod

	accessHeaderName string
	accessAuthScheme string
}

func New(cfg Config) (*Service, error) {
	if cfg.SecretKey == "" {
		return nil, errors.New("secret key must not be empty")
	}
	if cfg.Alg == "" {
		cfg.Alg = defaultSigningMethod
	}

	alg := jwt.GetSigningMethod(cfg.Alg)
	if alg == nil {
		return nil, fmt.Errorf("unknown signing method %q", cfg.Alg)
	}

	return &Service{
		key:              cfg.SecretKey,
		alg:              alg,
		accessHeaderName: defaultAccessHeaderName,
		accessAuthScheme: defaultAccessAuthScheme,
	}, nil
}

func (s *Service) Issue(profileID uuid.UUID, ttl time.Duration) (string, error) {
	now := time.Now().Truncate(time.Second)

	token := jwt.NewWithClaims(
		s.alg,
		AccessTokenClaims{
			RegisteredClaims: jwt.RegisteredClaims{
				ID:        uuid.NewString(),
				IssuedAt:  jwt.NewNumericDate(now),
				ExpiresAt: jwt.NewNumericDate(now.Add(ttl)),
			},
			ProfileID: profileID,
		},
	)

	access, err := token.SignedString([]byte(s.key))
	if err != nil {
		return "", fmt.Errorf("error while signing access token. Err: %w", err)
	}

	return access, nil
}

// Parse and validate access token
func (s *Service) ParseAccess(access string) (uuid.UUID, error) {
	claims := &AccessTokenClaims{}

	_, err := jwt.ParseWithClaims(
		access,
		claims,
		func(t *jwt.Token) (any, error) { return []byte(s.key), nil },
		jwt.WithValidMethods([]string{s.alg.Alg()}),
		jwt.WithExpirationRequired(),
	)
	if err != nil {
		return uuid.Nil, fmt.Errorf("error parsing token. Err: %w", errors.Join(apperrors.ErrUnauthorized, err))
	}
	if claims.ProfileID == uuid.Nil {
		return uuid.Nil, apperrors.ErrUnauthorized
	}

	return claims.ProfileID, nil
}

// Get profile id from request access token
func (s *Service) Auth(_ context.Context, r *http.Request) (uuid.UUID, error) {
	header := r.Header.Get(s.accessHeaderName)

	scheme, access, ok := strings.Cut(header, " ")
	if !ok || !strings.EqualFold(scheme, s.accessAuthScheme) || access == "" {
		return uuid.Nil, apperrors.ErrUnauthorized
	}

	return s.ParseAccess(access)
}
