package token

import (
	"crypto/rand"
	"encoding/hex"
	"strings"
	"time"

	"github.com/golang-jwt/jwt/v5"
	"github.com/google/uuid"
	apperrors "github.com/jrsteele09/dietitian-server/internal/errors"
	"github.com/pkg/errors"
)

const (
	defaultAccessTokenExpiry = "7d"
	defaultRefreshTokenBytes = 32 // 256 bits
)

// AccessClaims is the identity encoded in an access token.
type AccessClaims struct {
	SubjectID      string `json:"sub"`
	Email          string `json:"email"`
	Role           string `json:"role"`
	OrganizationID string `json:"organizationId"`
}

// Claims is the JWT payload of an access token.
type Claims struct {
	Email          string `json:"email"`
	Role           string `json:"role"`
	OrganizationID string `json:"organizationId"`
	jwt.RegisteredClaims
}

type Manager struct {
	signer            Signer
	issuer            string
	accessTokenExpiry string
	refreshTokenBytes int
	nowFunc           func() time.Time
}

type ManagerOption func(*Manager)

func WithNowFunc(now func() time.Time) ManagerOption {
	return func(m *Manager) {
		m.nowFunc = now
	}
}

func WithIssuer(issuer string) ManagerOption {
	return func(m *Manager) {
		m.issuer = issuer
	}
}

// WithAccessTokenExpiry sets the access token lifetime as a duration expression ("7d", "15m").
func WithAccessTokenExpiry(expr string) ManagerOption {
	return func(m *Manager) {
		m.accessTokenExpiry = expr
	}
}

func WithRefreshTokenBytes(n int) ManagerOption {
	return func(m *Manager) {
		m.refreshTokenBytes = n
	}
}

func New(signer Signer, options ...ManagerOption) (*Manager, error) {
	m := &Manager{
		signer:            signer,
		accessTokenExpiry: defaultAccessTokenExpiry,
		refreshTokenBytes: defaultRefreshTokenBytes,
	}

	for _, opt := range options {
		opt(m)
	}

	if m.nowFunc == nil {
		m.nowFunc = time.Now
	}
	if _, err := ParseDuration(m.accessTokenExpiry); err != nil {
		return nil, errors.Wrap(err, "Manager.New access token expiry")
	}
	if m.refreshTokenBytes < 16 {
		return nil, errors.New("Manager.New refresh tokens must be at least 16 bytes")
	}
	return m, nil
}

// IssueAccessToken signs a time-limited token carrying claims.
func (m *Manager) IssueAccessToken(claims AccessClaims) (string, error) {
	now := m.nowFunc()
	expiresAt, err := m.ExpiryFor(m.accessTokenExpiry)
	if err != nil {
		return "", err
	}

	signed, err := m.signer.Sign(Claims{
		Email:          claims.Email,
		Role:           claims.Role,
		OrganizationID: claims.OrganizationID,
		RegisteredClaims: jwt.RegisteredClaims{
			Issuer:    m.issuer,
			Subject:   claims.SubjectID,
			IssuedAt:  jwt.NewNumericDate(now),
			ExpiresAt: jwt.NewNumericDate(expiresAt),
			ID:        uuid.New().String(),
		},
	})
	if err != nil {
		return "", errors.Wrap(err, "Manager.IssueAccessToken Sign")
	}
	return signed, nil
}

// IssueRefreshToken returns a random hex string. It carries no claims and is only
// ever used as a lookup key for a session.
func (m *Manager) IssueRefreshToken() (string, error) {
	tokenBytes := make([]byte, m.refreshTokenBytes)
	if _, err := rand.Read(tokenBytes); err != nil {
		return "", errors.Wrap(err, "Manager.IssueRefreshToken rand.Read")
	}
	return hex.EncodeToString(tokenBytes), nil
}

// VerifyAccessToken checks the signature and expiry of rawToken and returns its claims.
// Every failure is reported as ErrInvalidToken.
func (m *Manager) VerifyAccessToken(rawToken string) (*AccessClaims, error) {
	if strings.TrimSpace(rawToken) == "" {
		return nil, apperrors.ErrInvalidToken
	}

	parserOpts := []jwt.ParserOption{
		jwt.WithTimeFunc(m.nowFunc),
		jwt.WithValidMethods([]string{m.signer.GetSigningMethod().Alg()}),
		jwt.WithExpirationRequired(),
	}
	if m.issuer != "" {
		parserOpts = append(parserOpts, jwt.WithIssuer(m.issuer))
	}

	claims := &Claims{}
	parsed, err := jwt.ParseWithClaims(rawToken, claims, m.signer.GetVerificationKey, parserOpts...)
	if err != nil || !parsed.Valid || claims.Subject == "" {
		return nil, apperrors.ErrInvalidToken
	}

	return &AccessClaims{
		SubjectID:      claims.Subject,
		Email:          claims.Email,
		Role:           claims.Role,
		OrganizationID: claims.OrganizationID,
	}, nil
}

// ExpiryFor converts a duration expression into an absolute time from now.
func (m *Manager) ExpiryFor(expr string) (time.Time, error) {
	return ExpiryFrom(m.nowFunc(), expr)
}
