package authz

import (
	"context"
	"net/http"
	"strings"

	apperrors "github.com/jrsteele09/dietitian-server/internal/errors"
	"github.com/jrsteele09/dietitian-server/token"
	"github.com/jrsteele09/dietitian-server/users"
	"github.com/pkg/errors"
)

const (
	AccessTokenCookie  = "accessToken"
	RefreshTokenCookie = "refreshToken"
)

// TokenVerifier verifies access tokens.
type TokenVerifier interface {
	VerifyAccessToken(rawToken string) (*token.AccessClaims, error)
}

// Gate resolves the caller's identity and enforces role and organization membership.
type Gate struct {
	tokens TokenVerifier
	users  users.Repo
}

func NewGate(tokens TokenVerifier, userRepo users.Repo) *Gate {
	return &Gate{tokens: tokens, users: userRepo}
}

// ExtractAccessToken reads the access token from the accessToken cookie, falling back to
// an "Authorization: Bearer" header. The cookie wins when both are present.
func ExtractAccessToken(r *http.Request) string {
	if c, err := r.Cookie(AccessTokenCookie); err == nil && c.Value != "" {
		return c.Value
	}
	parts := strings.SplitN(r.Header.Get("Authorization"), " ", 2)
	if len(parts) == 2 && strings.EqualFold(parts[0], "bearer") {
		return strings.TrimSpace(parts[1])
	}
	return ""
}

// ExtractRefreshToken reads the refresh token cookie.
func ExtractRefreshToken(r *http.Request) string {
	if c, err := r.Cookie(RefreshTokenCookie); err == nil {
		return c.Value
	}
	return ""
}

func (g *Gate) Authenticate(r *http.Request) (*Identity, error) {
	return g.AuthenticateToken(r.Context(), ExtractAccessToken(r))
}

// AuthenticateToken verifies rawToken and loads the current user. The identity reflects
// the stored user, not the token claims, so role and organization changes apply at once.
func (g *Gate) AuthenticateToken(ctx context.Context, rawToken string) (*Identity, error) {
	if rawToken == "" {
		return nil, apperrors.ErrUnauthenticated
	}

	claims, err := g.tokens.VerifyAccessToken(rawToken)
	if err != nil {
		return nil, apperrors.ErrInvalidToken
	}

	user, err := g.users.GetByID(ctx, claims.SubjectID)
	if err != nil {
		if apperrors.KindOf(err) == apperrors.KindNotFound {
			return nil, apperrors.ErrInvalidToken
		}
		return nil, errors.Wrap(err, "[Gate.AuthenticateToken] GetByID")
	}
	if !user.IsActive {
		return nil, apperrors.ErrUserInactive
	}

	return &Identity{
		ID:             user.ID,
		Email:          user.Email,
		Role:           user.Role,
		OrganizationID: user.OrganizationID,
	}, nil
}

// RequireRole passes when the identity holds one of allowed.
func RequireRole(id *Identity, allowed ...users.Role) error {
	if id == nil {
		return apperrors.ErrUnauthenticated
	}
	for _, role := range allowed {
		if id.Role == role {
			return nil
		}
	}
	return apperrors.ErrForbidden
}

// RequireOrganizationAccess reports whether the user may act within organizationID.
// SUPER_ADMIN may access any organization; everyone else only their own.
func (g *Gate) RequireOrganizationAccess(ctx context.Context, userID, organizationID string) (bool, error) {
	user, err := g.users.GetByID(ctx, userID)
	if err != nil {
		if apperrors.KindOf(err) == apperrors.KindNotFound {
			return false, nil
		}
		return false, errors.Wrap(err, "[Gate.RequireOrganizationAccess] GetByID")
	}
	if user.IsSuperAdmin() {
		return true, nil
	}
	return organizationID != "" && user.OrganizationID == organizationID, nil
}

// EnsureOrganizationAccess is RequireOrganizationAccess returning ErrOrganizationAccess on denial.
func (g *Gate) EnsureOrganizationAccess(ctx context.Context, userID, organizationID string) error {
	ok, err := g.RequireOrganizationAccess(ctx, userID, organizationID)
	if err != nil {
		return err
	}
	if !ok {
		return apperrors.ErrOrganizationAccess
	}
	return nil
}
