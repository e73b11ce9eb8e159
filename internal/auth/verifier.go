// Package auth turns the backend-issued session token into a Principal.
//
// The backend signs the token; the BFF only needs the role and subject claims
// to make routing decisions. ClaimDecoder reads them without checking the
// signature, HMACVerifier additionally verifies it when the shared secret is
// known.
package auth

import (
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/golang-jwt/jwt/v5"

	"storyteller-admin/internal/model"
)

const (
	msRoleClaim    = "http://schemas.microsoft.com/ws/2008/06/identity/claims/role"
	msNameIDClaim  = "http://schemas.xmlsoap.org/ws/2005/05/identity/claims/nameidentifier"
	msEmailClaim   = "http://schemas.xmlsoap.org/ws/2005/05/identity/claims/emailaddress"
	defaultLeeway  = 30 * time.Second
	bearerPrefix   = "bearer "
	maxTokenLength = 8192
)

var (
	roleClaimKeys    = []string{"role", "Role", msRoleClaim}
	subjectClaimKeys = []string{"sub", "nameid", "userId", msNameIDClaim}
	emailClaimKeys   = []string{"email", msEmailClaim}
)

// Principal is the authenticated staff member behind a session token.
type Principal struct {
	Subject   string    `json:"subject"`
	Role      string    `json:"role"`
	Email     string    `json:"email,omitempty"`
	ExpiresAt time.Time `json:"expiresAt,omitempty"`
}

func (p Principal) IsAdmin() bool     { return p.Role == model.RoleAdmin }
func (p Principal) IsModerator() bool { return p.Role == model.RoleModerator }

// IsStaff reports whether the principal may use the console at all.
func (p Principal) IsStaff() bool { return p.IsAdmin() || p.IsModerator() }

type Verifier interface {
	Verify(token string) (Principal, error)
}

// ClaimDecoder decodes claims without signature verification.
type ClaimDecoder struct {
	now func() time.Time
}

func NewClaimDecoder() *ClaimDecoder {
	return &ClaimDecoder{now: time.Now}
}

func (d *ClaimDecoder) Verify(token string) (Principal, error) {
	token, err := normalizeToken(token)
	if err != nil {
		return Principal{}, err
	}

	claims := jwt.MapClaims{}
	if _, _, err := jwt.NewParser().ParseUnverified(token, claims); err != nil {
		return Principal{}, fmt.Errorf("%w: %v", model.ErrInvalidToken, err)
	}

	principal, err := principalFromClaims(claims)
	if err != nil {
		return Principal{}, err
	}

	if !principal.ExpiresAt.IsZero() && d.now().After(principal.ExpiresAt.Add(defaultLeeway)) {
		return Principal{}, model.ErrTokenExpired
	}

	return principal, nil
}

// HMACVerifier checks the HS256/384/512 signature before reading claims.
type HMACVerifier struct {
	secret []byte
	parser *jwt.Parser
}

func NewHMACVerifier(secret string) (*HMACVerifier, error) {
	if strings.TrimSpace(secret) == "" {
		return nil, fmt.Errorf("hmac verifier requires a secret")
	}

	return &HMACVerifier{
		secret: []byte(secret),
		parser: jwt.NewParser(
			jwt.WithValidMethods([]string{"HS256", "HS384", "HS512"}),
			jwt.WithLeeway(defaultLeeway),
		),
	}, nil
}

func (v *HMACVerifier) Verify(token string) (Principal, error) {
	token, err := normalizeToken(token)
	if err != nil {
		return Principal{}, err
	}

	claims := jwt.MapClaims{}
	_, err = v.parser.ParseWithClaims(token, claims, func(*jwt.Token) (any, error) {
		return v.secret, nil
	})
	if errors.Is(err, jwt.ErrTokenExpired) {
		return Principal{}, model.ErrTokenExpired
	}
	if err != nil {
		return Principal{}, fmt.Errorf("%w: %v", model.ErrInvalidToken, err)
	}

	return principalFromClaims(claims)
}

// NewVerifier returns an HMACVerifier when a secret is configured, a ClaimDecoder otherwise.
func NewVerifier(secret string) (Verifier, error) {
	if strings.TrimSpace(secret) == "" {
		return NewClaimDecoder(), nil
	}

	return NewHMACVerifier(secret)
}

func normalizeToken(token string) (string, error) {
	token = strings.TrimSpace(token)
	if len(token) > len(bearerPrefix) && strings.EqualFold(token[:len(bearerPrefix)], bearerPrefix) {
		token = strings.TrimSpace(token[len(bearerPrefix):])
	}

	if token == "" {
		return "", model.ErrMissingToken
	}
	if len(token) > maxTokenLength {
		return "", fmt.Errorf("%w: token too long", model.ErrInvalidToken)
	}

	return token, nil
}

func principalFromClaims(claims jwt.MapClaims) (Principal, error) {
	principal := Principal{
		Role:    firstClaim(claims, roleClaimKeys),
		Subject: firstClaim(claims, subjectClaimKeys),
		Email:   firstClaim(claims, emailClaimKeys),
	}

	if exp, err := claims.GetExpirationTime(); err == nil && exp != nil {
		principal.ExpiresAt = exp.Time
	}

	if principal.Role == "" {
		return Principal{}, fmt.Errorf("%w: role claim missing", model.ErrInvalidToken)
	}

	return principal, nil
}

// firstClaim returns the first non-empty string claim. Array-valued role
// claims yield their first element.
func firstClaim(claims jwt.MapClaims, keys []string) string {
	for _, key := range keys {
		switch value := claims[key].(type) {
		case string:
			if trimmed := strings.TrimSpace(value); trimmed != "" {
				return trimmed
			}
		case []any:
			for _, item := range value {
				if s, ok := item.(string); ok && strings.TrimSpace(s) != "" {
					return strings.TrimSpace(s)
				}
			}
		case float64:
			return fmt.Sprintf("%.0f", value)
		}
	}

	return ""
}
