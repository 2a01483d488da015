package auth

import (
	"errors"
	"net/http"
	"strings"
	"time"

	"github.com/golang-jwt/jwt/v5"

	"github.com/mind-engage/judging/internal/rbac"
)

const issuer = "judging"

type AuthService struct {
	hmac []byte
	ttl  time.Duration
	now  func() time.Time
}

func NewAuthService(secret string, ttl time.Duration) *AuthService {
	if ttl <= 0 {
		ttl = 24 * time.Hour
	}
	return &AuthService{hmac: []byte(secret), ttl: ttl, now: time.Now}
}

// Claims carries the caller's role and, for evaluators, their evaluator id.
type Claims struct {
	Role string `json:"role"`
	ID   string `json:"id,omitempty"`
	jwt.RegisteredClaims
}

func (a *AuthService) IssueJWT(role, id string) (string, error) {
	now := a.now()
	claims := &Claims{
		Role: role,
		ID:   id,
		RegisteredClaims: jwt.RegisteredClaims{
			Issuer:    issuer,
			Subject:   id,
			IssuedAt:  jwt.NewNumericDate(now),
			ExpiresAt: jwt.NewNumericDate(now.Add(a.ttl)),
		},
	}
	t := jwt.NewWithClaims(jwt.SigningMethodHS256, claims)
	return t.SignedString(a.hmac)
}

func (a *AuthService) IssueAdmin() (string, error) { return a.IssueJWT(rbac.RoleAdmin, "") }

func (a *AuthService) IssueEvaluator(id string) (string, error) {
	if id == "" {
		return "", errors.New("evaluator token needs an id")
	}
	return a.IssueJWT(rbac.RoleEvaluator, id)
}

func (a *AuthService) Parse(tokenStr string) (*Claims, error) {
	token, err := jwt.ParseWithClaims(tokenStr, &Claims{}, func(t *jwt.Token) (interface{}, error) {
		return a.hmac, nil
	}, jwt.WithValidMethods([]string{jwt.SigningMethodHS256.Alg()}), jwt.WithIssuer(issuer), jwt.WithTimeFunc(a.now))
	if err != nil {
		return nil, err
	}
	c, ok := token.Claims.(*Claims)
	if !ok || !token.Valid {
		return nil, errors.New("invalid token")
	}
	switch c.Role {
	case rbac.RoleAdmin:
	case rbac.RoleEvaluator:
		if c.ID == "" {
			return nil, errors.New("evaluator token without id")
		}
	default:
		return nil, errors.New("unknown role")
	}
	return c, nil
}

func bearer(r *http.Request) string {
	h := r.Header.Get("Authorization")
	if len(h) > 7 && strings.EqualFold(h[:7], "Bearer ") {
		return strings.TrimSpace(h[7:])
	}
	return ""
}

func attach(r *http.Request, c *Claims) *http.Request {
	ctx := rbac.WithRole(r.Context(), c.Role)
	ctx = WithSubject(ctx, c.ID)
	return r.WithContext(ctx)
}

// JWTMiddleware rejects requests without a valid bearer token and puts the
// role and subject into the request context.
func JWTMiddleware(a *AuthService) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			tok := bearer(r)
			if tok == "" {
				rbac.Deny(w, http.StatusForbidden, "No token")
				return
			}
			c, err := a.Parse(tok)
			if err != nil {
				rbac.Deny(w, http.StatusForbidden, "Unauthorized")
				return
			}
			next.ServeHTTP(w, attach(r, c))
		})
	}
}

// OptionalJWT attaches claims when a valid token is present and otherwise
// lets the request through anonymously.
func OptionalJWT(a *AuthService) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			if tok := bearer(r); tok != "" {
				if c, err := a.Parse(tok); err == nil {
					r = attach(r, c)
				}
			}
			next.ServeHTTP(w, r)
		})
	}
}
