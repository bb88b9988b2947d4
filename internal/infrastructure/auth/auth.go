package auth

import (
	"errors"
	"fmt"
	"strings"

	"github.com/gin-gonic/gin"
	"github.com/golang-jwt/jwt/v5"
	"github.com/rs/zerolog"

	"mediavault/internal/config"
	"mediavault/internal/domain/identity"
	"mediavault/internal/utils/platformerrors"
)

const identityKey = "identity"

// Validator verifies HS256 tokens minted by the platform auth service.
// Claims carry the caller's subject and role.
type Validator struct {
	secret []byte
	log    zerolog.Logger
}

// NewValidator creates a token validator from the shared signing secret.
func NewValidator(cfg *config.Config, log zerolog.Logger) *Validator {
	return &Validator{
		secret: []byte(cfg.JWTSecret),
		log:    log.With().Str("component", "auth").Logger(),
	}
}

// Validate parses and verifies a token string and returns the caller identity.
func (v *Validator) Validate(tokenString string) (identity.Identity, error) {
	token, err := jwt.Parse(tokenString, func(t *jwt.Token) (interface{}, error) {
		if _, ok := t.Method.(*jwt.SigningMethodHMAC); !ok {
			return nil, fmt.Errorf("unexpected signing method %q", t.Method.Alg())
		}
		return v.secret, nil
	})
	if err != nil {
		return identity.Identity{}, fmt.Errorf("parse token: %w", err)
	}

	claims, ok := token.Claims.(jwt.MapClaims)
	if !ok || !token.Valid {
		return identity.Identity{}, errors.New("invalid token claims")
	}

	sub, err := claims.GetSubject()
	if err != nil || sub == "" {
		return identity.Identity{}, errors.New("token missing subject")
	}

	role, _ := claims["role"].(string)
	ident := identity.Identity{UserID: sub, Role: identity.Role(role)}
	if !ident.Role.Valid() {
		ident.Role = identity.RoleUser
	}
	return ident, nil
}

// Middleware authenticates every request. The token is taken from the
// Authorization header, or from the token query parameter for clients that
// cannot set headers (inline media tags, websocket handshakes).
func (v *Validator) Middleware() gin.HandlerFunc {
	return func(c *gin.Context) {
		tokenString := bearerToken(c.GetHeader("Authorization"))
		if tokenString == "" {
			tokenString = strings.TrimSpace(c.Query("token"))
		}
		if tokenString == "" {
			platformerrors.WriteUnauthorized(c, "missing credentials")
			c.Abort()
			return
		}

		ident, err := v.Validate(tokenString)
		if err != nil {
			v.log.Debug().Err(err).Msg("token validation failed")
			platformerrors.WriteUnauthorized(c, "invalid token")
			c.Abort()
			return
		}

		c.Set(identityKey, ident)
		c.Next()
	}
}

// IdentityFrom returns the authenticated caller stored by Middleware.
func IdentityFrom(c *gin.Context) (identity.Identity, bool) {
	value, ok := c.Get(identityKey)
	if !ok {
		return identity.Identity{}, false
	}
	ident, ok := value.(identity.Identity)
	return ident, ok
}

func bearerToken(header string) string {
	if header == "" {
		return ""
	}
	parts := strings.SplitN(header, " ", 2)
	if len(parts) != 2 || !strings.EqualFold(parts[0], "Bearer") {
		return ""
	}
	return strings.TrimSpace(parts[1])
}
