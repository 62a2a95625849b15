package ginserver

import (
	"errors"
	"log/slog"
	"net/http"
	"strings"

	gin "github.com/gin-gonic/gin"
	"github.com/golang-jwt/jwt/v5"
)

const principalContextKey = "stayregister.principal"

type principal struct {
	OwnerID string
	Token   string
}

// AuthMiddleware resolves the register owner from a bearer token. Tokens are
// HS256 JWTs whose subject is the owner id. When no Authorization header is
// sent and DevOwner is set, requests act as DevOwner.
type AuthMiddleware struct {
	Secret   []byte
	DevOwner string
	Logger   *slog.Logger
}

func (m AuthMiddleware) Handle(c *gin.Context) {
	header := c.GetHeader("Authorization")
	token := extractBearerToken(header)
	if token == "" {
		if header == "" && m.DevOwner != "" {
			setPrincipal(c, principal{OwnerID: m.DevOwner})
		}
		c.Next()
		return
	}
	owner, err := m.verify(token)
	if err != nil {
		if m.Logger != nil {
			m.Logger.Debug("token validation failed", "error", err)
		}
		c.Next()
		return
	}
	setPrincipal(c, principal{OwnerID: owner, Token: token})
	c.Next()
}

var errNoSecret = errors.New("auth: token verification not configured")

func (m AuthMiddleware) verify(raw string) (string, error) {
	if len(m.Secret) == 0 {
		return "", errNoSecret
	}
	token, err := jwt.Parse(raw, func(*jwt.Token) (any, error) {
		return m.Secret, nil
	}, jwt.WithValidMethods([]string{jwt.SigningMethodHS256.Alg()}), jwt.WithExpirationRequired())
	if err != nil {
		return "", err
	}
	sub, err := token.Claims.GetSubject()
	if err != nil {
		return "", err
	}
	if sub = strings.TrimSpace(sub); sub == "" {
		return "", errors.New("auth: token has no subject")
	}
	return sub, nil
}

func setPrincipal(c *gin.Context, p principal) {
	c.Set(principalContextKey, p)
	c.Set("owner_id", p.OwnerID)
}

func currentPrincipal(c *gin.Context) (principal, bool) {
	val, exists := c.Get(principalContextKey)
	if !exists {
		return principal{}, false
	}
	p, ok := val.(principal)
	return p, ok
}

func requireOwner(c *gin.Context) (principal, bool) {
	p, ok := currentPrincipal(c)
	if !ok || p.OwnerID == "" {
		c.AbortWithStatusJSON(http.StatusUnauthorized, gin.H{"error": "auth required"})
		return principal{}, false
	}
	return p, true
}

func extractBearerToken(header string) string {
	if header == "" {
		return ""
	}
	if !strings.HasPrefix(strings.ToLower(header), "bearer ") {
		return ""
	}
	return strings.TrimSpace(header[7:])
}
