package middleware

import (
	"crypto/subtle"
	"encoding/base64"
	"net/http"
	"strings"

	"github.com/gin-gonic/gin"
	"golang.org/x/crypto/bcrypt"

	"github.com/storefront/backend/internal/infrastructure/logger"
	"github.com/storefront/backend/internal/interfaces/http/dto"
)

// AuthUserKey is the gin context key holding the authenticated username.
// The request logger reads it after the handler chain completes.
const AuthUserKey = logger.AuthUserKey

// DefaultRealm is advertised in the WWW-Authenticate challenge
const DefaultRealm = "API Authentication"

// BasicAuthConfig holds the single accepted credential pair.
// PasswordHash, a bcrypt hash, takes precedence over Password when set.
type BasicAuthConfig struct {
	Username     string
	Password     string
	PasswordHash string
	Realm        string
}

// BasicAuth guards a route group with HTTP Basic authentication.
//
// Missing, malformed and mismatched credentials all answer 401 with a
// challenge header; the body message tells the three cases apart.
func BasicAuth(cfg BasicAuthConfig) gin.HandlerFunc {
	realm := cfg.Realm
	if realm == "" {
		realm = DefaultRealm
	}
	challenge := `Basic realm="` + strings.ReplaceAll(realm, `"`, `\"`) + `"`
	hash := []byte(cfg.PasswordHash)

	checkPassword := func(password string) bool {
		if len(hash) > 0 {
			return bcrypt.CompareHashAndPassword(hash, []byte(password)) == nil
		}
		return subtle.ConstantTimeCompare([]byte(password), []byte(cfg.Password)) == 1
	}

	deny := func(c *gin.Context, message string) {
		c.Header("WWW-Authenticate", challenge)
		c.AbortWithStatusJSON(http.StatusUnauthorized, dto.NewErrorResponse(message))
	}

	return func(c *gin.Context) {
		header := c.GetHeader("Authorization")
		if header == "" {
			deny(c, dto.MsgAuthRequired)
			return
		}

		username, password, ok := parseBasicAuth(header)
		if !ok {
			deny(c, dto.MsgMalformedAuthHeader)
			return
		}

		// Evaluate both so timing does not reveal which half was wrong.
		userOK := subtle.ConstantTimeCompare([]byte(username), []byte(cfg.Username)) == 1
		passOK := checkPassword(password)
		if !userOK || !passOK {
			deny(c, dto.MsgInvalidCredentials)
			return
		}

		c.Set(AuthUserKey, username)
		c.Next()
	}
}

// parseBasicAuth accepts exactly "Basic <base64(user:pass)>"
func parseBasicAuth(header string) (username, password string, ok bool) {
	parts := strings.Split(header, " ")
	if len(parts) != 2 || !strings.EqualFold(parts[0], "Basic") || parts[1] == "" {
		return "", "", false
	}
	decoded, err := base64.StdEncoding.DecodeString(parts[1])
	if err != nil {
		return "", "", false
	}
	username, password, ok = strings.Cut(string(decoded), ":")
	if !ok {
		return "", "", false
	}
	return username, password, true
}
