package middleware

import (
	"context"
	"errors"
	"net/http"
	"strings"

	"github.com/gin-gonic/gin"
	"github.com/golang-jwt/jwt/v5"
	"github.com/google/uuid"

	"github.com/foodville/marketplace-api/internal/access"
)

const principalKey = "principal"

// PrincipalResolver loads the caller's identity and group memberships.
type PrincipalResolver interface {
	Resolve(ctx context.Context, userID uuid.UUID) (access.Principal, error)
}

var errMissingToken = errors.New("missing bearer token")

func parseSubject(header, secret string) (uuid.UUID, error) {
	if !strings.HasPrefix(header, "Bearer ") {
		return uuid.Nil, errMissingToken
	}

	token, err := jwt.Parse(header[7:], func(t *jwt.Token) (interface{}, error) {
		if _, ok := t.Method.(*jwt.SigningMethodHMAC); !ok {
			return nil, jwt.ErrSignatureInvalid
		}
		return []byte(secret), nil
	})
	if err != nil || !token.Valid {
		return uuid.Nil, jwt.ErrTokenInvalidClaims
	}

	sub, err := token.Claims.GetSubject()
	if err != nil {
		return uuid.Nil, err
	}
	return uuid.Parse(sub)
}

// authenticate resolves the request's principal. With optional set, a
// request without an Authorization header continues anonymously; a bad token
// is always rejected.
func authenticate(secret string, resolver PrincipalResolver, optional bool) gin.HandlerFunc {
	return func(c *gin.Context) {
		header := c.GetHeader("Authorization")
		if header == "" && optional {
			setPrincipal(c, access.Anonymous())
			c.Next()
			return
		}

		userID, err := parseSubject(header, secret)
		if errors.Is(err, errMissingToken) {
			c.AbortWithStatusJSON(http.StatusUnauthorized, gin.H{"error": "unauthorized"})
			return
		}
		if err != nil {
			c.AbortWithStatusJSON(http.StatusUnauthorized, gin.H{"error": "invalid token"})
			return
		}

		p, err := resolver.Resolve(c.Request.Context(), userID)
		if errors.Is(err, access.ErrUnknownUser) {
			c.AbortWithStatusJSON(http.StatusUnauthorized, gin.H{"error": "invalid token"})
			return
		}
		if err != nil {
			_ = c.Error(err)
			c.AbortWithStatusJSON(http.StatusInternalServerError, gin.H{"error": "internal server error"})
			return
		}

		setPrincipal(c, p)
		c.Next()
	}
}

// Authenticate requires a valid bearer token.
func Authenticate(secret string, resolver PrincipalResolver) gin.HandlerFunc {
	return authenticate(secret, resolver, false)
}

// OptionalAuth lets anonymous requests through for public endpoints.
func OptionalAuth(secret string, resolver PrincipalResolver) gin.HandlerFunc {
	return authenticate(secret, resolver, true)
}

func setPrincipal(c *gin.Context, p access.Principal) {
	c.Set(principalKey, p)
	c.Request = c.Request.WithContext(access.WithPrincipal(c.Request.Context(), p))
}

// GetPrincipal returns the principal set by Authenticate or OptionalAuth, or
// an anonymous one.
func GetPrincipal(c *gin.Context) access.Principal {
	v, _ := c.Get(principalKey)
	p, _ := v.(access.Principal)
	return p
}
