package middleware

import (
	"errors"
	"net/http"
	"strings"

	"github.com/gin-gonic/gin"
	"github.com/golang-jwt/jwt/v5"

	"github.com/lumenlms/progression-backend/internal/response"
	"github.com/lumenlms/progression-backend/internal/service"
)

// ContextKeyClaims is the Gin context key for validated JWT claims.
const ContextKeyClaims = "claims"

// tokenSource extracts a raw token string from a request, or "" if absent.
type tokenSource func(c *gin.Context) string

// RequireStudentJWT validates a student bearer token from the
// Authorization header, with a ?token= query fallback.
func RequireStudentJWT(authService *service.AuthService) gin.HandlerFunc {
	return requireStudent(authService, func(c *gin.Context) string {
		if tok := bearerToken(c); tok != "" {
			return tok
		}
		return c.Query("token")
	})
}

// RequireStudentWSAuth validates a student token from the ?token= query
// parameter only. Browser WebSocket clients cannot set request headers.
func RequireStudentWSAuth(authService *service.AuthService) gin.HandlerFunc {
	return requireStudent(authService, func(c *gin.Context) string {
		return c.Query("token")
	})
}

func requireStudent(authService *service.AuthService, source tokenSource) gin.HandlerFunc {
	return func(c *gin.Context) {
		tokenStr := source(c)
		if tokenStr == "" {
			response.AbortFail(c, http.StatusUnauthorized, response.ErrTokenRequired)
			return
		}

		claims, err := authService.ValidateToken(tokenStr)
		if err != nil {
			code := response.ErrTokenInvalid
			if errors.Is(err, jwt.ErrTokenExpired) {
				code = response.ErrTokenExpired
			}
			response.AbortFail(c, http.StatusUnauthorized, code)
			return
		}

		if claims.TokenType != service.TokenTypeStudent {
			response.AbortFail(c, http.StatusForbidden, response.ErrStudentAccessOnly)
			return
		}

		c.Set(ContextKeyClaims, claims)
		c.Next()
	}
}

// GetClaims retrieves the validated claims from the Gin context, or nil if
// no auth middleware ran on this route.
func GetClaims(c *gin.Context) *service.Claims {
	val, exists := c.Get(ContextKeyClaims)
	if !exists {
		return nil
	}
	claims, ok := val.(*service.Claims)
	if !ok {
		return nil
	}
	return claims
}

func bearerToken(c *gin.Context) string {
	header := c.GetHeader("Authorization")
	if header == "" {
		return ""
	}
	parts := strings.SplitN(header, " ", 2)
	if len(parts) != 2 || !strings.EqualFold(parts[0], "bearer") {
		return ""
	}
	return parts[1]
}
