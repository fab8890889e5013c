package middleware

import (
	"log/slog"
	"net/http"
	"strings"

	"github.com/gin-gonic/gin"

	"docextract/internal/auth"
)

const (
	ContextKeySubject = "subject"
	ContextKeyClaims  = "claims"
)

// AuthMiddleware returns Gin middleware that validates bearer tokens and
// injects the token subject. A nil verifier lets every request through.
func AuthMiddleware(verifier auth.TokenVerifier) gin.HandlerFunc {
	return func(c *gin.Context) {
		if verifier == nil {
			c.Next()
			return
		}

		authHeader := c.GetHeader("Authorization")
		if authHeader == "" || !strings.HasPrefix(authHeader, "Bearer ") {
			c.AbortWithStatusJSON(http.StatusUnauthorized, gin.H{
				"error": "cabeçalho de autorização ausente ou inválido",
				"code":  "UNAUTHORIZED",
			})
			return
		}

		token := strings.TrimPrefix(authHeader, "Bearer ")
		claims, err := verifier.Verify(token)
		if err != nil {
			slog.WarnContext(c.Request.Context(), "middleware.AuthMiddleware: token rejected",
				"request_id", GetRequestID(c), "error", err)
			c.AbortWithStatusJSON(http.StatusUnauthorized, gin.H{
				"error": "token inválido ou expirado",
				"code":  "UNAUTHORIZED",
			})
			return
		}

		c.Set(ContextKeySubject, claims.Subject)
		c.Set(ContextKeyClaims, claims)
		c.Next()
	}
}

// GetSubject returns the authenticated token subject, or "".
func GetSubject(c *gin.Context) string {
	return c.GetString(ContextKeySubject)
}
