package middleware

import (
	"strings"

	"github.com/gin-gonic/gin"

	iauth "github.com/anonwork/anonwork/internal/auth"
	"github.com/anonwork/anonwork/pkg/errors"
	"github.com/anonwork/anonwork/pkg/response"
)

const (
	CtxClaimsKey       = "authClaims"
	CtxUserIDKey       = "userID"
	CtxAnonUsernameKey = "anonUsername"
)

// Auth enforces JWT authentication using the supplied JWT service.
func Auth(jwt *iauth.JWTService) gin.HandlerFunc {
	return func(c *gin.Context) {
		authz := c.GetHeader("Authorization")
		if len(authz) < 8 || !strings.EqualFold(authz[:7], "Bearer ") {
			response.Error(c, errors.ErrUnauthorized)
			c.Abort()
			return
		}

		token := strings.TrimSpace(authz[7:])
		claims, err := jwt.ValidateAccessToken(token)
		if err != nil {
			// Normalise all validation failures to 401
			c.Header("WWW-Authenticate", "Bearer")
			response.Error(c, errors.ErrUnauthorized)
			c.Abort()
			return
		}

		c.Set(CtxClaimsKey, claims)
		c.Set(CtxUserIDKey, claims.UserID)
		if claims.AnonUsername != "" {
			c.Set(CtxAnonUsernameKey, claims.AnonUsername)
		}

		c.Next()
	}
}
