package middlewares

import (
	"net/http"

	"github.com/gin-gonic/gin"
)

const (
	// ErrorTokenAuthFail is the error code returned on missing or invalid
	// session tokens.
	ErrorTokenAuthFail = 401001
)

// TokenVerifier resolves a session token to a username. Satisfied by
// server.SessionStore.
type TokenVerifier interface {
	Username(token string) (string, bool)
}

// Auth fetches the session token from the "token" header, resolves it and
// stores the username in the "sub" header for downstream handlers. It
// returns 401 on token not provided or token unknown.
func Auth(verifier TokenVerifier) gin.HandlerFunc {
	return func(c *gin.Context) {
		token := c.GetHeader("token")
		if token == "" {
			token = c.Query("token")
		}

		if token == "" {
			c.JSON(http.StatusUnauthorized, gin.H{
				"code": ErrorTokenAuthFail,
				"msg":  "empty session token",
			})
			c.Abort()
			return
		}

		username, ok := verifier.Username(token)
		if !ok {
			c.JSON(http.StatusUnauthorized, gin.H{
				"code": ErrorTokenAuthFail,
				"msg":  "unknown session token",
			})
			c.Abort()
			return
		}

		// Successfully validated the token, replace the header field "token"
		// with the user's name so handlers never see raw tokens.
		c.Request.Header.Del("token")
		c.Request.Header.Set("sub", username)

		c.Next()
	}
}
