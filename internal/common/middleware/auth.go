package middleware

import (
	"fmt"
	"net/http"
	"strings"

	"github.com/gin-gonic/gin"
	"github.com/golang-jwt/jwt/v5"
)

const (
	// UserTokenHeader carries the signed user token issued by the platform.
	UserTokenHeader = "X-Whop-User-Token"
	// CompanyIDHeader and ExperienceIDHeader scope the request to a tenant.
	CompanyIDHeader    = "X-Company-ID"
	ExperienceIDHeader = "X-Experience-ID"
	// CallbackTokenHeader authenticates scheduler callback invocations.
	CallbackTokenHeader = "X-Callback-Token"

	UserIDKey    = "user_id"
	UserNameKey  = "user_name"
	CompanyIDKey = "company_id"
)

// UserAuth verifies the platform user token and stores the user id in the
// request context. Tenant scope travels with the request as well; there is
// no process-wide tenant state.
func UserAuth(secret string) gin.HandlerFunc {
	return func(c *gin.Context) {
		tokenStr := c.GetHeader(UserTokenHeader)
		if tokenStr == "" {
			c.AbortWithStatusJSON(http.StatusUnauthorized, gin.H{"error": "missing user token"})
			return
		}

		token, err := jwt.Parse(tokenStr, func(t *jwt.Token) (interface{}, error) {
			if _, ok := t.Method.(*jwt.SigningMethodHMAC); !ok {
				return nil, fmt.Errorf("unexpected signing method: %v", t.Header["alg"])
			}
			return []byte(secret), nil
		})
		if err != nil || !token.Valid {
			c.AbortWithStatusJSON(http.StatusUnauthorized, gin.H{"error": "invalid user token"})
			return
		}

		claims, ok := token.Claims.(jwt.MapClaims)
		if !ok {
			c.AbortWithStatusJSON(http.StatusUnauthorized, gin.H{"error": "invalid token claims"})
			return
		}
		userID, err := claims.GetSubject()
		if err != nil || userID == "" {
			c.AbortWithStatusJSON(http.StatusUnauthorized, gin.H{"error": "token has no subject"})
			return
		}

		c.Set(UserIDKey, userID)
		if name, ok := claims["name"].(string); ok {
			c.Set(UserNameKey, name)
		}
		c.Set(CompanyIDKey, strings.TrimSpace(c.GetHeader(CompanyIDHeader)))
		c.Next()
	}
}

// CallbackAuth guards the scheduler callback endpoints with a shared token.
func CallbackAuth(token string) gin.HandlerFunc {
	return func(c *gin.Context) {
		if token == "" || c.GetHeader(CallbackTokenHeader) != token {
			c.AbortWithStatusJSON(http.StatusUnauthorized, gin.H{"error": "invalid callback token"})
			return
		}
		c.Next()
	}
}

// UserID returns the authenticated user id from the request context.
func UserID(c *gin.Context) string {
	return c.GetString(UserIDKey)
}

// UserName returns the display name from the token, if present.
func UserName(c *gin.Context) string {
	return c.GetString(UserNameKey)
}

// CompanyID returns the tenant scope of the request, if present.
func CompanyID(c *gin.Context) string {
	return c.GetString(CompanyIDKey)
}
