package middleware

import (
	"fmt"
	"net/http"
	"strings"

	"registration-service/services"

	"github.com/gin-gonic/gin"
	"github.com/golang-jwt/jwt/v4"
	"github.com/google/uuid"
)

const (
	UserKey = "userID"
	RoleKey = "userRole"
)

// AuthConfig selects how callers are identified.
type AuthConfig struct {
	JWTSecret []byte
	// TrustGatewayHeaders accepts X-User-ID / X-User-Role as set by an API
	// gateway in front of the service. Leave it off when clients can reach
	// the service directly.
	TrustGatewayHeaders bool
}

// AuthMiddleware resolves the caller from a bearer JWT signed with
// cfg.JWTSecret, or from gateway headers when cfg.TrustGatewayHeaders is set.
// Requests with neither are rejected.
func AuthMiddleware(cfg AuthConfig) gin.HandlerFunc {
	return func(c *gin.Context) {
		userID, role, err := resolveCaller(c, cfg)
		if err != nil {
			c.AbortWithStatusJSON(http.StatusUnauthorized, gin.H{"error": "Unauthorized"})
			return
		}
		c.Set(UserKey, userID)
		c.Set(RoleKey, role)
		c.Next()
	}
}

// AdminOnly must run after AuthMiddleware.
func AdminOnly() gin.HandlerFunc {
	return func(c *gin.Context) {
		if !GetCaller(c).IsAdmin() {
			c.AbortWithStatusJSON(http.StatusForbidden, gin.H{"error": "Admin access required"})
			return
		}
		c.Next()
	}
}

func GetCaller(c *gin.Context) services.Caller {
	var caller services.Caller
	if val, exists := c.Get(UserKey); exists {
		caller.UserID, _ = val.(uuid.UUID)
	}
	if val, exists := c.Get(RoleKey); exists {
		caller.Role, _ = val.(string)
	}
	return caller
}

func resolveCaller(c *gin.Context, cfg AuthConfig) (uuid.UUID, string, error) {
	if header := c.GetHeader("Authorization"); strings.HasPrefix(header, "Bearer ") {
		claims, err := parseToken(strings.TrimPrefix(header, "Bearer "), cfg.JWTSecret)
		if err != nil {
			return uuid.Nil, "", err
		}
		subject, _ := claims["sub"].(string)
		if subject == "" {
			subject, _ = claims["user_id"].(string)
		}
		userID, err := uuid.Parse(subject)
		if err != nil {
			return uuid.Nil, "", fmt.Errorf("invalid subject: %w", err)
		}
		role, _ := claims["role"].(string)
		return userID, role, nil
	}

	if !cfg.TrustGatewayHeaders {
		return uuid.Nil, "", fmt.Errorf("missing bearer token")
	}
	userID, err := uuid.Parse(c.GetHeader("X-User-ID"))
	if err != nil {
		return uuid.Nil, "", fmt.Errorf("missing caller identity")
	}
	return userID, c.GetHeader("X-User-Role"), nil
}

func parseToken(tokenStr string, secret []byte) (jwt.MapClaims, error) {
	if len(secret) == 0 {
		return nil, fmt.Errorf("JWT secret not configured")
	}

	token, err := jwt.Parse(tokenStr, func(token *jwt.Token) (interface{}, error) {
		if _, ok := token.Method.(*jwt.SigningMethodHMAC); !ok {
			return nil, fmt.Errorf("unexpected signing method: %v", token.Header["alg"])
		}
		return secret, nil
	})
	if err != nil || token == nil || !token.Valid {
		return nil, fmt.Errorf("invalid or expired token")
	}

	claims, ok := token.Claims.(jwt.MapClaims)
	if !ok {
		return nil, fmt.Errorf("invalid token claims")
	}
	return claims, nil
}
