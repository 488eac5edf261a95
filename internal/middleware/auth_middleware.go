package middleware

import (
	"net/http"
	"strings"

	"abride/internal/models"

	"github.com/gin-gonic/gin"
	"github.com/golang-jwt/jwt/v5"
	"go.mongodb.org/mongo-driver/bson/primitive"
)

// JWTClaims represents the JWT token claims
type JWTClaims struct {
	UserID string `json:"user_id"`
	Role   string `json:"role"`
	jwt.RegisteredClaims
}

// AuthRequired validates the bearer token and sets user_id and user_role
// on the request context. Downstream handlers and the websocket upgrade
// both read those two keys.
func AuthRequired(jwtSecret string) gin.HandlerFunc {
	return func(c *gin.Context) {
		authHeader := c.GetHeader("Authorization")
		if authHeader == "" {
			c.JSON(http.StatusUnauthorized, gin.H{"error": "Authorization header required"})
			c.Abort()
			return
		}

		tokenString := strings.TrimPrefix(authHeader, "Bearer ")
		if tokenString == authHeader {
			c.JSON(http.StatusUnauthorized, gin.H{"error": "Bearer token required"})
			c.Abort()
			return
		}

		token, err := jwt.ParseWithClaims(tokenString, &JWTClaims{}, func(token *jwt.Token) (interface{}, error) {
			return []byte(jwtSecret), nil
		})
		if err != nil || !token.Valid {
			c.JSON(http.StatusUnauthorized, gin.H{"error": "Invalid token"})
			c.Abort()
			return
		}

		claims, ok := token.Claims.(*JWTClaims)
		if !ok {
			c.JSON(http.StatusUnauthorized, gin.H{"error": "Invalid token claims"})
			c.Abort()
			return
		}

		userID, err := primitive.ObjectIDFromHex(claims.UserID)
		if err != nil {
			c.JSON(http.StatusUnauthorized, gin.H{"error": "Invalid user ID in token"})
			c.Abort()
			return
		}

		role := models.UserRole(claims.Role)
		if role != models.RolePassenger && role != models.RoleDriver && role != models.RoleAdmin {
			c.JSON(http.StatusUnauthorized, gin.H{"error": "Invalid role in token"})
			c.Abort()
			return
		}

		c.Set("user_id", userID)
		c.Set("user_role", claims.Role)

		c.Next()
	}
}

// AdminRequired ensures the authenticated user is an admin
func AdminRequired() gin.HandlerFunc {
	return func(c *gin.Context) {
		role, exists := c.Get("user_role")
		if !exists {
			c.JSON(http.StatusUnauthorized, gin.H{"error": "User role not found"})
			c.Abort()
			return
		}

		roleStr, ok := role.(string)
		if !ok || models.UserRole(roleStr) != models.RoleAdmin {
			c.JSON(http.StatusForbidden, gin.H{"error": "Admin access required"})
			c.Abort()
			return
		}

		c.Next()
	}
}

// DriverRequired ensures the authenticated user is a driver or an admin
func DriverRequired() gin.HandlerFunc {
	return func(c *gin.Context) {
		role, exists := c.Get("user_role")
		if !exists {
			c.JSON(http.StatusUnauthorized, gin.H{"error": "User role not found"})
			c.Abort()
			return
		}

		roleStr, ok := role.(string)
		if !ok || (models.UserRole(roleStr) != models.RoleDriver && models.UserRole(roleStr) != models.RoleAdmin) {
			c.JSON(http.StatusForbidden, gin.H{"error": "Driver access required"})
			c.Abort()
			return
		}

		c.Next()
	}
}

// CurrentUser extracts the authenticated identity set by AuthRequired.
func CurrentUser(c *gin.Context) (primitive.ObjectID, models.UserRole, bool) {
	userID, exists := c.Get("user_id")
	if !exists {
		return primitive.NilObjectID, "", false
	}
	role, exists := c.Get("user_role")
	if !exists {
		return primitive.NilObjectID, "", false
	}

	id, ok := userID.(primitive.ObjectID)
	if !ok {
		return primitive.NilObjectID, "", false
	}
	roleStr, ok := role.(string)
	if !ok {
		return primitive.NilObjectID, "", false
	}

	return id, models.UserRole(roleStr), true
}
