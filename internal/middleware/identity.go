package middleware

import (
	"fmt"
	"net/http"
	"strings"

	"github.com/gin-gonic/gin"
	"github.com/golang-jwt/jwt/v5"
	"github.com/google/uuid"

	"github.com/archdemone/jewelry-backend/internal/logger"
	"github.com/archdemone/jewelry-backend/internal/requestdata"
)

const sessionHeader = "X-Session-ID"

type StorefrontClaims struct {
	Role string `json:"role,omitempty"`
	jwt.RegisteredClaims
}

// IdentityMiddleware resolves who is making the request. Every request gets
// a session id (minted on first contact and echoed back in the response
// header); a bearer token additionally attaches the account identity.
type IdentityMiddleware struct {
	log          *logger.Logger
	jwtSecretKey string
}

func NewIdentityMiddleware(log *logger.Logger, jwtSecretKey string) *IdentityMiddleware {
	middlewareLogger := log.With("Middleware", "IdentityMiddleware")
	return &IdentityMiddleware{log: middlewareLogger, jwtSecretKey: jwtSecretKey}
}

// Resolve never rejects guest traffic: browsing and checkout work without an
// account. A bearer token that is present but invalid is rejected rather
// than silently downgraded to guest.
func (im *IdentityMiddleware) Resolve() gin.HandlerFunc {
	return func(c *gin.Context) {
		sessionID := strings.TrimSpace(c.GetHeader(sessionHeader))
		if sessionID == "" {
			sessionID = uuid.NewString()
		}
		c.Header(sessionHeader, sessionID)

		rd := &requestdata.RequestData{SessionID: sessionID}
		if tokenString := extractBearerToken(c); tokenString != "" {
			claims, err := im.parseToken(tokenString)
			if err != nil {
				im.log.Warn("Rejected request with invalid bearer token", "error", err)
				c.AbortWithStatusJSON(http.StatusUnauthorized, gin.H{"error": "missing or invalid token"})
				return
			}
			userID, err := uuid.Parse(claims.Subject)
			if err != nil {
				c.AbortWithStatusJSON(http.StatusUnauthorized, gin.H{"error": "missing or invalid token"})
				return
			}
			rd.UserID = userID
			rd.Role = claims.Role
		}

		ctx := requestdata.WithRequestData(c.Request.Context(), rd)
		c.Request = c.Request.WithContext(ctx)
		c.Next()
	}
}

// RequireUser gates account-only routes.
func (im *IdentityMiddleware) RequireUser() gin.HandlerFunc {
	return func(c *gin.Context) {
		rd := requestdata.GetRequestData(c.Request.Context())
		if rd.IsGuest() {
			c.AbortWithStatusJSON(http.StatusUnauthorized, gin.H{"error": "authentication required"})
			return
		}
		c.Next()
	}
}

// RequireAdmin gates the back-office surface on the admin role claim.
func (im *IdentityMiddleware) RequireAdmin() gin.HandlerFunc {
	return func(c *gin.Context) {
		rd := requestdata.GetRequestData(c.Request.Context())
		if rd.IsGuest() {
			c.AbortWithStatusJSON(http.StatusUnauthorized, gin.H{"error": "authentication required"})
			return
		}
		if rd.Role != "admin" {
			c.AbortWithStatusJSON(http.StatusForbidden, gin.H{"error": "forbidden"})
			return
		}
		c.Next()
	}
}

func (im *IdentityMiddleware) parseToken(tokenString string) (*StorefrontClaims, error) {
	parsedToken, err := jwt.ParseWithClaims(tokenString, &StorefrontClaims{}, func(token *jwt.Token) (interface{}, error) {
		if _, ok := token.Method.(*jwt.SigningMethodHMAC); !ok {
			return nil, fmt.Errorf("unexpected signing method %v", token.Header["alg"])
		}
		return []byte(im.jwtSecretKey), nil
	})
	if err != nil {
		return nil, fmt.Errorf("failed to parse token: %w", err)
	}
	claims, ok := parsedToken.Claims.(*StorefrontClaims)
	if !ok || !parsedToken.Valid {
		return nil, fmt.Errorf("invalid or expired token")
	}
	return claims, nil
}

func extractBearerToken(c *gin.Context) string {
	authHeader := c.GetHeader("Authorization")
	if len(authHeader) > 7 && strings.EqualFold(authHeader[:7], "Bearer ") {
		return authHeader[7:]
	}
	return ""
}
