package middleware

import (
	"fmt"
	"net/http"
	"strings"

	"github.com/gin-gonic/gin"
	"github.com/golang-jwt/jwt/v5"

	"github.com/hcen-uy/exchange-hub/internal/handler"
)

// Context keys set by Authenticate for downstream handlers.
const (
	ContextSubjectCI   = "subject_ci"
	ContextSubjectRole = "subject_role"
	ContextSpecialties = "subject_specialties"
	ContextClinicID    = "subject_clinic_id"
)

// Subject roles carried in tokens issued by the national gateway.
const (
	RolePatient      = "PATIENT"
	RoleProfessional = "PROFESSIONAL"
	RoleClinicNode   = "CLINIC_NODE"
)

// Claims is the token payload issued to patients, professionals and
// clinic nodes. CI is the national identity number of the subject;
// clinic nodes carry their node ID there instead.
type Claims struct {
	CI          string   `json:"ci"`
	Role        string   `json:"role"`
	Specialties []string `json:"specialties,omitempty"`
	ClinicID    string   `json:"clinic_id,omitempty"`
	jwt.RegisteredClaims
}

type AuthMiddleware struct {
	secret []byte
}

func NewAuthMiddleware(secret string) *AuthMiddleware {
	return &AuthMiddleware{secret: []byte(secret)}
}

// Authenticate verifies the bearer token and sets the subject's
// identity attributes in the request context.
func (m *AuthMiddleware) Authenticate() gin.HandlerFunc {
	return func(c *gin.Context) {
		authHeader := c.GetHeader("Authorization")
		if authHeader == "" {
			c.JSON(http.StatusUnauthorized, handler.NewErrorResponse("missing authorization header"))
			c.Abort()
			return
		}

		parts := strings.Split(authHeader, " ")
		if len(parts) != 2 || parts[0] != "Bearer" {
			c.JSON(http.StatusUnauthorized, handler.NewErrorResponse("invalid authorization format"))
			c.Abort()
			return
		}

		claims := &Claims{}
		token, err := jwt.ParseWithClaims(parts[1], claims, func(t *jwt.Token) (interface{}, error) {
			if _, ok := t.Method.(*jwt.SigningMethodHMAC); !ok {
				return nil, fmt.Errorf("unexpected signing method %v", t.Header["alg"])
			}
			return m.secret, nil
		})
		if err != nil || !token.Valid || claims.CI == "" {
			c.JSON(http.StatusUnauthorized, handler.NewErrorResponse("invalid token"))
			c.Abort()
			return
		}

		c.Set(ContextSubjectCI, claims.CI)
		c.Set(ContextSubjectRole, claims.Role)
		c.Set(ContextSpecialties, claims.Specialties)
		c.Set(ContextClinicID, claims.ClinicID)
		c.Next()
	}
}

// RequireRole gates a route group to one subject role.
func (m *AuthMiddleware) RequireRole(role string) gin.HandlerFunc {
	return func(c *gin.Context) {
		if c.GetString(ContextSubjectRole) != role {
			c.JSON(http.StatusForbidden, handler.NewErrorResponse("insufficient role"))
			c.Abort()
			return
		}
		c.Next()
	}
}
