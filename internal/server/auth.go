package server

import (
	"errors"
	"log/slog"
	"strconv"
	"strings"
	"time"

	"inmomarket/internal/middleware"
	"inmomarket/internal/models"
	"inmomarket/internal/repository"

	"github.com/gofiber/fiber/v2"
	"github.com/golang-jwt/jwt/v5"
)

const (
	TokenIssuer   = "inmomarket-api"
	TokenAudience = "inmomarket-client"
)

// IssueToken signs an access token for user. Credentials are verified elsewhere;
// this is used by the admin CLI and by tests.
func IssueToken(secret string, user *models.User, ttl time.Duration) (string, error) {
	if user == nil || user.ID == 0 {
		return "", errors.New("user is required")
	}
	now := time.Now()
	claims := jwt.MapClaims{
		"sub":   strconv.FormatUint(uint64(user.ID), 10),
		"email": user.Email,
		"role":  string(user.Role),
		"iss":   TokenIssuer,
		"aud":   TokenAudience,
		"iat":   now.Unix(),
		"exp":   now.Add(ttl).Unix(),
	}
	return jwt.NewWithClaims(jwt.SigningMethodHS256, claims).SignedString([]byte(secret))
}

// AuthRequired returns the authentication middleware
func (s *Server) AuthRequired() fiber.Handler {
	return func(c *fiber.Ctx) error {
		authHeader := c.Get("Authorization")
		tokenString := ""
		if authHeader != "" {
			parts := strings.Split(authHeader, " ")
			if len(parts) == 2 && parts[0] == "Bearer" {
				tokenString = parts[1]
			}
		}
		if tokenString == "" {
			return models.RespondWithError(c, fiber.StatusUnauthorized,
				models.NewUnauthorizedError("Authorization required"))
		}

		identity, err := s.parseToken(tokenString)
		if err != nil {
			return models.RespondWithError(c, fiber.StatusUnauthorized, err)
		}

		c.Locals("userID", identity.ID)
		c.Locals("identity", identity)
		// Sync to UserContext for logging and downstream services
		c.SetUserContext(middleware.WithUserID(c.UserContext(), identity.ID))

		return c.Next()
	}
}

func (s *Server) parseToken(tokenString string) (models.Identity, error) {
	token, err := jwt.Parse(tokenString, func(token *jwt.Token) (any, error) {
		if _, ok := token.Method.(*jwt.SigningMethodHMAC); !ok {
			return nil, fiber.NewError(fiber.StatusUnauthorized, "Invalid signing method")
		}
		return []byte(s.config.JWTSecret), nil
	},
		jwt.WithIssuer(TokenIssuer),
		jwt.WithAudience(TokenAudience),
		jwt.WithExpirationRequired(),
	)
	if err != nil || !token.Valid {
		return models.Identity{}, models.NewUnauthorizedError("Invalid or expired token")
	}

	claims, ok := token.Claims.(jwt.MapClaims)
	if !ok {
		return models.Identity{}, models.NewUnauthorizedError("Invalid token claims")
	}

	sub, err := claims.GetSubject()
	if err != nil || sub == "" {
		return models.Identity{}, models.NewUnauthorizedError("Invalid subject claim")
	}
	userID, err := strconv.ParseUint(sub, 10, 32)
	if err != nil || userID == 0 {
		return models.Identity{}, models.NewUnauthorizedError("Invalid user ID in token")
	}

	identity := models.Identity{ID: uint(userID), Role: models.RoleUser}
	if email, ok := claims["email"].(string); ok {
		identity.Email = email
	}
	if role, ok := claims["role"].(string); ok && models.Role(role) == models.RoleAdmin {
		identity.Role = models.RoleAdmin
	}
	return identity, nil
}

// AdminRequired returns middleware that rejects non-admin users with 403.
// Must be placed after AuthRequired. The role claim is re-checked against the
// users table so a demotion takes effect before the token expires.
func (s *Server) AdminRequired() fiber.Handler {
	return func(c *fiber.Ctx) error {
		identity := currentIdentity(c)

		user, err := s.store.Users().GetByID(c.UserContext(), identity.ID)
		if err != nil {
			if repository.IsNotFound(err) {
				return models.RespondWithError(c, fiber.StatusForbidden,
					models.NewForbiddenError("Admin access required"))
			}
			middleware.Logger.ErrorContext(c.UserContext(), "admin lookup failed", slog.String("error", err.Error()))
			return respondError(c, models.NewStorageError(err))
		}
		if !user.IsAdmin() {
			return models.RespondWithError(c, fiber.StatusForbidden,
				models.NewForbiddenError("Admin access required"))
		}

		identity.Role = user.Role
		identity.Email = user.Email
		c.Locals("identity", identity)
		return c.Next()
	}
}

// currentIdentity returns the caller set by AuthRequired, or the zero identity.
func currentIdentity(c *fiber.Ctx) models.Identity {
	if identity, ok := c.Locals("identity").(models.Identity); ok {
		return identity
	}
	return models.Identity{}
}
