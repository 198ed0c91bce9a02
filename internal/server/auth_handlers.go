package server

import (
	"fmt"
	"strconv"
	"time"

	"github.com/sagar-1m/Event-Engage/internal/models"

	"github.com/gofiber/fiber/v2"
	"github.com/golang-jwt/jwt/v5"
	"github.com/google/uuid"
)

// Register handles POST /api/auth/register
func (s *Server) Register(c *fiber.Ctx) error {
	var req struct {
		Name     string `json:"name"`
		Email    string `json:"email"`
		Password string `json:"password"`
	}
	if err := c.BodyParser(&req); err != nil {
		return models.RespondWithError(c, fiber.StatusBadRequest,
			models.NewValidationError("Invalid request body"))
	}

	user, err := s.userService.Register(c.UserContext(), req.Name, req.Email, req.Password)
	if err != nil {
		return respondError(c, err)
	}

	token, err := s.generateToken(user, tokenTTL)
	if err != nil {
		return respondError(c, models.NewInternalError(err))
	}

	return respondData(c, fiber.StatusCreated, fiber.Map{
		"token": token,
		"user":  user,
	})
}

// Login handles POST /api/auth/login
func (s *Server) Login(c *fiber.Ctx) error {
	var req struct {
		Email    string `json:"email"`
		Password string `json:"password"`
	}
	if err := c.BodyParser(&req); err != nil {
		return models.RespondWithError(c, fiber.StatusBadRequest,
			models.NewValidationError("Invalid request body"))
	}

	user, err := s.userService.Authenticate(c.UserContext(), req.Email, req.Password)
	if err != nil {
		return respondError(c, err)
	}

	token, err := s.generateToken(user, tokenTTL)
	if err != nil {
		return respondError(c, models.NewInternalError(err))
	}

	return respondData(c, fiber.StatusOK, fiber.Map{
		"token": token,
		"user":  user,
	})
}

// GuestLogin handles POST /api/auth/guest. The token expires together with
// the guest account.
func (s *Server) GuestLogin(c *fiber.Ctx) error {
	guest, err := s.userService.CreateGuest(c.UserContext())
	if err != nil {
		return respondError(c, err)
	}

	ttl := tokenTTL
	if guest.GuestExpiresAt != nil {
		ttl = time.Until(*guest.GuestExpiresAt)
	}
	token, err := s.generateToken(guest, ttl)
	if err != nil {
		return respondError(c, models.NewInternalError(err))
	}

	return respondData(c, fiber.StatusCreated, fiber.Map{
		"token":      token,
		"user":       guest,
		"expires_at": guest.GuestExpiresAt,
	})
}

// GetProfile handles GET /api/auth/profile
func (s *Server) GetProfile(c *fiber.Ctx) error {
	user, err := s.userService.GetProfile(c.UserContext(), currentUserID(c))
	if err != nil {
		return respondError(c, err)
	}
	return respondData(c, fiber.StatusOK, user)
}

// CheckGuestSession handles GET /api/auth/guest/check
func (s *Server) CheckGuestSession(c *fiber.Ctx) error {
	valid, expiresAt, err := s.userService.CheckGuestSession(c.UserContext(), currentUserID(c))
	if err != nil {
		return respondError(c, err)
	}
	return respondData(c, fiber.StatusOK, fiber.Map{
		"valid":      valid,
		"expires_at": expiresAt,
	})
}

// Logout handles POST /api/auth/logout by revoking the presented token.
func (s *Server) Logout(c *fiber.Ctx) error {
	jti, _ := c.Locals("tokenJTI").(string)
	exp, _ := c.Locals("tokenExp").(int64)

	if jti != "" && s.redis != nil {
		ttl := time.Until(time.Unix(exp, 0))
		if ttl <= 0 {
			ttl = time.Minute
		}
		if err := s.redis.Set(c.Context(), "blacklist:"+jti, "1", ttl).Err(); err != nil {
			return respondError(c, models.NewInternalError(err))
		}
	}

	return respondMessage(c, fiber.StatusOK, "Logged out successfully")
}

// generateToken creates a JWT token for the given user.
func (s *Server) generateToken(user *models.User, ttl time.Duration) (string, error) {
	if s.config.JWTSecret == "" {
		return "", fmt.Errorf("JWT secret not configured")
	}

	now := time.Now()
	claims := jwt.MapClaims{
		"sub":      strconv.FormatUint(uint64(user.ID), 10),
		"iss":      tokenIssuer,
		"aud":      tokenAudience,
		"exp":      now.Add(ttl).Unix(),
		"iat":      now.Unix(),
		"nbf":      now.Unix(),
		"jti":      s.generateJTI(),
		"is_guest": user.IsGuest,
	}

	token := jwt.NewWithClaims(jwt.SigningMethodHS256, claims)
	return token.SignedString([]byte(s.config.JWTSecret))
}

// generateJTI creates a unique JWT ID to prevent replay attacks
func (s *Server) generateJTI() string {
	return fmt.Sprintf("%d-%s", time.Now().Unix(), uuid.New().String()[:8])
}
