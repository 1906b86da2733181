package server

import (
	"errors"
	"net/http"
	"strings"
	"time"

	"github.com/golang-jwt/jwt/v5"
	"github.com/labstack/echo/v4"
	"golang.org/x/crypto/bcrypt"

	"github.com/apexcrm/apex/internal/store"
)

const userIDKey = "user_id"

func (s *Server) handleSignup(c echo.Context) error {
	var req signupRequest
	if err := c.Bind(&req); err != nil {
		return echo.NewHTTPError(http.StatusBadRequest, "invalid request body")
	}
	req.Email = strings.TrimSpace(strings.ToLower(req.Email))
	if req.Email == "" || len(req.Password) < 8 {
		return echo.NewHTTPError(http.StatusBadRequest, "email and a password of at least 8 characters are required")
	}

	hash, err := bcrypt.GenerateFromPassword([]byte(req.Password), bcrypt.DefaultCost)
	if err != nil {
		return echo.NewHTTPError(http.StatusInternalServerError, "hash password")
	}
	userID, err := s.store.CreateUser(c.Request().Context(), req.Email, string(hash))
	if err != nil {
		if errors.Is(err, store.ErrEmailTaken) {
			return echo.NewHTTPError(http.StatusConflict, "email already registered")
		}
		return err
	}

	token, err := s.signJWT(userID, req.Email)
	if err != nil {
		return err
	}
	return c.JSON(http.StatusCreated, authResponse{Token: token, Email: req.Email})
}

func (s *Server) handleLogin(c echo.Context) error {
	var req loginRequest
	if err := c.Bind(&req); err != nil {
		return echo.NewHTTPError(http.StatusBadRequest, "invalid request body")
	}
	req.Email = strings.TrimSpace(strings.ToLower(req.Email))

	user, err := s.store.GetUserByEmail(c.Request().Context(), req.Email)
	if err != nil {
		if errors.Is(err, store.ErrUserNotFound) {
			return echo.NewHTTPError(http.StatusUnauthorized, "invalid credentials")
		}
		return err
	}
	if bcrypt.CompareHashAndPassword([]byte(user.PasswordHash), []byte(req.Password)) != nil {
		return echo.NewHTTPError(http.StatusUnauthorized, "invalid credentials")
	}

	token, err := s.signJWT(user.ID, user.Email)
	if err != nil {
		return err
	}
	return c.JSON(http.StatusOK, authResponse{Token: token, Email: user.Email})
}

// Tokens are stateless, so logout is acknowledgement only; clients drop
// the token.
func (s *Server) handleLogout(c echo.Context) error {
	return c.NoContent(http.StatusNoContent)
}

func (s *Server) signJWT(userID int64, email string) (string, error) {
	claims := jwt.MapClaims{
		"sub":   userID,
		"email": email,
		"iat":   time.Now().Unix(),
		"exp":   time.Now().Add(24 * time.Hour).Unix(),
	}
	token := jwt.NewWithClaims(jwt.SigningMethodHS256, claims)
	signed, err := token.SignedString([]byte(s.cfg.Server.JWTSecret))
	if err != nil {
		return "", echo.NewHTTPError(http.StatusInternalServerError, "sign token")
	}
	return signed, nil
}

// withAuth validates the bearer token and stores the user ID on the context.
func (s *Server) withAuth(next echo.HandlerFunc) echo.HandlerFunc {
	return func(c echo.Context) error {
		header := c.Request().Header.Get(echo.HeaderAuthorization)
		if !strings.HasPrefix(header, "Bearer ") {
			return echo.NewHTTPError(http.StatusUnauthorized, "missing bearer token")
		}
		raw := strings.TrimPrefix(header, "Bearer ")

		token, err := jwt.Parse(raw, func(t *jwt.Token) (interface{}, error) {
			if t.Method != jwt.SigningMethodHS256 {
				return nil, jwt.ErrSignatureInvalid
			}
			return []byte(s.cfg.Server.JWTSecret), nil
		})
		if err != nil || !token.Valid {
			return echo.NewHTTPError(http.StatusUnauthorized, "invalid token")
		}
		claims, ok := token.Claims.(jwt.MapClaims)
		if !ok {
			return echo.NewHTTPError(http.StatusUnauthorized, "invalid token claims")
		}
		sub, ok := claims["sub"].(float64)
		if !ok {
			return echo.NewHTTPError(http.StatusUnauthorized, "invalid token subject")
		}
		c.Set(userIDKey, int64(sub))
		return next(c)
	}
}

func currentUserID(c echo.Context) int64 {
	if id, ok := c.Get(userIDKey).(int64); ok {
		return id
	}
	return 0
}
