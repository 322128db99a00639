package jwtPkg

import (
	"errors"
	"fmt"
	"os"
	"strings"
	"time"

	"PanoGuard/internal/entity"

	"github.com/gofiber/fiber/v2"
	"github.com/golang-jwt/jwt/v5"
	"github.com/sirupsen/logrus"
)

const (
	AccessTokenSecret = "JWT_ACCESS_TOKEN_SECRET"
	LocalsKey         = "profile"
	defaultTTL        = 12 * time.Hour
)

var (
	ErrMissingHeader = errors.New("empty Authorization header")
	ErrBadFormat     = errors.New("invalid Authorization format")
	ErrNoSecret      = errors.New("JWT secret not configured")
)

// TTLFromEnv reads JWT_TTL as a Go duration, defaulting to 12h.
func TTLFromEnv() time.Duration {
	ttl, err := time.ParseDuration(os.Getenv("JWT_TTL"))
	if err != nil || ttl <= 0 {
		return defaultTTL
	}
	return ttl
}

func Sign(data map[string]interface{}, expiresIn time.Duration) (string, int64, error) {
	expiredAt := time.Now().Add(expiresIn).Unix()

	secret := os.Getenv(AccessTokenSecret)
	if secret == "" {
		return "", 0, fmt.Errorf("%s not set", AccessTokenSecret)
	}

	claims := jwt.MapClaims{
		"exp": expiredAt,
		"iat": time.Now().Unix(),
	}
	for k, v := range data {
		claims[k] = v
	}

	token := jwt.NewWithClaims(jwt.SigningMethodHS256, claims)
	signed, err := token.SignedString([]byte(secret))
	if err != nil {
		logrus.WithError(err).Error("Failed to sign token")
		return "", 0, err
	}

	return signed, expiredAt, nil
}

func VerifyTokenHeader(c *fiber.Ctx, secretEnvKey string) (*jwt.Token, error) {
	header := c.Get(fiber.HeaderAuthorization)
	if header == "" {
		return nil, ErrMissingHeader
	}

	accessToken, ok := strings.CutPrefix(header, "Bearer ")
	accessToken = strings.TrimSpace(accessToken)
	if !ok || accessToken == "" {
		return nil, ErrBadFormat
	}

	return Parse(accessToken, secretEnvKey)
}

func Parse(accessToken string, secretEnvKey string) (*jwt.Token, error) {
	secret := os.Getenv(secretEnvKey)
	if secret == "" {
		return nil, ErrNoSecret
	}

	return jwt.Parse(accessToken, func(token *jwt.Token) (interface{}, error) {
		if _, ok := token.Method.(*jwt.SigningMethodHMAC); !ok {
			return nil, fmt.Errorf("unexpected signing method: %v", token.Header["alg"])
		}
		return []byte(secret), nil
	})
}

func GetProfileLoginData(c *fiber.Ctx) (entity.ProfileLoginData, error) {
	profile, ok := c.Locals(LocalsKey).(entity.ProfileLoginData)
	if !ok || profile.ID == "" {
		return entity.ProfileLoginData{}, fiber.ErrUnauthorized
	}

	return profile, nil
}
