package middleware

import (
	"PanoGuard/internal/entity"
	jwtPkg "PanoGuard/pkg/jwt"

	"github.com/gofiber/fiber/v2"
	"github.com/golang-jwt/jwt/v5"
	"github.com/sirupsen/logrus"
)

func (m *middleware) unauthorized(ctx *fiber.Ctx, reason string) error {
	m.log.WithFields(logrus.Fields{
		"request_id": m.GetRequestID(ctx),
		"path":       ctx.Path(),
		"client_ip":  ctx.IP(),
		"reason":     reason,
	}).Warn("Authentication rejected")

	return ctx.Status(fiber.StatusUnauthorized).JSON(fiber.Map{
		"error": "Unauthorized, access token invalid or expired",
		"code":  "UNAUTHORIZED",
	})
}

// NewTokenMiddleware verifies the bearer token and stores the clinician in
// the request locals. Websocket upgrades cannot set headers from a browser,
// so they may pass the token as ?token= instead.
func (m *middleware) NewTokenMiddleware(ctx *fiber.Ctx) error {
	var (
		token *jwt.Token
		err   error
	)

	if ctx.Get(fiber.HeaderAuthorization) == "" && ctx.Query("token") != "" {
		token, err = jwtPkg.Parse(ctx.Query("token"), jwtPkg.AccessTokenSecret)
	} else {
		token, err = jwtPkg.VerifyTokenHeader(ctx, jwtPkg.AccessTokenSecret)
	}
	if err != nil {
		return m.unauthorized(ctx, err.Error())
	}

	claims, ok := token.Claims.(jwt.MapClaims)
	if !ok {
		return m.unauthorized(ctx, "invalid token claims")
	}

	id, _ := claims["id"].(string)
	email, _ := claims["email"].(string)
	name, _ := claims["name"].(string)
	if id == "" || email == "" {
		return m.unauthorized(ctx, "token claims are missing required fields")
	}

	ctx.Locals(jwtPkg.LocalsKey, entity.ProfileLoginData{
		ID:    id,
		Email: email,
		Name:  name,
	})

	m.log.WithFields(logrus.Fields{
		"request_id": m.GetRequestID(ctx),
		"profile_id": id,
	}).Debug("Authentication successful")

	return ctx.Next()
}
