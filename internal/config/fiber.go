package config

import (
	"time"

	"github.com/gofiber/fiber/v2"
	jsoniter "github.com/json-iterator/go"
)

// NewFiber builds the HTTP engine. bodyLimit must cover the largest
// radiograph upload, base64 overhead included.
func NewFiber(bodyLimit int64) *fiber.App {
	limit := int(bodyLimit + bodyLimit/3 + 1024*1024)

	return fiber.New(
		fiber.Config{
			AppName:           "PanoGuard",
			BodyLimit:         limit,
			ReadTimeout:       60 * time.Second,
			WriteTimeout:      60 * time.Second,
			DisableKeepalive:  false,
			StrictRouting:     true,
			CaseSensitive:     true,
			EnablePrintRoutes: false,
			JSONEncoder:       jsoniter.Marshal,
			JSONDecoder:       jsoniter.Unmarshal,
		})
}
