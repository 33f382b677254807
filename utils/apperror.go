// utils/apperror.go
package utils

import (
	"errors"
	"log"
	"os"

	"github.com/gofiber/fiber/v2"
)

// AppError is the service-level error shape mapped to HTTP by the central
// Fiber error handler. Code is a stable machine-readable identifier.
type AppError struct {
	Status  int    `json:"-"`
	Code    string `json:"code,omitempty"`
	Message string `json:"error"`
}

func (e *AppError) Error() string { return e.Message }

func Validation(msg string) *AppError {
	return &AppError{Status: fiber.StatusBadRequest, Code: "VALIDATION", Message: msg}
}

func NotFound(code, msg string) *AppError {
	return &AppError{Status: fiber.StatusNotFound, Code: code, Message: msg}
}

func Conflict(code, msg string) *AppError {
	return &AppError{Status: fiber.StatusConflict, Code: code, Message: msg}
}

// ResourceExhausted covers empty rarity pools and exhausted supply caps.
func ResourceExhausted(msg string) *AppError {
	return &AppError{Status: fiber.StatusConflict, Code: "RESOURCE_EXHAUSTED", Message: msg}
}

// ErrorHandler is installed as fiber.Config.ErrorHandler. Known error
// shapes map to their status; everything else becomes a generic 500 with
// detail only logged (and echoed in development).
func ErrorHandler(c *fiber.Ctx, err error) error {
	var appErr *AppError
	if errors.As(err, &appErr) {
		return c.Status(appErr.Status).JSON(appErr)
	}

	var fiberErr *fiber.Error
	if errors.As(err, &fiberErr) {
		return c.Status(fiberErr.Code).JSON(fiber.Map{"error": fiberErr.Message})
	}

	log.Printf("ERROR unhandled on %s %s: %v", c.Method(), c.Path(), err)
	if os.Getenv("APP_ENV") == "development" {
		return c.Status(fiber.StatusInternalServerError).JSON(fiber.Map{
			"error": "internal server error",
			"cause": err.Error(),
		})
	}
	return c.Status(fiber.StatusInternalServerError).JSON(fiber.Map{"error": "internal server error"})
}
