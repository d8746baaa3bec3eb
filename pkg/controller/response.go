package controller

import (
	"net/http"

	"github.com/Andi3172/fullstack-tic-project/pkg/server/router"
)

// Success sends data as-is with HTTP 200.
func Success(c router.Context, data interface{}) error {
	return c.JSON(http.StatusOK, data)
}

// Created sends data as-is with HTTP 201.
func Created(c router.Context, data interface{}) error {
	return c.JSON(http.StatusCreated, data)
}

// Error sends an error response with the appropriate HTTP status code
// It uses MapError to convert application errors to HTTP responses
func Error(c router.Context, err error) error {
	statusCode, errorResponse := MapError(c.Request().Context(), err)
	return c.JSON(statusCode, errorResponse)
}
