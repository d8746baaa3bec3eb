// Package router defines the routing abstraction handlers and middleware are
// written against. The gin subpackage provides the implementation.
package router

import "net/http"

// Router registers routes and serves them.
type Router interface {
	GET(path string, handler HandlerFunc, middleware ...MiddlewareFunc)
	POST(path string, handler HandlerFunc, middleware ...MiddlewareFunc)
	PATCH(path string, handler HandlerFunc, middleware ...MiddlewareFunc)

	// Group creates a sub-router under prefix. Middleware passed here runs
	// after the parent's and before route middleware.
	Group(prefix string, middleware ...MiddlewareFunc) Router

	// Use appends middleware for routes registered afterwards.
	Use(middleware ...MiddlewareFunc)

	ServeHTTP(w http.ResponseWriter, r *http.Request)
}

// HandlerFunc handles a request. A returned error on an unwritten response
// becomes a bare 500.
type HandlerFunc func(Context) error

// MiddlewareFunc wraps a HandlerFunc.
type MiddlewareFunc func(HandlerFunc) HandlerFunc

// Context gives handlers access to the request and response.
type Context interface {
	Request() *http.Request
	SetRequest(r *http.Request)

	Response() ResponseWriter
	SetResponse(w ResponseWriter)

	// Route returns the matched route template, e.g. "/api/products/:id",
	// or "" when no route matched.
	Route() string

	Param(name string) string
	Query(name string) string

	// Bind decodes a JSON request body into v.
	Bind(v interface{}) error

	JSON(code int, v interface{}) error
	String(code int, s string) error

	Get(key string) interface{}
	Set(key string, value interface{})
}

// ResponseWriter tracks the status written to the client.
type ResponseWriter interface {
	http.ResponseWriter

	// Status returns the written status, or 200 before anything is written.
	Status() int
	Written() bool
}
