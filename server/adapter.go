package server

import (
	"net/http"

	"github.com/gofiber/fiber/v2"
)

// FiberResponseWriter adapts Fiber's context to http.ResponseWriter so
// standard net/http handlers (the Prometheus exposition handler) can be
// mounted on Fiber routes.
type FiberResponseWriter struct {
	ctx    *fiber.Ctx
	status int
	header http.Header
}

// NewFiberResponseWriter creates a new FiberResponseWriter adapter
func NewFiberResponseWriter(ctx *fiber.Ctx) *FiberResponseWriter {
	return &FiberResponseWriter{
		ctx:    ctx,
		status: http.StatusOK,
		header: make(http.Header),
	}
}

// Header returns the header map that will be sent by WriteHeader.
func (w *FiberResponseWriter) Header() http.Header {
	return w.header
}

// Write writes the data to the connection as part of an HTTP reply.
func (w *FiberResponseWriter) Write(data []byte) (int, error) {
	for key, values := range w.header {
		for _, value := range values {
			w.ctx.Set(key, value)
		}
	}
	if w.status != http.StatusOK {
		w.ctx.Status(w.status)
	}
	return w.ctx.Write(data)
}

// WriteHeader records the status code for the reply.
func (w *FiberResponseWriter) WriteHeader(statusCode int) {
	w.status = statusCode
}

// WrapHTTPHandler mounts a net/http handler as a Fiber handler.
func WrapHTTPHandler(h http.Handler) fiber.Handler {
	return func(c *fiber.Ctx) error {
		req, err := http.NewRequest(c.Method(), c.OriginalURL(), nil)
		if err != nil {
			return err
		}
		c.Request().Header.VisitAll(func(key, value []byte) {
			req.Header.Set(string(key), string(value))
		})
		h.ServeHTTP(NewFiberResponseWriter(c), req)
		return nil
	}
}
