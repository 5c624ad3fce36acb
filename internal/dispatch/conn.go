// Package dispatch implements the DAAP request router: the two-pass
// envelope sequence every listing endpoint shares, the session/login
// handshake, the revision long-poll, and the XML alternate-output branch.
// Core handler logic is written against the Conn interface rather than
// *gin.Context directly, so it can be exercised with a fake connection in
// unit tests without an HTTP round trip.
package dispatch

import (
	"context"

	"github.com/gin-gonic/gin"
)

// Conn is the narrow surface a handler needs from the underlying HTTP
// connection: request headers and query/path parameters in, response
// header/status/body out.
type Conn interface {
	// Header sets a response header.
	Header(key, value string)
	// Status sets the response status code. Write implicitly sends 200 if
	// Status was never called.
	Status(code int)
	// Write appends to the response body.
	Write(p []byte) (int, error)
	// RequestHeader returns a request header value, or "" if absent.
	RequestHeader(key string) string
	// Query returns a URL query parameter value, or "" if absent.
	Query(key string) string
	// Param returns a path parameter value (e.g. ":id"), or "" if absent.
	Param(key string) string
	// Context returns the request's context, cancelled on client hangup.
	Context() context.Context
}

// ginConn adapts *gin.Context to Conn.
type ginConn struct {
	c *gin.Context
}

func newGinConn(c *gin.Context) Conn {
	return &ginConn{c: c}
}

func (g *ginConn) Header(key, value string)       { g.c.Header(key, value) }
func (g *ginConn) Status(code int)                { g.c.Status(code) }
func (g *ginConn) Write(p []byte) (int, error)    { return g.c.Writer.Write(p) }
func (g *ginConn) RequestHeader(key string) string { return g.c.GetHeader(key) }
func (g *ginConn) Query(key string) string        { return g.c.Query(key) }
func (g *ginConn) Param(key string) string        { return g.c.Param(key) }
func (g *ginConn) Context() context.Context       { return g.c.Request.Context() }
