package dispatch

import (
	"log/slog"
	"net/http"
	"strconv"
	"strings"

	"github.com/gin-gonic/gin"
)

// securityHeaders adds the same defensive response headers the teacher's
// radio server sets on every response.
func securityHeaders() gin.HandlerFunc {
	return func(c *gin.Context) {
		c.Header("X-Content-Type-Options", "nosniff")
		c.Header("X-Frame-Options", "DENY")
		c.Header("Referrer-Policy", "strict-origin-when-cross-origin")
		c.Next()
	}
}

// NewRouter builds the gin.Engine implementing the full DAAP URL grammar
// over s.
func NewRouter(s *Server) *gin.Engine {
	r := gin.New()
	r.Use(gin.Recovery(), securityHeaders())

	r.GET("/server-info", func(c *gin.Context) { ServerInfo(s, newGinConn(c)) })
	r.GET("/content-codes", func(c *gin.Context) { ContentCodes(s, newGinConn(c)) })
	r.GET("/login", func(c *gin.Context) { Login(s, newGinConn(c)) })
	r.GET("/logout", func(c *gin.Context) { Logout(s, newGinConn(c)) })
	r.GET("/update", func(c *gin.Context) { Update(s, newGinConn(c)) })
	r.GET("/databases", func(c *gin.Context) { Databases(s, newGinConn(c)) })
	r.GET("/databases/:id", func(c *gin.Context) { DatabaseInfo(s, newGinConn(c)) })
	r.GET("/databases/:id/items", func(c *gin.Context) { Items(s, newGinConn(c)) })
	r.GET("/databases/:id/containers", func(c *gin.Context) { Containers(s, newGinConn(c)) })
	r.GET("/databases/:id/containers/:pid/items", func(c *gin.Context) { ContainerItems(s, newGinConn(c)) })
	r.GET("/databases/:id/browse/:axis", func(c *gin.Context) { Browse(s, newGinConn(c)) })
	r.GET("/databases/:id/items/:sidext", func(c *gin.Context) { serveStream(s, c) })

	return r
}

// serveStream handles GET /databases/<id>/items/<sid>.<ext>. Song bytes
// aren't DMAP elements, so this drives internal/stream directly against
// gin's underlying http.ResponseWriter/*http.Request instead of going
// through Conn — the dispatcher "bypasses the sizing pass" for streams.
func serveStream(s *Server, c *gin.Context) {
	sid, _, ok := strings.Cut(c.Param("sidext"), ".")
	if !ok {
		sid = c.Param("sidext")
	}
	id, err := strconv.ParseInt(sid, 10, 64)
	if err != nil {
		c.Status(http.StatusBadRequest)
		return
	}

	song, err := s.Catalog.GetSong(id)
	if err != nil {
		c.Status(http.StatusNotFound)
		return
	}

	if err := s.Stream.Serve(c.Request.Context(), c.Writer, c.Request, song); err != nil {
		if !c.Writer.Written() {
			c.Status(http.StatusNotFound)
			return
		}
		slog.Warn("stream: copy failed", "song_id", id, "error", err)
	}
}
