// Package ingest exposes the daemon's two surfaces: a WebSocket that
// receives intercepted marketplace traffic and an HTTP API the
// page-side collaborator polls for derived quotes.
package ingest

import (
	"context"
	"fmt"
	"log"
	"net/http"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/gorilla/websocket"

	"github.com/skingap/skingap/internal/derive"
	"github.com/skingap/skingap/internal/history"
	"github.com/skingap/skingap/internal/itemcache"
	"github.com/skingap/skingap/internal/model"
	"github.com/skingap/skingap/internal/overlay"
	"github.com/skingap/skingap/internal/refprice"
	"github.com/skingap/skingap/internal/router"
)

// frame is one message on the ingest socket. Type selects which of
// the two payloads is present.
type frame struct {
	Type   string             `json:"type"` // "http" or "socket"
	Event  *model.Event       `json:"event,omitempty"`
	Socket *model.SocketEvent `json:"socket,omitempty"`
}

type ack struct {
	OK    bool   `json:"ok"`
	Error string `json:"error,omitempty"`
}

type Server struct {
	caches   *itemcache.Registry
	router   *router.Router
	table    *refprice.Table
	deriver  *derive.Deriver
	upgrader websocket.Upgrader
}

func New(caches *itemcache.Registry, rt *router.Router, table *refprice.Table, deriver *derive.Deriver) *Server {
	return &Server{
		caches:  caches,
		router:  rt,
		table:   table,
		deriver: deriver,
		upgrader: websocket.Upgrader{
			// The socket only ever accepts connections from the local
			// interception shim.
			CheckOrigin: func(r *http.Request) bool { return true },
		},
	}
}

// Routes builds the gin engine with the full API surface.
func (s *Server) Routes() *gin.Engine {
	r := gin.Default()

	r.Use(func(c *gin.Context) {
		c.Header("Access-Control-Allow-Origin", "*")
		c.Header("Access-Control-Allow-Methods", "GET, POST, OPTIONS")
		c.Header("Access-Control-Allow-Headers", "Content-Type")
		if c.Request.Method == "OPTIONS" {
			c.AbortWithStatus(204)
			return
		}
		c.Next()
	})

	r.GET("/health", func(c *gin.Context) {
		c.JSON(http.StatusOK, gin.H{"status": "ok", "table_size": s.table.Size()})
	})

	api := r.Group("/api/v1")
	api.GET("/quote", s.handleQuote)
	api.GET("/history", s.handleHistory)
	api.POST("/refresh", s.handleRefresh)
	api.POST("/fetch", s.handleFetch)

	r.GET("/ws", s.handleSocket)

	return r
}

// handleQuote resolves a rendered listing to a derived quote. The
// collaborator can hand over the listing id, the popup flag, the
// rendered name, or raw row markup with a selector to pull the name
// out of. Name lookups retry briefly because the page can render
// before the intercepted payload arrives.
func (s *Server) handleQuote(c *gin.Context) {
	marketplace := model.Marketplace(c.Query("marketplace"))
	cache := s.caches.Cache(marketplace)
	matcher := overlay.NewMatcher(cache)

	var item model.Item
	var found bool

	switch {
	case c.Query("id") != "":
		item, found = matcher.MatchID(c.Query("id"))
	case c.Query("popup") == "true":
		item, found = cache.Popup()
	case c.Query("fragment") != "":
		selector := c.Query("selector")
		if selector == "" {
			c.JSON(http.StatusBadRequest, gin.H{"error": "selector required with fragment"})
			return
		}
		name, err := overlay.ExtractName(c.Query("fragment"), selector)
		if err != nil {
			c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
			return
		}
		item, found, err = s.matchName(c, matcher, name)
		if err != nil {
			return
		}
	case c.Query("name") != "":
		var err error
		item, found, err = s.matchName(c, matcher, c.Query("name"))
		if err != nil {
			return
		}
	default:
		c.JSON(http.StatusBadRequest, gin.H{"error": "id, popup, name or fragment required"})
		return
	}

	if !found {
		c.JSON(http.StatusNotFound, gin.H{"error": "no cached listing matches"})
		return
	}

	s.table.EnsureFresh(c.Request.Context())
	c.JSON(http.StatusOK, s.deriver.Derive(item))
}

// matchName runs the bounded retry match. On failure the 400 has
// already been written and the returned error just tells the caller
// to stop.
func (s *Server) matchName(c *gin.Context, matcher *overlay.Matcher, name string) (model.Item, bool, error) {
	ctx, cancel := context.WithTimeout(c.Request.Context(), 3*time.Second)
	defer cancel()

	item, found, err := matcher.Match(ctx, name)
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return model.Item{}, false, err
	}
	return item, found, nil
}

// handleHistory returns the cached price history for the page's
// current item along with its summary figures.
func (s *Server) handleHistory(c *gin.Context) {
	cache := s.caches.Cache(model.Marketplace(c.Query("marketplace")))

	graph := cache.HistoryGraph()
	sales := cache.HistorySales()
	if len(graph) == 0 && len(sales) == 0 {
		c.JSON(http.StatusNotFound, gin.H{"error": "no history cached"})
		return
	}

	c.JSON(http.StatusOK, gin.H{
		"summary": history.Summarize(graph, sales),
		"graph":   graph,
		"sales":   sales,
	})
}

func (s *Server) handleRefresh(c *gin.Context) {
	ok := s.table.Refresh(c.Request.Context())
	c.JSON(http.StatusOK, gin.H{"refreshed": ok, "table_size": s.table.Size()})
}

func (s *Server) handleFetch(c *gin.Context) {
	ok := s.table.EnsureFresh(c.Request.Context())
	c.JSON(http.StatusOK, gin.H{"usable": ok, "table_size": s.table.Size()})
}

// handleSocket upgrades the connection and feeds every frame to the
// event router. A malformed or mismatching frame is acked with the
// error and the connection stays open; routing must survive one bad
// payload.
func (s *Server) handleSocket(c *gin.Context) {
	conn, err := s.upgrader.Upgrade(c.Writer, c.Request, nil)
	if err != nil {
		log.Printf("[ingest] upgrade failed: %v", err)
		return
	}
	defer conn.Close()

	for {
		var f frame
		if err := conn.ReadJSON(&f); err != nil {
			if websocket.IsUnexpectedCloseError(err, websocket.CloseNormalClosure, websocket.CloseGoingAway) {
				log.Printf("[ingest] socket closed: %v", err)
			}
			return
		}

		reply := ack{OK: true}
		if err := s.dispatch(f); err != nil {
			log.Printf("[ingest] %v", err)
			reply = ack{Error: err.Error()}
		}
		// A failed write means the peer is gone; stop reading.
		if err := conn.WriteJSON(reply); err != nil {
			log.Printf("[ingest] ack write failed: %v", err)
			return
		}
	}
}

func (s *Server) dispatch(f frame) error {
	switch {
	case f.Type == "http" && f.Event != nil:
		return s.router.Route(*f.Event)
	case f.Type == "socket" && f.Socket != nil:
		return s.router.RouteSocket(*f.Socket)
	default:
		return fmt.Errorf("malformed frame of type %q", f.Type)
	}
}
