package server

import (
	"fmt"
	"sync"
	"time"

	"wwasd-relay/src/cache"
	"wwasd-relay/src/logger"
	"wwasd-relay/src/models"
	"wwasd-relay/src/query"
	"wwasd-relay/src/storage"

	"github.com/gin-gonic/gin"
)

// -----------------------------------------------------------------------------
// RelayServer
// -----------------------------------------------------------------------------

type RelayServer struct {
	Config *models.MConfig
	Logger *logger.Logger
	engine *gin.Engine

	State  *cache.StateCache
	Port   *cache.PortCache
	Query  *query.Engine
	Writer *storage.DumpWriter

	// WebSocket clients
	clientsMu  sync.RWMutex
	clients    map[*Client]struct{}
	broadcast  chan *models.MSnapshotRow // Strongly typed and Buffered Queue
	register   chan *Client
	unregister chan *Client
	done       chan struct{}
	stopOnce   sync.Once

	// Now is injectable for tests; defaults to wall clock in unix ms.
	Now func() int64
}

// -----------------------------------------------------------------------------
// Constructor
// -----------------------------------------------------------------------------

func NewRelayServer(cfg *models.MConfig, log *logger.Logger, state *cache.StateCache, port *cache.PortCache, qe *query.Engine, writer *storage.DumpWriter) *RelayServer {
	// Set Gin mode
	if cfg.LogLevel != "DEBUG" {
		gin.SetMode(gin.ReleaseMode)
	}

	s := &RelayServer{
		Config:  cfg,
		Logger:  log,
		engine:  gin.Default(),
		State:   state,
		Port:    port,
		Query:   qe,
		Writer:  writer,
		clients: make(map[*Client]struct{}),
		// Buffered channel to prevent lock/blocking
		// Queue size of 256 ensures we can handle bursts of updates
		broadcast:  make(chan *models.MSnapshotRow, 256),
		register:   make(chan *Client),
		unregister: make(chan *Client),
		done:       make(chan struct{}),
		Now:        func() int64 { return time.Now().UnixMilli() },
	}

	// setup web routes
	s.setupRoutes()
	return s
}

// -----------------------------------------------------------------------------
// Route Setup
// -----------------------------------------------------------------------------

func (s *RelayServer) setupRoutes() {
	// Ingestion
	s.engine.POST("/tv", s.ingest)

	// Read-side views (same parameters, same selection, three formats)
	s.engine.GET("/tv/latest", s.latestJSON)
	s.engine.GET("/tv/latest.json", s.latestJSON)
	s.engine.GET("/tv/latest.csv", s.latestCSV)
	s.engine.GET("/tv/latest.html", s.latestHTML)

	// Port views
	s.engine.GET("/blofin/latest", s.portLatest)
	s.engine.GET("/port2_ssr.html", s.portHTML)

	// Liveness
	s.engine.GET("/health", s.getHealth)

	// WebSocket endpoint
	s.engine.GET("/ws", s.handleWebSocket)
}

// -----------------------------------------------------------------------------
// Server Lifecycle
// -----------------------------------------------------------------------------

func (s *RelayServer) Start() error {
	addr := fmt.Sprintf("%s:%d", s.Config.Host, s.Config.Port)
	s.Logger.Info("Starting relay on %s", addr)

	go s.handleWebsockets()

	return s.engine.Run(addr)
}

// -----------------------------------------------------------------------------

func (s *RelayServer) Stop() error {
	// Clean shutdown: the hub loop drains its clients and exits, and any
	// late register or broadcast becomes a no-op. Safe to call twice.
	s.stopOnce.Do(func() { close(s.done) })
	return nil
}

// -----------------------------------------------------------------------------

// Engine exposes the router for httptest.
func (s *RelayServer) Engine() *gin.Engine {
	return s.engine
}

// -----------------------------------------------------------------------------
// Liveness
// -----------------------------------------------------------------------------

func (s *RelayServer) getHealth(c *gin.Context) {
	s.clientsMu.RLock()
	connections := len(s.clients)
	s.clientsMu.RUnlock()

	c.JSON(200, gin.H{
		"ok":          true,
		"time":        s.Now() / 1000,
		"state_count": s.State.Count(),
		"port_cached": s.Port.HasData(),
		"ws_clients":  connections,
	})
}
