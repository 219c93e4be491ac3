// Package main implements the Journey Drive session server.
//
// Architecture Overview:
// - Uses WebSocket for real-time bidirectional communication with clients
// - Each connection owns one drive session ticking at 60Hz
// - Pose updates are sent at 20Hz, checkpoint and completion events immediately
// - An input guard rate-limits and sanitizes client input server-side
//
// Connection Flow:
// 1. Client connects via WebSocket to /ws endpoint
// 2. Server creates a session on the default course and sends SessionInfo
// 3. Client sends Start, then Input frames; server sends Pose frames
// 4. On CheckpointReached the session pauses until the client sends Continue
// 5. Dismissing the last checkpoint completes the session
package main

import (
	"encoding/json"
	"errors"
	"fmt"
	"log"
	"net/http"
	"os"
	"strconv"
	"sync"
	"time"

	"github.com/gorilla/websocket"

	"github.com/journeydrive/sim/config"
	"github.com/journeydrive/sim/internal/course"
	"github.com/journeydrive/sim/internal/game"
	"github.com/journeydrive/sim/internal/host"
	"github.com/journeydrive/sim/internal/network"
	"github.com/journeydrive/sim/internal/registry"
	"github.com/journeydrive/sim/internal/track"
)

// DriveServer is the main server instance that manages all connections and sessions.
// It handles WebSocket upgrades and hands frames to the session runners.
type DriveServer struct {
	config   *config.ServerConfig // Server configuration (host, port, etc.)
	registry *registry.Registry   // Live sessions keyed by ID
	protocol *network.Protocol    // Binary protocol encoder/decoder
	upgrader websocket.Upgrader   // HTTP to WebSocket upgrader
	course   []byte               // Pre-rendered /course response
}

// ClientConnection represents a single connected client.
// Each client has its own goroutines for reading and writing messages.
type ClientConnection struct {
	ws       *websocket.Conn // The underlying WebSocket connection
	server   *DriveServer    // Reference to parent server
	runner   *host.Runner    // Session runner (nil if the server was full)
	sendChan chan []byte     // Buffered channel for outgoing messages
	done     chan struct{}   // Signal channel for graceful shutdown

	closeOnce   sync.Once
	cleanupOnce sync.Once
}

// courseDocument is the JSON shape of /course.
type courseDocument struct {
	Waypoints   []track.Point     `json:"waypoints"`
	Centerline  []track.Point     `json:"centerline"`
	RoadWidth   float64           `json:"roadWidth"`
	Checkpoints []game.Checkpoint `json:"checkpoints"`
}

func main() {
	// Configure logging to include file and line numbers for debugging
	log.SetFlags(log.LstdFlags | log.Lshortfile)

	// Load configuration from environment variables
	cfg := loadConfig()

	server, err := NewDriveServer(cfg, config.DefaultTuning())
	if err != nil {
		log.Fatalf("Course error: %v", err)
	}

	// Print startup banner with configuration
	log.Printf("=================================")
	log.Printf("  Journey Drive Server")
	log.Printf("=================================")
	log.Printf("  Host: %s", cfg.Host)
	log.Printf("  Port: %d", cfg.Port)
	log.Printf("  Tick Rate: %d Hz", config.TickRate)
	log.Printf("  Broadcast Rate: %d Hz", config.BroadcastRate)
	log.Printf("  Max Sessions: %d", cfg.MaxSessions)
	log.Printf("  Idle Timeout: %s", cfg.IdleTimeout)
	log.Printf("=================================")

	// Start the server (blocks until error or shutdown)
	if err := server.Start(); err != nil {
		log.Fatalf("Server error: %v", err)
	}
}

// loadConfig reads configuration from environment variables.
// Falls back to default values if environment variables are not set.
func loadConfig() *config.ServerConfig {
	cfg := config.DefaultServerConfig()

	// Override defaults with environment variables if set
	if host := os.Getenv("HOST"); host != "" {
		cfg.Host = host
	}

	if port := os.Getenv("PORT"); port != "" {
		if p, err := strconv.Atoi(port); err == nil {
			cfg.Port = p
		}
	}

	// CORS can be disabled for production behind a reverse proxy
	if cors := os.Getenv("ENABLE_CORS"); cors == "false" {
		cfg.EnableCORS = false
	}

	if limit := os.Getenv("MAX_SESSIONS"); limit != "" {
		if n, err := strconv.Atoi(limit); err == nil && n > 0 {
			cfg.MaxSessions = n
		}
	}

	if idle := os.Getenv("SESSION_IDLE_TIMEOUT"); idle != "" {
		if d, err := time.ParseDuration(idle); err == nil && d > 0 {
			cfg.IdleTimeout = d
		}
	}

	return cfg
}

// NewDriveServer creates and initializes a new server instance.
// The default course is built once up front so a broken layout fails at boot.
func NewDriveServer(cfg *config.ServerConfig, tuning config.Tuning) (*DriveServer, error) {
	tr, cps, err := course.Default(tuning)
	if err != nil {
		return nil, err
	}

	doc, err := json.Marshal(courseDocument{
		Waypoints:   tr.Waypoints(),
		Centerline:  tr.Centerline(),
		RoadWidth:   tr.Width(),
		Checkpoints: cps,
	})
	if err != nil {
		return nil, fmt.Errorf("encode course: %w", err)
	}

	factory := func() (*game.Session, error) {
		return game.NewSession(tr, cps, tuning)
	}

	return &DriveServer{
		config:   cfg,
		registry: registry.New(factory, cfg.MaxSessions),
		protocol: network.NewProtocol(),
		upgrader: websocket.Upgrader{
			ReadBufferSize:  1024,
			WriteBufferSize: 1024,
			// CheckOrigin controls CORS for WebSocket connections.
			CheckOrigin: func(r *http.Request) bool {
				return cfg.EnableCORS
			},
		},
		course: doc,
	}, nil
}

// Start begins listening for connections and runs background tasks.
// This method blocks until the server is shut down.
func (s *DriveServer) Start() error {
	// Background task: close sessions whose client went silent
	go func() {
		ticker := time.NewTicker(30 * time.Second)
		defer ticker.Stop()

		for range ticker.C {
			removed := s.registry.CleanupIdle(s.config.IdleTimeout)
			if removed > 0 {
				log.Printf("Cleaned up %d idle sessions", removed)
			}
		}
	}()

	// Background task: Log server statistics every 5 minutes (only when active)
	go func() {
		ticker := time.NewTicker(5 * time.Minute)
		defer ticker.Stop()

		for range ticker.C {
			stats := s.registry.GetStats()
			if stats.TotalSessions > 0 {
				log.Printf("Stats: %d/%d sessions", stats.TotalSessions, stats.MaxSessions)
			}
		}
	}()

	mux := http.NewServeMux()
	mux.HandleFunc("/ws", s.handleWebSocket) // WebSocket sessions
	mux.HandleFunc("/health", s.handleHealth) // Health check for load balancers
	mux.HandleFunc("/stats", s.handleStats)   // Server statistics endpoint
	mux.HandleFunc("/course", s.handleCourse) // Static course geometry for clients

	addr := fmt.Sprintf("%s:%d", s.config.Host, s.config.Port)
	log.Printf("Server listening on %s", addr)

	return http.ListenAndServe(addr, mux)
}

// handleHealth responds to health check requests.
func (s *DriveServer) handleHealth(w http.ResponseWriter, r *http.Request) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(http.StatusOK)
	w.Write([]byte(`{"status":"ok"}`))
}

// handleStats returns current server statistics as JSON.
func (s *DriveServer) handleStats(w http.ResponseWriter, r *http.Request) {
	stats := s.registry.GetStats()

	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(http.StatusOK)
	fmt.Fprintf(w, `{"sessions":%d,"maxSessions":%d}`, stats.TotalSessions, stats.MaxSessions)
}

// handleCourse serves the track and checkpoints so the client can render them.
func (s *DriveServer) handleCourse(w http.ResponseWriter, r *http.Request) {
	w.Header().Set("Content-Type", "application/json")
	if s.config.EnableCORS {
		w.Header().Set("Access-Control-Allow-Origin", "*")
	}
	w.WriteHeader(http.StatusOK)
	w.Write(s.course)
}

// handleWebSocket upgrades HTTP connections to WebSocket and opens a session.
// Each client gets two goroutines: one for reading, one for writing.
func (s *DriveServer) handleWebSocket(w http.ResponseWriter, r *http.Request) {
	ws, err := s.upgrader.Upgrade(w, r, nil)
	if err != nil {
		log.Printf("WebSocket upgrade failed: %v", err)
		return
	}

	// Buffer size of 256 prevents blocking on slow clients
	conn := &ClientConnection{
		ws:       ws,
		server:   s,
		sendChan: make(chan []byte, 256),
		done:     make(chan struct{}),
	}

	log.Printf("New connection from %s", ws.RemoteAddr())

	runner, err := s.registry.Open(conn)
	if err != nil {
		log.Printf("Rejecting %s: %v", conn.RemoteAddr(), err)
		conn.Send(s.protocol.EncodeError(network.ErrorCodeServerFull, "Server full"))
		go conn.writePump()
		// Let the write pump flush the error before closing
		time.AfterFunc(time.Second, func() { conn.Close() })
		return
	}

	// The runner is set before either pump starts; cleanup reads it from both.
	// SessionInfo queued by Open waits in sendChan until the write pump runs.
	conn.runner = runner

	go conn.writePump()
	go conn.readPump()
}

// Send queues data to be sent to the client.
// Non-blocking: drops message if buffer is full (prevents slow clients from blocking the runner).
func (c *ClientConnection) Send(data []byte) error {
	select {
	case c.sendChan <- data:
		return nil
	case <-c.done:
		return fmt.Errorf("connection closed")
	default:
		// Buffer full - drop; the next pose supersedes it
		return nil
	}
}

// Close gracefully shuts down the connection.
// Safe to call multiple times.
func (c *ClientConnection) Close() error {
	var err error
	c.closeOnce.Do(func() {
		close(c.done)
		err = c.ws.Close()
	})
	return err
}

// RemoteAddr returns the client's IP address for logging.
func (c *ClientConnection) RemoteAddr() string {
	return c.ws.RemoteAddr().String()
}

// writePump handles sending messages to the client.
// Runs in its own goroutine. Also sends periodic pings to detect dead connections.
func (c *ClientConnection) writePump() {
	// Ping every 30 seconds to keep connection alive and detect disconnects
	ticker := time.NewTicker(30 * time.Second)
	defer ticker.Stop()
	defer c.cleanup()

	for {
		select {
		case <-c.done:
			return

		case message := <-c.sendChan:
			// Set write deadline to prevent hanging on slow/dead connections
			c.ws.SetWriteDeadline(time.Now().Add(10 * time.Second))
			if err := c.ws.WriteMessage(websocket.BinaryMessage, message); err != nil {
				return
			}

		case <-ticker.C:
			c.ws.SetWriteDeadline(time.Now().Add(10 * time.Second))
			if err := c.ws.WriteMessage(websocket.PingMessage, nil); err != nil {
				return
			}
		}
	}
}

// readPump handles receiving messages from the client and hands them to the runner.
func (c *ClientConnection) readPump() {
	defer c.cleanup()

	// Client frames are at most a ping (9 bytes); anything near this is abuse
	c.ws.SetReadLimit(512)
	// A client that goes quiet without closing is dropped after a minute
	c.ws.SetReadDeadline(time.Now().Add(60 * time.Second))
	c.ws.SetPongHandler(func(string) error {
		c.ws.SetReadDeadline(time.Now().Add(60 * time.Second))
		return nil
	})

	for {
		select {
		case <-c.done:
			return
		default:
		}

		_, message, err := c.ws.ReadMessage()
		if err != nil {
			if websocket.IsUnexpectedCloseError(err, websocket.CloseGoingAway, websocket.CloseAbnormalClosure) {
				log.Printf("Session %s read error: %v", c.runner.ID(), err)
			}
			return
		}

		// Frames are decoded here and queued for the session's tick loop
		if err := c.runner.HandleMessage(message); err != nil {
			if errors.Is(err, host.ErrRunnerStopped) {
				// Kicked or closed by idle cleanup
				return
			}
			log.Printf("Session %s sent a bad frame: %v", c.runner.ID(), err)
			c.Send(c.server.protocol.EncodeError(network.ErrorCodeInvalidMessage, err.Error()))
		}
	}
}

// cleanup closes the session and the socket.
// Called when either pump exits.
func (c *ClientConnection) cleanup() {
	c.cleanupOnce.Do(func() {
		if c.runner != nil {
			c.server.registry.Close(c.runner.ID())
		}
		c.Close()
		log.Printf("Connection closed: %s", c.RemoteAddr())
	})
}
