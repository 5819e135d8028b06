package server

import (
	"net/http"

	"wwasd-relay/src/cache"
	"wwasd-relay/src/models"
	"wwasd-relay/src/query"

	"github.com/gin-gonic/gin"
	"github.com/gorilla/websocket"
)

// -----------------------------------------------------------------------------
// Hub Pattern Implementation
// -----------------------------------------------------------------------------

// handleWebsockets is the main Hub loop
func (s *RelayServer) handleWebsockets() {
	for {
		select {
		case client := <-s.register:
			s.clientsMu.Lock()
			s.clients[client] = struct{}{}
			s.clientsMu.Unlock()

			// Send the current snapshot on connect so a new subscriber does
			// not have to wait for the next alert.
			for _, row := range s.Query.Query(query.MParams{Lists: []string{"all"}}).Rows {
				r := row
				select {
				case client.send <- &r:
				default:
				}
			}

		case client := <-s.unregister:
			s.clientsMu.Lock()
			if _, ok := s.clients[client]; ok {
				delete(s.clients, client)
				close(client.send)
			}
			s.clientsMu.Unlock()

		case row := <-s.broadcast:
			s.clientsMu.Lock()
			for client := range s.clients {
				select {
				case client.send <- row:
					// Message sent successfully
				default:
					// Client too slow, disconnect to prevent Hub blocking
					delete(s.clients, client)
					close(client.send)
				}
			}
			s.clientsMu.Unlock()

		case <-s.done:
			s.clientsMu.Lock()
			for client := range s.clients {
				delete(s.clients, client)
				close(client.send)
			}
			s.clientsMu.Unlock()
			return
		}
	}
}

// -----------------------------------------------------------------------------

// broadcastRecord classifies an accepted event and queues it for every
// websocket subscriber. Never blocks the ingestion path.
func (s *RelayServer) broadcastRecord(rec models.MEventRecord) {
	now := s.Now()
	row := &models.MSnapshotRow{
		Symbol:     rec.Symbol,
		EventType:  rec.EventType,
		ReceivedAt: rec.ReceivedAt,
		AgeSec:     cache.AgeSec(rec.ReceivedAt, now),
		IsFresh:    cache.IsFresh(rec.ReceivedAt, now, s.Config.StateFreshSeconds),
		Lists:      s.Query.Resolver.MembershipOf(rec.Symbol),
		Payload:    rec.Payload,
	}

	select {
	case <-s.done:
		// Shutting down, nothing is reading the queue anymore.
		return
	default:
	}

	select {
	case s.broadcast <- row:
	default:
		s.Logger.Warning("Broadcast queue full, dropping update for %s", rec.Key())
	}
}

// -----------------------------------------------------------------------------
// WebSocket Handlers
// -----------------------------------------------------------------------------

var upgrader = websocket.Upgrader{
	ReadBufferSize:  1024,
	WriteBufferSize: 1024,
	CheckOrigin:     func(r *http.Request) bool { return true },
}

// -----------------------------------------------------------------------------

func (s *RelayServer) handleWebSocket(c *gin.Context) {
	conn, err := upgrader.Upgrade(c.Writer, c.Request, nil)
	if err != nil {
		s.Logger.Info("Failed to upgrade websocket: %v", err)
		return
	}

	client := &Client{
		hub:  s,
		conn: conn,
		// Buffered channel to prevent blocking the Hub loop
		send: make(chan *models.MSnapshotRow, 256),
	}

	select {
	case s.register <- client:
	case <-s.done:
		conn.Close()
		return
	}

	// Start goroutines for reading/writing
	go client.writePump()
	go client.readPump()
}
