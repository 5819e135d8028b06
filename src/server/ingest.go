package server

import (
	"encoding/json"
	"fmt"
	"mime/multipart"
	"os"
	"path/filepath"
	"strings"

	"wwasd-relay/src/cache"
	"wwasd-relay/src/helpers"
	"wwasd-relay/src/models"

	"github.com/gin-gonic/gin"
)

// -----------------------------------------------------------------------------
// Ingestion
// -----------------------------------------------------------------------------

// portPayloadType is the reserved discriminator for position pushes from the
// account bridge. Every other type is a state event keyed by symbol.
const portPayloadType = "BLOFIN_POSITIONS"

// -----------------------------------------------------------------------------

// requireToken is the shared-secret pre-filter. It runs before any store
// mutation and is not part of the cache contract. An empty configured secret
// rejects everything.
func (s *RelayServer) requireToken(c *gin.Context) error {
	token := c.Query("token")
	if s.Config.AuthSharedSecret == "" || token != s.Config.AuthSharedSecret {
		return helpers.NewUnauthorized("Forbidden")
	}
	return nil
}

// -----------------------------------------------------------------------------

// fail maps a taxonomy error onto the HTTP surface.
func (s *RelayServer) fail(c *gin.Context, err error) {
	switch {
	case helpers.IsUnauthorized(err):
		c.JSON(403, gin.H{"detail": "Forbidden"})
	case helpers.IsMalformedPayload(err):
		c.JSON(400, gin.H{"detail": err.Error()})
	default:
		c.JSON(500, gin.H{"detail": "Internal error"})
	}
}

// -----------------------------------------------------------------------------

// ingest accepts one event: a JSON body, or a multipart form whose "payload"
// (or "message") field carries the JSON and whose file parts are stored but
// never interpreted. Dispatches on the payload "type" field.
func (s *RelayServer) ingest(c *gin.Context) {
	if err := s.requireToken(c); err != nil {
		s.fail(c, err)
		return
	}

	payload, err := s.readPayload(c)
	if err != nil {
		s.fail(c, err)
		return
	}

	now := s.Now()
	typ := safeString(payload, "type", "event_type")

	if typ == portPayloadType {
		s.ingestPort(c, payload, now)
		return
	}

	if typ == "" {
		s.fail(c, helpers.NewMalformedPayload("Missing type"))
		return
	}

	s.ingestState(c, typ, payload, now)
}

// -----------------------------------------------------------------------------

func (s *RelayServer) ingestState(c *gin.Context, typ string, payload map[string]interface{}, now int64) {
	symbol := cache.NormalizeSymbol(safeString(payload, "symbol", "ticker"))
	if symbol == "" {
		s.fail(c, helpers.NewMalformedPayload("Missing symbol"))
		return
	}

	rec := models.MEventRecord{
		Symbol:     symbol,
		EventType:  typ,
		ReceivedAt: now,
		Payload:    payload,
	}

	accepted := s.State.Put(rec)
	if accepted {
		s.Writer.KickState()
		s.broadcastRecord(rec)
	} else {
		// Retried delivery carrying an older or equal timestamp: latest-wins
		// keeps the put a no-op and the ack still succeeds.
		s.Logger.Debug("Stale put ignored for %s", rec.Key())
	}

	c.JSON(200, gin.H{
		"ok":                 true,
		"msg":                "state accepted",
		"key":                rec.Key(),
		"accepted":           accepted,
		"server_received_ms": now,
	})
}

// -----------------------------------------------------------------------------

func (s *RelayServer) ingestPort(c *gin.Context, payload map[string]interface{}, now int64) {
	snap := models.MPortSnapshot{
		PushedAt:  now,
		Positions: cache.ParsePositions(payload),
		Raw:       payload,
	}

	// Full-replacement semantics: the push is the complete current position
	// set, so an empty list clears the book.
	s.Port.Push(snap)
	s.Writer.KickPort()

	c.JSON(200, gin.H{
		"ok":                 true,
		"msg":                "port accepted",
		"positions":          len(snap.Positions),
		"server_received_ms": now,
	})
}

// -----------------------------------------------------------------------------
// Body parsing
// -----------------------------------------------------------------------------

func (s *RelayServer) readPayload(c *gin.Context) (map[string]interface{}, error) {
	if strings.HasPrefix(c.ContentType(), "multipart/") {
		return s.readMultipartPayload(c)
	}

	var payload map[string]interface{}
	if err := c.ShouldBindJSON(&payload); err != nil {
		return nil, helpers.NewMalformedPayload("Invalid JSON")
	}
	return payload, nil
}

// -----------------------------------------------------------------------------

func (s *RelayServer) readMultipartPayload(c *gin.Context) (map[string]interface{}, error) {
	form, err := c.MultipartForm()
	if err != nil {
		return nil, helpers.NewMalformedPayload("Invalid form")
	}

	raw := ""
	for _, field := range []string{"payload", "message"} {
		if vals := form.Value[field]; len(vals) > 0 && strings.TrimSpace(vals[0]) != "" {
			raw = vals[0]
			break
		}
	}
	if raw == "" {
		return nil, helpers.NewMalformedPayload("Missing payload field")
	}

	var payload map[string]interface{}
	if err := json.Unmarshal([]byte(raw), &payload); err != nil {
		return nil, helpers.NewMalformedPayload("Invalid JSON in payload field")
	}

	// File parts (chart snapshots) are stored verbatim and referenced from
	// the payload; the relay never opens them.
	if saved := s.saveAttachments(c, form); len(saved) > 0 {
		payload["attachments"] = saved
	}

	return payload, nil
}

// -----------------------------------------------------------------------------

func (s *RelayServer) saveAttachments(c *gin.Context, form *multipart.Form) []string {
	if s.Config.AttachmentsDir == "" {
		return nil
	}
	if err := os.MkdirAll(s.Config.AttachmentsDir, 0755); err != nil {
		s.Logger.Warning("Cannot create attachments dir: %v", err)
		return nil
	}

	var saved []string
	for _, headers := range form.File {
		for _, fh := range headers {
			name := fmt.Sprintf("%d_%s", s.Now(), filepath.Base(fh.Filename))
			dst := filepath.Join(s.Config.AttachmentsDir, name)
			if err := c.SaveUploadedFile(fh, dst); err != nil {
				s.Logger.Warning("Failed to store attachment %s: %v", fh.Filename, err)
				continue
			}
			saved = append(saved, dst)
		}
	}
	return saved
}
