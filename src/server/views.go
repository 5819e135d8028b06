package server

import (
	"wwasd-relay/src/cache"
	"wwasd-relay/src/models"
	"wwasd-relay/src/query"
	"wwasd-relay/src/render"

	"github.com/gin-gonic/gin"
)

// -----------------------------------------------------------------------------
// Read-side views
// -----------------------------------------------------------------------------

// parseParams builds the one parameter set shared by the JSON, CSV and HTML
// views. All three call the same Query with the same parsing, so the three
// formats can never disagree on record selection.
func (s *RelayServer) parseParams(c *gin.Context) query.MParams {
	return query.MParams{
		Lists:     splitLists(c.DefaultQuery("lists", "green")),
		FreshOnly: truthy(c.DefaultQuery("fresh_only", "1")),
		MaxAgeSec: cache.ClampMaxAge(c.Query("max_age"), s.Config.StateFreshSeconds),
	}
}

// -----------------------------------------------------------------------------

func (s *RelayServer) latestJSON(c *gin.Context) {
	res := s.Query.Query(s.parseParams(c))

	body, err := render.ToJSON(res)
	if err != nil {
		s.Logger.Error("JSON render failed: %v", err)
		c.JSON(500, gin.H{"detail": "render failed"})
		return
	}

	c.Header("Cache-Control", "no-store")
	c.Data(200, "application/json", body)
}

// -----------------------------------------------------------------------------

func (s *RelayServer) latestCSV(c *gin.Context) {
	res := s.Query.Query(s.parseParams(c))

	body, err := render.ToCSV(res)
	if err != nil {
		s.Logger.Error("CSV render failed: %v", err)
		c.JSON(500, gin.H{"detail": "render failed"})
		return
	}

	c.Header("Cache-Control", "no-store")
	c.Data(200, "text/csv; charset=utf-8", body)
}

// -----------------------------------------------------------------------------

func (s *RelayServer) latestHTML(c *gin.Context) {
	res := s.Query.Query(s.parseParams(c))

	body, err := render.ToHTML(res)
	if err != nil {
		s.Logger.Error("HTML render failed: %v", err)
		c.JSON(500, gin.H{"detail": "render failed"})
		return
	}

	c.Header("Cache-Control", "no-store")
	c.Data(200, "text/html; charset=utf-8", body)
}

// -----------------------------------------------------------------------------
// Port views
// -----------------------------------------------------------------------------

// portEnvelope computes the consistent shape the desk reads. Never fails:
// before the first push it reports fresh=false with empty data.
func (s *RelayServer) portEnvelope() (models.MPortSnapshot, gin.H) {
	now := s.Now()
	snap, ok := s.Port.Latest()

	fresh := ok && cache.IsFresh(snap.PushedAt, now, s.Config.PortFreshSeconds)

	env := gin.H{
		"fresh":     fresh,
		"ts":        nil,
		"age_sec":   nil,
		"positions": snap.Positions,
		"data":      snap.Raw,
	}
	if ok {
		env["ts"] = snap.PushedAt
		env["age_sec"] = cache.AgeSec(snap.PushedAt, now)
	}
	return snap, env
}

// -----------------------------------------------------------------------------

func (s *RelayServer) portLatest(c *gin.Context) {
	_, env := s.portEnvelope()

	c.Header("Cache-Control", "no-store")
	c.JSON(200, env)
}

// -----------------------------------------------------------------------------

func (s *RelayServer) portHTML(c *gin.Context) {
	snap, env := s.portEnvelope()

	fresh, _ := env["fresh"].(bool)
	ageSec, _ := env["age_sec"].(float64)

	body, err := render.PortToHTML(snap, fresh, ageSec)
	if err != nil {
		s.Logger.Error("Port HTML render failed: %v", err)
		c.JSON(500, gin.H{"detail": "render failed"})
		return
	}

	c.Header("Cache-Control", "no-store")
	c.Data(200, "text/html; charset=utf-8", body)
}
