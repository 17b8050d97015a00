package handlers

import (
	"context"
	"errors"
	"io"
	"net/http"
	"strconv"

	"github.com/gin-gonic/gin"
	"github.com/playmatatu/billiards/internal/auth"
	"github.com/playmatatu/billiards/internal/physics"
	"github.com/playmatatu/billiards/internal/sim"
)

const maxSnapshotLimit = 500

// FrameCache returns the last frame published for a table, including tables
// running on another instance or already stopped.
type FrameCache interface {
	LatestFrame(ctx context.Context, token string) (sim.Frame, error)
}

type createTableRequest struct {
	Config *physics.Config `json:"config"`
	Seed   *int64          `json:"seed"`
}

// CreateTable places the balls on a new table and starts simulating it.
// Fields in "config" override the server's physics defaults one by one.
func CreateTable(mgr *sim.Manager) gin.HandlerFunc {
	return func(c *gin.Context) {
		cfg := mgr.GetConfig()
		base := cfg.Physics()
		req := createTableRequest{Config: &base}
		if err := c.ShouldBindJSON(&req); err != nil && !errors.Is(err, io.EOF) {
			c.JSON(http.StatusBadRequest, gin.H{"error": "Invalid request body"})
			return
		}
		if req.Config == nil {
			req.Config = &base
		}

		s, err := mgr.CreateTable(c.Request.Context(), req.Config, req.Seed)
		if err != nil {
			respondError(c, err)
			return
		}

		vt, exp, err := auth.IssueViewerToken(cfg.JWTSecret, s.Token, cfg.ViewerTokenTTL())
		if err != nil {
			respondError(c, err)
			return
		}

		c.JSON(http.StatusCreated, gin.H{
			"token":             s.Token,
			"session_id":        s.ID,
			"seed":              s.Seed,
			"config":            s.Config(),
			"viewer_token":      vt,
			"viewer_expires_at": exp,
			"ws_url":            "/api/v1/tables/" + s.Token + "/ws?vt=" + vt,
			"frame":             s.Frame(),
		})
	}
}

// GetTable returns the current frame of a running table, falling back to
// the last published frame when the table is not running here.
func GetTable(mgr *sim.Manager, frames FrameCache) gin.HandlerFunc {
	return func(c *gin.Context) {
		token := c.Param("token")
		if s, err := mgr.GetTable(token); err == nil {
			c.JSON(http.StatusOK, s.Frame())
			return
		}
		if frames == nil {
			respondError(c, sim.ErrSessionNotFound)
			return
		}
		f, err := frames.LatestFrame(c.Request.Context(), token)
		if err != nil {
			respondError(c, err)
			return
		}
		c.JSON(http.StatusOK, f)
	}
}

// KickTable gives every ball on a running table a new random velocity.
func KickTable(mgr *sim.Manager) gin.HandlerFunc {
	return func(c *gin.Context) {
		s, err := mgr.GetTable(c.Param("token"))
		if err == nil {
			err = s.Kick()
		}
		if err != nil {
			respondError(c, err)
			return
		}
		c.JSON(http.StatusOK, gin.H{"status": "kicked", "frame": s.Frame()})
	}
}

// StopTable stops a running table and returns its final frame.
func StopTable(mgr *sim.Manager) gin.HandlerFunc {
	return func(c *gin.Context) {
		token := c.Param("token")
		s, err := mgr.GetTable(token)
		if err == nil {
			err = mgr.StopTable(c.Request.Context(), token, sim.StopReasonRequested)
		}
		if err != nil {
			respondError(c, err)
			return
		}
		c.JSON(http.StatusOK, gin.H{"status": "stopped", "frame": s.Frame()})
	}
}

// ListSnapshots returns the persisted snapshots of a table, newest first.
func ListSnapshots(mgr *sim.Manager) gin.HandlerFunc {
	return func(c *gin.Context) {
		limit := 50
		if v := c.Query("limit"); v != "" {
			n, err := strconv.Atoi(v)
			if err != nil || n <= 0 {
				c.JSON(http.StatusBadRequest, gin.H{"error": "limit must be a positive integer"})
				return
			}
			limit = n
		}
		if limit > maxSnapshotLimit {
			limit = maxSnapshotLimit
		}

		snaps, err := mgr.Snapshots(c.Request.Context(), c.Param("token"), limit)
		if err != nil {
			respondError(c, err)
			return
		}
		if snaps == nil {
			c.JSON(http.StatusOK, gin.H{"snapshots": []interface{}{}})
			return
		}
		c.JSON(http.StatusOK, gin.H{"snapshots": snaps})
	}
}
