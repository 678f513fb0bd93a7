package api

import (
	"errors"
	"net/http"
	"strconv"

	"github.com/gin-gonic/gin"

	"github.com/signalsfoundry/orbital-energy-sim/core"
	"github.com/signalsfoundry/orbital-energy-sim/model"
)

// Health reports liveness plus basic world counts.
func (s *Server) Health(c *gin.Context) {
	stats := s.world.Stats()
	c.JSON(http.StatusOK, gin.H{
		"status":     "ok",
		"satellites": stats.Satellites,
		"drones":     stats.Drones,
		"queue":      stats.QueueDepth,
	})
}

// GetState returns a deep snapshot of the whole world.
func (s *Server) GetState(c *gin.Context) {
	c.JSON(http.StatusOK, s.world.Snapshot())
}

// GetEvents returns the most recent notification events, oldest first.
func (s *Server) GetEvents(c *gin.Context) {
	limit, _ := strconv.Atoi(c.DefaultQuery("limit", "100"))
	c.JSON(http.StatusOK, gin.H{"events": s.events.Dump(limit)})
}

type submitTaskRequest struct {
	EnergyNeed            float64 `json:"energy_need"`
	ProcessingPowerNeeded float64 `json:"processing_power_needed"`
	Priority              string  `json:"priority"`
}

// SubmitTask enqueues one task for delegation on the next tick.
func (s *Server) SubmitTask(c *gin.Context) {
	var req submitTaskRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid task payload"})
		return
	}
	if req.Priority == "" {
		req.Priority = string(model.PriorityMedium)
	}

	task, err := s.world.SubmitTask(model.NewTask(
		req.EnergyNeed, req.ProcessingPowerNeeded, model.Priority(req.Priority),
	))
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}

	c.JSON(http.StatusOK, gin.H{
		"task_id":    task.ID,
		"status":     "queued",
		"created_at": task.CreatedAt,
	})
}

type launchDronesRequest struct {
	Count       int    `json:"count"`
	SatelliteID string `json:"satellite_id"`
}

// LaunchDrones sends one or more carriers toward a satellite, reusing
// parked drones before provisioning new ones.
func (s *Server) LaunchDrones(c *gin.Context) {
	var req launchDronesRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid launch payload"})
		return
	}
	if req.Count <= 0 {
		req.Count = 1
	}

	ids, err := s.orch.Launch(req.Count, req.SatelliteID)
	if err != nil {
		if errors.Is(err, core.ErrSatelliteNotFound) {
			c.JSON(http.StatusNotFound, gin.H{"error": err.Error()})
			return
		}
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}

	c.JSON(http.StatusOK, gin.H{
		"launched":     len(ids),
		"battery_ids":  ids,
		"satellite_id": req.SatelliteID,
	})
}

// GetMarketMetrics returns the aggregate economic view.
func (s *Server) GetMarketMetrics(c *gin.Context) {
	c.JSON(http.StatusOK, s.econ.Metrics())
}

// GetTransactions returns the most recent ledger entries, newest last.
func (s *Server) GetTransactions(c *gin.Context) {
	limit, _ := strconv.Atoi(c.DefaultQuery("limit", "50"))
	txns := s.econ.RecentTransactions(limit)
	c.JSON(http.StatusOK, gin.H{
		"transactions": txns,
		"count":        len(txns),
		"total_volume": s.econ.TotalVolume(),
	})
}

// GetLeaderboard returns the earners and spenders rankings.
func (s *Server) GetLeaderboard(c *gin.Context) {
	m := s.econ.Metrics()
	c.JSON(http.StatusOK, gin.H{
		"top_earning_satellites":    m.TopEarners,
		"top_spending_drones":       m.TopSpenders,
		"most_efficient_satellite":  m.MostEfficient,
		"least_efficient_satellite": m.LeastEfficient,
	})
}

type smokeStartRequest struct {
	QPS   float64 `json:"qps"`
	Burst int     `json:"burst"`
}

// StartSmoke begins synthetic task generation. Zero values fall back to
// the configured defaults.
func (s *Server) StartSmoke(c *gin.Context) {
	var req smokeStartRequest
	// Empty bodies are fine; defaults apply.
	_ = c.ShouldBindJSON(&req)

	if req.QPS <= 0 {
		req.QPS = float64(s.cfg.SmokeQPS)
	}
	if req.Burst <= 0 {
		req.Burst = s.cfg.SmokeBurst
	}

	s.loadgen.Start(req.QPS, req.Burst)
	c.JSON(http.StatusOK, gin.H{
		"status": "started",
		"qps":    req.QPS,
		"burst":  req.Burst,
	})
}

// StopSmoke halts synthetic task generation.
func (s *Server) StopSmoke(c *gin.Context) {
	s.loadgen.Stop()
	c.JSON(http.StatusOK, gin.H{"status": "stopped"})
}
