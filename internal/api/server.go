package api

import (
	"github.com/gin-gonic/gin"

	"github.com/signalsfoundry/orbital-energy-sim/core"
	"github.com/signalsfoundry/orbital-energy-sim/internal/logging"
	"github.com/signalsfoundry/orbital-energy-sim/internal/observability"
)

// Server bundles the simulation components the HTTP surface exposes.
type Server struct {
	world   *core.World
	cfg     *core.Config
	orch    *core.Orchestrator
	econ    *core.Economics
	loadgen *core.LoadGenerator
	events  *core.EventLog
	log     logging.Logger
}

// NewServer wires the handler set. A nil logger degrades to a no-op.
func NewServer(
	world *core.World,
	cfg *core.Config,
	orch *core.Orchestrator,
	econ *core.Economics,
	loadgen *core.LoadGenerator,
	events *core.EventLog,
	log logging.Logger,
) *Server {
	if log == nil {
		log = logging.Noop()
	}
	return &Server{
		world:   world,
		cfg:     cfg,
		orch:    orch,
		econ:    econ,
		loadgen: loadgen,
		events:  events,
		log:     log,
	}
}

// NewRouter builds the gin engine with middleware and all routes. The
// collector is optional; when nil no HTTP metrics are recorded.
func NewRouter(s *Server, collector *observability.SimCollector) *gin.Engine {
	router := gin.New()
	router.Use(gin.Recovery())
	router.Use(RequestLogger(s.log))
	if collector != nil {
		router.Use(collector.GinMiddleware())
	}

	api := router.Group("/api")
	{
		api.GET("/health", s.Health)
		api.GET("/state", s.GetState)
		api.GET("/events", s.GetEvents)

		api.POST("/tasks", s.SubmitTask)

		drones := api.Group("/drones")
		{
			drones.POST("/launch", s.LaunchDrones)
		}

		economics := api.Group("/economics")
		{
			economics.GET("/metrics", s.GetMarketMetrics)
			economics.GET("/transactions", s.GetTransactions)
			economics.GET("/leaderboard", s.GetLeaderboard)
		}

		smoke := api.Group("/smoke")
		{
			smoke.POST("/start", s.StartSmoke)
			smoke.POST("/stop", s.StopSmoke)
		}
	}

	return router
}
