package server

import (
	"log"

	"github.com/gin-gonic/gin"
	"github.com/nats-io/nats.go"
	"github.com/redis/go-redis/v9"
	"gorm.io/gorm"

	"fieldtrack/api/internal/config"
	"fieldtrack/api/internal/handler"
	"fieldtrack/api/internal/middleware"
	"fieldtrack/api/internal/service"

	swaggerFiles "github.com/swaggo/files"
	ginSwagger "github.com/swaggo/gin-swagger"
)

// Server wires the HTTP surface together
type Server struct {
	router    *gin.Engine
	config    *config.Config
	db        *gorm.DB
	redis     *redis.Client
	nats      *nats.Conn
	jetstream *service.JetStreamService
	wsHub     *handler.WSHub
	wsHandler *handler.WSHandler
	notifier  *service.NotifierService
}

// NewServer creates a new server instance
func NewServer(cfg *config.Config, db *gorm.DB, redisClient *redis.Client, natsConn *nats.Conn, jetstream *service.JetStreamService) *Server {
	return &Server{
		config:    cfg,
		db:        db,
		redis:     redisClient,
		nats:      natsConn,
		jetstream: jetstream,
	}
}

// Setup initializes routes and handlers
func (s *Server) Setup() {
	// WebSocket hub first, the notifier broadcasts through it
	s.wsHub = handler.NewWSHub(s.nats)
	s.wsHandler = handler.NewWSHandler(s.wsHub)

	// Services
	authService := service.NewAuthService(s.db)
	workerService := service.NewWorkerService(s.db, s.redis)
	geofenceService := service.NewGeofenceService(s.db, s.redis)
	assignmentService := service.NewAssignmentService(s.db)
	violationService := service.NewViolationService(s.db)
	positionService := service.NewPositionService(s.db, s.redis, s.nats)
	reportService := service.NewReportService(s.db)
	notifierService := service.NewNotifierService(s.db, s.nats, s.redis, s.wsHub)
	s.notifier = notifierService

	publisher := service.NewNATSAlertPublisher(s.nats, s.jetstream)
	windows := service.NewTimeWindowEvaluator(s.config.Timezone())
	engine := service.NewViolationEngine(workerService, positionService, assignmentService, violationService, publisher, windows)

	// Handlers
	authHandler := handler.NewAuthHandler(authService, s.config)
	workerHandler := handler.NewWorkerHandler(workerService)
	geofenceHandler := handler.NewGeofenceHandler(geofenceService)
	assignmentHandler := handler.NewAssignmentHandler(assignmentService)
	locationHandler := handler.NewLocationHandler(engine, positionService)
	violationHandler := handler.NewViolationHandler(violationService, notifierService, reportService, s.jetstream)
	auditHandler := handler.NewAuditHandler(s.db)

	go s.wsHub.Run()
	log.Println("[Server] WebSocket hub started")

	s.router = gin.Default()

	// CORS middleware
	s.router.Use(func(c *gin.Context) {
		c.Writer.Header().Set("Access-Control-Allow-Origin", "*")
		c.Writer.Header().Set("Access-Control-Allow-Methods", "GET, POST, PUT, DELETE, OPTIONS")
		c.Writer.Header().Set("Access-Control-Allow-Headers", "Origin, Content-Type, Authorization")
		if c.Request.Method == "OPTIONS" {
			c.AbortWithStatus(204)
			return
		}
		c.Next()
	})

	// Rate limiting
	if s.config.RateLimit.Enabled && s.redis != nil {
		limiter := middleware.NewRedisRateLimiter(s.redis)
		group := middleware.NewRateLimitGroup(limiter, s.config.RateLimit.DefaultRule.ToMiddlewareConfig())
		for _, rule := range s.config.RateLimit.SpecificRules {
			group.AddSpecificConfig(rule.Path, rule.ToMiddlewareConfig())
		}
		s.router.Use(group.Middleware())
		log.Println("[Server] Rate limiting enabled")
	}

	// Swagger UI
	s.router.GET("/swagger/*any", ginSwagger.WrapHandler(swaggerFiles.Handler))

	// Public routes
	s.router.GET("/health", func(c *gin.Context) {
		health := gin.H{"status": "ok"}
		if s.jetstream != nil && s.jetstream.IsEnabled() {
			health["jetstream"] = "enabled"
			if info, err := s.jetstream.GetStreamInfo(service.StreamAlerts); err == nil {
				health["jetstream_alerts"] = gin.H{
					"messages": info.State.Msgs,
					"bytes":    info.State.Bytes,
				}
			}
		} else {
			health["jetstream"] = "disabled"
		}
		c.JSON(200, health)
	})
	s.router.POST("/api/v1/auth/login", authHandler.Login)

	// WebSocket routes
	s.router.GET("/ws/live", s.wsHandler.HandleLive)
	s.router.GET("/ws/stats", s.wsHandler.GetStats)

	// Protected routes
	api := s.router.Group("/api/v1")
	api.Use(authHandler.AuthMiddleware())
	{
		// Auth
		api.GET("/auth/me", authHandler.GetMe)
		api.POST("/users", authHandler.CreateUser)

		// Workers
		api.GET("/workers", workerHandler.List)
		api.POST("/workers", workerHandler.Create)
		api.GET("/workers/:id", workerHandler.Get)
		api.PUT("/workers/:id", workerHandler.Update)
		api.DELETE("/workers/:id", workerHandler.Delete)

		// Locations
		api.POST("/workers/:id/locations", locationHandler.RecordLocation)
		api.GET("/workers/:id/locations", locationHandler.GetHistory)
		api.GET("/workers/:id/locations/latest", locationHandler.GetLatest)
		api.GET("/locations/latest", locationHandler.GetAllLatest)

		// Geofences
		api.GET("/geofences", geofenceHandler.List)
		api.POST("/geofences", geofenceHandler.Create)
		api.GET("/geofences/:id", geofenceHandler.Get)
		api.PUT("/geofences/:id", geofenceHandler.Update)
		api.DELETE("/geofences/:id", geofenceHandler.Delete)

		// Assignments
		api.POST("/assignments", assignmentHandler.Assign)
		api.POST("/assignments/disable", assignmentHandler.Disable)
		api.GET("/workers/:id/assignments", assignmentHandler.ListForWorker)

		// Violations
		api.GET("/violations", violationHandler.List)
		api.GET("/violations/stats", violationHandler.GetStats)
		api.GET("/violations/open", violationHandler.GetOpen)
		api.GET("/violations/export", violationHandler.Export)

		// Alerts
		api.GET("/alerts", violationHandler.ListAlerts)
		api.GET("/alerts/unread-count", violationHandler.GetUnreadCount)
		api.POST("/alerts/:id/read", violationHandler.MarkAlertRead)

		// Durable stream replay
		api.POST("/jetstream/alerts/replay", violationHandler.ReplayAlerts)
		api.GET("/jetstream/streams/:name", violationHandler.GetStreamInfo)

		// Audit
		api.GET("/audit-logs", auditHandler.ListLogs)
		api.GET("/audit-logs/stats", auditHandler.GetStats)
	}
}

// Run starts the HTTP server
func (s *Server) Run(addr string) error {
	log.Printf("[Server] HTTP server listening on %s", addr)
	return s.router.Run(addr)
}

// GetRouter returns the gin router for testing
func (s *Server) GetRouter() *gin.Engine {
	return s.router
}

// GetNotifier returns the notifier service so main can start it
func (s *Server) GetNotifier() *service.NotifierService {
	return s.notifier
}

// Shutdown gracefully shuts down the server
func (s *Server) Shutdown() {
	if s.wsHub != nil {
		s.wsHub.Stop()
		log.Println("[Server] WebSocket hub stopped")
	}
	if s.notifier != nil {
		s.notifier.Stop()
		log.Println("[Server] Notifier stopped")
	}
	if s.jetstream != nil {
		s.jetstream.Close()
		log.Println("[Server] JetStream service stopped")
	}
}
