// Package api wires the HTTP surface: routing, middleware chains and error
// mapping.
package api

import (
	"errors"
	"fmt"
	"net/http"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"gorm.io/gorm"
	"ghostlore.app/aiservice"
	"ghostlore.app/cache"
	"ghostlore.app/config"
	ghosterr "ghostlore.app/errors"
	"ghostlore.app/middleware"
	"ghostlore.app/models"
	"ghostlore.app/service"
)

// ServerOptions bundles the server's dependencies
type ServerOptions struct {
	DB              *gorm.DB
	Config          *config.Config
	Cache           *cache.Client
	AI              aiservice.ClientInterface
	Auth            service.AuthServiceInterface
	Users           service.UserServiceInterface
	Preferences     service.PreferencesServiceInterface
	Ghosts          service.GhostServiceInterface
	Stories         service.StoryServiceInterface
	Bookmarks       service.BookmarkServiceInterface
	Progress        service.ProgressServiceInterface
	Recommendations service.RecommendationServiceInterface
	Twin            service.TwinServiceInterface
}

// Server represents the HTTP server and API handler
type Server struct {
	router *gin.Engine
	opts   ServerOptions
}

// NewServer creates and configures a new HTTP server
func NewServer(opts ServerOptions) *Server {
	router := gin.Default()

	server := &Server{
		router: router,
		opts:   opts,
	}

	server.setupRoutes()
	return server
}

func (s *Server) setupRoutes() {
	cacheClient := s.opts.Cache
	rl := s.opts.Config.RateLimit
	responseTTL := time.Duration(s.opts.Config.Cache.TTLResponse) * time.Second

	s.router.GET("/health", s.health)
	s.router.GET("/metrics", gin.WrapH(promhttp.Handler()))

	auth := s.router.Group("/api/auth")
	auth.Use(middleware.RateLimiter(cacheClient, rl.Preset("auth")))
	{
		auth.POST("/register", s.register)
		auth.POST("/login", s.login)
		auth.POST("/logout", middleware.RequireAuth(cacheClient), s.logout)
	}

	ghosts := s.router.Group("/api/ghosts")
	ghosts.Use(middleware.OptionalAuth(cacheClient))
	{
		ghosts.GET("",
			middleware.RateLimiter(cacheClient, rl.Preset("search")),
			middleware.ResponseCache(cacheClient, responseTTL),
			s.searchGhosts)
		ghosts.GET("/:id",
			middleware.RateLimiter(cacheClient, rl.Preset("readonly")),
			middleware.ResponseCache(cacheClient, responseTTL),
			s.getGhost)
		ghosts.GET("/:id/related",
			middleware.RateLimiter(cacheClient, rl.Preset("readonly")),
			middleware.ResponseCache(cacheClient, responseTTL),
			s.getRelatedGhosts)
		ghosts.GET("/:id/stories",
			middleware.RateLimiter(cacheClient, rl.Preset("readonly")),
			middleware.ResponseCache(cacheClient, responseTTL),
			s.getGhostStories)
		ghosts.GET("/category/:category",
			middleware.RateLimiter(cacheClient, rl.Preset("readonly")),
			middleware.ResponseCache(cacheClient, responseTTL),
			s.getGhostsByCategory)
		ghosts.POST("",
			middleware.RequireAuth(cacheClient),
			middleware.RateLimiter(cacheClient, rl.Preset("")),
			s.createGhost)
		ghosts.PUT("/:id",
			middleware.RequireAuth(cacheClient),
			middleware.RateLimiter(cacheClient, rl.Preset("")),
			s.updateGhost)
	}

	stories := s.router.Group("/api/stories")
	stories.Use(middleware.OptionalAuth(cacheClient))
	{
		stories.GET("/:id",
			middleware.RateLimiter(cacheClient, rl.Preset("readonly")),
			middleware.ResponseCache(cacheClient, responseTTL),
			s.getStory)
		stories.POST("",
			middleware.RequireAuth(cacheClient),
			middleware.RateLimiter(cacheClient, rl.Preset("")),
			s.createStory)
		stories.PUT("/:id",
			middleware.RequireAuth(cacheClient),
			middleware.RateLimiter(cacheClient, rl.Preset("")),
			s.updateStory)
		stories.DELETE("/:id",
			middleware.RequireAuth(cacheClient),
			middleware.RateLimiter(cacheClient, rl.Preset("")),
			s.deleteStory)
		stories.POST("/:id/mark-read",
			middleware.RequireAuth(cacheClient),
			middleware.RateLimiter(cacheClient, rl.Preset("")),
			s.markStoryRead)
	}

	users := s.router.Group("/api/users")
	users.Use(middleware.RequireAuth(cacheClient), middleware.RateLimiter(cacheClient, rl.Preset("")))
	{
		users.GET("/:id", middleware.ResponseCache(cacheClient, responseTTL), s.getUser)
		users.PUT("/:id", s.updateUser)
		users.DELETE("/:id", s.deleteUser)
		users.GET("/:id/preferences", s.getPreferences)
		users.PUT("/:id/preferences", s.updatePreferences)
	}

	bookmarks := s.router.Group("/api/bookmarks")
	bookmarks.Use(middleware.RequireAuth(cacheClient), middleware.RateLimiter(cacheClient, rl.Preset("")))
	{
		bookmarks.GET("", s.listBookmarks)
		bookmarks.POST("", s.addBookmark)
		bookmarks.DELETE("/:id", s.removeBookmark)
		bookmarks.PUT("/:id/organize", s.organizeBookmark)
	}

	progress := s.router.Group("/api/progress")
	progress.Use(middleware.RequireAuth(cacheClient), middleware.RateLimiter(cacheClient, rl.Preset("")))
	{
		progress.GET("/:storyId", s.getProgress)
		progress.PUT("/:storyId", s.updateProgress)
	}

	recommendations := s.router.Group("/api/recommendations")
	recommendations.Use(middleware.RequireAuth(cacheClient), middleware.RateLimiter(cacheClient, rl.Preset("ai")))
	{
		recommendations.GET("", middleware.ResponseCache(cacheClient, responseTTL), s.getRecommendations)
		recommendations.POST("/interactions", s.recordInteraction)
		recommendations.POST("/feedback", s.submitFeedback)
	}

	twin := s.router.Group("/api/twin")
	twin.Use(middleware.RequireAuth(cacheClient), middleware.RateLimiter(cacheClient, rl.Preset("ai")))
	{
		twin.POST("/message", s.sendTwinMessage)
		twin.GET("/history", s.getTwinHistory)
	}
}

// Start begins the HTTP server
func (s *Server) Start() error {
	return s.router.Run(fmt.Sprintf(":%d", s.opts.Config.Server.Port))
}

// GetRouter returns the router for testing purposes
func (s *Server) GetRouter() *gin.Engine {
	return s.router
}

func (s *Server) health(c *gin.Context) {
	cacheOK := s.opts.Cache.Ping(c.Request.Context()) == nil
	aiOK := s.opts.AI.HealthCheck(c.Request.Context())

	dbOK := true
	if sqlDB, err := s.opts.DB.DB(); err != nil || sqlDB.Ping() != nil {
		dbOK = false
	}

	status := http.StatusOK
	if !dbOK {
		status = http.StatusServiceUnavailable
	}

	c.JSON(status, gin.H{
		"database": dbOK,
		"cache":    cacheOK,
		"ai":       aiOK,
	})
}

// handleError handles different types of application errors
func (s *Server) handleError(c *gin.Context, err error) {
	var appErr *ghosterr.AppError
	var statusCode int
	var message string

	if errors.As(err, &appErr) {
		switch appErr.Type {
		case ghosterr.ValidationError:
			statusCode = http.StatusBadRequest
			message = appErr.Message
		case ghosterr.UnauthorizedError:
			statusCode = http.StatusUnauthorized
			message = appErr.Message
		case ghosterr.NotFoundError:
			statusCode = http.StatusNotFound
			message = appErr.Message
		case ghosterr.AlreadyExistsError:
			statusCode = http.StatusConflict
			message = appErr.Message
		case ghosterr.RateLimitError:
			statusCode = http.StatusTooManyRequests
			message = appErr.Message
		case ghosterr.AIUnavailableError, ghosterr.AIServiceError:
			statusCode = http.StatusServiceUnavailable
			message = "Recommendation service unavailable"
		case ghosterr.CacheError:
			statusCode = http.StatusServiceUnavailable
			message = "Service temporarily unavailable"
		case ghosterr.DatabaseError:
			statusCode = http.StatusInternalServerError
			message = "Internal server error"
		default:
			statusCode = http.StatusInternalServerError
			message = "Internal server error"
		}
	} else {
		statusCode = http.StatusInternalServerError
		message = "Internal server error"
	}

	c.JSON(statusCode, models.ErrorResponse{Error: message})
}
