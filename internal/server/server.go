package server

import (
	"fmt"
	"log"
	"net/http"
	"time"

	"github.com/gin-contrib/cors"
	"github.com/gin-gonic/gin"

	"github.com/chip902/chip-hosting-comments/internal/config"
	"github.com/chip902/chip-hosting-comments/internal/database"
	"github.com/chip902/chip-hosting-comments/internal/handlers"
	"github.com/chip902/chip-hosting-comments/internal/identity"
	"github.com/chip902/chip-hosting-comments/internal/middleware"
)

type Server struct {
	cfg     *config.Config
	db      database.Service
	handler *handlers.Handler
}

// NewServer creates and configures a new server
func NewServer(cfg *config.Config) *http.Server {
	// Initialize database
	db, err := database.New(cfg)
	if err != nil {
		log.Fatalf("Failed to initialize database: %v", err)
	}

	// Create unified handler
	handler := handlers.NewHandler(db.GetDB(), cfg)

	// Create server instance
	newServer := &Server{
		cfg:     cfg,
		db:      db,
		handler: handler,
	}

	// Configure Gin router
	router := newServer.RegisterRoutes()

	// Create HTTP server
	server := &http.Server{
		Addr:         "0.0.0.0:" + cfg.Port,
		Handler:      router,
		IdleTimeout:  time.Minute,
		ReadTimeout:  10 * time.Second,
		WriteTimeout: 30 * time.Second,
	}

	log.Printf("🚀 Server starting on port %s\n", cfg.Port)
	fmt.Println("📝 Press Ctrl+C to stop the server")

	return server
}

// RegisterRoutes sets up all application routes
func (s *Server) RegisterRoutes() *gin.Engine {
	r := gin.Default()

	// CORS configuration
	r.Use(cors.New(cors.Config{
		AllowOrigins:     []string{"*"},
		AllowMethods:     []string{"GET", "POST", "PUT", "DELETE", "OPTIONS", "PATCH"},
		AllowHeaders:     []string{"Accept", "Authorization", "Content-Type", "X-Requested-With", "X-Recaptcha-V3"},
		ExposeHeaders:    []string{"Content-Length"},
		AllowCredentials: true,
		MaxAge:           12 * 3600,
	}))

	// Health check endpoint
	r.GET("/health", func(c *gin.Context) {
		c.JSON(http.StatusOK, s.db.Health())
	})

	secret := []byte(s.cfg.JWTSecret)

	// API routes
	api := r.Group("/api")
	// Authenticated requests bypass anonymous tracking, so the auth
	// middleware has to run first.
	api.Use(middleware.OptionalAuth(secret))
	api.Use(identity.Middleware(s.cfg.IsProduction()))
	{
		// Auth routes (public)
		api.POST("/register", s.handler.Auth.Register)
		api.POST("/login", s.handler.Auth.Login)

		// Post routes (public reads)
		api.GET("/posts", s.handler.Post.GetPosts)
		api.GET("/posts/:id", s.handler.Post.GetPost)

		// Comment routes: reads are public, creation and voting accept
		// both authenticated and anonymous identities.
		api.GET("/posts/:id/comments", s.handler.Comment.GetComments)
		api.POST("/comments", s.handler.Comment.CreateComment)
		api.POST("/comments/:id/vote", s.handler.Comment.VoteComment)
		api.DELETE("/comments/:id/vote", s.handler.Comment.RemoveVote)
		api.GET("/comments/:id/vote", s.handler.Comment.GetVote)

		// Protected routes (authentication required)
		protected := api.Group("")
		protected.Use(middleware.Auth(secret))
		{
			protected.GET("/me", s.handler.Auth.GetMe)
			protected.POST("/posts", s.handler.Post.CreatePost)
			protected.PATCH("/comments/:id/moderate", s.handler.Comment.ModerateComment)
			protected.DELETE("/comments/:id", s.handler.Comment.DeleteComment)
		}
	}

	return r
}
