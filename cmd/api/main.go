package main

import (
	"context"
	"fmt"
	"log"
	"net/http"
	"os"
	"strings"
	"time"

	"doujin-resolver/extractor"
	"doujin-resolver/internal/config"
	"doujin-resolver/internal/types"
	"doujin-resolver/utils"

	"github.com/gin-gonic/gin"
	"github.com/joho/godotenv"
	"github.com/sirupsen/logrus"
)

const maxInputsPerRequest = 200

// APIRequest represents the request body for the API
type APIRequest struct {
	Inputs []string `json:"inputs"`
}

// ItemResult is one resolved input; Row is nil when the item failed outright
type ItemResult struct {
	Input string     `json:"input"`
	Row   *types.Row `json:"row,omitempty"`
	Line  string     `json:"line,omitempty"`
}

// ResolveResult is the payload of a successful /resolve call
type ResolveResult struct {
	Items   []ItemResult      `json:"items"`
	Summary extractor.Summary `json:"summary"`
}

// APIResponse represents the response from the API
type APIResponse struct {
	Success bool           `json:"success"`
	Data    *ResolveResult `json:"data,omitempty"`
	Error   string         `json:"error,omitempty"`
}

// Server holds the API server configuration
type Server struct {
	logger *logrus.Logger
	config *types.Config
	opts   []utils.Option
}

// NewServer creates a new API server. opts are passed to every extractor's HTTP client.
func NewServer(cfg *types.Config, logger *logrus.Logger, opts ...utils.Option) *Server {
	return &Server{
		logger: logger,
		config: cfg,
		opts:   opts,
	}
}

// RegisterRoutes mounts the API endpoints
func (s *Server) RegisterRoutes(r gin.IRoutes) {
	r.Use(corsMiddleware())
	r.POST("/resolve", s.handleResolve)
	r.GET("/health", s.handleHealth)
}

// Router builds a gin engine serving the API
func (s *Server) Router() *gin.Engine {
	router := gin.New()
	router.Use(gin.Recovery())
	s.RegisterRoutes(router)
	// the CORS middleware answers preflight; it only runs on matched routes
	router.OPTIONS("/resolve", func(c *gin.Context) {})
	return router
}

func corsMiddleware() gin.HandlerFunc {
	return func(c *gin.Context) {
		c.Header("Access-Control-Allow-Origin", "*")
		c.Header("Access-Control-Allow-Methods", "POST, GET, OPTIONS")
		c.Header("Access-Control-Allow-Headers", "Content-Type")
		if c.Request.Method == http.MethodOptions {
			c.AbortWithStatus(http.StatusOK)
			return
		}
		c.Next()
	}
}

// handleResolve handles the resolve API endpoint
func (s *Server) handleResolve(c *gin.Context) {
	var req APIRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		s.sendError(c, "Invalid request body", http.StatusBadRequest)
		return
	}

	var inputs []string
	for _, in := range req.Inputs {
		if in = strings.TrimSpace(in); in != "" {
			inputs = append(inputs, in)
		}
	}
	if len(inputs) == 0 {
		s.sendError(c, "No inputs provided", http.StatusBadRequest)
		return
	}
	if len(inputs) > maxInputsPerRequest {
		s.sendError(c, fmt.Sprintf("At most %d inputs per request", maxInputsPerRequest), http.StatusBadRequest)
		return
	}

	s.logger.Infof("API request received for %d inputs", len(inputs))

	ctx, cancel := context.WithTimeout(c.Request.Context(), 10*time.Minute)
	defer cancel()

	// extractors are per request so no session state is shared between callers
	ex := extractor.NewExtractor(s.config, s.logger, s.opts...)
	defer ex.Close()

	result := &ResolveResult{}
	summary, err := ex.Run(ctx, inputs, func(input string, row *types.Row) error {
		item := ItemResult{Input: input, Row: row}
		if row != nil {
			item.Line = extractor.FormatRow(row, s.config)
		}
		result.Items = append(result.Items, item)
		return nil
	})
	if err != nil {
		s.logger.Errorf("Resolve request failed: %v", err)
		s.sendError(c, "Resolve aborted: "+err.Error(), http.StatusInternalServerError)
		return
	}
	result.Summary = summary

	c.JSON(http.StatusOK, APIResponse{Success: true, Data: result})
}

// sendError sends an error response
func (s *Server) sendError(c *gin.Context, message string, statusCode int) {
	c.JSON(statusCode, APIResponse{Success: false, Error: message})
}

// handleHealth handles the health check endpoint
func (s *Server) handleHealth(c *gin.Context) {
	c.JSON(http.StatusOK, gin.H{"status": "healthy"})
}

func newLogger() *logrus.Logger {
	logger := logrus.New()

	// Set timestamp format with milliseconds
	logger.SetFormatter(&logrus.TextFormatter{
		FullTimestamp:   true,
		TimestampFormat: "2006-01-02 15:04:05.000",
	})

	if levelStr := os.Getenv("LOG_LEVEL"); levelStr != "" {
		if level, err := logrus.ParseLevel(levelStr); err == nil {
			logger.SetLevel(level)
		}
	} else {
		logger.SetLevel(logrus.InfoLevel)
	}
	return logger
}

func main() {
	// Load .env file if present
	_ = godotenv.Load()

	// Get port from environment variable, default to 8080
	serverPort := "8080"
	if envPort := os.Getenv("API_PORT"); envPort != "" {
		serverPort = envPort
	}

	logger := newLogger()
	cfg, err := config.Load(os.Getenv("RESOLVER_CONFIG"))
	if err != nil {
		log.Fatalf("config load failed: %v", err)
	}

	server := NewServer(cfg, logger)
	router := server.Router()

	logger.Infof("Starting API server on port %s", serverPort)
	logger.Info("Available endpoints:")
	logger.Info("  POST /resolve - Resolve product URLs or titles across storefronts")
	logger.Info("  GET  /health  - Health check")

	log.Fatal(router.Run(":" + serverPort))
}
