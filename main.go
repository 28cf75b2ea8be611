package main

import (
	"context"
	"fmt"
	"log"
	"net/http"
	"os"
	"os/signal"
	"path/filepath"
	"syscall"
	"time"

	"learning-service/internal/cache"
	"learning-service/internal/config"
	"learning-service/internal/db"
	"learning-service/internal/event"
	"learning-service/internal/handlers"
	"learning-service/internal/judge"
	"learning-service/internal/repository"
	"learning-service/internal/service"
	"learning-service/internal/utils"
	"learning-service/pkg/discovery"

	"github.com/gin-contrib/cors"
	"github.com/gin-gonic/gin"
)

// setupLogging sends stdlib log output to a dated file when LOG_DIR is set;
// otherwise logs stay on stderr.
func setupLogging(logDir string) (*os.File, error) {
	if logDir == "" {
		return nil, nil
	}
	if err := os.MkdirAll(logDir, 0755); err != nil {
		return nil, fmt.Errorf("failed to create log directory: %v", err)
	}

	logFile := filepath.Join(logDir, fmt.Sprintf("log_%s.log", time.Now().Format("2006-01-02")))
	file, err := os.OpenFile(logFile, os.O_APPEND|os.O_CREATE|os.O_WRONLY, 0644)
	if err != nil {
		return nil, fmt.Errorf("failed to open log file: %v", err)
	}

	log.SetOutput(file)
	log.SetFlags(log.Ldate | log.Ltime | log.Lshortfile)
	return file, nil
}

func main() {
	config.LoadConfig()
	cfg := config.AppConfig
	gin.SetMode(cfg.GinMode)

	logFile, err := setupLogging(cfg.LogDir)
	if err != nil {
		log.Fatalf("Failed to set up logging: %v", err)
	}
	if logFile != nil {
		defer logFile.Close()
	}

	db.InitMongo(cfg.MongoURI)
	defer db.Disconnect()
	database := db.Client.Database(cfg.MongoDatabase)

	idxCtx, idxCancel := context.WithTimeout(context.Background(), 30*time.Second)
	if err := db.EnsureIndexes(idxCtx, database); err != nil {
		log.Printf("Warning: Failed to create database indexes: %v", err)
	} else {
		log.Println("Database indexes created successfully")
	}
	idxCancel()

	redisCache := cache.NewCache(cfg.RedisAddr, cfg.RedisPassword)
	defer redisCache.Close()

	// RabbitMQ event publisher
	var publisher *event.EventPublisher
	var sink service.EventSink
	if cfg.RabbitMQURI != "" {
		var err error
		publisher, err = event.NewEventPublisher(cfg.RabbitMQURI, cfg.RabbitExchange)
		if err != nil {
			log.Fatalf("Failed to connect to RabbitMQ: %v", err)
		}
		defer publisher.Close()
		sink = publisher
	} else {
		log.Println("RabbitMQ not configured, events will not be published")
	}

	// Repositories
	lessonRepo := repository.NewLessonRepository(database)
	exerciseRepo := repository.NewExerciseRepository(database)
	attemptRepo := repository.NewAttemptRepository(database)
	xpRepo := repository.NewXPRepository(db.Client, database)
	streakRepo := repository.NewStreakRepository(database)
	badgeRepo := repository.NewBadgeRepository(database)
	earnedBadgeRepo := repository.NewEarnedBadgeRepository(database)

	seedCtx, seedCancel := context.WithTimeout(context.Background(), 10*time.Second)
	if err := badgeRepo.SeedDefaults(seedCtx); err != nil {
		log.Printf("Warning: Failed to seed badge catalog: %v", err)
	}
	seedCancel()

	// Services; the ledger and badge evaluator reference each other, so the
	// cross-links are bound after construction.
	answerJudge := judge.NewLLMJudge(cfg.JudgeBaseURL, cfg.JudgeAPIKey, cfg.JudgeModel)
	xpService := service.NewXPService(xpRepo, sink)
	badgeService := service.NewBadgeService(badgeRepo, earnedBadgeRepo, xpRepo, streakRepo, redisCache, sink)
	streakService := service.NewStreakService(streakRepo, redisCache, sink)
	xpService.BindBadgeEvaluator(badgeService)
	badgeService.BindLedger(xpService)
	streakService.BindLedger(xpService)
	streakService.BindBadgeEvaluator(badgeService)
	exerciseService := service.NewExerciseService(exerciseRepo, lessonRepo, attemptRepo, answerJudge, xpService, sink)
	lessonService := service.NewLessonService(lessonRepo)

	// Handlers
	lessonHandler := handlers.NewLessonHandler(lessonService)
	exerciseHandler := handlers.NewExerciseHandler(exerciseService)
	progressHandler := handlers.NewProgressHandler(xpService)
	streakHandler := handlers.NewStreakHandler(streakService)
	badgeHandler := handlers.NewBadgeHandler(badgeService)

	// Activity events from sibling services feed the streak tracker
	consumer, err := event.NewEventConsumer(cfg.RabbitMQURI, cfg.RabbitExchange, streakService)
	if err != nil {
		log.Printf("Warning: Failed to initialize event consumer: %v", err)
	} else if err := consumer.Start(); err != nil {
		log.Printf("Warning: Failed to start event consumer: %v", err)
	} else {
		defer consumer.Close()
	}

	// Consul registration
	if cfg.ConsulAddress != "" {
		registry, err := discovery.NewServiceRegistry(cfg)
		if err != nil {
			log.Printf("Warning: Consul init failed: %v", err)
		} else if err := registry.Register(); err != nil {
			log.Printf("Warning: Consul registration failed: %v", err)
		} else {
			defer registry.Deregister()
		}
	}

	r := gin.Default()

	r.Use(cors.New(cors.Config{
		AllowOrigins:     []string{"http://localhost:3000"},
		AllowMethods:     []string{"GET", "POST", "PUT", "DELETE", "OPTIONS"},
		AllowHeaders:     []string{"Content-Type", "Content-Length", "Accept-Encoding", "X-CSRF-Token", "Authorization", "accept", "origin", "Cache-Control", "X-Requested-With", "X-User-ID"},
		ExposeHeaders:    []string{"Content-Length"},
		AllowCredentials: true,
		MaxAge:           12 * time.Hour,
	}))

	r.GET("/health", func(c *gin.Context) {
		c.String(http.StatusOK, "Learning Service is healthy")
	})

	setupRoutes(r, lessonHandler, exerciseHandler, progressHandler, streakHandler, badgeHandler)

	srv := &http.Server{
		Addr:    ":" + cfg.Port,
		Handler: r,
	}

	go func() {
		log.Printf("Learning service listening on :%s", cfg.Port)
		if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			log.Fatalf("Server error: %v", err)
		}
	}()

	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit
	log.Println("Shutting down...")

	shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer shutdownCancel()
	if err := srv.Shutdown(shutdownCtx); err != nil {
		log.Printf("Server shutdown error: %v", err)
	}
}

func setupRoutes(
	r *gin.Engine,
	lessonHandler *handlers.LessonHandler,
	exerciseHandler *handlers.ExerciseHandler,
	progressHandler *handlers.ProgressHandler,
	streakHandler *handlers.StreakHandler,
	badgeHandler *handlers.BadgeHandler,
) {
	public := r.Group("/public/learning")
	{
		public.GET("/lesson/:id", lessonHandler.GetLesson)
		public.GET("/lesson/:id/exercises", exerciseHandler.ListByLesson)
		public.GET("/exercise/:id", exerciseHandler.GetExercise)
		public.GET("/child/:id/lessons", lessonHandler.ListByChild)
		public.GET("/child/:id/progress", progressHandler.GetProgress)
		public.GET("/child/:id/stats", progressHandler.GetStats)
		public.GET("/child/:id/history", progressHandler.GetHistory)
		public.GET("/child/:id/streak", streakHandler.GetStreakInfo)
		public.GET("/child/:id/badges", badgeHandler.GetBadgesForChild)
		public.GET("/badge/:code", badgeHandler.GetBadge)
		public.GET("/child/:id/ledger", progressHandler.VerifyLedger)
	}

	protected := r.Group("/protected/learning")

	// Require a caller identity on every protected route
	protected.Use(func(c *gin.Context) {
		userID, err := utils.GetUserIDFromRequest(c)
		if err != nil || userID == "" {
			c.JSON(http.StatusUnauthorized, gin.H{
				"error": "Authentication required",
				"code":  "MISSING_USER_ID",
			})
			c.Abort()
			return
		}
		c.Next()
	})

	protected.Use(gin.LoggerWithFormatter(func(param gin.LogFormatterParams) string {
		return fmt.Sprintf("[LEARNING] %v | %3d | %13v | %15s | %-7s %#v\n%s",
			param.TimeStamp.Format("2006/01/02 - 15:04:05"),
			param.StatusCode,
			param.Latency,
			param.ClientIP,
			param.Method,
			param.Path,
			param.ErrorMessage,
		)
	}))

	{
		protected.POST("/lesson", lessonHandler.CreateLesson)
		protected.POST("/exercise", exerciseHandler.CreateExercise)
		protected.POST("/exercise/:id/submit", exerciseHandler.SubmitAnswer)
		protected.GET("/exercise/:id/hint", exerciseHandler.GetHint)
		protected.GET("/exercise/:id/attempts", exerciseHandler.GetAttempts)
		protected.POST("/child/:id/streak/activity", streakHandler.RecordActivity)
		protected.POST("/child/:id/streak/freeze", streakHandler.UseFreeze)
		protected.POST("/child/:id/streak/freezes", streakHandler.GrantFreezes)
		protected.POST("/xp/award", progressHandler.AwardXP)
	}
}
