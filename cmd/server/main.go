// Package main runs the live interaction HTTP server with WebSocket fan-out and graceful shutdown.
package main

import (
	"context"
	"errors"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
	"golang.org/x/sync/errgroup"
	"golang.org/x/time/rate"

	"github.com/aura-live/backend/config"
	"github.com/aura-live/backend/internal/analytics"
	"github.com/aura-live/backend/internal/auth"
	"github.com/aura-live/backend/internal/chat"
	"github.com/aura-live/backend/internal/comments"
	"github.com/aura-live/backend/internal/media"
	"github.com/aura-live/backend/internal/middleware"
	"github.com/aura-live/backend/internal/models"
	"github.com/aura-live/backend/internal/moderation"
	"github.com/aura-live/backend/internal/polls"
	"github.com/aura-live/backend/internal/presence"
	"github.com/aura-live/backend/internal/questions"
	"github.com/aura-live/backend/internal/reactions"
	"github.com/aura-live/backend/internal/realtime"
	"github.com/aura-live/backend/internal/sessionlog"
	"github.com/aura-live/backend/internal/settings"
	"github.com/aura-live/backend/internal/streams"
	"github.com/aura-live/backend/pkg/database"
	"github.com/aura-live/backend/pkg/queue"
	"github.com/aura-live/backend/pkg/redis"
	"github.com/aura-live/backend/pkg/response"
	"github.com/aura-live/backend/pkg/storage"
)

func main() {
	cfg, err := config.Load()
	if err != nil {
		panic(err)
	}
	logger := newLogger(cfg.Log.Level)
	defer logger.Sync()

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	pool, err := database.NewPostgresPool(ctx, cfg.Database.DSN(), cfg.Database.MaxConns, logger)
	if err != nil {
		logger.Fatal("database", zap.Error(err))
	}
	defer pool.Close()

	if err := database.Migrate(ctx, pool, logger); err != nil {
		logger.Fatal("migrate", zap.Error(err))
	}

	sessionRepo := sessionlog.NewRepository(pool)
	// Sessions left open by a crashed process end at startup time.
	if n, err := sessionRepo.CloseOrphans(ctx, time.Now().UTC()); err != nil {
		logger.Warn("close orphan sessions", zap.Error(err))
	} else if n > 0 {
		logger.Info("closed orphan sessions", zap.Int64("count", n))
	}

	rdb, err := redis.NewClient(ctx, cfg.Redis.Addr, cfg.Redis.Password, cfg.Redis.DB, logger)
	if err != nil {
		logger.Fatal("redis", zap.Error(err))
	}
	defer rdb.Close()

	var objects media.ObjectStore
	if cfg.AWS.AccessKeyID != "" {
		s3Client, err := storage.NewS3(ctx, storage.S3Config{
			Region:          cfg.AWS.Region,
			AccessKeyID:     cfg.AWS.AccessKeyID,
			SecretAccessKey: cfg.AWS.SecretAccessKey,
			MediaBucket:     cfg.AWS.MediaBucket,
		}, logger)
		if err != nil {
			logger.Warn("s3 disabled", zap.Error(err))
		} else {
			objects = s3Client
		}
	}

	jwtService := auth.NewJWTService(cfg.JWT.Secret, 0)

	rooms := realtime.NewRooms()
	hub := realtime.NewHub(rooms, logger)
	pubsub := realtime.NewRedisPubSub(rdb.Client, logger)
	jobQueue := queue.NewQueue(rdb.Client, logger)

	evaluator := moderation.NewEvaluator(cfg.Realtime.EnforceFeatureFlags)
	filter := moderation.NewFilter(cfg.Realtime.RedactionMarker, cfg.Realtime.DenyList)

	authRepo := auth.NewRepository(pool)
	authHandler := auth.NewHandler(authRepo, logger)

	settingsRepo := settings.NewRepository(pool)
	settingsHandler := settings.NewHandler(settingsRepo, hub, logger)

	streamRepo := streams.NewRepository(pool)
	streamHandler := streams.NewHandler(streamRepo, hub, logger)

	tracker := presence.NewTracker(rooms, hub, sessionRepo, logger)
	tracker.SetCountHandler(streamHandler.PeakTracker())
	snapshotter := presence.NewSnapshotter(tracker, sessionRepo, cfg.Realtime.SnapshotInterval, logger)

	chatSvc := chat.NewService(chat.NewRepository(pool), settingsRepo, authRepo, evaluator, filter, hub,
		cfg.Realtime.ChatHistoryLimit, logger)
	chatHandler := chat.NewHandler(chatSvc)

	commentHandler := comments.NewHandler(
		comments.NewService(comments.NewRepository(pool), settingsRepo, authRepo, evaluator, filter, hub, logger))
	questionHandler := questions.NewHandler(
		questions.NewService(questions.NewRepository(pool), settingsRepo, authRepo, evaluator, filter, hub, logger))
	reactionHandler := reactions.NewHandler(
		reactions.NewService(reactions.NewRepository(pool), settingsRepo, evaluator, hub, logger))
	pollHandler := polls.NewHandler(
		polls.NewCoordinator(polls.NewRepository(pool), settingsRepo, evaluator, hub, logger))
	mediaHandler := media.NewHandler(media.NewRepository(pool), objects, jobQueue, hub, logger)
	analyticsHandler := analytics.NewHandler(sessionRepo, tracker)

	authenticate := func(token string) (realtime.Identity, error) {
		claims, err := jwtService.Validate(token)
		if err != nil {
			return realtime.Identity{}, err
		}
		return realtime.Identity{UserID: claims.UserID, Name: claims.Name, Role: claims.Role}, nil
	}

	router := gin.New()
	router.Use(gin.Recovery())
	router.Use(middleware.CORS(cfg.Server.CORSAllowedOrigins))
	router.Use(middleware.Logger(logger))
	router.Use(middleware.Metrics())

	router.GET("/health", func(c *gin.Context) {
		ctx := c.Request.Context()
		if err := pool.Ping(ctx); err != nil {
			logger.Warn("database health check failed", zap.Error(err))
			response.ServiceUnavailable(c, "database unavailable")
			return
		}
		if err := rdb.Health(ctx); err != nil {
			response.ServiceUnavailable(c, "redis unavailable")
			return
		}
		response.OK(c, gin.H{"status": "ok", "viewers": tracker.Count()})
	})
	router.GET("/metrics", gin.WrapH(promhttp.Handler()))

	// Socket auth is optional; the token travels in the query string.
	router.GET("/ws", realtime.ServeWs(hub, logger, authenticate,
		realtime.Handlers{Presence: tracker, Chat: chatSvc},
		realtime.ClientOptions{
			PongWait:  cfg.Realtime.PongWait,
			WriteWait: cfg.Realtime.WriteWait,
			ChatRate:  rate.Limit(cfg.Realtime.ChatRatePerSec),
			ChatBurst: cfg.Realtime.ChatBurst,
		}))

	// Read-only surfaces viewers may hit without a token.
	public := router.Group("")
	public.Use(middleware.OptionalJWT(jwtService))
	{
		public.GET("/settings", settingsHandler.Get)
		public.GET("/streams", streamHandler.List)
		public.GET("/chat/messages", chatHandler.History)
		public.GET("/comments", commentHandler.List)
		public.GET("/polls/active", pollHandler.Active)
		public.GET("/polls/:id/results", pollHandler.Results)
		public.GET("/reactions", reactionHandler.Stats)
		public.GET("/media", mediaHandler.List)
		public.GET("/analytics/viewers", analyticsHandler.Viewers)
	}

	staff := middleware.RequireStaff()
	admin := middleware.RequireRole(models.RoleAdmin)

	api := router.Group("")
	api.Use(middleware.JWT(jwtService))
	{
		api.GET("/users", admin, authHandler.List)
		api.PATCH("/users/:id/status", admin, authHandler.SetStatus)

		api.PATCH("/settings", admin, settingsHandler.Update)
		api.POST("/event/reset", admin, settingsHandler.Reset)

		api.POST("/streams", admin, streamHandler.Create)
		api.PATCH("/streams/:id/status", admin, streamHandler.SetStatus)

		api.POST("/chat/messages", chatHandler.Create)
		api.GET("/chat/pending", staff, chatHandler.Pending)
		api.PATCH("/chat/messages/:id/approve", staff, chatHandler.Approve)
		api.PATCH("/chat/messages/:id/reject", staff, chatHandler.Reject)
		api.PATCH("/chat/messages/:id/highlight", staff, chatHandler.Highlight)
		api.DELETE("/chat/messages/:id", staff, chatHandler.Delete)

		api.POST("/comments", commentHandler.Create)
		api.GET("/comments/pending", staff, commentHandler.Pending)
		api.PATCH("/comments/:id/approve", staff, commentHandler.Approve)
		api.PATCH("/comments/:id/reject", staff, commentHandler.Reject)
		api.DELETE("/comments/:id", staff, commentHandler.Delete)
		api.POST("/comments/:id/reactions", commentHandler.React)
		api.DELETE("/comments/:id/reactions", commentHandler.Unreact)

		api.POST("/questions", questionHandler.Create)
		api.GET("/questions", staff, questionHandler.List)
		api.PATCH("/questions/:id/display", staff, questionHandler.Display)
		api.DELETE("/questions/:id", staff, questionHandler.Delete)

		api.GET("/polls", staff, pollHandler.List)
		api.POST("/polls", staff, pollHandler.Create)
		api.POST("/polls/:id/activate", staff, pollHandler.Activate)
		api.POST("/polls/:id/close", staff, pollHandler.Close)
		api.PATCH("/polls/:id/results", staff, pollHandler.SetShowResults)
		api.DELETE("/polls/:id", staff, pollHandler.Delete)
		api.POST("/polls/:id/votes", pollHandler.Vote)

		api.POST("/reactions", reactionHandler.React)
		api.DELETE("/reactions", reactionHandler.Unreact)

		api.POST("/media", admin, mediaHandler.Upload)
		api.POST("/media/import", admin, mediaHandler.Import)
		api.DELETE("/media/:id", admin, mediaHandler.Delete)

		api.GET("/analytics/sessions", staff, analyticsHandler.Sessions)
		api.GET("/analytics/attendees", staff, analyticsHandler.Attendees)
	}

	srv := &http.Server{
		Addr:         ":" + cfg.Server.Port,
		Handler:      router,
		ReadTimeout:  time.Duration(cfg.Server.ReadTimeout) * time.Second,
		WriteTimeout: time.Duration(cfg.Server.WriteTimeout) * time.Second,
	}

	snapshotter.Start()

	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		logger.Info("server listening", zap.String("port", cfg.Server.Port))
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			return err
		}
		return nil
	})
	// Events published by the media worker reach local sockets through this relay.
	g.Go(func() error {
		err := pubsub.Relay(gctx, hub)
		if err != nil && !errors.Is(err, context.Canceled) {
			return err
		}
		return nil
	})
	g.Go(func() error {
		<-gctx.Done()
		snapshotter.Stop()

		shutdownCtx, cancel := context.WithTimeout(context.Background(), 15*time.Second)
		defer cancel()
		tracker.CloseAll(shutdownCtx)
		return srv.Shutdown(shutdownCtx)
	})

	if err := g.Wait(); err != nil {
		logger.Error("server stopped with error", zap.Error(err))
		os.Exit(1)
	}
	logger.Info("server stopped")
}

func newLogger(level string) *zap.Logger {
	config := zap.NewProductionConfig()
	config.EncoderConfig.TimeKey = "timestamp"
	config.EncoderConfig.EncodeTime = zapcore.ISO8601TimeEncoder
	if lvl, err := zap.ParseAtomicLevel(level); err == nil {
		config.Level = lvl
	}
	logger, _ := config.Build()
	return logger
}
