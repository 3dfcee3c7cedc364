package main

import (
	"database/sql"
	"fmt"
	"log"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/gofiber/fiber/v2"
	"github.com/gofiber/fiber/v2/middleware/cors"
	"github.com/gofiber/fiber/v2/middleware/logger"
	"github.com/hibiken/asynq"
	"github.com/joho/godotenv"
	_ "github.com/lib/pq"
	"github.com/robfig/cron"

	config "github.com/avelarde/crosspost/configs"
	"github.com/avelarde/crosspost/internal/api/handlers"
	"github.com/avelarde/crosspost/internal/api/middleware"
	job "github.com/avelarde/crosspost/internal/jobs"
	"github.com/avelarde/crosspost/internal/platform"
	"github.com/avelarde/crosspost/internal/queue"
	"github.com/avelarde/crosspost/internal/repository"
	"github.com/avelarde/crosspost/internal/service"
)

func main() {
	if err := godotenv.Load(); err != nil {
		log.Println("Warning: Failed to load environment variables", err)
	}

	cfg := config.LoadConfig()

	db, err := sql.Open("postgres", cfg.PostgresURI)
	if err != nil {
		log.Fatalf("Failed to connect to database: %v", err)
	}
	defer closeDB(db)

	if err := db.Ping(); err != nil {
		log.Fatalf("Database is unreachable: %v", err)
	}

	redisConn := asynq.RedisClientOpt{Addr: cfg.RedisURI}
	client := asynq.NewClient(redisConn)
	defer client.Close()

	app := fiber.New(fiber.Config{
		ReadTimeout:  10 * time.Minute,
		WriteTimeout: 10 * time.Minute,
		BodyLimit:    100 * 1024 * 1024, // 100 MB
		ErrorHandler: func(c *fiber.Ctx, err error) error {
			log.Printf("Error: %v", err)
			return c.Status(fiber.StatusInternalServerError).JSON(fiber.Map{"error": err.Error()})
		},
	})

	app.Use(logger.New())
	app.Use(cors.New(cors.Config{
		AllowOriginsFunc: func(origin string) bool {
			return true
		},
		AllowMethods:     "GET,POST,PUT,DELETE,OPTIONS",
		AllowHeaders:     "Origin, Content-Type, Accept, Authorization",
		AllowCredentials: true,
		MaxAge:           3600,
	}))

	adapters := platform.Registry{}
	adapters.Register(platform.NewInstagram(cfg.InstagramClientID, cfg.InstagramClientSecret, cfg.InstagramRedirectURI))
	adapters.Register(platform.NewThreads(cfg.ThreadsClientID, cfg.ThreadsClientSecret, cfg.ThreadsRedirectURI))
	adapters.Register(platform.NewTiktok(cfg.TiktokClientKey, cfg.TiktokClientSecret, cfg.TiktokRedirectURI))
	adapters.Register(platform.NewYoutube(cfg.GoogleClientID, cfg.GoogleClientSecret, cfg.GoogleRedirectURI))

	userRepo := repository.NewUserRepository(db)
	postRepo := repository.NewPostRepository(db)
	publicationRepo := repository.NewPublicationRepository(db)
	socialAccountRepo := repository.NewSocialAccountRepository(db)
	postMediaRepo := repository.NewPostMediaRepository(db)
	mediaAssetRepo := repository.NewMediaAssetRepository(db)
	commentRepo := repository.NewScheduledCommentRepository(db)
	apiKeyRepo := repository.NewApiKeyRepository(db)

	storageService, err := service.NewStorageService(cfg)
	if err != nil {
		log.Fatalf("Failed to set up storage: %v", err)
	}

	taskQueue := queue.NewQueue(client)

	authService := service.NewAuthService(cfg, userRepo)
	userService := service.NewUserService(userRepo)
	apiKeyService := service.NewApiKeyService(apiKeyRepo)
	tokenService := service.NewTokenService(cfg, socialAccountRepo, adapters)
	mediaService := service.NewMediaService(cfg, mediaAssetRepo, postMediaRepo, storageService)
	accountService := service.NewAccountService(cfg, socialAccountRepo, adapters)
	postService := service.NewPostService(db, postRepo, publicationRepo, socialAccountRepo, mediaService, postMediaRepo, commentRepo)
	publishService := service.NewPublishService(cfg, postRepo, publicationRepo, socialAccountRepo, postMediaRepo, commentRepo, tokenService, adapters, taskQueue)
	commentService := service.NewCommentService(commentRepo, publicationRepo, socialAccountRepo, tokenService, adapters)
	permalinkService := service.NewPermalinkService(publicationRepo, socialAccountRepo, postRepo, tokenService, adapters)
	analyticsService := service.NewAnalyticsService(publicationRepo, socialAccountRepo, tokenService, adapters, permalinkService)

	authMiddleware := middleware.NewAuthMiddleware(cfg, apiKeyService)

	auth := handlers.NewAuthHandler(cfg, authService)
	app.Get("/login", auth.Login)
	app.Get("/login/callback", auth.LoginCallbackHandler)
	app.Get("/logout", auth.Logout)

	connect := handlers.NewPlatformHandler(cfg, accountService)
	app.Get("/auth/:platform", connect.AddSocialAccount)
	app.Get("/auth/:platform/callback", connect.CallbackHandler)

	api := app.Group("/api")
	api.Use(authMiddleware.AuthMiddleware())

	user := handlers.NewUserHandler(userService)
	api.Get("/user/info", user.GetUserInfo)

	apiKeys := handlers.NewApiKeyHandler(apiKeyService)
	api.Post("/api_key/new", apiKeys.CreateApiKey)
	api.Get("/api_key/list", apiKeys.ListKeys)
	api.Post("/api_key/remove", apiKeys.RemoveAPIKey)

	post := handlers.NewPostHandler(postService, publishService, taskQueue)
	api.Post("/posts/create", post.CreatePost)
	api.Get("/posts", post.ListPosts)
	api.Post("/posts/publish", post.PublishNow)
	api.Post("/posts/cancel", post.CancelPost)
	api.Post("/posts/remove", post.RemovePost)

	// social accounts api routes
	api.Get("/accounts", connect.ListSocialAccounts)
	api.Post("/accounts/remove", connect.DeleteSocialAccount)

	analytics := handlers.NewAnalyticsHandler(analyticsService, permalinkService)
	api.Get("/analytics/summary", analytics.Summary)
	api.Post("/analytics/sync", analytics.SyncInsights)
	api.Get("/publications/permalink", analytics.Permalink)
	api.Post("/publications/permalink/resync", analytics.ResyncPermalink)

	// cron jobs
	refreshTokenJob := job.NewTokenRefreshJob(socialAccountRepo, tokenService)
	dueScanJob := job.NewDueScanJob(publishService)

	c := cron.New()
	c.AddFunc("@every 00h10m00s", refreshTokenJob.RefreshTokens)
	c.AddFunc("@every 00h01m00s", dueScanJob.ScanDue)
	c.Start()

	worker := queue.NewWorker(publishService, commentService)

	go func() {
		server := asynq.NewServer(redisConn, asynq.Config{
			Concurrency: 10,
		})

		mux := asynq.NewServeMux()
		mux.HandleFunc(queue.TaskTypePublishPost, worker.HandlePublishPostTask)
		mux.HandleFunc(queue.TaskTypePublishComment, worker.HandlePublishCommentTask)

		log.Println("Starting the Asynq server...")
		if err := server.Run(mux); err != nil {
			log.Fatalf("Could not start Asynq server: %v", err)
		}
	}()

	go func() {
		if err := app.Listen(":3000"); err != nil {
			log.Fatalf("Failed to start server: %v", err)
		}
	}()
	log.Println("Server is running on http://localhost:3000")

	gracefulShutdown(app, db)
}

func closeDB(db *sql.DB) {
	fmt.Fprint(os.Stdout, "Closing database connection... ")
	if err := db.Close(); err != nil {
		fmt.Fprintf(os.Stderr, "Failed to close database: %v", err)
		return
	}
	fmt.Fprintln(os.Stdout, "Done")
}

func gracefulShutdown(app *fiber.App, db *sql.DB) {
	quit := make(chan os.Signal, 1)
	signal.Notify(quit, os.Interrupt, syscall.SIGTERM)

	<-quit
	log.Println("Shutting down server...")

	if err := app.Shutdown(); err != nil {
		log.Fatalf("Failed to shut down server: %v", err)
	}

	closeDB(db)
	log.Println("Server shutdown complete.")
}
