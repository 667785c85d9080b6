package app

import (
	"context"
	"log"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/dialashami/RUWWAD-sub001/internal/config"
	"github.com/dialashami/RUWWAD-sub001/internal/controller"
	"github.com/dialashami/RUWWAD-sub001/internal/repository"
	"github.com/dialashami/RUWWAD-sub001/internal/service"
	"github.com/dialashami/RUWWAD-sub001/pkg/cache"
	"github.com/dialashami/RUWWAD-sub001/pkg/database"
	"github.com/dialashami/RUWWAD-sub001/pkg/logger"
	"github.com/dialashami/RUWWAD-sub001/pkg/monitoring"
	"github.com/dialashami/RUWWAD-sub001/pkg/security"
	"github.com/dialashami/RUWWAD-sub001/pkg/tracing"

	"github.com/gin-gonic/gin"
	"github.com/go-redis/redis/v8"
	sdktrace "go.opentelemetry.io/otel/sdk/trace"
	"go.uber.org/zap"
	"gorm.io/gorm"
)

type App struct {
	Config          *config.Config
	Router          *gin.Engine
	DB              *gorm.DB
	Redis           *redis.Client
	services        *services
	tracerProvider  *sdktrace.TracerProvider
	configCallbacks []func(*config.Config)
}

type repositories struct {
	user     *repository.UserRepository
	course   *repository.CourseRepository
	chapter  *repository.ChapterRepository
	progress *repository.ProgressRepository
	attempt  *repository.AttemptRepository
}

type services struct {
	auth       *service.AuthService
	course     *service.CourseService
	unlock     *service.UnlockService
	progress   *service.ProgressService
	chapter    *service.ChapterService
	generation *service.GenerationService
	attempt    *service.AttemptService
}

type controllers struct {
	auth    *controller.AuthController
	course  *controller.CourseController
	chapter *controller.ChapterController
	quiz    *controller.QuizController
	health  *controller.HealthController
}

func (a *App) RegisterConfigCallback(callback func(*config.Config)) {
	a.configCallbacks = append(a.configCallbacks, callback)
}

func (a *App) initRepositories(db *gorm.DB) *repositories {
	return &repositories{
		user:     repository.NewUserRepository(db),
		course:   repository.NewCourseRepository(db),
		chapter:  repository.NewChapterRepository(db),
		progress: repository.NewProgressRepository(db),
		attempt:  repository.NewAttemptRepository(db),
	}
}

func (a *App) initServices(repos *repositories, cfg *config.Config, rdb *redis.Client) *services {
	s := &services{}

	listCache := cache.NewRedisCache(rdb)
	listTTL := time.Duration(cfg.Quiz.ListCacheSeconds) * time.Second
	attemptExpiry := time.Duration(cfg.Quiz.AttemptExpiryHours) * time.Hour

	s.auth = service.NewAuthService(repos.user, cfg)
	s.course = service.NewCourseService(repos.course, repos.chapter)
	s.unlock = service.NewUnlockService(repos.course, repos.progress)
	s.progress = service.NewProgressService(repos.chapter, repos.progress, s.unlock, listCache)

	var llm service.TextGenerator
	if gemini, err := service.NewGeminiGenerator(cfg.AI); err != nil {
		// 生成服务降级到本地出题，不影响启动
		logger.Log.Warn("gemini client unavailable, quiz generation falls back to local questions", zap.Error(err))
	} else {
		llm = gemini
	}
	s.generation = service.NewGenerationService(repos.course, repos.chapter, llm, cfg.Quiz.QuestionCount)

	s.attempt = service.NewAttemptService(
		repos.course, repos.chapter, repos.progress, repos.attempt,
		s.unlock, s.progress, listCache, attemptExpiry)
	s.chapter = service.NewChapterService(
		repos.course, repos.chapter, repos.progress, repos.attempt,
		s.unlock, listCache, listTTL)

	return s
}

func (a *App) initControllers(s *services, db *gorm.DB, rdb *redis.Client) *controllers {
	return &controllers{
		auth:    controller.NewAuthController(s.auth),
		course:  controller.NewCourseController(s.course),
		chapter: controller.NewChapterController(s.chapter, s.progress),
		quiz:    controller.NewQuizController(s.generation, s.attempt),
		health:  controller.NewHealthController(db, rdb),
	}
}

func (a *App) setupMiddlewares(router *gin.Engine, cfg *config.Config) {
	router.Use(security.CORS(cfg.CORS.AllowedOrigins))
	router.Use(security.Secure())
	router.Use(security.RateLimiter(cfg.RateLimit.MaxRequests,
		time.Duration(cfg.RateLimit.WindowMinutes)*time.Minute))

	// 分布式追踪中间件
	if cfg.Tracing.Enabled {
		router.Use(tracing.GinMiddleware())
	}

	router.Use(monitoring.MetricsMiddleware())
}

func (a *App) startBackgroundTasks(s *services) {
	// 定期把超时的 in_progress 作答落库为 abandoned
	go func() {
		ticker := time.NewTicker(10 * time.Minute)
		for range ticker.C {
			n, err := s.attempt.ExpireStale(context.Background())
			if err != nil {
				logger.Log.Error("expire stale attempts error", zap.Error(err))
				continue
			}
			if n > 0 {
				logger.Log.Info("expired stale quiz attempts", zap.Int64("count", n))
			}
		}
	}()
}

func NewApp(cfg *config.Config) *App {
	logger.InitLogger(cfg)
	defer logger.Log.Sync()

	logger.Log.Info("Logger initialized successfully")

	db, err := database.InitDB(&cfg.Database)
	if err != nil {
		logger.Log.Fatal("Failed to initialize database", zap.Error(err))
		log.Fatalf("Failed to initialize database: %v", err)
	}

	// release 模式默认不自动迁移，--migrate 可以强制
	if cfg.Server.Mode != "release" || cfg.ForceMigrate {
		if err := database.Migrate(db); err != nil {
			logger.Log.Fatal("Failed to migrate database", zap.Error(err))
			log.Fatalf("Failed to migrate database: %v", err)
		}
	}

	rdb, err := database.InitRedis(&cfg.Redis)
	if err != nil {
		logger.Log.Fatal("Failed to initialize redis", zap.Error(err))
		log.Fatalf("Failed to initialize redis: %v", err)
	}

	app := &App{
		Config: cfg,
		DB:     db,
		Redis:  rdb,
	}

	repos := app.initRepositories(db)
	services := app.initServices(repos, cfg, rdb)
	app.services = services
	controllers := app.initControllers(services, db, rdb)

	// 监控初始化
	monitoring.Init()

	if cfg.Server.Mode == "release" {
		gin.SetMode(gin.ReleaseMode)
	}
	router := gin.Default()
	app.Router = router

	app.setupMiddlewares(router, cfg)

	if cfg.Tracing.Enabled {
		tp, err := tracing.InitTracer("ruwwad-backend", cfg.Tracing.CollectorEndpoint)
		if err != nil {
			logger.Log.Fatal("Failed to initialize tracing", zap.Error(err))
		}
		app.tracerProvider = tp
	}

	app.registerRoutes(router, controllers, cfg)

	app.startBackgroundTasks(services)

	return app
}

func (a *App) Run() {
	srv := &http.Server{
		Addr:    ":" + a.Config.Server.Port,
		Handler: a.Router,
	}

	// 启动服务器
	go func() {
		log.Printf("Server running on port %s", a.Config.Server.Port)
		if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			log.Fatalf("listen: %s\n", err)
		}
	}()

	// 等待中断信号优雅地关闭服务器（设置5秒的超时时间）
	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit
	log.Println("Shutting down server...")

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	if err := srv.Shutdown(ctx); err != nil {
		log.Fatal("Server forced to shutdown:", err)
	}

	if a.tracerProvider != nil {
		if err := a.tracerProvider.Shutdown(ctx); err != nil {
			logger.Log.Error("Failed to shutdown tracer provider", zap.Error(err))
		}
	}

	log.Println("Server exiting")
}
