package app

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/gofiber/fiber/v2"
	"github.com/gofiber/fiber/v2/middleware/cors"
	"github.com/gofiber/fiber/v2/middleware/logger"
	"github.com/gofiber/fiber/v2/middleware/recover"
	"github.com/redis/go-redis/v9"
	"go.uber.org/zap"
	"gorm.io/driver/postgres"
	"gorm.io/driver/sqlite"
	"gorm.io/gorm"

	"katalog/internal/handlers"
	"katalog/internal/middleware"
	"katalog/internal/repositories"
	"katalog/internal/services"
	"katalog/pkg/imagehost"
	"katalog/pkg/rabbitmq"
)

// App is the wired product catalog server.
type App struct {
	Fiber   *fiber.App
	Service *services.ProductService

	cfg   Config
	log   *zap.Logger
	db    *gorm.DB
	redis *redis.Client
	mq    *rabbitmq.Client
}

// New builds the dependency graph described by cfg. Call Close when done.
func New(ctx context.Context, cfg Config, log *zap.Logger) (*App, error) {
	a := &App{cfg: cfg, log: log}
	if err := a.init(ctx); err != nil {
		if closeErr := a.Close(); closeErr != nil {
			log.Warn("Cleanup after failed start", zap.Error(closeErr))
		}
		return nil, err
	}
	return a, nil
}

func (a *App) init(ctx context.Context) error {
	repo, err := a.openStore(ctx)
	if err != nil {
		return err
	}

	if a.cfg.RedisURL != "" {
		opt, err := redis.ParseURL(a.cfg.RedisURL)
		if err != nil {
			return fmt.Errorf("invalid REDIS_URL: %w", err)
		}
		a.redis = redis.NewClient(opt)
		if err := a.redis.Ping(ctx).Err(); err != nil {
			return fmt.Errorf("failed to connect to Redis: %w", err)
		}
		repo = repositories.NewCachedProductRepository(repo, repositories.NewRedisListingCache(a.redis), a.cfg.CacheTTL, a.log)
		a.log.Info("Product listing cache enabled", zap.Duration("ttl", a.cfg.CacheTTL))
	}

	images, err := a.imageResolver()
	if err != nil {
		return err
	}

	opts := []services.Option{services.WithLogger(a.log)}
	if a.cfg.RabbitMQURL != "" {
		a.mq, err = rabbitmq.NewClient(rabbitmq.Config{URL: a.cfg.RabbitMQURL, Logger: a.log})
		if err != nil {
			return err
		}
		opts = append(opts, services.WithPublisher(a.mq))
	}

	a.Service = services.NewProductService(repo, images, opts...)

	if a.cfg.SeedProducts {
		if err := seedProducts(ctx, a.Service, a.log); err != nil {
			return err
		}
	}

	a.Fiber = a.newFiber()
	return nil
}

func (a *App) openStore(ctx context.Context) (repositories.ProductRepository, error) {
	var dialector gorm.Dialector
	switch a.cfg.DatabaseDriver {
	case "memory":
		return repositories.NewMemoryProductRepository(), nil
	case "postgres":
		dialector = postgres.Open(a.cfg.DatabaseDSN)
	case "sqlite":
		dialector = sqlite.Open(a.cfg.DatabaseDSN)
	default:
		return nil, fmt.Errorf("unknown DATABASE_DRIVER %q", a.cfg.DatabaseDriver)
	}

	db, err := gorm.Open(dialector, &gorm.Config{})
	if err != nil {
		return nil, fmt.Errorf("failed to connect to database: %w", err)
	}
	a.db = db

	repo := repositories.NewGORMProductRepository(db)
	if err := repo.Migrate(ctx); err != nil {
		return nil, err
	}
	return repo, nil
}

func (a *App) imageResolver() (imagehost.Resolver, error) {
	switch a.cfg.ImageHost {
	case "cloudinary":
		c, err := imagehost.NewCloudinary(a.cfg.Cloudinary)
		if err != nil {
			return nil, err
		}
		return c, nil
	case "local":
		return imagehost.NewLocal(a.cfg.UploadDir, a.cfg.PublicBaseURL+"/uploads")
	default:
		return imagehost.Nop{}, nil
	}
}

func (a *App) newFiber() *fiber.App {
	app := fiber.New(fiber.Config{
		AppName: "katalog",
		// Leave room for the text fields next to the image.
		BodyLimit: a.cfg.MaxImageBytes + 64<<10,
	})

	app.Use(recover.New())
	app.Use(logger.New())
	app.Use(cors.New())

	if a.cfg.ImageHost == "local" {
		app.Static("/uploads", a.cfg.UploadDir)
	}

	api := app.Group("/api", middleware.RequestTimeout(a.cfg.RequestTimeout))
	handlers.NewProductHandler(a.Service, a.log).RegisterRoutes(api)

	app.Get("/health", a.handleHealth)
	return app
}

func (a *App) handleHealth(c *fiber.Ctx) error {
	ctx, cancel := context.WithTimeout(c.UserContext(), 2*time.Second)
	defer cancel()

	checks := fiber.Map{}
	healthy := true

	if a.db != nil {
		checks["database"] = "up"
		if err := a.pingDB(ctx); err != nil {
			checks["database"] = err.Error()
			healthy = false
		}
	}
	if a.redis != nil {
		checks["redis"] = "up"
		if err := a.redis.Ping(ctx).Err(); err != nil {
			checks["redis"] = err.Error()
			healthy = false
		}
	}
	if a.mq != nil {
		checks["rabbitmq"] = "connected"
	}

	status, code := "healthy", fiber.StatusOK
	if !healthy {
		status, code = "unhealthy", fiber.StatusServiceUnavailable
	}
	return c.Status(code).JSON(fiber.Map{
		"status": status,
		"time":   time.Now().Format(time.RFC3339),
		"checks": checks,
	})
}

func (a *App) pingDB(ctx context.Context) error {
	sqlDB, err := a.db.DB()
	if err != nil {
		return err
	}
	return sqlDB.PingContext(ctx)
}

// StartConsumers logs every product event seen on the event queue.
// It is a no-op when RabbitMQ is not configured.
func (a *App) StartConsumers() error {
	if a.mq == nil {
		return nil
	}
	return a.mq.ConsumeEvents(handlers.NewProductEventLogger(a.log))
}

// Close releases every connection opened by New.
func (a *App) Close() error {
	var errs []error
	if a.mq != nil {
		errs = append(errs, a.mq.Close())
	}
	if a.redis != nil {
		errs = append(errs, a.redis.Close())
	}
	if a.db != nil {
		if sqlDB, err := a.db.DB(); err == nil {
			errs = append(errs, sqlDB.Close())
		}
	}
	return errors.Join(errs...)
}

// seedProducts populates an empty catalog with some initial data.
func seedProducts(ctx context.Context, svc *services.ProductService, log *zap.Logger) error {
	existing, err := svc.List(ctx)
	if err != nil {
		return fmt.Errorf("failed to check catalog before seeding: %w", err)
	}
	if len(existing) > 0 {
		return nil
	}

	seed := []services.ProductInput{
		{Name: "Laptop", Description: "High performance laptop", Price: "1200.00"},
		{Name: "Keyboard", Description: "Mechanical keyboard", Price: "75.00"},
		{Name: "Mouse", Description: "Ergonomic wireless mouse", Price: "25.00"},
	}
	for _, in := range seed {
		p, err := svc.Create(ctx, in)
		if err != nil {
			return fmt.Errorf("failed to seed product %s: %w", in.Name, err)
		}
		log.Info("Seeded product", zap.String("name", p.Name), zap.Uint("id", p.ID))
	}
	return nil
}
