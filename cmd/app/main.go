package main

import (
	"context"
	"database/sql"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/sirupsen/logrus"

	"github.com/wichananm65/fullstack-starter/internal/auth"
	"github.com/wichananm65/fullstack-starter/internal/config"
	"github.com/wichananm65/fullstack-starter/internal/database"
	"github.com/wichananm65/fullstack-starter/internal/logging"
	"github.com/wichananm65/fullstack-starter/internal/mail"
	"github.com/wichananm65/fullstack-starter/internal/middleware"
	"github.com/wichananm65/fullstack-starter/internal/router"
	"github.com/wichananm65/fullstack-starter/internal/scheduler"
	"github.com/wichananm65/fullstack-starter/internal/user"
)

const (
	housekeepingSpec = "@every 5m"
	limiterMaxIdle   = 10 * time.Minute
	shutdownTimeout  = 10 * time.Second
)

func main() {
	cfg, err := config.Load()
	if err != nil {
		logrus.WithError(err).Fatal("load config")
	}

	log := logging.New(cfg.LogLevel, cfg.LogFormat)
	log.WithField("config", cfg.String()).Info("starting")
	if cfg.DevSecret {
		log.Warn("JWT_SECRET not set, using the development secret")
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	db, repo := mustOpenStore(ctx, cfg, log)
	if db != nil {
		defer db.Close()
	}

	denylist, closeDenylist := newDenylist(ctx, cfg, log)
	defer closeDenylist()

	userService := user.NewService(repo, newMailer(cfg, log), log, user.WithLoginURL(cfg.LoginURL))
	if cfg.AdminEmail != "" && cfg.AdminPassword != "" {
		if _, err := userService.EnsureAdmin(ctx, cfg.AdminEmail, cfg.AdminPassword); err != nil {
			log.WithError(err).Fatal("seed admin account")
		}
	}
	issuer := auth.NewTokenIssuer(cfg.JWTSecret, cfg.JWTIssuer, cfg.JWTTTL)

	metrics := middleware.NewMetrics("fullstack_starter")
	limiter := middleware.NewRateLimiter(float64(cfg.RateLimitRPS), cfg.RateLimitBurst, log)

	deps := router.Deps{
		Log:         log,
		JWTSecret:   cfg.JWTSecret,
		CORSOrigins: cfg.CORSOrigins,
		Users:       user.NewHandler(userService, issuer, denylist),
		Denylist:    denylist,
		Metrics:     metrics,
		RateLimiter: limiter,
	}
	if db != nil {
		deps.Health = db.PingContext
	}
	app := router.New(deps)

	jobs := scheduler.New(log, metrics.JobRan)
	mustAddJob(jobs, log, "rate-limiter-cleanup", func(ctx context.Context) error {
		if n := limiter.Cleanup(limiterMaxIdle); n > 0 {
			log.WithField("dropped", n).Debug("idle rate limiters dropped")
		}
		return nil
	})
	if mem, ok := denylist.(*auth.MemoryDenylist); ok {
		mustAddJob(jobs, log, "denylist-prune", func(ctx context.Context) error {
			if n := mem.Prune(); n > 0 {
				log.WithField("pruned", n).Debug("expired revocations pruned")
			}
			return nil
		})
	}
	jobs.Start()

	go func() {
		<-ctx.Done()
		log.Info("shutting down")
		shutdownCtx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
		defer cancel()
		if err := jobs.Stop(shutdownCtx); err != nil {
			log.WithError(err).Warn("scheduler did not stop in time")
		}
		if err := app.ShutdownWithContext(shutdownCtx); err != nil {
			log.WithError(err).Error("server shutdown")
		}
	}()

	log.WithField("addr", cfg.Addr).Info("listening")
	if err := app.Listen(cfg.Addr); err != nil {
		log.WithError(err).Fatal("server stopped")
	}
}

// mustOpenStore connects to Postgres and applies migrations when DATABASE_URL
// is set; otherwise users live in memory.
func mustOpenStore(ctx context.Context, cfg *config.Config, log *logrus.Logger) (*sql.DB, user.Repository) {
	if cfg.DatabaseURL == "" {
		log.Warn("DATABASE_URL not set, using the in-memory user store")
		return nil, user.NewInMemoryRepository(nil)
	}

	db, err := database.Open(ctx, cfg.DBDriver, cfg.DatabaseURL, cfg.DBConnectAttempts, cfg.DBConnectDelay, log)
	if err != nil {
		log.WithError(err).Fatal("open database")
	}

	migrator, err := database.NewMigrator(cfg.DBDriver, cfg.DatabaseURL, log)
	if err != nil {
		log.WithError(err).Fatal("prepare migrations")
	}
	defer migrator.Close()
	if err := migrator.Up(); err != nil {
		log.WithError(err).Fatal("apply migrations")
	}

	return db, user.NewPostgresRepository(db)
}

func newDenylist(ctx context.Context, cfg *config.Config, log *logrus.Logger) (auth.Denylist, func()) {
	if cfg.RedisURL == "" {
		return auth.NewMemoryDenylist(), func() {}
	}
	rd, err := auth.NewRedisDenylistFromURL(ctx, cfg.RedisURL)
	if err != nil {
		log.WithError(err).Fatal("connect redis")
	}
	return rd, func() {
		if err := rd.Close(); err != nil {
			log.WithError(err).Warn("close redis")
		}
	}
}

func newMailer(cfg *config.Config, log *logrus.Logger) mail.Mailer {
	if cfg.SendGridAPIKey == "" {
		return mail.NewLogMailer(log)
	}
	return mail.Retrying{
		Mailer:   mail.NewSendGridMailer(cfg.SendGridAPIKey, cfg.MailFrom, cfg.MailFromName),
		Attempts: 3,
		Delay:    time.Second,
	}
}

func mustAddJob(s *scheduler.Scheduler, log *logrus.Logger, name string, job scheduler.Job) {
	if err := s.Add(name, housekeepingSpec, job); err != nil {
		log.WithError(err).Fatal("schedule job")
	}
}
