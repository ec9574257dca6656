package main

import (
	"context"
	"errors"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/jackc/pgx/v5/pgxpool"
	goredis "github.com/redis/go-redis/v9"
	"golang.org/x/sync/errgroup"

	"github.com/forgecrm/forgecrm/handler"
	"github.com/forgecrm/forgecrm/modules/emails"
	"github.com/forgecrm/forgecrm/modules/notifications"
	"github.com/forgecrm/forgecrm/pkg/config"
	"github.com/forgecrm/forgecrm/pkg/httpserver"
	"github.com/forgecrm/forgecrm/pkg/logger"
	"github.com/forgecrm/forgecrm/pkg/mailer"
	"github.com/forgecrm/forgecrm/pkg/pg"
	"github.com/forgecrm/forgecrm/pkg/poller"
	"github.com/forgecrm/forgecrm/pkg/ratelimit"
	"github.com/forgecrm/forgecrm/pkg/redis"
	"github.com/forgecrm/forgecrm/pkg/templates"
)

type appConfig struct {
	AppEnv      string `env:"APP_ENV" envDefault:"development"`
	ServiceName string `env:"SERVICE_NAME" envDefault:"forgecrm"`

	// AuthTokens maps bearer tokens to user IDs, e.g.
	// AUTH_TOKENS=tok-alice:alice,tok-bob:bob
	AuthTokens map[string]string `env:"AUTH_TOKENS,required" envSeparator:"," envKeyValSeparator:":"`

	TemplatesPath string        `env:"EMAIL_TEMPLATES_PATH" envDefault:"config/templates.yml"`
	PollInterval  time.Duration `env:"NOTIFICATION_POLL_INTERVAL" envDefault:"30s"`
	SnapshotLimit int           `env:"NOTIFICATION_SNAPSHOT_LIMIT" envDefault:"20"`

	Server    httpserver.Config
	PG        pg.Config
	Redis     redis.Config
	Mailer    mailer.Config
	RateLimit ratelimit.Config
}

func main() {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	var cfg appConfig
	config.MustLoad(&cfg)

	log := logger.New(logger.WithEnvironment(cfg.AppEnv, cfg.ServiceName))
	logger.SetAsDefault(log)

	if err := run(ctx, cfg, log); err != nil && !errors.Is(err, context.Canceled) {
		log.Error("server exited", logger.Error(err))
		os.Exit(1)
	}
}

func run(ctx context.Context, cfg appConfig, log *slog.Logger) error {
	pool, err := pg.Connect(ctx, cfg.PG)
	if err != nil {
		return err
	}
	defer pool.Close()

	if err := pg.Migrate(ctx, pool, cfg.PG, log); err != nil {
		return err
	}

	rdb, err := redis.Connect(ctx, cfg.Redis)
	if err != nil {
		return err
	}
	defer rdb.Close()

	catalog, err := templates.LoadCatalog(cfg.TemplatesPath, templates.WithCatalogLogger(log))
	if err != nil {
		return err
	}

	feed := notifications.NewFeed(
		notifications.NewPostgresStorage(pool),
		notifications.WithFeedLogger(log.With(logger.Component("notifications"))),
	)

	emailSvc := emails.NewService(
		emails.NewPostgresStore(pool),
		newSender(cfg.Mailer, log),
		feed,
		catalog,
		emails.WithServiceLogger(log.With(logger.Component("emails"))),
		emails.WithEventDeduper(emails.NewRedisDeduper(rdb, "")),
	)

	feedPoller := poller.New(
		func(ctx context.Context, userID string) (notifications.Snapshot, error) {
			return feed.Snapshot(ctx, userID, cfg.SnapshotLimit)
		},
		poller.WithInterval[notifications.Snapshot](cfg.PollInterval),
		poller.WithLogger[notifications.Snapshot](log.With(logger.Component("poller"))),
	)

	router := newRouter(ctx, cfg, log, emailSvc, feed, feedPoller, pool, rdb)
	srv := httpserver.NewFromConfig(cfg.Server, httpserver.WithLogger(log))

	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		return srv.Run(gctx, router)
	})
	g.Go(func() error {
		if err := feedPoller.Run(gctx); !errors.Is(err, context.Canceled) {
			return err
		}
		return nil
	})

	return g.Wait()
}

// newSender picks the mail transport: Postmark when a server token is
// configured, the filesystem sender otherwise so development never sends
// real mail by accident.
func newSender(cfg mailer.Config, log *slog.Logger) mailer.Sender {
	if cfg.PostmarkServerToken != "" {
		log.Info("using postmark mail transport")
		return mailer.MustNewPostmarkClient(cfg)
	}

	dir := cfg.DevDir
	if dir == "" {
		dir = "tmp/outbox"
	}
	log.Info("using filesystem mail transport", slog.String("dir", dir))
	return mailer.NewDevSender(dir)
}

func newRouter(
	ctx context.Context,
	cfg appConfig,
	log *slog.Logger,
	emailSvc *emails.Service,
	feed *notifications.Feed,
	feedPoller *poller.Poller[notifications.Snapshot],
	pool *pgxpool.Pool,
	rdb goredis.UniversalClient,
) http.Handler {
	emailHandler := emails.NewHandler(emailSvc, log)
	notifHandler := notifications.NewHandler(feed, log, notifications.WithStream(feedPoller))

	r := chi.NewRouter()
	r.Use(middleware.RequestID)
	r.Use(middleware.RealIP)
	r.Use(middleware.Recoverer)

	r.Get("/health", httpserver.HealthCheckHandler(ctx, log,
		pg.Healthcheck(pool),
		redis.Healthcheck(rdb),
	))

	limiter := ratelimit.NewRedisLimiter(rdb, "emails", cfg.RateLimit)

	r.Group(func(r chi.Router) {
		r.Use(handler.RequireAuth(handler.StaticTokenValidator(cfg.AuthTokens)))

		r.With(ratelimit.Middleware(limiter, ratelimit.ByUser, log)).
			Mount("/emails", emailHandler.Router())
		r.Mount("/email-templates", emailHandler.TemplatesRouter())
		r.Mount("/notifications", notifHandler.Router())
	})

	return r
}
