package cmd

import (
	"context"
	"database/sql"
	"errors"
	"net"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/vibast-solutions/ms-go-accounts/app/controller"
	accountsgrpc "github.com/vibast-solutions/ms-go-accounts/app/grpc"
	"github.com/vibast-solutions/ms-go-accounts/app/mailer"
	"github.com/vibast-solutions/ms-go-accounts/app/metrics"
	"github.com/vibast-solutions/ms-go-accounts/app/middleware"
	"github.com/vibast-solutions/ms-go-accounts/app/repository"
	"github.com/vibast-solutions/ms-go-accounts/app/service"
	"github.com/vibast-solutions/ms-go-accounts/config"

	"github.com/labstack/echo/v4"
	echomiddleware "github.com/labstack/echo/v4/middleware"
	"github.com/sirupsen/logrus"
	"github.com/spf13/cobra"
	"google.golang.org/grpc"
)

const shutdownTimeout = 10 * time.Second

var serveCmd = &cobra.Command{
	Use:   "serve",
	Short: "Start the HTTP and gRPC servers",
	Long:  `Start both HTTP (Echo) and gRPC servers for the accounts service.`,
	Run:   runServe,
}

func init() {
	rootCmd.AddCommand(serveCmd)
}

func runServe(_ *cobra.Command, _ []string) {
	cfg, err := config.Load()
	if err != nil {
		logrus.WithError(err).Fatal("Failed to load configuration")
	}
	if err := configureLogging(cfg); err != nil {
		logrus.WithError(err).Fatal("Failed to configure logging")
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	db, err := openDB(ctx, cfg)
	if err != nil {
		logrus.WithError(err).Fatal("Failed to connect to database")
	}
	defer db.Close()

	deps, err := buildDependencies(db, cfg)
	if err != nil {
		logrus.WithError(err).Fatal("Failed to build services")
	}

	grpcServer := startGRPCServer(cfg, deps)
	e := newHTTPServer(cfg, deps)

	go func() {
		httpAddr := net.JoinHostPort(cfg.HTTP.Host, cfg.HTTP.Port)
		logrus.WithField("addr", httpAddr).Info("Starting HTTP server")
		if err := e.Start(httpAddr); err != nil && !errors.Is(err, http.ErrServerClosed) {
			logrus.WithError(err).Fatal("Failed to start HTTP server")
		}
	}()

	<-ctx.Done()
	logrus.Info("Shutting down")

	shutdownCtx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
	defer cancel()
	if err := e.Shutdown(shutdownCtx); err != nil {
		logrus.WithError(err).Error("HTTP server shutdown failed")
	}
	grpcServer.GracefulStop()
}

type dependencies struct {
	sessions      service.SessionService
	accounts      service.AccountService
	authenticator *service.Authenticator
	metrics       *metrics.Metrics
}

func buildDependencies(db *sql.DB, cfg *config.Config) (*dependencies, error) {
	codec, err := service.NewTokenCodec(cfg.JWT)
	if err != nil {
		return nil, err
	}

	users := repository.NewUserRepository(db)
	ledger := repository.NewTokenLedger(db)
	hasher := service.NewPasswordHasher(cfg.Password)
	mailSender, err := mailer.New(cfg)
	if err != nil {
		return nil, err
	}

	return &dependencies{
		sessions:      service.NewSessionService(db, users, ledger, codec, hasher, cfg, service.WithMailer(mailSender)),
		accounts:      service.NewAccountService(db, users, hasher),
		authenticator: service.NewAuthenticator(users, ledger, codec),
		metrics:       metrics.New(),
	}, nil
}

// maxRequestBody caps every request body; the largest payload is a profile
// update.
const maxRequestBody = "64K"

func newHTTPServer(cfg *config.Config, deps *dependencies) *echo.Echo {
	e := echo.New()
	e.HideBanner = true
	e.HidePort = true

	e.Use(echomiddleware.RequestLoggerWithConfig(echomiddleware.RequestLoggerConfig{
		LogURI:       true,
		LogStatus:    true,
		LogMethod:    true,
		LogRemoteIP:  true,
		LogLatency:   true,
		LogUserAgent: true,
		LogError:     true,
		HandleError:  true,
		LogValuesFunc: func(c echo.Context, v echomiddleware.RequestLoggerValues) error {
			fields := logrus.Fields{
				"remote_ip":  v.RemoteIP,
				"host":       v.Host,
				"method":     v.Method,
				"uri":        v.URI,
				"status":     v.Status,
				"latency":    v.Latency.String(),
				"latency_ns": v.Latency.Nanoseconds(),
				"user_agent": v.UserAgent,
			}
			entry := logrus.WithFields(fields)
			if v.Error != nil {
				entry = entry.WithError(v.Error)
			}
			entry.Info("http_request")
			return nil
		},
	}))
	e.Use(echomiddleware.Recover())
	e.Use(echomiddleware.BodyLimit(maxRequestBody))
	e.Use(echomiddleware.CORS())
	e.Use(deps.metrics.Middleware())

	registerRoutes(e, cfg, handlers{
		auth:         controller.NewAuthController(deps.sessions, deps.metrics),
		verification: controller.NewVerificationController(deps.sessions, deps.metrics, cfg.FrontendURL, cfg.Mail.ExposeTokens),
		account:      controller.NewAccountController(deps.accounts),
		gate:         middleware.NewAuthMiddleware(deps.authenticator, deps.metrics),
		metrics:      deps.metrics,
	})
	return e
}

func startGRPCServer(cfg *config.Config, deps *dependencies) *grpc.Server {
	grpcAddr := net.JoinHostPort(cfg.GRPC.Host, cfg.GRPC.Port)
	lis, err := net.Listen("tcp", grpcAddr)
	if err != nil {
		logrus.WithError(err).Fatal("Failed to listen on gRPC port")
	}

	grpcServer := grpc.NewServer(grpc.UnaryInterceptor(accountsgrpc.LoggingUnaryInterceptor()))
	accountsgrpc.RegisterAuthServiceServer(grpcServer, accountsgrpc.NewAuthServer(deps.authenticator, deps.metrics))

	go func() {
		logrus.WithField("addr", grpcAddr).Info("Starting gRPC server")
		if err := grpcServer.Serve(lis); err != nil {
			logrus.WithError(err).Fatal("Failed to start gRPC server")
		}
	}()
	return grpcServer
}
