package main

import (
	"context"
	"errors"
	"fmt"
	"net"
	"net/http"
	"os"
	"os/signal"
	"strconv"
	"syscall"
	"time"

	"github.com/rs/zerolog"
	"go.mongodb.org/mongo-driver/v2/mongo"
	"go.mongodb.org/mongo-driver/v2/mongo/options"
	"go.mongodb.org/mongo-driver/v2/mongo/readpref"
	"google.golang.org/grpc"

	"github.com/vasapolrittideah/accounts-api/services/account-service/internal/config"
	"github.com/vasapolrittideah/accounts-api/services/account-service/internal/handler"
	"github.com/vasapolrittideah/accounts-api/services/account-service/internal/notification"
	"github.com/vasapolrittideah/accounts-api/services/account-service/internal/repository"
	"github.com/vasapolrittideah/accounts-api/services/account-service/internal/usecase"
	"github.com/vasapolrittideah/accounts-api/shared/auth"
	"github.com/vasapolrittideah/accounts-api/shared/discovery"
	"github.com/vasapolrittideah/accounts-api/shared/interceptor"
	"github.com/vasapolrittideah/accounts-api/shared/logger"
	"github.com/vasapolrittideah/accounts-api/shared/mailer"
	"github.com/vasapolrittideah/accounts-api/shared/security"
	"github.com/vasapolrittideah/accounts-api/shared/utilities"
	"github.com/vasapolrittideah/accounts-api/shared/validation"
)

const serviceName = "account-service"

func main() {
	cfg, err := config.Load()
	if err != nil {
		fmt.Fprintf(os.Stderr, "failed to load config: %v\n", err)
		os.Exit(1)
	}

	log := logger.New(cfg.Log.Level, cfg.Log.Pretty)

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	client := connectMongo(ctx, cfg.Mongo, log)
	defer func() {
		if err := client.Disconnect(context.Background()); err != nil {
			log.Error().Err(err).Msg("failed to disconnect from mongo")
		}
	}()

	userRepo := repository.NewUserMongoRepository(ctx, log, client.Database(cfg.Mongo.Database))

	hasher := security.NewArgon2Hasher()
	notifier := notification.NewEmailNotifier(mailer.NewMailerFromEnv(log), cfg.NotificationTimeout, log)
	tokens := usecase.NewTokenIssuer(time.Now)
	jwtAuth := auth.NewJWTAuthenticator(cfg.Token.Issuer, cfg.Token.Issuer)

	engine := usecase.NewVerificationEngine(userRepo, hasher, notifier, tokens, cfg, log, time.Now)
	accountUsecase := usecase.NewAccountUsecase(userRepo, engine, hasher, notifier, tokens, jwtAuth, cfg, log, time.Now)
	passwordResetUsecase := usecase.NewPasswordResetUsecase(userRepo, hasher, notifier, tokens, cfg, log, time.Now)

	validator, err := validation.NewValidator()
	if err != nil {
		log.Fatal().Err(err).Msg("failed to create validator")
	}

	router := handler.NewRouter(
		accountUsecase,
		passwordResetUsecase,
		validator,
		interceptor.NewJWTMiddleware(jwtAuth, cfg.Token.AccessTokenSecret),
		log,
	)

	httpServer := &http.Server{
		Addr:              cfg.HTTPAddr,
		Handler:           router,
		ReadHeaderTimeout: 10 * time.Second,
	}

	grpcServer := grpc.NewServer()
	healthServer := utilities.RegisterHealthServer(grpcServer, serviceName)

	grpcListener, err := net.Listen("tcp", fmt.Sprintf(":%d", cfg.GRPCHealthPort))
	if err != nil {
		log.Fatal().Err(err).Int("port", cfg.GRPCHealthPort).Msg("failed to listen for gRPC health checks")
	}

	go func() {
		log.Info().Str("addr", grpcListener.Addr().String()).Msg("gRPC health server started")
		if err := grpcServer.Serve(grpcListener); err != nil {
			log.Error().Err(err).Msg("gRPC health server stopped")
		}
	}()

	go func() {
		log.Info().Str("addr", cfg.HTTPAddr).Msg("HTTP server started")
		if err := httpServer.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			log.Error().Err(err).Msg("HTTP server stopped")
			stop()
		}
	}()

	deregister := registerWithConsul(cfg, log)

	<-ctx.Done()
	log.Info().Msg("shutting down")

	deregister()
	healthServer.Shutdown()

	shutdownCtx, cancel := context.WithTimeout(context.Background(), cfg.ShutdownTimeout)
	defer cancel()

	if err := httpServer.Shutdown(shutdownCtx); err != nil {
		log.Error().Err(err).Msg("failed to shut down HTTP server")
	}
	grpcServer.GracefulStop()
}

func connectMongo(ctx context.Context, cfg config.MongoConfig, log *zerolog.Logger) *mongo.Client {
	client, err := mongo.Connect(options.Client().ApplyURI(cfg.URI))
	if err != nil {
		log.Fatal().Err(err).Msg("failed to connect to mongo")
	}

	pingCtx, cancel := context.WithTimeout(ctx, 10*time.Second)
	defer cancel()

	if err := client.Ping(pingCtx, readpref.Primary()); err != nil {
		log.Fatal().Err(err).Msg("failed to ping mongo")
	}

	return client
}

// registerWithConsul announces the service when Consul is enabled and returns
// the matching deregistration.
func registerWithConsul(cfg *config.AccountServiceConfig, log *zerolog.Logger) func() {
	if !cfg.Consul.Enabled {
		return func() {}
	}

	_, portStr, err := net.SplitHostPort(cfg.HTTPAddr)
	if err != nil {
		log.Fatal().Err(err).Str("addr", cfg.HTTPAddr).Msg("invalid HTTP address")
	}
	httpPort, err := strconv.Atoi(portStr)
	if err != nil {
		log.Fatal().Err(err).Str("addr", cfg.HTTPAddr).Msg("invalid HTTP port")
	}

	registry, err := discovery.NewConsulRegistry(cfg.Consul.Address, log)
	if err != nil {
		log.Fatal().Err(err).Msg("failed to create consul registry")
	}

	reg := discovery.Registration{
		ServiceName: cfg.Consul.ServiceName,
		Host:        cfg.Consul.ServiceHost,
		HTTPPort:    httpPort,
		GRPCPort:    cfg.GRPCHealthPort,
	}
	if err := registry.Register(reg); err != nil {
		log.Fatal().Err(err).Msg("failed to register with consul")
	}

	return func() {
		if err := registry.Deregister(reg); err != nil {
			log.Error().Err(err).Msg("failed to deregister from consul")
		}
	}
}
