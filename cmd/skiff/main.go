package main

import (
	"context"
	"errors"
	"flag"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/labstack/echo/v4"
	echomiddleware "github.com/labstack/echo/v4/middleware"
	"go.opentelemetry.io/contrib/instrumentation/github.com/labstack/echo/otelecho"

	"github.com/driftsocial/skiff"
	"github.com/driftsocial/skiff/internal/config"
	"github.com/driftsocial/skiff/internal/infrastructure/providers"
	"github.com/driftsocial/skiff/internal/infrastructure/repository"
	"github.com/driftsocial/skiff/internal/present/rest"
	"github.com/driftsocial/skiff/internal/present/rest/middleware"
	"github.com/driftsocial/skiff/internal/service"
	"github.com/driftsocial/skiff/internal/telemetry"
	"github.com/driftsocial/skiff/internal/usecase"
	"github.com/driftsocial/skiff/repo"
)

func main() {
	configPath := flag.String("config", "config.yaml", "path to the configuration file")
	flag.Parse()

	conf, err := config.Load(*configPath)
	if err != nil {
		panic(err)
	}

	traceEndpoint := ""
	if conf.Server.EnableTrace {
		traceEndpoint = conf.Server.TraceEndpoint
	}
	shutdownTracer, err := telemetry.Setup(context.Background(), traceEndpoint, "skiff", skiff.Version)
	if err != nil {
		panic(err)
	}

	db, err := providers.NewDatabase(conf.Server)
	if err != nil {
		panic("failed to connect database")
	}
	err = providers.MigrateDatabase(db)
	if err != nil {
		panic("failed to migrate database")
	}

	rdb := providers.NewRedis(conf.Server)
	mc := providers.NewMemcache(conf.Server)

	plcClient := providers.NewPlcClient(conf.Plc)
	directory := providers.NewDirectory(plcClient)
	identityGateway := providers.NewIdentityGateway(directory, mc, db)

	store := repository.NewStore(db)

	sessions := service.NewSessionService([]byte(conf.Keys.JwtSecret), conf.Pds.ServiceDid, conf.Pds.AccessTTL, conf.Pds.RefreshTTL)
	auth := service.NewAuthService(conf.Pds, sessions)
	sequencer := service.NewSequencerService(rdb)
	hasher := service.NewPasswordHasher(0)
	seeder := repo.New(conf.Keys.RepoSigning, repo.NewTidClock(0))

	handleValidator := usecase.NewHandleValidator(conf.Pds, identityGateway)
	// adoption validates live registry state, so the provisioner holds the
	// directory rather than the cached gateway
	didProvisioner := usecase.NewDidProvisioner(conf.Pds, conf.Keys.PlcRotation, directory)
	inviteController := usecase.NewInviteAdmissionController(store)
	accountOrchestrator := usecase.NewAccountRegistrationOrchestrator(
		conf.Pds,
		store,
		handleValidator,
		didProvisioner,
		inviteController,
		hasher,
		plcClient,
		seeder,
		sessions,
		sequencer,
	)
	sessionUsecase := usecase.NewSessionUsecase(store, hasher, sessions)
	identityUsecase := usecase.NewIdentityUsecase(store, identityGateway, identityGateway)
	syncUsecase := usecase.NewSyncUsecase(store)

	authMiddleware := middleware.NewAuthMiddleware(auth, conf.Pds)
	limiter := middleware.NewRateLimiter(1, 5)

	handler := rest.NewHandler(
		conf.Pds,
		accountOrchestrator,
		sessionUsecase,
		identityUsecase,
		syncUsecase,
		sequencer,
		authMiddleware,
		limiter,
	)

	e := echo.New()
	e.Use(echomiddleware.Logger())
	e.Use(echomiddleware.Recover())
	e.Use(echomiddleware.CORS())
	if conf.Server.EnableTrace {
		e.Use(otelecho.Middleware("skiff"))
	}
	handler.RegisterRoutes(e)

	go func() {
		if err := e.Start(conf.Server.Listen); err != nil && !errors.Is(err, http.ErrServerClosed) {
			e.Logger.Fatal(err)
		}
	}()

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()
	<-ctx.Done()

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	if err := e.Shutdown(shutdownCtx); err != nil {
		slog.Error("server shutdown failed", slog.String("error", err.Error()), slog.String("module", "main"))
	}
	if err := shutdownTracer(shutdownCtx); err != nil {
		slog.Error("tracer shutdown failed", slog.String("error", err.Error()), slog.String("module", "main"))
	}
}
