package main

import (
	"context"
	"log/slog"
	"os"
	"time"

	"github.com/labstack/echo/v4"
	echomiddleware "github.com/labstack/echo/v4/middleware"
	"go.opentelemetry.io/contrib/instrumentation/github.com/labstack/echo/otelecho"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/exporters/otlp/otlptrace/otlptracehttp"
	"go.opentelemetry.io/otel/propagation"
	"go.opentelemetry.io/otel/sdk/resource"
	sdktrace "go.opentelemetry.io/otel/sdk/trace"
	semconv "go.opentelemetry.io/otel/semconv/v1.24.0"

	"github.com/deedledger/deedledger/internal/config"
	"github.com/deedledger/deedledger/internal/infra/database"
	"github.com/deedledger/deedledger/internal/infra/ledger"
	"github.com/deedledger/deedledger/internal/infra/repository"
	"github.com/deedledger/deedledger/internal/present/rest"
	"github.com/deedledger/deedledger/internal/present/rest/middleware"
	"github.com/deedledger/deedledger/internal/service"
	"github.com/deedledger/deedledger/internal/usecase"
)

const version = "0.1.0"

func main() {
	configPath := os.Getenv("DEEDLEDGER_CONFIG")
	if configPath == "" {
		configPath = "/etc/deedledger/config.yaml"
	}

	conf, err := config.Load(configPath)
	if err != nil {
		slog.Error(
			"failed to load config",
			slog.String("path", configPath),
			slog.String("error", err.Error()),
		)
		os.Exit(1)
	}

	if conf.Server.EnableTrace {
		cleanup, err := setupTraceProvider(conf.Server.TraceEndpoint, conf.Service.Name, version)
		if err != nil {
			panic(err)
		}
		defer cleanup()
	}

	db, err := database.NewPostgres(conf.Server.PostgresDsn)
	if err != nil {
		panic("failed to connect database")
	}

	err = database.MigratePostgres(db)
	if err != nil {
		panic("failed to migrate database")
	}

	rdb := database.NewRedis(conf.Server.RedisAddr, "", conf.Server.RedisDB)
	mc := database.NewMemcached(conf.Server.MemcachedAddr)

	propertyRepo := repository.NewPropertyRepository(db, mc)
	escrowRepo := repository.NewEscrowRepository(db)
	proposalRepo := repository.NewProposalRepository(db)

	shareLedger := ledger.New(db)
	rail := ledger.NewValueRail(db)
	atomic := database.NewAtomic(db)
	signal := service.NewSignalService(rdb)
	clock := usecase.SystemClock{}

	registryUsecase := usecase.NewRegistryUsecase(propertyRepo, shareLedger, atomic, signal)
	sharesUsecase := usecase.NewSharesUsecase(propertyRepo, shareLedger, signal)
	escrowUsecase := usecase.NewEscrowUsecase(escrowRepo, propertyRepo, shareLedger, rail, atomic, clock)
	governanceUsecase := usecase.NewGovernanceUsecase(proposalRepo, propertyRepo, shareLedger, atomic, signal, clock)

	handler := rest.NewHandler(
		conf.Service,
		registryUsecase,
		sharesUsecase,
		escrowUsecase,
		governanceUsecase,
		rail,
		signal,
	)

	e := echo.New()
	e.HideBanner = true
	e.Use(echomiddleware.Logger())
	e.Use(echomiddleware.Recover())
	e.Use(echomiddleware.CORS())
	if conf.Server.EnableTrace {
		e.Use(otelecho.Middleware(conf.Service.Name))
	}
	e.Use(middleware.NewRequesterMiddleware().IdentifyRequester)

	handler.RegisterRoutes(e)

	e.Logger.Fatal(e.Start(conf.Server.Listen))
}

func setupTraceProvider(endpoint string, serviceName string, serviceVersion string) (func(), error) {
	exporter, err := otlptracehttp.New(
		context.Background(),
		otlptracehttp.WithEndpoint(endpoint),
		otlptracehttp.WithInsecure(),
	)
	if err != nil {
		return nil, err
	}

	res := resource.NewWithAttributes(
		semconv.SchemaURL,
		semconv.ServiceNameKey.String(serviceName),
		semconv.ServiceVersionKey.String(serviceVersion),
	)

	tracerProvider := sdktrace.NewTracerProvider(
		sdktrace.WithBatcher(exporter),
		sdktrace.WithResource(res),
		sdktrace.WithSampler(sdktrace.AlwaysSample()),
	)
	otel.SetTracerProvider(tracerProvider)
	otel.SetTextMapPropagator(propagation.NewCompositeTextMapPropagator(
		propagation.TraceContext{},
		propagation.Baggage{},
	))

	cleanup := func() {
		ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		if err := tracerProvider.Shutdown(ctx); err != nil {
			slog.Error("failed to shutdown tracer provider", slog.String("error", err.Error()))
		}
	}
	return cleanup, nil
}
