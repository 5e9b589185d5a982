package main

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"portfolio_tracker/internal/app/port"
	"portfolio_tracker/internal/app/provider"
	"portfolio_tracker/internal/app/service"
	dex_client "portfolio_tracker/internal/client"
	"portfolio_tracker/internal/infrastructure/configloader"
	clientprovider "portfolio_tracker/internal/infrastructure/network/client"
	networkdefinition "portfolio_tracker/internal/infrastructure/network/definition"
	"portfolio_tracker/internal/infrastructure/restapi"
	"portfolio_tracker/internal/infrastructure/storage"
	"portfolio_tracker/internal/infrastructure/tokenloader"
	"portfolio_tracker/internal/infrastructure/walletloader"
	"portfolio_tracker/internal/pkg/logger"
	"portfolio_tracker/pkg/metrics"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"
)

const swaggerSpecFile = "./docs/swagger.yaml"

type kvStore interface {
	port.KVStore
	Close() error
}

func main() {
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	// Предварительная инициализация базового логгера для самой ранней загрузки конфига
	tempZapLogger, errTempLog := zap.NewDevelopment()
	if errTempLog != nil {
		fmt.Fprintf(os.Stderr, "CRITICAL: Failed to initialize temporary zapLogger: %v\n", errTempLog)
		os.Exit(1)
	}

	if err := configloader.LoadDotEnv(); err != nil {
		tempZapLogger.Warn("Не удалось загрузить .env", zap.Error(err))
	}

	cfgPath := configloader.PathFromEnv()
	cfg, err := configloader.Load(cfgPath)
	if err != nil {
		tempZapLogger.Fatal("Не удалось загрузить конфигурацию", zap.String("файл", cfgPath), zap.Error(err))
	}

	// Основной zap логгер; глобальный slog пишет в него через slog-zap
	zapLogger, err := logger.Init(cfg.Logging.Level, cfg.Logging.Development)
	if err != nil {
		tempZapLogger.Fatal("Не удалось инициализировать основной zapLogger", zap.Error(err))
	}
	defer func() { _ = zapLogger.Sync() }()
	_ = tempZapLogger.Sync()

	if !cfg.Logging.Development {
		gin.SetMode(gin.ReleaseMode)
	}

	logger.Info("Сервис портфелей запускается...", "config", cfgPath)
	logger.Info("Установлен лимит параллельных горутин", "количество", cfg.Performance.MaxConcurrentRoutines)

	appLogger := logger.NewSlogAdapter()
	metrics.MustRegisterMetrics()

	netDefProvider := networkdefinition.NewNetworkDefinitionProvider(appLogger, cfg.RPC.Endpoints)

	clientProvider := clientprovider.NewEVMClientProvider(
		netDefProvider,
		clientprovider.TransportOptions{
			Timeout:    cfg.RPC.Timeout,
			RetryCount: cfg.RPC.RetryCount,
			RetryDelay: cfg.RPC.RetryDelay,
		},
		nil,
		appLogger,
		zapLogger.Named("EVMClient"),
	)
	defer clientProvider.Close()
	logger.Info("BlockchainClientProvider инициализирован.")

	store, err := openStore(ctx, cfg)
	if err != nil {
		logger.Fatal("Не удалось инициализировать хранилище", "backend", cfg.Storage.Backend, "ошибка", err)
	}
	defer func() { _ = store.Close() }()
	ttlCache := storage.NewTTLCache(store, appLogger)
	logger.Info("Хранилище кэша инициализировано", "backend", cfg.Storage.Backend)

	tokenProvider := provider.NewTokenProvider(tokenloader.NewTokenLoader(cfg.Data.TokensDir, appLogger), appLogger)
	walletProvider := provider.NewWalletProvider(
		walletloader.NewWalletFileLoader(cfg.Data.WalletsFile, appLogger),
		cfg.Data.WalletsFile,
		appLogger,
	)

	explorerClient := dex_client.NewEtherscanClient(cfg.Explorer.APIKey, cfg.Explorer.RequestsPerSecond, cfg.Explorer.Timeout, zapLogger)
	indexerClient := dex_client.NewMoralisClient(cfg.Indexer.BaseURL, cfg.Indexer.APIKey, cfg.Indexer.Timeout, zapLogger)
	dexscreenerAPIClient := dex_client.NewDEXScreenerClient(
		cfg.DEXScreener.BaseURL,
		cfg.DEXScreener.Timeout,
		zapLogger,
		cfg.DEXScreener.MaxTokensPerRequest,
	)
	logger.Info("HTTP клиенты провайдеров инициализированы.",
		"explorer", explorerClient.Enabled(), "indexer", indexerClient.Enabled())

	tokenPriceService := service.NewTokenPriceService(
		netDefProvider,
		tokenProvider,
		indexerClient,
		dexscreenerAPIClient,
		appLogger,
		service.PriceServiceOptions{
			PriceTTL:                 cfg.TokenPriceSvc.CacheTTL,
			MaxTokensPerBatchRequest: cfg.TokenPriceSvc.MaxTokensPerBatchRequest,
			MaxConcurrentRoutines:    cfg.Performance.MaxConcurrentRoutines,
		},
	)

	holdingsService := service.NewHoldingsService(netDefProvider, clientProvider, tokenProvider, tokenPriceService, appLogger, cfg.Performance.MaxConcurrentRoutines)
	historyService := service.NewHistoryService(netDefProvider, explorerClient, indexerClient, ttlCache, appLogger)
	pnlService := service.NewPNLService(historyService, tokenPriceService, ttlCache, appLogger, cfg.Performance.MaxConcurrentRoutines)
	snapshotService := service.NewSnapshotService(holdingsService, pnlService, ttlCache, appLogger)
	streamingService := service.NewStreamingService(ttlCache, appLogger)
	holderService := service.NewHolderService(clientProvider, appLogger, cfg.Performance.MaxConcurrentRoutines)
	scheduler := service.NewSnapshotScheduler(
		walletProvider,
		netDefProvider,
		snapshotService,
		appLogger,
		cfg.Snapshots.Interval,
		cfg.Snapshots.TrackedNetworks,
		cfg.Performance.MaxConcurrentRoutines,
	)
	logger.Info("Сервисы портфеля инициализированы.")

	if cfg.TokenPriceSvc.WarmUpOnStart {
		go func() {
			warmCtx, warmCancel := context.WithTimeout(ctx, 5*time.Minute)
			defer warmCancel()
			if err := tokenPriceService.WarmUp(warmCtx); err != nil {
				logger.Warn("Не удалось прогреть кэш цен", "ошибка", err)
				return
			}
			logger.Info("Начальная загрузка и кеширование цен токенов завершены.")
		}()
	}
	go scheduler.Run(ctx)

	handler := restapi.NewPortfolioHandler(restapi.Services{
		Networks:  netDefProvider,
		Holdings:  holdingsService,
		Prices:    tokenPriceService,
		History:   historyService,
		PNL:       pnlService,
		Snapshots: snapshotService,
		Streams:   streamingService,
		Holders:   holderService,
		Scheduler: scheduler,
	}, appLogger)

	router := restapi.SetupRouter(handler, restapi.RouterOptions{
		AllowedOrigins:  cfg.Server.AllowedOrigins,
		SwaggerEnabled:  cfg.Server.SwaggerEnabled,
		SwaggerSpecFile: swaggerSpecFile,
		Logger:          zapLogger.Named("http"),
	})

	srv := &http.Server{
		Addr:         fmt.Sprintf(":%s", cfg.Server.Port),
		Handler:      router,
		ReadTimeout:  cfg.Server.ReadTimeout,
		WriteTimeout: cfg.Server.WriteTimeout,
	}

	go func() {
		logger.Info("Запуск HTTP сервера", "адрес", srv.Addr)
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			logger.Fatal("Не удалось запустить HTTP сервер", "ошибка", err)
		}
	}()

	signalChan := make(chan os.Signal, 1)
	signal.Notify(signalChan, syscall.SIGINT, syscall.SIGTERM)
	<-signalChan

	logger.Info("Получен сигнал завершения. Завершение работы HTTP сервера...")
	cancel()

	shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), cfg.Server.ShutdownTimeout)
	defer shutdownCancel()
	if err := srv.Shutdown(shutdownCtx); err != nil {
		logger.Error("Ошибка при Graceful Shutdown HTTP сервера", "ошибка", err)
	} else {
		logger.Info("HTTP сервер успешно остановлен.")
	}

	logger.Info("Сервис портфелей остановлен.")
}

func openStore(ctx context.Context, cfg *configloader.Config) (kvStore, error) {
	if cfg.Storage.Backend == "redis" {
		return storage.NewRedisStore(ctx, storage.RedisOptions{
			Addr:      cfg.Storage.Redis.Addr,
			Password:  cfg.Storage.Redis.Password,
			DB:        cfg.Storage.Redis.DB,
			KeyPrefix: cfg.Storage.Redis.KeyPrefix,
		})
	}
	return storage.NewMemoryStore(cfg.Storage.CleanupInterval), nil
}
