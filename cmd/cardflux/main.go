// Точка входа CardFlux — backend розничного приложения для магазинов
// коллекционных карт. Загружает конфигурацию, применяет миграции,
// подключается к PostgreSQL, инициализирует клиент Identity Provider,
// собирает сервисный слой и API handlers, запускает topologymetrics,
// HTTP-сервер с JWT middleware и graceful shutdown.
package main

import (
	"context"
	"log/slog"
	"os"
	"time"

	"github.com/jackc/pgx/v5/stdlib"

	"github.com/tcgvision/cardflux-web-sub000/internal/api/handlers"
	"github.com/tcgvision/cardflux-web-sub000/internal/api/middleware"
	"github.com/tcgvision/cardflux-web-sub000/internal/config"
	"github.com/tcgvision/cardflux-web-sub000/internal/database"
	"github.com/tcgvision/cardflux-web-sub000/internal/idp"
	"github.com/tcgvision/cardflux-web-sub000/internal/repository"
	"github.com/tcgvision/cardflux-web-sub000/internal/server"
	"github.com/tcgvision/cardflux-web-sub000/internal/service"
)

func main() {
	// 1. Загрузка конфигурации из переменных окружения
	cfg, err := config.Load()
	if err != nil {
		slog.Error("Ошибка загрузки конфигурации", slog.String("error", err.Error()))
		os.Exit(1)
	}

	// 2. Настройка логирования
	logger := config.SetupLogger(cfg)
	logger.Info("CardFlux запускается",
		slog.String("version", config.Version),
		slog.Int("port", cfg.Port),
	)

	if os.Getenv("CF_DEPHEALTH_GROUP") == "" {
		logger.Warn("CF_DEPHEALTH_GROUP не задана, используется значение по умолчанию",
			slog.String("default", cfg.DephealthGroup),
		)
	}

	// 3. Применение миграций БД
	logger.Info("Применение миграций БД...")
	if err := database.Migrate(cfg, logger); err != nil {
		logger.Error("Ошибка миграций БД", slog.String("error", err.Error()))
		os.Exit(1)
	}

	// 4. Подключение к PostgreSQL (pgxpool)
	ctx := context.Background()
	pool, err := database.Connect(ctx, cfg, logger)
	if err != nil {
		logger.Error("Ошибка подключения к PostgreSQL", slog.String("error", err.Error()))
		os.Exit(1)
	}
	defer pool.Close()

	// 4.1 Адаптер pgxpool → *sql.DB для topologymetrics (connection pool mode).
	// Проверка здоровья PostgreSQL идёт через существующий пул соединений,
	// что позволяет обнаружить его исчерпание.
	pgDB := stdlib.OpenDBFromPool(pool)
	defer pgDB.Close()

	// 5. Клиент Identity Provider
	idpClient := idp.New(
		cfg.IDPURL,
		cfg.IDPClientID,
		cfg.IDPClientSecret,
		nil, // стандартный http.Client
		logger,
	)
	logger.Info("Клиент Identity Provider создан",
		slog.String("url", cfg.IDPURL),
	)

	// 6. Repositories
	shopRepo := repository.NewShopRepository(pool)
	memberRepo := repository.NewShopMembershipRepository(pool)
	productRepo := repository.NewProductRepository(pool)
	customerRepo := repository.NewCustomerRepository(pool)
	txRepo := repository.NewTransactionRepository(pool)
	txRunner := repository.NewTxRunner(pool)

	// 7. Кэш членств
	memberCache := service.NewMembershipCache(cfg.MembershipCacheSize, cfg.MembershipCacheTTL)

	// 8. Services
	membershipSvc := service.NewMembershipService(idpClient, memberRepo, memberCache, logger)
	syncSvc := service.NewSyncService(membershipSvc, idpClient, shopRepo, memberRepo, memberCache, logger)
	membersSvc := service.NewMembersService(idpClient, memberRepo, memberCache, logger)
	shopSvc := service.NewShopService(idpClient, shopRepo, txRunner, memberCache, logger)
	productSvc := service.NewProductService(productRepo, logger)
	customerSvc := service.NewCustomerService(customerRepo, logger)
	transactionSvc := service.NewTransactionService(txRepo, txRunner, logger)

	// 9. Readiness checkers (PostgreSQL + Identity Provider)
	pgChecker := database.NewReadinessChecker(pool)
	idpChecker := idp.NewReadinessChecker(idpClient)
	healthHandler := handlers.NewHealthHandler(pgChecker, idpChecker)

	// 10. API handler
	apiHandler := handlers.NewAPIHandler(
		healthHandler,
		membershipSvc,
		syncSvc,
		membersSvc,
		shopSvc,
		productSvc,
		customerSvc,
		transactionSvc,
		logger,
	)

	// 11. JWT middleware
	jwtAuth, err := middleware.NewJWTAuth(
		cfg.JWTJWKSURL,
		cfg.JWTIssuer,
		middleware.ClaimNames{
			OrgID:   cfg.JWTOrgIDClaim,
			OrgName: cfg.JWTOrgNameClaim,
			OrgRole: cfg.JWTOrgRoleClaim,
		},
		5*time.Minute,  // интервал обновления JWKS
		30*time.Second, // допуск на рассинхронизацию часов
		logger,
	)
	if err != nil {
		logger.Error("Ошибка создания JWT middleware", slog.String("error", err.Error()))
		os.Exit(1)
	}
	logger.Info("JWT middleware инициализирован",
		slog.String("jwks_url", cfg.JWTJWKSURL),
		slog.String("issuer", cfg.JWTIssuer),
	)

	// 12. topologymetrics — мониторинг зависимостей (PostgreSQL + Identity Provider)
	dephealthSvc, dephealthErr := service.NewDephealthService(
		"cardflux",
		cfg.DephealthGroup,
		pgDB,
		cfg.DatabaseURL(),
		cfg.JWTJWKSURL,
		cfg.DephealthCheckInterval,
		logger,
	)
	if dephealthErr != nil {
		logger.Warn("topologymetrics недоступен, запуск без мониторинга зависимостей",
			slog.String("error", dephealthErr.Error()),
		)
	} else {
		if startErr := dephealthSvc.Start(ctx); startErr != nil {
			logger.Warn("Ошибка запуска topologymetrics",
				slog.String("error", startErr.Error()),
			)
		} else {
			logger.Info("topologymetrics запущен",
				slog.String("group", cfg.DephealthGroup),
				slog.String("check_interval", cfg.DephealthCheckInterval.String()),
			)
		}
	}

	// 13. Создание и запуск HTTP-сервера
	srv := server.New(cfg, logger, apiHandler, jwtAuth)
	if err := srv.Run(); err != nil {
		logger.Error("Ошибка сервера", slog.String("error", err.Error()))
		os.Exit(1)
	}

	// 14. Graceful shutdown фоновых задач
	if dephealthSvc != nil {
		dephealthSvc.Stop()
	}

	logger.Info("CardFlux остановлен")
}
