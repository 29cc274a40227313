package main

import (
	"context"
	"log"

	"mockexam-registration/config"
	"mockexam-registration/internal/cache"
	"mockexam-registration/internal/codegen"
	"mockexam-registration/internal/database"
	"mockexam-registration/internal/handler"
	"mockexam-registration/internal/queue"
	"mockexam-registration/internal/repository"
	"mockexam-registration/internal/service"
	"mockexam-registration/internal/status"
	"mockexam-registration/internal/worker"

	"github.com/gin-gonic/gin"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

func main() {
	cfg := config.LoadConfig()

	pool, err := database.InitDatabase(&cfg.Database)
	if err != nil {
		log.Fatalf("Failed to initialize database: %v", err)
	}
	defer pool.Close()

	rdb, err := database.InitRedis(&cfg.Redis)
	if err != nil {
		log.Fatalf("Failed to initialize redis: %v", err)
	}
	defer rdb.Close()

	ledgerRepo := repository.NewLedgerRepository(pool)
	codeRepo := repository.NewCodeRepository(pool)

	confirmationQueue, err := queue.NewRedisStreamConfirmationQueue(rdb, "", nil)
	if err != nil {
		log.Fatalf("Failed to initialize confirmation queue: %v", err)
	}

	issuer := codegen.NewIssuer(codeRepo, cfg.Code)
	allocationService := service.NewAllocationService(ledgerRepo, issuer, confirmationQueue, cfg.Capacity.ReserveRetries)

	thresholds := status.Thresholds{
		LimitedRatio:      cfg.Capacity.LimitedRatio,
		AdvancedOnlyRatio: cfg.Capacity.AdvancedOnlyRatio,
	}
	statusCache := cache.NewStatusCache(rdb)
	statusService := service.NewStatusService(ledgerRepo, statusCache, thresholds, cfg.Capacity.StatusCacheTTL)

	codeService := service.NewCodeService(codeRepo)

	confirmationWorker := worker.NewConfirmationWorker(worker.NewLogNotifier(), confirmationQueue)
	if err := confirmationWorker.Start(context.Background()); err != nil {
		log.Fatalf("Failed to start confirmation worker: %v", err)
	}

	router := gin.Default()
	router.GET("/ping", func(c *gin.Context) {
		c.JSON(200, gin.H{
			"message": "pong",
		})
	})
	router.GET("/metrics", gin.WrapH(promhttp.Handler()))

	handler.NewRegistrationHandler(allocationService).RegisterRoutes(router)
	handler.NewStatusHandler(statusService).RegisterRoutes(router)
	handler.NewCodeHandler(codeService).RegisterRoutes(router)
	handler.NewAdminHandler(ledgerRepo, cfg.Capacity).RegisterRoutes(router)

	router.Run()
}
