package main

import (
	"context"
	"flag"
	"fmt"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/wyfcoding/pkg/config"
	"github.com/wyfcoding/pkg/database"
	"github.com/wyfcoding/pkg/logging"
	"github.com/wyfcoding/pkg/messagequeue/kafka"
	"github.com/wyfcoding/pkg/messagequeue/outbox"
	"github.com/wyfcoding/pkg/metrics"
	"github.com/wyfcoding/pkg/middleware"
	approvalapp "github.com/wyfcoding/propertyfinance/internal/approval/application"
	approvaldomain "github.com/wyfcoding/propertyfinance/internal/approval/domain"
	"github.com/wyfcoding/propertyfinance/internal/approval/infrastructure/notify"
	approvalmysql "github.com/wyfcoding/propertyfinance/internal/approval/infrastructure/persistence/mysql"
	approvalhttp "github.com/wyfcoding/propertyfinance/internal/approval/interfaces/http"
	billingdomain "github.com/wyfcoding/propertyfinance/internal/billing/domain"
	billingmysql "github.com/wyfcoding/propertyfinance/internal/billing/infrastructure/persistence/mysql"
	lifecycleapp "github.com/wyfcoding/propertyfinance/internal/lifecycle/application"
	lifecycledomain "github.com/wyfcoding/propertyfinance/internal/lifecycle/domain"
	"github.com/wyfcoding/propertyfinance/internal/lifecycle/infrastructure/adapter"
	lifecyclemysql "github.com/wyfcoding/propertyfinance/internal/lifecycle/infrastructure/persistence/mysql"
	lifecycleconsumer "github.com/wyfcoding/propertyfinance/internal/lifecycle/interfaces/consumer"
	lifecyclehttp "github.com/wyfcoding/propertyfinance/internal/lifecycle/interfaces/http"
	pmcapp "github.com/wyfcoding/propertyfinance/internal/paymentchange/application"
	pmcdomain "github.com/wyfcoding/propertyfinance/internal/paymentchange/domain"
	pmcmysql "github.com/wyfcoding/propertyfinance/internal/paymentchange/infrastructure/persistence/mysql"
	pmchttp "github.com/wyfcoding/propertyfinance/internal/paymentchange/interfaces/http"
	"golang.org/x/sync/errgroup"
)

var configPath = flag.String("config", "configs/application/config.toml", "config file path")

func main() {
	flag.Parse()

	// 1. 配置
	var cfg config.Config
	if err := config.Load(*configPath, &cfg); err != nil {
		panic(fmt.Sprintf("failed to load config: %v", err))
	}

	// 2. 日志
	logCfg := &logging.Config{Service: cfg.Server.Name, Level: cfg.Log.Level}
	logger := logging.NewFromConfig(logCfg)
	slog.SetDefault(logger.Logger)

	// 3. 指标
	metricsImpl := metrics.NewMetrics(cfg.Server.Name)
	if cfg.Metrics.Enabled {
		go metricsImpl.ExposeHTTP(cfg.Metrics.Port)
	}

	// 4. 数据库
	db, err := database.NewDB(cfg.Data.Database, cfg.CircuitBreaker, logger, metricsImpl)
	if err != nil {
		slog.Error("failed to connect database", "error", err)
		os.Exit(1)
	}
	if cfg.Server.Environment == "dev" {
		if err := db.RawDB().AutoMigrate(
			&lifecycledomain.FinanceApplication{},
			&lifecycledomain.Phase{},
			&lifecycledomain.PropertyUnit{},
			&lifecycledomain.PaymentMethod{},
			&approvaldomain.StageProgress{},
			&approvaldomain.Document{},
			&approvaldomain.DocumentApproval{},
			&pmcdomain.ChangeRequest{},
			&lifecyclemysql.EventPO{},
			&outbox.Message{},
		); err != nil {
			slog.Error("failed to migrate database", "error", err)
		}
	}

	// 5. Kafka & Outbox
	kafkaProducer := kafka.NewProducer(&cfg.MessageQueue.Kafka, logger, metricsImpl)
	outboxMgr := outbox.NewManager(db.RawDB(), logger.Logger)
	pusher := func(ctx context.Context, topic, key string, payload []byte) error {
		return kafkaProducer.PublishToTopic(ctx, topic, []byte(key), payload)
	}
	outboxProcessor := outbox.NewProcessor(outboxMgr, pusher, 100, 2*time.Second)

	// 6. 仓储
	appRepo := lifecyclemysql.NewApplicationRepository(db.RawDB())
	phaseRepo := lifecyclemysql.NewPhaseRepository(db.RawDB())
	unitRepo := lifecyclemysql.NewPropertyUnitRepository(db.RawDB())
	methodRepo := lifecyclemysql.NewPaymentMethodRepository(db.RawDB())
	stageRepo := approvalmysql.NewStageRepository(db.RawDB())
	docRepo := approvalmysql.NewDocumentRepository(db.RawDB())
	approvalRepo := approvalmysql.NewApprovalRepository(db.RawDB())
	installmentRepo := billingmysql.NewInstallmentRepository(db.RawDB())
	requestRepo := pmcmysql.NewChangeRequestRepository(db.RawDB())
	eventStore := lifecyclemysql.NewEventStore(db.RawDB())
	publisher := outbox.NewPublisher(outboxMgr)

	// 7. 应用服务
	docReady := adapter.NewDocumentationReadiness(stageRepo)
	payReady := adapter.NewPaymentReadiness(installmentRepo)
	commandSvc := lifecycleapp.NewPhaseCommandService(appRepo, phaseRepo, unitRepo, methodRepo, stageRepo, docRepo, eventStore, publisher, db.RawDB())
	orchestrator := lifecycleapp.NewPhaseOrchestrator(commandSvc, appRepo, phaseRepo, unitRepo, docReady, payReady, eventStore, publisher, db.RawDB())
	querySvc := lifecycleapp.NewPhaseQueryService(appRepo, phaseRepo)
	notifier := notify.NewLogNotifier(logger.Logger)
	approvalCmdSvc := approvalapp.NewApprovalCommandService(stageRepo, docRepo, approvalRepo, phaseRepo, eventStore, publisher, notifier, orchestrator, db.RawDB())
	approvalQuerySvc := approvalapp.NewApprovalQueryService(stageRepo, docRepo, approvalRepo)
	changeSvc := pmcapp.NewChangeRequestService(requestRepo, appRepo, phaseRepo, methodRepo, installmentRepo, eventStore, publisher, commandSvc, db.RawDB())

	// 8. 消费账单侧的付款阶段结清事件
	paymentCompletedHandler := lifecycleconsumer.NewPaymentCompletedHandler(orchestrator, logger.Logger)
	consumerCfg := cfg.MessageQueue.Kafka
	consumerCfg.Topic = billingdomain.PaymentPhaseCompletedEvent
	if consumerCfg.GroupID == "" {
		consumerCfg.GroupID = "application-lifecycle-group"
	}
	paymentCompletedConsumer := kafka.NewConsumer(&consumerCfg, logger, metricsImpl)
	paymentCompletedConsumer.Start(context.Background(), 3, paymentCompletedHandler.Handle)

	// 9. 接口层
	gin.SetMode(gin.ReleaseMode)
	r := gin.New()
	r.Use(gin.Recovery(), middleware.CORS())
	api := r.Group("/api")
	lifecyclehttp.NewHandler(commandSvc, orchestrator, querySvc).RegisterRoutes(api)
	approvalhttp.NewHandler(approvalCmdSvc, approvalQuerySvc).RegisterRoutes(api)
	pmchttp.NewHandler(changeSvc).RegisterRoutes(api)

	// 10. 启动
	g, ctx := errgroup.WithContext(context.Background())

	g.Go(func() error {
		outboxProcessor.Start()
		<-ctx.Done()
		outboxProcessor.Stop()
		return nil
	})

	g.Go(func() error {
		addr := fmt.Sprintf(":%d", cfg.Server.HTTP.Port)
		server := &http.Server{Addr: addr, Handler: r}
		slog.Info("HTTP server starting", "addr", addr)
		if err := server.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			return err
		}
		return nil
	})

	g.Go(func() error {
		quit := make(chan os.Signal, 1)
		signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
		select {
		case <-quit:
			slog.Info("shutting down servers...")
		case <-ctx.Done():
			slog.Info("context cancelled, shutting down...")
		}
		_ = paymentCompletedConsumer.Close()
		return nil
	})

	if err := g.Wait(); err != nil {
		slog.Error("server exited with error", "error", err)
	}
}
