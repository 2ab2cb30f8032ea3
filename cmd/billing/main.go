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
	"github.com/wyfcoding/propertyfinance/internal/billing/application"
	"github.com/wyfcoding/propertyfinance/internal/billing/domain"
	"github.com/wyfcoding/propertyfinance/internal/billing/infrastructure/persistence/mysql"
	billingconsumer "github.com/wyfcoding/propertyfinance/internal/billing/interfaces/consumer"
	billinghttp "github.com/wyfcoding/propertyfinance/internal/billing/interfaces/http"
	lifecycledomain "github.com/wyfcoding/propertyfinance/internal/lifecycle/domain"
	"golang.org/x/sync/errgroup"
)

var configPath = flag.String("config", "configs/billing/config.toml", "config file path")

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
		if err := db.RawDB().AutoMigrate(&domain.Installment{}, &mysql.EventPO{}, &outbox.Message{}); err != nil {
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

	// 6. 仓储与应用服务
	installmentRepo := mysql.NewInstallmentRepository(db.RawDB())
	eventStore := mysql.NewEventStore(db.RawDB())
	publisher := outbox.NewPublisher(outboxMgr)
	billingSvc := application.NewBillingService(installmentRepo, eventStore, publisher, db.RawDB())

	// 7. 消费付款阶段激活事件，生成分期排期
	phaseActivatedHandler := billingconsumer.NewPhaseActivatedHandler(billingSvc, logger.Logger)
	consumerCfg := cfg.MessageQueue.Kafka
	consumerCfg.Topic = lifecycledomain.PaymentPhaseActivatedEvent
	if consumerCfg.GroupID == "" {
		consumerCfg.GroupID = "billing-schedule-group"
	}
	phaseActivatedConsumer := kafka.NewConsumer(&consumerCfg, logger, metricsImpl)
	phaseActivatedConsumer.Start(context.Background(), 3, phaseActivatedHandler.Handle)

	// 8. 接口层
	gin.SetMode(gin.ReleaseMode)
	r := gin.New()
	r.Use(gin.Recovery(), middleware.CORS())
	billinghttp.NewHandler(billingSvc).RegisterRoutes(r.Group("/api"))

	// 9. 启动
	g, ctx := errgroup.WithContext(context.Background())

	g.Go(func() error {
		outboxProcessor.Start()
		<-ctx.Done()
		outboxProcessor.Stop()
		return nil
	})

	// 逾期盘点：每天零点后将到期未付分期标记为 OVERDUE
	g.Go(func() error {
		ticker := time.NewTicker(time.Hour)
		defer ticker.Stop()
		for {
			select {
			case <-ctx.Done():
				return nil
			case <-ticker.C:
				if _, err := billingSvc.MarkOverdue(context.Background(), time.Now()); err != nil {
					slog.Error("failed to mark overdue installments", "error", err)
				}
			}
		}
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
		_ = phaseActivatedConsumer.Close()
		return nil
	})

	if err := g.Wait(); err != nil {
		slog.Error("server exited with error", "error", err)
	}
}
