package app

import (
	"context"
	"errors"
	"net/http"
	"strings"
	"time"

	"github.com/prometheus/client_golang/prometheus/promhttp"
	log "github.com/sirupsen/logrus"

	healthcheck "github.com/vladislavdragonenkov/storefront/internal/health"
	"github.com/vladislavdragonenkov/storefront/internal/httpapi"
	"github.com/vladislavdragonenkov/storefront/internal/messaging/kafka"
	"github.com/vladislavdragonenkov/storefront/internal/metrics"
	"github.com/vladislavdragonenkov/storefront/internal/service/notify"
	"github.com/vladislavdragonenkov/storefront/internal/service/outbox"
	"github.com/vladislavdragonenkov/storefront/internal/version"
)

// Run поднимает HTTP API магазина, сервер метрик и, при настроенном Kafka,
// outbox-воркер с консьюмером нотификаций. Блокируется до отмены ctx или
// падения API-сервера.
func Run(ctx context.Context, cfg Config) error {
	logger := log.WithField("component", "app")

	deps, err := initRuntimeDependencies(ctx, cfg, logger)
	if err != nil {
		return err
	}
	defer func() {
		if closeErr := deps.close(); closeErr != nil {
			logger.WithError(closeErr).Warn("failed to close storage")
		}
	}()

	if cfg.WebhookSecret == "" {
		logger.Warn("webhook secret is empty, gateway callbacks will not verify")
	}

	checkoutMetrics := metrics.NewCheckoutMetrics()

	kafkaProducer, _ := initKafkaProducer(cfg.KafkaBrokers, logger)
	useOutbox := kafkaProducer != nil

	handler := buildHandler(cfg, deps, checkoutMetrics, useOutbox)

	healthHandler := healthcheck.NewHandler(version.GetVersion())
	if deps.storageChecker != nil {
		healthHandler.RegisterChecker("storage", deps.storageChecker)
	}

	metricsSrv := startMetricsServer(ctx, cfg.MetricsAddr, logger, healthHandler)

	// Outbox-воркер и консьюмер нотификаций живут только при рабочем Kafka.
	var workerCancel context.CancelFunc
	var workerDone chan struct{}
	var notifyConsumer *kafka.Consumer
	if useOutbox {
		publisher := kafka.NewOutboxPublisher(kafkaProducer, kafka.TopicOrderEvents)
		worker := outbox.NewWorker(deps.outbox, publisher,
			outbox.WithLogger(logger.WithField("component", "outbox-worker")),
			outbox.WithPollInterval(cfg.OutboxPollInterval),
			outbox.WithBatchSize(cfg.OutboxBatchSize),
			outbox.WithMaxAttempts(cfg.OutboxMaxAttempts),
			outbox.WithRetryBaseDelay(cfg.OutboxRetryDelay),
		)

		var workerCtx context.Context
		workerCtx, workerCancel = context.WithCancel(ctx)
		workerDone = make(chan struct{})
		go func() {
			defer close(workerDone)
			worker.Run(workerCtx)
		}()

		notifySvc := notify.NewService(deps.orders, deps.mailer)
		brokers := strings.Split(cfg.KafkaBrokers, ",")
		consumer, consumerErr := kafka.NewConsumer(
			brokers,
			cfg.KafkaConsumerGroup,
			[]string{kafka.TopicOrderEvents},
			notifySvc.HandleMessage,
		)
		if consumerErr != nil {
			logger.WithError(consumerErr).Warn("failed to create notification consumer, mails will not be sent")
		} else {
			notifyConsumer = consumer
			go func() {
				if startErr := consumer.Start(ctx); startErr != nil && !errors.Is(startErr, context.Canceled) {
					logger.WithError(startErr).Warn("notification consumer stopped with error")
				}
			}()
		}
	}

	apiSrv := &http.Server{
		Addr:    cfg.APIAddr,
		Handler: httpapi.NewRouter(handler, healthHandler),
	}

	errCh := make(chan error, 1)
	go func() {
		logger.Infof("HTTP API слушает %s", cfg.APIAddr)
		errCh <- apiSrv.ListenAndServe()
	}()

	shutdown := func() {
		shutdownHTTP(apiSrv, logger)
		shutdownOutboxWorker(workerCancel, workerDone, logger)
		if notifyConsumer != nil {
			if stopErr := notifyConsumer.Stop(); stopErr != nil {
				logger.WithError(stopErr).Warn("failed to stop notification consumer")
			}
		}
		shutdownHTTP(metricsSrv, logger)
		closeKafka(kafkaProducer, logger)
	}

	select {
	case <-ctx.Done():
		logger.Info("получен сигнал остановки, останавливаем HTTP API")
		shutdown()
		return ctx.Err()
	case err := <-errCh:
		shutdown()
		if errors.Is(err, http.ErrServerClosed) {
			return nil
		}
		return err
	}
}

// shutdownOutboxWorker останавливает воркер и ждёт завершения с таймаутом.
func shutdownOutboxWorker(cancel context.CancelFunc, done chan struct{}, logger *log.Entry) {
	if cancel == nil {
		return
	}
	cancel()
	select {
	case <-done:
		logger.Info("outbox worker stopped")
	case <-time.After(5 * time.Second):
		logger.Warn("outbox worker did not stop within timeout")
	}
}

// startMetricsServer запускает HTTP-обработчик /metrics для Prometheus.
func startMetricsServer(ctx context.Context, addr string, logger *log.Entry, healthHandler *healthcheck.Handler) *http.Server {
	mux := http.NewServeMux()
	mux.Handle("/metrics", promhttp.Handler())
	mux.Handle("/healthz", healthHandler)
	mux.HandleFunc("/readyz", healthHandler.ReadinessHandler)
	mux.HandleFunc("/livez", func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusOK)
		_, _ = w.Write([]byte("ok"))
	})

	srv := &http.Server{Addr: addr, Handler: mux}
	go func() {
		logger.Infof("метрики доступны по адресу %s/metrics", addr)
		logger.Infof("health checks: %s/healthz, %s/livez", addr, addr)
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			logger.WithError(err).Warn("metrics server failed")
		}
	}()

	go func() {
		<-ctx.Done()
		shutdownHTTP(srv, logger)
	}()

	return srv
}

// shutdownHTTP аккуратно останавливает HTTP-сервер.
func shutdownHTTP(srv *http.Server, logger *log.Entry) {
	if srv == nil {
		return
	}
	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	if err := srv.Shutdown(ctx); err != nil && !errors.Is(err, http.ErrServerClosed) {
		logger.WithError(err).Warn("metrics shutdown with error")
	}
}
