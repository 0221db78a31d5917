package main

import (
	"context"
	"log"
	"net/http"
	"os/signal"
	"strconv"
	"syscall"
	"time"

	"github.com/segmentio/kafka-go"

	"github.com/example/zippee-bridge/internal/aisensy"
	"github.com/example/zippee-bridge/internal/bridge"
	"github.com/example/zippee-bridge/internal/common"
	"github.com/example/zippee-bridge/internal/events"
)

func main() {
	ctx, cancel := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer cancel()

	cfg, err := common.LoadConfig("zippee-bridge")
	if err != nil {
		log.Fatalf("load config: %v", err)
	}

	logger := common.NewLogger(cfg.ServiceName)
	if err := cfg.Validate(); err != nil {
		logger.Fatal().Err(err).Msg("invalid configuration")
	}

	shutdown, err := common.SetupOTel(ctx, cfg)
	if err != nil {
		logger.Fatal().Err(err).Msg("failed to initialise telemetry")
	}
	defer common.ShutdownTelemetry(context.Background(), shutdown)

	metricsSrv := common.StartMetricsServer(cfg.MetricsPort, logger)
	defer metricsSrv.Shutdown(context.Background())

	var publisher events.Publisher = events.Nop{}
	if len(cfg.KafkaBrokers) > 0 {
		writer := &kafka.Writer{
			Addr:         kafka.TCP(cfg.KafkaBrokers...),
			Topic:        cfg.OutcomesTopic,
			Balancer:     &kafka.Hash{},
			RequiredAcks: kafka.RequireOne,
			BatchTimeout: 10 * time.Millisecond,
			WriteTimeout: 2 * time.Second,
		}
		defer writer.Close()
		publisher = events.NewKafkaPublisher(writer)
		logger.Info().Strs("brokers", cfg.KafkaBrokers).Str("topic", cfg.OutcomesTopic).Msg("publishing outcomes to kafka")
	}

	sender := &aisensy.Client{
		Endpoint:     cfg.AiSensyEndpoint,
		APIKey:       cfg.AiSensyAPIKey,
		CampaignName: cfg.AiSensyCampaignName,
		Client:       &http.Client{Timeout: cfg.AiSensyTimeout},
	}

	server := &bridge.Server{
		Sender:        sender,
		Publisher:     publisher,
		Logger:        logger,
		WebhookSecret: cfg.WebhookSecret,
		LinkButton:    cfg.LinkButton,
	}

	srv := &http.Server{
		Addr:              ":" + strconv.Itoa(cfg.HTTPPort),
		Handler:           server.Router(),
		ReadHeaderTimeout: 10 * time.Second,
	}

	go func() {
		logger.Info().Int("port", cfg.HTTPPort).Msg("zippee bridge listening")
		if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			logger.Fatal().Err(err).Msg("bridge server failed")
		}
	}()

	<-ctx.Done()

	ctxShutdown, cancelShutdown := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancelShutdown()
	if err := srv.Shutdown(ctxShutdown); err != nil {
		logger.Error().Err(err).Msg("graceful shutdown failed")
	}
	if err := server.Wait(ctxShutdown); err != nil {
		logger.Warn().Err(err).Msg("outcome publishes still pending at shutdown")
	}
}
