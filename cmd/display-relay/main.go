package main

import (
	"context"
	"encoding/json"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"deskline/internal/config"
	"deskline/internal/kafkax"
	"deskline/internal/store"
	"deskline/internal/store/postgres"

	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

const (
	appName    = "display-relay"
	offsetName = "display-relay"
	zeroUUID   = "00000000-0000-0000-0000-000000000000"
)

// relayEnvelope is the record shape published to Kafka. Downstream display
// boards filter on the channel field.
type relayEnvelope struct {
	EventID   string          `json:"event_id"`
	Channel   string          `json:"channel"`
	Type      string          `json:"type"`
	Payload   json.RawMessage `json:"payload"`
	CreatedAt time.Time       `json:"created_at"`
}

func main() {
	cfg := config.Load()
	log := slog.New(slog.NewJSONHandler(os.Stdout, &slog.HandlerOptions{
		Level: slog.LevelInfo,
	})).With(slog.String("app", appName))

	if cfg.DatabaseURL == "" {
		log.Error("DB_DSN is empty")
		return
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	pool, err := pgxpool.New(ctx, cfg.DatabaseURL)
	if err != nil {
		log.Error("db_open_failed", slog.String("err", err.Error()))
		return
	}
	defer pool.Close()

	st := postgres.NewStore(pool, postgres.Options{})

	producer := kafkax.NewProducer(kafkax.ProducerConfig{
		Brokers:  cfg.KafkaBrokers,
		Topic:    cfg.KafkaTopic,
		ClientID: cfg.KafkaClientID,
	})
	defer func() {
		if err := producer.Close(); err != nil {
			log.Error("producer_close_failed", slog.String("err", err.Error()))
		}
	}()

	reg := prometheus.NewRegistry()
	m := newRelayMetrics(reg)

	metricsSrv := &http.Server{
		Addr:              cfg.MetricsAddr,
		Handler:           promhttp.HandlerFor(reg, promhttp.HandlerOpts{}),
		ReadHeaderTimeout: 5 * time.Second,
	}

	go func() {
		log.Info("metrics_listen", slog.String("addr", metricsSrv.Addr))
		if err := metricsSrv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			log.Error("metrics_server_error", slog.String("err", err.Error()))
		}
	}()

	offset, err := st.GetRelayOffset(ctx, offsetName)
	if err != nil {
		log.Error("load_offset_failed", slog.String("err", err.Error()))
		return
	}
	if offset.LastEventTime.IsZero() {
		offset.LastEventTime = time.Unix(0, 0).UTC()
	}
	if offset.LastEventID == "" {
		offset.LastEventID = zeroUUID
	}
	if cfg.RelayPollInterval <= 0 {
		cfg.RelayPollInterval = time.Second
	}

	log.Info("relay_start",
		slog.Int("batch_size", cfg.RelayBatchSize),
		slog.String("poll_interval", cfg.RelayPollInterval.String()),
		slog.String("topic", cfg.KafkaTopic),
	)

	ticker := time.NewTicker(cfg.RelayPollInterval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
			defer cancel()
			_ = metricsSrv.Shutdown(shutdownCtx)
			log.Info("relay_shutdown")
			return
		case <-ticker.C:
			m.pollsTotal.Inc()
			offset = relayOnce(ctx, log, st, producer, m, offset, cfg.RelayBatchSize)
		}
	}
}

func relayOnce(ctx context.Context, log *slog.Logger, st store.OutboxStore, producer *kafkax.Producer, m *relayMetrics, offset store.RelayOffset, batchSize int) store.RelayOffset {
	listCtx, cancel := context.WithTimeout(ctx, 5*time.Second)
	events, err := st.ListOutboxEvents(listCtx, offset, batchSize)
	cancel()
	if err != nil {
		m.listErrorsTotal.Inc()
		log.Error("outbox_list_failed", slog.String("err", err.Error()))
		return offset
	}
	if len(events) == 0 {
		m.lagSeconds.Set(0)
		return offset
	}

	m.fetchedTotal.Add(float64(len(events)))
	m.lagSeconds.Set(time.Since(events[0].CreatedAt).Seconds())

	for _, event := range events {
		env := relayEnvelope{
			EventID:   event.EventID,
			Channel:   event.Channel,
			Type:      event.Type,
			Payload:   event.Payload,
			CreatedAt: event.CreatedAt,
		}
		value, err := json.Marshal(env)
		if err != nil {
			m.publishErrorsTotal.Inc()
			log.Error("outbox_marshal_failed", slog.String("event_id", event.EventID), slog.String("err", err.Error()))
			return offset
		}

		// Key by channel so each display board sees its events in order.
		if err := producer.Produce(ctx, []byte(event.Channel), value, 0); err != nil {
			m.publishErrorsTotal.Inc()
			log.Error("outbox_publish_failed", slog.String("event_id", event.EventID), slog.String("err", err.Error()))
			return offset
		}
		m.publishedTotal.Inc()
		offset.LastEventTime = event.CreatedAt
		offset.LastEventID = event.EventID
	}

	saveCtx, cancel := context.WithTimeout(ctx, 5*time.Second)
	defer cancel()
	if err := st.UpdateRelayOffset(saveCtx, offsetName, offset); err != nil {
		m.offsetErrorsTotal.Inc()
		log.Error("update_offset_failed", slog.String("err", err.Error()))
	}
	return offset
}

type relayMetrics struct {
	pollsTotal         prometheus.Counter
	fetchedTotal       prometheus.Counter
	publishedTotal     prometheus.Counter
	listErrorsTotal    prometheus.Counter
	publishErrorsTotal prometheus.Counter
	offsetErrorsTotal  prometheus.Counter
	lagSeconds         prometheus.Gauge
}

func newRelayMetrics(reg prometheus.Registerer) *relayMetrics {
	m := &relayMetrics{
		pollsTotal: prometheus.NewCounter(prometheus.CounterOpts{
			Name: "display_relay_polls_total",
			Help: "Total number of outbox polling ticks.",
		}),
		fetchedTotal: prometheus.NewCounter(prometheus.CounterOpts{
			Name: "display_relay_fetched_total",
			Help: "Total number of outbox rows fetched.",
		}),
		publishedTotal: prometheus.NewCounter(prometheus.CounterOpts{
			Name: "display_relay_published_total",
			Help: "Total number of events published to Kafka.",
		}),
		listErrorsTotal: prometheus.NewCounter(prometheus.CounterOpts{
			Name: "display_relay_list_errors_total",
			Help: "Total number of outbox list errors.",
		}),
		publishErrorsTotal: prometheus.NewCounter(prometheus.CounterOpts{
			Name: "display_relay_publish_errors_total",
			Help: "Total number of publish errors.",
		}),
		offsetErrorsTotal: prometheus.NewCounter(prometheus.CounterOpts{
			Name: "display_relay_offset_errors_total",
			Help: "Total number of errors while saving the relay offset.",
		}),
		lagSeconds: prometheus.NewGauge(prometheus.GaugeOpts{
			Name: "display_relay_lag_seconds",
			Help: "Lag in seconds between now and the oldest fetched outbox row.",
		}),
	}

	reg.MustRegister(
		m.pollsTotal,
		m.fetchedTotal,
		m.publishedTotal,
		m.listErrorsTotal,
		m.publishErrorsTotal,
		m.offsetErrorsTotal,
		m.lagSeconds,
	)

	return m
}
