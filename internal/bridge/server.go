package bridge

import (
	"bytes"
	"context"
	"crypto/subtle"
	"encoding/json"
	"errors"
	"io"
	"net/http"
	"sync"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/google/uuid"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
	"github.com/rs/zerolog"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/propagation"

	"github.com/example/zippee-bridge/internal/aisensy"
	"github.com/example/zippee-bridge/internal/common"
	"github.com/example/zippee-bridge/internal/events"
	"github.com/example/zippee-bridge/internal/order"
)

const (
	// Banner answers every non-POST request so uptime checks see the bridge.
	Banner = "Bridge is active! Waiting for Zippee data..."

	SecretHeader    = "X-Webhook-Secret"
	RequestIDHeader = "X-Request-Id"

	maxBodyBytes = 64 << 10
)

var (
	webhookCounter = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "bridge_webhooks_total",
		Help: "Zippee webhooks handled, by result and normalized status",
	}, []string{"result", "status"})
	forwardLatency = promauto.NewHistogramVec(prometheus.HistogramOpts{
		Name:    "bridge_forward_duration_seconds",
		Help:    "Latency of AiSensy campaign sends",
		Buckets: prometheus.DefBuckets,
	}, []string{"outcome"})
)

// Sender delivers one campaign message. *aisensy.Client satisfies it.
type Sender interface {
	Send(ctx context.Context, n aisensy.Notification) (*aisensy.SendResult, error)
}

type Server struct {
	Sender    Sender
	Publisher events.Publisher
	Logger    zerolog.Logger

	// WebhookSecret, when set, must be echoed by Zippee in SecretHeader.
	WebhookSecret string
	LinkButton    bool

	NewRequestID func() string

	inflight sync.WaitGroup
}

func (s *Server) Router() http.Handler {
	r := chi.NewRouter()
	r.Get("/healthz", func(w http.ResponseWriter, _ *http.Request) {
		w.WriteHeader(http.StatusOK)
		_, _ = io.WriteString(w, "ok")
	})
	r.HandleFunc("/", s.serve)
	r.HandleFunc("/api/zippee-webhook", s.serve)
	return r
}

func (s *Server) serve(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodPost {
		w.Header().Set("Content-Type", "text/plain; charset=utf-8")
		w.WriteHeader(http.StatusOK)
		_, _ = io.WriteString(w, Banner)
		return
	}
	s.handle(w, r)
}

func (s *Server) handle(w http.ResponseWriter, r *http.Request) {
	requestID := s.requestID()
	ctx := otel.GetTextMapPropagator().Extract(r.Context(), propagation.HeaderCarrier(r.Header))
	ctx = common.ContextWithRequestID(ctx, requestID)
	ctx, span := otel.Tracer("bridge").Start(ctx, "zippee-webhook")
	defer span.End()
	span.SetAttributes(attribute.String("request.id", requestID))
	w.Header().Set(RequestIDHeader, requestID)

	logger := common.WithContext(ctx, s.Logger)
	d := &delivery{
		ctx:    ctx,
		w:      w,
		logger: logger,
		outcome: events.Outcome{
			RequestID:  requestID,
			OccurredAt: time.Now().UTC(),
		},
	}
	defer func() {
		span.SetAttributes(attribute.String("bridge.result", string(d.outcome.Result)))
		s.publish(d)
	}()

	body, err := io.ReadAll(http.MaxBytesReader(w, r.Body, maxBodyBytes))
	if err != nil {
		var tooLarge *http.MaxBytesError
		if errors.As(err, &tooLarge) {
			d.reject(http.StatusRequestEntityTooLarge, "request_too_large", err, map[string]any{
				"error": "Request body too large",
			})
			return
		}
		d.reject(http.StatusBadRequest, "unreadable_body", err, map[string]any{
			"error": "Unable to read request body",
		})
		return
	}

	if s.WebhookSecret != "" && !validSecret(r.Header.Get(SecretHeader), s.WebhookSecret) {
		d.reject(http.StatusUnauthorized, "invalid_secret", errors.New("webhook secret mismatch"), map[string]any{
			"error": "Invalid webhook secret",
		})
		return
	}

	d.body = body
	logger.Info().Str("body", string(body)).Msg("zippee webhook received")
	d.event = order.EventFromPayload(decodePayload(body, logger))
	d.outcome.OrderNo = d.event.OrderNo
	span.SetAttributes(attribute.String("order.no", d.event.OrderNo))

	if err := d.event.Validate(); err != nil {
		msg, reason := "Missing phoneNumber", "missing_phone"
		if errors.Is(err, order.ErrMissingOrderNumber) {
			msg, reason = "Missing orderNo", "missing_order_no"
		}
		d.reject(http.StatusBadRequest, reason, err, map[string]any{"error": msg})
		return
	}

	phone, err := order.FormatPhone(d.event.PhoneNumber)
	if err != nil {
		d.reject(http.StatusBadRequest, "invalid_phone", err, map[string]any{
			"error":    "Invalid phone number format",
			"received": d.event.PhoneNumber,
		})
		return
	}
	d.outcome.Destination = phone

	status := d.event.Status()
	d.outcome.Status = string(status)
	span.SetAttributes(attribute.String("order.status", string(status)))

	phrase, important := order.Important(status)
	if !important {
		d.outcome.Result = events.ResultSkipped
		logger.Info().Str("order_no", d.event.OrderNo).Str("status", string(status)).Msg("status not notified, skipping")
		d.respond(http.StatusOK, map[string]any{
			"success": true,
			"skipped": true,
			"status":  status,
		})
		return
	}

	n := s.notification(d.event, phone, phrase)
	logger.Info().
		Str("destination", phone).
		Str("order_no", d.event.OrderNo).
		Str("status", string(status)).
		Str("customer", n.UserName).
		Msg("forwarding to aisensy")

	start := time.Now()
	res, err := s.Sender.Send(ctx, n)
	if err != nil {
		forwardLatency.WithLabelValues("error").Observe(time.Since(start).Seconds())
		span.RecordError(err)
		span.SetStatus(codes.Error, "aisensy send failed")
		d.outcome.Result = events.ResultFailed
		d.outcome.Reason = "forward_failed"
		logger.Error().Err(err).
			Str("body", string(d.body)).
			Str("destination", phone).
			Msg("failed to forward to aisensy")
		d.respond(http.StatusInternalServerError, map[string]any{
			"error":   "Failed to forward to AiSensy",
			"details": aisensy.Details(err),
		})
		return
	}
	forwardLatency.WithLabelValues("ok").Observe(time.Since(start).Seconds())

	d.outcome.Result = events.ResultForwarded
	logger.Info().Int("provider_status", res.StatusCode).Str("provider_body", string(res.Body)).Msg("aisensy accepted campaign")
	d.respond(http.StatusOK, map[string]any{
		"success": true,
		"message": "Message queued",
		"status":  status,
	})
}

func (s *Server) notification(e order.Event, phone, phrase string) aisensy.Notification {
	name := e.CustomerName
	if name == "" {
		name = "Customer"
	}
	params := []string{name, e.OrderNo, phrase}
	if s.LinkButton {
		params = append(params, e.OrderNo)
	}
	return aisensy.Notification{
		Destination:    phone,
		UserName:       name,
		TemplateParams: params,
	}
}

func (s *Server) requestID() string {
	if s.NewRequestID != nil {
		return s.NewRequestID()
	}
	return uuid.NewString()
}

// publish hands the outcome to the Publisher without holding the response:
// net/http only flushes once the handler returns.
func (s *Server) publish(d *delivery) {
	webhookCounter.WithLabelValues(string(d.outcome.Result), statusLabel(d.outcome.Status)).Inc()
	if s.Publisher == nil {
		return
	}
	ctx := context.WithoutCancel(d.ctx)
	outcome := d.outcome
	s.inflight.Add(1)
	go func() {
		defer s.inflight.Done()
		if err := s.Publisher.Publish(ctx, outcome); err != nil {
			d.logger.Warn().Err(err).Str("result", string(outcome.Result)).Msg("failed to publish outcome")
		}
	}()
}

// Wait blocks until outcome publishes started by earlier requests finish, or
// ctx is done.
func (s *Server) Wait(ctx context.Context) error {
	done := make(chan struct{})
	go func() {
		s.inflight.Wait()
		close(done)
	}()
	select {
	case <-done:
		return nil
	case <-ctx.Done():
		return ctx.Err()
	}
}

// delivery carries one inbound webhook through the handler.
type delivery struct {
	ctx     context.Context
	w       http.ResponseWriter
	logger  zerolog.Logger
	body    []byte
	event   order.Event
	outcome events.Outcome
}

func (d *delivery) respond(status int, body map[string]any) {
	body["requestId"] = d.outcome.RequestID
	d.w.Header().Set("Content-Type", "application/json")
	d.w.WriteHeader(status)
	if err := json.NewEncoder(d.w).Encode(body); err != nil {
		d.logger.Error().Err(err).Msg("failed to write response")
	}
}

func (d *delivery) reject(status int, reason string, err error, body map[string]any) {
	d.outcome.Result = events.ResultRejected
	d.outcome.Reason = reason
	d.logger.Error().Err(err).
		Int("status", status).
		Str("body", string(d.body)).
		Interface("phone_number", d.event.PhoneNumber).
		Str("order_no", d.event.OrderNo).
		Msg("webhook rejected")
	d.respond(status, body)
}

// decodePayload treats an empty or malformed body as an empty object; the
// missing-field checks then answer with the specific error.
func decodePayload(body []byte, logger zerolog.Logger) map[string]any {
	payload := map[string]any{}
	if len(bytes.TrimSpace(body)) == 0 {
		return payload
	}
	dec := json.NewDecoder(bytes.NewReader(body))
	dec.UseNumber()
	if err := dec.Decode(&payload); err != nil {
		logger.Warn().Err(err).Msg("webhook body is not a JSON object")
		return map[string]any{}
	}
	return payload
}

func validSecret(got, want string) bool {
	return subtle.ConstantTimeCompare([]byte(got), []byte(want)) == 1
}

// statusLabel keeps unmapped upstream statuses from growing the label set.
func statusLabel(status string) string {
	switch {
	case status == "":
		return "none"
	case order.Known(order.Status(status)):
		return status
	default:
		return "other"
	}
}
