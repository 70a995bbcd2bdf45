package queue

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
	amqp "github.com/rabbitmq/amqp091-go"

	"github.com/xavierca1/ligue-leads/internal/entity"
	"github.com/xavierca1/ligue-leads/internal/usecase"
)

var messagesProcessed = promauto.NewCounterVec(
	prometheus.CounterOpts{
		Name: "lead_events_processed_total",
		Help: "Lead-captured events handled by the worker",
	},
	[]string{"result"},
)

// Notifier tells a human about a new lead.
type Notifier interface {
	NotifyNewLead(ctx context.Context, lead entity.Lead) error
}

// Notifiers fans a lead out to every notifier; all are attempted.
type Notifiers []Notifier

func (ns Notifiers) NotifyNewLead(ctx context.Context, lead entity.Lead) error {
	var errs []error
	for _, n := range ns {
		if err := n.NotifyNewLead(ctx, lead); err != nil {
			errs = append(errs, err)
		}
	}
	return errors.Join(errs...)
}

type consumer interface {
	Consume(queue, consumer string, autoAck, exclusive, noLocal, noWait bool, args amqp.Table) (<-chan amqp.Delivery, error)
}

type Worker struct {
	Channel  consumer
	Archiver usecase.Archiver
	Notifier Notifier
	Logger   *slog.Logger
}

func NewWorker(ch *amqp.Channel, archiver usecase.Archiver, notifier Notifier, logger *slog.Logger) *Worker {
	return &Worker{
		Channel:  ch,
		Archiver: archiver,
		Notifier: notifier,
		Logger:   logger,
	}
}

// Start consumes queueName until ctx is done or the delivery channel closes.
func (w *Worker) Start(ctx context.Context, queueName string) error {
	msgs, err := w.Channel.Consume(queueName, "", false, false, false, false, nil)
	if err != nil {
		return fmt.Errorf("register consumer: %w", err)
	}

	w.Logger.Info("worker waiting for messages", "queue", queueName)
	for {
		select {
		case <-ctx.Done():
			return nil
		case d, ok := <-msgs:
			if !ok {
				return fmt.Errorf("delivery channel closed")
			}
			w.handle(ctx, d)
		}
	}
}

// handle acks on success; failures are rejected without requeue so they
// dead-letter instead of looping.
func (w *Worker) handle(ctx context.Context, d amqp.Delivery) {
	if err := w.processMessage(ctx, d.Body); err != nil {
		w.Logger.Error("lead event failed", "message_id", d.MessageId, "error", err)
		messagesProcessed.WithLabelValues("failed").Inc()
		if err := d.Nack(false, false); err != nil {
			w.Logger.Error("nack failed", "error", err)
		}
		return
	}
	messagesProcessed.WithLabelValues("ok").Inc()
	if err := d.Ack(false); err != nil {
		w.Logger.Error("ack failed", "error", err)
	}
}

func (w *Worker) processMessage(ctx context.Context, body []byte) error {
	var doc usecase.ArchiveDocument
	if err := json.Unmarshal(body, &doc); err != nil {
		return fmt.Errorf("decode event: %w", err)
	}
	if doc.Lead.LeadID == "" || doc.Lead.ConferenceID == "" {
		return fmt.Errorf("event without lead key")
	}

	if err := w.Archiver.Archive(ctx, doc); err != nil {
		return fmt.Errorf("archive lead %s: %w", doc.Lead.LeadID, err)
	}

	if w.Notifier != nil {
		if err := w.Notifier.NotifyNewLead(ctx, doc.Lead); err != nil {
			return fmt.Errorf("notify lead %s: %w", doc.Lead.LeadID, err)
		}
	}

	w.Logger.Info("lead event processed", "lead_id", doc.Lead.LeadID, "conference_id", doc.Lead.ConferenceID)
	return nil
}
