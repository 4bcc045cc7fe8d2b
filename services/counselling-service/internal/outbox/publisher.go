package outbox

import (
	"context"
	"log/slog"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/md-rashed-zaman/counselbook/libs/db"
	"github.com/md-rashed-zaman/counselbook/libs/kafkax"
	"github.com/segmentio/kafka-go"
)

// MessageWriter is the slice of *kafka.Writer the publisher needs.
type MessageWriter interface {
	WriteMessages(ctx context.Context, msgs ...kafka.Message) error
	Close() error
}

type Publisher struct {
	pool      *db.Pool
	repo      *Repository
	logger    *slog.Logger
	brokers   []string
	pollEvery time.Duration
	batchSize int
}

type PublisherConfig struct {
	Brokers   []string
	PollEvery time.Duration
	BatchSize int
}

func NewPublisher(pool *db.Pool, repo *Repository, logger *slog.Logger, cfg PublisherConfig) *Publisher {
	if cfg.PollEvery <= 0 {
		cfg.PollEvery = 2 * time.Second
	}
	if cfg.BatchSize <= 0 {
		cfg.BatchSize = 50
	}
	return &Publisher{
		pool:      pool,
		repo:      repo,
		logger:    logger,
		brokers:   cfg.Brokers,
		pollEvery: cfg.PollEvery,
		batchSize: cfg.BatchSize,
	}
}

func (p *Publisher) Run(ctx context.Context) {
	if len(p.brokers) == 0 {
		p.logger.Warn("outbox publisher disabled (no kafka brokers configured)")
		return
	}

	writer := kafkax.NewWriter(p.brokers)
	defer writer.Close()

	ticker := time.NewTicker(p.pollEvery)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			n, err := p.publishBatch(ctx, writer)
			if err != nil {
				p.logger.Error("outbox publish failed", "err", err)
				continue
			}
			if n > 0 {
				p.logger.Debug("outbox batch published", "count", n)
			}
		}
	}
}

func (p *Publisher) publishBatch(ctx context.Context, writer MessageWriter) (int, error) {
	published := 0
	err := p.pool.WithTx(ctx, func(tx pgx.Tx) error {
		records, err := p.repo.FetchUnpublished(ctx, tx, p.batchSize)
		if err != nil || len(records) == 0 {
			return err
		}

		msgs := make([]kafka.Message, 0, len(records))
		ids := make([]int64, 0, len(records))
		for _, r := range records {
			msgs = append(msgs, BuildMessage(ctx, r))
			ids = append(ids, r.ID)
		}
		if err := writer.WriteMessages(ctx, msgs...); err != nil {
			return err
		}
		published = len(records)
		return p.repo.MarkPublished(ctx, tx, ids)
	})
	return published, err
}

// BuildMessage maps an outbox row to a Kafka message, restoring the trace
// context captured when the row was written.
func BuildMessage(ctx context.Context, r Record) kafka.Message {
	msgCtx := r.Trace.Resume(ctx)
	msg := kafka.Message{
		Topic: r.EventType,
		Key:   []byte(r.AggregateID),
		Value: r.Payload,
		Time:  r.CreatedAt,
		Headers: []kafka.Header{
			{Key: kafkax.HeaderEventID, Value: []byte(r.EventID)},
			{Key: kafkax.HeaderEventType, Value: []byte(r.EventType)},
			{Key: "aggregate_type", Value: []byte(r.AggregateType)},
		},
	}
	msg.Headers = kafkax.InjectTraceHeaders(msgCtx, msg.Headers)
	return msg
}
