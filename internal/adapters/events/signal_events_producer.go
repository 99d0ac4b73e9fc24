package events

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"github.com/jackc/pgx/v5/pgxpool"
	amqp "github.com/rabbitmq/amqp091-go"

	"github.com/lotline/sentinel/internal/adapters/database"
	pkgdb "github.com/lotline/sentinel/pkg/database"
	pkgevents "github.com/lotline/sentinel/pkg/events"
)

// ModerationExchange is the topic exchange fraud signal events are published to
const ModerationExchange = "moderation.events"

// SignalEventsProducer orchestrates the process of relaying fraud signal
// events from the outbox to RabbitMQ
type SignalEventsProducer struct {
	relay     *pkgevents.OutboxRelay
	publisher *pkgevents.RabbitMQPublisher
}

// NewSignalEventsProducer creates a new producer
func NewSignalEventsProducer(pool *pgxpool.Pool, conn *amqp.Connection, logger *slog.Logger) (*SignalEventsProducer, error) {
	publisher, err := pkgevents.NewRabbitMQPublisher(conn, ModerationExchange)
	if err != nil {
		return nil, fmt.Errorf("failed to create publisher: %w", err)
	}

	txManager := pkgdb.NewPostgresTransactionManager(pool, 3*time.Second)
	outboxRepo := database.NewPostgresOutboxRepository(pool)

	relay := pkgevents.NewOutboxRelay(
		outboxRepo,
		publisher,
		txManager,
		10,                   // Batch size
		500*time.Millisecond, // Polling interval
		ModerationExchange,
		logger,
	)

	return &SignalEventsProducer{
		relay:     relay,
		publisher: publisher,
	}, nil
}

// Run starts the relay loop
func (p *SignalEventsProducer) Run(ctx context.Context) error {
	return p.relay.Run(ctx)
}

// Close closes the publisher channel
func (p *SignalEventsProducer) Close() error {
	return p.publisher.Close()
}
