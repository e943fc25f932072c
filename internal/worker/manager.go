package worker

import (
	"context"
	"fmt"
	"sync"
	"time"

	"github.com/rs/zerolog"

	"videotube/internal/logging"
	"videotube/internal/queue"
)

const (
	DefaultWorkerCount = 2

	// DefaultBatchSize is the number of messages to read per batch
	DefaultBatchSize = 10

	// DefaultBlockTimeout is how long a read waits for new messages
	DefaultBlockTimeout = 5 * time.Second
)

// EventHandler processes one decoded event.
type EventHandler interface {
	HandleEvent(ctx context.Context, event queue.RelationEvent) error
}

// Manager runs worker goroutines that consume the relation stream as one consumer group.
type Manager struct {
	consumer    queue.Consumer
	handler     EventHandler
	workerCount int
	batchSize   int64
	blockTime   time.Duration
	backoff     time.Duration

	wg     sync.WaitGroup
	ctx    context.Context
	cancel context.CancelFunc
}

type ManagerConfig struct {
	WorkerCount  int
	BatchSize    int64
	BlockTimeout time.Duration
}

func DefaultManagerConfig() ManagerConfig {
	return ManagerConfig{
		WorkerCount:  DefaultWorkerCount,
		BatchSize:    DefaultBatchSize,
		BlockTimeout: DefaultBlockTimeout,
	}
}

func NewManager(consumer queue.Consumer, handler EventHandler, cfg ManagerConfig) *Manager {
	if cfg.WorkerCount <= 0 {
		cfg.WorkerCount = DefaultWorkerCount
	}
	if cfg.BatchSize <= 0 {
		cfg.BatchSize = DefaultBatchSize
	}
	if cfg.BlockTimeout <= 0 {
		cfg.BlockTimeout = DefaultBlockTimeout
	}

	return &Manager{
		consumer:    consumer,
		handler:     handler,
		workerCount: cfg.WorkerCount,
		batchSize:   cfg.BatchSize,
		blockTime:   cfg.BlockTimeout,
		backoff:     time.Second,
	}
}

// Start ensures the consumer group exists and launches the workers.
// Call Stop to shut them down.
func (m *Manager) Start(ctx context.Context) error {
	m.ctx, m.cancel = context.WithCancel(ctx)

	if err := m.consumer.EnsureGroup(m.ctx, queue.StreamRelations, queue.ConsumerGroupCounters); err != nil {
		m.cancel()
		return err
	}

	for i := 1; i <= m.workerCount; i++ {
		m.wg.Add(1)
		go m.runWorker(consumerNameForWorker(i))
	}

	logging.Info().
		Int("workers", m.workerCount).
		Str("stream", queue.StreamRelations).
		Str("group", queue.ConsumerGroupCounters).
		Msg("workers started")
	return nil
}

// Stop cancels the workers and waits for them to finish.
func (m *Manager) Stop() {
	if m.cancel == nil {
		return
	}
	m.cancel()
	m.wg.Wait()
	logging.Info().Msg("workers stopped")
}

func (m *Manager) runWorker(consumerName string) {
	defer m.wg.Done()

	log := logging.WithComponent("worker").With().Str("consumer", consumerName).Logger()

	// Messages delivered before a crash are still pending for this consumer name.
	m.processPending(consumerName, log)

	for {
		select {
		case <-m.ctx.Done():
			return
		default:
			m.processMessages(consumerName, log)
		}
	}
}

func (m *Manager) processPending(consumerName string, log zerolog.Logger) {
	for m.ctx.Err() == nil {
		messages, err := m.consumer.ReadPending(m.ctx, queue.StreamRelations, queue.ConsumerGroupCounters, consumerName, m.batchSize)
		if err != nil {
			log.Warn().Err(err).Msg("reading pending messages failed")
			return
		}
		if len(messages) == 0 {
			return
		}
		log.Info().Int("count", len(messages)).Msg("replaying pending messages")
		m.handleMessages(messages, log)
	}
}

func (m *Manager) processMessages(consumerName string, log zerolog.Logger) {
	messages, err := m.consumer.Read(
		m.ctx,
		queue.StreamRelations,
		queue.ConsumerGroupCounters,
		consumerName,
		m.batchSize,
		m.blockTime,
	)
	if err != nil {
		if m.ctx.Err() != nil {
			return
		}
		log.Warn().Err(err).Msg("read failed")
		select {
		case <-m.ctx.Done():
		case <-time.After(m.backoff):
		}
		return
	}

	if len(messages) > 0 {
		m.handleMessages(messages, log)
	}
}

// handleMessages acks every message, including failed ones. The reconciler
// repairs whatever a dropped event would have fixed.
func (m *Manager) handleMessages(messages []queue.Message, log zerolog.Logger) {
	for _, msg := range messages {
		if err := m.handler.HandleEvent(m.ctx, msg.Event); err != nil {
			log.Warn().Err(err).Str("msg_id", msg.ID).Msg("handler error")
		}
		if err := m.consumer.Ack(m.ctx, queue.StreamRelations, queue.ConsumerGroupCounters, msg.ID); err != nil {
			log.Warn().Err(err).Str("msg_id", msg.ID).Msg("ack failed")
		}
	}
}

func consumerNameForWorker(workerID int) string {
	return fmt.Sprintf("worker-%d", workerID)
}
