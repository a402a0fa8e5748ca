package kafka

import (
	"context"
	"sync"
	"time"

	"github.com/turtacn/ReactEA/internal/infrastructure/monitoring/logging"
	"github.com/turtacn/ReactEA/internal/optimization"
)

// Publish outcomes reported to a PublishRecorder.
const (
	PublishSent    = "sent"
	PublishFailed  = "failed"
	PublishDropped = "dropped"
)

// PublishRecorder counts publish outcomes. EvolutionMetrics implements it.
type PublishRecorder interface {
	RecordPublish(status string)
}

// BatchPublisher is the subset of Producer the publisher needs.
type BatchPublisher interface {
	PublishBatch(ctx context.Context, msgs []*Message) (*BatchResult, error)
	Close() error
}

// PublisherConfig tunes the transformation stream.
type PublisherConfig struct {
	Topic        string
	BatchSize    int
	BatchTimeout time.Duration
	// Buffer bounds the events waiting to be sent; overflow is dropped.
	Buffer       int
	WriteTimeout time.Duration
}

// TransformationPublisher streams accepted mutations to Kafka. It never
// blocks the evolutionary loop: events are queued and sent in batches by a
// background goroutine, and events that do not fit the queue are dropped.
type TransformationPublisher struct {
	producer BatchPublisher
	cfg      PublisherConfig
	recorder PublishRecorder
	logger   logging.Logger

	mu     sync.RWMutex
	closed bool
	events chan *TransformationEvent
	done   chan struct{}
}

var _ optimization.TransformationLogger = (*TransformationPublisher)(nil)

// NewTransformationPublisher starts the batching goroutine. recorder may be
// nil.
func NewTransformationPublisher(producer BatchPublisher, cfg PublisherConfig, recorder PublishRecorder, logger logging.Logger) *TransformationPublisher {
	if cfg.Topic == "" {
		cfg.Topic = TopicTransformations
	}
	if cfg.BatchSize <= 0 {
		cfg.BatchSize = 100
	}
	if cfg.BatchTimeout <= 0 {
		cfg.BatchTimeout = 200 * time.Millisecond
	}
	if cfg.Buffer <= 0 {
		cfg.Buffer = 1024
	}
	if cfg.WriteTimeout <= 0 {
		cfg.WriteTimeout = 10 * time.Second
	}
	if logger == nil {
		logger = logging.NewNopLogger()
	}

	p := &TransformationPublisher{
		producer: producer,
		cfg:      cfg,
		recorder: recorder,
		logger:   logger.Named("transformation-publisher"),
		events:   make(chan *TransformationEvent, cfg.Buffer),
		done:     make(chan struct{}),
	}
	go p.loop()
	return p
}

// LogTransformation queues one event keyed by the lineage root.
func (p *TransformationPublisher) LogTransformation(settings optimization.RunInfo, solution *optimization.Solution, smiles, ruleID string) {
	if solution == nil || solution.Compound == nil {
		return
	}
	history := make([]Step, len(solution.History))
	for i, h := range solution.History {
		history[i] = Step{AncestorSMILES: h.AncestorSMILES, RuleID: h.RuleID}
	}
	ev := NewTransformationEvent(settings.RunID, settings.Experiment,
		solution.Compound.ID, solution.Compound.RootID(), solution.Compound.Generation(),
		smiles, ruleID, history)

	p.mu.RLock()
	defer p.mu.RUnlock()
	if p.closed {
		p.record(PublishDropped, 1)
		return
	}
	select {
	case p.events <- ev:
	default:
		p.record(PublishDropped, 1)
		p.logger.Warn("transformation queue full, event dropped",
			logging.String("compound_id", ev.CompoundID))
	}
}

func (p *TransformationPublisher) loop() {
	defer close(p.done)

	ticker := time.NewTicker(p.cfg.BatchTimeout)
	defer ticker.Stop()

	batch := make([]*TransformationEvent, 0, p.cfg.BatchSize)
	for {
		select {
		case ev, ok := <-p.events:
			if !ok {
				p.flush(batch)
				return
			}
			batch = append(batch, ev)
			if len(batch) >= p.cfg.BatchSize {
				p.flush(batch)
				batch = batch[:0]
			}
		case <-ticker.C:
			if len(batch) > 0 {
				p.flush(batch)
				batch = batch[:0]
			}
		}
	}
}

func (p *TransformationPublisher) flush(batch []*TransformationEvent) {
	if len(batch) == 0 {
		return
	}
	msgs := make([]*Message, 0, len(batch))
	for _, ev := range batch {
		msg, err := ev.ToMessage(p.cfg.Topic)
		if err != nil {
			p.record(PublishFailed, 1)
			continue
		}
		msgs = append(msgs, msg)
	}
	if len(msgs) == 0 {
		return
	}

	ctx, cancel := context.WithTimeout(context.Background(), p.cfg.WriteTimeout)
	defer cancel()
	res, err := p.producer.PublishBatch(ctx, msgs)
	if err != nil {
		p.record(PublishFailed, len(msgs))
		p.logger.Error("transformation batch rejected", logging.Int("size", len(msgs)), logging.Err(err))
		return
	}
	p.record(PublishSent, res.Succeeded)
	p.record(PublishFailed, res.Failed)
	if res.Failed > 0 {
		p.logger.Warn("transformation batch partially failed",
			logging.Int("succeeded", res.Succeeded),
			logging.Int("failed", res.Failed))
	}
}

func (p *TransformationPublisher) record(status string, n int) {
	if p.recorder == nil {
		return
	}
	for i := 0; i < n; i++ {
		p.recorder.RecordPublish(status)
	}
}

// Close stops accepting events, flushes what is queued and closes the
// producer. It is idempotent.
func (p *TransformationPublisher) Close() error {
	p.mu.Lock()
	if p.closed {
		p.mu.Unlock()
		return nil
	}
	p.closed = true
	close(p.events)
	p.mu.Unlock()

	<-p.done
	return p.producer.Close()
}
