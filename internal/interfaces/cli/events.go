package cli

import (
	"context"
	"encoding/json"
	"io"
	"os"
	"os/signal"
	"sync"
	"syscall"

	"github.com/spf13/cobra"
	"github.com/turtacn/ReactEA/internal/infrastructure/messaging/kafka"
	"github.com/turtacn/ReactEA/internal/infrastructure/monitoring/logging"
	"github.com/turtacn/ReactEA/pkg/errors"
)

type eventsOptions struct {
	group  string
	runID  string
	limit  int
	latest bool
}

// NewEventsCmd tails the transformation event stream.
func NewEventsCmd() *cobra.Command {
	opts := &eventsOptions{}
	cmd := &cobra.Command{
		Use:   "events",
		Short: "Print transformation events from Kafka as JSON lines",
		RunE: func(cmd *cobra.Command, args []string) error {
			return tailEvents(cmd, opts)
		},
	}
	f := cmd.Flags()
	f.StringVar(&opts.group, "group", "reactea-cli", "consumer group ID")
	f.StringVar(&opts.runID, "run", "", "only print events of this run")
	f.IntVar(&opts.limit, "limit", 0, "stop after this many events (0 = until interrupted)")
	f.BoolVar(&opts.latest, "latest", false, "start from the newest offset when the group has none")
	return cmd
}

func tailEvents(cmd *cobra.Command, opts *eventsOptions) error {
	cliCtx, err := GetCLIContext(cmd)
	if err != nil {
		return err
	}
	cfg, err := cliCtx.RequireConfig()
	if err != nil {
		return err
	}
	if len(cfg.Kafka.Brokers) == 0 {
		return errors.InvalidParam("kafka.brokers is empty")
	}

	offset := "earliest"
	if opts.latest {
		offset = "latest"
	}
	consumer, err := kafka.NewConsumer(kafka.ConsumerConfig{
		Brokers:         cfg.Kafka.Brokers,
		GroupID:         opts.group,
		Topics:          []string{cfg.Kafka.Topic},
		AutoOffsetReset: offset,
		Security:        kafka.SecurityFromConfig(cfg.Kafka),
	}, cliCtx.Logger)
	if err != nil {
		return err
	}
	defer consumer.Close()

	ctx, stop := signal.NotifyContext(cmd.Context(), os.Interrupt, syscall.SIGTERM)
	defer stop()
	ctx, cancel := context.WithCancel(ctx)
	defer cancel()

	p := newEventPrinter(cmd.OutOrStdout(), opts.runID, opts.limit, cancel, cliCtx.Logger)
	if err := consumer.Subscribe(cfg.Kafka.Topic, p.handle); err != nil {
		return err
	}
	if err := consumer.Start(ctx); err != nil {
		return err
	}
	<-ctx.Done()
	return nil
}

// eventPrinter writes decoded events as JSON lines and calls done once
// limit events were written.
type eventPrinter struct {
	mu     sync.Mutex
	enc    *json.Encoder
	runID  string
	limit  int
	count  int
	done   func()
	logger logging.Logger
}

func newEventPrinter(w io.Writer, runID string, limit int, done func(), logger logging.Logger) *eventPrinter {
	return &eventPrinter{enc: json.NewEncoder(w), runID: runID, limit: limit, done: done, logger: logger}
}

// handle never fails on undecodable messages, so they are skipped instead of
// retried.
func (p *eventPrinter) handle(_ context.Context, msg *kafka.Message) error {
	ev, err := kafka.DecodeTransformationEvent(msg)
	if err != nil {
		p.logger.Warn("skipping undecodable event", logging.Int64("offset", msg.Offset), logging.Err(err))
		return nil
	}
	if p.runID != "" && ev.RunID != p.runID {
		return nil
	}

	p.mu.Lock()
	defer p.mu.Unlock()
	if p.limit > 0 && p.count >= p.limit {
		return nil
	}
	if err := p.enc.Encode(ev); err != nil {
		return err
	}
	p.count++
	if p.limit > 0 && p.count == p.limit {
		p.done()
	}
	return nil
}
