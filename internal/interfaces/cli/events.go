package cli

import (
	"context"
	"encoding/json"
	"os/signal"
	"sync"
	"syscall"

	"github.com/spf13/cobra"

	"github.com/turtacn/MetaboScope/internal/infrastructure/messaging/kafka"
	"github.com/turtacn/MetaboScope/internal/infrastructure/monitoring/logging"
)

// NewEventsCmd groups the pipeline event commands.
func NewEventsCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "events",
		Short: "Inspect pipeline events on Kafka",
	}
	cmd.AddCommand(newEventsTailCmd())
	return cmd
}

// eventPrinter writes one envelope per line and cancels once max envelopes
// were written. A max of zero never cancels.
type eventPrinter struct {
	mu     sync.Mutex
	enc    *json.Encoder
	max    int
	seen   int
	cancel context.CancelFunc
}

func (p *eventPrinter) handle(_ context.Context, msg *kafka.Message) error {
	env, err := kafka.MessageToEventEnvelope(msg)
	if err != nil {
		return err
	}
	p.mu.Lock()
	defer p.mu.Unlock()
	if p.max > 0 && p.seen >= p.max {
		return nil
	}
	if err := p.enc.Encode(env); err != nil {
		return err
	}
	p.seen++
	if p.max > 0 && p.seen >= p.max {
		p.cancel()
	}
	return nil
}

func newEventsTailCmd() *cobra.Command {
	var max int
	var groupID string
	cmd := &cobra.Command{
		Use:   "tail",
		Short: "Print pipeline events as JSON lines until interrupted",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			cliCtx, err := GetCLIContext(cmd)
			if err != nil {
				return err
			}
			kc := cliCtx.Config.Kafka
			if !kc.Enabled {
				return disabled("kafka")
			}
			if groupID != "" {
				kc.GroupID = groupID
			}

			ctx, stop := signal.NotifyContext(cmd.Context(), syscall.SIGINT, syscall.SIGTERM)
			defer stop()
			ctx, cancel := context.WithCancel(ctx)
			defer cancel()

			topics := kafka.EventTopics(kc.TopicPrefix)
			consumer, err := kafka.NewConsumer(consumerConfig(kc, topics), cliCtx.Logger)
			if err != nil {
				return err
			}
			defer consumer.Close()

			printer := &eventPrinter{enc: json.NewEncoder(cmd.OutOrStdout()), max: max, cancel: cancel}
			for _, t := range topics {
				consumer.Subscribe(t, printer.handle)
			}
			if err := consumer.Start(ctx); err != nil {
				return err
			}
			<-ctx.Done()
			cliCtx.Logger.Info("event tail stopped",
				logging.Int64("processed", consumer.Processed()),
				logging.Int64("failed", consumer.Failed()))
			return nil
		},
	}
	cmd.Flags().IntVarP(&max, "max", "n", 0, "stop after this many events (0: unlimited)")
	cmd.Flags().StringVar(&groupID, "group", "", "consumer group (overrides kafka.group_id)")
	return cmd
}
