// Package dispatch orchestrates the per-event pipeline: classify each
// inbound event, route it down the record path or the generation path, and
// send exactly one reply per processed event. Every failure past
// classification is converted into in-persona reply text before it can
// escape; a user always gets a reply for a processed text message, even on
// total backend outage.
package dispatch

import (
	"context"
	"log/slog"
	"time"

	"github.com/google/uuid"

	"kakeibot/internal/compose"
	"kakeibot/internal/domain"
	"kakeibot/internal/journal"
	"kakeibot/internal/metrics"
	"kakeibot/internal/parser"
)

// Dispatcher routes inbound events. All dependencies are injected at
// construction and read-only thereafter; the dispatcher itself holds no
// per-request state, so concurrent webhook invocations are safe.
type Dispatcher struct {
	parser    *parser.Parser
	sink      domain.RecordSink
	journal   *journal.Store // optional local mirror, may be nil
	provider  domain.Provider
	composer  *compose.Composer
	transport domain.ReplyTransport
	system    string // persona instruction, constant per deployment
	timeout   time.Duration
	logger    *slog.Logger
}

type Config struct {
	Parser    *parser.Parser
	Sink      domain.RecordSink
	Journal   *journal.Store
	Provider  domain.Provider
	Composer  *compose.Composer
	Transport domain.ReplyTransport
	System    string
	Timeout   time.Duration // per provider/sink call
	Logger    *slog.Logger
}

func New(cfg Config) *Dispatcher {
	if cfg.Timeout <= 0 {
		cfg.Timeout = 30 * time.Second
	}
	if cfg.Logger == nil {
		cfg.Logger = slog.Default()
	}
	return &Dispatcher{
		parser:    cfg.Parser,
		sink:      cfg.Sink,
		journal:   cfg.Journal,
		provider:  cfg.Provider,
		composer:  cfg.Composer,
		transport: cfg.Transport,
		system:    cfg.System,
		timeout:   cfg.Timeout,
		logger:    cfg.Logger,
	}
}

// HandleBatch processes one webhook batch. Events are handled strictly
// sequentially so replies go out in the order their events arrived; reply
// tokens are single-use by platform contract. A failed reply send is logged
// and does not abort the remaining events.
func (d *Dispatcher) HandleBatch(ctx context.Context, events []domain.InboundEvent) {
	batchID := uuid.NewString()
	logger := d.logger.With("batch", batchID)

	metrics.InflightBatches.Inc()
	defer metrics.InflightBatches.Dec()

	for _, event := range events {
		if !event.IsTextMessage() {
			metrics.EventsSkipped.Inc()
			continue
		}
		metrics.EventsTotal.Inc()

		text := d.handleText(ctx, logger, event.Message.Text)

		reply := domain.OutboundReply{ReplyToken: event.ReplyToken, Text: text}
		if err := d.transport.Reply(ctx, reply); err != nil {
			metrics.ReplyErrors.Inc()
			logger.Error("reply send failed", "err", err)
			continue
		}
		metrics.RepliesTotal.Inc()
	}
}

// handleText produces the reply text for one utterance. A record-marked
// message that fails its grammar is answered per deployment: the simple
// grammar explains the expected syntax, the structured grammar hands the
// whole message to the coach as a consultation.
func (d *Dispatcher) handleText(ctx context.Context, logger *slog.Logger, text string) string {
	if d.parser.IsCommand(text) {
		if rec := d.parser.Parse(text); rec != nil {
			return d.recordPath(ctx, logger, *rec)
		}
		if d.parser.Grammar() == parser.GrammarStructured {
			logger.Info("record command unparsed, consulting coach", "len", len(text))
			return d.generationPath(ctx, logger, text)
		}
		logger.Info("record command rejected", "len", len(text))
		return d.composer.RecordFailure()
	}
	return d.generationPath(ctx, logger, text)
}

func (d *Dispatcher) recordPath(ctx context.Context, logger *slog.Logger, rec domain.ParsedRecord) string {
	callCtx, cancel := context.WithTimeout(ctx, d.timeout)
	defer cancel()

	res := d.sink.Record(callCtx, rec)
	switch res.Status {
	case domain.SinkStored:
		metrics.RecordsStored.Inc()
	case domain.SinkSkipped:
		metrics.RecordsSkipped.Inc()
	case domain.SinkFailed:
		metrics.RecordsFailed.Inc()
	}

	if !res.OK() {
		logger.Warn("record sink failed", "err", res.Err)
		return d.composer.RecordSinkError()
	}

	// Local mirror is best-effort and never changes the reply.
	if d.journal != nil {
		if err := d.journal.Append(ctx, rec); err != nil {
			logger.Warn("journal append failed", "err", err)
		}
	}

	logger.Info("record accepted", "amount", rec.Amount, "status", res.Status.String())
	return d.composer.RecordSuccess(rec)
}

func (d *Dispatcher) generationPath(ctx context.Context, logger *slog.Logger, text string) string {
	callCtx, cancel := context.WithTimeout(ctx, d.timeout)
	defer cancel()

	metrics.GenerationsTotal.Inc()
	start := time.Now()
	res, err := d.provider.Generate(callCtx, domain.GenerateRequest{
		System:   d.system,
		UserText: text,
	})
	metrics.GenerationLatency.Observe(time.Since(start).Seconds())

	if err != nil {
		metrics.GenerationErrors.Inc()
		logger.Error("generation failed", "provider", d.provider.Name(), "err", err)
		return d.composer.GenerationFailure()
	}
	return d.composer.GenerationSuccess(res.Text)
}
