// Package invocation turns webhook deliveries into skill runs.
//
// A Processor parses the event, guards against redelivery, runs the named
// handler with token-scoped reader and writer, and writes an error card when
// the handler fails. The platform is always answered with 200 so it does not
// retry a delivery the skill has already handled.
package invocation

import (
	"context"
	"errors"
	"log/slog"
	"sync"
	"time"

	"github.com/skillskit/skills-server/internal/cards"
	"github.com/skillskit/skills-server/internal/cloud"
	"github.com/skillskit/skills-server/internal/dedup"
	"github.com/skillskit/skills-server/internal/handlers"
	"github.com/skillskit/skills-server/internal/ledger"
	"github.com/skillskit/skills-server/internal/logging"
	"github.com/skillskit/skills-server/internal/skills"
)

const (
	// ProcessedMessage is the body of every webhook response.
	ProcessedMessage = "Box event was processed by skill"

	DefaultTimeout = 5 * time.Minute

	// errorCardTimeout bounds the error card write once the invocation
	// context is already done.
	errorCardTimeout = 10 * time.Second
)

// Response is returned to the platform for every delivery.
type Response struct {
	StatusCode int    `json:"statusCode"`
	Body       string `json:"body"`
}

func processed() Response {
	return Response{StatusCode: 200, Body: ProcessedMessage}
}

// Processor runs skills for webhook deliveries.
type Processor struct {
	registry *handlers.Registry
	factory  cloud.Factory
	parser   skills.EventParser
	guard    dedup.Guard
	ledger   ledger.Repository

	poll       skills.PollPolicy
	thumbnails *cards.Thumbnailer
	timeout    time.Duration
	async      bool
	logger     *slog.Logger

	wg sync.WaitGroup
}

// Option configures a Processor.
type Option func(*Processor)

// WithGuard skips request ids the guard has already seen.
func WithGuard(g dedup.Guard) Option {
	return func(p *Processor) { p.guard = g }
}

// WithLedger records every invocation in repo.
func WithLedger(repo ledger.Repository) Option {
	return func(p *Processor) { p.ledger = repo }
}

func WithEventParser(parser skills.EventParser) Option {
	return func(p *Processor) { p.parser = parser }
}

func WithPollPolicy(policy skills.PollPolicy) Option {
	return func(p *Processor) { p.poll = policy }
}

func WithThumbnailer(t *cards.Thumbnailer) Option {
	return func(p *Processor) { p.thumbnails = t }
}

// WithTimeout bounds a single invocation. Zero disables the bound.
func WithTimeout(d time.Duration) Option {
	return func(p *Processor) { p.timeout = d }
}

// WithAsync answers deliveries before the skill runs.
func WithAsync(async bool) Option {
	return func(p *Processor) { p.async = async }
}

func WithLogger(logger *slog.Logger) Option {
	return func(p *Processor) { p.logger = logger }
}

// New returns a Processor that builds per-token clients with factory.
func New(registry *handlers.Registry, factory cloud.Factory, opts ...Option) *Processor {
	p := &Processor{
		registry: registry,
		factory:  factory,
		poll:     skills.DefaultPollPolicy(),
		timeout:  DefaultTimeout,
		logger:   slog.Default(),
	}
	for _, opt := range opts {
		opt(p)
	}
	p.logger = logging.WithComponent(p.logger, "invocation")
	return p
}

// Process handles one delivery of skillName. It always returns a 200
// response; failures are reported through error cards and logs.
func (p *Processor) Process(ctx context.Context, skillName string, body []byte) Response {
	h, ok := p.registry.Get(skillName)
	if !ok {
		p.logger.Warn("unknown skill", "skill", skillName, "known", p.registry.Names())
		return processed()
	}

	fc, err := p.parser.Parse(body)
	if err != nil {
		// Without a write token there is nowhere to put an error card.
		p.logger.Error("failed to parse event", "skill", skillName, "error", err)
		return processed()
	}

	logger := logging.WithFileID(logging.WithSkill(logging.WithRequestID(p.logger, fc.RequestID), skillName, fc.SkillID), fc.FileID)

	if p.guard != nil {
		claimed, err := p.guard.Claim(ctx, fc.RequestID)
		if err != nil {
			logger.Warn("dedup guard unavailable, processing anyway", "error", err)
		} else if !claimed {
			logger.Info("skipping redelivered event")
			return processed()
		}
	}

	// The platform may hang up before the skill finishes; the run is bounded
	// by the invocation timeout, not by the caller.
	runCtx := context.WithoutCancel(ctx)

	if p.async {
		p.wg.Add(1)
		go func() {
			defer p.wg.Done()
			p.run(runCtx, h, fc, logger)
		}()
		return processed()
	}

	p.run(runCtx, h, fc, logger)
	return processed()
}

// Wait blocks until background invocations finish or ctx is done.
func (p *Processor) Wait(ctx context.Context) error {
	done := make(chan struct{})
	go func() {
		p.wg.Wait()
		close(done)
	}()

	select {
	case <-done:
		return nil
	case <-ctx.Done():
		return ctx.Err()
	}
}

func (p *Processor) run(ctx context.Context, h handlers.Handler, fc skills.FileContext, logger *slog.Logger) {
	if p.timeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, p.timeout)
		defer cancel()
	}

	start := time.Now()
	p.startLedger(ctx, h.Name(), fc, logger)

	writeClient := newTrackingClient(p.factory(fc.FileWriteToken))
	req := &handlers.Request{
		Reader: skills.NewFilesReader(fc, p.factory(fc.FileReadToken),
			skills.WithPollPolicy(p.poll),
			skills.WithReaderLogger(logger),
		),
		Writer: p.newWriter(fc, writeClient, logger),
		Logger: logger,
	}

	logger.Info("invocation started", "file_name", fc.FileName, "file_type", fc.FileType)

	err := h.Handle(ctx, req)
	if err == nil {
		logger.Info("invocation succeeded", "duration_ms", time.Since(start).Milliseconds())
		p.finishLedger(ctx, fc.RequestID, ledger.Outcome{
			Status:           ledger.StatusSucceeded,
			InvocationStatus: string(writeClient.status()),
			CardCount:        writeClient.cardCount(),
		}, logger)
		return
	}

	code := skills.CodeOf(err)
	failure := classify(err)
	logger.Error("invocation failed",
		"error", err,
		"code", code,
		"transient", failure == skills.TransientFailure,
		"duration_ms", time.Since(start).Milliseconds(),
	)

	cardCtx := ctx
	if ctx.Err() != nil {
		var cancel context.CancelFunc
		cardCtx, cancel = context.WithTimeout(context.WithoutCancel(ctx), errorCardTimeout)
		defer cancel()
	}
	if werr := req.Writer.SaveErrorCard(cardCtx, code, "", failure); werr != nil {
		logger.Error("failed to save error card", "error", werr)
	}

	if failure == skills.TransientFailure && p.guard != nil {
		if rerr := p.guard.Release(cardCtx, fc.RequestID); rerr != nil {
			logger.Warn("failed to release dedup claim", "error", rerr)
		}
	}

	p.finishLedger(cardCtx, fc.RequestID, ledger.Outcome{
		Status:           ledger.StatusFailed,
		InvocationStatus: string(writeClient.status()),
		ErrorCode:        string(code),
		Error:            err.Error(),
		CardCount:        writeClient.cardCount(),
	}, logger)
}

func (p *Processor) newWriter(fc skills.FileContext, client cloud.Client, logger *slog.Logger) *skills.SkillsWriter {
	opts := []skills.WriterOption{skills.WithWriterLogger(logger)}
	if p.thumbnails != nil {
		opts = append(opts, skills.WithThumbnailer(p.thumbnails))
	}
	return skills.NewSkillsWriter(fc, client, opts...)
}

func (p *Processor) startLedger(ctx context.Context, skill string, fc skills.FileContext, logger *slog.Logger) {
	if p.ledger == nil {
		return
	}
	err := p.ledger.Start(ctx, &ledger.Invocation{
		RequestID: fc.RequestID,
		Skill:     skill,
		SkillID:   fc.SkillID,
		FileID:    fc.FileID,
		FileName:  fc.FileName,
		FileSize:  fc.FileSize,
	})
	if err != nil {
		logger.Warn("failed to record invocation start", "error", err)
	}
}

func (p *Processor) finishLedger(ctx context.Context, requestID string, o ledger.Outcome, logger *slog.Logger) {
	if p.ledger == nil {
		return
	}
	if err := p.ledger.Finish(ctx, requestID, o); err != nil {
		logger.Warn("failed to record invocation outcome", "error", err)
	}
}

// classify decides whether the platform may retry a failed invocation.
func classify(err error) skills.FailureType {
	switch {
	case skills.IsTransient(err),
		cloud.IsRetryable(err),
		errors.Is(err, context.DeadlineExceeded),
		errors.Is(err, context.Canceled):
		return skills.TransientFailure
	default:
		return skills.PermanentFailure
	}
}
