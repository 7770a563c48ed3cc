package skills

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"github.com/skillskit/skills-server/internal/cards"
	"github.com/skillskit/skills-server/internal/cloud"
)

// FailureType selects the invocation status written with an error card.
type FailureType int

const (
	PermanentFailure FailureType = iota
	TransientFailure
)

func (f FailureType) status() cards.InvocationStatus {
	if f == TransientFailure {
		return cards.StatusTransientFailure
	}
	return cards.StatusPermanentFailure
}

// SkillsWriter builds and saves metadata cards for one invocation.
type SkillsWriter struct {
	*cards.Builder

	fc     FileContext
	client cloud.Client
	logger *slog.Logger
}

// WriterOption configures a SkillsWriter.
type WriterOption func(*writerConfig)

type writerConfig struct {
	logger     *slog.Logger
	now        func() time.Time
	thumbnails *cards.Thumbnailer
}

// WithWriterLogger sets the writer's logger.
func WithWriterLogger(logger *slog.Logger) WriterOption {
	return func(c *writerConfig) { c.logger = logger }
}

// WithWriterClock overrides the clock used for card timestamps.
func WithWriterClock(now func() time.Time) WriterOption {
	return func(c *writerConfig) { c.now = now }
}

// WithThumbnailer sets the thumbnailer used for faces cards.
func WithThumbnailer(t *cards.Thumbnailer) WriterOption {
	return func(c *writerConfig) { c.thumbnails = t }
}

// NewSkillsWriter returns a writer for fc. client must be scoped to the
// file write token.
func NewSkillsWriter(fc FileContext, client cloud.Client, opts ...WriterOption) *SkillsWriter {
	cfg := writerConfig{logger: slog.Default(), now: time.Now}
	for _, opt := range opts {
		opt(&cfg)
	}

	builderOpts := []cards.BuilderOption{
		cards.WithClock(cfg.now),
		cards.WithLogger(cfg.logger),
	}
	if cfg.thumbnails != nil {
		builderOpts = append(builderOpts, cards.WithThumbnailer(cfg.thumbnails))
	}

	return &SkillsWriter{
		Builder: cards.NewBuilder(fc.SkillID, fc.RequestID, builderOpts...),
		fc:      fc,
		client:  client,
		logger:  cfg.logger,
	}
}

// SaveProcessingCard shows a pending status card while the skill runs.
func (w *SkillsWriter) SaveProcessingCard(ctx context.Context) error {
	card := w.StatusCard(cards.TitleStatus, cards.Status{
		Code:    cards.PendingStatusCode,
		Message: cards.PendingStatusMessage,
	})
	return w.SaveDataCards(ctx, []cards.Card{card}, cards.StatusProcessing, nil)
}

// SaveErrorCard replaces the file's cards with an error card. An invalid
// code becomes CodeUnknown. A non-empty customMessage is written with the
// custom_error code instead.
func (w *SkillsWriter) SaveErrorCard(ctx context.Context, code Code, customMessage string, failure FailureType) error {
	if !code.Valid() {
		code = CodeUnknown
	}
	// The status carries the code together with its default message.
	status := cards.Status{Code: string(code), Message: Message(code)}
	if customMessage != "" {
		status = cards.Status{Code: cards.CustomErrorStatusCode, Message: customMessage}
	}
	card := w.StatusCard(cards.TitleError, status)
	return w.SaveDataCards(ctx, []cards.Card{card}, failure.status(), nil)
}

// SaveDataCards writes list to the file. An invalid status becomes success.
// Usage is only reported on success and defaults to one file.
func (w *SkillsWriter) SaveDataCards(ctx context.Context, list []cards.Card, status cards.InvocationStatus, usage *cards.Usage) error {
	body := cards.NewInvocation(w.fc.FileID, list, status, usage)
	if err := w.client.Invocations().Put(ctx, w.fc.SkillID, body); err != nil {
		w.logger.Error("failed to save skill cards",
			"status", body.Status,
			"card_count", len(list),
			"error", err,
		)
		return fmt.Errorf("save skill cards: %w", err)
	}
	return nil
}
