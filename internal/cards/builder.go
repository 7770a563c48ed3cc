package cards

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"strings"
	"time"
)

// ErrMissingText is returned when a card entry has no text.
var ErrMissingText = errors.New("card entry is missing required text field")

// Builder assembles metadata cards for one skill invocation.
type Builder struct {
	skillID    string
	requestID  string
	now        func() time.Time
	logger     *slog.Logger
	thumbnails *Thumbnailer
}

// BuilderOption configures a Builder.
type BuilderOption func(*Builder)

// WithClock overrides the clock used for created_at.
func WithClock(now func() time.Time) BuilderOption {
	return func(b *Builder) { b.now = now }
}

// WithLogger sets the logger used for entry warnings.
func WithLogger(logger *slog.Logger) BuilderOption {
	return func(b *Builder) { b.logger = logger }
}

// WithThumbnailer sets the thumbnailer used by FacesCard.
func WithThumbnailer(t *Thumbnailer) BuilderOption {
	return func(b *Builder) { b.thumbnails = t }
}

// NewBuilder returns a Builder for the given skill id and invocation (request) id.
func NewBuilder(skillID, requestID string, opts ...BuilderOption) *Builder {
	b := &Builder{
		skillID:   skillID,
		requestID: requestID,
		now:       time.Now,
		logger:    slog.Default(),
	}
	for _, opt := range opts {
		opt(b)
	}
	if b.thumbnails == nil {
		b.thumbnails = NewThumbnailer(nil)
	}
	return b
}

// TitleCode derives the skill_card_title code from a display title.
func TitleCode(title string) string {
	return titleCodePrefix + strings.ReplaceAll(strings.ToLower(title), " ", "_")
}

// MetadataCard builds the common card envelope. Nil entries and a zero
// duration are left off the wire; empty entries are sent as [].
func (b *Builder) MetadataCard(cardType CardType, title string, status Status, entries []Entry, duration float64) Card {
	return Card{
		CreatedAt:      b.now().UTC().Format(time.RFC3339),
		Type:           metadataCardType,
		Skill:          Reference{Type: serviceType, ID: b.skillID},
		SkillCardType:  cardType,
		SkillCardTitle: Title{Code: TitleCode(title), Message: title},
		Invocation:     Reference{Type: invocationType, ID: b.requestID},
		Status:         status,
		Entries:        entries,
		Duration:       duration,
	}
}

// TopicsCard builds a keyword card. An empty title uses TitleTopic.
func (b *Builder) TopicsCard(entries []Entry, duration float64, title string) (Card, error) {
	prepared, err := b.prepareEntries(entries, duration)
	if err != nil {
		return Card{}, err
	}
	return b.MetadataCard(TypeTopic, orDefault(title, TitleTopic), Status{}, prepared, duration), nil
}

// TranscriptsCard builds a transcript card. An empty title uses TitleTranscript.
func (b *Builder) TranscriptsCard(entries []Entry, duration float64, title string) (Card, error) {
	prepared, err := b.prepareEntries(entries, duration)
	if err != nil {
		return Card{}, err
	}
	return b.MetadataCard(TypeTranscript, orDefault(title, TitleTranscript), Status{}, prepared, duration), nil
}

// FacesCard builds a timeline card. Every entry image is replaced by an
// inline 45x45 PNG thumbnail; entries whose image cannot be fetched or
// decoded keep their original image_url.
func (b *Builder) FacesCard(ctx context.Context, entries []Entry, duration float64, title string) (Card, error) {
	prepared, err := b.prepareEntries(entries, duration)
	if err != nil {
		return Card{}, err
	}
	b.thumbnails.Inline(ctx, prepared, b.logger)
	return b.MetadataCard(TypeFaces, orDefault(title, TitleFaces), Status{}, prepared, duration), nil
}

// StatusCard builds a status card carrying the given status.
func (b *Builder) StatusCard(title string, status Status) Card {
	return b.MetadataCard(TypeStatus, title, status, nil, 0)
}

func (b *Builder) prepareEntries(entries []Entry, duration float64) ([]Entry, error) {
	out := make([]Entry, len(entries))
	for i, e := range entries {
		if e.Text == "" {
			return nil, fmt.Errorf("entry %d: %w", i, ErrMissingText)
		}
		if e.ImageURL != "" {
			e.Type = EntryImage
		} else {
			e.Type = EntryText
		}
		if duration > 0 && len(e.Appears) == 0 {
			b.logger.Warn("card entry has no appears range while card duration is set",
				"entry", i, "duration", duration)
		}
		out[i] = e
	}
	return out, nil
}

func orDefault(s, def string) string {
	if s == "" {
		return def
	}
	return s
}
