package handlers

import (
	"context"
	"errors"

	"github.com/skillskit/skills-server/internal/cards"
	"github.com/skillskit/skills-server/internal/skills"
	"github.com/skillskit/skills-server/internal/vision"
)

// Labels writes the image labels detected by the vision provider as a
// topics card.
type Labels struct {
	provider vision.Provider
	limits   Limits
}

func NewLabels(provider vision.Provider, limits Limits) *Labels {
	return &Labels{provider: provider, limits: limits}
}

func (h *Labels) Name() string { return "labels" }

func (h *Labels) Handle(ctx context.Context, req *Request) error {
	if err := validate(req, h.limits); err != nil {
		return err
	}
	if err := req.Writer.SaveProcessingCard(ctx); err != nil {
		return err
	}

	content, err := readContent(ctx, req)
	if err != nil {
		return err
	}

	labels, err := h.provider.DetectLabels(ctx, content, h.limits.MaxLabels, h.limits.MinConfidence)
	if err != nil {
		return err
	}
	if len(labels) == 0 {
		return skills.NewError(skills.CodeNoInfoFound, errors.New("no labels detected"))
	}

	entries := make([]cards.Entry, 0, len(labels))
	for _, l := range labels {
		entries = append(entries, cards.Entry{Text: l.Name})
	}
	req.Logger.Info("labels detected", "count", len(entries))

	card, err := req.Writer.TopicsCard(entries, 0, "")
	if err != nil {
		return err
	}
	return req.Writer.SaveDataCards(ctx, []cards.Card{card}, cards.StatusSuccess, cards.DefaultUsage())
}
