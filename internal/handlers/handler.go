// Package handlers contains the skills served by the webhook.
package handlers

import (
	"context"
	"fmt"
	"log/slog"
	"sort"

	"github.com/skillskit/skills-server/internal/cloud"
	"github.com/skillskit/skills-server/internal/skills"
)

// Request is what a handler receives for one invocation.
type Request struct {
	Reader *skills.FilesReader
	Writer *skills.SkillsWriter
	Logger *slog.Logger
}

// Handler is a skill. Handle returns an error to have an error card written.
type Handler interface {
	Name() string
	Handle(ctx context.Context, req *Request) error
}

// Limits are the per-skill input guards.
type Limits struct {
	AllowedFormats []string
	MaxSizeMB      float64
	MaxLabels      int
	MinConfidence  float64
}

// DefaultImageLimits matches what the image analysis provider accepts as raw bytes.
func DefaultImageLimits() Limits {
	return Limits{
		AllowedFormats: []string{"jpg", "jpeg", "png"},
		MaxSizeMB:      5,
		MaxLabels:      100,
		MinConfidence:  70,
	}
}

// Registry looks up handlers by name.
type Registry struct {
	handlers map[string]Handler
}

func NewRegistry(hs ...Handler) *Registry {
	r := &Registry{handlers: make(map[string]Handler, len(hs))}
	for _, h := range hs {
		r.handlers[h.Name()] = h
	}
	return r
}

func (r *Registry) Get(name string) (Handler, bool) {
	h, ok := r.handlers[name]
	return h, ok
}

// Names returns the registered skill names in order.
func (r *Registry) Names() []string {
	names := make([]string, 0, len(r.handlers))
	for name := range r.handlers {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}

// validate applies the format and size guards.
func validate(req *Request, limits Limits) error {
	if err := req.Reader.ValidateFormat(limits.AllowedFormats); err != nil {
		return err
	}
	return req.Reader.ValidateSize(limits.MaxSizeMB)
}

// readContent downloads the original file, tagging failures as file
// processing errors.
func readContent(ctx context.Context, req *Request) ([]byte, error) {
	content, err := req.Reader.Content(ctx)
	if err != nil {
		err = fmt.Errorf("read file content: %w", err)
		if cloud.IsRetryable(err) {
			return nil, skills.NewTransientError(skills.CodeFileProcessing, err)
		}
		return nil, skills.NewError(skills.CodeFileProcessing, err)
	}
	return content, nil
}
