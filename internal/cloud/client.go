package cloud

import (
	"context"
	"encoding/json"
	"errors"
	"io"
	"log/slog"
	"sync"

	"github.com/skillskit/skills-server/internal/cards"
)

// ErrOffline is returned by the stub file service.
var ErrOffline = errors.New("cloud client is offline")

// Client is a token-scoped view of the content platform API.
type Client interface {
	Files() FileService
	Invocations() InvocationService
}

// FileService reads file content and representations.
type FileService interface {
	// Download streams an absolute content URL. The caller closes the body.
	Download(ctx context.Context, url string) (io.ReadCloser, error)
	Representations(ctx context.Context, fileID, repHints string) (*RepresentationList, error)
	RepresentationInfo(ctx context.Context, infoURL string) (*Representation, error)
}

// InvocationService writes skill invocation results.
type InvocationService interface {
	Put(ctx context.Context, skillID string, body cards.Invocation) error
}

// Factory builds a Client scoped to a single access token.
type Factory func(token string) Client

type StubClient struct {
	files       FileService
	invocations *StubInvocations
	logger      *slog.Logger
}

// NewStubClient returns a client whose reads fail with ErrOffline and whose
// writes are logged and recorded.
func NewStubClient(logger *slog.Logger) *StubClient {
	return &StubClient{
		files:       &StubFiles{logger: logger},
		invocations: NewStubInvocations(logger),
		logger:      logger,
	}
}

// NewDryRunClient reads through files but only logs invocation writes.
func NewDryRunClient(files FileService, logger *slog.Logger) *StubClient {
	return &StubClient{
		files:       files,
		invocations: NewStubInvocations(logger),
		logger:      logger,
	}
}

func (c *StubClient) Files() FileService {
	return c.files
}

func (c *StubClient) Invocations() InvocationService {
	return c.invocations
}

// Recorded returns the invocation bodies written so far.
func (c *StubClient) Recorded() []RecordedInvocation {
	return c.invocations.Recorded()
}

// StubFactory returns a Factory of offline stub clients.
func StubFactory(logger *slog.Logger) Factory {
	return func(token string) Client {
		return NewStubClient(logger)
	}
}

// DryRunFactory wraps base so that reads go through and writes are only logged.
func DryRunFactory(base Factory, logger *slog.Logger) Factory {
	return func(token string) Client {
		return NewDryRunClient(base(token).Files(), logger)
	}
}

type StubFiles struct {
	logger *slog.Logger
}

func (s *StubFiles) Download(ctx context.Context, url string) (io.ReadCloser, error) {
	s.logger.Info("cloud stub: download requested")
	return nil, ErrOffline
}

func (s *StubFiles) Representations(ctx context.Context, fileID, repHints string) (*RepresentationList, error) {
	s.logger.Info("cloud stub: representations requested", "file_id", fileID, "hints", repHints)
	return nil, ErrOffline
}

func (s *StubFiles) RepresentationInfo(ctx context.Context, infoURL string) (*Representation, error) {
	s.logger.Info("cloud stub: representation info requested")
	return nil, ErrOffline
}

// RecordedInvocation is one write captured by StubInvocations.
type RecordedInvocation struct {
	SkillID string
	Body    cards.Invocation
}

type StubInvocations struct {
	logger *slog.Logger

	mu       sync.Mutex
	recorded []RecordedInvocation
}

func NewStubInvocations(logger *slog.Logger) *StubInvocations {
	return &StubInvocations{logger: logger}
}

func (s *StubInvocations) Put(ctx context.Context, skillID string, body cards.Invocation) error {
	s.mu.Lock()
	s.recorded = append(s.recorded, RecordedInvocation{SkillID: skillID, Body: body})
	s.mu.Unlock()

	payload, _ := json.Marshal(body)
	s.logger.Info("cloud stub: skill invocation write",
		"skill_id", skillID,
		"status", body.Status,
		"card_count", len(body.Metadata.Cards),
		"body", string(payload),
	)
	return nil
}

func (s *StubInvocations) Recorded() []RecordedInvocation {
	s.mu.Lock()
	defer s.mu.Unlock()
	out := make([]RecordedInvocation, len(s.recorded))
	copy(out, s.recorded)
	return out
}
