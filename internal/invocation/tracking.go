package invocation

import (
	"context"
	"sync"

	"github.com/skillskit/skills-server/internal/cards"
	"github.com/skillskit/skills-server/internal/cloud"
)

// trackingClient remembers the last invocation body written through it.
type trackingClient struct {
	cloud.Client
	invocations *trackingInvocations
}

func newTrackingClient(c cloud.Client) *trackingClient {
	return &trackingClient{
		Client:      c,
		invocations: &trackingInvocations{next: c.Invocations()},
	}
}

func (c *trackingClient) Invocations() cloud.InvocationService {
	return c.invocations
}

func (c *trackingClient) status() cards.InvocationStatus {
	c.invocations.mu.Lock()
	defer c.invocations.mu.Unlock()
	return c.invocations.last
}

func (c *trackingClient) cardCount() int {
	c.invocations.mu.Lock()
	defer c.invocations.mu.Unlock()
	return c.invocations.cards
}

type trackingInvocations struct {
	next cloud.InvocationService

	mu    sync.Mutex
	last  cards.InvocationStatus
	cards int
}

func (t *trackingInvocations) Put(ctx context.Context, skillID string, body cards.Invocation) error {
	if err := t.next.Put(ctx, skillID, body); err != nil {
		return err
	}
	t.mu.Lock()
	t.last = body.Status
	t.cards = len(body.Metadata.Cards)
	t.mu.Unlock()
	return nil
}
