package cloud

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"net/url"

	"github.com/skillskit/skills-server/internal/cards"
)

type HTTPInvocationService struct {
	client *HTTPClient
}

// Put writes body to PUT /skill_invocations/{skillID}.
func (s *HTTPInvocationService) Put(ctx context.Context, skillID string, body cards.Invocation) error {
	payload, err := json.Marshal(body)
	if err != nil {
		return fmt.Errorf("marshal skill invocation: %w", err)
	}

	u := fmt.Sprintf("%s/skill_invocations/%s", s.client.baseURL, url.PathEscape(skillID))
	req, err := s.client.newRequest(ctx, http.MethodPut, u, bytes.NewReader(payload))
	if err != nil {
		return err
	}
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("Cache-Control", "no-cache")

	s.client.logger.Info("writing skill invocation",
		"skill_id", skillID,
		"file_id", body.File.ID,
		"status", body.Status,
		"card_count", len(body.Metadata.Cards),
		"body_bytes", len(payload),
	)

	resp, err := s.client.do(req)
	if err != nil {
		return err
	}
	resp.Body.Close()
	return nil
}
