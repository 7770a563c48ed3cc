package cloud

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"

	"github.com/skillskit/skills-server/internal/logging"
)

const maxMetadataBody = 1 << 20

type HTTPFileService struct {
	client *HTTPClient
}

func (s *HTTPFileService) Download(ctx context.Context, rawURL string) (io.ReadCloser, error) {
	req, err := s.client.newRequest(ctx, http.MethodGet, rawURL, nil)
	if err != nil {
		return nil, err
	}

	s.client.logger.Debug("downloading file content", "url", logging.SanitizeURL(rawURL))

	resp, err := s.client.do(req)
	if err != nil {
		return nil, err
	}
	return resp.Body, nil
}

func (s *HTTPFileService) Representations(ctx context.Context, fileID, repHints string) (*RepresentationList, error) {
	u := fmt.Sprintf("%s/files/%s?fields=representations", s.client.baseURL, url.PathEscape(fileID))
	req, err := s.client.newRequest(ctx, http.MethodGet, u, nil)
	if err != nil {
		return nil, err
	}
	req.Header.Set(RepHintsHeader, repHints)

	var result fileRepresentations
	if err := s.getJSON(req, &result); err != nil {
		return nil, fmt.Errorf("get representations: %w", err)
	}
	return &result.Representations, nil
}

func (s *HTTPFileService) RepresentationInfo(ctx context.Context, infoURL string) (*Representation, error) {
	req, err := s.client.newRequest(ctx, http.MethodGet, infoURL, nil)
	if err != nil {
		return nil, err
	}

	var result Representation
	if err := s.getJSON(req, &result); err != nil {
		return nil, fmt.Errorf("get representation info: %w", err)
	}
	return &result, nil
}

func (s *HTTPFileService) getJSON(req *http.Request, v interface{}) error {
	resp, err := s.client.do(req)
	if err != nil {
		return err
	}
	defer resp.Body.Close()

	respBody, err := io.ReadAll(io.LimitReader(resp.Body, maxMetadataBody))
	if err != nil {
		return fmt.Errorf("read response: %w", err)
	}
	if err := json.Unmarshal(respBody, v); err != nil {
		return fmt.Errorf("unmarshal response: %w", err)
	}
	return nil
}
