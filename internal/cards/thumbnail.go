package cards

import (
	"bytes"
	"context"
	"encoding/base64"
	"fmt"
	"image"
	_ "image/gif"
	_ "image/jpeg"
	"image/png"
	"io"
	"log/slog"
	"net/http"
	"net/url"
	"strings"
	"time"

	_ "golang.org/x/image/bmp"
	"golang.org/x/image/draw"
	_ "golang.org/x/image/tiff"
	_ "golang.org/x/image/webp"
	"golang.org/x/sync/errgroup"
)

const (
	// ThumbnailSize is the edge length, in pixels, of face thumbnails.
	ThumbnailSize = 45

	defaultThumbnailConcurrency = 4
	maxImageBytes               = 10 << 20
	defaultFetchTimeout         = 15 * time.Second
)

// Thumbnailer fetches images and turns them into inline PNG thumbnails.
type Thumbnailer struct {
	client      *http.Client
	size        int
	concurrency int
}

// NewThumbnailer returns a Thumbnailer using client, or a client with a
// default timeout when client is nil.
func NewThumbnailer(client *http.Client) *Thumbnailer {
	if client == nil {
		client = &http.Client{Timeout: defaultFetchTimeout}
	}
	return &Thumbnailer{
		client:      client,
		size:        ThumbnailSize,
		concurrency: defaultThumbnailConcurrency,
	}
}

// DataURI fetches src (http, https or data: URI), scales it to the
// thumbnail size and returns it as a PNG data URI.
func (t *Thumbnailer) DataURI(ctx context.Context, src string) (string, error) {
	raw, err := t.fetch(ctx, src)
	if err != nil {
		return "", err
	}
	img, _, err := image.Decode(bytes.NewReader(raw))
	if err != nil {
		return "", fmt.Errorf("decode image: %w", err)
	}
	return PNGDataURI(Scale(img, t.size, t.size))
}

// Inline replaces each entry's image_url with its thumbnail. Fetches run
// concurrently; a failed entry keeps its original URL.
func (t *Thumbnailer) Inline(ctx context.Context, entries []Entry, logger *slog.Logger) {
	results := make([]string, len(entries))

	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(t.concurrency)
	for i := range entries {
		src := entries[i].ImageURL
		if src == "" {
			continue
		}
		i := i
		g.Go(func() error {
			uri, err := t.DataURI(gctx, src)
			if err != nil {
				logger.Debug("keeping original face image", "entry", i, "error", err)
				return nil
			}
			results[i] = uri
			return nil
		})
	}
	g.Wait() // workers always return nil

	for i, uri := range results {
		if uri != "" {
			entries[i].ImageURL = uri
		}
	}
}

// Scale resizes img to w x h, ignoring aspect ratio.
func Scale(img image.Image, w, h int) image.Image {
	dst := image.NewRGBA(image.Rect(0, 0, w, h))
	draw.CatmullRom.Scale(dst, dst.Bounds(), img, img.Bounds(), draw.Over, nil)
	return dst
}

// PNGDataURI encodes img as a base64 PNG data URI.
func PNGDataURI(img image.Image) (string, error) {
	var buf bytes.Buffer
	if err := png.Encode(&buf, img); err != nil {
		return "", fmt.Errorf("encode png: %w", err)
	}
	return dataURIPNGPrefix + base64.StdEncoding.EncodeToString(buf.Bytes()), nil
}

func (t *Thumbnailer) fetch(ctx context.Context, src string) ([]byte, error) {
	if strings.HasPrefix(src, "data:") {
		return decodeDataURI(src)
	}

	u, err := url.Parse(src)
	if err != nil || (u.Scheme != "http" && u.Scheme != "https") {
		return nil, fmt.Errorf("unsupported image url %q", src)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, src, nil)
	if err != nil {
		return nil, fmt.Errorf("create request: %w", err)
	}
	resp, err := t.client.Do(req)
	if err != nil {
		return nil, fmt.Errorf("fetch image: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return nil, fmt.Errorf("fetch image: status %d", resp.StatusCode)
	}
	return io.ReadAll(io.LimitReader(resp.Body, maxImageBytes))
}

func decodeDataURI(src string) ([]byte, error) {
	header, payload, ok := strings.Cut(strings.TrimPrefix(src, "data:"), ",")
	if !ok {
		return nil, fmt.Errorf("malformed data uri")
	}
	if strings.HasSuffix(header, ";base64") {
		return base64.StdEncoding.DecodeString(payload)
	}
	s, err := url.PathUnescape(payload)
	if err != nil {
		return nil, fmt.Errorf("malformed data uri: %w", err)
	}
	return []byte(s), nil
}
