package handlers

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"image"
	"image/color"
	"image/png"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/skillskit/skills-server/internal/cards"
	"github.com/skillskit/skills-server/internal/cloud"
	"github.com/skillskit/skills-server/internal/logging"
	"github.com/skillskit/skills-server/internal/skills"
	"github.com/skillskit/skills-server/internal/vision"
)

type fakeProvider struct {
	labels []vision.Label
	faces  []vision.Face
	err    error
	calls  int
}

func (p *fakeProvider) DetectLabels(ctx context.Context, image []byte, maxLabels int, minConfidence float64) ([]vision.Label, error) {
	p.calls++
	return p.labels, p.err
}

func (p *fakeProvider) DetectFaces(ctx context.Context, image []byte) ([]vision.Face, error) {
	p.calls++
	return p.faces, p.err
}

type offlineTransport struct{}

func (offlineTransport) RoundTrip(*http.Request) (*http.Response, error) {
	return nil, errors.New("offline")
}

func testPNG(t *testing.T) []byte {
	t.Helper()
	img := image.NewRGBA(image.Rect(0, 0, 100, 100))
	for x := 0; x < 100; x++ {
		for y := 0; y < 100; y++ {
			img.Set(x, y, color.RGBA{G: uint8(x), B: uint8(y), A: 255})
		}
	}
	var buf bytes.Buffer
	require.NoError(t, png.Encode(&buf, img))
	return buf.Bytes()
}

type harness struct {
	server *httptest.Server
	stub   *cloud.StubClient
	req    *Request
}

func newHarness(t *testing.T, fileName string, size int, content []byte) *harness {
	t.Helper()
	mux := http.NewServeMux()
	var server *httptest.Server
	mux.HandleFunc("/files/123/content", func(w http.ResponseWriter, r *http.Request) {
		w.Write(content)
	})
	mux.HandleFunc("/files/123", func(w http.ResponseWriter, r *http.Request) {
		fmt.Fprintf(w, `{"representations":{"entries":[{"status":{"state":"success"},"content":{"url_template":"%s/rep/{+asset_path}"}}]}}`, server.URL)
	})
	mux.HandleFunc("/rep/", func(w http.ResponseWriter, r *http.Request) {
		w.Write([]byte("basic"))
	})
	server = httptest.NewServer(mux)
	t.Cleanup(server.Close)

	body := fmt.Sprintf(`{"id":"req-1","skill":{"id":"75"},"source":{"id":"123","name":%q,"size":%d},
		"token":{"read":{"access_token":"readtoken12345"},"write":{"access_token":"writetoken12345"}}}`, fileName, size)
	fc, err := skills.EventParser{APIBaseURL: server.URL}.Parse([]byte(body))
	require.NoError(t, err)

	logger := logging.Discard()
	stub := cloud.NewStubClient(logger)
	return &harness{
		server: server,
		stub:   stub,
		req: &Request{
			Reader: skills.NewFilesReader(fc, cloud.NewHTTPClient(server.URL, fc.FileReadToken, server.Client(), logger),
				skills.WithReaderLogger(logger)),
			Writer: skills.NewSkillsWriter(fc, stub,
				skills.WithWriterLogger(logger),
				skills.WithThumbnailer(cards.NewThumbnailer(&http.Client{Transport: offlineTransport{}}))),
			Logger: logger,
		},
	}
}

func TestRegistry(t *testing.T) {
	r := NewRegistry(NewBoilerplate(), NewLabels(nil, DefaultImageLimits()), NewHello())

	h, ok := r.Get("labels")
	require.True(t, ok)
	assert.Equal(t, "labels", h.Name())

	_, ok = r.Get("missing")
	assert.False(t, ok)

	assert.Equal(t, []string{"boilerplate", "hello", "labels"}, r.Names())
}

func TestLabels_WritesTopicsCard(t *testing.T) {
	h := newHarness(t, "photo.jpg", 1024, []byte("jpeg-bytes"))
	provider := &fakeProvider{labels: []vision.Label{{Name: "Dog"}, {Name: "Beach"}}}

	require.NoError(t, NewLabels(provider, DefaultImageLimits()).Handle(context.Background(), h.req))

	rec := h.stub.Recorded()
	require.Len(t, rec, 2)
	assert.Equal(t, cards.StatusProcessing, rec[0].Body.Status)

	final := rec[1].Body
	assert.Equal(t, cards.StatusSuccess, final.Status)
	require.Len(t, final.Metadata.Cards, 1)
	card := final.Metadata.Cards[0]
	assert.Equal(t, cards.TypeTopic, card.SkillCardType)
	assert.Equal(t, []cards.Entry{
		{Type: cards.EntryText, Text: "Dog"},
		{Type: cards.EntryText, Text: "Beach"},
	}, card.Entries)
}

func TestLabels_Guards(t *testing.T) {
	tests := []struct {
		name string
		file string
		size int
		code skills.Code
	}{
		{name: "format", file: "clip.mp4", size: 10, code: skills.CodeInvalidFileFormat},
		{name: "size", file: "huge.png", size: 6 * skills.MB, code: skills.CodeInvalidFileSize},
	}

	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			h := newHarness(t, tc.file, tc.size, nil)
			provider := &fakeProvider{}

			err := NewLabels(provider, DefaultImageLimits()).Handle(context.Background(), h.req)
			require.Error(t, err)
			assert.Equal(t, tc.code, skills.CodeOf(err))
			assert.Zero(t, provider.calls)
			assert.Empty(t, h.stub.Recorded())
		})
	}
}

func TestLabels_NoLabels(t *testing.T) {
	h := newHarness(t, "photo.png", 10, []byte("x"))

	err := NewLabels(&fakeProvider{}, DefaultImageLimits()).Handle(context.Background(), h.req)
	assert.Equal(t, skills.CodeNoInfoFound, skills.CodeOf(err))
}

func TestLabels_ProviderError(t *testing.T) {
	h := newHarness(t, "photo.png", 10, []byte("x"))
	providerErr := skills.NewTransientError(skills.CodeInvocations, errors.New("throttled"))

	err := NewLabels(&fakeProvider{err: providerErr}, DefaultImageLimits()).Handle(context.Background(), h.req)
	assert.True(t, errors.Is(err, providerErr))
	assert.True(t, skills.IsTransient(err))
}

func TestFaces_CropsAndInlines(t *testing.T) {
	content := testPNG(t)
	h := newHarness(t, "team.png", len(content), content)
	provider := &fakeProvider{faces: []vision.Face{
		{Box: vision.BoundingBox{Left: 0.1, Top: 0.1, Width: 0.2, Height: 0.3}, AgeLow: 20, AgeHigh: 30},
		{Box: vision.BoundingBox{Left: 0.9, Top: 0.9, Width: 0.5, Height: 0.5}},
	}}

	require.NoError(t, NewFaces(provider, DefaultImageLimits()).Handle(context.Background(), h.req))

	rec := h.stub.Recorded()
	require.Len(t, rec, 2)
	card := rec[1].Body.Metadata.Cards[0]
	assert.Equal(t, cards.TypeFaces, card.SkillCardType)
	require.Len(t, card.Entries, 2)
	assert.Equal(t, "Face #1 (age 20-30)", card.Entries[0].Text)
	assert.Equal(t, "Face #2", card.Entries[1].Text)
	for _, e := range card.Entries {
		assert.Equal(t, cards.EntryImage, e.Type)
		assert.True(t, strings.HasPrefix(e.ImageURL, "data:image/png;base64,"))
	}
}

func TestCrop_ClampsToBounds(t *testing.T) {
	img := image.NewRGBA(image.Rect(0, 0, 100, 50))

	got := crop(img, vision.BoundingBox{Left: 0.5, Top: 0.5, Width: 1, Height: 1})
	assert.Equal(t, image.Rect(0, 0, 50, 25), got.Bounds())

	got = crop(img, vision.BoundingBox{Left: 2, Top: 2, Width: 0.1, Height: 0.1})
	assert.Equal(t, image.Rect(0, 0, 100, 50), got.Bounds())
}

func TestBoilerplate_WritesMockCards(t *testing.T) {
	h := newHarness(t, "song.mp3", 10, nil)

	require.NoError(t, NewBoilerplate().Handle(context.Background(), h.req))

	rec := h.stub.Recorded()
	require.Len(t, rec, 1)
	body := rec[0].Body
	assert.Equal(t, cards.StatusSuccess, body.Status)
	assert.Equal(t, cards.DefaultUsage(), body.Usage)

	list := body.Metadata.Cards
	require.Len(t, list, 4)

	assert.Equal(t, cards.TypeFaces, list[0].SkillCardType)
	assert.Equal(t, "skills_icons", list[0].SkillCardTitle.Code)
	assert.Equal(t, boxLogoURL, list[0].Entries[0].ImageURL)

	assert.Equal(t, cards.TypeTopic, list[1].SkillCardType)
	assert.Len(t, list[1].Entries, 3)

	assert.Equal(t, cards.TypeTranscript, list[2].SkillCardType)
	assert.Zero(t, list[2].Duration)

	assert.Equal(t, cards.TypeTranscript, list[3].SkillCardType)
	assert.Equal(t, 5.0, list[3].Duration)
	assert.Equal(t, []cards.Appears{{Start: 3, End: 4}}, list[3].Entries[1].Appears)
}

func TestHello_WritesGreeting(t *testing.T) {
	h := newHarness(t, "notes.pdf", 10, nil)

	require.NoError(t, NewHello().Handle(context.Background(), h.req))

	rec := h.stub.Recorded()
	require.Len(t, rec, 2)
	assert.Equal(t, cards.StatusProcessing, rec[0].Body.Status)

	list := rec[1].Body.Metadata.Cards
	require.Len(t, list, 3)
	assert.Equal(t, "Hello file 123", list[1].Entries[0].Text)
	assert.Equal(t, "skills_logos", list[2].SkillCardTitle.Code)
}
