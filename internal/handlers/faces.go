package handlers

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"image"
	_ "image/jpeg"
	_ "image/png"

	"golang.org/x/image/draw"

	"github.com/skillskit/skills-server/internal/cards"
	"github.com/skillskit/skills-server/internal/skills"
	"github.com/skillskit/skills-server/internal/vision"
)

// Faces crops every detected face out of the image and writes them as a
// faces card.
type Faces struct {
	provider vision.Provider
	limits   Limits
}

func NewFaces(provider vision.Provider, limits Limits) *Faces {
	return &Faces{provider: provider, limits: limits}
}

func (h *Faces) Name() string { return "faces" }

func (h *Faces) Handle(ctx context.Context, req *Request) error {
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

	faces, err := h.provider.DetectFaces(ctx, content)
	if err != nil {
		return err
	}
	if len(faces) == 0 {
		return skills.NewError(skills.CodeNoInfoFound, errors.New("no faces detected"))
	}

	img, _, err := image.Decode(bytes.NewReader(content))
	if err != nil {
		return skills.NewError(skills.CodeInvalidFileFormat, fmt.Errorf("decode image: %w", err))
	}

	entries := make([]cards.Entry, 0, len(faces))
	for i, f := range faces {
		uri, err := cards.PNGDataURI(crop(img, f.Box))
		if err != nil {
			req.Logger.Warn("skipping face", "face", i+1, "error", err)
			continue
		}
		entries = append(entries, cards.Entry{
			Text:     faceLabel(i+1, f),
			ImageURL: uri,
		})
	}
	if len(entries) == 0 {
		return skills.NewError(skills.CodeFileProcessing, errors.New("no face could be cropped"))
	}
	req.Logger.Info("faces detected", "count", len(entries))

	card, err := req.Writer.FacesCard(ctx, entries, 0, "")
	if err != nil {
		return err
	}
	return req.Writer.SaveDataCards(ctx, []cards.Card{card}, cards.StatusSuccess, cards.DefaultUsage())
}

func faceLabel(n int, f vision.Face) string {
	if f.AgeHigh > 0 {
		return fmt.Sprintf("Face #%d (age %d-%d)", n, f.AgeLow, f.AgeHigh)
	}
	return fmt.Sprintf("Face #%d", n)
}

// crop copies the face bounding box, given as ratios, out of img. The box is
// clamped to the image bounds.
func crop(img image.Image, box vision.BoundingBox) image.Image {
	b := img.Bounds()
	w, h := float64(b.Dx()), float64(b.Dy())
	rect := image.Rect(
		b.Min.X+int(box.Left*w),
		b.Min.Y+int(box.Top*h),
		b.Min.X+int((box.Left+box.Width)*w),
		b.Min.Y+int((box.Top+box.Height)*h),
	).Intersect(b)
	if rect.Empty() {
		rect = b
	}

	dst := image.NewRGBA(image.Rect(0, 0, rect.Dx(), rect.Dy()))
	draw.Copy(dst, image.Point{}, img, rect, draw.Src, nil)
	return dst
}
