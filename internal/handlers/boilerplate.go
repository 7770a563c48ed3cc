package handlers

import (
	"context"
	"fmt"

	"github.com/skillskit/skills-server/internal/cards"
)

const boxLogoURL = "https://seeklogo.com/images/B/box-logo-646A3D8C91-seeklogo.com.png"

// Boilerplate reads the basic format of any file and writes one card of
// every kind filled with mocked data.
type Boilerplate struct{}

func NewBoilerplate() *Boilerplate { return &Boilerplate{} }

func (h *Boilerplate) Name() string { return "boilerplate" }

func (h *Boilerplate) Handle(ctx context.Context, req *Request) error {
	content, err := req.Reader.BasicFormatContentBase64(ctx)
	if err != nil {
		return err
	}
	req.Logger.Debug("read basic format content", "base64_bytes", len(content))

	keywords := []cards.Entry{{Text: "file"}, {Text: "associated"}, {Text: "keywords"}}
	transcripts := []cards.Entry{{Text: "This is a sentence/transcript card"}}
	faces := []cards.Entry{{
		ImageURL: boxLogoURL,
		Text:     "Image hover/placeholder text if image doesn't load",
	}}
	timeline := []cards.Entry{
		{
			Text:    "Timeline data can be shown in any card type",
			Appears: []cards.Appears{{Start: 1, End: 2}},
		},
		{
			Text:    "Just add 'appears' field besides any 'text', with start and end values in seconds",
			Appears: []cards.Appears{{Start: 3, End: 4}},
		},
	}

	facesCard, err := req.Writer.FacesCard(ctx, faces, 0, "Icons")
	if err != nil {
		return err
	}
	topicsCard, err := req.Writer.TopicsCard(keywords, 0, "")
	if err != nil {
		return err
	}
	transcriptCard, err := req.Writer.TranscriptsCard(transcripts, 0, "")
	if err != nil {
		return err
	}
	timelineCard, err := req.Writer.TranscriptsCard(timeline, 5, "")
	if err != nil {
		return err
	}

	return req.Writer.SaveDataCards(ctx,
		[]cards.Card{facesCard, topicsCard, transcriptCard, timelineCard},
		cards.StatusSuccess, nil)
}

// Hello is the smallest possible skill: a pending card, then greeting cards.
type Hello struct{}

func NewHello() *Hello { return &Hello{} }

func (h *Hello) Name() string { return "hello" }

func (h *Hello) Handle(ctx context.Context, req *Request) error {
	if err := req.Writer.SaveProcessingCard(ctx); err != nil {
		return err
	}
	if _, err := req.Reader.BasicFormatContentBase64(ctx); err != nil {
		return err
	}

	fileID := req.Reader.FileContext().FileID
	topics, err := req.Writer.TopicsCard([]cards.Entry{{Text: "Hello"}, {Text: "File"}}, 0, "")
	if err != nil {
		return err
	}
	transcript, err := req.Writer.TranscriptsCard([]cards.Entry{{
		Text:    fmt.Sprintf("Hello file %s", fileID),
		Appears: []cards.Appears{{Start: 0, End: 1}},
	}}, 1, "")
	if err != nil {
		return err
	}
	logos, err := req.Writer.FacesCard(ctx, []cards.Entry{{Text: "Hello Box Logo", ImageURL: boxLogoURL}}, 1, "Logos")
	if err != nil {
		return err
	}
	return req.Writer.SaveDataCards(ctx, []cards.Card{topics, transcript, logos}, cards.StatusSuccess, nil)
}
