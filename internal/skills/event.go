package skills

import (
	"bytes"
	"encoding/json"
	"errors"
	"fmt"
	"path/filepath"
	"strings"

	"github.com/skillskit/skills-server/internal/cloud"
)

// FileType is the broad category of a file, used to pick a basic format.
type FileType string

const (
	TypeAudio    FileType = "AUDIO"
	TypeVideo    FileType = "VIDEO"
	TypeDocument FileType = "DOCUMENT"
	TypeImage    FileType = "IMAGE"
)

// RepHints returns the representation hints used to request the basic format.
func (t FileType) RepHints() string {
	switch t {
	case TypeAudio:
		return "[mp3]"
	case TypeVideo:
		return "[mp4]"
	default:
		return "[jpg?dimensions=1024x1024]"
	}
}

var (
	videoFormats = []string{
		"3g2", "3gp", "avi", "flv", "m2v", "m2ts", "m4v", "mkv", "mov", "mp4",
		"mpeg", "mpg", "ogg", "mts", "qt", "ts", "wmv",
	}
	audioFormats = []string{
		"aac", "aif", "aifc", "aiff", "amr", "au", "flac", "m4a", "mp3", "ra", "wav", "wma",
	}
	documentFormats = []string{
		"pdf", "doc", "docx", "odt", "rtf", "txt", "ppt", "pptx", "xls", "xlsx",
	}
	imageFormats = []string{
		"ai", "bmp", "gif", "eps", "heic", "jpeg", "jpg", "png", "ps", "psd", "svg",
		"tif", "tiff", "dcm", "dicm", "dicom", "svs", "tga",
	}
)

var formatTypes = buildFormatTypes()

func buildFormatTypes() map[string]FileType {
	m := make(map[string]FileType)
	for _, group := range []struct {
		t       FileType
		formats []string
	}{
		{TypeVideo, videoFormats},
		{TypeAudio, audioFormats},
		{TypeDocument, documentFormats},
		{TypeImage, imageFormats},
	} {
		for _, f := range group.formats {
			m[f] = group.t
		}
	}
	return m
}

// Classifier maps file formats to file types. Formats missing from the
// static table get Default.
type Classifier struct {
	Default FileType
}

// DefaultClassifier treats unknown formats as images.
var DefaultClassifier = Classifier{Default: TypeImage}

func (c Classifier) Classify(format string) FileType {
	if t, ok := formatTypes[format]; ok {
		return t
	}
	if c.Default == "" {
		return TypeImage
	}
	return c.Default
}

// FileFormat returns the lower-cased extension of name without the dot.
func FileFormat(name string) string {
	return strings.TrimPrefix(strings.ToLower(filepath.Ext(name)), ".")
}

// ID is an identifier that may arrive as a JSON string or number.
type ID string

func (id *ID) UnmarshalJSON(data []byte) error {
	if bytes.Equal(data, []byte("null")) {
		*id = ""
		return nil
	}
	if len(data) > 0 && data[0] == '"' {
		var s string
		if err := json.Unmarshal(data, &s); err != nil {
			return err
		}
		*id = ID(s)
		return nil
	}
	var n json.Number
	if err := json.Unmarshal(data, &n); err != nil {
		return fmt.Errorf("id must be a string or number: %w", err)
	}
	*id = ID(n.String())
	return nil
}

type accessToken struct {
	AccessToken string `json:"access_token"`
}

// Event is the webhook body sent by the platform for a skill invocation.
type Event struct {
	ID    ID `json:"id"`
	Skill struct {
		ID ID `json:"id"`
	} `json:"skill"`
	Source struct {
		ID   ID     `json:"id"`
		Name string `json:"name"`
		Size int64  `json:"size"`
	} `json:"source"`
	Token struct {
		Read  accessToken `json:"read"`
		Write accessToken `json:"write"`
	} `json:"token"`
}

// FileContext is everything a skill needs to know about the invocation.
type FileContext struct {
	RequestID       string   `json:"request_id"`
	SkillID         string   `json:"skill_id"`
	FileID          string   `json:"file_id"`
	FileName        string   `json:"file_name"`
	FileSize        int64    `json:"file_size"`
	FileFormat      string   `json:"file_format"`
	FileType        FileType `json:"file_type"`
	FileDownloadURL string   `json:"-"`
	FileReadToken   string   `json:"-"`
	FileWriteToken  string   `json:"-"`
}

// EventParser turns webhook bodies into FileContexts.
type EventParser struct {
	APIBaseURL string
	Classifier Classifier
}

// ParseEvent parses body with the public API base URL and DefaultClassifier.
func ParseEvent(body []byte) (FileContext, error) {
	return EventParser{}.Parse(body)
}

// Parse validates body and derives the file context. Every failure is an
// *Error with CodeInvalidEvent.
func (p EventParser) Parse(body []byte) (FileContext, error) {
	var ev Event
	if err := json.Unmarshal(body, &ev); err != nil {
		return FileContext{}, NewError(CodeInvalidEvent, fmt.Errorf("parse event: %w", err))
	}

	var missing []string
	for _, f := range []struct {
		name  string
		value string
	}{
		{"id", string(ev.ID)},
		{"skill.id", string(ev.Skill.ID)},
		{"source.id", string(ev.Source.ID)},
		{"token.read.access_token", ev.Token.Read.AccessToken},
		{"token.write.access_token", ev.Token.Write.AccessToken},
	} {
		if f.value == "" {
			missing = append(missing, f.name)
		}
	}
	if len(missing) > 0 {
		return FileContext{}, NewError(CodeInvalidEvent,
			errors.New("event is missing required fields: "+strings.Join(missing, ", ")))
	}

	base := p.APIBaseURL
	if base == "" {
		base = cloud.DefaultBaseURL
	}
	format := FileFormat(ev.Source.Name)

	return FileContext{
		RequestID:       string(ev.ID),
		SkillID:         string(ev.Skill.ID),
		FileID:          string(ev.Source.ID),
		FileName:        ev.Source.Name,
		FileSize:        ev.Source.Size,
		FileFormat:      format,
		FileType:        p.Classifier.Classify(format),
		FileDownloadURL: fmt.Sprintf("%s/files/%s/content?access_token=%s", strings.TrimRight(base, "/"), ev.Source.ID, ev.Token.Read.AccessToken),
		FileReadToken:   ev.Token.Read.AccessToken,
		FileWriteToken:  ev.Token.Write.AccessToken,
	}, nil
}
