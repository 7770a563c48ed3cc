// Package cards defines the metadata card wire format written back to the
// content platform and the builders that assemble it.
package cards

import "encoding/json"

// CardType is the skill_card_type of a metadata card.
type CardType string

const (
	TypeTranscript CardType = "transcript"
	TypeTopic      CardType = "keyword"
	TypeFaces      CardType = "timeline"
	TypeStatus     CardType = "status"
	TypeError      CardType = "error"
)

// Default card titles.
const (
	TitleTranscript = "Transcript"
	TitleTopic      = "Topics"
	TitleFaces      = "Faces"
	TitleStatus     = "Status"
	TitleError      = "Error"
)

const (
	metadataCardType       = "skill_card"
	serviceType            = "service"
	invocationType         = "skill_invocation"
	fileType               = "file"
	PendingStatusCode      = "skills_pending_status"
	PendingStatusMessage   = "We're preparing to process your file. Please hold on!"
	CustomErrorStatusCode  = "custom_error"
	titleCodePrefix        = "skills_"
	dataURIPNGPrefix       = "data:image/png;base64,"
	defaultUsageValueFiles = 1
)

// InvocationStatus is the status reported on PUT /skill_invocations.
type InvocationStatus string

const (
	StatusInvoked          InvocationStatus = "invoked"
	StatusProcessing       InvocationStatus = "processing"
	StatusTransientFailure InvocationStatus = "transient_failure"
	StatusPermanentFailure InvocationStatus = "permanent_failure"
	StatusSuccess          InvocationStatus = "success"
)

// Valid reports whether s is one of the known invocation statuses.
func (s InvocationStatus) Valid() bool {
	switch s {
	case StatusInvoked, StatusProcessing, StatusTransientFailure, StatusPermanentFailure, StatusSuccess:
		return true
	}
	return false
}

// IsFailure reports whether s is one of the failure statuses.
func (s InvocationStatus) IsFailure() bool {
	return s == StatusTransientFailure || s == StatusPermanentFailure
}

// UsageUnit is the billing unit reported with a successful invocation.
type UsageUnit string

const (
	UnitFiles   UsageUnit = "files"
	UnitSeconds UsageUnit = "seconds"
	UnitPages   UsageUnit = "pages"
	UnitWords   UsageUnit = "words"
)

// Valid reports whether u is one of the known usage units.
func (u UsageUnit) Valid() bool {
	switch u {
	case UnitFiles, UnitSeconds, UnitPages, UnitWords:
		return true
	}
	return false
}

type Usage struct {
	Unit  UsageUnit `json:"unit"`
	Value int       `json:"value"`
}

// Valid reports whether the usage unit is known.
func (u *Usage) Valid() bool {
	return u != nil && u.Unit.Valid()
}

// DefaultUsage is reported for successful invocations without explicit usage.
func DefaultUsage() *Usage {
	return &Usage{Unit: UnitFiles, Value: defaultUsageValueFiles}
}

// EntryType tags a card entry as plain text or image.
type EntryType string

const (
	EntryText  EntryType = "text"
	EntryImage EntryType = "image"
)

// Appears is a time range, in seconds, at which an entry occurs in the file.
type Appears struct {
	Start float64 `json:"start"`
	End   float64 `json:"end"`
}

// Entry is a single leaf record of a card.
type Entry struct {
	Type     EntryType `json:"type"`
	Text     string    `json:"text"`
	ImageURL string    `json:"image_url,omitempty"`
	Appears  []Appears `json:"appears,omitempty"`
}

// Status is the status object of a card. Data cards carry an empty status.
type Status struct {
	Code    string `json:"code,omitempty"`
	Message string `json:"message,omitempty"`
}

type Reference struct {
	Type string `json:"type"`
	ID   string `json:"id"`
}

type Title struct {
	Code    string `json:"code"`
	Message string `json:"message"`
}

// Card is a metadata card as accepted by the skill_invocations endpoint.
type Card struct {
	CreatedAt      string    `json:"created_at"`
	Type           string    `json:"type"`
	Skill          Reference `json:"skill"`
	SkillCardType  CardType  `json:"skill_card_type"`
	SkillCardTitle Title     `json:"skill_card_title"`
	Invocation     Reference `json:"invocation"`
	Status         Status    `json:"status"`
	Entries        []Entry   `json:"entries,omitempty"`
	Duration       float64   `json:"duration,omitempty"`
}

// MarshalJSON writes entries whenever they are non-nil, so a data card with
// no entries still sends "entries": []. Status cards carry nil entries.
func (c Card) MarshalJSON() ([]byte, error) {
	type card Card
	out := struct {
		card
		Entries *[]Entry `json:"entries,omitempty"`
	}{card: card(c)}
	if c.Entries != nil {
		out.Entries = &c.Entries
	}
	return json.Marshal(out)
}

// Invocation is the PUT /skill_invocations/{skillId} request body.
type Invocation struct {
	Status   InvocationStatus `json:"status"`
	File     Reference        `json:"file"`
	Metadata Metadata         `json:"metadata"`
	Usage    *Usage           `json:"usage"`
}

type Metadata struct {
	Cards []Card `json:"cards"`
}

// NewInvocation builds the write-back body for fileID. An invalid status
// becomes success; usage is only reported for success and falls back to
// DefaultUsage when missing or invalid.
func NewInvocation(fileID string, list []Card, status InvocationStatus, usage *Usage) Invocation {
	if !status.Valid() {
		status = StatusSuccess
	}
	var u *Usage
	if status == StatusSuccess {
		if usage.Valid() {
			u = usage
		} else {
			u = DefaultUsage()
		}
	}
	if list == nil {
		list = []Card{}
	}
	return Invocation{
		Status:   status,
		File:     Reference{Type: fileType, ID: fileID},
		Metadata: Metadata{Cards: list},
		Usage:    u,
	}
}
