package cloud

// Representation states reported by GET /files/{id}?fields=representations.
const (
	RepStateSuccess  = "success"
	RepStateViewable = "viewable"
	RepStatePending  = "pending"
	RepStateNone     = "none"
	RepStateError    = "error"
)

// RepHintsHeader carries the requested representations.
const RepHintsHeader = "X-Rep-Hints"

// Representation is one generated rendition of a file.
type Representation struct {
	Representation string                `json:"representation"`
	Properties     map[string]string     `json:"properties,omitempty"`
	Info           RepresentationURL     `json:"info"`
	Status         RepresentationState   `json:"status"`
	Content        RepresentationContent `json:"content"`
}

type RepresentationURL struct {
	URL string `json:"url"`
}

type RepresentationState struct {
	State string `json:"state"`
}

type RepresentationContent struct {
	URLTemplate string `json:"url_template"`
}

// RepresentationList is the representations field of a file object.
type RepresentationList struct {
	Entries []Representation `json:"entries"`
}

// fileRepresentations is the response of GET /files/{id}?fields=representations.
type fileRepresentations struct {
	Type            string             `json:"type"`
	ID              string             `json:"id"`
	Representations RepresentationList `json:"representations"`
}
