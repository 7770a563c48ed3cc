package skills

import (
	"context"
	"encoding/base64"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"net/url"

	"github.com/dustin/go-humanize"
	"github.com/yosida95/uritemplate/v3"

	"github.com/skillskit/skills-server/internal/cloud"
	"github.com/skillskit/skills-server/internal/logging"
)

// MB is the number of bytes in a megabyte for size validation.
const MB = 1048576

// FilesReader gives a skill access to the invocation's file.
type FilesReader struct {
	fc     FileContext
	client cloud.Client
	poll   PollPolicy
	logger *slog.Logger
}

// ReaderOption configures a FilesReader.
type ReaderOption func(*FilesReader)

// WithPollPolicy overrides DefaultPollPolicy.
func WithPollPolicy(p PollPolicy) ReaderOption {
	return func(r *FilesReader) { r.poll = p }
}

// WithReaderLogger sets the reader's logger.
func WithReaderLogger(logger *slog.Logger) ReaderOption {
	return func(r *FilesReader) { r.logger = logger }
}

// NewFilesReader returns a reader for fc. client must be scoped to the
// file read token.
func NewFilesReader(fc FileContext, client cloud.Client, opts ...ReaderOption) *FilesReader {
	r := &FilesReader{
		fc:     fc,
		client: client,
		poll:   DefaultPollPolicy(),
		logger: slog.Default(),
	}
	for _, opt := range opts {
		opt(r)
	}
	return r
}

// FileContext returns the invocation's file context.
func (r *FilesReader) FileContext() FileContext {
	return r.fc
}

// ValidateSize fails with CodeInvalidFileSize when the file is larger than limitMB.
func (r *FilesReader) ValidateSize(limitMB float64) error {
	sizeMB := float64(r.fc.FileSize) / MB
	if sizeMB <= limitMB {
		return nil
	}
	r.logger.Error("file size is over accepted limit",
		"file_size", humanize.IBytes(uint64(r.fc.FileSize)),
		"limit_mb", limitMB,
	)
	return Errorf(CodeInvalidFileSize, "file size %s is over accepted limit of %g MB",
		humanize.IBytes(uint64(r.fc.FileSize)), limitMB)
}

// ValidateFormat fails with CodeInvalidFileFormat unless the file format is allowed.
func (r *FilesReader) ValidateFormat(allowed []string) error {
	for _, f := range allowed {
		if f == r.fc.FileFormat {
			return nil
		}
	}
	r.logger.Error("file format is not accepted by this skill", "file_format", r.fc.FileFormat)
	return Errorf(CodeInvalidFileFormat, "file format %q is not accepted by this skill", r.fc.FileFormat)
}

// ContentStream streams the original file. The caller closes it.
func (r *FilesReader) ContentStream(ctx context.Context) (io.ReadCloser, error) {
	body, err := r.client.Files().Download(ctx, r.fc.FileDownloadURL)
	if err != nil {
		return nil, fmt.Errorf("download file %s: %w", r.fc.FileID, err)
	}
	return body, nil
}

// Content reads the whole original file.
func (r *FilesReader) Content(ctx context.Context) ([]byte, error) {
	body, err := r.ContentStream(ctx)
	if err != nil {
		return nil, err
	}
	defer body.Close()
	return io.ReadAll(body)
}

// ContentBase64 reads the original file as base64.
func (r *FilesReader) ContentBase64(ctx context.Context) (string, error) {
	return readBase64(r.ContentStream(ctx))
}

// BasicFormatFileURL resolves the download URL of the file's basic format
// representation, polling while it is being generated.
func (r *FilesReader) BasicFormatFileURL(ctx context.Context) (string, error) {
	reps, err := r.client.Files().Representations(ctx, r.fc.FileID, r.fc.FileType.RepHints())
	if err != nil {
		return "", fmt.Errorf("get representations for file %s: %w", r.fc.FileID, err)
	}
	if len(reps.Entries) == 0 {
		r.logger.Error("could not get information for requested representation")
		return "", Errorf(CodeFileProcessing, "no representation returned for %s", r.fc.FileType.RepHints())
	}

	rep := reps.Entries[len(reps.Entries)-1]
	var urlTemplate string
	switch rep.Status.State {
	case cloud.RepStateSuccess, cloud.RepStateViewable:
		urlTemplate = rep.Content.URLTemplate
	case cloud.RepStateError:
		r.logger.Error("representation had error status")
		return "", NewError(CodeFileProcessing, errRepresentationFailed)
	case cloud.RepStateNone, cloud.RepStatePending:
		ready, err := r.pollRepresentation(ctx, rep.Info.URL)
		if err != nil {
			return "", err
		}
		urlTemplate = ready.Content.URLTemplate
	default:
		r.logger.Error("unknown representation status", "state", rep.Status.State)
		return "", Errorf(CodeFileProcessing, "unknown representation status %q", rep.Status.State)
	}

	return r.expandContentURL(urlTemplate)
}

// BasicFormatContentStream streams the basic format representation. The
// caller closes it.
func (r *FilesReader) BasicFormatContentStream(ctx context.Context) (io.ReadCloser, error) {
	u, err := r.BasicFormatFileURL(ctx)
	if err != nil {
		return nil, err
	}
	body, err := r.client.Files().Download(ctx, u)
	if err != nil {
		var apiErr *cloud.APIError
		if errors.As(err, &apiErr) && apiErr.IsUnauthorized() {
			return nil, fmt.Errorf("%w: %v", ErrUnauthorizedReadClient, err)
		}
		return nil, fmt.Errorf("download basic format of file %s: %w", r.fc.FileID, err)
	}
	return body, nil
}

// BasicFormatContentBase64 reads the basic format representation as base64.
func (r *FilesReader) BasicFormatContentBase64(ctx context.Context) (string, error) {
	return readBase64(r.BasicFormatContentStream(ctx))
}

func (r *FilesReader) expandContentURL(urlTemplate string) (string, error) {
	tmpl, err := uritemplate.New(urlTemplate)
	if err != nil {
		return "", NewError(CodeFileProcessing, fmt.Errorf("parse content url template: %w", err))
	}
	vals := uritemplate.Values{}
	vals.Set("asset_path", uritemplate.String(""))
	expanded, err := tmpl.Expand(vals)
	if err != nil {
		return "", NewError(CodeFileProcessing, fmt.Errorf("expand content url template: %w", err))
	}

	r.logger.Debug("resolved basic format url",
		"url", logging.SanitizeURL(expanded),
		"read_token", logging.SanitizeToken(r.fc.FileReadToken),
	)
	return expanded + "?access_token=" + url.QueryEscape(r.fc.FileReadToken), nil
}

func readBase64(body io.ReadCloser, err error) (string, error) {
	if err != nil {
		return "", err
	}
	defer body.Close()
	raw, err := io.ReadAll(body)
	if err != nil {
		return "", fmt.Errorf("read content: %w", err)
	}
	return base64.StdEncoding.EncodeToString(raw), nil
}
