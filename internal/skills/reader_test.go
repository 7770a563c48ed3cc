package skills

import (
	"context"
	"encoding/base64"
	"errors"
	"fmt"
	"io"
	"net/http"
	"net/http/httptest"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/skillskit/skills-server/internal/cloud"
	"github.com/skillskit/skills-server/internal/logging"
)

// fakeBox serves the representation endpoints. The initial representation
// state is first; subsequent info polls walk through states.
type fakeBox struct {
	t       *testing.T
	initial string
	states  []string
	polls   atomic.Int32
	server  *httptest.Server
}

func newFakeBox(t *testing.T, initial string, states ...string) *fakeBox {
	t.Helper()
	fb := &fakeBox{t: t, initial: initial, states: states}
	mux := http.NewServeMux()
	mux.HandleFunc("/files/123", func(w http.ResponseWriter, r *http.Request) {
		if got := r.Header.Get(cloud.RepHintsHeader); got != "[jpg?dimensions=1024x1024]" {
			t.Errorf("rep hints = %q", got)
		}
		fmt.Fprintf(w, `{"type":"file","id":"123","representations":{"entries":[
			{"representation":"png","status":{"state":"success"},"content":{"url_template":"%[1]s/ignored"},"info":{"url":"%[1]s/info"}},
			{"representation":"jpg","status":{"state":%[2]q},"content":{"url_template":"%[1]s/rep/initial/{+asset_path}"},"info":{"url":"%[1]s/info"}}
		]}}`, fb.server.URL, fb.initial)
	})
	mux.HandleFunc("/info", func(w http.ResponseWriter, r *http.Request) {
		n := int(fb.polls.Add(1)) - 1
		state := fb.states[len(fb.states)-1]
		if n < len(fb.states) {
			state = fb.states[n]
		}
		fmt.Fprintf(w, `{"status":{"state":%q},"content":{"url_template":"%s/rep/final/{+asset_path}"}}`, state, fb.server.URL)
	})
	mux.HandleFunc("/rep/", func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Query().Get("access_token") != "readtoken12345" {
			w.WriteHeader(http.StatusUnauthorized)
			return
		}
		w.Write([]byte("basic-format-bytes"))
	})
	mux.HandleFunc("/files/123/content", func(w http.ResponseWriter, r *http.Request) {
		w.Write([]byte("original-bytes"))
	})
	fb.server = httptest.NewServer(mux)
	t.Cleanup(fb.server.Close)
	return fb
}

func (fb *fakeBox) reader(t *testing.T, token string) *FilesReader {
	t.Helper()
	fc, err := EventParser{APIBaseURL: fb.server.URL}.Parse([]byte(sampleEvent))
	require.NoError(t, err)
	fc.FileReadToken = token
	client := cloud.NewHTTPClient(fb.server.URL, token, fb.server.Client(), logging.Discard())
	return NewFilesReader(fc, client,
		WithReaderLogger(logging.Discard()),
		WithPollPolicy(PollPolicy{Interval: time.Millisecond, MaxAttempts: 5, Timeout: 5 * time.Second}),
	)
}

func TestValidateSize(t *testing.T) {
	tests := []struct {
		name    string
		size    int64
		limitMB float64
		ok      bool
	}{
		{name: "under", size: 1024, limitMB: 1, ok: true},
		{name: "exact", size: 5 * MB, limitMB: 5, ok: true},
		{name: "one byte over", size: 5*MB + 1, limitMB: 5, ok: false},
		{name: "zero limit", size: 1, limitMB: 0, ok: false},
	}

	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			r := NewFilesReader(FileContext{FileSize: tc.size}, nil, WithReaderLogger(logging.Discard()))
			err := r.ValidateSize(tc.limitMB)
			if tc.ok {
				assert.NoError(t, err)
				return
			}
			require.Error(t, err)
			assert.Equal(t, CodeInvalidFileSize, CodeOf(err))
		})
	}
}

func TestValidateFormat(t *testing.T) {
	r := NewFilesReader(FileContext{FileFormat: "png"}, nil, WithReaderLogger(logging.Discard()))

	assert.NoError(t, r.ValidateFormat([]string{"jpg", "png"}))

	err := r.ValidateFormat([]string{"jpg", "jpeg"})
	require.Error(t, err)
	assert.Equal(t, CodeInvalidFileFormat, CodeOf(err))

	assert.Equal(t, CodeInvalidFileFormat, CodeOf(r.ValidateFormat(nil)))
}

func TestContentBase64(t *testing.T) {
	fb := newFakeBox(t, "success")
	got, err := fb.reader(t, "readtoken12345").ContentBase64(context.Background())
	require.NoError(t, err)
	assert.Equal(t, base64.StdEncoding.EncodeToString([]byte("original-bytes")), got)
}

func TestBasicFormatFileURL_ReadyImmediately(t *testing.T) {
	fb := newFakeBox(t, "viewable")

	got, err := fb.reader(t, "readtoken12345").BasicFormatFileURL(context.Background())
	require.NoError(t, err)
	assert.Equal(t, fb.server.URL+"/rep/initial/?access_token=readtoken12345", got)
	assert.Equal(t, int32(0), fb.polls.Load())
}

func TestBasicFormatFileURL_PollsUntilSuccess(t *testing.T) {
	fb := newFakeBox(t, "pending", "pending", "pending", "success")

	got, err := fb.reader(t, "readtoken12345").BasicFormatFileURL(context.Background())
	require.NoError(t, err)
	assert.Equal(t, fb.server.URL+"/rep/final/?access_token=readtoken12345", got)
	assert.Equal(t, int32(3), fb.polls.Load())
}

func TestBasicFormatFileURL_ErrorStopsPolling(t *testing.T) {
	fb := newFakeBox(t, "none", "pending", "error", "success")

	_, err := fb.reader(t, "readtoken12345").BasicFormatFileURL(context.Background())
	require.Error(t, err)
	assert.Equal(t, CodeFileProcessing, CodeOf(err))
	assert.Equal(t, int32(2), fb.polls.Load())
}

func TestBasicFormatFileURL_InitialStates(t *testing.T) {
	for _, state := range []string{"error", "bogus"} {
		t.Run(state, func(t *testing.T) {
			fb := newFakeBox(t, state)
			_, err := fb.reader(t, "readtoken12345").BasicFormatFileURL(context.Background())
			require.Error(t, err)
			assert.Equal(t, CodeFileProcessing, CodeOf(err))
			assert.Equal(t, int32(0), fb.polls.Load())
		})
	}
}

func TestBasicFormatFileURL_AttemptsExhausted(t *testing.T) {
	fb := newFakeBox(t, "pending", "pending")

	_, err := fb.reader(t, "readtoken12345").BasicFormatFileURL(context.Background())
	require.Error(t, err)
	assert.Equal(t, CodeFileProcessing, CodeOf(err))
	assert.Equal(t, int32(5), fb.polls.Load())
}

func TestBasicFormatFileURL_CallerCancellation(t *testing.T) {
	fb := newFakeBox(t, "pending", "pending")
	r := fb.reader(t, "readtoken12345")
	r.poll = PollPolicy{Interval: 50 * time.Millisecond, MaxAttempts: 1000, Timeout: time.Minute}

	ctx, cancel := context.WithTimeout(context.Background(), 120*time.Millisecond)
	defer cancel()

	_, err := r.BasicFormatFileURL(ctx)
	require.Error(t, err)
	assert.True(t, errors.Is(err, context.DeadlineExceeded), "err = %v", err)
	var se *Error
	assert.False(t, errors.As(err, &se))
}

func TestBasicFormatFileURL_NoEntries(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Write([]byte(`{"representations":{"entries":[]}}`))
	}))
	defer server.Close()

	client := cloud.NewHTTPClient(server.URL, "t", server.Client(), logging.Discard())
	r := NewFilesReader(FileContext{FileID: "1", FileType: TypeAudio}, client, WithReaderLogger(logging.Discard()))

	_, err := r.BasicFormatFileURL(context.Background())
	assert.Equal(t, CodeFileProcessing, CodeOf(err))
}

func TestBasicFormatContent(t *testing.T) {
	fb := newFakeBox(t, "success")

	body, err := fb.reader(t, "readtoken12345").BasicFormatContentStream(context.Background())
	require.NoError(t, err)
	data, _ := io.ReadAll(body)
	body.Close()
	assert.Equal(t, "basic-format-bytes", string(data))

	b64, err := fb.reader(t, "readtoken12345").BasicFormatContentBase64(context.Background())
	require.NoError(t, err)
	assert.Equal(t, base64.StdEncoding.EncodeToString([]byte("basic-format-bytes")), b64)
}

func TestBasicFormatContent_Unauthorized(t *testing.T) {
	fb := newFakeBox(t, "success")

	_, err := fb.reader(t, "othertoken999").BasicFormatContentStream(context.Background())
	require.Error(t, err)
	assert.True(t, errors.Is(err, ErrUnauthorizedReadClient), "err = %v", err)
}
