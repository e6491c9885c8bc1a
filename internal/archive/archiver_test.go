package archive

import (
	"context"
	"errors"
	"io"
	"net/http"
	"net/http/httptest"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/edgard/editlogbot/internal/database"
)

type fakeSource struct {
	resolveErr  error
	downloadErr error
	data        []byte
	resolved    []string
	downloaded  []string
	block       bool
}

func (f *fakeSource) ResolveFile(ctx context.Context, fileID string) (string, error) {
	f.resolved = append(f.resolved, fileID)
	if f.resolveErr != nil {
		return "", f.resolveErr
	}
	return "files/" + fileID, nil
}

func (f *fakeSource) Download(ctx context.Context, handle string) ([]byte, error) {
	f.downloaded = append(f.downloaded, handle)
	if f.block {
		<-ctx.Done()
		return nil, ctx.Err()
	}
	if f.downloadErr != nil {
		return nil, f.downloadErr
	}
	return f.data, nil
}

type putCall struct {
	key         string
	data        []byte
	contentType string
}

type fakeObjectStore struct {
	mu    sync.Mutex
	err   error
	calls []putCall
}

func (f *fakeObjectStore) PutObject(ctx context.Context, key string, data []byte, contentType string) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.calls = append(f.calls, putCall{key: key, data: data, contentType: contentType})
	return f.err
}

func newTestArchiver(source FileSource, store ObjectStore) *Archiver {
	a := NewArchiver(source, store, "https://media.example.com/", Timeouts{
		Resolve:  time.Second,
		Download: time.Second,
		Upload:   time.Second,
	}, nil)
	a.newKey = func() string { return "fixed-key" }
	return a
}

func TestArchiver_ArchiveSuccess(t *testing.T) {
	t.Parallel()

	jpeg := []byte{0xFF, 0xD8, 0xFF, 0xE0, 0x00, 0x10, 0x4A, 0x46, 0x49, 0x46}
	source := &fakeSource{data: jpeg}
	store := &fakeObjectStore{}
	a := newTestArchiver(source, store)

	res := a.Archive(context.Background(), MediaRef{FileID: "AgAD", Kind: database.MediaPhoto})

	require.NoError(t, res.Err)
	assert.True(t, res.Archived())
	assert.Equal(t, "https://media.example.com/fixed-key.jpg", res.URL)
	assert.Equal(t, "fixed-key.jpg", res.Key)
	assert.Equal(t, database.MediaPhoto, res.Kind)

	assert.Equal(t, []string{"AgAD"}, source.resolved)
	assert.Equal(t, []string{"files/AgAD"}, source.downloaded)
	require.Len(t, store.calls, 1)
	assert.Equal(t, "fixed-key.jpg", store.calls[0].key)
	assert.Equal(t, jpeg, store.calls[0].data)
	assert.Equal(t, "image/jpeg", store.calls[0].contentType)
}

func TestArchiver_ContentTypeFromRef(t *testing.T) {
	t.Parallel()

	store := &fakeObjectStore{}
	a := newTestArchiver(&fakeSource{data: []byte("OggS")}, store)

	res := a.Archive(context.Background(), MediaRef{FileID: "v", Kind: database.MediaVoice, MimeType: "audio/ogg"})

	require.True(t, res.Archived())
	require.Len(t, store.calls, 1)
	assert.Equal(t, "audio/ogg", store.calls[0].contentType)
	assert.True(t, strings.HasSuffix(res.URL, ".ogg"))
}

func TestArchiver_GeneratesDistinctKeys(t *testing.T) {
	t.Parallel()

	store := &fakeObjectStore{}
	a := NewArchiver(&fakeSource{data: []byte("x")}, store, "https://media.example.com", Timeouts{}, nil)

	first := a.Archive(context.Background(), MediaRef{FileID: "same", Kind: database.MediaVideo})
	second := a.Archive(context.Background(), MediaRef{FileID: "same", Kind: database.MediaVideo})

	require.True(t, first.Archived())
	require.True(t, second.Archived())
	assert.NotEqual(t, first.Key, second.Key)
	assert.True(t, strings.HasPrefix(first.URL, "https://media.example.com/"))
	assert.Equal(t, "https://media.example.com/"+first.Key, first.URL)
}

func TestArchiver_Failures(t *testing.T) {
	t.Parallel()

	boom := errors.New("boom")
	tests := []struct {
		name    string
		source  *fakeSource
		store   *fakeObjectStore
		ref     MediaRef
		wantPut int
	}{
		{
			name:   "resolve fails",
			source: &fakeSource{resolveErr: boom},
			store:  &fakeObjectStore{},
			ref:    MediaRef{FileID: "f", Kind: database.MediaPhoto},
		},
		{
			name:   "download fails",
			source: &fakeSource{downloadErr: boom},
			store:  &fakeObjectStore{},
			ref:    MediaRef{FileID: "f", Kind: database.MediaVideo},
		},
		{
			name:    "upload fails",
			source:  &fakeSource{data: []byte("data")},
			store:   &fakeObjectStore{err: boom},
			ref:     MediaRef{FileID: "f", Kind: database.MediaDocument, FileName: "report.pdf"},
			wantPut: 1,
		},
		{
			name:   "empty file id",
			source: &fakeSource{data: []byte("data")},
			store:  &fakeObjectStore{},
			ref:    MediaRef{Kind: database.MediaVoice},
		},
	}

	for _, tt := range tests {
		tt := tt
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()
			a := newTestArchiver(tt.source, tt.store)

			res := a.Archive(context.Background(), tt.ref)

			assert.Error(t, res.Err)
			assert.False(t, res.Archived())
			assert.Empty(t, res.URL)
			assert.Empty(t, res.Key)
			assert.Equal(t, tt.ref.Kind, res.Kind, "detected kind is kept on failure")
			assert.Len(t, tt.store.calls, tt.wantPut)
		})
	}
}

func TestArchiver_DownloadTimeout(t *testing.T) {
	t.Parallel()

	store := &fakeObjectStore{}
	a := NewArchiver(&fakeSource{block: true}, store, "https://media.example.com", Timeouts{Download: 20 * time.Millisecond}, nil)

	res := a.Archive(context.Background(), MediaRef{FileID: "slow", Kind: database.MediaVideo})

	assert.ErrorIs(t, res.Err, context.DeadlineExceeded)
	assert.Empty(t, store.calls)
}

func TestArchiver_Disabled(t *testing.T) {
	t.Parallel()

	a := NewArchiver(&fakeSource{}, nil, "", Timeouts{}, nil)
	res := a.Archive(context.Background(), MediaRef{FileID: "f", Kind: database.MediaPhoto})

	assert.ErrorIs(t, res.Err, ErrDisabled)
	assert.Equal(t, database.MediaPhoto, res.Kind)
}

func TestExtension(t *testing.T) {
	t.Parallel()

	tests := []struct {
		name string
		ref  MediaRef
		want string
	}{
		{name: "photo", ref: MediaRef{Kind: database.MediaPhoto}, want: ".jpg"},
		{name: "video", ref: MediaRef{Kind: database.MediaVideo}, want: ".mp4"},
		{name: "video note", ref: MediaRef{Kind: database.MediaVideoNote}, want: ".mp4"},
		{name: "voice", ref: MediaRef{Kind: database.MediaVoice}, want: ".ogg"},
		{name: "document with name", ref: MediaRef{Kind: database.MediaDocument, FileName: "Report.PDF"}, want: ".pdf"},
		{name: "document without name", ref: MediaRef{Kind: database.MediaDocument}, want: ".bin"},
		{name: "document trailing dot", ref: MediaRef{Kind: database.MediaDocument, FileName: "archive."}, want: ".bin"},
	}

	for _, tt := range tests {
		tt := tt
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()
			assert.Equal(t, tt.want, Extension(tt.ref))
		})
	}
}

func TestParseEndpoint(t *testing.T) {
	t.Parallel()

	tests := []struct {
		input      string
		wantHost   string
		wantSecure bool
		wantErr    bool
	}{
		{input: "https://acct.r2.cloudflarestorage.com", wantHost: "acct.r2.cloudflarestorage.com", wantSecure: true},
		{input: "http://localhost:9000", wantHost: "localhost:9000", wantSecure: false},
		{input: "s3.amazonaws.com", wantHost: "s3.amazonaws.com", wantSecure: true},
		{input: "", wantErr: true},
		{input: "ftp://example.com", wantErr: true},
	}

	for _, tt := range tests {
		tt := tt
		t.Run(tt.input, func(t *testing.T) {
			t.Parallel()
			host, secure, err := ParseEndpoint(tt.input)
			if tt.wantErr {
				assert.Error(t, err)
				return
			}
			require.NoError(t, err)
			assert.Equal(t, tt.wantHost, host)
			assert.Equal(t, tt.wantSecure, secure)
		})
	}
}

func TestMinioStore_PutObject(t *testing.T) {
	t.Parallel()

	var (
		mu         sync.Mutex
		gotMethod  string
		gotPath    string
		gotBody    string
		gotContent string
	)
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		body, _ := io.ReadAll(r.Body)
		mu.Lock()
		gotMethod, gotPath, gotBody, gotContent = r.Method, r.URL.Path, string(body), r.Header.Get("Content-Type")
		mu.Unlock()
		w.Header().Set("ETag", `"d41d8cd98f00b204e9800998ecf8427e"`)
		w.WriteHeader(http.StatusOK)
	}))
	defer srv.Close()

	store, err := NewMinioStore(MinioConfig{
		Endpoint:  srv.URL,
		AccessKey: "access",
		SecretKey: "secret",
		Bucket:    "media",
		Region:    "auto",
	})
	require.NoError(t, err)

	require.NoError(t, store.PutObject(context.Background(), "abc.jpg", []byte("payload"), "image/jpeg"))

	mu.Lock()
	defer mu.Unlock()
	assert.Equal(t, http.MethodPut, gotMethod)
	assert.Equal(t, "/media/abc.jpg", gotPath)
	assert.Equal(t, "payload", gotBody)
	assert.Equal(t, "image/jpeg", gotContent)
}
