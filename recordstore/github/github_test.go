package github_test

import (
	"context"
	"crypto/sha1"
	"encoding/base64"
	"encoding/hex"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"net/http/httptest"
	"strings"
	"sync"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/warp/leave-register/generic"
	"github.com/warp/leave-register/recordstore/github"
	"github.com/warp/leave-register/recordstore/storetest"
)

// fakeGitHub is a minimal contents API: one branch, SHA per write.
type fakeGitHub struct {
	mu     sync.Mutex
	files  map[string]fakeFile
	writes int
	status int // when set, every request answers with it
	tokens []string
}

type fakeFile struct {
	content []byte
	sha     string
}

func newFakeGitHub(t *testing.T) (*fakeGitHub, *httptest.Server) {
	t.Helper()
	f := &fakeGitHub{files: make(map[string]fakeFile)}
	srv := httptest.NewServer(f)
	t.Cleanup(srv.Close)
	return f, srv
}

func (f *fakeGitHub) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	f.mu.Lock()
	defer f.mu.Unlock()

	f.tokens = append(f.tokens, r.Header.Get("Authorization"))
	if f.status != 0 {
		w.WriteHeader(f.status)
		fmt.Fprint(w, `{"message":"forced"}`)
		return
	}

	const prefix = "/repos/acme/leave-data/contents/"
	if !strings.HasPrefix(r.URL.Path, prefix) {
		http.NotFound(w, r)
		return
	}
	path := strings.TrimPrefix(r.URL.Path, prefix)

	switch r.Method {
	case http.MethodGet:
		file, ok := f.files[path]
		if !ok || r.URL.Query().Get("ref") != "data" {
			w.WriteHeader(http.StatusNotFound)
			return
		}
		encoded := base64.StdEncoding.EncodeToString(file.content)
		// Wrap like GitHub does.
		var wrapped strings.Builder
		for i := 0; i < len(encoded); i += 60 {
			end := i + 60
			if end > len(encoded) {
				end = len(encoded)
			}
			wrapped.WriteString(encoded[i:end] + "\n")
		}
		json.NewEncoder(w).Encode(map[string]string{"sha": file.sha, "content": wrapped.String(), "encoding": "base64"})

	case http.MethodPut:
		var body struct {
			Content string `json:"content"`
			SHA     string `json:"sha"`
			Branch  string `json:"branch"`
		}
		if err := json.NewDecoder(r.Body).Decode(&body); err != nil || body.Branch != "data" {
			w.WriteHeader(http.StatusBadRequest)
			return
		}
		current, exists := f.files[path]
		switch {
		case body.SHA == "" && exists:
			w.WriteHeader(http.StatusUnprocessableEntity)
			return
		case body.SHA != "" && (!exists || current.sha != body.SHA):
			w.WriteHeader(http.StatusConflict)
			return
		}
		content, _ := base64.StdEncoding.DecodeString(body.Content)
		f.writes++
		sum := sha1.Sum([]byte(fmt.Sprintf("%d:%s", f.writes, content)))
		sha := hex.EncodeToString(sum[:])
		f.files[path] = fakeFile{content: content, sha: sha}

		w.WriteHeader(http.StatusCreated)
		json.NewEncoder(w).Encode(map[string]any{"content": map[string]string{"sha": sha}})

	default:
		w.WriteHeader(http.StatusMethodNotAllowed)
	}
}

func newTestStore(t *testing.T, srv *httptest.Server) *github.Store {
	t.Helper()
	s, err := github.New(github.Config{
		APIURL: srv.URL,
		Owner:  "acme",
		Repo:   "leave-data",
		Branch: "data",
		Token:  "secret",
	})
	require.NoError(t, err)
	return s
}

func TestGitHub_Conformance(t *testing.T) {
	storetest.Run(t, func(t *testing.T) generic.BlobStore {
		_, srv := newFakeGitHub(t)
		return newTestStore(t, srv)
	})
}

func TestGitHub_SendsToken(t *testing.T) {
	fake, srv := newFakeGitHub(t)
	s := newTestStore(t, srv)

	_, _ = s.Get(context.Background(), "accounts.json")

	require.NotEmpty(t, fake.tokens)
	assert.Equal(t, "Bearer secret", fake.tokens[0])
}

func TestGitHub_LargeContentRoundTrip(t *testing.T) {
	_, srv := newFakeGitHub(t)
	s := newTestStore(t, srv)
	content := []byte(strings.Repeat(`{"used_days":["2024-01-02"]}`, 20))

	_, err := s.Put(context.Background(), "ledgers/ana.json", content, "")
	require.NoError(t, err)

	blob, err := s.Get(context.Background(), "ledgers/ana.json")
	require.NoError(t, err)
	assert.Equal(t, content, blob.Content)
}

func TestGitHub_HostFailuresAreUnavailable(t *testing.T) {
	for _, status := range []int{http.StatusUnauthorized, http.StatusForbidden, http.StatusTooManyRequests, http.StatusBadGateway} {
		t.Run(http.StatusText(status), func(t *testing.T) {
			// GIVEN: A host answering with a failure status
			fake, srv := newFakeGitHub(t)
			fake.status = status
			s := newTestStore(t, srv)

			// WHEN: Reading and writing
			_, getErr := s.Get(context.Background(), "accounts.json")
			_, putErr := s.Put(context.Background(), "accounts.json", []byte(`{}`), "abc")

			// THEN: Unavailable, never NotFound or Conflict
			assert.ErrorIs(t, getErr, generic.ErrUnavailable)
			assert.False(t, errors.Is(getErr, generic.ErrNotFound))
			assert.ErrorIs(t, putErr, generic.ErrUnavailable)
			assert.False(t, errors.Is(putErr, generic.ErrConflict))
		})
	}
}

func TestGitHub_TransportErrorIsUnavailable(t *testing.T) {
	_, srv := newFakeGitHub(t)
	s := newTestStore(t, srv)
	srv.Close()

	_, err := s.Get(context.Background(), "accounts.json")
	assert.ErrorIs(t, err, generic.ErrUnavailable)
}

func TestGitHub_NewValidates(t *testing.T) {
	_, err := github.New(github.Config{Owner: "acme"})
	assert.ErrorIs(t, err, generic.ErrInvalidInput)
}
