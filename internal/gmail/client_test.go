package gmail

import (
	"bytes"
	"context"
	"errors"
	"net/http"
	"net/http/httptest"
	"net/url"
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/charmbracelet/log"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"golang.org/x/oauth2"
)

func TestFileTokenStore_RoundTrip(t *testing.T) {
	store := FileTokenStore{Path: filepath.Join(t.TempDir(), "nested", "token.json")}

	_, err := store.Load()
	assert.ErrorIs(t, err, ErrNoToken)

	tok := &oauth2.Token{
		AccessToken:  "access",
		RefreshToken: "refresh",
		TokenType:    "Bearer",
		Expiry:       time.Date(2030, 1, 1, 0, 0, 0, 0, time.UTC),
	}
	require.NoError(t, store.Save(tok))

	got, err := store.Load()
	require.NoError(t, err)
	assert.Equal(t, "access", got.AccessToken)
	assert.Equal(t, "refresh", got.RefreshToken)
	assert.True(t, tok.Expiry.Equal(got.Expiry))

	require.NoError(t, store.Delete())
	require.NoError(t, store.Delete(), "deleting twice is fine")
	_, err = store.Load()
	assert.ErrorIs(t, err, ErrNoToken)
}

func TestCodeFromInput(t *testing.T) {
	tests := []struct {
		in      string
		want    string
		wantErr bool
	}{
		{"4/abc", "4/abc", false},
		{"  4/abc \n", "4/abc", false},
		{"http://127.0.0.1:5555/?state=state-token&code=4%2Fxyz&scope=gmail", "4/xyz", false},
		{"https://localhost/?state=x", "", true},
		{"", "", true},
	}
	for _, tc := range tests {
		got, err := codeFromInput(tc.in)
		if tc.wantErr {
			assert.Error(t, err, "codeFromInput(%q)", tc.in)
			continue
		}
		require.NoError(t, err, "codeFromInput(%q)", tc.in)
		assert.Equal(t, tc.want, got)
	}
}

type countingStore struct {
	saved int
}

func (c *countingStore) Load() (*oauth2.Token, error) { return nil, ErrNoToken }
func (c *countingStore) Save(*oauth2.Token) error     { c.saved++; return nil }
func (c *countingStore) Delete() error                { return nil }

type sequenceSource struct {
	tokens []string
	i      int
}

func (s *sequenceSource) Token() (*oauth2.Token, error) {
	tok := &oauth2.Token{AccessToken: s.tokens[s.i]}
	if s.i < len(s.tokens)-1 {
		s.i++
	}
	return tok, nil
}

func TestPersistingTokenSource_SavesOnlyRefreshedTokens(t *testing.T) {
	store := &countingStore{}
	ts := &persistingTokenSource{
		base:  &sequenceSource{tokens: []string{"a", "a", "b", "b"}},
		store: store,
		last:  "a",
	}
	for i := 0; i < 4; i++ {
		_, err := ts.Token()
		require.NoError(t, err)
	}
	assert.Equal(t, 1, store.saved)
}

type failingStore struct{ countingStore }

func (f *failingStore) Save(*oauth2.Token) error { f.saved++; return errors.New("disk full") }

func TestPersistingTokenSource_LogsFailedSave(t *testing.T) {
	store := &failingStore{}
	var logs bytes.Buffer
	ts := &persistingTokenSource{
		base:   &sequenceSource{tokens: []string{"b"}},
		store:  store,
		last:   "a",
		logger: log.New(&logs),
	}

	tok, err := ts.Token()
	require.NoError(t, err)
	assert.Equal(t, "b", tok.AccessToken)
	assert.Equal(t, 1, store.saved)
	assert.Contains(t, logs.String(), "saving refreshed token failed")
	assert.Contains(t, logs.String(), "disk full")
}

func TestFileTokenStore_SaveFailureLeavesNoTempFile(t *testing.T) {
	dir := t.TempDir()
	// A directory at the target path makes the final rename fail.
	target := filepath.Join(dir, "token.json")
	require.NoError(t, os.MkdirAll(filepath.Join(target, "child"), 0o700))

	err := FileTokenStore{Path: target}.Save(&oauth2.Token{AccessToken: "x"})
	assert.Error(t, err)
	_, err = os.Stat(target + ".tmp")
	assert.True(t, os.IsNotExist(err))
}

func TestAuthorize_LoopbackRedirect(t *testing.T) {
	tokenSrv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.NoError(t, r.ParseForm())
		assert.Equal(t, "code-123", r.PostForm.Get("code"))
		assert.True(t, strings.HasPrefix(r.PostForm.Get("redirect_uri"), "http://127.0.0.1:"))
		w.Header().Set("Content-Type", "application/json")
		_, _ = w.Write([]byte(`{"access_token":"tok","refresh_token":"ref","token_type":"Bearer","expires_in":3600}`))
	}))
	defer tokenSrv.Close()

	prev := openBrowser
	t.Cleanup(func() { openBrowser = prev })
	openBrowser = func(authURL string) error {
		u, err := url.Parse(authURL)
		if err != nil {
			return err
		}
		redirect := u.Query().Get("redirect_uri")
		go func() {
			resp, err := http.Get(redirect + "?state=state-token&code=code-123")
			if err == nil {
				resp.Body.Close()
			}
		}()
		return nil
	}

	cfg := &oauth2.Config{
		ClientID:     "id",
		ClientSecret: "secret",
		Endpoint:     oauth2.Endpoint{AuthURL: tokenSrv.URL + "/auth", TokenURL: tokenSrv.URL + "/token"},
	}
	store := FileTokenStore{Path: filepath.Join(t.TempDir(), "token.json")}
	var out bytes.Buffer

	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	require.NoError(t, Authorize(ctx, cfg, store, strings.NewReader(""), &out))

	tok, err := store.Load()
	require.NoError(t, err)
	assert.Equal(t, "tok", tok.AccessToken)
	assert.Equal(t, "ref", tok.RefreshToken)
	assert.Contains(t, out.String(), "Authentication successful.")
	assert.Empty(t, cfg.RedirectURL, "redirect is restored after the exchange")
}
