package gmail

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestBrowserCommand(t *testing.T) {
	cmd, args, err := browserCommand("linux", "https://accounts.google.com/o/oauth2/auth?x=1")
	require.NoError(t, err)
	assert.Equal(t, "xdg-open", cmd)
	assert.Equal(t, []string{"https://accounts.google.com/o/oauth2/auth?x=1"}, args)

	cmd, args, err = browserCommand("windows", "http://127.0.0.1:8080/")
	require.NoError(t, err)
	assert.Equal(t, "rundll32", cmd)
	assert.Equal(t, "http://127.0.0.1:8080/", args[1])

	_, _, err = browserCommand("darwin", "file:///etc/passwd")
	assert.Error(t, err)

	_, _, err = browserCommand("plan9", "https://example.com")
	assert.Error(t, err)
}
