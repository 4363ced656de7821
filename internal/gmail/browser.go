package gmail

import (
	"fmt"
	"os/exec"
	"runtime"
	"strings"
)

// browserCommand returns the launcher for url on goos.
func browserCommand(goos, url string) (string, []string, error) {
	lower := strings.ToLower(url)
	if !strings.HasPrefix(lower, "http://") && !strings.HasPrefix(lower, "https://") {
		return "", nil, fmt.Errorf("refusing to open non-HTTP URL: %s", url)
	}
	switch goos {
	case "darwin":
		return "open", []string{url}, nil
	case "linux", "freebsd", "openbsd":
		return "xdg-open", []string{url}, nil
	case "windows":
		return "rundll32", []string{"url.dll,FileProtocolHandler", url}, nil
	default:
		return "", nil, fmt.Errorf("unsupported platform %s", goos)
	}
}

// OpenBrowser opens url in the user's default browser without waiting.
func OpenBrowser(url string) error {
	cmd, args, err := browserCommand(runtime.GOOS, url)
	if err != nil {
		return err
	}
	return exec.Command(cmd, args...).Start()
}
