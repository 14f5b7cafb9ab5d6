package windowfind

import (
	"fmt"
	"log"
	"os/exec"
	"strings"
)

// InstallHint is shown when the window-search tool is missing.
const InstallHint = "install xdotool (e.g. sudo apt install xdotool)"

var (
	lookPath  = exec.LookPath
	runOutput = func(name string, args ...string) ([]byte, error) {
		return exec.Command(name, args...).Output()
	}
)

// Find resolves a window name pattern to a window identifier using the
// search tool. The first match wins. When nothing matches, the error
// includes the currently visible windows as a diagnostic aid.
func Find(pattern string) (string, error) {
	if _, err := lookPath("xdotool"); err != nil {
		return "", fmt.Errorf("window search unavailable: %s", InstallHint)
	}

	out, err := runOutput("xdotool", "search", "--name", pattern)
	ids := strings.Fields(strings.TrimSpace(string(out)))
	if err != nil || len(ids) == 0 {
		available := List()
		if len(available) > 0 {
			return "", fmt.Errorf("no window matching %q; visible windows:\n  %s", pattern, strings.Join(available, "\n  "))
		}
		return "", fmt.Errorf("no window matching %q", pattern)
	}

	if len(ids) > 1 {
		log.Printf("Window search: %d matches for %q, using first (%s)", len(ids), pattern, ids[0])
	}
	return ids[0], nil
}

// List enumerates visible window titles, best effort. Used only for
// diagnostics when a pattern fails to match.
func List() []string {
	if _, err := lookPath("wmctrl"); err != nil {
		return nil
	}
	out, err := runOutput("wmctrl", "-l")
	if err != nil {
		return nil
	}
	var titles []string
	for _, line := range strings.Split(strings.TrimSpace(string(out)), "\n") {
		// wmctrl -l: <id> <desktop> <host> <title...>
		fields := strings.SplitN(line, " ", 4)
		if len(fields) == 4 && strings.TrimSpace(fields[3]) != "" {
			titles = append(titles, strings.TrimSpace(fields[3]))
		}
	}
	return titles
}
