package capture

import (
	"bytes"
	"fmt"
	"image/png"
	"log"
	"os"
	"os/exec"
	"strings"

	"github.com/kbinani/screenshot"

	"dashshot/src/artifact"
	"dashshot/src/request"
	"dashshot/src/windowfind"
)

// InstallHint is shown when no capture tool can be found.
const InstallHint = "install a capture tool (e.g. sudo apt install maim, or scrot)"

// Error means the selected backend produced no artifact. Capture failures
// are fatal; there is no degraded result without a raw capture.
type Error struct {
	Mode request.Mode
	Hint string
	Err  error
}

func (e *Error) Error() string {
	msg := fmt.Sprintf("%s capture failed: %v", e.Mode, e.Err)
	if e.Hint != "" {
		msg += " (" + e.Hint + ")"
	}
	return msg
}

func (e *Error) Unwrap() error { return e.Err }

// strategy is one external capture command. Args receive the output path
// and, for window capture, the resolved window id.
type strategy struct {
	name   string
	binary string
	args   func(out, windowID string) []string
}

var selectStrategies = []strategy{
	{name: "maim-select", binary: "maim", args: func(out, _ string) []string { return []string{"-s", out} }},
	{name: "scrot-select", binary: "scrot", args: func(out, _ string) []string { return []string{"-s", "-o", out} }},
	{name: "import-select", binary: "import", args: func(out, _ string) []string { return []string{out} }},
}

var fullStrategies = []strategy{
	{name: "maim", binary: "maim", args: func(out, _ string) []string { return []string{out} }},
	{name: "scrot", binary: "scrot", args: func(out, _ string) []string { return []string{"-o", out} }},
	{name: "import-root", binary: "import", args: func(out, _ string) []string { return []string{"-window", "root", out} }},
}

// Window capture prefers import -window <id>; when import is missing the
// fallback is the generic tool's active-window flag. Nothing beyond these
// two is attempted.
var (
	windowStrategy = strategy{name: "import-window", binary: "import",
		args: func(out, id string) []string { return []string{"-window", id, out} }}
	windowFallback = strategy{name: "scrot-active", binary: "scrot",
		args: func(out, _ string) []string { return []string{"-u", "-o", out} }}
)

// Swapped out in tests.
var (
	lookPath      = exec.LookPath
	runCmd        = runCaptureCmd
	findWindow    = windowfind.Find
	captureNative = captureNativeScreen
)

// Capture runs the backend for the request's mode, writing the raw raster
// to outPath. Success for every backend means the output file exists on
// disk; exit codes alone are not trusted because some tools exit 0 without
// producing a file under certain compositors.
func Capture(req *request.CaptureRequest, outPath string) (artifact.Artifact, error) {
	var err error
	switch req.Mode {
	case request.ModeSelect:
		err = captureSelect(outPath)
	case request.ModeWindow:
		err = captureWindow(req.WindowPattern, outPath)
	default:
		err = captureFull(outPath)
	}
	if err != nil {
		return artifact.Artifact{}, err
	}

	a := artifact.Artifact{Path: outPath}
	if !a.Exists() {
		return artifact.Artifact{}, &Error{Mode: req.Mode, Err: fmt.Errorf("capture tool exited cleanly but produced no file at %s", outPath)}
	}
	return a, nil
}

// captureSelect runs the first installed interactive selection tool. An
// interactive selection that fails (or is cancelled) is terminal: there is
// no sensible fallback once the user has been prompted.
func captureSelect(out string) error {
	for _, s := range selectStrategies {
		if _, err := lookPath(s.binary); err != nil {
			continue
		}
		log.Printf("Capture: interactive selection via %s", s.name)
		if err := runCmd(s.binary, s.args(out, "")); err != nil {
			return &Error{Mode: request.ModeSelect, Err: fmt.Errorf("%s: %w", s.name, err)}
		}
		return nil
	}
	return &Error{Mode: request.ModeSelect, Hint: InstallHint, Err: fmt.Errorf("no selection tool installed")}
}

func captureWindow(pattern, out string) error {
	id, err := findWindow(pattern)
	if err != nil {
		return &Error{Mode: request.ModeWindow, Err: err}
	}
	log.Printf("Capture: window %q resolved to id %s", pattern, id)

	if _, err := lookPath(windowStrategy.binary); err == nil {
		if err := runCmd(windowStrategy.binary, windowStrategy.args(out, id)); err != nil {
			return &Error{Mode: request.ModeWindow, Err: fmt.Errorf("%s: %w", windowStrategy.name, err)}
		}
		return nil
	}

	log.Printf("Capture: %s not installed, falling back to %s", windowStrategy.binary, windowFallback.name)
	if _, err := lookPath(windowFallback.binary); err != nil {
		return &Error{Mode: request.ModeWindow, Hint: InstallHint, Err: fmt.Errorf("no window capture tool installed")}
	}
	if err := runCmd(windowFallback.binary, windowFallback.args(out, id)); err != nil {
		return &Error{Mode: request.ModeWindow, Err: fmt.Errorf("%s: %w", windowFallback.name, err)}
	}
	return nil
}

// captureFull walks the strategy list in priority order; when no external
// tool is installed it falls back to the in-process capture path so bare
// hosts can still produce a screenshot.
func captureFull(out string) error {
	for _, s := range fullStrategies {
		if _, err := lookPath(s.binary); err != nil {
			continue
		}
		log.Printf("Capture: full screen via %s", s.name)
		if err := runCmd(s.binary, s.args(out, "")); err != nil {
			return &Error{Mode: request.ModeFull, Err: fmt.Errorf("%s: %w", s.name, err)}
		}
		return nil
	}

	log.Printf("Capture: no external tool installed, using native capture")
	if err := captureNative(out); err != nil {
		return &Error{Mode: request.ModeFull, Hint: InstallHint, Err: err}
	}
	return nil
}

func runCaptureCmd(name string, args []string) error {
	cmd := exec.Command(name, args...)
	var stderr bytes.Buffer
	cmd.Stderr = &stderr
	if err := cmd.Run(); err != nil {
		if msg := strings.TrimSpace(stderr.String()); msg != "" {
			return fmt.Errorf("%s: %s", err, msg)
		}
		return err
	}
	return nil
}

// captureNativeScreen grabs the union of all active displays in-process
// and writes it as PNG.
func captureNativeScreen(out string) error {
	n := screenshot.NumActiveDisplays()
	if n == 0 {
		return fmt.Errorf("no active displays found")
	}
	union := screenshot.GetDisplayBounds(0)
	for i := 1; i < n; i++ {
		union = union.Union(screenshot.GetDisplayBounds(i))
	}
	img, err := screenshot.CaptureRect(union)
	if err != nil {
		return fmt.Errorf("native capture: %w", err)
	}

	f, err := os.Create(out)
	if err != nil {
		return err
	}
	defer f.Close()
	if err := png.Encode(f, img); err != nil {
		return fmt.Errorf("encode capture: %w", err)
	}
	return nil
}
