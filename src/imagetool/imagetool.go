package imagetool

import (
	"bytes"
	"fmt"
	"image"
	_ "image/jpeg"
	_ "image/png"
	"log"
	"os"
	"os/exec"
	"strings"

	"dashshot/src/geometry"
)

// Processor is the post-processing capability the pipeline depends on:
// crop by rectangle, resize by percentage, and dimension probing.
type Processor interface {
	Crop(src, dst string, r geometry.Rect) error
	ResizePercent(src, dst string, percent float64) error
	Probe(path string) (width, height int, err error)
}

// lookPath is swapped out in tests to simulate missing binaries.
var lookPath = exec.LookPath

// candidate is one ImageMagick-compatible toolchain, tried in order.
type candidate struct {
	name     string
	convert  []string
	identify []string
}

var candidates = []candidate{
	{name: "magick", convert: []string{"magick"}, identify: []string{"magick", "identify"}},
	{name: "imagemagick", convert: []string{"convert"}, identify: []string{"identify"}},
	{name: "graphicsmagick", convert: []string{"gm", "convert"}, identify: []string{"gm", "identify"}},
}

// InstallHint is shown when no image toolchain is installed.
const InstallHint = "install ImageMagick (e.g. sudo apt install imagemagick)"

// Tool is the exec-backed Processor. The zero value is not usable; obtain
// one through Detect.
type Tool struct {
	convert  []string
	identify []string
}

// Detect probes the known toolchains in priority order and returns the
// first one present on PATH.
func Detect() (*Tool, error) {
	for _, c := range candidates {
		if _, err := lookPath(c.convert[0]); err == nil {
			log.Printf("Image tool: using %s", c.name)
			return &Tool{convert: c.convert, identify: c.identify}, nil
		}
	}
	return nil, fmt.Errorf("no image tool found: %s", InstallHint)
}

// Available reports whether any supported image toolchain is on PATH.
func Available() bool {
	_, err := Detect()
	return err == nil
}

// Crop writes the r sub-rectangle of src to dst. Success requires dst to
// exist afterwards; the tool's exit code alone is not trusted.
func (t *Tool) Crop(src, dst string, r geometry.Rect) error {
	args := append(append([]string{}, t.convert[1:]...), src, "-crop", r.String(), "+repage", dst)
	if err := runTool(t.convert[0], args); err != nil {
		return fmt.Errorf("crop %s failed: %w", r, err)
	}
	if _, err := os.Stat(dst); err != nil {
		return fmt.Errorf("crop %s produced no output file", r)
	}
	return nil
}

// ResizePercent scales src by the given percentage into dst.
func (t *Tool) ResizePercent(src, dst string, percent float64) error {
	args := append(append([]string{}, t.convert[1:]...), src, "-resize", fmt.Sprintf("%g%%", percent), dst)
	if err := runTool(t.convert[0], args); err != nil {
		return fmt.Errorf("resize to %g%% failed: %w", percent, err)
	}
	if _, err := os.Stat(dst); err != nil {
		return fmt.Errorf("resize to %g%% produced no output file", percent)
	}
	return nil
}

// Probe returns the pixel dimensions of the image at path. It asks the
// external tool first and falls back to decoding the header natively, so
// probing keeps working when only the capture tools are installed.
func (t *Tool) Probe(path string) (int, int, error) {
	args := append(append([]string{}, t.identify[1:]...), "-format", "%wx%h", path)
	out, err := exec.Command(t.identify[0], args...).Output()
	if err == nil {
		if w, h, perr := parseDims(strings.TrimSpace(string(out))); perr == nil {
			return w, h, nil
		}
	}
	return ProbeNative(path)
}

// ProbeNative reads only the image header to get dimensions. PNG and JPEG
// are registered; that covers everything the capture backends emit.
func ProbeNative(path string) (int, int, error) {
	f, err := os.Open(path)
	if err != nil {
		return 0, 0, fmt.Errorf("probe %s: %w", path, err)
	}
	defer f.Close()

	cfg, _, err := image.DecodeConfig(f)
	if err != nil {
		return 0, 0, fmt.Errorf("probe %s: %w", path, err)
	}
	return cfg.Width, cfg.Height, nil
}

func parseDims(s string) (int, int, error) {
	var w, h int
	if _, err := fmt.Sscanf(s, "%dx%d", &w, &h); err != nil {
		return 0, 0, fmt.Errorf("unexpected identify output %q", s)
	}
	if w <= 0 || h <= 0 {
		return 0, 0, fmt.Errorf("non-positive dimensions in %q", s)
	}
	return w, h, nil
}

func runTool(name string, args []string) error {
	cmd := exec.Command(name, args...)
	var stderr bytes.Buffer
	cmd.Stderr = &stderr
	if err := cmd.Run(); err != nil {
		msg := strings.TrimSpace(stderr.String())
		if msg != "" {
			return fmt.Errorf("%s: %s", err, msg)
		}
		return err
	}
	return nil
}
