package pipeline

import (
	"errors"
	"fmt"
	"image"
	"image/png"
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"dashshot/src/artifact"
	"dashshot/src/geometry"
	"dashshot/src/request"
)

// fakeProc implements imagetool.Processor against real PNG files so the
// chain's recursive dimension probing is exercised for real.
type fakeProc struct {
	cropCalls  int
	failCropAt int // 1-based call index to fail at, 0 = never
	failResize bool
}

func (p *fakeProc) Probe(path string) (int, int, error) {
	f, err := os.Open(path)
	if err != nil {
		return 0, 0, err
	}
	defer f.Close()
	cfg, err := png.DecodeConfig(f)
	if err != nil {
		return 0, 0, err
	}
	return cfg.Width, cfg.Height, nil
}

func (p *fakeProc) Crop(src, dst string, r geometry.Rect) error {
	p.cropCalls++
	if p.failCropAt != 0 && p.cropCalls >= p.failCropAt {
		return errors.New("simulated crop failure")
	}
	img, err := decodePNG(src)
	if err != nil {
		return err
	}
	out := image.NewRGBA(image.Rect(0, 0, r.W, r.H))
	for y := 0; y < r.H; y++ {
		for x := 0; x < r.W; x++ {
			out.Set(x, y, img.At(r.X+x, r.Y+y))
		}
	}
	return encodePNG(dst, out)
}

func (p *fakeProc) ResizePercent(src, dst string, percent float64) error {
	if p.failResize {
		return errors.New("simulated resize failure")
	}
	img, err := decodePNG(src)
	if err != nil {
		return err
	}
	b := img.Bounds()
	w := int(float64(b.Dx())*percent/100 + 0.5)
	h := int(float64(b.Dy())*percent/100 + 0.5)
	out := image.NewRGBA(image.Rect(0, 0, w, h))
	for y := 0; y < h; y++ {
		for x := 0; x < w; x++ {
			out.Set(x, y, img.At(b.Min.X+x*b.Dx()/w, b.Min.Y+y*b.Dy()/h))
		}
	}
	return encodePNG(dst, out)
}

func decodePNG(path string) (image.Image, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, err
	}
	defer f.Close()
	return png.Decode(f)
}

func encodePNG(path string, img image.Image) error {
	f, err := os.Create(path)
	if err != nil {
		return err
	}
	defer f.Close()
	return png.Encode(f, img)
}

func stubCapture(w, h int) func(*request.CaptureRequest, string) (artifact.Artifact, error) {
	return func(_ *request.CaptureRequest, out string) (artifact.Artifact, error) {
		if err := encodePNG(out, image.NewRGBA(image.Rect(0, 0, w, h))); err != nil {
			return artifact.Artifact{}, err
		}
		return artifact.Artifact{Path: out}, nil
	}
}

func dimsOf(t *testing.T, path string) (int, int) {
	t.Helper()
	w, h, err := (&fakeProc{}).Probe(path)
	if err != nil {
		t.Fatalf("probe %s: %v", path, err)
	}
	return w, h
}

func listDir(t *testing.T, dir string) []string {
	t.Helper()
	entries, err := os.ReadDir(dir)
	if err != nil {
		t.Fatal(err)
	}
	var names []string
	for _, e := range entries {
		names = append(names, e.Name())
	}
	return names
}

func testOpts(t *testing.T, proc *fakeProc, capW, capH int) Options {
	opts := Options{
		OutputDir: t.TempDir(),
		Now:       time.Date(2025, 6, 1, 12, 30, 45, 0, time.UTC),
		Capture:   stubCapture(capW, capH),
	}
	if proc != nil {
		opts.Proc = proc
	}
	return opts
}

func TestRunShortCircuitNoPostProcessing(t *testing.T) {
	opts := testOpts(t, &fakeProc{}, 800, 600)

	res, err := Run(&request.CaptureRequest{Mode: request.ModeFull}, opts)
	if err != nil {
		t.Fatalf("Run failed: %v", err)
	}
	if filepath.Base(res.Path) != "dashboard_20250601_123045.png" {
		t.Errorf("Unexpected final path %s", res.Path)
	}
	if res.SizeBytes <= 0 {
		t.Errorf("SizeBytes = %d, want > 0", res.SizeBytes)
	}
	if names := listDir(t, opts.OutputDir); len(names) != 1 {
		t.Errorf("Expected only the final file, found %v", names)
	}
}

func TestRunZoneChainRecursion(t *testing.T) {
	opts := testOpts(t, &fakeProc{}, 1200, 900)
	req := &request.CaptureRequest{Mode: request.ModeFull, ZoneChain: []string{"bottom", "right"}}

	res, err := Run(req, opts)
	if err != nil {
		t.Fatalf("Run failed: %v", err)
	}
	if w, h := dimsOf(t, res.Path); w != 600 || h != 300 {
		t.Errorf("Final dimensions %dx%d, want 600x300 (right half of bottom third)", w, h)
	}
	if len(res.ZonesApplied) != 2 || len(res.ZonesSkipped) != 0 {
		t.Errorf("ZonesApplied=%v ZonesSkipped=%v", res.ZonesApplied, res.ZonesSkipped)
	}
	if names := listDir(t, opts.OutputDir); len(names) != 1 {
		t.Errorf("Intermediates left behind: %v", names)
	}
}

func TestRunZoneChainHaltsOnCropFailure(t *testing.T) {
	opts := testOpts(t, &fakeProc{failCropAt: 2}, 1200, 900)
	req := &request.CaptureRequest{Mode: request.ModeFull, ZoneChain: []string{"bottom", "right"}}

	res, err := Run(req, opts)
	if err != nil {
		t.Fatalf("Run should degrade, not fail: %v", err)
	}
	// The first crop survived and was promoted; the chain did not roll back.
	if w, h := dimsOf(t, res.Path); w != 1200 || h != 300 {
		t.Errorf("Final dimensions %dx%d, want 1200x300 (last good crop)", w, h)
	}
	if len(res.ZonesApplied) != 1 || res.ZonesApplied[0] != "bottom" {
		t.Errorf("ZonesApplied = %v, want [bottom]", res.ZonesApplied)
	}
	if len(res.ZonesSkipped) != 1 || res.ZonesSkipped[0] != "right" {
		t.Errorf("ZonesSkipped = %v, want [right]", res.ZonesSkipped)
	}
	if len(res.Warnings) == 0 {
		t.Error("Expected a warning for the halted chain")
	}
	if names := listDir(t, opts.OutputDir); len(names) != 1 {
		t.Errorf("Intermediates left behind: %v", names)
	}
}

func TestRunZoneChainHaltsOnUnknownZone(t *testing.T) {
	// Chain validation normally happens at parse time; an unknown name
	// reaching the pipeline still halts at that step and keeps the last
	// valid crop without deleting it.
	opts := testOpts(t, &fakeProc{}, 1200, 900)
	req := &request.CaptureRequest{Mode: request.ModeFull, ZoneChain: []string{"bottom", "nowhere"}}

	res, err := Run(req, opts)
	if err != nil {
		t.Fatalf("Run should degrade, not fail: %v", err)
	}
	if w, h := dimsOf(t, res.Path); w != 1200 || h != 300 {
		t.Errorf("Final dimensions %dx%d, want 1200x300", w, h)
	}
	if len(res.Warnings) == 0 || !strings.Contains(res.Warnings[0], "nowhere") {
		t.Errorf("Warning should name the bad zone, got %v", res.Warnings)
	}
}

func TestRunRegionCrop(t *testing.T) {
	opts := testOpts(t, &fakeProc{}, 800, 600)
	req := &request.CaptureRequest{
		Mode:   request.ModeFull,
		Region: &geometry.Rect{X: 10, Y: 20, W: 300, H: 200},
	}

	res, err := Run(req, opts)
	if err != nil {
		t.Fatalf("Run failed: %v", err)
	}
	if w, h := dimsOf(t, res.Path); w != 300 || h != 200 {
		t.Errorf("Final dimensions %dx%d, want 300x200", w, h)
	}
	if res.RegionApplied == nil {
		t.Error("RegionApplied not recorded")
	}
}

func TestRunRegionFailureKeepsRaw(t *testing.T) {
	opts := testOpts(t, &fakeProc{failCropAt: 1}, 800, 600)
	req := &request.CaptureRequest{
		Mode:   request.ModeFull,
		Region: &geometry.Rect{X: 10, Y: 20, W: 300, H: 200},
	}

	res, err := Run(req, opts)
	if err != nil {
		t.Fatalf("Run should degrade, not fail: %v", err)
	}
	if w, h := dimsOf(t, res.Path); w != 800 || h != 600 {
		t.Errorf("Final dimensions %dx%d, want raw 800x600", w, h)
	}
	if res.RegionApplied != nil || len(res.Warnings) == 0 {
		t.Errorf("Expected skipped region with warning, got %+v", res)
	}
}

func TestRunDashboardEquivalence(t *testing.T) {
	// --dashboard is --zone center --zoom 2.5: 1000x800 -> 500x400 -> 1250x1000.
	run := func(req *request.CaptureRequest) (int, int) {
		opts := testOpts(t, &fakeProc{}, 1000, 800)
		res, err := Run(req, opts)
		if err != nil {
			t.Fatalf("Run failed: %v", err)
		}
		w, h := dimsOf(t, res.Path)
		return w, h
	}

	w, h := run(&request.CaptureRequest{Mode: request.ModeFull, ZoneChain: []string{"center"}, ZoomFactor: 2.5})
	if w != 1250 || h != 1000 {
		t.Errorf("Dashboard preset dimensions %dx%d, want 1250x1000", w, h)
	}
}

func TestRunZoomFailureKeepsCrop(t *testing.T) {
	opts := testOpts(t, &fakeProc{failResize: true}, 1000, 800)
	req := &request.CaptureRequest{Mode: request.ModeFull, ZoneChain: []string{"center"}, ZoomFactor: 2.5}

	res, err := Run(req, opts)
	if err != nil {
		t.Fatalf("Run should degrade, not fail: %v", err)
	}
	if w, h := dimsOf(t, res.Path); w != 500 || h != 400 {
		t.Errorf("Final dimensions %dx%d, want cropped 500x400", w, h)
	}
	if res.ZoomApplied {
		t.Error("ZoomApplied should be false after resize failure")
	}
	if len(res.Warnings) == 0 {
		t.Error("Expected a zoom warning")
	}
}

func TestRunDegradedWithoutImageTool(t *testing.T) {
	opts := testOpts(t, nil, 800, 600)
	req := &request.CaptureRequest{Mode: request.ModeFull, ZoneChain: []string{"center"}, ZoomFactor: 2}

	res, err := Run(req, opts)
	if err != nil {
		t.Fatalf("Run should degrade, not fail: %v", err)
	}
	if w, h := dimsOf(t, res.Path); w != 800 || h != 600 {
		t.Errorf("Final dimensions %dx%d, want raw 800x600", w, h)
	}
	if len(res.Warnings) == 0 || len(res.ZonesSkipped) != 1 {
		t.Errorf("Expected degraded-result warning and skipped zones, got %+v", res)
	}
	if names := listDir(t, opts.OutputDir); len(names) != 1 {
		t.Errorf("Expected only the final file, found %v", names)
	}
}

func TestRunCaptureFailureIsFatal(t *testing.T) {
	opts := testOpts(t, &fakeProc{}, 0, 0)
	opts.Capture = func(_ *request.CaptureRequest, out string) (artifact.Artifact, error) {
		return artifact.Artifact{}, fmt.Errorf("no display")
	}

	if _, err := Run(&request.CaptureRequest{Mode: request.ModeFull}, opts); err == nil {
		t.Fatal("Expected capture failure to be fatal")
	}
	if names := listDir(t, opts.OutputDir); len(names) != 0 {
		t.Errorf("No files should remain after capture failure, found %v", names)
	}
}

func TestRunCreatesOutputDir(t *testing.T) {
	opts := testOpts(t, &fakeProc{}, 100, 100)
	opts.OutputDir = filepath.Join(opts.OutputDir, "nested", "dir")

	if _, err := Run(&request.CaptureRequest{Mode: request.ModeFull}, opts); err != nil {
		t.Fatalf("Run failed: %v", err)
	}
	if _, err := os.Stat(opts.OutputDir); err != nil {
		t.Errorf("Output directory not created: %v", err)
	}
}
