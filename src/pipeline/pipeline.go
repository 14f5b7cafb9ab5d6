package pipeline

import (
	"fmt"
	"log"
	"os"
	"path/filepath"
	"time"

	"dashshot/src/artifact"
	"dashshot/src/capture"
	"dashshot/src/geometry"
	"dashshot/src/imagetool"
	"dashshot/src/request"
	"dashshot/src/zoom"
)

// Options wires the pipeline's collaborators. Proc may be nil when no image
// toolchain is installed; the pipeline then degrades to the raw capture.
type Options struct {
	Proc      imagetool.Processor
	OutputDir string
	Now       time.Time
	Capture   func(*request.CaptureRequest, string) (artifact.Artifact, error)
}

// Result reports the final file and which optional transforms were applied
// versus requested but skipped.
type Result struct {
	Path          string
	SizeBytes     int64
	ZonesApplied  []string
	ZonesSkipped  []string
	RegionApplied *geometry.Rect
	ZoomRequested float64
	ZoomApplied   bool
	Warnings      []string
}

// Run drives one request through
// Captured -> ZoneCropped* -> RegionCropped? -> Zoomed? -> Finalized.
// Capture failure is the only fatal outcome; every post-processing failure
// keeps the best surviving artifact and surfaces a warning instead.
func Run(req *request.CaptureRequest, opts Options) (Result, error) {
	if opts.Capture == nil {
		opts.Capture = capture.Capture
	}
	if opts.Now.IsZero() {
		opts.Now = time.Now()
	}

	if err := os.MkdirAll(opts.OutputDir, 0o755); err != nil {
		return Result{}, fmt.Errorf("create output directory %s: %w", opts.OutputDir, err)
	}

	stamp := opts.Now.Format("20060102_150405")
	finalPath := filepath.Join(opts.OutputDir, "dashboard_"+stamp+".png")
	res := Result{Path: finalPath, ZoomRequested: req.ZoomFactor}

	postRequested := len(req.ZoneChain) > 0 || req.Region != nil || req.ZoomFactor > 0
	postAvailable := opts.Proc != nil
	if postRequested && !postAvailable {
		res.Warnings = append(res.Warnings, "image tool unavailable ("+imagetool.InstallHint+"); saving raw capture without crop/zoom")
		res.ZonesSkipped = append(res.ZonesSkipped, req.ZoneChain...)
	}

	// With nothing to post-process the raw capture lands directly on the
	// final path: no intermediate files at all.
	rawPath := finalPath
	if postRequested && postAvailable {
		rawPath = filepath.Join(opts.OutputDir, "temp_"+stamp+".png")
	}

	cur, err := opts.Capture(req, rawPath)
	if err != nil {
		// Best effort: a failed backend may still have left a partial file.
		_ = os.Remove(rawPath)
		return Result{}, err
	}

	if postRequested && postAvailable {
		cur = applyZoneChain(req, cur, opts, stamp, &res)
		cur = applyRegion(req, cur, opts, stamp, &res)
		cur = applyZoom(req, cur, opts, stamp, &res)
	}

	if cur.Path != finalPath {
		if err := cur.Promote(finalPath); err != nil {
			return Result{}, fmt.Errorf("finalize result: %w", err)
		}
	}

	final := artifact.Artifact{Path: finalPath}
	size, err := final.Size()
	if err != nil {
		return Result{}, fmt.Errorf("stat final result: %w", err)
	}
	res.SizeBytes = size
	return res, nil
}

// applyZoneChain crops through the chain, each step relative to the
// previous crop's result. On any failure the chain halts and the most
// recent successful crop is kept; there is no rollback to the original.
func applyZoneChain(req *request.CaptureRequest, cur artifact.Artifact, opts Options, stamp string, res *Result) artifact.Artifact {
	for i, name := range req.ZoneChain {
		width, height, err := cur.Dimensions(opts.Proc)
		if err != nil {
			haltChain(req, i, res, fmt.Sprintf("zone %q: cannot probe %s: %v", name, cur.Path, err))
			return cur
		}

		rect, err := geometry.ResolveZone(name, width, height)
		if err != nil {
			haltChain(req, i, res, fmt.Sprintf("zone chain halted: %v", err))
			return cur
		}

		dst := filepath.Join(opts.OutputDir, fmt.Sprintf("zone_%d_%s.png", i+1, stamp))
		if err := opts.Proc.Crop(cur.Path, dst, rect); err != nil {
			_ = os.Remove(dst)
			haltChain(req, i, res, fmt.Sprintf("zone %q: %v", name, err))
			return cur
		}

		// Successor confirmed on disk; only now may the predecessor go.
		cur = advance(cur, dst)
		res.ZonesApplied = append(res.ZonesApplied, name)
		log.Printf("Pipeline: zone %q -> %s (%s)", name, dst, rect)
	}
	return cur
}

func applyRegion(req *request.CaptureRequest, cur artifact.Artifact, opts Options, stamp string, res *Result) artifact.Artifact {
	if req.Region == nil {
		return cur
	}

	dst := filepath.Join(opts.OutputDir, "region_"+stamp+".png")
	if err := opts.Proc.Crop(cur.Path, dst, *req.Region); err != nil {
		_ = os.Remove(dst)
		res.Warnings = append(res.Warnings, fmt.Sprintf("region crop %s failed: %v; keeping uncropped image", req.Region, err))
		return cur
	}
	res.RegionApplied = req.Region
	log.Printf("Pipeline: region crop -> %s (%s)", dst, req.Region)
	return advance(cur, dst)
}

func applyZoom(req *request.CaptureRequest, cur artifact.Artifact, opts Options, stamp string, res *Result) artifact.Artifact {
	if req.ZoomFactor <= 0 {
		return cur
	}

	percent := zoom.ToScalePercent(req.ZoomFactor)
	dst := filepath.Join(opts.OutputDir, "zoom_"+stamp+".png")
	if err := opts.Proc.ResizePercent(cur.Path, dst, percent); err != nil {
		_ = os.Remove(dst)
		res.Warnings = append(res.Warnings, fmt.Sprintf("zoom %gx failed: %v; keeping unzoomed image", req.ZoomFactor, err))
		return cur
	}
	res.ZoomApplied = true
	log.Printf("Pipeline: zoom %gx -> %s (%g%%)", req.ZoomFactor, dst, percent)
	return advance(cur, dst)
}

// advance hands ownership to the successor artifact and deletes the
// predecessor.
func advance(prev artifact.Artifact, dst string) artifact.Artifact {
	if err := prev.Remove(); err != nil {
		log.Printf("Pipeline: failed to remove intermediate %s: %v", prev.Path, err)
	}
	return artifact.Artifact{Path: dst}
}

func haltChain(req *request.CaptureRequest, failedAt int, res *Result, warning string) {
	res.Warnings = append(res.Warnings, warning)
	res.ZonesSkipped = append(res.ZonesSkipped, req.ZoneChain[failedAt:]...)
}
