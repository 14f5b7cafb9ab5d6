package main

import (
	"fmt"
	"log"
	"os"
	"strings"

	"github.com/spf13/cobra"

	"dashshot/src/clipboard"
	"dashshot/src/config"
	"dashshot/src/geometry"
	"dashshot/src/imagetool"
	"dashshot/src/logutil"
	"dashshot/src/pipeline"
	"dashshot/src/request"
	"dashshot/src/zoom"
)

const dashboardZoom = "2.5"

type cliOptions struct {
	window        string
	selectMode    bool
	zoneChain     string
	region        string
	zoomFactor    string
	dashboard     bool
	copyClipboard bool
	verbose       bool
}

func main() {
	if err := run(os.Args[1:]); err != nil {
		fmt.Fprintf(os.Stderr, "ERROR: %v\n", err)
		fmt.Fprintln(os.Stderr, "Run 'dashshot --help' for usage.")
		os.Exit(1)
	}
}

func run(args []string) error {
	opts := &cliOptions{}
	cmd := newRootCmd(opts)
	cmd.SetArgs(args)
	return cmd.Execute()
}

func newRootCmd(opts *cliOptions) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "dashshot",
		Short: "Capture a screen region, crop it to named zones and zoom it",
		Long: `dashshot captures the full screen, a named window or an interactive
selection, optionally crops the shot through a chain of named zones or an
explicit rectangle, optionally magnifies it, and writes one timestamped PNG.

Zones: ` + strings.Join(geometry.ZoneNames(), ", ") + `
A zone chain is applied recursively: --zone bottom:right crops the right
half of the bottom third.`,
		Example: `  dashshot                         full-screen capture
  dashshot -w Firefox              capture the first window matching "Firefox"
  dashshot -s --zoom 2             interactive selection, magnified 2x
  dashshot --zone bottom:right     right half of the bottom third
  dashshot --region 100,200,640,480
  dashshot --dashboard             same as --zone center --zoom 2.5`,
		SilenceUsage:  true,
		SilenceErrors: true,
		RunE: func(cmd *cobra.Command, args []string) error {
			if len(args) > 0 {
				return fmt.Errorf("unexpected argument %q", args[0])
			}
			return runCapture(*opts)
		},
	}

	cmd.Flags().StringVarP(&opts.window, "window", "w", "", "Capture the first window whose name matches this pattern")
	cmd.Flags().BoolVarP(&opts.selectMode, "select", "s", false, "Interactively select the capture region")
	cmd.Flags().StringVar(&opts.zoneChain, "zone", "", "Colon-separated zone chain, e.g. bottom:right")
	cmd.Flags().StringVar(&opts.region, "region", "", "Explicit crop rectangle X,Y,W,H in pixels")
	cmd.Flags().StringVarP(&opts.zoomFactor, "zoom", "z", "", "Magnification factor, e.g. 2 or 2.5")
	cmd.Flags().BoolVar(&opts.dashboard, "dashboard", false, "Preset: --zone center --zoom "+dashboardZoom)
	cmd.Flags().BoolVarP(&opts.copyClipboard, "clipboard", "c", false, "Also copy the result image to the clipboard")
	cmd.Flags().BoolVarP(&opts.verbose, "verbose", "v", false, "Verbose logging to stderr")

	return cmd
}

// buildRequest turns flags into a validated CaptureRequest. All validation
// happens here, before any capture attempt or directory side effect.
func buildRequest(opts cliOptions) (*request.CaptureRequest, []string, error) {
	if opts.window != "" && opts.selectMode {
		return nil, nil, fmt.Errorf("--window and --select are mutually exclusive")
	}

	if opts.dashboard {
		// Explicit flags win over the preset.
		if opts.zoneChain == "" {
			opts.zoneChain = "center"
		}
		if opts.zoomFactor == "" {
			opts.zoomFactor = dashboardZoom
		}
	}

	req := &request.CaptureRequest{Mode: request.ModeFull, Clipboard: opts.copyClipboard}
	switch {
	case opts.selectMode:
		req.Mode = request.ModeSelect
	case opts.window != "":
		req.Mode = request.ModeWindow
		req.WindowPattern = opts.window
	}

	chain, err := request.ParseZoneChain(opts.zoneChain)
	if err != nil {
		return nil, nil, err
	}
	req.ZoneChain = chain

	if opts.region != "" {
		rect, err := request.ParseRegion(opts.region)
		if err != nil {
			return nil, nil, err
		}
		req.Region = rect
	}

	if opts.zoomFactor != "" {
		factor, err := zoom.ParseFactor(opts.zoomFactor)
		if err != nil {
			return nil, nil, err
		}
		req.ZoomFactor = factor
	}

	warnings, err := req.Validate()
	if err != nil {
		return nil, nil, err
	}
	return req, warnings, nil
}

func runCapture(opts cliOptions) error {
	cfg, err := config.Load()
	if err != nil {
		return fmt.Errorf("load configuration: %w", err)
	}

	logutil.Setup(cfg.EnableFileLogging)
	if opts.verbose {
		logutil.Verbose()
	}

	req, warnings, err := buildRequest(opts)
	if err != nil {
		return err
	}
	for _, w := range warnings {
		fmt.Fprintf(os.Stderr, "WARN: %s\n", w)
	}

	pipeOpts := pipeline.Options{OutputDir: cfg.OutputDir}
	if tool, err := imagetool.Detect(); err == nil {
		pipeOpts.Proc = tool
	} else {
		log.Printf("Post-processing unavailable: %v", err)
	}

	res, err := pipeline.Run(req, pipeOpts)
	if err != nil {
		return err
	}

	for _, w := range res.Warnings {
		fmt.Fprintf(os.Stderr, "WARN: %s\n", w)
	}
	printResult(res)

	if req.Clipboard || cfg.CopyToClipboard {
		if err := copyToClipboard(res.Path); err != nil {
			fmt.Fprintf(os.Stderr, "WARN: clipboard copy failed: %v\n", err)
		}
	}
	return nil
}

func printResult(res pipeline.Result) {
	fmt.Printf("Saved: %s (%d bytes)\n", res.Path, res.SizeBytes)
	if len(res.ZonesApplied) > 0 {
		fmt.Printf("  zones applied: %s\n", strings.Join(res.ZonesApplied, ":"))
	}
	if len(res.ZonesSkipped) > 0 {
		fmt.Printf("  zones skipped: %s\n", strings.Join(res.ZonesSkipped, ":"))
	}
	if res.RegionApplied != nil {
		fmt.Printf("  region: %s\n", res.RegionApplied)
	}
	if res.ZoomRequested > 0 {
		if res.ZoomApplied {
			fmt.Printf("  zoom: %gx (%g%%)\n", res.ZoomRequested, zoom.ToScalePercent(res.ZoomRequested))
		} else {
			fmt.Printf("  zoom: %gx requested but skipped\n", res.ZoomRequested)
		}
	}
}

func copyToClipboard(path string) error {
	data, err := os.ReadFile(path)
	if err != nil {
		return err
	}
	if err := clipboard.Init(); err != nil {
		return err
	}
	return clipboard.WriteImage(data)
}
