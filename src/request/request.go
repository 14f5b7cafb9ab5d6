package request

import (
	"fmt"
	"strconv"
	"strings"

	"dashshot/src/geometry"
)

// Mode selects the capture backend.
type Mode int

const (
	ModeFull Mode = iota
	ModeWindow
	ModeSelect
)

func (m Mode) String() string {
	switch m {
	case ModeFull:
		return "full"
	case ModeWindow:
		return "window"
	case ModeSelect:
		return "select"
	default:
		return "unknown"
	}
}

// CaptureRequest is the normalized form of one invocation. It is built once
// from the CLI flags and never mutated afterwards.
type CaptureRequest struct {
	Mode          Mode
	WindowPattern string
	ZoneChain     []string
	Region        *geometry.Rect
	ZoomFactor    float64 // 0 means no zoom requested
	Clipboard     bool
}

// ParseZoneChain splits a colon-separated chain like "bottom:right" and
// validates every element against the zone set. An empty string yields an
// empty chain.
func ParseZoneChain(s string) ([]string, error) {
	if s == "" {
		return nil, nil
	}
	parts := strings.Split(s, ":")
	chain := make([]string, 0, len(parts))
	for _, p := range parts {
		p = strings.TrimSpace(p)
		if p == "" {
			return nil, fmt.Errorf("empty zone name in chain %q", s)
		}
		if !geometry.IsZone(p) {
			return nil, fmt.Errorf("unknown zone %q in chain %q (valid zones: %s)", p, s, strings.Join(geometry.ZoneNames(), ", "))
		}
		chain = append(chain, p)
	}
	return chain, nil
}

// ParseRegion parses an explicit "X,Y,W,H" rectangle in absolute pixels.
func ParseRegion(s string) (*geometry.Rect, error) {
	parts := strings.Split(s, ",")
	if len(parts) != 4 {
		return nil, fmt.Errorf("invalid region %q: expected X,Y,W,H", s)
	}
	vals := make([]int, 4)
	for i, p := range parts {
		n, err := strconv.Atoi(strings.TrimSpace(p))
		if err != nil || n < 0 {
			return nil, fmt.Errorf("invalid region %q: %q is not a non-negative integer", s, p)
		}
		vals[i] = n
	}
	if vals[2] == 0 || vals[3] == 0 {
		return nil, fmt.Errorf("invalid region %q: width and height must be positive", s)
	}
	return &geometry.Rect{X: vals[0], Y: vals[1], W: vals[2], H: vals[3]}, nil
}

// Validate checks cross-field invariants. It returns non-fatal warnings
// (currently only the zone/region precedence note) separately from errors.
func (r *CaptureRequest) Validate() ([]string, error) {
	if r.Mode == ModeWindow && strings.TrimSpace(r.WindowPattern) == "" {
		return nil, fmt.Errorf("window mode requires a non-empty window name pattern")
	}

	var warnings []string
	if len(r.ZoneChain) > 0 && r.Region != nil {
		// Zone chain and explicit region are mutually exclusive; the chain
		// takes precedence and the region is dropped.
		warnings = append(warnings, fmt.Sprintf("both --zone and --region given; ignoring region %s", r.Region))
		r.Region = nil
	}
	return warnings, nil
}
