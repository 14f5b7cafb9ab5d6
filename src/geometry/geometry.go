package geometry

import (
	"errors"
	"fmt"
	"strings"
)

// Rect is a crop rectangle in pixel units, relative to the image it was
// resolved against. All fields are non-negative.
type Rect struct {
	X int
	Y int
	W int
	H int
}

// String renders the rectangle in ImageMagick crop form: WxH+X+Y.
func (r Rect) String() string {
	return fmt.Sprintf("%dx%d+%d+%d", r.W, r.H, r.X, r.Y)
}

// ErrUnknownZone is wrapped by ResolveZone for names outside the zone set.
var ErrUnknownZone = errors.New("unknown zone")

// zoneNames is the closed set of valid zones, in the order shown to users.
var zoneNames = []string{
	"top-left", "top-right", "bottom-left", "bottom-right",
	"center", "top", "middle", "bottom", "left", "right",
}

// ZoneNames returns the valid zone names in display order.
func ZoneNames() []string {
	out := make([]string, len(zoneNames))
	copy(out, zoneNames)
	return out
}

// IsZone reports whether name is a member of the zone set.
func IsZone(name string) bool {
	for _, z := range zoneNames {
		if z == name {
			return true
		}
	}
	return false
}

// ResolveZone maps a zone name to a crop rectangle within a width x height
// image. All arithmetic is integer floor division; fractional remainders are
// truncated. The bottom third's offset is h*2/3 (floored once), not
// 2*(h/3), so no uncropped sliver is left at the image's bottom edge.
func ResolveZone(name string, width, height int) (Rect, error) {
	if width <= 0 || height <= 0 {
		return Rect{}, fmt.Errorf("invalid image dimensions %dx%d", width, height)
	}

	halfW := width / 2
	halfH := height / 2
	thirdH := height / 3

	switch name {
	case "top-left":
		return Rect{X: 0, Y: 0, W: halfW, H: halfH}, nil
	case "top-right":
		return Rect{X: halfW, Y: 0, W: halfW, H: halfH}, nil
	case "bottom-left":
		return Rect{X: 0, Y: halfH, W: halfW, H: halfH}, nil
	case "bottom-right":
		return Rect{X: halfW, Y: halfH, W: halfW, H: halfH}, nil
	case "center":
		return Rect{X: width / 4, Y: height / 4, W: halfW, H: halfH}, nil
	case "top":
		return Rect{X: 0, Y: 0, W: width, H: thirdH}, nil
	case "middle":
		return Rect{X: 0, Y: thirdH, W: width, H: thirdH}, nil
	case "bottom":
		return Rect{X: 0, Y: height * 2 / 3, W: width, H: thirdH}, nil
	case "left":
		return Rect{X: 0, Y: 0, W: halfW, H: height}, nil
	case "right":
		return Rect{X: halfW, Y: 0, W: halfW, H: height}, nil
	}

	return Rect{}, fmt.Errorf("%w %q (valid zones: %s)", ErrUnknownZone, name, strings.Join(zoneNames, ", "))
}
