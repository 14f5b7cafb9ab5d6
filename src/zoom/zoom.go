package zoom

import (
	"fmt"
	"regexp"
	"strconv"
)

// factorPattern accepts plain integers and decimals only: no signs, no
// exponents, no leading dots.
var factorPattern = regexp.MustCompile(`^[0-9]+(\.[0-9]+)?$`)

// ParseFactor validates and parses a user-supplied zoom factor. The factor
// must be a strictly positive number matching factorPattern.
func ParseFactor(s string) (float64, error) {
	if !factorPattern.MatchString(s) {
		return 0, fmt.Errorf("invalid zoom factor %q: must be a positive number like 2 or 2.5", s)
	}
	f, err := strconv.ParseFloat(s, 64)
	if err != nil {
		return 0, fmt.Errorf("invalid zoom factor %q: %v", s, err)
	}
	if f <= 0 {
		return 0, fmt.Errorf("invalid zoom factor %q: must be greater than zero", s)
	}
	return f, nil
}

// ToScalePercent converts a zoom factor to the percentage handed to the
// resize tool. There is deliberately no upper bound: a factor of 100 yields
// a 10000% scale. Magnification is user-specified and trusted.
func ToScalePercent(factor float64) float64 {
	return factor * 100
}
