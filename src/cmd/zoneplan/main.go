// zoneplan prints the crop rectangles a zone chain would produce for a
// given image size, without capturing anything. Useful for checking what
// a chain like bottom:right selects before pointing dashshot at a screen.
package main

import (
	"fmt"
	"os"
	"strings"

	"github.com/spf13/cobra"

	"dashshot/src/geometry"
	"dashshot/src/request"
)

func main() {
	if err := newRootCmd().Execute(); err != nil {
		fmt.Fprintf(os.Stderr, "ERROR: %v\n", err)
		os.Exit(1)
	}
}

func newRootCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "zoneplan WxH zone[:zone...]",
		Short: "Show the crop rectangles a zone chain resolves to",
		Example: `  zoneplan 1920x1080 center
  zoneplan 1200x900 bottom:right`,
		Args:          cobra.ExactArgs(2),
		SilenceUsage:  true,
		SilenceErrors: true,
		RunE: func(cmd *cobra.Command, args []string) error {
			return plan(cmd, args[0], args[1])
		},
	}
}

func plan(cmd *cobra.Command, dims, chainArg string) error {
	var width, height int
	if _, err := fmt.Sscanf(dims, "%dx%d", &width, &height); err != nil || width <= 0 || height <= 0 {
		return fmt.Errorf("invalid dimensions %q: expected WxH like 1920x1080", dims)
	}

	chain, err := request.ParseZoneChain(chainArg)
	if err != nil {
		return err
	}
	if len(chain) == 0 {
		return fmt.Errorf("empty zone chain (valid zones: %s)", strings.Join(geometry.ZoneNames(), ", "))
	}

	cmd.Printf("%dx%d\n", width, height)
	for i, name := range chain {
		rect, err := geometry.ResolveZone(name, width, height)
		if err != nil {
			return err
		}
		cmd.Printf("  step %d: %-12s -> crop %s\n", i+1, name, rect)
		width, height = rect.W, rect.H
	}
	cmd.Printf("final: %dx%d\n", width, height)
	return nil
}
