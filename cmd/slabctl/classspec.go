package main

import (
	"fmt"
	"strings"

	"github.com/dustin/go-humanize"

	"github.com/hupe1980/slabkit"
	"github.com/hupe1980/slabkit/internal/conv"
)

// parseClassSpec parses SIZE:REGION, where both sides accept humanized byte
// counts such as 64, 1KiB or 512KB.
func parseClassSpec(spec string) (slabkit.ClassConfig, error) {
	slot, region, ok := strings.Cut(spec, ":")
	if !ok {
		return slabkit.ClassConfig{}, fmt.Errorf("invalid class %q: want SIZE:REGION", spec)
	}

	slotSize, err := parseBytes(slot)
	if err != nil {
		return slabkit.ClassConfig{}, fmt.Errorf("invalid class %q: slot size: %w", spec, err)
	}
	regionSize, err := parseBytes(region)
	if err != nil {
		return slabkit.ClassConfig{}, fmt.Errorf("invalid class %q: region size: %w", spec, err)
	}

	return slabkit.ClassConfig{SlotSize: slotSize, RegionSize: regionSize}, nil
}

func parseBytes(s string) (int, error) {
	n, err := humanize.ParseBytes(strings.TrimSpace(s))
	if err != nil {
		return 0, err
	}
	return conv.Uint64ToInt(n)
}

// formatClassSpec is the inverse of parseClassSpec.
func formatClassSpec(c slabkit.ClassConfig) string {
	return fmt.Sprintf("%d:%s", c.SlotSize, strings.ReplaceAll(humanize.IBytes(uint64(c.RegionSize)), " ", "")) //nolint:gosec // region sizes are positive
}
