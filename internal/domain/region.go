package domain

import (
	_ "embed"
	"fmt"

	"gopkg.in/yaml.v3"
)

// RegionOther marks a station that falls inside no bounding box. Such
// stations never reach the gold layer.
const RegionOther = "OTHER"

//go:embed regions.yaml
var regionsYAML []byte

// RegionBox is one bounding-box predicate in the ordered assignment list.
type RegionBox struct {
	Region string  `yaml:"region"`
	Name   string  `yaml:"name"`
	LatMin float64 `yaml:"lat_min"`
	LatMax float64 `yaml:"lat_max"`
	LonMin float64 `yaml:"lon_min"`
	LonMax float64 `yaml:"lon_max"`
}

// regionBoxes holds the ordered predicate list. Order is the tie-break for
// overlapping boxes and must match regions.yaml exactly.
var regionBoxes = mustLoadRegionBoxes()

func mustLoadRegionBoxes() []RegionBox {
	var boxes []RegionBox
	if err := yaml.Unmarshal(regionsYAML, &boxes); err != nil {
		panic(fmt.Sprintf("regions.yaml is malformed: %v", err))
	}
	if len(boxes) == 0 {
		panic("regions.yaml defines no regions")
	}
	return boxes
}

// contains reports whether the coordinate falls inside the box, bounds inclusive.
func (b RegionBox) contains(lat, lon float64) bool {
	return lat >= b.LatMin && lat <= b.LatMax && lon >= b.LonMin && lon <= b.LonMax
}

// AssignRegion maps a station coordinate to a balancing-authority region code
// using first-match-wins over the ordered box list, or RegionOther when no
// box contains it.
func AssignRegion(lat, lon float64) string {
	for _, b := range regionBoxes {
		if b.contains(lat, lon) {
			return b.Region
		}
	}
	return RegionOther
}

// Regions returns the region codes in evaluation order.
func Regions() []string {
	codes := make([]string, len(regionBoxes))
	for i, b := range regionBoxes {
		codes[i] = b.Region
	}
	return codes
}

// ValidRegion reports whether code is one of the ten known regions.
func ValidRegion(code string) bool {
	for _, b := range regionBoxes {
		if b.Region == code {
			return true
		}
	}
	return false
}
