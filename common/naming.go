package common

import (
	"fmt"
	"strings"
)

// Constellation defines the kind of satellites
type Constellation int

const (
	Unknown   Constellation = iota
	Sentinel2
	Landsat89
)

func (c Constellation) String() string {
	switch c {
	case Sentinel2:
		return "Sentinel-2"
	case Landsat89:
		return "Landsat"
	}
	return "Unknown"
}

// GetConstellationFromString returns the constellation from the user input (e.g. "Sentinel-2", "Landsat 8/9")
func GetConstellationFromString(input string) Constellation {
	input = strings.ToLower(input)
	switch {
	case strings.Contains(input, "sentinel"):
		return Sentinel2
	case strings.Contains(input, "landsat"):
		return Landsat89
	}
	return Unknown
}

// SatellitePrefix returns the short prefix of the layers built from a collection:
// "S2" for sentinel collections, "LS" otherwise
func SatellitePrefix(collectionID string) string {
	if strings.Contains(strings.ToLower(collectionID), "sentinel") {
		return "S2"
	}
	return "LS"
}

// LayerName returns the human-readable name of a composite layer:
// {prefix}_{itemId}_{composition} ({cloudCover:.1f}% clouds)
func LayerName(collectionID, itemID, composition string, cloudCover float64) string {
	return fmt.Sprintf("%s_%s_%s (%.1f%% clouds)", SatellitePrefix(collectionID), itemID, composition, cloudCover)
}
