package common

import (
	"testing"
)

func TestGetConstellationFromString(t *testing.T) {
	tests := map[string]Constellation{
		"Sentinel-2":   Sentinel2,
		"sentinel2":    Sentinel2,
		"Landsat 8/9":  Landsat89,
		"LANDSAT":      Landsat89,
		"Pleiades":     Unknown,
		"":             Unknown,
		"Sentinel-2 L": Sentinel2,
	}
	for input, expected := range tests {
		if c := GetConstellationFromString(input); c != expected {
			t.Errorf("%s: expected %v, got %v", input, expected, c)
		}
	}
}

func TestSatellitePrefix(t *testing.T) {
	if p := SatellitePrefix("sentinel-2-l2a"); p != "S2" {
		t.Errorf("expected S2, got %s", p)
	}
	if p := SatellitePrefix("landsat-c2-l2"); p != "LS" {
		t.Errorf("expected LS, got %s", p)
	}
	if p := SatellitePrefix("Sentinel-2"); p != "S2" {
		t.Errorf("expected S2, got %s", p)
	}
}

func TestLayerName(t *testing.T) {
	name := LayerName("sentinel-2-l2a", "S2A_T01", "True Color", 12.34)
	if name != "S2_S2A_T01_True Color (12.3% clouds)" {
		t.Errorf("wrong layer name: %s", name)
	}
	name = LayerName("landsat-c2-l2", "LC09_L2SP_193028", "Agriculture", 100)
	if name != "LS_LC09_L2SP_193028_Agriculture (100.0% clouds)" {
		t.Errorf("wrong layer name: %s", name)
	}
}
