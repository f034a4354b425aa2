package geometry

import (
	"encoding/json"
	"math"
	"testing"

	"github.com/go-spatial/geom"
	"github.com/go-spatial/geom/encoding/geojson"
	geomwkt "github.com/go-spatial/geom/encoding/wkt"
	"github.com/paulsmith/gogeos/geos"
)

func TestGeosToGeom(t *testing.T) {
	polygon, err := geos.FromWKT("POLYGON ((20 35, 10 30, 10 10, 30 5, 45 20, 20 35), (30 20, 20 15, 20 25, 30 20))")
	if err != nil {
		t.Error(err)
	}
	g, err := GeosToGeom(polygon)
	if err != nil {
		t.Error(err)
	}
	bytes, err := json.Marshal(geojson.Geometry{Geometry: g})
	if err != nil {
		t.Error(err)
	}
	expected := `{"type":"Polygon","coordinates":[[[20,35],[10,30],[10,10],[30,5],[45,20],[20,35]],[[30,20],[20,15],[20,25],[30,20]]]}`
	if string(bytes) != expected {
		t.Errorf("Expect %s found %s", expected, string(bytes))
	}
}

func TestExtentToGeos(t *testing.T) {
	g, err := ExtentToGeos(geom.Extent{10, 45, 10.5, 45.5})
	if err != nil {
		t.Fatal(err)
	}
	area, err := g.Area()
	if err != nil {
		t.Fatal(err)
	}
	if math.Abs(area-0.25) > 1e-9 {
		t.Errorf("expecting area 0.25, got %f", area)
	}
}

func TestCoverage(t *testing.T) {
	bbox := geom.Extent{10, 45, 10.5, 45.5}
	tests := []struct {
		footprint string
		expected  float64
	}{
		{"POLYGON ((9 44, 11 44, 11 46, 9 46, 9 44))", 1},
		{"POLYGON ((10.25 44, 11 44, 11 46, 10.25 46, 10.25 44))", 0.5},
		{"POLYGON ((20 44, 21 44, 21 46, 20 46, 20 44))", 0},
	}
	for _, tt := range tests {
		fp, err := geomwkt.DecodeString(tt.footprint)
		if err != nil {
			t.Fatal(err)
		}
		c, err := Coverage(fp, bbox)
		if err != nil {
			t.Errorf("%s: %v", tt.footprint, err)
			continue
		}
		if math.Abs(c-tt.expected) > 1e-9 {
			t.Errorf("%s: expecting %f got %f", tt.footprint, tt.expected, c)
		}
	}

	if _, err := Coverage(geom.Point{0, 0}, geom.Extent{1, 1, 1, 1}); err == nil {
		t.Error("expecting an error on an empty extent")
	}
}
