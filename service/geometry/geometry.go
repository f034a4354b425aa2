package geometry

import (
	"fmt"
	"runtime"

	"github.com/go-spatial/geom"
	geomwkt "github.com/go-spatial/geom/encoding/wkt"
	"github.com/paulsmith/gogeos/geos"
)

// ExtentPolygon returns the polygon of a [minx, miny, maxx, maxy] extent
func ExtentPolygon(e geom.Extent) geom.Polygon {
	return geom.Polygon{{{e[0], e[1]}, {e[2], e[1]}, {e[2], e[3]}, {e[0], e[3]}, {e[0], e[1]}}}
}

// ExtentToGeos converts a [minx, miny, maxx, maxy] extent to a geos polygon
func ExtentToGeos(e geom.Extent) (*geos.Geometry, error) {
	wkt, err := geomwkt.EncodeString(ExtentPolygon(e))
	if err != nil {
		return nil, fmt.Errorf("ExtentToGeos.Encode: %w", err)
	}
	g, err := geos.FromWKT(wkt)
	if err != nil {
		return nil, fmt.Errorf("ExtentToGeos.FromWKT: %w", err)
	}
	return g, nil
}

// GeosToGeom generates a geom.Geometry from a geos.Geometry
func GeosToGeom(g *geos.Geometry) (geom.Geometry, error) {
	wkt, err := g.ToWKT()
	if err != nil {
		return nil, fmt.Errorf("GeosToGeom.ToWKT: %w", err)
	}
	geometry, err := geomwkt.DecodeString(wkt)
	if err != nil {
		return nil, fmt.Errorf("GeosToGeom.DecodeString: %w", err)
	}
	return geometry, nil
}

// Coverage returns the ratio (0-1) of the area of e covered by the footprint
func Coverage(footprint geom.Geometry, e geom.Extent) (float64, error) {
	area := (e[2] - e[0]) * (e[3] - e[1])
	if area <= 0 {
		return 0, fmt.Errorf("Coverage: empty extent")
	}
	wkt, err := geomwkt.EncodeString(footprint)
	if err != nil {
		return 0, fmt.Errorf("Coverage.Encode: %w", err)
	}
	fp, err := geos.FromWKT(wkt)
	if err != nil {
		return 0, fmt.Errorf("Coverage.FromWKT: %w", err)
	}
	box, err := ExtentToGeos(e)
	if err != nil {
		return 0, fmt.Errorf("Coverage.%w", err)
	}
	inter, err := fp.Intersection(box)
	if err != nil {
		return 0, fmt.Errorf("Coverage.Intersection: %w", err)
	}
	interArea, err := inter.Area()
	if err != nil {
		return 0, fmt.Errorf("Coverage.Area: %w", err)
	}
	runtime.KeepAlive(fp)
	runtime.KeepAlive(box)

	ratio := interArea / area
	if ratio > 1 {
		ratio = 1
	}
	return ratio, nil
}
