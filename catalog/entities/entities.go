package entities

import (
	"encoding/json"
	"fmt"
	"math"
	"strings"

	"github.com/go-spatial/geom"
	"github.com/go-spatial/geom/encoding/geojson"
)

// Rectangle is an axis-aligned extent expressed in the CRS of the map canvas
type Rectangle struct {
	XMin float64 `json:"xmin"`
	YMin float64 `json:"ymin"`
	XMax float64 `json:"xmax"`
	YMax float64 `json:"ymax"`
}

// BoundingBox is a WGS-84 bounding box. It is encoded as [minLon, minLat, maxLon, maxLat].
type BoundingBox struct {
	MinLon, MinLat, MaxLon, MaxLat float64
}

// Validate checks that the bounding box is ordered and finite
func (b BoundingBox) Validate() error {
	for _, v := range b.Slice() {
		if math.IsNaN(v) || math.IsInf(v, 0) {
			return fmt.Errorf("invalid bbox %v: not a finite number", b.Slice())
		}
	}
	if b.MinLon > b.MaxLon || b.MinLat > b.MaxLat {
		return fmt.Errorf("invalid bbox %v: min must be lower than max", b.Slice())
	}
	return nil
}

// Slice returns [minLon, minLat, maxLon, maxLat]
func (b BoundingBox) Slice() []float64 {
	return []float64{b.MinLon, b.MinLat, b.MaxLon, b.MaxLat}
}

// Extent returns the bounding box as a geom.Extent
func (b BoundingBox) Extent() geom.Extent {
	return geom.Extent{b.MinLon, b.MinLat, b.MaxLon, b.MaxLat}
}

// MarshalJSON implements json.Marshaler
func (b BoundingBox) MarshalJSON() ([]byte, error) {
	return json.Marshal(b.Slice())
}

// UnmarshalJSON implements json.Unmarshaler
func (b *BoundingBox) UnmarshalJSON(data []byte) error {
	var v []float64
	if err := json.Unmarshal(data, &v); err != nil {
		return fmt.Errorf("bbox: %w", err)
	}
	if len(v) != 4 {
		return fmt.Errorf("bbox: expecting 4 values, got %d", len(v))
	}
	*b = BoundingBox{MinLon: v[0], MinLat: v[1], MaxLon: v[2], MaxLat: v[3]}
	return nil
}

// Composition is a named, ordered list of band identifiers
type Composition struct {
	Name  string   `json:"name"`
	Bands []string `json:"bands"`
}

// Label returns the name followed by the bands, e.g. "True Color (B04, B03, B02)"
func (c Composition) Label() string {
	return fmt.Sprintf("%s (%s)", c.Name, strings.Join(c.Bands, ", "))
}

// SatelliteProfile defines the collection and the available compositions of a satellite
type SatelliteProfile struct {
	Label        string        `json:"label"`
	CollectionID string        `json:"collection"`
	Compositions []Composition `json:"compositions"`
}

// Composition returns the composition whose name or label is name
func (p SatelliteProfile) Composition(name string) (Composition, bool) {
	name = strings.TrimSpace(name)
	for _, c := range p.Compositions {
		if c.Name == name || c.Label() == name {
			return c, true
		}
	}
	return Composition{}, false
}

// CompositionNames returns the names of the compositions, in order
func (p SatelliteProfile) CompositionNames() []string {
	names := make([]string, len(p.Compositions))
	for i, c := range p.Compositions {
		names[i] = c.Name
	}
	return names
}

// Asset is a file of a catalog item
type Asset struct {
	Href  string   `json:"href"`
	Type  string   `json:"type,omitempty"`
	Title string   `json:"title,omitempty"`
	Roles []string `json:"roles,omitempty"`
}

// CatalogItem is a scene of the catalog
type CatalogItem struct {
	ID         string `json:"id"`
	Collection string `json:"collection"`
	// Datetime is the acquisition date (YYYY-MM-DD)
	Datetime string `json:"datetime"`
	// CloudCover is in percent, DefaultCloudCover if the catalog does not provide it
	CloudCover      float64          `json:"cloud_cover"`
	CloudCoverKnown bool             `json:"cloud_cover_known"`
	Assets          map[string]Asset `json:"assets"`
	// Footprint of the scene (WGS-84), may be nil
	Footprint geom.Geometry `json:"-"`
	// Coverage is the ratio of the search bounding box covered by the footprint (0 if unknown)
	Coverage float64 `json:"coverage"`
}

// MarshalJSON implements json.Marshaler, encoding the footprint in geojson
func (i CatalogItem) MarshalJSON() ([]byte, error) {
	type item CatalogItem
	v := struct {
		item
		Footprint *geojson.Geometry `json:"footprint,omitempty"`
	}{item: item(i)}
	if i.Footprint != nil {
		v.Footprint = &geojson.Geometry{Geometry: i.Footprint}
	}
	return json.Marshal(v)
}

// UnmarshalJSON implements json.Unmarshaler.
// The cloud cover is known if cloud_cover is provided, unless cloud_cover_known is false.
func (i *CatalogItem) UnmarshalJSON(data []byte) error {
	type item CatalogItem
	v := struct {
		*item
		CloudCover      *float64          `json:"cloud_cover"`
		CloudCoverKnown *bool             `json:"cloud_cover_known"`
		Footprint       *geojson.Geometry `json:"footprint,omitempty"`
	}{item: (*item)(i)}
	if err := json.Unmarshal(data, &v); err != nil {
		return err
	}
	i.CloudCoverKnown = v.CloudCover != nil && (v.CloudCoverKnown == nil || *v.CloudCoverKnown)
	if v.CloudCover != nil {
		i.CloudCover = *v.CloudCover
	}
	if v.Footprint != nil {
		i.Footprint = v.Footprint.Geometry
	}
	return nil
}

// Row is a line of the result table
type Row struct {
	Index  int    `json:"index"`
	Date   string `json:"date"`
	Clouds string `json:"clouds"`
	ID     string `json:"id"`
}

// SearchResult is the list of items returned by a search, ranked by cloud cover
type SearchResult []CatalogItem

// Rows returns the table of the results
func (r SearchResult) Rows() []Row {
	rows := make([]Row, len(r))
	for i, item := range r {
		date := item.Datetime
		if date == "" {
			date = "N/A"
		}
		rows[i] = Row{
			Index:  i,
			Date:   date,
			Clouds: fmt.Sprintf("%.2f%%", item.CloudCover),
			ID:     item.ID,
		}
	}
	return rows
}

// CompositeRequest is a request to build a composite of an item
type CompositeRequest struct {
	Item        CatalogItem `json:"item"`
	Composition string      `json:"composition"`
	// PersistURI is the optional destination of the composite
	PersistURI string `json:"persist_uri,omitempty"`
}

// CompositeArtifact is a multi-band virtual raster referencing remote bands
type CompositeArtifact struct {
	SourceURLs   []string `json:"source_urls"`
	OutputHandle string   `json:"output"`
	LayerName    string   `json:"layer_name"`
	BandCount    int      `json:"band_count"`
	// PersistedURI is set if the artifact has been copied to a durable storage
	PersistedURI string `json:"persisted_uri,omitempty"`
}
