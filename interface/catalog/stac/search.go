package stac

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"strconv"
	"strings"

	"github.com/araddon/dateparse"
	"github.com/go-spatial/geom/encoding/geojson"
	"go.uber.org/zap"

	"github.com/airbusgeo/stac-quickvrt/catalog/entities"
	"github.com/airbusgeo/stac-quickvrt/common"
	"github.com/airbusgeo/stac-quickvrt/service"
	"github.com/airbusgeo/stac-quickvrt/service/geometry"
	"github.com/airbusgeo/stac-quickvrt/service/log"
)

const (
	PlanetaryComputerURL = "https://planetarycomputer.microsoft.com/api/stac/v1"
	EarthSearchURL       = "https://earth-search.aws.element84.com/v1"
	DefaultPageLimit     = 100
	// MaxPages stops a catalog that never stops returning a next link
	MaxPages = 1000
)

// SearchData is a page of the response of /search
type SearchData struct {
	Features       []Feature `json:"features"`
	Links          []Link    `json:"links"`
	NumberMatched  int       `json:"numberMatched"`
	NumberReturned int       `json:"numberReturned"`
}

// Link of a STAC response
type Link struct {
	Body   map[string]interface{} `json:"body"`
	Href   string                 `json:"href"`
	Method string                 `json:"method"`
	Rel    string                 `json:"rel"`
	Merge  bool                   `json:"merge"`
}

// Feature is a STAC item
type Feature struct {
	Id          string                    `json:"id"`
	Collection  string                    `json:"collection"`
	BoundingBox []float64                 `json:"bbox"`
	Properties  map[string]interface{}    `json:"properties"`
	Geometry    *geojson.Geometry         `json:"geometry"`
	Assets      map[string]entities.Asset `json:"assets"`
}

type search struct {
	Bbox        []float64 `json:"bbox,omitempty"`
	Datetime    string    `json:"datetime,omitempty"`
	Collections []string  `json:"collections"`
	Limit       int       `json:"limit,omitempty"`
}

// Provider implements catalog.ItemsProvider for a STAC API
type Provider struct {
	// URL is the root of the STAC API (the search endpoint is URL/search)
	URL    string
	Client *http.Client
	// Limit is the number of items per page
	Limit int
}

// NewProvider creates a provider on the STAC API at url
func NewProvider(url string, client *http.Client) *Provider {
	if client == nil {
		client = http.DefaultClient
	}
	return &Provider{URL: strings.TrimSuffix(url, "/"), Client: client, Limit: DefaultPageLimit}
}

// SearchItems implements catalog.ItemsProvider
func (p *Provider) SearchItems(ctx context.Context, collectionID string, bbox entities.BoundingBox, datetime string) ([]entities.CatalogItem, error) {
	if p.Limit == 0 {
		p.Limit = DefaultPageLimit
	}
	req := search{
		Bbox:        bbox.Slice(),
		Datetime:    datetime,
		Collections: []string{collectionID},
		Limit:       p.Limit,
	}

	features, err := p.query(ctx, p.URL+"/search", req)
	if err != nil {
		return nil, fmt.Errorf("SearchItems(%s).%w", collectionID, err)
	}

	items := make([]entities.CatalogItem, len(features))
	for i, feature := range features {
		items[i] = parseFeature(ctx, feature, collectionID, bbox)
	}
	return items, nil
}

// query follows the "next" links until the last page
func (p *Provider) query(ctx context.Context, url string, searchReq search) ([]Feature, error) {
	body, err := json.Marshal(searchReq)
	if err != nil {
		return nil, fmt.Errorf("query.json.encode: %w", err)
	}
	httpMethod := http.MethodPost

	var features []Feature
	for page := 0; ; page++ {
		if page == MaxPages {
			return nil, fmt.Errorf("query: more than %d pages (%d items)", MaxPages, len(features))
		}
		log.Logger(ctx).Sugar().Debugf("[STAC] %s %s page %d", httpMethod, url, page+1)

		var reqBody *bytes.Reader
		if httpMethod == http.MethodPost {
			reqBody = bytes.NewReader(body)
		} else {
			reqBody = bytes.NewReader(nil)
		}
		req, err := http.NewRequestWithContext(ctx, httpMethod, url, reqBody)
		if err != nil {
			return nil, fmt.Errorf("query.NewRequest: %w", err)
		}
		if httpMethod == http.MethodPost {
			req.Header.Add("Content-Type", "application/json")
		}
		req.Header.Add("Accept", "application/geo+json")

		search := SearchData{}
		if err := service.GetJSON(p.Client, req, &search); err != nil {
			return nil, fmt.Errorf("query: %w", err)
		}
		features = append(features, search.Features...)

		next := nextLink(search.Links)
		if next == nil || len(search.Features) == 0 {
			break
		}
		url = next.Href
		httpMethod = strings.ToUpper(next.Method)
		if httpMethod == "" {
			httpMethod = http.MethodGet
		}
		if httpMethod == http.MethodPost && next.Body != nil {
			if body, err = nextBody(body, next); err != nil {
				return nil, fmt.Errorf("query.%w", err)
			}
		}
	}
	return features, nil
}

func nextLink(links []Link) *Link {
	for i := range links {
		if links[i].Rel == "next" && links[i].Href != "" {
			return &links[i]
		}
	}
	return nil
}

// nextBody returns the body of the next request, merged with the previous one if required
func nextBody(previous []byte, link *Link) ([]byte, error) {
	body := map[string]interface{}{}
	if link.Merge {
		if err := json.Unmarshal(previous, &body); err != nil {
			return nil, fmt.Errorf("nextBody.Unmarshal: %w", err)
		}
	}
	for k, v := range link.Body {
		body[k] = v
	}
	b, err := json.Marshal(body)
	if err != nil {
		return nil, fmt.Errorf("nextBody.Marshal: %w", err)
	}
	return b, nil
}

func parseFeature(ctx context.Context, feature Feature, collectionID string, bbox entities.BoundingBox) entities.CatalogItem {
	item := entities.CatalogItem{
		ID:         feature.Id,
		Collection: feature.Collection,
		CloudCover: common.DefaultCloudCover,
		Assets:     feature.Assets,
	}
	if item.Collection == "" {
		item.Collection = collectionID
	}
	if item.Assets == nil {
		item.Assets = map[string]entities.Asset{}
	}

	item.Datetime = parseDate(ctx, feature.Properties)
	if cc, ok := parseFloat(feature.Properties[common.PropCloudCover]); ok {
		item.CloudCover = cc
		item.CloudCoverKnown = true
	}

	if feature.Geometry != nil && feature.Geometry.Geometry != nil {
		item.Footprint = feature.Geometry.Geometry
		coverage, err := geometry.Coverage(item.Footprint, bbox.Extent())
		if err != nil {
			log.Logger(ctx).Debug("unable to compute coverage", zap.String("item", item.ID), zap.Error(err))
		}
		item.Coverage = coverage
	}
	return item
}

// parseDate returns the acquisition date (YYYY-MM-DD) of the properties
func parseDate(ctx context.Context, properties map[string]interface{}) string {
	raw, _ := properties[common.PropDatetime].(string)
	if raw == "" {
		// datetime may be null for items with a time range
		raw, _ = properties["start_datetime"].(string)
	}
	if raw == "" {
		return ""
	}
	date, err := dateparse.ParseAny(raw)
	if err != nil {
		log.Logger(ctx).Sugar().Debugf("parse datetime property %s: %v", raw, err)
		if len(raw) > 10 {
			return raw[:10]
		}
		return raw
	}
	return date.Format("2006-01-02")
}

func parseFloat(v interface{}) (float64, bool) {
	switch v := v.(type) {
	case float64:
		return v, true
	case string:
		f, err := strconv.ParseFloat(v, 64)
		return f, err == nil
	}
	return 0, false
}
