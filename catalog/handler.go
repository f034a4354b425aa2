package catalog

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"

	"github.com/gorilla/mux"

	"github.com/airbusgeo/stac-quickvrt/catalog/entities"
	"github.com/airbusgeo/stac-quickvrt/service/log"
)

// AddHandler adds the routes of the catalog to the router
func (c *Catalog) AddHandler(r *mux.Router) {
	r.HandleFunc("/catalog/integrations", c.IntegrationsHandler).Methods("GET")
	r.HandleFunc("/catalog/profiles", c.ProfilesHandler).Methods("GET")
	r.HandleFunc("/catalog/satellite", c.SatelliteHandler).Methods("POST")
	r.HandleFunc("/catalog/bbox", c.BboxHandler).Methods("POST")
	r.HandleFunc("/catalog/scenes", c.LastScenesHandler).Methods("GET")
	r.HandleFunc("/catalog/scenes", c.ScenesHandler).Methods("POST")
	r.HandleFunc("/catalog/composite", c.CompositeHandler).Methods("POST")
}

type satelliteRequest struct {
	Satellite string `json:"satellite"`
}

type bboxRequest struct {
	Extent entities.Rectangle `json:"extent"`
	CRS    string             `json:"crs"`
}

type scenesRequest struct {
	// Satellite selects a satellite before searching (optional)
	Satellite  string `json:"satellite"`
	Collection string `json:"collection"`
	// Bbox or Extent+CRS
	Bbox      *entities.BoundingBox `json:"bbox"`
	Extent    *entities.Rectangle   `json:"extent"`
	CRS       string                `json:"crs"`
	StartDate string                `json:"start"`
	EndDate   string                `json:"end"`
}

type scenesResponse struct {
	Rows  []entities.Row        `json:"rows"`
	Items entities.SearchResult `json:"items"`
}

type compositeRequest struct {
	// Index of the scene in the last search, or Item
	Index       *int                  `json:"index"`
	Item        *entities.CatalogItem `json:"item"`
	Composition string                `json:"composition"`
	// Persist copies the composite to the PersistURI of the server
	Persist bool `json:"persist"`
}

func decode(req *http.Request, v interface{}) error {
	if req.Body == nil {
		return fmt.Errorf("missing json body")
	}
	if err := json.NewDecoder(req.Body).Decode(v); err != nil {
		return fmt.Errorf("invalid json body: %w", err)
	}
	return nil
}

func writeJSON(ctx context.Context, w http.ResponseWriter, v interface{}) {
	w.Header().Set("Content-Type", "application/json")
	if err := json.NewEncoder(w).Encode(v); err != nil {
		log.Logger(ctx).Sugar().Warnf("catalog.writeJSON: %v", err)
	}
}

func badRequest(w http.ResponseWriter, err error) {
	w.WriteHeader(http.StatusBadRequest)
	fmt.Fprintf(w, "%v", err)
}

// HTTPStatus returns the http status of an error of the catalog
func HTTPStatus(err error) int {
	var (
		errSelection     *ErrInvalidSelection
		errProfile       *ErrProfileNotFound
		errNoBands       *ErrNoBandsResolved
		errInsufficient  *ErrInsufficientBands
		errProjection    *ErrProjection
		errSearch        *ErrSearch
		errSigning       *ErrSigning
		errNotConfigured *ErrNotConfigured
	)
	switch {
	case errors.As(err, &errSelection), errors.As(err, &errProfile), errors.As(err, &errNoBands),
		errors.As(err, &errInsufficient), errors.As(err, &errProjection):
		return http.StatusBadRequest
	case errors.As(err, &errNotConfigured):
		return http.StatusServiceUnavailable
	case errors.As(err, &errSearch), errors.As(err, &errSigning):
		return http.StatusBadGateway
	}
	return http.StatusInternalServerError
}

func writeError(ctx context.Context, w http.ResponseWriter, handler string, err error) {
	status := HTTPStatus(err)
	if status >= 500 {
		log.Logger(ctx).Sugar().Warnf("catalog.%s: %v", handler, err)
	}
	w.WriteHeader(status)
	fmt.Fprintf(w, "%v", err)
}

// IntegrationsHandler returns 503 if an integration is missing
func (c *Catalog) IntegrationsHandler(w http.ResponseWriter, req *http.Request) {
	if err := c.CheckIntegrations(); err != nil {
		writeError(req.Context(), w, "IntegrationsHandler", err)
		return
	}
	fmt.Fprint(w, "ok")
}

// ProfilesHandler returns the supported satellites, with their compositions
func (c *Catalog) ProfilesHandler(w http.ResponseWriter, req *http.Request) {
	writeJSON(req.Context(), w, Profiles())
}

// SatelliteHandler selects the satellite and returns its profile
func (c *Catalog) SatelliteHandler(w http.ResponseWriter, req *http.Request) {
	ctx := req.Context()
	var r satelliteRequest
	if err := decode(req, &r); err != nil {
		badRequest(w, err)
		return
	}
	profile, err := c.SelectSatellite(r.Satellite)
	if err != nil {
		writeError(ctx, w, "SatelliteHandler", err)
		return
	}
	writeJSON(ctx, w, profile)
}

// BboxHandler returns the WGS-84 bounding box of a canvas extent
func (c *Catalog) BboxHandler(w http.ResponseWriter, req *http.Request) {
	ctx := req.Context()
	var r bboxRequest
	if err := decode(req, &r); err != nil {
		badRequest(w, err)
		return
	}
	bbox, err := c.GetBbox(ctx, r.Extent, r.CRS)
	if err != nil {
		writeError(ctx, w, "BboxHandler", err)
		return
	}
	writeJSON(ctx, w, bbox)
}

// ScenesHandler searches the scenes, stores them in the session and returns them ranked by cloud cover
func (c *Catalog) ScenesHandler(w http.ResponseWriter, req *http.Request) {
	ctx := req.Context()
	var r scenesRequest
	if err := decode(req, &r); err != nil {
		badRequest(w, err)
		return
	}
	if r.Satellite != "" {
		if _, err := c.SelectSatellite(r.Satellite); err != nil {
			writeError(ctx, w, "ScenesHandler", err)
			return
		}
	}

	var bbox entities.BoundingBox
	switch {
	case r.Bbox != nil:
		bbox = *r.Bbox
	case r.Extent != nil:
		var err error
		if bbox, err = c.GetBbox(ctx, *r.Extent, r.CRS); err != nil {
			writeError(ctx, w, "ScenesHandler", err)
			return
		}
	default:
		badRequest(w, fmt.Errorf("missing required field: 'bbox' or 'extent'"))
		return
	}
	if err := bbox.Validate(); err != nil {
		badRequest(w, err)
		return
	}
	if _, err := DatetimeRange(r.StartDate, r.EndDate); err != nil {
		badRequest(w, err)
		return
	}

	result, err := c.ListScenes(ctx, r.Collection, bbox, r.StartDate, r.EndDate)
	if err != nil {
		writeError(ctx, w, "ScenesHandler", err)
		return
	}
	writeJSON(ctx, w, scenesResponse{Rows: result.Rows(), Items: result})
}

// LastScenesHandler returns the result of the last search
func (c *Catalog) LastScenesHandler(w http.ResponseWriter, req *http.Request) {
	result, ok := c.LastResult()
	if !ok {
		w.WriteHeader(http.StatusNotFound)
		fmt.Fprint(w, "no search result")
		return
	}
	writeJSON(req.Context(), w, scenesResponse{Rows: result.Rows(), Items: result})
}

// CompositeHandler builds the composite of a scene of the last search (index) or of an item
func (c *Catalog) CompositeHandler(w http.ResponseWriter, req *http.Request) {
	ctx := req.Context()
	var r compositeRequest
	if err := decode(req, &r); err != nil {
		badRequest(w, err)
		return
	}

	var persistURI string
	if r.Persist {
		if c.PersistURI == "" {
			badRequest(w, fmt.Errorf("persistence is not configured"))
			return
		}
		persistURI = c.PersistURI
	}

	var artifact entities.CompositeArtifact
	var err error
	switch {
	case r.Item != nil:
		artifact, err = c.Load(ctx, entities.CompositeRequest{Item: *r.Item, Composition: r.Composition, PersistURI: persistURI})
	case r.Index != nil:
		artifact, err = c.loadScene(ctx, *r.Index, r.Composition, persistURI)
	default:
		badRequest(w, fmt.Errorf("missing required field: 'index' or 'item'"))
		return
	}
	if err != nil {
		writeError(ctx, w, "CompositeHandler", err)
		return
	}
	writeJSON(ctx, w, artifact)
}
