package catalog

import (
	"context"
	"fmt"
	"strings"
	"sync"

	"go.uber.org/zap"

	"github.com/airbusgeo/stac-quickvrt/catalog/entities"
	"github.com/airbusgeo/stac-quickvrt/common"
	interfacecatalog "github.com/airbusgeo/stac-quickvrt/interface/catalog"
	"github.com/airbusgeo/stac-quickvrt/interface/raster"
	"github.com/airbusgeo/stac-quickvrt/service"
	"github.com/airbusgeo/stac-quickvrt/service/log"
)

// Catalog is the main class of this package.
// It holds one session: the selected satellite and the result of the last search.
// Actions are serialized.
type Catalog struct {
	Provider    interfacecatalog.ItemsProvider
	Signer      interfacecatalog.AssetSigner
	Engine      raster.Engine
	Transformer raster.Transformer
	Registrar   raster.Registrar
	WorkingDir  string
	// PersistURI is the default destination of the composites (local dir, gs://bucket/prefix or s3://bucket/prefix).
	// Empty: the composites are transient.
	PersistURI string

	mu      sync.Mutex
	profile *entities.SatelliteProfile
	session SessionCache
}

// CheckIntegrations returns ErrNotConfigured if a collaborator is missing
func (c *Catalog) CheckIntegrations() error {
	var missing []string
	if c.Provider == nil {
		missing = append(missing, "catalog provider")
	}
	if c.Signer == nil {
		missing = append(missing, "asset signer")
	}
	if c.Engine == nil {
		missing = append(missing, "raster engine")
	}
	if c.Transformer == nil {
		missing = append(missing, "crs transformer")
	}
	if c.Registrar == nil {
		missing = append(missing, "layer registrar")
	}
	if len(missing) > 0 {
		return &ErrNotConfigured{Integrations: missing}
	}
	return nil
}

// SelectSatellite selects the profile of the satellite.
// An unknown satellite unselects the current profile and returns ErrProfileNotFound.
func (c *Catalog) SelectSatellite(label string) (entities.SatelliteProfile, error) {
	c.mu.Lock()
	defer c.mu.Unlock()
	profile, err := ProfileFor(label)
	if err != nil {
		c.profile = nil
		return entities.SatelliteProfile{}, err
	}
	c.profile = &profile
	return profile, nil
}

// Profile returns the selected profile
func (c *Catalog) Profile() (entities.SatelliteProfile, bool) {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.profile == nil {
		return entities.SatelliteProfile{}, false
	}
	return *c.profile, true
}

// GetBbox returns the WGS-84 bounding box of the canvas extent expressed in crs
func (c *Catalog) GetBbox(ctx context.Context, extent entities.Rectangle, crs string) (entities.BoundingBox, error) {
	return CoordinateProjector{Transformer: c.Transformer}.ToWGS84Bbox(ctx, extent, crs, common.DefaultCRS)
}

// ListScenes searches the scenes and stores the result in the session.
// If collectionID is empty, the collection of the selected satellite is used.
// On failure, the session is cleared.
func (c *Catalog) ListScenes(ctx context.Context, collectionID string, bbox entities.BoundingBox, startDate, endDate string) (entities.SearchResult, error) {
	c.mu.Lock()
	defer c.mu.Unlock()
	if collectionID == "" && c.profile != nil {
		collectionID = c.profile.CollectionID
	}

	result, err := SearchClient{Provider: c.Provider}.Search(ctx, collectionID, bbox, startDate, endDate)
	if err != nil {
		c.session.Clear()
		return nil, err
	}
	c.session.Store(result)
	return result, nil
}

// LastResult returns the result of the last search
func (c *Catalog) LastResult() (entities.SearchResult, bool) {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.session.Get()
}

// ClearSession forgets the result of the last search
func (c *Catalog) ClearSession() {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.session.Clear()
}

// LoadScene builds the composite of the scene at index of the last search. The catalog is not queried again.
func (c *Catalog) LoadScene(ctx context.Context, index int, composition string) (entities.CompositeArtifact, error) {
	return c.loadScene(ctx, index, composition, c.PersistURI)
}

func (c *Catalog) loadScene(ctx context.Context, index int, composition, persistURI string) (entities.CompositeArtifact, error) {
	c.mu.Lock()
	defer c.mu.Unlock()
	item, err := c.session.Item(index)
	if err != nil {
		return entities.CompositeArtifact{}, err
	}
	return c.load(ctx, entities.CompositeRequest{Item: item, Composition: composition, PersistURI: persistURI})
}

// LoadItem builds the composite of the item
func (c *Catalog) LoadItem(ctx context.Context, item entities.CatalogItem, composition string) (entities.CompositeArtifact, error) {
	return c.Load(ctx, entities.CompositeRequest{Item: item, Composition: composition, PersistURI: c.PersistURI})
}

// Load builds the composite of the request, registers it and persists it if req.PersistURI is set
func (c *Catalog) Load(ctx context.Context, req entities.CompositeRequest) (entities.CompositeArtifact, error) {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.load(ctx, req)
}

func (c *Catalog) load(ctx context.Context, req entities.CompositeRequest) (entities.CompositeArtifact, error) {
	item := req.Item
	composition, err := c.composition(item, req.Composition)
	if err != nil {
		return entities.CompositeArtifact{}, err
	}
	ctx = log.With(ctx, zap.String("item", item.ID), zap.String("composition", composition.Name))

	urls, err := BandResolver{Signer: c.Signer}.ResolveBands(ctx, item, composition.Bands)
	if err != nil {
		return entities.CompositeArtifact{}, err
	}
	if len(urls) < len(composition.Bands) {
		log.Logger(ctx).Sugar().Warnf("%d/%d bands found", len(urls), len(composition.Bands))
	}

	builder := CompositeBuilder{Engine: c.Engine, WorkingDir: c.WorkingDir}
	artifact, err := builder.BuildComposite(ctx, urls, NamingContextFor(item, composition.Name))
	if err != nil {
		return entities.CompositeArtifact{}, err
	}

	if c.Registrar == nil {
		return entities.CompositeArtifact{}, &ErrCompositeBuild{Layer: artifact.LayerName, Err: fmt.Errorf("layer registrar is not configured")}
	}
	valid, err := c.Registrar.Register(ctx, artifact.OutputHandle, artifact.LayerName)
	if err != nil {
		return entities.CompositeArtifact{}, &ErrCompositeBuild{Layer: artifact.LayerName, Err: err}
	}
	if !valid {
		return entities.CompositeArtifact{}, &ErrCompositeBuild{Layer: artifact.LayerName, Err: fmt.Errorf("%s is not a valid layer", artifact.OutputHandle)}
	}

	if req.PersistURI != "" {
		dst := PersistDestination(req.PersistURI, item, composition.Name)
		if artifact.PersistedURI, err = service.Persist(ctx, artifact.OutputHandle, dst); err != nil {
			return entities.CompositeArtifact{}, fmt.Errorf("Load.%w", err)
		}
	}
	log.Logger(ctx).Info("composite loaded", zap.String("layer", artifact.LayerName), zap.Int("bands", artifact.BandCount))
	return artifact, nil
}

// composition returns the composition of the profile of the collection of the item,
// or of the selected profile if the collection is unknown
func (c *Catalog) composition(item entities.CatalogItem, name string) (entities.Composition, error) {
	profile, err := ProfileFor(item.Collection)
	if err != nil {
		if c.profile == nil {
			return entities.Composition{}, &ErrInvalidSelection{Msg: fmt.Sprintf("no satellite selected and %v", err)}
		}
		profile = *c.profile
	}
	composition, ok := profile.Composition(name)
	if !ok {
		return entities.Composition{}, &ErrInvalidSelection{Msg: fmt.Sprintf("unknown composition %q for %s (available: %s)",
			name, profile.Label, strings.Join(profile.CompositionNames(), ", "))}
	}
	return composition, nil
}

// PersistDestination returns the uri where the composite is persisted.
// A uri with the .vrt extension is used as is, otherwise it is a directory (or a prefix).
func PersistDestination(uri string, item entities.CatalogItem, composition string) string {
	if service.GetExt(uri) == service.ExtensionVRT {
		return uri
	}
	name := fmt.Sprintf("%s_%s_%s", common.SatellitePrefix(item.Collection), item.ID, composition)
	name = strings.NewReplacer(" / ", "_", " ", "_", "/", "_").Replace(name)
	return strings.TrimSuffix(uri, "/") + "/" + name + "." + string(service.ExtensionVRT)
}
