package catalog

import (
	"context"
	"fmt"
	"os"
	"path/filepath"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/airbusgeo/stac-quickvrt/catalog/entities"
	"github.com/airbusgeo/stac-quickvrt/common"
	"github.com/airbusgeo/stac-quickvrt/interface/raster"
	"github.com/airbusgeo/stac-quickvrt/service"
	"github.com/airbusgeo/stac-quickvrt/service/log"
	"github.com/airbusgeo/stac-quickvrt/service/metrics"
)

// NamingContext gives the name of the layer of a composite
type NamingContext struct {
	CollectionID string
	ItemID       string
	Composition  string
	CloudCover   float64
}

// NamingContextFor returns the naming context of a composition of the item.
// An item without cloud cover is named with DefaultCloudCover.
func NamingContextFor(item entities.CatalogItem, composition string) NamingContext {
	cloudCover := item.CloudCover
	if !item.CloudCoverKnown {
		cloudCover = common.DefaultCloudCover
	}
	return NamingContext{CollectionID: item.Collection, ItemID: item.ID, Composition: composition, CloudCover: cloudCover}
}

// LayerName returns "{prefix}_{itemId}_{composition} ({cloudCover}% clouds)"
func (n NamingContext) LayerName() string {
	return common.LayerName(n.CollectionID, n.ItemID, n.Composition, n.CloudCover)
}

// CompositeBuilder stacks signed band urls into a multi-band virtual raster
type CompositeBuilder struct {
	Engine raster.Engine
	// WorkingDir receives the transient virtual rasters (default: os.TempDir())
	WorkingDir string
}

// BuildComposite builds a virtual raster with one band per url, in the order of signedURLs.
// The virtual raster is written to a new file of the working directory.
func (b CompositeBuilder) BuildComposite(ctx context.Context, signedURLs []string, naming NamingContext) (artifact entities.CompositeArtifact, err error) {
	layer := naming.LayerName()
	defer func() {
		metrics.Composites.WithLabelValues(metrics.Status(err)).Inc()
	}()
	if len(signedURLs) == 0 {
		return entities.CompositeArtifact{}, &ErrInsufficientBands{Layer: layer}
	}
	if b.Engine == nil {
		return entities.CompositeArtifact{}, &ErrCompositeBuild{Layer: layer, Err: fmt.Errorf("raster engine is not configured")}
	}

	workingDir := b.WorkingDir
	if workingDir == "" {
		workingDir = os.TempDir()
	}
	if err := os.MkdirAll(workingDir, 0755); err != nil {
		return entities.CompositeArtifact{}, &ErrCompositeBuild{Layer: layer, Err: service.MakeTemporary(fmt.Errorf("make directory %s: %w", workingDir, err))}
	}
	output := service.WithExt(filepath.Join(workingDir, uuid.New().String()), service.ExtensionVRT)

	sources := append([]string(nil), signedURLs...)
	log.Logger(ctx).Debug("build composite", zap.String("layer", layer), zap.String("output", output), zap.Int("bands", len(sources)))
	res, err := b.Engine.BuildVRT(ctx, sources, raster.BuildOptions{Separate: true, Output: output})
	if err != nil {
		return entities.CompositeArtifact{}, &ErrCompositeBuild{Layer: layer, Err: err}
	}
	if res.Handle == "" {
		return entities.CompositeArtifact{}, &ErrCompositeBuild{Layer: layer, Err: fmt.Errorf("no output")}
	}
	if res.BandCount < 1 {
		return entities.CompositeArtifact{}, &ErrCompositeBuild{Layer: layer, Err: fmt.Errorf("%s has no band", res.Handle)}
	}

	return entities.CompositeArtifact{
		SourceURLs:   sources,
		OutputHandle: res.Handle,
		LayerName:    layer,
		BandCount:    res.BandCount,
	}, nil
}
