package catalog

import (
	"context"

	"github.com/airbusgeo/stac-quickvrt/catalog/entities"
)

// ItemsProvider searches a remote catalog
type ItemsProvider interface {
	// SearchItems returns all the items of the collection intersecting bbox
	// and acquired during datetime ("{start}/{end}").
	// The items are returned in the order of the catalog, all pages included.
	SearchItems(ctx context.Context, collectionID string, bbox entities.BoundingBox, datetime string) ([]entities.CatalogItem, error)
}

// AssetSigner turns the href of an asset into a time-limited authenticated url
type AssetSigner interface {
	// Sign is idempotent: signing a signed href returns it unchanged
	Sign(ctx context.Context, href string) (string, error)
}

// PassThroughSigner implements AssetSigner for catalogs whose assets are public
type PassThroughSigner struct{}

// Sign implements AssetSigner
func (PassThroughSigner) Sign(_ context.Context, href string) (string, error) {
	return href, nil
}
