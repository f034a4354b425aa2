package catalog

import (
	"context"
	"strings"

	"go.uber.org/zap"

	"github.com/airbusgeo/stac-quickvrt/catalog/entities"
	"github.com/airbusgeo/stac-quickvrt/common"
	interfacecatalog "github.com/airbusgeo/stac-quickvrt/interface/catalog"
	"github.com/airbusgeo/stac-quickvrt/service/log"
	"github.com/airbusgeo/stac-quickvrt/service/metrics"
)

// BandResolver resolves the bands of an item to signed urls readable by the raster engine
type BandResolver struct {
	Signer interfacecatalog.AssetSigner
}

// ResolveBands returns the signed urls of the bands of item, in the requested order.
// Bands that are not assets of the item are skipped. It returns ErrNoBandsResolved if no band is found.
// The context is checked before each band. Public assets need an explicit PassThroughSigner.
func (r BandResolver) ResolveBands(ctx context.Context, item entities.CatalogItem, bandIDs []string) ([]string, error) {
	if r.Signer == nil {
		return nil, &ErrNotConfigured{Integrations: []string{"asset signer"}}
	}

	var urls []string
	for _, band := range bandIDs {
		if err := ctx.Err(); err != nil {
			return nil, err
		}
		asset, ok := item.Assets[band]
		if !ok || asset.Href == "" {
			log.Logger(ctx).Debug("band skipped", zap.String("item", item.ID), zap.String("band", band))
			metrics.BandsSkipped.WithLabelValues(band).Inc()
			continue
		}
		href, err := r.Signer.Sign(ctx, asset.Href)
		if err != nil {
			return nil, &ErrSigning{ItemID: item.ID, Band: band, Href: asset.Href, Err: err}
		}
		urls = append(urls, VSICurl(href))
	}

	if len(urls) == 0 {
		return nil, &ErrNoBandsResolved{ItemID: item.ID, Bands: bandIDs}
	}
	return urls, nil
}

// VSICurl prefixes the remote href so that it is streamed by the raster engine
func VSICurl(href string) string {
	if strings.HasPrefix(href, common.VSICurlPrefix) || !strings.Contains(href, "://") {
		return href
	}
	return common.VSICurlPrefix + href
}
