package catalog

import (
	"context"
	"fmt"
	"strings"

	"github.com/airbusgeo/stac-quickvrt/catalog/entities"
	"github.com/airbusgeo/stac-quickvrt/common"
	"github.com/airbusgeo/stac-quickvrt/interface/raster"
	"github.com/airbusgeo/stac-quickvrt/service/log"
)

// CoordinateProjector converts a canvas extent to a search bounding box
type CoordinateProjector struct {
	Transformer raster.Transformer
}

// ToWGS84Bbox transforms the min and the max corners of the extent from sourceCRS to destCRS (default: EPSG:4326).
// Only the two corners are transformed: it is suitable for axis-aligned display extents,
// not for an exact reprojection of the rectangle.
func (p CoordinateProjector) ToWGS84Bbox(ctx context.Context, extent entities.Rectangle, sourceCRS, destCRS string) (entities.BoundingBox, error) {
	if destCRS == "" {
		destCRS = common.DefaultCRS
	}
	xs := []float64{extent.XMin, extent.XMax}
	ys := []float64{extent.YMin, extent.YMax}

	if !sameCRS(sourceCRS, destCRS) {
		if p.Transformer == nil {
			return entities.BoundingBox{}, &ErrProjection{SourceCRS: sourceCRS, DestCRS: destCRS, Err: fmt.Errorf("no transformer")}
		}
		log.Logger(ctx).Sugar().Debugf("transform extent %v from %s to %s", extent, sourceCRS, destCRS)
		if err := p.Transformer.Transform(ctx, sourceCRS, destCRS, xs, ys); err != nil {
			return entities.BoundingBox{}, &ErrProjection{SourceCRS: sourceCRS, DestCRS: destCRS, Err: err}
		}
	}

	bbox := entities.BoundingBox{MinLon: xs[0], MinLat: ys[0], MaxLon: xs[1], MaxLat: ys[1]}
	if err := bbox.Validate(); err != nil {
		return entities.BoundingBox{}, &ErrProjection{SourceCRS: sourceCRS, DestCRS: destCRS, Err: err}
	}
	return bbox, nil
}

func sameCRS(a, b string) bool {
	return strings.EqualFold(strings.TrimSpace(a), strings.TrimSpace(b))
}
