package catalog

import (
	"context"
	"fmt"
	"sort"
	"time"

	"go.uber.org/zap"

	"github.com/airbusgeo/stac-quickvrt/catalog/entities"
	"github.com/airbusgeo/stac-quickvrt/common"
	interfacecatalog "github.com/airbusgeo/stac-quickvrt/interface/catalog"
	"github.com/airbusgeo/stac-quickvrt/service/log"
	"github.com/airbusgeo/stac-quickvrt/service/metrics"
)

const dateFormat = "2006-01-02"

// SearchClient queries the catalog and ranks the items
type SearchClient struct {
	Provider interfacecatalog.ItemsProvider
}

// DatetimeRange returns the datetime filter covering [startDate, endDate] (YYYY-MM-DD), both inclusive
func DatetimeRange(startDate, endDate string) (string, error) {
	start, err := time.Parse(dateFormat, startDate)
	if err != nil {
		return "", fmt.Errorf("start date must be YYYY-MM-DD: %w", err)
	}
	end, err := time.Parse(dateFormat, endDate)
	if err != nil {
		return "", fmt.Errorf("end date must be YYYY-MM-DD: %w", err)
	}
	if end.Before(start) {
		return "", fmt.Errorf("start date %s is after end date %s", startDate, endDate)
	}
	return fmt.Sprintf("%sT00:00:00Z/%sT23:59:59Z", startDate, endDate), nil
}

// Search returns all the items of the collection intersecting bbox between startDate and endDate (YYYY-MM-DD),
// ranked by cloud cover.
func (c SearchClient) Search(ctx context.Context, collectionID string, bbox entities.BoundingBox, startDate, endDate string) (result entities.SearchResult, err error) {
	start := time.Now()
	defer func() {
		metrics.Searches.WithLabelValues(collectionID, metrics.Status(err)).Inc()
		if err == nil {
			metrics.SearchItems.WithLabelValues(collectionID).Observe(float64(len(result)))
			metrics.SearchDuration.WithLabelValues(collectionID).Observe(time.Since(start).Seconds())
		}
	}()

	if c.Provider == nil {
		return nil, &ErrSearch{Collection: collectionID, Msg: "catalog integration is not configured"}
	}
	if collectionID == "" {
		return nil, &ErrSearch{Msg: "no collection"}
	}
	if err := bbox.Validate(); err != nil {
		return nil, &ErrSearch{Collection: collectionID, Msg: "invalid bounding box", Err: err}
	}
	datetime, err := DatetimeRange(startDate, endDate)
	if err != nil {
		return nil, &ErrSearch{Collection: collectionID, Msg: "invalid dates", Err: err}
	}

	log.Logger(ctx).Debug("search", zap.String("collection", collectionID), zap.Float64s("bbox", bbox.Slice()), zap.String("datetime", datetime))
	items, err := c.Provider.SearchItems(ctx, collectionID, bbox, datetime)
	if err != nil {
		return nil, &ErrSearch{Collection: collectionID, Msg: "catalog unavailable", Err: err}
	}

	result = RankByCloudCover(items)
	log.Logger(ctx).Sugar().Debugf("%d items found in %s", len(result), collectionID)
	return result, nil
}

// RankByCloudCover returns the items sorted by ascending cloud cover.
// An unknown cloud cover is DefaultCloudCover. Ties keep the order of the catalog.
func RankByCloudCover(items []entities.CatalogItem) entities.SearchResult {
	result := make(entities.SearchResult, len(items))
	copy(result, items)
	for i := range result {
		if !result[i].CloudCoverKnown {
			result[i].CloudCover = common.DefaultCloudCover
		}
	}
	sort.SliceStable(result, func(i, j int) bool {
		return result[i].CloudCover < result[j].CloudCover
	})
	return result
}
