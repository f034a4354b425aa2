package catalog

import (
	"github.com/airbusgeo/stac-quickvrt/catalog/entities"
	"github.com/airbusgeo/stac-quickvrt/common"
)

// Satellite labels
const (
	LabelSentinel2 = "Sentinel-2"
	LabelLandsat   = "Landsat 8/9"
)

// Collections of the Planetary Computer
const (
	CollectionSentinel2 = "sentinel-2-l2a"
	CollectionLandsat   = "landsat-c2-l2"
)

func sentinel2Profile() entities.SatelliteProfile {
	return entities.SatelliteProfile{
		Label:        LabelSentinel2,
		CollectionID: CollectionSentinel2,
		Compositions: []entities.Composition{
			{Name: "True Color", Bands: []string{"B04", "B03", "B02"}},
			{Name: "False Color NIR", Bands: []string{"B08", "B04", "B03"}},
			{Name: "False Color SWIR", Bands: []string{"B12", "B08", "B04"}},
			{Name: "Agriculture", Bands: []string{"B11", "B08", "B02"}},
			{Name: "Geology", Bands: []string{"B12", "B11", "B02"}},
			{Name: "Urban / Soil", Bands: []string{"B12", "B11", "B04"}},
		},
	}
}

func landsatProfile() entities.SatelliteProfile {
	return entities.SatelliteProfile{
		Label:        LabelLandsat,
		CollectionID: CollectionLandsat,
		Compositions: []entities.Composition{
			{Name: "True Color", Bands: []string{"red", "green", "blue"}},
			{Name: "False Color NIR", Bands: []string{"nir08", "red", "green"}},
			{Name: "Agriculture", Bands: []string{"swir16", "nir08", "blue"}},
		},
	}
}

// Labels returns the supported satellites
func Labels() []string {
	return []string{LabelSentinel2, LabelLandsat}
}

// Profiles returns the profiles of the supported satellites
func Profiles() []entities.SatelliteProfile {
	return []entities.SatelliteProfile{sentinel2Profile(), landsatProfile()}
}

// ProfileFor returns the profile of the satellite (or its collection), or ErrProfileNotFound
func ProfileFor(label string) (entities.SatelliteProfile, error) {
	switch common.GetConstellationFromString(label) {
	case common.Sentinel2:
		return sentinel2Profile(), nil
	case common.Landsat89:
		return landsatProfile(), nil
	}
	return entities.SatelliteProfile{}, &ErrProfileNotFound{Label: label}
}
