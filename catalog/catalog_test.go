package catalog_test

import (
	"context"
	"encoding/json"
	"errors"
	"os"
	"path/filepath"

	. "github.com/onsi/ginkgo"
	. "github.com/onsi/gomega"

	"github.com/airbusgeo/stac-quickvrt/catalog"
	"github.com/airbusgeo/stac-quickvrt/catalog/entities"
)

func s2Item(id string, cloudCover float64, known bool, bands ...string) entities.CatalogItem {
	item := entities.CatalogItem{
		ID:              id,
		Collection:      catalog.CollectionSentinel2,
		Datetime:        "2024-01-10",
		CloudCover:      cloudCover,
		CloudCoverKnown: known,
		Assets:          map[string]entities.Asset{},
	}
	for _, b := range bands {
		item.Assets[b] = entities.Asset{Href: "https://sentinel2l2a01.blob.core.windows.net/sentinel2-l2/" + id + "/" + b + ".tif"}
	}
	return item
}

var _ = Describe("Catalog", func() {
	var (
		ctx        context.Context
		c          *catalog.Catalog
		provider   *MokeProvider
		signer     *MokeSigner
		engine     *MokeEngine
		registrar  *MokeRegistrar
		workingDir string
		err        error
	)
	bbox := entities.BoundingBox{MinLon: 10.0, MinLat: 45.0, MaxLon: 10.5, MaxLat: 45.5}

	BeforeEach(func() {
		ctx = context.Background()
		provider = &MokeProvider{Items: []entities.CatalogItem{
			s2Item("S2A_20", 20.0, true, "B04", "B03", "B02", "B08"),
			s2Item("S2B_5", 5.0, true, "B04", "B02"),
			s2Item("S2A_missing", 0, false, "B04", "B03", "B02"),
		}}
		signer = &MokeSigner{}
		engine = &MokeEngine{}
		registrar = &MokeRegistrar{}
		workingDir, err = os.MkdirTemp("", "quickvrt")
		Expect(err).NotTo(HaveOccurred())
		c = &catalog.Catalog{
			Provider:    provider,
			Signer:      signer,
			Engine:      engine,
			Transformer: &MokeTransformer{},
			Registrar:   registrar,
			WorkingDir:  workingDir,
		}
	})

	AfterEach(func() {
		os.RemoveAll(workingDir)
	})

	Context("with every integration", func() {
		It("is configured", func() {
			Expect(c.CheckIntegrations()).To(Succeed())
		})
	})

	Context("without integrations", func() {
		It("reports the missing ones", func() {
			err = (&catalog.Catalog{Provider: provider}).CheckIntegrations()
			var errNotConfigured *catalog.ErrNotConfigured
			Expect(errors.As(err, &errNotConfigured)).To(BeTrue())
			Expect(errNotConfigured.Integrations).To(ConsistOf("asset signer", "raster engine", "crs transformer", "layer registrar"))
		})
	})

	Describe("searching Sentinel-2 scenes", func() {
		var result entities.SearchResult

		BeforeEach(func() {
			_, err = c.SelectSatellite("Sentinel-2")
			Expect(err).NotTo(HaveOccurred())
			result, err = c.ListScenes(ctx, "", bbox, "2024-01-01", "2024-01-31")
		})

		It("ranks the scenes by cloud cover, unknown last", func() {
			Expect(err).NotTo(HaveOccurred())
			Expect(result).To(HaveLen(3))
			Expect(result[0].ID).To(Equal("S2B_5"))
			Expect(result[1].ID).To(Equal("S2A_20"))
			Expect(result[2].ID).To(Equal("S2A_missing"))
			Expect(result[2].CloudCover).To(Equal(100.0))
		})

		It("queries the whole date range", func() {
			Expect(provider.Datetimes).To(Equal([]string{"2024-01-01T00:00:00Z/2024-01-31T23:59:59Z"}))
		})

		It("caches the result", func() {
			cached, ok := c.LastResult()
			Expect(ok).To(BeTrue())
			Expect(cached).To(Equal(result))
		})

		It("loads a scene without querying the catalog again", func() {
			artifact, err := c.LoadScene(ctx, 1, "True Color")
			Expect(err).NotTo(HaveOccurred())
			Expect(provider.Calls).To(Equal(1))
			Expect(artifact.BandCount).To(Equal(3))
			Expect(artifact.LayerName).To(Equal("S2_S2A_20_True Color (20.0% clouds)"))
			Expect(artifact.SourceURLs).To(Equal([]string{
				"/vsicurl/https://sentinel2l2a01.blob.core.windows.net/sentinel2-l2/S2A_20/B04.tif?sig=token",
				"/vsicurl/https://sentinel2l2a01.blob.core.windows.net/sentinel2-l2/S2A_20/B03.tif?sig=token",
				"/vsicurl/https://sentinel2l2a01.blob.core.windows.net/sentinel2-l2/S2A_20/B02.tif?sig=token",
			}))
			Expect(engine.Opts.Separate).To(BeTrue())
			Expect(filepath.Dir(artifact.OutputHandle)).To(Equal(workingDir))
			Expect(registrar.Layers).To(Equal([]string{artifact.LayerName}))
		})

		It("skips the missing bands", func() {
			artifact, err := c.LoadScene(ctx, 0, "True Color (B04, B03, B02)")
			Expect(err).NotTo(HaveOccurred())
			Expect(artifact.BandCount).To(Equal(2))
			Expect(engine.Inputs).To(HaveLen(2))
			Expect(engine.Inputs[0]).To(HaveSuffix("B04.tif?sig=token"))
			Expect(engine.Inputs[1]).To(HaveSuffix("B02.tif?sig=token"))
		})

		It("names the layer with the default cloud cover", func() {
			artifact, err := c.LoadScene(ctx, 2, "True Color")
			Expect(err).NotTo(HaveOccurred())
			Expect(artifact.LayerName).To(Equal("S2_S2A_missing_True Color (100.0% clouds)"))
		})

		It("fails on an index out of range", func() {
			_, err = c.LoadScene(ctx, 3, "True Color")
			var errSelection *catalog.ErrInvalidSelection
			Expect(errors.As(err, &errSelection)).To(BeTrue())
			_, err = c.LoadScene(ctx, -1, "True Color")
			Expect(errors.As(err, &errSelection)).To(BeTrue())
		})

		It("fails on an unknown composition", func() {
			_, err = c.LoadScene(ctx, 0, "Thermal")
			var errSelection *catalog.ErrInvalidSelection
			Expect(errors.As(err, &errSelection)).To(BeTrue())
			Expect(engine.Inputs).To(BeNil())
		})

		It("fails when no band of the composition is found", func() {
			_, err = c.LoadItem(ctx, s2Item("S2A_B01", 1, true, "B01"), "Geology")
			var errNoBands *catalog.ErrNoBandsResolved
			Expect(errors.As(err, &errNoBands)).To(BeTrue())
		})

		It("fails when the layer is not valid", func() {
			registrar.Invalid = true
			_, err = c.LoadScene(ctx, 0, "True Color")
			var errBuild *catalog.ErrCompositeBuild
			Expect(errors.As(err, &errBuild)).To(BeTrue())
		})

		It("persists the composite", func() {
			c.PersistURI = filepath.Join(workingDir, "persisted")
			artifact, err := c.LoadScene(ctx, 1, "True Color")
			Expect(err).NotTo(HaveOccurred())
			Expect(artifact.PersistedURI).To(Equal(filepath.Join(workingDir, "persisted", "S2_S2B_5_True_Color.vrt")))
			Expect(artifact.PersistedURI).To(BeAnExistingFile())
		})

		Context("when the next search fails", func() {
			BeforeEach(func() {
				provider.Err = errors.New("connection reset by peer")
				_, err = c.ListScenes(ctx, "", bbox, "2024-02-01", "2024-02-28")
			})

			It("returns a search error", func() {
				var errSearch *catalog.ErrSearch
				Expect(errors.As(err, &errSearch)).To(BeTrue())
				Expect(errSearch.Collection).To(Equal(catalog.CollectionSentinel2))
			})

			It("clears the session", func() {
				_, ok := c.LastResult()
				Expect(ok).To(BeFalse())
				_, err = c.LoadScene(ctx, 0, "True Color")
				var errSelection *catalog.ErrInvalidSelection
				Expect(errors.As(err, &errSelection)).To(BeTrue())
			})
		})
	})

	Describe("selecting an unknown satellite", func() {
		It("fails and unselects the satellite", func() {
			_, err = c.SelectSatellite("Sentinel-2")
			Expect(err).NotTo(HaveOccurred())
			_, err = c.SelectSatellite("MODIS")
			var errProfile *catalog.ErrProfileNotFound
			Expect(errors.As(err, &errProfile)).To(BeTrue())
			_, ok := c.Profile()
			Expect(ok).To(BeFalse())
		})
	})

	Describe("loading a scene before any search", func() {
		It("fails with an invalid selection", func() {
			_, err = c.LoadScene(ctx, 0, "True Color")
			var errSelection *catalog.ErrInvalidSelection
			Expect(errors.As(err, &errSelection)).To(BeTrue())
			Expect(provider.Calls).To(Equal(0))
		})
	})

	Describe("loading an item without cloud cover", func() {
		It("names the layer with the default cloud cover", func() {
			var item entities.CatalogItem
			Expect(json.Unmarshal([]byte(`{"id": "S2A_T01", "collection": "sentinel-2-l2a",
				"assets": {"B04": {"href": "https://sentinel2l2a01.blob.core.windows.net/sentinel2-l2/S2A_T01/B04.tif"}}}`), &item)).To(Succeed())
			artifact, err := c.LoadItem(ctx, item, "True Color")
			Expect(err).NotTo(HaveOccurred())
			Expect(artifact.LayerName).To(Equal("S2_S2A_T01_True Color (100.0% clouds)"))
		})
	})

	Describe("loading a Landsat item", func() {
		It("uses the Landsat band names", func() {
			item := entities.CatalogItem{
				ID:              "LC09_L2SP_192028_20240112",
				Collection:      catalog.CollectionLandsat,
				CloudCover:      3.14,
				CloudCoverKnown: true,
				Assets: map[string]entities.Asset{
					"red":   {Href: "https://landsateuwest.blob.core.windows.net/landsat-c2/red.tif"},
					"green": {Href: "https://landsateuwest.blob.core.windows.net/landsat-c2/green.tif"},
					"blue":  {Href: "https://landsateuwest.blob.core.windows.net/landsat-c2/blue.tif"},
				},
			}
			artifact, err := c.LoadItem(ctx, item, "True Color")
			Expect(err).NotTo(HaveOccurred())
			Expect(artifact.BandCount).To(Equal(3))
			Expect(artifact.LayerName).To(Equal("LS_LC09_L2SP_192028_20240112_True Color (3.1% clouds)"))
		})
	})
})
