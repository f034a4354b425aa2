package catalog_test

import (
	"context"
	"fmt"
	"os"
	"strings"
	"sync"
	"testing"

	. "github.com/onsi/ginkgo"
	. "github.com/onsi/gomega"

	"github.com/airbusgeo/stac-quickvrt/catalog/entities"
	"github.com/airbusgeo/stac-quickvrt/interface/raster"
)

// MokeProvider implements ItemsProvider
type MokeProvider struct {
	mu        sync.Mutex
	Items     []entities.CatalogItem
	Err       error
	Calls     int
	Datetimes []string
}

// SearchItems implements ItemsProvider
func (p *MokeProvider) SearchItems(ctx context.Context, collectionID string, bbox entities.BoundingBox, datetime string) ([]entities.CatalogItem, error) {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.Calls++
	p.Datetimes = append(p.Datetimes, datetime)
	if p.Err != nil {
		return nil, p.Err
	}
	items := make([]entities.CatalogItem, len(p.Items))
	copy(items, p.Items)
	return items, nil
}

// MokeSigner implements AssetSigner
type MokeSigner struct {
	Err error
	// Cancel is called after the first signature
	Cancel func()
	Calls  int
}

// Sign implements AssetSigner
func (s *MokeSigner) Sign(ctx context.Context, href string) (string, error) {
	s.Calls++
	if s.Cancel != nil {
		s.Cancel()
	}
	if s.Err != nil {
		return "", s.Err
	}
	if strings.Contains(href, "sig=") {
		return href, nil
	}
	return href + "?sig=token", nil
}

// MokeEngine implements raster.Engine
type MokeEngine struct {
	Err       error
	BandCount int
	Inputs    []string
	Opts      raster.BuildOptions
}

// BuildVRT implements raster.Engine
func (e *MokeEngine) BuildVRT(ctx context.Context, inputs []string, opts raster.BuildOptions) (raster.Output, error) {
	e.Inputs = inputs
	e.Opts = opts
	if e.Err != nil {
		return raster.Output{}, e.Err
	}
	nb := len(inputs)
	if e.BandCount != 0 {
		nb = e.BandCount
	}
	if nb < 0 {
		nb = 0
	}
	if err := os.WriteFile(opts.Output, []byte(fmt.Sprintf("<VRTDataset bands=\"%d\"/>", nb)), 0644); err != nil {
		return raster.Output{}, err
	}
	return raster.Output{Handle: opts.Output, BandCount: nb}, nil
}

// MokeTransformer implements raster.Transformer with a translation
type MokeTransformer struct {
	DX, DY float64
	// Invert swaps the points
	Invert bool
	Err    error
	Calls  int
}

// Transform implements raster.Transformer
func (t *MokeTransformer) Transform(ctx context.Context, srcCRS, dstCRS string, xs, ys []float64) error {
	t.Calls++
	if t.Err != nil {
		return t.Err
	}
	for i := range xs {
		xs[i] += t.DX
		ys[i] += t.DY
	}
	if t.Invert {
		xs[0], xs[1] = xs[1], xs[0]
	}
	return nil
}

// MokeRegistrar implements raster.Registrar
type MokeRegistrar struct {
	Invalid bool
	Err     error
	Layers  []string
}

// Register implements raster.Registrar
func (r *MokeRegistrar) Register(ctx context.Context, handle, layerName string) (bool, error) {
	if r.Err != nil {
		return false, r.Err
	}
	r.Layers = append(r.Layers, layerName)
	return !r.Invalid, nil
}

func TestCatalog(t *testing.T) {
	RegisterFailHandler(Fail)
	RunSpecs(t, "Catalog Suite")
}
