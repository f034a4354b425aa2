package gdal

import (
	"context"
	"fmt"

	"github.com/airbusgeo/godal"
	"go.uber.org/zap"

	"github.com/airbusgeo/stac-quickvrt/interface/raster"
	"github.com/airbusgeo/stac-quickvrt/service/log"
)

// Register registers the GDAL drivers. It must be called once before any other function of the package.
func Register() {
	godal.RegisterAll()
}

// errLogger returns a godal.ErrorHandler logging the warnings and returning the errors
func errLogger(ctx context.Context) godal.ErrorHandler {
	return func(ec godal.ErrorCategory, code int, msg string) error {
		if ec <= godal.CE_Warning {
			log.Logger(ctx).Debug("gdal", zap.Int("code", code), zap.String("msg", msg))
			return nil
		}
		return fmt.Errorf("GDAL error %d: %s", code, msg)
	}
}

// Engine implements raster.Engine with the GDAL library
type Engine struct{}

// BuildVRT implements raster.Engine
func (Engine) BuildVRT(ctx context.Context, inputs []string, opts raster.BuildOptions) (raster.Output, error) {
	if len(inputs) == 0 {
		return raster.Output{}, fmt.Errorf("BuildVRT: no input")
	}
	if opts.Output == "" {
		return raster.Output{}, fmt.Errorf("BuildVRT: no output")
	}
	if err := ctx.Err(); err != nil {
		return raster.Output{}, err
	}
	var switches []string
	if opts.Separate {
		switches = append(switches, "-separate")
	}

	ds, err := godal.BuildVRT(opts.Output, inputs, switches, godal.ErrLogger(errLogger(ctx)))
	if err != nil {
		return raster.Output{}, fmt.Errorf("BuildVRT: %w", err)
	}
	nbands := ds.Structure().NBands
	// Close flushes the VRT to opts.Output
	if err := ds.Close(); err != nil {
		return raster.Output{}, fmt.Errorf("BuildVRT.Close: %w", err)
	}
	return raster.Output{Handle: opts.Output, BandCount: nbands}, nil
}

// BandCount opens the raster handle and returns its number of bands
func BandCount(ctx context.Context, handle string) (int, error) {
	ds, err := godal.Open(handle, godal.ErrLogger(errLogger(ctx)))
	if err != nil {
		return 0, fmt.Errorf("BandCount: %w", err)
	}
	defer ds.Close()
	return ds.Structure().NBands, nil
}

// Transformer implements raster.Transformer with the OSR library
type Transformer struct{}

// Transform implements raster.Transformer
func (Transformer) Transform(ctx context.Context, srcCRS, dstCRS string, xs, ys []float64) error {
	if len(xs) != len(ys) {
		return fmt.Errorf("Transform: %d x for %d y", len(xs), len(ys))
	}
	src, err := godal.NewSpatialRef(srcCRS, godal.ErrLogger(errLogger(ctx)))
	if err != nil {
		return fmt.Errorf("Transform.NewSpatialRef(%s): %w", srcCRS, err)
	}
	defer src.Close()
	dst, err := godal.NewSpatialRef(dstCRS, godal.ErrLogger(errLogger(ctx)))
	if err != nil {
		return fmt.Errorf("Transform.NewSpatialRef(%s): %w", dstCRS, err)
	}
	defer dst.Close()

	tr, err := godal.NewTransform(src, dst, godal.ErrLogger(errLogger(ctx)))
	if err != nil {
		return fmt.Errorf("Transform.NewTransform: %w", err)
	}
	defer tr.Close()

	ok := make([]bool, len(xs))
	if err := tr.TransformEx(xs, ys, nil, ok); err != nil {
		return fmt.Errorf("Transform.TransformEx: %w", err)
	}
	for i := range ok {
		if !ok[i] {
			return fmt.Errorf("Transform: point %d cannot be transformed from %s to %s", i, srcCRS, dstCRS)
		}
	}
	return nil
}

// Registrar implements raster.Registrar by checking that the layer can be opened with GDAL
type Registrar struct{}

// Register implements raster.Registrar
func (Registrar) Register(ctx context.Context, handle, layerName string) (bool, error) {
	nbands, err := BandCount(ctx, handle)
	if err != nil {
		return false, fmt.Errorf("Register(%s).%w", layerName, err)
	}
	log.Logger(ctx).Info("layer registered", zap.String("layer", layerName), zap.String("handle", handle), zap.Int("bands", nbands))
	return nbands > 0, nil
}
