package raster

import (
	"context"
)

// BuildOptions are the options of a virtual raster build
type BuildOptions struct {
	// Separate puts each input in its own band instead of mosaicking them
	Separate bool
	// Output is the path of the virtual raster
	Output string
}

// Output is the result of a build
type Output struct {
	Handle    string
	BandCount int
}

// Engine builds virtual rasters
type Engine interface {
	// BuildVRT stacks the inputs into a virtual raster.
	// With opts.Separate, the order of the bands is the order of the inputs.
	BuildVRT(ctx context.Context, inputs []string, opts BuildOptions) (Output, error)
}

// Transformer transforms coordinates between two CRS
type Transformer interface {
	// Transform transforms the points (xs[i], ys[i]) in place
	Transform(ctx context.Context, srcCRS, dstCRS string, xs, ys []float64) error
}

// Registrar registers an output in the display layer
type Registrar interface {
	// Register returns whether the output is a valid layer
	Register(ctx context.Context, handle, layerName string) (bool, error)
}
