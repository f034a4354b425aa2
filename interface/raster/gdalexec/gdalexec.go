package gdalexec

import (
	"context"
	"fmt"
	"os/exec"

	"go.uber.org/zap/zapcore"

	"github.com/airbusgeo/stac-quickvrt/interface/raster"
	"github.com/airbusgeo/stac-quickvrt/interface/raster/gdal"
	"github.com/airbusgeo/stac-quickvrt/service/log"
)

// DefaultCommand is the gdalbuildvrt binary looked up in the PATH
const DefaultCommand = "gdalbuildvrt"

// Engine implements raster.Engine with the gdalbuildvrt command line utility,
// for GDAL installations whose library cannot be linked.
type Engine struct {
	Command string
}

// Available returns an error if the command is not found
func (e Engine) Available() error {
	if _, err := exec.LookPath(e.command()); err != nil {
		return fmt.Errorf("gdalexec: %w", err)
	}
	return nil
}

func (e Engine) command() string {
	if e.Command == "" {
		return DefaultCommand
	}
	return e.Command
}

// Args returns the arguments of the command
func Args(inputs []string, opts raster.BuildOptions) []string {
	args := []string{"-q", "-overwrite"}
	if opts.Separate {
		args = append(args, "-separate")
	}
	args = append(args, opts.Output)
	return append(args, inputs...)
}

// BuildVRT implements raster.Engine
func (e Engine) BuildVRT(ctx context.Context, inputs []string, opts raster.BuildOptions) (raster.Output, error) {
	if len(inputs) == 0 {
		return raster.Output{}, fmt.Errorf("BuildVRT: no input")
	}
	if opts.Output == "" {
		return raster.Output{}, fmt.Errorf("BuildVRT: no output")
	}
	cmd := exec.Command(e.command(), Args(inputs, opts)...)
	if err := log.Exec(ctx, cmd, log.StdoutLevel(zapcore.DebugLevel), log.StdoutFilter(log.GDALFilter), log.StderrFilter(log.GDALFilter)); err != nil {
		return raster.Output{}, fmt.Errorf("BuildVRT.%s: %w", e.command(), err)
	}
	nbands, err := gdal.BandCount(ctx, opts.Output)
	if err != nil {
		return raster.Output{}, fmt.Errorf("BuildVRT.%w", err)
	}
	return raster.Output{Handle: opts.Output, BandCount: nbands}, nil
}
