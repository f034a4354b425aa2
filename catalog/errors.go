package catalog

import (
	"fmt"
	"strings"
)

// ErrProjection is returned when the canvas extent cannot be transformed to a bounding box
type ErrProjection struct {
	SourceCRS, DestCRS string
	Err                error
}

func (e *ErrProjection) Error() string {
	return fmt.Sprintf("unable to project the extent from %s to %s: %v", e.SourceCRS, e.DestCRS, e.Err)
}

func (e *ErrProjection) Unwrap() error { return e.Err }

// ErrSearch is returned when the catalog cannot be queried
type ErrSearch struct {
	Collection string
	Msg        string
	Err        error
}

func (e *ErrSearch) Error() string {
	if e.Err == nil {
		return fmt.Sprintf("search in %s failed: %s", e.Collection, e.Msg)
	}
	return fmt.Sprintf("search in %s failed: %s: %v", e.Collection, e.Msg, e.Err)
}

func (e *ErrSearch) Unwrap() error { return e.Err }

// ErrNoBandsResolved is returned when none of the requested bands is an asset of the item
type ErrNoBandsResolved struct {
	ItemID string
	Bands  []string
}

func (e *ErrNoBandsResolved) Error() string {
	return fmt.Sprintf("no band of [%s] found in the assets of %s", strings.Join(e.Bands, ", "), e.ItemID)
}

// ErrSigning is returned when the href of an asset cannot be signed
type ErrSigning struct {
	ItemID, Band, Href string
	Err                error
}

func (e *ErrSigning) Error() string {
	return fmt.Sprintf("unable to sign band %s of %s (%s): %v", e.Band, e.ItemID, e.Href, e.Err)
}

func (e *ErrSigning) Unwrap() error { return e.Err }

// ErrInsufficientBands is returned when a composite is requested without any band
type ErrInsufficientBands struct {
	Layer string
}

func (e *ErrInsufficientBands) Error() string {
	return fmt.Sprintf("unable to build %s: at least one band is required", e.Layer)
}

// ErrCompositeBuild is returned when the raster engine fails or its output is not valid
type ErrCompositeBuild struct {
	Layer string
	Err   error
}

func (e *ErrCompositeBuild) Error() string {
	return fmt.Sprintf("unable to build %s: %v", e.Layer, e.Err)
}

func (e *ErrCompositeBuild) Unwrap() error { return e.Err }

// ErrProfileNotFound is returned for an unsupported satellite
type ErrProfileNotFound struct {
	Label string
}

func (e *ErrProfileNotFound) Error() string {
	return fmt.Sprintf("unknown satellite: %s (supported: %s)", e.Label, strings.Join(Labels(), ", "))
}

// ErrInvalidSelection is returned when the selected scene or composition does not exist
type ErrInvalidSelection struct {
	Msg string
}

func (e *ErrInvalidSelection) Error() string {
	return "invalid selection: " + e.Msg
}

// ErrNotConfigured is returned when some integrations are missing
type ErrNotConfigured struct {
	Integrations []string
}

func (e *ErrNotConfigured) Error() string {
	return fmt.Sprintf("missing integrations: %s", strings.Join(e.Integrations, ", "))
}
