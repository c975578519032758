// SPDX-License-Identifier: Apache-2.0
// Copyright 2026 Authcore Contributors

package apierror

import (
	"context"
	"slices"
)

type contextKey int

const (
	pathKey contextKey = iota
	locationsKey
)

// WithPath records the response path of the field being resolved so that
// errors raised below it carry it.
func WithPath(ctx context.Context, path ...string) context.Context {
	return context.WithValue(ctx, pathKey, slices.Clone(path))
}

// PathFrom returns the path set by WithPath.
func PathFrom(ctx context.Context) []string {
	path, _ := ctx.Value(pathKey).([]string)
	return path
}

// WithLocations records request document locations.
func WithLocations(ctx context.Context, locs ...Location) context.Context {
	return context.WithValue(ctx, locationsKey, slices.Clone(locs))
}

// LocationsFrom returns the locations set by WithLocations.
func LocationsFrom(ctx context.Context) []Location {
	locs, _ := ctx.Value(locationsKey).([]Location)
	return locs
}
