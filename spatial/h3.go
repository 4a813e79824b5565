// Copyright 2025 The ChapaUY Authors
// SPDX-License-Identifier: Apache-2.0

package spatial

import (
	"fmt"

	"github.com/uber/h3-go/v4"
)

// DefaultCellResolution is the H3 resolution used to label cluster
// centroids. Resolution 8 cells are roughly 0.7 km².
const DefaultCellResolution = 8

// Cell returns the H3 cell containing p at the given resolution.
func Cell(p Point, res int) (h3.Cell, error) {
	cell, err := h3.LatLngToCell(h3.NewLatLng(p.Lat, p.Lng), res)
	if err != nil {
		return 0, fmt.Errorf("error converting to h3 cell at res %d: %w", res, err)
	}

	return cell, nil
}

// CellString returns the hexadecimal H3 index of p, or "" when p cannot
// be indexed.
func CellString(p Point, res int) string {
	cell, err := Cell(p, res)
	if err != nil {
		return ""
	}

	return cell.String()
}
