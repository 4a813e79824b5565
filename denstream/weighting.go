// Copyright 2025 The ChapaUY Authors
// SPDX-License-Identifier: Apache-2.0

package denstream

import (
	"math"
	"time"
)

// Weighting gives the weight of a point inside a micro-cluster. Centers and
// radii are weighted means, so a constant weighting yields plain means.
type Weighting[T any] func(p T) float64

// Uniform weighs every point 1.
func Uniform[T any]() Weighting[T] {
	return func(T) float64 { return 1 }
}

// Fading weighs a point 2^(-lambda*age), age in seconds measured against
// now. Points without a timestamp, or stamped in the future, weigh 1.
func Fading[T Timestamped](lambda float64, now func() time.Time) Weighting[T] {
	if now == nil {
		now = time.Now
	}

	return func(p T) float64 {
		ts := p.Timestamp()
		if ts.IsZero() {
			return 1
		}

		age := now().Sub(ts).Seconds()
		if age <= 0 {
			return 1
		}

		return math.Pow(2, -lambda*age)
	}
}
