// Copyright 2025 The ChapaUY Authors
// SPDX-License-Identifier: Apache-2.0

package refine

import (
	"regexp"
	"strings"
	"unicode"

	"golang.org/x/text/runes"
	"golang.org/x/text/transform"
	"golang.org/x/text/unicode/norm"
	"gonum.org/v1/gonum/floats"
)

var nonAlphanumericRegex = regexp.MustCompile(`[^a-z0-9\s]+`)

// Normalize lowercases s, strips accents and drops everything that is not
// a letter, a digit or a space.
func Normalize(s string) string {
	s, _, _ = transform.String(
		transform.Chain(
			norm.NFD,
			runes.Remove(runes.In(unicode.Mn)),
			norm.NFC,
		),
		strings.TrimSpace(strings.ToLower(s)),
	)

	return nonAlphanumericRegex.ReplaceAllString(s, " ")
}

// bag is a word frequency vector.
type bag map[string]int

func vectorize(text string) bag {
	words := strings.Fields(Normalize(text))
	v := make(bag, len(words))

	for _, w := range words {
		v[w]++
	}

	return v
}

// cosine returns the cosine similarity of two bags, 0 when either is empty.
func cosine(a, b bag) float64 {
	if len(a) == 0 || len(b) == 0 {
		return 0
	}

	u := make([]float64, 0, len(a)+len(b))
	v := make([]float64, 0, len(a)+len(b))

	for k, n := range a {
		u = append(u, float64(n))
		v = append(v, float64(b[k]))
	}

	for k, n := range b {
		if _, ok := a[k]; !ok {
			u = append(u, 0)
			v = append(v, float64(n))
		}
	}

	return floats.Dot(u, v) / (floats.Norm(u, 2) * floats.Norm(v, 2))
}
