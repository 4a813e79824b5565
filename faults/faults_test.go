// Copyright 2025 The ChapaUY Authors
// SPDX-License-Identifier: Apache-2.0

package faults

import (
	"errors"
	"fmt"
	"net/http"
	"testing"
)

type errorCheckTestCase struct {
	name string
	err  error
	want bool
}

func runErrorCheckTest(t *testing.T, tests []errorCheckTestCase, checkFunc func(error) bool) {
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := checkFunc(tt.err); got != tt.want {
				t.Errorf("checkFunc() = %v, want %v", got, tt.want)
			}
		})
	}
}

func TestIsNotFound(t *testing.T) {
	tests := []errorCheckTestCase{
		{
			name: "not found kind",
			err:  NotFound("no point with id %q", "a"),
			want: true,
		},
		{
			name: "wrapped not found",
			err:  fmt.Errorf("removing point: %w", NotFound("missing")),
			want: true,
		},
		{
			name: "other kind",
			err:  InvalidArgument("bad"),
			want: false,
		},
		{
			name: "unrelated error",
			err:  errors.New("not found"),
			want: false,
		},
	}

	runErrorCheckTest(t, tests, IsNotFound)
}

func TestIsInvalidArgument(t *testing.T) {
	tests := []errorCheckTestCase{
		{
			name: "invalid argument kind",
			err:  InvalidArgument("empty id"),
			want: true,
		},
		{
			name: "terminated",
			err:  ErrMaintenanceTerminated,
			want: false,
		},
	}

	runErrorCheckTest(t, tests, IsInvalidArgument)
}

func TestErrorsIsMatchesKind(t *testing.T) {
	err := fmt.Errorf("clustering: %w", New(KindNoMicroClusters, "map is empty"))

	if !errors.Is(err, ErrNoMicroClusters) {
		t.Errorf("errors.Is(%v, ErrNoMicroClusters) = false, want true", err)
	}

	if errors.Is(err, ErrEmptyInput) {
		t.Errorf("errors.Is(%v, ErrEmptyInput) = true, want false", err)
	}
}

func TestErrorMessage(t *testing.T) {
	inner := errors.New("boom")
	err := &Error{Kind: KindInvalidArgument, Message: "dividing point", Err: inner}

	if got, want := err.Error(), "dividing point: boom"; got != want {
		t.Errorf("Error() = %q, want %q", got, want)
	}

	if !errors.Is(err, inner) {
		t.Error("expected Unwrap to expose the inner error")
	}
}

func TestHTTPStatus(t *testing.T) {
	tests := []struct {
		name string
		err  error
		want int
	}{
		{"invalid argument", InvalidArgument("x"), http.StatusBadRequest},
		{"not found", NotFound("x"), http.StatusNotFound},
		{"no micro-clusters", ErrNoMicroClusters, http.StatusUnprocessableEntity},
		{"empty input", ErrEmptyInput, http.StatusUnprocessableEntity},
		{"terminated", ErrMaintenanceTerminated, http.StatusConflict},
		{"unknown", errors.New("x"), http.StatusInternalServerError},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := HTTPStatus(tt.err); got != tt.want {
				t.Errorf("HTTPStatus() = %d, want %d", got, tt.want)
			}
		})
	}
}

func TestKindString(t *testing.T) {
	if got := KindNotFound.String(); got != "not found" {
		t.Errorf("String() = %q", got)
	}

	if got := Kind(99).String(); got != "kind(99)" {
		t.Errorf("String() = %q", got)
	}
}
