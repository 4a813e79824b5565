// Copyright 2025 The ChapaUY Authors
// SPDX-License-Identifier: Apache-2.0

// Package faults defines the error value shared by the clustering packages.
package faults

import (
	"errors"
	"fmt"
	"net/http"
)

// Kind classifies a clustering error.
type Kind int

const (
	// KindUnknown unclassified error.
	KindUnknown Kind = iota
	// KindInvalidArgument bad input: empty identity, mismatched shapes, bad parameters.
	KindInvalidArgument
	// KindNotFound no merged point carries the requested identity.
	KindNotFound
	// KindNoMicroClusters the cluster map holds no micro-clusters.
	KindNoMicroClusters
	// KindEmptyInput the density clusterer received no items.
	KindEmptyInput
	// KindMaintenanceTerminated the engine was terminated.
	KindMaintenanceTerminated
)

var kindNames = map[Kind]string{
	KindUnknown:               "unknown",
	KindInvalidArgument:       "invalid argument",
	KindNotFound:              "not found",
	KindNoMicroClusters:       "no micro-clusters",
	KindEmptyInput:            "empty input",
	KindMaintenanceTerminated: "maintenance terminated",
}

func (k Kind) String() string {
	if name, ok := kindNames[k]; ok {
		return name
	}

	return fmt.Sprintf("kind(%d)", int(k))
}

// Error is a classified error.
type Error struct {
	Kind    Kind
	Message string
	Err     error
}

// Sentinels usable with errors.Is. Matching is done on Kind only.
var (
	ErrInvalidArgument       = &Error{Kind: KindInvalidArgument, Message: "invalid argument"}
	ErrNotFound              = &Error{Kind: KindNotFound, Message: "not found"}
	ErrNoMicroClusters       = &Error{Kind: KindNoMicroClusters, Message: "no micro-clusters available"}
	ErrEmptyInput            = &Error{Kind: KindEmptyInput, Message: "empty input"}
	ErrMaintenanceTerminated = &Error{Kind: KindMaintenanceTerminated, Message: "cluster maintenance terminated"}
)

func (e *Error) Error() string {
	if e.Err != nil {
		return fmt.Sprintf("%s: %v", e.Message, e.Err)
	}

	return e.Message
}

func (e *Error) Unwrap() error {
	return e.Err
}

// Is reports whether target is an *Error of the same Kind.
func (e *Error) Is(target error) bool {
	var t *Error
	if !errors.As(target, &t) {
		return false
	}

	return t.Kind == e.Kind
}

// New returns an error of the given kind with a formatted message.
func New(kind Kind, format string, args ...any) *Error {
	return &Error{Kind: kind, Message: fmt.Sprintf(format, args...)}
}

// InvalidArgument returns a KindInvalidArgument error.
func InvalidArgument(format string, args ...any) *Error {
	return New(KindInvalidArgument, format, args...)
}

// NotFound returns a KindNotFound error.
func NotFound(format string, args ...any) *Error {
	return New(KindNotFound, format, args...)
}

// KindOf returns the kind of the first *Error in err's chain.
func KindOf(err error) Kind {
	var e *Error
	if errors.As(err, &e) {
		return e.Kind
	}

	return KindUnknown
}

// IsInvalidArgument reports whether err is an invalid argument error.
func IsInvalidArgument(err error) bool {
	return KindOf(err) == KindInvalidArgument
}

// IsNotFound reports whether err is a not found error.
func IsNotFound(err error) bool {
	return KindOf(err) == KindNotFound
}

// IsMaintenanceTerminated reports whether err comes from a terminated engine.
func IsMaintenanceTerminated(err error) bool {
	return KindOf(err) == KindMaintenanceTerminated
}

// HTTPStatus maps an error to the status code the API answers with.
func HTTPStatus(err error) int {
	switch KindOf(err) {
	case KindInvalidArgument:
		return http.StatusBadRequest
	case KindNotFound:
		return http.StatusNotFound
	case KindNoMicroClusters, KindEmptyInput:
		return http.StatusUnprocessableEntity
	case KindMaintenanceTerminated:
		return http.StatusConflict
	default:
		return http.StatusInternalServerError
	}
}
