package main

import (
	"errors"
	"fmt"
)

// Sentinel errors returned by the planner. Callers inspect them with errors.Is.
var (
	// ErrLoad marks a malformed or empty building description.
	ErrLoad = errors.New("invalid building description")

	// ErrNoReachableNode is returned when a coordinate cannot be snapped onto
	// a walkable cell of its floor.
	ErrNoReachableNode = errors.New("no reachable node on floor")

	// ErrPathNotFound is returned by the planner when the search exhausts
	// the frontier without reaching the exit.
	ErrPathNotFound = errors.New("no safe path found")

	// ErrInvalidRequest marks malformed per-request input.
	ErrInvalidRequest = errors.New("invalid navigation request")

	// ErrNoExit is returned by an exit locator that knows no exit for a floor.
	ErrNoExit = errors.New("no exit on floor")
)

// LoadError reports which part of a building description is unusable.
type LoadError struct {
	Field string
	Err   error
}

func (e *LoadError) Error() string {
	if e.Err != nil {
		return fmt.Sprintf("load building: %s: %v", e.Field, e.Err)
	}
	return fmt.Sprintf("load building: %s", e.Field)
}

func (e *LoadError) Unwrap() []error {
	if e.Err != nil {
		return []error{ErrLoad, e.Err}
	}
	return []error{ErrLoad}
}

func loadErrorf(field, format string, args ...any) *LoadError {
	return &LoadError{Field: field, Err: fmt.Errorf(format, args...)}
}
