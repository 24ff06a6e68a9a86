package collabnet

import (
	"errors"

	"github.com/brunobiangulo/collabnet/centrality"
	"github.com/brunobiangulo/collabnet/network"
	"github.com/brunobiangulo/collabnet/record"
	"github.com/brunobiangulo/collabnet/store"
)

var (
	// ErrInvalidConfig is returned when a configuration fails validation.
	ErrInvalidConfig = errors.New("collabnet: invalid configuration")

	// ErrNoEvents is returned when the event feed yields nothing to build from.
	ErrNoEvents = errors.New("collabnet: no events")

	// ErrDataIntegrity marks a violated snapshot invariant. Fatal.
	ErrDataIntegrity = network.ErrDataIntegrity

	// ErrUpstreamData marks a malformed feed record. Such records are
	// skipped and reported in the run diagnostics.
	ErrUpstreamData = record.ErrUpstreamData

	// ErrDegenerateGraph marks a snapshot whose measures are undefined.
	// It only appears as a warning.
	ErrDegenerateGraph = centrality.ErrDegenerateGraph

	// ErrRunNotFound is returned for unknown run ids.
	ErrRunNotFound = store.ErrRunNotFound

	// ErrSnapshotNotFound is returned when a run has no snapshot for a key.
	ErrSnapshotNotFound = store.ErrSnapshotNotFound
)
