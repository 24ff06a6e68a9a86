package record

import (
	"context"
	"fmt"
	"path/filepath"
	"strings"

	"github.com/brunobiangulo/collabnet/network"
)

// EventFeed is the result of reading one event source.
type EventFeed struct {
	Events      []network.Event
	Diagnostics Diagnostics
}

// TenureFeed is the result of reading one editor-tenure source.
type TenureFeed struct {
	Tenures     []Tenure
	Diagnostics Diagnostics
}

// EventReader reads collaboration events from a file of a given format.
type EventReader interface {
	ReadEvents(ctx context.Context, path string) (*EventFeed, error)
	SupportedFormats() []string
}

// TenureReader reads editor tenures from a file of a given format.
type TenureReader interface {
	ReadTenures(ctx context.Context, path string) (*TenureFeed, error)
	SupportedFormats() []string
}

// Registry maps file formats to readers.
type Registry struct {
	events  map[string]EventReader
	tenures map[string]TenureReader
}

// NewRegistry returns a registry with the built-in readers.
func NewRegistry() *Registry {
	r := &Registry{
		events:  make(map[string]EventReader),
		tenures: make(map[string]TenureReader),
	}
	for _, er := range []EventReader{&JSONEventReader{}} {
		for _, f := range er.SupportedFormats() {
			r.events[f] = er
		}
	}
	for _, tr := range []TenureReader{&CSVTenureReader{}, &XLSXTenureReader{}} {
		for _, f := range tr.SupportedFormats() {
			r.tenures[f] = tr
		}
	}
	return r
}

// Events returns the event reader for format.
func (r *Registry) Events(format string) (EventReader, error) {
	er, ok := r.events[format]
	if !ok {
		return nil, fmt.Errorf("no event reader for format: %s", format)
	}
	return er, nil
}

// Tenures returns the tenure reader for format.
func (r *Registry) Tenures(format string) (TenureReader, error) {
	tr, ok := r.tenures[format]
	if !ok {
		return nil, fmt.Errorf("no tenure reader for format: %s", format)
	}
	return tr, nil
}

func (r *Registry) RegisterEvents(format string, er EventReader) { r.events[format] = er }

func (r *Registry) RegisterTenures(format string, tr TenureReader) { r.tenures[format] = tr }

// FormatOf derives the registry format from a file extension.
func FormatOf(path string) string {
	return strings.TrimPrefix(strings.ToLower(filepath.Ext(path)), ".")
}
