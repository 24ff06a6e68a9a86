package record

import (
	"context"
	"fmt"
	"log/slog"
	"sort"

	"github.com/bmatcuk/doublestar/v4"
)

// Glob expands a doublestar pattern such as "data/**/*.json" into a sorted
// file list.
func Glob(pattern string) ([]string, error) {
	paths, err := doublestar.FilepathGlob(pattern, doublestar.WithFilesOnly())
	if err != nil {
		return nil, fmt.Errorf("expanding %q: %w", pattern, err)
	}
	sort.Strings(paths)
	return paths, nil
}

// ReadEvents reads and concatenates every event file matching pattern, in
// path order.
func (r *Registry) ReadEvents(ctx context.Context, pattern string) (*EventFeed, error) {
	paths, err := Glob(pattern)
	if err != nil {
		return nil, err
	}
	if len(paths) == 0 {
		return nil, fmt.Errorf("no event files match %q", pattern)
	}
	out := &EventFeed{}
	for _, p := range paths {
		er, err := r.Events(FormatOf(p))
		if err != nil {
			return nil, err
		}
		feed, err := er.ReadEvents(ctx, p)
		if err != nil {
			return nil, fmt.Errorf("reading %s: %w", p, err)
		}
		out.Events = append(out.Events, feed.Events...)
		out.Diagnostics.Merge(feed.Diagnostics)
	}
	slog.Info("record: events loaded", "files", len(paths), "events", len(out.Events),
		"skipped", len(out.Diagnostics.Skipped), "without_identity", out.Diagnostics.WithoutIdentity)
	return out, nil
}

// ReadTenures reads and concatenates every tenure file matching pattern.
func (r *Registry) ReadTenures(ctx context.Context, pattern string) (*TenureFeed, error) {
	paths, err := Glob(pattern)
	if err != nil {
		return nil, err
	}
	if len(paths) == 0 {
		return nil, fmt.Errorf("no tenure files match %q", pattern)
	}
	out := &TenureFeed{}
	for _, p := range paths {
		tr, err := r.Tenures(FormatOf(p))
		if err != nil {
			return nil, err
		}
		feed, err := tr.ReadTenures(ctx, p)
		if err != nil {
			return nil, fmt.Errorf("reading %s: %w", p, err)
		}
		out.Tenures = append(out.Tenures, feed.Tenures...)
		out.Diagnostics.Merge(feed.Diagnostics)
	}
	slog.Info("record: tenures loaded", "files", len(paths), "tenures", len(out.Tenures))
	return out, nil
}
