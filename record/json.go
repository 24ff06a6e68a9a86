package record

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"log/slog"
	"os"
	"path/filepath"
)

// JSONEventReader reads acknowledgement records stored either as a bare
// JSON array or wrapped in {"data": [...]}.
type JSONEventReader struct{}

func (p *JSONEventReader) SupportedFormats() []string { return []string{"json"} }

func (p *JSONEventReader) ReadEvents(ctx context.Context, path string) (*EventFeed, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("opening event feed: %w", err)
	}
	defer f.Close()
	return DecodeEvents(ctx, filepath.Base(path), f)
}

// DecodeEvents decodes a JSON event feed from r. source names the feed in
// diagnostics. Malformed records are skipped; a feed that is not JSON at
// all is an error.
func DecodeEvents(ctx context.Context, source string, r io.Reader) (*EventFeed, error) {
	body, err := io.ReadAll(r)
	if err != nil {
		return nil, fmt.Errorf("reading event feed: %w", err)
	}
	items, err := splitRecords(body)
	if err != nil {
		return nil, fmt.Errorf("decoding event feed %s: %w", source, err)
	}

	feed := &EventFeed{}
	for i, raw := range items {
		if i%1000 == 0 {
			if err := ctx.Err(); err != nil {
				return nil, err
			}
		}
		feed.Diagnostics.Read++

		var rec RawRecord
		if err := json.Unmarshal(raw, &rec); err != nil {
			feed.Diagnostics.skip(&UpstreamError{Source: source, Index: i, Reason: err.Error()})
			continue
		}
		ev, noID, err := Normalize(rec)
		if err != nil {
			feed.Diagnostics.skip(&UpstreamError{Source: source, Index: i, Reason: err.Error()})
			continue
		}
		feed.Diagnostics.WithoutIdentity += noID
		feed.Diagnostics.Kept++
		feed.Events = append(feed.Events, ev)
	}

	if n := len(feed.Diagnostics.Skipped); n > 0 {
		slog.Warn("record: skipped malformed records", "source", source, "skipped", n, "read", feed.Diagnostics.Read)
	}
	slog.Debug("record: event feed decoded", "source", source,
		"events", len(feed.Events), "without_identity", feed.Diagnostics.WithoutIdentity)
	return feed, nil
}

func splitRecords(body []byte) ([]json.RawMessage, error) {
	body = bytes.TrimSpace(body)
	if len(body) == 0 {
		return nil, nil
	}
	if body[0] == '[' {
		var items []json.RawMessage
		if err := json.Unmarshal(body, &items); err != nil {
			return nil, err
		}
		return items, nil
	}
	var wrapped struct {
		Data []json.RawMessage `json:"data"`
	}
	if err := json.Unmarshal(body, &wrapped); err != nil {
		return nil, err
	}
	return wrapped.Data, nil
}
