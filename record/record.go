// Package record reads raw collaboration feeds and editor tenures and turns
// them into canonical network events.
package record

import (
	"bytes"
	"encoding/json"
	"errors"
	"fmt"
	"strconv"
	"strings"

	"github.com/brunobiangulo/collabnet/network"
)

// ErrUpstreamData marks malformed feed records. Such records are skipped and
// counted; the error never aborts a read.
var ErrUpstreamData = errors.New("record: malformed upstream data")

// UpstreamError describes one skipped record.
type UpstreamError struct {
	Source string
	Index  int
	Reason string
}

func (e *UpstreamError) Error() string {
	return fmt.Sprintf("record: %s[%d]: %s", e.Source, e.Index, e.Reason)
}

func (e *UpstreamError) Is(target error) bool { return target == ErrUpstreamData }

// Skip is a diagnostic entry for a dropped record.
type Skip struct {
	Source string `json:"source"`
	Index  int    `json:"index"`
	Reason string `json:"reason"`
}

// Diagnostics summarise what a read kept and what it dropped.
type Diagnostics struct {
	Read            int    `json:"read"`
	Kept            int    `json:"kept"`
	Skipped         []Skip `json:"skipped,omitempty"`
	WithoutIdentity int    `json:"without_identity"`
}

// Merge folds o into d.
func (d *Diagnostics) Merge(o Diagnostics) {
	d.Read += o.Read
	d.Kept += o.Kept
	d.Skipped = append(d.Skipped, o.Skipped...)
	d.WithoutIdentity += o.WithoutIdentity
}

func (d *Diagnostics) skip(err error) {
	var ue *UpstreamError
	if errors.As(err, &ue) {
		d.Skipped = append(d.Skipped, Skip{Source: ue.Source, Index: ue.Index, Reason: ue.Reason})
		return
	}
	d.Skipped = append(d.Skipped, Skip{Reason: err.Error()})
}

// ScopusID holds an upstream identifier that may arrive as a JSON number or
// a JSON string.
type ScopusID string

func (s *ScopusID) UnmarshalJSON(b []byte) error {
	b = bytes.TrimSpace(b)
	if bytes.Equal(b, []byte("null")) {
		*s = ""
		return nil
	}
	if len(b) > 0 && b[0] == '"' {
		var str string
		if err := json.Unmarshal(b, &str); err != nil {
			return err
		}
		*s = ScopusID(strings.TrimSpace(str))
		return nil
	}
	var n json.Number
	if err := json.Unmarshal(b, &n); err != nil {
		return err
	}
	*s = ScopusID(n.String())
	return nil
}

// RawPerson is a person entry of an acknowledgement record.
type RawPerson struct {
	Label    string      `json:"label"`
	ScopusID *ScopusID   `json:"scopus_id,omitempty"`
	PhD      []RawPerson `json:"phd,omitempty"`
}

// RawRecord is one acknowledgement record as published upstream.
type RawRecord struct {
	Year    json.RawMessage `json:"year"`
	Journal string          `json:"journal"`
	Title   string          `json:"title,omitempty"`
	Authors []RawPerson     `json:"authors"`
	Com     []RawPerson     `json:"com,omitempty"`
	Dis     []RawPerson     `json:"dis,omitempty"`
	Sem     json.RawMessage `json:"sem,omitempty"`
	Con     json.RawMessage `json:"con,omitempty"`
}

// identity resolves a person to a PersonID. ok is false when the person has
// neither a scopus id nor a label.
func identity(p RawPerson) (network.PersonID, bool, error) {
	if p.ScopusID != nil && *p.ScopusID != "" {
		id, err := canonicalID(string(*p.ScopusID))
		if err != nil {
			return "", false, err
		}
		return id, true, nil
	}
	label := strings.TrimSpace(p.Label)
	if label == "" {
		return "", false, nil
	}
	return network.PersonID(label), true, nil
}

// canonicalID accepts integer ids, including integral floats such as
// "12345.0" written by spreadsheet tools.
func canonicalID(s string) (network.PersonID, error) {
	s = strings.TrimSpace(s)
	if n, err := strconv.ParseUint(s, 10, 64); err == nil {
		return network.PersonID(strconv.FormatUint(n, 10)), nil
	}
	f, err := strconv.ParseFloat(s, 64)
	if err != nil || f < 0 || f != float64(uint64(f)) {
		return "", fmt.Errorf("non-numeric scopus_id %q", s)
	}
	return network.PersonID(strconv.FormatUint(uint64(f), 10)), nil
}

// presenceCount interprets a sem/con field: absent means (false, 0), a list
// counts its elements, a number is taken as is.
func presenceCount(raw json.RawMessage) (bool, int, error) {
	raw = bytes.TrimSpace(raw)
	if len(raw) == 0 {
		return false, 0, nil
	}
	if bytes.Equal(raw, []byte("null")) {
		return true, 0, nil
	}
	switch raw[0] {
	case '[':
		var xs []json.RawMessage
		if err := json.Unmarshal(raw, &xs); err != nil {
			return false, 0, err
		}
		return true, len(xs), nil
	default:
		var n json.Number
		if err := json.Unmarshal(raw, &n); err != nil {
			return false, 0, err
		}
		v, err := n.Int64()
		if err != nil {
			return false, 0, err
		}
		return true, int(v), nil
	}
}

func parseYear(raw json.RawMessage) (int, error) {
	raw = bytes.TrimSpace(raw)
	if len(raw) == 0 || bytes.Equal(raw, []byte("null")) {
		return 0, errors.New("missing year")
	}
	if raw[0] == '"' {
		var s string
		if err := json.Unmarshal(raw, &s); err != nil {
			return 0, err
		}
		y, err := strconv.Atoi(strings.TrimSpace(s))
		if err != nil {
			return 0, fmt.Errorf("non-integer year %q", s)
		}
		return y, nil
	}
	var n json.Number
	if err := json.Unmarshal(raw, &n); err != nil {
		return 0, err
	}
	y, err := n.Int64()
	if err != nil {
		return 0, fmt.Errorf("non-integer year %s", n)
	}
	return int(y), nil
}

// Normalize converts a raw record into an event. noID counts persons that
// were dropped for lacking any identity. Commenters are com, then dis, then
// the thesis advisors of every author, deduplicated in that order.
func Normalize(r RawRecord) (ev network.Event, noID int, err error) {
	year, err := parseYear(r.Year)
	if err != nil {
		return network.Event{}, 0, err
	}
	journal := strings.TrimSpace(r.Journal)
	if journal == "" {
		return network.Event{}, 0, errors.New("missing journal")
	}
	ev = network.Event{Year: year, Journal: journal, Title: r.Title}

	resolve := func(ps []RawPerson, seen map[network.PersonID]bool, out *[]network.PersonID) error {
		for _, p := range ps {
			id, ok, err := identity(p)
			if err != nil {
				return err
			}
			if !ok {
				noID++
				continue
			}
			if seen[id] {
				continue
			}
			seen[id] = true
			*out = append(*out, id)
		}
		return nil
	}

	if err := resolve(r.Authors, map[network.PersonID]bool{}, &ev.Authors); err != nil {
		return network.Event{}, 0, err
	}
	var advisors []RawPerson
	for _, a := range r.Authors {
		advisors = append(advisors, a.PhD...)
	}
	seen := map[network.PersonID]bool{}
	if err := resolve(r.Com, seen, &ev.Commenters); err != nil {
		return network.Event{}, 0, err
	}
	if err := resolve(r.Dis, map[network.PersonID]bool{}, &ev.Discussants); err != nil {
		return network.Event{}, 0, err
	}
	for _, d := range ev.Discussants {
		if !seen[d] {
			seen[d] = true
			ev.Commenters = append(ev.Commenters, d)
		}
	}
	if err := resolve(advisors, seen, &ev.Commenters); err != nil {
		return network.Event{}, 0, err
	}

	if ev.HasSeminar, ev.Seminars, err = presenceCount(r.Sem); err != nil {
		return network.Event{}, 0, fmt.Errorf("sem: %w", err)
	}
	if ev.HasConference, ev.Conferences, err = presenceCount(r.Con); err != nil {
		return network.Event{}, 0, fmt.Errorf("con: %w", err)
	}
	return ev, noID, nil
}
