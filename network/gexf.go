package network

import (
	"encoding/xml"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strconv"
	"strings"

	"github.com/klauspost/compress/gzip"
)

const gexfNamespace = "http://www.gexf.net/1.2draft"

// journalSep joins journal labels inside the GEXF journal attribute.
// Separators and backslashes inside a label are escaped with a backslash.
const journalSep = ';'

func joinJournals(js []string) string {
	var b strings.Builder
	for i, j := range js {
		if i > 0 {
			b.WriteByte(journalSep)
		}
		for _, r := range j {
			if r == journalSep || r == '\\' {
				b.WriteByte('\\')
			}
			b.WriteRune(r)
		}
	}
	return b.String()
}

func splitJournals(s string) []string {
	var out []string
	var cur strings.Builder
	escaped := false
	for _, r := range s {
		switch {
		case escaped:
			cur.WriteRune(r)
			escaped = false
		case r == '\\':
			escaped = true
		case r == journalSep:
			out = append(out, cur.String())
			cur.Reset()
		default:
			cur.WriteRune(r)
		}
	}
	return append(out, cur.String())
}

type gexfDoc struct {
	XMLName xml.Name  `xml:"gexf"`
	XMLNS   string    `xml:"xmlns,attr"`
	Version string    `xml:"version,attr"`
	Meta    gexfMeta  `xml:"meta"`
	Graph   gexfGraph `xml:"graph"`
}

type gexfMeta struct {
	Creator     string `xml:"creator"`
	Description string `xml:"description"`
}

type gexfGraph struct {
	Mode            string         `xml:"mode,attr"`
	DefaultEdgeType string         `xml:"defaultedgetype,attr"`
	Name            string         `xml:"name,attr"`
	Attributes      gexfAttributes `xml:"attributes"`
	Nodes           []gexfNode     `xml:"nodes>node"`
	Edges           []gexfEdge     `xml:"edges>edge"`
}

type gexfAttributes struct {
	Class string          `xml:"class,attr"`
	Mode  string          `xml:"mode,attr"`
	Attrs []gexfAttribute `xml:"attribute"`
}

type gexfAttribute struct {
	ID    string `xml:"id,attr"`
	Title string `xml:"title,attr"`
	Type  string `xml:"type,attr"`
}

type gexfNode struct {
	ID    string `xml:"id,attr"`
	Label string `xml:"label,attr"`
}

type gexfEdge struct {
	ID        string         `xml:"id,attr"`
	Source    string         `xml:"source,attr"`
	Target    string         `xml:"target,attr"`
	Weight    string         `xml:"weight,attr"`
	AttValues []gexfAttValue `xml:"attvalues>attvalue"`
}

type gexfAttValue struct {
	For   string `xml:"for,attr"`
	Value string `xml:"value,attr"`
}

// WriteGEXF serialises s as GEXF 1.2. Weights are written with the shortest
// exact float representation so ReadGEXF restores identical bits.
func WriteGEXF(w io.Writer, s *Snapshot) error {
	edgeType := "undirected"
	if s.Directed() {
		edgeType = "directed"
	}
	doc := gexfDoc{
		XMLNS:   gexfNamespace,
		Version: "1.2",
		Meta:    gexfMeta{Creator: "collabnet", Description: s.Key().String()},
		Graph: gexfGraph{
			Mode:            "static",
			DefaultEdgeType: edgeType,
			Name:            string(s.Key().Kind),
			Attributes: gexfAttributes{
				Class: "edge",
				Mode:  "static",
				Attrs: []gexfAttribute{{ID: "0", Title: AttrJournal, Type: "string"}},
			},
		},
	}
	for _, n := range s.Nodes() {
		doc.Graph.Nodes = append(doc.Graph.Nodes, gexfNode{ID: string(n), Label: string(n)})
	}
	for i, e := range s.Edges() {
		doc.Graph.Edges = append(doc.Graph.Edges, gexfEdge{
			ID:        strconv.Itoa(i),
			Source:    string(e.From),
			Target:    string(e.To),
			Weight:    strconv.FormatFloat(e.Weight, 'g', -1, 64),
			AttValues: []gexfAttValue{{For: "0", Value: joinJournals(e.Journals)}},
		})
	}

	if _, err := io.WriteString(w, xml.Header); err != nil {
		return err
	}
	enc := xml.NewEncoder(w)
	enc.Indent("", "  ")
	if err := enc.Encode(doc); err != nil {
		return fmt.Errorf("encoding gexf: %w", err)
	}
	return enc.Close()
}

// ReadGEXF parses a GEXF document written by WriteGEXF. The key is taken
// from the meta description.
func ReadGEXF(r io.Reader) (*Snapshot, error) {
	var doc gexfDoc
	if err := xml.NewDecoder(r).Decode(&doc); err != nil {
		return nil, fmt.Errorf("decoding gexf: %w", err)
	}
	key, err := ParseKey(doc.Meta.Description)
	if err != nil {
		return nil, err
	}

	journalAttr := ""
	for _, a := range doc.Graph.Attributes.Attrs {
		if a.Title == AttrJournal {
			journalAttr = a.ID
		}
	}

	nodes := make([]PersonID, 0, len(doc.Graph.Nodes))
	for _, n := range doc.Graph.Nodes {
		nodes = append(nodes, PersonID(n.ID))
	}
	edges := make([]Edge, 0, len(doc.Graph.Edges))
	for _, e := range doc.Graph.Edges {
		w := 1.0
		if e.Weight != "" {
			w, err = strconv.ParseFloat(e.Weight, 64)
			if err != nil {
				return nil, fmt.Errorf("edge %s: parsing weight: %w", e.ID, err)
			}
		}
		var journals []string
		for _, av := range e.AttValues {
			if av.For == journalAttr && av.Value != "" {
				journals = splitJournals(av.Value)
			}
		}
		edges = append(edges, Edge{
			Pair:     Pair{From: PersonID(e.Source), To: PersonID(e.Target)},
			Weight:   w,
			Journals: journals,
		})
	}
	return NewSnapshot(key, nodes, edges)
}

// ParseKey parses "<year>_<kind>" as produced by Key.String.
func ParseKey(s string) (Key, error) {
	year, kind, ok := strings.Cut(s, "_")
	if !ok {
		return Key{}, fmt.Errorf("malformed snapshot key %q", s)
	}
	y, err := strconv.Atoi(year)
	if err != nil {
		return Key{}, fmt.Errorf("malformed snapshot key %q: %w", s, err)
	}
	k, err := ParseKind(kind)
	if err != nil {
		return Key{}, err
	}
	return Key{Year: y, Kind: k}, nil
}

// FileName returns the export file name for key.
func FileName(key Key, compress bool) string {
	name := key.String() + ".gexf"
	if compress {
		name += ".gz"
	}
	return name
}

// WriteFile writes s to path, gzip-compressed when path ends in ".gz".
func WriteFile(path string, s *Snapshot) (err error) {
	f, err := os.Create(path)
	if err != nil {
		return err
	}
	defer func() {
		if cerr := f.Close(); err == nil {
			err = cerr
		}
	}()

	if !strings.HasSuffix(path, ".gz") {
		return WriteGEXF(f, s)
	}
	zw := gzip.NewWriter(f)
	if err := WriteGEXF(zw, s); err != nil {
		zw.Close()
		return err
	}
	return zw.Close()
}

// ReadFile reads a snapshot written by WriteFile.
func ReadFile(path string) (*Snapshot, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, err
	}
	defer f.Close()

	var r io.Reader = f
	if strings.HasSuffix(path, ".gz") {
		zr, err := gzip.NewReader(f)
		if err != nil {
			return nil, fmt.Errorf("opening gzip stream: %w", err)
		}
		defer zr.Close()
		r = zr
	}
	return ReadGEXF(r)
}

// ExportDir writes every snapshot in the manifest to dir and returns the
// written paths in manifest order.
func ExportDir(dir string, res *Result, compress bool) ([]string, error) {
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return nil, fmt.Errorf("creating export dir: %w", err)
	}
	paths := make([]string, 0, len(res.Manifest))
	for _, k := range res.Manifest {
		s, ok := res.Snapshots[k]
		if !ok {
			return nil, fmt.Errorf("manifest key %s has no snapshot", k)
		}
		p := filepath.Join(dir, FileName(k, compress))
		if err := WriteFile(p, s); err != nil {
			return nil, fmt.Errorf("writing %s: %w", p, err)
		}
		paths = append(paths, p)
	}
	return paths, nil
}
