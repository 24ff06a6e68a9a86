package centrality

import (
	"context"
	"fmt"
	"log/slog"
	"math"
	"runtime"
	"sort"
	"sync"
	"time"

	"golang.org/x/sync/errgroup"

	"github.com/brunobiangulo/collabnet/network"
	"github.com/brunobiangulo/collabnet/rankstat"
)

// significantDigits bounds the precision of computed measures. Solver noise
// below it would otherwise split exact ties in ranks and rank correlations.
const significantDigits = 12

// SecondOrderMode selects how two-hop neighbours are counted.
type SecondOrderMode string

const (
	// SecondOrderUndirected walks the undirected projection for both kinds.
	SecondOrderUndirected SecondOrderMode = "undirected"
	// SecondOrderOut follows out-edges only in directed snapshots.
	SecondOrderOut SecondOrderMode = "out"
)

// ParseSecondOrderMode validates a mode string. The empty string selects
// the undirected default.
func ParseSecondOrderMode(s string) (SecondOrderMode, error) {
	switch SecondOrderMode(s) {
	case "", SecondOrderUndirected:
		return SecondOrderUndirected, nil
	case SecondOrderOut:
		return SecondOrderOut, nil
	}
	return "", fmt.Errorf("unknown second-order mode %q", s)
}

// Options configures an Engine.
type Options struct {
	SecondOrder SecondOrderMode
	Concurrency int
}

// Engine computes centralities for snapshots.
type Engine struct {
	opts Options
}

// NewEngine creates an engine, filling unset options with defaults.
func NewEngine(opts Options) *Engine {
	if opts.SecondOrder == "" {
		opts.SecondOrder = SecondOrderUndirected
	}
	if opts.Concurrency <= 0 {
		opts.Concurrency = runtime.NumCPU()
	}
	return &Engine{opts: opts}
}

// Compute derives node records and the descriptor of one snapshot.
// Undefined measures are reported as warnings and left absent.
func (e *Engine) Compute(s *network.Snapshot) (*Result, error) {
	if s == nil {
		return nil, fmt.Errorf("centrality.Compute: nil snapshot")
	}
	key := s.Key()
	adj := newAdjacency(s)
	n := adj.n()
	res := &Result{Key: key}
	warn := func(format string, args ...any) {
		res.Warnings = append(res.Warnings, fmt.Sprintf(format, args...))
	}

	full := adj.weightedUndirected(nil)
	comps := components(full)
	gc := giant(comps)

	desc := Descriptor{
		Key:        key,
		Nodes:      n,
		Links:      adj.links,
		Clustering: adj.averageClustering(),
		Components: len(comps),
		GiantSize:  len(gc),
	}

	res.Records = make([]Record, n)
	successorsOnly := e.opts.SecondOrder == SecondOrderOut
	for i := range res.Records {
		res.Records[i] = Record{
			Node:        adj.ids[i],
			Degree:      adj.degree(i),
			SecondOrder: adj.secondOrder(i, successorsOnly),
		}
	}

	if gc == nil {
		if n < 2 {
			warn("%d node(s): giant component undefined", n)
		} else {
			warn("no edges: giant component undefined")
		}
		desc.Rho = rankstat.Correlation{}
		res.Descriptor = desc
		e.logWarnings(res)
		return res, nil
	}

	for _, i := range gc {
		res.Records[i].Giant = true
	}

	// Giant-component measures.
	gg := adj.weightedUndirected(gc)
	m := 0
	for _, i := range gc {
		m += len(adj.und[i])
	}
	m /= 2
	gn := len(gc)
	density := 2 * float64(m) / float64(gn*(gn-1))
	closeness, apl, diam := adj.distanceStats(gc)
	avgDeg := 2 * float64(m) / float64(gn)
	expected := avgDeg / float64(gn)
	desc.Density = &density
	desc.AvgPathLength = &apl
	desc.Diameter = &diam
	desc.ExpectedClustering = &expected

	btw := betweenness(gg)
	eig, err := adj.eigenvector(gc, s.Directed())
	if err != nil {
		warn("eigenvector: %v", err)
	}

	btwVals := make([]float64, n)
	eigVals := make([]float64, n)
	for i := range btwVals {
		btwVals[i] = math.NaN()
		eigVals[i] = math.NaN()
	}
	for gi, i := range gc {
		b := rankstat.Snap(btw[i], significantDigits)
		c := rankstat.Snap(closeness[gi], significantDigits)
		res.Records[i].Betweenness = &b
		res.Records[i].Closeness = &c
		btwVals[i] = b
		if eig != nil {
			v := rankstat.Snap(eig[gi], significantDigits)
			res.Records[i].Eigenvector = &v
			eigVals[i] = v
		}
	}

	btwRanks := rankstat.MinRank(btwVals)
	eigRanks := rankstat.MinRank(eigVals)
	for i := range res.Records {
		if r := btwRanks[i]; r > 0 {
			res.Records[i].BetweennessRank = &r
		}
		if r := eigRanks[i]; r > 0 {
			res.Records[i].EigenvectorRank = &r
		}
	}

	desc.Rho = rankstat.Spearman(btwVals, eigVals)
	if !desc.Rho.Defined {
		warn("betweenness/eigenvector correlation undefined over %d pair(s)", desc.Rho.N)
	}
	res.Descriptor = desc
	e.logWarnings(res)
	return res, nil
}

func (e *Engine) logWarnings(res *Result) {
	if len(res.Warnings) == 0 {
		return
	}
	slog.Warn("centrality: degenerate graph", "key", res.Key.String(),
		"error", ErrDegenerateGraph, "warnings", res.Warnings)
}

// Failure records a key whose computation failed.
type Failure struct {
	Key network.Key `json:"key"`
	Err error       `json:"-"`
}

func (f Failure) Error() string { return fmt.Sprintf("%s: %v", f.Key, f.Err) }

// Batch is the outcome of ComputeAll. Results holds every key that
// succeeded; Failures every key that did not.
type Batch struct {
	Results  map[network.Key]*Result
	Manifest network.Manifest
	Failures []Failure
}

// ComputeAll computes every manifest key concurrently. A failing key is
// recorded in Failures and never stops the others. Only context
// cancellation aborts the batch.
func (e *Engine) ComputeAll(ctx context.Context, snaps map[network.Key]*network.Snapshot, manifest network.Manifest) (*Batch, error) {
	start := time.Now()
	slog.Info("centrality: computing", "keys", len(manifest), "concurrency", e.opts.Concurrency)

	var mu sync.Mutex
	batch := &Batch{Results: make(map[network.Key]*Result, len(manifest))}

	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(e.opts.Concurrency)
	for _, key := range manifest {
		g.Go(func() error {
			if err := gctx.Err(); err != nil {
				return err
			}
			res, err := e.computeSafe(snaps[key], key)
			mu.Lock()
			defer mu.Unlock()
			if err != nil {
				slog.Warn("centrality: key failed", "key", key.String(), "error", err)
				batch.Failures = append(batch.Failures, Failure{Key: key, Err: err})
				return nil
			}
			batch.Results[key] = res
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return nil, fmt.Errorf("centrality.ComputeAll: %w", err)
	}

	for _, k := range manifest {
		if _, ok := batch.Results[k]; ok {
			batch.Manifest = append(batch.Manifest, k)
		}
	}
	batch.Manifest.Sort()
	sortFailures(batch.Failures)

	slog.Info("centrality: complete",
		"succeeded", len(batch.Results), "failed", len(batch.Failures),
		"elapsed", time.Since(start).Round(time.Millisecond))
	return batch, nil
}

// computeSafe turns a missing snapshot or a panic inside a numeric routine
// into an error for that key alone.
func (e *Engine) computeSafe(s *network.Snapshot, key network.Key) (res *Result, err error) {
	if s == nil {
		return nil, fmt.Errorf("no snapshot for %s", key)
	}
	defer func() {
		if r := recover(); r != nil {
			res, err = nil, fmt.Errorf("panic: %v", r)
		}
	}()
	return e.Compute(s)
}

func sortFailures(fs []Failure) {
	sort.Slice(fs, func(i, j int) bool { return fs[i].Key.Less(fs[j].Key) })
}
