// Package collabnet builds yearly co-authorship and acknowledgement networks
// from publication records, measures the position of every person in them,
// and ranks and correlates those positions over time.
package collabnet

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"github.com/brunobiangulo/collabnet/centrality"
	"github.com/brunobiangulo/collabnet/collab"
	"github.com/brunobiangulo/collabnet/network"
	"github.com/brunobiangulo/collabnet/ranking"
	"github.com/brunobiangulo/collabnet/record"
	"github.com/brunobiangulo/collabnet/report"
	"github.com/brunobiangulo/collabnet/store"
)

// Input is a normalised event feed with its editor index.
type Input struct {
	Events            []network.Event
	Editors           *record.EditorIndex
	EventDiagnostics  record.Diagnostics
	TenureDiagnostics record.Diagnostics
}

// Diagnostics are the counts published with a run.
type Diagnostics struct {
	Events         record.Diagnostics      `json:"events"`
	Tenures        record.Diagnostics      `json:"tenures"`
	Editors        int                     `json:"editors"`
	Build          network.BuildStats      `json:"build"`
	Snapshots      int                     `json:"snapshots"`
	GEXFFiles      []string                `json:"gexf_files,omitempty"`
	Failures       []string                `json:"failures,omitempty"`
	Warnings       map[string][]string     `json:"warnings,omitempty"`
	InformalPairs  int                     `json:"informal_pairs"`
	Reciprocity    collab.ReciprocityStats `json:"reciprocity"`
	PureCommenters int                     `json:"pure_commenters"`
	PureAuthors    int                     `json:"pure_authors"`
	PanelRows      int                     `json:"panel_rows"`
	Duration       string                  `json:"duration"`
}

// Facts flattens the diagnostics for the workbook.
func (d Diagnostics) Facts() []report.Fact {
	facts := []report.Fact{
		{Name: "records_read", Value: d.Events.Read},
		{Name: "records_kept", Value: d.Events.Kept},
		{Name: "records_skipped", Value: len(d.Events.Skipped)},
		{Name: "persons_without_identity", Value: d.Events.WithoutIdentity},
		{Name: "tenures_read", Value: d.Tenures.Read},
		{Name: "tenures_skipped", Value: len(d.Tenures.Skipped)},
		{Name: "managing_editors", Value: d.Editors},
		{Name: "articles", Value: d.Build.Articles},
		{Name: "articles_with_ack", Value: d.Build.ArticlesWithAck},
		{Name: "authors", Value: d.Build.Authors},
		{Name: "authors_stable", Value: d.Build.AuthorsStable},
		{Name: "commenters", Value: d.Build.Commenters},
		{Name: "commenters_stable", Value: d.Build.CommentersStable},
		{Name: "comments", Value: d.Build.Comments},
		{Name: "comments_stable", Value: d.Build.CommentsStable},
		{Name: "persons", Value: d.Build.Persons},
		{Name: "persons_stable", Value: d.Build.PersonsStable},
		{Name: "editor_filtered", Value: d.Build.EditorFiltered},
		{Name: "self_links_dropped", Value: d.Build.SelfLinksDropped},
		{Name: "snapshots", Value: d.Snapshots},
		{Name: "centrality_failures", Value: len(d.Failures)},
		{Name: "informal_pairs", Value: d.InformalPairs},
		{Name: "papers_with_commenters", Value: d.Reciprocity.Papers},
		{Name: "reci_auth_real", Value: d.Reciprocity.CoauthorRealized},
		{Name: "reci_auth_pot", Value: d.Reciprocity.CoauthorPotential},
		{Name: "reci_com_real", Value: d.Reciprocity.CommentRealized},
		{Name: "reci_com_pot", Value: d.Reciprocity.CommentPotential},
		{Name: "reci_any_real", Value: d.Reciprocity.AnyRealized},
		{Name: "reci_any_pot", Value: d.Reciprocity.AnyPotential},
		{Name: "pure_commenters", Value: d.PureCommenters},
		{Name: "pure_authors", Value: d.PureAuthors},
		{Name: "panel_rows", Value: d.PanelRows},
	}
	for _, f := range d.Failures {
		facts = append(facts, report.Fact{Name: "failure", Value: f})
	}
	return facts
}

// Result is everything a run produced.
type Result struct {
	RunID        string
	Networks     *network.Result
	Centrality   *centrality.Batch
	Counts       collab.Table
	Panel        *ranking.Panel
	Rankings     []*ranking.Table
	Correlations []ranking.CorrelationPoint
	Diagnostics  Diagnostics
}

// Pipeline wires the stages together over one results database.
type Pipeline struct {
	cfg     Config
	store   *store.Store
	readers *record.Registry
	engine  *centrality.Engine
}

// New validates cfg and opens the results database.
func New(cfg Config) (*Pipeline, error) {
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	mode, _ := centrality.ParseSecondOrderMode(cfg.SecondOrder)

	s, err := store.New(cfg.resolveDBPath())
	if err != nil {
		return nil, fmt.Errorf("opening store: %w", err)
	}
	return &Pipeline{
		cfg:     cfg,
		store:   s,
		readers: record.NewRegistry(),
		engine:  centrality.NewEngine(centrality.Options{SecondOrder: mode, Concurrency: cfg.Concurrency}),
	}, nil
}

// Store returns the underlying store.
func (p *Pipeline) Store() *store.Store { return p.store }

// Config returns the pipeline configuration.
func (p *Pipeline) Config() Config { return p.cfg }

// Close cleanly shuts down the pipeline.
func (p *Pipeline) Close() error { return p.store.Close() }

// Load reads the configured event and tenure feeds.
func (p *Pipeline) Load(ctx context.Context) (*Input, error) {
	if p.cfg.Events == "" {
		return nil, fmt.Errorf("%w: no event feed configured", ErrInvalidConfig)
	}
	feed, err := p.readers.ReadEvents(ctx, p.cfg.Events)
	if err != nil {
		return nil, fmt.Errorf("reading events: %w", err)
	}
	in := &Input{Events: feed.Events, EventDiagnostics: feed.Diagnostics}
	if p.cfg.Tenures != "" {
		tf, err := p.readers.ReadTenures(ctx, p.cfg.Tenures)
		if err != nil {
			return nil, fmt.Errorf("reading tenures: %w", err)
		}
		in.Editors = record.NewEditorIndex(tf.Tenures)
		in.TenureDiagnostics = tf.Diagnostics
	}
	return in, nil
}

// Build constructs the yearly networks and, when configured, exports them
// as GEXF.
func (p *Pipeline) Build(ctx context.Context, in *Input) (*network.Result, []string, error) {
	if len(in.Events) == 0 {
		return nil, nil, ErrNoEvents
	}
	var editors network.EditorFilter
	if in.Editors != nil {
		editors = in.Editors
	}
	res, err := network.Build(ctx, in.Events, editors, network.Options{
		Window:      p.cfg.Window,
		MinYear:     p.cfg.MinYear,
		MaxYear:     p.cfg.MaxYear,
		Concurrency: p.cfg.Concurrency,
	})
	if err != nil {
		return nil, nil, err
	}
	var files []string
	if p.cfg.GEXFDir != "" {
		files, err = network.ExportDir(p.cfg.GEXFDir, res, p.cfg.CompressGEXF)
		if err != nil {
			return nil, nil, fmt.Errorf("exporting gexf: %w", err)
		}
	}
	return res, files, nil
}

// Run loads the configured feeds and runs every stage.
func (p *Pipeline) Run(ctx context.Context) (*Result, error) {
	in, err := p.Load(ctx)
	if err != nil {
		return nil, err
	}
	return p.RunInput(ctx, in)
}

// RunInput runs every stage on an already loaded input and persists the
// results under a new run id.
func (p *Pipeline) RunInput(ctx context.Context, in *Input) (*Result, error) {
	start := time.Now()
	runID, err := p.store.CreateRun(ctx, p.cfg)
	if err != nil {
		return nil, fmt.Errorf("creating run: %w", err)
	}
	slog.Info("run: started", "run_id", runID, "events", len(in.Events))

	res, err := p.run(ctx, runID, in)
	if err != nil {
		if ferr := p.store.FinishRun(context.WithoutCancel(ctx), runID, store.StatusFailed); ferr != nil {
			slog.Warn("run: recording failure status", "run_id", runID, "error", ferr)
		}
		return nil, err
	}
	res.Diagnostics.Duration = time.Since(start).Round(time.Millisecond).String()
	if err := p.store.SaveDiagnostics(ctx, runID, res.Diagnostics); err != nil {
		return nil, fmt.Errorf("saving diagnostics: %w", err)
	}
	if err := p.store.FinishRun(ctx, runID, store.StatusComplete); err != nil {
		return nil, err
	}
	if p.cfg.Workbook != "" {
		if err := report.WriteWorkbook(p.cfg.Workbook, tablesOf(res)); err != nil {
			return nil, fmt.Errorf("writing workbook: %w", err)
		}
	}
	slog.Info("run: complete", "run_id", runID, "snapshots", res.Diagnostics.Snapshots,
		"failures", len(res.Diagnostics.Failures), "duration", res.Diagnostics.Duration)
	return res, nil
}

func (p *Pipeline) run(ctx context.Context, runID string, in *Input) (*Result, error) {
	r := &Result{RunID: runID}
	r.Diagnostics.Events = in.EventDiagnostics
	r.Diagnostics.Tenures = in.TenureDiagnostics
	r.Diagnostics.Editors = in.Editors.Len()

	nets, files, err := p.Build(ctx, in)
	if err != nil {
		return nil, err
	}
	r.Networks = nets
	r.Diagnostics.Build = nets.Stats
	r.Diagnostics.Snapshots = len(nets.Manifest)
	r.Diagnostics.GEXFFiles = files
	if err := p.store.SaveSnapshots(ctx, runID, nets); err != nil {
		return nil, fmt.Errorf("saving snapshots: %w", err)
	}
	slog.Info("run: networks built", "run_id", runID, "snapshots", len(nets.Manifest))

	batch, err := p.engine.ComputeAll(ctx, nets.Snapshots, nets.Manifest)
	if err != nil {
		return nil, err
	}
	r.Centrality = batch
	for _, f := range batch.Failures {
		r.Diagnostics.Failures = append(r.Diagnostics.Failures, f.Error())
	}
	for k, res := range batch.Results {
		if len(res.Warnings) > 0 {
			if r.Diagnostics.Warnings == nil {
				r.Diagnostics.Warnings = make(map[string][]string)
			}
			r.Diagnostics.Warnings[k.String()] = res.Warnings
		}
	}
	if err := p.store.SaveCentralities(ctx, runID, batch); err != nil {
		return nil, fmt.Errorf("saving centralities: %w", err)
	}

	var editors network.EditorFilter
	if in.Editors != nil {
		editors = in.Editors
	}
	r.Counts = collab.Count(in.Events)
	var authorNets []*network.Snapshot
	for _, k := range nets.Manifest {
		if k.Kind == network.KindAuthor {
			authorNets = append(authorNets, nets.Snapshots[k])
		}
	}
	r.Diagnostics.InformalPairs = len(collab.InformalPairs(in.Events, editors))
	r.Diagnostics.Reciprocity = collab.Reciprocity(in.Events, editors, authorNets)
	roles := collab.PureRoles(nets.Snapshots)
	r.Diagnostics.PureCommenters = len(roles.PureCommenters)
	r.Diagnostics.PureAuthors = len(roles.PureAuthors)

	r.Panel = ranking.BuildPanel(batch.Results, collab.GivenSeries(r.Counts, p.cfg.GivenWindow),
		ranking.PanelOptions{StableOnly: p.cfg.StableOnly})
	r.Diagnostics.PanelRows = len(r.Panel.Rows)

	windows := p.cfg.RankingWindows
	if len(windows) == 0 {
		windows = []ranking.Window{{}}
	}
	for _, w := range windows {
		t := ranking.TopK(r.Panel, w, p.cfg.TopK)
		if err := p.store.SaveRanking(ctx, runID, t); err != nil {
			return nil, fmt.Errorf("saving ranking: %w", err)
		}
		r.Rankings = append(r.Rankings, t)
	}
	r.Correlations = ranking.CorrelationSeries(r.Panel)
	if err := p.store.SaveCorrelations(ctx, runID, r.Correlations); err != nil {
		return nil, fmt.Errorf("saving correlations: %w", err)
	}
	slog.Info("run: rankings computed", "run_id", runID, "panel_rows", len(r.Panel.Rows),
		"correlations", len(r.Correlations))
	return r, nil
}

func tablesOf(r *Result) report.Tables {
	t := report.Tables{
		Centralities: make(map[network.Key][]centrality.LongRow),
		Rankings:     r.Rankings,
		Correlations: r.Correlations,
		Diagnostics:  r.Diagnostics.Facts(),
	}
	for _, k := range r.Centrality.Manifest {
		res, ok := r.Centrality.Results[k]
		if !ok {
			continue
		}
		t.Descriptors = append(t.Descriptors, res.Descriptor)
		for _, rec := range res.Records {
			t.Centralities[k] = append(t.Centralities[k], rec.Long()...)
		}
	}
	return t
}

// ExportWorkbook writes the workbook of a stored run. An empty runID
// selects the latest run.
func (p *Pipeline) ExportWorkbook(ctx context.Context, runID, path string) error {
	if runID == "" {
		id, err := p.store.LatestRun(ctx)
		if err != nil {
			return err
		}
		runID = id
	}
	descs, err := p.store.Descriptors(ctx, runID)
	if err != nil {
		return err
	}
	manifest, err := p.store.Manifest(ctx, runID)
	if err != nil {
		return err
	}
	t := report.Tables{Descriptors: descs, Centralities: make(map[network.Key][]centrality.LongRow)}
	for _, k := range manifest {
		rows, err := p.store.Centralities(ctx, runID, k)
		if err != nil {
			return err
		}
		t.Centralities[k] = rows
	}
	if t.Rankings, err = p.store.Rankings(ctx, runID); err != nil {
		return err
	}
	if t.Correlations, err = p.store.Correlations(ctx, runID); err != nil {
		return err
	}
	var diag Diagnostics
	if err := p.store.Diagnostics(ctx, runID, &diag); err != nil {
		return err
	}
	t.Diagnostics = diag.Facts()
	return report.WriteWorkbook(path, t)
}

// Similar returns the nodes whose centrality profile is closest to node's
// in the (year, kind) snapshot of a run. An empty runID selects the latest
// run.
func (p *Pipeline) Similar(ctx context.Context, runID string, key network.Key, node network.PersonID, k int) ([]store.Neighbor, error) {
	if runID == "" {
		id, err := p.store.LatestRun(ctx)
		if err != nil {
			return nil, err
		}
		runID = id
	}
	return p.store.SimilarNodes(ctx, runID, key, node, k)
}
