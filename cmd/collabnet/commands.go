package main

import (
	"encoding/json"
	"fmt"
	"os"
	"text/tabwriter"

	"github.com/spf13/cobra"

	"github.com/brunobiangulo/collabnet"
	"github.com/brunobiangulo/collabnet/network"
)

// --- run ---

var (
	runEvents   string
	runTenures  string
	runWorkbook string
	runGEXFDir  string
	runCompress bool
)

func registerRun() {
	cmd := &cobra.Command{
		Use:   "run",
		Short: "Run every stage and store the results",
		RunE:  runPipeline,
	}
	addInputFlags(cmd)
	cmd.Flags().StringVar(&runWorkbook, "workbook", "", "Write the xlsx report to this path")
	rootCmd.AddCommand(cmd)
}

func addInputFlags(cmd *cobra.Command) {
	cmd.Flags().StringVar(&runEvents, "events", "", "Event feed glob, e.g. 'data/**/*.json'")
	cmd.Flags().StringVar(&runTenures, "tenures", "", "Editor tenure file(s), csv or xlsx")
	cmd.Flags().StringVar(&runGEXFDir, "gexf-dir", "", "Export every snapshot as GEXF into this directory")
	cmd.Flags().BoolVar(&runCompress, "compress", false, "Gzip the GEXF files")
}

func applyInputFlags(cmd *cobra.Command, cfg *collabnet.Config) {
	if runEvents != "" {
		cfg.Events = runEvents
	}
	if runTenures != "" {
		cfg.Tenures = runTenures
	}
	if runGEXFDir != "" {
		cfg.GEXFDir = runGEXFDir
	}
	if cmd.Flags().Changed("compress") {
		cfg.CompressGEXF = runCompress
	}
	if runWorkbook != "" {
		cfg.Workbook = runWorkbook
	}
}

func runPipeline(cmd *cobra.Command, args []string) error {
	cfg, err := loadConfig()
	if err != nil {
		return err
	}
	applyInputFlags(cmd, &cfg)

	p, err := collabnet.New(cfg)
	if err != nil {
		return err
	}
	defer p.Close()

	res, err := p.Run(cmd.Context())
	if err != nil {
		return err
	}
	d := res.Diagnostics
	fmt.Printf("run %s\n", res.RunID)
	fmt.Printf("  records:     %d read, %d kept, %d skipped\n", d.Events.Read, d.Events.Kept, len(d.Events.Skipped))
	fmt.Printf("  snapshots:   %d (%d failed)\n", d.Snapshots, len(d.Failures))
	fmt.Printf("  panel rows:  %d\n", d.PanelRows)
	if cfg.Workbook != "" {
		fmt.Printf("  workbook:    %s\n", cfg.Workbook)
	}
	for _, f := range d.Failures {
		fmt.Printf("  failure: %s\n", f)
	}
	return nil
}

// --- build ---

func registerBuild() {
	cmd := &cobra.Command{
		Use:   "build",
		Short: "Build the yearly networks and export them as GEXF",
		RunE:  runBuild,
	}
	addInputFlags(cmd)
	rootCmd.AddCommand(cmd)
}

func runBuild(cmd *cobra.Command, args []string) error {
	cfg, err := loadConfig()
	if err != nil {
		return err
	}
	applyInputFlags(cmd, &cfg)
	if cfg.GEXFDir == "" {
		return fmt.Errorf("%w: build needs --gexf-dir", collabnet.ErrInvalidConfig)
	}

	p, err := collabnet.New(cfg)
	if err != nil {
		return err
	}
	defer p.Close()

	in, err := p.Load(cmd.Context())
	if err != nil {
		return err
	}
	res, files, err := p.Build(cmd.Context(), in)
	if err != nil {
		return err
	}
	enc := json.NewEncoder(os.Stdout)
	enc.SetIndent("", "  ")
	if err := enc.Encode(res.Stats); err != nil {
		return err
	}
	fmt.Fprintf(os.Stderr, "wrote %d files to %s\n", len(files), cfg.GEXFDir)
	return nil
}

// --- export ---

var (
	exportRun string
	exportOut string
)

func registerExport() {
	cmd := &cobra.Command{
		Use:   "export",
		Short: "Write the xlsx report of a stored run",
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := loadConfig()
			if err != nil {
				return err
			}
			p, err := collabnet.New(cfg)
			if err != nil {
				return err
			}
			defer p.Close()
			if err := p.ExportWorkbook(cmd.Context(), exportRun, exportOut); err != nil {
				return err
			}
			fmt.Println(exportOut)
			return nil
		},
	}
	cmd.Flags().StringVar(&exportRun, "run", "", "Run id (default: latest run)")
	cmd.Flags().StringVarP(&exportOut, "out", "o", "collabnet.xlsx", "Output workbook path")
	rootCmd.AddCommand(cmd)
}

// --- similar ---

var (
	similarRun  string
	similarYear int
	similarKind string
	similarNode string
	similarK    int
)

func registerSimilar() {
	cmd := &cobra.Command{
		Use:   "similar",
		Short: "List nodes with the closest centrality profile",
		RunE:  runSimilar,
	}
	cmd.Flags().StringVar(&similarRun, "run", "", "Run id (default: latest run)")
	cmd.Flags().IntVar(&similarYear, "year", 0, "Snapshot year")
	cmd.Flags().StringVar(&similarKind, "kind", "auth", "Network kind: auth or com")
	cmd.Flags().StringVar(&similarNode, "node", "", "Person id")
	cmd.Flags().IntVar(&similarK, "k", 10, "Number of neighbours")
	cmd.MarkFlagRequired("year")
	cmd.MarkFlagRequired("node")
	rootCmd.AddCommand(cmd)
}

func runSimilar(cmd *cobra.Command, args []string) error {
	kind, err := network.ParseKind(similarKind)
	if err != nil {
		return err
	}
	cfg, err := loadConfig()
	if err != nil {
		return err
	}
	p, err := collabnet.New(cfg)
	if err != nil {
		return err
	}
	defer p.Close()

	key := network.Key{Year: similarYear, Kind: kind}
	nbs, err := p.Similar(cmd.Context(), similarRun, key, network.PersonID(similarNode), similarK)
	if err != nil {
		return err
	}
	tw := tabwriter.NewWriter(os.Stdout, 0, 4, 2, ' ', 0)
	fmt.Fprintln(tw, "NODE\tDISTANCE")
	for _, nb := range nbs {
		fmt.Fprintf(tw, "%s\t%.4f\n", nb.Node, nb.Distance)
	}
	return tw.Flush()
}

// --- runs ---

func registerRuns() {
	rootCmd.AddCommand(&cobra.Command{
		Use:   "runs",
		Short: "List stored runs",
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := loadConfig()
			if err != nil {
				return err
			}
			p, err := collabnet.New(cfg)
			if err != nil {
				return err
			}
			defer p.Close()
			runs, err := p.Store().ListRuns(cmd.Context())
			if err != nil {
				return err
			}
			tw := tabwriter.NewWriter(os.Stdout, 0, 4, 2, ' ', 0)
			fmt.Fprintln(tw, "ID\tSTATUS\tCREATED")
			for _, r := range runs {
				fmt.Fprintf(tw, "%s\t%s\t%s\n", r.ID, r.Status, r.CreatedAt)
			}
			return tw.Flush()
		},
	})
}
