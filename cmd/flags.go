package cmd

import (
	"fmt"

	"github.com/alwiharda/BusinessIntelligence/internal/dataset"
	"github.com/alwiharda/BusinessIntelligence/internal/filter"
	"github.com/alwiharda/BusinessIntelligence/internal/pipeline"
	"github.com/alwiharda/BusinessIntelligence/internal/segment"
	"github.com/spf13/cobra"
)

// runFlags are the load, filter and segmentation flags shared by the
// commands that run the pipeline. Zero values defer to the config, except
// --seed, which overrides whenever it is given.
type runFlags struct {
	dataset     string
	filters     []string
	filtersFile string
	clusters    int
	seed        int64
	sampleRows  int
	maxRows     int
	delimiter   string
	sheetName   string
	sheetIndex  int

	cmd *cobra.Command
}

func (f *runFlags) bind(cmd *cobra.Command) {
	f.cmd = cmd
	cmd.Flags().StringVar(&f.dataset, "dataset", "", "dataset kind: churn | financial (default from config)")
	cmd.Flags().StringArrayVarP(&f.filters, "filter", "f", nil, "column=value filter (repeatable; values for the same column are OR-ed)")
	cmd.Flags().StringVar(&f.filtersFile, "filters-file", "", "YAML file mapping columns to allowed values")
	cmd.Flags().IntVar(&f.clusters, "clusters", 0, "number of customer segments (default from config)")
	cmd.Flags().Int64Var(&f.seed, "seed", 0, "segmentation random seed (default from config)")
	cmd.Flags().IntVar(&f.sampleRows, "sample-rows", -1, "number of sample rows to include (default from config)")
	cmd.Flags().IntVar(&f.maxRows, "max-rows", 0, "maximum rows to read (0 = config or unlimited)")
	cmd.Flags().StringVar(&f.delimiter, "delimiter", "", "CSV delimiter: ',' | ';' | 'tab'")
	cmd.Flags().StringVar(&f.sheetName, "sheet-name", "", "XLSX: sheet name to load")
	cmd.Flags().IntVar(&f.sheetIndex, "sheet-index", 0, "XLSX: 1-based sheet index (used if --sheet-name not provided)")
}

func (f *runFlags) readOptions() (dataset.ReadOptions, error) {
	c := currentConfig()
	opt := dataset.ReadOptions{
		Delimiter:  c.DelimiterRune(),
		SheetName:  c.SheetName,
		SheetIndex: c.SheetIndex,
		MaxRows:    c.MaxRows,
	}
	switch f.delimiter {
	case "":
	case ",":
		opt.Delimiter = ','
	case "\t", "tab", `\t`:
		opt.Delimiter = '\t'
	case ";":
		opt.Delimiter = ';'
	case "|":
		opt.Delimiter = '|'
	default:
		return opt, fmt.Errorf("unsupported --delimiter: %s", f.delimiter)
	}
	if f.sheetName != "" {
		opt.SheetName = f.sheetName
	}
	if f.sheetIndex > 0 {
		opt.SheetIndex = f.sheetIndex
	}
	if f.maxRows > 0 {
		opt.MaxRows = f.maxRows
	}
	return opt, nil
}

func (f *runFlags) filterSpec() (filter.Spec, error) {
	spec := filter.Spec{}
	if f.filtersFile != "" {
		s, err := filter.LoadFile(f.filtersFile)
		if err != nil {
			return nil, err
		}
		spec = s
	}
	if len(f.filters) > 0 {
		s, err := filter.ParseFlags(f.filters)
		if err != nil {
			return nil, err
		}
		spec = spec.Merge(s)
	}
	return spec, nil
}

func (f *runFlags) datasetName() string {
	if f.dataset != "" {
		return f.dataset
	}
	return currentConfig().Dataset
}

// newPipeline builds a pipeline from config and flags.
func (f *runFlags) newPipeline() (*pipeline.Pipeline, error) {
	c := currentConfig()
	opt, err := f.readOptions()
	if err != nil {
		return nil, err
	}
	var lc *dataset.Cache
	if c.Cache {
		lc = cache
	}
	p := pipeline.New(dataset.NewLoader(opt, lc, logger), logger)

	p.SegmentOptions = segment.Options{K: c.Clusters, Seed: c.Seed, MaxIter: c.MaxIter}
	if f.clusters > 0 {
		p.SegmentOptions.K = f.clusters
	}
	if f.cmd != nil && f.cmd.Flags().Changed("seed") {
		p.SegmentOptions.Seed = f.seed
	}
	p.SampleRows = c.SampleRows
	if f.sampleRows >= 0 {
		p.SampleRows = f.sampleRows
	}
	return p, nil
}

// request assembles a pipeline request for path.
func (f *runFlags) request(path string) (pipeline.Request, error) {
	spec, err := f.filterSpec()
	if err != nil {
		return pipeline.Request{}, err
	}
	return pipeline.Request{Source: path, Dataset: f.datasetName(), Filters: spec}, nil
}

// sourceArg returns the positional source, falling back to the configured one.
func sourceArg(args []string) (string, error) {
	if len(args) > 0 {
		return args[0], nil
	}
	if s := currentConfig().Source; s != "" {
		return s, nil
	}
	return "", fmt.Errorf("no source file given (pass <file> or set source in config)")
}
