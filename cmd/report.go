package cmd

import (
	"fmt"
	"os"
	"path/filepath"
	"runtime"
	"sort"

	"github.com/alwiharda/BusinessIntelligence/internal/pipeline"
	"github.com/alwiharda/BusinessIntelligence/internal/utils"
	"github.com/spf13/cobra"
	"golang.org/x/sync/errgroup"
)

var (
	repFlags  runFlags
	repOutput string
	repJSON   bool
	repQuiet  bool
)

var reportCmd = &cobra.Command{
	Use:   "report [files...]",
	Short: "Load, filter, aggregate and segment one or more exports",
	Long: `Runs the full pipeline on each file and prints a Markdown report with KPIs,
rollups, customer segments and sample rows. Globs are expanded; multiple files
are processed concurrently and reported in sorted order.`,
	RunE: func(cmd *cobra.Command, args []string) error {
		files, err := expandSources(args)
		if err != nil {
			return err
		}
		if repOutput != "" && len(files) > 1 {
			return fmt.Errorf("--output takes a single input file, got %d", len(files))
		}
		p, err := repFlags.newPipeline()
		if err != nil {
			return err
		}

		results := make([]*pipeline.Result, len(files))
		var g errgroup.Group
		g.SetLimit(runtime.GOMAXPROCS(0))
		for i, path := range files {
			req, err := repFlags.request(path)
			if err != nil {
				return err
			}
			g.Go(func() error {
				res, err := p.Run(req)
				if err != nil {
					return friendlyError(path, err)
				}
				results[i] = res
				return nil
			})
		}
		if err := g.Wait(); err != nil {
			return err
		}

		out := cmd.OutOrStdout()
		for i, res := range results {
			if len(files) > 1 && !repQuiet {
				fmt.Fprintf(out, "[%d/%d] %s\n", i+1, len(files), filepath.Base(res.Source))
			}
			body, err := render(res, repJSON)
			if err != nil {
				return err
			}
			if repOutput != "" {
				if err := utils.SafeWriteFile(repOutput, body); err != nil {
					return fmt.Errorf("write output: %w", err)
				}
				fmt.Fprintf(out, "✓ Wrote report to %s\n", repOutput)
				continue
			}
			fmt.Fprintln(out, string(body))
			if !repQuiet {
				for _, w := range res.Warnings {
					fmt.Fprintf(cmd.ErrOrStderr(), "⚠ %s\n", w)
				}
			}
		}
		return nil
	},
}

func render(res *pipeline.Result, asJSON bool) ([]byte, error) {
	if asJSON {
		return utils.PrettyJSON(res.Snapshot())
	}
	return []byte(res.Markdown()), nil
}

// expandSources resolves globs and literal paths, dropping duplicates. A
// literal path that does not exist is kept so the loader reports it.
func expandSources(args []string) ([]string, error) {
	if len(args) == 0 {
		src, err := sourceArg(nil)
		if err != nil {
			return nil, err
		}
		args = []string{src}
	}
	var files []string
	seen := map[string]struct{}{}
	for _, arg := range args {
		matches, _ := filepath.Glob(arg)
		if len(matches) == 0 {
			if _, err := os.Stat(arg); err != nil && hasMeta(arg) {
				continue
			}
			matches = []string{arg}
		}
		for _, m := range matches {
			if _, ok := seen[m]; ok {
				continue
			}
			seen[m] = struct{}{}
			files = append(files, m)
		}
	}
	if len(files) == 0 {
		return nil, fmt.Errorf("no input files matched")
	}
	sort.Strings(files)
	return files, nil
}

func hasMeta(path string) bool {
	for _, r := range path {
		switch r {
		case '*', '?', '[':
			return true
		}
	}
	return false
}

func init() {
	rootCmd.AddCommand(reportCmd)
	repFlags.bind(reportCmd)
	reportCmd.Flags().StringVarP(&repOutput, "output", "o", "", "optional path to write the report")
	reportCmd.Flags().BoolVar(&repJSON, "json", false, "emit JSON instead of Markdown")
	reportCmd.Flags().BoolVarP(&repQuiet, "quiet", "q", false, "suppress progress and warnings")
}
