package cmd

import (
	"fmt"
	"strings"

	"github.com/alwiharda/BusinessIntelligence/internal/pipeline"
	"github.com/alwiharda/BusinessIntelligence/internal/utils"
	"github.com/spf13/cobra"
)

var (
	colFlags runFlags
	colJSON  bool
)

var columnsCmd = &cobra.Command{
	Use:   "columns [file]",
	Short: "List filter options for the dataset's filterable columns",
	Args:  cobra.MaximumNArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		path, err := sourceArg(args)
		if err != nil {
			return err
		}
		p, err := colFlags.newPipeline()
		if err != nil {
			return err
		}
		req, err := colFlags.request(path)
		if err != nil {
			return err
		}
		req.SkipSegments = true
		res, err := p.Run(req)
		if err != nil {
			return friendlyError(path, err)
		}

		opts := pipeline.FilterOptions(res.Dataset, res.Table)
		out := cmd.OutOrStdout()
		if colJSON {
			b, err := utils.PrettyJSON(opts)
			if err != nil {
				return err
			}
			fmt.Fprintln(out, string(b))
			return nil
		}
		for _, col := range pipeline.FilterColumns(opts) {
			parts := make([]string, 0, len(opts[col]))
			for _, o := range opts[col] {
				parts = append(parts, fmt.Sprintf("%s (%d)", o.Value, o.Count))
			}
			fmt.Fprintf(out, "%s: %s\n", col, strings.Join(parts, ", "))
		}
		return nil
	},
}

func init() {
	rootCmd.AddCommand(columnsCmd)
	colFlags.bind(columnsCmd)
	columnsCmd.Flags().BoolVar(&colJSON, "json", false, "emit JSON")
}
