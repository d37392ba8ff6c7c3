package cmd

import (
	"fmt"

	"github.com/alwiharda/BusinessIntelligence/internal/utils"
	"github.com/spf13/cobra"
)

var (
	kpiFlags runFlags
	kpiJSON  bool
)

var kpiCmd = &cobra.Command{
	Use:   "kpi [file]",
	Short: "Print headline KPIs for the filtered data",
	Args:  cobra.MaximumNArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		path, err := sourceArg(args)
		if err != nil {
			return err
		}
		p, err := kpiFlags.newPipeline()
		if err != nil {
			return err
		}
		req, err := kpiFlags.request(path)
		if err != nil {
			return err
		}
		req.SkipSegments = true
		res, err := p.Run(req)
		if err != nil {
			return friendlyError(path, err)
		}

		out := cmd.OutOrStdout()
		if kpiJSON {
			b, err := utils.PrettyJSON(res.KPIs)
			if err != nil {
				return err
			}
			fmt.Fprintln(out, string(b))
			return nil
		}
		fmt.Fprintf(out, "%s (%d rows)\n", res.Dataset.Title, res.Rows())
		for _, k := range res.KPIs {
			fmt.Fprintf(out, "  %-20s %s\n", k.Name, k.Display)
		}
		for _, w := range res.Warnings {
			fmt.Fprintf(cmd.ErrOrStderr(), "⚠ %s\n", w)
		}
		return nil
	},
}

func init() {
	rootCmd.AddCommand(kpiCmd)
	kpiFlags.bind(kpiCmd)
	kpiCmd.Flags().BoolVar(&kpiJSON, "json", false, "emit JSON")
}
