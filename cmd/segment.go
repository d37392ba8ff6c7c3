package cmd

import (
	"errors"
	"fmt"
	"strings"

	"github.com/alwiharda/BusinessIntelligence/internal/segment"
	"github.com/alwiharda/BusinessIntelligence/internal/utils"
	"github.com/spf13/cobra"
)

var (
	segFlags runFlags
	segJSON  bool
)

var segmentCmd = &cobra.Command{
	Use:   "segment [file]",
	Short: "Cluster customers into ranked segments",
	Long: `Standardizes the dataset's segmentation features and partitions rows with a
seeded k-means. Segments are named by ranking cluster centroids, so names stay
stable when the filtered subset changes.`,
	Args: cobra.MaximumNArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		path, err := sourceArg(args)
		if err != nil {
			return err
		}
		p, err := segFlags.newPipeline()
		if err != nil {
			return err
		}
		req, err := segFlags.request(path)
		if err != nil {
			return err
		}
		res, err := p.Run(req)
		if err != nil {
			return friendlyError(path, err)
		}
		if res.SegmentError != nil {
			if errors.Is(res.SegmentError, segment.ErrInsufficientData) {
				return fmt.Errorf("cannot segment %d rows into %d clusters: %w", res.Rows(), p.SegmentOptions.K, res.SegmentError)
			}
			return res.SegmentError
		}

		out := cmd.OutOrStdout()
		if segJSON {
			b, err := utils.PrettyJSON(res.Segments)
			if err != nil {
				return err
			}
			fmt.Fprintln(out, string(b))
			return nil
		}
		s := res.Segments
		fmt.Fprintf(out, "%s: %d segments on %s (%d rows)\n", res.Dataset.Title, s.K, strings.Join(s.Features, ", "), res.Rows())
		for _, g := range s.Groups {
			parts := make([]string, 0, len(s.Features))
			for _, f := range s.Features {
				parts = append(parts, fmt.Sprintf("%s=%.2f", f, g.Centroid[f]))
			}
			fmt.Fprintf(out, "  %-18s n=%-6d %s\n", g.Label, g.Size, strings.Join(parts, " "))
		}
		return nil
	},
}

func init() {
	rootCmd.AddCommand(segmentCmd)
	segFlags.bind(segmentCmd)
	segmentCmd.Flags().BoolVar(&segJSON, "json", false, "emit JSON")
}
