// Command oriquery is a thin CLI harness over the ori retrieval core,
// a cobra entrypoint over an internal/ library. It is a demonstration
// and integration-test surface, not the primary embedding target for
// the retrieval core.
package main

import (
	"context"
	"fmt"
	"os"
	"strings"
	"time"

	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"github.com/aayoawoyemi/ori-mnemos/internal/engine"
	"github.com/aayoawoyemi/ori-mnemos/internal/note"
)

var (
	vaultRoot string
	limit     int
	logger    *zap.Logger
)

var rootCmd = &cobra.Command{
	Use:   "oriquery",
	Short: "Query and inspect an ori vault's retrieval index",
	PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
		cfg := zap.NewProductionConfig()
		cfg.Encoding = "console"
		cfg.EncoderConfig.TimeKey = ""
		built, err := cfg.Build()
		if err != nil {
			return fmt.Errorf("init logger: %w", err)
		}
		logger = built
		if vaultRoot == "" {
			wd, err := os.Getwd()
			if err != nil {
				return err
			}
			vaultRoot = wd
		}
		return nil
	},
}

func openEngine() (*engine.Engine, error) {
	e, err := engine.Open(vaultRoot)
	if err != nil {
		logger.Error("failed to open vault", zap.Error(err), zap.String("root", vaultRoot))
		return nil, err
	}
	return e, nil
}

var rankCmd = &cobra.Command{
	Use:   "rank [query]",
	Short: "Run the fused ranked query pipeline",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		e, err := openEngine()
		if err != nil {
			return err
		}
		defer e.Close()

		out, warnings, err := e.QueryRanked(context.Background(), args[0], limit)
		logWarnings(warnings)
		if err != nil {
			return err
		}

		fmt.Printf("intent: %s\n", out.Intent)
		for i, r := range out.Results {
			marker := ""
			if r.IsExploration {
				marker = " [exploration]"
			}
			fmt.Printf("%d. %s  score=%.4f%s\n", i+1, r.Title, r.Score, marker)
		}
		return nil
	},
}

var similarCmd = &cobra.Command{
	Use:   "similar [query]",
	Short: "Run the composite-only similarity query",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		e, err := openEngine()
		if err != nil {
			return err
		}
		defer e.Close()

		results, warnings, err := e.QuerySimilar(context.Background(), args[0], limit)
		logWarnings(warnings)
		if err != nil {
			return err
		}
		for i, r := range results {
			fmt.Printf("%d. %s  score=%.4f\n", i+1, r.Title, r.Score)
		}
		return nil
	},
}

var importantCmd = &cobra.Command{
	Use:   "important",
	Short: "List notes ranked by graph authority",
	RunE: func(cmd *cobra.Command, args []string) error {
		e, err := openEngine()
		if err != nil {
			return err
		}
		defer e.Close()

		results, warnings, err := e.QueryImportant(limit)
		logWarnings(warnings)
		if err != nil {
			return err
		}
		for i, r := range results {
			fmt.Printf("%d. %s  authority=%.4f\n", i+1, r.Title, r.Score)
		}
		return nil
	},
}

var fadingThreshold float64

var fadingCmd = &cobra.Command{
	Use:   "fading",
	Short: "List notes below the vitality threshold",
	RunE: func(cmd *cobra.Command, args []string) error {
		e, err := openEngine()
		if err != nil {
			return err
		}
		defer e.Close()

		results, warnings, err := e.QueryFading(fadingThreshold, limit)
		logWarnings(warnings)
		if err != nil {
			return err
		}
		for i, r := range results {
			fmt.Printf("%d. %s  vitality=%.4f\n", i+1, r.Title, r.Score)
		}
		return nil
	},
}

var orphansCmd = &cobra.Command{
	Use:   "orphans",
	Short: "List notes with no incoming links",
	RunE: func(cmd *cobra.Command, args []string) error {
		e, err := openEngine()
		if err != nil {
			return err
		}
		defer e.Close()

		titles, warnings, err := e.QueryOrphans()
		logWarnings(warnings)
		if err != nil {
			return err
		}
		printTitles(titles)
		return nil
	},
}

var danglingCmd = &cobra.Command{
	Use:   "dangling",
	Short: "List link targets naming no note",
	RunE: func(cmd *cobra.Command, args []string) error {
		e, err := openEngine()
		if err != nil {
			return err
		}
		defer e.Close()

		titles, warnings, err := e.QueryDangling()
		logWarnings(warnings)
		if err != nil {
			return err
		}
		printTitles(titles)
		return nil
	},
}

var backlinksCmd = &cobra.Command{
	Use:   "backlinks [title]",
	Short: "List titles linking to a note",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		e, err := openEngine()
		if err != nil {
			return err
		}
		defer e.Close()

		titles, warnings, err := e.QueryBacklinks(args[0])
		logWarnings(warnings)
		if err != nil {
			return err
		}
		printTitles(titles)
		return nil
	},
}

var crossProjectCmd = &cobra.Command{
	Use:   "cross-project",
	Short: "List notes connecting multiple projects",
	RunE: func(cmd *cobra.Command, args []string) error {
		e, err := openEngine()
		if err != nil {
			return err
		}
		defer e.Close()

		titles, warnings, err := e.QueryCrossProject()
		logWarnings(warnings)
		if err != nil {
			return err
		}
		printTitles(titles)
		return nil
	},
}

var staleDays int

var staleCmd = &cobra.Command{
	Use:   "stale",
	Short: "List notes not accessed within N days",
	RunE: func(cmd *cobra.Command, args []string) error {
		e, err := openEngine()
		if err != nil {
			return err
		}
		defer e.Close()

		titles, warnings, err := e.QueryStale(staleDays, limit)
		logWarnings(warnings)
		if err != nil {
			return err
		}
		printTitles(titles)
		return nil
	},
}

var forceBuild bool

var buildCmd = &cobra.Command{
	Use:   "build",
	Short: "Build or refresh the embedding index",
	RunE: func(cmd *cobra.Command, args []string) error {
		e, err := openEngine()
		if err != nil {
			return err
		}
		defer e.Close()

		start := time.Now()
		result, warnings, err := e.IndexBuild(context.Background(), forceBuild, func(done, total int) {
			fmt.Printf("\rindexing %d/%d", done, total)
		})
		fmt.Println()
		logWarnings(warnings)
		if err != nil {
			return err
		}
		fmt.Printf("run=%s indexed=%d skipped=%d total=%d elapsed=%s\n",
			result.RunID, result.Stats.Indexed, result.Stats.Skipped, result.Stats.Total, time.Since(start))
		return nil
	},
}

var metricsCmd = &cobra.Command{
	Use:   "metrics",
	Short: "Print graph authority and betweenness for every note",
	RunE: func(cmd *cobra.Command, args []string) error {
		e, err := openEngine()
		if err != nil {
			return err
		}
		defer e.Close()

		metrics, warnings, err := e.GraphMetrics()
		logWarnings(warnings)
		if err != nil {
			return err
		}
		for title, authority := range metrics.Authority {
			fmt.Printf("%s  authority=%.4f  betweenness=%.4f  bridge=%v\n",
				title, authority, metrics.Betweenness[title], metrics.Bridges[title])
		}
		return nil
	},
}

var communitiesCmd = &cobra.Command{
	Use:   "communities",
	Short: "Print the community assignment for every note",
	RunE: func(cmd *cobra.Command, args []string) error {
		e, err := openEngine()
		if err != nil {
			return err
		}
		defer e.Close()

		communities, warnings, err := e.GraphCommunities()
		logWarnings(warnings)
		if err != nil {
			return err
		}
		for title, community := range communities {
			fmt.Printf("%s  community=%d\n", title, community)
		}
		return nil
	},
}

var reportCmd = &cobra.Command{
	Use:   "report",
	Short: "Print an aggregate structural diagnostic report",
	RunE: func(cmd *cobra.Command, args []string) error {
		e, err := openEngine()
		if err != nil {
			return err
		}
		defer e.Close()

		report, warnings, err := e.GraphReport()
		logWarnings(warnings)
		if err != nil {
			return err
		}
		fmt.Printf("notes: %d  communities: %d\n", report.NumNotes, report.NumCommunities)
		fmt.Printf("orphans (%d): %s\n", len(report.Orphans), strings.Join(report.Orphans, ", "))
		fmt.Printf("dangling (%d): %s\n", len(report.Dangling), strings.Join(report.Dangling, ", "))
		fmt.Printf("bridges (%d): %s\n", len(report.Bridges), strings.Join(report.Bridges, ", "))
		fmt.Printf("cross-project (%d): %s\n", len(report.CrossProject), strings.Join(report.CrossProject, ", "))
		fmt.Println("top by authority:")
		for i, r := range report.TopAuthority {
			fmt.Printf("  %d. %s  %.4f\n", i+1, r.Title, r.Score)
		}
		return nil
	},
}

var watchCmd = &cobra.Command{
	Use:   "watch",
	Short: "Watch the vault for changes and rebuild the index incrementally",
	RunE: func(cmd *cobra.Command, args []string) error {
		e, err := openEngine()
		if err != nil {
			return err
		}
		defer e.Close()

		w, err := e.NewWatcher()
		if err != nil {
			logger.Warn("fsnotify watch unavailable, run \"oriquery build\" manually on changes", zap.Error(err))
			return err
		}
		defer w.Stop()

		logger.Info("watching vault for changes", zap.String("root", vaultRoot))
		w.Run(cmd.Context(), func(result engine.IndexBuildResult, errs []error) {
			for _, err := range errs {
				logger.Warn("watch rebuild warning", zap.Error(err))
			}
			fmt.Printf("rebuilt: run=%s indexed=%d skipped=%d total=%d\n",
				result.RunID, result.Stats.Indexed, result.Stats.Skipped, result.Stats.Total)
		})
		return nil
	},
}

func logWarnings(warnings []note.Warning) {
	for _, w := range warnings {
		logger.Warn(w.Error())
	}
}

func printTitles(titles []string) {
	for i, t := range titles {
		fmt.Printf("%d. %s\n", i+1, t)
	}
}

func init() {
	rootCmd.PersistentFlags().StringVar(&vaultRoot, "vault", "", "vault root (defaults to the current directory)")
	rootCmd.PersistentFlags().IntVar(&limit, "limit", 10, "maximum results to return")

	fadingCmd.Flags().Float64Var(&fadingThreshold, "threshold", 0.3, "vitality threshold")
	staleCmd.Flags().IntVar(&staleDays, "days", 30, "staleness threshold in days")
	buildCmd.Flags().BoolVar(&forceBuild, "force", false, "rebuild every note, ignoring content hashes")

	rootCmd.AddCommand(rankCmd, similarCmd, importantCmd, fadingCmd, orphansCmd, danglingCmd,
		backlinksCmd, crossProjectCmd, staleCmd, buildCmd, metricsCmd, communitiesCmd, reportCmd, watchCmd)
}

func main() {
	if err := rootCmd.Execute(); err != nil {
		if logger != nil {
			logger.Error("command failed", zap.Error(err))
		} else {
			fmt.Fprintln(os.Stderr, err)
		}
		os.Exit(1)
	}
}
