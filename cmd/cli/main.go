package main

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/fatih/color"
	"github.com/olekukonko/tablewriter"
	"github.com/spf13/cobra"

	"github.com/1tanmay/repo-analyse/internal/analysis"
	"github.com/1tanmay/repo-analyse/internal/collector"
	"github.com/1tanmay/repo-analyse/internal/config"
	"github.com/1tanmay/repo-analyse/internal/domain"
)

var (
	outputJSON      bool
	sinceDate       string
	untilDate       string
	granularity     string
	tokenFlag       string
	maxBuckets      int
	maxContributors int
)

var rootCmd = &cobra.Command{
	Use:   "repo-analyse",
	Short: "GitHub repository analytics tool",
	Long: `A CLI tool for analyzing the commit activity of a GitHub repository.

It fetches commits, contributors and repository metadata from the GitHub
REST API and prints commit-frequency buckets, contributor totals and
churn figures.`,
}

var analyzeCmd = &cobra.Command{
	Use:   "analyze [owner/repo]",
	Short: "Analyze a repository",
	Long:  `Fetch and aggregate the commit activity of a single GitHub repository.`,
	Args:  cobra.ExactArgs(1),
	RunE:  runAnalyze,
}

func init() {
	analyzeCmd.Flags().StringVar(&sinceDate, "since", "", "start date (YYYY-MM-DD)")
	analyzeCmd.Flags().StringVar(&untilDate, "until", "", "end date (YYYY-MM-DD), inclusive")
	analyzeCmd.Flags().StringVar(&granularity, "granularity", "day", "bucket granularity (day, week, month)")
	analyzeCmd.Flags().StringVar(&tokenFlag, "token", "", "GitHub token (defaults to GITHUB_TOKEN)")
	analyzeCmd.Flags().BoolVar(&outputJSON, "json", false, "output in JSON format")
	analyzeCmd.Flags().IntVar(&maxBuckets, "buckets", 0, "print at most this many trailing buckets (0 = all)")
	analyzeCmd.Flags().IntVar(&maxContributors, "top", 10, "print at most this many contributors (0 = all)")

	rootCmd.AddCommand(analyzeCmd)
}

func main() {
	if err := rootCmd.Execute(); err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		os.Exit(1)
	}
}

func runAnalyze(cmd *cobra.Command, args []string) error {
	ref, err := domain.ParseRepositoryRef(args[0])
	if err != nil {
		return err
	}

	cfg, err := config.Load()
	if err != nil {
		return fmt.Errorf("failed to load config: %w", err)
	}
	if tokenFlag != "" {
		cfg.GithubToken = tokenFlag
	}

	tr, err := parseRange()
	if err != nil {
		return err
	}
	g, err := domain.ParseGranularity(granularity)
	if err != nil {
		return err
	}

	// Keep stdout clean for the rendered output; logs go to stderr.
	logger := slog.New(slog.NewTextHandler(os.Stderr, &slog.HandlerOptions{Level: cfg.SlogLevel()}))

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	client, err := collector.NewGitHubClient(collectorOptions(cfg), logger)
	if err != nil {
		return fmt.Errorf("failed to initialize GitHub client: %w", err)
	}
	coll, err := collector.NewCollector(client, collectorOptions(cfg), logger)
	if err != nil {
		return fmt.Errorf("failed to initialize collector: %w", err)
	}

	svc := analysis.NewService(coll, logger)
	defer svc.Close()

	result, err := svc.Run(ctx, analysis.Request{
		Repository:  ref,
		Range:       tr,
		Granularity: g,
	})
	if err != nil {
		return err
	}

	if outputJSON {
		return printJSON(result)
	}
	printResult(result)
	return nil
}

func parseRange() (domain.TimeRange, error) {
	var tr domain.TimeRange
	if sinceDate != "" {
		t, err := time.Parse("2006-01-02", sinceDate)
		if err != nil {
			return domain.TimeRange{}, fmt.Errorf("invalid --since %q: expected YYYY-MM-DD", sinceDate)
		}
		tr.Since = t
	}
	if untilDate != "" {
		t, err := time.Parse("2006-01-02", untilDate)
		if err != nil {
			return domain.TimeRange{}, fmt.Errorf("invalid --until %q: expected YYYY-MM-DD", untilDate)
		}
		// Inclusive upper bound: take the whole day.
		tr.Until = t.AddDate(0, 0, 1).Add(-time.Second)
	}
	return tr, nil
}

func printJSON(result *domain.AnalysisResult) error {
	out, err := json.MarshalIndent(result, "", "  ")
	if err != nil {
		return err
	}
	fmt.Println(string(out))
	return nil
}

func printResult(result *domain.AnalysisResult) {
	header := color.New(color.FgCyan, color.Bold)

	header.Printf("\nRepository Analysis: %s\n", result.Repository.FullName)
	if result.Repository.Description != "" {
		fmt.Println(result.Repository.Description)
	}
	fmt.Printf("Generated: %s\n\n", result.GeneratedAt.Format(time.RFC3339))

	summary := tablewriter.NewWriter(os.Stdout)
	summary.SetHeader([]string{"Metric", "Value"})
	summary.Append([]string{"Commits", fmt.Sprintf("%d", result.TotalCommits)})
	summary.Append([]string{"Contributors", fmt.Sprintf("%d", result.TotalContributors)})
	summary.Append([]string{"Lines Added", fmt.Sprintf("%d", result.TotalAdditions)})
	summary.Append([]string{"Lines Deleted", fmt.Sprintf("%d", result.TotalDeletions)})
	summary.Append([]string{"Churn", fmt.Sprintf("%d", result.TotalChurn)})
	summary.Render()

	if result.SkippedRecords > 0 {
		color.Yellow("%d records were skipped during normalization\n", result.SkippedRecords)
	}

	buckets := result.Buckets
	if maxBuckets > 0 && len(buckets) > maxBuckets {
		buckets = buckets[len(buckets)-maxBuckets:]
	}
	if len(buckets) > 0 {
		header.Printf("\nCommit Frequency (%s)\n", result.Granularity)
		table := tablewriter.NewWriter(os.Stdout)
		table.SetHeader([]string{"Bucket", "Commits"})
		for _, b := range buckets {
			table.Append([]string{b.Start.Format("2006-01-02"), fmt.Sprintf("%d", b.Count)})
		}
		table.Render()
	}

	contributors := result.Contributors
	if maxContributors > 0 && len(contributors) > maxContributors {
		contributors = contributors[:maxContributors]
	}
	if len(contributors) > 0 {
		header.Printf("\nTop Contributors\n")
		table := tablewriter.NewWriter(os.Stdout)
		table.SetHeader([]string{"Contributor", "Commits", "Additions", "Deletions"})
		for _, c := range contributors {
			table.Append([]string{
				c.Login,
				fmt.Sprintf("%d", c.Commits),
				fmt.Sprintf("%d", c.Additions),
				fmt.Sprintf("%d", c.Deletions),
			})
		}
		table.Render()
	}
}

func collectorOptions(cfg *config.Config) collector.Options {
	return collector.Options{
		Token:             cfg.GithubToken,
		BaseURL:           cfg.GithubBaseURL,
		HTTPTimeout:       cfg.HTTPTimeout,
		RequestsPerMinute: cfg.RequestsPerMinute,
		PerPage:           cfg.PerPage,
		MaxRetries:        cfg.MaxRetries,
		BackoffBase:       cfg.BackoffBase,
		BackoffMax:        cfg.BackoffMax,
		RateLimitMaxWait:  cfg.RateLimitMaxWait,
		StatsWorkers:      cfg.StatsWorkers,
		StatsCacheSize:    cfg.StatsCacheSize,
	}
}
