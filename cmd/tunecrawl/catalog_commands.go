package main

import (
	"errors"
	"fmt"
	"net/http"
	"strconv"
	"strings"

	"github.com/spf13/cobra"

	"tunecrawl/internal/api"
	"tunecrawl/internal/catalog"
	"tunecrawl/internal/client"
	"tunecrawl/internal/track"
)

func newCatalogCommands(ctx *commandContext) []*cobra.Command {
	var crawlLocal bool
	crawlCmd := &cobra.Command{
		Use:   "crawl",
		Short: "Run an aggregation now",
		RunE: func(cmd *cobra.Command, args []string) error {
			var (
				resp *api.CrawlResponse
				err  error
			)
			if crawlLocal {
				resp, err = localCrawl(cmd, ctx)
			} else {
				resp, err = ctx.apiClient().Crawl(cmd.Context())
				err = wrapClientError(err, ctx.baseURL())
			}
			if resp == nil {
				return err
			}
			return ctx.emit(cmd, resp, err, func() error {
				printCrawl(cmd, resp)
				return nil
			})
		},
	}
	crawlCmd.Flags().BoolVar(&crawlLocal, "local", false, "Aggregate in this process instead of asking the daemon")

	statusCmd := &cobra.Command{
		Use:   "status",
		Short: "Show catalog and daemon status",
		RunE: func(cmd *cobra.Command, args []string) error {
			c := ctx.apiClient()
			status, err := c.Status(cmd.Context())
			online := err == nil
			if errors.Is(err, client.ErrUnavailable) {
				status, err = offlineStatus(cmd, ctx)
			}
			if err != nil {
				return err
			}

			var health *api.HealthResponse
			if online {
				health, _ = c.Health(cmd.Context())
			}
			payload := struct {
				Daemon  bool                `json:"daemon"`
				Catalog *api.StatusResponse `json:"catalog"`
				Health  *api.HealthResponse `json:"health,omitempty"`
			}{Daemon: online, Catalog: status, Health: health}
			return ctx.emit(cmd, payload, nil, func() error {
				printStatus(cmd, ctx.baseURL(), online, status, health)
				return nil
			})
		},
	}

	resetCmd := &cobra.Command{
		Use:   "reset",
		Short: "Empty the catalog",
		RunE: func(cmd *cobra.Command, args []string) error {
			resp, err := ctx.apiClient().Reset(cmd.Context())
			if err != nil {
				return wrapClientError(err, ctx.baseURL())
			}
			return ctx.emit(cmd, resp, nil, func() error {
				_, err := fmt.Fprintln(cmd.OutOrStdout(), resp.Message)
				return err
			})
		},
	}

	var genreFilter, sourceFilter string
	var limit int
	listCmd := &cobra.Command{
		Use:   "list",
		Short: "List catalog tracks",
		RunE: func(cmd *cobra.Command, args []string) error {
			records, err := ctx.apiClient().List(cmd.Context())
			if errors.Is(err, client.ErrUnavailable) {
				records, err = offlineRecords(cmd, ctx)
			}
			if err != nil {
				return err
			}
			records = filterRecords(records, genreFilter, sourceFilter, limit)
			return ctx.emit(cmd, records, nil, func() error {
				out := cmd.OutOrStdout()
				if len(records) == 0 {
					fmt.Fprintln(out, "Catalog is empty")
					return nil
				}
				fmt.Fprint(out, renderTable(trackColumns, recordRows(records)))
				fmt.Fprintf(out, "\n%d tracks\n", len(records))
				return nil
			})
		},
	}
	listCmd.Flags().StringVar(&genreFilter, "genre", "", "Only show tracks of this genre")
	listCmd.Flags().StringVar(&sourceFilter, "source", "", "Only show tracks from this source")
	listCmd.Flags().IntVar(&limit, "limit", 0, "Show at most this many tracks")

	healthCmd := &cobra.Command{
		Use:   "health",
		Short: "Show daemon health",
		RunE: func(cmd *cobra.Command, args []string) error {
			health, err := ctx.apiClient().Health(cmd.Context())
			if health == nil {
				return wrapClientError(err, ctx.baseURL())
			}
			return ctx.emit(cmd, health, err, func() error {
				printHealth(cmd, health, shouldColorize(cmd.OutOrStdout()))
				return nil
			})
		},
	}

	return []*cobra.Command{crawlCmd, statusCmd, resetCmd, listCmd, healthCmd}
}

func localCrawl(cmd *cobra.Command, ctx *commandContext) (*api.CrawlResponse, error) {
	cfg, err := ctx.ensureConfig()
	if err != nil {
		return nil, err
	}
	lc, err := openLocalCatalog(cmd.Context(), cfg, true)
	if err != nil {
		return nil, err
	}
	defer lc.Close()
	svc, err := lc.service()
	if err != nil {
		return nil, err
	}
	resp, code := svc.Crawl(cmd.Context())
	if code != http.StatusOK {
		return &resp, fmt.Errorf("crawl failed: %s", resp.Message)
	}
	return &resp, nil
}

func offlineStatus(cmd *cobra.Command, ctx *commandContext) (*api.StatusResponse, error) {
	cfg, err := ctx.ensureConfig()
	if err != nil {
		return nil, err
	}
	lc, err := openLocalCatalog(cmd.Context(), cfg, false)
	if err != nil {
		return nil, fmt.Errorf("daemon not reachable and catalog could not be opened: %w", err)
	}
	defer lc.Close()
	status := api.FromStatus(catalog.StatusOf(lc.store.Snapshot()))
	return &status, nil
}

func offlineRecords(cmd *cobra.Command, ctx *commandContext) ([]track.Record, error) {
	cfg, err := ctx.ensureConfig()
	if err != nil {
		return nil, err
	}
	lc, err := openLocalCatalog(cmd.Context(), cfg, false)
	if err != nil {
		return nil, fmt.Errorf("daemon not reachable and catalog could not be opened: %w", err)
	}
	defer lc.Close()
	return lc.store.Snapshot().Records, nil
}

func filterRecords(records []track.Record, genre, source string, limit int) []track.Record {
	genre = strings.TrimSpace(genre)
	source = strings.TrimSpace(source)
	out := make([]track.Record, 0, len(records))
	for _, r := range records {
		if genre != "" && !strings.EqualFold(r.Genre, genre) {
			continue
		}
		if source != "" && !strings.EqualFold(r.Source, source) {
			continue
		}
		out = append(out, r)
		if limit > 0 && len(out) == limit {
			break
		}
	}
	return out
}

func recordRows(records []track.Record) [][]string {
	rows := make([][]string, 0, len(records))
	for _, r := range records {
		rows = append(rows, []string{r.Title, r.Artist, r.Genre, r.Source, r.Duration, strconv.Itoa(r.Popularity)})
	}
	return rows
}

func printCrawl(cmd *cobra.Command, resp *api.CrawlResponse) {
	out := cmd.OutOrStdout()
	if !resp.Success {
		fmt.Fprintf(out, "%s: %s\n", firstNonEmpty(resp.Error, "Crawl failed"), resp.Message)
		fmt.Fprintf(out, "Catalog unchanged at %d tracks\n", len(resp.Records))
		return
	}
	fmt.Fprintln(out, resp.Message)
	if resp.Joined {
		fmt.Fprintln(out, "Joined an aggregation that was already running")
	}
	fmt.Fprintf(out, "  Run:          %s\n", resp.RunID)
	fmt.Fprintf(out, "  Offered:      %d\n", resp.NewTracks)
	fmt.Fprintf(out, "  New:          %d\n", resp.IntroducedTracks)
	fmt.Fprintf(out, "  Total:        %d\n", resp.TotalTracks)
	fmt.Fprintf(out, "  Aggregations: %d\n", resp.AggregationCount)
	fmt.Fprintf(out, "  Fallback:     %s\n", yesNo(resp.Fallback))
	for _, failure := range resp.FailedSources {
		fmt.Fprintf(out, "  Failed:       %s (%s)\n", failure.Source, failure.Error)
	}
}

func firstNonEmpty(values ...string) string {
	for _, v := range values {
		if strings.TrimSpace(v) != "" {
			return v
		}
	}
	return ""
}
