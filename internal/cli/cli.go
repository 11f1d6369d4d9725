package cli

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"log"
	"time"

	"github.com/clubsite/internal/config"
	"github.com/clubsite/internal/db"
	"github.com/clubsite/internal/router"
	"github.com/clubsite/internal/service"
	"github.com/gin-gonic/gin"
	"github.com/spf13/cobra"
)

var (
	flagListenAddr  string
	flagSyncTimeout time.Duration
	flagFormat      string
)

// NewRootCmd creates the root command. Running it without a subcommand starts the server.
func NewRootCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:           "clubsite",
		Short:         "Sports club website backend",
		SilenceUsage:  true,
		SilenceErrors: true,
		RunE:          runServe,
	}

	cmd.AddCommand(newServeCmd(), newFeedCmd())
	return cmd
}

func newServeCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "serve",
		Short: "Run the HTTP API",
		RunE:  runServe,
	}
	cmd.Flags().StringVar(&flagListenAddr, "listen", "", "Listen address (overrides LISTEN_ADDR/PORT)")
	return cmd
}

func newFeedCmd() *cobra.Command {
	feed := &cobra.Command{
		Use:   "feed",
		Short: "Manage the scraped news and fixtures feed",
	}

	syncCmd := &cobra.Command{
		Use:   "sync",
		Short: "Scrape all configured feed sources once",
		RunE:  runFeedSync,
	}
	syncCmd.Flags().DurationVar(&flagSyncTimeout, "timeout", 2*time.Minute, "Overall timeout for the sync")
	syncCmd.Flags().StringVar(&flagFormat, "format", "text", "Output format: text or json")

	feed.AddCommand(syncCmd)
	return feed
}

func runServe(cmd *cobra.Command, args []string) error {
	config.LoadDotEnv()
	cfg := config.Load()
	if flagListenAddr != "" {
		cfg.ListenAddr = flagListenAddr
	}

	gin.SetMode(cfg.GinMode)

	if err := db.Init(cfg.DatabasePath); err != nil {
		return fmt.Errorf("initializing database: %w", err)
	}

	if cfg.AccessTeamDomain == "" || len(cfg.AccessAudiences) == 0 {
		log.Printf("[server] ACCESS_TEAM_DOMAIN/ACCESS_AUD not set, edit routes will reject every request")
	}

	r := router.SetupRouter(cfg)
	log.Printf("[server] listening on %s", cfg.ListenAddr)
	return r.Run(cfg.ListenAddr)
}

func runFeedSync(cmd *cobra.Command, args []string) error {
	if flagFormat != "text" && flagFormat != "json" {
		return fmt.Errorf("invalid format: %s (must be 'text' or 'json')", flagFormat)
	}

	config.LoadDotEnv()
	cfg := config.Load()

	if err := db.Init(cfg.DatabasePath); err != nil {
		return fmt.Errorf("initializing database: %w", err)
	}

	feed := service.NewFeedService(db.DB, cfg.FeedNewsURL, cfg.FeedMatchesURL)
	if len(feed.Sources()) == 0 {
		return fmt.Errorf("no feed sources configured (set FEED_NEWS_URL and/or FEED_MATCHES_URL)")
	}

	ctx, cancel := context.WithTimeout(cmd.Context(), flagSyncTimeout)
	defer cancel()

	result, err := feed.Refresh(ctx)
	if writeErr := writeSyncResult(cmd.OutOrStdout(), flagFormat, result); writeErr != nil {
		return writeErr
	}
	if err != nil {
		return fmt.Errorf("syncing feed: %w", err)
	}
	return nil
}

func writeSyncResult(w io.Writer, format string, result service.FeedRefreshResult) error {
	if format == "json" {
		encoder := json.NewEncoder(w)
		encoder.SetIndent("", "  ")
		return encoder.Encode(result)
	}
	_, err := fmt.Fprintf(w, "Stored %d news items and %d matches\n", result.News, result.Matches)
	return err
}
