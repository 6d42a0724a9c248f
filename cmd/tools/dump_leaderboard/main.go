package main

import (
	"context"
	"flag"
	"fmt"
	"os"
	"text/tabwriter"
	"time"

	"github.com/tuesfest/yt-leaderboard/internal/adapter"
	"github.com/tuesfest/yt-leaderboard/internal/app"
	"github.com/tuesfest/yt-leaderboard/internal/config"
	"github.com/tuesfest/yt-leaderboard/internal/domain"
	"github.com/tuesfest/yt-leaderboard/internal/service/leaderboard"
	"github.com/tuesfest/yt-leaderboard/internal/util"
	"go.uber.org/zap"
)

func main() {
	sortFlag := flag.String("sort", "views", "sort key: views or likes")
	timeout := flag.Duration("timeout", 2*time.Minute, "aggregation timeout")
	titles := flag.Bool("full-titles", false, "print titles without truncation")
	flag.Parse()

	cfg, err := config.Load()
	if err != nil {
		fmt.Fprintf(os.Stderr, "Failed to load config: %v\n", err)
		os.Exit(1)
	}

	logger, err := util.NewLogger(cfg.Logging.Level, cfg.Logging.Format, cfg.Logging.File)
	if err != nil {
		fmt.Fprintf(os.Stderr, "Failed to initialize logger: %v\n", err)
		os.Exit(1)
	}
	defer logger.Sync()

	key := domain.ParseSortKey(*sortFlag)
	if key.String() != *sortFlag {
		logger.Warn("Unknown sort key, falling back", zap.String("requested", *sortFlag), zap.String("using", key.String()))
	}

	ctx, cancel := context.WithTimeout(context.Background(), *timeout)
	defer cancel()

	source, err := app.BuildSource(ctx, cfg, logger)
	if err != nil {
		logger.Fatal("Failed to create source", zap.Error(err))
	}

	agg := leaderboard.NewAggregator(source, leaderboard.AggregatorConfig{
		PlaylistID:     cfg.Leaderboard.PlaylistID,
		MaxConcurrency: cfg.Leaderboard.MaxConcurrency,
	}, nil, logger)

	start := time.Now()
	videos, err := agg.Aggregate(ctx)
	if err != nil {
		logger.Fatal("Aggregation failed", zap.Error(err))
	}

	w := tabwriter.NewWriter(os.Stdout, 0, 0, 2, ' ', tabwriter.AlignRight|tabwriter.Debug)
	fmt.Fprintln(w, "RANK\tVIEWS\tLIKES\tDISLIKES\tID\tTITLE\t")
	for _, video := range adapter.Rank(videos, key) {
		title := video.Title
		if !*titles {
			title = util.TruncateString(title, 40)
		}
		fmt.Fprintf(w, "%d\t%d\t%d\t%d\t%s\t%s\t\n", video.Rank, video.Views, video.Likes, video.Dislikes, video.ID, title)
	}
	_ = w.Flush()

	fmt.Printf("\n%d videos from %s in %s (sorted by %s)\n", len(videos), source.Name(), time.Since(start).Round(time.Millisecond), key)
}
