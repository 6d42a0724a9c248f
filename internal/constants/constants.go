package constants

import "time"

// DefaultPlaylistID is the TUES Fest 2023 project video playlist.
const DefaultPlaylistID = "PL9bB-qR6xC5nauT7K_1_kfguwfj6JcbyE"

var CacheTTL = struct {
	Videos time.Duration
}{
	Videos: 2 * time.Minute,
}

// EdgeCache holds the values of the Cache-Control header sent on successful queries.
var EdgeCache = struct {
	SharedMaxAge         time.Duration
	StaleWhileRevalidate time.Duration
}{
	SharedMaxAge:         2 * time.Minute,
	StaleWhileRevalidate: 24 * time.Hour,
}

var RefreshConfig = struct {
	Interval         time.Duration
	AggregateTimeout time.Duration
}{
	Interval:         2 * time.Minute,
	AggregateTimeout: 90 * time.Second,
}

var RedisConfig = struct {
	ReadyTimeout time.Duration
	KeyPrefix    string
}{
	ReadyTimeout: 5 * time.Second,
	KeyPrefix:    "leaderboard:videos:",
}

var APIConfig = struct {
	MirrorTimeout     time.Duration
	PlaylistPageSize  int64
	YouTubeWatchURL   string
	YouTubeThumbnail  string
	DefaultThumbnail  string
	FallbackThumbnail string
	ShutdownTimeout   time.Duration
	ReadHeaderTimeout time.Duration
}{
	MirrorTimeout:     15 * time.Second,
	PlaylistPageSize:  50,
	YouTubeWatchURL:   "https://www.youtube.com/watch?v=%s",
	YouTubeThumbnail:  "https://i.ytimg.com/vi/%s/%s.jpg",
	DefaultThumbnail:  "maxresdefault",
	FallbackThumbnail: "default",
	ShutdownTimeout:   10 * time.Second,
	ReadHeaderTimeout: 10 * time.Second,
}

var DisplayConfig = struct {
	MaxTitleLength int
	PodiumSize     int
}{
	MaxTitleLength: 20,
	PodiumSize:     3,
}
