package leaderboard

import (
	"context"
	"errors"
	"strings"
	"testing"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/tuesfest/yt-leaderboard/internal/domain"
	"go.uber.org/zap"
)

func TestDedupeKeepsFirstSeenOrderAndTitle(t *testing.T) {
	entries := []domain.PlaylistEntry{
		{ID: "a", Title: "first A"},
		{ID: "b", Title: "B"},
		{ID: "", Title: "no id"},
		{ID: "a", Title: "second A"},
		{ID: "z", Title: "unavailable", LengthSeconds: length(0)},
		{ID: "c", Title: "C", LengthSeconds: length(30)},
	}

	ids, titles := Dedupe(entries)

	if strings.Join(ids, ",") != "a,b,c" {
		t.Fatalf("unexpected ids %v", ids)
	}
	if titles["a"] != "first A" {
		t.Fatalf("expected first-seen title, got %q", titles["a"])
	}
	if _, ok := titles["z"]; ok {
		t.Fatalf("zero-length entry should be excluded")
	}
}

func TestAggregateThreePagesWithDuplicate(t *testing.T) {
	src := &fakeSource{
		pages: [][]domain.PlaylistEntry{
			{{ID: "v1", Title: "One | TUES Fest 2023"}, {ID: "v2", Title: "Two"}},
			{{ID: "v3", Title: "Three | TUES Fest 2024"}, {ID: "v4", Title: "Four"}},
			{{ID: "v1", Title: "One again"}},
		},
		stats: map[string]*domain.VideoStats{
			"v1": {Views: 100, Likes: 10, Dislikes: 1},
			"v2": {Views: 50, Likes: 5, Dislikes: 0},
			"v3": {Views: 75.6, Likes: -3, Dislikes: 2},
		},
	}

	agg := NewAggregator(src, AggregatorConfig{PlaylistID: "PLtest"}, nil, zap.NewNop())
	records, err := agg.Aggregate(context.Background())
	if err != nil {
		t.Fatalf("expected no error, got %v", err)
	}

	want := []domain.VideoRecord{
		{ID: "v1", Title: "One", Views: 100, Likes: 10, Dislikes: 1},
		{ID: "v2", Title: "Two", Views: 50, Likes: 5},
		{ID: "v3", Title: "Three", Views: 75, Likes: 0, Dislikes: 2},
		{ID: "v4", Title: "Four"},
	}
	if len(records) != len(want) {
		t.Fatalf("expected %d records, got %d: %+v", len(want), len(records), records)
	}
	for i := range want {
		if records[i] != want[i] {
			t.Fatalf("record %d = %+v, want %+v", i, records[i], want[i])
		}
	}
	if len(src.requested) != 4 {
		t.Fatalf("expected one stats request per unique id, got %v", src.requested)
	}
}

func TestAggregateEmptyPlaylist(t *testing.T) {
	agg := NewAggregator(&fakeSource{}, AggregatorConfig{PlaylistID: "PLempty"}, nil, zap.NewNop())
	records, err := agg.Aggregate(context.Background())
	if err != nil {
		t.Fatalf("expected no error, got %v", err)
	}
	if len(records) != 0 {
		t.Fatalf("expected empty result, got %+v", records)
	}
}

func TestAggregatePageErrorAborts(t *testing.T) {
	src := &fakeSource{
		pages: [][]domain.PlaylistEntry{
			{{ID: "v1", Title: "One"}},
			{{ID: "v2", Title: "Two"}},
		},
		pageErrAt: 2,
	}

	agg := NewAggregator(src, AggregatorConfig{PlaylistID: "PLtest"}, nil, zap.NewNop())
	if _, err := agg.Aggregate(context.Background()); err == nil || !strings.Contains(err.Error(), "page 2") {
		t.Fatalf("expected page 2 error, got %v", err)
	}
	if len(src.requested) != 0 {
		t.Fatalf("expected no stats requests after enumeration failure, got %v", src.requested)
	}
}

func TestAggregateStatsErrorAborts(t *testing.T) {
	boom := errors.New("boom")
	src := &fakeSource{
		pages: [][]domain.PlaylistEntry{
			{{ID: "v1", Title: "One"}, {ID: "v2", Title: "Two"}, {ID: "v3", Title: "Three"}},
		},
		failStats: map[string]error{"v2": boom},
	}

	reg := prometheus.NewRegistry()
	agg := NewAggregator(src, AggregatorConfig{PlaylistID: "PLtest"}, NewMetrics(reg), zap.NewNop())
	records, err := agg.Aggregate(context.Background())
	if !errors.Is(err, boom) {
		t.Fatalf("expected wrapped boom error, got %v", err)
	}
	if records != nil {
		t.Fatalf("expected no partial result, got %+v", records)
	}

	families, err := reg.Gather()
	if err != nil {
		t.Fatalf("gather failed: %v", err)
	}
	found := false
	for _, mf := range families {
		if mf.GetName() != "leaderboard_aggregations_total" {
			continue
		}
		for _, m := range mf.GetMetric() {
			for _, label := range m.GetLabel() {
				if label.GetName() == "outcome" && label.GetValue() == "error" && m.GetCounter().GetValue() == 1 {
					found = true
				}
			}
		}
	}
	if !found {
		t.Fatalf("expected an error outcome to be counted")
	}
}

func TestAggregateRespectsMaxConcurrency(t *testing.T) {
	var page []domain.PlaylistEntry
	for _, id := range []string{"a", "b", "c", "d", "e", "f"} {
		page = append(page, domain.PlaylistEntry{ID: id, Title: id})
	}
	src := &fakeSource{pages: [][]domain.PlaylistEntry{page}, delay: 20 * time.Millisecond}

	agg := NewAggregator(src, AggregatorConfig{PlaylistID: "PLtest", MaxConcurrency: 2}, nil, zap.NewNop())
	records, err := agg.Aggregate(context.Background())
	if err != nil {
		t.Fatalf("expected no error, got %v", err)
	}
	if len(records) != 6 {
		t.Fatalf("expected 6 records, got %d", len(records))
	}
	if peak := src.peak.Load(); peak > 2 {
		t.Fatalf("expected at most 2 concurrent stat fetches, saw %d", peak)
	}
}
