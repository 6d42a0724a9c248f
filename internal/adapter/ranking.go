package adapter

import (
	"cmp"
	"slices"

	"github.com/tuesfest/yt-leaderboard/internal/domain"
)

// Rank orders videos for display and assigns competition ranks: equal primary
// counts share a rank and the next distinct count skips ahead, so
// [100 100 50 50 10] ranks as [1 1 3 3 5]. The input slice is left untouched.
func Rank(videos []domain.VideoRecord, key domain.SortKey) []domain.RankedVideo {
	if !key.IsValid() {
		key = domain.SortByViews
	}

	sorted := slices.Clone(videos)
	slices.SortFunc(sorted, func(a, b domain.VideoRecord) int {
		pa, sa := sortValues(a, key)
		pb, sb := sortValues(b, key)
		if c := cmp.Compare(pb, pa); c != 0 {
			return c
		}
		if c := cmp.Compare(sb, sa); c != 0 {
			return c
		}
		if c := cmp.Compare(a.Title, b.Title); c != 0 {
			return c
		}
		return cmp.Compare(a.ID, b.ID)
	})

	ranked := make([]domain.RankedVideo, len(sorted))
	for i, video := range sorted {
		rank := i + 1
		if i > 0 {
			prev, _ := sortValues(sorted[i-1], key)
			cur, _ := sortValues(video, key)
			if prev == cur {
				rank = ranked[i-1].Rank
			}
		}
		ranked[i] = domain.RankedVideo{VideoRecord: video, Rank: rank}
	}

	return ranked
}

// sortValues returns the primary and tie-breaking counts for key.
func sortValues(v domain.VideoRecord, key domain.SortKey) (primary, secondary uint64) {
	if key == domain.SortByLikes {
		return v.Likes, v.Views
	}
	return v.Views, v.Likes
}
