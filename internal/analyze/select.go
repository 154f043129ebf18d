package analyze

import (
	"sort"

	"github.com/halcyonlab/creatorlens/internal/tiktok"
)

// DefaultTargetCount is the number of representative videos sent on for media
// analysis.
const DefaultTargetCount = 3

// SelectRepresentative picks up to targetCount videos: category matches
// first, ranked by play count, topped up from the remaining population when
// the category falls short. Sorting is stable so equal play counts keep
// their original relative order and the output is deterministic.
func SelectRepresentative(records, categoryMatches []tiktok.Video, targetCount int) []tiktok.Video {
	if targetCount <= 0 {
		targetCount = DefaultTargetCount
	}

	selected := make([]tiktok.Video, 0, targetCount)
	taken := make(map[string]struct{}, targetCount)

	for _, v := range sortByPlaysDesc(categoryMatches) {
		if len(selected) == targetCount {
			break
		}
		if _, dup := taken[v.ID]; dup {
			continue
		}
		taken[v.ID] = struct{}{}
		selected = append(selected, v)
	}

	if len(selected) < targetCount {
		for _, v := range sortByPlaysDesc(records) {
			if len(selected) == targetCount {
				break
			}
			if _, dup := taken[v.ID]; dup {
				continue
			}
			taken[v.ID] = struct{}{}
			selected = append(selected, v)
		}
	}

	return selected
}

func sortByPlaysDesc(videos []tiktok.Video) []tiktok.Video {
	sorted := make([]tiktok.Video, len(videos))
	copy(sorted, videos)
	sort.SliceStable(sorted, func(i, j int) bool {
		return sorted[i].Stats.PlayCount > sorted[j].Stats.PlayCount
	})
	return sorted
}
