package feed

import (
	"sort"

	"github.com/tOgg1/nostrfeed/internal/models"
)

// SortNewestFirst orders posts by authored time descending, stable on ties.
func SortNewestFirst(posts []models.Post) {
	sort.SliceStable(posts, func(i, j int) bool {
		return models.NewestFirst(posts[i], posts[j])
	})
}
