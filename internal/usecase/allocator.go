package usecase

import (
	"sort"

	"CrawlPipe/internal/domain"
)

// Allocate maps each delta URL to the next sequential per-source index,
// starting at articleCnt+1. The delta is sorted lexicographically first so
// the same delta always yields the same (index, url) pairs: a run replayed
// after a crash re-derives identical allocations because articleCnt only
// advances at commit.
func Allocate(articleCnt int, delta []string) []domain.Allocation {
	sorted := make([]string, len(delta))
	copy(sorted, delta)
	sort.Strings(sorted)

	allocations := make([]domain.Allocation, len(sorted))
	for i, url := range sorted {
		allocations[i] = domain.Allocation{Index: articleCnt + i + 1, URL: url}
	}
	return allocations
}
