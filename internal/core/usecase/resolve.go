package usecase

import (
	"math"

	"github.com/kirillkom/docnav/internal/core/domain"
)

// GeometryTolerance is the maximum per-edge distance, as a fraction of the page
// extent, for a chunk to match a reference box.
const GeometryTolerance = 0.05

// ResolveChunkReference finds the chunk a reference points at inside result.
// An id match always wins over geometry. The geometric fallback only runs when
// the reference carries both a page and a box.
func ResolveChunkReference(ref domain.ChunkReference, result *domain.ParseResult) (domain.Chunk, domain.Resolution) {
	if result == nil {
		return domain.Chunk{}, domain.Unresolved
	}

	if chunk, ok := resolveByID(ref.ChunkIDs, result.Chunks); ok {
		return chunk, domain.ResolvedByID
	}

	if ref.Page == nil || ref.BBox == nil {
		return domain.Chunk{}, domain.Unresolved
	}
	if chunk, ok := resolveByGeometry(*ref.Page, *ref.BBox, result.Chunks); ok {
		return chunk, domain.ResolvedByGeometry
	}
	return domain.Chunk{}, domain.Unresolved
}

func resolveByID(ids []string, chunks []domain.Chunk) (domain.Chunk, bool) {
	if len(ids) == 0 {
		return domain.Chunk{}, false
	}
	wanted := make(map[string]struct{}, len(ids))
	for _, id := range ids {
		wanted[id] = struct{}{}
	}
	for _, c := range chunks {
		if _, ok := wanted[c.ID]; ok {
			return c, true
		}
	}
	return domain.Chunk{}, false
}

func resolveByGeometry(page int, box domain.BoundingBox, chunks []domain.Chunk) (domain.Chunk, bool) {
	var (
		best      domain.Chunk
		bestScore = math.Inf(1)
		found     bool
	)
	for _, c := range chunks {
		if c.Grounding == nil || c.Grounding.Page != page {
			continue
		}
		score, eligible := boxDistance(box, c.Grounding.Box)
		if !eligible {
			continue
		}
		// strict comparison keeps the earliest chunk on ties
		if score < bestScore {
			best, bestScore, found = c, score, true
		}
	}
	return best, found
}

func boxDistance(a, b domain.BoundingBox) (float64, bool) {
	edges := [4]float64{
		math.Abs(a.Left - b.Left),
		math.Abs(a.Top - b.Top),
		math.Abs(a.Right - b.Right),
		math.Abs(a.Bottom - b.Bottom),
	}
	sum := 0.0
	for _, d := range edges {
		if d > GeometryTolerance {
			return 0, false
		}
		sum += d
	}
	return sum, true
}
