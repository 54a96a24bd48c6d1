package application

import (
	"sort"

	"github.com/wms-platform/allocation-service/internal/domain"
)

const (
	defaultMinSimilarity       = 0.5
	defaultMaxOrdersPerCluster = 8
)

// jaccard is |a ∩ b| / |a ∪ b| over two product sets. Two empty sets
// count as fully similar.
func jaccard(a, b map[string]struct{}) float64 {
	if len(a) == 0 && len(b) == 0 {
		return 1.0
	}
	intersection := 0
	for sku := range a {
		if _, ok := b[sku]; ok {
			intersection++
		}
	}
	union := len(a) + len(b) - intersection
	if union == 0 {
		return 1.0
	}
	return float64(intersection) / float64(union)
}

func unionSets(a, b map[string]struct{}) map[string]struct{} {
	out := make(map[string]struct{}, len(a)+len(b))
	for sku := range a {
		out[sku] = struct{}{}
	}
	for sku := range b {
		out[sku] = struct{}{}
	}
	return out
}

type clusterCandidate struct {
	doc      *domain.DemandDocument
	products map[string]struct{}
}

// suggestClusters groups documents greedily by product-set overlap.
// Each round seeds a cluster with the most similar remaining pair,
// then grows it with whichever document is most similar to the
// cluster's combined product set, as long as that similarity stays at
// or above minSimilarity. Documents that never pair above the
// threshold are left out rather than forced into a poor cluster.
// Candidates are processed in document-ID order so the same input
// always yields the same clusters.
func suggestClusters(docs []*domain.DemandDocument, minSimilarity float64, maxOrders int) []ClusterDTO {
	remaining := make([]clusterCandidate, 0, len(docs))
	for _, doc := range docs {
		remaining = append(remaining, clusterCandidate{doc: doc, products: doc.ProductSet()})
	}
	sort.Slice(remaining, func(i, j int) bool {
		return remaining[i].doc.DocumentID < remaining[j].doc.DocumentID
	})

	clusters := make([]ClusterDTO, 0)

	for len(remaining) >= 2 {
		seedA, seedB, seedSim := bestPair(remaining)
		if seedSim < minSimilarity {
			break
		}

		members := []clusterCandidate{remaining[seedA], remaining[seedB]}
		combined := unionSets(remaining[seedA].products, remaining[seedB].products)
		similarity := seedSim
		remaining = removeAt(remaining, seedA, seedB)

		for len(members) < maxOrders {
			bestIdx := -1
			bestSim := 0.0
			for i, cand := range remaining {
				sim := jaccard(combined, cand.products)
				if sim > bestSim {
					bestIdx = i
					bestSim = sim
				}
			}
			if bestIdx < 0 || bestSim < minSimilarity {
				break
			}
			combined = unionSets(combined, remaining[bestIdx].products)
			members = append(members, remaining[bestIdx])
			similarity = bestSim
			remaining = removeAt(remaining, bestIdx)
		}

		clusters = append(clusters, buildClusterDTO(members, similarity))
	}

	return clusters
}

func bestPair(cands []clusterCandidate) (int, int, float64) {
	bestI, bestJ := -1, -1
	bestSim := -1.0
	for i := 0; i < len(cands); i++ {
		for j := i + 1; j < len(cands); j++ {
			sim := jaccard(cands[i].products, cands[j].products)
			if sim > bestSim {
				bestI, bestJ, bestSim = i, j, sim
			}
		}
	}
	return bestI, bestJ, bestSim
}

func removeAt(cands []clusterCandidate, indexes ...int) []clusterCandidate {
	drop := make(map[int]struct{}, len(indexes))
	for _, idx := range indexes {
		drop[idx] = struct{}{}
	}
	out := cands[:0]
	for i, cand := range cands {
		if _, ok := drop[i]; !ok {
			out = append(out, cand)
		}
	}
	return out
}

func buildClusterDTO(members []clusterCandidate, similarity float64) ClusterDTO {
	ids := make([]string, 0, len(members))
	totalLines := 0
	totalQuantity := 0
	for _, m := range members {
		ids = append(ids, m.doc.DocumentID)
		totalLines += len(m.doc.Lines)
		totalQuantity += m.doc.TotalRequestedQuantity()
	}
	sort.Strings(ids)
	return ClusterDTO{
		DocumentIDs:   ids,
		Similarity:    similarity,
		TotalLines:    totalLines,
		TotalQuantity: totalQuantity,
		Size:          string(domain.SizeForLineCount(totalLines)),
	}
}
