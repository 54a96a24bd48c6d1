package application

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestJaccard(t *testing.T) {
	set := func(skus ...string) map[string]struct{} {
		out := make(map[string]struct{}, len(skus))
		for _, sku := range skus {
			out[sku] = struct{}{}
		}
		return out
	}

	tests := []struct {
		name string
		a    []string
		b    []string
		want float64
	}{
		{name: "identical", a: []string{"P1", "P2"}, b: []string{"P1", "P2"}, want: 1.0},
		{name: "disjoint", a: []string{"P1"}, b: []string{"P2"}, want: 0.0},
		{name: "two of three shared", a: []string{"P1", "P2"}, b: []string{"P1", "P2", "P3"}, want: 2.0 / 3.0},
		{name: "both empty", a: nil, b: nil, want: 1.0},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.InDelta(t, tt.want, jaccard(set(tt.a...), set(tt.b...)), 1e-9)
		})
	}
}

func TestSuggestClustersGrowsByOverlap(t *testing.T) {
	// A and B share their whole product set, C overlaps two of three,
	// D has nothing in common. Expect one cluster {A,B,C} at 0.67 and
	// D left out.
	e := newEnv()
	e.seedDocument(t, "ORD-A", itemLine("P1", 1), itemLine("P2", 1))
	e.seedDocument(t, "ORD-B", itemLine("P1", 2), itemLine("P2", 2))
	e.seedDocument(t, "ORD-C", itemLine("P1", 1), itemLine("P2", 1), itemLine("P3", 1))
	e.seedDocument(t, "ORD-D", itemLine("P9", 4))

	svc := e.waveService()
	clusters, err := svc.SuggestClusters(context.Background(), SuggestClustersCommand{MinSimilarity: 0.5})
	require.NoError(t, err)
	require.Len(t, clusters, 1)

	cluster := clusters[0]
	assert.Equal(t, []string{"ORD-A", "ORD-B", "ORD-C"}, cluster.DocumentIDs)
	assert.InDelta(t, 2.0/3.0, cluster.Similarity, 1e-9)
	assert.Equal(t, 7, cluster.TotalLines)
	assert.Equal(t, 9, cluster.TotalQuantity)
	assert.Equal(t, "XS", cluster.Size)
}

func TestSuggestClustersHonorsThreshold(t *testing.T) {
	// At 0.7 the partial overlap with C is no longer good enough
	e := newEnv()
	e.seedDocument(t, "ORD-A", itemLine("P1", 1), itemLine("P2", 1))
	e.seedDocument(t, "ORD-B", itemLine("P1", 2), itemLine("P2", 2))
	e.seedDocument(t, "ORD-C", itemLine("P1", 1), itemLine("P2", 1), itemLine("P3", 1))

	svc := e.waveService()
	clusters, err := svc.SuggestClusters(context.Background(), SuggestClustersCommand{MinSimilarity: 0.7})
	require.NoError(t, err)
	require.Len(t, clusters, 1)
	assert.Equal(t, []string{"ORD-A", "ORD-B"}, clusters[0].DocumentIDs)
	assert.InDelta(t, 1.0, clusters[0].Similarity, 1e-9)
}

func TestSuggestClustersCapsClusterSize(t *testing.T) {
	e := newEnv()
	ids := []string{"ORD-1", "ORD-2", "ORD-3", "ORD-4", "ORD-5"}
	for _, id := range ids {
		e.seedDocument(t, id, itemLine("P1", 1))
	}

	svc := e.waveService()
	clusters, err := svc.SuggestClusters(context.Background(), SuggestClustersCommand{MinSimilarity: 0.5, MaxOrdersPerCluster: 3})
	require.NoError(t, err)
	require.Len(t, clusters, 2)
	assert.Len(t, clusters[0].DocumentIDs, 3)
	assert.Len(t, clusters[1].DocumentIDs, 2)
}

func TestSuggestClustersSkipsWavedAndUnapproved(t *testing.T) {
	e := newEnv()
	e.seedDocument(t, "ORD-1", itemLine("P1", 1))
	e.seedDocument(t, "ORD-2", itemLine("P1", 1))
	waved := e.seedDocument(t, "ORD-3", itemLine("P1", 1))
	require.NoError(t, waved.AssignToWave("WV-1"))

	svc := e.waveService()
	clusters, err := svc.SuggestClusters(context.Background(), SuggestClustersCommand{})
	require.NoError(t, err)
	require.Len(t, clusters, 1)
	assert.Equal(t, []string{"ORD-1", "ORD-2"}, clusters[0].DocumentIDs)
}
