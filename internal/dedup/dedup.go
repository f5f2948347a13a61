// BSE Pipeline - Corporate Announcement Ingestion and Categorization
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/bse-pipeline

// Package dedup clusters near-duplicate dashboard entries per company
// by cosine similarity of sentence embeddings, marking all but the
// earliest of each cluster as duplicate, and offers the Livesquack
// pre-insert variant that filters incoming entries against the
// existing dashboard before they are ever written.
package dedup

import (
	"context"
	"fmt"
	"math"
	"time"

	"github.com/tomtom215/bse-pipeline/internal/logging"
	"github.com/tomtom215/bse-pipeline/internal/metrics"
	"github.com/tomtom215/bse-pipeline/internal/models"
	"github.com/tomtom215/bse-pipeline/internal/store"
)

// DefaultThreshold is the post-insert BSE deduplicator's similarity
// threshold (DASHBOARD_DEDUP_THRESHOLD's documented default).
const DefaultThreshold = 0.80

// DefaultLivesquackThreshold is the pre-insert variant's threshold
// (EMBEDDING_TEXT_THRESHOLD's documented default).
const DefaultLivesquackThreshold = 0.70

// Dashboard runs the post-insert BSE deduplicator.
type Dashboard struct {
	Store     store.DashboardStore
	Threshold float64
}

// NewDashboard builds a Dashboard deduplicator with DefaultThreshold.
func NewDashboard(s store.DashboardStore) *Dashboard {
	return &Dashboard{Store: s, Threshold: DefaultThreshold}
}

// Run marks duplicates across recent dashboard entries for companies,
// using since as the lookback cutoff (now - NO_OF_DAYS_CHECK, computed
// by the caller). Returns the number of entries newly marked as
// duplicate.
func (d *Dashboard) Run(ctx context.Context, companies []string, since time.Time) (int64, error) {
	start := time.Now()
	defer func() {
		metrics.DashboardDedupDuration.Observe(time.Since(start).Seconds())
	}()

	grouped, err := d.Store.FindForDedup(ctx, companies, since, models.CategoriesExcludedFromDashboardDedup)
	if err != nil {
		return 0, fmt.Errorf("load dashboard entries for dedup: %w", err)
	}

	var allDuplicateIDs []string
	for company, docs := range grouped {
		if len(docs) < 2 {
			continue
		}
		dupIdx := clusterDuplicates(docs, d.Threshold)
		for _, i := range dupIdx {
			allDuplicateIDs = append(allDuplicateIDs, docs[i].ID)
		}
		if len(dupIdx) > 0 {
			logging.Info().Str("company", company).Int("duplicates", len(dupIdx)).Msg("dashboard dedup: duplicates marked")
		}
	}

	if len(allDuplicateIDs) == 0 {
		return 0, nil
	}
	marked, err := d.Store.MarkDuplicates(ctx, allDuplicateIDs)
	if err == nil {
		metrics.DashboardDuplicatesMarkedTotal.Add(float64(marked))
	}
	return marked, err
}

// clusterDuplicates builds an inner-product similarity graph over
// docs (each must carry a unit-norm or near-unit-norm embedding),
// connects edges where similarity exceeds threshold, and returns the
// indices of every non-canonical member of every cluster of size >= 2
// (canonical = earliest DtTm in the cluster).
func clusterDuplicates(docs []models.DashboardEntry, threshold float64) []int {
	n := len(docs)
	normed := make([][]float32, n)
	for i, d := range docs {
		normed[i] = l2Normalize(d.EmbeddingShortSummary)
	}

	uf := newUnionFind(n)
	k := 50
	if n < k {
		k = n
	}
	for i := 0; i < n; i++ {
		sims := topKSimilar(normed, i, k)
		for _, s := range sims {
			if s.index != i && s.score > threshold {
				uf.union(i, s.index)
			}
		}
	}

	groups := make(map[int][]int)
	for i := 0; i < n; i++ {
		root := uf.find(i)
		groups[root] = append(groups[root], i)
	}

	var duplicates []int
	for _, members := range groups {
		if len(members) < 2 {
			continue
		}
		canonical := members[0]
		for _, i := range members[1:] {
			if docs[i].DtTm.Before(docs[canonical].DtTm) {
				canonical = i
			}
		}
		for _, i := range members {
			if i != canonical {
				duplicates = append(duplicates, i)
			}
		}
	}
	return duplicates
}

type scoredIndex struct {
	index int
	score float64
}

// topKSimilar returns the k highest-similarity neighbors of vectors[at]
// among vectors (excluding itself), scored by inner product. A brute
// force scan stands in for an ANN index at this scale (companies'
// recent windows are small).
func topKSimilar(vectors [][]float32, at, k int) []scoredIndex {
	scores := make([]scoredIndex, 0, len(vectors)-1)
	for i, v := range vectors {
		if i == at {
			continue
		}
		scores = append(scores, scoredIndex{index: i, score: innerProduct(vectors[at], v)})
	}
	// partial selection sort for the top k; n is small in practice.
	for i := 0; i < k && i < len(scores); i++ {
		best := i
		for j := i + 1; j < len(scores); j++ {
			if scores[j].score > scores[best].score {
				best = j
			}
		}
		scores[i], scores[best] = scores[best], scores[i]
	}
	if k > len(scores) {
		k = len(scores)
	}
	return scores[:k]
}

func innerProduct(a, b []float32) float64 {
	var sum float64
	n := len(a)
	if len(b) < n {
		n = len(b)
	}
	for i := 0; i < n; i++ {
		sum += float64(a[i]) * float64(b[i])
	}
	return sum
}

func l2Normalize(v []float32) []float32 {
	var sumSq float64
	for _, x := range v {
		sumSq += float64(x) * float64(x)
	}
	norm := math.Sqrt(sumSq)
	if norm == 0 {
		return v
	}
	out := make([]float32, len(v))
	for i, x := range v {
		out[i] = float32(float64(x) / norm)
	}
	return out
}

type unionFind struct{ parent []int }

func newUnionFind(n int) *unionFind {
	p := make([]int, n)
	for i := range p {
		p[i] = i
	}
	return &unionFind{parent: p}
}

func (u *unionFind) find(x int) int {
	for u.parent[x] != x {
		u.parent[x] = u.parent[u.parent[x]]
		x = u.parent[x]
	}
	return x
}

func (u *unionFind) union(x, y int) {
	px, py := u.find(x), u.find(y)
	if px != py {
		u.parent[px] = py
	}
}
