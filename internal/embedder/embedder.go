// BSE Pipeline - Corporate Announcement Ingestion and Categorization
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/bse-pipeline

// Package embedder populates embedding_shortsummary on dashboard
// entries via an injected text->vector model, batching work across a
// worker pool on CPU or in-process on GPU.
package embedder

import (
	"context"
	"fmt"
	"sync"

	"github.com/tomtom215/bse-pipeline/internal/metrics"
	"github.com/tomtom215/bse-pipeline/internal/models"
)

// Model is the embedding model's interface: a pure function from a
// batch of texts to a batch of L2-normalized vectors, in order. The
// model itself is out of scope; this package only defines how it is
// driven.
type Model interface {
	EncodeBatch(ctx context.Context, texts []string) ([][]float32, error)
}

const (
	// BatchSizeGPU is the GPU in-process batch size.
	BatchSizeGPU = 64
	// BatchSizeCPU is the per-worker batch size on the CPU pool path.
	BatchSizeCPU = 128
)

// Embedder drives Model over dashboard entries.
type Embedder struct {
	model     Model
	useGPU    bool
	numWorkers int
}

// New builds an Embedder. numWorkers is the CPU worker pool size
// (ignored when useGPU is true, where encoding runs in-process).
func New(model Model, useGPU bool, numWorkers int) *Embedder {
	if numWorkers < 1 {
		numWorkers = 1
	}
	return &Embedder{model: model, useGPU: useGPU, numWorkers: numWorkers}
}

// Embed populates embedding_shortsummary on every entry in docs from
// its ShortSummary field, in place, preserving input order. Empty
// strings are embedded like any other text, not skipped.
func (e *Embedder) Embed(ctx context.Context, docs []models.DashboardEntry) error {
	if len(docs) == 0 {
		return nil
	}

	texts := make([]string, len(docs))
	for i, d := range docs {
		texts[i] = d.ShortSummary
	}

	var embeddings [][]float32
	var err error
	if e.useGPU {
		embeddings, err = e.embedBatched(ctx, texts, BatchSizeGPU, 1)
	} else {
		embeddings, err = e.embedBatched(ctx, texts, BatchSizeCPU, e.numWorkers)
	}
	if err != nil {
		return fmt.Errorf("embed docs: %w", err)
	}

	for i := range docs {
		docs[i].EmbeddingShortSummary = embeddings[i]
	}
	metrics.EmbeddingsGeneratedTotal.Add(float64(len(docs)))
	return nil
}

// embedBatched splits texts into chunks of batchSize and runs up to
// concurrency chunks at a time through the model, re-aligning results
// to input order regardless of completion order. Cancelling ctx stops
// any further chunk dispatch.
func (e *Embedder) embedBatched(ctx context.Context, texts []string, batchSize, concurrency int) ([][]float32, error) {
	type chunk struct {
		start int
		texts []string
	}
	var chunks []chunk
	for i := 0; i < len(texts); i += batchSize {
		end := i + batchSize
		if end > len(texts) {
			end = len(texts)
		}
		chunks = append(chunks, chunk{start: i, texts: texts[i:end]})
	}

	out := make([][]float32, len(texts))
	sem := make(chan struct{}, concurrency)
	var wg sync.WaitGroup
	var mu sync.Mutex
	var firstErr error

	for _, c := range chunks {
		select {
		case <-ctx.Done():
			return nil, ctx.Err()
		default:
		}
		wg.Add(1)
		go func(c chunk) {
			defer wg.Done()
			sem <- struct{}{}
			defer func() { <-sem }()

			embs, err := e.model.EncodeBatch(ctx, c.texts)
			mu.Lock()
			defer mu.Unlock()
			if err != nil {
				if firstErr == nil {
					firstErr = err
				}
				return
			}
			for j, emb := range embs {
				out[c.start+j] = emb
			}
		}(c)
	}
	wg.Wait()

	if firstErr != nil {
		return nil, firstErr
	}
	return out, nil
}
