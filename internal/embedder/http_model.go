// BSE Pipeline - Corporate Announcement Ingestion and Categorization
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/bse-pipeline

package embedder

import (
	"bytes"
	"context"
	"fmt"
	"io"
	"net/http"

	"github.com/goccy/go-json"
)

// maxErrorBodySize bounds how much of an error response body is read
// back for diagnostics.
const maxErrorBodySize = 64 * 1024

// HTTPModel is a Model that delegates encoding to an external HTTP
// service, treating it as the "pure function text -> unit-norm
// vector" external collaborator: this package never ships a concrete
// embedding model, only the boundary to one.
type HTTPModel struct {
	url    string
	client *http.Client
}

// NewHTTPModel builds an HTTPModel posting batches to url.
func NewHTTPModel(url string, client *http.Client) *HTTPModel {
	return &HTTPModel{url: url, client: client}
}

type encodeBatchRequest struct {
	Texts []string `json:"texts"`
}

type encodeBatchResponse struct {
	Embeddings [][]float32 `json:"embeddings"`
}

// EncodeBatch posts texts to the configured endpoint and returns the
// decoded embeddings, in the same order as texts.
func (m *HTTPModel) EncodeBatch(ctx context.Context, texts []string) ([][]float32, error) {
	body, err := json.Marshal(encodeBatchRequest{Texts: texts})
	if err != nil {
		return nil, fmt.Errorf("marshal encode request: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, m.url, bytes.NewReader(body))
	if err != nil {
		return nil, fmt.Errorf("build encode request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")

	resp, err := m.client.Do(req)
	if err != nil {
		return nil, fmt.Errorf("do encode request: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return nil, fmt.Errorf("encode request failed with status %d: %s", resp.StatusCode, readBodyForError(resp.Body))
	}

	var out encodeBatchResponse
	if err := json.NewDecoder(resp.Body).Decode(&out); err != nil {
		return nil, fmt.Errorf("decode encode response: %w", err)
	}
	if len(out.Embeddings) != len(texts) {
		return nil, fmt.Errorf("encode response: got %d embeddings for %d texts", len(out.Embeddings), len(texts))
	}
	return out.Embeddings, nil
}

func readBodyForError(r io.Reader) []byte {
	body, err := io.ReadAll(io.LimitReader(r, maxErrorBodySize))
	if err != nil {
		return []byte("(failed to read response body)")
	}
	return body
}
