// BSE Pipeline - Corporate Announcement Ingestion and Categorization
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/bse-pipeline

package supervisor

import (
	"context"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type fakeNotifier struct {
	mu       sync.Mutex
	messages []string
}

func (n *fakeNotifier) Notify(ctx context.Context, message string) error {
	n.mu.Lock()
	defer n.mu.Unlock()
	n.messages = append(n.messages, message)
	return nil
}

func (n *fakeNotifier) all() []string {
	n.mu.Lock()
	defer n.mu.Unlock()
	return append([]string(nil), n.messages...)
}

func TestClassify_DetectsErrorKeywords(t *testing.T) {
	assert.Equal(t, LevelError, classify("2024/01/01 ERROR: something broke"))
	assert.Equal(t, LevelError, classify("panic: runtime error"))
	assert.Equal(t, LevelError, classify("FATAL: cannot continue"))
}

func TestClassify_DetectsWarnKeyword(t *testing.T) {
	assert.Equal(t, LevelWarning, classify("WARN: retrying request"))
}

func TestClassify_DefaultsToInfo(t *testing.T) {
	assert.Equal(t, LevelInfo, classify("starting up"))
}

func TestConsumeStderr_DropsInfoLines(t *testing.T) {
	d := NewDigest(&fakeNotifier{}, time.Hour, 90)
	d.ConsumeStderr(strings.NewReader("info: starting\nmore info\n"))
	assert.Empty(t, d.batched)
}

func TestConsumeStderr_BatchesWarningsAndErrors(t *testing.T) {
	d := NewDigest(&fakeNotifier{}, time.Hour, 90)
	d.ConsumeStderr(strings.NewReader("ERROR: disk full\nWARN: slow response\n"))
	assert.Len(t, d.batched, 2)
}

func TestAdd_CollapsesSimilarLinesAtThreshold(t *testing.T) {
	d := NewDigest(&fakeNotifier{}, time.Hour, 80)
	d.add(LevelError, "connection to host 10.0.0.1 timed out")
	d.add(LevelError, "connection to host 10.0.0.2 timed out")
	require.Len(t, d.batched, 1)
	assert.Equal(t, 2, d.batched[0].count)
}

func TestAdd_DoesNotCollapseAcrossLevels(t *testing.T) {
	d := NewDigest(&fakeNotifier{}, time.Hour, 50)
	d.add(LevelWarning, "retrying")
	d.add(LevelError, "retrying")
	assert.Len(t, d.batched, 2)
}

func TestFlush_EmptyBatchDoesNotNotify(t *testing.T) {
	notifier := &fakeNotifier{}
	d := NewDigest(notifier, time.Hour, 90)
	d.flush(t.Context())
	assert.Empty(t, notifier.all())
}

func TestFlush_FormatsLevelAndCount(t *testing.T) {
	notifier := &fakeNotifier{}
	d := NewDigest(notifier, time.Hour, 90)
	d.add(LevelError, "disk full")
	d.add(LevelError, "disk full")
	d.flush(t.Context())
	require.Len(t, notifier.all(), 1)
	msg := notifier.all()[0]
	assert.Contains(t, msg, "ERROR: disk full")
	assert.Contains(t, msg, "(x2)")
}

func TestServe_FlushesOnContextCancel(t *testing.T) {
	notifier := &fakeNotifier{}
	d := NewDigest(notifier, time.Hour, 90)
	d.add(LevelWarning, "slow response")

	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan error, 1)
	go func() { done <- d.Serve(ctx) }()
	cancel()

	select {
	case err := <-done:
		assert.ErrorIs(t, err, context.Canceled)
	case <-time.After(time.Second):
		t.Fatal("Serve did not return after context cancellation")
	}
	require.Len(t, notifier.all(), 1)
	assert.Contains(t, notifier.all()[0], "WARNING: slow response")
}

func TestSimilarity_IdenticalStringsIsFullMatch(t *testing.T) {
	assert.Equal(t, 100.0, similarity("abc", "abc"))
}

func TestSimilarity_EmptyStringsIsFullMatch(t *testing.T) {
	assert.Equal(t, 100.0, similarity("", ""))
}

func TestSimilarity_CompletelyDifferentIsLow(t *testing.T) {
	assert.Less(t, similarity("abc", "xyz"), 50.0)
}

func TestLevenshtein_SingleCharacterEdit(t *testing.T) {
	assert.Equal(t, 1, levenshtein("cat", "cot"))
}

func TestLevenshtein_EmptyVsNonEmpty(t *testing.T) {
	assert.Equal(t, 3, levenshtein("", "abc"))
}

func TestItoa_PositiveAndNegativeAndZero(t *testing.T) {
	assert.Equal(t, "0", itoa(0))
	assert.Equal(t, "42", itoa(42))
	assert.Equal(t, "-7", itoa(-7))
}
