// Copyright Amazon.com, Inc. or its affiliates. All Rights Reserved.
// SPDX-License-Identifier: Apache-2.0

package parallel

import (
	"context"
	"errors"
	"fmt"
	"math/rand/v2"
	"sync/atomic"
	"testing"
	"time"

	"github.com/google/go-cmp/cmp"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/goleak"

	"pan-scan/internal/aggregate"
	"pan-scan/internal/detector"
	"pan-scan/internal/router"
)

func TestMain(m *testing.M) {
	goleak.VerifyTestMain(m)
}

type textSource struct {
	name       string
	capability string
	text       string
	err        error
	panics     bool
	delay      time.Duration
	scans      *atomic.Int32
}

func (s *textSource) Name() string       { return s.name }
func (s *textSource) Capability() string { return s.capability }

func (s *textSource) Scan(ctx context.Context, engine *detector.Engine) ([]detector.Finding, error) {
	if s.scans != nil {
		s.scans.Add(1)
	}
	if s.delay > 0 {
		select {
		case <-time.After(s.delay):
		case <-ctx.Done():
			return nil, ctx.Err()
		}
	}
	if s.panics {
		panic("corrupt input")
	}
	if s.err != nil {
		return nil, s.err
	}
	return engine.ScanAt(s.text, detector.Location{detector.LocSource: s.name}, detector.LocContext), nil
}

var cards = []string{
	"4532015112830366",
	"5425233430109903",
	"378282246310005",
	"6011000990139424",
}

func TestProcessSources_OrderIndependentOfCompletion(t *testing.T) {
	var sources []router.Source
	var want []string
	for i := 0; i < 40; i++ {
		card := cards[i%len(cards)]
		sources = append(sources, &textSource{
			name:  fmt.Sprintf("src-%02d", i),
			text:  "pan " + card,
			delay: time.Duration(rand.IntN(5)) * time.Millisecond,
		})
		want = append(want, fmt.Sprintf("src-%02d", i))
	}

	agg := aggregate.New()
	var progressCalls atomic.Int32
	stats, err := NewParallelProcessor(6, nil, nil).ProcessSources(context.Background(), detector.NewEngine(), sources, agg,
		func(completed, total int, _ string) {
			progressCalls.Add(1)
			assert.Equal(t, 40, total)
			assert.LessOrEqual(t, completed, total)
		})
	require.NoError(t, err)

	var got []string
	for _, e := range agg.Entries() {
		got = append(got, e.Source())
	}
	if diff := cmp.Diff(want, got); diff != "" {
		t.Errorf("report order mismatch (-want +got):\n%s", diff)
	}
	assert.Equal(t, 40, stats.ScannedSources)
	assert.Equal(t, 40, stats.TotalFindings)
	assert.Equal(t, 6, stats.WorkerCount)
	assert.EqualValues(t, 40, progressCalls.Load())
}

func TestProcessSources_FailuresBecomeWarnings(t *testing.T) {
	sources := []router.Source{
		&textSource{name: "good", text: cards[0]},
		&textSource{name: "broken", err: errors.New("connection refused")},
		&textSource{name: "panics", panics: true},
		router.NewFailedSource("unreachable", "postgres", errors.New("dial tcp: timeout")),
		&textSource{name: "also-good", text: cards[1]},
	}

	agg := aggregate.New()
	stats, err := NewParallelProcessor(3, nil, nil).ProcessSources(context.Background(), detector.NewEngine(), sources, agg, nil)
	require.NoError(t, err)

	assert.Equal(t, 2, stats.ScannedSources)
	assert.Equal(t, 3, stats.FailedSources)
	assert.Len(t, agg.Entries(), 2)

	warnings := agg.Warnings()
	require.Len(t, warnings, 3)
	assert.Equal(t, "broken", warnings[0].Source)
	assert.Equal(t, "panics", warnings[1].Source)
	assert.Contains(t, warnings[1].Message, "panicked")
	assert.Equal(t, "unreachable", warnings[2].Source)
}

func TestProcessSources_UnavailableCapability(t *testing.T) {
	caps := router.NewCapabilityRegistry()
	caps.Register(router.Capability{Name: "plaintext", Kind: router.KindFile})
	caps.Register(router.Capability{Name: "s3", Kind: router.KindCloud, Probe: router.Enabled(false)})

	var scans atomic.Int32
	sources := []router.Source{
		&textSource{name: "a.txt", capability: "plaintext", text: cards[2], scans: &scans},
		&textSource{name: "s3://b/c.txt", capability: "s3", text: cards[3], scans: &scans},
	}

	agg := aggregate.New()
	_, err := NewParallelProcessor(2, caps, nil).ProcessSources(context.Background(), detector.NewEngine(), sources, agg, nil)
	require.NoError(t, err)

	assert.EqualValues(t, 1, scans.Load(), "unavailable adapter is never invoked")
	require.Len(t, agg.Warnings(), 1)
	assert.Contains(t, agg.Warnings()[0].Message, "disabled in configuration")
}

func TestProcessSources_Cancelled(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())

	var sources []router.Source
	for i := 0; i < 20; i++ {
		sources = append(sources, &textSource{name: fmt.Sprint(i), text: cards[0], delay: time.Second})
	}

	defer cancel()
	time.AfterFunc(20*time.Millisecond, cancel)

	agg := aggregate.New()
	_, err := NewParallelProcessor(2, nil, nil).ProcessSources(ctx, detector.NewEngine(), sources, agg, nil)
	assert.ErrorIs(t, err, context.Canceled)
	assert.Empty(t, agg.Entries())
}

func TestProcessSources_Empty(t *testing.T) {
	stats, err := NewParallelProcessor(0, nil, nil).ProcessSources(context.Background(), detector.NewEngine(), nil, aggregate.New(), nil)
	require.NoError(t, err)
	assert.Equal(t, 0, stats.TotalSources)
	assert.Equal(t, 1, stats.WorkerCount)
}

func TestDefaultWorkers(t *testing.T) {
	n := DefaultWorkers()
	assert.GreaterOrEqual(t, n, 1)
	assert.LessOrEqual(t, n, MaxDefaultWorkers)
	assert.Equal(t, n, NewParallelProcessor(0, nil, nil).Workers())
}
