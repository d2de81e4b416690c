// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

package metrics

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestRecordSearch(t *testing.T) {
	before := testutil.ToFloat64(SearchQueries.WithLabelValues("test-provider", OutcomeError))
	RecordSearch("test-provider", OutcomeError, 0.2)
	after := testutil.ToFloat64(SearchQueries.WithLabelValues("test-provider", OutcomeError))
	assert.Equal(t, before+1, after)
}

func TestRecordPass(t *testing.T) {
	rounds := testutil.ToFloat64(RefinementRounds)
	dropped := testutil.ToFloat64(CitationsDropped)

	RecordPass("done", 2, 0, 1)

	assert.Equal(t, rounds+2, testutil.ToFloat64(RefinementRounds))
	assert.Equal(t, dropped+1, testutil.ToFloat64(CitationsDropped))
}

func TestWriteFile(t *testing.T) {
	RecordPhase("COMPOSE", 0.5)
	path := filepath.Join(t.TempDir(), "metrics.prom")

	require.NoError(t, WriteFile(path))

	data, err := os.ReadFile(path)
	require.NoError(t, err)
	assert.Contains(t, string(data), "marketing_research_phase_duration_seconds")
}
