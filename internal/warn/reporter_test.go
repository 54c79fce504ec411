package warn

import (
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap/zaptest"

	"vaultScope/internal/model"
	"vaultScope/internal/storage"
)

func TestReportRecordsKind(t *testing.T) {
	sink := &storage.MemoryWarnings{}
	r := NewReporter("backfill", sink, zaptest.NewLogger(t))

	r.Report("0xabc", model.ScopeDay, "2025-09-21", model.Wrap(model.ErrSnapshotUnavailable, "snapshot", errors.New("execution reverted")))
	r.Report("0xabc", model.ScopeDay, "2025-09-22", nil)

	got := sink.All()
	require.Len(t, got, 1)
	assert.Equal(t, "backfill", got[0].Job)
	assert.Equal(t, "2025-09-21", got[0].Key)
	assert.Equal(t, model.ErrSnapshotUnavailable.Error(), got[0].Kind)
	assert.Contains(t, got[0].Message, "execution reverted")
}

func TestNilReporterIsSafe(t *testing.T) {
	var r *Reporter
	r.Report("0xabc", model.ScopeDay, "2025-09-21", errors.New("boom"))
}
