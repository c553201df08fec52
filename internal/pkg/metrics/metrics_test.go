package metrics_test

import (
	"testing"

	"github.com/prometheus/client_golang/prometheus/testutil"

	"github.com/samirrijal/trajprep/internal/pkg/metrics"
)

type poolStat struct {
	acquired, idle, total int32
	empty                 int64
}

func (p poolStat) AcquiredConns() int32     { return p.acquired }
func (p poolStat) IdleConns() int32         { return p.idle }
func (p poolStat) TotalConns() int32        { return p.total }
func (p poolStat) EmptyAcquireCount() int64 { return p.empty }

func TestUpdateDBPoolMetrics(t *testing.T) {
	before := testutil.ToFloat64(metrics.DBPoolEmptyAcquires)

	metrics.UpdateDBPoolMetrics(poolStat{acquired: 3, idle: 2, total: 5, empty: 4})
	if got := testutil.ToFloat64(metrics.DBPoolConnsOpen); got != 5 {
		t.Errorf("expected 5 open conns, got %v", got)
	}
	if got := testutil.ToFloat64(metrics.DBPoolConnsAcquired); got != 3 {
		t.Errorf("expected 3 acquired conns, got %v", got)
	}

	// The counter only advances by the delta between snapshots.
	metrics.UpdateDBPoolMetrics(poolStat{acquired: 1, idle: 4, total: 5, empty: 6})
	if got := testutil.ToFloat64(metrics.DBPoolEmptyAcquires) - before; got != 6 {
		t.Errorf("expected empty acquires to grow by 6, got %v", got)
	}
	if got := testutil.ToFloat64(metrics.DBPoolConnsIdle); got != 4 {
		t.Errorf("expected 4 idle conns, got %v", got)
	}
}
