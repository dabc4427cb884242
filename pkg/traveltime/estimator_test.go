package traveltime

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/paidan/paidan/pkg/model"
)

// fakeProvider 测试用路况服务
type fakeProvider struct {
	cell Cell
	err  error
	hits int
}

func (f *fakeProvider) GetDistanceMatrix(ctx context.Context, origins, destinations []model.Location, opts ProviderOptions) ([][]Cell, error) {
	f.hits++
	if f.err != nil {
		return nil, f.err
	}
	return [][]Cell{{f.cell}}, nil
}

var (
	pointA = &model.Location{Latitude: 40.7128, Longitude: -74.0060}
	pointB = &model.Location{Latitude: 40.7580, Longitude: -73.9855}
)

func TestEstimateHaversine(t *testing.T) {
	e := NewEstimator(nil, nil, DefaultConfig())

	est := e.Estimate(context.Background(), pointA, pointB, time.Time{})
	if est.Source != SourceHaversine {
		t.Fatalf("Source = %s, want %s", est.Source, SourceHaversine)
	}
	// 曼哈顿下城到时代广场约 3.3 英里，30 英里时速约 6-7 分钟
	if est.DistanceMiles < 2 || est.DistanceMiles > 5 {
		t.Errorf("DistanceMiles = %.1f, 期望 2-5 之间", est.DistanceMiles)
	}
	if est.DurationMinutes < 4 || est.DurationMinutes > 10 {
		t.Errorf("DurationMinutes = %d, 期望 4-10 之间", est.DurationMinutes)
	}
}

func TestEstimateDefaultWithoutCoordinates(t *testing.T) {
	e := NewEstimator(nil, nil, DefaultConfig())

	tests := []struct {
		name string
		from *model.Location
		to   *model.Location
	}{
		{"起点缺坐标", &model.Location{Address: "某街道"}, pointB},
		{"终点缺坐标", pointA, &model.Location{Address: "某街道"}},
		{"起点为空", nil, pointB},
		{"两端都为空", nil, nil},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			est := e.Estimate(context.Background(), tt.from, tt.to, time.Time{})
			if est.Source != SourceDefault {
				t.Fatalf("Source = %s, want %s", est.Source, SourceDefault)
			}
			if est.DurationMinutes != 30 || est.DistanceMiles != 15 {
				t.Errorf("默认估算 = %d 分钟 / %.0f 英里, want 30 / 15", est.DurationMinutes, est.DistanceMiles)
			}
		})
	}
}

func TestEstimatePrefersProvider(t *testing.T) {
	p := &fakeProvider{cell: Cell{DurationMinutes: 12, DurationInTrafficMinutes: 18, DistanceMiles: 3.5}}
	e := NewEstimator(p, nil, DefaultConfig())

	est := e.Estimate(context.Background(), pointA, pointB, time.Now())
	if est.Source != SourceProvider {
		t.Fatalf("Source = %s, want %s", est.Source, SourceProvider)
	}
	// 有路况时长时优先使用路况时长
	if est.DurationMinutes != 18 {
		t.Errorf("DurationMinutes = %d, want 18", est.DurationMinutes)
	}
	if p.hits != 1 {
		t.Errorf("路况服务调用次数 = %d, want 1", p.hits)
	}
}

func TestEstimateProviderFailureDegradesSilently(t *testing.T) {
	p := &fakeProvider{err: errors.New("服务不可达")}
	e := NewEstimator(p, nil, DefaultConfig())

	est := e.Estimate(context.Background(), pointA, pointB, time.Time{})
	if est.Source != SourceHaversine {
		t.Fatalf("路况服务失败应降级为直线估算, got %s", est.Source)
	}
	if est.DurationMinutes <= 0 {
		t.Errorf("降级后时长 = %d, 期望为正", est.DurationMinutes)
	}
}

func TestBuildMatrix(t *testing.T) {
	e := NewEstimator(nil, nil, DefaultConfig())
	noCoord := &model.Location{Address: "只有地址"}
	locs := []*model.Location{pointA, pointB, noCoord}

	m := e.BuildMatrix(context.Background(), locs, time.Time{})

	if _, ok := m.Lookup(*pointA, *pointB); !ok {
		t.Error("矩阵应包含 A→B")
	}
	if _, ok := m.Lookup(*pointB, *pointA); !ok {
		t.Error("矩阵应包含 B→A")
	}
	if _, ok := m.Lookup(*pointA, *noCoord); ok {
		t.Error("缺坐标的站点不应进入矩阵")
	}
	if m.Size() != 2 {
		t.Errorf("矩阵元素个数 = %d, want 2", m.Size())
	}
}

func TestCacheNilSafe(t *testing.T) {
	var c *Cache

	if _, ok := c.Get(context.Background(), *pointA, *pointB); ok {
		t.Error("nil 缓存的 Get 应返回未命中")
	}
	// nil 缓存的 Set 不应 panic
	c.Set(context.Background(), *pointA, *pointB, Estimate{DurationMinutes: 10})
}
