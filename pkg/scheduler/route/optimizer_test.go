package route

import (
	"context"
	"testing"

	"github.com/paidan/paidan/pkg/model"
	"github.com/paidan/paidan/pkg/traveltime"
)

func jobAt(title string, lat, lon float64, urgency model.Urgency) *model.Job {
	return &model.Job{
		BaseModel:       model.NewBaseModel(),
		Title:           title,
		Location:        &model.Location{Latitude: lat, Longitude: lon},
		DurationMinutes: 60,
		Urgency:         urgency,
	}
}

func newTestOptimizer() *Optimizer {
	estimator := traveltime.NewEstimator(nil, nil, traveltime.DefaultConfig())
	return NewOptimizer(NewScorer(estimator, nil, DefaultWeights()))
}

func TestOptimizeEmptyRoute(t *testing.T) {
	o := newTestOptimizer()
	result := o.Optimize(context.Background(), nil, nil, 480)
	if len(result.OptimizedOrder) != 0 || result.Score.Total != 0 {
		t.Errorf("空路线优化结果 = %+v, 期望空", result)
	}
}

// 紧急工单必须被搬到标准工单之前
func TestOptimizeMovesEmergencyFirst(t *testing.T) {
	a := &model.Job{BaseModel: model.NewBaseModel(), Title: "A", DurationMinutes: 60, Urgency: model.UrgencyStandard}
	b := &model.Job{BaseModel: model.NewBaseModel(), Title: "B", DurationMinutes: 60, Urgency: model.UrgencyEmergency}

	o := newTestOptimizer()
	result := o.Optimize(context.Background(), []*model.Job{a, b}, nil, 480)

	if len(result.OptimizedOrder) != 2 {
		t.Fatalf("OptimizedOrder 长度 = %d, want 2", len(result.OptimizedOrder))
	}
	if result.OptimizedOrder[0] != b.ID || result.OptimizedOrder[1] != a.ID {
		t.Errorf("优化后顺序 = [%s, %s], 期望紧急工单在前",
			result.Jobs[0].Title, result.Jobs[1].Title)
	}
}

// 2-opt 与 or-opt 对输入评分单调不回退
func TestLocalSearchNonRegression(t *testing.T) {
	jobs := []*model.Job{
		jobAt("东北角", 40.80, -73.90, model.UrgencyStandard),
		jobAt("西南角", 40.70, -74.02, model.UrgencyStandard),
		jobAt("市中心", 40.75, -73.98, model.UrgencyUrgent),
		jobAt("北郊", 40.85, -73.88, model.UrgencyFlexible),
		jobAt("南端", 40.68, -74.04, model.UrgencyStandard),
	}
	start := &model.Location{Latitude: 40.75, Longitude: -73.99}

	o := newTestOptimizer()
	ctx := context.Background()

	inputScore := o.scorer.Score(ctx, jobs, start, 480).Breakdown.Total

	afterTwoOpt := o.twoOpt(ctx, jobs, start, 480)
	twoOptScore := o.scorer.Score(ctx, afterTwoOpt, start, 480).Breakdown.Total
	if twoOptScore > inputScore {
		t.Errorf("2-opt 后评分 %v 高于输入 %v", twoOptScore, inputScore)
	}

	afterOrOpt := o.orOpt(ctx, afterTwoOpt, start, 480)
	orOptScore := o.scorer.Score(ctx, afterOrOpt, start, 480).Breakdown.Total
	if orOptScore > twoOptScore {
		t.Errorf("or-opt 后评分 %v 高于 2-opt 后 %v", orOptScore, twoOptScore)
	}
}

// 已收敛的两工单路线再跑局部搜索应保持原序
func TestLocalSearchStableOnConvergedRoute(t *testing.T) {
	near := jobAt("近站", 40.76, -73.98, model.UrgencyStandard)
	far := jobAt("远站", 40.90, -73.80, model.UrgencyStandard)
	start := &model.Location{Latitude: 40.75, Longitude: -73.99}

	o := newTestOptimizer()
	ctx := context.Background()
	jobs := []*model.Job{near, far}

	afterTwoOpt := o.twoOpt(ctx, jobs, start, 480)
	afterOrOpt := o.orOpt(ctx, afterTwoOpt, start, 480)

	if afterOrOpt[0].ID != near.ID || afterOrOpt[1].ID != far.ID {
		t.Error("已最优的路线不应被改变顺序")
	}
}

func TestOptimizeImprovementPercent(t *testing.T) {
	jobs := []*model.Job{
		jobAt("甲", 40.80, -73.90, model.UrgencyStandard),
		jobAt("乙", 40.70, -74.02, model.UrgencyEmergency),
		jobAt("丙", 40.75, -73.98, model.UrgencyStandard),
	}
	start := &model.Location{Latitude: 40.75, Longitude: -73.99}

	o := newTestOptimizer()
	result := o.Optimize(context.Background(), jobs, start, 480)

	if len(result.InitialOrder) != 3 || len(result.OptimizedOrder) != 3 {
		t.Fatalf("顺序长度异常: initial %d, optimized %d", len(result.InitialOrder), len(result.OptimizedOrder))
	}
	if result.Score.Total > result.InitialScore {
		t.Errorf("优化后评分 %v 高于初始评分 %v", result.Score.Total, result.InitialScore)
	}
	if result.ImprovementPercent < 0 {
		t.Errorf("ImprovementPercent = %v, 期望非负", result.ImprovementPercent)
	}
}

func TestRelocate(t *testing.T) {
	a := jobAt("a", 0, 0, model.UrgencyStandard)
	b := jobAt("b", 0, 0, model.UrgencyStandard)
	c := jobAt("c", 0, 0, model.UrgencyStandard)

	tests := []struct {
		name     string
		from, to int
		want     []string
	}{
		{"后移", 0, 1, []string{"b", "a", "c"}},
		{"移到末尾", 0, 2, []string{"b", "c", "a"}},
		{"前移", 2, 0, []string{"c", "a", "b"}},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := relocate([]*model.Job{a, b, c}, tt.from, tt.to)
			for i, title := range tt.want {
				if got[i].Title != title {
					t.Fatalf("relocate(%d,%d) = %v, want %v", tt.from, tt.to, titles(got), tt.want)
				}
			}
		})
	}
}

func titles(jobs []*model.Job) []string {
	out := make([]string, len(jobs))
	for i, j := range jobs {
		out[i] = j.Title
	}
	return out
}

func TestSelectDeparture(t *testing.T) {
	jobs := []*model.Job{
		jobAt("上午单", 40.76, -73.98, model.UrgencyStandard),
	}
	jobs[0].DayPreference = model.DayPreferenceMorning
	start := &model.Location{Latitude: 40.75, Longitude: -73.99}
	estimator := traveltime.NewEstimator(nil, nil, traveltime.DefaultConfig())

	result := SelectDeparture(context.Background(), jobs, start, "2026-03-02", estimator, DefaultWeights())

	// 07:00 到 09:00 每 30 分钟共 5 档
	if len(result.Options) != 5 {
		t.Fatalf("候选数 = %d, want 5", len(result.Options))
	}
	for _, opt := range result.Options {
		if result.Best.Score.Total > opt.Score.Total {
			t.Errorf("最优出发时刻 %s 的评分 %v 高于候选 %s 的 %v",
				result.Best.DepartureClock, result.Best.Score.Total, opt.DepartureClock, opt.Score.Total)
		}
	}
}
