package impact

import (
	"context"
	"testing"
	"time"

	"github.com/google/uuid"

	"github.com/paidan/paidan/pkg/model"
	"github.com/paidan/paidan/pkg/traveltime"
)

const mondayDate = "2026-03-02"

func scheduledJob(title, date, start, end string, workerID uuid.UUID) *model.Job {
	return &model.Job{
		BaseModel:        model.NewBaseModel(),
		Title:            title,
		Date:             date,
		StartTime:        start,
		EndTime:          end,
		AssignedWorkerID: &workerID,
		Status:           model.JobStatusAssigned,
	}
}

func TestAnalyzeCancellationOnlyJobOfDay(t *testing.T) {
	workerID := uuid.New()
	job := scheduledJob("独单", mondayDate, "09:00", "10:00", workerID)

	impact := NewAnalyzer("2026-03-01").AnalyzeCancellation(job, []*model.Job{job})

	if impact.Severity != SeverityLow {
		t.Errorf("Severity = %s, want low", impact.Severity)
	}
	if impact.RouteImpact.SameDayJobCount != 0 {
		t.Errorf("SameDayJobCount = %d, want 0", impact.RouteImpact.SameDayJobCount)
	}
	if impact.RouteImpact.HasImpact {
		t.Error("当日唯一工单的取消不应有路线影响")
	}
}

func TestAnalyzeCancellationMidRoute(t *testing.T) {
	workerID := uuid.New()
	first := scheduledJob("早单", mondayDate, "08:00", "09:00", workerID)
	middle := scheduledJob("中单", mondayDate, "10:00", "11:00", workerID)
	last := scheduledJob("晚单", mondayDate, "13:00", "14:00", workerID)
	otherWorker := scheduledJob("别人的单", mondayDate, "10:00", "11:00", uuid.New())
	otherDay := scheduledJob("隔天的单", "2026-03-03", "10:00", "11:00", workerID)
	all := []*model.Job{first, middle, last, otherWorker, otherDay}

	impact := NewAnalyzer("2026-03-01").AnalyzeCancellation(middle, all)

	ri := impact.RouteImpact
	if ri.SameDayJobCount != 2 {
		t.Errorf("SameDayJobCount = %d, want 2", ri.SameDayJobCount)
	}
	if ri.PredecessorID == nil || *ri.PredecessorID != first.ID {
		t.Error("前一单应为早单")
	}
	if ri.SuccessorID == nil || *ri.SuccessorID != last.ID {
		t.Error("后一单应为晚单")
	}
	if !ri.CreatesGap {
		t.Error("移除中间单应产生空档")
	}
	if ri.MinutesFreed != 60 {
		t.Errorf("MinutesFreed = %d, want 60", ri.MinutesFreed)
	}
	// 影响超过一个其它站点 → medium
	if impact.Severity != SeverityMedium {
		t.Errorf("Severity = %s, want medium", impact.Severity)
	}
}

func TestAnalyzeCancellationWarnings(t *testing.T) {
	workerID := uuid.New()

	t.Run("当天的工单", func(t *testing.T) {
		job := scheduledJob("今日单", mondayDate, "09:00", "10:00", workerID)
		impact := NewAnalyzer(mondayDate).AnalyzeCancellation(job, []*model.Job{job})
		if len(impact.Warnings) != 1 || impact.Severity != SeverityMedium {
			t.Errorf("当天工单取消应产生 medium 告警, got %+v", impact)
		}
	})

	t.Run("跨天工单", func(t *testing.T) {
		job := scheduledJob("安装工程", mondayDate, "09:00", "17:00", workerID)
		job.EndDate = "2026-03-04"
		impact := NewAnalyzer("2026-03-01").AnalyzeCancellation(job, []*model.Job{job})
		if impact.Severity != SeverityHigh {
			t.Errorf("跨天工单取消 Severity = %s, want high", impact.Severity)
		}
	})

	t.Run("未排程工单", func(t *testing.T) {
		job := &model.Job{BaseModel: model.NewBaseModel(), Title: "裸单"}
		impact := NewAnalyzer(mondayDate).AnalyzeCancellation(job, nil)
		if impact.Severity != SeverityLow || len(impact.Warnings) != 0 {
			t.Errorf("未排程工单取消应无告警, got %+v", impact)
		}
	})
}

func TestAnalyzeReschedule(t *testing.T) {
	workerID := uuid.New()
	hours := map[string]model.DayHours{
		"monday":  {Start: "08:00", End: "17:00"},
		"tuesday": {Start: "08:00", End: "17:00"},
	}
	worker := &model.Worker{
		BaseModel:    model.BaseModel{ID: workerID},
		Name:         "孙磊",
		WorkingHours: hours,
	}

	job := scheduledJob("待改期", mondayDate, "09:00", "10:00", workerID)
	blocker := scheduledJob("占位单", "2026-03-03", "10:00", "11:00", workerID)
	all := []*model.Job{job, blocker}

	a := NewAnalyzer("2026-03-01")

	t.Run("新时段空闲", func(t *testing.T) {
		impact := a.AnalyzeReschedule(job, "2026-03-03", "14:00", worker, all)
		if impact.HasConflicts {
			t.Errorf("14:00 无冲突, got %+v", impact.Warnings)
		}
		if impact.Recommendation == "" {
			t.Error("应给出改期建议")
		}
	})

	t.Run("新时段与已有工单重叠", func(t *testing.T) {
		impact := a.AnalyzeReschedule(job, "2026-03-03", "10:30", worker, all)
		if !impact.HasConflicts {
			t.Error("10:30 与占位单重叠，应报冲突")
		}
		if impact.Severity != SeverityHigh {
			t.Errorf("Severity = %s, want high", impact.Severity)
		}
	})

	t.Run("改到休息日", func(t *testing.T) {
		impact := a.AnalyzeReschedule(job, "2026-03-07", "10:00", worker, all)
		if !impact.HasConflicts {
			t.Error("周六是休息日，应报冲突")
		}
	})
}

func TestSimulateSwap(t *testing.T) {
	hours := map[string]model.DayHours{
		"monday": {Start: "08:00", End: "18:00"},
	}
	north := &model.Location{Latitude: 40.85, Longitude: -73.90}
	south := &model.Location{Latitude: 40.65, Longitude: -74.00}

	workerNorth := &model.Worker{
		BaseModel:    model.NewBaseModel(),
		Name:         "北区技师",
		Skills:       []string{"hvac"},
		WorkingHours: hours,
		HomeLocation: north,
	}
	workerSouth := &model.Worker{
		BaseModel:    model.NewBaseModel(),
		Name:         "南区技师",
		Skills:       []string{"hvac"},
		WorkingHours: hours,
		HomeLocation: south,
	}

	// 北区技师被排了南区的单，南区技师被排了北区的单
	jobInSouth := scheduledJob("南区工单", mondayDate, "09:00", "10:00", workerNorth.ID)
	jobInSouth.Location = &model.Location{Latitude: 40.66, Longitude: -74.01}
	jobInSouth.Skills = []string{"hvac"}
	jobInNorth := scheduledJob("北区工单", mondayDate, "09:00", "10:00", workerSouth.ID)
	jobInNorth.Location = &model.Location{Latitude: 40.86, Longitude: -73.89}
	jobInNorth.Skills = []string{"hvac"}

	now := time.Date(2026, 3, 1, 9, 0, 0, 0, time.UTC)
	sim := NewSwapSimulator(traveltime.NewEstimator(nil, nil, traveltime.DefaultConfig()))

	t.Run("省时间的互换被推荐", func(t *testing.T) {
		result := sim.Simulate(context.Background(), workerNorth, workerSouth, mondayDate,
			[]*model.Job{jobInSouth}, []*model.Job{jobInNorth}, now)
		if !result.Feasible {
			t.Fatalf("互换应可行: %+v", result.Violations)
		}
		if !result.Recommended {
			t.Errorf("互换后行驶时间 %d < %d，应被推荐", result.TravelMinutesAfter, result.TravelMinutesBefore)
		}
	})

	t.Run("产生阻断违反的互换被否决", func(t *testing.T) {
		gasJob := scheduledJob("燃气单", mondayDate, "11:00", "12:00", workerNorth.ID)
		gasJob.Skills = []string{"gas"} // 双方都不具备
		result := sim.Simulate(context.Background(), workerNorth, workerSouth, mondayDate,
			[]*model.Job{gasJob}, []*model.Job{jobInNorth}, now)
		if result.Feasible || result.Recommended {
			t.Errorf("存在阻断违反的互换不应可行: %+v", result)
		}
		if len(result.Violations) == 0 {
			t.Error("应返回阻断性违反明细")
		}
	})

	t.Run("不省时间的互换不被推荐", func(t *testing.T) {
		// 双方的单都已经在各自驻地附近
		localNorth := scheduledJob("北区本地单", mondayDate, "09:00", "10:00", workerNorth.ID)
		localNorth.Location = &model.Location{Latitude: 40.852, Longitude: -73.898}
		localNorth.Skills = []string{"hvac"}
		localSouth := scheduledJob("南区本地单", mondayDate, "09:00", "10:00", workerSouth.ID)
		localSouth.Location = &model.Location{Latitude: 40.648, Longitude: -74.002}
		localSouth.Skills = []string{"hvac"}

		result := sim.Simulate(context.Background(), workerNorth, workerSouth, mondayDate,
			[]*model.Job{localNorth}, []*model.Job{localSouth}, now)
		if !result.Feasible {
			t.Fatalf("互换应可行: %+v", result.Violations)
		}
		if result.Recommended {
			t.Errorf("不省时间的互换不应被推荐: %d → %d", result.TravelMinutesBefore, result.TravelMinutesAfter)
		}
	})
}
