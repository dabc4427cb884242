package dispatcher

import (
	"context"
	"testing"
	"time"

	"github.com/google/uuid"

	"github.com/paidan/paidan/pkg/model"
	"github.com/paidan/paidan/pkg/traveltime"
)

const mondayDate = "2026-03-02"

func fullWeekWorker(name string, skills ...string) *model.Worker {
	hours := map[string]model.DayHours{}
	for _, day := range []string{"monday", "tuesday", "wednesday", "thursday", "friday"} {
		hours[day] = model.DayHours{Start: "08:00", End: "17:00"}
	}
	return &model.Worker{
		BaseModel:    model.NewBaseModel(),
		Name:         name,
		Skills:       skills,
		WorkingHours: hours,
		Status:       model.WorkerStatusActive,
	}
}

func simpleJob(title string, urgency model.Urgency, skills ...string) *model.Job {
	return &model.Job{
		BaseModel:       model.NewBaseModel(),
		Title:           title,
		DurationMinutes: 60,
		Urgency:         urgency,
		Skills:          skills,
	}
}

func testEngine() *Engine {
	return NewEngine(traveltime.NewEstimator(nil, nil, traveltime.DefaultConfig()), nil)
}

func TestSortJobs(t *testing.T) {
	emergency := simpleJob("抢修", model.UrgencyEmergency)
	hardWindow := simpleJob("硬窗", model.UrgencyStandard)
	hardWindow.ScheduledAt = "14:00"
	softMorning := simpleJob("上午", model.UrgencyStandard)
	softMorning.DayPreference = model.DayPreferenceMorning
	flexible := simpleJob("灵活", model.UrgencyStandard)

	sorted := sortJobs([]*model.Job{flexible, softMorning, hardWindow, emergency})

	wantOrder := []string{"抢修", "硬窗", "上午", "灵活"}
	for i, want := range wantOrder {
		if sorted[i].Title != want {
			t.Fatalf("排序[%d] = %s, want %s", i, sorted[i].Title, want)
		}
	}
}

func TestSortJobsPreferredMinuteTiebreak(t *testing.T) {
	late := simpleJob("下午单", model.UrgencyStandard)
	late.DayPreference = model.DayPreferenceAfternoon
	early := simpleJob("上午单", model.UrgencyStandard)
	early.DayPreference = model.DayPreferenceMorning

	sorted := sortJobs([]*model.Job{late, early})
	if sorted[0].Title != "上午单" {
		t.Errorf("首选时刻更早的工单应排在前, got %s", sorted[0].Title)
	}
}

// 派单必须保持工单数量不变量
func TestDispatchJobCountInvariant(t *testing.T) {
	workers := []*model.Worker{
		fullWeekWorker("张伟", "hvac"),
		fullWeekWorker("李娜", "hvac", "plumbing"),
	}
	jobs := []*model.Job{
		simpleJob("单1", model.UrgencyStandard, "hvac"),
		simpleJob("单2", model.UrgencyUrgent, "plumbing"),
		simpleJob("单3", model.UrgencyEmergency, "hvac"),
		simpleJob("单4", model.UrgencyFlexible, "electrical"), // 无人具备
	}

	plan, stats := testEngine().Dispatch(context.Background(), jobs, workers, Options{Date: mondayDate})

	if got := plan.AssignedCount() + len(plan.Unassigned); got != len(jobs) {
		t.Errorf("已指派 %d + 未指派 %d != 输入 %d", plan.AssignedCount(), len(plan.Unassigned), len(jobs))
	}
	if stats.Assigned != 3 || stats.Unassigned != 1 {
		t.Errorf("stats = %+v, 期望 3 指派 1 未指派", stats)
	}
	if plan.Unassigned[0].JobID != jobs[3].ID {
		t.Error("未指派的应是无人具备技能的工单")
	}
}

func TestDispatchRespectsSkillEligibility(t *testing.T) {
	plumber := fullWeekWorker("王强", "plumbing")
	electrician := fullWeekWorker("刘洋", "electrical")
	job := simpleJob("电路检修", model.UrgencyStandard, "electrical")

	plan, _ := testEngine().Dispatch(context.Background(), []*model.Job{job}, []*model.Worker{plumber, electrician}, Options{Date: mondayDate})

	if r := plan.Routes[electrician.ID]; r == nil || len(r.JobIDs) != 1 {
		t.Fatal("工单应分配给具备技能的技师")
	}
	if plan.Routes[plumber.ID] != nil {
		t.Error("不具备技能的技师不应有路线")
	}
}

func TestDispatchMaxJobsPerWorkerCap(t *testing.T) {
	worker := fullWeekWorker("赵敏", "hvac")
	jobs := []*model.Job{
		simpleJob("单1", model.UrgencyStandard, "hvac"),
		simpleJob("单2", model.UrgencyStandard, "hvac"),
		simpleJob("单3", model.UrgencyStandard, "hvac"),
	}

	plan, _ := testEngine().Dispatch(context.Background(), jobs, []*model.Worker{worker}, Options{
		Date:             mondayDate,
		MaxJobsPerWorker: 2,
	})

	if got := len(plan.Routes[worker.ID].JobIDs); got != 2 {
		t.Errorf("路线工单数 = %d, want 2", got)
	}
	if len(plan.Unassigned) != 1 {
		t.Errorf("未指派数 = %d, want 1", len(plan.Unassigned))
	}
}

// 零技师退化为单路线优化
func TestDispatchZeroWorkersDegenerates(t *testing.T) {
	jobs := []*model.Job{
		simpleJob("甲", model.UrgencyStandard),
		simpleJob("乙", model.UrgencyEmergency),
	}

	plan, stats := testEngine().Dispatch(context.Background(), jobs, nil, Options{Date: mondayDate})

	r := plan.Routes[uuid.Nil]
	if r == nil || len(r.JobIDs) != 2 {
		t.Fatal("零技师时应生成一条无主路线覆盖全部工单")
	}
	// 紧急工单应在前
	if r.JobIDs[0] != jobs[1].ID {
		t.Error("无主路线应把紧急工单排在前")
	}
	if stats.Assigned != 2 {
		t.Errorf("stats.Assigned = %d, want 2", stats.Assigned)
	}
}

func TestDispatchBalancesWorkload(t *testing.T) {
	workers := []*model.Worker{
		fullWeekWorker("周平", "hvac"),
		fullWeekWorker("吴越", "hvac"),
	}
	jobs := make([]*model.Job, 6)
	for i := range jobs {
		jobs[i] = simpleJob("单", model.UrgencyStandard, "hvac")
	}

	plan, _ := testEngine().Dispatch(context.Background(), jobs, workers, Options{Date: mondayDate})

	for _, w := range workers {
		r := plan.Routes[w.ID]
		if r == nil {
			t.Fatal("两位技师都应分到工单")
		}
		if len(r.JobIDs) < 2 || len(r.JobIDs) > 4 {
			t.Errorf("技师 %s 分到 %d 单，期望大致均衡", w.Name, len(r.JobIDs))
		}
	}
}

func TestFindBestTimeSlot(t *testing.T) {
	engine := testEngine()
	worker := fullWeekWorker("陈晨", "hvac")
	now := time.Date(2026, 3, 1, 9, 0, 0, 0, time.UTC)

	t.Run("正常推荐", func(t *testing.T) {
		job := simpleJob("空调保养", model.UrgencyStandard, "hvac")
		job.DayPreference = model.DayPreferenceMorning

		result := engine.FindBestTimeSlot(SlotRequest{
			Job:     job,
			Date:    mondayDate,
			Workers: []*model.Worker{worker},
			Now:     now,
		})
		if result.Outcome != SlotOutcomeOK {
			t.Fatalf("Outcome = %s, want ok", result.Outcome)
		}
		if result.Recommendation == nil || result.Recommendation.WorkerID != worker.ID {
			t.Fatal("应推荐唯一合格技师")
		}
		if len(result.Alternatives) == 0 || len(result.Alternatives) > 3 {
			t.Errorf("备选数 = %d, 期望 1-3", len(result.Alternatives))
		}
	})

	t.Run("无合格技师", func(t *testing.T) {
		job := simpleJob("燃气检修", model.UrgencyStandard, "gas")
		result := engine.FindBestTimeSlot(SlotRequest{
			Job:     job,
			Date:    mondayDate,
			Workers: []*model.Worker{worker},
			Now:     now,
		})
		if result.Outcome != SlotOutcomeNoEligibleWorker {
			t.Errorf("Outcome = %s, want no_eligible_workers", result.Outcome)
		}
		if result.Recommendation != nil {
			t.Error("失败结果不应带推荐")
		}
	})

	t.Run("当日无可用时段", func(t *testing.T) {
		job := simpleJob("周末工单", model.UrgencyStandard, "hvac")
		result := engine.FindBestTimeSlot(SlotRequest{
			Job:     job,
			Date:    "2026-03-07", // 周六休息
			Workers: []*model.Worker{worker},
			Now:     now,
		})
		if result.Outcome != SlotOutcomeNoAvailableSlots {
			t.Errorf("Outcome = %s, want no_available_slots", result.Outcome)
		}
	})

	t.Run("已占满的时段被跳过", func(t *testing.T) {
		busy := simpleJob("已有单", model.UrgencyStandard)
		busy.Date = mondayDate
		busy.StartTime = "08:00"
		busy.EndTime = "12:00"

		job := simpleJob("新工单", model.UrgencyStandard, "hvac")
		job.DayPreference = model.DayPreferenceMorning

		result := engine.FindBestTimeSlot(SlotRequest{
			Job:          job,
			Date:         mondayDate,
			Workers:      []*model.Worker{worker},
			ExistingJobs: map[uuid.UUID][]*model.Job{worker.ID: {busy}},
			Now:          now,
		})
		if result.Outcome != SlotOutcomeOK {
			t.Fatalf("Outcome = %s, want ok", result.Outcome)
		}
		if result.Recommendation.StartTime < "12:00" {
			t.Errorf("推荐时段 %s 与已有工单重叠", result.Recommendation.StartTime)
		}
	})
}
