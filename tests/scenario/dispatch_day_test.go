// Package scenario 提供场景测试
package scenario

import (
	"context"
	"testing"
	"time"

	"github.com/google/uuid"

	"github.com/paidan/paidan/pkg/dispatcher"
	"github.com/paidan/paidan/pkg/model"
	"github.com/paidan/paidan/pkg/traveltime"
)

// 2026-03-02 是周一
const workday = "2026-03-02"

var evalTime = time.Date(2026, 3, 1, 9, 0, 0, 0, time.UTC)

func hvacWorker(name string, lat, lng float64, skills ...string) *model.Worker {
	hours := map[string]model.DayHours{}
	for _, day := range []string{"monday", "tuesday", "wednesday", "thursday", "friday"} {
		hours[day] = model.DayHours{Start: "08:00", End: "18:00"}
	}
	return &model.Worker{
		BaseModel: model.NewBaseModel(),
		Name:      name,
		Skills:    skills,
		Certifications: []model.Certification{
			{Name: "epa_608", ExpiresAt: "2027-12-31"},
		},
		WorkingHours: hours,
		HomeLocation: &model.Location{Latitude: lat, Longitude: lng},
		Status:       model.WorkerStatusActive,
	}
}

func fieldJob(title string, urgency model.Urgency, lat, lng float64, skills ...string) *model.Job {
	return &model.Job{
		BaseModel:       model.NewBaseModel(),
		Title:           title,
		Location:        &model.Location{Latitude: lat, Longitude: lng},
		DurationMinutes: 60,
		Urgency:         urgency,
		Skills:          skills,
	}
}

// 完整的一天：混合紧急程度和时间窗的工单派给两位技师
func TestFullDayDispatchScenario(t *testing.T) {
	estimator := traveltime.NewEstimator(nil, nil, traveltime.DefaultConfig())
	engine := dispatcher.NewEngine(estimator, nil)

	// 城东和城西各一位技师
	east := hvacWorker("张伟", 40.7300, -73.9350, "hvac", "electrical")
	west := hvacWorker("李娜", 40.7500, -74.0100, "hvac", "plumbing")
	workers := []*model.Worker{east, west}

	emergency := fieldJob("锅炉漏水抢修", model.UrgencyEmergency, 40.7310, -73.9360, "hvac")
	fixed := fieldJob("预约换滤芯", model.UrgencyStandard, 40.7490, -74.0090, "hvac")
	fixed.ScheduledAt = "14:00"
	morning := fieldJob("上午检修", model.UrgencyUrgent, 40.7320, -73.9340, "hvac")
	morning.DayPreference = model.DayPreferenceMorning
	afternoon := fieldJob("下午保养", model.UrgencyStandard, 40.7510, -74.0120, "plumbing")
	afternoon.DayPreference = model.DayPreferenceAfternoon
	flexible := fieldJob("灵活巡检", model.UrgencyFlexible, 40.7305, -73.9355, "hvac")
	noSkill := fieldJob("燃气管改造", model.UrgencyStandard, 40.7400, -73.9700, "gas_fitting")

	jobs := []*model.Job{flexible, afternoon, fixed, emergency, morning, noSkill}

	plan, stats := engine.Dispatch(context.Background(), jobs, workers, dispatcher.Options{
		Date: workday,
		Now:  evalTime,
	})

	// 工单数量不变量
	if got := plan.AssignedCount() + len(plan.Unassigned); got != len(jobs) {
		t.Fatalf("已指派 %d + 未指派 %d != 输入 %d", plan.AssignedCount(), len(plan.Unassigned), len(jobs))
	}

	// 无人具备 gas_fitting，该单必须落入未指派并给出原因
	if len(plan.Unassigned) != 1 || plan.Unassigned[0].JobID != noSkill.ID {
		t.Fatalf("期望仅燃气单未指派, got %+v", plan.Unassigned)
	}
	if plan.Unassigned[0].Reason == "" {
		t.Error("未指派工单应给出原因")
	}

	// plumbing 单只能派给李娜
	if route, ok := plan.Routes[west.ID]; ok {
		found := false
		for _, id := range route.JobIDs {
			if id == afternoon.ID {
				found = true
			}
		}
		if !found {
			t.Error("plumbing 工单应派给具备该技能的李娜")
		}
	} else {
		t.Fatal("李娜应有路线")
	}

	// 每条路线的站点数与工单数一致，到达时刻单调递增
	for workerID, route := range plan.Routes {
		if len(route.JobIDs) != len(route.Stops) {
			t.Errorf("技师 %s 路线 JobIDs=%d 与 Stops=%d 不一致", workerID, len(route.JobIDs), len(route.Stops))
		}
		for i := 1; i < len(route.Stops); i++ {
			if route.Stops[i].ArrivalMinute <= route.Stops[i-1].DepartureMinute {
				t.Errorf("技师 %s 第 %d 站到达时刻未晚于上一站离开时刻", workerID, i)
			}
		}
	}

	if stats.Assigned != 5 || stats.Unassigned != 1 {
		t.Errorf("stats = %+v, 期望 5 指派 1 未指派", stats)
	}
}

// 新来的紧急单通过时段推荐插入已有排程
func TestEmergencyBestSlotScenario(t *testing.T) {
	engine := dispatcher.NewEngine(nil, nil)

	worker := hvacWorker("王强", 40.73, -73.93, "hvac")

	// 上午已有一单 09:00-10:00
	busy := fieldJob("已排单", model.UrgencyStandard, 40.731, -73.932, "hvac")
	busy.AssignedWorkerID = &worker.ID
	busy.Date = workday
	busy.StartTime = "09:00"
	busy.EndTime = "10:00"

	newJob := fieldJob("空调罢工", model.UrgencyEmergency, 40.732, -73.934, "hvac")

	result := engine.FindBestTimeSlot(dispatcher.SlotRequest{
		Job:     newJob,
		Date:    workday,
		Workers: []*model.Worker{worker},
		ExistingJobs: map[uuid.UUID][]*model.Job{
			worker.ID: {busy},
		},
		Now: evalTime,
	})

	if result.Outcome != dispatcher.SlotOutcomeOK {
		t.Fatalf("outcome = %s, want ok", result.Outcome)
	}
	if result.Recommendation == nil {
		t.Fatal("应给出推荐时段")
	}
	if result.Recommendation.WorkerID != worker.ID {
		t.Errorf("推荐技师 = %s, want %s", result.Recommendation.WorkerID, worker.ID)
	}

	// 推荐时段不得与已排单重叠
	start := model.MinuteOfClock(result.Recommendation.StartTime)
	end := model.MinuteOfClock(result.Recommendation.EndTime)
	if start < 600 && end > 540 {
		t.Errorf("推荐时段 %s-%s 与已排单 09:00-10:00 重叠",
			result.Recommendation.StartTime, result.Recommendation.EndTime)
	}

	if len(result.Alternatives) > 3 {
		t.Errorf("备选时段最多 3 个, got %d", len(result.Alternatives))
	}
}
