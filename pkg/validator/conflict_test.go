package validator

import (
	"testing"

	"github.com/google/uuid"

	"github.com/paidan/paidan/pkg/model"
)

const mondayDate = "2026-03-02"

func weekdayWorker(name string) *model.Worker {
	hours := map[string]model.DayHours{}
	for _, day := range []string{"monday", "tuesday", "wednesday", "thursday", "friday"} {
		hours[day] = model.DayHours{Start: "08:00", End: "17:00"}
	}
	return &model.Worker{
		BaseModel:    model.NewBaseModel(),
		Name:         name,
		WorkingHours: hours,
	}
}

func assignedJob(title, date, start, end string, workerID uuid.UUID) *model.Job {
	return &model.Job{
		BaseModel:        model.NewBaseModel(),
		Title:            title,
		Date:             date,
		StartTime:        start,
		EndTime:          end,
		AssignedWorkerID: &workerID,
	}
}

func TestDetectAllCleanSchedule(t *testing.T) {
	worker := weekdayWorker("张伟")
	workers := map[uuid.UUID]*model.Worker{worker.ID: worker}
	jobs := []*model.Job{
		assignedJob("上午单", mondayDate, "09:00", "10:00", worker.ID),
		assignedJob("下午单", mondayDate, "14:00", "15:00", worker.ID),
		assignedJob("次日单", "2026-03-03", "09:00", "10:00", worker.ID),
	}

	conflicts := NewConflictDetector(nil).DetectAll(jobs, workers)
	if len(conflicts) != 0 {
		t.Errorf("正常排程不应有冲突, got %d", len(conflicts))
		for _, c := range conflicts {
			t.Logf("冲突: %s", c.Message)
		}
	}
}

func TestDetectOverlap(t *testing.T) {
	worker := weekdayWorker("李娜")
	workers := map[uuid.UUID]*model.Worker{worker.ID: worker}
	jobs := []*model.Job{
		assignedJob("甲", mondayDate, "09:00", "11:00", worker.ID),
		assignedJob("乙", mondayDate, "10:00", "12:00", worker.ID),
	}

	conflicts := NewConflictDetector(nil).DetectAll(jobs, workers)

	found := false
	for _, c := range conflicts {
		if c.Type == ConflictOverlap {
			found = true
			if len(c.JobIDs) != 2 {
				t.Errorf("重叠冲突应点名两个工单, got %v", c.JobIDs)
			}
		}
	}
	if !found {
		t.Error("应检出时间重叠冲突")
	}
}

func TestDetectOffDutyAndOutsideHours(t *testing.T) {
	worker := weekdayWorker("王强")
	workers := map[uuid.UUID]*model.Worker{worker.ID: worker}

	tests := []struct {
		name string
		job  *model.Job
		want ConflictType
	}{
		{"休息日排单", assignedJob("周六单", "2026-03-07", "09:00", "10:00", worker.ID), ConflictOffDuty},
		{"早于上班时间", assignedJob("早单", mondayDate, "07:00", "08:30", worker.ID), ConflictOutsideHours},
		{"晚于下班时间", assignedJob("晚单", mondayDate, "16:30", "18:00", worker.ID), ConflictOutsideHours},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			conflicts := NewConflictDetector(nil).DetectAll([]*model.Job{tt.job}, workers)
			if len(conflicts) != 1 {
				t.Fatalf("冲突数 = %d, want 1", len(conflicts))
			}
			if conflicts[0].Type != tt.want {
				t.Errorf("冲突类型 = %s, want %s", conflicts[0].Type, tt.want)
			}
		})
	}
}

func TestDetectOverload(t *testing.T) {
	worker := weekdayWorker("刘洋")
	workers := map[uuid.UUID]*model.Worker{worker.ID: worker}

	var jobs []*model.Job
	for i := 0; i < 9; i++ {
		start := model.ClockOfMinute(480 + i*60)
		end := model.ClockOfMinute(480 + i*60 + 30)
		jobs = append(jobs, assignedJob("密集单", mondayDate, start, end, worker.ID))
	}

	conflicts := NewConflictDetector(&DetectorConfig{MaxJobsPerDay: 8, CheckHours: false}).DetectAll(jobs, workers)

	found := false
	for _, c := range conflicts {
		if c.Type == ConflictOverload && c.Severity == "warning" {
			found = true
		}
	}
	if !found {
		t.Error("9 个工单超过阈值 8，应检出工作量告警")
	}
}

func TestDetectAllSkipsUnassignedJobs(t *testing.T) {
	worker := weekdayWorker("陈晨")
	workers := map[uuid.UUID]*model.Worker{worker.ID: worker}
	jobs := []*model.Job{
		{BaseModel: model.NewBaseModel(), Title: "未排程"},
	}

	if conflicts := NewConflictDetector(nil).DetectAll(jobs, workers); len(conflicts) != 0 {
		t.Errorf("未排程工单不参与检测, got %d", len(conflicts))
	}
}
