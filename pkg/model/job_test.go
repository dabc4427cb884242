package model

import (
	"testing"
)

func TestUrgencyWeight(t *testing.T) {
	tests := []struct {
		name    string
		urgency Urgency
		want    float64
	}{
		{"紧急抢修", UrgencyEmergency, 10},
		{"加急", UrgencyUrgent, 5},
		{"标准", UrgencyStandard, 1},
		{"可灵活安排", UrgencyFlexible, 0.5},
		{"未知值按标准处理", Urgency("whatever"), 1},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := tt.urgency.Weight(); got != tt.want {
				t.Errorf("Weight() = %v, want %v", got, tt.want)
			}
		})
	}
}

func TestJobEffectiveDuration(t *testing.T) {
	tests := []struct {
		name     string
		duration int
		want     int
	}{
		{"显式时长", 90, 90},
		{"零值默认一小时", 0, 60},
		{"负值默认一小时", -30, 60},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			j := &Job{DurationMinutes: tt.duration}
			if got := j.EffectiveDuration(); got != tt.want {
				t.Errorf("EffectiveDuration() = %d, want %d", got, tt.want)
			}
		})
	}
}

func TestJobEndMinute(t *testing.T) {
	tests := []struct {
		name string
		job  Job
		want int
	}{
		{"显式结束时刻", Job{StartTime: "09:00", EndTime: "10:30"}, 630},
		{"按时长推算", Job{StartTime: "09:00", DurationMinutes: 45}, 585},
		{"无时长默认一小时", Job{StartTime: "09:00"}, 600},
		{"未排程", Job{}, -1},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := tt.job.EndMinute(); got != tt.want {
				t.Errorf("EndMinute() = %d, want %d", got, tt.want)
			}
		})
	}
}

func TestJobOccupiedDates(t *testing.T) {
	tests := []struct {
		name string
		job  Job
		want int
	}{
		{"未排程", Job{}, 0},
		{"单日工单", Job{Date: "2026-03-02"}, 1},
		{"跨两天", Job{Date: "2026-03-02", EndDate: "2026-03-03"}, 2},
		{"结束日期与开始相同", Job{Date: "2026-03-02", EndDate: "2026-03-02"}, 1},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := tt.job.OccupiedDates(); len(got) != tt.want {
				t.Errorf("OccupiedDates() = %v, want %d 天", got, tt.want)
			}
		})
	}
}
