// Package timewindow 负责工单时间窗的解析与惩罚计算
package timewindow

import (
	"fmt"

	"github.com/paidan/paidan/pkg/model"
)

// 时段偏好对应的时间窗边界（当日分钟数）
const (
	morningStart   = 480 // 08:00
	morningEnd     = 720 // 12:00
	morningPrefer  = 540 // 09:00
	afternoonStart = 720  // 12:00
	afternoonEnd   = 1020 // 17:00
	afternoonPrefer = 840 // 14:00
)

// 固定上门时刻转换为硬性时间窗的前后余量（分钟）
const (
	fixedEarlyMargin = 15
	fixedLateMargin  = 30
)

// 惩罚斜率（每分钟）
const (
	hardEarlySlope = 2.0
	hardLateSlope  = 5.0
	softEarlySlope = 0.5
	softLateSlope  = 1.0
	preferredBonus = 0.1
)

// Window 解析后的时间窗（全部用当日分钟数表达）
type Window struct {
	Type            model.WindowType
	StartMinute     int
	EndMinute       int
	PreferredMinute int // -1 表示未设置
}

// HasPreferred 检查时间窗是否设置了首选时刻
func (w Window) HasPreferred() bool {
	return w.PreferredMinute >= 0
}

// Resolve 解析工单的有效时间窗
// 优先级：显式时间窗 > 固定上门时刻 > 时段偏好 > 全天灵活
func Resolve(job *model.Job) (Window, error) {
	if job.Window != nil {
		return resolveExplicit(job.Window)
	}

	if job.ScheduledAt != "" {
		at := model.MinuteOfClock(job.ScheduledAt)
		if at < 0 {
			return Window{}, fmt.Errorf("无效的固定上门时刻 %q", job.ScheduledAt)
		}
		start := at - fixedEarlyMargin
		if start < 0 {
			start = 0
		}
		return Window{
			Type:            model.WindowTypeHard,
			StartMinute:     start,
			EndMinute:       at + fixedLateMargin,
			PreferredMinute: at,
		}, nil
	}

	switch job.DayPreference {
	case model.DayPreferenceMorning:
		return Window{
			Type:            model.WindowTypeSoft,
			StartMinute:     morningStart,
			EndMinute:       morningEnd,
			PreferredMinute: morningPrefer,
		}, nil
	case model.DayPreferenceAfternoon:
		return Window{
			Type:            model.WindowTypeSoft,
			StartMinute:     afternoonStart,
			EndMinute:       afternoonEnd,
			PreferredMinute: afternoonPrefer,
		}, nil
	}

	return Window{
		Type:            model.WindowTypeFlexible,
		StartMinute:     0,
		EndMinute:       1440,
		PreferredMinute: -1,
	}, nil
}

// resolveExplicit 解析工单上的显式时间窗
func resolveExplicit(spec *model.WindowSpec) (Window, error) {
	start := model.MinuteOfClock(spec.Start)
	end := model.MinuteOfClock(spec.End)
	if start < 0 || end < 0 {
		return Window{}, fmt.Errorf("无效的时间窗 %q-%q", spec.Start, spec.End)
	}
	if end <= start {
		return Window{}, fmt.Errorf("时间窗结束时刻 %q 必须晚于开始时刻 %q", spec.End, spec.Start)
	}

	preferred := -1
	if spec.Preferred != "" {
		preferred = model.MinuteOfClock(spec.Preferred)
	}

	wt := spec.Type
	if wt == "" {
		wt = model.WindowTypeSoft
	}
	return Window{
		Type:            wt,
		StartMinute:     start,
		EndMinute:       end,
		PreferredMinute: preferred,
	}, nil
}

// Penalty 计算到达时刻相对时间窗的惩罚值
// 窗内到达且设置了首选时刻时返回负值奖励，吸引解靠近首选时刻
func Penalty(arrivalMinute int, w Window) float64 {
	if w.Type == model.WindowTypeFlexible {
		return 0
	}

	if arrivalMinute < w.StartMinute {
		early := float64(w.StartMinute - arrivalMinute)
		if w.Type == model.WindowTypeHard {
			return early * hardEarlySlope
		}
		return early * softEarlySlope
	}

	if arrivalMinute > w.EndMinute {
		late := float64(arrivalMinute - w.EndMinute)
		if w.Type == model.WindowTypeHard {
			return late * hardLateSlope
		}
		return late * softLateSlope
	}

	// 窗内到达
	if w.HasPreferred() {
		deviation := arrivalMinute - w.PreferredMinute
		if deviation < 0 {
			deviation = -deviation
		}
		return -preferredBonus * float64(deviation)
	}
	return 0
}
