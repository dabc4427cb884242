package model

import (
	"time"
)

// WorkerStatus 技师状态
type WorkerStatus string

const (
	WorkerStatusActive   WorkerStatus = "active"   // 在岗
	WorkerStatusInactive WorkerStatus = "inactive" // 停用
	WorkerStatusOnLeave  WorkerStatus = "on_leave" // 休假
)

// Certification 技师持有的证书
type Certification struct {
	Name      string `json:"name"`
	ExpiresAt string `json:"expires_at,omitempty"` // YYYY-MM-DD，为空表示长期有效
}

// IsValidOn 检查证书在指定时间是否有效
func (c Certification) IsValidOn(t time.Time) bool {
	if c.ExpiresAt == "" {
		return true
	}
	expiry, err := ParseDate(c.ExpiresAt)
	if err != nil {
		return false
	}
	// 证书有效期到到期日当天结束
	return t.Before(expiry.Add(24 * time.Hour))
}

// DayHours 单日工作时间
type DayHours struct {
	Start string `json:"start"` // HH:MM
	End   string `json:"end"`   // HH:MM
}

// StartMinute 返回上班时刻的当日分钟数
func (d DayHours) StartMinute() int { return MinuteOfClock(d.Start) }

// EndMinute 返回下班时刻的当日分钟数
func (d DayHours) EndMinute() int { return MinuteOfClock(d.End) }

// Worker 外勤技师
type Worker struct {
	BaseModel
	Name           string          `json:"name" db:"name"`
	Phone          string          `json:"phone,omitempty" db:"phone"`
	Skills         []string        `json:"skills,omitempty" db:"-"`
	Certifications []Certification `json:"certifications,omitempty" db:"-"`
	// WorkingHours 按星期几（周一 monday 到周日 sunday）索引的工作时间
	// 缺少某天的条目表示该天休息
	WorkingHours  map[string]DayHours `json:"working_hours,omitempty" db:"-"`
	HomeLocation  *Location           `json:"home_location,omitempty" db:"-"`
	MaxJobsPerDay int                 `json:"max_jobs_per_day,omitempty" db:"max_jobs_per_day"`
	Status        WorkerStatus        `json:"status" db:"status"`
}

// HasSkill 检查技师是否具备指定技能
func (w *Worker) HasSkill(skill string) bool {
	for _, s := range w.Skills {
		if s == skill {
			return true
		}
	}
	return false
}

// CertificationFor 返回技师持有的指定证书，没有返回 nil
func (w *Worker) CertificationFor(name string) *Certification {
	for i := range w.Certifications {
		if w.Certifications[i].Name == name {
			return &w.Certifications[i]
		}
	}
	return nil
}

// HasValidCertification 检查技师在指定时间是否持有有效证书
func (w *Worker) HasValidCertification(name string, at time.Time) bool {
	cert := w.CertificationFor(name)
	return cert != nil && cert.IsValidOn(at)
}

// HoursFor 返回指定日期的工作时间，休息日返回 nil
func (w *Worker) HoursFor(date string) *DayHours {
	d, err := ParseDate(date)
	if err != nil {
		return nil
	}
	weekday := weekdayKey(d.Weekday())
	hours, ok := w.WorkingHours[weekday]
	if !ok {
		return nil
	}
	return &hours
}

// IsWorkingOn 检查技师在指定日期是否上班
func (w *Worker) IsWorkingOn(date string) bool {
	return w.HoursFor(date) != nil
}

// IsActive 检查技师是否在岗可派
func (w *Worker) IsActive() bool {
	return w.Status == "" || w.Status == WorkerStatusActive
}

func weekdayKey(d time.Weekday) string {
	switch d {
	case time.Monday:
		return "monday"
	case time.Tuesday:
		return "tuesday"
	case time.Wednesday:
		return "wednesday"
	case time.Thursday:
		return "thursday"
	case time.Friday:
		return "friday"
	case time.Saturday:
		return "saturday"
	default:
		return "sunday"
	}
}
