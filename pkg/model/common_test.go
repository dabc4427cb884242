package model

import (
	"math"
	"testing"
	"time"
)

func TestMinuteOfClock(t *testing.T) {
	tests := []struct {
		name  string
		clock string
		want  int
	}{
		{"午夜", "00:00", 0},
		{"早上九点", "09:00", 540},
		{"中午", "12:00", 720},
		{"下午两点半", "14:30", 870},
		{"无效格式", "9点", -1},
		{"空字符串", "", -1},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := MinuteOfClock(tt.clock); got != tt.want {
				t.Errorf("MinuteOfClock(%q) = %d, want %d", tt.clock, got, tt.want)
			}
		})
	}
}

func TestClockOfMinute(t *testing.T) {
	tests := []struct {
		name   string
		minute int
		want   string
	}{
		{"午夜", 0, "00:00"},
		{"早上九点", 540, "09:00"},
		{"下午两点半", 870, "14:30"},
		{"负数钳制到零", -10, "00:00"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := ClockOfMinute(tt.minute); got != tt.want {
				t.Errorf("ClockOfMinute(%d) = %q, want %q", tt.minute, got, tt.want)
			}
		})
	}
}

func TestLocationDistanceMiles(t *testing.T) {
	// 纽约到费城约 80 英里
	newYork := Location{Latitude: 40.7128, Longitude: -74.0060}
	philadelphia := Location{Latitude: 39.9526, Longitude: -75.1652}

	dist := newYork.DistanceMiles(philadelphia)
	if dist < 75 || dist > 85 {
		t.Errorf("纽约到费城距离 = %.1f 英里，期望 75-85 之间", dist)
	}

	// 同一点距离为零
	if d := newYork.DistanceMiles(newYork); math.Abs(d) > 1e-9 {
		t.Errorf("同一点距离 = %f，期望 0", d)
	}

	// 距离对称
	if d1, d2 := newYork.DistanceMiles(philadelphia), philadelphia.DistanceMiles(newYork); math.Abs(d1-d2) > 1e-9 {
		t.Errorf("距离不对称: %f vs %f", d1, d2)
	}
}

func TestTimeRangeOverlaps(t *testing.T) {
	base := time.Date(2026, 3, 2, 9, 0, 0, 0, time.UTC)
	mk := func(startOffset, endOffset int) TimeRange {
		return TimeRange{
			Start: base.Add(time.Duration(startOffset) * time.Minute),
			End:   base.Add(time.Duration(endOffset) * time.Minute),
		}
	}

	tests := []struct {
		name string
		a, b TimeRange
		want bool
	}{
		{"完全重叠", mk(0, 60), mk(0, 60), true},
		{"部分重叠", mk(0, 60), mk(30, 90), true},
		{"首尾相接不算重叠", mk(0, 60), mk(60, 120), false},
		{"完全分离", mk(0, 60), mk(120, 180), false},
		{"包含关系", mk(0, 120), mk(30, 60), true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := tt.a.Overlaps(tt.b); got != tt.want {
				t.Errorf("Overlaps() = %v, want %v", got, tt.want)
			}
			if got := tt.b.Overlaps(tt.a); got != tt.want {
				t.Errorf("Overlaps() 反向 = %v, want %v", got, tt.want)
			}
		})
	}
}

func TestDatesBetween(t *testing.T) {
	tests := []struct {
		name  string
		start string
		end   string
		want  []string
	}{
		{"同一天", "2026-03-02", "2026-03-02", []string{"2026-03-02"}},
		{"跨三天", "2026-03-02", "2026-03-04", []string{"2026-03-02", "2026-03-03", "2026-03-04"}},
		{"结束早于开始", "2026-03-04", "2026-03-02", nil},
		{"无效日期", "bad", "2026-03-02", nil},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := DatesBetween(tt.start, tt.end)
			if len(got) != len(tt.want) {
				t.Fatalf("DatesBetween() = %v, want %v", got, tt.want)
			}
			for i := range got {
				if got[i] != tt.want[i] {
					t.Errorf("DatesBetween()[%d] = %s, want %s", i, got[i], tt.want[i])
				}
			}
		})
	}
}
