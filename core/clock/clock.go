// Package clock 抽象时间来源与定时器，便于以虚拟时间测试刷新调度。
package clock

import "time"

// Timer 表示一个可取消的单次定时器。
type Timer interface {
	// Stop 取消定时器，返回 false 表示定时器已触发或已取消。
	Stop() bool
}

// Clock 提供当前时间与单次定时回调。
type Clock interface {
	Now() time.Time
	AfterFunc(d time.Duration, f func()) Timer
}

// Real 基于 time 包的真实时钟。
type Real struct{}

// Now 返回当前时间。
func (Real) Now() time.Time { return time.Now() }

// AfterFunc 在 d 之后于独立 goroutine 中执行 f。
func (Real) AfterFunc(d time.Duration, f func()) Timer {
	return time.AfterFunc(d, f)
}
