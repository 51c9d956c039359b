package progress

import (
	"fmt"
	"sync"
	"time"

	"golang.org/x/time/rate"
)

var units = []string{"B", "KB", "MB", "GB"}

// FormatSize 以 1024 为进制格式化字节数，保留两位小数
func FormatSize(n int64) string {
	size := float64(n)
	for _, unit := range units {
		if size < 1024 {
			return fmt.Sprintf("%.2f %s", size, unit)
		}
		size /= 1024
	}
	return fmt.Sprintf("%.2f TB", size)
}

// Render 进度消息正文
func Render(title string, current, total int64) string {
	percent := 0.0
	if total > 0 {
		percent = float64(current) * 100 / float64(total)
	}
	return fmt.Sprintf("%s\nProgress: %.1f%%\nSize: %s/%s", title, percent, FormatSize(current), FormatSize(total))
}

// Sink 进度输出，通常是编辑一条聊天消息
type Sink func(text string) error

// Reporter 限速的进度上报器，最后一次上报总是发出
type Reporter struct {
	title   string
	sink    Sink
	limiter *rate.Limiter

	mu   sync.Mutex
	last string
}

// NewReporter 创建上报器，interval 为两次上报的最小间隔
func NewReporter(title string, interval time.Duration, sink Sink) *Reporter {
	limit := rate.Inf
	if interval > 0 {
		limit = rate.Every(interval)
	}
	return &Reporter{
		title:   title,
		sink:    sink,
		limiter: rate.NewLimiter(limit, 1),
	}
}

// Report 上报进度，返回是否真正发出；sink 的错误被丢弃
func (r *Reporter) Report(current, total int64) bool {
	final := total > 0 && current >= total
	if !final && !r.limiter.Allow() {
		return false
	}

	text := Render(r.title, current, total)

	r.mu.Lock()
	if text == r.last {
		r.mu.Unlock()
		return false
	}
	r.last = text
	r.mu.Unlock()

	_ = r.sink(text)
	return true
}

// Func 适配为 func(current, total int64)
func (r *Reporter) Func() func(current, total int64) {
	return func(current, total int64) {
		r.Report(current, total)
	}
}
