package logging

import (
	"io"
	"log/slog"
	"os"
	"strings"
)

// Options 描述日志输出方式。
// Format 取值 "text"（默认）或 "json"。
type Options struct {
	Level  string
	Format string
}

// Setup 创建 logger 并设为进程级默认 logger。
// 各包直接使用 slog.Default()，CLI 只需在启动时调用一次。
func Setup(opts Options) *slog.Logger {
	l := New(os.Stderr, opts)
	slog.SetDefault(l)
	return l
}

// New 按 Options 构造写往 w 的 logger。
func New(w io.Writer, opts Options) *slog.Logger {
	handlerOpts := &slog.HandlerOptions{Level: ParseLevel(opts.Level)}

	var handler slog.Handler
	if strings.EqualFold(strings.TrimSpace(opts.Format), "json") {
		handler = slog.NewJSONHandler(w, handlerOpts)
	} else {
		handler = slog.NewTextHandler(w, handlerOpts)
	}
	return slog.New(handler)
}

// ParseLevel 解析日志级别，无法识别时回落到 info。
func ParseLevel(level string) slog.Level {
	switch strings.ToLower(strings.TrimSpace(level)) {
	case "debug":
		return slog.LevelDebug
	case "warn", "warning":
		return slog.LevelWarn
	case "error":
		return slog.LevelError
	default:
		return slog.LevelInfo
	}
}

// WithComponent 返回带 component 字段的默认 logger。
func WithComponent(component string) *slog.Logger {
	return slog.Default().With("component", component)
}
