package model

import (
	"context"
	"errors"
)

// 探测链路上的错误分类哨兵值。
// 所有 provider / 探测错误都用 fmt.Errorf("...: %w") 包装其中之一，
// 再由 KindOf 归类成稳定的字符串写进结果字段。
var (
	ErrTimeout     = errors.New("request timed out")
	ErrNetwork     = errors.New("network error")
	ErrHTTPStatus  = errors.New("unexpected http status")
	ErrParse       = errors.New("parse error")
	ErrNoIPInfo    = errors.New("no IP information available")
	ErrUnreachable = errors.New("unreachable")
)

// ErrorKind 是对外暴露的错误类别（JSON 字段 kind）。
type ErrorKind string

const (
	KindTimeout     ErrorKind = "timeout"
	KindNetwork     ErrorKind = "network"
	KindHTTPStatus  ErrorKind = "http_status"
	KindParse       ErrorKind = "parse"
	KindNoIPInfo    ErrorKind = "no_ip_info"
	KindUnreachable ErrorKind = "unreachable"
	KindCancelled   ErrorKind = "cancelled"
	KindError       ErrorKind = "error"
)

// KindOf 把 error 映射为 ErrorKind；nil 返回空串。
// 超时优先于其他类别判断，因为超时错误通常同时包装了网络错误。
func KindOf(err error) ErrorKind {
	switch {
	case err == nil:
		return ""
	case errors.Is(err, ErrTimeout), errors.Is(err, context.DeadlineExceeded):
		return KindTimeout
	case errors.Is(err, context.Canceled):
		return KindCancelled
	case errors.Is(err, ErrUnreachable):
		return KindUnreachable
	case errors.Is(err, ErrHTTPStatus):
		return KindHTTPStatus
	case errors.Is(err, ErrParse):
		return KindParse
	case errors.Is(err, ErrNoIPInfo):
		return KindNoIPInfo
	case errors.Is(err, ErrNetwork):
		return KindNetwork
	default:
		return KindError
	}
}

// ParseKind 把后端返回的 kind 字符串还原成 ErrorKind，未知值归为 error。
func ParseKind(s string) ErrorKind {
	switch k := ErrorKind(s); k {
	case KindTimeout, KindNetwork, KindHTTPStatus, KindParse, KindNoIPInfo,
		KindUnreachable, KindCancelled, KindError:
		return k
	default:
		return KindError
	}
}
