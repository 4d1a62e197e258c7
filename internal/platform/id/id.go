package id

import (
	"crypto/rand"
	"encoding/hex"
	"fmt"
	"time"
)

// New 生成带前缀的简易唯一 ID：prefix + 毫秒时间戳 + 随机后缀。
// 批量探测会话使用 "batch" 前缀，便于在日志和 URL 中辨认。
func New(prefix string) string {
	buf := make([]byte, 6)
	_, _ = rand.Read(buf)
	prefix = sanitizePrefix(prefix)
	return fmt.Sprintf("%s_%d_%s", prefix, time.Now().UnixMilli(), hex.EncodeToString(buf))
}

// sanitizePrefix 保证 ID 可直接放进 URL 路径段。
func sanitizePrefix(prefix string) string {
	out := make([]rune, 0, len(prefix))
	for _, r := range prefix {
		switch {
		case r >= 'a' && r <= 'z', r >= 'A' && r <= 'Z', r >= '0' && r <= '9', r == '-':
			out = append(out, r)
		}
	}
	if len(out) == 0 {
		return "id"
	}
	return string(out)
}
