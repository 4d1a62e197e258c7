package hash

import (
	"crypto/sha256"
	"encoding/hex"
	"io"
	"os"
)

// Bytes 计算内存数据的 SHA-256（十六进制）。
// 目录文件加载后用它生成版本指纹，/api/meta 会展示该值。
func Bytes(b []byte) string {
	sum := sha256.Sum256(b)
	return hex.EncodeToString(sum[:])
}

// File 读取文件并计算 SHA-256，同时返回文件大小。
// 导出的 PDF 报告落盘后用它回填校验值。
func File(path string) (sum string, size int64, err error) {
	f, err := os.Open(path)
	if err != nil {
		return "", 0, err
	}
	defer f.Close()

	h := sha256.New()
	n, err := io.Copy(h, f)
	if err != nil {
		return "", 0, err
	}
	return hex.EncodeToString(h.Sum(nil)), n, nil
}
