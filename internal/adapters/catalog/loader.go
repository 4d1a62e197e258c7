package catalog

import (
	"context"
	"errors"
	"fmt"
	"net/url"
	"os"
	"strings"

	"gopkg.in/yaml.v3"

	"netdiag/internal/domain/model"
	"netdiag/internal/platform/hash"
)

// Loader 负责从磁盘读取并校验目录文件（provider、站点、定位源）。
type Loader struct {
	File string
}

// Loaded 是加载后的目录及其文件哈希，用于在 /api/meta 中确认版本。
// Builtin 为 true 表示未指定文件，使用的是内置目录。
type Loaded struct {
	Catalog model.Catalog
	Path    string
	SHA256  string
	Builtin bool
}

func NewLoader(file string) *Loader {
	return &Loader{File: strings.TrimSpace(file)}
}

// Load 读取目录文件；未配置文件时返回内置目录。
// 文件中缺省的段落（targets、locator 等）用内置值补齐。
func (l *Loader) Load(ctx context.Context) (*Loaded, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	if l.File == "" {
		def := Default()
		raw, _ := yaml.Marshal(def)
		return &Loaded{Catalog: def, SHA256: hash.Bytes(raw), Builtin: true}, nil
	}

	raw, err := os.ReadFile(l.File)
	if err != nil {
		return nil, fmt.Errorf("read catalog: %w", err)
	}

	var c model.Catalog
	if err := yaml.Unmarshal(raw, &c); err != nil {
		return nil, fmt.Errorf("parse catalog: %w", err)
	}
	c = mergeWithDefaults(c)
	if err := Validate(c); err != nil {
		return nil, err
	}

	return &Loaded{Catalog: c, Path: l.File, SHA256: hash.Bytes(raw)}, nil
}

// mergeWithDefaults 只补齐整段缺失的配置，不覆盖文件中已给出的值。
func mergeWithDefaults(c model.Catalog) model.Catalog {
	def := Default()
	if strings.TrimSpace(c.Version) == "" {
		c.Version = "custom"
	}
	if len(c.Local) == 0 {
		c.Local = def.Local
	}
	if len(c.Server) == 0 {
		c.Server = def.Server
	}
	if len(c.Targets) == 0 {
		c.Targets = def.Targets
	}
	if strings.TrimSpace(c.Locator.Kind) == "" {
		c.Locator.Kind = def.Locator.Kind
	}
	if c.Locator.Kind == "http" && strings.TrimSpace(c.Locator.URL) == "" {
		c.Locator.URL = def.Locator.URL
		c.Locator.InfoField = def.Locator.InfoField
	}
	return c
}

// Validate 检查目录的完整性与唯一性。
func Validate(c model.Catalog) error {
	if err := validateProviders("local", c.Local); err != nil {
		return err
	}
	if err := validateProviders("server", c.Server); err != nil {
		return err
	}
	for _, d := range c.Server {
		if d.Kind == model.ProviderProxy {
			return fmt.Errorf("catalog: server provider %s cannot be of kind proxy", d.Name)
		}
	}

	seen := make(map[string]struct{}, len(c.Targets))
	for i, t := range c.Targets {
		if strings.TrimSpace(t.Name) == "" {
			return fmt.Errorf("catalog: target #%d name is required", i+1)
		}
		host, err := model.NormalizeHost(t.Host)
		if err != nil {
			return fmt.Errorf("catalog: target %s: %w", t.Name, err)
		}
		if _, ok := seen[host]; ok {
			return fmt.Errorf("catalog: duplicate target host: %s", host)
		}
		seen[host] = struct{}{}
	}

	switch c.Locator.Kind {
	case "http":
		if err := validateURL(c.Locator.URL); err != nil {
			return fmt.Errorf("catalog: locator: %w", err)
		}
	case "maxmind":
	default:
		return fmt.Errorf("catalog: unknown locator kind: %q", c.Locator.Kind)
	}
	return nil
}

func validateProviders(path string, list []model.ProviderDescriptor) error {
	if len(list) == 0 {
		return fmt.Errorf("catalog: %s providers is empty", path)
	}
	seen := make(map[string]struct{}, len(list))
	for _, d := range list {
		name := strings.TrimSpace(d.Name)
		if name == "" {
			return fmt.Errorf("catalog: %s provider name is required", path)
		}
		key := strings.ToLower(name)
		if _, ok := seen[key]; ok {
			return fmt.Errorf("catalog: duplicate %s provider: %s", path, name)
		}
		seen[key] = struct{}{}

		switch d.Kind {
		case model.ProviderJSON, model.ProviderPlain, model.ProviderCFTrace, model.ProviderProxy:
		default:
			return fmt.Errorf("catalog: provider %s: unknown kind %q", name, d.Kind)
		}
		if err := validateURL(d.URL); err != nil {
			return fmt.Errorf("catalog: provider %s: %w", name, err)
		}
	}
	return nil
}

func validateURL(raw string) error {
	u, err := url.Parse(strings.TrimSpace(raw))
	if err != nil {
		return fmt.Errorf("invalid url: %w", err)
	}
	if u.Scheme != "http" && u.Scheme != "https" {
		return errors.New("url must be http(s)")
	}
	if u.Host == "" {
		return errors.New("url host is required")
	}
	return nil
}

// Marshal 把目录序列化为 YAML，供 `netdiag catalog` 导出模板。
func Marshal(c model.Catalog) ([]byte, error) {
	return yaml.Marshal(c)
}
