package catalog

import (
	"fmt"

	"github.com/samber/lo"

	"netdiag/internal/domain/model"
)

// SelectTargets 把主机列表映射为站点，保持输入顺序并按主机去重。
// hosts 为空时返回目录中的全部站点；不在目录中的主机按临时站点处理（名称即主机）。
func SelectTargets(targets []model.SiteTarget, hosts []string) ([]model.SiteTarget, error) {
	if len(hosts) == 0 {
		return append([]model.SiteTarget{}, targets...), nil
	}
	out := make([]model.SiteTarget, 0, len(hosts))
	for _, raw := range hosts {
		host, err := model.NormalizeHost(raw)
		if err != nil {
			return nil, fmt.Errorf("host %q: %w", raw, err)
		}
		t, ok := lo.Find(targets, func(t model.SiteTarget) bool { return t.Host == host })
		if !ok {
			t = model.SiteTarget{Name: host, Host: host}
		}
		out = append(out, t)
	}
	return lo.UniqBy(out, func(t model.SiteTarget) string { return t.Host }), nil
}
