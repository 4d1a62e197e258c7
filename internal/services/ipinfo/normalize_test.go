package ipinfo

import (
	"errors"
	"testing"

	"netdiag/internal/domain/model"
)

func TestExtractIPByKind(t *testing.T) {
	t.Parallel()

	cases := []struct {
		name string
		body string
		d    model.ProviderDescriptor
		want string
	}{
		{"json default field", `{"ip":" 1.2.3.4 "}`, model.ProviderDescriptor{Kind: model.ProviderJSON}, "1.2.3.4"},
		{"json nested field", `{"data":{"ip":"5.6.7.8"}}`, model.ProviderDescriptor{Kind: model.ProviderJSON, IPField: "data.ip"}, "5.6.7.8"},
		{"plain", "2001:DB8::1\n", model.ProviderDescriptor{Kind: model.ProviderPlain}, "2001:DB8::1"},
		{"cftrace", "fl=1\nh=www.cloudflare.com\nip=9.9.9.9\nts=1\n", model.ProviderDescriptor{Kind: model.ProviderCFTrace}, "9.9.9.9"},
		{"proxy", `{"source":"x","ip":"8.8.8.8","info":"US"}`, model.ProviderDescriptor{Kind: model.ProviderProxy}, "8.8.8.8"},
	}
	for _, c := range cases {
		got, err := ExtractIP([]byte(c.body), c.d)
		if err != nil {
			t.Fatalf("%s: %v", c.name, err)
		}
		if got != c.want {
			t.Fatalf("%s: got %q want %q", c.name, got, c.want)
		}
	}
}

func TestExtractIPRejectsGarbage(t *testing.T) {
	t.Parallel()

	cases := []struct {
		body string
		d    model.ProviderDescriptor
	}{
		{"<html>blocked</html>", model.ProviderDescriptor{Kind: model.ProviderPlain}},
		{"fl=1\nh=x\n", model.ProviderDescriptor{Kind: model.ProviderCFTrace}},
		{`{"code":200}`, model.ProviderDescriptor{Kind: model.ProviderJSON}},
		{`not json`, model.ProviderDescriptor{Kind: model.ProviderJSON}},
		{`{"ip":"1.2.3.4"}`, model.ProviderDescriptor{Kind: "xml"}},
	}
	for _, c := range cases {
		if _, err := ExtractIP([]byte(c.body), c.d); !errors.Is(err, model.ErrParse) {
			t.Fatalf("%q (%s): expected ErrParse, got %v", c.body, c.d.Kind, err)
		}
	}
}

func TestFormatInfo(t *testing.T) {
	t.Parallel()

	full := map[string]any{"country": "中国", "region": "浙江", "city": "杭州", "isp": "电信", "home": "h", "address": "a"}
	if got := FormatInfo(full); got != "中国 浙江 杭州 电信" {
		t.Fatalf("got %q", got)
	}
	partial := map[string]any{"country": "中国", "city": "杭州", "home": "中国浙江", "address": "电信"}
	if got := FormatInfo(partial); got != "中国浙江 电信" {
		t.Fatalf("got %q", got)
	}
	if got := FormatInfo(map[string]any{"country": "US"}); got != model.InfoUnavailable {
		t.Fatalf("got %q", got)
	}
	if got := FormatInfo(nil); got != model.InfoUnavailable {
		t.Fatalf("got %q", got)
	}
}

func TestCanonicalizeIsIdempotent(t *testing.T) {
	t.Parallel()

	for _, in := range []string{" 2001:DB8::1 ", "1.2.3.4", "\tFE80::A\n"} {
		once := Canonicalize(in)
		if Canonicalize(once) != once {
			t.Fatalf("not idempotent for %q", in)
		}
	}
	if Canonicalize(" 2001:DB8::1 ") != "2001:db8::1" {
		t.Fatalf("unexpected canonical form")
	}
}
