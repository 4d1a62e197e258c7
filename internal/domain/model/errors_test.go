package model

import (
	"context"
	"errors"
	"fmt"
	"testing"
)

func TestKindOf(t *testing.T) {
	t.Parallel()

	cases := []struct {
		err  error
		want ErrorKind
	}{
		{nil, ""},
		{fmt.Errorf("get x: %w", ErrTimeout), KindTimeout},
		{fmt.Errorf("get x: %w", context.DeadlineExceeded), KindTimeout},
		{context.Canceled, KindCancelled},
		{fmt.Errorf("ping: %w", ErrUnreachable), KindUnreachable},
		{fmt.Errorf("%w: http status 503", ErrHTTPStatus), KindHTTPStatus},
		{fmt.Errorf("decode: %w", ErrParse), KindParse},
		{ErrNoIPInfo, KindNoIPInfo},
		{fmt.Errorf("%w: connection refused", ErrNetwork), KindNetwork},
		{errors.New("boom"), KindError},
	}
	for _, c := range cases {
		if got := KindOf(c.err); got != c.want {
			t.Fatalf("KindOf(%v)=%q want %q", c.err, got, c.want)
		}
	}
}

func TestParseKindFallsBackToError(t *testing.T) {
	t.Parallel()

	if got := ParseKind("timeout"); got != KindTimeout {
		t.Fatalf("got %q", got)
	}
	if got := ParseKind("weird"); got != KindError {
		t.Fatalf("got %q", got)
	}
}

func TestSiteProbeRecordCloneIsDeep(t *testing.T) {
	t.Parallel()

	r := SiteProbeRecord{Local: PathCell{State: StateDone, Outcome: &PingOutcome{LatencyMS: 10}}}
	c := r.Clone()
	c.Local.Outcome.LatencyMS = 99
	if r.Local.Outcome.LatencyMS != 10 {
		t.Fatalf("clone shares outcome pointer")
	}
}

func TestNormalizeHost(t *testing.T) {
	t.Parallel()

	ok := map[string]string{
		"github.com":                 "github.com",
		" https://GitHub.com/login ": "github.com",
		"linux.do/":                  "linux.do",
		"example.com:8443":           "example.com:8443",
		"1.1.1.1":                    "1.1.1.1",
		"http://[2001:db8::1]:80/x":  "[2001:db8::1]:80",
	}
	for in, want := range ok {
		got, err := NormalizeHost(in)
		if err != nil || got != want {
			t.Fatalf("NormalizeHost(%q)=%q,%v want %q", in, got, err, want)
		}
	}

	if _, err := NormalizeHost("  "); !errors.Is(err, ErrEmptyHost) {
		t.Fatalf("expected ErrEmptyHost, got %v", err)
	}
	for _, bad := range []string{"exa mple.com", "evil.com\\@x", "..", "https://"} {
		if _, err := NormalizeHost(bad); !errors.Is(err, ErrInvalidHost) {
			t.Fatalf("NormalizeHost(%q) expected ErrInvalidHost, got %v", bad, err)
		}
	}
}
