package catalog

import (
	"errors"
	"testing"

	"netdiag/internal/domain/model"
)

func TestSelectTargets(t *testing.T) {
	t.Parallel()

	known := []model.SiteTarget{{Name: "GitHub", Host: "github.com"}}
	got, err := SelectTargets(known, []string{"https://GitHub.com/", "example.org", "github.com"})
	if err != nil {
		t.Fatalf("SelectTargets: %v", err)
	}
	if len(got) != 2 || got[0].Name != "GitHub" || got[1].Name != "example.org" {
		t.Fatalf("got %+v", got)
	}

	all, err := SelectTargets(known, nil)
	if err != nil || len(all) != 1 {
		t.Fatalf("all=%+v err=%v", all, err)
	}
	all[0].Name = "changed"
	if known[0].Name != "GitHub" {
		t.Fatalf("result must not alias the catalog")
	}

	if _, err := SelectTargets(known, []string{"bad host"}); !errors.Is(err, model.ErrInvalidHost) {
		t.Fatalf("err=%v, want ErrInvalidHost", err)
	}
}
