package main

import (
	"testing"
	"time"

	"github.com/spf13/afero"

	"github.com/EmilStenstrom/justhtml-html5lib-tests-bench/config"
)

func TestCollectFixtures_WalksDirectoriesSorted(t *testing.T) {
	fsys := afero.NewMemMapFs()
	for _, path := range []string{
		"fixtures/webkit01.dat",
		"fixtures/adoption01.dat",
		"fixtures/nested/tests1.dat",
		"fixtures/readme.md",
		"extra.dat",
	} {
		if err := afero.WriteFile(fsys, path, []byte("#data\nx\n"), 0o644); err != nil {
			t.Fatalf("writing fixture: %v", err)
		}
	}

	files, err := collectFixtures(fsys, []string{"extra.dat", "fixtures"})
	if err != nil {
		t.Fatalf("collectFixtures() error: %v", err)
	}
	want := []string{
		"extra.dat",
		"fixtures/adoption01.dat",
		"fixtures/nested/tests1.dat",
		"fixtures/webkit01.dat",
	}
	if len(files) != len(want) {
		t.Fatalf("Expected %d files, got %v", len(want), files)
	}
	for i := range want {
		if files[i] != want[i] {
			t.Errorf("Expected files[%d] = %q, got %q", i, want[i], files[i])
		}
	}
}

func TestCollectFixtures_MissingPath(t *testing.T) {
	if _, err := collectFixtures(afero.NewMemMapFs(), []string{"nope.dat"}); err == nil {
		t.Fatal("Expected error for a missing path")
	}
}

func TestExpandBackends(t *testing.T) {
	if got := expandBackends("nethtml"); len(got) != 1 || got[0] != "nethtml" {
		t.Errorf("Expected single backend, got %v", got)
	}
	got := expandBackends("all")
	if len(got) != 2 || got[0] != "chromium" || got[1] != "nethtml" {
		t.Errorf("Expected both backends in order, got %v", got)
	}
}

func TestTimeoutSeconds_RoundsUp(t *testing.T) {
	cases := []struct {
		in   time.Duration
		want int
	}{
		{500 * time.Millisecond, 1},
		{time.Second, 1},
		{2500 * time.Millisecond, 3},
		{10 * time.Second, 10},
	}
	for _, c := range cases {
		got, err := timeoutSeconds(c.in)
		if err != nil {
			t.Fatalf("timeoutSeconds(%v) error: %v", c.in, err)
		}
		if got != c.want {
			t.Errorf("timeoutSeconds(%v) = %d, want %d", c.in, got, c.want)
		}
	}
}

func TestTimeoutSeconds_RejectsNonPositive(t *testing.T) {
	for _, d := range []time.Duration{0, -time.Second, -500 * time.Millisecond} {
		if _, err := timeoutSeconds(d); err == nil {
			t.Errorf("Expected error for %v", d)
		}
	}
}

func TestBuildBackends(t *testing.T) {
	cfg := config.Defaults()
	cfg.Backends = []string{"chromium", "nethtml"}

	backends, err := buildBackends(cfg)
	if err != nil {
		t.Fatalf("buildBackends() error: %v", err)
	}
	if len(backends) != 2 {
		t.Fatalf("Expected 2 backends, got %d", len(backends))
	}
	if backends[0].Name() != "chromium" || backends[1].Name() != "nethtml" {
		t.Errorf("Unexpected backend order: %s, %s", backends[0].Name(), backends[1].Name())
	}

	cfg.Backends = []string{"gecko"}
	if _, err := buildBackends(cfg); err == nil {
		t.Fatal("Expected error for unknown backend name")
	}
}
