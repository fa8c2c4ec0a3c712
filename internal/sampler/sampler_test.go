package sampler

import (
	"errors"
	"testing"

	"github.com/crimson-sun/thermofin/internal/config"
)

func finConfig() config.FinConfig {
	return config.Default().Fin
}

func TestNext_WithinBounds(t *testing.T) {
	cfg := finConfig()
	s, err := New(cfg, 7)
	if err != nil {
		t.Fatalf("New: %v", err)
	}
	schema := s.Schema()

	for n := 0; n < 200; n++ {
		p := s.Next()
		if len(p) != schema.Len() {
			t.Fatalf("expected %d parameters, got %d", schema.Len(), len(p))
		}
		for i := 0; i < cfg.SubFins; i++ {
			v := p[schema.SubFinIndex(i)]
			if v < cfg.Conductivity.Min || v > cfg.Conductivity.Max {
				t.Fatalf("conductivity %d out of bounds: %g", i, v)
			}
		}
		if b := p[schema.BiotIndex()]; b < cfg.Biot.Min || b > cfg.Biot.Max {
			t.Fatalf("biot out of bounds: %g", b)
		}
		if k := p[schema.PostIndex()]; k < cfg.PostConductivity.Min || k > cfg.PostConductivity.Max {
			t.Fatalf("post conductivity out of bounds: %g", k)
		}
	}
}

func TestNext_ReproducibleAcrossSamplers(t *testing.T) {
	a, err := New(finConfig(), 42)
	if err != nil {
		t.Fatalf("New: %v", err)
	}
	b, err := New(finConfig(), 42)
	if err != nil {
		t.Fatalf("New: %v", err)
	}

	for n := 0; n < 100; n++ {
		pa, pb := a.Next(), b.Next()
		for i := range pa {
			if pa[i] != pb[i] {
				t.Fatalf("draw %d parameter %d differs: %v vs %v", n, i, pa[i], pb[i])
			}
		}
	}
}

func TestNext_DifferentSeedsDiffer(t *testing.T) {
	a, _ := New(finConfig(), 1)
	b, _ := New(finConfig(), 2)
	pa, pb := a.Next(), b.Next()
	same := true
	for i := range pa {
		if pa[i] != pb[i] {
			same = false
		}
	}
	if same {
		t.Fatal("expected different seeds to produce different first draws")
	}
}

func TestReset_RewindsStream(t *testing.T) {
	s, err := New(finConfig(), 99)
	if err != nil {
		t.Fatalf("New: %v", err)
	}
	first := s.Next()
	s.Next()
	s.Next()
	s.Reset()
	again := s.Next()
	for i := range first {
		if first[i] != again[i] {
			t.Fatalf("parameter %d after Reset: %v, want %v", i, again[i], first[i])
		}
	}
}

func TestLogUniform_StaysPositiveWithinBounds(t *testing.T) {
	cfg := finConfig()
	cfg.Conductivity = config.ParamBounds{Min: 0.01, Max: 100, Dist: config.DistLogUniform}
	s, err := New(cfg, 3)
	if err != nil {
		t.Fatalf("New: %v", err)
	}
	schema := s.Schema()
	for n := 0; n < 200; n++ {
		p := s.Next()
		for i := 0; i < cfg.SubFins; i++ {
			v := p[schema.SubFinIndex(i)]
			if v < 0.01 || v > 100 {
				t.Fatalf("log-uniform draw out of bounds: %g", v)
			}
		}
	}
}

func TestNew_InvertedBounds(t *testing.T) {
	cfg := finConfig()
	cfg.Biot = config.ParamBounds{Min: 2, Max: 1, Dist: config.DistUniform}
	_, err := New(cfg, 1)
	if err == nil {
		t.Fatal("expected error for inverted bounds")
	}
	if !errors.Is(err, config.ErrInvalidConfig) {
		t.Fatalf("expected ErrInvalidConfig, got: %v", err)
	}
}

func TestNew_LogUniformZeroBound(t *testing.T) {
	cfg := finConfig()
	cfg.PostConductivity = config.ParamBounds{Min: 0, Max: 2, Dist: config.DistLogUniform}
	_, err := New(cfg, 1)
	if err == nil {
		t.Fatal("expected error for log-uniform bound at zero")
	}
	if !errors.Is(err, config.ErrInvalidConfig) {
		t.Fatalf("expected ErrInvalidConfig, got: %v", err)
	}
}
