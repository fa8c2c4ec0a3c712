package pipeline

import (
	"errors"
	"strings"
	"testing"

	"github.com/crimson-sun/thermofin/internal/config"
	"github.com/crimson-sun/thermofin/internal/fem"
	"github.com/crimson-sun/thermofin/internal/geometry"
	"github.com/crimson-sun/thermofin/internal/mesh"
	"github.com/crimson-sun/thermofin/internal/model"
)

// testConfig returns a small, fast configuration. The output grid
// domain is padded beyond the fin bounds so that grid corners are
// always outside the geometry.
func testConfig(subFins int) config.Config {
	cfg := config.Default()
	cfg.Fin.SubFins = subFins
	cfg.Mesh.Density = 2
	cfg.Grid.Width = 24
	cfg.Grid.Height = 24
	cfg.Grid.Domain = model.BBox{XMin: -3.5, XMax: 3.5, YMin: -0.25, YMax: 4.25}
	return cfg
}

// testParams builds a parameter vector with every conductivity and the
// Biot number set to the given values.
func testParams(schema model.Schema, cond, biot, post float64) model.ParameterVector {
	p := make(model.ParameterVector, schema.Len())
	for i := 0; i < schema.SubFins; i++ {
		p[schema.SubFinIndex(i)] = cond
	}
	p[schema.BiotIndex()] = biot
	p[schema.PostIndex()] = post
	return p
}

func TestCanTransition(t *testing.T) {
	cases := []struct {
		from, to Stage
		want     bool
	}{
		{StageSampled, StageGeometrized, true},
		{StageGeometrized, StageMeshed, true},
		{StageMeshed, StageAssembled, true},
		{StageAssembled, StageSolved, true},
		{StageSolved, StageResampled, true},
		{StageResampled, StageStored, true},
		{StageSampled, StageMeshed, false},     // no skipping
		{StageMeshed, StageGeometrized, false}, // no going back
		{StageSampled, StageFailed, true},
		{StageResampled, StageFailed, true},
		{StageStored, StageFailed, false},  // terminal
		{StageFailed, StageSampled, false}, // terminal
		{StageStored, StageSampled, false},
	}
	for _, c := range cases {
		if got := CanTransition(c.from, c.to); got != c.want {
			t.Errorf("CanTransition(%s, %s) = %v, want %v", c.from, c.to, got, c.want)
		}
	}
}

func TestStageTerminal(t *testing.T) {
	for s := StageSampled; s <= StageFailed; s++ {
		want := s == StageStored || s == StageFailed
		if s.Terminal() != want {
			t.Errorf("%s.Terminal() = %v, want %v", s, s.Terminal(), want)
		}
	}
}

func TestStageString(t *testing.T) {
	if StageMeshed.String() != "meshed" {
		t.Errorf("got %q", StageMeshed.String())
	}
	if Stage(200).String() != "unknown" {
		t.Errorf("got %q", Stage(200).String())
	}
}

func TestSampleErrorUnwrap(t *testing.T) {
	serr := &SampleError{
		Index:  7,
		Stage:  StageSolved,
		Params: model.ParameterVector{1, 2},
		Err:    fem.ErrSingular,
	}
	if !errors.Is(serr, fem.ErrSingular) {
		t.Error("SampleError should unwrap to its cause")
	}
	msg := serr.Error()
	if !strings.Contains(msg, "sample 7") || !strings.Contains(msg, "solved") {
		t.Errorf("unexpected message: %q", msg)
	}
}

func TestPipelineRunSuccess(t *testing.T) {
	cfg := testConfig(2)
	schema := model.NewSchema(2)
	p := NewPipeline(cfg, schema)

	grid, serr := p.Run(0, testParams(schema, 1.0, 1.0, 1.0))
	if serr != nil {
		t.Fatalf("run failed: %v", serr)
	}
	if grid.W != 24 || grid.H != 24 {
		t.Fatalf("expected 24x24 grid, got %dx%d", grid.W, grid.H)
	}

	valid, invalid := 0, 0
	for i, ok := range grid.Mask {
		if ok {
			valid++
			if grid.Values[i] <= 0 {
				t.Fatalf("cell %d: expected positive temperature inside the fin, got %g", i, grid.Values[i])
			}
		} else {
			invalid++
			if grid.Values[i] != 0 {
				t.Fatalf("cell %d: masked-out cell must hold the sentinel 0, got %g", i, grid.Values[i])
			}
		}
	}
	if valid == 0 || invalid == 0 {
		t.Fatalf("expected a mix of valid and invalid cells, got %d/%d", valid, invalid)
	}

	// The padded domain keeps all four corners outside the fin.
	for _, c := range [][2]int{{0, 0}, {23, 0}, {0, 23}, {23, 23}} {
		if grid.Valid(c[0], c[1]) {
			t.Errorf("corner (%d,%d) should be outside the geometry", c[0], c[1])
		}
	}
}

func TestPipelineRunZeroBiot(t *testing.T) {
	cfg := testConfig(2)
	schema := model.NewSchema(2)
	p := NewPipeline(cfg, schema)

	_, serr := p.Run(3, testParams(schema, 1.0, 0.0, 1.0))
	if serr == nil {
		t.Fatal("expected a failure for zero Biot number")
	}
	if serr.Stage != StageSolved {
		t.Errorf("expected failure at stage solved, got %s", serr.Stage)
	}
	if !errors.Is(serr, fem.ErrSingular) {
		t.Errorf("expected ErrSingular, got %v", serr.Err)
	}
	if serr.Index != 3 {
		t.Errorf("expected index 3, got %d", serr.Index)
	}
}

func TestPipelineRunBadParams(t *testing.T) {
	cfg := testConfig(2)
	schema := model.NewSchema(2)
	p := NewPipeline(cfg, schema)

	t.Run("wrong length", func(t *testing.T) {
		_, serr := p.Run(0, model.ParameterVector{1, 2})
		if serr == nil || serr.Stage != StageGeometrized {
			t.Fatalf("expected geometry-stage failure, got %v", serr)
		}
		if !errors.Is(serr, geometry.ErrSchemaMismatch) {
			t.Errorf("expected ErrSchemaMismatch, got %v", serr.Err)
		}
	})

	t.Run("negative conductivity", func(t *testing.T) {
		_, serr := p.Run(0, testParams(schema, -1.0, 1.0, 1.0))
		if serr == nil || serr.Stage != StageGeometrized {
			t.Fatalf("expected geometry-stage failure, got %v", serr)
		}
		if !errors.Is(serr, geometry.ErrBadConductivity) {
			t.Errorf("expected ErrBadConductivity, got %v", serr.Err)
		}
	})
}

// A density of 0.5 on the bare post yields 0.5x2 cells (aspect ratio
// 4.25); doubling once brings them to 0.5x1 (ratio 2.5), under the 2.6
// limit. The retry policy must absorb the first failure.
func TestPipelineMeshRetrySucceeds(t *testing.T) {
	cfg := testConfig(0)
	cfg.Mesh.Density = 0.5
	cfg.Mesh.AspectRatioLimit = 2.6
	cfg.Mesh.MaxRetries = 1
	schema := model.NewSchema(0)
	p := NewPipeline(cfg, schema)

	if _, serr := p.Run(0, testParams(schema, 0, 1.0, 1.0)); serr != nil {
		t.Fatalf("expected retry to recover the mesh, got %v", serr)
	}
}

func TestPipelineMeshRetryExhausted(t *testing.T) {
	cfg := testConfig(2)
	cfg.Mesh.AspectRatioLimit = 1.5 // below the lattice minimum of 2, never satisfiable
	cfg.Mesh.MaxRetries = 2
	schema := model.NewSchema(2)
	p := NewPipeline(cfg, schema)

	_, serr := p.Run(0, testParams(schema, 1.0, 1.0, 1.0))
	if serr == nil {
		t.Fatal("expected meshing to fail")
	}
	if serr.Stage != StageMeshed {
		t.Errorf("expected failure at stage meshed, got %s", serr.Stage)
	}
	if !errors.Is(serr, mesh.ErrAspectRatio) {
		t.Errorf("expected ErrAspectRatio, got %v", serr.Err)
	}
}
