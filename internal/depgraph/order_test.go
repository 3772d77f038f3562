// SPDX-License-Identifier: MPL-2.0

package depgraph

import (
	"errors"
	"reflect"
	"testing"

	"github.com/bleepbuild/bleep/pkg/manifest"
)

func TestLayers(t *testing.T) {
	t.Parallel()

	g, err := Build([]*manifest.Module{
		mod("site", []string{"chess", "common"}),
		mod("chess", []string{"common"}),
		mod("common", nil),
		mod("voice", nil),
	})
	if err != nil {
		t.Fatal(err)
	}

	layers, err := g.Layers()
	if err != nil {
		t.Fatalf("Layers() error: %v", err)
	}
	want := [][]string{{"common", "voice"}, {"chess"}, {"site"}}
	if !reflect.DeepEqual(layers, want) {
		t.Errorf("Layers() = %v, want %v", layers, want)
	}

	order, err := g.Order()
	if err != nil {
		t.Fatal(err)
	}
	if !reflect.DeepEqual(order, []string{"common", "voice", "chess", "site"}) {
		t.Errorf("Order() = %v", order)
	}
}

func TestLayers_Cycle(t *testing.T) {
	t.Parallel()

	g, err := Build([]*manifest.Module{
		mod("a", []string{"b"}),
		mod("b", []string{"a"}),
		mod("c", nil),
	})
	if err != nil {
		t.Fatal(err)
	}

	_, err = g.Layers()
	var ce *CycleError
	if !errors.As(err, &ce) {
		t.Fatalf("Layers() error = %v, want CycleError", err)
	}
	if !reflect.DeepEqual(ce.Cycle, []string{"a", "b"}) {
		t.Errorf("Cycle = %v", ce.Cycle)
	}
}

func TestLayers_Empty(t *testing.T) {
	t.Parallel()

	g, err := Build(nil)
	if err != nil {
		t.Fatal(err)
	}
	if layers, err := g.Layers(); err != nil || layers != nil {
		t.Errorf("Layers() = %v, %v", layers, err)
	}
}
