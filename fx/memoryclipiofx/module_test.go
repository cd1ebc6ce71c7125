package memoryclipiofx

import (
	"bytes"
	"context"
	"testing"

	"go.uber.org/fx"
	"go.uber.org/fx/fxtest"
	"go.uber.org/zap"

	"github.com/blockforge/clipio"
	"github.com/blockforge/clipio/internal/format"
	"github.com/blockforge/clipio/internal/format/schematicfmt"
	"github.com/blockforge/clipio/internal/store/memstore"
	"github.com/blockforge/clipio/internal/volume"
)

func TestModule(t *testing.T) {
	var (
		loader *clipio.Loader
		mem    *memstore.Store
	)
	app := fxtest.New(t,
		fx.Supply(zap.NewNop()),
		Module,
		fx.Populate(&loader, &mem),
	)
	app.RequireStart()

	v, _ := volume.New(volume.Vec3{X: 1, Y: 1, Z: 1}, volume.Vec3{})
	v.SetIndex(0, volume.Block{ID: 20})
	var buf bytes.Buffer
	if err := format.Write(schematicfmt.New(), &buf, v); err != nil {
		t.Fatal(err)
	}
	mem.Put("glass.schematic", buf.Bytes())

	m, err := loader.LoadAll(context.Background(), nil, "store:glass")
	if err != nil {
		t.Fatalf("LoadAll() error = %v", err)
	}
	got, err := m.Holders()[0].Clipboard(context.Background())
	if err != nil {
		t.Fatalf("Clipboard() error = %v", err)
	}
	if got.AtIndex(0).ID != 20 {
		t.Errorf("id = %d, want 20", got.AtIndex(0).ID)
	}

	app.RequireStop()
	if err := loader.Close(); err == nil {
		t.Error("loader should already be closed after app stop")
	}
}
