package flex

import (
	"testing"

	"github.com/wegman-software/tilemaker-go/internal/attrstore"
	"github.com/wegman-software/tilemaker-go/internal/osmstore"
	"github.com/wegman-software/tilemaker-go/internal/tagmap"
)

func TestRuntimeProcessWayEmitsLayerWithAttribute(t *testing.T) {
	emitter := &collectingEmitter{}
	scan := osmstore.NewRelationScanStore()
	scan.Finalize()
	proc := NewOsmProcessing(attrstore.NewEngine(), scan, emitter)
	rt := NewRuntime(proc)
	defer rt.Close()

	script := `
		function way_function()
			if Holds("highway") then
				Layer("roads", false)
				Attribute("highway", Find("highway"), 0)
			end
		end
	`
	if err := rt.LoadString(script); err != nil {
		t.Fatalf("LoadString: %v", err)
	}

	coords := []osmstore.LatpLon{{Latp: 0, Lon: 0}, {Latp: 1, Lon: 1}}
	outs, err := rt.ProcessWay(1, coords, false, wayTags("highway", "residential"))
	if err != nil {
		t.Fatalf("ProcessWay: %v", err)
	}
	if len(outs) != 1 || outs[0].Layer != "roads" {
		t.Fatalf("ProcessWay outputs = %+v, want one roads layer output", outs)
	}
	if len(emitter.outputs) != 1 {
		t.Errorf("emitter received %d outputs, want 1", len(emitter.outputs))
	}
}

func TestRuntimeProcessWaySkipsNonMatchingWay(t *testing.T) {
	scan := osmstore.NewRelationScanStore()
	scan.Finalize()
	proc := NewOsmProcessing(attrstore.NewEngine(), scan, nil)
	rt := NewRuntime(proc)
	defer rt.Close()

	script := `
		function way_function()
			if Holds("highway") then
				Layer("roads", false)
			end
		end
	`
	if err := rt.LoadString(script); err != nil {
		t.Fatalf("LoadString: %v", err)
	}

	outs, err := rt.ProcessWay(2, nil, false, wayTags("building", "yes"))
	if err != nil {
		t.Fatalf("ProcessWay: %v", err)
	}
	if len(outs) != 0 {
		t.Errorf("ProcessWay outputs = %+v, want none", outs)
	}
}

func TestRuntimeAttributeBeforeLayerRaisesScriptError(t *testing.T) {
	scan := osmstore.NewRelationScanStore()
	scan.Finalize()
	proc := NewOsmProcessing(attrstore.NewEngine(), scan, nil)
	rt := NewRuntime(proc)
	defer rt.Close()

	script := `
		function way_function()
			Attribute("highway", "residential", 0)
		end
	`
	if err := rt.LoadString(script); err != nil {
		t.Fatalf("LoadString: %v", err)
	}

	if _, err := rt.ProcessWay(3, nil, false, tagmap.New(nil, nil, nil)); err == nil {
		t.Fatal("expected ProcessWay to propagate the Attribute-before-Layer error")
	}
}

func TestRuntimeNodeKeysParsedFromScript(t *testing.T) {
	scan := osmstore.NewRelationScanStore()
	scan.Finalize()
	proc := NewOsmProcessing(attrstore.NewEngine(), scan, nil)
	rt := NewRuntime(proc)
	defer rt.Close()

	if err := rt.LoadString(`node_keys = {"amenity", "shop"}`); err != nil {
		t.Fatalf("LoadString: %v", err)
	}
	got := rt.NodeKeys()
	if len(got) != 2 || got[0] != "amenity" || got[1] != "shop" {
		t.Errorf("NodeKeys() = %v, want [amenity shop]", got)
	}
}

func TestRuntimeInitAndExitFunctions(t *testing.T) {
	scan := osmstore.NewRelationScanStore()
	scan.Finalize()
	proc := NewOsmProcessing(attrstore.NewEngine(), scan, nil)
	rt := NewRuntime(proc)
	defer rt.Close()

	script := `
		initCalled = false
		exitCalled = false
		function init_function(name)
			initCalled = true
		end
		function exit_function()
			exitCalled = true
		end
	`
	if err := rt.LoadString(script); err != nil {
		t.Fatalf("LoadString: %v", err)
	}
	if err := rt.Init("tilemaker-go"); err != nil {
		t.Fatalf("Init: %v", err)
	}
	if err := rt.Exit(); err != nil {
		t.Fatalf("Exit: %v", err)
	}
	if got := rt.L.GetGlobal("initCalled"); got.String() != "true" {
		t.Errorf("initCalled = %v, want true", got)
	}
	if got := rt.L.GetGlobal("exitCalled"); got.String() != "true" {
		t.Errorf("exitCalled = %v, want true", got)
	}
}
