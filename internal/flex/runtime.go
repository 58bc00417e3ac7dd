package flex

import (
	"fmt"

	lua "github.com/yuin/gopher-lua"

	"github.com/wegman-software/tilemaker-go/internal/osmstore"
	"github.com/wegman-software/tilemaker-go/internal/tagmap"
)

// Runtime owns one worker's *lua.LState and the OsmProcessing it is bound
// to. Script globals are read as free functions rather than methods on an
// object table (ground: teacher's internal/flex/runtime.go's
// L.NewFunction(r.method) closures, generalized from osm2pgsql's
// object-table style to tilemaker's global-function style — each closure
// captures this Runtime's *OsmProcessing directly, so there is never a
// thread-local or package-level lookup keyed by goroutine id; one Runtime
// exists per worker goroutine and outlives every entity it processes).
type Runtime struct {
	L    *lua.LState
	proc *OsmProcessing

	nodeKeys []string

	initFn           lua.LValue
	exitFn           lua.LValue
	nodeFn           lua.LValue
	wayFn            lua.LValue
	relationFn       lua.LValue
	relationScanFn   lua.LValue
}

// NewRuntime creates a Lua state bound to proc and registers the full
// script callback surface from spec.md §4.7 as globals.
func NewRuntime(proc *OsmProcessing) *Runtime {
	r := &Runtime{
		L:    lua.NewState(lua.Options{SkipOpenLibs: false}),
		proc: proc,
	}
	r.registerAPI()
	return r
}

// Close releases the Lua interpreter.
func (r *Runtime) Close() { r.L.Close() }

func (r *Runtime) registerAPI() {
	L := r.L

	L.SetGlobal("Id", L.NewFunction(r.luaId))
	L.SetGlobal("Holds", L.NewFunction(r.luaHolds))
	L.SetGlobal("Find", L.NewFunction(r.luaFind))
	L.SetGlobal("Intersects", L.NewFunction(r.luaIntersects))
	L.SetGlobal("FindIntersecting", L.NewFunction(r.luaFindIntersecting))
	L.SetGlobal("CoveredBy", L.NewFunction(r.luaCoveredBy))
	L.SetGlobal("FindCovering", L.NewFunction(r.luaFindCovering))
	L.SetGlobal("AreaIntersecting", L.NewFunction(r.luaAreaIntersecting))
	L.SetGlobal("IsClosed", L.NewFunction(r.luaIsClosed))
	L.SetGlobal("Area", L.NewFunction(r.luaArea))
	L.SetGlobal("Length", L.NewFunction(r.luaLength))
	L.SetGlobal("Centroid", L.NewFunction(r.luaCentroid))
	L.SetGlobal("Layer", L.NewFunction(r.luaLayer))
	L.SetGlobal("LayerAsCentroid", L.NewFunction(r.luaLayerAsCentroid))
	L.SetGlobal("Attribute", L.NewFunction(r.luaAttribute))
	L.SetGlobal("AttributeNumeric", L.NewFunction(r.luaAttributeNumeric))
	L.SetGlobal("AttributeBoolean", L.NewFunction(r.luaAttributeBoolean))
	L.SetGlobal("MinZoom", L.NewFunction(r.luaMinZoom))
	L.SetGlobal("ZOrder", L.NewFunction(r.luaZOrder))
	L.SetGlobal("Accept", L.NewFunction(r.luaAccept))
	L.SetGlobal("NextRelation", L.NewFunction(r.luaNextRelation))
	L.SetGlobal("RestartRelations", L.NewFunction(r.luaRestartRelations))
	L.SetGlobal("FindInRelation", L.NewFunction(r.luaFindInRelation))

	L.SetGlobal("print", L.NewFunction(r.luaPrint))
}

// LoadFile loads and executes a style script, then pulls out the globals
// the driver needs to invoke (ground: teacher's Runtime.LoadFile).
func (r *Runtime) LoadFile(path string) error {
	if err := r.L.DoFile(path); err != nil {
		return fmt.Errorf("flex: loading script %s: %w", path, err)
	}
	r.extractCallbacks()
	return nil
}

// LoadString loads and executes script code from a string, for tests.
func (r *Runtime) LoadString(code string) error {
	if err := r.L.DoString(code); err != nil {
		return fmt.Errorf("flex: loading script: %w", err)
	}
	r.extractCallbacks()
	return nil
}

func (r *Runtime) extractCallbacks() {
	r.initFn = r.L.GetGlobal("init_function")
	r.exitFn = r.L.GetGlobal("exit_function")
	r.nodeFn = r.L.GetGlobal("node_function")
	r.wayFn = r.L.GetGlobal("way_function")
	r.relationFn = r.L.GetGlobal("relation_function")
	r.relationScanFn = r.L.GetGlobal("relation_scan_function")

	if keysVal := r.L.GetGlobal("node_keys"); keysVal.Type() == lua.LTTable {
		tbl := keysVal.(*lua.LTable)
		r.nodeKeys = r.nodeKeys[:0]
		tbl.ForEach(func(_, v lua.LValue) {
			if s, ok := v.(lua.LString); ok {
				r.nodeKeys = append(r.nodeKeys, string(s))
			}
		})
	}
}

// NodeKeys returns the keys a script declared via the global node_keys
// table: the PbfDriver skips node_function entirely for nodes carrying
// none of them, for performance (most nodes are bare way vertices).
func (r *Runtime) NodeKeys() []string { return r.nodeKeys }

// Init invokes the script's init_function(projectName), if defined.
func (r *Runtime) Init(projectName string) error {
	if r.initFn == nil || r.initFn.Type() != lua.LTFunction {
		return nil
	}
	return r.call(r.initFn, lua.LString(projectName))
}

// Exit invokes the script's exit_function(), if defined.
func (r *Runtime) Exit() error {
	if r.exitFn == nil || r.exitFn.Type() != lua.LTFunction {
		return nil
	}
	return r.call(r.exitFn)
}

func (r *Runtime) call(fn lua.LValue, args ...lua.LValue) error {
	p := lua.P{Fn: fn, NRet: 0, Protect: true}
	if err := r.L.CallByParam(p, args...); err != nil {
		return &ScriptError{EntityKind: "script", EntityID: r.proc.id, Traceback: err.Error()}
	}
	return nil
}

// ProcessNode binds id/loc/tags onto the underlying OsmProcessing, invokes
// node_function if defined, and finalizes any outputs it produced.
func (r *Runtime) ProcessNode(id osmstore.NodeID, loc osmstore.LatpLon, tags tagmap.TagMap) ([]OutputObject, error) {
	r.proc.SetNode(id, loc, tags)
	if r.nodeFn != nil && r.nodeFn.Type() == lua.LTFunction {
		if err := r.call(r.nodeFn); err != nil {
			return nil, err
		}
	}
	return r.proc.Finalize(), nil
}

// ProcessWay binds id/coords/tags onto the underlying OsmProcessing,
// invokes way_function if defined, and finalizes any outputs it produced.
func (r *Runtime) ProcessWay(id osmstore.WayID, coords []osmstore.LatpLon, closed bool, tags tagmap.TagMap) ([]OutputObject, error) {
	r.proc.SetWay(id, coords, closed, tags)
	if r.wayFn != nil && r.wayFn.Type() == lua.LTFunction {
		if err := r.call(r.wayFn); err != nil {
			return nil, err
		}
	}
	return r.proc.Finalize(), nil
}

// ProcessRelation binds id/outer/inner/tags onto the underlying
// OsmProcessing, invokes relation_function if defined, and finalizes any
// outputs it produced.
func (r *Runtime) ProcessRelation(id osmstore.RelationID, outer, inner [][]osmstore.LatpLon, tags tagmap.TagMap, isMultiPolygon, isInnerOuter bool) ([]OutputObject, error) {
	r.proc.SetRelation(id, outer, inner, tags, isMultiPolygon, isInnerOuter)
	if r.relationFn != nil && r.relationFn.Type() == lua.LTFunction {
		if err := r.call(r.relationFn); err != nil {
			return nil, err
		}
	}
	return r.proc.Finalize(), nil
}

// ScanRelation binds id/tags for the RelationScan phase, invokes
// relation_scan_function if defined, and reports whether the script
// accepted the relation via Accept().
func (r *Runtime) ScanRelation(id osmstore.RelationID, tags tagmap.TagMap) (bool, error) {
	r.proc.BeginScanRelation(id, tags)
	if r.relationScanFn != nil && r.relationScanFn.Type() == lua.LTFunction {
		if err := r.call(r.relationScanFn); err != nil {
			return false, err
		}
	}
	return r.proc.Accepted(), nil
}

func (r *Runtime) luaPrint(L *lua.LState) int {
	n := L.GetTop()
	for i := 1; i <= n; i++ {
		fmt.Print(L.ToStringMeta(L.Get(i)).String())
		if i < n {
			fmt.Print("\t")
		}
	}
	fmt.Println()
	return 0
}
