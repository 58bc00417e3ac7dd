package flex

import (
	lua "github.com/yuin/gopher-lua"

	"github.com/wegman-software/tilemaker-go/internal/osmstore"
)

// This file implements the Lua-facing closures registered by Runtime's
// registerAPI, one per spec.md §4.7 script callback. Each simply adapts
// Lua's stack calling convention to the corresponding OsmProcessing method.

func (r *Runtime) luaId(L *lua.LState) int {
	L.Push(lua.LNumber(r.proc.Id()))
	return 1
}

func (r *Runtime) luaHolds(L *lua.LState) int {
	key := L.CheckString(1)
	L.Push(lua.LBool(r.proc.Holds(key)))
	return 1
}

func (r *Runtime) luaFind(L *lua.LState) int {
	key := L.CheckString(1)
	L.Push(lua.LString(r.proc.Find(key)))
	return 1
}

func pushObjectIDs(L *lua.LState, ids []osmstore.ObjectID) {
	tbl := L.NewTable()
	for i, id := range ids {
		tbl.RawSetInt(i+1, lua.LNumber(uint64(id)))
	}
	L.Push(tbl)
}

func (r *Runtime) luaIntersects(L *lua.LState) int {
	layer := L.CheckString(1)
	L.Push(lua.LBool(r.proc.Intersects(layer)))
	return 1
}

func (r *Runtime) luaFindIntersecting(L *lua.LState) int {
	layer := L.CheckString(1)
	pushObjectIDs(L, r.proc.FindIntersecting(layer))
	return 1
}

func (r *Runtime) luaCoveredBy(L *lua.LState) int {
	layer := L.CheckString(1)
	L.Push(lua.LBool(r.proc.CoveredBy(layer)))
	return 1
}

func (r *Runtime) luaFindCovering(L *lua.LState) int {
	layer := L.CheckString(1)
	pushObjectIDs(L, r.proc.FindCovering(layer))
	return 1
}

func (r *Runtime) luaAreaIntersecting(L *lua.LState) int {
	layer := L.CheckString(1)
	L.Push(lua.LNumber(r.proc.AreaIntersecting(layer)))
	return 1
}

func (r *Runtime) luaIsClosed(L *lua.LState) int {
	L.Push(lua.LBool(r.proc.IsClosed()))
	return 1
}

func (r *Runtime) luaArea(L *lua.LState) int {
	L.Push(lua.LNumber(r.proc.Area()))
	return 1
}

func (r *Runtime) luaLength(L *lua.LState) int {
	L.Push(lua.LNumber(r.proc.Length()))
	return 1
}

func (r *Runtime) luaCentroid(L *lua.LState) int {
	strategy := ""
	if L.GetTop() >= 1 {
		strategy = L.OptString(1, "")
	}
	lon, lat := r.proc.Centroid(strategy)
	L.Push(lua.LNumber(lon))
	L.Push(lua.LNumber(lat))
	return 2
}

func (r *Runtime) luaLayer(L *lua.LState) int {
	name := L.CheckString(1)
	isArea := false
	if L.GetTop() >= 2 {
		isArea = bool(L.ToBool(2))
	}
	r.proc.Layer(name, isArea)
	return 0
}

func (r *Runtime) luaLayerAsCentroid(L *lua.LState) int {
	name := L.CheckString(1)
	r.proc.LayerAsCentroid(name)
	return 0
}

func optMinZoom(L *lua.LState, idx int) uint8 {
	if L.GetTop() < idx {
		return 0
	}
	return uint8(L.OptInt(idx, 0))
}

func (r *Runtime) luaAttribute(L *lua.LState) int {
	key := L.CheckString(1)
	value := L.CheckString(2)
	mz := optMinZoom(L, 3)
	if err := r.proc.Attribute(key, value, mz); err != nil {
		L.RaiseError(err.Error())
	}
	return 0
}

func (r *Runtime) luaAttributeNumeric(L *lua.LState) int {
	key := L.CheckString(1)
	value := L.CheckNumber(2)
	mz := optMinZoom(L, 3)
	if err := r.proc.AttributeNumeric(key, float64(value), mz); err != nil {
		L.RaiseError(err.Error())
	}
	return 0
}

func (r *Runtime) luaAttributeBoolean(L *lua.LState) int {
	key := L.CheckString(1)
	value := L.CheckBool(2)
	mz := optMinZoom(L, 3)
	if err := r.proc.AttributeBoolean(key, value, mz); err != nil {
		L.RaiseError(err.Error())
	}
	return 0
}

func (r *Runtime) luaMinZoom(L *lua.LState) int {
	z := uint8(L.CheckInt(1))
	if err := r.proc.MinZoom(z); err != nil {
		L.RaiseError(err.Error())
	}
	return 0
}

func (r *Runtime) luaZOrder(L *lua.LState) int {
	z := int32(L.CheckInt(1))
	if err := r.proc.ZOrder(z); err != nil {
		L.RaiseError(err.Error())
	}
	return 0
}

func (r *Runtime) luaAccept(L *lua.LState) int {
	r.proc.Accept()
	return 0
}

func (r *Runtime) luaNextRelation(L *lua.LState) int {
	L.Push(lua.LBool(r.proc.NextRelation()))
	return 1
}

func (r *Runtime) luaRestartRelations(L *lua.LState) int {
	r.proc.RestartRelations()
	return 0
}

func (r *Runtime) luaFindInRelation(L *lua.LState) int {
	key := L.CheckString(1)
	L.Push(lua.LString(r.proc.FindInRelation(key)))
	return 1
}
