//go:build !no_automation

package automation

import (
	"fmt"
	"sort"
	"strconv"
	"strings"
	"time"

	lua "github.com/yuin/gopher-lua"

	"zwave-go-home/internal/manager"
	"zwave-go-home/internal/network"
)

// registerZWaveModule registers the `zwave` global table in a Lua state.
func registerZWaveModule(L *lua.LState, vm *scriptVM, e *Engine) {
	mod := L.NewTable()

	fns := map[string]lua.LGFunction{
		"on":         func(L *lua.LState) int { return zwaveOn(L, vm, e) },
		"set_field":  func(L *lua.LState) int { return zwaveSetField(L, e) },
		"get_values": func(L *lua.LState) int { return zwaveGetValues(L, e) },
		"get_value":  func(L *lua.LState) int { return zwaveGetValue(L, e) },
		"set_value":  func(L *lua.LState) int { return zwaveSetValue(L, e) },
		"switch_on":  func(L *lua.LState) int { return zwaveSwitch(L, e, true) },
		"switch_off": func(L *lua.LState) int { return zwaveSwitch(L, e, false) },
		"set_level":  func(L *lua.LState) int { return zwaveSetLevel(L, e) },
		"after":      func(L *lua.LState) int { return zwaveAfter(L, vm, e) },
		"log":        func(L *lua.LState) int { return zwaveLog(L, e) },
		"nodes":      func(L *lua.LState) int { return zwaveNodes(L, e) },
	}
	for name, fn := range fns {
		mod.RawSetString(name, L.NewFunction(fn))
	}

	L.SetGlobal("zwave", mod)
}

const maxHandlersPerScript = 100

// pushResult returns true, or nil plus the error message.
func pushResult(L *lua.LState, err error) int {
	if err != nil {
		L.Push(lua.LNil)
		L.Push(lua.LString(err.Error()))
		return 2
	}
	L.Push(lua.LTrue)
	return 1
}

// checkNode resolves argument n to a node or raises an argument error.
func checkNode(L *lua.LState, e *Engine, n int) *network.Node {
	target := L.CheckAny(n)
	node := resolveNode(e, target)
	if node == nil {
		L.ArgError(n, fmt.Sprintf("unknown node %s", target.String()))
	}
	return node
}

// resolveNode finds a node by ID or, case-insensitively, by name.
func resolveNode(e *Engine, target lua.LValue) *network.Node {
	switch v := target.(type) {
	case lua.LNumber:
		if v < 1 || v > 255 {
			return nil
		}
		node, _ := e.net.Node(uint8(v))
		return node
	case lua.LString:
		s := string(v)
		if id, err := strconv.ParseUint(s, 10, 8); err == nil {
			node, _ := e.net.Node(uint8(id))
			return node
		}
		for _, node := range e.net.Nodes() {
			if strings.EqualFold(node.Name(), s) {
				return node
			}
		}
	}
	return nil
}

// checkCommandClass raises an argument error unless v is an integer in 0..255.
func checkCommandClass(L *lua.LState, arg int, v lua.LNumber) uint8 {
	if v < 0 || v > 255 || v != lua.LNumber(int(v)) {
		L.ArgError(arg, fmt.Sprintf("command_class must be an integer 0-255, got %s", v.String()))
		return 0
	}
	return uint8(v)
}

// zwave.on(type, filter, callback)
func zwaveOn(L *lua.LState, vm *scriptVM, e *Engine) int {
	eventType := L.CheckString(1)
	filter := L.CheckTable(2)
	fn := L.CheckFunction(3)

	h := luaEventHandler{eventType: eventType, fn: fn}

	if v := filter.RawGetString("node"); v != lua.LNil {
		node := resolveNode(e, v)
		if node == nil {
			L.ArgError(2, fmt.Sprintf("unknown node %s", v.String()))
			return 0
		}
		h.nodeID = node.ID()
	}
	if v := filter.RawGetString("label"); v != lua.LNil {
		h.label = v.String()
	}
	if v, ok := filter.RawGetString("command_class").(lua.LNumber); ok {
		h.commandClass = checkCommandClass(L, 2, v)
	}

	vm.mu.Lock()
	if len(vm.handlers) >= maxHandlersPerScript {
		vm.mu.Unlock()
		L.RaiseError("too many handlers (max %d)", maxHandlersPerScript)
		return 0
	}
	vm.handlers = append(vm.handlers, h)
	vm.mu.Unlock()

	return 0
}

// zwave.set_field(node, field, value)
func zwaveSetField(L *lua.LState, e *Engine) int {
	node := checkNode(L, e, 1)
	field := L.CheckString(2)
	value := L.CheckString(3)
	return pushResult(L, node.SetField(field, value))
}

// zwave.get_values(node, filter) returns value tables sorted by value ID.
func zwaveGetValues(L *lua.LState, e *Engine) int {
	node := checkNode(L, e, 1)
	filter := L.OptTable(2, L.NewTable())

	var opts []network.FilterOption
	if v, ok := filter.RawGetString("command_class").(lua.LNumber); ok {
		opts = append(opts, network.ByCommandClass(checkCommandClass(L, 2, v)))
	}
	if v, ok := filter.RawGetString("genre").(lua.LString); ok {
		g, err := manager.ParseGenre(string(v))
		if err != nil {
			L.ArgError(2, err.Error())
			return 0
		}
		opts = append(opts, network.ByGenre(g))
	}
	if v, ok := filter.RawGetString("type").(lua.LString); ok {
		t, err := manager.ParseValueType(string(v))
		if err != nil {
			L.ArgError(2, err.Error())
			return 0
		}
		opts = append(opts, network.ByType(t))
	}
	if v, ok := filter.RawGetString("readonly").(lua.LBool); ok {
		opts = append(opts, network.ByReadOnly(bool(v)))
	}
	if v, ok := filter.RawGetString("writeonly").(lua.LBool); ok {
		opts = append(opts, network.ByWriteOnly(bool(v)))
	}

	values := node.Values(opts...)
	ids := make([]network.ValueID, 0, len(values))
	for id := range values {
		ids = append(ids, id)
	}
	sort.Slice(ids, func(i, j int) bool { return ids[i] < ids[j] })

	tbl := L.NewTable()
	for i, id := range ids {
		tbl.RawSetInt(i+1, valueTable(L, values[id]))
	}
	L.Push(tbl)
	return 1
}

func valueTable(L *lua.LState, v *network.Value) *lua.LTable {
	t := L.NewTable()
	t.RawSetString("id", lua.LString(strconv.FormatUint(uint64(v.ID), 10)))
	t.RawSetString("label", lua.LString(v.Label))
	t.RawSetString("value", goToLua(L, v.Data))
	t.RawSetString("units", lua.LString(v.Units))
	t.RawSetString("command_class", lua.LNumber(v.CommandClass))
	t.RawSetString("genre", lua.LString(v.Genre.String()))
	t.RawSetString("type", lua.LString(v.Type.String()))
	t.RawSetString("readonly", lua.LBool(v.ReadOnly))
	return t
}

// zwave.get_value(node, label)
func zwaveGetValue(L *lua.LState, e *Engine) int {
	node := checkNode(L, e, 1)
	label := L.CheckString(2)

	if v := node.FindValue(label); v != nil {
		L.Push(goToLua(L, v.Data))
		return 1
	}
	L.Push(lua.LNil)
	return 1
}

// zwave.set_value(node, label, data)
func zwaveSetValue(L *lua.LState, e *Engine) int {
	node := checkNode(L, e, 1)
	label := L.CheckString(2)
	data := luaToGo(L.CheckAny(3))

	v := node.FindValue(label, network.ByReadOnly(false))
	if v == nil {
		return pushResult(L, fmt.Errorf("node %d has no writable value %q", node.ID(), label))
	}
	return pushResult(L, node.SetValue(v.ID, data))
}

// zwave.switch_on(node) / zwave.switch_off(node)
func zwaveSwitch(L *lua.LState, e *Engine, on bool) int {
	node := checkNode(L, e, 1)
	if on {
		return pushResult(L, node.Switch().On())
	}
	return pushResult(L, node.Switch().Off())
}

// zwave.set_level(node, level)
func zwaveSetLevel(L *lua.LState, e *Engine) int {
	node := checkNode(L, e, 1)
	level := L.CheckInt(2)
	if level < 0 {
		level = 0
	}
	if level > int(network.MaxLevel) {
		level = int(network.MaxLevel)
	}
	return pushResult(L, node.Switch().SetLevel(uint8(level)))
}

// zwave.after(seconds, callback) runs callback on the script's VM later.
func zwaveAfter(L *lua.LState, vm *scriptVM, e *Engine) int {
	seconds := L.CheckNumber(1)
	fn := L.CheckFunction(2)

	go func() {
		timer := time.NewTimer(time.Duration(float64(seconds) * float64(time.Second)))
		defer timer.Stop()

		select {
		case <-timer.C:
		case <-vm.ctx.Done():
			return
		}

		select {
		case vm.commands <- func(L *lua.LState) {
			if err := L.CallByParam(lua.P{Fn: fn, NRet: 0, Protect: true}); err != nil {
				e.logger.Error("after callback error", "err", err)
			}
		}:
		default:
			e.logger.Warn("after: command channel full")
		}
	}()

	return 0
}

// zwave.log(msg)
func zwaveLog(L *lua.LState, e *Engine) int {
	msg := L.CheckString(1)
	e.logger.Info("script log", "msg", msg)
	return 0
}

// zwave.nodes() returns a table of all nodes.
func zwaveNodes(L *lua.LState, e *Engine) int {
	tbl := L.NewTable()
	for i, node := range e.net.Nodes() {
		n := L.NewTable()
		n.RawSetString("id", lua.LNumber(node.ID()))
		n.RawSetString("name", lua.LString(node.Name()))
		n.RawSetString("location", lua.LString(node.Location()))
		n.RawSetString("product", lua.LString(node.ProductName()))
		n.RawSetString("manufacturer", lua.LString(node.ManufacturerName()))
		n.RawSetString("type", lua.LString(node.Type()))
		n.RawSetString("ready", lua.LBool(node.IsReady()))
		n.RawSetString("awake", lua.LBool(node.IsAwake()))
		tbl.RawSetInt(i+1, n)
	}
	L.Push(tbl)
	return 1
}
