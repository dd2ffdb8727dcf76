package scripting

import (
	_ "embed"
	"errors"
	"fmt"
	"math"

	lua "github.com/yuin/gopher-lua"
	"go.uber.org/zap"

	"github.com/glovebox/server/internal/gameplay"
)

//go:embed scripts/hit.lua
var defaultHitScript string

const hitFunc = "calc_player_hit"

// Engine wraps a single gopher-lua VM that decides hit outcomes.
// Single-goroutine access only (game loop).
type Engine struct {
	vm  *lua.LState
	log *zap.Logger
}

var _ gameplay.HitRules = (*Engine)(nil)

// NewEngine creates a Lua engine and loads the hit script at scriptPath,
// or the built-in one when scriptPath is empty. The script sees the
// tuning constants in the global table "tuning".
func NewEngine(scriptPath string, tuning *gameplay.Tuning, log *zap.Logger) (*Engine, error) {
	vm := lua.NewState(lua.Options{SkipOpenLibs: true})
	openSafeLibs(vm)

	vm.SetGlobal("API_VERSION", lua.LNumber(1))
	t := vm.NewTable()
	t.RawSetString("base_knockback_mod", lua.LNumber(tuning.BaseKnockbackMod))
	t.RawSetString("knockback_scaling", lua.LNumber(tuning.KnockbackScaling))
	t.RawSetString("glove_damage", lua.LNumber(tuning.GloveDamage))
	t.RawSetString("invincibility_period", lua.LNumber(tuning.InvincibilityPeriod))
	t.RawSetString("knockback_time", lua.LNumber(tuning.KnockbackTime))
	vm.SetGlobal("tuning", t)

	e := &Engine{vm: vm, log: log.With(zap.String("component", "scripting"))}

	var err error
	if scriptPath == "" {
		err = vm.DoString(defaultHitScript)
	} else {
		err = vm.DoFile(scriptPath)
	}
	if err != nil {
		vm.Close()
		return nil, fmt.Errorf("load hit script: %w", err)
	}
	if _, ok := vm.GetGlobal(hitFunc).(*lua.LFunction); !ok {
		vm.Close()
		return nil, fmt.Errorf("hit script does not define %s", hitFunc)
	}
	e.log.Debug("loaded lua script", zap.String("file", scriptPath))
	return e, nil
}

// openSafeLibs opens the libraries a pure formula needs. io, os and the
// random functions of math would let peers diverge.
func openSafeLibs(vm *lua.LState) {
	for _, lib := range []struct {
		name string
		fn   lua.LGFunction
	}{
		{lua.BaseLibName, lua.OpenBase},
		{lua.TabLibName, lua.OpenTable},
		{lua.StringLibName, lua.OpenString},
		{lua.MathLibName, lua.OpenMath},
	} {
		vm.Push(vm.NewFunction(lib.fn))
		vm.Push(lua.LString(lib.name))
		vm.Call(1, 0)
	}
	if m, ok := vm.GetGlobal("math").(*lua.LTable); ok {
		m.RawSetString("random", lua.LNil)
		m.RawSetString("randomseed", lua.LNil)
	}
	for _, name := range []string{"dofile", "loadfile", "collectgarbage"} {
		vm.SetGlobal(name, lua.LNil)
	}
}

// PlayerHit calls the Lua calc_player_hit function.
func (e *Engine) PlayerHit(damagePercent float32) (gameplay.Hit, error) {
	if err := e.vm.CallByParam(lua.P{
		Fn:      e.vm.GetGlobal(hitFunc),
		NRet:    1,
		Protect: true,
	}, lua.LNumber(damagePercent)); err != nil {
		return gameplay.Hit{}, fmt.Errorf("lua %s: %w", hitFunc, err)
	}

	result := e.vm.Get(-1)
	e.vm.Pop(1)

	rt, ok := result.(*lua.LTable)
	if !ok {
		return gameplay.Hit{}, fmt.Errorf("lua %s returned %s, want table", hitFunc, result.Type())
	}
	hit := gameplay.Hit{
		KnockbackMod: lFloat(rt, "knockback"),
		Damage:       lFloat(rt, "damage"),
	}
	if !finite(hit.KnockbackMod) || !finite(hit.Damage) {
		return gameplay.Hit{}, errors.New("lua " + hitFunc + " returned a non-finite value")
	}
	if hit.Damage < 0 {
		return gameplay.Hit{}, fmt.Errorf("lua %s returned negative damage %v", hitFunc, hit.Damage)
	}
	return hit, nil
}

// lFloat reads a number field from a Lua table.
func lFloat(t *lua.LTable, key string) float32 {
	return float32(lua.LVAsNumber(t.RawGetString(key)))
}

func finite(v float32) bool {
	return !math.IsNaN(float64(v)) && !math.IsInf(float64(v), 0)
}

// Close shuts down the Lua VM.
func (e *Engine) Close() {
	e.vm.Close()
}
