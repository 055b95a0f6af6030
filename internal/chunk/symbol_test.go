package chunk

import "testing"

func TestNewSymbolSentinelSlots(t *testing.T) {
	s := NewSymbol("foo")
	if s.HasGot() || s.HasPlt() || s.HasDynsym() || s.HasGotTp() || s.HasTlsGd() || s.HasTlsDesc() || s.HasPltGot() {
		t.Fatalf("freshly constructed symbol reports a slot assigned: %+v", s)
	}
	s.GotIdx = 3
	if !s.HasGot() {
		t.Errorf("HasGot() = false after assigning GotIdx = 3")
	}
}

func TestSymbolBindingPrecedence(t *testing.T) {
	local := NewSymbol("l")
	local.IsLocal, local.IsWeak = true, true
	if got := local.Binding(true); got != STB_LOCAL {
		t.Errorf("local+weak Binding = %d, want STB_LOCAL (locality wins)", got)
	}

	weak := NewSymbol("w")
	weak.IsWeak = true
	if got := weak.Binding(false); got != STB_WEAK {
		t.Errorf("weak Binding = %d, want STB_WEAK", got)
	}

	dso := NewSymbol("d")
	dso.Kind = SymDSO
	if got := dso.Binding(false); got != STB_GLOBAL {
		t.Errorf("DSO Binding = %d, want STB_GLOBAL even without inheritedGlobal", got)
	}

	plain := NewSymbol("p")
	if got := plain.Binding(true); got != STB_GLOBAL {
		t.Errorf("plain+inheritedGlobal Binding = %d, want STB_GLOBAL", got)
	}
	if got := plain.Binding(false); got != STB_LOCAL {
		t.Errorf("plain+!inheritedGlobal Binding = %d, want STB_LOCAL", got)
	}
}

func TestSymbolTableGetOrAddIsIdempotent(t *testing.T) {
	tbl := NewSymbolTable()
	a := tbl.GetOrAdd("main")
	b := tbl.GetOrAdd("main")
	if a != b {
		t.Fatalf("GetOrAdd returned two distinct symbols for the same name")
	}
	c := tbl.GetOrAdd("helper")
	if c.OriginalIndex != 1 {
		t.Errorf("OriginalIndex = %d, want 1 (second distinct name registered)", c.OriginalIndex)
	}
	if len(tbl.All()) != 2 {
		t.Fatalf("len(All()) = %d, want 2", len(tbl.All()))
	}

	if _, ok := tbl.Lookup("nope"); ok {
		t.Errorf("Lookup found a name that was never registered")
	}
	if got, ok := tbl.Lookup("main"); !ok || got != a {
		t.Errorf("Lookup(%q) = %v, %v; want %v, true", "main", got, ok, a)
	}
}
