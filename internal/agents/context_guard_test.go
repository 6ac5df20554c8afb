package agents

import "testing"

func TestResolveContextWindowInfo_Priority(t *testing.T) {
	t.Run("model takes priority over default", func(t *testing.T) {
		info := ResolveContextWindowInfo(200000, 30000)

		if info.Tokens != 200000 {
			t.Errorf("expected 200000 tokens, got %d", info.Tokens)
		}
		if info.Source != ContextWindowSourceModel {
			t.Errorf("expected source 'model', got %q", info.Source)
		}
	})

	t.Run("default used when model window is zero", func(t *testing.T) {
		info := ResolveContextWindowInfo(0, 30000)

		if info.Tokens != 30000 {
			t.Errorf("expected 30000 tokens, got %d", info.Tokens)
		}
		if info.Source != ContextWindowSourceDefault {
			t.Errorf("expected source 'default', got %q", info.Source)
		}
	})

	t.Run("default used when model window is negative", func(t *testing.T) {
		info := ResolveContextWindowInfo(-100, 30000)

		if info.Tokens != 30000 {
			t.Errorf("expected 30000 tokens, got %d", info.Tokens)
		}
		if info.Source != ContextWindowSourceDefault {
			t.Errorf("expected source 'default', got %q", info.Source)
		}
	})
}

func TestEvaluateContextWindowGuard_DefaultThresholds(t *testing.T) {
	t.Run("above warning threshold", func(t *testing.T) {
		info := ContextWindowInfo{
			Tokens: 50000,
			Source: ContextWindowSourceModel,
		}

		result := EvaluateContextWindowGuard(info, nil)

		if result.ShouldWarn {
			t.Error("should not warn when above warning threshold")
		}
		if result.ShouldBlock {
			t.Error("should not block when above hard minimum")
		}
		if result.Tokens != 50000 {
			t.Errorf("expected 50000 tokens, got %d", result.Tokens)
		}
		if result.Source != ContextWindowSourceModel {
			t.Errorf("expected source 'model', got %q", result.Source)
		}
	})

	t.Run("below warning threshold but above hard min", func(t *testing.T) {
		info := ContextWindowInfo{
			Tokens: 20000, // between 16k and 32k
			Source: ContextWindowSourceDefault,
		}

		result := EvaluateContextWindowGuard(info, nil)

		if !result.ShouldWarn {
			t.Error("should warn when below warning threshold")
		}
		if result.ShouldBlock {
			t.Error("should not block when above hard minimum")
		}
	})

	t.Run("below hard minimum", func(t *testing.T) {
		info := ContextWindowInfo{
			Tokens: 10000, // below 16k
			Source: ContextWindowSourceDefault,
		}

		result := EvaluateContextWindowGuard(info, nil)

		if !result.ShouldWarn {
			t.Error("should warn when below both thresholds")
		}
		if !result.ShouldBlock {
			t.Error("should block when below hard minimum")
		}
	})

	t.Run("exactly at warning threshold", func(t *testing.T) {
		info := ContextWindowInfo{
			Tokens: ContextWindowWarnBelowTokens,
			Source: ContextWindowSourceModel,
		}

		result := EvaluateContextWindowGuard(info, nil)

		if result.ShouldWarn {
			t.Error("should not warn at exactly warning threshold")
		}
		if result.ShouldBlock {
			t.Error("should not block at warning threshold")
		}
	})

	t.Run("exactly at hard minimum", func(t *testing.T) {
		info := ContextWindowInfo{
			Tokens: ContextWindowHardMinTokens,
			Source: ContextWindowSourceModel,
		}

		result := EvaluateContextWindowGuard(info, nil)

		if !result.ShouldWarn {
			t.Error("should warn at hard minimum (still below warn threshold)")
		}
		if result.ShouldBlock {
			t.Error("should not block at exactly hard minimum")
		}
	})
}

func TestEvaluateContextWindowGuard_CustomThresholds(t *testing.T) {
	t.Run("custom thresholds", func(t *testing.T) {
		info := ContextWindowInfo{
			Tokens: 5000,
			Source: ContextWindowSourceModel,
		}

		opts := &EvaluateContextWindowGuardOptions{
			WarnBelowTokens: 10000,
			HardMinTokens:   3000,
		}

		result := EvaluateContextWindowGuard(info, opts)

		if !result.ShouldWarn {
			t.Error("should warn below custom warn threshold")
		}
		if result.ShouldBlock {
			t.Error("should not block above custom hard min")
		}
	})

	t.Run("custom hard minimum triggers block", func(t *testing.T) {
		info := ContextWindowInfo{
			Tokens: 2000,
			Source: ContextWindowSourceModel,
		}

		opts := &EvaluateContextWindowGuardOptions{
			WarnBelowTokens: 10000,
			HardMinTokens:   3000,
		}

		result := EvaluateContextWindowGuard(info, opts)

		if !result.ShouldWarn {
			t.Error("should warn below custom warn threshold")
		}
		if !result.ShouldBlock {
			t.Error("should block below custom hard min")
		}
	})
}

func TestEvaluateContextWindowGuard_ZeroAndNegativeTokens(t *testing.T) {
	t.Run("zero tokens does not warn or block", func(t *testing.T) {
		info := ContextWindowInfo{
			Tokens: 0,
			Source: ContextWindowSourceDefault,
		}

		result := EvaluateContextWindowGuard(info, nil)

		if result.ShouldWarn {
			t.Error("zero tokens should not warn")
		}
		if result.ShouldBlock {
			t.Error("zero tokens should not block")
		}
	})

	t.Run("negative tokens normalized to zero", func(t *testing.T) {
		info := ContextWindowInfo{
			Tokens: -100,
			Source: ContextWindowSourceDefault,
		}

		result := EvaluateContextWindowGuard(info, nil)

		if result.Tokens != 0 {
			t.Errorf("expected 0 tokens after normalization, got %d", result.Tokens)
		}
		if result.ShouldWarn {
			t.Error("negative tokens (normalized to zero) should not warn")
		}
		if result.ShouldBlock {
			t.Error("negative tokens (normalized to zero) should not block")
		}
	})
}

func TestEvaluateContextWindowGuard_EdgeCases(t *testing.T) {
	t.Run("one token below warning threshold", func(t *testing.T) {
		info := ContextWindowInfo{
			Tokens: ContextWindowWarnBelowTokens - 1,
			Source: ContextWindowSourceModel,
		}

		result := EvaluateContextWindowGuard(info, nil)

		if !result.ShouldWarn {
			t.Error("should warn at one below threshold")
		}
	})

	t.Run("one token below hard minimum", func(t *testing.T) {
		info := ContextWindowInfo{
			Tokens: ContextWindowHardMinTokens - 1,
			Source: ContextWindowSourceModel,
		}

		result := EvaluateContextWindowGuard(info, nil)

		if !result.ShouldBlock {
			t.Error("should block at one below hard minimum")
		}
	})

	t.Run("one token", func(t *testing.T) {
		info := ContextWindowInfo{
			Tokens: 1,
			Source: ContextWindowSourceModel,
		}

		result := EvaluateContextWindowGuard(info, nil)

		if !result.ShouldWarn {
			t.Error("1 token should warn")
		}
		if !result.ShouldBlock {
			t.Error("1 token should block")
		}
	})
}

func TestConstants(t *testing.T) {
	if ContextWindowHardMinTokens != 16000 {
		t.Errorf("expected hard min 16000, got %d", ContextWindowHardMinTokens)
	}
	if ContextWindowWarnBelowTokens != 32000 {
		t.Errorf("expected warn below 32000, got %d", ContextWindowWarnBelowTokens)
	}
	if ContextWindowHardMinTokens >= ContextWindowWarnBelowTokens {
		t.Error("hard min should be less than warn threshold")
	}
}

func TestContextWindowSourceConstants(t *testing.T) {
	sources := []ContextWindowSource{
		ContextWindowSourceModel,
		ContextWindowSourceDefault,
	}

	expected := []string{"model", "default"}

	for i, src := range sources {
		if string(src) != expected[i] {
			t.Errorf("expected source %q, got %q", expected[i], src)
		}
	}
}
