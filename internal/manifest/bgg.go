package manifest

import "rulecast/internal/contract"

// NormalizeBGG keeps only the BGG keys the contract allows and silently
// drops the rest. A nil or empty input yields nil.
func NormalizeBGG(c *contract.Contract, raw map[string]any) map[string]any {
	if len(raw) == 0 {
		return nil
	}
	out := make(map[string]any)
	for key, value := range raw {
		if c.AllowsBGGField(key) {
			out[key] = value
		}
	}
	if len(out) == 0 {
		return nil
	}
	return out
}
