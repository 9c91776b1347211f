package storyboard

import (
	"bytes"
	"encoding/json"
	"fmt"
	"slices"
	"strings"
)

// Resolution is the output frame size in pixels.
type Resolution struct {
	Width  int `json:"width"`
	Height int `json:"height"`
}

var resolutionPolicies = map[string]Resolution{
	"1080p":    {Width: 1920, Height: 1080},
	"720p":     {Width: 1280, Height: 720},
	"4k":       {Width: 3840, Height: 2160},
	"vertical": {Width: 1080, Height: 1920},
}

// Policies returns the known resolution policy names, sorted.
func Policies() []string {
	names := make([]string, 0, len(resolutionPolicies))
	for name := range resolutionPolicies {
		names = append(names, name)
	}
	slices.Sort(names)
	return names
}

// ResolutionSpec is either a named policy ("1080p") or explicit dimensions
// ({"width":..., "height":...}). The zero value selects the compiler default.
type ResolutionSpec struct {
	Policy   string
	Explicit *Resolution
}

// UnmarshalJSON accepts a policy string, a dimension object, or null.
func (r *ResolutionSpec) UnmarshalJSON(data []byte) error {
	data = bytes.TrimSpace(data)
	switch {
	case bytes.Equal(data, []byte("null")):
		*r = ResolutionSpec{}
		return nil
	case len(data) > 0 && data[0] == '"':
		var policy string
		if err := json.Unmarshal(data, &policy); err != nil {
			return err
		}
		*r = ResolutionSpec{Policy: policy}
		return nil
	default:
		var explicit Resolution
		if err := json.Unmarshal(data, &explicit); err != nil {
			return fmt.Errorf("resolution must be a policy name or {width,height}: %w", err)
		}
		*r = ResolutionSpec{Explicit: &explicit}
		return nil
	}
}

// MarshalJSON renders the policy name or the explicit dimensions.
func (r ResolutionSpec) MarshalJSON() ([]byte, error) {
	if r.Explicit != nil {
		return json.Marshal(r.Explicit)
	}
	if r.Policy == "" {
		return []byte("null"), nil
	}
	return json.Marshal(r.Policy)
}

func (r ResolutionSpec) resolve(fallback string) (Resolution, error) {
	if r.Explicit != nil {
		if r.Explicit.Width <= 0 || r.Explicit.Height <= 0 {
			return Resolution{}, fmt.Errorf("resolution %dx%d must be positive", r.Explicit.Width, r.Explicit.Height)
		}
		return *r.Explicit, nil
	}
	policy := strings.ToLower(strings.TrimSpace(r.Policy))
	if policy == "" {
		policy = fallback
	}
	res, ok := resolutionPolicies[policy]
	if !ok {
		return Resolution{}, fmt.Errorf("unknown resolution policy %q (want one of %s)", r.Policy, strings.Join(Policies(), ", "))
	}
	return res, nil
}
