package storyboard

// StoryboardContractVersion is stamped on every compiled storyboard.
const StoryboardContractVersion = "1.0.0"

// Scene types.
const (
	SceneIntro     = "intro"
	SceneSetupStep = "setup_step"
	SceneEndCard   = "end_card"
)

// Game identifies the game a storyboard narrates.
type Game struct {
	Slug  string `json:"slug"`
	Title string `json:"title"`
}

// Pause is an optional cue that lengthens a setup step scene.
type Pause struct {
	Reason string `json:"reason,omitempty"`
	// Seconds overrides the configured pause length when set.
	Seconds *int `json:"seconds,omitempty"`
}

// SetupStep is one narrated setup instruction.
type SetupStep struct {
	ID            string   `json:"id"`
	Order         int      `json:"order"`
	Text          string   `json:"text"`
	ComponentRefs []string `json:"componentRefs,omitempty"`
	PageRefs      []int    `json:"pageRefs,omitempty"`
	Pause         *Pause   `json:"pause,omitempty"`
}

// Source records the manifest a payload was derived from.
type Source struct {
	DocumentID      string `json:"documentId"`
	ManifestVersion string `json:"manifestVersion"`
}

// Payload is the compiler input.
type Payload struct {
	Game       Game           `json:"game"`
	Resolution ResolutionSpec `json:"resolution"`
	SetupSteps []SetupStep    `json:"setupSteps"`
	Source     *Source        `json:"source,omitempty"`
}

// SourceRefs links a scene back to the content it narrates.
type SourceRefs struct {
	StepID        string   `json:"stepId,omitempty"`
	ComponentRefs []string `json:"componentRefs,omitempty"`
	PageRefs      []int    `json:"pageRefs,omitempty"`
}

// Scene is one narration unit.
type Scene struct {
	ID          string     `json:"id"`
	Index       int        `json:"index"`
	Type        string     `json:"type"`
	Title       string     `json:"title"`
	Narration   string     `json:"narration"`
	StartSec    int        `json:"startSec"`
	DurationSec int        `json:"durationSec"`
	PrevSceneID *string    `json:"prevSceneId"`
	NextSceneID *string    `json:"nextSceneId"`
	SourceRefs  SourceRefs `json:"sourceRefs"`
}

// Storyboard is the compiled scene sequence.
type Storyboard struct {
	StoryboardContractVersion string     `json:"storyboardContractVersion"`
	Game                      Game       `json:"game"`
	Resolution                Resolution `json:"resolution"`
	Scenes                    []Scene    `json:"scenes"`
	TotalDurationSec          int        `json:"totalDurationSec"`
	Source                    *Source    `json:"source,omitempty"`
}
