package storyboard

import (
	"fmt"
	"log/slog"
	"math"
	"strings"

	"rulecast/internal/config"
	"rulecast/internal/logging"
	"rulecast/internal/metrics"
	"rulecast/internal/services"
	"rulecast/internal/textutil"
)

const (
	stageName = "storyboard"

	defaultWordsPerMinute = 150
	defaultPauseSeconds   = 2
	defaultIntroSeconds   = 4
	defaultEndCardSeconds = 3
	defaultResolution     = "1080p"
	stepSlugMaxLength     = 48
)

// Options is the pacing and framing policy.
type Options struct {
	Resolution     string
	WordsPerMinute int
	IntroSeconds   int
	EndCardSeconds int
	PauseSeconds   int
}

// OptionsFromConfig maps the [storyboard] config section.
func OptionsFromConfig(cfg config.Storyboard) Options {
	return Options{
		Resolution:     cfg.Resolution,
		WordsPerMinute: cfg.WordsPerMinute,
		IntroSeconds:   cfg.IntroSeconds,
		EndCardSeconds: cfg.EndCardSeconds,
		PauseSeconds:   cfg.PauseSeconds,
	}
}

func (o Options) withDefaults() Options {
	if o.Resolution == "" {
		o.Resolution = defaultResolution
	}
	if o.WordsPerMinute <= 0 {
		o.WordsPerMinute = defaultWordsPerMinute
	}
	if o.PauseSeconds <= 0 {
		o.PauseSeconds = defaultPauseSeconds
	}
	if o.IntroSeconds <= 0 {
		o.IntroSeconds = defaultIntroSeconds
	}
	if o.EndCardSeconds <= 0 {
		o.EndCardSeconds = defaultEndCardSeconds
	}
	return o
}

// Compiler turns payloads into storyboards. It holds no per-call state and
// is safe for concurrent use.
type Compiler struct {
	opts    Options
	metrics metrics.Sink
	logger  *slog.Logger
}

// NewCompiler returns a Compiler. A nil sink discards metrics.
func NewCompiler(opts Options, sink metrics.Sink, logger *slog.Logger) *Compiler {
	if sink == nil {
		sink = metrics.Nop{}
	}
	return &Compiler{
		opts:    opts.withDefaults(),
		metrics: sink,
		logger:  logging.NewComponentLogger(logger, "storyboard"),
	}
}

// Compile validates the payload and emits intro, one scene per setup step,
// then the end card.
func (c *Compiler) Compile(payload Payload) (*Storyboard, error) {
	game, err := validate(payload)
	if err != nil {
		return nil, err
	}
	resolution, err := payload.Resolution.resolve(c.opts.Resolution)
	if err != nil {
		return nil, invalid("resolution", err.Error())
	}

	scenes := make([]Scene, 0, len(payload.SetupSteps)+2)
	scenes = append(scenes, Scene{
		ID:          "scene-000-intro",
		Type:        SceneIntro,
		Title:       game.Title,
		Narration:   fmt.Sprintf("Welcome to %s. Let's get the table set up.", game.Title),
		DurationSec: floorSecond(c.opts.IntroSeconds),
	})
	for i, step := range payload.SetupSteps {
		index := i + 1
		stepSlug := textutil.Slugify(step.ID, stepSlugMaxLength)
		if stepSlug == "" {
			stepSlug = "step"
		}
		scenes = append(scenes, Scene{
			ID:          fmt.Sprintf("scene-%03d-%s", index, stepSlug),
			Type:        SceneSetupStep,
			Title:       fmt.Sprintf("Step %d", index),
			Narration:   textutil.CollapseSpace(step.Text),
			DurationSec: c.stepDuration(step),
			SourceRefs: SourceRefs{
				StepID:        step.ID,
				ComponentRefs: append([]string(nil), step.ComponentRefs...),
				PageRefs:      append([]int(nil), step.PageRefs...),
			},
		})
	}
	scenes = append(scenes, Scene{
		ID:          fmt.Sprintf("scene-%03d-end", len(payload.SetupSteps)+1),
		Type:        SceneEndCard,
		Title:       game.Title,
		Narration:   fmt.Sprintf("You're ready to play %s.", game.Title),
		DurationSec: floorSecond(c.opts.EndCardSeconds),
	})

	total := link(scenes)
	board := &Storyboard{
		StoryboardContractVersion: StoryboardContractVersion,
		Game:                      game,
		Resolution:                resolution,
		Scenes:                    scenes,
		TotalDurationSec:          total,
	}
	if payload.Source != nil {
		src := *payload.Source
		board.Source = &src
	}

	c.metrics.OnStoryboard(len(scenes), total)
	c.logger.Debug("storyboard compiled",
		logging.String("game", game.Slug),
		logging.Int("scenes", len(scenes)),
		logging.Int("total_seconds", total),
	)
	return board, nil
}

// link assigns indexes, start offsets, and neighbor ids in emission order and
// returns the total duration.
func link(scenes []Scene) int {
	elapsed := 0
	for i := range scenes {
		scenes[i].Index = i
		scenes[i].StartSec = elapsed
		elapsed += scenes[i].DurationSec
		if i > 0 {
			prev := scenes[i-1].ID
			scenes[i].PrevSceneID = &prev
		}
		if i < len(scenes)-1 {
			next := scenes[i+1].ID
			scenes[i].NextSceneID = &next
		}
	}
	return elapsed
}

// stepDuration is ceil(words / words-per-second), floored at one second,
// plus any pause addend.
func (c *Compiler) stepDuration(step SetupStep) int {
	wordsPerSecond := float64(c.opts.WordsPerMinute) / 60
	seconds := floorSecond(int(math.Ceil(float64(textutil.WordCount(step.Text)) / wordsPerSecond)))
	if step.Pause != nil {
		if step.Pause.Seconds != nil {
			seconds += *step.Pause.Seconds
		} else {
			seconds += c.opts.PauseSeconds
		}
	}
	return seconds
}

func floorSecond(seconds int) int {
	return max(seconds, 1)
}

func validate(payload Payload) (Game, error) {
	game := Game{
		Slug:  strings.TrimSpace(payload.Game.Slug),
		Title: textutil.CollapseSpace(payload.Game.Title),
	}
	switch {
	case game.Slug == "" && game.Title == "":
		return Game{}, invalid("game", "game slug or title is required")
	case game.Slug == "":
		game.Slug = textutil.Slugify(game.Title, stepSlugMaxLength)
		if game.Slug == "" {
			return Game{}, invalid("game", fmt.Sprintf("cannot derive a slug from title %q", game.Title))
		}
	case game.Title == "":
		game.Title = textutil.TitleCase(strings.ReplaceAll(game.Slug, "-", " "))
	}

	seen := make(map[string]int, len(payload.SetupSteps))
	for i, step := range payload.SetupSteps {
		id := strings.TrimSpace(step.ID)
		if id == "" {
			return Game{}, invalid("setupSteps", fmt.Sprintf("step %d has an empty id", i))
		}
		if first, dup := seen[id]; dup {
			return Game{}, invalid("setupSteps", fmt.Sprintf("step id %q repeats steps %d and %d", id, first, i))
		}
		seen[id] = i
		if step.Pause != nil && step.Pause.Seconds != nil && *step.Pause.Seconds < 0 {
			return Game{}, invalid("setupSteps", fmt.Sprintf("step %q has negative pause seconds", id))
		}
	}
	return game, nil
}

func invalid(operation, message string) error {
	return services.WrapCode(services.ErrValidation, services.CodeStoryboardInvalid, stageName, operation, message, nil)
}
