package config

const (
	defaultManifestDir       = "~/.local/share/rulecast/manifests"
	defaultStoryboardDir     = "~/.local/share/rulecast/storyboards"
	defaultStateDir          = "~/.local/share/rulecast"
	defaultLogDir            = "~/.local/share/rulecast/logs"
	defaultStorageBackend    = StorageFilesystem
	defaultS3Region          = "us-east-1"
	defaultS3Prefix          = "manifests"
	defaultOCRMinTextDensity = 40
	defaultOCRConcurrency    = 4
	defaultResolution        = "1080p"
	defaultWordsPerMinute    = 150
	defaultIntroSeconds      = 4
	defaultEndCardSeconds    = 3
	defaultPauseSeconds      = 2
	defaultAPIBind           = "127.0.0.1:7480"
	defaultAPIReadTimeout    = 15
	defaultAPIWriteTimeout   = 30
	defaultAPIMaxBodyMB      = 32
	defaultLogFormat         = "console"
	defaultLogLevel          = "info"
)

// Storage backends accepted by storage.backend.
const (
	StorageFilesystem = "filesystem"
	StorageS3         = "s3"
)

// Default returns a Config populated with repository defaults.
func Default() Config {
	return Config{
		Paths: Paths{
			ManifestDir:   defaultManifestDir,
			StoryboardDir: defaultStoryboardDir,
			StateDir:      defaultStateDir,
			LogDir:        defaultLogDir,
		},
		Storage: Storage{
			Backend: defaultStorageBackend,
			S3: S3{
				Region: defaultS3Region,
				Prefix: defaultS3Prefix,
			},
		},
		OCR: OCR{
			Enabled:        true,
			MinTextDensity: defaultOCRMinTextDensity,
			Concurrency:    defaultOCRConcurrency,
		},
		Storyboard: Storyboard{
			Resolution:     defaultResolution,
			WordsPerMinute: defaultWordsPerMinute,
			IntroSeconds:   defaultIntroSeconds,
			EndCardSeconds: defaultEndCardSeconds,
			PauseSeconds:   defaultPauseSeconds,
		},
		API: API{
			Bind:                defaultAPIBind,
			ReadTimeoutSeconds:  defaultAPIReadTimeout,
			WriteTimeoutSeconds: defaultAPIWriteTimeout,
			MaxBodyMB:           defaultAPIMaxBodyMB,
		},
		Logging: Logging{
			Format: defaultLogFormat,
			Level:  defaultLogLevel,
		},
	}
}
