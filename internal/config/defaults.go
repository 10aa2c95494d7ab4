package config

const (
	defaultRawDir             = "~/.local/share/emoroute/raw"
	defaultOutputDir          = "~/.local/share/emoroute/Final_Audio_Dataset"
	defaultLogDir             = "~/.local/share/emoroute/logs"
	defaultStateDir           = "~/.local/share/emoroute/state"
	defaultAudioFormat        = "wav"
	defaultSampleRate         = 16000
	defaultChannels           = 1
	defaultRoutingWorkers     = 4
	defaultCountTolerance     = 0.10
	defaultMaterializeWorkers = 4
	defaultAcquireTimeout     = 3600
	defaultHuggingFaceCLI     = "huggingface-cli"
	defaultNtfyTimeout        = 10
	defaultLogFormat          = "console"
	defaultLogLevel           = "info"
	defaultLogRetentionDays   = 30
)

const (
	NamingPattern       = "pattern"
	NamingDirectory     = "directory"
	NamingUnconstrained = "unconstrained"

	TokenMatchExact         = "exact"
	TokenMatchLongestPrefix = "longest_prefix"
)

// Default returns a Config populated with repository defaults.
func Default() Config {
	return Config{
		Paths: Paths{
			RawDir:    defaultRawDir,
			OutputDir: defaultOutputDir,
			LogDir:    defaultLogDir,
			StateDir:  defaultStateDir,
		},
		Audio: Audio{
			Format:     defaultAudioFormat,
			SampleRate: defaultSampleRate,
			Channels:   defaultChannels,
		},
		Routing: Routing{
			Workers:        defaultRoutingWorkers,
			CountTolerance: defaultCountTolerance,
		},
		Materialize: Materialize{
			Workers: defaultMaterializeWorkers,
		},
		Acquire: Acquire{
			TimeoutSeconds: defaultAcquireTimeout,
			HuggingFaceCLI: defaultHuggingFaceCLI,
		},
		Notifications: Notifications{
			RequestTimeout: defaultNtfyTimeout,
			Runs:           true,
			Fetch:          true,
			Errors:         true,
		},
		Logging: Logging{
			Format:        defaultLogFormat,
			Level:         defaultLogLevel,
			RetentionDays: defaultLogRetentionDays,
		},
		Emotions: DefaultEmotions(),
		Datasets: DefaultDatasets(),
	}
}

// DefaultEmotions returns the stock final map. Neutral speech is folded into
// calm; disgust and surprise in every spelling are dropped.
func DefaultEmotions() Emotions {
	return Emotions{
		Final: map[string]string{
			"neutral": "calm",
			"calm":    "calm",
			"happy":   "happy",
			"sad":     "sad",
			"angry":   "angry",
			"fearful": "fear",
			"fear":    "fear",
		},
		Excluded: []string{"disgust", "surprised", "surprise", "disgusted"},
	}
}

// DefaultDatasets returns the five stock speech-emotion datasets.
func DefaultDatasets() map[string]Dataset {
	return map[string]Dataset{
		"ravdess": {
			Name:      "RAVDESS",
			LocalPath: "ravdess",
			URLs: []string{
				"https://zenodo.org/record/1188976/files/Audio_Speech_Actors_01-24.zip",
				"https://zenodo.org/record/1188976/files/Audio_Song_Actors_01-24.zip",
			},
			ExpectedCount: 1500,
			Emotions: map[string]string{
				"01": "neutral",
				"02": "calm",
				"03": "happy",
				"04": "sad",
				"05": "angry",
				"06": "fearful",
				"07": "disgust",
				"08": "surprised",
			},
			Naming: Naming{
				Kind:          NamingPattern,
				Pattern:       `(\d{2})-(\d{2})-(\d{2})-(\d{2})-(\d{2})-(\d{2})-(\d{2})\.wav`,
				CaptureGroups: []int{3},
			},
		},
		"crema_d": {
			Name:      "CREMA-D",
			LocalPath: "crema_d",
			URLs: []string{
				"https://github.com/CheyneyComputerScience/CREMA-D/archive/refs/heads/master.zip",
			},
			ExpectedCount: 7500,
			Emotions: map[string]string{
				"NEU": "neutral",
				"HAP": "happy",
				"SAD": "sad",
				"ANG": "angry",
				"FEA": "fearful",
				"DIS": "disgust",
			},
			Naming: Naming{
				Kind:          NamingPattern,
				Pattern:       `(\d+)_([A-Z]+)_([A-Z]+)_([A-Z]+)\.wav`,
				CaptureGroups: []int{3},
			},
		},
		"tess": {
			Name:            "TESS",
			LocalPath:       "tess",
			HuggingFaceRepo: "Ren/tess-emotion-speech",
			ExpectedCount:   2800,
			Emotions: map[string]string{
				"neutral": "neutral",
				"happy":   "happy",
				"sad":     "sad",
				"angry":   "angry",
				"fear":    "fearful",
				"disgust": "disgust",
				"ps":      "surprised",
			},
			Naming: Naming{
				Kind:          NamingPattern,
				Pattern:       `OAF_[a-z]+_([a-z]+)\.wav|YAF_[a-z]+_([a-z]+)\.wav`,
				CaptureGroups: []int{1, 2},
			},
		},
		"savee": {
			Name:            "SAVEE",
			LocalPath:       "savee",
			HuggingFaceRepo: "Ejfrai/SAVEE",
			ExpectedCount:   480,
			Emotions: map[string]string{
				"n":  "neutral",
				"h":  "happy",
				"sa": "sad",
				"a":  "angry",
				"f":  "fearful",
				"d":  "disgust",
				"su": "surprised",
			},
			Naming: Naming{
				Kind:          NamingPattern,
				Pattern:       `([a-z]+)\d+\.wav`,
				CaptureGroups: []int{1},
				TokenMatch:    TokenMatchLongestPrefix,
			},
		},
		"esd": {
			Name:      "ESD",
			LocalPath: "esd",
			URLs: []string{
				"https://github.com/HLTSingapore/Emotional-Speech-Data/archive/refs/heads/main.zip",
			},
			ExpectedCount: 15000,
			Emotions: map[string]string{
				"Neutral":  "neutral",
				"Happy":    "happy",
				"Sad":      "sad",
				"Angry":    "angry",
				"Fear":     "fearful",
				"Disgust":  "disgust",
				"Surprise": "surprised",
			},
			Naming: Naming{
				Kind:           NamingUnconstrained,
				Segment:        1,
				LanguageFilter: "English",
			},
		},
	}
}
