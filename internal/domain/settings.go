package domain

type Settings struct {
	// MediaDir is the root directory downloaded videos land in.
	MediaDir string `json:"mediaDir"`

	// DefaultQuality is the quality ceiling used when a caller does not
	// name one explicitly.
	DefaultQuality Quality `json:"defaultQuality"`

	MaxConcurrentDownloads int `json:"maxConcurrentDownloads"`

	// RefreshIntervalMinutes drives the background catalog refresh.
	RefreshIntervalMinutes int `json:"refreshIntervalMinutes"`
}

func DefaultSettings() Settings {
	return Settings{
		MediaDir:               "media",
		DefaultQuality:         QualityHigh,
		MaxConcurrentDownloads: 2,
		RefreshIntervalMinutes: 30,
	}
}
