package config

import "compress/flate"

const (
	defaultConfigPath       = "~/.config/univsrg/config.toml"
	projectConfigName       = "univsrg.toml"
	defaultStagingDir       = "~/.local/share/univsrg/staging"
	defaultLogDir           = "~/.local/share/univsrg/logs"
	defaultHistoryPath      = "~/.local/share/univsrg/history.db"
	defaultLogFormat        = "console"
	defaultLogLevel         = "info"
	defaultStaleAfterHours  = 24
	defaultCompressionLevel = flate.DefaultCompression
	defaultChartExtension   = ".osu"
	defaultDuplicateNames   = DuplicateNamesSuffix
	envStagingDir           = "UNIVSRG_STAGING_DIR"
	envLogLevel             = "UNIVSRG_LOG_LEVEL"
)

// Duplicate chart filename policies.
const (
	DuplicateNamesSuffix = "suffix"
	DuplicateNamesSkip   = "skip"
)

// Default returns a Config populated with repository defaults.
func Default() Config {
	return Config{
		Paths: Paths{
			StagingDir: defaultStagingDir,
			LogDir:     defaultLogDir,
		},
		Import: Import{
			ClearPathIndex:  true,
			ChartExtensions: []string{defaultChartExtension},
		},
		Export: Export{
			DuplicateNames:   defaultDuplicateNames,
			CompressionLevel: defaultCompressionLevel,
		},
		History: History{
			Enabled: true,
			Path:    defaultHistoryPath,
		},
		Logging: Logging{
			Format: defaultLogFormat,
			Level:  defaultLogLevel,
		},
		Staging: Staging{
			StaleAfterHours: defaultStaleAfterHours,
			CheckFreeSpace:  true,
		},
	}
}
