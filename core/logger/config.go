package logger

// Config holds configuration for the logger.
type Config struct {
	// Level is the minimum level to log (debug, info, warn, error).
	Level string `mapstructure:"level" default:"info"`
	// Format is the encoding of log lines (json, console).
	Format string `mapstructure:"format" default:"json"`
	// Dir is the directory receiving the log file. Empty disables file output.
	Dir string `mapstructure:"dir" default:"/app/logs"`
	// File is the log file name inside Dir.
	File string `mapstructure:"file" default:"ingest.log"`
}
