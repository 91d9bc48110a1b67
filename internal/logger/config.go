package logger

// Config holds logger settings.
type Config struct {
	// Level is the minimum enabled level.
	Level string `mapstructure:"level" default:"info"`
	// Format is the encoding, console or json.
	Format string `mapstructure:"format" default:"console"`
	// File, when set, receives a copy of the log output.
	File string `mapstructure:"file" default:""`
}
