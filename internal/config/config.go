package config

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"reflect"
	"strings"

	"github.com/joho/godotenv"
	"github.com/spf13/viper"

	"github.com/inodb/varsim-tools/internal/logger"
)

// FileName is the name of the config file in the user's home directory.
const FileName = ".varsim-tools.yaml"

// EnvPrefix prefixes every environment variable read by Load.
const EnvPrefix = "VARSIM"

// Config holds all configuration for the application.
type Config struct {
	// Log holds configuration for the logger.
	Log logger.Config `mapstructure:"log"`
	// Tools locates the external programs.
	Tools Tools `mapstructure:"tools"`
	// Merge configures the merge engine.
	Merge Merge `mapstructure:"merge"`
	// Reconcile configures call-set reconciliation.
	Reconcile Reconcile `mapstructure:"reconcile"`
	// Store configures the results database.
	Store Store `mapstructure:"store"`
}

// Tools locates external programs. An empty Sort or Bgzip selects the
// in-process implementation.
type Tools struct {
	Sort      string `mapstructure:"sort" default:""`
	Bgzip     string `mapstructure:"bgzip" default:""`
	Tabix     string `mapstructure:"tabix" default:"tabix"`
	CSI       bool   `mapstructure:"csi" default:"false"`
	Java      string `mapstructure:"java" default:"java"`
	VarSimJar string `mapstructure:"varsim_jar" default:"VarSim.jar"`
	RTGJar    string `mapstructure:"rtg_jar" default:"RTG.jar"`
	Threads   int    `mapstructure:"threads" default:"1"`
}

// Merge configures the merge engine.
type Merge struct {
	Compress bool `mapstructure:"compress" default:"true"`
	// Strict turns sort order violations into errors.
	Strict bool `mapstructure:"strict" default:"false"`
	// Reference is a FASTA (or its .fai) giving the contig order.
	Reference string `mapstructure:"reference" default:""`
}

// Reconcile configures call-set reconciliation.
type Reconcile struct {
	// SubsetCheck is strict, warn or off.
	SubsetCheck string `mapstructure:"subset_check" default:"strict"`
	Parallel    bool   `mapstructure:"parallel" default:"true"`
}

// Store configures the results database.
type Store struct {
	// Path is the DuckDB file; empty disables recording.
	Path string `mapstructure:"path" default:""`
}

// New returns a viper instance with defaults registered, the environment
// bound and the config file read. configFile overrides ~/.varsim-tools.yaml.
func New(configFile string) (*viper.Viper, error) {
	// A missing .env is not an error.
	_ = godotenv.Overload(".env")

	v := viper.New()
	bindValues(v, Config{}, "")

	v.SetEnvPrefix(EnvPrefix)
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	v.SetConfigType("yaml")
	if configFile != "" {
		v.SetConfigFile(configFile)
		if err := v.ReadInConfig(); err != nil {
			return nil, fmt.Errorf("reading config %s: %w", configFile, err)
		}
		return v, nil
	}

	path, err := DefaultPath()
	if err != nil {
		return v, nil
	}
	v.SetConfigFile(path)
	if err := v.ReadInConfig(); err != nil && !errors.Is(err, os.ErrNotExist) {
		return nil, fmt.Errorf("reading config %s: %w", path, err)
	}
	return v, nil
}

// Load unmarshals the settings held by v.
func Load(v *viper.Viper) (*Config, error) {
	var cfg Config
	if err := v.Unmarshal(&cfg); err != nil {
		return nil, fmt.Errorf("decoding config: %w", err)
	}
	return &cfg, nil
}

// DefaultPath returns ~/.varsim-tools.yaml.
func DefaultPath() (string, error) {
	home, err := os.UserHomeDir()
	if err != nil {
		return "", fmt.Errorf("cannot determine home directory: %w", err)
	}
	return filepath.Join(home, FileName), nil
}

// Keys returns every configuration key with the kind of its value.
func Keys() map[string]reflect.Kind {
	keys := make(map[string]reflect.Kind)
	walkFields(reflect.TypeOf(Config{}), "", func(key string, field reflect.StructField) {
		keys[key] = field.Type.Kind()
	})
	return keys
}

// bindValues uses reflection to iterate over the struct and set default values in Viper
// based on the 'default' and 'mapstructure' tags.
func bindValues(v *viper.Viper, iface any, prefix string) {
	walkFields(reflect.TypeOf(iface), prefix, func(key string, field reflect.StructField) {
		// Always set the default, even if empty, to register the key for AutomaticEnv.
		v.SetDefault(key, field.Tag.Get("default"))
	})
}

// walkFields calls fn for every leaf field tagged with mapstructure,
// recursing into nested structs.
func walkFields(t reflect.Type, prefix string, fn func(key string, field reflect.StructField)) {
	if t.Kind() == reflect.Ptr {
		t = t.Elem()
	}

	for i := 0; i < t.NumField(); i++ {
		field := t.Field(i)
		tag := field.Tag.Get("mapstructure")
		if tag == "" {
			continue
		}

		key := tag
		if prefix != "" {
			key = prefix + "." + tag
		}

		if field.Type.Kind() == reflect.Struct {
			walkFields(field.Type, key, fn)
			continue
		}
		fn(key, field)
	}
}
