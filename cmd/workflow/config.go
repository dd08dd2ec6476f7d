package main

import (
	"strings"

	"github.com/pkg/errors"
	"github.com/spf13/pflag"
	"github.com/spf13/viper"

	"github.com/askiada/go-workflow/pkg/iris"
)

const (
	envPrefix      = "WORKFLOW"
	configName     = "workflow"
	yamlFormat     = "yaml"
	jsonFormat     = "json"
	stdoutPath     = "-"
	defaultLogLvl  = "warn"
	defaultRootDir = "file:///tmp/workflow/artifacts"
)

// config holds the settings of the workflow command. Flags win over environment variables,
// which win over the config file.
type config struct {
	Pipeline struct {
		DatasetURI string `mapstructure:"dataset_uri"`
		ModelName  string `mapstructure:"model_name"`
	} `mapstructure:"pipeline"`
	Output struct {
		Format string `mapstructure:"format"`
		Path   string `mapstructure:"path"`
	} `mapstructure:"output"`
	DOT struct {
		Path string `mapstructure:"path"`
	} `mapstructure:"dot"`
	Run struct {
		Definition   string `mapstructure:"definition"`
		Concurrency  int    `mapstructure:"concurrency"`
		ArtifactRoot string `mapstructure:"artifact_root"`
	} `mapstructure:"run"`
	Log struct {
		Level string `mapstructure:"level"`
	} `mapstructure:"log"`
}

// flagKeys maps command line flags to configuration keys.
var flagKeys = map[string]string{
	"dataset-uri":   "pipeline.dataset_uri",
	"model-name":    "pipeline.model_name",
	"format":        "output.format",
	"output":        "output.path",
	"dot":           "dot.path",
	"definition":    "run.definition",
	"concurrency":   "run.concurrency",
	"artifact-root": "run.artifact_root",
	"log-level":     "log.level",
}

func newViper() *viper.Viper {
	v := viper.New()

	v.SetDefault("pipeline.dataset_uri", "")
	v.SetDefault("pipeline.model_name", iris.DefaultModelName)
	v.SetDefault("output.format", yamlFormat)
	v.SetDefault("output.path", stdoutPath)
	v.SetDefault("dot.path", "")
	v.SetDefault("run.definition", "")
	v.SetDefault("run.concurrency", 1)
	v.SetDefault("run.artifact_root", defaultRootDir)
	v.SetDefault("log.level", defaultLogLvl)

	v.SetEnvPrefix(envPrefix)
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	return v
}

func bindFlags(v *viper.Viper, flags *pflag.FlagSet) error {
	for name, key := range flagKeys {
		flag := flags.Lookup(name)
		if flag == nil {
			continue
		}

		err := v.BindPFlag(key, flag)
		if err != nil {
			return errors.Wrapf(err, "unable to bind flag %s", name)
		}
	}

	return nil
}

// loadConfig reads cfgFile, or workflow.yaml from the working directory when cfgFile is empty.
// Only an explicit file has to exist.
func loadConfig(v *viper.Viper, cfgFile string) (*config, error) {
	if cfgFile != "" {
		v.SetConfigFile(cfgFile)
	} else {
		v.SetConfigName(configName)
		v.SetConfigType(yamlFormat)
		v.AddConfigPath(".")
	}

	err := v.ReadInConfig()
	if err != nil {
		notFound := viper.ConfigFileNotFoundError{}
		if cfgFile != "" || !errors.As(err, &notFound) {
			return nil, errors.Wrap(err, "unable to read config")
		}
	}

	cfg := &config{}

	err = v.Unmarshal(cfg)
	if err != nil {
		return nil, errors.Wrap(err, "unable to decode config")
	}

	return cfg, cfg.validate()
}

func (c *config) validate() error {
	switch strings.ToLower(c.Output.Format) {
	case yamlFormat, jsonFormat:
		c.Output.Format = strings.ToLower(c.Output.Format)
	default:
		return errors.Errorf("unknown output format %q, expected %s or %s", c.Output.Format, yamlFormat, jsonFormat)
	}

	if c.Run.Concurrency < 1 {
		return errors.Errorf("run concurrency must be at least 1, got %d", c.Run.Concurrency)
	}

	return nil
}
