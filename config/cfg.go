package config

import (
	"bytes"
	_ "embed"
	"fmt"
	"os"
	"runtime"
	"strings"
	"time"

	validator "github.com/go-playground/validator/v10"
	yaml "gopkg.in/yaml.v3"

	"github.com/rupor-github/gencfg"
)

//go:embed config.yaml.tmpl
var ConfigTmpl []byte

type (
	RewriterConfig struct {
		ExcludedTags      []string          `yaml:"excluded_tags" validate:"dive,required"`
		EditableAttribute string            `yaml:"editable_attribute" validate:"required"`
		MatchTimeout      time.Duration     `yaml:"match_timeout" validate:"gt=0"`
		ExtraLexicon      map[string]string `yaml:"extra_lexicon"`
	}

	ExtensionsConfig struct {
		HTML []string `yaml:"html" validate:"dive,startswith=."`
		XML  []string `yaml:"xml" validate:"dive,startswith=."`
		EPUB []string `yaml:"epub" validate:"dive,startswith=."`
	}

	DocumentConfig struct {
		NoDirs                bool             `yaml:"nodirs"`
		Overwrite             bool             `yaml:"overwrite"`
		FileNameTransliterate bool             `yaml:"file_name_transliterate"`
		Workers               int              `yaml:"workers" validate:"gte=0"`
		Extensions            ExtensionsConfig `yaml:"extensions"`
	}

	WatchConfig struct {
		Debounce time.Duration `yaml:"debounce" validate:"gt=0"`
	}

	LiveConfig struct {
		Headless   bool   `yaml:"headless"`
		BrowserBin string `yaml:"browser_bin" sanitize:"assure_file_access"`
		ControlURL string `yaml:"control_url" validate:"omitempty,url"`
	}

	Config struct {
		Version   int            `yaml:"version" validate:"eq=1"`
		Rewriter  RewriterConfig `yaml:"rewriter"`
		Document  DocumentConfig `yaml:"document"`
		Watch     WatchConfig    `yaml:"watch"`
		Live      LiveConfig     `yaml:"live"`
		Logging   LoggingConfig  `yaml:"logging"`
		Reporting ReporterConfig `yaml:"reporting"`
	}
)

// ExtraLexiconFieldName must match yaml field name above: lexicon entries
// may contain characters template engine would choke on.
const ExtraLexiconFieldName = "extra_lexicon"

var requiredOptions = append([]func(*gencfg.ProcessingOptions){},
	gencfg.WithDoNotExpandField(ExtraLexiconFieldName),
)

// Concurrency returns number of documents to process in parallel.
func (conf *DocumentConfig) Concurrency() int {
	if conf.Workers > 0 {
		return conf.Workers
	}
	return runtime.NumCPU()
}

// checkLexicon rejects lexicon entries which could never match.
func checkLexicon(sl validator.StructLevel) {
	cfg, ok := sl.Current().Interface().(Config)
	if !ok {
		return
	}
	for k, v := range cfg.Rewriter.ExtraLexicon {
		if len(strings.TrimSpace(k)) == 0 {
			sl.ReportError(cfg.Rewriter.ExtraLexicon, "ExtraLexicon", "extra_lexicon", "nonempty_key", "")
		}
		if strings.ContainsAny(k, " \t\n") || len(strings.TrimSpace(v)) == 0 {
			sl.ReportError(cfg.Rewriter.ExtraLexicon, "ExtraLexicon", "extra_lexicon", "single_word", k)
		}
	}
}

func unmarshalConfig(data []byte, cfg *Config, process bool) (*Config, error) {
	// We want to use only fields we defined so we cannot use yaml.Unmarshal
	// directly here
	dec := yaml.NewDecoder(bytes.NewReader(data))
	dec.KnownFields(true)
	if err := dec.Decode(cfg); err != nil {
		return nil, fmt.Errorf("failed to decode configuration data: %w", err)
	}
	if process {
		// sanitize and validate what has been loaded
		if err := gencfg.Sanitize(cfg); err != nil {
			return nil, err
		}
		if err := gencfg.Validate(cfg, gencfg.WithAdditionalChecks(checkLexicon)); err != nil {
			return nil, err
		}
	}
	return cfg, nil
}

// LoadConfiguration reads the configuration from the file at the given path,
// superimposes its values on top of expanded configuration template to provide
// sane defaults and performs validation.
func LoadConfiguration(path string, options ...func(*gencfg.ProcessingOptions)) (*Config, error) {
	haveFile := len(path) > 0

	data, err := gencfg.Process(ConfigTmpl, append(requiredOptions, options...)...)
	if err != nil {
		return nil, fmt.Errorf("failed to process configuration template: %w", err)
	}
	cfg, err := unmarshalConfig(data, &Config{}, !haveFile)
	if err != nil {
		return nil, fmt.Errorf("failed to process configuration template: %w", err)
	}
	if !haveFile {
		return cfg, nil
	}

	// overwrite cfg values with values from the file
	data, err = os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("failed to read config file: %w", err)
	}
	cfg, err = unmarshalConfig(data, cfg, haveFile)
	if err != nil {
		return nil, fmt.Errorf("failed to process configuration file: %w", err)
	}
	return cfg, nil
}

// Prepare generates configuration file from template and returns it as a byte
// slice.
func Prepare() ([]byte, error) {
	return gencfg.Process(ConfigTmpl, requiredOptions...)
}

func Dump(cfg *Config) ([]byte, error) {
	data, err := yaml.Marshal(*cfg)
	if err != nil {
		return nil, fmt.Errorf("failed to marshal config to yaml: %v", err)
	}
	return data, nil
}
