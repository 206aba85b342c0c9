package config

import (
	"bytes"
	_ "embed"
	"fmt"
	"os"

	yaml "gopkg.in/yaml.v3"

	"github.com/rupor-github/gencfg"
)

//go:embed config.yaml.tmpl
var ConfigTmpl []byte

type (
	TemplateFieldName string

	BotConfig struct {
		Token       SecretString `yaml:"token"`
		BookPath    string       `yaml:"book_path" sanitize:"path_clean" validate:"required"`
		PollTimeout int          `yaml:"poll_timeout" validate:"min=1,max=300"`
		AboutText   string       `yaml:"about_text"`
	}

	StoreConfig struct {
		Path string `yaml:"path" sanitize:"path_clean,assure_dir_exists_for_file" validate:"required,filepath"`
	}

	MailingConfig struct {
		Enable          bool     `yaml:"enable"`
		Days            []string `yaml:"days" validate:"dive,oneof=Monday Tuesday Wednesday Thursday Friday Saturday Sunday"`
		At              string   `yaml:"at" validate:"required,datetime=15:04"`
		Timezone        string   `yaml:"timezone" validate:"required"`
		MessageTemplate string   `yaml:"message_template" validate:"required"`
	}

	AIConfig struct {
		Enable         bool         `yaml:"enable"`
		APIKey         SecretString `yaml:"api_key"`
		Model          string       `yaml:"model" validate:"required"`
		Endpoint       string       `yaml:"endpoint" validate:"required,url"`
		MaxRetries     int          `yaml:"max_retries" validate:"min=0,max=10"`
		ReplyLimit     int          `yaml:"reply_limit" validate:"min=200,max=4096"`
		DailyLimit     int          `yaml:"daily_limit" validate:"min=0,max=1000"`
		SentencesModel string       `yaml:"sentences_model" sanitize:"path_clean"`
	}

	Config struct {
		Version   int            `yaml:"version" validate:"eq=1"`
		Bot       BotConfig      `yaml:"bot"`
		Store     StoreConfig    `yaml:"store"`
		Mailing   MailingConfig  `yaml:"mailing"`
		AI        AIConfig       `yaml:"ai"`
		Logging   LoggingConfig  `yaml:"logging"`
		Reporting ReporterConfig `yaml:"reporting"`
	}
)

const (
	// NOTE: must match yaml field name above, alternative is to use struct
	// field name and reflection which I want to avoid for now
	MailingTemplateFieldName TemplateFieldName = "message_template"
	AboutTextFieldName       TemplateFieldName = "about_text"
)

var requiredOptions = append([]func(*gencfg.ProcessingOptions){},
	gencfg.WithDoNotExpandField(string(MailingTemplateFieldName)),
	gencfg.WithDoNotExpandField(string(AboutTextFieldName)),
)

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
		if err := gencfg.Validate(cfg); err != nil {
			return nil, err
		}
	}
	return cfg, nil
}

// LoadConfiguration reads the configuration from the file at the given path,
// superimposes its values on top of expanded configuration tamplate to provide
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
