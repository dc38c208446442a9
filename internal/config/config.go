// Package config loads the local CLI configuration.
package config

import (
	"errors"
	"os"
	"time"

	"github.com/joho/godotenv"
	"gopkg.in/yaml.v3"

	"github.com/Lllllllleong/underwritingdocumentflow/internal/gcp"
	"github.com/Lllllllleong/underwritingdocumentflow/internal/jobs"
	"github.com/Lllllllleong/underwritingdocumentflow/internal/prompt"
	"github.com/Lllllllleong/underwritingdocumentflow/internal/relocate"
	"github.com/Lllllllleong/underwritingdocumentflow/internal/services"
)

// DefaultPath is read when no --config flag is given.
const DefaultPath = "underwriting.yaml"

// VertexConfig selects the hosted model.
type VertexConfig struct {
	ProjectID   string `yaml:"project_id"`
	Region      string `yaml:"region"`
	Model       string `yaml:"model"`
	TimeoutSecs int    `yaml:"timeout_secs"`
}

// StorageConfig is the object layout inside the bucket.
type StorageConfig struct {
	Bucket          string `yaml:"bucket"`
	Prefix          string `yaml:"prefix"`
	OCRPrefix       string `yaml:"ocr_prefix"`
	IncomingPrefix  string `yaml:"incoming_prefix"`
	ProcessedPrefix string `yaml:"processed_prefix"`
}

// TemplateConfig locates the prompt template.
type TemplateConfig struct {
	Paths     []string `yaml:"paths"`
	ObjectKey string   `yaml:"object_key"`
}

// Config is the root CLI configuration.
type Config struct {
	Storage  StorageConfig  `yaml:"storage"`
	Template TemplateConfig `yaml:"template"`
	Vertex   VertexConfig   `yaml:"vertex"`
}

// Load reads path, returning defaults when the file does not exist. Values
// from the environment (and a .env file, if present) override the file.
func Load(path string) (*Config, error) {
	_ = godotenv.Load()

	cfg := &Config{}
	data, err := os.ReadFile(path)
	switch {
	case errors.Is(err, os.ErrNotExist):
	case err != nil:
		return nil, err
	default:
		if err := yaml.Unmarshal(data, cfg); err != nil {
			return nil, err
		}
	}
	applyEnv(cfg)
	applyDefaults(cfg)
	return cfg, nil
}

func applyEnv(cfg *Config) {
	cfg.Storage.Bucket = gcp.GetEnv("BUCKET_NAME", cfg.Storage.Bucket)
	cfg.Storage.Prefix = gcp.GetEnv("PREFIX", cfg.Storage.Prefix)
	cfg.Storage.OCRPrefix = gcp.GetEnv("OCR_PREFIX", cfg.Storage.OCRPrefix)
	cfg.Storage.IncomingPrefix = gcp.GetEnv("INCOMING_PREFIX", cfg.Storage.IncomingPrefix)
	cfg.Storage.ProcessedPrefix = gcp.GetEnv("PROCESSED_PREFIX", cfg.Storage.ProcessedPrefix)
	cfg.Template.Paths = gcp.GetEnvList("TEMPLATE_PATHS", cfg.Template.Paths)
	cfg.Vertex.ProjectID = gcp.GetEnv("PROJECT_ID", cfg.Vertex.ProjectID)
	cfg.Vertex.Region = gcp.GetEnv("VERTEX_AI_REGION", cfg.Vertex.Region)
	cfg.Vertex.Model = gcp.GetEnv("MODEL_NAME", cfg.Vertex.Model)
}

func applyDefaults(cfg *Config) {
	if cfg.Storage.Bucket == "" {
		cfg.Storage.Bucket = "underwriting"
	}
	if cfg.Storage.Prefix == "" {
		cfg.Storage.Prefix = "output"
	}
	if cfg.Storage.OCRPrefix == "" {
		cfg.Storage.OCRPrefix = "ocr"
	}
	if cfg.Storage.IncomingPrefix == "" {
		cfg.Storage.IncomingPrefix = relocate.DefaultIncomingPrefix
	}
	if cfg.Storage.ProcessedPrefix == "" {
		cfg.Storage.ProcessedPrefix = relocate.DefaultProcessedPrefix
	}
	if cfg.Template.Paths == nil {
		cfg.Template.Paths = prompt.DefaultLocalPaths
	}
	if cfg.Template.ObjectKey == "" {
		cfg.Template.ObjectKey = prompt.DefaultObjectKey
	}
	if cfg.Vertex.Region == "" {
		cfg.Vertex.Region = "us-central1"
	}
	if cfg.Vertex.Model == "" {
		cfg.Vertex.Model = "gemini-1.5-pro"
	}
	if cfg.Vertex.TimeoutSecs <= 0 {
		cfg.Vertex.TimeoutSecs = 120
	}
}

// Summary converts the CLI configuration into the service configuration.
func (c *Config) Summary() services.SummaryConfig {
	return services.SummaryConfig{
		ProjectID:       c.Vertex.ProjectID,
		Bucket:          c.Storage.Bucket,
		Prefix:          c.Storage.Prefix,
		TemplateBucket:  c.Storage.Bucket,
		TemplateKey:     c.Template.ObjectKey,
		TemplatePaths:   c.Template.Paths,
		OCRPrefix:       c.Storage.OCRPrefix,
		IncomingPrefix:  c.Storage.IncomingPrefix,
		ProcessedPrefix: c.Storage.ProcessedPrefix,
		Region:          c.Vertex.Region,
		ModelName:       c.Vertex.Model,
		CollectionName:  jobs.DefaultCollection,
		ModelTimeout:    time.Duration(c.Vertex.TimeoutSecs) * time.Second,
	}
}
