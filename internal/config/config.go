package config

import (
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"regexp"
	"runtime"
	"strings"

	"github.com/go-playground/validator/v10"
	"github.com/joho/godotenv"
	"gopkg.in/yaml.v3"

	"github.com/aronetommaso/Fanta-Calcio-Agent/internal/domain"
)

// Provider names accepted by embedding.provider.
const (
	ProviderGemini = "gemini"
	ProviderOpenAI = "openai"
)

// Cache drivers accepted by embedding.cache.driver.
const (
	CacheNone   = "none"
	CacheMemory = "memory"
	CacheRedis  = "redis"
)

const (
	defaultGeminiBaseURL = "https://generativelanguage.googleapis.com/"
	defaultGroqBaseURL   = "https://api.groq.com/openai/v1"
	groqKeyPrefix        = "gsk_"
	// geminiMaxBatchSize is the batchEmbedContents request ceiling.
	geminiMaxBatchSize = 100
)

// Config holds the agent configuration.
type Config struct {
	HTTP        HTTPConfig        `yaml:"http"`
	Logging     LoggingConfig     `yaml:"logging"`
	Embedding   EmbeddingConfig   `yaml:"embedding"`
	Generation  GenerationConfig  `yaml:"generation"`
	VectorStore VectorStoreConfig `yaml:"vector_store"`
	Ingest      IngestConfig      `yaml:"ingest"`
	Retrieval   RetrievalConfig   `yaml:"retrieval"`
	Prompt      PromptConfig      `yaml:"prompt"`
}

// LoggingConfig holds logging settings.
type LoggingConfig struct {
	Level string `yaml:"level" validate:"omitempty,oneof=debug info warn error"`
	// File receives logs instead of stderr while the TUI is running.
	File string `yaml:"file"`
}

// HTTPConfig holds HTTP server settings for the serve command.
type HTTPConfig struct {
	Port            int `yaml:"port" validate:"min=1,max=65535"`
	ReadTimeoutSec  int `yaml:"read_timeout_sec"`
	WriteTimeoutSec int `yaml:"write_timeout_sec"`
	ShutdownSec     int `yaml:"shutdown_timeout_sec"`
}

// EmbeddingConfig holds embedding provider settings.
type EmbeddingConfig struct {
	Provider          string  `yaml:"provider" validate:"oneof=gemini openai"`
	APIKey            string  `yaml:"api_key" validate:"required"`
	BaseURL           string  `yaml:"base_url" validate:"omitempty,url"`
	Model             string  `yaml:"model" validate:"required"`
	Dimensions        int     `yaml:"dimensions" validate:"min=0"`
	BatchSize         int     `yaml:"batch_size" validate:"gt=0,ltefield=MaxBatchSize"`
	MaxBatchSize      int     `yaml:"max_batch_size" validate:"gt=0"`
	TimeoutSec        int     `yaml:"timeout_sec"`
	RequestsPerSecond float64 `yaml:"requests_per_second" validate:"min=0"`
	// Instructions are only used by providers without native task types (openai).
	DocumentInstruction string      `yaml:"document_instruction"`
	QueryInstruction    string      `yaml:"query_instruction"`
	Cache               CacheConfig `yaml:"cache"`
}

// CacheConfig holds the query-embedding cache settings.
type CacheConfig struct {
	Driver   string   `yaml:"driver" validate:"oneof=none memory redis"`
	Addrs    []string `yaml:"addrs" validate:"required_if=Driver redis"`
	Password string   `yaml:"password"`
	TTLSec   int      `yaml:"ttl_sec" validate:"min=0"`
}

// GenerationConfig holds the OpenAI-compatible chat model settings.
type GenerationConfig struct {
	APIKey string `yaml:"api_key" validate:"required"`
	// KeyPrefix, when set, must prefix APIKey. Defaults to "gsk_" for Groq.
	KeyPrefix      string   `yaml:"key_prefix"`
	BaseURL        string   `yaml:"base_url" validate:"required,url"`
	Model          string   `yaml:"model" validate:"required"`
	Temperature    *float64 `yaml:"temperature" validate:"omitempty,min=0,max=2"`
	MaxTokens      int      `yaml:"max_tokens" validate:"min=0"`
	TimeoutSec     int      `yaml:"timeout_sec"`
	StripReasoning bool     `yaml:"strip_reasoning"`
	SystemPrompt   string   `yaml:"system_prompt"`
}

// VectorStoreConfig describes the collection created before ingestion.
type VectorStoreConfig struct {
	Collection string `yaml:"collection" validate:"required"`
	Dimension  int    `yaml:"dimension" validate:"gt=0"`
	Metric     string `yaml:"metric" validate:"oneof=cosine dot euclidean"`
}

// IngestConfig holds ingestion settings.
type IngestConfig struct {
	Source             string            `yaml:"source" validate:"required"`
	Metadata           map[string]string `yaml:"metadata"`
	MaxChars           int               `yaml:"max_chars" validate:"gt=0"`
	Overlap            int               `yaml:"overlap" validate:"min=0,ltfield=MaxChars"`
	UnidocLicenseKey   string            `yaml:"unidoc_license_key"`
	SkipDimensionProbe bool              `yaml:"skip_dimension_probe"`
}

// RetrievalConfig holds per-question retrieval settings.
type RetrievalConfig struct {
	K              int `yaml:"k" validate:"gt=0"`
	NodeTimeoutSec int `yaml:"node_timeout_sec" validate:"min=0"`
	PreviewChars   int `yaml:"preview_chars" validate:"min=0"`
}

// PromptConfig points at optional template overrides.
type PromptConfig struct {
	UserTemplateFile      string `yaml:"user_template_file"`
	RetrievalTemplateFile string `yaml:"retrieval_template_file"`
}

// Load reads configuration from a YAML file by environment name (local, dev, prod).
func Load(env string) (Config, error) {
	return LoadFile(findConfigPath(env))
}

// LoadFile reads configuration from an explicit path.
// A .env file in the working directory is loaded first; it never overrides set variables.
func LoadFile(configPath string) (Config, error) {
	if err := godotenv.Load(); err != nil && !errors.Is(err, fs.ErrNotExist) {
		return Config{}, fmt.Errorf("failed to load .env: %w", err)
	}

	data, err := os.ReadFile(filepath.Clean(configPath))
	if err != nil {
		return Config{}, fmt.Errorf("failed to read config %s: %w", configPath, err)
	}

	return Parse(data)
}

// Parse expands env variables, decodes YAML, applies defaults and validates.
func Parse(data []byte) (Config, error) {
	data = expandEnvVars(data)

	var cfg Config
	if err := yaml.Unmarshal(data, &cfg); err != nil {
		return Config{}, fmt.Errorf("failed to parse config: %w", err)
	}

	cfg.ApplyDefaults()

	if err := cfg.Validate(); err != nil {
		return Config{}, fmt.Errorf("invalid config: %w", err)
	}

	return cfg, nil
}

// MustLoad loads configuration or panics.
func MustLoad(env string) Config {
	cfg, err := Load(env)
	if err != nil {
		panic(err)
	}
	return cfg
}

// GetEnv returns the current environment from the ENV variable, defaulting to "local".
func GetEnv() string {
	if env := os.Getenv("ENV"); env != "" {
		return env
	}
	return "local"
}

// ApplyDefaults fills empty fields with default values.
func (c *Config) ApplyDefaults() {
	c.applyHTTPDefaults()
	c.applyEmbeddingDefaults()
	c.applyGenerationDefaults()

	if c.VectorStore.Collection == "" {
		c.VectorStore.Collection = "serie_a_matches"
	}
	if c.VectorStore.Dimension <= 0 {
		c.VectorStore.Dimension = 768
	}
	if c.VectorStore.Metric == "" {
		c.VectorStore.Metric = "cosine"
	}

	if c.Ingest.Source == "" {
		c.Ingest.Source = "dataset_rag.pdf"
	}
	if c.Ingest.Metadata == nil {
		c.Ingest.Metadata = map[string]string{"source": "scraper_sky"}
	}
	if c.Ingest.MaxChars <= 0 {
		c.Ingest.MaxChars = 3000
		if c.Ingest.Overlap == 0 {
			c.Ingest.Overlap = 200
		}
	}

	if c.Retrieval.K <= 0 {
		c.Retrieval.K = 15
	}
	if c.Retrieval.PreviewChars <= 0 {
		c.Retrieval.PreviewChars = 150
	}
}

func (c *Config) applyHTTPDefaults() {
	if c.HTTP.Port == 0 {
		c.HTTP.Port = 8080
	}
	if c.HTTP.ReadTimeoutSec <= 0 {
		c.HTTP.ReadTimeoutSec = 10
	}
	if c.HTTP.WriteTimeoutSec <= 0 {
		c.HTTP.WriteTimeoutSec = 180
	}
	if c.HTTP.ShutdownSec <= 0 {
		c.HTTP.ShutdownSec = 10
	}
}

func (c *Config) applyEmbeddingDefaults() {
	e := &c.Embedding
	if e.Provider == "" {
		e.Provider = ProviderGemini
	}
	if e.Provider == ProviderGemini {
		if e.BaseURL == "" {
			e.BaseURL = defaultGeminiBaseURL
		}
		if e.Model == "" {
			e.Model = "models/text-embedding-004"
		}
	}
	if e.MaxBatchSize <= 0 {
		e.MaxBatchSize = 100
	}
	if e.BatchSize <= 0 {
		e.BatchSize = min(50, e.MaxBatchSize)
	}
	if e.TimeoutSec <= 0 {
		e.TimeoutSec = 30
	}
	if e.Cache.Driver == "" {
		e.Cache.Driver = CacheMemory
	}
	if e.Cache.TTLSec == 0 {
		e.Cache.TTLSec = 86400
	}
}

func (c *Config) applyGenerationDefaults() {
	g := &c.Generation
	if g.BaseURL == "" {
		g.BaseURL = defaultGroqBaseURL
	}
	if g.KeyPrefix == "" && strings.Contains(g.BaseURL, "api.groq.com") {
		g.KeyPrefix = groqKeyPrefix
	}
	if g.Model == "" {
		g.Model = "qwen/qwen3-32b"
	}
	if g.Temperature == nil {
		t := 0.6
		g.Temperature = &t
	}
	if g.TimeoutSec <= 0 {
		g.TimeoutSec = 120
	}
}

var validate = validator.New(validator.WithRequiredStructEnabled())

// Validate checks the configuration for correctness.
// Every failure matches domain.ErrInvalidConfig.
func (c *Config) Validate() error {
	if err := validate.Struct(c); err != nil {
		var verrs validator.ValidationErrors
		if errors.As(err, &verrs) {
			return fmt.Errorf("%w: %s", domain.ErrInvalidConfig, describe(verrs))
		}
		return fmt.Errorf("%w: %w", domain.ErrInvalidConfig, err)
	}
	if p := c.Generation.KeyPrefix; p != "" && !strings.HasPrefix(c.Generation.APIKey, p) {
		return fmt.Errorf("%w: generation.api_key must start with %q", domain.ErrInvalidConfig, p)
	}
	if c.Embedding.Provider == ProviderGemini && c.Embedding.MaxBatchSize > geminiMaxBatchSize {
		return fmt.Errorf("%w: embedding.max_batch_size (%d) exceeds the gemini limit of %d",
			domain.ErrInvalidConfig, c.Embedding.MaxBatchSize, geminiMaxBatchSize)
	}
	if d := c.Embedding.Dimensions; d > 0 && d != c.VectorStore.Dimension {
		return fmt.Errorf("%w: embedding.dimensions (%d) must match vector_store.dimension (%d)",
			domain.ErrInvalidConfig, d, c.VectorStore.Dimension)
	}
	return nil
}

// describe renders validator errors with their yaml paths.
func describe(verrs validator.ValidationErrors) string {
	msgs := make([]string, 0, len(verrs))
	for _, fe := range verrs {
		msg := fmt.Sprintf("%s failed %q", yamlPath(fe.StructNamespace()), fe.Tag())
		if fe.Param() != "" {
			msg += " (" + fe.Param() + ")"
		}
		msgs = append(msgs, msg)
	}
	return strings.Join(msgs, "; ")
}

var camelBoundary = regexp.MustCompile(`([a-z0-9])([A-Z])`)

// yamlPath maps "Config.Generation.APIKey" to "generation.api_key".
func yamlPath(ns string) string {
	parts := strings.Split(ns, ".")
	if len(parts) > 1 {
		parts = parts[1:]
	}
	for i, p := range parts {
		p = strings.ReplaceAll(p, "APIKey", "ApiKey")
		p = strings.ReplaceAll(p, "BaseURL", "BaseUrl")
		p = strings.ReplaceAll(p, "HTTP", "Http")
		p = strings.ReplaceAll(p, "TTL", "Ttl")
		parts[i] = strings.ToLower(camelBoundary.ReplaceAllString(p, "${1}_${2}"))
	}
	return strings.Join(parts, ".")
}

// findConfigPath locates the config file.
func findConfigPath(env string) string {
	filename := fmt.Sprintf("%s.yaml", env)

	// 1. Check ./config/
	if path := filepath.Join("config", filename); fileExists(path) {
		return path
	}

	// 2. Check relative to the source file
	_, b, _, _ := runtime.Caller(0)
	projectRoot := filepath.Dir(filepath.Dir(filepath.Dir(b))) // internal/config -> project root
	if path := filepath.Join(projectRoot, "config", filename); fileExists(path) {
		return path
	}

	// 3. Fallback to ./config/
	return filepath.Join("config", filename)
}

func fileExists(path string) bool {
	_, err := os.Stat(path)
	return err == nil
}

// expandEnvVars replaces ${VAR} and ${VAR:-default} with environment variable values.
var envVarRegex = regexp.MustCompile(`\$\{([^}]+)\}`)

func expandEnvVars(data []byte) []byte {
	return envVarRegex.ReplaceAllFunc(data, func(match []byte) []byte {
		expr := string(match[2 : len(match)-1]) // strip ${ and }
		varName, defaultVal, hasDefault := strings.Cut(expr, ":-")
		val := os.Getenv(varName)
		if val == "" && hasDefault {
			val = defaultVal
		}
		return []byte(val)
	})
}
