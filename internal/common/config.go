package common

import (
	"fmt"
	"os"
	"path/filepath"
	"regexp"
	"strconv"
	"strings"
	"time"

	"gopkg.in/yaml.v3"

	"github.com/thereallexluttor/AaaS-Zapateria/constants"
)

// Config holds all application configuration
type Config struct {
	OCR     OCRConfig     `yaml:"ocr"`
	LLM     LLMConfig     `yaml:"llm"`
	Catalog CatalogConfig `yaml:"catalog"`
	Server  ServerConfig  `yaml:"server"`
	Logging LoggingConfig `yaml:"logging"`
}

// OCRConfig holds rasterization and recognition settings
type OCRConfig struct {
	Tesseract   string        `yaml:"tesseract"`
	Pdftoppm    string        `yaml:"pdftoppm"`
	Pdftotext   string        `yaml:"pdftotext"`
	Lang        string        `yaml:"lang"`
	DPI         int           `yaml:"dpi"` // 0 = per document kind
	MaxPages    int           `yaml:"max_pages"`
	TessdataDir string        `yaml:"tessdata_dir"`
	PSM         int           `yaml:"psm"`
	OEM         int           `yaml:"oem"`
	Timeout     time.Duration `yaml:"timeout"`

	MistralAPIKey string `yaml:"mistral_api_key"`
	MistralURL    string `yaml:"mistral_url"`
	MistralModel  string `yaml:"mistral_model"`
}

// LLMConfig holds the ordered list of model providers
type LLMConfig struct {
	Providers   []ProviderConfig `yaml:"providers"`
	Temperature float32          `yaml:"temperature"`
	Timeout     time.Duration    `yaml:"timeout"`
}

// ProviderConfig configures one completion backend
type ProviderConfig struct {
	Name          string `yaml:"name"` // deepseek | openai | ollama | gemini | anthropic
	APIKey        string `yaml:"api_key"`
	BaseURL       string `yaml:"base_url"`
	Model         string `yaml:"model"`
	RatePerMinute int    `yaml:"rate_per_minute"` // 0 = unlimited
}

// CatalogConfig holds the product catalog sources
type CatalogConfig struct {
	SupabaseURL string        `yaml:"supabase_url"`
	SupabaseKey string        `yaml:"supabase_key"`
	DSN         string        `yaml:"dsn"`
	SQLitePath  string        `yaml:"sqlite_path"`
	Limit       int           `yaml:"limit"`
	Timeout     time.Duration `yaml:"timeout"`
}

// ServerConfig holds HTTP server configuration
type ServerConfig struct {
	HTTPAddr        string        `yaml:"http_addr"`
	ReadTimeout     time.Duration `yaml:"read_timeout"`
	WriteTimeout    time.Duration `yaml:"write_timeout"`
	ShutdownTimeout time.Duration `yaml:"shutdown_timeout"`
	MaxUploadMB     int           `yaml:"max_upload_mb"`
}

// LoggingConfig holds logger settings
type LoggingConfig struct {
	Level  string `yaml:"level"`  // debug, info, warn, error
	Format string `yaml:"format"` // json, text
}

// Known provider names.
const (
	ProviderDeepSeek  = "deepseek"
	ProviderOpenAI    = "openai"
	ProviderOllama    = "ollama"
	ProviderGemini    = "gemini"
	ProviderAnthropic = "anthropic"
)

// LoadConfig loads configuration from environment variables
func LoadConfig() *Config {
	return &Config{
		OCR: OCRConfig{
			Tesseract:     getEnv("TESSERACT_CMD", "tesseract"),
			Pdftoppm:      getEnv("PDFTOPPM_CMD", "pdftoppm"),
			Pdftotext:     getEnv("PDFTOTEXT_CMD", "pdftotext"),
			Lang:          getEnv("OCR_LANG", "spa"),
			DPI:           getEnvAsInt("OCR_DPI", 0),
			MaxPages:      getEnvAsInt("OCR_MAX_PAGES", 0),
			TessdataDir:   getEnv("TESSDATA_PREFIX", ""),
			PSM:           getEnvAsInt("OCR_PSM", 0),
			OEM:           getEnvAsInt("OCR_OEM", 0),
			Timeout:       getEnvAsDuration("OCR_TIMEOUT", 60*time.Second),
			MistralAPIKey: getEnv("MISTRAL_API_KEY", ""),
			MistralURL:    getEnv("MISTRAL_URL", "https://api.mistral.ai/v1/"),
			MistralModel:  getEnv("MISTRAL_OCR_MODEL", "mistral-ocr-latest"),
		},
		LLM: LLMConfig{
			Providers:   providersFromEnv(),
			Temperature: getEnvAsFloat32("LLM_TEMPERATURE", 0.0),
			Timeout:     getEnvAsDuration("LLM_TIMEOUT", 30*time.Second),
		},
		Catalog: CatalogConfig{
			SupabaseURL: getEnv("VITE_SUPABASE_URL", getEnv("SUPABASE_URL", "")),
			SupabaseKey: getEnv("VITE_SUPABASE_ANON_KEY", getEnv("SUPABASE_ANON_KEY", "")),
			DSN:         getEnv("CATALOG_DB_URL", ""),
			SQLitePath:  getEnv("CATALOG_SQLITE_PATH", ""),
			Limit:       getEnvAsInt("CATALOG_LIMIT", 1000),
			Timeout:     getEnvAsDuration("CATALOG_TIMEOUT", 15*time.Second),
		},
		Server: ServerConfig{
			HTTPAddr:        getEnv("HTTP_ADDR", ":8080"),
			ReadTimeout:     getEnvAsDuration("HTTP_READ_TIMEOUT", 30*time.Second),
			WriteTimeout:    getEnvAsDuration("HTTP_WRITE_TIMEOUT", 5*time.Minute),
			ShutdownTimeout: getEnvAsDuration("HTTP_SHUTDOWN_TIMEOUT", 15*time.Second),
			MaxUploadMB:     getEnvAsInt("HTTP_MAX_UPLOAD_MB", 20),
		},
		Logging: LoggingConfig{
			Level:  getEnv("LOG_LEVEL", "info"),
			Format: getEnv("LOG_FORMAT", "json"),
		},
	}
}

// providersFromEnv builds the fallback order: hosted models first, the local
// Ollama model last.
func providersFromEnv() []ProviderConfig {
	var out []ProviderConfig
	if key := getEnv("DEEPSEEK_API_KEY", ""); key != "" {
		out = append(out, ProviderConfig{
			Name:          ProviderDeepSeek,
			APIKey:        key,
			BaseURL:       getEnv("DEEPSEEK_BASE_URL", "https://api.deepseek.com/v1"),
			Model:         getEnv("DEEPSEEK_MODEL", "deepseek-chat"),
			RatePerMinute: getEnvAsInt("DEEPSEEK_RATE_PER_MINUTE", 0),
		})
	}
	if key := getEnv("OPENAI_API_KEY", ""); key != "" {
		out = append(out, ProviderConfig{
			Name:          ProviderOpenAI,
			APIKey:        key,
			BaseURL:       getEnv("OPENAI_BASE_URL", "https://api.openai.com/v1"),
			Model:         getEnv("OPENAI_MODEL", "gpt-4o-mini"),
			RatePerMinute: getEnvAsInt("OPENAI_RATE_PER_MINUTE", 0),
		})
	}
	if key := getEnv("ANTHROPIC_API_KEY", ""); key != "" {
		out = append(out, ProviderConfig{
			Name:   ProviderAnthropic,
			APIKey: key,
			Model:  getEnv("ANTHROPIC_MODEL", "claude-3-5-haiku-latest"),
		})
	}
	if key := getEnv("GEMINI_API_KEY", ""); key != "" {
		out = append(out, ProviderConfig{
			Name:   ProviderGemini,
			APIKey: key,
			Model:  getEnv("GEMINI_MODEL", "gemini-1.5-flash"),
		})
	}
	if base := getEnv("OLLAMA_BASE_URL", ""); base != "" {
		out = append(out, ProviderConfig{
			Name:    ProviderOllama,
			BaseURL: base,
			Model:   getEnv("OLLAMA_MODEL", "llama3"),
		})
	}
	return out
}

// LoadConfigFile loads env configuration and overlays the YAML file at path.
// ${VAR} and ${VAR:-default} references in the file are expanded first.
func LoadConfigFile(path string) (*Config, error) {
	cfg := LoadConfig()
	if strings.TrimSpace(path) == "" {
		return cfg, nil
	}

	data, err := os.ReadFile(filepath.Clean(path))
	if err != nil {
		return nil, NewAppError(CodeConfig, fmt.Sprintf("read config %s", path), err)
	}
	data = expandEnvVars(data)

	if err := yaml.Unmarshal(data, cfg); err != nil {
		return nil, NewAppError(CodeConfig, "parse config", err)
	}
	return cfg, nil
}

var envVarRegex = regexp.MustCompile(`\$\{([^}]+)\}`)

func expandEnvVars(data []byte) []byte {
	return envVarRegex.ReplaceAllFunc(data, func(match []byte) []byte {
		expr := string(match[2 : len(match)-1])
		varName, defaultVal, hasDefault := strings.Cut(expr, ":-")
		val := os.Getenv(varName)
		if val == "" && hasDefault {
			val = defaultVal
		}
		return []byte(val)
	})
}

// Helper functions for environment variable parsing
func getEnv(key, defaultValue string) string {
	if value := os.Getenv(key); value != "" {
		return value
	}
	return defaultValue
}

func getEnvAsInt(key string, defaultValue int) int {
	if value := os.Getenv(key); value != "" {
		if intVal, err := strconv.Atoi(value); err == nil {
			return intVal
		}
	}
	return defaultValue
}

func getEnvAsFloat32(key string, defaultValue float32) float32 {
	if value := os.Getenv(key); value != "" {
		if floatVal, err := strconv.ParseFloat(value, 32); err == nil {
			return float32(floatVal)
		}
	}
	return defaultValue
}

func getEnvAsDuration(key string, defaultValue time.Duration) time.Duration {
	if value := os.Getenv(key); value != "" {
		if duration, err := time.ParseDuration(value); err == nil {
			return duration
		}
	}
	return defaultValue
}

// Validate validates the loaded configuration
func (c *Config) Validate() error {
	if c.OCR.DPI != 0 && (c.OCR.DPI < constants.MinRenderDPI || c.OCR.DPI > constants.MaxRenderDPI) {
		return NewAppError(CodeConfig, fmt.Sprintf("ocr.dpi must be within %d..%d, got %d",
			constants.MinRenderDPI, constants.MaxRenderDPI, c.OCR.DPI), ErrInvalidInput)
	}
	if c.Catalog.Limit <= 0 {
		return NewAppError(CodeConfig, "catalog.limit must be positive", ErrInvalidInput)
	}
	if c.Server.HTTPAddr == "" {
		return NewAppError(CodeConfig, "HTTP_ADDR is required", ErrInvalidInput)
	}
	for i, p := range c.LLM.Providers {
		switch p.Name {
		case ProviderDeepSeek, ProviderOpenAI, ProviderGemini, ProviderAnthropic:
			if p.APIKey == "" {
				return NewAppError(CodeConfig, fmt.Sprintf("llm.providers[%d] (%s): api_key is required", i, p.Name), ErrInvalidInput)
			}
		case ProviderOllama:
			if p.BaseURL == "" {
				return NewAppError(CodeConfig, fmt.Sprintf("llm.providers[%d] (ollama): base_url is required", i), ErrInvalidInput)
			}
		default:
			return NewAppError(CodeConfig, fmt.Sprintf("llm.providers[%d]: unknown provider %q", i, p.Name), ErrInvalidInput)
		}
	}
	return nil
}
