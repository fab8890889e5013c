package config

import (
	"fmt"
	"os"
	"strings"
	"time"

	"github.com/spf13/viper"
)

// Config holds all application configuration.
type Config struct {
	Server ServerConfig
	Log    LogConfig
	Upload UploadConfig
	OCR    OCRConfig
	Parser ParserConfig
	S3     S3Config
	Auth   AuthConfig
	CORS   CORSConfig
}

// ServerConfig holds HTTP server settings.
type ServerConfig struct {
	Port         string        `mapstructure:"port"`
	ReadTimeout  time.Duration `mapstructure:"read_timeout"`
	WriteTimeout time.Duration `mapstructure:"write_timeout"`
	Environment  string        `mapstructure:"environment"`

	// RequestTimeout bounds one extraction end to end. It must stay below
	// WriteTimeout so a slow provider still gets a JSON error back.
	RequestTimeout time.Duration `mapstructure:"request_timeout"`
}

// LogConfig holds logging settings.
type LogConfig struct {
	Level  string `mapstructure:"level"`
	Format string `mapstructure:"format"`
}

// UploadConfig holds settings for transient uploaded files.
type UploadConfig struct {
	Dir           string `mapstructure:"dir"`
	MaxFileSizeMB int64  `mapstructure:"max_file_size_mb"`
}

// MaxBytes returns the upload size limit in bytes.
func (u *UploadConfig) MaxBytes() int64 {
	return u.MaxFileSizeMB * 1024 * 1024
}

// OCRConfig holds Tesseract settings.
type OCRConfig struct {
	Enabled  bool   `mapstructure:"enabled"`
	Language string `mapstructure:"language"`
	// Scanned PDFs are rendered to PNG pages with poppler's pdftoppm.
	Pdftoppm string `mapstructure:"pdftoppm"`
	DPI      int    `mapstructure:"dpi"`
	MaxPages int    `mapstructure:"max_pages"`
}

// ParserProviderConfig holds settings for a single LLM provider.
type ParserProviderConfig struct {
	Provider        string `mapstructure:"provider"`
	APIKey          string `mapstructure:"api_key"`
	DefaultModel    string `mapstructure:"default_model"`
	BaseURL         string `mapstructure:"base_url"`
	MaxOutputTokens int    `mapstructure:"max_output_tokens"`
	TimeoutSecs     int    `mapstructure:"timeout_secs"`
	Organization    string `mapstructure:"organization"`
	Project         string `mapstructure:"project"`
}

// Timeout returns the per-call timeout, defaulting to 120s.
func (p *ParserProviderConfig) Timeout() time.Duration {
	if p.TimeoutSecs <= 0 {
		return 120 * time.Second
	}
	return time.Duration(p.TimeoutSecs) * time.Second
}

// ParserConfig holds LLM settings with multi-provider support and the
// explicit retry policy wrapped around each provider.
type ParserConfig struct {
	// Legacy flat fields (single provider)
	Provider        string `mapstructure:"provider"`
	APIKey          string `mapstructure:"api_key"`
	DefaultModel    string `mapstructure:"default_model"`
	BaseURL         string `mapstructure:"base_url"`
	MaxOutputTokens int    `mapstructure:"max_output_tokens"`
	TimeoutSecs     int    `mapstructure:"timeout_secs"`
	Organization    string `mapstructure:"organization"`
	Project         string `mapstructure:"project"`

	// Multi-provider fields
	Primary   ParserProviderConfig `mapstructure:"primary"`
	Secondary ParserProviderConfig `mapstructure:"secondary"`
	Tertiary  ParserProviderConfig `mapstructure:"tertiary"`

	// Retry policy
	MaxRetries     int           `mapstructure:"max_retries"`
	RetryBaseDelay time.Duration `mapstructure:"retry_base_delay"`
	RetryMaxDelay  time.Duration `mapstructure:"retry_max_delay"`
}

// PrimaryConfig returns the primary provider config, falling back to legacy flat fields.
func (p *ParserConfig) PrimaryConfig() *ParserProviderConfig {
	if p.Primary.Provider != "" {
		return &p.Primary
	}
	return &ParserProviderConfig{
		Provider:        p.Provider,
		APIKey:          p.APIKey,
		DefaultModel:    p.DefaultModel,
		BaseURL:         p.BaseURL,
		MaxOutputTokens: p.MaxOutputTokens,
		TimeoutSecs:     p.TimeoutSecs,
		Organization:    p.Organization,
		Project:         p.Project,
	}
}

// SecondaryConfig returns the secondary provider config, or nil if not configured.
func (p *ParserConfig) SecondaryConfig() *ParserProviderConfig {
	if p.Secondary.Provider != "" {
		return &p.Secondary
	}
	return nil
}

// TertiaryConfig returns the tertiary provider config, or nil if not configured.
func (p *ParserConfig) TertiaryConfig() *ParserProviderConfig {
	if p.Tertiary.Provider != "" {
		return &p.Tertiary
	}
	return nil
}

// Providers returns the configured providers in fallback order.
func (p *ParserConfig) Providers() []*ParserProviderConfig {
	out := []*ParserProviderConfig{p.PrimaryConfig()}
	if s := p.SecondaryConfig(); s != nil {
		out = append(out, s)
	}
	if t := p.TertiaryConfig(); t != nil {
		out = append(out, t)
	}
	return out
}

// S3Config holds the optional artifact archive settings.
type S3Config struct {
	ArchiveEnabled bool   `mapstructure:"archive_enabled"`
	Region         string `mapstructure:"region"`
	Bucket         string `mapstructure:"bucket"`
	Endpoint       string `mapstructure:"endpoint"`
	AccessKey      string `mapstructure:"access_key"`
	SecretKey      string `mapstructure:"secret_key"`
	PresignExpiry  int64  `mapstructure:"presign_expiry"`
}

// AuthConfig holds optional bearer-token settings. An empty secret disables auth.
type AuthConfig struct {
	JWTSecret string `mapstructure:"jwt_secret"`
	JWTIssuer string `mapstructure:"jwt_issuer"`
}

// Enabled reports whether extraction routes require a token.
func (a *AuthConfig) Enabled() bool {
	return a.JWTSecret != ""
}

// CORSConfig holds CORS settings.
type CORSConfig struct {
	AllowedOrigins []string `mapstructure:"allowed_origins"`
}

// providerKeyEnv maps provider names to the conventional API-key variable.
var providerKeyEnv = map[string]string{
	"openai": "OPENAI_API_KEY",
	"claude": "ANTHROPIC_API_KEY",
	"gemini": "GEMINI_API_KEY",
}

// Load reads configuration from environment variables with the DOCEXTRACT_ prefix.
func Load() (*Config, error) {
	v := viper.New()
	v.SetEnvPrefix("DOCEXTRACT")
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	// Server defaults
	v.SetDefault("server.port", ":5000")
	v.SetDefault("server.read_timeout", "30s")
	v.SetDefault("server.write_timeout", "180s")
	v.SetDefault("server.request_timeout", "150s")
	v.SetDefault("server.environment", "development")

	// Log defaults
	v.SetDefault("log.level", "info")
	v.SetDefault("log.format", "console")

	// Upload defaults
	v.SetDefault("upload.dir", "uploads")
	v.SetDefault("upload.max_file_size_mb", 25)

	// OCR defaults
	v.SetDefault("ocr.enabled", true)
	v.SetDefault("ocr.language", "por")
	v.SetDefault("ocr.pdftoppm", "pdftoppm")
	v.SetDefault("ocr.dpi", 300)
	v.SetDefault("ocr.max_pages", 20)

	// Parser defaults (legacy flat)
	v.SetDefault("parser.provider", "openai")
	v.SetDefault("parser.api_key", "")
	v.SetDefault("parser.default_model", "gpt-4o-mini")
	v.SetDefault("parser.base_url", "")
	v.SetDefault("parser.max_output_tokens", 5000)
	v.SetDefault("parser.timeout_secs", 120)
	v.SetDefault("parser.max_retries", 2)
	v.SetDefault("parser.retry_base_delay", "1s")
	v.SetDefault("parser.retry_max_delay", "30s")

	// Parser primary/secondary/tertiary defaults
	for _, tier := range []string{"primary", "secondary", "tertiary"} {
		v.SetDefault("parser."+tier+".provider", "")
		v.SetDefault("parser."+tier+".api_key", "")
		v.SetDefault("parser."+tier+".default_model", "")
		v.SetDefault("parser."+tier+".base_url", "")
		v.SetDefault("parser."+tier+".max_output_tokens", 5000)
		v.SetDefault("parser."+tier+".timeout_secs", 120)
	}

	// S3 defaults
	v.SetDefault("s3.archive_enabled", false)
	v.SetDefault("s3.region", "us-east-1")
	v.SetDefault("s3.bucket", "docextract-artifacts")
	v.SetDefault("s3.endpoint", "")
	v.SetDefault("s3.presign_expiry", 3600)

	// Auth defaults
	v.SetDefault("auth.jwt_secret", "")
	v.SetDefault("auth.jwt_issuer", "docextract")

	// CORS defaults (Streamlit and local front ends)
	v.SetDefault("cors.allowed_origins", "http://localhost:8501,http://127.0.0.1:8501,http://localhost:3000")

	// Bind environment variables explicitly for nested keys
	envBindings := map[string]string{
		"server.port":              "DOCEXTRACT_SERVER_PORT",
		"server.read_timeout":      "DOCEXTRACT_SERVER_READ_TIMEOUT",
		"server.write_timeout":     "DOCEXTRACT_SERVER_WRITE_TIMEOUT",
		"server.request_timeout":   "DOCEXTRACT_SERVER_REQUEST_TIMEOUT",
		"server.environment":       "DOCEXTRACT_SERVER_ENVIRONMENT",
		"log.level":                "DOCEXTRACT_LOG_LEVEL",
		"log.format":               "DOCEXTRACT_LOG_FORMAT",
		"upload.dir":               "DOCEXTRACT_UPLOAD_DIR",
		"upload.max_file_size_mb":  "DOCEXTRACT_UPLOAD_MAX_FILE_SIZE_MB",
		"ocr.enabled":              "DOCEXTRACT_OCR_ENABLED",
		"ocr.language":             "DOCEXTRACT_OCR_LANGUAGE",
		"ocr.pdftoppm":             "DOCEXTRACT_OCR_PDFTOPPM",
		"ocr.dpi":                  "DOCEXTRACT_OCR_DPI",
		"ocr.max_pages":            "DOCEXTRACT_OCR_MAX_PAGES",
		"parser.provider":          "DOCEXTRACT_PARSER_PROVIDER",
		"parser.api_key":           "DOCEXTRACT_PARSER_API_KEY",
		"parser.default_model":     "DOCEXTRACT_PARSER_DEFAULT_MODEL",
		"parser.base_url":          "DOCEXTRACT_PARSER_BASE_URL",
		"parser.max_output_tokens": "DOCEXTRACT_PARSER_MAX_OUTPUT_TOKENS",
		"parser.timeout_secs":      "DOCEXTRACT_PARSER_TIMEOUT_SECS",
		"parser.organization":      "DOCEXTRACT_PARSER_ORGANIZATION",
		"parser.project":           "DOCEXTRACT_PARSER_PROJECT",
		"parser.max_retries":       "DOCEXTRACT_PARSER_MAX_RETRIES",
		"parser.retry_base_delay":  "DOCEXTRACT_PARSER_RETRY_BASE_DELAY",
		"parser.retry_max_delay":   "DOCEXTRACT_PARSER_RETRY_MAX_DELAY",
		"s3.archive_enabled":       "DOCEXTRACT_S3_ARCHIVE_ENABLED",
		"s3.region":                "DOCEXTRACT_S3_REGION",
		"s3.bucket":                "DOCEXTRACT_S3_BUCKET",
		"s3.endpoint":              "DOCEXTRACT_S3_ENDPOINT",
		"s3.access_key":            "DOCEXTRACT_S3_ACCESS_KEY",
		"s3.secret_key":            "DOCEXTRACT_S3_SECRET_KEY",
		"s3.presign_expiry":        "DOCEXTRACT_S3_PRESIGN_EXPIRY",
		"auth.jwt_secret":          "DOCEXTRACT_AUTH_JWT_SECRET",
		"auth.jwt_issuer":          "DOCEXTRACT_AUTH_JWT_ISSUER",
		"cors.allowed_origins":     "DOCEXTRACT_CORS_ALLOWED_ORIGINS",
	}
	for _, tier := range []string{"primary", "secondary", "tertiary"} {
		prefix := "DOCEXTRACT_PARSER_" + strings.ToUpper(tier) + "_"
		for _, field := range []string{"provider", "api_key", "default_model", "base_url", "max_output_tokens", "timeout_secs", "organization", "project"} {
			envBindings["parser."+tier+"."+field] = prefix + strings.ToUpper(field)
		}
	}
	for key, env := range envBindings {
		_ = v.BindEnv(key, env)
	}

	cfg := &Config{}

	// Railway/Heroku/Render set a PORT env var. Use it if DOCEXTRACT_SERVER_PORT is not explicitly set.
	serverPort := v.GetString("server.port")
	if port := os.Getenv("PORT"); port != "" && os.Getenv("DOCEXTRACT_SERVER_PORT") == "" {
		serverPort = ":" + port
	}

	cfg.Server = ServerConfig{
		Port:           serverPort,
		ReadTimeout:    v.GetDuration("server.read_timeout"),
		WriteTimeout:   v.GetDuration("server.write_timeout"),
		RequestTimeout: v.GetDuration("server.request_timeout"),
		Environment:    v.GetString("server.environment"),
	}
	cfg.Log = LogConfig{
		Level:  v.GetString("log.level"),
		Format: v.GetString("log.format"),
	}
	cfg.Upload = UploadConfig{
		Dir:           v.GetString("upload.dir"),
		MaxFileSizeMB: v.GetInt64("upload.max_file_size_mb"),
	}
	cfg.OCR = OCRConfig{
		Enabled:  v.GetBool("ocr.enabled"),
		Language: v.GetString("ocr.language"),
		Pdftoppm: v.GetString("ocr.pdftoppm"),
		DPI:      v.GetInt("ocr.dpi"),
		MaxPages: v.GetInt("ocr.max_pages"),
	}

	cfg.Parser = ParserConfig{
		Provider:        v.GetString("parser.provider"),
		APIKey:          v.GetString("parser.api_key"),
		DefaultModel:    v.GetString("parser.default_model"),
		BaseURL:         v.GetString("parser.base_url"),
		MaxOutputTokens: v.GetInt("parser.max_output_tokens"),
		TimeoutSecs:     v.GetInt("parser.timeout_secs"),
		Organization:    v.GetString("parser.organization"),
		Project:         v.GetString("parser.project"),
		Primary:         loadProvider(v, "primary"),
		Secondary:       loadProvider(v, "secondary"),
		Tertiary:        loadProvider(v, "tertiary"),
		MaxRetries:      v.GetInt("parser.max_retries"),
		RetryBaseDelay:  v.GetDuration("parser.retry_base_delay"),
		RetryMaxDelay:   v.GetDuration("parser.retry_max_delay"),
	}
	if cfg.Parser.Primary.Provider == "" {
		applyProviderEnv(cfg.Parser.Provider, &cfg.Parser.APIKey, &cfg.Parser.Organization, &cfg.Parser.Project)
	}
	for _, p := range []*ParserProviderConfig{&cfg.Parser.Primary, &cfg.Parser.Secondary, &cfg.Parser.Tertiary} {
		if p.Provider != "" {
			applyProviderEnv(p.Provider, &p.APIKey, &p.Organization, &p.Project)
		}
	}

	cfg.S3 = S3Config{
		ArchiveEnabled: v.GetBool("s3.archive_enabled"),
		Region:         v.GetString("s3.region"),
		Bucket:         v.GetString("s3.bucket"),
		Endpoint:       v.GetString("s3.endpoint"),
		AccessKey:      v.GetString("s3.access_key"),
		SecretKey:      v.GetString("s3.secret_key"),
		PresignExpiry:  v.GetInt64("s3.presign_expiry"),
	}
	cfg.Auth = AuthConfig{
		JWTSecret: v.GetString("auth.jwt_secret"),
		JWTIssuer: v.GetString("auth.jwt_issuer"),
	}

	// Parse CORS allowed origins from comma-separated string
	var corsOrigins []string
	for _, o := range strings.Split(v.GetString("cors.allowed_origins"), ",") {
		o = strings.TrimSpace(o)
		if o != "" {
			corsOrigins = append(corsOrigins, o)
		}
	}
	cfg.CORS = CORSConfig{
		AllowedOrigins: corsOrigins,
	}

	if cfg.Server.WriteTimeout > 0 && cfg.Server.RequestTimeout >= cfg.Server.WriteTimeout {
		return nil, fmt.Errorf("server.request_timeout (%s) must be shorter than server.write_timeout (%s)",
			cfg.Server.RequestTimeout, cfg.Server.WriteTimeout)
	}

	return cfg, nil
}

func loadProvider(v *viper.Viper, tier string) ParserProviderConfig {
	prefix := "parser." + tier + "."
	return ParserProviderConfig{
		Provider:        v.GetString(prefix + "provider"),
		APIKey:          v.GetString(prefix + "api_key"),
		DefaultModel:    v.GetString(prefix + "default_model"),
		BaseURL:         v.GetString(prefix + "base_url"),
		MaxOutputTokens: v.GetInt(prefix + "max_output_tokens"),
		TimeoutSecs:     v.GetInt(prefix + "timeout_secs"),
		Organization:    v.GetString(prefix + "organization"),
		Project:         v.GetString(prefix + "project"),
	}
}

// applyProviderEnv fills credentials from the provider's conventional
// variables when they were not set through DOCEXTRACT_*.
func applyProviderEnv(provider string, apiKey, organization, project *string) {
	if *apiKey == "" {
		if env, ok := providerKeyEnv[provider]; ok {
			*apiKey = os.Getenv(env)
		}
	}
	if provider == "openai" {
		if *organization == "" {
			*organization = os.Getenv("ORG_ID")
		}
		if *project == "" {
			*project = os.Getenv("PROJECT_ID")
		}
	}
}
