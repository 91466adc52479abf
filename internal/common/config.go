package common

import (
	"fmt"
	"os"
	"path/filepath"
	"strconv"
	"sync"
	"time"

	"gopkg.in/yaml.v3"
	gormlogger "gorm.io/gorm/logger"
)

// TransportMode는 Model Gateway의 전송 모드입니다.
// 자격 증명 유무에 따른 암묵적 폴백 대신 설정으로 명시적으로 선택합니다.
const (
	TransportLive = "live"
	TransportMock = "mock"
)

// Config는 애플리케이션의 모든 설정을 관리합니다.
type Config struct {
	App        AppConfig        `yaml:"app"`
	Database   DatabaseConfig   `yaml:"database"`
	Server     ServerConfig     `yaml:"server"`
	OpenRouter OpenRouterConfig `yaml:"openrouter"`
	Tavily     TavilyConfig     `yaml:"tavily"`
	Directory  DirectoryConfig  `yaml:"directory"`
}

// AppConfig는 애플리케이션 기본 설정입니다.
type AppConfig struct {
	// ENV는 실행 환경입니다 (development, production)
	ENV string `yaml:"env"`
	// LogLevel은 애플리케이션 로그 레벨입니다 (debug, info, warn, error)
	LogLevel string `yaml:"log_level"`
}

// DatabaseConfig는 데이터베이스 설정입니다.
type DatabaseConfig struct {
	// DSN은 데이터베이스 연결 문자열입니다 (postgres 접두사면 PostgreSQL, 아니면 SQLite 파일 경로)
	DSN string `yaml:"dsn"`
	// LogLevel은 GORM 로그 레벨입니다
	LogLevel gormlogger.LogLevel `yaml:"log_level"`
	// MaxIdleConns는 연결 풀의 idle 연결 개수입니다
	MaxIdleConns int `yaml:"max_idle_conns"`
	// MaxOpenConns는 연결 풀의 최대 연결 개수입니다
	MaxOpenConns int `yaml:"max_open_conns"`
	// ConnMaxLifetime은 연결의 최대 수명입니다
	ConnMaxLifetime time.Duration `yaml:"conn_max_lifetime"`
	// SkipDefaultTxn은 기본 트랜잭션을 스킵할지 여부입니다
	SkipDefaultTxn bool `yaml:"skip_default_txn"`
	// PrepareStmt는 prepared statement 캐시를 사용할지 여부입니다
	PrepareStmt bool `yaml:"prepare_stmt"`
}

// ServerConfig는 HTTP API 서버 설정입니다.
type ServerConfig struct {
	// Addr은 HTTP 서버 바인딩 주소입니다 (예: ":8080")
	Addr string `yaml:"addr"`
}

// ModelConfig는 에이전트 역할별 모델 식별자 매핑입니다.
type ModelConfig struct {
	ReviewerA    string `yaml:"reviewer_a"`
	ReviewerB    string `yaml:"reviewer_b"`
	ReviewerC    string `yaml:"reviewer_c"`
	Synthesizer  string `yaml:"synthesizer"`
	Chat         string `yaml:"chat"`
	ExpertSearch string `yaml:"expert_search"`
	Metadata     string `yaml:"metadata"`
}

// OpenRouterConfig는 Model Gateway(OpenRouter) 설정입니다.
type OpenRouterConfig struct {
	// BaseURL은 OpenRouter API 엔드포인트입니다
	BaseURL string `yaml:"base_url"`
	// APIKey는 OpenRouter API 키입니다
	APIKey string `yaml:"api_key"`
	// AppURL은 HTTP-Referer 헤더로 전송되는 앱 URL입니다
	AppURL string `yaml:"app_url"`
	// AppName은 X-Title 헤더로 전송되는 앱 이름입니다
	AppName string `yaml:"app_name"`
	// TransportMode는 전송 모드입니다 (live, mock). 비어 있으면 API 키 유무로 결정됩니다.
	TransportMode string `yaml:"transport_mode"`
	// MockDelay는 mock 모드에서 인위적 지연 시간입니다
	MockDelay time.Duration `yaml:"mock_delay"`
	// RequestTimeout은 모델 호출 1회당 타임아웃입니다
	RequestTimeout time.Duration `yaml:"request_timeout"`
	// Models는 역할별 모델 식별자입니다
	Models ModelConfig `yaml:"models"`
}

// TavilyConfig는 전문가 검색(Tavily) 설정입니다.
type TavilyConfig struct {
	// APIKey는 Tavily API 키입니다 (콤마로 구분하여 복수 키 로테이션 지원)
	APIKey string `yaml:"api_key"`
	// BaseURL은 Tavily 검색 엔드포인트입니다
	BaseURL string `yaml:"base_url"`
	// MaxResults는 쿼리당 최대 결과 수입니다
	MaxResults int `yaml:"max_results"`
}

// DirectoryConfig는 디렉토리 경로 설정입니다.
type DirectoryConfig struct {
	// DataDir은 기본 데이터 디렉토리입니다 (환경 변수 SMARTGRANT_DIR로만 설정 가능, 기본값: $HOME/.smartgrant)
	DataDir string `yaml:"-"`
	// SQLiteDatabase는 SQLite 데이터베이스 파일 경로입니다
	SQLiteDatabase string `yaml:"sqlite_database"`
}

var (
	instance *Config
	once     sync.Once
	mu       sync.RWMutex
)

// InitConfig는 설정을 초기화합니다.
// configPath가 비어있으면 ${SMARTGRANT_DIR}/config.yaml에서 로드를 시도하고, 파일이 없으면 환경 변수에서 로드합니다.
// 파일에서 로드한 후 환경 변수로 오버라이드됩니다.
func InitConfig(configPath string) error {
	var err error
	once.Do(func() {
		if configPath == "" {
			configPath = filepath.Join(getDataDir(), "config.yaml")
		}

		if _, statErr := os.Stat(configPath); statErr == nil {
			instance, err = LoadConfigFromFile(configPath)
		} else {
			instance, err = LoadConfigFromEnv()
		}
	})
	return err
}

// GetConfig는 싱글톤 Config 인스턴스를 반환합니다.
// InitConfig가 먼저 호출되어야 합니다.
func GetConfig() *Config {
	mu.RLock()
	defer mu.RUnlock()
	if instance == nil {
		_ = InitConfig("")
	}
	return instance
}

// LoadConfig는 설정을 로드합니다. GetConfig 사용을 권장합니다.
func LoadConfig() (*Config, error) {
	return GetConfig(), nil
}

// LoadConfigFromFile은 YAML 파일에서 설정을 로드합니다.
func LoadConfigFromFile(path string) (*Config, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("설정 파일 읽기 실패: %w", err)
	}

	cfg := &Config{}
	if err := yaml.Unmarshal(data, cfg); err != nil {
		return nil, fmt.Errorf("설정 파일 파싱 실패: %w", err)
	}

	applyDefaults(cfg)
	cfg = mergeWithEnv(cfg)

	return cfg, nil
}

// LoadConfigFromEnv는 환경 변수에서 설정을 로드합니다.
func LoadConfigFromEnv() (*Config, error) {
	cfg := &Config{}
	applyDefaults(cfg)
	cfg = mergeWithEnv(cfg)
	return cfg, nil
}

// applyDefaults는 비어 있는 설정 값에 기본값을 채웁니다.
func applyDefaults(cfg *Config) {
	if cfg.App.ENV == "" {
		cfg.App.ENV = "production"
	}
	if cfg.App.LogLevel == "" {
		cfg.App.LogLevel = "info"
	}

	if cfg.Database.DSN == "" {
		sqliteDB := cfg.Directory.SQLiteDatabase
		if sqliteDB == "" {
			sqliteDB = filepath.Join(getDataDir(), "smartgrant.db")
		}
		cfg.Database.DSN = sqliteDB
	}
	if cfg.Database.MaxIdleConns == 0 {
		cfg.Database.MaxIdleConns = 5
	}
	if cfg.Database.MaxOpenConns == 0 {
		cfg.Database.MaxOpenConns = 20
	}
	if cfg.Database.ConnMaxLifetime == 0 {
		cfg.Database.ConnMaxLifetime = 30 * time.Minute
	}
	if cfg.Database.LogLevel == 0 {
		cfg.Database.LogLevel = gormlogger.Warn
	}
	cfg.Database.SkipDefaultTxn = true

	if cfg.Server.Addr == "" {
		cfg.Server.Addr = ":8080"
	}

	if cfg.OpenRouter.BaseURL == "" {
		cfg.OpenRouter.BaseURL = "https://openrouter.ai/api/v1"
	}
	if cfg.OpenRouter.AppURL == "" {
		cfg.OpenRouter.AppURL = "http://localhost:3000"
	}
	if cfg.OpenRouter.AppName == "" {
		cfg.OpenRouter.AppName = "SmartGrant"
	}
	if cfg.OpenRouter.MockDelay == 0 {
		cfg.OpenRouter.MockDelay = 2 * time.Second
	}
	if cfg.OpenRouter.RequestTimeout == 0 {
		cfg.OpenRouter.RequestTimeout = 90 * time.Second
	}

	m := &cfg.OpenRouter.Models
	if m.ReviewerA == "" {
		m.ReviewerA = "anthropic/claude-sonnet-4"
	}
	if m.ReviewerB == "" {
		m.ReviewerB = "google/gemini-2.5-flash-preview"
	}
	if m.ReviewerC == "" {
		m.ReviewerC = "openai/gpt-4o"
	}
	if m.Synthesizer == "" {
		m.Synthesizer = "anthropic/claude-sonnet-4"
	}
	if m.Chat == "" {
		m.Chat = "anthropic/claude-haiku-4"
	}
	if m.ExpertSearch == "" {
		// Claude가 Gemini보다 구조화된 표 출력을 안정적으로 처리함
		m.ExpertSearch = "anthropic/claude-sonnet-4"
	}
	if m.Metadata == "" {
		m.Metadata = "anthropic/claude-haiku-4"
	}

	if cfg.Tavily.BaseURL == "" {
		cfg.Tavily.BaseURL = "https://api.tavily.com/search"
	}
	if cfg.Tavily.MaxResults == 0 {
		cfg.Tavily.MaxResults = 5
	}

	if cfg.Directory.DataDir == "" {
		cfg.Directory.DataDir = getDataDir()
	}
}

// mergeWithEnv는 설정을 환경 변수로 오버라이드합니다.
func mergeWithEnv(cfg *Config) *Config {
	// App
	if env := os.Getenv("SMARTGRANT_ENV"); env != "" {
		cfg.App.ENV = env
	}
	if logLevel := os.Getenv("SMARTGRANT_LOG_LEVEL"); logLevel != "" {
		cfg.App.LogLevel = logLevel
	}

	// Database
	if dsn := os.Getenv("SMARTGRANT_DB_DSN"); dsn != "" {
		cfg.Database.DSN = dsn
	}
	if logLevel := os.Getenv("SMARTGRANT_DB_LOG_LEVEL"); logLevel != "" {
		cfg.Database.LogLevel = parseLogLevel(logLevel)
	}
	if maxIdle := os.Getenv("SMARTGRANT_DB_MAX_IDLE"); maxIdle != "" {
		cfg.Database.MaxIdleConns = parseIntWithDefault(maxIdle, cfg.Database.MaxIdleConns)
	}
	if maxOpen := os.Getenv("SMARTGRANT_DB_MAX_OPEN"); maxOpen != "" {
		cfg.Database.MaxOpenConns = parseIntWithDefault(maxOpen, cfg.Database.MaxOpenConns)
	}
	if lifetime := os.Getenv("SMARTGRANT_DB_CONN_LIFETIME"); lifetime != "" {
		cfg.Database.ConnMaxLifetime = parseDurationWithDefault(lifetime, cfg.Database.ConnMaxLifetime)
	}

	// Server
	if addr := os.Getenv("SMARTGRANT_SERVER_ADDR"); addr != "" {
		cfg.Server.Addr = addr
	}

	// OpenRouter
	if baseURL := os.Getenv("OPENROUTER_BASE_URL"); baseURL != "" {
		cfg.OpenRouter.BaseURL = baseURL
	}
	if apiKey := os.Getenv("OPENROUTER_API_KEY"); apiKey != "" {
		cfg.OpenRouter.APIKey = apiKey
	}
	if mode := os.Getenv("SMARTGRANT_TRANSPORT_MODE"); mode != "" {
		cfg.OpenRouter.TransportMode = mode
	}
	if appURL := os.Getenv("SMARTGRANT_APP_URL"); appURL != "" {
		cfg.OpenRouter.AppURL = appURL
	}
	if appName := os.Getenv("SMARTGRANT_APP_NAME"); appName != "" {
		cfg.OpenRouter.AppName = appName
	}
	if timeout := os.Getenv("SMARTGRANT_REQUEST_TIMEOUT"); timeout != "" {
		cfg.OpenRouter.RequestTimeout = parseDurationWithDefault(timeout, cfg.OpenRouter.RequestTimeout)
	}

	// 역할별 모델 오버라이드
	if model := os.Getenv("MODEL_REVIEWER_A"); model != "" {
		cfg.OpenRouter.Models.ReviewerA = model
	}
	if model := os.Getenv("MODEL_REVIEWER_B"); model != "" {
		cfg.OpenRouter.Models.ReviewerB = model
	}
	if model := os.Getenv("MODEL_REVIEWER_C"); model != "" {
		cfg.OpenRouter.Models.ReviewerC = model
	}
	if model := os.Getenv("MODEL_SYNTHESIZER"); model != "" {
		cfg.OpenRouter.Models.Synthesizer = model
	}
	if model := os.Getenv("MODEL_CHAT"); model != "" {
		cfg.OpenRouter.Models.Chat = model
	}
	if model := os.Getenv("MODEL_EXPERT_SEARCH"); model != "" {
		cfg.OpenRouter.Models.ExpertSearch = model
	}
	if model := os.Getenv("MODEL_METADATA"); model != "" {
		cfg.OpenRouter.Models.Metadata = model
	}

	// Tavily
	if apiKey := os.Getenv("TAVILY_API_KEY"); apiKey != "" {
		cfg.Tavily.APIKey = apiKey
	}
	if baseURL := os.Getenv("TAVILY_BASE_URL"); baseURL != "" {
		cfg.Tavily.BaseURL = baseURL
	}

	// Directory
	if dataDir := os.Getenv("SMARTGRANT_DIR"); dataDir != "" {
		cfg.Directory.DataDir = dataDir
	}
	if sqliteDB := os.Getenv("SMARTGRANT_SQLITE_DATABASE"); sqliteDB != "" {
		cfg.Directory.SQLiteDatabase = sqliteDB
	}

	return cfg
}

// getDataDir은 SMARTGRANT_DIR 환경 변수를 반환하거나 기본값을 계산합니다.
func getDataDir() string {
	dataDir := os.Getenv("SMARTGRANT_DIR")
	if dataDir != "" {
		return dataDir
	}

	if homeDir := os.Getenv("HOME"); homeDir != "" {
		return filepath.Join(homeDir, ".smartgrant")
	}

	// Fallback: ./data
	return "./data"
}

// Helper functions

func parseLogLevel(value string) gormlogger.LogLevel {
	switch value {
	case "silent", "SILENT":
		return gormlogger.Silent
	case "error", "ERROR":
		return gormlogger.Error
	case "warn", "WARN":
		return gormlogger.Warn
	case "info", "INFO":
		return gormlogger.Info
	default:
		return gormlogger.Warn
	}
}

func parseIntWithDefault(value string, def int) int {
	if value == "" {
		return def
	}
	parsed, err := strconv.Atoi(value)
	if err != nil {
		return def
	}
	return parsed
}

func parseDurationWithDefault(value string, def time.Duration) time.Duration {
	if value == "" {
		return def
	}
	d, err := time.ParseDuration(value)
	if err != nil {
		return def
	}
	return d
}

// ResolveTransportMode는 실제 사용할 전송 모드를 결정합니다.
// 명시적으로 설정된 값이 우선하며, 비어 있으면 API 키 유무로 결정합니다.
func (c *Config) ResolveTransportMode() string {
	switch c.OpenRouter.TransportMode {
	case TransportLive, TransportMock:
		return c.OpenRouter.TransportMode
	}
	if c.OpenRouter.APIKey != "" {
		return TransportLive
	}
	return TransportMock
}

// Validate는 필수 설정 값들을 검증합니다.
func (c *Config) Validate() error {
	if mode := c.OpenRouter.TransportMode; mode != "" && mode != TransportLive && mode != TransportMock {
		return fmt.Errorf("SMARTGRANT_TRANSPORT_MODE must be %q or %q, got %q", TransportLive, TransportMock, mode)
	}
	if c.ResolveTransportMode() == TransportLive && c.OpenRouter.APIKey == "" {
		return fmt.Errorf("OPENROUTER_API_KEY is required in live transport mode")
	}
	return nil
}
