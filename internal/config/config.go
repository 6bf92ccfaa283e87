package config

import (
	"log"
	"os"
	"sync"

	"github.com/joho/godotenv"
	"github.com/spf13/viper"

	"github.com/andresuchdata/distroflow/internal/engine"
)

type Config struct {
	Server   ServerConfig
	Database DatabaseConfig
	App      AppConfig
	Cache    CacheConfig
	Storage  StorageConfig
	Drive    DriveConfig
	Log      LogConfig
	Engine   engine.Params
}

type ServerConfig struct {
	Port           string
	IngestPort     string
	Mode           string
	ReadTimeout    int
	WriteTimeout   int
	AllowedOrigins []string
}

type DatabaseConfig struct {
	Host           string
	Port           string
	User           string
	Password       string
	DBName         string
	SSLMode        string
	MaxConcurrency int64
}

type AppConfig struct {
	DataDir             string
	DefaultLookbackDays int
	DefaultHistoryWeeks int
	Workers             int
}

type CacheConfig struct {
	Enabled          bool
	RedisURL         string
	RedisHost        string
	RedisPort        string
	RedisPassword    string
	RedisDB          int
	ReportTTLSeconds int
}

// StorageConfig points at the S3-compatible bucket snapshot exports go to.
type StorageConfig struct {
	Endpoint  string
	AccessKey string
	SecretKey string
	Bucket    string
	Region    string
	UseSSL    bool
	Prefix    string
}

type DriveConfig struct {
	CredentialsFile string
	FolderID        string
}

type LogConfig struct {
	Level string
	File  string
}

var (
	once     sync.Once
	instance *Config
)

func Load() *Config {
	once.Do(func() {
		// Load .env file if it exists
		_ = godotenv.Load()

		instance = build(viper.GetViper())

		ensureDir(instance.App.DataDir)
	})

	return instance
}

func setDefaults(v *viper.Viper) {
	v.SetDefault("SERVER_PORT", "8080")
	v.SetDefault("INGEST_PORT", "8081")
	v.SetDefault("SERVER_MODE", "debug")
	v.SetDefault("SERVER_READ_TIMEOUT", 15)
	v.SetDefault("SERVER_WRITE_TIMEOUT", 30)
	v.SetDefault("SERVER_ALLOWED_ORIGINS", []string{"*"})
	v.SetDefault("DB_HOST", "localhost")
	v.SetDefault("DB_PORT", "5432")
	v.SetDefault("DB_USER", "postgres")
	v.SetDefault("DB_PASSWORD", "postgres")
	v.SetDefault("DB_NAME", "distroflow")
	v.SetDefault("DB_SSLMODE", "disable")
	v.SetDefault("DB_MAX_CONCURRENCY", 10)
	v.SetDefault("APP_DATA_DIR", "./data/output")
	v.SetDefault("APP_LOOKBACK_DAYS", 90)
	v.SetDefault("APP_HISTORY_WEEKS", 12)
	v.SetDefault("APP_WORKERS", 4)
	v.SetDefault("CACHE_ENABLED", false)
	v.SetDefault("REDIS_URL", "")
	v.SetDefault("REDIS_HOST", "127.0.0.1")
	v.SetDefault("REDIS_PORT", "6379")
	v.SetDefault("REDIS_PASSWORD", "")
	v.SetDefault("REDIS_DB", 0)
	v.SetDefault("CACHE_REPORT_TTL_SECONDS", 300)
	v.SetDefault("STORAGE_ENDPOINT", "")
	v.SetDefault("STORAGE_BUCKET", "distroflow-snapshots")
	v.SetDefault("STORAGE_REGION", "us-east-1")
	v.SetDefault("STORAGE_USE_SSL", true)
	v.SetDefault("STORAGE_PREFIX", "snapshots")
	v.SetDefault("DRIVE_CREDENTIALS_FILE", "")
	v.SetDefault("DRIVE_FOLDER_ID", "")
	v.SetDefault("LOG_LEVEL", "info")
	v.SetDefault("LOG_FILE", "")

	p := engine.DefaultParams()
	v.SetDefault("ENGINE_MIN_HISTORY", p.MinHistory)
	v.SetDefault("ENGINE_TREND_WINDOW", p.TrendWindow)
	v.SetDefault("ENGINE_DAMPING", p.Damping)
	v.SetDefault("ENGINE_MEAN_REVERSION", p.MeanReversion)
	v.SetDefault("ENGINE_FLOOR_RATIO", p.FloorRatio)
	v.SetDefault("ENGINE_CV_CAP", p.CVCap)
	v.SetDefault("ENGINE_DEFAULT_CV", p.DefaultCV)
	v.SetDefault("ENGINE_HORIZON_GROWTH", p.HorizonGrowth)
	v.SetDefault("ENGINE_CI80_WIDTH", p.CI80Width)
	v.SetDefault("ENGINE_CI95_WIDTH", p.CI95Width)
	v.SetDefault("ENGINE_CI80_FLOOR_RATIO", p.CI80FloorRatio)
	v.SetDefault("ENGINE_CI95_FLOOR_RATIO", p.CI95FloorRatio)
	v.SetDefault("ENGINE_MODE", string(p.Mode))
	v.SetDefault("ENGINE_OVERSTOCK_RATIO", p.OverstockRatio)
	v.SetDefault("ENGINE_UNDERSTOCK_RATIO", p.UnderstockRatio)
	v.SetDefault("ENGINE_OVERSTOCK_WEEKS", p.OverstockWeeks)
	v.SetDefault("ENGINE_UNDERSTOCK_WEEKS", p.UnderstockWeeks)
	v.SetDefault("ENGINE_TREND_RATE_WEIGHT", p.TrendRateWeight)
	v.SetDefault("ENGINE_DEFAULT_CONSISTENCY", p.DefaultConsistency)
	v.SetDefault("ENGINE_RISK_SLOPE", p.RiskSlope)
	v.SetDefault("ENGINE_TREND_RISK_WEIGHT", p.TrendRiskWeight)
	v.SetDefault("ENGINE_CONSISTENCY_RISK_WEIGHT", p.ConsistencyRiskWeight)
	v.SetDefault("ENGINE_CONSISTENCY_RISK_CAP", p.ConsistencyRiskCap)
	v.SetDefault("ENGINE_UNMEASURED_RISK", p.UnmeasuredRisk)
	v.SetDefault("ENGINE_REORDER_TARGET_WEEKS", p.ReorderTargetWeeks)
	v.SetDefault("ENGINE_CRITICAL_WEEKS", p.CriticalWeeks)
	v.SetDefault("ENGINE_HIGH_WEEKS", p.HighWeeks)
	v.SetDefault("ENGINE_MEDIUM_WEEKS", p.MediumWeeks)
	v.SetDefault("ENGINE_HIGH_VELOCITY_RATE", p.HighVelocityRate)
	v.SetDefault("ENGINE_MEDIUM_VELOCITY_RATE", p.MediumVelocityRate)
	v.SetDefault("ENGINE_MIN_REP_VISITS", p.MinRepVisits)
	v.SetDefault("ENGINE_DEFAULT_HORIZON", p.DefaultHorizon)
	v.SetDefault("ENGINE_MAX_HORIZON", p.MaxHorizon)
}

func build(v *viper.Viper) *Config {
	setDefaults(v)

	// Read from environment variables
	v.AutomaticEnv()

	return &Config{
		Server: ServerConfig{
			Port:           v.GetString("SERVER_PORT"),
			IngestPort:     v.GetString("INGEST_PORT"),
			Mode:           v.GetString("SERVER_MODE"),
			ReadTimeout:    v.GetInt("SERVER_READ_TIMEOUT"),
			WriteTimeout:   v.GetInt("SERVER_WRITE_TIMEOUT"),
			AllowedOrigins: v.GetStringSlice("SERVER_ALLOWED_ORIGINS"),
		},
		Database: DatabaseConfig{
			Host:           v.GetString("DB_HOST"),
			Port:           v.GetString("DB_PORT"),
			User:           v.GetString("DB_USER"),
			Password:       v.GetString("DB_PASSWORD"),
			DBName:         v.GetString("DB_NAME"),
			SSLMode:        v.GetString("DB_SSLMODE"),
			MaxConcurrency: v.GetInt64("DB_MAX_CONCURRENCY"),
		},
		App: AppConfig{
			DataDir:             v.GetString("APP_DATA_DIR"),
			DefaultLookbackDays: v.GetInt("APP_LOOKBACK_DAYS"),
			DefaultHistoryWeeks: v.GetInt("APP_HISTORY_WEEKS"),
			Workers:             v.GetInt("APP_WORKERS"),
		},
		Cache: CacheConfig{
			Enabled:          v.GetBool("CACHE_ENABLED"),
			RedisURL:         v.GetString("REDIS_URL"),
			RedisHost:        v.GetString("REDIS_HOST"),
			RedisPort:        v.GetString("REDIS_PORT"),
			RedisPassword:    v.GetString("REDIS_PASSWORD"),
			RedisDB:          v.GetInt("REDIS_DB"),
			ReportTTLSeconds: v.GetInt("CACHE_REPORT_TTL_SECONDS"),
		},
		Storage: StorageConfig{
			Endpoint:  v.GetString("STORAGE_ENDPOINT"),
			AccessKey: v.GetString("STORAGE_ACCESS_KEY"),
			SecretKey: v.GetString("STORAGE_SECRET_KEY"),
			Bucket:    v.GetString("STORAGE_BUCKET"),
			Region:    v.GetString("STORAGE_REGION"),
			UseSSL:    v.GetBool("STORAGE_USE_SSL"),
			Prefix:    v.GetString("STORAGE_PREFIX"),
		},
		Drive: DriveConfig{
			CredentialsFile: v.GetString("DRIVE_CREDENTIALS_FILE"),
			FolderID:        v.GetString("DRIVE_FOLDER_ID"),
		},
		Log: LogConfig{
			Level: v.GetString("LOG_LEVEL"),
			File:  v.GetString("LOG_FILE"),
		},
		Engine: engineParams(v),
	}
}

func engineParams(v *viper.Viper) engine.Params {
	return engine.Params{
		MinHistory:     v.GetInt("ENGINE_MIN_HISTORY"),
		TrendWindow:    v.GetInt("ENGINE_TREND_WINDOW"),
		Damping:        v.GetFloat64("ENGINE_DAMPING"),
		MeanReversion:  v.GetFloat64("ENGINE_MEAN_REVERSION"),
		FloorRatio:     v.GetFloat64("ENGINE_FLOOR_RATIO"),
		CVCap:          v.GetFloat64("ENGINE_CV_CAP"),
		DefaultCV:      v.GetFloat64("ENGINE_DEFAULT_CV"),
		HorizonGrowth:  v.GetFloat64("ENGINE_HORIZON_GROWTH"),
		CI80Width:      v.GetFloat64("ENGINE_CI80_WIDTH"),
		CI95Width:      v.GetFloat64("ENGINE_CI95_WIDTH"),
		CI80FloorRatio: v.GetFloat64("ENGINE_CI80_FLOOR_RATIO"),
		CI95FloorRatio: v.GetFloat64("ENGINE_CI95_FLOOR_RATIO"),

		Mode:            engine.ClassificationMode(v.GetString("ENGINE_MODE")),
		OverstockRatio:  v.GetFloat64("ENGINE_OVERSTOCK_RATIO"),
		UnderstockRatio: v.GetFloat64("ENGINE_UNDERSTOCK_RATIO"),
		OverstockWeeks:  v.GetFloat64("ENGINE_OVERSTOCK_WEEKS"),
		UnderstockWeeks: v.GetFloat64("ENGINE_UNDERSTOCK_WEEKS"),

		TrendRateWeight:       v.GetFloat64("ENGINE_TREND_RATE_WEIGHT"),
		DefaultConsistency:    v.GetFloat64("ENGINE_DEFAULT_CONSISTENCY"),
		RiskSlope:             v.GetFloat64("ENGINE_RISK_SLOPE"),
		TrendRiskWeight:       v.GetFloat64("ENGINE_TREND_RISK_WEIGHT"),
		ConsistencyRiskWeight: v.GetFloat64("ENGINE_CONSISTENCY_RISK_WEIGHT"),
		ConsistencyRiskCap:    v.GetFloat64("ENGINE_CONSISTENCY_RISK_CAP"),
		UnmeasuredRisk:        v.GetFloat64("ENGINE_UNMEASURED_RISK"),
		ReorderTargetWeeks:    v.GetFloat64("ENGINE_REORDER_TARGET_WEEKS"),
		CriticalWeeks:         v.GetFloat64("ENGINE_CRITICAL_WEEKS"),
		HighWeeks:             v.GetFloat64("ENGINE_HIGH_WEEKS"),
		MediumWeeks:           v.GetFloat64("ENGINE_MEDIUM_WEEKS"),

		HighVelocityRate:   v.GetFloat64("ENGINE_HIGH_VELOCITY_RATE"),
		MediumVelocityRate: v.GetFloat64("ENGINE_MEDIUM_VELOCITY_RATE"),
		MinRepVisits:       v.GetInt("ENGINE_MIN_REP_VISITS"),

		DefaultHorizon: v.GetInt("ENGINE_DEFAULT_HORIZON"),
		MaxHorizon:     v.GetInt("ENGINE_MAX_HORIZON"),
	}
}

func ensureDir(dir string) {
	if _, err := os.Stat(dir); os.IsNotExist(err) {
		if err := os.MkdirAll(dir, 0755); err != nil {
			log.Fatalf("Failed to create directory %s: %v", dir, err)
		}
	}
}
