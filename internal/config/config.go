package config

import (
	"strings"

	"github.com/joho/godotenv"
	"github.com/spf13/viper"
)

// Config holds all runtime configuration. Every field maps to one env var.
type Config struct {
	// Server
	Port        int    `mapstructure:"PORT"`
	Env         string `mapstructure:"APP_ENV"` // development | production
	CORSOrigins string `mapstructure:"CORS_ORIGINS"`

	// Database
	DBDriver string `mapstructure:"DB_DRIVER"` // mysql | postgres | sqlite
	DBDSN    string `mapstructure:"DB_DSN"`

	// Redis (optional, empty disables the stats cache)
	RedisURL string `mapstructure:"REDIS_URL"`

	// Auth
	JWTSecret          string `mapstructure:"JWT_SECRET"`
	JWTExpirationHours int    `mapstructure:"JWT_EXPIRATION_HOURS"`
	AllowRegistration  bool   `mapstructure:"ALLOW_REGISTRATION"`

	// AI advisory
	GeminiAPIKey string `mapstructure:"GEMINI_API_KEY"`
	GeminiModel  string `mapstructure:"GEMINI_MODEL"`

	// Forecast pipeline
	MLDataDir    string `mapstructure:"ML_DATA_DIR"`
	MLInputCmd   string `mapstructure:"ML_INPUT_CMD"`
	MLPredictCmd string `mapstructure:"ML_PREDICT_CMD"`
	MLAdviseCmd  string `mapstructure:"ML_ADVISE_CMD"`

	// Shop
	ShopName  string `mapstructure:"SHOP_NAME"`
	BackupDir string `mapstructure:"BACKUP_DIR"`
}

var keys = []string{
	"PORT", "APP_ENV", "CORS_ORIGINS",
	"DB_DRIVER", "DB_DSN", "REDIS_URL",
	"JWT_SECRET", "JWT_EXPIRATION_HOURS", "ALLOW_REGISTRATION",
	"GEMINI_API_KEY", "GEMINI_MODEL",
	"ML_DATA_DIR", "ML_INPUT_CMD", "ML_PREDICT_CMD", "ML_ADVISE_CMD",
	"SHOP_NAME", "BACKUP_DIR",
}

// Load reads configuration from the environment and an optional .env file.
func Load() (*Config, error) {
	// .env is optional; values already in the environment win.
	_ = godotenv.Load()

	v := viper.New()
	v.AutomaticEnv()
	setDefaults(v)

	// AutomaticEnv alone does not make Unmarshal see unset keys.
	for _, k := range keys {
		_ = v.BindEnv(k)
	}

	cfg := &Config{}
	if err := v.Unmarshal(cfg); err != nil {
		return nil, err
	}
	cfg.DBDriver = strings.ToLower(strings.TrimSpace(cfg.DBDriver))
	return cfg, nil
}

func setDefaults(v *viper.Viper) {
	v.SetDefault("PORT", 8080)
	v.SetDefault("APP_ENV", "development")
	v.SetDefault("CORS_ORIGINS", "http://localhost:5173")
	v.SetDefault("DB_DRIVER", "sqlite")
	v.SetDefault("DB_DSN", "dokan.db")
	v.SetDefault("REDIS_URL", "")
	v.SetDefault("JWT_SECRET", "change-me")
	v.SetDefault("JWT_EXPIRATION_HOURS", 24)
	v.SetDefault("ALLOW_REGISTRATION", false)
	v.SetDefault("GEMINI_MODEL", "gemini-2.0-flash-001")
	v.SetDefault("ML_DATA_DIR", "ml/data")
	v.SetDefault("ML_INPUT_CMD", "python3 ml/generate_forecast_input.py")
	v.SetDefault("ML_PREDICT_CMD", "python3 ml/predict_forecast.py")
	v.SetDefault("ML_ADVISE_CMD", "python3 ml/ai_recommendations.py")
	v.SetDefault("SHOP_NAME", "Dokan")
	v.SetDefault("BACKUP_DIR", "backups")
}

// IsProduction reports whether the service runs with production defaults.
func (c *Config) IsProduction() bool {
	return c.Env == "production"
}

// Origins splits CORS_ORIGINS on commas.
func (c *Config) Origins() []string {
	var out []string
	for _, o := range strings.Split(c.CORSOrigins, ",") {
		if o = strings.TrimSpace(o); o != "" {
			out = append(out, o)
		}
	}
	return out
}
