package config

import (
	"errors"
	"fmt"
	"io/fs"
	"net/url"
	"os"
	"strconv"
	"time"

	"github.com/Bezalel011/Smartcare/forecast"
	"github.com/joho/godotenv"
)

type Config struct {
	Server    ServerConfig
	Database  DatabaseConfig
	Redis     RedisConfig
	CORS      CORSConfig
	MQTT      MQTTConfig
	Forecast  ForecastConfig
	Schedule  ScheduleConfig
	Clinic    ClinicConfig
	RateLimit RateLimitConfig

	// BandsFile is an optional YAML file of per-facility status bands.
	BandsFile   string
	MetricsAddr string
}

type ServerConfig struct {
	Port int
}

type DatabaseConfig struct {
	Host     string
	Port     int
	User     string
	Password string
	Name     string
	SSLMode  string
}

// GetDSN is the key/value form used by gorm.
func (d DatabaseConfig) GetDSN() string {
	return fmt.Sprintf(
		"host=%s port=%d user=%s password=%s dbname=%s sslmode=%s",
		d.Host, d.Port, d.User, d.Password, d.Name, d.SSLMode,
	)
}

// GetURL is the URL form used by pgxpool.
func (d DatabaseConfig) GetURL() string {
	u := url.URL{
		Scheme:   "postgres",
		User:     url.UserPassword(d.User, d.Password),
		Host:     fmt.Sprintf("%s:%d", d.Host, d.Port),
		Path:     "/" + d.Name,
		RawQuery: "sslmode=" + url.QueryEscape(d.SSLMode),
	}
	return u.String()
}

type RedisConfig struct {
	Host     string
	Port     int
	Password string
	DB       int
}

func (r RedisConfig) Addr() string {
	return fmt.Sprintf("%s:%d", r.Host, r.Port)
}

type CORSConfig struct {
	AllowedOrigins string
}

type MQTTConfig struct {
	URL   string
	Topic string
}

type ForecastConfig struct {
	MinWindow     int
	SeasonWindow  int
	TrendWindow   int
	Alpha         float64
	HorizonDays   int
	LookbackDays  int
	NaiveFallback bool

	// ModelVersion replaces the generated version tag when set.
	ModelVersion string
	Workers      int
}

// VolumeParams applies the configured windows to the default visit model.
func (f ForecastConfig) VolumeParams() forecast.Params {
	return f.apply(forecast.DefaultParams())
}

func (f ForecastConfig) DemandParams() forecast.Params {
	return f.apply(forecast.DefaultDemandParams())
}

func (f ForecastConfig) apply(p forecast.Params) forecast.Params {
	p.MinWindow = f.MinWindow
	p.SeasonWindow = f.SeasonWindow
	p.TrendWindow = f.TrendWindow
	p.Alpha = f.Alpha
	return p
}

type ScheduleConfig struct {
	ForecastInterval time.Duration
	EvaluateInterval time.Duration
	CycleTimeout     time.Duration

	// EvaluationLagDays is how many days behind today the evaluator scores.
	EvaluationLagDays int
}

type ClinicConfig struct {
	Timezone string
	Location *time.Location
}

// Today is the clinic's current calendar day as a UTC midnight.
func (c ClinicConfig) Today(now time.Time) time.Time {
	loc := c.Location
	if loc == nil {
		loc = time.UTC
	}
	y, m, d := now.In(loc).Date()
	return time.Date(y, m, d, 0, 0, 0, 0, time.UTC)
}

type RateLimitConfig struct {
	PerSecond float64
	Burst     int
}

func LoadConfig() (*Config, error) {
	envFile := getEnv("ENV_FILE", ".env")
	if err := godotenv.Load(envFile); err != nil && !errors.Is(err, fs.ErrNotExist) {
		return nil, fmt.Errorf("load %s: %w", envFile, err)
	}

	serverPort, err := getIntEnv("SERVER_PORT", 8080)
	if err != nil {
		return nil, fmt.Errorf("invalid SERVER_PORT: %w", err)
	}

	dbPort, err := getIntEnv("DB_PORT", 5432)
	if err != nil {
		return nil, fmt.Errorf("invalid DB_PORT: %w", err)
	}

	redisPort, err := getIntEnv("REDIS_PORT", 6379)
	if err != nil {
		return nil, fmt.Errorf("invalid REDIS_PORT: %w", err)
	}
	redisDB, err := getIntEnv("REDIS_DB", 0)
	if err != nil {
		return nil, fmt.Errorf("invalid REDIS_DB: %w", err)
	}

	fc, err := loadForecast()
	if err != nil {
		return nil, err
	}
	sc, err := loadSchedule()
	if err != nil {
		return nil, err
	}

	tz := getEnv("CLINIC_TZ", "Asia/Kolkata")
	loc, err := time.LoadLocation(tz)
	if err != nil {
		return nil, fmt.Errorf("invalid CLINIC_TZ: %w", err)
	}

	rate, err := getFloatEnv("RATE_LIMIT_PER_SEC", 5)
	if err != nil {
		return nil, fmt.Errorf("invalid RATE_LIMIT_PER_SEC: %w", err)
	}
	burst, err := getIntEnv("RATE_LIMIT_BURST", 10)
	if err != nil {
		return nil, fmt.Errorf("invalid RATE_LIMIT_BURST: %w", err)
	}

	cfg := &Config{
		Server: ServerConfig{
			Port: serverPort,
		},
		Database: DatabaseConfig{
			Host:     getEnv("DB_HOST", "localhost"),
			Port:     dbPort,
			User:     getEnv("DB_USER", "smartcare"),
			Password: getEnv("DB_PASSWORD", "smartcare_dev_password"),
			Name:     getEnv("DB_NAME", "smartcare"),
			SSLMode:  getEnv("DB_SSLMODE", "disable"),
		},
		Redis: RedisConfig{
			Host:     getEnv("REDIS_HOST", "localhost"),
			Port:     redisPort,
			Password: getEnv("REDIS_PASSWORD", ""),
			DB:       redisDB,
		},
		CORS: CORSConfig{
			AllowedOrigins: getEnv("CORS_ALLOWED_ORIGINS", "*"),
		},
		MQTT: MQTTConfig{
			URL:   getEnv("MQTT_URL", "tcp://localhost:1883"),
			Topic: getEnv("MQTT_TOPIC", "smartcare/+/+"),
		},
		Forecast: fc,
		Schedule: sc,
		Clinic: ClinicConfig{
			Timezone: tz,
			Location: loc,
		},
		RateLimit: RateLimitConfig{
			PerSecond: rate,
			Burst:     burst,
		},
		BandsFile:   getEnv("BANDS_FILE", ""),
		MetricsAddr: getEnv("METRICS_ADDR", ":9090"),
	}

	return cfg, nil
}

func loadForecast() (ForecastConfig, error) {
	var fc ForecastConfig
	var err error
	defaults := forecast.DefaultParams()

	ints := []struct {
		key      string
		fallback int
		dst      *int
	}{
		{"FORECAST_MIN_WINDOW", defaults.MinWindow, &fc.MinWindow},
		{"FORECAST_SEASON_WINDOW", defaults.SeasonWindow, &fc.SeasonWindow},
		{"FORECAST_TREND_WINDOW", defaults.TrendWindow, &fc.TrendWindow},
		{"FORECAST_HORIZON_DAYS", 7, &fc.HorizonDays},
		{"FORECAST_LOOKBACK_DAYS", 120, &fc.LookbackDays},
		{"FORECAST_WORKERS", 4, &fc.Workers},
	}
	for _, v := range ints {
		if *v.dst, err = getIntEnv(v.key, v.fallback); err != nil {
			return fc, fmt.Errorf("invalid %s: %w", v.key, err)
		}
		if *v.dst < 1 {
			return fc, fmt.Errorf("invalid %s: must be positive", v.key)
		}
	}

	if fc.Alpha, err = getFloatEnv("FORECAST_ALPHA", defaults.Alpha); err != nil {
		return fc, fmt.Errorf("invalid FORECAST_ALPHA: %w", err)
	}
	if fc.Alpha <= 0 || fc.Alpha > 1 {
		return fc, fmt.Errorf("invalid FORECAST_ALPHA: %v not in (0, 1]", fc.Alpha)
	}
	if fc.NaiveFallback, err = getBoolEnv("FORECAST_NAIVE_FALLBACK", true); err != nil {
		return fc, fmt.Errorf("invalid FORECAST_NAIVE_FALLBACK: %w", err)
	}
	fc.ModelVersion = getEnv("MODEL_VERSION", "")
	return fc, nil
}

func loadSchedule() (ScheduleConfig, error) {
	var sc ScheduleConfig
	var forecastSec, evaluateSec, timeoutSec, lag int
	ints := []struct {
		key      string
		fallback int
		min      int
		dst      *int
	}{
		{"FORECAST_INTERVAL_SEC", 3600, 1, &forecastSec},
		{"EVALUATE_INTERVAL_SEC", 3600, 1, &evaluateSec},
		{"CYCLE_TIMEOUT_SEC", 300, 1, &timeoutSec},
		{"EVALUATION_LAG_DAYS", 1, 0, &lag},
	}
	for _, v := range ints {
		var err error
		if *v.dst, err = getIntEnv(v.key, v.fallback); err != nil {
			return sc, fmt.Errorf("invalid %s: %w", v.key, err)
		}
		if *v.dst < v.min {
			return sc, fmt.Errorf("invalid %s: must be >= %d", v.key, v.min)
		}
	}
	sc.ForecastInterval = time.Duration(forecastSec) * time.Second
	sc.EvaluateInterval = time.Duration(evaluateSec) * time.Second
	sc.CycleTimeout = time.Duration(timeoutSec) * time.Second
	sc.EvaluationLagDays = lag
	return sc, nil
}

func getEnv(key, fallback string) string {
	value := os.Getenv(key)
	if value == "" {
		return fallback
	}
	return value
}

func getIntEnv(key string, fallback int) (int, error) {
	value := os.Getenv(key)
	if value == "" {
		return fallback, nil
	}
	parsed, err := strconv.Atoi(value)
	if err != nil {
		return 0, err
	}
	return parsed, nil
}

func getFloatEnv(key string, fallback float64) (float64, error) {
	value := os.Getenv(key)
	if value == "" {
		return fallback, nil
	}
	return strconv.ParseFloat(value, 64)
}

func getBoolEnv(key string, fallback bool) (bool, error) {
	value := os.Getenv(key)
	if value == "" {
		return fallback, nil
	}
	return strconv.ParseBool(value)
}
