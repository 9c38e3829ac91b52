package config

import (
	"os"
	"strings"

	"github.com/joho/godotenv"
)

const (
	DriverFirebase = "firebase"
	DriverPostgres = "postgres"
	DriverSQLite   = "sqlite"
)

// Firebase agrupa los valores de conexión del store hospedado.
type Firebase struct {
	APIKey            string
	AuthDomain        string
	DatabaseURL       string
	ProjectID         string
	StorageBucket     string
	MessagingSenderID string
	AppID             string
	MeasurementID     string
}

type Config struct {
	Port        string
	AppEnv      string
	LogLevel    string
	StoreDriver string
	DSN         string
	SQLitePath  string
	Firebase    Firebase
}

// Load reads .env when present and then the process environment.
func Load() Config {
	_ = godotenv.Load()

	cfg := Config{
		Port:        getEnv("PORT", "8080"),
		AppEnv:      strings.ToLower(os.Getenv("APP_ENV")),
		LogLevel:    getEnv("LOG_LEVEL", "info"),
		StoreDriver: strings.ToLower(getEnv("STORE_DRIVER", DriverSQLite)),
		SQLitePath:  getEnv("SQLITE_PATH", "expressbi.db"),
		Firebase: Firebase{
			APIKey:            os.Getenv("FIREBASE_API_KEY"),
			AuthDomain:        os.Getenv("FIREBASE_AUTH_DOMAIN"),
			DatabaseURL:       os.Getenv("FIREBASE_DATABASE_URL"),
			ProjectID:         os.Getenv("FIREBASE_PROJECT_ID"),
			StorageBucket:     os.Getenv("FIREBASE_STORAGE_BUCKET"),
			MessagingSenderID: os.Getenv("FIREBASE_MESSAGING_SENDER_ID"),
			AppID:             os.Getenv("FIREBASE_APP_ID"),
			MeasurementID:     os.Getenv("FIREBASE_MEASUREMENT_ID"),
		},
	}
	cfg.DSN = postgresDSN()
	return cfg
}

func (c Config) IsDev() bool {
	return c.AppEnv == "" || c.AppEnv == "development" || c.AppEnv == "dev"
}

func postgresDSN() string {
	if dsn := strings.TrimSpace(os.Getenv("DB_DSN")); dsn != "" {
		return dsn
	}
	host := getEnv("DB_HOST", "localhost")
	port := getEnv("DB_PORT", "5432")
	user := firstEnv("postgres", "DB_USER", "POSTGRES_USER")
	pass := firstEnv("postgres", "DB_PASSWORD", "POSTGRES_PASSWORD")
	name := firstEnv("expressbi", "DB_NAME", "POSTGRES_DB")
	ssl := getEnv("DB_SSLMODE", "disable")
	return "host=" + host + " user=" + user + " password=" + pass + " dbname=" + name + " port=" + port + " sslmode=" + ssl
}

func getEnv(key, def string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}
	return def
}

func firstEnv(def string, keys ...string) string {
	for _, k := range keys {
		if v := os.Getenv(k); v != "" {
			return v
		}
	}
	return def
}
