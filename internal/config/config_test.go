package config

import (
	"strings"
	"testing"
)

func TestLoadDefaults(t *testing.T) {
	for _, k := range []string{"PORT", "APP_ENV", "STORE_DRIVER", "DB_DSN", "DB_HOST", "DB_USER", "POSTGRES_USER", "DB_NAME", "POSTGRES_DB", "FIREBASE_DATABASE_URL"} {
		t.Setenv(k, "")
	}
	cfg := Load()
	if cfg.Port != "8080" {
		t.Fatalf("expected default port got %s", cfg.Port)
	}
	if cfg.StoreDriver != DriverSQLite {
		t.Fatalf("expected sqlite driver got %s", cfg.StoreDriver)
	}
	if !cfg.IsDev() {
		t.Fatalf("empty APP_ENV should be dev")
	}
	if !strings.Contains(cfg.DSN, "host=localhost") || !strings.Contains(cfg.DSN, "dbname=expressbi") {
		t.Fatalf("unexpected dsn %s", cfg.DSN)
	}
}

func TestLoadFirebaseAndOverrides(t *testing.T) {
	t.Setenv("STORE_DRIVER", "Firebase")
	t.Setenv("APP_ENV", "production")
	t.Setenv("DB_DSN", "postgres://x")
	t.Setenv("FIREBASE_DATABASE_URL", "https://demo.firebaseio.com")
	t.Setenv("FIREBASE_PROJECT_ID", "demo")
	t.Setenv("FIREBASE_MEASUREMENT_ID", "G-1")

	cfg := Load()
	if cfg.StoreDriver != DriverFirebase {
		t.Fatalf("unexpected driver %s", cfg.StoreDriver)
	}
	if cfg.IsDev() {
		t.Fatalf("production must not be dev")
	}
	if cfg.DSN != "postgres://x" {
		t.Fatalf("DB_DSN should win, got %s", cfg.DSN)
	}
	if cfg.Firebase.DatabaseURL != "https://demo.firebaseio.com" || cfg.Firebase.ProjectID != "demo" || cfg.Firebase.MeasurementID != "G-1" {
		t.Fatalf("unexpected firebase config %+v", cfg.Firebase)
	}
}
