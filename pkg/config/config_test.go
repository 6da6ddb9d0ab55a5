package config

import (
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	errs "address-reconciliation/pkg/errors"
)

func setValidEnv(t *testing.T) {
	t.Helper()
	t.Setenv("DATABASE_URL", "app:secret@tcp(localhost:3306)/addresses?parseTime=true")
	t.Setenv("PORT", "8080")
	t.Setenv("ADMIN_PORT", "6060")
	t.Setenv("ENABLE_FILE_LOGGING", "false")
	t.Setenv("CONFIG_FILE", "")
}

func TestLoad_Defaults(t *testing.T) {
	setValidEnv(t)
	for _, key := range []string{
		"LOCATION_TIMEOUT", "CORROBORATE_WITHIN_FEET", "NEAR_MATCH_SIMILARITY",
		"RECONCILE_CONCURRENCY", "MATCH_RULES_PATH", "OPENAI_MODEL",
	} {
		t.Setenv(key, "")
	}

	cfg := Load()
	if cfg.LocationTimeout != 10*time.Second {
		t.Errorf("LocationTimeout = %v, want 10s", cfg.LocationTimeout)
	}
	if cfg.CorroborateWithinFeet != 500 {
		t.Errorf("CorroborateWithinFeet = %d, want 500", cfg.CorroborateWithinFeet)
	}
	if cfg.NearMatchSimilarity != 0.85 {
		t.Errorf("NearMatchSimilarity = %v, want 0.85", cfg.NearMatchSimilarity)
	}
	if cfg.ReconcileConcurrency != 8 {
		t.Errorf("ReconcileConcurrency = %d, want 8", cfg.ReconcileConcurrency)
	}
	if cfg.OpenAIModel != "gpt-4o-mini" {
		t.Errorf("OpenAIModel = %q", cfg.OpenAIModel)
	}
	if err := cfg.Validate(); err != nil {
		t.Errorf("defaults should validate: %v", err)
	}
}

func TestLoad_Durations(t *testing.T) {
	setValidEnv(t)
	tests := []struct {
		raw  string
		want time.Duration
	}{
		{"3s", 3 * time.Second},
		{"1500ms", 1500 * time.Millisecond},
		{"7", 7 * time.Second},
		{"soon", 10 * time.Second},
	}
	for _, tt := range tests {
		t.Run(tt.raw, func(t *testing.T) {
			t.Setenv("LOCATION_TIMEOUT", tt.raw)
			if got := Load().LocationTimeout; got != tt.want {
				t.Errorf("LocationTimeout = %v, want %v", got, tt.want)
			}
		})
	}
}

func TestValidate_CollectsEveryProblem(t *testing.T) {
	setValidEnv(t)
	t.Setenv("DATABASE_URL", "")
	t.Setenv("ADMIN_PORT", "8080")
	t.Setenv("LOG_LEVEL", "loud")
	t.Setenv("NEAR_MATCH_SIMILARITY", "1.5")
	t.Setenv("RECONCILE_CONCURRENCY", "0")
	t.Setenv("MATCH_RULES_PATH", "rules.json")

	err := Load().Validate()
	if err == nil {
		t.Fatal("expected validation error")
	}
	if !errs.Is(err, errs.ErrValidation) {
		t.Errorf("error kind = %T, want validation", err)
	}
	for _, field := range []string{
		"DATABASE_URL", "ADMIN_PORT", "LOG_LEVEL",
		"NEAR_MATCH_SIMILARITY", "RECONCILE_CONCURRENCY", "MATCH_RULES_PATH",
	} {
		if !strings.Contains(err.Error(), field) {
			t.Errorf("error does not mention %s: %v", field, err)
		}
	}
}

func TestGetConfigSummary_MasksSecrets(t *testing.T) {
	setValidEnv(t)
	t.Setenv("OPENAI_API_KEY", "sk-abcdefghijkl")
	s := Load().GetConfigSummary()
	if got := s["openai_api_key"]; got != "sk-a***********" {
		t.Errorf("openai_api_key = %v", got)
	}
	if got, _ := s["database_url"].(string); strings.Contains(got, "secret") {
		t.Errorf("database_url leaks password: %q", got)
	}
}

func TestWatcher_ReloadsFromFile(t *testing.T) {
	setValidEnv(t)
	t.Setenv("CORROBORATE_WITHIN_FEET", "500")
	t.Setenv("NEAR_MATCH_SIMILARITY", "")

	dir := t.TempDir()
	path := filepath.Join(dir, "app.env")
	if err := os.WriteFile(path, []byte("CORROBORATE_WITHIN_FEET=750\n# comment\nNEAR_MATCH_SIMILARITY=\"0.9\"\n"), 0o600); err != nil {
		t.Fatal(err)
	}
	t.Setenv("CONFIG_FILE", path)

	w := NewWatcher(time.Hour)
	defer w.Close()
	ch := w.Subscribe()

	w.checkOnce()

	select {
	case chg := <-ch:
		if chg.Err != nil {
			t.Fatalf("unexpected error: %v", chg.Err)
		}
		if chg.New.CorroborateWithinFeet != 750 || chg.New.NearMatchSimilarity != 0.9 {
			t.Errorf("new config = %+v", chg.New)
		}
		if chg.Old.CorroborateWithinFeet != 500 {
			t.Errorf("old corroborate = %d, want 500", chg.Old.CorroborateWithinFeet)
		}
		if strings.Join(chg.Fields, ",") != "CorroborateWithinFeet,NearMatchSimilarity" {
			t.Errorf("fields = %v", chg.Fields)
		}
	default:
		t.Fatal("expected a change notification")
	}

	if w.Current().CorroborateWithinFeet != 750 {
		t.Errorf("Current not updated")
	}

	// unchanged file and env: no notification
	w.checkOnce()
	select {
	case chg := <-ch:
		t.Errorf("unexpected change %+v", chg)
	default:
	}
}

func TestWatcher_InvalidReloadKeepsCurrent(t *testing.T) {
	setValidEnv(t)
	w := NewWatcher(time.Hour)
	defer w.Close()
	ch := w.Subscribe()

	t.Setenv("RECONCILE_CONCURRENCY", "-1")
	w.checkOnce()

	chg := <-ch
	if chg.Err == nil {
		t.Fatal("expected an error change")
	}
	if w.Current().ReconcileConcurrency == -1 {
		t.Error("invalid config should not replace the current one")
	}
}

func TestWatcher_CloseClosesSubscribers(t *testing.T) {
	setValidEnv(t)
	w := NewWatcher(10 * time.Millisecond)
	ch := w.Subscribe()
	w.Start()
	w.Close()
	if _, ok := <-ch; ok {
		// drain a possible in-flight change, then expect closure
		for range ch {
		}
	}
	w.Close()
}
