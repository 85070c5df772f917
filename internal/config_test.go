// v0
// config_test.go
package internal

import (
	"os"
	"path/filepath"
	"testing"
)

func TestLoadPropertiesAppliesOverrides(t *testing.T) {
	t.Helper()
	tmp := t.TempDir()
	path := filepath.Join(tmp, "telemetry.properties")
	body := "hives=6\n" +
		"window.minutes=1440\n" +
		"alias.temp_internal=brood_temp, t_in\n" +
		"alias.weight=scale_kg\n" +
		"# comment\n"
	if err := os.WriteFile(path, []byte(body), 0o644); err != nil {
		t.Fatalf("write properties: %v", err)
	}
	cfg := &AppConfig{}
	if err := cfg.loadProperties(path); err != nil {
		t.Fatalf("loadProperties error: %v", err)
	}
	if cfg.Hives != 6 {
		t.Fatalf("hives: got %d want 6", cfg.Hives)
	}
	if cfg.WindowMinutes != 1440 {
		t.Fatalf("window.minutes: got %d want 1440", cfg.WindowMinutes)
	}
	if got := cfg.ExtraAliases[MetricTempInternal]; len(got) != 2 || got[0] != "brood_temp" || got[1] != "t_in" {
		t.Fatalf("temp_internal aliases: got %v", got)
	}
	if got := cfg.ExtraAliases[MetricWeight]; len(got) != 1 || got[0] != "scale_kg" {
		t.Fatalf("weight aliases: got %v", got)
	}
}

func TestLoadPropertiesRejectsUnknownMetricAlias(t *testing.T) {
	tmp := t.TempDir()
	path := filepath.Join(tmp, "telemetry.properties")
	if err := os.WriteFile(path, []byte("alias.wind_speed=ws\n"), 0o644); err != nil {
		t.Fatalf("write properties: %v", err)
	}
	cfg := &AppConfig{}
	if err := cfg.loadProperties(path); err == nil {
		t.Fatal("expected error for unknown metric alias key")
	}
}

func TestLoadPropertiesMissingFileIsFine(t *testing.T) {
	cfg := &AppConfig{}
	if err := cfg.loadProperties(filepath.Join(t.TempDir(), "absent.properties")); err != nil {
		t.Fatalf("missing properties file should not error: %v", err)
	}
}
