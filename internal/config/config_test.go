package config

import "testing"

func TestLoadDefaults(t *testing.T) {
	s, err := Load("")
	if err != nil {
		t.Fatalf("Load: %v", err)
	}
	if s.LogLevel != "info" {
		t.Errorf("LogLevel = %q, want info", s.LogLevel)
	}
	if s.MajorBrand != "heic" {
		t.Errorf("MajorBrand = %q, want heic", s.MajorBrand)
	}
	if len(s.CompatibleBrands) != 2 || s.CompatibleBrands[0] != "mif1" || s.CompatibleBrands[1] != "heic" {
		t.Errorf("CompatibleBrands = %v, want [mif1 heic]", s.CompatibleBrands)
	}
}

func TestLoadEnvOverride(t *testing.T) {
	t.Setenv("HEIFBOX_LOG_LEVEL", "debug")
	t.Setenv("HEIFBOX_MAJOR_BRAND", "mif1")

	s, err := Load("")
	if err != nil {
		t.Fatalf("Load: %v", err)
	}
	if s.LogLevel != "debug" {
		t.Errorf("LogLevel = %q, want debug", s.LogLevel)
	}
	if s.MajorBrand != "mif1" {
		t.Errorf("MajorBrand = %q, want mif1", s.MajorBrand)
	}
}

func TestLoadMissingExplicitFileErrors(t *testing.T) {
	if _, err := Load("/nonexistent/heifbox.yaml"); err == nil {
		t.Fatal("expected error for a missing explicit config file")
	}
}
