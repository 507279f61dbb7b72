package config

import "testing"

func TestLoadRuntimeConfigDefaults(t *testing.T) {
	t.Setenv("UPLOAD_SPEC", "spec.json")

	cfg, err := LoadRuntimeConfig()
	if err != nil {
		t.Fatalf("LoadRuntimeConfig returned error: %v", err)
	}
	if cfg.Addr != ":8080" {
		t.Fatalf("expected default addr, got %q", cfg.Addr)
	}
	if cfg.Table != "uploads" || cfg.Sequence != "upload_id_seq" {
		t.Fatalf("unexpected table defaults: %q %q", cfg.Table, cfg.Sequence)
	}
	if cfg.StorageScheme != "flat" {
		t.Fatalf("expected flat default scheme, got %q", cfg.StorageScheme)
	}
	if cfg.StrictMime {
		t.Fatal("strict mime must default off")
	}
}

func TestLoadRuntimeConfigRequiresSpec(t *testing.T) {
	t.Setenv("UPLOAD_SPEC", "")
	if _, err := LoadRuntimeConfig(); err == nil {
		t.Fatal("expected error when UPLOAD_SPEC is missing")
	}
}

func TestLoadRuntimeConfigColumnMap(t *testing.T) {
	t.Setenv("UPLOAD_SPEC", "spec.json")
	t.Setenv("UPLOADS_COLUMN_MAP", "id:file_id, bytes:byte_size")
	t.Setenv("UPLOADS_EXTRA_COLUMNS", "owner_id, caption")

	cfg, err := LoadRuntimeConfig()
	if err != nil {
		t.Fatalf("LoadRuntimeConfig returned error: %v", err)
	}
	if cfg.ColumnMap["id"] != "file_id" || cfg.ColumnMap["bytes"] != "byte_size" {
		t.Fatalf("column map not parsed: %v", cfg.ColumnMap)
	}
	if len(cfg.ExtraColumns) != 2 || cfg.ExtraColumns[0] != "owner_id" {
		t.Fatalf("extra columns not parsed: %v", cfg.ExtraColumns)
	}
}

func TestLoadRuntimeConfigRejectsMalformedColumnMap(t *testing.T) {
	t.Setenv("UPLOAD_SPEC", "spec.json")
	t.Setenv("UPLOADS_COLUMN_MAP", "id=file_id")
	if _, err := LoadRuntimeConfig(); err == nil {
		t.Fatal("expected error for malformed column map pair")
	}
}
