package config

import (
	"flag"
	"reflect"
	"testing"
)

func TestLoadFromArgsEnvDefaultsAndFlagOverride(t *testing.T) {
	t.Parallel()
	fs := flag.NewFlagSet("test", flag.ContinueOnError)
	env := map[string]string{
		"DB_DRIVER":  "mssql",
		"DB_DSN":     "sqlserver://u:p@h:1433?database=d",
		"BATCH_SIZE": "12",
		"WATCH":      "true",
	}
	getenv := func(k string) string { return env[k] }

	cfg, err := LoadFromArgs(fs, getenv, []string{"-workers=3"})
	if err != nil {
		t.Fatalf("LoadFromArgs: %v", err)
	}

	if cfg.DBDriver != "mssql" || cfg.DSN == "" {
		t.Fatalf("env not applied: %+v", cfg)
	}
	if cfg.BatchSize != 12 {
		t.Fatalf("batch env not applied: %d", cfg.BatchSize)
	}
	if !cfg.Watch {
		t.Fatalf("bool env not applied: %+v", cfg)
	}
	if cfg.Workers != 3 {
		t.Fatalf("flag override not applied: %d", cfg.Workers)
	}
}

func TestLoadFromArgsDefaults(t *testing.T) {
	t.Parallel()
	fs := flag.NewFlagSet("test", flag.ContinueOnError)
	cfg, err := LoadFromArgs(fs, func(string) string { return "" }, nil)
	if err != nil {
		t.Fatalf("LoadFromArgs: %v", err)
	}
	if cfg.DBDriver != "postgres" {
		t.Fatalf("want postgres default, got %s", cfg.DBDriver)
	}
	if cfg.BatchSize == 0 || cfg.Workers == 0 {
		t.Fatalf("defaults not set: %+v", cfg)
	}
	if cfg.Watch || cfg.Schedule != "" || cfg.CheckpointDir != "" {
		t.Fatalf("watch/schedule/checkpoint should default off: %+v", cfg)
	}
	if cfg.Tables != nil {
		t.Fatalf("empty -tables should parse to nil, got %+v", cfg.Tables)
	}
}

func TestParseTables(t *testing.T) {
	t.Parallel()
	cases := []struct {
		name    string
		spec    string
		want    []TablePair
		wantErr bool
	}{
		{name: "empty", spec: "", want: nil},
		{
			name: "single",
			spec: "orders=orders.csv:orders.meta",
			want: []TablePair{{Table: "orders", Data: "orders.csv", Meta: "orders.meta"}},
		},
		{
			name: "multiple",
			spec: "orders=orders.csv:orders.meta,users=users.csv:users.meta",
			want: []TablePair{
				{Table: "orders", Data: "orders.csv", Meta: "orders.meta"},
				{Table: "users", Data: "users.csv", Meta: "users.meta"},
			},
		},
		{name: "missing equals", spec: "orders.csv:orders.meta", wantErr: true},
		{name: "missing colon", spec: "orders=orders.csv", wantErr: true},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			got, err := ParseTables(tc.spec)
			if tc.wantErr {
				if err == nil {
					t.Fatalf("expected error for %q", tc.spec)
				}
				return
			}
			if err != nil {
				t.Fatalf("ParseTables(%q): %v", tc.spec, err)
			}
			if !reflect.DeepEqual(got, tc.want) {
				t.Fatalf("ParseTables(%q) = %+v, want %+v", tc.spec, got, tc.want)
			}
		})
	}
}

func TestLoadFromArgsParsesTables(t *testing.T) {
	t.Parallel()
	fs := flag.NewFlagSet("test", flag.ContinueOnError)
	cfg, err := LoadFromArgs(fs, func(string) string { return "" }, []string{"-tables=orders=o.csv:o.meta"})
	if err != nil {
		t.Fatalf("LoadFromArgs: %v", err)
	}
	want := []TablePair{{Table: "orders", Data: "o.csv", Meta: "o.meta"}}
	if !reflect.DeepEqual(cfg.Tables, want) {
		t.Fatalf("Tables = %+v, want %+v", cfg.Tables, want)
	}
}

func TestLoadFromArgsRejectsMalformedTables(t *testing.T) {
	t.Parallel()
	fs := flag.NewFlagSet("test", flag.ContinueOnError)
	if _, err := LoadFromArgs(fs, func(string) string { return "" }, []string{"-tables=bad"}); err == nil {
		t.Fatal("expected error for malformed -tables value")
	}
}

func TestLoadDefaultsSane(t *testing.T) {
	t.Parallel()
	cfg, err := Load()
	if err != nil {
		t.Fatalf("Load: %v", err)
	}
	if cfg.DBDriver == "" {
		t.Fatalf("DBDriver should have a default")
	}
	if cfg.BatchSize <= 0 || cfg.Workers <= 0 {
		t.Fatalf("BatchSize/Workers must have positive defaults: batch=%d workers=%d", cfg.BatchSize, cfg.Workers)
	}
}
