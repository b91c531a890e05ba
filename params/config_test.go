package params

import (
	"testing"
)

func TestDefaults(t *testing.T) {
	cfg := Default()
	if cfg.Server.Addr != ":8080" {
		t.Errorf("addr = %s", cfg.Server.Addr)
	}
	if !cfg.Storage.Enabled || cfg.Storage.Path == "" {
		t.Errorf("storage defaults = %+v", cfg.Storage)
	}
	if cfg.Events.Buffer != 1024 {
		t.Errorf("buffer = %d", cfg.Events.Buffer)
	}
	if cfg.Maker.Enabled {
		t.Error("maker should default off")
	}
	if len(cfg.SeedMarkets) == 0 {
		t.Error("expected default seed markets")
	}
}

func TestEnvOverrides(t *testing.T) {
	t.Setenv("SERVER_ADDR", ":9090")
	t.Setenv("STORAGE_ENABLED", "false")
	t.Setenv("EVENT_BUFFER", "64")
	t.Setenv("SEED_MARKETS", "3:1,3:2,4:1")
	t.Setenv("MAKER_ENABLED", "true")
	t.Setenv("MAKER_SPREAD", "0.05")

	cfg := LoadFromEnv("")
	if cfg.Server.Addr != ":9090" {
		t.Errorf("addr = %s, want :9090", cfg.Server.Addr)
	}
	if cfg.Storage.Enabled {
		t.Error("storage should be disabled")
	}
	if cfg.Events.Buffer != 64 {
		t.Errorf("buffer = %d, want 64", cfg.Events.Buffer)
	}
	if len(cfg.SeedMarkets) != 3 {
		t.Errorf("seed markets = %v", cfg.SeedMarkets)
	}
	if !cfg.Maker.Enabled {
		t.Error("maker should be enabled")
	}
	if cfg.Maker.Spread.String() != "0.05" {
		t.Errorf("spread = %s, want 0.05", cfg.Maker.Spread)
	}
}

func TestInvalidEnvValuesIgnored(t *testing.T) {
	t.Setenv("EVENT_BUFFER", "not-a-number")
	t.Setenv("MAKER_LEVELS", "-3")

	cfg := LoadFromEnv("")
	if cfg.Events.Buffer != 1024 {
		t.Errorf("buffer = %d, want default 1024", cfg.Events.Buffer)
	}
	if cfg.Maker.Levels != 5 {
		t.Errorf("levels = %d, want default 5", cfg.Maker.Levels)
	}
}

func TestParseInstrument(t *testing.T) {
	tests := []struct {
		in      string
		event   int64
		option  int64
		wantErr bool
	}{
		{"1:2", 1, 2, false},
		{" 3:4 ", 3, 4, false},
		{"12", 0, 0, true},
		{"a:b", 0, 0, true},
		{"", 0, 0, true},
	}
	for _, tt := range tests {
		event, option, err := ParseInstrument(tt.in)
		if (err != nil) != tt.wantErr {
			t.Errorf("ParseInstrument(%q) err = %v, wantErr %v", tt.in, err, tt.wantErr)
			continue
		}
		if err == nil && (event != tt.event || option != tt.option) {
			t.Errorf("ParseInstrument(%q) = %d, %d", tt.in, event, option)
		}
	}
}
