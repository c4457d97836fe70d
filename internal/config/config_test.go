package config

import (
	"reflect"
	"testing"
	"time"
)

func TestParseIDs(t *testing.T) {
	got := parseIDs(" 12, 34 ,x,,56")
	want := []int64{12, 34, 56}
	if !reflect.DeepEqual(got, want) {
		t.Fatalf("parseIDs = %v; want %v", got, want)
	}
}

func TestGetDuration(t *testing.T) {
	cases := []struct {
		raw  string
		want time.Duration
	}{
		{"", time.Minute},
		{"90s", 90 * time.Second},
		{"45", 45 * time.Second},
		{"-3s", time.Minute},
		{"soon", time.Minute},
	}
	for _, tc := range cases {
		t.Setenv("TEST_DURATION", tc.raw)
		if got := getDuration("TEST_DURATION", time.Minute); got != tc.want {
			t.Fatalf("getDuration(%q) = %v; want %v", tc.raw, got, tc.want)
		}
	}
}

func TestLoadMemoryStore(t *testing.T) {
	t.Setenv("STORE", StoreMemory)
	t.Setenv("JWT_SECRET", "secret")
	t.Setenv("ADMIN_TELEGRAM_IDS", "7,8")
	t.Setenv("OFFLINE_CAP", "2h")

	cfg := Load()
	if cfg.OfflineCap != 2*time.Hour {
		t.Fatalf("expected 2h offline cap got %v", cfg.OfflineCap)
	}
	if !cfg.IsAdmin(8) || cfg.IsAdmin(9) {
		t.Fatalf("unexpected admin ids %v", cfg.AdminTelegramIDs)
	}
	if cfg.PrestigeBaseRequirement != 1000 {
		t.Fatalf("expected default prestige base 1000 got %d", cfg.PrestigeBaseRequirement)
	}
}

func TestGetIntZero(t *testing.T) {
	cases := []struct {
		raw  string
		def  int
		want int
	}{
		{"0", 0, 0},
		{"3", 0, 3},
		{"-1", 0, 0},
		{"0", 8, 8},
		{"x", 8, 8},
		{"12", 8, 12},
	}
	for _, tc := range cases {
		t.Setenv("TEST_INT", tc.raw)
		if got := getInt("TEST_INT", tc.def); got != tc.want {
			t.Fatalf("getInt(%q, %d) = %d; want %d", tc.raw, tc.def, got, tc.want)
		}
	}
}
