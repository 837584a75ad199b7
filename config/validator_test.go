package config

import (
	"errors"
	"strings"
	"testing"

	ncerr "httpsconn/internal/errors"
)

// TestValidate_ErrorMessages verifies that Validate returns actionable
// error messages with hints.
func TestValidate_ErrorMessages(t *testing.T) {
	tests := []struct {
		name      string
		cfg       Config
		wantField string
		wantSub   string // substring expected in error
	}{
		{
			name:      "missing uri has hint",
			cfg:       Config{},
			wantField: "uri",
			wantSub:   "hint:",
		},
		{
			name:      "hostless uri has hint",
			cfg:       Config{URI: "https:"},
			wantField: "uri",
			wantSub:   "hint:",
		},
		{
			name:      "no roots names the flag",
			cfg:       Config{URI: "https://x/", NoNativeRoots: true},
			wantField: "no-native-roots",
			wantSub:   "--ca-file",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := tt.cfg.Validate()
			if err == nil {
				t.Fatal("expected error")
			}
			var ce *ncerr.ConfigError
			if !errors.As(err, &ce) {
				t.Fatalf("error %T is not a ConfigError", err)
			}
			if ce.Field != tt.wantField {
				t.Errorf("field = %q, want %q", ce.Field, tt.wantField)
			}
			if !strings.Contains(err.Error(), tt.wantSub) {
				t.Errorf("error %q should contain %q", err.Error(), tt.wantSub)
			}
		})
	}
}

// TestValidate_MutualExclusion covers flag pairs that cannot be combined.
func TestValidate_MutualExclusion(t *testing.T) {
	cfg := Config{URI: "https://x/", NoDNS: true, DNSServer: "9.9.9.9"}
	err := cfg.Validate()
	if err == nil || !strings.Contains(err.Error(), "mutually exclusive") {
		t.Errorf("got %v", err)
	}
}
