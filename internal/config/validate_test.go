package config

import (
	"fmt"
	"strings"
	"testing"
)

func TestValidateTieredMissingListenAddrIsFatal(t *testing.T) {
	cfg := Default()
	cfg.Server.ListenAddr = ""
	result := cfg.ValidateTiered()
	if !result.HasFatals() {
		t.Fatal("missing listen_addr should be fatal")
	}
}

func TestValidateTieredBadListenAddrIsFatal(t *testing.T) {
	cfg := Default()
	cfg.Server.ListenAddr = "not-a-host-port"
	result := cfg.ValidateTiered()
	if !result.HasFatals() {
		t.Fatal("invalid listen_addr should be fatal")
	}
}

func TestValidateTieredUnknownEncoderIsFatal(t *testing.T) {
	cfg := Default()
	cfg.WebRTC.Codec = "theora"
	result := cfg.ValidateTiered()
	if !result.HasFatals() {
		t.Fatal("unknown encoder should be fatal")
	}
	found := false
	for _, err := range result.Fatals {
		if strings.Contains(err.Error(), "unknown encoder") {
			found = true
		}
	}
	if !found {
		t.Fatal("expected unknown encoder error in fatals")
	}
}

func TestValidateTieredMismatchedTLSPairIsFatal(t *testing.T) {
	cfg := Default()
	cfg.Security.TLSCert = "/etc/sscontrol/cert.pem"
	result := cfg.ValidateTiered()
	if !result.HasFatals() {
		t.Fatal("tls_cert without tls_key should be fatal")
	}
}

func TestValidateTieredFPSClampingIsWarning(t *testing.T) {
	cfg := Default()
	cfg.Capture.FPS = 0
	result := cfg.ValidateTiered()
	if result.HasFatals() {
		t.Fatalf("clamped fps should be warning, not fatal: %v", result.Fatals)
	}
	if len(result.Warnings) == 0 {
		t.Fatal("expected warning for clamped fps")
	}
	if cfg.Capture.FPS != 1 {
		t.Fatalf("Capture.FPS = %d, want 1 (clamped)", cfg.Capture.FPS)
	}
}

func TestValidateTieredHighFPSClampingIsWarning(t *testing.T) {
	cfg := Default()
	cfg.Capture.FPS = 9999
	result := cfg.ValidateTiered()
	if result.HasFatals() {
		t.Fatalf("clamped fps should be warning, not fatal: %v", result.Fatals)
	}
	if cfg.Capture.FPS != 120 {
		t.Fatalf("Capture.FPS = %d, want 120", cfg.Capture.FPS)
	}
}

func TestValidateTieredBitrateClamping(t *testing.T) {
	cfg := Default()
	cfg.WebRTC.BitrateKbps = 1
	result := cfg.ValidateTiered()
	if result.HasFatals() {
		t.Fatalf("clamped bitrate should be warning: %v", result.Fatals)
	}
	if cfg.WebRTC.BitrateKbps != 100 {
		t.Fatalf("WebRTC.BitrateKbps = %d, want 100", cfg.WebRTC.BitrateKbps)
	}
}

func TestValidateTieredNonceTTLClamping(t *testing.T) {
	cfg := Default()
	cfg.Security.NonceTTLSecs = 0
	result := cfg.ValidateTiered()
	if result.HasFatals() {
		t.Fatalf("clamped nonce ttl should be warning: %v", result.Fatals)
	}
	if cfg.Security.NonceTTLSecs != 5 {
		t.Fatalf("Security.NonceTTLSecs = %d, want 5", cfg.Security.NonceTTLSecs)
	}
}

func TestValidateTieredUnknownLogLevelIsWarning(t *testing.T) {
	cfg := Default()
	cfg.Logging.Level = "verbose"
	result := cfg.ValidateTiered()
	if result.HasFatals() {
		t.Fatal("unknown log level should not be fatal")
	}
	if len(result.Warnings) == 0 {
		t.Fatal("expected warning for unknown log level")
	}
}

func TestValidateTieredInvalidLogFormatIsWarning(t *testing.T) {
	cfg := Default()
	cfg.Logging.Format = "xml"
	result := cfg.ValidateTiered()
	if result.HasFatals() {
		t.Fatal("invalid log format should not be fatal")
	}
	if len(result.Warnings) == 0 {
		t.Fatal("expected warning for invalid log format")
	}
}

func TestHasFatals(t *testing.T) {
	r := ValidationResult{}
	if r.HasFatals() {
		t.Fatal("HasFatals() on empty result should be false")
	}
	r.Fatals = append(r.Fatals, fmt.Errorf("test error"))
	if !r.HasFatals() {
		t.Fatal("HasFatals() should be true with a fatal error")
	}
}

func TestAllErrorsReturnsBoth(t *testing.T) {
	cfg := Default()
	cfg.WebRTC.Codec = "theora" // fatal
	cfg.Logging.Level = "loud"  // warning
	result := cfg.ValidateTiered()

	all := result.AllErrors()
	if len(all) < 2 {
		t.Fatalf("AllErrors() returned %d errors, expected at least 2 (fatals + warnings)", len(all))
	}
}

func TestValidConfigHasNoErrors(t *testing.T) {
	cfg := Default()
	result := cfg.ValidateTiered()
	if result.HasFatals() {
		t.Fatalf("default config has fatals: %v", result.Fatals)
	}
	if len(result.Warnings) > 0 {
		t.Fatalf("default config has warnings: %v", result.Warnings)
	}
}
