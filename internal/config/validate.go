package config

import (
	"fmt"
	"net"
	"strings"
)

var knownCodecs = map[string]bool{
	"raw":  true,
	"vp8":  true,
	"h264": true,
}

var validLogLevels = map[string]bool{
	"debug": true,
	"info":  true,
	"warn":  true,
	"warning": true,
	"error": true,
}

// ValidationResult splits config problems into Fatals, which abort
// startup, and Warnings, which are logged while the value is clamped to
// a safe default.
type ValidationResult struct {
	Fatals   []error
	Warnings []error
}

// HasFatals reports whether startup should be aborted.
func (r ValidationResult) HasFatals() bool { return len(r.Fatals) > 0 }

// AllErrors returns fatals followed by warnings, for callers that just
// want the full list.
func (r ValidationResult) AllErrors() []error {
	all := make([]error, 0, len(r.Fatals)+len(r.Warnings))
	all = append(all, r.Fatals...)
	all = append(all, r.Warnings...)
	return all
}

// ValidateTiered checks c for a missing required key, an invalid listen
// address, or an unknown encoder name — each of which is fatal per
// spec.md's configuration error policy — while out-of-range numeric
// settings are clamped to a safe value and reported as warnings.
func (c *Config) ValidateTiered() ValidationResult {
	var result ValidationResult

	if c.Server.ListenAddr == "" {
		result.Fatals = append(result.Fatals, fmt.Errorf("server.listen_addr is required"))
	} else if _, _, err := net.SplitHostPort(c.Server.ListenAddr); err != nil {
		result.Fatals = append(result.Fatals, fmt.Errorf("server.listen_addr %q is invalid: %w", c.Server.ListenAddr, err))
	}

	if c.Server.RESTListenAddr != "" {
		if _, _, err := net.SplitHostPort(c.Server.RESTListenAddr); err != nil {
			result.Fatals = append(result.Fatals, fmt.Errorf("server.rest_listen_addr %q is invalid: %w", c.Server.RESTListenAddr, err))
		}
	}

	if c.WebRTC.Codec == "" {
		result.Fatals = append(result.Fatals, fmt.Errorf("webrtc.codec is required"))
	} else if !knownCodecs[strings.ToLower(c.WebRTC.Codec)] {
		result.Fatals = append(result.Fatals, fmt.Errorf("unknown encoder %q (use raw, vp8, or h264)", c.WebRTC.Codec))
	}

	if (c.Security.TLSCert == "") != (c.Security.TLSKey == "") {
		result.Fatals = append(result.Fatals, fmt.Errorf("security.tls_cert and security.tls_key must both be set or both be empty"))
	}

	if c.Capture.FPS < 1 {
		result.Warnings = append(result.Warnings, fmt.Errorf("capture.fps %d is below minimum 1, clamping", c.Capture.FPS))
		c.Capture.FPS = 1
	} else if c.Capture.FPS > 120 {
		result.Warnings = append(result.Warnings, fmt.Errorf("capture.fps %d exceeds maximum 120, clamping", c.Capture.FPS))
		c.Capture.FPS = 120
	}

	if c.WebRTC.BitrateKbps < 100 {
		result.Warnings = append(result.Warnings, fmt.Errorf("webrtc.bitrate_kbps %d is below minimum 100, clamping", c.WebRTC.BitrateKbps))
		c.WebRTC.BitrateKbps = 100
	} else if c.WebRTC.BitrateKbps > 50000 {
		result.Warnings = append(result.Warnings, fmt.Errorf("webrtc.bitrate_kbps %d exceeds maximum 50000, clamping", c.WebRTC.BitrateKbps))
		c.WebRTC.BitrateKbps = 50000
	}

	if c.Security.NonceTTLSecs < 5 {
		result.Warnings = append(result.Warnings, fmt.Errorf("security.nonce_ttl_seconds %d is below minimum 5, clamping", c.Security.NonceTTLSecs))
		c.Security.NonceTTLSecs = 5
	} else if c.Security.NonceTTLSecs > 3600 {
		result.Warnings = append(result.Warnings, fmt.Errorf("security.nonce_ttl_seconds %d exceeds maximum 3600, clamping", c.Security.NonceTTLSecs))
		c.Security.NonceTTLSecs = 3600
	}

	if c.Logging.Level != "" && !validLogLevels[strings.ToLower(c.Logging.Level)] {
		result.Warnings = append(result.Warnings, fmt.Errorf("logging.level %q is not valid (use debug, info, warn, error)", c.Logging.Level))
	}

	if c.Logging.Format != "" && c.Logging.Format != "text" && c.Logging.Format != "json" {
		result.Warnings = append(result.Warnings, fmt.Errorf("logging.format %q is not valid (use text or json)", c.Logging.Format))
	}

	return result
}
