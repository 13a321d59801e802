package config

import (
	"errors"
	"fmt"
	"os"
	"strconv"
	"strings"
)

// envReader: reads typed settings from the environment. Values that are set
// but cannot be parsed fall back to the default and are recorded so startup
// can reject them instead of running with a silently different setting.
type envReader struct {
	lookup  func(string) (string, bool)
	invalid []error
}

func newEnvReader() *envReader {
	return &envReader{lookup: os.LookupEnv}
}

func (r *envReader) raw(key string) (string, bool) {
	value, ok := r.lookup(key)
	if !ok {
		return "", false
	}
	value = strings.TrimSpace(value)
	return value, value != ""
}

func (r *envReader) reject(key, value, want string) {
	r.invalid = append(r.invalid, fmt.Errorf("invalid %s=%q: want %s", key, value, want))
}

func (r *envReader) str(key, def string) string {
	if value, ok := r.raw(key); ok {
		return value
	}
	return def
}

func (r *envReader) lower(key, def string) string {
	return strings.ToLower(r.str(key, def))
}

func (r *envReader) list(key string) []string {
	return splitList(r.str(key, ""))
}

func (r *envReader) integer(key string, def int) int {
	value, ok := r.raw(key)
	if !ok {
		return def
	}
	parsed, err := strconv.Atoi(value)
	if err != nil {
		r.reject(key, value, "an integer")
		return def
	}
	return parsed
}

// atLeast: reads an integer and clamps it to floor. Negative input is still
// reported since it is never a meaningful setting.
func (r *envReader) atLeast(key string, def, floor int) int {
	value := r.integer(key, def)
	if value < 0 {
		r.reject(key, strconv.Itoa(value), "a non-negative integer")
		return max(def, floor)
	}
	return max(value, floor)
}

func (r *envReader) number(key string, def float64) float64 {
	value, ok := r.raw(key)
	if !ok {
		return def
	}
	parsed, err := strconv.ParseFloat(value, 64)
	if err != nil {
		r.reject(key, value, "a number")
		return def
	}
	return parsed
}

func (r *envReader) flag(key string, def bool) bool {
	value, ok := r.raw(key)
	if !ok {
		return def
	}
	switch strings.ToLower(value) {
	case "true", "1", "yes", "y", "on":
		return true
	case "false", "0", "no", "n", "off":
		return false
	}
	r.reject(key, value, "a boolean")
	return def
}

func (r *envReader) err() error {
	return errors.Join(r.invalid...)
}

func splitList(value string) []string {
	return strings.FieldsFunc(value, func(r rune) bool {
		return r == ',' || r == ' ' || r == '\t' || r == '\n' || r == '\r'
	})
}

func maskSecret(value string) string {
	switch {
	case value == "":
		return "<missing>"
	case len(value) <= 4:
		return strings.Repeat("*", len(value))
	default:
		return value[:2] + "***" + value[len(value)-2:]
	}
}

func fileExists(path string) bool {
	_, err := os.Stat(path)
	return err == nil
}

func (r *envReader) telemetry() TelemetryConfig {
	return TelemetryConfig{
		Enabled:        r.flag("OTEL_ENABLED", false),
		ServiceName:    r.str("OTEL_SERVICE_NAME", "m-voice"),
		ServiceVersion: r.str("OTEL_SERVICE_VERSION", "1.0.0"),
		Environment:    r.str("OTEL_ENVIRONMENT", "production"),
		OTLPEndpoint:   r.str("OTEL_EXPORTER_OTLP_ENDPOINT", "localhost:4317"),
		OTLPInsecure:   r.flag("OTEL_EXPORTER_OTLP_INSECURE", true),
		SampleRate:     r.number("OTEL_SAMPLE_RATE", 1.0),
	}
}
