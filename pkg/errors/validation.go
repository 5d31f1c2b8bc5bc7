package errors

import (
	"math"
	"regexp"
	"strings"
	"unicode"
)

// MaxViewportWidth bounds the width accepted from flags and query strings.
// Anything wider would produce multi-megabyte rasters for no visual gain.
const MaxViewportWidth = 16384

// ValidateDimensions checks that a viewport is finite, positive and within
// [MaxViewportWidth]. Height is checked against the same bound.
func ValidateDimensions(width, height float64) error {
	for _, v := range []struct {
		name  string
		value float64
	}{{"width", width}, {"height", height}} {
		if math.IsNaN(v.value) || math.IsInf(v.value, 0) {
			return New(ErrCodeInvalidInput, "%s must be a finite number", v.name)
		}
		if v.value <= 0 {
			return New(ErrCodeInvalidInput, "%s must be positive, got %v", v.name, v.value)
		}
		if v.value > MaxViewportWidth {
			return New(ErrCodeInvalidInput, "%s too large (max %d)", v.name, MaxViewportWidth)
		}
	}
	return nil
}

// ValidatePadding checks that inner and outer padding are non-negative.
func ValidatePadding(inner, outer float64) error {
	if inner < 0 || math.IsNaN(inner) {
		return New(ErrCodeInvalidInput, "inner padding must be >= 0, got %v", inner)
	}
	if outer < 0 || math.IsNaN(outer) {
		return New(ErrCodeInvalidInput, "outer padding must be >= 0, got %v", outer)
	}
	return nil
}

// tickerRegex matches exchange ticker symbols such as "THYAO" or "BRK.B".
var tickerRegex = regexp.MustCompile(`^[A-Z0-9][A-Z0-9.\-]{0,9}$`)

// ValidateTicker validates a ticker symbol. Tickers are at most ten
// characters, upper case, and may contain dots and dashes.
func ValidateTicker(ticker string) error {
	if ticker == "" {
		return New(ErrCodeInvalidInput, "ticker cannot be empty")
	}
	for _, r := range ticker {
		if unicode.IsControl(r) {
			return New(ErrCodeInvalidInput, "ticker contains invalid control characters")
		}
	}
	if !tickerRegex.MatchString(ticker) {
		return New(ErrCodeInvalidInput, "invalid ticker: %q", ticker)
	}
	return nil
}

// ValidateURL validates a URL string for safety.
// It ensures the URL has a safe scheme (http or https).
func ValidateURL(rawURL string) error {
	if rawURL == "" {
		return New(ErrCodeInvalidInput, "URL cannot be empty")
	}

	if !strings.HasPrefix(rawURL, "http://") && !strings.HasPrefix(rawURL, "https://") {
		return New(ErrCodeInvalidInput, "URL must use http or https scheme")
	}

	return nil
}
