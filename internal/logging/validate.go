package logging

import (
	"fmt"
	"strings"

	"github.com/jmylchreest/hapd/internal/config"
)

// FieldError describes a single invalid logging setting.
type FieldError struct {
	Field   string
	Message string
}

func (e *FieldError) Error() string {
	return fmt.Sprintf("logging.%s: %s", e.Field, e.Message)
}

// ValidateConfig reports every invalid setting in cfg. SetupLogger falls
// back to defaults for bad values; this lets callers reject them instead.
func ValidateConfig(cfg config.LoggingConfig) []FieldError {
	var errs []FieldError
	if cfg.Level != "" && ValidateLogLevel(cfg.Level) != cfg.Level {
		errs = append(errs, FieldError{Field: "level",
			Message: fmt.Sprintf("invalid level %q; must be debug, info, warn, or error", cfg.Level)})
	}
	if cfg.Format != "" && ValidateLogFormat(cfg.Format) != cfg.Format {
		errs = append(errs, FieldError{Field: "format",
			Message: fmt.Sprintf("invalid format %q; must be text or json", cfg.Format)})
	}
	if cfg.File != "" && strings.HasSuffix(cfg.File, "/") {
		errs = append(errs, FieldError{Field: "file", Message: "must name a file, not a directory"})
	}
	return errs
}

// FormatErrors returns a human-readable summary of validation errors.
func FormatErrors(errs []FieldError) string {
	var b strings.Builder
	for i, e := range errs {
		if i > 0 {
			b.WriteString("; ")
		}
		b.WriteString(e.Error())
	}
	return b.String()
}
