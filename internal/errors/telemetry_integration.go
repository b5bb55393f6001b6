// Package errors - telemetry integration (optional)
package errors

import (
	"fmt"
	"regexp"
	"strings"
	"sync"
	"time"
	"unicode"

	"github.com/getsentry/sentry-go"
)

// sentryFlushTimeout bounds how long Flush waits for queued events
const sentryFlushTimeout = 2 * time.Second

// TelemetryReporter is an interface for reporting errors to telemetry systems
type TelemetryReporter interface {
	ReportError(err *EnhancedError)
	IsEnabled() bool
}

// SentryReporter implements TelemetryReporter for Sentry
type SentryReporter struct {
	enabled bool
}

// NewSentryReporter creates a new Sentry telemetry reporter
func NewSentryReporter(enabled bool) *SentryReporter {
	return &SentryReporter{enabled: enabled}
}

// InitSentry initializes the Sentry client and returns a reporter bound to it.
func InitSentry(dsn, release string) (*SentryReporter, error) {
	if dsn == "" {
		return nil, fmt.Errorf("sentry DSN is empty")
	}
	if err := sentry.Init(sentry.ClientOptions{
		Dsn:              dsn,
		Release:          release,
		AttachStacktrace: true,
	}); err != nil {
		return nil, fmt.Errorf("sentry initialization failed: %w", err)
	}
	return NewSentryReporter(true), nil
}

// IsEnabled returns whether Sentry telemetry is enabled
func (sr *SentryReporter) IsEnabled() bool {
	return sr != nil && sr.enabled
}

// ReportError reports an enhanced error to Sentry with privacy protection
func (sr *SentryReporter) ReportError(ee *EnhancedError) {
	if !sr.IsEnabled() || ee.IsReported() {
		return
	}

	scrubbedMessage := scrubMessageForPrivacy(fmt.Sprintf("[%s] %s", ee.Category, ee.Err.Error()))
	component := ee.GetComponent()
	errorTitle := generateErrorTitle(ee)

	sentry.WithScope(func(scope *sentry.Scope) {
		scope.SetTag("error_title", errorTitle)
		scope.SetTag("component", component)
		scope.SetTag("category", string(ee.Category))
		scope.SetTag("error_type", fmt.Sprintf("%T", ee.Err))
		if priority := ee.GetPriority(); priority != "" {
			scope.SetTag("priority", priority)
		}

		for key, value := range ee.GetContext() {
			scrubbedValue := value
			if strValue, ok := value.(string); ok {
				scrubbedValue = scrubMessageForPrivacy(strValue)
			}
			scope.SetContext(key, map[string]any{"value": scrubbedValue})
		}

		level := getErrorLevel(ee.Category, ee.GetPriority())
		scope.SetLevel(level)
		scope.SetFingerprint([]string{errorTitle, component, string(ee.Category)})

		event := sentry.NewEvent()
		event.Message = scrubbedMessage
		event.Level = level
		event.Exception = []sentry.Exception{{
			Type:  errorTitle,
			Value: scrubbedMessage,
		}}

		sentry.CaptureEvent(event)
	})

	ee.MarkReported()
}

// Flush waits for queued Sentry events to be delivered.
func (sr *SentryReporter) Flush() bool {
	if !sr.IsEnabled() {
		return true
	}
	return sentry.Flush(sentryFlushTimeout)
}

// generateErrorTitle creates an error title from component, category and operation
func generateErrorTitle(ee *EnhancedError) string {
	var titleParts []string

	if component := ee.GetComponent(); component != "" && component != ComponentUnknown {
		titleParts = append(titleParts, titleCase(component))
	}

	if categoryTitle := formatCategoryForTitle(ee.Category); categoryTitle != "" {
		titleParts = append(titleParts, categoryTitle)
	}

	if operation, ok := ee.GetContext()["operation"].(string); ok && operation != "" {
		titleParts = append(titleParts, formatOperationForTitle(operation))
	}

	if len(titleParts) == 0 {
		return fmt.Sprintf("%T", ee.Err)
	}

	return strings.Join(titleParts, " ")
}

// formatCategoryForTitle converts error categories to human-readable titles
func formatCategoryForTitle(category ErrorCategory) string {
	switch category {
	case CategoryValidation:
		return "Validation Error"
	case CategoryConfiguration:
		return "Configuration Error"
	case CategoryAudioSource:
		return "Audio Source Error"
	case CategoryAudio:
		return "Audio Processing Error"
	case CategoryFileIO:
		return "File I/O Error"
	case CategoryCancellation:
		return "Cancelled"
	case CategorySystem:
		return "System Error"
	default:
		return string(category)
	}
}

// formatOperationForTitle converts operation context to human-readable format
func formatOperationForTitle(operation string) string {
	words := strings.Fields(strings.ReplaceAll(operation, "_", " "))
	for i, word := range words {
		words[i] = titleCase(word)
	}
	return strings.Join(words, " ")
}

// titleCase capitalizes the first letter of a string
func titleCase(s string) string {
	if s == "" {
		return s
	}
	runes := []rune(s)
	runes[0] = unicode.ToUpper(runes[0])
	return string(runes)
}

// getErrorLevel returns the Sentry level for an error. An explicit priority
// wins over the category default.
func getErrorLevel(category ErrorCategory, priority string) sentry.Level {
	switch priority {
	case PriorityCritical:
		return sentry.LevelFatal
	case PriorityHigh:
		return sentry.LevelError
	case PriorityLow:
		return sentry.LevelWarning
	}

	switch category {
	case CategoryTimeout:
		return sentry.LevelWarning
	case CategoryCancellation:
		return sentry.LevelInfo
	default:
		return sentry.LevelError
	}
}

// Global telemetry reporter (can be nil if telemetry is disabled)
var (
	globalTelemetryReporter TelemetryReporter
	telemetryMu             sync.RWMutex
)

// SetTelemetryReporter sets the global telemetry reporter
func SetTelemetryReporter(reporter TelemetryReporter) {
	telemetryMu.Lock()
	defer telemetryMu.Unlock()
	globalTelemetryReporter = reporter
	hasActiveReporting.Store(reporter != nil && reporter.IsEnabled())
}

// GetTelemetryReporter returns the current telemetry reporter
func GetTelemetryReporter() TelemetryReporter {
	telemetryMu.RLock()
	defer telemetryMu.RUnlock()
	return globalTelemetryReporter
}

// reportToTelemetry reports an error to the configured telemetry system
func reportToTelemetry(ee *EnhancedError) {
	reporter := GetTelemetryReporter()
	if reporter != nil && reporter.IsEnabled() {
		reporter.ReportError(ee)
	}
}

// Pre-compiled scrubbing patterns
var (
	urlQueryRegex  = regexp.MustCompile(`(https?://[^?\s]+)\?\S*`)
	sentryDSNRegex = regexp.MustCompile(`https?://[0-9a-fA-F]+@`)
	apiKeyRegexes  = []*regexp.Regexp{
		regexp.MustCompile(`api[_-]?key[=:]\S+`),
		regexp.MustCompile(`token[=:]\S+`),
		regexp.MustCompile(`auth[=:]\S+`),
		regexp.MustCompile(`[0-9a-fA-F]{32,}`),
	}
)

// scrubMessageForPrivacy removes credentials and query strings from messages
func scrubMessageForPrivacy(message string) string {
	scrubbed := sentryDSNRegex.ReplaceAllString(message, "https://[REDACTED]@")
	scrubbed = urlQueryRegex.ReplaceAllString(scrubbed, "$1?[REDACTED]")
	for _, regex := range apiKeyRegexes {
		scrubbed = regex.ReplaceAllString(scrubbed, "[API_KEY_REDACTED]")
	}
	return scrubbed
}
