package compiler

// Severity classifies a compile-time diagnostic.
type Severity string

const (
	SeverityInfo Severity = "INFO"
	SeverityWarn Severity = "WARN"
	SeverityErr  Severity = "ERR"
)

// LogEntry is one structured diagnostic attached to a compiled tool.
// Diagnostics never abort compilation; they describe quality or
// configuration issues found along the way.
type LogEntry struct {
	Severity Severity `json:"severity"`
	Message  string   `json:"message"`
}

func info(msg string) LogEntry { return LogEntry{Severity: SeverityInfo, Message: msg} }
func warn(msg string) LogEntry { return LogEntry{Severity: SeverityWarn, Message: msg} }
func errd(msg string) LogEntry { return LogEntry{Severity: SeverityErr, Message: msg} }
