// Package tribelog reconstructs, classifies, and fingerprints ARK tribe-log
// events from OCR output.
package tribelog

// Severity levels, from least to most urgent.
const (
	SeverityInfo     = "INFO"
	SeverityWarning  = "WARNING"
	SeveritySuccess  = "SUCCESS"
	SeverityCritical = "CRITICAL"
)

// ActorEnvironment is the sentinel actor used when no subject is recoverable.
const ActorEnvironment = "Environment"

// HeaderedEvent is one parsed "Day N, HH:MM:SS: message" line before
// classification. Candidates with ArkDay <= 0 are rejected by the parser.
type HeaderedEvent struct {
	ArkDay  int    `json:"ark_day"`
	ArkTime string `json:"ark_time"` // HH:MM:SS
	Message string `json:"message"`
	RawLine string `json:"raw_line"`
}

// ParsedEvent is the immutable classified event handed to persistence and
// alerting. EventHash (v1) is the legacy exact hash; EventHashV2 is the
// OCR-tolerant hash computed only for high-signal categories.
type ParsedEvent struct {
	Server   string `json:"server"`
	Tribe    string `json:"tribe"`
	ArkDay   int    `json:"ark_day"`
	ArkTime  string `json:"ark_time"`
	Severity string `json:"severity"`
	Category string `json:"category"`
	Actor    string `json:"actor"`
	Message  string `json:"message"`
	RawLine  string `json:"raw_line"`

	EventHash      string `json:"event_hash"`
	EventHashV2    string `json:"event_hash_v2,omitempty"`
	NormalizedText string `json:"normalized_text"`
	Fingerprint    int64  `json:"fingerprint"`
}
