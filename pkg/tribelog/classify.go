package tribelog

import (
	"os"
	"regexp"
	"strings"

	"github.com/AZX-215/GravityCapture/pkg/ocr"
)

// Event categories. Order of declaration mirrors the rule table below.
const (
	CategoryAutoDecayDestroyed      = "AUTO_DECAY_DESTROYED"
	CategoryAntimeshDestroyed       = "ANTIMESH_DESTROYED"
	CategoryTeleporterPrivacy       = "TELEPORTER_PRIVACY_CHANGED"
	CategoryTameStarved             = "TAME_STARVED"
	CategoryTameFroze               = "TAME_FROZE"
	CategoryTameTamed               = "TAME_TAMED"
	CategoryTameClaimed             = "TAME_CLAIMED"
	CategoryTameUnclaimed           = "TAME_UNCLAIMED"
	CategoryBirthHatched            = "BIRTH_HATCHED"
	CategoryCryopodReleased         = "CRYOPOD_RELEASED"
	CategoryCryopodDeath            = "CRYOPOD_DEATH"
	CategoryTribeMemberJoined       = "TRIBE_MEMBER_JOINED"
	CategoryTribeMemberAdded        = "TRIBE_MEMBER_ADDED"
	CategoryTribeMemberLeft         = "TRIBE_MEMBER_LEFT"
	CategoryTribeMemberKicked       = "TRIBE_MEMBER_KICKED"
	CategoryTribeMemberRemoved      = "TRIBE_MEMBER_REMOVED"
	CategoryTribeRankChanged        = "TRIBE_RANK_CHANGED"
	CategoryTribeRenamed            = "TRIBE_RENAMED"
	CategoryTribeOwnershipChanged   = "TRIBE_OWNERSHIP_CHANGED"
	CategoryOrpPreventedAttack      = "ORP_PREVENTED_ATTACK"
	CategoryUploaded                = "UPLOADED"
	CategoryDownloaded              = "DOWNLOADED"
	CategoryTransferred             = "TRANSFERRED"
	CategoryStructureDemolished     = "STRUCTURE_DEMOLISHED"
	CategoryEnemyStructureDestroyed = "ENEMY_STRUCTURE_DESTROYED"
	CategoryStructureDestroyed      = "STRUCTURE_DESTROYED"
	CategoryTribememberWasKilled    = "TRIBEMEMBER_WAS_KILLED"
	CategoryTribeKilledPlayer       = "TRIBE_KILLED_PLAYER"
	CategoryTribeKilledCreature     = "TRIBE_KILLED_CREATURE"
	CategoryTameDied                = "TAME_DIED"
	CategoryUnknown                 = "UNKNOWN"
)

// Config controls classification and dedupe policy.
type Config struct {
	// DedupV2Enabled computes the OCR-tolerant hash for high-signal
	// categories in addition to the legacy exact hash.
	DedupV2Enabled bool
	// TieredStructureSeverity downgrades STRUCTURE_DESTROYED to WARNING
	// unless the message names a high-value structure.
	TieredStructureSeverity bool
	// HighValueStructures overrides the built-in keyword list when set.
	HighValueStructures []string
}

// DefaultConfig returns the production defaults.
func DefaultConfig() Config {
	return Config{
		DedupV2Enabled:      true,
		HighValueStructures: DefaultHighValueStructures,
	}
}

// ConfigFromEnv builds a Config from LOG_* environment variables, falling
// back to DefaultConfig values.
func ConfigFromEnv() Config {
	cfg := DefaultConfig()
	if v := os.Getenv("LOG_DEDUP_V2_ENABLED"); v != "" {
		cfg.DedupV2Enabled = envTruthy(v)
	}
	if v := os.Getenv("LOG_TIERED_STRUCTURE_SEVERITY"); v != "" {
		cfg.TieredStructureSeverity = envTruthy(v)
	}
	if v := os.Getenv("LOG_HIGH_VALUE_STRUCTURES"); v != "" {
		var kws []string
		for _, kw := range strings.Split(v, ",") {
			if kw = strings.ToLower(strings.TrimSpace(kw)); kw != "" {
				kws = append(kws, kw)
			}
		}
		if len(kws) > 0 {
			cfg.HighValueStructures = kws
		}
	}
	return cfg
}

func envTruthy(v string) bool {
	switch strings.ToLower(strings.TrimSpace(v)) {
	case "1", "true", "yes", "on":
		return true
	}
	return false
}

// Classification is the category, severity, and actor derived from a
// message.
type Classification struct {
	Category string
	Severity string
	Actor    string
}

type rule struct {
	rx     *regexp.Regexp
	handle func(m []string, msg string, cfg Config) Classification
}

func fixed(category, severity, actor string) func([]string, string, Config) Classification {
	return func([]string, string, Config) Classification {
		return Classification{Category: category, Severity: severity, Actor: actor}
	}
}

var (
	rxDestroyedBy      = regexp.MustCompile(`(?i)\bwas\s+destroyed\s+by\s+(.+?)\s*(?:!|\.|$)`)
	rxKilledByTail     = regexp.MustCompile(`(?i)\bwas\s+killed\s+by\s+(.+?)\s*(?:!|\.|$)`)
	rxPlayerAnnotation = regexp.MustCompile(`\([^)]*-\s*[^)]*\)`)
	rxTrailingParen    = regexp.MustCompile(`\s*\([^)]*\)\s*$`)
	rxSpaces           = regexp.MustCompile(`\s+`)
)

// rules is evaluated in order; the first match wins. Specific patterns
// (auto-decay, antimesh, official taming) come before the broad
// destroyed/killed catch-alls.
var rules = []rule{
	{regexp.MustCompile(`(?i)\bauto[-\s]?decay(?:ed)?\b`),
		fixed(CategoryAutoDecayDestroyed, SeverityWarning, ActorEnvironment)},
	{regexp.MustCompile(`(?i)\banti[\s\-]*mesh\b`),
		fixed(CategoryAntimeshDestroyed, SeverityWarning, ActorEnvironment)},
	{regexp.MustCompile(`(?i)^(.+?)\s+set\s+.*\btek\s+teleporter\b.*\bto\s+(public|private)\b`),
		func(m []string, _ string, _ Config) Classification {
			return Classification{CategoryTeleporterPrivacy, SeverityWarning, m[1]}
		}},
	{regexp.MustCompile(`(?i)^(.+?)\s+starved\s+to\s+death\s*!?\s*$`),
		func(m []string, _ string, _ Config) Classification {
			return Classification{CategoryTameStarved, SeverityWarning, cleanEntity(m[1])}
		}},
	{regexp.MustCompile(`(?i)^(.+?)\s+froze\s+(.+?)\s*!?\s*$`),
		func(m []string, _ string, _ Config) Classification {
			return Classification{CategoryTameFroze, SeverityInfo, m[1]}
		}},
	{regexp.MustCompile(`(?i)^your\s+tribe\s+tamed\s+a?\s*(.+?)\s*!?\s*$`),
		fixed(CategoryTameTamed, SeveritySuccess, ActorEnvironment)},
	{regexp.MustCompile(`(?i)^your\s+tribe\s+claimed\s+(.+?)\s*!?\s*$`),
		fixed(CategoryTameClaimed, SeveritySuccess, ActorEnvironment)},
	{regexp.MustCompile(`(?i)\bwas\s+(?:born|hatched)\b`),
		fixed(CategoryBirthHatched, SeverityInfo, ActorEnvironment)},
	{regexp.MustCompile(`(?i)\breleased\b.*\bfrom\s+(?:a\s+)?cryopod\b|\bdeployed\b.*\bcryopod\b`),
		fixed(CategoryCryopodReleased, SeverityInfo, ActorEnvironment)},
	{regexp.MustCompile(`(?i)^(.+?)\s+joined\s+the\s+tribe\b`),
		func(m []string, _ string, _ Config) Classification {
			return Classification{CategoryTribeMemberJoined, SeverityInfo, m[1]}
		}},
	{regexp.MustCompile(`(?i)^(.+?)\s+was\s+kicked\s+(?:out\s+of|from)\s+the\s+tribe(?:\s+by\s+(.+?))?\s*!?\s*$`),
		func(m []string, _ string, _ Config) Classification {
			// The kicker is the actor when the line names one.
			actor := m[2]
			if actor == "" {
				actor = ActorEnvironment
			}
			return Classification{CategoryTribeMemberKicked, SeverityWarning, actor}
		}},
	{regexp.MustCompile(`(?i)^(.+?)\s+was\s+(?:promoted|demoted)\b`),
		func(m []string, _ string, _ Config) Classification {
			return Classification{CategoryTribeRankChanged, SeverityInfo, m[1]}
		}},
	{regexp.MustCompile(`(?i)^tribe\s+name\s+was\s+changed\s+to\s+(.+?)\s*!?\s*$`),
		fixed(CategoryTribeRenamed, SeverityInfo, ActorEnvironment)},
	{regexp.MustCompile(`(?i)^tribe\s+owner\s+was\s+changed\s+to\s+(.+?)\s*!?\s*$`),
		func(m []string, _ string, _ Config) Classification {
			return Classification{CategoryTribeOwnershipChanged, SeverityCritical, m[1]}
		}},
	{regexp.MustCompile(`(?i)\btribe\s+was\s+renamed\b|\brenamed\s+the\s+tribe\b`),
		fixed(CategoryTribeRenamed, SeverityInfo, ActorEnvironment)},
	{regexp.MustCompile(`(?i)\bdecayed\s+and\s+was\s+destroyed\b`),
		fixed(CategoryAutoDecayDestroyed, SeverityWarning, ActorEnvironment)},
	{regexp.MustCompile(`(?i)\boffline\s+raid\s+protection\b|\borp\b.*\bprevented\b`),
		fixed(CategoryOrpPreventedAttack, SeverityInfo, ActorEnvironment)},
	{regexp.MustCompile(`(?i)^(.+?)\s+claimed\s+(.+?)\s*!?\s*$`),
		func(m []string, _ string, _ Config) Classification {
			return Classification{CategoryTameClaimed, SeveritySuccess, m[1]}
		}},
	{regexp.MustCompile(`(?i)\bunclaimed\b`),
		fixed(CategoryTameUnclaimed, SeverityInfo, ActorEnvironment)},
	{regexp.MustCompile(`(?i)\btamed\s+a\b`),
		fixed(CategoryTameTamed, SeveritySuccess, ActorEnvironment)},
	{regexp.MustCompile(`(?i)^(.+?)\s+uploaded\b`),
		func(m []string, _ string, _ Config) Classification {
			return Classification{CategoryUploaded, SeverityInfo, m[1]}
		}},
	{regexp.MustCompile(`(?i)^(.+?)\s+downloaded\b`),
		func(m []string, _ string, _ Config) Classification {
			return Classification{CategoryDownloaded, SeverityInfo, m[1]}
		}},
	{regexp.MustCompile(`(?i)\btransferred\b`),
		fixed(CategoryTransferred, SeverityInfo, ActorEnvironment)},
	{regexp.MustCompile(`(?i)^(.+?)\s+was\s+added\s+to\s+the\s+tribe\b`),
		func(m []string, _ string, _ Config) Classification {
			return Classification{CategoryTribeMemberAdded, SeverityInfo, m[1]}
		}},
	{regexp.MustCompile(`(?i)^(.+?)\s+left\s+the\s+tribe\b`),
		func(m []string, _ string, _ Config) Classification {
			return Classification{CategoryTribeMemberLeft, SeverityInfo, m[1]}
		}},
	{regexp.MustCompile(`(?i)^(.+?)\s+was\s+removed\s+from\s+the\s+tribe\b`),
		func(m []string, _ string, _ Config) Classification {
			return Classification{CategoryTribeMemberRemoved, SeverityCritical, m[1]}
		}},
	{regexp.MustCompile(`(?i)^(.+?)\s+was\s+(?:made|set\s+to)\s+(?:a\s+)?tribe\s+admin\b`),
		func(m []string, _ string, _ Config) Classification {
			return Classification{CategoryTribeRankChanged, SeverityInfo, m[1]}
		}},
	{regexp.MustCompile(`(?i)^(.+?)\s+(?:is\s+now|was\s+made)\s+the\s+(?:new\s+)?tribe\s+owner\b`),
		func(m []string, _ string, _ Config) Classification {
			return Classification{CategoryTribeOwnershipChanged, SeverityCritical, m[1]}
		}},
	{regexp.MustCompile(`(?i)^(.+?)\s+set\s+(.+?)\s+to\s+rank\s+group\b`),
		func(m []string, _ string, _ Config) Classification {
			return Classification{CategoryTribeRankChanged, SeverityInfo, m[1]}
		}},
	{regexp.MustCompile(`(?i)^(.+?)\s+demolished\b`),
		func(m []string, _ string, _ Config) Classification {
			return Classification{CategoryStructureDemolished, SeverityInfo, m[1]}
		}},
	{regexp.MustCompile(`(?i)\bdestroyed\s+their\b`),
		fixed(CategoryEnemyStructureDestroyed, SeveritySuccess, ActorEnvironment)},
	{regexp.MustCompile(`(?i)\bwas\s+destroyed\b`),
		func(_ []string, msg string, cfg Config) Classification {
			actor := ActorEnvironment
			if m := rxDestroyedBy.FindStringSubmatch(msg); m != nil {
				actor = m[1]
			}
			sev := SeverityCritical
			if cfg.TieredStructureSeverity && !isHighValueStructure(msg, cfg.highValue()) {
				sev = SeverityWarning
			}
			return Classification{CategoryStructureDestroyed, sev, actor}
		}},
	{regexp.MustCompile(`(?i)\btribemember\s+(.+?)\s+was\s+killed\b`),
		func(_ []string, msg string, _ Config) Classification {
			actor := ActorEnvironment
			if m := rxKilledByTail.FindStringSubmatch(msg); m != nil {
				actor = m[1]
			}
			return Classification{CategoryTribememberWasKilled, SeverityCritical, actor}
		}},
	{regexp.MustCompile(`(?i)^your\s+tribe\s+killed\s+(.+?)\s*!?\s*$`),
		func(m []string, _ string, _ Config) Classification {
			cat := CategoryTribeKilledCreature
			if rxPlayerAnnotation.MatchString(m[1]) {
				cat = CategoryTribeKilledPlayer
			}
			return Classification{cat, SeverityCritical, "Your Tribe"}
		}},
	{regexp.MustCompile(`(?i)\bwas\s+killed\s+by\b`),
		func(_ []string, msg string, _ Config) Classification {
			actor := ActorEnvironment
			if m := rxKilledByTail.FindStringSubmatch(msg); m != nil {
				actor = m[1]
			}
			return Classification{CategoryTameDied, SeverityCritical, actor}
		}},
	{regexp.MustCompile(`(?i)^(.*?)\s*(?:\bwas\s+killed\b|\bdied\b)`),
		func(m []string, msg string, _ Config) Classification {
			if strings.Contains(strings.ToLower(msg), "cryopod") {
				return Classification{CategoryCryopodDeath, SeverityWarning, ActorEnvironment}
			}
			actor := cleanEntity(m[1])
			if actor == "" {
				actor = ActorEnvironment
			}
			return Classification{CategoryTameDied, SeverityWarning, actor}
		}},
}

func (c Config) highValue() []string {
	if len(c.HighValueStructures) > 0 {
		return c.HighValueStructures
	}
	return DefaultHighValueStructures
}

// ClassifyMessage maps a cleaned message to a category, severity, and actor.
// It is total: unmatched or panicking inputs fall through to UNKNOWN/INFO.
func ClassifyMessage(message string, cfg Config) (cls Classification) {
	cls = Classification{CategoryUnknown, SeverityInfo, ActorEnvironment}
	defer func() {
		if recover() != nil {
			cls = Classification{CategoryUnknown, SeverityInfo, ActorEnvironment}
		}
	}()
	msg := ocr.NormalizeLine(message)
	for _, r := range rules {
		if m := r.rx.FindStringSubmatch(msg); m != nil {
			got := r.handle(m, msg, cfg)
			got.Actor = cleanActor(got.Actor)
			return got
		}
	}
	return cls
}

// cleanEntity strips the possessive "Your " prefix and trailing punctuation
// from a creature or structure name.
func cleanEntity(s string) string {
	s = strings.TrimSpace(s)
	low := strings.ToLower(s)
	if strings.HasPrefix(low, "your ") {
		s = s[5:]
	}
	s = strings.Trim(s, " !.,:;")
	return rxSpaces.ReplaceAllString(s, " ")
}

// cleanActor strips a trailing parenthetical annotation like "(Raptor)" or
// "(Bob - Lvl 105)" and normalizes spacing. Empty actors collapse to the
// environment sentinel.
func cleanActor(s string) string {
	s = strings.TrimSpace(s)
	s = rxTrailingParen.ReplaceAllString(s, "")
	s = strings.Trim(s, " !.,:;")
	s = rxSpaces.ReplaceAllString(s, " ")
	if s == "" {
		return ActorEnvironment
	}
	return s
}

// ClassifyEvent classifies a headered event and computes its identity
// hashes and fingerprint. The result is fully populated and safe to persist.
func ClassifyEvent(server, tribe string, ev HeaderedEvent, cfg Config) ParsedEvent {
	msg := rxSpaces.ReplaceAllString(strings.TrimSpace(ev.Message), " ")
	raw := rxSpaces.ReplaceAllString(strings.TrimSpace(ev.RawLine), " ")

	cls := ClassifyMessage(msg, cfg)

	out := ParsedEvent{
		Server:   strings.TrimSpace(server),
		Tribe:    strings.TrimSpace(tribe),
		ArkDay:   ev.ArkDay,
		ArkTime:  ev.ArkTime,
		Severity: cls.Severity,
		Category: cls.Category,
		Actor:    cls.Actor,
		Message:  msg,
		RawLine:  raw,
	}
	out.EventHash = EventHash(out.Server, out.Tribe, out.ArkDay, out.ArkTime, out.Category, out.Message)
	out.NormalizedText = ocr.AggressiveNormalize(out.Message)
	out.Fingerprint = Fingerprint64(out.NormalizedText)
	// Structure losses are only high signal when a high-value structure is
	// named; otherwise simultaneous identical wall losses would collapse
	// into one v2 row.
	highSignal := isHighSignal(out.Category)
	if out.Category == CategoryStructureDestroyed || out.Category == CategoryEnemyStructureDestroyed {
		highSignal = highSignal && isHighValueStructure(out.Message, cfg.highValue())
	}
	if cfg.DedupV2Enabled && highSignal {
		out.EventHashV2, out.NormalizedText = EventHashV2(
			out.Server, out.Tribe, out.ArkDay, out.ArkTime,
			out.Category, out.Actor, out.Message)
		out.Fingerprint = Fingerprint64(out.NormalizedText)
	}
	return out
}
