package tribelog

import (
	"testing"

	"github.com/leanovate/gopter"
	"github.com/leanovate/gopter/gen"
	"github.com/leanovate/gopter/prop"
)

func TestClassifyMessageTable(t *testing.T) {
	cfg := DefaultConfig()
	cases := []struct {
		msg      string
		category string
		severity string
		actor    string
	}{
		{"Your Thatch Wall was destroyed by Human!", CategoryStructureDestroyed, SeverityCritical, "Human"},
		{"Your Vault was destroyed!", CategoryStructureDestroyed, SeverityCritical, ActorEnvironment},
		{"Your Metal Foundation was auto-decayed!", CategoryAutoDecayDestroyed, SeverityWarning, ActorEnvironment},
		{"Your C4 Charge was destroyed by anti-mesh system!", CategoryAntimeshDestroyed, SeverityWarning, ActorEnvironment},
		{"Your Raptor - Lvl 50 starved to death!", CategoryTameStarved, SeverityWarning, "Raptor - Lvl 50"},
		{"Bob set their Tek Teleporter to Public!", CategoryTeleporterPrivacy, SeverityWarning, "Bob"},
		{"Bob froze Rex - Lvl 300!", CategoryTameFroze, SeverityInfo, "Bob"},
		{"Your Tribe Tamed a Rex - Lvl 145!", CategoryTameTamed, SeveritySuccess, ActorEnvironment},
		{"A Rex was born!", CategoryBirthHatched, SeverityInfo, ActorEnvironment},
		{"Bob joined the Tribe!", CategoryTribeMemberJoined, SeverityInfo, "Bob"},
		{"Bob was kicked from the Tribe by Alice!", CategoryTribeMemberKicked, SeverityWarning, "Alice"},
		{"Bob was kicked from the Tribe!", CategoryTribeMemberKicked, SeverityWarning, ActorEnvironment},
		{"Bob was removed from the Tribe!", CategoryTribeMemberRemoved, SeverityCritical, "Bob"},
		{"Tribe Name was changed to Alphas!", CategoryTribeRenamed, SeverityInfo, ActorEnvironment},
		{"Tribe Owner was changed to Bob!", CategoryTribeOwnershipChanged, SeverityCritical, "Bob"},
		{"Bob left the Tribe!", CategoryTribeMemberLeft, SeverityInfo, "Bob"},
		{"Bob was promoted in the Tribe!", CategoryTribeRankChanged, SeverityInfo, "Bob"},
		{"Bob demolished a Wooden Wall!", CategoryStructureDemolished, SeverityInfo, "Bob"},
		{"Your Tribe destroyed their Stone Foundation!", CategoryEnemyStructureDestroyed, SeveritySuccess, ActorEnvironment},
		{"Tribemember Bob was killed by Alice - Lvl 100!", CategoryTribememberWasKilled, SeverityCritical, "Alice - Lvl 100"},
		{"Your Tribe killed Wild Dilophosaur - Lvl 4!", CategoryTribeKilledCreature, SeverityCritical, "Your Tribe"},
		{"Your Rex - Lvl 300 was killed by a Giganotosaurus - Lvl 120!", CategoryTameDied, SeverityCritical, "a Giganotosaurus - Lvl 120"},
		{"Your Parasaur - Lvl 10 was killed!", CategoryTameDied, SeverityWarning, "Parasaur - Lvl 10"},
		{"Bob uploaded a Rex!", CategoryUploaded, SeverityInfo, "Bob"},
		{"Bob downloaded a Rex!", CategoryDownloaded, SeverityInfo, "Bob"},
		{"complete nonsense with no verbs at all", CategoryUnknown, SeverityInfo, ActorEnvironment},
	}
	for _, tc := range cases {
		got := ClassifyMessage(tc.msg, cfg)
		if got.Category != tc.category {
			t.Errorf("%q: category %s, want %s", tc.msg, got.Category, tc.category)
		}
		if got.Severity != tc.severity {
			t.Errorf("%q: severity %s, want %s", tc.msg, got.Severity, tc.severity)
		}
		if got.Actor != tc.actor {
			t.Errorf("%q: actor %q, want %q", tc.msg, got.Actor, tc.actor)
		}
	}
}

func TestTribeKilledPlayerDetection(t *testing.T) {
	cfg := DefaultConfig()
	got := ClassifyMessage("Your Tribe killed Alice - Lvl 100 (Riding a Pteranodon - Lvl 80)!", cfg)
	if got.Category != CategoryTribeKilledPlayer {
		t.Errorf("rider annotation should mark a player kill, got %s", got.Category)
	}
	got = ClassifyMessage("Your Tribe killed Wild Raptor - Lvl 20!", cfg)
	if got.Category != CategoryTribeKilledCreature {
		t.Errorf("plain kill should stay a creature kill, got %s", got.Category)
	}
}

func TestCryopodDeathDowngrade(t *testing.T) {
	got := ClassifyMessage("Your Rex was killed while in a Cryopod!", DefaultConfig())
	if got.Category != CategoryCryopodDeath || got.Severity != SeverityWarning {
		t.Errorf("cryopod death: got %s/%s", got.Category, got.Severity)
	}
}

func TestTieredStructureSeverity(t *testing.T) {
	cfg := DefaultConfig()
	cfg.TieredStructureSeverity = true

	low := ClassifyMessage("Your Thatch Wall was destroyed by Human!", cfg)
	if low.Severity != SeverityWarning {
		t.Errorf("low-value structure should downgrade to WARNING, got %s", low.Severity)
	}
	high := ClassifyMessage("Your Tek Generator was destroyed by Human!", cfg)
	if high.Severity != SeverityCritical {
		t.Errorf("high-value structure must stay CRITICAL, got %s", high.Severity)
	}
}

func TestCleanActor(t *testing.T) {
	cases := []struct{ in, want string }{
		{"Bob (Raptor)", "Bob"},
		{"Alice - Lvl 105 (Riding a Ptera)", "Alice - Lvl 105"},
		{"  Bob!  ", "Bob"},
		{"", ActorEnvironment},
	}
	for _, tc := range cases {
		if got := cleanActor(tc.in); got != tc.want {
			t.Errorf("cleanActor(%q) = %q, want %q", tc.in, got, tc.want)
		}
	}
}

func TestClassifyEventEndToEnd(t *testing.T) {
	ev := HeaderedEvent{
		ArkDay:  12,
		ArkTime: "08:15:30",
		Message: "Your Tek Generator was destroyed by Human!",
		RawLine: "Day 12, 08:15:30: Your Tek Generator was destroyed by Human!",
	}
	out := ClassifyEvent("NA-PVP-Ragnarok", "Alphas", ev, DefaultConfig())
	if out.Category != CategoryStructureDestroyed || out.Severity != SeverityCritical {
		t.Fatalf("got %s/%s", out.Category, out.Severity)
	}
	if out.Actor != "Human" {
		t.Errorf("actor = %q", out.Actor)
	}
	if out.EventHash == "" || len(out.EventHash) != 40 {
		t.Errorf("v1 hash missing or wrong length: %q", out.EventHash)
	}
	if out.EventHashV2 == "" || len(out.EventHashV2) != 64 {
		t.Errorf("v2 hash expected for a high-value structure loss: %q", out.EventHashV2)
	}
	if out.Fingerprint == 0 {
		t.Error("fingerprint should be non-zero for a real message")
	}
	if out.NormalizedText == "" {
		t.Error("normalized text missing")
	}
}

func TestClassifyEventHashCoversCategory(t *testing.T) {
	mk := func(msg string) ParsedEvent {
		ev := HeaderedEvent{ArkDay: 12, ArkTime: "08:15:30", Message: msg, RawLine: msg}
		return ClassifyEvent("srv", "tribe", ev, DefaultConfig())
	}
	starved := mk("Your Rex starved to death!")
	born := mk("A Rex was born!")
	if starved.EventHash == born.EventHash {
		t.Error("different categories must produce different v1 hashes")
	}
	want := EventHash("srv", "tribe", 12, "08:15:30", starved.Category, starved.Message)
	if starved.EventHash != want {
		t.Errorf("v1 hash must cover the category: got %s want %s", starved.EventHash, want)
	}
}

func TestClassifyEventLowValueStructureSkipsV2(t *testing.T) {
	ev := HeaderedEvent{
		ArkDay:  12,
		ArkTime: "08:15:30",
		Message: "Your Thatch Wall was destroyed by Human!",
		RawLine: "Day 12, 08:15:30: Your Thatch Wall was destroyed by Human!",
	}
	out := ClassifyEvent("srv", "tribe", ev, DefaultConfig())
	if out.Category != CategoryStructureDestroyed {
		t.Fatalf("got %s", out.Category)
	}
	if out.EventHashV2 != "" {
		t.Errorf("low-value structure loss must not carry a v2 hash, got %q", out.EventHashV2)
	}
	if out.EventHash == "" {
		t.Error("v1 hash must always be present")
	}
}

func TestClassifyEventLowSignalSkipsV2(t *testing.T) {
	ev := HeaderedEvent{ArkDay: 1, ArkTime: "01:00:00", Message: "A Rex was born!", RawLine: "Day 1, 01:00:00: A Rex was born!"}
	out := ClassifyEvent("s", "t", ev, DefaultConfig())
	if out.EventHashV2 != "" {
		t.Errorf("low-signal category must not carry a v2 hash, got %q", out.EventHashV2)
	}
	if out.EventHash == "" {
		t.Error("v1 hash must always be present")
	}
}

func TestClassifyMessageTotal(t *testing.T) {
	parameters := gopter.DefaultTestParameters()
	parameters.MinSuccessfulTests = 300
	properties := gopter.NewProperties(parameters)

	valid := map[string]bool{
		SeverityInfo: true, SeverityWarning: true,
		SeveritySuccess: true, SeverityCritical: true,
	}
	cfg := DefaultConfig()

	properties.Property("every input classifies without panicking", prop.ForAll(
		func(msg string) bool {
			cls := ClassifyMessage(msg, cfg)
			return cls.Category != "" && cls.Actor != "" && valid[cls.Severity]
		},
		gen.AnyString(),
	))

	properties.Property("classification is deterministic", prop.ForAll(
		func(msg string) bool {
			return ClassifyMessage(msg, cfg) == ClassifyMessage(msg, cfg)
		},
		gen.AnyString(),
	))

	properties.TestingRun(t)
}
