package tribelog

import "fmt"

type selfTestCase struct {
	message  string
	category string
	severity string
}

// selfTestCases are canonical messages for every load-bearing rule. They run
// at startup so a bad lexicon or rule edit fails fast instead of silently
// misclassifying live events.
var selfTestCases = []selfTestCase{
	{"Your Thatch Wall was destroyed by Human!", CategoryStructureDestroyed, SeverityCritical},
	{"Your Metal Foundation was auto-decayed!", CategoryAutoDecayDestroyed, SeverityWarning},
	{"Your Raptor - Lvl 50 starved to death!", CategoryTameStarved, SeverityWarning},
	{"Your Rex - Lvl 300 was killed by a Giganotosaurus - Lvl 120!", CategoryTameDied, SeverityCritical},
	{"Your Parasaur - Lvl 10 was killed!", CategoryTameDied, SeverityWarning},
	{"Tribemember Bob was killed by Alice - Lvl 100!", CategoryTribememberWasKilled, SeverityCritical},
	{"Your Tribe killed Alice - Lvl 100 (Riding a Pteranodon - Lvl 80)!", CategoryTribeKilledPlayer, SeverityCritical},
	{"Your Tribe killed Wild Dilophosaur - Lvl 4!", CategoryTribeKilledCreature, SeverityCritical},
	{"Your Tribe Tamed a Rex - Lvl 145!", CategoryTameTamed, SeveritySuccess},
	{"A Rex was born!", CategoryBirthHatched, SeverityInfo},
	{"Bob joined the Tribe!", CategoryTribeMemberJoined, SeverityInfo},
	{"Bob was removed from the Tribe!", CategoryTribeMemberRemoved, SeverityCritical},
	{"Tribe Owner was changed to Bob!", CategoryTribeOwnershipChanged, SeverityCritical},
	{"Tribe Name was changed to Alphas!", CategoryTribeRenamed, SeverityInfo},
	{"Bob demolished a Wooden Wall!", CategoryStructureDemolished, SeverityInfo},
	{"Your Tribe destroyed their Stone Foundation!", CategoryEnemyStructureDestroyed, SeveritySuccess},
}

// SelfTest classifies a fixed set of canonical messages and returns an error
// describing the first mismatch, or nil if all pass.
func SelfTest(cfg Config) error {
	for _, tc := range selfTestCases {
		want := tc.severity
		if cfg.TieredStructureSeverity && tc.category == CategoryStructureDestroyed &&
			!isHighValueStructure(tc.message, cfg.highValue()) {
			want = SeverityWarning
		}
		got := ClassifyMessage(tc.message, cfg)
		if got.Category != tc.category || got.Severity != want {
			return fmt.Errorf("classifier self-test: %q -> %s/%s, want %s/%s",
				tc.message, got.Category, got.Severity, tc.category, want)
		}
	}
	return nil
}
