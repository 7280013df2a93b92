package tribelog

import "testing"

func TestEventHashPure(t *testing.T) {
	a := EventHash("srv", "tribe", 12, "08:15:30", CategoryTameDied, "Your Rex was killed!")
	b := EventHash("srv", "tribe", 12, "08:15:30", CategoryTameDied, "Your Rex was killed!")
	if a != b {
		t.Error("hash must be a pure function of its inputs")
	}
	if len(a) != 40 {
		t.Errorf("sha1 hex length 40, got %d", len(a))
	}
	if a == EventHash("srv", "tribe", 12, "08:15:31", CategoryTameDied, "Your Rex was killed!") {
		t.Error("different time must change the hash")
	}
	if a == EventHash("srv", "tribe", 13, "08:15:30", CategoryTameDied, "Your Rex was killed!") {
		t.Error("different day must change the hash")
	}
	if a == EventHash("srv", "tribe", 12, "08:15:30", CategoryTribememberWasKilled, "Your Rex was killed!") {
		t.Error("different category must change the hash")
	}
	// v1 is deliberately exact: any message difference changes it
	if a == EventHash("srv", "tribe", 12, "08:15:30", CategoryTameDied, "Your Rex was killed") {
		t.Error("message difference must change v1")
	}
}

func TestEventHashCaseInsensitive(t *testing.T) {
	a := EventHash("Srv", "Tribe", 1, "01:00:00", CategoryTameDied, "Your Rex Was Killed!")
	b := EventHash("srv", "tribe", 1, "01:00:00", CategoryTameDied, "your rex was killed!")
	if a != b {
		t.Error("v1 hash should be case-insensitive")
	}
}

func TestEventHashV2ToleratesMisreads(t *testing.T) {
	a, na := EventHashV2("srv", "tribe", 12, "08:15:30", CategoryTameDied, "Human",
		"Your Rex - Lvl 300 was killed by Human!")
	b, nb := EventHashV2("srv", "tribe", 12, "08:15:30", CategoryTameDied, "Human",
		"Your Rex - Lvl 3OO was killed-by Human!!")
	if a != b {
		t.Errorf("misread variants should collapse to one v2 hash:\n  %s (%q)\n  %s (%q)", a, na, b, nb)
	}
	if len(a) != 64 {
		t.Errorf("sha256 hex length 64, got %d", len(a))
	}
	c, _ := EventHashV2("srv", "tribe", 12, "08:15:30", CategoryTameDied, "Human",
		"Your Ankylosaurus - Lvl 300 was killed by Human!")
	if a == c {
		t.Error("genuinely different events must not collide")
	}
}

func TestFingerprint64(t *testing.T) {
	a := Fingerprint64("your rex lvl 300 was killed by human")
	if a == 0 {
		t.Fatal("fingerprint of a real text should be non-zero")
	}
	if a != Fingerprint64("your rex lvl 300 was killed by human") {
		t.Error("fingerprint must be deterministic")
	}
	if Fingerprint64("") != 0 {
		t.Error("empty text fingerprints to zero")
	}
}

func TestFingerprintLocality(t *testing.T) {
	base := Fingerprint64("your rex lvl 300 was killed by human on the beach")
	near := Fingerprint64("your rex lvl 301 was killed by human on the beach")
	if d := HammingDistance(base, near); d > 24 {
		t.Errorf("near-duplicate texts should have small Hamming distance, got %d", d)
	}
	if HammingDistance(base, base) != 0 {
		t.Error("identical fingerprints have distance zero")
	}
	far := Fingerprint64("tribe renamed to the new alliance of the east")
	if base == far {
		t.Error("unrelated texts should not share a fingerprint")
	}
}

func TestHighValueStructureKeywords(t *testing.T) {
	kws := DefaultHighValueStructures
	if !isHighValueStructure("Your Tek Generator was destroyed!", kws) {
		t.Error("tek generator is high value")
	}
	if !isHighValueStructure("Your Heavy Auto Turret was destroyed!", kws) {
		t.Error("heavy auto turret is high value")
	}
	if isHighValueStructure("Your Thatch Wall was destroyed!", kws) {
		t.Error("thatch wall is not high value")
	}
}

func TestHighSignalCategories(t *testing.T) {
	if !isHighSignal(CategoryTameDied) || !isHighSignal(CategoryStructureDestroyed) {
		t.Error("attributed losses are high signal")
	}
	if isHighSignal(CategoryBirthHatched) || isHighSignal(CategoryUnknown) {
		t.Error("routine events are not high signal")
	}
}
