package tribelog

import (
	"crypto/sha1"
	"crypto/sha256"
	"encoding/hex"
	"fmt"
	"math/bits"
	"regexp"
	"strings"

	"github.com/spaolacci/murmur3"

	"github.com/AZX-215/GravityCapture/pkg/ocr"
)

// EventHash is the legacy exact-dedupe hash over (server, tribe, day, time,
// category, message). It is a pure function of the event identity fields;
// any OCR variation in the message changes it.
func EventHash(server, tribe string, arkDay int, arkTime, category, message string) string {
	basis := strings.ToLower(strings.Join([]string{
		strings.TrimSpace(server),
		strings.TrimSpace(tribe),
		fmt.Sprintf("%d", arkDay),
		strings.TrimSpace(arkTime),
		strings.TrimSpace(category),
		strings.TrimSpace(message),
	}, "|"))
	sum := sha1.Sum([]byte(basis))
	return hex.EncodeToString(sum[:])
}

// EventHashV2 is the OCR-tolerant hash. The message is aggressively
// normalized first so that common misreads (digit/letter confusion, level
// formatting, spacing) collapse to the same digest. It also returns the
// normalized text used as the hashing basis.
func EventHashV2(server, tribe string, arkDay int, arkTime, category, actor, message string) (string, string) {
	norm := ocr.AggressiveNormalize(message)
	basis := strings.ToLower(strings.Join([]string{
		strings.TrimSpace(server),
		strings.TrimSpace(tribe),
		fmt.Sprintf("%d", arkDay),
		strings.TrimSpace(arkTime),
		strings.TrimSpace(category),
		strings.TrimSpace(actor),
		norm,
	}, "|"))
	sum := sha256.Sum256([]byte(basis))
	return hex.EncodeToString(sum[:]), norm
}

var rxFPToken = regexp.MustCompile(`[a-z0-9]+`)

// Fingerprint64 computes a 64-bit simhash of the normalized event text.
// Similar texts yield fingerprints with small Hamming distance, which lets
// near-duplicate queries use XOR + popcount instead of string comparison.
func Fingerprint64(text string) int64 {
	tokens := rxFPToken.FindAllString(strings.ToLower(text), -1)
	if len(tokens) == 0 {
		return 0
	}
	var votes [64]int
	for _, tok := range tokens {
		h := murmur3.Sum64([]byte(tok))
		for b := 0; b < 64; b++ {
			if h&(1<<uint(b)) != 0 {
				votes[b]++
			} else {
				votes[b]--
			}
		}
	}
	var fp uint64
	for b := 0; b < 64; b++ {
		if votes[b] > 0 {
			fp |= 1 << uint(b)
		}
	}
	return int64(fp)
}

// HammingDistance counts differing bits between two fingerprints.
func HammingDistance(a, b int64) int {
	return bits.OnesCount64(uint64(a) ^ uint64(b))
}

// highSignalCategories are the categories where OCR-tolerant dedupe pays
// off: attributed deaths and structure loss, which the game repeats across
// frames and players screenshot repeatedly.
var highSignalCategories = map[string]bool{
	CategoryTameDied:                true,
	CategoryTameStarved:             true,
	CategoryTribememberWasKilled:    true,
	CategoryStructureDestroyed:      true,
	CategoryEnemyStructureDestroyed: true,
}

// DefaultHighValueStructures lists structure keywords whose destruction
// keeps CRITICAL severity under tiered structure severity.
var DefaultHighValueStructures = []string{
	"tek generator",
	"electrical generator",
	"generator",
	"vault",
	"heavy auto turret",
	"auto turret",
	"tek turret",
	"plant species x",
	"cryofridge",
	"tek replicator",
	"replicator",
	"tek transmitter",
	"transmitter",
	"tek teleporter",
	"teleporter",
	"industrial forge",
	"fabricator",
	"chemistry bench",
	"refrigerator",
	"tek trough",
	"feeding trough",
}

func isHighSignal(category string) bool {
	return highSignalCategories[category]
}

func isHighValueStructure(msg string, keywords []string) bool {
	low := strings.ToLower(msg)
	for _, kw := range keywords {
		if strings.Contains(low, kw) {
			return true
		}
	}
	return false
}
