package ocr

import (
	"bufio"
	_ "embed"
	"log"
	"os"
	"path/filepath"
	"regexp"
	"sort"
	"strings"
	"sync"
	"time"

	"github.com/fsnotify/fsnotify"
)

//go:embed data/ark_creatures.txt
var creaturesRaw string

//go:embed data/ark_structures.txt
var structuresRaw string

//go:embed data/ark_vehicles.txt
var vehiclesRaw string

// Lexicon canonicalizes recognized substrings against one static name list.
// Matching is longest-name-first, case-insensitive, and tolerant of internal
// hyphen/space noise ("Snow-Owl", "Snow  Owl" -> "Snow Owl").
type Lexicon struct {
	canon map[string]string
	rx    *regexp.Regexp
}

var canonKeySep = regexp.MustCompile(`[\s\-]+`)

// CanonKey normalizes a name for lexicon lookup.
func CanonKey(s string) string {
	return canonKeySep.ReplaceAllString(strings.ToLower(strings.TrimSpace(s)), " ")
}

// NewLexicon compiles a name list into a canonicalizer.
func NewLexicon(names []string) *Lexicon {
	uniq := map[string]string{}
	var keep []string
	for _, nm := range names {
		nm = strings.TrimSpace(nm)
		if nm == "" {
			continue
		}
		key := CanonKey(nm)
		if _, ok := uniq[key]; !ok {
			uniq[key] = nm
			keep = append(keep, nm)
		}
	}
	// Longest first so "Heavy Auto Turret" wins over "Auto Turret".
	sort.Slice(keep, func(i, j int) bool { return len(keep[i]) > len(keep[j]) })

	pats := make([]string, 0, len(keep))
	for _, nm := range keep {
		parts := strings.Fields(canonKeySep.ReplaceAllString(nm, " "))
		esc := make([]string, len(parts))
		for i, p := range parts {
			esc[i] = regexp.QuoteMeta(p)
		}
		pats = append(pats, strings.Join(esc, `[\s\-]*`))
	}
	if len(pats) == 0 {
		return &Lexicon{canon: uniq, rx: regexp.MustCompile(`$^`)}
	}
	rx := regexp.MustCompile(`(?i)\b(?:` + strings.Join(pats, "|") + `)\b`)
	return &Lexicon{canon: uniq, rx: rx}
}

// Canonicalize rewrites every lexicon match to its canonical spelling.
func (l *Lexicon) Canonicalize(text string) string {
	return l.rx.ReplaceAllStringFunc(text, func(m string) string {
		if c, ok := l.canon[CanonKey(m)]; ok {
			return c
		}
		return m
	})
}

// Names returns the canonical names, for diagnostics and tests.
func (l *Lexicon) Names() []string {
	out := make([]string, 0, len(l.canon))
	for _, v := range l.canon {
		out = append(out, v)
	}
	sort.Strings(out)
	return out
}

// Lexicons bundles the three domain name lists.
type Lexicons struct {
	Creatures  *Lexicon
	Structures *Lexicon
	Vehicles   *Lexicon
}

func splitList(raw string) []string {
	var out []string
	sc := bufio.NewScanner(strings.NewReader(raw))
	for sc.Scan() {
		if s := strings.TrimSpace(sc.Text()); s != "" && !strings.HasPrefix(s, "#") {
			out = append(out, s)
		}
	}
	return out
}

func builtinLexicons() *Lexicons {
	return &Lexicons{
		Creatures:  NewLexicon(splitList(creaturesRaw)),
		Structures: NewLexicon(splitList(structuresRaw)),
		Vehicles:   NewLexicon(splitList(vehiclesRaw)),
	}
}

// loadLexiconDir reads the three override lists from dir. A missing file
// falls back to the built-in list for that category.
func loadLexiconDir(dir string) *Lexicons {
	read := func(name, fallback string) []string {
		b, err := os.ReadFile(filepath.Join(dir, name))
		if err != nil {
			return splitList(fallback)
		}
		return splitList(string(b))
	}
	return &Lexicons{
		Creatures:  NewLexicon(read("ark_creatures.txt", creaturesRaw)),
		Structures: NewLexicon(read("ark_structures.txt", structuresRaw)),
		Vehicles:   NewLexicon(read("ark_vehicles.txt", vehiclesRaw)),
	}
}

var (
	lexMu  sync.RWMutex
	lexSet = builtinLexicons()
)

// ActiveLexicons returns the process-wide lexicons. Read-only after load;
// the watcher swaps the whole set atomically under the lock.
func ActiveLexicons() *Lexicons {
	lexMu.RLock()
	defer lexMu.RUnlock()
	return lexSet
}

func setLexicons(l *Lexicons) {
	lexMu.Lock()
	lexSet = l
	lexMu.Unlock()
}

// LoadLexiconDir loads lexicon overrides from dir once.
func LoadLexiconDir(dir string) {
	setLexicons(loadLexiconDir(dir))
}

// WatchLexiconDir loads overrides from dir and reloads them (debounced)
// whenever a file in dir changes. Returns a stop function.
func WatchLexiconDir(dir string) (func(), error) {
	setLexicons(loadLexiconDir(dir))
	w, err := fsnotify.NewWatcher()
	if err != nil {
		return nil, err
	}
	if err := w.Add(dir); err != nil {
		_ = w.Close()
		return nil, err
	}
	done := make(chan struct{})
	go func() {
		var pending time.Time
		ticker := time.NewTicker(250 * time.Millisecond)
		defer ticker.Stop()
		for {
			select {
			case ev, ok := <-w.Events:
				if !ok {
					return
				}
				if ev.Op&(fsnotify.Create|fsnotify.Write|fsnotify.Rename) != 0 {
					pending = time.Now()
				}
			case <-ticker.C:
				if !pending.IsZero() && time.Since(pending) > 300*time.Millisecond {
					setLexicons(loadLexiconDir(dir))
					log.Printf("lexicons reloaded from %s", dir)
					pending = time.Time{}
				}
			case err, ok := <-w.Errors:
				if !ok {
					return
				}
				log.Printf("lexicon watch error: %v", err)
			case <-done:
				return
			}
		}
	}()
	return func() { close(done); _ = w.Close() }, nil
}
