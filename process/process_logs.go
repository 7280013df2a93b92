package main

import (
	"flag"
	"io"
	"log"
	"math"
	"os"
	"path/filepath"
	"runtime"
	"sort"
	"strings"
	"sync"
	"time"

	"github.com/disintegration/imaging"
	"github.com/fsnotify/fsnotify"
	"gorm.io/driver/postgres"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"

	"github.com/AZX-215/GravityCapture/models"
	"github.com/AZX-215/GravityCapture/pkg/ocr"
	"github.com/AZX-215/GravityCapture/pkg/tribelog"
)

// Global DB handle for helper funcs
var db *gorm.DB

// global flags (parsed in main)
var (
	verbose bool
	fast    bool
)

// pipeline configuration shared by workers
var (
	router    *ocr.Router
	logConfig tribelog.Config
	serverTag string
	tribeTag  string
	engineTag string
)

// dedupe cache so workers skip events already persisted without a query per line
type preloadState struct {
	seenHashes map[string]struct{}
	mu         sync.RWMutex
}

func newPreloadState() *preloadState {
	return &preloadState{seenHashes: make(map[string]struct{}, 4096)}
}

func (ps *preloadState) seen(hash string) bool {
	ps.mu.RLock()
	defer ps.mu.RUnlock()
	_, ok := ps.seenHashes[hash]
	return ok
}

func (ps *preloadState) mark(hash string) {
	ps.mu.Lock()
	ps.seenHashes[hash] = struct{}{}
	ps.mu.Unlock()
}

func mustInitDBFromEnv() *gorm.DB {
	dsn := os.Getenv("DB_DSN")
	if dsn == "" {
		log.Fatalf("DB_DSN must be set in environment to run this tool")
	}
	gdb, err := gorm.Open(postgres.Open(dsn), &gorm.Config{})
	if err != nil {
		log.Fatalf("failed to connect to database: %v", err)
	}
	return gdb
}

// Main: scans a directory of tribe-log screenshots, runs the OCR pipeline, persists captures and new events, optional watch mode.
func main() {
	dirFlag := flag.String("dir", "captures/inbox", "directory to scan for screenshots")
	userID := flag.Uint("user-id", 0, "User ID to assign captures to (if omitted attempts admin)")
	dryRun := flag.Bool("dry-run", false, "Skip all DB writes; run the pipeline and print events")
	watch := flag.Bool("watch", false, "Watch directory for new files")
	workers := flag.Int("workers", 0, "Worker pool size (default NumCPU)")
	flag.StringVar(&serverTag, "server", "", "Server name recorded on events")
	flag.StringVar(&tribeTag, "tribe", "", "Tribe name recorded on events")
	flag.StringVar(&engineTag, "engine", "", "OCR engine hint (default auto)")
	flag.BoolVar(&fast, "fast", false, "Fast mode: fewer variants, lower resolution cap")
	flag.BoolVar(&verbose, "verbose", false, "Verbose per-file logging")
	flag.Parse()

	opts := ocr.OptionsFromEnv()
	router = ocr.NewRouter(opts)
	logConfig = tribelog.ConfigFromEnv()
	if err := tribelog.SelfTest(logConfig); err != nil {
		log.Fatal(err)
	}
	if dir := os.Getenv("OCR_LEXICON_DIR"); dir != "" {
		ocr.LoadLexiconDir(dir)
	}

	if *dryRun {
		log.Printf("Dry-run: scanning %s (no DB interaction)", *dirFlag)
		files := listImageFiles(*dirFlag)
		log.Printf("Found %d candidate files", len(files))
		for _, f := range files {
			printEvents(filepath.Join(*dirFlag, f))
		}
		return
	}

	db = mustInitDBFromEnv()
	user := resolveUser(*userID)
	ps := preloadAll(user)
	log.Printf("Preloaded: known event hashes=%d", len(ps.seenHashes))

	files := listImageFiles(*dirFlag)
	log.Printf("Scanning %d files (workers=%d)", len(files), effectiveWorkers(*workers))
	runWorkerPool(*dirFlag, user, ps, files, effectiveWorkers(*workers))

	if *watch {
		if err := watchDirectory(*dirFlag, user, ps, effectiveWorkers(*workers)); err != nil {
			log.Fatalf("watch failed: %v", err)
		}
	}
}

func effectiveWorkers(w int) int {
	if w <= 0 {
		return runtime.NumCPU()
	}
	return w
}

func logV(format string, args ...any) {
	if verbose {
		log.Printf(format, args...)
	}
}

// printEvents runs the pipeline on one file and prints what would be stored.
func printEvents(path string) {
	events, res, err := extractFile(path)
	if err != nil {
		log.Printf("PIPELINE fail %s: %v", filepath.Base(path), err)
		return
	}
	log.Printf("%s engine=%s variant=%s conf=%.2f events=%d",
		filepath.Base(path), res.Engine, res.Variant, res.Conf, len(events))
	for _, ev := range events {
		logV("  [%s/%s] Day %d, %s: %s", ev.Severity, ev.Category, ev.ArkDay, ev.ArkTime, ev.Message)
	}
}

func extractFile(path string) ([]tribelog.ParsedEvent, *ocr.Result, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, nil, err
	}
	res, err := router.ExtractText(data, engineTag, fast)
	if err != nil {
		return nil, nil, err
	}
	lines := tribelog.StitchWrappedLines(res.LinesText())
	headered := tribelog.ParseHeaderLines(lines)
	events := make([]tribelog.ParsedEvent, 0, len(headered))
	for _, h := range headered {
		events = append(events, tribelog.ClassifyEvent(serverTag, tribeTag, h, logConfig))
	}
	return events, res, nil
}

// preloadAll fetches existing event hashes to minimize per-file queries.
func preloadAll(user models.User) *preloadState {
	ps := newPreloadState()
	var hashes []string
	if err := db.Model(&models.TribeEvent{}).Where("user_id = ?", user.ID).
		Pluck("event_hash", &hashes).Error; err == nil {
		for _, h := range hashes {
			ps.seenHashes[h] = struct{}{}
		}
	}
	return ps
}

// resolveUser finds the owning user either by explicit id or by admin username.
func resolveUser(id uint) models.User {
	var u models.User
	if id != 0 {
		if err := db.First(&u, id).Error; err != nil {
			log.Fatalf("failed to find user id %d: %v", id, err)
		}
		return u
	}
	if err := db.Where("username = ?", "admin").First(&u).Error; err != nil {
		log.Fatalf("no --user-id provided and admin user not found: %v", err)
	}
	return u
}

func listImageFiles(dir string) []string {
	entries, err := os.ReadDir(dir)
	if err != nil {
		return nil
	}
	var out []string
	for _, e := range entries {
		if e.IsDir() {
			continue
		}
		if !isSupportedExt(e.Name()) {
			continue
		}
		out = append(out, e.Name())
	}
	sort.Strings(out)
	return out
}

func watchDirectory(dir string, user models.User, ps *preloadState, workers int) error {
	w, err := fsnotify.NewWatcher()
	if err != nil {
		return err
	}
	defer w.Close()
	if err := w.Add(dir); err != nil {
		return err
	}
	log.Printf("Watching %s (debounced) ...", dir)

	fileCh := make(chan string, 256)
	go func() {
		// simple debounce map of pending files
		pending := map[string]time.Time{}
		ticker := time.NewTicker(250 * time.Millisecond)
		defer ticker.Stop()
		for {
			select {
			case ev, ok := <-w.Events:
				if !ok {
					close(fileCh)
					return
				}
				if ev.Op&fsnotify.Create == fsnotify.Create {
					name := filepath.Base(ev.Name)
					if !isSupportedExt(name) {
						continue
					}
					pending[name] = time.Now()
				}
			case <-ticker.C:
				now := time.Now()
				for name, t := range pending {
					if now.Sub(t) > 300*time.Millisecond { // stable
						fileCh <- name
						delete(pending, name)
					}
				}
			case err, ok := <-w.Errors:
				if !ok {
					close(fileCh)
					return
				}
				log.Printf("watch error: %v", err)
			}
		}
	}()

	// Use worker pool for watch events too
	go runWorkerPool(dir, user, ps, nil, workers, fileCh)
	// block forever (Ctrl+C to exit)
	select {}
}

func isSupportedExt(name string) bool {
	ext := strings.ToLower(filepath.Ext(name))
	switch ext {
	case ".png", ".jpg", ".jpeg", ".gif", ".webp":
		return true
	}
	return false
}

// worker pool orchestrator
func runWorkerPool(dir string, user models.User, ps *preloadState, initial []string, workers int, extraCh ...<-chan string) {
	fileCh := make(chan string, 1024)
	var wg sync.WaitGroup
	for i := 0; i < workers; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			for name := range fileCh {
				processSingleFile(dir, name, user, ps)
			}
		}()
	}
	// feed initial
	go func() {
		for _, f := range initial {
			fileCh <- f
		}
		// also relay from extra channels if provided
		for _, ch := range extraCh {
			go func(c <-chan string) {
				for n := range c {
					fileCh <- n
				}
			}(ch)
		}
		// if no extraCh (scan only) close when done
		if len(extraCh) == 0 {
			close(fileCh)
		}
	}()
	if len(extraCh) == 0 {
		wg.Wait()
	}
}

// processSingleFile runs the pipeline on one screenshot and persists the
// capture plus any events not already known.
func processSingleFile(dir, name string, user models.User, ps *preloadState) {
	filePath := filepath.Join(dir, name)

	events, res, err := extractFile(filePath)
	capture := models.Capture{
		UserID:    user.ID,
		FileName:  name,
		StorePath: filepath.ToSlash(filePath),
		Server:    serverTag,
		Tribe:     tribeTag,
	}
	if err != nil {
		capture.Failed = true
		capture.FailedReason = err.Error()
		if dbErr := db.Create(&capture).Error; dbErr != nil {
			log.Printf("ERROR record failed capture %s: %v", name, dbErr)
		}
		log.Printf("PIPELINE fail %s: %v", name, err)
		return
	}
	capture.Engine = res.Engine
	capture.Variant = res.Variant
	capture.Confidence = res.Conf
	capture.LineCount = len(res.Lines)
	capture.EventCount = len(events)
	if err := db.Create(&capture).Error; err != nil {
		log.Printf("ERROR create capture %s: %v", name, err)
		return
	}

	inserted := 0
	for _, ev := range events {
		if ps.seen(ev.EventHash) {
			logV("SKIP known event %s", ev.EventHash[:12])
			continue
		}
		row := models.TribeEvent{
			UserID:         user.ID,
			CaptureID:      &capture.ID,
			Server:         ev.Server,
			Tribe:          ev.Tribe,
			ArkDay:         ev.ArkDay,
			ArkTime:        ev.ArkTime,
			Severity:       ev.Severity,
			Category:       ev.Category,
			Actor:          ev.Actor,
			Message:        ev.Message,
			RawLine:        ev.RawLine,
			EventHash:      ev.EventHash,
			NormalizedText: ev.NormalizedText,
			Fingerprint:    ev.Fingerprint,
		}
		if ev.EventHashV2 != "" {
			v2 := ev.EventHashV2
			row.EventHashV2 = &v2
		}
		result := db.Clauses(clause.OnConflict{DoNothing: true}).Create(&row)
		if result.Error != nil {
			if !isUniqueConstraintError(result.Error) {
				log.Printf("ERROR create event %s: %v", name, result.Error)
			}
			ps.mark(ev.EventHash)
			continue
		}
		ps.mark(ev.EventHash)
		if result.RowsAffected > 0 {
			inserted++
		}
	}
	capture.NewEventCount = inserted
	_ = db.Save(&capture).Error
	log.Printf("CAPTURE id=%d file=%s variant=%s events=%d new=%d",
		capture.ID, name, res.Variant, len(events), inserted)

	if err := moveToProcessed(filePath, name); err != nil {
		log.Printf("WARN failed to move processed file %s: %v", name, err)
	} else {
		logV("moved processed %s", name)
	}
}

func isUniqueConstraintError(err error) bool {
	if err == nil {
		return false
	}
	s := err.Error()
	return strings.Contains(s, "duplicate key") || strings.Contains(s, "unique constraint") || strings.Contains(s, "already exists")
}

// moveToProcessed moves a file from the inbox into captures/processed.
// It attempts an atomic rename and falls back to copy+remove when necessary.
// Oversized screenshots get resized down so the archive stays bounded.
func moveToProcessed(srcFullPath, name string) error {
	const maxBytes = 2_000_000 // 2 MB budget
	processedDir := filepath.Join("captures", "processed")
	if err := os.MkdirAll(processedDir, 0o755); err != nil {
		return err
	}
	dst := filepath.Join(processedDir, name)

	fi, err := os.Stat(srcFullPath)
	if err != nil {
		return err
	}
	// Fast path: already small enough -> attempt rename/copy
	if fi.Size() <= maxBytes {
		if err := os.Rename(srcFullPath, dst); err == nil {
			return nil
		}
		return copyRemove(srcFullPath, dst)
	}
	img, err := imaging.Open(srcFullPath)
	if err != nil { // fallback to raw move if cannot decode
		if err := os.Rename(srcFullPath, dst); err == nil {
			return nil
		}
		return copyRemove(srcFullPath, dst)
	}
	// Estimate scale factor based on sqrt(max/current) (size roughly scales with area)
	scale := math.Sqrt(float64(maxBytes) / float64(fi.Size()))
	if scale > 0.95 {
		scale = 0.95
	}
	if scale < 0.1 { // avoid absurd downscale
		scale = 0.1
	}
	if scale < 1 {
		w := img.Bounds().Dx()
		newW := int(math.Max(1, math.Round(float64(w)*scale)))
		newH := int(math.Max(1, math.Round(float64(img.Bounds().Dy())*scale)))
		img = imaging.Resize(img, newW, newH, imaging.Lanczos)
	}
	if err := imaging.Save(img, dst); err != nil {
		if err := os.Rename(srcFullPath, dst); err == nil {
			return nil
		}
		return copyRemove(srcFullPath, dst)
	}
	_ = os.Remove(srcFullPath)
	return nil
}

func copyRemove(src, dst string) error {
	in, err := os.Open(src)
	if err != nil {
		return err
	}
	defer in.Close()
	out, err := os.Create(dst)
	if err != nil {
		return err
	}
	if _, err := io.Copy(out, in); err != nil {
		_ = out.Close()
		_ = os.Remove(dst)
		return err
	}
	_ = out.Close()
	if err := os.Remove(src); err != nil {
		return err
	}
	return nil
}
