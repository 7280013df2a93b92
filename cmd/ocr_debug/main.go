package main

import (
	"encoding/json"
	"flag"
	"fmt"
	"log"
	"os"

	"github.com/AZX-215/GravityCapture/pkg/ocr"
	"github.com/AZX-215/GravityCapture/pkg/tribelog"
)

// Debug tool: runs the full extraction pipeline on one screenshot and dumps
// every stage so preprocessing and rules can be tuned offline.
//
// usage: go run ./cmd/ocr_debug [-fast] [-engine NAME] [-json] <image>
func main() {
	fast := flag.Bool("fast", false, "fast mode (fewer variants)")
	engine := flag.String("engine", "", "engine hint")
	asJSON := flag.Bool("json", false, "dump events as JSON")
	server := flag.String("server", "", "server tag")
	tribe := flag.String("tribe", "", "tribe tag")
	flag.Parse()

	if flag.NArg() < 1 {
		fmt.Println("usage: go run ./cmd/ocr_debug [-fast] [-engine NAME] [-json] <image>")
		os.Exit(2)
	}
	data, err := os.ReadFile(flag.Arg(0))
	if err != nil {
		log.Fatalf("read image: %v", err)
	}

	if dir := os.Getenv("OCR_LEXICON_DIR"); dir != "" {
		ocr.LoadLexiconDir(dir)
	}
	router := ocr.NewRouter(ocr.OptionsFromEnv())
	res, err := router.ExtractText(data, *engine, *fast)
	if err != nil {
		log.Fatalf("extract: %v", err)
	}

	fmt.Printf("selected engine=%s variant=%s conf=%.3f merged=%v\n",
		res.Engine, res.Variant, res.Conf, res.MergedVariants)
	for _, c := range res.Candidates {
		fmt.Printf("  candidate %s/%s headers=%d critical=%d conf=%.3f lines=%d\n",
			c.Engine, c.Variant, c.HeaderHits, c.CriticalHits, c.MeanConf, c.LineCount)
	}

	lines := tribelog.StitchWrappedLines(res.LinesText())
	fmt.Printf("stitched %d logical lines:\n", len(lines))
	for _, l := range lines {
		fmt.Printf("  | %s\n", l)
	}

	cfg := tribelog.ConfigFromEnv()
	events := make([]tribelog.ParsedEvent, 0)
	for _, h := range tribelog.ParseHeaderLines(lines) {
		events = append(events, tribelog.ClassifyEvent(*server, *tribe, h, cfg))
	}
	if *asJSON {
		enc := json.NewEncoder(os.Stdout)
		enc.SetIndent("", "  ")
		_ = enc.Encode(events)
		return
	}
	fmt.Printf("%d events:\n", len(events))
	for _, ev := range events {
		fmt.Printf("  [%s/%s] Day %d, %s actor=%q %s\n",
			ev.Severity, ev.Category, ev.ArkDay, ev.ArkTime, ev.Actor, ev.Message)
	}
}
