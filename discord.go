package main

import (
	"bytes"
	"encoding/json"
	"fmt"
	"log"
	"net/http"
	"os"
	"strings"
	"time"

	"github.com/AZX-215/GravityCapture/pkg/tribelog"
)

var webhookClient = &http.Client{Timeout: 5 * time.Second}

// alertSeverities maps ALERT_MIN_SEVERITY to the set of severities that
// trigger a webhook post. SUCCESS ranks alongside WARNING: a successful
// enemy kill is as alert-worthy as a decay warning.
func alertSeverities() map[string]bool {
	min := strings.ToUpper(strings.TrimSpace(os.Getenv("ALERT_MIN_SEVERITY")))
	switch min {
	case "", "CRITICAL":
		return map[string]bool{tribelog.SeverityCritical: true}
	case "WARNING", "SUCCESS":
		return map[string]bool{
			tribelog.SeverityCritical: true,
			tribelog.SeverityWarning:  true,
			tribelog.SeveritySuccess:  true,
		}
	default:
		return map[string]bool{
			tribelog.SeverityCritical: true,
			tribelog.SeverityWarning:  true,
			tribelog.SeveritySuccess:  true,
			tribelog.SeverityInfo:     true,
		}
	}
}

// notifyEvents posts newly inserted events to the configured Discord
// webhook. Failures are logged and never affect ingestion.
func notifyEvents(events []tribelog.ParsedEvent) {
	url := os.Getenv("DISCORD_WEBHOOK_URL")
	if url == "" || len(events) == 0 {
		return
	}
	wanted := alertSeverities()
	var lines []string
	for _, ev := range events {
		if !wanted[ev.Severity] {
			continue
		}
		lines = append(lines, fmt.Sprintf("[%s] Day %d, %s: %s", ev.Severity, ev.ArkDay, ev.ArkTime, ev.Message))
	}
	if len(lines) == 0 {
		return
	}
	// Discord caps message content at 2000 chars; trim rather than split.
	content := strings.Join(lines, "\n")
	if len(content) > 1900 {
		content = content[:1900] + "\n..."
	}
	payload, err := json.Marshal(map[string]string{"content": content})
	if err != nil {
		return
	}
	resp, err := webhookClient.Post(url, "application/json", bytes.NewReader(payload))
	if err != nil {
		log.Printf("webhook post failed: %v", err)
		return
	}
	defer resp.Body.Close()
	if resp.StatusCode >= 300 {
		log.Printf("webhook post returned status %d", resp.StatusCode)
	}
}
