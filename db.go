package main

import (
	"log"
	"os"
	"strings"

	"gorm.io/driver/postgres"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"

	"github.com/AZX-215/GravityCapture/models"
	"github.com/AZX-215/GravityCapture/pkg/tribelog"

	"golang.org/x/crypto/bcrypt"
)

var db *gorm.DB

func initDB() {
	var err error
	dsn := os.Getenv("DB_DSN")
	if dsn == "" {
		log.Fatal("DB_DSN is not set. This project requires a Postgres DSN in DB_DSN.")
	}
	db, err = gorm.Open(postgres.Open(dsn), &gorm.Config{})
	if err != nil {
		log.Fatal("failed to connect postgres database:", err)
	}
	// Control schema migrations with env DB_AUTO_MIGRATE (default true). Any permission errors will be logged and ignored.
	shouldMigrate := true
	if v := os.Getenv("DB_AUTO_MIGRATE"); v != "" {
		lv := strings.ToLower(v)
		if lv == "false" || lv == "0" || lv == "no" {
			shouldMigrate = false
		}
	}
	// Ensure the roles master table exists first and seed it so users FK can be applied safely.
	if shouldMigrate {
		if err := db.AutoMigrate(&models.Role{}); err != nil {
			log.Printf("migration warning (roles): %v", err)
		}
	}
	seedRoles()

	if shouldMigrate {
		// Migrate models individually so a failure on one doesn't block others
		if err := db.AutoMigrate(&models.User{}); err != nil {
			log.Printf("migration warning (users): %v", err)
		}
		if err := db.AutoMigrate(&models.RefreshToken{}); err != nil {
			log.Printf("migration warning (refresh_tokens): %v", err)
		}
		if err := db.AutoMigrate(&models.Capture{}); err != nil {
			log.Printf("migration warning (captures): %v", err)
		}
		if err := db.AutoMigrate(&models.TribeEvent{}); err != nil {
			log.Printf("migration warning (tribe_events): %v", err)
		}
	}
	seedDB()
}

func seedRoles() {
	roles := []models.Role{{Name: "administrator", Description: "full access"}, {Name: "user", Description: "regular user"}}
	for _, r := range roles {
		var cnt int64
		db.Model(&models.Role{}).Where("name = ?", r.Name).Count(&cnt)
		if cnt == 0 {
			db.Create(&r)
		}
	}
}

func seedDB() {
	seedRoles()

	var count int64
	db.Model(&models.User{}).Where("username = ?", "admin").Count(&count)
	if count == 0 {
		var role models.Role
		if err := db.Where("name = ?", "administrator").First(&role).Error; err != nil {
			log.Printf("failed to find administrator role: %v", err)
		}
		rid := role.ID
		admin := models.User{
			Username: "admin",
			RoleID:   &rid,
		}
		hashedPassword, _ := bcrypt.GenerateFromPassword([]byte("admin123"), bcrypt.DefaultCost)
		admin.HashedPassword = hashedPassword
		db.Create(&admin)
		log.Println("Seeded admin user: username=admin, password=admin123")
	}
	ensureUploadBase()
}

// insertEvents persists parsed events with insert-or-ignore semantics and
// returns the events that were actually new. Duplicate rows (same user and
// v1 hash, or same v2 hash) are skipped silently so re-ingesting an
// overlapping screenshot is idempotent.
func insertEvents(userID uint, captureID *uint, events []tribelog.ParsedEvent) ([]tribelog.ParsedEvent, error) {
	inserted := make([]tribelog.ParsedEvent, 0, len(events))
	for _, ev := range events {
		row := models.TribeEvent{
			UserID:         userID,
			CaptureID:      captureID,
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
		res := db.Clauses(clause.OnConflict{DoNothing: true}).Create(&row)
		if res.Error != nil {
			if isUniqueConstraintError(res.Error) {
				continue
			}
			return inserted, res.Error
		}
		if res.RowsAffected > 0 {
			inserted = append(inserted, ev)
		}
	}
	return inserted, nil
}

// ensureUploadBase creates the base directory where captures are stored.
func ensureUploadBase() {
	base := uploadBaseDir()
	if err := os.MkdirAll(base, 0755); err != nil {
		log.Printf("failed to create upload base dir %s: %v", base, err)
	}
}

// uploadBaseDir returns the base directory for stored captures (configurable via UPLOAD_BASE env)
func uploadBaseDir() string {
	if v := os.Getenv("UPLOAD_BASE"); v != "" {
		return v
	}
	return "uploads"
}
