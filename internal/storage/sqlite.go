package storage

import (
	"database/sql"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"time"

	"github.com/glebarez/sqlite"
	"github.com/himanishpuri/AVSync/pkg/models"
	"gorm.io/gorm"
	"gorm.io/gorm/logger"
)

const DefaultDBFile = "avsync.sqlite3"
const errDBClientNil = "db client is nil"

type DBClient struct {
	DB *gorm.DB
	db *sql.DB
}

// PairRun is one journal row.
type PairRun struct {
	ID             uint   `gorm:"primaryKey;autoIncrement"`
	RunID          string `gorm:"type:varchar(36);uniqueIndex:idx_run_id"`
	First          string `gorm:"index:idx_pair,priority:1"`
	Second         string `gorm:"index:idx_pair,priority:2"`
	Method         string
	OffsetSec      float64
	SanityExceeded bool
	Unresolved     bool
	Start1         float64
	Start2         float64
	DurationSec    float64
	Status         string `gorm:"index:idx_status"`
	Error          string
	CreatedAt      time.Time `gorm:"index:idx_created"`
}

// NewDBClient opens (and migrates) the journal at dbPath.
func NewDBClient(dbPath string) (*DBClient, error) {
	if dbPath == "" {
		dbPath = DefaultDBFile
	}
	if dir := filepath.Dir(dbPath); dir != "." {
		if err := os.MkdirAll(dir, 0o755); err != nil {
			return nil, fmt.Errorf("creating db dir: %w", err)
		}
	}

	gormConfig := &gorm.Config{
		Logger: logger.Default.LogMode(logger.Silent),
	}

	db, err := gorm.Open(sqlite.Open(dbPath+"?_pragma=busy_timeout(5000)"), gormConfig)
	if err != nil {
		return nil, fmt.Errorf("opening sqlite db: %w", err)
	}

	sqlDB, err := db.DB()
	if err != nil {
		return nil, fmt.Errorf("getting sql.DB from gorm: %w", err)
	}

	// Batch workers share one writer.
	sqlDB.SetMaxOpenConns(1)
	sqlDB.SetConnMaxLifetime(time.Hour)

	if err := db.AutoMigrate(&PairRun{}); err != nil {
		sqlDB.Close()
		return nil, fmt.Errorf("auto migrate: %w", err)
	}

	return &DBClient{DB: db, db: sqlDB}, nil
}

func (c *DBClient) Close() error {
	if c == nil || c.db == nil {
		return nil
	}
	return c.db.Close()
}

// Record appends one pair outcome.
func (c *DBClient) Record(entry models.JournalEntry) error {
	if c == nil || c.DB == nil {
		return errors.New(errDBClientNil)
	}
	if entry.RunID == "" {
		return errors.New("journal entry without run id")
	}
	row := toRow(entry)
	if err := c.DB.Create(&row).Error; err != nil {
		return fmt.Errorf("recording run %s: %w", entry.RunID, err)
	}
	return nil
}

// Recent returns up to limit entries, newest first.
func (c *DBClient) Recent(limit int) ([]models.JournalEntry, error) {
	if c == nil || c.DB == nil {
		return nil, errors.New(errDBClientNil)
	}
	if limit <= 0 {
		limit = 20
	}
	var rows []PairRun
	if err := c.DB.Order("created_at DESC").Order("id DESC").Limit(limit).Find(&rows).Error; err != nil {
		return nil, fmt.Errorf("querying journal: %w", err)
	}
	out := make([]models.JournalEntry, 0, len(rows))
	for _, r := range rows {
		out = append(out, fromRow(r))
	}
	return out, nil
}

// ByRunID returns the entry recorded for runID.
func (c *DBClient) ByRunID(runID string) (models.JournalEntry, error) {
	if c == nil || c.DB == nil {
		return models.JournalEntry{}, errors.New(errDBClientNil)
	}
	var row PairRun
	if err := c.DB.Where("run_id = ?", runID).First(&row).Error; err != nil {
		return models.JournalEntry{}, fmt.Errorf("querying run %s: %w", runID, err)
	}
	return fromRow(row), nil
}

// CountByStatus returns the number of entries per status.
func (c *DBClient) CountByStatus() (map[string]int64, error) {
	if c == nil || c.DB == nil {
		return nil, errors.New(errDBClientNil)
	}
	var rows []struct {
		Status string
		N      int64
	}
	if err := c.DB.Model(&PairRun{}).Select("status, count(*) as n").Group("status").Scan(&rows).Error; err != nil {
		return nil, fmt.Errorf("counting journal: %w", err)
	}
	out := make(map[string]int64, len(rows))
	for _, r := range rows {
		out[r.Status] = r.N
	}
	return out, nil
}

func toRow(e models.JournalEntry) PairRun {
	return PairRun{
		RunID:          e.RunID,
		First:          e.First,
		Second:         e.Second,
		Method:         e.Method,
		OffsetSec:      e.OffsetSec,
		SanityExceeded: e.SanityExceeded,
		Unresolved:     e.Unresolved,
		Start1:         e.Start1,
		Start2:         e.Start2,
		DurationSec:    e.DurationSec,
		Status:         e.Status,
		Error:          e.Error,
		CreatedAt:      e.CreatedAt,
	}
}

func fromRow(r PairRun) models.JournalEntry {
	return models.JournalEntry{
		RunID:          r.RunID,
		First:          r.First,
		Second:         r.Second,
		Method:         r.Method,
		OffsetSec:      r.OffsetSec,
		SanityExceeded: r.SanityExceeded,
		Unresolved:     r.Unresolved,
		Start1:         r.Start1,
		Start2:         r.Start2,
		DurationSec:    r.DurationSec,
		Status:         r.Status,
		Error:          r.Error,
		CreatedAt:      r.CreatedAt,
	}
}
