package avsync

import (
	"github.com/himanishpuri/AVSync/internal/storage"
	"github.com/himanishpuri/AVSync/pkg/models"
)

// journalAdapter adapts storage.DBClient to the Journal interface.
type journalAdapter struct {
	db *storage.DBClient
}

// NewSQLiteJournal opens a SQLite journal at dbPath.
func NewSQLiteJournal(dbPath string) (Journal, error) {
	db, err := storage.NewDBClient(dbPath)
	if err != nil {
		return nil, err
	}
	return &journalAdapter{db: db}, nil
}

func (j *journalAdapter) Record(entry models.JournalEntry) error {
	return j.db.Record(entry)
}

func (j *journalAdapter) Close() error {
	return j.db.Close()
}
