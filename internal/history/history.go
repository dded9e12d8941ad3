// Package history persists a snapshot per successful quota fetch so
// operators can see quota drain over time.
package history

import (
	"github.com/glebarez/sqlite"
	"github.com/google/uuid"
	"gorm.io/gorm"
	"gorm.io/gorm/logger"
)

// Snapshot is one fetched quota payload.
type Snapshot struct {
	ID        string `gorm:"primaryKey" json:"id"`
	Provider  string `gorm:"index" json:"provider"`
	FetchedAt int64  `gorm:"index" json:"fetched_at"`
	Payload   string `gorm:"type:text" json:"payload"`
}

// InitDB opens the SQLite database and runs migrations.
func InitDB(dbPath string) (*gorm.DB, error) {
	db, err := gorm.Open(sqlite.Open(dbPath), &gorm.Config{
		Logger: logger.Default.LogMode(logger.Silent),
	})
	if err != nil {
		return nil, err
	}
	if err := db.AutoMigrate(&Snapshot{}); err != nil {
		return nil, err
	}
	return db, nil
}

// Recorder writes and reads quota snapshots.
type Recorder struct {
	db *gorm.DB
}

func NewRecorder(db *gorm.DB) *Recorder {
	return &Recorder{db: db}
}

// Record stores one snapshot.
func (r *Recorder) Record(provider string, payload []byte, fetchedAt int64) error {
	return r.db.Create(&Snapshot{
		ID:        uuid.New().String(),
		Provider:  provider,
		FetchedAt: fetchedAt,
		Payload:   string(payload),
	}).Error
}

// Recent returns the newest snapshots, optionally filtered by provider.
// A limit of zero or less defaults to 20.
func (r *Recorder) Recent(provider string, limit int) ([]Snapshot, error) {
	if limit <= 0 {
		limit = 20
	}
	q := r.db.Order("fetched_at desc").Limit(limit)
	if provider != "" {
		q = q.Where("provider = ?", provider)
	}
	var snaps []Snapshot
	if err := q.Find(&snaps).Error; err != nil {
		return nil, err
	}
	return snaps, nil
}
