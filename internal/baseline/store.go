package baseline

import (
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"gorm.io/driver/sqlite"
	"gorm.io/gorm"
	"gorm.io/gorm/logger"
)

// Record is a stored baseline row. The snapshot itself is kept as JSON.
type Record struct {
	ID              uint      `gorm:"primaryKey"`
	Project         string    `gorm:"size:255;index;not null"`
	CapturedAt      time.Time `gorm:"index"`
	ProjectDuration float64
	CriticalTasks   int
	Snapshot        string `gorm:"type:text;not null"`
	CreatedAt       time.Time
}

// TableName overrides the default GORM table name.
func (Record) TableName() string { return "baselines" }

// Store keeps a history of baselines per project in SQLite.
type Store struct {
	db *gorm.DB
}

// OpenStore opens (creating if needed) a SQLite baseline history at path.
func OpenStore(path string) (*Store, error) {
	db, err := gorm.Open(sqlite.Open(path), &gorm.Config{
		Logger: logger.Default.LogMode(logger.Silent),
	})
	if err != nil {
		return nil, fmt.Errorf("baseline: open store %s: %w", path, err)
	}
	return NewStore(db)
}

// NewStore wraps an existing connection and migrates the baselines table.
func NewStore(db *gorm.DB) (*Store, error) {
	if err := db.AutoMigrate(&Record{}); err != nil {
		return nil, fmt.Errorf("baseline: migrate: %w", err)
	}
	return &Store{db: db}, nil
}

// Close releases the underlying connection.
func (s *Store) Close() error {
	sqlDB, err := s.db.DB()
	if err != nil {
		return err
	}
	return sqlDB.Close()
}

// Record stores snap under project and returns the new row id.
func (s *Store) Record(project string, snap *Snapshot) (uint, error) {
	if project == "" {
		return 0, fmt.Errorf("baseline: project name is required")
	}

	data, err := json.Marshal(snap)
	if err != nil {
		return 0, fmt.Errorf("marshal baseline: %w", err)
	}

	rec := Record{
		Project:         project,
		CapturedAt:      snap.CapturedAt,
		ProjectDuration: snap.ProjectDuration,
		CriticalTasks:   len(snap.CriticalPath),
		Snapshot:        string(data),
	}
	if err := s.db.Create(&rec).Error; err != nil {
		return 0, fmt.Errorf("baseline: record %s: %w", project, err)
	}
	return rec.ID, nil
}

// History lists the baselines of project, newest first.
func (s *Store) History(project string) ([]Record, error) {
	var recs []Record
	err := s.db.Where("project = ?", project).
		Order("captured_at DESC").Order("id DESC").
		Find(&recs).Error
	if err != nil {
		return nil, fmt.Errorf("baseline: history %s: %w", project, err)
	}
	return recs, nil
}

// Latest returns the most recently captured baseline of project.
func (s *Store) Latest(project string) (*Snapshot, error) {
	var rec Record
	err := s.db.Where("project = ?", project).
		Order("captured_at DESC").Order("id DESC").
		First(&rec).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, fmt.Errorf("baseline: no baseline recorded for %s", project)
	}
	if err != nil {
		return nil, fmt.Errorf("baseline: latest %s: %w", project, err)
	}
	return rec.Decode()
}

// Get returns the baseline stored under id.
func (s *Store) Get(id uint) (*Snapshot, error) {
	var rec Record
	if err := s.db.First(&rec, id).Error; err != nil {
		return nil, fmt.Errorf("baseline: get %d: %w", id, err)
	}
	return rec.Decode()
}

// Decode unpacks the stored snapshot.
func (r Record) Decode() (*Snapshot, error) {
	var snap Snapshot
	if err := json.Unmarshal([]byte(r.Snapshot), &snap); err != nil {
		return nil, fmt.Errorf("parse baseline %d: %w", r.ID, err)
	}
	if snap.Tasks == nil {
		snap.Tasks = make(map[string]*TaskBaseline)
	}
	return &snap, nil
}
