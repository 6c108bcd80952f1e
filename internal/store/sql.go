package store

import (
	"context"
	"fmt"
	"time"

	"gorm.io/driver/mysql"
	"gorm.io/gorm"
	gormlogger "gorm.io/gorm/logger"

	"github.com/swimmingwebdev/simpletracker/internal/event"
)

// TrackLocation is the MySQL row for a persisted location ping.
type TrackLocation struct {
	ID           uint      `gorm:"primaryKey;autoIncrement"`
	DeviceID     string    `gorm:"size:50;not null"`
	Latitude     float64   `gorm:"not null"`
	Longitude    float64   `gorm:"not null"`
	LocationName string    `gorm:"size:100"`
	Timestamp    time.Time `gorm:"not null"`
	TraceID      uint64    `gorm:"not null;index"`
	DateCreated  time.Time `gorm:"not null;index;autoCreateTime"`
}

// TableName keeps the original schema's table name.
func (TrackLocation) TableName() string { return "track_locations" }

// TrackAlert is the MySQL row for a persisted alert.
type TrackAlert struct {
	ID           uint      `gorm:"primaryKey;autoIncrement"`
	DeviceID     string    `gorm:"size:50;not null"`
	Latitude     float64   `gorm:"not null"`
	Longitude    float64   `gorm:"not null"`
	LocationName string    `gorm:"size:100"`
	AlertDesc    string    `gorm:"size:100"`
	Timestamp    time.Time `gorm:"not null"`
	TraceID      uint64    `gorm:"not null;index"`
	DateCreated  time.Time `gorm:"not null;index;autoCreateTime"`
}

// TableName keeps the original schema's table name.
func (TrackAlert) TableName() string { return "track_alerts" }

// SQLStore is the MySQL store backend.
type SQLStore struct {
	db *gorm.DB
}

// ConnectWithRetry opens a MySQL connection with bounded startup retries,
// then ensures the schema. Exhausting the attempts is the one startup
// failure allowed to be fatal to the process.
func ConnectWithRetry(dsn string, attempts int, delay time.Duration) (*SQLStore, error) {
	if attempts <= 0 {
		attempts = 1
	}
	var lastErr error
	for i := 1; i <= attempts; i++ {
		db, err := gorm.Open(mysql.Open(dsn), &gorm.Config{
			Logger: gormlogger.Default.LogMode(gormlogger.Silent),
		})
		if err == nil {
			if err := db.AutoMigrate(&TrackLocation{}, &TrackAlert{}); err != nil {
				return nil, fmt.Errorf("store: migrate: %w", err)
			}
			return &SQLStore{db: db}, nil
		}
		lastErr = err
		time.Sleep(delay)
	}
	return nil, fmt.Errorf("store: connect failed after %d attempts: %w", attempts, lastErr)
}

// Close releases the underlying connection pool.
func (s *SQLStore) Close() error {
	sqlDB, err := s.db.DB()
	if err != nil {
		return err
	}
	return sqlDB.Close()
}

// InsertLocation writes one location row on its own pooled session.
func (s *SQLStore) InsertLocation(ctx context.Context, loc event.Location) error {
	row := TrackLocation{
		DeviceID:     loc.DeviceID,
		Latitude:     loc.Latitude,
		Longitude:    loc.Longitude,
		LocationName: loc.LocationName,
		Timestamp:    event.ParseTimestamp(loc.Timestamp),
		TraceID:      loc.TraceID,
	}
	return s.db.WithContext(ctx).Create(&row).Error
}

// InsertAlert writes one alert row on its own pooled session.
func (s *SQLStore) InsertAlert(ctx context.Context, al event.Alert) error {
	row := TrackAlert{
		DeviceID:     al.DeviceID,
		Latitude:     al.Latitude,
		Longitude:    al.Longitude,
		LocationName: al.LocationName,
		AlertDesc:    al.AlertDesc,
		Timestamp:    event.ParseTimestamp(al.Timestamp),
		TraceID:      al.TraceID,
	}
	return s.db.WithContext(ctx).Create(&row).Error
}

// QueryLocations returns location rows created within [start, end).
func (s *SQLStore) QueryLocations(ctx context.Context, start, end time.Time) ([]event.Location, error) {
	var rows []TrackLocation
	err := s.db.WithContext(ctx).
		Where("date_created >= ? AND date_created < ?", start, end).
		Order("date_created").
		Find(&rows).Error
	if err != nil {
		return nil, err
	}
	out := make([]event.Location, 0, len(rows))
	for _, r := range rows {
		out = append(out, event.Location{Base: event.Base{
			DeviceID:     r.DeviceID,
			Latitude:     r.Latitude,
			Longitude:    r.Longitude,
			LocationName: r.LocationName,
			Timestamp:    event.FormatTimestamp(r.Timestamp),
			TraceID:      r.TraceID,
		}})
	}
	return out, nil
}

// QueryAlerts returns alert rows created within [start, end).
func (s *SQLStore) QueryAlerts(ctx context.Context, start, end time.Time) ([]event.Alert, error) {
	var rows []TrackAlert
	err := s.db.WithContext(ctx).
		Where("date_created >= ? AND date_created < ?", start, end).
		Order("date_created").
		Find(&rows).Error
	if err != nil {
		return nil, err
	}
	out := make([]event.Alert, 0, len(rows))
	for _, r := range rows {
		out = append(out, event.Alert{
			Base: event.Base{
				DeviceID:     r.DeviceID,
				Latitude:     r.Latitude,
				Longitude:    r.Longitude,
				LocationName: r.LocationName,
				Timestamp:    event.FormatTimestamp(r.Timestamp),
				TraceID:      r.TraceID,
			},
			AlertDesc: r.AlertDesc,
		})
	}
	return out, nil
}
