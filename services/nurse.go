package services

import (
	"context"
	"errors"
	"time"

	"github.com/Bezalel011/Smartcare/models"
	"github.com/Bezalel011/Smartcare/series"
	"gorm.io/datatypes"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"
)

type NurseLogEntry struct {
	FacilityID string  `json:"facility_id" binding:"required"`
	Date       string  `json:"date"`
	Fever      *int    `json:"fever"`
	Cough      *int    `json:"cough"`
	Diarrhea   *int    `json:"diarrhea"`
	Vomiting   *int    `json:"vomiting"`
	Cold       *int    `json:"cold"`
	Notes      *string `json:"notes"`
	By         *string `json:"by"`
}

func (e NurseLogEntry) counts() map[string]*int {
	return map[string]*int{
		"fever":    e.Fever,
		"cough":    e.Cough,
		"diarrhea": e.Diarrhea,
		"vomiting": e.Vomiting,
		"cold":     e.Cold,
	}
}

type NurseLogService struct {
	db  *gorm.DB
	now func() time.Time
}

func NewNurseLogService(db *gorm.DB) *NurseLogService {
	return &NurseLogService{db: db, now: time.Now}
}

// ParseDay accepts YYYY-MM-DD and falls back to today when s is empty.
func ParseDay(s string, today time.Time) (time.Time, error) {
	if s == "" {
		return series.Day(today), nil
	}
	d, err := time.Parse(time.DateOnly, s)
	if err != nil {
		return time.Time{}, &ValidationError{Field: "date", Message: "invalid date format, use YYYY-MM-DD"}
	}
	return d, nil
}

// Merge adds the entry's counts to the facility's log for the day. Notes
// and author replace the stored ones when given.
func (s *NurseLogService) Merge(ctx context.Context, e NurseLogEntry, today time.Time) (*models.NurseLog, error) {
	day, err := ParseDay(e.Date, today)
	if err != nil {
		return nil, err
	}
	for name, v := range e.counts() {
		if v != nil && *v < 0 {
			return nil, &ValidationError{Field: name, Message: "must be >= 0"}
		}
	}

	var entry models.NurseLog
	err = s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		// The row must exist before the locking read so concurrent first
		// writes of the day serialize on it too.
		seed := models.NurseLog{
			Date:       day,
			FacilityID: e.FacilityID,
			Counts:     datatypes.NewJSONType(models.SymptomCounts{}),
			UpdatedAt:  s.now().UTC(),
		}
		if err := tx.Clauses(clause.OnConflict{DoNothing: true}).Create(&seed).Error; err != nil {
			return err
		}
		err := tx.Clauses(clause.Locking{Strength: "UPDATE"}).
			Where("facility_id = ? AND date = ?", e.FacilityID, day).
			Take(&entry).Error
		if err != nil {
			return err
		}
		entry.Merge(e.counts())
		if e.Notes != nil {
			entry.Notes = e.Notes
		}
		if e.By != nil {
			entry.By = e.By
		}
		entry.UpdatedAt = s.now().UTC()
		return tx.Model(&entry).
			Where("facility_id = ? AND date = ?", e.FacilityID, day).
			Select("counts", "notes", "logged_by", "updated_at").
			Updates(&entry).Error
	})
	if err != nil {
		return nil, err
	}
	return &entry, nil
}

// Get returns nil when nothing was logged that day.
func (s *NurseLogService) Get(ctx context.Context, facilityID string, day time.Time) (*models.NurseLog, error) {
	var entry models.NurseLog
	err := s.db.WithContext(ctx).Where("facility_id = ? AND date = ?", facilityID, series.Day(day)).Take(&entry).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	return &entry, nil
}
