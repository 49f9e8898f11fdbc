package storage

import (
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"math"
	"os"
	"path/filepath"
	"time"

	"github.com/glebarez/sqlite"
	"github.com/google/uuid"
	"gorm.io/gorm"
	"gorm.io/gorm/logger"

	"github.com/himanishpuri/SpeechGate/internal/config"
	"github.com/himanishpuri/SpeechGate/pkg/models"
)

const DefaultDBFile = "speechgate.sqlite3"
const errDBClientNil = "db client is nil"

// ErrRunNotFound is returned when a run ID does not exist.
var ErrRunNotFound = errors.New("run not found")

type DBClient struct {
	DB *gorm.DB
	db *sql.DB
}

type Run struct {
	ID         string    `gorm:"primaryKey;type:varchar(36)"`
	StartedAt  time.Time `gorm:"index:idx_run_started"`
	FinishedAt *time.Time
	SampleRate int
	ConfigJSON string
	Total      int
	Accepted   int
	Rejected   int
}

// FileRecord is one FileResult of a run. Position keeps the order results
// were stored in.
type FileRecord struct {
	ID                   uint   `gorm:"primaryKey;autoIncrement"`
	RunID                string `gorm:"type:varchar(36);index:idx_record_run"`
	Position             int
	FilePath             string
	Duration             float64
	SampleRate           int
	SNRDB                *float64 // nil for -Inf
	SilenceRatio         float64
	ClippingRatio        float64
	ZeroCrossingRate     float64
	SpectralCentroidMean float64
	SpectralRolloffMean  float64
	RMSEnergy            float64
	DynamicRangeDB       float64
	QualityScore         float64
	IsAccepted           bool     `gorm:"index:idx_record_accepted"`
	Reasons              []string `gorm:"serializer:json"`
}

func NewDBClient() (*DBClient, error) {
	dbPath := os.Getenv("SPEECHGATE_DB_PATH")
	if dbPath == "" {
		dbPath = DefaultDBFile
	}
	return NewDBClientWithPath(dbPath)
}

func NewDBClientWithPath(dbPath string) (*DBClient, error) {
	if dir := filepath.Dir(dbPath); dir != "." {
		if err := os.MkdirAll(dir, 0o755); err != nil {
			return nil, fmt.Errorf("creating db dir: %w", err)
		}
	}

	gormConfig := &gorm.Config{
		Logger: logger.Default.LogMode(logger.Silent),
	}

	db, err := gorm.Open(sqlite.Open(dbPath+"?_pragma=foreign_keys(1)&_pragma=busy_timeout(5000)"), gormConfig)
	if err != nil {
		return nil, fmt.Errorf("opening sqlite db: %w", err)
	}

	sqlDB, err := db.DB()
	if err != nil {
		return nil, fmt.Errorf("getting sql.DB from gorm: %w", err)
	}

	// SQLite allows one writer at a time.
	sqlDB.SetMaxOpenConns(1)
	sqlDB.SetConnMaxLifetime(time.Hour)

	if err := db.AutoMigrate(&Run{}, &FileRecord{}); err != nil {
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

// CreateRun registers a new run with the effective configuration and returns its ID.
func (c *DBClient) CreateRun(cfg config.FilterConfig) (string, error) {
	if c == nil || c.DB == nil {
		return "", errors.New(errDBClientNil)
	}

	cfgJSON, err := json.Marshal(cfg)
	if err != nil {
		return "", fmt.Errorf("encoding config: %w", err)
	}

	run := Run{
		ID:         uuid.NewString(),
		StartedAt:  time.Now().UTC(),
		SampleRate: cfg.SampleRate,
		ConfigJSON: string(cfgJSON),
	}
	if err := c.DB.Create(&run).Error; err != nil {
		return "", fmt.Errorf("creating run: %w", err)
	}
	return run.ID, nil
}

// StoreResults appends results to a run.
func (c *DBClient) StoreResults(runID string, results []models.FileResult) error {
	if c == nil || c.DB == nil {
		return errors.New(errDBClientNil)
	}
	if len(results) == 0 {
		return nil
	}

	var offset int64
	if err := c.DB.Model(&FileRecord{}).Where("run_id = ?", runID).Count(&offset).Error; err != nil {
		return fmt.Errorf("counting results: %w", err)
	}

	entries := make([]FileRecord, 0, len(results))
	for i, r := range results {
		entries = append(entries, toRecord(runID, int(offset)+i, r))
	}
	if err := c.DB.CreateInBatches(entries, 500).Error; err != nil {
		return fmt.Errorf("batch insert results: %w", err)
	}
	return nil
}

// FinishRun stamps the completion time and the final counts.
func (c *DBClient) FinishRun(runID string, accepted, rejected int) error {
	if c == nil || c.DB == nil {
		return errors.New(errDBClientNil)
	}

	now := time.Now().UTC()
	res := c.DB.Model(&Run{}).Where("id = ?", runID).Updates(map[string]any{
		"finished_at": now,
		"total":       accepted + rejected,
		"accepted":    accepted,
		"rejected":    rejected,
	})
	if res.Error != nil {
		return fmt.Errorf("finishing run: %w", res.Error)
	}
	if res.RowsAffected == 0 {
		return ErrRunNotFound
	}
	return nil
}

func (c *DBClient) GetRun(runID string) (models.Run, error) {
	if c == nil || c.DB == nil {
		return models.Run{}, errors.New(errDBClientNil)
	}

	var run Run
	err := c.DB.Where("id = ?", runID).First(&run).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return models.Run{}, ErrRunNotFound
	}
	if err != nil {
		return models.Run{}, fmt.Errorf("querying run: %w", err)
	}
	return run.toModel(), nil
}

// ListRuns returns the most recent runs first. limit <= 0 returns all.
func (c *DBClient) ListRuns(limit int) ([]models.Run, error) {
	if c == nil || c.DB == nil {
		return nil, errors.New(errDBClientNil)
	}

	q := c.DB.Order("started_at DESC")
	if limit > 0 {
		q = q.Limit(limit)
	}
	var rows []Run
	if err := q.Find(&rows).Error; err != nil {
		return nil, fmt.Errorf("listing runs: %w", err)
	}

	out := make([]models.Run, 0, len(rows))
	for _, r := range rows {
		out = append(out, r.toModel())
	}
	return out, nil
}

// ListResults returns a run's results in stored order.
func (c *DBClient) ListResults(runID string, filter models.ResultFilter) ([]models.FileResult, error) {
	if _, err := c.GetRun(runID); err != nil {
		return nil, err
	}

	q := c.DB.Where("run_id = ?", runID).Order("position ASC")
	if filter.Accepted != nil {
		q = q.Where("is_accepted = ?", *filter.Accepted)
	}
	if filter.Limit > 0 {
		q = q.Limit(filter.Limit)
	}

	var rows []FileRecord
	if err := q.Find(&rows).Error; err != nil {
		return nil, fmt.Errorf("querying results: %w", err)
	}

	out := make([]models.FileResult, 0, len(rows))
	for _, r := range rows {
		out = append(out, r.toModel())
	}
	return out, nil
}

// DeleteRun removes a run and all of its results.
func (c *DBClient) DeleteRun(runID string) error {
	if c == nil || c.DB == nil {
		return errors.New(errDBClientNil)
	}
	return c.DB.Transaction(func(tx *gorm.DB) error {
		if err := tx.Where("run_id = ?", runID).Delete(&FileRecord{}).Error; err != nil {
			return err
		}
		res := tx.Where("id = ?", runID).Delete(&Run{})
		if res.Error != nil {
			return res.Error
		}
		if res.RowsAffected == 0 {
			return ErrRunNotFound
		}
		return nil
	})
}

func (r Run) toModel() models.Run {
	var cfg json.RawMessage
	if r.ConfigJSON != "" {
		cfg = json.RawMessage(r.ConfigJSON)
	}
	return models.Run{
		ID:         r.ID,
		StartedAt:  r.StartedAt,
		FinishedAt: r.FinishedAt,
		SampleRate: r.SampleRate,
		Config:     cfg,
		Total:      r.Total,
		Accepted:   r.Accepted,
		Rejected:   r.Rejected,
	}
}

func toRecord(runID string, position int, r models.FileResult) FileRecord {
	var snr *float64
	if !math.IsInf(r.SNRDB, 0) && !math.IsNaN(r.SNRDB) {
		v := r.SNRDB
		snr = &v
	}
	reasons := r.RejectionReasons
	if reasons == nil {
		reasons = []string{}
	}
	return FileRecord{
		RunID:                runID,
		Position:             position,
		FilePath:             r.FilePath,
		Duration:             r.Duration,
		SampleRate:           r.SampleRate,
		SNRDB:                snr,
		SilenceRatio:         r.SilenceRatio,
		ClippingRatio:        r.ClippingRatio,
		ZeroCrossingRate:     r.ZeroCrossingRate,
		SpectralCentroidMean: r.SpectralCentroidMean,
		SpectralRolloffMean:  r.SpectralRolloffMean,
		RMSEnergy:            r.RMSEnergy,
		DynamicRangeDB:       r.DynamicRangeDB,
		QualityScore:         r.QualityScore,
		IsAccepted:           r.IsAccepted,
		Reasons:              reasons,
	}
}

func (r FileRecord) toModel() models.FileResult {
	snr := math.Inf(-1)
	if r.SNRDB != nil {
		snr = *r.SNRDB
	}
	reasons := r.Reasons
	if reasons == nil {
		reasons = []string{}
	}
	return models.FileResult{
		FilePath:   r.FilePath,
		Duration:   r.Duration,
		SampleRate: r.SampleRate,
		MetricSet: models.MetricSet{
			SNRDB:                snr,
			SilenceRatio:         r.SilenceRatio,
			ClippingRatio:        r.ClippingRatio,
			ZeroCrossingRate:     r.ZeroCrossingRate,
			SpectralCentroidMean: r.SpectralCentroidMean,
			SpectralRolloffMean:  r.SpectralRolloffMean,
			RMSEnergy:            r.RMSEnergy,
			DynamicRangeDB:       r.DynamicRangeDB,
		},
		QualityScore:     r.QualityScore,
		IsAccepted:       r.IsAccepted,
		RejectionReasons: reasons,
	}
}
