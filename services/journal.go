package services

import (
	"sync"
	"time"

	"github.com/yeremiapane/waiter-dashboard/models"
	"github.com/yeremiapane/waiter-dashboard/utils"
	"gorm.io/gorm"
)

// Journal menerima catatan aksi. Record tidak boleh blocking.
type Journal interface {
	Record(entry models.ActionLog)
}

type nopJournal struct{}

func (nopJournal) Record(models.ActionLog) {}

// ActionJournal menulis ActionLog ke database dari goroutine terpisah
type ActionJournal struct {
	DB        *gorm.DB
	BatchSize int
	StopChan  chan struct{}

	entries   chan models.ActionLog
	wg        sync.WaitGroup
	startOnce sync.Once
	stopOnce  sync.Once
}

func NewActionJournal(db *gorm.DB, buffer int) *ActionJournal {
	if buffer <= 0 {
		buffer = 256
	}
	return &ActionJournal{
		DB:        db,
		BatchSize: 50,
		StopChan:  make(chan struct{}),
		entries:   make(chan models.ActionLog, buffer),
	}
}

func (j *ActionJournal) Start() {
	j.startOnce.Do(func() {
		j.wg.Add(1)
		go j.run()
	})
}

// Stop menulis sisa buffer lalu berhenti
func (j *ActionJournal) Stop() {
	j.stopOnce.Do(func() {
		close(j.StopChan)
	})
	j.wg.Wait()
}

func (j *ActionJournal) Record(entry models.ActionLog) {
	if entry.CreatedAt.IsZero() {
		entry.CreatedAt = time.Now()
	}
	select {
	case j.entries <- entry:
	default:
		utils.ErrorLogger.Errorf("Action journal full, dropping %s for table %s", entry.Kind, entry.TableID)
	}
}

func (j *ActionJournal) run() {
	defer j.wg.Done()
	for {
		select {
		case entry := <-j.entries:
			j.write(j.collect(entry))
		case <-j.StopChan:
			for {
				select {
				case entry := <-j.entries:
					j.write(j.collect(entry))
				default:
					return
				}
			}
		}
	}
}

func (j *ActionJournal) collect(first models.ActionLog) []models.ActionLog {
	batch := []models.ActionLog{first}
	for len(batch) < j.BatchSize {
		select {
		case entry := <-j.entries:
			batch = append(batch, entry)
		default:
			return batch
		}
	}
	return batch
}

func (j *ActionJournal) write(batch []models.ActionLog) {
	if err := j.DB.Create(&batch).Error; err != nil {
		utils.ErrorLogger.Errorf("Error writing %d action logs: %v", len(batch), err)
	}
}

// List -> terbaru di depan
func (j *ActionJournal) List(limit int) ([]models.ActionLog, error) {
	if limit <= 0 || limit > 500 {
		limit = 100
	}
	var logs []models.ActionLog
	err := j.DB.Order("id DESC").Limit(limit).Find(&logs).Error
	return logs, err
}
