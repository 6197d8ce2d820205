package database

import (
	"github.com/yeremiapane/waiter-dashboard/models"
	"github.com/yeremiapane/waiter-dashboard/utils"
	"gorm.io/gorm"
)

// Migrate membuat tabel jurnal aksi
func Migrate(db *gorm.DB) error {
	if err := db.AutoMigrate(&models.ActionLog{}); err != nil {
		return err
	}
	utils.InfoLogger.Println("AutoMigrate completed.")
	return nil
}
