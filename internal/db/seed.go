package db

import (
	"errors"

	"github.com/rs/zerolog"
	"gorm.io/gorm"

	"helpdesk-service/internal/model"
)

var defaultCategories = []model.Category{
	{Name: "Network", Description: "Wifi, Internet, LAN issues"},
	{Name: "Hardware", Description: "Printers, Laptops, Desktops"},
	{Name: "Software", Description: "OS, Applications, Antivirus"},
}

// seed creates the default categories if they are missing. Users are
// expected to come through registration or the admin surface.
func seed(db *gorm.DB, log zerolog.Logger) error {
	for _, cat := range defaultCategories {
		var existing model.Category
		err := db.Where("name = ?", cat.Name).First(&existing).Error
		if err == nil {
			continue
		}
		if !errors.Is(err, gorm.ErrRecordNotFound) {
			return err
		}
		if err := db.Create(&cat).Error; err != nil {
			return err
		}
		log.Info().Str("category", cat.Name).Msg("seeded category")
	}
	return nil
}
