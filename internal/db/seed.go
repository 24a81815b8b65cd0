package db

import (
	"fmt"
	"os"

	"github.com/algasur/algatrack/gate"
	"github.com/algasur/algatrack/internal/models"
	"golang.org/x/crypto/bcrypt"
	"gorm.io/gorm"
)

// Seed loads the baseline fixtures: a first administrator (when no users
// exist), the Caldera species catalog, and the sample international client
// report configurations. Idempotent; existing rows are left untouched.
func Seed(db *gorm.DB) error {
	if err := seedAdmin(db); err != nil {
		return err
	}
	if err := seedAlgaeTypes(db); err != nil {
		return err
	}
	return seedReportConfigurations(db)
}

func seedAdmin(db *gorm.DB) error {
	var count int64
	if err := db.Model(&models.User{}).Count(&count).Error; err != nil {
		return err
	}
	if count > 0 {
		return nil
	}

	password := os.Getenv("ADMIN_PASSWORD")
	if password == "" {
		password = "admin123"
	}
	hash, err := bcrypt.GenerateFromPassword([]byte(password), bcrypt.DefaultCost)
	if err != nil {
		return err
	}
	admin := models.User{
		Username: "admin",
		Password: string(hash),
		Email:    "admin@algasur.cl",
		Role:     string(gate.RoleAdministrator),
	}
	if err := db.Create(&admin).Error; err != nil {
		return fmt.Errorf("seed admin: %w", err)
	}
	return nil
}

// Species common to the Caldera coast, northern Chile.
func seedAlgaeTypes(db *gorm.DB) error {
	types := []models.AlgaeType{
		{Name: "Gracilaria chilensis (Pelillo)", ConversionFactor: 1.0, Active: true,
			Description: "Alga roja abundante en la zona norte, utilizada para la producción de agar-agar."},
		{Name: "Lessonia trabeculata (Huiro negro)", ConversionFactor: 1.0, Active: true,
			Description: "Alga parda de gran tamaño, recurso comercial para la producción de alginatos."},
		{Name: "Macrocystis pyrifera (Huiro)", ConversionFactor: 1.0, Active: true,
			Description: "Alga parda gigante que forma bosques submarinos."},
		{Name: "Ulva lactuca (Lechuga de mar)", ConversionFactor: 1.0, Active: true,
			Description: "Alga verde comestible, rica en proteínas y minerales."},
		{Name: "Durvillaea antarctica (Cochayuyo)", ConversionFactor: 1.0, Active: true,
			Description: "Alga parda de gran importancia económica y cultural."},
		{Name: "Gelidium chilense (Chasca)", ConversionFactor: 1.0, Active: true,
			Description: "Alga roja utilizada para la producción de agar de alta calidad."},
		{Name: "Chondracanthus chamissoi (Chicoria de mar)", ConversionFactor: 1.0, Active: true,
			Description: "Alga roja con alto contenido de carragenina."},
		{Name: "Pyropia columbina (Luche)", ConversionFactor: 1.0, Active: true,
			Description: "Alga roja comestible, consumida tradicionalmente en Chile."},
	}
	for _, t := range types {
		if err := db.Where("name = ?", t.Name).FirstOrCreate(&t).Error; err != nil {
			return fmt.Errorf("seed algae type %q: %w", t.Name, err)
		}
	}
	return nil
}

func seedReportConfigurations(db *gorm.DB) error {
	var count int64
	if err := db.Model(&models.ReportConfiguration{}).Count(&count).Error; err != nil {
		return err
	}
	if count > 0 {
		return nil
	}

	configs := []models.ReportConfiguration{
		{Company: "SeaFarm International Ltd.", Country: "Estados Unidos", Contact: "John Smith",
			Email: "jsmith@seafarm.com", Unit: models.UnitTon, Format: models.FormatPDF,
			ShowCapacity: true, ShowAvailability: true, ShowHistory: true, ShowCharts: true,
			HistoryMonths: 12, Active: true},
		{Company: "AlgaeTech Europe", Country: "Alemania", Contact: "Hans Mueller",
			Email: "h.mueller@algaetech.de", Unit: models.UnitKg, Format: models.FormatExcel,
			ShowCapacity: true, ShowHistory: true, IncludeNotes: true,
			HistoryMonths: 6, Sectors: "Sector A, Sector B", Active: true},
		{Company: "BioMarine", Country: "Japón", Contact: "Yuki Tanaka",
			Email: "y.tanaka@biomarine.jp", Unit: models.UnitTon, Format: models.FormatBoth,
			ShowCapacity: true, ShowAvailability: true, ShowHistory: true, ShowCharts: true,
			HistoryMonths: 3, Active: true},
		{Company: "Pacific Kelp Industries", Country: "Canadá", Contact: "Sarah Johnson",
			Email: "sjohnson@pacifickelp.ca", Unit: models.UnitLb, Format: models.FormatPDF,
			ShowHistory: true, ShowCharts: true, HistoryMonths: 6, Active: true},
		{Company: "Harvest Solutions", Country: "Noruega", Contact: "Erik Hansen",
			Email: "e.hansen@marineharvest.no", Unit: models.UnitKg, Format: models.FormatExcel,
			ShowCapacity: true, ShowAvailability: true, ShowHistory: true,
			HistoryMonths: 6, Active: true},
	}
	for _, c := range configs {
		if err := db.Create(&c).Error; err != nil {
			return fmt.Errorf("seed report configuration %q: %w", c.Company, err)
		}
	}
	return nil
}
