package database

import (
	"fmt"
	"log"
	"os"

	"github.com/BillyJoe121/zenzspa-project-sub002/models"

	"github.com/joho/godotenv"
	"gorm.io/driver/postgres"
	"gorm.io/gorm"
)

var DB *gorm.DB

func Connect() {
	if err := godotenv.Load(); err != nil {
		log.Println("no .env file found, relying on environment")
	}

	host := os.Getenv("DB_HOST")
	if host == "" {
		host = "db"
	}
	port := os.Getenv("DB_PORT")
	if port == "" {
		port = "5432"
	}

	dsn := fmt.Sprintf("host=%s user=%s password=%s dbname=%s port=%s sslmode=disable TimeZone=UTC",
		host, os.Getenv("DB_USER"), os.Getenv("DB_PASSWORD"), os.Getenv("DB_NAME"), port)

	var err error
	DB, err = gorm.Open(postgres.Open(dsn), &gorm.Config{})
	if err != nil {
		log.Fatalf("could not connect to database: %v", err)
	}
}

// AutoMigrate creates/updates all tables. Constraint and index tightening
// beyond GORM tags lives in Migrate().
func AutoMigrate() {
	if err := DB.AutoMigrate(
		&models.User{},
		&models.Service{},
		&models.Appointment{},
		&models.Payment{},
		&models.IdempotencyRecord{},
	); err != nil {
		log.Fatalf("automigrate failed: %v", err)
	}
}
