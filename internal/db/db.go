package db

import (
	"log"

	"gorm.io/driver/postgres"
	"gorm.io/gorm"

	"github.com/binarymachines/bxlogic/internal/bidding"
)

// Connect opens the dispatch database and runs migrations. Startup cannot
// proceed without it, so failures are fatal.
func Connect(dsn string) *gorm.DB {
	gdb, err := gorm.Open(postgres.Open(dsn), &gorm.Config{})
	if err != nil {
		log.Fatalf("db connect: %v", err)
	}
	if err := gdb.AutoMigrate(bidding.Entities()...); err != nil {
		log.Fatalf("db migrate: %v", err)
	}
	return gdb
}
