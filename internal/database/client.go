package database

import (
	"fmt"
	"time"

	"gorm.io/driver/postgres"
	"gorm.io/gorm"
	"gorm.io/gorm/logger"

	"github.com/chrissnell/cplcurtain/internal/cpl"
	"github.com/chrissnell/cplcurtain/internal/log"
	"go.uber.org/zap"
)

const batchSize = 500

// Client holds the connection to a TimescaleDB database
type Client struct {
	connectionString string
	DB               *gorm.DB // Exported so it can be accessed from other packages
	logger           *zap.SugaredLogger
}

// NewClient creates a new database client
func NewClient(connectionString string, logger *zap.SugaredLogger) *Client {
	return &Client{
		connectionString: connectionString,
		logger:           logger,
	}
}

// Connect connects to the TimescaleDB database and creates missing tables
func (c *Client) Connect() error {
	var err error

	c.DB, err = CreateConnection(c.connectionString)
	if err != nil {
		return err
	}
	c.logger.Info("TimescaleDB connection successful")

	if err := c.DB.AutoMigrate(&SessionRecord{}, &ObservationRecord{}, &WindowRecord{}); err != nil {
		return fmt.Errorf("error migrating export tables: %w", err)
	}
	return nil
}

// Export writes the session, its observations and its windows in one
// transaction. Session IDs are derived from the file, so re-exporting the
// same file from any run replaces its rows.
func (c *Client) Export(s *cpl.Session) error {
	if c.DB == nil {
		return fmt.Errorf("database is not connected")
	}

	sr, obs, windows, err := BuildRecords(s)
	if err != nil {
		return err
	}

	err = c.DB.Transaction(func(tx *gorm.DB) error {
		for _, model := range []any{&WindowRecord{}, &ObservationRecord{}, &SessionRecord{}} {
			if err := tx.Where("session_id = ?", sr.ID).Delete(model).Error; err != nil {
				return err
			}
		}
		if err := tx.Create(&sr).Error; err != nil {
			return err
		}
		if len(obs) > 0 {
			if err := tx.CreateInBatches(obs, batchSize).Error; err != nil {
				return err
			}
		}
		if len(windows) > 0 {
			if err := tx.CreateInBatches(windows, batchSize).Error; err != nil {
				return err
			}
		}
		return nil
	})
	if err != nil {
		return fmt.Errorf("error exporting session %s: %w", sr.ID, err)
	}

	c.logger.Infow("exported session",
		"session", sr.ID,
		"observations", len(obs),
		"windows", len(windows),
	)
	return nil
}

// CreateConnection is a helper function to create a database connection with standard GORM configuration
func CreateConnection(connectionString string) (*gorm.DB, error) {
	// Create a logger for gorm
	dbLogger := logger.New(
		zap.NewStdLog(log.GetZapLogger()),
		logger.Config{
			SlowThreshold:             time.Second, // Slow SQL threshold
			LogLevel:                  logger.Warn, // Log level
			IgnoreRecordNotFoundError: true,        // Ignore ErrRecordNotFound error for logger
			Colorful:                  true,
		},
	)

	log.Info("connecting to TimescaleDB...")
	db, err := gorm.Open(postgres.Open(connectionString), &gorm.Config{Logger: dbLogger})
	if err != nil {
		log.Warnf("warning: unable to create a TimescaleDB connection: %v", err)
		return nil, err
	}

	return db, nil
}
