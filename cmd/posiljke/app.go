package main

import (
	"context"
	"crypto/rand"
	"fmt"
	"math/big"
	"os"

	"github.com/jmoiron/sqlx"
	"go.uber.org/zap"
	"golang.org/x/crypto/bcrypt"

	"github.com/erazemk/posiljke/internal/config"
	"github.com/erazemk/posiljke/internal/db"
	"github.com/erazemk/posiljke/internal/lock"
	"github.com/erazemk/posiljke/internal/logger"
	"github.com/erazemk/posiljke/internal/model"
	"github.com/erazemk/posiljke/internal/notify"
	"github.com/erazemk/posiljke/internal/shipment"
	"github.com/erazemk/posiljke/internal/store"
)

// app holds what both commands run against.
type app struct {
	cfg      *config.Config
	logger   *zap.Logger
	db       *sqlx.DB
	notifier notify.Notifier
	locker   lock.Locker
	closers  []func()
}

// newApp sets up logging, opens (and on first run creates) the database and
// connects the optional Redis lock and Kafka notifier.
func newApp(cfg *config.Config, adminUser string) (*app, error) {
	log, closeLog, err := logger.New(logger.Config{Level: cfg.LogLevel, File: cfg.LogFile})
	if err != nil {
		return nil, err
	}
	zap.ReplaceGlobals(log)
	a := &app{cfg: cfg, logger: log, closers: []func(){closeLog}}

	if _, err := os.Stat(cfg.DBPath); os.IsNotExist(err) && adminUser != "" {
		database, password, err := initDatabase(cfg.DBPath, adminUser)
		if err != nil {
			a.close()
			return nil, fmt.Errorf("initializing database: %w", err)
		}
		database.Close()

		printInitResult(cfg.DBPath, adminUser, password)
		fmt.Println()
	}

	database, err := db.Open(cfg.DBPath)
	if err != nil {
		a.close()
		return nil, fmt.Errorf("opening database: %w", err)
	}
	a.db = database
	a.closers = append(a.closers, func() { database.Close() })

	if err := db.Migrate(database); err != nil {
		a.close()
		return nil, fmt.Errorf("migrating database: %w", err)
	}
	log.Info("database ready", zap.String("path", cfg.DBPath))

	a.locker = lock.New(context.Background(), cfg.RedisAddr, lock.DefaultTTL, log)
	a.notifier = a.newNotifier()
	return a, nil
}

func (a *app) newNotifier() notify.Notifier {
	logNotifier := notify.NewLogNotifier(a.logger)
	if len(a.cfg.KafkaBrokers) == 0 {
		return logNotifier
	}

	kafka, err := notify.NewKafkaNotifier(a.cfg.KafkaBrokers, a.cfg.KafkaTopic, a.logger)
	if err != nil {
		a.logger.Warn("Kafka unavailable, events are only logged",
			zap.Strings("brokers", a.cfg.KafkaBrokers),
			zap.Error(err),
		)
		return logNotifier
	}
	a.closers = append(a.closers, func() { kafka.Close() })
	return notify.Multi{logNotifier, kafka}
}

func (a *app) deps(identity shipment.Identity) shipment.Deps {
	return shipment.Deps{
		Store:    shipment.NewSQLStore(a.db),
		Identity: identity,
		Notifier: a.notifier,
		Locker:   a.locker,
		Logger:   a.logger,
	}
}

func (a *app) pipelineConfig() shipment.Config {
	return shipment.Config{
		BatchSize:         a.cfg.BatchSize,
		StoreTimeout:      a.cfg.StoreTimeout,
		DestinationBranch: a.cfg.DestinationBranch,
	}
}

// close releases resources in reverse order of acquisition.
func (a *app) close() {
	for i := len(a.closers) - 1; i >= 0; i-- {
		a.closers[i]()
	}
	a.closers = nil
}

// initDatabase creates a new database with the schema and an admin user.
func initDatabase(path, adminUsername string) (*sqlx.DB, string, error) {
	database, err := db.Open(path)
	if err != nil {
		return nil, "", fmt.Errorf("opening database: %w", err)
	}

	fail := func(err error) (*sqlx.DB, string, error) {
		database.Close()
		os.Remove(path)
		return nil, "", err
	}

	if err := db.Migrate(database); err != nil {
		return fail(fmt.Errorf("creating schema: %w", err))
	}

	password, err := generatePassword(16)
	if err != nil {
		return fail(fmt.Errorf("generating password: %w", err))
	}

	hash, err := bcrypt.GenerateFromPassword([]byte(password), bcrypt.DefaultCost)
	if err != nil {
		return fail(fmt.Errorf("hashing password: %w", err))
	}

	if _, err := store.CreateUser(context.Background(), database, adminUsername, string(hash), model.RoleAdmin); err != nil {
		return fail(fmt.Errorf("creating admin user: %w", err))
	}

	return database, password, nil
}

func printInitResult(dbPath, username, password string) {
	fmt.Printf("Database created: %s\n", dbPath)
	fmt.Println()
	fmt.Println("Admin account created:")
	fmt.Printf("  Username: %s\n", username)
	fmt.Printf("  Password: %s\n", password)
	fmt.Println()
	fmt.Println("Save this password, it cannot be recovered.")
	fmt.Println("The admin can change it after logging in.")
}

// generatePassword creates a random password of the given length.
func generatePassword(length int) (string, error) {
	const charset = "abcdefghijkmnpqrstuvwxyzABCDEFGHJKLMNPQRSTUVWXYZ23456789!@#$%&*"
	result := make([]byte, length)
	for i := range result {
		n, err := rand.Int(rand.Reader, big.NewInt(int64(len(charset))))
		if err != nil {
			return "", err
		}
		result[i] = charset[n.Int64()]
	}
	return string(result), nil
}
