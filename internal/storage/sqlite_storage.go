package storage

import (
	"errors"
	"fmt"

	"raffle-escrow/internal/logger"

	"github.com/google/uuid"
	"go.uber.org/zap"
	"gorm.io/driver/sqlite"
	"gorm.io/gorm"
	gormlogger "gorm.io/gorm/logger"
)

type SqliteStorage struct {
	db *gorm.DB
}

func NewSqliteStorage(path string) (*SqliteStorage, error) {

	logger.Debug("initializing database...", zap.String("path", path))
	db, err := gorm.Open(sqlite.Open(path), &gorm.Config{
		Logger: gormlogger.Default.LogMode(gormlogger.Silent),
	})
	if err != nil {
		return nil, fmt.Errorf("storage: open %s: %w", path, err)
	}

	// one connection serializes every operation against the store
	sqlDB, err := db.DB()
	if err != nil {
		return nil, err
	}
	sqlDB.SetMaxOpenConns(1)

	err = db.AutoMigrate(
		&Account{},
		&JournalEntry{},
		&ConsumedNonce{},
	)
	if err != nil {
		return nil, fmt.Errorf("storage: migrate: %w", err)
	}

	logger.Debug("initializing database... done")
	return &SqliteStorage{
		db: db,
	}, nil
}

func (s *SqliteStorage) Close() error {
	sqlDB, err := s.db.DB()
	if err != nil {
		return err
	}
	return sqlDB.Close()
}

func (s *SqliteStorage) GetAccount(address string) (*Account, error) {

	var account Account
	err := s.db.Where("address = ?", address).First(&account).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, err
	}

	return &account, nil
}

func (s *SqliteStorage) GetAccountsByOwner(owner Owner) ([]*Account, error) {

	var accounts []*Account
	err := s.db.Where("owner = ?", owner).Order("address").Find(&accounts).Error
	if err != nil {
		return nil, err
	}

	return accounts, nil
}

func (s *SqliteStorage) CreateAccount(account *Account) error {

	var count int64
	if err := s.db.Model(&Account{}).Where("address = ?", account.Address).Count(&count).Error; err != nil {
		return err
	}
	if count > 0 {
		return ErrAlreadyExists
	}

	return s.db.Create(account).Error
}

func (s *SqliteStorage) UpdateAccount(account *Account) error {

	tx := s.db.Model(&Account{}).Where("address = ?", account.Address).Updates(map[string]any{
		"lamports": account.Lamports,
		"owner":    account.Owner,
		"data":     account.Data,
	})
	if tx.Error != nil {
		return tx.Error
	}
	if tx.RowsAffected == 0 {
		return ErrNotFound
	}

	return nil
}

func (s *SqliteStorage) DeleteAccount(address string) error {

	tx := s.db.Where("address = ?", address).Delete(&Account{})
	if tx.Error != nil {
		return tx.Error
	}
	if tx.RowsAffected == 0 {
		return ErrNotFound
	}

	return nil
}

func (s *SqliteStorage) AppendJournalEntry(entry *JournalEntry) error {
	if entry.ID == "" {
		entry.ID = uuid.NewString()
	}

	return s.db.Create(entry).Error
}

func (s *SqliteStorage) GetJournalEntries(limit int) ([]*JournalEntry, error) {

	var entries []*JournalEntry
	err := s.db.Order("created_at desc").Limit(limit).Find(&entries).Error
	if err != nil {
		return nil, err
	}

	return entries, nil
}

func (s *SqliteStorage) ConsumeNonce(nonce *ConsumedNonce) error {

	var count int64
	if err := s.db.Model(&ConsumedNonce{}).Where("nonce = ?", nonce.Nonce).Count(&count).Error; err != nil {
		return err
	}
	if count > 0 {
		return ErrNonceConsumed
	}

	return s.db.Create(nonce).Error
}

func (s *SqliteStorage) Transaction(fn func(tx Storage) error) error {
	return s.db.Transaction(func(tx *gorm.DB) error {
		return fn(&SqliteStorage{db: tx})
	})
}
