// Package store persists the accounting state in a bbolt database, one
// bucket per record family with JSON values keyed by record id.
package store

import (
	"encoding/json"
	"errors"
	"fmt"
	"sort"

	bolt "go.etcd.io/bbolt"

	"github.com/cleared-dev/kasboek/internal/model"
)

var (
	// ErrNotFound is returned when a record is not found.
	ErrNotFound = errors.New("record not found")
)

// Bucket names.
const (
	BucketMeta         = "meta"
	BucketBankAccounts = "bank_accounts"
	BucketAllocations  = "allocations"
	BucketJournal      = "journal"
	BucketScheme       = "scheme"
)

const metaKey = "accounting"

// stateBuckets are rewritten as a whole on SaveState.
var stateBuckets = []string{BucketMeta, BucketBankAccounts, BucketAllocations, BucketJournal}

// Store represents the bbolt database wrapper.
type Store struct {
	db *bolt.DB
}

// Open opens or creates the database at path and initializes buckets.
func Open(path string) (*Store, error) {
	db, err := bolt.Open(path, 0o600, nil)
	if err != nil {
		return nil, fmt.Errorf("failed to open database: %w", err)
	}

	err = db.Update(func(tx *bolt.Tx) error {
		for _, bucket := range append(stateBuckets, BucketScheme) {
			if _, err := tx.CreateBucketIfNotExists([]byte(bucket)); err != nil {
				return fmt.Errorf("failed to create bucket %s: %w", bucket, err)
			}
		}
		return nil
	})
	if err != nil {
		_ = db.Close()
		return nil, err
	}

	return &Store{db: db}, nil
}

// Close closes the database.
func (s *Store) Close() error {
	return s.db.Close()
}

// SaveState replaces the stored state with state in one transaction.
func (s *Store) SaveState(state *model.AccountingState) error {
	return s.db.Update(func(tx *bolt.Tx) error {
		for _, name := range stateBuckets {
			if err := tx.DeleteBucket([]byte(name)); err != nil && !errors.Is(err, bolt.ErrBucketNotFound) {
				return fmt.Errorf("clearing bucket %s: %w", name, err)
			}
			if _, err := tx.CreateBucket([]byte(name)); err != nil {
				return fmt.Errorf("failed to create bucket %s: %w", name, err)
			}
		}

		if err := putJSON(tx.Bucket([]byte(BucketMeta)), metaKey, state.AccountingMetaData); err != nil {
			return err
		}
		b := tx.Bucket([]byte(BucketBankAccounts))
		for k, v := range state.LiquidAssetsData {
			if err := putJSON(b, k, v); err != nil {
				return err
			}
		}
		b = tx.Bucket([]byte(BucketAllocations))
		for k, v := range state.LedgerAllocationsData {
			if err := putJSON(b, k, v); err != nil {
				return err
			}
		}
		b = tx.Bucket([]byte(BucketJournal))
		for k, v := range state.JournalData {
			if err := putJSON(b, k, v); err != nil {
				return err
			}
		}
		return nil
	})
}

// LoadState reads the stored state. It returns ErrNotFound when no state
// was ever saved.
func (s *Store) LoadState() (*model.AccountingState, error) {
	state := &model.AccountingState{
		LiquidAssetsData:      make(map[string]*model.BankAccountRecord),
		LedgerAllocationsData: make(map[string]*model.AllocationRecord),
		JournalData:           make(map[string]*model.JournalEntryRecord),
	}
	err := s.db.View(func(tx *bolt.Tx) error {
		data := tx.Bucket([]byte(BucketMeta)).Get([]byte(metaKey))
		if data == nil {
			return ErrNotFound
		}
		if err := json.Unmarshal(data, &state.AccountingMetaData); err != nil {
			return fmt.Errorf("failed to unmarshal metadata: %w", err)
		}

		if err := tx.Bucket([]byte(BucketBankAccounts)).ForEach(func(k, v []byte) error {
			var rec model.BankAccountRecord
			if err := json.Unmarshal(v, &rec); err != nil {
				return fmt.Errorf("failed to unmarshal bank account %s: %w", k, err)
			}
			state.LiquidAssetsData[string(k)] = &rec
			return nil
		}); err != nil {
			return err
		}
		if err := tx.Bucket([]byte(BucketAllocations)).ForEach(func(k, v []byte) error {
			var rec model.AllocationRecord
			if err := json.Unmarshal(v, &rec); err != nil {
				return fmt.Errorf("failed to unmarshal allocation %s: %w", k, err)
			}
			state.LedgerAllocationsData[string(k)] = &rec
			return nil
		}); err != nil {
			return err
		}
		return tx.Bucket([]byte(BucketJournal)).ForEach(func(k, v []byte) error {
			var rec model.JournalEntryRecord
			if err := json.Unmarshal(v, &rec); err != nil {
				return fmt.Errorf("failed to unmarshal journal entry %s: %w", k, err)
			}
			state.JournalData[string(k)] = &rec
			return nil
		})
	})
	if err != nil {
		return nil, err
	}
	state.Init()
	return state, nil
}

// SaveScheme replaces the stored chart of accounts.
func (s *Store) SaveScheme(records []model.Account) error {
	return s.db.Update(func(tx *bolt.Tx) error {
		if err := tx.DeleteBucket([]byte(BucketScheme)); err != nil && !errors.Is(err, bolt.ErrBucketNotFound) {
			return fmt.Errorf("clearing bucket %s: %w", BucketScheme, err)
		}
		b, err := tx.CreateBucket([]byte(BucketScheme))
		if err != nil {
			return fmt.Errorf("failed to create bucket %s: %w", BucketScheme, err)
		}
		for _, rec := range records {
			if err := putJSON(b, rec.Referentiecode, rec); err != nil {
				return err
			}
		}
		return nil
	})
}

// LoadScheme returns the stored chart of accounts ordered by sort key and
// code. It returns ErrNotFound when none was saved.
func (s *Store) LoadScheme() ([]model.Account, error) {
	var out []model.Account
	err := s.db.View(func(tx *bolt.Tx) error {
		return tx.Bucket([]byte(BucketScheme)).ForEach(func(k, v []byte) error {
			var rec model.Account
			if err := json.Unmarshal(v, &rec); err != nil {
				return fmt.Errorf("failed to unmarshal account %s: %w", k, err)
			}
			out = append(out, rec)
			return nil
		})
	})
	if err != nil {
		return nil, err
	}
	if len(out) == 0 {
		return nil, ErrNotFound
	}
	sort.Slice(out, func(i, j int) bool {
		if out[i].Sortering != out[j].Sortering {
			return out[i].Sortering < out[j].Sortering
		}
		return out[i].Referentiecode < out[j].Referentiecode
	})
	return out, nil
}

func putJSON(b *bolt.Bucket, key string, value any) error {
	data, err := json.Marshal(value)
	if err != nil {
		return fmt.Errorf("failed to marshal %s: %w", key, err)
	}
	return b.Put([]byte(key), data)
}
