// NagarAlert Hub - Civic Incident Reporting and Real-Time Area Alerts
// Copyright 2026 NagarAlert contributors
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/nagaralert/hub

package store

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/dgraph-io/badger/v4"
	"github.com/goccy/go-json"
	"github.com/google/uuid"

	"github.com/nagaralert/hub/internal/models"
)

// Key prefixes for BadgerDB storage.
const (
	userKeyPrefix     = "user:"
	reportKeyPrefix   = "report:"
	solutionKeyPrefix = "solution:"
	auditKeyPrefix    = "audit:"
)

// BadgerStore implements Store using BadgerDB for durable embedded storage.
type BadgerStore struct {
	db *badger.DB
}

// NewBadgerStore opens a BadgerDB-backed store at the given path.
// An empty path opens an in-memory store, used by tests and ephemeral
// deployments.
func NewBadgerStore(path string) (*BadgerStore, error) {
	opts := badger.DefaultOptions(path)
	if path == "" {
		opts = opts.WithInMemory(true)
	}
	opts = opts.WithLogger(nil)

	db, err := badger.Open(opts)
	if err != nil {
		return nil, fmt.Errorf("open badger store: %w", err)
	}
	return &BadgerStore{db: db}, nil
}

// Close closes the underlying database.
func (s *BadgerStore) Close() error {
	return s.db.Close()
}

// SaveUser inserts or replaces the user keyed by mobile number.
func (s *BadgerStore) SaveUser(_ context.Context, user *models.User) error {
	if user.Mobile == "" {
		return fmt.Errorf("save user: mobile number is required")
	}

	now := time.Now().UTC()
	key := []byte(userKeyPrefix + user.Mobile)

	return s.db.Update(func(txn *badger.Txn) error {
		// Preserve CreatedAt across updates.
		if item, err := txn.Get(key); err == nil {
			var existing models.User
			if verr := item.Value(func(val []byte) error {
				return json.Unmarshal(val, &existing)
			}); verr == nil {
				user.CreatedAt = existing.CreatedAt
			}
		} else if errors.Is(err, badger.ErrKeyNotFound) {
			user.CreatedAt = now
		} else {
			return fmt.Errorf("get user: %w", err)
		}
		user.UpdatedAt = now

		data, err := json.Marshal(user)
		if err != nil {
			return fmt.Errorf("marshal user: %w", err)
		}
		return txn.Set(key, data)
	})
}

// GetUsers returns all user profiles keyed by mobile number.
func (s *BadgerStore) GetUsers(_ context.Context) (map[string]models.User, error) {
	users := make(map[string]models.User)

	err := s.db.View(func(txn *badger.Txn) error {
		return iteratePrefix(txn, userKeyPrefix, func(key string, val []byte) error {
			var user models.User
			if err := json.Unmarshal(val, &user); err != nil {
				return fmt.Errorf("unmarshal user %s: %w", key, err)
			}
			users[key] = user
			return nil
		})
	})
	if err != nil {
		return nil, err
	}
	return users, nil
}

// GetUser returns the user with the given mobile number.
func (s *BadgerStore) GetUser(_ context.Context, id string) (*models.User, error) {
	var user models.User
	err := s.getJSON(userKeyPrefix+id, &user)
	if err != nil {
		return nil, err
	}
	return &user, nil
}

// SaveReport persists a new report with a server-assigned push ID and
// timestamp.
func (s *BadgerStore) SaveReport(_ context.Context, report *models.Report) (string, error) {
	report.ID = uuid.New().String()
	report.Timestamp = time.Now().UTC()

	data, err := json.Marshal(report)
	if err != nil {
		return "", fmt.Errorf("marshal report: %w", err)
	}

	err = s.db.Update(func(txn *badger.Txn) error {
		return txn.Set([]byte(reportKeyPrefix+report.ID), data)
	})
	if err != nil {
		return "", fmt.Errorf("save report: %w", err)
	}
	return report.ID, nil
}

// GetReports returns all reports keyed by ID.
func (s *BadgerStore) GetReports(_ context.Context) (map[string]models.Report, error) {
	reports := make(map[string]models.Report)

	err := s.db.View(func(txn *badger.Txn) error {
		return iteratePrefix(txn, reportKeyPrefix, func(key string, val []byte) error {
			var report models.Report
			if err := json.Unmarshal(val, &report); err != nil {
				return fmt.Errorf("unmarshal report %s: %w", key, err)
			}
			reports[key] = report
			return nil
		})
	})
	if err != nil {
		return nil, err
	}
	return reports, nil
}

// GetReport returns the report with the given ID.
func (s *BadgerStore) GetReport(_ context.Context, id string) (*models.Report, error) {
	var report models.Report
	err := s.getJSON(reportKeyPrefix+id, &report)
	if err != nil {
		return nil, err
	}
	return &report, nil
}

// UpdateReportStatus sets the status of an existing report.
func (s *BadgerStore) UpdateReportStatus(_ context.Context, id, status string) error {
	return s.db.Update(func(txn *badger.Txn) error {
		report, err := getReportTxn(txn, id)
		if err != nil {
			return err
		}
		report.Status = status

		data, err := json.Marshal(report)
		if err != nil {
			return fmt.Errorf("marshal report: %w", err)
		}
		return txn.Set([]byte(reportKeyPrefix+id), data)
	})
}

// SaveSolution persists a solution and marks the referenced report resolved.
// Both writes happen in one transaction so a solution never exists without
// its report flipping to Resolved.
func (s *BadgerStore) SaveSolution(_ context.Context, solution *models.Solution) (string, error) {
	solution.ID = uuid.New().String()
	solution.SolvedAt = time.Now().UTC()

	data, err := json.Marshal(solution)
	if err != nil {
		return "", fmt.Errorf("marshal solution: %w", err)
	}

	err = s.db.Update(func(txn *badger.Txn) error {
		if err := txn.Set([]byte(solutionKeyPrefix+solution.ID), data); err != nil {
			return fmt.Errorf("set solution: %w", err)
		}

		if solution.ReportID == "" {
			return nil
		}
		report, err := getReportTxn(txn, solution.ReportID)
		if err != nil {
			return err
		}
		report.Status = models.StatusResolved
		report.SolutionID = solution.ID

		reportData, err := json.Marshal(report)
		if err != nil {
			return fmt.Errorf("marshal report: %w", err)
		}
		return txn.Set([]byte(reportKeyPrefix+report.ID), reportData)
	})
	if err != nil {
		return "", err
	}
	return solution.ID, nil
}

// GetSolutions returns all solutions keyed by ID.
func (s *BadgerStore) GetSolutions(_ context.Context) (map[string]models.Solution, error) {
	solutions := make(map[string]models.Solution)

	err := s.db.View(func(txn *badger.Txn) error {
		return iteratePrefix(txn, solutionKeyPrefix, func(key string, val []byte) error {
			var solution models.Solution
			if err := json.Unmarshal(val, &solution); err != nil {
				return fmt.Errorf("unmarshal solution %s: %w", key, err)
			}
			solutions[key] = solution
			return nil
		})
	})
	if err != nil {
		return nil, err
	}
	return solutions, nil
}

// AppendAuditEvent persists one lifecycle event. Keys embed a zero-padded
// nanosecond timestamp so reverse iteration yields newest first.
func (s *BadgerStore) AppendAuditEvent(_ context.Context, event *models.AuditEvent) error {
	if event.ID == "" {
		event.ID = uuid.New().String()
	}
	if event.Timestamp.IsZero() {
		event.Timestamp = time.Now().UTC()
	}

	data, err := json.Marshal(event)
	if err != nil {
		return fmt.Errorf("marshal audit event: %w", err)
	}

	key := fmt.Sprintf("%s%020d:%s", auditKeyPrefix, event.Timestamp.UnixNano(), event.ID)
	return s.db.Update(func(txn *badger.Txn) error {
		return txn.Set([]byte(key), data)
	})
}

// RecentAuditEvents returns up to limit audit events, newest first.
func (s *BadgerStore) RecentAuditEvents(_ context.Context, limit int) ([]models.AuditEvent, error) {
	if limit <= 0 {
		limit = 50
	}
	events := make([]models.AuditEvent, 0, limit)

	err := s.db.View(func(txn *badger.Txn) error {
		opts := badger.DefaultIteratorOptions
		opts.Reverse = true
		it := txn.NewIterator(opts)
		defer it.Close()

		prefix := []byte(auditKeyPrefix)
		// Seek past the last possible audit key, then walk backwards.
		seek := append(append([]byte{}, prefix...), 0xFF)
		for it.Seek(seek); it.ValidForPrefix(prefix) && len(events) < limit; it.Next() {
			var event models.AuditEvent
			err := it.Item().Value(func(val []byte) error {
				return json.Unmarshal(val, &event)
			})
			if err != nil {
				return fmt.Errorf("unmarshal audit event: %w", err)
			}
			events = append(events, event)
		}
		return nil
	})
	if err != nil {
		return nil, err
	}
	return events, nil
}

// getJSON fetches and unmarshals a single key, mapping missing keys to
// ErrNotFound.
func (s *BadgerStore) getJSON(key string, out interface{}) error {
	return s.db.View(func(txn *badger.Txn) error {
		item, err := txn.Get([]byte(key))
		if errors.Is(err, badger.ErrKeyNotFound) {
			return ErrNotFound
		}
		if err != nil {
			return fmt.Errorf("get %s: %w", key, err)
		}
		return item.Value(func(val []byte) error {
			return json.Unmarshal(val, out)
		})
	})
}

func getReportTxn(txn *badger.Txn, id string) (*models.Report, error) {
	item, err := txn.Get([]byte(reportKeyPrefix + id))
	if errors.Is(err, badger.ErrKeyNotFound) {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("get report: %w", err)
	}

	var report models.Report
	err = item.Value(func(val []byte) error {
		return json.Unmarshal(val, &report)
	})
	if err != nil {
		return nil, fmt.Errorf("unmarshal report: %w", err)
	}
	return &report, nil
}

// iteratePrefix walks all keys under prefix, passing the key (with the
// prefix stripped) and raw value to fn.
func iteratePrefix(txn *badger.Txn, prefix string, fn func(key string, val []byte) error) error {
	opts := badger.DefaultIteratorOptions
	it := txn.NewIterator(opts)
	defer it.Close()

	p := []byte(prefix)
	for it.Seek(p); it.ValidForPrefix(p); it.Next() {
		item := it.Item()
		key := string(item.Key())[len(prefix):]
		err := item.Value(func(val []byte) error {
			return fn(key, val)
		})
		if err != nil {
			return err
		}
	}
	return nil
}
