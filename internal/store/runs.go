package store

import (
	"bytes"
	"encoding/json"
	"fmt"
	"sort"
	"time"

	"github.com/google/uuid"
	"github.com/kilupskalvis/relnotes/internal/models"
	bolt "go.etcd.io/bbolt"
)

// lastRunKey holds the ID of the most recently saved run in the kv bucket.
const lastRunKey = "last_run"

// repoIndexKey orders runs of one repository by creation time.
func repoIndexKey(repo string, created time.Time, id string) []byte {
	return []byte(fmt.Sprintf("%s\x00%020d\x00%s", repo, created.UnixNano(), id))
}

// SaveRun stores a run. A missing ID or creation time is filled in.
func (s *Store) SaveRun(run *models.Run) error {
	if run.ID == "" {
		run.ID = uuid.New().String()
	}
	if run.CreatedAt.IsZero() {
		run.CreatedAt = time.Now()
	}

	return s.db.Update(func(tx *bolt.Tx) error {
		runs := tx.Bucket(bucketRuns)
		index := tx.Bucket(bucketRunsByRepo)
		kv := tx.Bucket(bucketKV)
		if runs == nil || index == nil || kv == nil {
			return fmt.Errorf("history buckets not found")
		}

		if runs.Get([]byte(run.ID)) != nil {
			return fmt.Errorf("run '%s' already exists", run.ID)
		}

		data, err := json.Marshal(run)
		if err != nil {
			return fmt.Errorf("marshal run: %w", err)
		}
		if err := runs.Put([]byte(run.ID), data); err != nil {
			return err
		}
		if err := index.Put(repoIndexKey(run.Repository, run.CreatedAt, run.ID), []byte(run.ID)); err != nil {
			return err
		}
		return kv.Put([]byte(lastRunKey), []byte(run.ID))
	})
}

// GetRun retrieves a run by full ID or unique ID prefix. Returns (nil, nil)
// if no run matches.
func (s *Store) GetRun(id string) (*models.Run, error) {
	if id == "" {
		return nil, nil
	}

	var run *models.Run
	err := s.db.View(func(tx *bolt.Tx) error {
		bucket := tx.Bucket(bucketRuns)
		if bucket == nil {
			return nil
		}

		data := bucket.Get([]byte(id))
		if data == nil {
			// Fall back to a prefix lookup for short IDs.
			prefix := []byte(id)
			c := bucket.Cursor()
			k, v := c.Seek(prefix)
			if k == nil || !bytes.HasPrefix(k, prefix) {
				return nil
			}
			if k2, _ := c.Next(); k2 != nil && bytes.HasPrefix(k2, prefix) {
				return fmt.Errorf("run ID prefix '%s' is ambiguous", id)
			}
			data = v
		}

		run = &models.Run{}
		return json.Unmarshal(data, run)
	})
	if err != nil {
		return nil, err
	}
	return run, nil
}

// GetLastRun returns the most recently saved run, or nil if there is none.
func (s *Store) GetLastRun() (*models.Run, error) {
	id, err := s.GetValue(lastRunKey)
	if err != nil {
		return nil, err
	}
	return s.GetRun(id)
}

// ListRuns returns runs newest first. An empty repository lists every
// repository; limit <= 0 means no limit.
func (s *Store) ListRuns(repository string, limit int) ([]*models.Run, error) {
	var runs []*models.Run

	err := s.db.View(func(tx *bolt.Tx) error {
		bucket := tx.Bucket(bucketRuns)
		index := tx.Bucket(bucketRunsByRepo)
		if bucket == nil || index == nil {
			return nil
		}

		if repository == "" {
			return bucket.ForEach(func(k, v []byte) error {
				var r models.Run
				if err := json.Unmarshal(v, &r); err != nil {
					return fmt.Errorf("unmarshal run: %w", err)
				}
				runs = append(runs, &r)
				return nil
			})
		}

		prefix := []byte(repository + "\x00")
		c := index.Cursor()
		for k, id := c.Seek(prefix); k != nil && bytes.HasPrefix(k, prefix); k, id = c.Next() {
			data := bucket.Get(id)
			if data == nil {
				continue
			}
			var r models.Run
			if err := json.Unmarshal(data, &r); err != nil {
				return fmt.Errorf("unmarshal run: %w", err)
			}
			runs = append(runs, &r)
		}
		return nil
	})
	if err != nil {
		return nil, err
	}

	sort.SliceStable(runs, func(i, j int) bool {
		return runs[i].CreatedAt.After(runs[j].CreatedAt)
	})

	if limit > 0 && len(runs) > limit {
		runs = runs[:limit]
	}
	return runs, nil
}
