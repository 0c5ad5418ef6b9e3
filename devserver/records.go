package devserver

import (
	"fmt"
	"sort"
	"strconv"
	"sync"

	"github.com/google/uuid"

	"github.com/jrsteele09/go-admin-client/internal/errors"
)

// Record is one stored entity; the backend keeps whatever fields the client sends.
type Record map[string]any

type recordStore struct {
	lock sync.RWMutex
	data map[string]map[string]Record
	seq  map[string]map[string]int
	next int
}

func newRecordStore() *recordStore {
	return &recordStore{
		data: make(map[string]map[string]Record),
		seq:  make(map[string]map[string]int),
	}
}

func (rs *recordStore) list(resource string, filter map[string]string, page, limit int) []Record {
	rs.lock.RLock()
	defer rs.lock.RUnlock()

	ids := make([]string, 0, len(rs.data[resource]))
	for id, rec := range rs.data[resource] {
		if matches(rec, filter) {
			ids = append(ids, id)
		}
	}
	sort.Slice(ids, func(i, j int) bool {
		return rs.seq[resource][ids[i]] < rs.seq[resource][ids[j]]
	})

	if limit > 0 {
		start := (max(page, 1) - 1) * limit
		if start >= len(ids) {
			ids = nil
		} else {
			ids = ids[start:min(start+limit, len(ids))]
		}
	}

	out := make([]Record, 0, len(ids))
	for _, id := range ids {
		out = append(out, clone(rs.data[resource][id]))
	}
	return out
}

func (rs *recordStore) get(resource, id string) (Record, error) {
	rs.lock.RLock()
	defer rs.lock.RUnlock()

	rec, ok := rs.data[resource][id]
	if !ok {
		return nil, fmt.Errorf("[devserver] %s %q: %w", resource, id, errors.ErrNotFound)
	}
	return clone(rec), nil
}

func (rs *recordStore) create(resource string, rec Record) Record {
	rs.lock.Lock()
	defer rs.lock.Unlock()

	rec = clone(rec)
	id, _ := rec["id"].(string)
	if id == "" {
		id = uuid.NewString()
	}
	rec["id"] = id
	if rs.data[resource] == nil {
		rs.data[resource] = make(map[string]Record)
		rs.seq[resource] = make(map[string]int)
	}
	rs.data[resource][id] = rec
	rs.next++
	rs.seq[resource][id] = rs.next
	return clone(rec)
}

// update replaces the record, or merges into it when partial is set.
func (rs *recordStore) update(resource, id string, rec Record, partial bool) (Record, error) {
	rs.lock.Lock()
	defer rs.lock.Unlock()

	current, ok := rs.data[resource][id]
	if !ok {
		return nil, fmt.Errorf("[devserver] %s %q: %w", resource, id, errors.ErrNotFound)
	}
	next := clone(rec)
	if partial {
		next = clone(current)
		for k, v := range rec {
			next[k] = v
		}
	}
	next["id"] = id
	rs.data[resource][id] = next
	return clone(next), nil
}

func (rs *recordStore) delete(resource, id string) error {
	rs.lock.Lock()
	defer rs.lock.Unlock()

	if _, ok := rs.data[resource][id]; !ok {
		return fmt.Errorf("[devserver] %s %q: %w", resource, id, errors.ErrNotFound)
	}
	delete(rs.data[resource], id)
	delete(rs.seq[resource], id)
	return nil
}

func (rs *recordStore) count(resource string) int {
	rs.lock.RLock()
	defer rs.lock.RUnlock()
	return len(rs.data[resource])
}

func matches(rec Record, filter map[string]string) bool {
	for k, want := range filter {
		v, ok := rec[k]
		if !ok || fmt.Sprint(v) != want {
			return false
		}
	}
	return true
}

func clone(rec Record) Record {
	out := make(Record, len(rec))
	for k, v := range rec {
		out[k] = v
	}
	return out
}

func atoiOr(s string, def int) int {
	n, err := strconv.Atoi(s)
	if err != nil || n < 0 {
		return def
	}
	return n
}
