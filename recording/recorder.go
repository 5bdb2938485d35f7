// Package recording persists device activity into a SQLite database. It
// subscribes to a device as a hook, buffers rows in memory, and writes them
// out in batches.
package recording

import (
	"database/sql"
	"log"
	"sync"
	"time"

	// Need to use SQLite connections.
	_ "github.com/mattn/go-sqlite3"
	"github.com/rs/xid"
	"github.com/tebeka/atexit"

	"github.com/sarchlab/pacer/device"
)

const batchSize = 1024

// An IRQEvent is one raise, acknowledge, or stop observed on the device.
type IRQEvent struct {
	ID     string
	Kind   string
	Cause  uint32
	UnixNs int64
}

// A ConfUpdate is one interval overwrite applied by the configuration
// channel.
type ConfUpdate struct {
	ID       string
	Interval uint32
	UnixNs   int64
}

// A Recorder records device activity. It is safe to invoke from multiple
// goroutines.
type Recorder struct {
	// DB is the underlying database connection. It is exported so that
	// readers can run their own queries.
	DB *sql.DB

	mu             sync.Mutex
	pendingIRQ     []IRQEvent
	pendingUpdates []ConfUpdate
}

// NewRecorder creates a Recorder backed by the SQLite database at path. The
// ".sqlite3" suffix is appended. The recorder flushes at exit.
func NewRecorder(path string) (*Recorder, error) {
	db, err := sql.Open("sqlite3", path+".sqlite3")
	if err != nil {
		return nil, err
	}

	r := &Recorder{DB: db}
	if err := r.createTables(); err != nil {
		db.Close()
		return nil, err
	}

	atexit.Register(func() { r.Flush() })

	return r, nil
}

func (r *Recorder) createTables() error {
	_, err := r.DB.Exec(`
		CREATE TABLE IF NOT EXISTS irq_events (
			id TEXT PRIMARY KEY,
			kind TEXT,
			cause INTEGER,
			unix_ns INTEGER
		);
		CREATE TABLE IF NOT EXISTS conf_updates (
			id TEXT PRIMARY KEY,
			interval INTEGER,
			unix_ns INTEGER
		);
	`)

	return err
}

// Func implements device.Hook. It turns hook invocations into rows.
func (r *Recorder) Func(ctx device.HookCtx) {
	now := time.Now().UnixNano()

	switch ctx.Pos {
	case device.HookPosRaise:
		r.addIRQEvent("raise", ctx.Item.(uint32), now)
	case device.HookPosAck:
		r.addIRQEvent("ack", ctx.Item.(uint32), now)
	case device.HookPosStop:
		r.addIRQEvent("stop", 0, now)
	case device.HookPosConfUpdate:
		r.addConfUpdate(ctx.Item.(uint32), now)
	}
}

func (r *Recorder) addIRQEvent(kind string, cause uint32, now int64) {
	r.mu.Lock()
	r.pendingIRQ = append(r.pendingIRQ, IRQEvent{
		ID:     xid.New().String(),
		Kind:   kind,
		Cause:  cause,
		UnixNs: now,
	})
	full := len(r.pendingIRQ) >= batchSize
	r.mu.Unlock()

	if full {
		r.Flush()
	}
}

func (r *Recorder) addConfUpdate(interval uint32, now int64) {
	r.mu.Lock()
	r.pendingUpdates = append(r.pendingUpdates, ConfUpdate{
		ID:       xid.New().String(),
		Interval: interval,
		UnixNs:   now,
	})
	full := len(r.pendingUpdates) >= batchSize
	r.mu.Unlock()

	if full {
		r.Flush()
	}
}

// Flush writes all buffered rows into the database.
func (r *Recorder) Flush() {
	r.mu.Lock()
	irq := r.pendingIRQ
	updates := r.pendingUpdates
	r.pendingIRQ = nil
	r.pendingUpdates = nil
	r.mu.Unlock()

	if len(irq) == 0 && len(updates) == 0 {
		return
	}

	tx, err := r.DB.Begin()
	if err != nil {
		log.Panic(err)
	}

	for _, e := range irq {
		_, err := tx.Exec(
			"INSERT INTO irq_events (id, kind, cause, unix_ns) "+
				"VALUES (?, ?, ?, ?)",
			e.ID, e.Kind, e.Cause, e.UnixNs)
		if err != nil {
			log.Panic(err)
		}
	}

	for _, u := range updates {
		_, err := tx.Exec(
			"INSERT INTO conf_updates (id, interval, unix_ns) "+
				"VALUES (?, ?, ?)",
			u.ID, u.Interval, u.UnixNs)
		if err != nil {
			log.Panic(err)
		}
	}

	if err := tx.Commit(); err != nil {
		log.Panic(err)
	}
}

// Close flushes buffered rows and closes the database.
func (r *Recorder) Close() error {
	r.Flush()
	return r.DB.Close()
}
