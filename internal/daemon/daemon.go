// Package daemon runs the background analysis process: it tails capture
// logs under the configured log directory, re-analyzes each session as
// events land, persists results to the store, and answers CLI queries
// over the IPC socket.
package daemon

import (
	"context"
	"fmt"
	"log"
	"os"
	"sync"
	"sync/atomic"
	"time"

	"github.com/anthropic/edit-attribution/internal/config"
	"github.com/anthropic/edit-attribution/internal/detection"
	"github.com/anthropic/edit-attribution/internal/event"
	"github.com/anthropic/edit-attribution/internal/gitint"
	"github.com/anthropic/edit-attribution/internal/ingest"
	"github.com/anthropic/edit-attribution/internal/report"
	"github.com/anthropic/edit-attribution/internal/review"
	"github.com/anthropic/edit-attribution/internal/store"
)

// IPCServer is the interface the daemon uses to start/stop the IPC listener.
// This avoids a circular dependency with the ipc package.
type IPCServer interface {
	Listen(socketPath string, ctx context.Context) error
	Stop() error
}

// StoreAware can receive a store reference after it becomes available.
type StoreAware interface {
	SetStore(store interface{})
}

// analyzeInterval is how often dirty sessions are re-analyzed.
const analyzeInterval = 5 * time.Second

// sessionBuffer accumulates the event stream for one captured session.
type sessionBuffer struct {
	fileURI string
	events  []event.EditEvent
	dirty   bool
}

// Daemon manages the lifecycle of the editattr background process.
type Daemon struct {
	cfg    *config.Config
	store  *store.Store
	ipc    IPCServer
	engine *detection.Engine

	gitRepo   *gitint.Repository
	startTime time.Time
	ingested  atomic.Int64

	ctx     context.Context
	cancel  context.CancelFunc
	mu      sync.Mutex
	running bool

	sessions map[string]*sessionBuffer
	tailed   map[string]bool
	watched  []string

	lastSource string
	lastProb   float64
	lastSet    bool
}

// New creates a new Daemon with the given config.
// The IPC server is injected to avoid circular imports.
func New(cfg *config.Config, ipcServer IPCServer) *Daemon {
	return &Daemon{
		cfg:      cfg,
		ipc:      ipcServer,
		sessions: make(map[string]*sessionBuffer),
		tailed:   make(map[string]bool),
	}
}

// Start initialises the store and engine, starts the IPC server and log
// tailers, and blocks until the context is cancelled (via signal or Stop).
func (d *Daemon) Start() error {
	d.mu.Lock()
	if d.running {
		d.mu.Unlock()
		return fmt.Errorf("daemon is already running")
	}
	d.mu.Unlock()

	if err := d.cfg.EnsureDataDir(); err != nil {
		return fmt.Errorf("create data dir: %w", err)
	}

	// Open store (runs migrations).
	s, err := store.New(d.cfg.DBPath)
	if err != nil {
		return fmt.Errorf("open store: %w", err)
	}
	d.store = s

	// If the IPC server is StoreAware, give it the store reference.
	if sa, ok := d.ipc.(StoreAware); ok {
		sa.SetStore(s)
	}

	detCfg, err := d.cfg.DetectionConfig()
	if err != nil {
		_ = s.Close()
		return fmt.Errorf("resolve detection config: %w", err)
	}
	d.engine = detection.New(detCfg)

	// Create a signal-aware context.
	ctx, cancel := signalContext(context.Background())
	d.ctx = ctx
	d.cancel = cancel
	d.startTime = time.Now()

	d.mu.Lock()
	d.running = true
	d.mu.Unlock()

	// Start IPC server in a goroutine.
	ipcErrCh := make(chan error, 1)
	go func() {
		ipcErrCh <- d.ipc.Listen(d.cfg.SocketPath, d.ctx)
	}()

	// Discover existing capture logs and start tailing them.
	logs, err := ingest.Discover(d.cfg.LogDir)
	if err != nil {
		log.Printf("log discover error: %v", err)
	}
	for _, lf := range logs {
		d.startLogTailer(d.ctx, lf)
	}

	// Watch for new capture logs (session rotation).
	newLogs := make(chan ingest.LogFile, 10)
	go func() {
		if err := ingest.WatchForNew(d.ctx, d.cfg.LogDir, newLogs); err != nil {
			log.Printf("log watcher error: %v", err)
		}
	}()
	go func() {
		for {
			select {
			case <-d.ctx.Done():
				return
			case lf := <-newLogs:
				d.startLogTailer(d.ctx, lf)
			}
		}
	}()

	// Git integration: open the configured repository and start periodic
	// commit sync for review corroboration.
	if d.cfg.RepoPath != "" {
		repo, err := gitint.Open(d.cfg.RepoPath)
		if err != nil {
			log.Printf("git open warning (not a git repo?): %v", err)
		} else {
			d.gitRepo = repo
			if err := repo.SyncCommits(d.ctx, d.store, time.Now().Add(-gitint.DefaultLookback())); err != nil {
				log.Printf("git initial sync error: %v", err)
			}
			go func() {
				ticker := time.NewTicker(gitint.SyncInterval())
				defer ticker.Stop()
				for {
					select {
					case <-d.ctx.Done():
						return
					case <-ticker.C:
						since := time.Now().Add(-gitint.DefaultLookback())
						if err := repo.SyncCommits(d.ctx, d.store, since); err != nil {
							log.Printf("git sync error: %v", err)
						}
					}
				}
			}()
		}
	}

	// Periodic re-analysis of sessions that received new events.
	go func() {
		ticker := time.NewTicker(analyzeInterval)
		defer ticker.Stop()
		for {
			select {
			case <-d.ctx.Done():
				return
			case <-ticker.C:
				d.analyzeDirty(time.Now())
			}
		}
	}()

	log.Printf("daemon started (pid %d, db %s, socket %s)", os.Getpid(), d.cfg.DBPath, d.cfg.SocketPath)

	// Block until context is cancelled or IPC server fails.
	select {
	case <-d.ctx.Done():
		log.Println("shutdown signal received")
	case err := <-ipcErrCh:
		if err != nil {
			log.Printf("IPC server error: %v", err)
		}
	}

	return d.shutdown()
}

// Stop triggers a graceful shutdown from outside (e.g. via IPC stop command).
func (d *Daemon) Stop() {
	d.mu.Lock()
	defer d.mu.Unlock()
	if d.cancel != nil {
		d.cancel()
	}
}

// shutdown performs ordered teardown: final analysis pass, IPC server,
// then store and socket cleanup.
func (d *Daemon) shutdown() error {
	log.Println("shutting down...")

	// Last analysis pass so buffered events are not lost.
	d.analyzeDirty(time.Now())

	if d.ipc != nil {
		if err := d.ipc.Stop(); err != nil {
			log.Printf("ipc stop: %v", err)
		}
	}

	if d.store != nil {
		if err := d.store.Close(); err != nil {
			log.Printf("store close: %v", err)
		}
	}

	_ = os.Remove(d.cfg.SocketPath)

	d.mu.Lock()
	d.running = false
	d.mu.Unlock()

	log.Println("daemon stopped")
	return nil
}

// Running returns true if the daemon is currently running.
func (d *Daemon) Running() bool {
	d.mu.Lock()
	defer d.mu.Unlock()
	return d.running
}

// Store returns the daemon's data store (for use by IPC handlers).
func (d *Daemon) Store() *store.Store {
	return d.store
}

// Uptime returns how long the daemon has been running.
func (d *Daemon) Uptime() time.Duration {
	if d.startTime.IsZero() {
		return 0
	}
	return time.Since(d.startTime)
}

// EventsIngested returns the number of events parsed from tailed logs.
func (d *Daemon) EventsIngested() int64 {
	return d.ingested.Load()
}

// WatchedLogs returns the log paths currently being tailed.
func (d *Daemon) WatchedLogs() []string {
	d.mu.Lock()
	defer d.mu.Unlock()
	out := make([]string, len(d.watched))
	copy(out, d.watched)
	return out
}

// LastAttribution reports the most recent attribution result; ok is
// false before the first analysis completes.
func (d *Daemon) LastAttribution() (string, float64, bool) {
	d.mu.Lock()
	defer d.mu.Unlock()
	return d.lastSource, d.lastProb, d.lastSet
}

// Config returns the daemon's configuration.
func (d *Daemon) Config() *config.Config {
	return d.cfg
}

// startLogTailer starts goroutines that tail a single capture log,
// parse each line, and buffer events per session. The tailer resumes
// from the last persisted cursor for the path.
func (d *Daemon) startLogTailer(ctx context.Context, lf ingest.LogFile) {
	d.mu.Lock()
	if d.tailed[lf.Path] {
		d.mu.Unlock()
		return
	}
	d.tailed[lf.Path] = true
	d.watched = append(d.watched, lf.Path)
	d.mu.Unlock()

	offset, err := d.store.Cursor(lf.Path)
	if err != nil {
		log.Printf("cursor read %s: %v", lf.Path, err)
	}

	tailer := ingest.NewTailer(lf.Path, offset, 0)
	lines := make(chan []byte, 100)

	go func() {
		finalOffset, err := tailer.Tail(ctx, lines)
		if err != nil {
			log.Printf("log tailer %s error: %v", lf.Path, err)
		}
		if err := d.store.SetCursor(lf.Path, finalOffset); err != nil {
			log.Printf("cursor persist %s: %v", lf.Path, err)
		}
	}()

	go func() {
		for {
			select {
			case <-ctx.Done():
				return
			case line := <-lines:
				events, ok := ingest.ParseLine(line)
				if !ok {
					log.Printf("log parse error in %s, line skipped", lf.Path)
					continue
				}
				if len(events) > 0 {
					d.ingestEvents(events)
				}
			}
		}
	}()
}

// ingestEvents appends events to their session buffers and marks those
// sessions for re-analysis.
func (d *Daemon) ingestEvents(events []event.EditEvent) {
	d.mu.Lock()
	defer d.mu.Unlock()
	for i := range events {
		e := &events[i]
		buf := d.sessions[e.SessionID]
		if buf == nil {
			buf = &sessionBuffer{fileURI: e.FileURI}
			d.sessions[e.SessionID] = buf
		}
		buf.events = append(buf.events, *e)
		buf.dirty = true
	}
	d.ingested.Add(int64(len(events)))
}

// analyzeDirty re-analyzes every session that received events since the
// last pass and persists the results.
func (d *Daemon) analyzeDirty(now time.Time) {
	d.mu.Lock()
	type job struct {
		sessionID string
		fileURI   string
		events    []event.EditEvent
	}
	var jobs []job
	for id, buf := range d.sessions {
		if !buf.dirty {
			continue
		}
		buf.dirty = false
		snapshot := make([]event.EditEvent, len(buf.events))
		copy(snapshot, buf.events)
		jobs = append(jobs, job{sessionID: id, fileURI: buf.fileURI, events: snapshot})
	}
	d.mu.Unlock()

	var commit *review.CommitInfo
	if d.gitRepo != nil {
		if info, err := d.gitRepo.HeadInfo(); err == nil {
			commit = info
		}
	}

	for _, j := range jobs {
		rep := report.Generate(j.sessionID, j.fileURI, j.events, d.engine, commit)

		if _, err := d.store.SaveAttribution(j.sessionID, j.fileURI, len(j.events), rep.Attribution, rep.Buckets, now); err != nil {
			log.Printf("persist attribution %s: %v", j.sessionID, err)
			continue
		}
		if err := d.store.SaveAssessment(j.sessionID, j.fileURI, rep.Review, now); err != nil {
			log.Printf("persist assessment %s: %v", j.sessionID, err)
		}

		d.mu.Lock()
		d.lastSource = string(rep.Attribution.Source)
		d.lastProb = rep.Attribution.AIProbability
		d.lastSet = true
		d.mu.Unlock()
	}
}
