// Package services wires the CCR services together and routes their events.
package services

import (
	"context"
	"errors"
	"fmt"
	"sync"

	"github.com/gen2brain/beeep"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"

	"github.com/ardilabayufirdaus/SIPOMA-PocketBase-sub005/internal/auth"
	"github.com/ardilabayufirdaus/SIPOMA-PocketBase-sub005/internal/config"
	"github.com/ardilabayufirdaus/SIPOMA-PocketBase-sub005/internal/db"
	"github.com/ardilabayufirdaus/SIPOMA-PocketBase-sub005/internal/logger"
	"github.com/ardilabayufirdaus/SIPOMA-PocketBase-sub005/internal/pocketbase"
	"github.com/ardilabayufirdaus/SIPOMA-PocketBase-sub005/internal/services/analysis"
	"github.com/ardilabayufirdaus/SIPOMA-PocketBase-sub005/internal/services/analysiscache"
	"github.com/ardilabayufirdaus/SIPOMA-PocketBase-sub005/internal/services/footer"
	"github.com/ardilabayufirdaus/SIPOMA-PocketBase-sub005/internal/services/importer"
)

type (
	// FooterGeneratedEvent is emitted after a footer has been generated and stored.
	FooterGeneratedEvent struct {
		Report *footer.Report
	}

	// CounterResetEvent is emitted for every shift counter that went backwards.
	CounterResetEvent struct {
		Anomaly footer.Anomaly
	}

	// CacheSweptEvent is emitted after each expiry sweep of the analysis cache.
	CacheSweptEvent struct {
		Deleted int
	}

	// ReadingsImportedEvent is emitted when a readings document has been imported.
	ReadingsImportedEvent struct {
		Imported *importer.Imported
	}

	// ErrorEvent is emitted when an error occurs in any service.
	ErrorEvent struct {
		Service string
		Error   error
	}
)

// ServiceEvent is the interface implemented by all service events.
type ServiceEvent interface {
	isServiceEvent()
}

func (FooterGeneratedEvent) isServiceEvent()  {}
func (CounterResetEvent) isServiceEvent()     {}
func (CacheSweptEvent) isServiceEvent()       {}
func (ReadingsImportedEvent) isServiceEvent() {}
func (ErrorEvent) isServiceEvent()            {}

// Manager owns the database, the cache store and the services built on them.
type Manager struct {
	mu          sync.RWMutex
	cfg         *config.Config
	database    *db.DB
	pocketbase  *pocketbase.Client
	session     auth.Checker
	registry    *prometheus.Registry
	cache       *analysiscache.Cache
	analysis    *analysis.Service
	footer      *footer.Service
	eventChan   chan ServiceEvent
	subscribers []chan<- ServiceEvent
	notify      func(title, body string) error
	closeOnce   sync.Once
}

// NewManager opens the database and the configured cache store.
func NewManager(ctx context.Context, cfg *config.Config) (*Manager, error) {
	m := &Manager{
		cfg:       cfg,
		registry:  prometheus.NewRegistry(),
		eventChan: make(chan ServiceEvent, 100),
		notify: func(title, body string) error {
			return beeep.Notify(title, body, "")
		},
	}

	m.registry.MustRegister(
		collectors.NewGoCollector(),
		collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}),
	)

	var err error
	m.database, err = db.New(cfg.DatabasePath)
	if err != nil {
		return nil, fmt.Errorf("failed to initialize database: %w", err)
	}

	store, err := m.openCacheStore(ctx)
	if err != nil {
		_ = m.database.Close()
		return nil, err
	}

	m.cache = analysiscache.New(store, m.session,
		analysiscache.WithTTL(cfg.CacheTTL),
		analysiscache.WithMetrics(analysiscache.NewMetrics(m.registry)),
	)
	m.analysis = analysis.New(m.database, m.cache, nil)
	m.footer = footer.New(m.database)

	return m, nil
}

// openCacheStore selects the cache backend and its session.
func (m *Manager) openCacheStore(ctx context.Context) (analysiscache.Store, error) {
	if m.cfg.StoreBackend != config.BackendPocketBase {
		m.session = auth.LocalSession{}
		return m.database, nil
	}

	session := auth.NewTokenSession(m.cfg.PocketBaseToken, nil)
	client, err := pocketbase.New(m.cfg.PocketBaseURL,
		pocketbase.WithRateLimit(m.cfg.PocketBaseRateLimit),
		pocketbase.WithTokenSource(session),
	)
	if err != nil {
		return nil, err
	}

	if !session.IsValid() && m.cfg.PocketBaseIdentity != "" {
		token, err := client.AuthWithPassword(ctx, pocketbase.UsersCollection, m.cfg.PocketBaseIdentity, m.cfg.PocketBasePassword)
		if err != nil {
			// The cache runs as always-miss without a session.
			logger.Warn("pocketbase authentication failed", "url", client.BaseURL(), "error", err)
		} else {
			session.Set(token)
		}
	}
	if !session.IsValid() {
		logger.Warn("no valid pocketbase session, analysis cache disabled", "url", client.BaseURL())
	}

	m.pocketbase = client
	m.session = session
	return client, nil
}

// Run starts the cache sweeper and, when a readings directory is configured,
// the import watcher. Imported documents trigger footer generation. Run
// blocks until ctx is done.
func (m *Manager) Run(ctx context.Context) error {
	var watcher *importer.Watcher
	if m.cfg.ReadingsDir != "" {
		var err error
		watcher, err = importer.NewWatcher(m.cfg.ReadingsDir, m.database, 0)
		if err != nil {
			return fmt.Errorf("failed to start readings watcher: %w", err)
		}
		defer func() {
			if err := watcher.Close(); err != nil {
				logger.Error("failed to close readings watcher", "error", err)
			}
		}()
		logger.Info("watching readings directory", "dir", watcher.Dir())
	}

	var wg sync.WaitGroup
	wg.Add(1)
	go func() {
		defer wg.Done()
		m.cache.RunSweeper(ctx, m.cfg.SweepInterval, func(n int) {
			m.broadcast(CacheSweptEvent{Deleted: n})
		})
	}()
	defer wg.Wait()

	var events <-chan importer.Event
	if watcher != nil {
		events = watcher.Events()
	}

	for {
		select {
		case <-ctx.Done():
			return nil
		case event := <-events:
			m.handleImportEvent(ctx, event)
		}
	}
}

func (m *Manager) handleImportEvent(ctx context.Context, event importer.Event) {
	switch event.Type {
	case importer.EventImported:
		m.broadcast(ReadingsImportedEvent{Imported: event.Imported})
		if _, err := m.GenerateFooter(ctx, event.Imported.Date, event.Imported.PlantUnit); err != nil {
			m.broadcast(ErrorEvent{Service: "footer", Error: err})
		}

	case importer.EventError:
		m.broadcast(ErrorEvent{Service: "importer", Error: event.Error})
	}
}

// GenerateFooter generates the footer of a date and reports its counter resets.
func (m *Manager) GenerateFooter(ctx context.Context, date, plantUnit string) (*footer.Report, error) {
	report, err := m.footer.Generate(ctx, date, plantUnit)
	if err != nil {
		return nil, err
	}

	m.broadcast(FooterGeneratedEvent{Report: report})
	for _, a := range report.Anomalies {
		m.broadcast(CounterResetEvent{Anomaly: a})
		m.notifyCounterReset(a)
	}
	return report, nil
}

func (m *Manager) notifyCounterReset(a footer.Anomaly) {
	if !m.cfg.NotifyCounterResets || m.notify == nil {
		return
	}
	title := fmt.Sprintf("Counter reset: %s", a.ParameterID)
	body := fmt.Sprintf("%s %s on %s went back by %.2f", a.PlantUnit, a.Shift, a.Date, -a.Raw)
	if err := m.notify(title, body); err != nil {
		logger.Debug("desktop notification failed", "error", err)
	}
}

// broadcast sends an event to all subscribers.
func (m *Manager) broadcast(event ServiceEvent) {
	// Send to main event channel
	select {
	case m.eventChan <- event:
	default:
	}

	m.mu.RLock()
	defer m.mu.RUnlock()

	for _, sub := range m.subscribers {
		select {
		case sub <- event:
		default:
			// Subscriber channel full, skip
		}
	}
}

// Events returns the main event channel.
func (m *Manager) Events() <-chan ServiceEvent {
	return m.eventChan
}

// Subscribe creates a channel for receiving service events.
func (m *Manager) Subscribe() chan ServiceEvent {
	ch := make(chan ServiceEvent, 50)

	m.mu.Lock()
	m.subscribers = append(m.subscribers, ch)
	m.mu.Unlock()

	return ch
}

// Unsubscribe removes a subscriber channel.
func (m *Manager) Unsubscribe(ch chan ServiceEvent) {
	m.mu.Lock()
	defer m.mu.Unlock()

	for i, sub := range m.subscribers {
		if sub == ch {
			m.subscribers = append(m.subscribers[:i], m.subscribers[i+1:]...)
			close(ch)
			break
		}
	}
}

// Database returns the database instance for direct access.
func (m *Manager) Database() *db.DB {
	return m.database
}

// Cache returns the analysis cache.
func (m *Manager) Cache() *analysiscache.Cache {
	return m.cache
}

// Analysis returns the COP analysis service.
func (m *Manager) Analysis() *analysis.Service {
	return m.analysis
}

// Footer returns the footer service.
func (m *Manager) Footer() *footer.Service {
	return m.footer
}

// Session returns the session gating the cache.
func (m *Manager) Session() auth.Checker {
	return m.session
}

// Registry returns the metrics registry.
func (m *Manager) Registry() *prometheus.Registry {
	return m.registry
}

// Close closes the manager and its database.
func (m *Manager) Close() error {
	var errs []error
	m.closeOnce.Do(func() {
		m.mu.Lock()
		for _, sub := range m.subscribers {
			close(sub)
		}
		m.subscribers = nil
		m.mu.Unlock()

		if m.database != nil {
			if err := m.database.Close(); err != nil {
				errs = append(errs, err)
			}
		}
	})
	return errors.Join(errs...)
}
