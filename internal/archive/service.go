package archive

import (
	"context"
	"fmt"
	"sync"

	"github.com/shoptracker/shoptracker-backend/pkg/db"
	"github.com/shoptracker/shoptracker-backend/pkg/db/models"
	"github.com/shoptracker/shoptracker-backend/pkg/logger"
)

const defaultQueueSize = 256

type record struct {
	event *models.InventoryEvent
	audit *models.AuditEntry
}

// Service copies inventory events and audit entries into the database in
// the background. The in-memory stores stay authoritative; the archive is
// a write-behind mirror for reporting and post-restart inspection.
// Enqueue methods never block: when the queue is full the record is
// dropped and a warning logged.
type Service struct {
	client *db.Client
	logg   *logger.Logger

	queue chan record
	wg    sync.WaitGroup

	mu     sync.Mutex
	closed bool
}

// NewService migrates the archive tables and prepares the writer. Call
// Start to begin draining the queue.
func NewService(ctx context.Context, client *db.Client, logg *logger.Logger) (*Service, error) {
	if client == nil {
		return nil, fmt.Errorf("db client required")
	}
	if err := client.DB().WithContext(ctx).AutoMigrate(&models.InventoryEvent{}, &models.AuditEntry{}); err != nil {
		return nil, fmt.Errorf("migrating archive tables: %w", err)
	}
	return &Service{
		client: client,
		logg:   logg,
		queue:  make(chan record, defaultQueueSize),
	}, nil
}

// Start launches the background writer. ctx cancellation does not stop
// the writer; use Close so queued records drain before shutdown.
func (s *Service) Start(ctx context.Context) {
	s.wg.Add(1)
	go func() {
		defer s.wg.Done()
		for rec := range s.queue {
			s.persist(ctx, rec)
		}
	}()
}

func (s *Service) persist(ctx context.Context, rec record) {
	var err error
	switch {
	case rec.event != nil:
		err = s.client.DB().WithContext(ctx).Create(rec.event).Error
	case rec.audit != nil:
		err = s.client.DB().WithContext(ctx).Create(rec.audit).Error
	}
	if err != nil && s.logg != nil {
		s.logg.Error(ctx, "archive write failed", err)
	}
}

// EnqueueEvent queues one inventory event for archival.
func (s *Service) EnqueueEvent(event models.InventoryEvent) {
	s.enqueue(record{event: &event})
}

// EnqueueAudit queues one audit entry for archival.
func (s *Service) EnqueueAudit(entry models.AuditEntry) {
	s.enqueue(record{audit: &entry})
}

func (s *Service) enqueue(rec record) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.closed {
		return
	}
	select {
	case s.queue <- rec:
	default:
		if s.logg != nil {
			s.logg.Warn(context.Background(), "archive queue full, dropping record")
		}
	}
}

// Close stops accepting records and blocks until the queue drains.
// Records enqueued after Close are dropped.
func (s *Service) Close() error {
	s.mu.Lock()
	if !s.closed {
		s.closed = true
		close(s.queue)
	}
	s.mu.Unlock()
	s.wg.Wait()
	return nil
}
