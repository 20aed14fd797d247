package services

import (
	"context"
	"fmt"
	"log"
	"strings"
	"sync"
	"time"

	"github.com/google/uuid"

	"github.com/bsw-iitd/auth-server/internal/models"
	"github.com/bsw-iitd/auth-server/internal/store"
	"github.com/bsw-iitd/auth-server/internal/util"
)

// AuditLogEntry represents the data needed to create an audit log entry
type AuditLogEntry struct {
	EventType    models.EventType
	Severity     models.EventSeverity
	ActorUserID  string
	ActorIP      string
	ResourceType models.ResourceType
	ResourceID   string
	Action       string
	Details      models.AuditDetails
	Success      bool
	ErrorMessage string
}

// AuditService records audit events asynchronously. Events are buffered on a
// channel and written in batches so hot paths never block on the database.
type AuditService struct {
	store      *store.Store
	enabled    bool
	bufferSize int

	logChan chan *models.AuditLog

	batchBuffer []*models.AuditLog
	batchMutex  sync.Mutex
	batchTicker *time.Ticker

	wg         sync.WaitGroup
	shutdownCh chan struct{}
}

// NewAuditService creates a new audit service
func NewAuditService(s *store.Store, enabled bool, bufferSize int) *AuditService {
	if bufferSize <= 0 {
		bufferSize = 1000
	}

	service := &AuditService{
		store:       s,
		enabled:     enabled,
		bufferSize:  bufferSize,
		logChan:     make(chan *models.AuditLog, bufferSize),
		batchBuffer: make([]*models.AuditLog, 0, 100),
		batchTicker: time.NewTicker(1 * time.Second),
		shutdownCh:  make(chan struct{}),
	}

	if enabled {
		service.wg.Add(1)
		go service.worker()
		log.Printf("[Audit] service started with buffer size %d", bufferSize)
	} else {
		log.Println("[Audit] service is disabled")
	}

	return service
}

// worker is the background goroutine that processes audit logs
func (s *AuditService) worker() {
	defer s.wg.Done()

	for {
		select {
		case entry := <-s.logChan:
			s.addToBatch(entry)

		case <-s.batchTicker.C:
			s.flushBatch()

		case <-s.shutdownCh:
			// Flush remaining logs before shutdown
			s.flushBatch()
			return
		}
	}
}

// addToBatch adds a log entry to the batch buffer
func (s *AuditService) addToBatch(entry *models.AuditLog) {
	s.batchMutex.Lock()
	defer s.batchMutex.Unlock()

	s.batchBuffer = append(s.batchBuffer, entry)

	// Flush if batch is full (100 entries)
	if len(s.batchBuffer) >= 100 {
		s.flushBatchUnsafe()
	}
}

// flushBatch flushes the batch buffer to the database (thread-safe)
func (s *AuditService) flushBatch() {
	s.batchMutex.Lock()
	defer s.batchMutex.Unlock()
	s.flushBatchUnsafe()
}

// flushBatchUnsafe flushes the batch buffer without locking (caller must hold lock)
func (s *AuditService) flushBatchUnsafe() {
	if len(s.batchBuffer) == 0 {
		return
	}

	toWrite := make([]*models.AuditLog, len(s.batchBuffer))
	copy(toWrite, s.batchBuffer)
	s.batchBuffer = s.batchBuffer[:0]

	if err := s.store.CreateAuditLogs(toWrite); err != nil {
		log.Printf("[Audit] failed to write audit log batch: %v", err)
	}
}

// Log records an audit log entry asynchronously
func (s *AuditService) Log(ctx context.Context, entry AuditLogEntry) {
	if !s.enabled {
		return
	}

	if entry.ActorIP == "" {
		entry.ActorIP = util.GetIPFromContext(ctx)
	}

	entry.Details = maskSensitiveDetails(entry.Details)

	auditLog := &models.AuditLog{
		ID:           uuid.New().String(),
		EventType:    entry.EventType,
		EventTime:    time.Now(),
		Severity:     entry.Severity,
		ActorUserID:  entry.ActorUserID,
		ActorIP:      entry.ActorIP,
		ResourceType: entry.ResourceType,
		ResourceID:   entry.ResourceID,
		Action:       entry.Action,
		Details:      entry.Details,
		Success:      entry.Success,
		ErrorMessage: entry.ErrorMessage,
		CreatedAt:    time.Now(),
	}

	// Non-blocking send; drop when the buffer is full
	select {
	case s.logChan <- auditLog:
	default:
		log.Printf("[Audit] buffer full, dropping event: %s", entry.Action)
	}
}

// Shutdown gracefully shuts down the audit service
func (s *AuditService) Shutdown(ctx context.Context) error {
	if !s.enabled {
		return nil
	}

	s.batchTicker.Stop()
	close(s.shutdownCh)

	done := make(chan struct{})
	go func() {
		s.wg.Wait()
		close(done)
	}()

	select {
	case <-done:
		log.Println("[Audit] service shut down gracefully")
		return nil
	case <-ctx.Done():
		return fmt.Errorf("audit service shutdown timeout: %w", ctx.Err())
	}
}

// maskSensitiveDetails masks sensitive information in audit log details
func maskSensitiveDetails(details models.AuditDetails) models.AuditDetails {
	if details == nil {
		return details
	}

	masked := make(models.AuditDetails)
	for key, value := range details {
		if isSensitiveField(key) {
			masked[key] = "***REDACTED***"
			continue
		}
		masked[key] = value
	}

	return masked
}

// isSensitiveField checks if a field should be completely masked
func isSensitiveField(key string) bool {
	key = strings.ToLower(key)
	sensitiveFields := []string{
		"password",
		"client_secret",
		"token",
		"otp",
		"secret",
	}

	for _, field := range sensitiveFields {
		if strings.Contains(key, field) {
			return true
		}
	}
	return false
}
