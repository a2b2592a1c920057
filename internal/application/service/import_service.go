package service

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"go.uber.org/zap"

	"github.com/vansh-000/CampusOne/internal/application/port"
	"github.com/vansh-000/CampusOne/internal/domain/entity"
)

// ImportService queues roster rows for the import worker and answers
// progress queries. Row processing itself happens in ProcessRow, called from
// the worker binary.
type ImportService interface {
	QueueImport(ctx context.Context, actor entity.ActingIdentity, kind string, rows []map[string]string) (*entity.ImportJob, error)
	GetJob(ctx context.Context, id string) (*entity.ImportJob, error)
	ProcessRow(ctx context.Context, payload []byte) error
}

type importService struct {
	importRepo   port.ImportJobRepository
	registration RegistrationService
	queue        port.ImportQueue
	txManager    port.TransactionManager
	logger       *zap.Logger
}

// NewImportService creates a new ImportService
func NewImportService(
	importRepo port.ImportJobRepository,
	registration RegistrationService,
	queue port.ImportQueue,
	txManager port.TransactionManager,
	logger *zap.Logger,
) ImportService {
	return &importService{
		importRepo:   importRepo,
		registration: registration,
		queue:        queue,
		txManager:    txManager,
		logger:       logger,
	}
}

// QueueImport records the job and pushes one queue entry per roster row
func (s *importService) QueueImport(ctx context.Context, actor entity.ActingIdentity, kind string, rows []map[string]string) (*entity.ImportJob, error) {
	if kind != entity.ImportKindStudents && kind != entity.ImportKindFaculty {
		return nil, fmt.Errorf("%w: unknown import kind %q", ErrValidation, kind)
	}
	if len(rows) == 0 {
		return nil, fmt.Errorf("%w: roster contains no rows", ErrValidation)
	}

	job := &entity.ImportJob{
		InstitutionID: actor.InstitutionID,
		Kind:          kind,
		Total:         len(rows),
		Status:        entity.ImportStatusProcessing,
		StartedAt:     time.Now().UTC(),
	}
	if err := s.importRepo.Create(ctx, job); err != nil {
		return nil, err
	}

	for i, record := range rows {
		payload, err := json.Marshal(entity.ImportRow{
			ImportID:      job.ID,
			InstitutionID: actor.InstitutionID,
			Kind:          kind,
			RowNumber:     i + 1,
			Record:        record,
		})
		if err != nil {
			return nil, fmt.Errorf("marshal import row: %w", err)
		}
		if err := s.queue.Push(ctx, payload); err != nil {
			s.logger.Error("Failed to queue import row",
				zap.String("import_id", job.ID),
				zap.Int("row", i+1),
				zap.Error(err))
			return nil, fmt.Errorf("queue import row %d: %w", i+1, err)
		}
	}

	s.logger.Info("Import queued",
		zap.String("import_id", job.ID),
		zap.String("kind", kind),
		zap.Int("total", job.Total))
	return job, nil
}

// GetJob returns a job with its progress counters and error rows
func (s *importService) GetJob(ctx context.Context, id string) (*entity.ImportJob, error) {
	return s.importRepo.GetByID(ctx, id)
}

// ProcessRow registers one queued roster row and advances the job's
// counters. Registration failures are recorded on the job, not returned: a
// bad row must not stall the queue. The accounting writes (counters, error
// row, completion flip) run in one transaction so a partial failure leaves
// the job untouched.
func (s *importService) ProcessRow(ctx context.Context, payload []byte) error {
	var row entity.ImportRow
	if err := json.Unmarshal(payload, &row); err != nil {
		return fmt.Errorf("unmarshal import row: %w", err)
	}

	var regErr error
	switch row.Kind {
	case entity.ImportKindStudents:
		_, regErr = s.registration.RegisterStudent(ctx, StudentFromRecord(row.InstitutionID, row.Record))
	case entity.ImportKindFaculty:
		_, regErr = s.registration.RegisterFaculty(ctx, FacultyFromRecord(row.InstitutionID, row.Record))
	default:
		regErr = fmt.Errorf("unknown import kind %q", row.Kind)
	}

	reason := ""
	if regErr != nil {
		reason = regErr.Error()
		s.logger.Warn("Import row failed",
			zap.String("import_id", row.ImportID),
			zap.Int("row", row.RowNumber),
			zap.Error(regErr))
	}

	err := s.txManager.WithTransaction(ctx, func(txCtx context.Context) error {
		return s.importRepo.RecordRowResult(txCtx, row.ImportID, row.RowNumber, regErr == nil, reason)
	})
	if err != nil {
		return fmt.Errorf("record row result: %w", err)
	}
	return nil
}
