package audit

import (
	"context"
	"fmt"
	"log/slog"

	"github.com/labstack/echo/v4"

	"github.com/keyxmakerx/radio/internal/apperror"
	"github.com/keyxmakerx/radio/internal/plugins/auth"
)

// perPage is the number of entries per page of the activity feed.
const perPage = 50

// maxStationHistoryEntries caps the history returned for one station.
const maxStationHistoryEntries = 100

// AuditService validates and stores audit entries.
type AuditService interface {
	// Log records an entry.
	Log(ctx context.Context, entry *Entry) error

	// Activity returns one page of the feed. Pages are 1-indexed.
	Activity(ctx context.Context, page int) (*Page, error)

	// StationHistory returns the recent entries about one station.
	StationHistory(ctx context.Context, stationID string) ([]Entry, error)
}

type auditService struct {
	repo AuditRepository
}

// NewAuditService creates an audit service.
func NewAuditService(repo AuditRepository) AuditService {
	return &auditService{repo: repo}
}

// Log validates and persists an entry.
func (s *auditService) Log(ctx context.Context, entry *Entry) error {
	if entry.Action == "" {
		return apperror.NewBadRequest("action is required for audit entry")
	}
	if err := s.repo.Log(ctx, entry); err != nil {
		return apperror.NewInternal(fmt.Errorf("writing audit entry: %w", err))
	}
	return nil
}

// Activity clamps invalid page numbers to 1.
func (s *auditService) Activity(ctx context.Context, page int) (*Page, error) {
	if page < 1 {
		page = 1
	}
	entries, total, err := s.repo.List(ctx, perPage, (page-1)*perPage)
	if err != nil {
		return nil, apperror.NewInternal(fmt.Errorf("listing activity: %w", err))
	}
	return &Page{Entries: entries, Total: total, Page: page, PerPage: perPage}, nil
}

// StationHistory returns at most maxStationHistoryEntries entries.
func (s *auditService) StationHistory(ctx context.Context, stationID string) ([]Entry, error) {
	if stationID == "" {
		return nil, apperror.NewBadRequest("station ID is required")
	}
	entries, err := s.repo.ListByStation(ctx, stationID, maxStationHistoryEntries)
	if err != nil {
		return nil, apperror.NewInternal(fmt.Errorf("listing station history: %w", err))
	}
	return entries, nil
}

// Logger is the part of AuditService other plugins record through.
type Logger interface {
	Log(ctx context.Context, entry *Entry) error
}

// Record logs entry on behalf of the signed-in user of c. A nil logger is
// allowed. Failures are logged and swallowed so the recorded action still
// succeeds.
func Record(c echo.Context, logger Logger, entry Entry) {
	if logger == nil {
		return
	}
	if entry.UserID == "" {
		entry.UserID = auth.GetUserID(c)
	}
	if err := logger.Log(c.Request().Context(), &entry); err != nil {
		slog.Warn("failed to write audit log entry",
			slog.String("action", entry.Action),
			slog.String("station", entry.StationID),
			slog.Any("error", err),
		)
	}
}
