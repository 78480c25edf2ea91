package main

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/google/uuid"

	"github.com/example/custody-scheduler/internal/application"
	"github.com/example/custody-scheduler/internal/config"
	httptransport "github.com/example/custody-scheduler/internal/http"
	"github.com/example/custody-scheduler/internal/logging"
	"github.com/example/custody-scheduler/internal/persistence"
	"github.com/example/custody-scheduler/internal/persistence/postgres"
	"github.com/example/custody-scheduler/internal/persistence/sqlite"
	"github.com/example/custody-scheduler/internal/persistence/sqlite/migration"
	"github.com/example/custody-scheduler/internal/scheduler"
)

const serviceName = "custody-scheduler"

func main() {
	logger := logging.New(os.Stdout, slog.LevelInfo, serviceName)
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	cfg, err := config.Load()
	if err != nil {
		logger.Error("failed to load configuration", "error", err)
		os.Exit(1)
	}
	logger = logging.New(os.Stdout, cfg.LogLevel, serviceName)

	store, err := openStore(ctx, cfg, logger)
	if err != nil {
		logger.Error("failed to open storage", "driver", cfg.DBDriver, "error", err)
		os.Exit(1)
	}
	defer func() {
		if cerr := store.Close(); cerr != nil {
			logger.Error("failed to close storage", "error", cerr)
		}
	}()

	server := &http.Server{
		Addr:              fmt.Sprintf(":%d", cfg.HTTPPort),
		Handler:           newHandler(store, cfg, logger, uuid.NewString, time.Now),
		ReadHeaderTimeout: 10 * time.Second,
		ReadTimeout:       30 * time.Second,
		WriteTimeout:      30 * time.Second,
		IdleTimeout:       60 * time.Second,
	}

	go func() {
		<-ctx.Done()
		shutdownCtx, cancel := context.WithTimeout(context.Background(), cfg.ShutdownTimeout)
		defer cancel()
		if err := server.Shutdown(shutdownCtx); err != nil && !errors.Is(err, http.ErrServerClosed) {
			logger.Error("failed to shutdown server", "error", err)
		}
	}()

	logger.Info("scheduler API listening", "addr", server.Addr, "driver", cfg.DBDriver)
	if err := server.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
		logger.Error("server encountered error", "error", err)
		os.Exit(1)
	}
}

// store is the storage surface shared by the SQLite and Postgres backends.
type store interface {
	persistence.ScheduleRepository
	persistence.ConflictRepository
	Migrate(ctx context.Context) error
	Ping(ctx context.Context) error
	Close() error
}

// openStore opens the configured backend and brings its schema up to date.
func openStore(ctx context.Context, cfg config.Config, logger *slog.Logger) (store, error) {
	var (
		s   store
		err error
	)
	switch cfg.DBDriver {
	case config.DriverPostgres:
		s, err = postgres.Open(cfg.PostgresDSN, logger)
	case config.DriverSQLite, "":
		s, err = sqlite.OpenWithConfig(migration.DefaultSQLiteConfig(cfg.SQLitePath), logger)
	default:
		return nil, fmt.Errorf("unsupported storage driver %q", cfg.DBDriver)
	}
	if err != nil {
		return nil, err
	}

	if err := s.Migrate(ctx); err != nil {
		_ = s.Close()
		return nil, err
	}
	return s, nil
}

// newHandler wires services, handlers and middleware over s.
func newHandler(s store, cfg config.Config, logger *slog.Logger, idGenerator func() string, now func() time.Time) http.Handler {
	entries := newEntryRepositoryAdapter(s)
	conflicts := newConflictStoreAdapter(s)

	conflictService := application.NewConflictServiceWithLogger(entries, conflicts, idGenerator, now, logger,
		application.WithAvailabilityCache(cfg.AvailabilityCacheTTL),
	)
	scheduleService := application.NewScheduleServiceWithLogger(entries, conflictService, idGenerator, now, logger)

	return httptransport.NewRouter(httptransport.RouterConfig{
		Schedules: httptransport.NewScheduleHandler(scheduleService, logger),
		Conflicts: httptransport.NewConflictHandler(conflictService, logger),
		Health:    httptransport.NewHealthHandler(s, logger),
		Logger:    logger,
		Middleware: []func(http.Handler) http.Handler{
			httptransport.RequestLogger(logger),
			httptransport.Identity(),
		},
	})
}

type entryRepositoryAdapter struct {
	repo persistence.ScheduleRepository
}

func newEntryRepositoryAdapter(repo persistence.ScheduleRepository) *entryRepositoryAdapter {
	return &entryRepositoryAdapter{repo: repo}
}

func (a *entryRepositoryAdapter) CreateEntry(ctx context.Context, entry application.ScheduleEntry) (application.ScheduleEntry, error) {
	if err := a.repo.CreateEntry(ctx, toPersistenceEntry(entry)); err != nil {
		return application.ScheduleEntry{}, err
	}
	return a.GetEntry(ctx, entry.ID)
}

func (a *entryRepositoryAdapter) GetEntry(ctx context.Context, id string) (application.ScheduleEntry, error) {
	stored, err := a.repo.GetEntry(ctx, id)
	if err != nil {
		return application.ScheduleEntry{}, err
	}
	return toApplicationEntry(stored), nil
}

func (a *entryRepositoryAdapter) UpdateEntry(ctx context.Context, entry application.ScheduleEntry) (application.ScheduleEntry, error) {
	if err := a.repo.UpdateEntry(ctx, toPersistenceEntry(entry)); err != nil {
		return application.ScheduleEntry{}, err
	}
	return a.GetEntry(ctx, entry.ID)
}

func (a *entryRepositoryAdapter) ListEntries(ctx context.Context, query application.EntryQuery) ([]application.ScheduleEntry, error) {
	filter := persistence.EntryFilter{
		SubjectID:            query.SubjectID,
		FacilityID:           query.FacilityID,
		ResponsibleOfficerID: query.ResponsibleOfficerID,
		ExcludeID:            query.ExcludeID,
		StartsAfter:          query.StartsAfter,
		EndsBefore:           query.EndsBefore,
	}
	if query.ActiveOnly {
		filter.ExcludeStatuses = []string{string(scheduler.StatusCancelled)}
	}

	models, err := a.repo.ListEntries(ctx, filter)
	if err != nil {
		return nil, err
	}
	if len(models) == 0 {
		return nil, nil
	}
	entries := make([]application.ScheduleEntry, 0, len(models))
	for _, model := range models {
		entries = append(entries, toApplicationEntry(model))
	}
	return entries, nil
}

type conflictStoreAdapter struct {
	repo persistence.ConflictRepository
}

func newConflictStoreAdapter(repo persistence.ConflictRepository) *conflictStoreAdapter {
	return &conflictStoreAdapter{repo: repo}
}

func (a *conflictStoreAdapter) CreateConflict(ctx context.Context, conflict application.Conflict) (application.Conflict, error) {
	if err := a.repo.CreateConflict(ctx, toPersistenceConflict(conflict)); err != nil {
		return application.Conflict{}, err
	}
	return a.GetConflict(ctx, conflict.ID)
}

func (a *conflictStoreAdapter) GetConflict(ctx context.Context, id string) (application.Conflict, error) {
	stored, err := a.repo.GetConflict(ctx, id)
	if err != nil {
		return application.Conflict{}, err
	}
	return toApplicationConflict(stored)
}

func (a *conflictStoreAdapter) FindConflictByPair(ctx context.Context, entryA, entryB string) (application.Conflict, error) {
	stored, err := a.repo.FindConflictByPair(ctx, entryA, entryB)
	if err != nil {
		return application.Conflict{}, err
	}
	return toApplicationConflict(stored)
}

func (a *conflictStoreAdapter) ListConflicts(ctx context.Context, query application.ConflictQuery) ([]application.Conflict, error) {
	filter := persistence.ConflictFilter{EntryID: query.EntryID}
	for _, status := range query.ExcludeStatuses {
		filter.ExcludeStatuses = append(filter.ExcludeStatuses, string(status))
	}

	models, err := a.repo.ListConflicts(ctx, filter)
	if err != nil {
		return nil, err
	}
	if len(models) == 0 {
		return nil, nil
	}
	conflicts := make([]application.Conflict, 0, len(models))
	for _, model := range models {
		conflict, err := toApplicationConflict(model)
		if err != nil {
			return nil, err
		}
		conflicts = append(conflicts, conflict)
	}
	return conflicts, nil
}

func (a *conflictStoreAdapter) UpdateConflict(ctx context.Context, conflict application.Conflict) (application.Conflict, error) {
	if err := a.repo.UpdateConflict(ctx, toPersistenceConflict(conflict)); err != nil {
		return application.Conflict{}, err
	}
	return a.GetConflict(ctx, conflict.ID)
}

func toApplicationEntry(model persistence.ScheduleEntry) application.ScheduleEntry {
	return application.ScheduleEntry{
		ID:                   model.ID,
		SubjectID:            model.SubjectID,
		FacilityID:           cloneString(model.FacilityID),
		ResponsibleOfficerID: cloneString(model.ResponsibleOfficerID),
		Title:                model.Title,
		Type:                 scheduler.EntryType(model.EntryType),
		Status:               scheduler.EntryStatus(model.Status),
		Start:                model.Start.UTC(),
		End:                  model.End.UTC(),
		Notes:                cloneString(model.Notes),
		CreatedAt:            model.CreatedAt.UTC(),
		UpdatedAt:            model.UpdatedAt.UTC(),
	}
}

func toPersistenceEntry(entry application.ScheduleEntry) persistence.ScheduleEntry {
	return persistence.ScheduleEntry{
		ID:                   entry.ID,
		SubjectID:            entry.SubjectID,
		FacilityID:           cloneString(entry.FacilityID),
		ResponsibleOfficerID: cloneString(entry.ResponsibleOfficerID),
		Title:                entry.Title,
		EntryType:            string(entry.Type),
		Status:               string(entry.Status),
		Start:                entry.Start.UTC(),
		End:                  entry.End.UTC(),
		Notes:                cloneString(entry.Notes),
		CreatedAt:            entry.CreatedAt.UTC(),
		UpdatedAt:            entry.UpdatedAt.UTC(),
	}
}

// toApplicationConflict rejects severity labels the ranking does not know, so a
// bad row cannot sort below every valid conflict.
func toApplicationConflict(model persistence.Conflict) (application.Conflict, error) {
	severity, err := scheduler.ParseSeverity(model.Severity)
	if err != nil {
		return application.Conflict{}, fmt.Errorf("conflict %s: %w", model.ID, err)
	}
	return application.Conflict{
		ID:               model.ID,
		EntryAID:         model.EntryAID,
		EntryBID:         model.EntryBID,
		Kind:             scheduler.ConflictKind(model.Kind),
		Description:      model.Description,
		Severity:         severity,
		ResolutionStatus: scheduler.ResolutionStatus(model.ResolutionStatus),
		ResolvedBy:       cloneString(model.ResolvedBy),
		ResolvedAt:       cloneTime(model.ResolvedAt),
		ResolutionNotes:  cloneString(model.ResolutionNotes),
		CreatedAt:        model.CreatedAt.UTC(),
		UpdatedAt:        model.UpdatedAt.UTC(),
	}, nil
}

func toPersistenceConflict(conflict application.Conflict) persistence.Conflict {
	return persistence.Conflict{
		ID:               conflict.ID,
		EntryAID:         conflict.EntryAID,
		EntryBID:         conflict.EntryBID,
		Kind:             string(conflict.Kind),
		Description:      conflict.Description,
		Severity:         string(conflict.Severity),
		ResolutionStatus: string(conflict.ResolutionStatus),
		ResolvedBy:       cloneString(conflict.ResolvedBy),
		ResolvedAt:       cloneTime(conflict.ResolvedAt),
		ResolutionNotes:  cloneString(conflict.ResolutionNotes),
		CreatedAt:        conflict.CreatedAt.UTC(),
		UpdatedAt:        conflict.UpdatedAt.UTC(),
	}
}

func cloneString(value *string) *string {
	if value == nil {
		return nil
	}
	v := *value
	return &v
}

func cloneTime(value *time.Time) *time.Time {
	if value == nil {
		return nil
	}
	v := value.UTC()
	return &v
}
