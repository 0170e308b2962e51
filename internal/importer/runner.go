package importer

import (
	"context"
	"sync"

	"go.uber.org/zap"

	"github.com/stevedao0/newcm-sub000/internal/common/cnst"
	"github.com/stevedao0/newcm-sub000/internal/storage"
)

// State is the lifecycle phase of an import run.
type State string

const (
	StateIdle        State = "idle"
	StateParsing     State = "parsing"
	StateReconciling State = "reconciling"
	StatePersisting  State = "persisting"
)

// Outcome summarizes a finished import run.
type Outcome string

const (
	// OutcomeSuccess means every row was persisted
	OutcomeSuccess Outcome = "success"
	// OutcomePartial means some rows persisted and some were rejected
	OutcomePartial Outcome = "partial_success"
	// OutcomeFailure means nothing was persisted
	OutcomeFailure Outcome = "failure"
)

// Report is the result of one import run, returned to the caller and
// suitable for direct JSON rendering.
type Report struct {
	Outcome  Outcome    `json:"outcome"`
	Inserted int        `json:"inserted"`
	Updated  int        `json:"updated"`
	Errors   []RowError `json:"errors,omitempty"`
}

// Runner drives an import batch through parse, reconcile and persist.
// It is safe for concurrent use; State reports the phase of the most
// recently started run.
type Runner struct {
	svc        *storage.DataService
	reconciler *Reconciler
	logger     *zap.Logger

	mu    sync.RWMutex
	state State
}

// NewRunner creates an import runner backed by the data service.
func NewRunner(svc *storage.DataService, logger *zap.Logger) *Runner {
	return &Runner{
		svc:        svc,
		reconciler: NewReconciler(logger),
		logger:     logger.Named("importer"),
		state:      StateIdle,
	}
}

// State returns the current lifecycle phase.
func (r *Runner) State() State {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return r.state
}

func (r *Runner) setState(s State) {
	r.mu.Lock()
	r.state = s
	r.mu.Unlock()
}

// Run executes one import batch. Row-level errors are collected in the
// report, never returned as the error; the error return is reserved for
// batch-level faults such as an unknown flow or a snapshot read failure.
func (r *Runner) Run(ctx context.Context, flow Flow, rows []map[string]string) (*Report, error) {
	if flow != FlowInfo && flow != FlowWorkList {
		return nil, cnst.ErrUnknownFlow
	}

	r.setState(StateParsing)
	defer r.setState(StateIdle)
	r.logger.Info("import started",
		zap.String("flow", string(flow)),
		zap.Int("rows", len(rows)))

	r.setState(StateReconciling)
	snap, err := r.snapshot(ctx)
	if err != nil {
		return nil, err
	}
	result := r.reconciler.Reconcile(flow, rows, *snap)

	r.setState(StatePersisting)
	report := &Report{Errors: result.Errors}
	persistedAny := false

	// Reference collections first so contracts never point at records
	// that have not landed yet.
	steps := []struct {
		collection string
		creates    []storage.Record
		updates    []storage.Record
	}{
		{cnst.CollectionChannels, result.NewChannels, nil},
		{cnst.CollectionPartners, result.NewPartners, result.UpdatedPartners},
		{cnst.CollectionWorks, result.NewWorks, result.UpdatedWorks},
		{cnst.CollectionContracts, result.NewContracts, result.UpdatedContracts},
	}
	for _, step := range steps {
		if len(step.creates) > 0 {
			if _, err := r.svc.BulkCreate(ctx, step.collection, step.creates); err != nil {
				r.logger.Error("bulk create failed",
					zap.String("collection", step.collection),
					zap.Error(err))
				report.Errors = append(report.Errors, RowError{Message: err.Error()})
				continue
			}
			persistedAny = true
			if step.collection == cnst.CollectionContracts {
				report.Inserted = len(step.creates)
			}
		}
		if len(step.updates) > 0 {
			if _, err := r.svc.BulkUpdate(ctx, step.collection, step.updates); err != nil {
				r.logger.Error("bulk update failed",
					zap.String("collection", step.collection),
					zap.Error(err))
				report.Errors = append(report.Errors, RowError{Message: err.Error()})
				continue
			}
			persistedAny = true
			if step.collection == cnst.CollectionContracts {
				report.Updated = len(step.updates)
			}
		}
	}

	report.Outcome = outcome(persistedAny, len(report.Errors))

	r.logger.Info("import finished",
		zap.String("flow", string(flow)),
		zap.String("outcome", string(report.Outcome)),
		zap.Int("inserted", report.Inserted),
		zap.Int("updated", report.Updated),
		zap.Int("errors", len(report.Errors)))
	return report, nil
}

func (r *Runner) snapshot(ctx context.Context) (*Snapshot, error) {
	snap := &Snapshot{}
	for _, read := range []struct {
		collection string
		dst        *[]storage.Record
	}{
		{cnst.CollectionContracts, &snap.Contracts},
		{cnst.CollectionWorks, &snap.Works},
		{cnst.CollectionPartners, &snap.Partners},
		{cnst.CollectionChannels, &snap.Channels},
	} {
		recs, err := r.svc.GetAll(ctx, read.collection)
		if err != nil {
			return nil, err
		}
		*read.dst = recs
	}
	return snap, nil
}

func outcome(persistedAny bool, errCount int) Outcome {
	switch {
	case errCount == 0:
		return OutcomeSuccess
	case persistedAny:
		return OutcomePartial
	default:
		return OutcomeFailure
	}
}
