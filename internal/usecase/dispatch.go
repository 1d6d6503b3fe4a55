package usecase

import (
	"context"
	"strconv"
	"strings"
	"time"

	"StockCast/internal/domain/errs"
	"StockCast/internal/domain/models"
	drepo "StockCast/internal/domain/repository"
	"StockCast/pkg/config"
	applogger "StockCast/pkg/logger"

	"github.com/google/uuid"
)

// Dispatcher turns a processed snapshot into one training job per family.
// In-process families go to the local or queue submitter; delegated families
// go to the managed training service and need an s3:// dataset.
type Dispatcher struct {
	families  map[string]config.FamilyConfig
	defaults  []string
	windowLen int
	blobs     drepo.BlobStore
	inprocess drepo.JobSubmitter
	delegated drepo.JobSubmitter
	catalog   drepo.Catalog
	notifier  drepo.RunNotifier
	metrics   drepo.Metrics
	log       *applogger.Logger
	now       func() time.Time
}

// DispatcherDeps groups the collaborators of a Dispatcher. Delegated and
// Notifier may be nil. WindowLength is forwarded to delegated jobs when set.
type DispatcherDeps struct {
	Families     map[string]config.FamilyConfig
	Defaults     []string
	WindowLength int
	Blobs        drepo.BlobStore
	InProcess    drepo.JobSubmitter
	Delegated    drepo.JobSubmitter
	Catalog      drepo.Catalog
	Notifier     drepo.RunNotifier
	Metrics      drepo.Metrics
	Log          *applogger.Logger
}

func NewDispatcher(d DispatcherDeps) *Dispatcher {
	return &Dispatcher{
		families:  d.Families,
		defaults:  d.Defaults,
		windowLen: d.WindowLength,
		blobs:     d.Blobs,
		inprocess: d.InProcess,
		delegated: d.Delegated,
		catalog:   d.Catalog,
		notifier:  d.Notifier,
		metrics:   d.Metrics,
		log:       d.Log,
		now:       time.Now,
	}
}

// Dispatch submits one job per family without waiting for any of them. An
// empty family list means the configured defaults. Unknown families reject
// the whole request before anything is submitted. Per-family submission
// failures are reported in the returned submissions; the error is set only
// when every submission failed.
func (d *Dispatcher) Dispatch(ctx context.Context, dataset string, families []string) ([]models.Submission, error) {
	if len(families) == 0 {
		families = d.defaults
	}
	if len(families) == 0 {
		return nil, errs.New(errs.MalformedInput, "no training families requested")
	}
	for _, f := range families {
		if _, ok := d.families[f]; !ok {
			return nil, errs.New(errs.MalformedInput, "unknown model family %q", f)
		}
	}

	key, err := d.blobs.Key(dataset)
	if err != nil {
		return nil, errs.Wrap(errs.MalformedInput, err, "dataset location %q", dataset)
	}

	prefix := JobNamePrefix(key, uuid.NewString())
	out := make([]models.Submission, 0, len(families))
	var lastErr error
	for _, family := range families {
		sub, err := d.submit(ctx, prefix, key, dataset, family)
		if err != nil {
			lastErr = err
			sub.Error = err.Error()
		}
		out = append(out, sub)
	}

	if lastErr != nil && allFailed(out) {
		return out, lastErr
	}
	return out, nil
}

func (d *Dispatcher) submit(ctx context.Context, prefix, key, dataset, family string) (models.Submission, error) {
	fc := d.families[family]
	spec := &models.TrainingJobSpec{
		Name:        JobName(prefix, family),
		Family:      family,
		Mode:        fc.Mode,
		Dataset:     dataset,
		RunID:       uuid.NewString(),
		SubmittedAt: d.now().UTC(),
	}
	sub := models.Submission{Family: family, Mode: fc.Mode, Name: spec.Name, RunID: spec.RunID}

	submitter := d.inprocess
	if fc.Mode == config.ModeDelegated {
		submitter = d.delegated
		if err := d.prepareDelegated(spec, fc, key); err != nil {
			d.recordFailure(ctx, spec, err)
			return sub, err
		}
	}
	if submitter == nil {
		err := errs.New(errs.MalformedInput, "%s training is not configured", fc.Mode)
		d.recordFailure(ctx, spec, err)
		return sub, err
	}

	// The run is recorded before submission so an in-process trainer that
	// finishes first never has its outcome overwritten.
	run := runFromSpec(spec, models.RunSubmitted)
	if err := d.catalog.RecordRun(ctx, run); err != nil {
		d.log.Warn("record run failed", applogger.String("run_id", spec.RunID), applogger.Error(err))
	}

	jobID, err := submitter.Submit(ctx, spec)
	if err != nil {
		d.metrics.RecordError("submit")
		d.recordFailure(ctx, spec, err)
		return sub, err
	}
	sub.JobID = jobID
	d.metrics.RecordSubmission(family, fc.Mode)
	d.notify(run)
	d.log.Info("training submitted",
		applogger.String("family", family),
		applogger.String("mode", fc.Mode),
		applogger.String("job", spec.Name),
		applogger.String("job_id", jobID))
	return sub, nil
}

// prepareDelegated fills the image, output path and environment of a
// managed training job.
func (d *Dispatcher) prepareDelegated(spec *models.TrainingJobSpec, fc config.FamilyConfig, key string) error {
	if !strings.HasPrefix(spec.Dataset, "s3://") {
		return errs.New(errs.MalformedInput, "delegated family %s needs an s3 dataset, got %s", spec.Family, spec.Dataset)
	}
	bucket := strings.SplitN(strings.TrimPrefix(spec.Dataset, "s3://"), "/", 2)[0]

	output := fc.OutputPath
	if output == "" {
		output = "model_output/" + spec.Family + "/"
	}
	if !strings.HasPrefix(output, "s3://") {
		output = "s3://" + bucket + "/" + strings.TrimPrefix(output, "/")
	}

	spec.Image = fc.Image
	spec.OutputPath = output
	spec.Env = map[string]string{
		"FILE_KEY":    key,
		"BUCKET_NAME": bucket,
	}
	if d.windowLen > 0 {
		spec.Env["WINDOW_LENGTH"] = strconv.Itoa(d.windowLen)
	}
	return nil
}

func (d *Dispatcher) recordFailure(ctx context.Context, spec *models.TrainingJobSpec, cause error) {
	run := runFromSpec(spec, models.RunFailed)
	run.Error = cause.Error()
	if err := d.catalog.RecordRun(ctx, run); err != nil {
		d.log.Warn("record run failed", applogger.String("run_id", spec.RunID), applogger.Error(err))
	}
	d.notify(run)
	d.log.Error("training submission failed",
		applogger.String("family", spec.Family),
		applogger.String("job", spec.Name),
		applogger.Error(cause))
}

func (d *Dispatcher) notify(run *models.TrainingRun) {
	if d.notifier != nil {
		d.notifier.NotifyRun(run)
	}
}

func runFromSpec(spec *models.TrainingJobSpec, status string) *models.TrainingRun {
	return &models.TrainingRun{
		ID:        spec.RunID,
		Family:    spec.Family,
		Mode:      spec.Mode,
		Dataset:   spec.Dataset,
		JobID:     spec.Name,
		Status:    status,
		CreatedAt: spec.SubmittedAt,
	}
}

func allFailed(subs []models.Submission) bool {
	for _, s := range subs {
		if s.Error == "" {
			return false
		}
	}
	return true
}
