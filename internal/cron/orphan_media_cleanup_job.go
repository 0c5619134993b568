package cron

import (
	"context"
	"fmt"
	"time"

	"go.uber.org/multierr"

	"github.com/contactalia/contactalia-backend/pkg/logger"
	"github.com/contactalia/contactalia-backend/pkg/storage/s3"
)

const (
	defaultOrphanGrace = 24 * time.Hour
	orphanCheckBatch   = 500
)

type blobLister interface {
	List(ctx context.Context, prefix string, fn func([]s3.Object) error) error
	Delete(ctx context.Context, key string) error
}

type mediaPathChecker interface {
	ExistingPaths(ctx context.Context, paths []string) (map[string]struct{}, error)
}

type OrphanMediaCleanupJobParams struct {
	Logger *logger.Logger
	Blobs  blobLister
	Media  mediaPathChecker
	Prefix string
	Grace  time.Duration
	Now    func() time.Time
}

// NewOrphanMediaCleanupJob removes blobs that no profile_media row points at.
// Keys younger than the grace period are left alone since an upload may
// still be between its blob write and its row insert.
func NewOrphanMediaCleanupJob(params OrphanMediaCleanupJobParams) (Job, error) {
	if params.Logger == nil {
		return nil, fmt.Errorf("logger required")
	}
	if params.Blobs == nil {
		return nil, fmt.Errorf("blob store required")
	}
	if params.Media == nil {
		return nil, fmt.Errorf("media repository required")
	}
	grace := params.Grace
	if grace <= 0 {
		grace = defaultOrphanGrace
	}
	now := params.Now
	if now == nil {
		now = time.Now
	}
	return &orphanMediaCleanupJob{
		logg:   params.Logger,
		blobs:  params.Blobs,
		media:  params.Media,
		prefix: params.Prefix,
		grace:  grace,
		now:    now,
	}, nil
}

type orphanMediaCleanupJob struct {
	logg   *logger.Logger
	blobs  blobLister
	media  mediaPathChecker
	prefix string
	grace  time.Duration
	now    func() time.Time
}

func (j *orphanMediaCleanupJob) Name() string { return "orphan-media-cleanup" }

func (j *orphanMediaCleanupJob) Run(ctx context.Context) error {
	cutoff := j.now().UTC().Add(-j.grace)
	var (
		scanned int
		deleted int
		pending []string
		errs    error
	)

	flush := func() error {
		if len(pending) == 0 {
			return nil
		}
		existing, err := j.media.ExistingPaths(ctx, pending)
		if err != nil {
			return fmt.Errorf("check media paths: %w", err)
		}
		for _, key := range pending {
			if _, ok := existing[key]; ok {
				continue
			}
			if err := j.blobs.Delete(ctx, key); err != nil {
				errs = multierr.Append(errs, fmt.Errorf("delete %s: %w", key, err))
				continue
			}
			deleted++
		}
		pending = pending[:0]
		return nil
	}

	err := j.blobs.List(ctx, j.prefix, func(page []s3.Object) error {
		for _, obj := range page {
			scanned++
			if obj.LastModified.After(cutoff) {
				continue
			}
			pending = append(pending, obj.Key)
			if len(pending) >= orphanCheckBatch {
				if err := flush(); err != nil {
					return err
				}
			}
		}
		return nil
	})
	if err == nil {
		err = flush()
	}
	errs = multierr.Append(errs, err)

	j.logg.Info(j.logg.WithFields(ctx, map[string]any{
		"scanned": scanned,
		"deleted": deleted,
		"cutoff":  cutoff.Format(time.RFC3339),
	}), "cron.orphan_media.summary")
	return errs
}
