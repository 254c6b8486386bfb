// Copyright (C) 2019 Storj Labs, Inc.
// See LICENSE for copying information.

package apply

import (
	"context"
	"sync"

	"go.uber.org/zap"

	"storj.io/metastore/pkg/meta"
	"storj.io/metastore/storage"
)

// defaultMaxBatchOps is the staged-operation count that triggers a flush.
const defaultMaxBatchOps = 1024

// Applier owns the batch that decided commands are applied into.
//
// Responses are queued strictly in decided order and each response runs to
// completion before the next; accumulating several responses into one batch
// only defers the durability boundary. An error from applying or committing
// means this replica can no longer converge and must be treated as a
// node-health event by the caller.
type Applier struct {
	log *zap.Logger
	db  *meta.Store

	maxBatchOps int

	mu      sync.Mutex
	batch   *storage.Batch
	queued  int64
	flushes int64
}

// NewApplier creates an Applier flushing whenever the staged-operation count
// reaches maxBatchOps, or 1024 when zero.
func NewApplier(log *zap.Logger, db *meta.Store, maxBatchOps int) *Applier {
	if maxBatchOps <= 0 {
		maxBatchOps = defaultMaxBatchOps
	}
	return &Applier{
		log:         log,
		db:          db,
		maxBatchOps: maxBatchOps,
		batch:       storage.NewBatch(),
	}
}

// Queue applies one decided response into the current batch, committing the
// batch first when it has grown past the flush threshold.
func (applier *Applier) Queue(ctx context.Context, response Response) (err error) {
	defer mon.Task()(&ctx)(&err)

	applier.mu.Lock()
	defer applier.mu.Unlock()

	if applier.batch.Len() >= applier.maxBatchOps {
		if err := applier.flush(ctx); err != nil {
			return err
		}
	}

	if err := response.ApplyTo(ctx, applier.db, applier.batch); err != nil {
		return err
	}
	applier.queued++
	return nil
}

// Flush commits everything staged so far. On commit failure the batch is
// left intact; dropping it would silently lose decided commands.
func (applier *Applier) Flush(ctx context.Context) (err error) {
	defer mon.Task()(&ctx)(&err)

	applier.mu.Lock()
	defer applier.mu.Unlock()
	return applier.flush(ctx)
}

func (applier *Applier) flush(ctx context.Context) error {
	if applier.batch.Len() == 0 {
		return nil
	}

	if err := applier.db.CommitBatch(ctx, applier.batch); err != nil {
		return Error.Wrap(err)
	}

	applier.flushes++
	applier.log.Debug("flushed batch",
		zap.Int("operations", applier.batch.Len()),
		zap.Int64("responses", applier.queued),
		zap.Int64("flushes", applier.flushes),
	)
	applier.batch.Reset()
	return nil
}
