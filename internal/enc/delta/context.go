package delta

import (
	"context"
	"fmt"

	"github.com/google/uuid"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.uber.org/zap"

	"github.com/conduit-lang/livepatch/internal/enc/baseline"
	"github.com/conduit-lang/livepatch/internal/enc/defmap"
)

// Context is one generation in progress. Its change set is fixed when the
// generation is begun; Commit is the only operation that produces new state.
type Context struct {
	session  *Session
	previous *baseline.Baseline
	ordinal  int
	encID    uuid.UUID
	m        *defmap.Map

	committed *baseline.Baseline
}

// Ordinal returns the number of the generation being emitted.
func (c *Context) Ordinal() int { return c.ordinal }

// EncID returns the id the generation will be committed under.
func (c *Context) EncID() uuid.UUID { return c.encID }

// Previous returns the baseline the generation was begun against.
func (c *Context) Previous() *baseline.Baseline { return c.previous }

// Map returns the generation's definition map.
func (c *Context) Map() *defmap.Map { return c.m }

// Changes returns the change set handed to the delta writer.
func (c *Context) Changes() defmap.Changes { return c.m.Changes() }

// Committed returns the baseline produced by Commit, or nil.
func (c *Context) Committed() *baseline.Baseline {
	c.session.mu.Lock()
	defer c.session.mu.Unlock()
	return c.committed
}

// Commit folds the generation into the next baseline and makes it the latest
// baseline of the session. The previous baseline is left untouched. A
// generation commits at most once, and only while its previous baseline is
// still the latest.
func (c *Context) Commit(ctx context.Context) (*baseline.Baseline, error) {
	ctx, span := c.session.tracer.Start(ctx, "Context.Commit")
	defer span.End()
	span.SetAttributes(
		attribute.Int("livepatch.generation", c.ordinal),
		attribute.String("livepatch.enc_id", c.encID.String()),
	)

	s := c.session
	s.mu.Lock()
	defer s.mu.Unlock()

	fail := func(err error) (*baseline.Baseline, error) {
		span.RecordError(err)
		span.SetStatus(codes.Error, err.Error())
		return nil, err
	}

	if c.committed != nil {
		return fail(ErrAlreadyCommitted)
	}
	if s.latest != c.previous {
		return fail(fmt.Errorf("%w: generation %d was begun against %d, latest is %d",
			ErrOrdinal, c.ordinal, c.previous.Ordinal(), s.latest.Ordinal()))
	}

	next, err := c.previous.Next(c.m.Update(c.encID))
	if err != nil {
		return fail(fmt.Errorf("commit generation %d: %w", c.ordinal, err))
	}
	c.committed = next
	s.latest = next

	changes := c.m.Changes()
	s.committed.Add(ctx, 1)
	s.changed.Record(ctx, int64(len(changes.Definitions)))
	s.logger.Info("committed generation",
		zap.Int("generation", c.ordinal),
		zap.Stringer("encId", c.encID),
		zap.Int("changed", len(changes.Definitions)),
		zap.Int("deleted", len(changes.Deleted)),
		zap.Int("deletedTotal", len(next.Deleted())),
	)
	return next, nil
}
