package service

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"testing"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"videotube/internal/model"
)

func TestToggle_CarolLikesAndUnlikesVideo(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	owner := f.account(t, "owner")
	carol := f.account(t, "carol")
	v := f.video(t, owner.ID, true)

	res, err := f.toggles.Toggle(ctx, carol.ID, model.TargetVideo, v.ID.String())
	require.NoError(t, err)
	assert.True(t, res.Active)
	got, err := f.store.Videos().GetByID(ctx, v.ID)
	require.NoError(t, err)
	assert.Equal(t, int64(1), got.LikeCount)

	res, err = f.toggles.Toggle(ctx, carol.ID, model.TargetVideo, v.ID.String())
	require.NoError(t, err)
	assert.False(t, res.Active)
	got, err = f.store.Videos().GetByID(ctx, v.ID)
	require.NoError(t, err)
	assert.Equal(t, int64(0), got.LikeCount)
}

func TestToggle_ParityUnderSequence(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	owner := f.account(t, "owner")
	actor := f.account(t, "actor")
	v := f.video(t, owner.ID, true)
	tw := &model.Tweet{OwnerID: owner.ID, Content: "hello"}
	require.NoError(t, f.store.Tweets().Create(ctx, tw))
	c := f.comment(t, v.ID, owner.ID, nil, baseTime)

	targets := []model.LikeTarget{model.VideoTarget(v.ID), model.TweetTarget(tw.ID), model.CommentTarget(c.ID)}
	for _, target := range targets {
		t.Run(string(target.Kind()), func(t *testing.T) {
			for i := 1; i <= 7; i++ {
				res, err := f.toggles.ToggleLike(ctx, actor.ID, target)
				require.NoError(t, err)

				wantActive := i%2 == 1
				assert.Equal(t, wantActive, res.Active, "toggle %d", i)

				liked, err := f.store.Likes().LikedBy(ctx, actor.ID, target.Kind(), []uuid.UUID{target.ID()})
				require.NoError(t, err)
				assert.Equal(t, wantActive, liked[target.ID()], "presence after toggle %d", i)
			}
		})
	}
}

func TestToggle_CountConservation(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	owner := f.account(t, "owner")
	v := f.video(t, owner.ID, true)

	const n = 12
	for i := 0; i < n; i++ {
		actor := f.account(t, fmt.Sprintf("fan%d", i))
		f.like(t, actor.ID, model.TargetVideo, v.ID)
	}

	counts, err := f.store.Likes().CountByTargets(ctx, model.TargetVideo, []uuid.UUID{v.ID})
	require.NoError(t, err)
	got, err := f.store.Videos().GetByID(ctx, v.ID)
	require.NoError(t, err)

	assert.Equal(t, int64(n), counts[v.ID])
	assert.Equal(t, counts[v.ID], got.LikeCount)
}

func TestToggle_ConcurrentDistinctActors(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	owner := f.account(t, "owner")
	v := f.video(t, owner.ID, true)

	const n = 40
	actors := make([]uuid.UUID, n)
	for i := range actors {
		actors[i] = f.account(t, fmt.Sprintf("fan%d", i)).ID
	}

	var wg sync.WaitGroup
	errs := make(chan error, n)
	for _, actor := range actors {
		wg.Add(1)
		go func() {
			defer wg.Done()
			if _, err := f.toggles.Toggle(ctx, actor, model.TargetVideo, v.ID.String()); err != nil {
				errs <- err
			}
		}()
	}
	wg.Wait()
	close(errs)
	for err := range errs {
		require.NoError(t, err)
	}

	counts, err := f.store.Likes().CountByTargets(ctx, model.TargetVideo, []uuid.UUID{v.ID})
	require.NoError(t, err)
	got, err := f.store.Videos().GetByID(ctx, v.ID)
	require.NoError(t, err)
	assert.Equal(t, int64(n), counts[v.ID])
	assert.Equal(t, int64(n), got.LikeCount)
}

func TestToggle_ConcurrentSameActor(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	owner := f.account(t, "owner")
	actor := f.account(t, "actor")
	v := f.video(t, owner.ID, true)

	const n = 20 // even: the like ends up absent
	var wg sync.WaitGroup
	var mu sync.Mutex
	active := 0
	for i := 0; i < n; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			res, err := f.toggles.Toggle(ctx, actor.ID, model.TargetVideo, v.ID.String())
			if err != nil {
				t.Error(err)
				return
			}
			if res.Active {
				mu.Lock()
				active++
				mu.Unlock()
			}
		}()
	}
	wg.Wait()

	assert.Equal(t, n/2, active)
	got, err := f.store.Videos().GetByID(ctx, v.ID)
	require.NoError(t, err)
	assert.Equal(t, int64(0), got.LikeCount)
}

func TestToggle_SelfSubscriptionAlwaysRejected(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	dave := f.account(t, "dave")
	eve := f.account(t, "eve")

	_, err := f.toggles.ToggleSubscription(ctx, dave.ID, dave.ID.String())
	assert.ErrorIs(t, err, model.ErrInvalidOperation)

	// Prior state does not matter.
	_, err = f.toggles.ToggleSubscription(ctx, eve.ID, dave.ID.String())
	require.NoError(t, err)
	_, err = f.toggles.ToggleSubscription(ctx, dave.ID, dave.ID.String())
	assert.ErrorIs(t, err, model.ErrInvalidOperation)

	// Rejected before any lookup, even for an unknown account.
	ghost := uuid.New()
	_, err = f.toggles.ToggleSubscription(ctx, ghost, ghost.String())
	assert.ErrorIs(t, err, model.ErrInvalidOperation)
}

func TestToggle_SubscriptionMovesBothCounters(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	dave := f.account(t, "dave")
	eve := f.account(t, "eve")

	res, err := f.toggles.ToggleSubscription(ctx, eve.ID, dave.ID.String())
	require.NoError(t, err)
	assert.True(t, res.Active)
	require.NotNil(t, res.Count)
	assert.Equal(t, int64(1), *res.Count)

	d, err := f.store.Accounts().GetByID(ctx, dave.ID)
	require.NoError(t, err)
	e, err := f.store.Accounts().GetByID(ctx, eve.ID)
	require.NoError(t, err)
	assert.Equal(t, int64(1), d.SubscriberCount)
	assert.Equal(t, int64(1), e.SubscribedCount)

	res, err = f.toggles.ToggleSubscription(ctx, eve.ID, dave.ID.String())
	require.NoError(t, err)
	assert.False(t, res.Active)
	assert.Equal(t, int64(0), *res.Count)
}

func TestToggle_InputErrors(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	actor := f.account(t, "actor")

	_, err := f.toggles.Toggle(ctx, actor.ID, model.TargetVideo, "not-a-uuid")
	assert.ErrorIs(t, err, model.ErrInvalidReference)

	_, err = f.toggles.Toggle(ctx, actor.ID, model.TargetKind("playlist"), uuid.NewString())
	assert.ErrorIs(t, err, model.ErrValidation)

	_, err = f.toggles.Toggle(ctx, actor.ID, model.TargetVideo, uuid.NewString())
	assert.ErrorIs(t, err, model.ErrNotFound)

	_, err = f.toggles.Toggle(ctx, actor.ID, model.TargetChannel, uuid.NewString())
	assert.ErrorIs(t, err, model.ErrNotFound)

	_, err = f.toggles.ToggleLike(ctx, actor.ID, model.LikeTarget{})
	assert.ErrorIs(t, err, model.ErrValidation)
}

func TestToggle_PublishesEventWithOwner(t *testing.T) {
	f := newFixture(t)
	owner := f.account(t, "owner")
	actor := f.account(t, "actor")
	v := f.video(t, owner.ID, true)

	f.like(t, actor.ID, model.TargetVideo, v.ID)

	events := f.events.all()
	require.Len(t, events, 1)
	assert.Equal(t, model.TargetVideo, events[0].Kind)
	assert.Equal(t, v.ID, events[0].TargetID)
	assert.Equal(t, owner.ID, events[0].OwnerID)
	assert.Equal(t, actor.ID, events[0].ActorID)
	assert.True(t, events[0].Active)
}

func TestToggle_PublishFailureDoesNotFailToggle(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	owner := f.account(t, "owner")
	actor := f.account(t, "actor")
	v := f.video(t, owner.ID, true)
	f.events.err = errors.New("redis down")

	res, err := f.toggles.Toggle(ctx, actor.ID, model.TargetVideo, v.ID.String())
	require.NoError(t, err)
	assert.True(t, res.Active)
}
