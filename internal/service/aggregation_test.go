package service

import (
	"context"
	"fmt"
	"math"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"videotube/internal/model"
)

func TestListComments_AliceBobReplyScenario(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	alice := f.account(t, "alice")
	bob := f.account(t, "bob")
	v := f.video(t, alice.ID, true)

	c1 := f.comment(t, v.ID, alice.ID, nil, baseTime)
	r1 := f.comment(t, v.ID, bob.ID, &c1.ID, baseTime.Add(time.Minute))
	r2 := f.comment(t, v.ID, bob.ID, &c1.ID, baseTime.Add(2*time.Minute))

	page, err := f.aggregation.ListComments(ctx, v.ID.String(), bob.ID, model.NewPageRequest(1, 10), model.SortDesc)
	require.NoError(t, err)

	require.Len(t, page.Items, 1)
	assert.Equal(t, int64(1), page.Total)
	entry := page.Items[0]
	assert.Equal(t, c1.ID, entry.ID)
	assert.Equal(t, int64(2), entry.ReplyCount)
	require.Len(t, entry.Replies, 2)
	assert.Equal(t, r2.ID, entry.Replies[0].ID)
	assert.Equal(t, r1.ID, entry.Replies[1].ID)

	require.NotNil(t, entry.Owner)
	assert.Equal(t, "alice", entry.Owner.Username)
	require.NotNil(t, entry.Replies[0].Owner)
	assert.Equal(t, "bob", entry.Replies[0].Owner.Username)
	assert.Equal(t, c1.ID, entry.Replies[0].ParentID)
}

func TestListComments_PreviewCapsAtTwo(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	alice := f.account(t, "alice")
	v := f.video(t, alice.ID, true)
	c := f.comment(t, v.ID, alice.ID, nil, baseTime)
	var last *model.Comment
	for i := 0; i < 5; i++ {
		last = f.comment(t, v.ID, alice.ID, &c.ID, baseTime.Add(time.Duration(i+1)*time.Minute))
	}

	page, err := f.aggregation.ListComments(ctx, v.ID.String(), uuid.Nil, model.NewPageRequest(1, 10), model.SortAsc)
	require.NoError(t, err)
	require.Len(t, page.Items, 1)
	assert.Equal(t, int64(5), page.Items[0].ReplyCount)
	require.Len(t, page.Items[0].Replies, model.ReplyPreviewSize)
	assert.Equal(t, last.ID, page.Items[0].Replies[0].ID)
}

func TestListComments_PaginationCompleteness(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	alice := f.account(t, "alice")
	v := f.video(t, alice.ID, true)

	const k = 23
	for i := 0; i < k; i++ {
		// Pairs share a timestamp so insertion order has to break the tie.
		f.comment(t, v.ID, alice.ID, nil, baseTime.Add(time.Duration(i/2)*time.Second))
	}

	for _, order := range []model.SortOrder{model.SortAsc, model.SortDesc} {
		t.Run(string(order), func(t *testing.T) {
			seen := map[uuid.UUID]bool{}
			var stamps []time.Time
			for p := 1; ; p++ {
				page, err := f.aggregation.ListComments(ctx, v.ID.String(), uuid.Nil, model.NewPageRequest(p, 5), order)
				require.NoError(t, err)
				assert.Equal(t, int64(k), page.Total)
				for _, item := range page.Items {
					assert.False(t, seen[item.ID], "duplicate %s on page %d", item.ID, p)
					seen[item.ID] = true
					stamps = append(stamps, item.CreatedAt)
				}
				if !page.HasMore {
					break
				}
			}
			assert.Len(t, seen, k)
			for i := 1; i < len(stamps); i++ {
				if order == model.SortAsc {
					assert.False(t, stamps[i].Before(stamps[i-1]))
				} else {
					assert.False(t, stamps[i].After(stamps[i-1]))
				}
			}
		})
	}
}

func TestListComments_HugePageIsEmpty(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	alice := f.account(t, "alice")
	v := f.video(t, alice.ID, true)
	f.comment(t, v.ID, alice.ID, nil, baseTime)

	page, err := f.aggregation.ListComments(ctx, v.ID.String(), uuid.Nil, model.NewPageRequest(math.MaxInt, 10), model.SortDesc)
	require.NoError(t, err)
	assert.Empty(t, page.Items)
	assert.Equal(t, int64(1), page.Total)
	assert.False(t, page.HasMore)

	replies, err := f.aggregation.ListReplies(ctx, f.comment(t, v.ID, alice.ID, nil, baseTime).ID.String(), uuid.Nil, model.NewPageRequest(math.MaxInt, 10))
	require.NoError(t, err)
	assert.Empty(t, replies.Items)
}

func TestListComments_LikesAndViewerFlags(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	alice := f.account(t, "alice")
	bob := f.account(t, "bob")
	v := f.video(t, alice.ID, true)
	c := f.comment(t, v.ID, alice.ID, nil, baseTime)
	r := f.comment(t, v.ID, alice.ID, &c.ID, baseTime.Add(time.Minute))

	f.like(t, bob.ID, model.TargetComment, c.ID)
	f.like(t, alice.ID, model.TargetComment, c.ID)
	f.like(t, bob.ID, model.TargetComment, r.ID)

	page, err := f.aggregation.ListComments(ctx, v.ID.String(), bob.ID, model.NewPageRequest(1, 10), model.SortDesc)
	require.NoError(t, err)
	require.Len(t, page.Items, 1)
	assert.Equal(t, int64(2), page.Items[0].LikeCount)
	assert.True(t, page.Items[0].IsLiked)
	require.Len(t, page.Items[0].Replies, 1)
	assert.Equal(t, int64(1), page.Items[0].Replies[0].LikeCount)
	assert.True(t, page.Items[0].Replies[0].IsLiked)

	anon, err := f.aggregation.ListComments(ctx, v.ID.String(), uuid.Nil, model.NewPageRequest(1, 10), model.SortDesc)
	require.NoError(t, err)
	assert.False(t, anon.Items[0].IsLiked)
	assert.Equal(t, int64(2), anon.Items[0].LikeCount)
}

func TestListComments_MissingOwnerKeepsEntry(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	alice := f.account(t, "alice")
	v := f.video(t, alice.ID, true)
	f.comment(t, v.ID, uuid.New(), nil, baseTime)
	f.comment(t, v.ID, alice.ID, nil, baseTime.Add(time.Second))

	page, err := f.aggregation.ListComments(ctx, v.ID.String(), uuid.Nil, model.NewPageRequest(1, 10), model.SortAsc)
	require.NoError(t, err)
	require.Len(t, page.Items, 2)
	assert.Equal(t, int64(2), page.Total)
	assert.Nil(t, page.Items[0].Owner)
	assert.NotNil(t, page.Items[1].Owner)
}

func TestListComments_Failures(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	alice := f.account(t, "alice")
	v := f.video(t, alice.ID, true)

	_, err := f.aggregation.ListComments(ctx, "nope", uuid.Nil, model.NewPageRequest(1, 10), model.SortDesc)
	assert.ErrorIs(t, err, model.ErrInvalidReference)

	_, err = f.aggregation.ListComments(ctx, uuid.NewString(), uuid.Nil, model.NewPageRequest(1, 10), model.SortDesc)
	assert.ErrorIs(t, err, model.ErrNotFound)

	page, err := f.aggregation.ListComments(ctx, v.ID.String(), uuid.Nil, model.NewPageRequest(3, 10), model.SortDesc)
	require.NoError(t, err)
	assert.NotNil(t, page.Items)
	assert.Empty(t, page.Items)
	assert.Equal(t, int64(0), page.Total)
	assert.False(t, page.HasMore)
}

func TestListReplies(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	alice := f.account(t, "alice")
	v := f.video(t, alice.ID, true)
	c := f.comment(t, v.ID, alice.ID, nil, baseTime)

	var replies []*model.Comment
	for i := 0; i < 7; i++ {
		replies = append(replies, f.comment(t, v.ID, alice.ID, &c.ID, baseTime.Add(time.Duration(i+1)*time.Minute)))
	}

	first, err := f.aggregation.ListReplies(ctx, c.ID.String(), alice.ID, model.NewPageRequest(1, 3))
	require.NoError(t, err)
	assert.Equal(t, int64(7), first.Total)
	assert.True(t, first.HasMore)
	require.Len(t, first.Items, 3)
	assert.Equal(t, replies[6].ID, first.Items[0].ID)

	last, err := f.aggregation.ListReplies(ctx, c.ID.String(), alice.ID, model.NewPageRequest(3, 3))
	require.NoError(t, err)
	require.Len(t, last.Items, 1)
	assert.Equal(t, replies[0].ID, last.Items[0].ID)
	assert.False(t, last.HasMore)

	_, err = f.aggregation.ListReplies(ctx, replies[0].ID.String(), alice.ID, model.NewPageRequest(1, 3))
	assert.ErrorIs(t, err, model.ErrNotFound)

	_, err = f.aggregation.ListReplies(ctx, uuid.NewString(), alice.ID, model.NewPageRequest(1, 3))
	assert.ErrorIs(t, err, model.ErrNotFound)
}

func TestGetChannelProfile_DaveEveScenario(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	dave := f.account(t, "dave")
	eve := f.account(t, "eve")

	_, err := f.toggles.ToggleSubscription(ctx, eve.ID, dave.ID.String())
	require.NoError(t, err)

	profile, err := f.aggregation.GetChannelProfile(ctx, "DAVE", eve.ID)
	require.NoError(t, err)
	assert.Equal(t, dave.ID, profile.ID)
	assert.True(t, profile.IsSubscribed)
	assert.GreaterOrEqual(t, profile.SubscribersCount, int64(1))
	assert.Equal(t, "dave@example.com", profile.Email)

	eveProfile, err := f.aggregation.GetChannelProfile(ctx, "eve", dave.ID)
	require.NoError(t, err)
	assert.False(t, eveProfile.IsSubscribed)
	assert.Equal(t, int64(1), eveProfile.ChannelsSubscribedToCount)
	assert.Equal(t, int64(0), eveProfile.SubscribersCount)
}

func TestGetChannelProfile_Failures(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()

	_, err := f.aggregation.GetChannelProfile(ctx, "ghost", uuid.Nil)
	assert.ErrorIs(t, err, model.ErrNotFound)

	_, err = f.aggregation.GetChannelProfile(ctx, "  ", uuid.Nil)
	assert.ErrorIs(t, err, model.ErrValidation)
}

func TestGetChannelProfile_EmailHidden(t *testing.T) {
	cfg := testConfig()
	cfg.ExposeChannelEmail = false
	f := newFixtureWith(t, cfg)
	f.account(t, "dave")

	profile, err := f.aggregation.GetChannelProfile(context.Background(), "dave", uuid.Nil)
	require.NoError(t, err)
	assert.Empty(t, profile.Email)
}

func TestGetChannelStats(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	dave := f.account(t, "dave")
	eve := f.account(t, "eve")

	empty, err := f.aggregation.GetChannelStats(ctx, eve.ID.String())
	require.NoError(t, err)
	assert.Equal(t, model.ChannelStats{}, *empty)

	v1 := f.video(t, dave.ID, true)
	f.video(t, dave.ID, false)
	require.NoError(t, f.store.Videos().IncrementViews(ctx, v1.ID))
	require.NoError(t, f.store.Videos().IncrementViews(ctx, v1.ID))
	require.NoError(t, f.store.Tweets().Create(ctx, &model.Tweet{OwnerID: dave.ID, Content: "hi"}))
	f.like(t, eve.ID, model.TargetVideo, v1.ID)
	_, err = f.toggles.ToggleSubscription(ctx, eve.ID, dave.ID.String())
	require.NoError(t, err)

	stats, err := f.aggregation.GetChannelStats(ctx, dave.ID.String())
	require.NoError(t, err)
	assert.Equal(t, model.ChannelStats{
		VideoCount:      2,
		SubscriberCount: 1,
		TweetCount:      1,
		TotalViews:      2,
		TotalVideoLikes: 1,
	}, *stats)

	_, err = f.aggregation.GetChannelStats(ctx, "bad")
	assert.ErrorIs(t, err, model.ErrInvalidReference)
	_, err = f.aggregation.GetChannelStats(ctx, uuid.NewString())
	assert.ErrorIs(t, err, model.ErrNotFound)
}

func TestGetChannelStats_ServedFromCacheUntilInvalidated(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	dave := f.account(t, "dave")
	f.video(t, dave.ID, true)

	first, err := f.aggregation.GetChannelStats(ctx, dave.ID.String())
	require.NoError(t, err)
	assert.Equal(t, int64(1), first.VideoCount)

	f.video(t, dave.ID, true)
	cached, err := f.aggregation.GetChannelStats(ctx, dave.ID.String())
	require.NoError(t, err)
	assert.Equal(t, int64(1), cached.VideoCount)
	assert.Equal(t, 1, f.stats.hits)

	require.NoError(t, f.stats.Invalidate(ctx, dave.ID))
	fresh, err := f.aggregation.GetChannelStats(ctx, dave.ID.String())
	require.NoError(t, err)
	assert.Equal(t, int64(2), fresh.VideoCount)
}

func TestListLikedVideos(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	dave := f.account(t, "dave")
	eve := f.account(t, "eve")

	older := f.video(t, dave.ID, true)
	newer := f.video(t, dave.ID, true)
	hidden := f.video(t, dave.ID, false)
	own := f.video(t, eve.ID, false)

	f.like(t, eve.ID, model.TargetVideo, older.ID)
	f.like(t, eve.ID, model.TargetVideo, hidden.ID)
	f.like(t, eve.ID, model.TargetVideo, own.ID)
	f.like(t, eve.ID, model.TargetVideo, newer.ID)

	liked, err := f.aggregation.ListLikedVideos(ctx, eve.ID)
	require.NoError(t, err)

	ids := make([]uuid.UUID, len(liked))
	for i, l := range liked {
		ids[i] = l.ID
	}
	assert.Equal(t, []uuid.UUID{newer.ID, own.ID, older.ID}, ids)
	require.NotNil(t, liked[0].Owner)
	assert.Equal(t, "dave", liked[0].Owner.Username)

	none, err := f.aggregation.ListLikedVideos(ctx, dave.ID)
	require.NoError(t, err)
	assert.NotNil(t, none)
	assert.Empty(t, none)
}

func TestWatchHistory_OrderAndDedupe(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	dave := f.account(t, "dave")
	eve := f.account(t, "eve")
	a := f.video(t, dave.ID, true)
	b := f.video(t, dave.ID, true)

	require.NoError(t, f.videos.RecordView(ctx, a.ID.String(), eve.ID))
	require.NoError(t, f.videos.RecordView(ctx, b.ID.String(), eve.ID))
	require.NoError(t, f.videos.RecordView(ctx, a.ID.String(), eve.ID))

	history, err := f.aggregation.WatchHistory(ctx, eve.ID)
	require.NoError(t, err)
	require.Len(t, history, 2)
	assert.Equal(t, a.ID, history[0].ID)
	assert.Equal(t, b.ID, history[1].ID)
	assert.Equal(t, int64(2), history[0].Views)
}

func TestListSubscribersAndSubscriptions(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	dave := f.account(t, "dave")
	eve := f.account(t, "eve")

	var fans []*model.Account
	for i := 0; i < 4; i++ {
		fan := f.account(t, fmt.Sprintf("fan%d", i))
		fans = append(fans, fan)
		_, err := f.toggles.ToggleSubscription(ctx, fan.ID, dave.ID.String())
		require.NoError(t, err)
	}
	// eve follows fan0 only
	_, err := f.toggles.ToggleSubscription(ctx, eve.ID, fans[0].ID.String())
	require.NoError(t, err)

	page, err := f.aggregation.ListSubscribers(ctx, dave.ID.String(), eve.ID, model.NewPageRequest(1, 3))
	require.NoError(t, err)
	assert.Equal(t, int64(4), page.Total)
	assert.True(t, page.HasMore)
	require.Len(t, page.Items, 3)

	all, err := f.aggregation.ListSubscribers(ctx, dave.ID.String(), eve.ID, model.NewPageRequest(1, 10))
	require.NoError(t, err)
	require.Len(t, all.Items, 4)
	for _, item := range all.Items {
		assert.NotEmpty(t, item.Username)
		assert.Equal(t, item.ID == fans[0].ID, item.IsSubscribed, item.Username)
		if item.ID == fans[0].ID {
			assert.Equal(t, int64(1), item.SubscribersCount)
		}
	}

	subs, err := f.aggregation.ListSubscriptions(ctx, fans[1].ID.String(), uuid.Nil, model.NewPageRequest(1, 10))
	require.NoError(t, err)
	require.Len(t, subs.Items, 1)
	assert.Equal(t, dave.ID, subs.Items[0].ID)
	assert.Equal(t, int64(4), subs.Items[0].SubscribersCount)
	assert.False(t, subs.Items[0].IsSubscribed)

	_, err = f.aggregation.ListSubscribers(ctx, uuid.NewString(), uuid.Nil, model.NewPageRequest(1, 10))
	assert.ErrorIs(t, err, model.ErrNotFound)

	empty, err := f.aggregation.ListSubscriptions(ctx, dave.ID.String(), uuid.Nil, model.NewPageRequest(1, 10))
	require.NoError(t, err)
	assert.Empty(t, empty.Items)
}
