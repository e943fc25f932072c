package memory

import (
	"context"
	"sort"

	"github.com/google/uuid"

	"videotube/internal/model"
)

type likeRepo struct{ s *Store }

func (r likeRepo) CountByTargets(_ context.Context, kind model.TargetKind, ids []uuid.UUID) (map[uuid.UUID]int64, error) {
	r.s.mu.RLock()
	defer r.s.mu.RUnlock()

	wanted := make(map[uuid.UUID]bool, len(ids))
	for _, id := range ids {
		wanted[id] = true
	}
	out := make(map[uuid.UUID]int64, len(ids))
	for k := range r.s.likes {
		if k.kind == kind && wanted[k.target] {
			out[k.target]++
		}
	}
	return out, nil
}

func (r likeRepo) LikedBy(_ context.Context, actorID uuid.UUID, kind model.TargetKind, ids []uuid.UUID) (map[uuid.UUID]bool, error) {
	r.s.mu.RLock()
	defer r.s.mu.RUnlock()

	out := make(map[uuid.UUID]bool, len(ids))
	if actorID == uuid.Nil {
		return out, nil
	}
	for _, id := range ids {
		if _, ok := r.s.likes[likeKey{actor: actorID, kind: kind, target: id}]; ok {
			out[id] = true
		}
	}
	return out, nil
}

func (r likeRepo) TargetsLikedBy(_ context.Context, actorID uuid.UUID, kind model.TargetKind) ([]model.LikedRef, error) {
	r.s.mu.RLock()
	defer r.s.mu.RUnlock()

	var rows []*likeRow
	for k, row := range r.s.likes {
		if k.actor == actorID && k.kind == kind {
			rows = append(rows, row)
		}
	}
	sort.Slice(rows, func(i, j int) bool {
		if !rows[i].CreatedAt.Equal(rows[j].CreatedAt) {
			return rows[i].CreatedAt.After(rows[j].CreatedAt)
		}
		return rows[i].seq > rows[j].seq
	})

	refs := make([]model.LikedRef, len(rows))
	for i, row := range rows {
		refs[i] = model.LikedRef{TargetID: row.Target.ID(), LikedAt: row.CreatedAt}
	}
	return refs, nil
}

func (r likeRepo) CountOnVideosOwnedBy(_ context.Context, ownerID uuid.UUID) (int64, error) {
	r.s.mu.RLock()
	defer r.s.mu.RUnlock()

	var n int64
	for k := range r.s.likes {
		if k.kind != model.TargetVideo {
			continue
		}
		if v, ok := r.s.videos[k.target]; ok && v.OwnerID == ownerID {
			n++
		}
	}
	return n, nil
}

type subscriptionRepo struct{ s *Store }

func (r subscriptionRepo) CountSubscribers(_ context.Context, channelID uuid.UUID) (int64, error) {
	r.s.mu.RLock()
	defer r.s.mu.RUnlock()

	var n int64
	for k := range r.s.subscriptions {
		if k.channel == channelID {
			n++
		}
	}
	return n, nil
}

func (r subscriptionRepo) CountSubscribedTo(_ context.Context, subscriberID uuid.UUID) (int64, error) {
	r.s.mu.RLock()
	defer r.s.mu.RUnlock()

	var n int64
	for k := range r.s.subscriptions {
		if k.subscriber == subscriberID {
			n++
		}
	}
	return n, nil
}

func (r subscriptionRepo) SubscribedTo(_ context.Context, subscriberID uuid.UUID, channelIDs []uuid.UUID) (map[uuid.UUID]bool, error) {
	r.s.mu.RLock()
	defer r.s.mu.RUnlock()

	out := make(map[uuid.UUID]bool, len(channelIDs))
	if subscriberID == uuid.Nil {
		return out, nil
	}
	for _, id := range channelIDs {
		if _, ok := r.s.subscriptions[subKey{subscriber: subscriberID, channel: id}]; ok {
			out[id] = true
		}
	}
	return out, nil
}

func (r subscriptionRepo) ListSubscribers(_ context.Context, channelID uuid.UUID, page model.PageRequest) ([]uuid.UUID, int64, error) {
	return r.list(func(k subKey) (uuid.UUID, bool) { return k.subscriber, k.channel == channelID }, page)
}

func (r subscriptionRepo) ListSubscriptions(_ context.Context, subscriberID uuid.UUID, page model.PageRequest) ([]uuid.UUID, int64, error) {
	return r.list(func(k subKey) (uuid.UUID, bool) { return k.channel, k.subscriber == subscriberID }, page)
}

func (r subscriptionRepo) list(pick func(subKey) (uuid.UUID, bool), page model.PageRequest) ([]uuid.UUID, int64, error) {
	r.s.mu.RLock()
	defer r.s.mu.RUnlock()

	type hit struct {
		id  uuid.UUID
		row *subRow
	}
	var hits []hit
	for k, row := range r.s.subscriptions {
		if id, ok := pick(k); ok {
			hits = append(hits, hit{id: id, row: row})
		}
	}
	sort.Slice(hits, func(i, j int) bool {
		a, b := hits[i].row, hits[j].row
		if !a.CreatedAt.Equal(b.CreatedAt) {
			return a.CreatedAt.After(b.CreatedAt)
		}
		return a.seq > b.seq
	})

	ids := make([]uuid.UUID, len(hits))
	for i, h := range hits {
		ids[i] = h.id
	}
	return paginate(ids, page), int64(len(ids)), nil
}

type relationRepo struct{ s *Store }

func (r relationRepo) Flip(_ context.Context, e model.Edge) (model.ToggleResult, error) {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()

	if e.Kind == model.TargetChannel {
		return r.s.flipSubscription(e)
	}
	return r.s.flipLike(e)
}

// flipLike runs under mu.
func (s *Store) flipLike(e model.Edge) (model.ToggleResult, error) {
	target, err := likeTarget(e.Kind, e.TargetID)
	if err != nil {
		return model.ToggleResult{}, err
	}
	counter := s.counter(e.Kind, e.TargetID)
	if counter == nil {
		return model.ToggleResult{}, notFound(e.Kind)
	}

	key := likeKey{actor: e.ActorID, kind: e.Kind, target: e.TargetID}
	if _, ok := s.likes[key]; ok {
		delete(s.likes, key)
		*counter = max(*counter-1, 0)
		n := *counter
		return model.ToggleResult{Active: false, Count: &n}, nil
	}

	s.likes[key] = &likeRow{
		Like: model.Like{ID: uuid.New(), Target: target, ActorID: e.ActorID, CreatedAt: s.now()},
		seq:  s.next(),
	}
	*counter++
	n := *counter
	return model.ToggleResult{Active: true, Count: &n}, nil
}

// flipSubscription runs under mu.
func (s *Store) flipSubscription(e model.Edge) (model.ToggleResult, error) {
	if e.ActorID == e.TargetID {
		return model.ToggleResult{}, model.ErrSelfSubscription
	}
	channel, ok := s.accounts[e.TargetID]
	if !ok {
		return model.ToggleResult{}, model.ErrAccountNotFound
	}
	actor, ok := s.accounts[e.ActorID]
	if !ok {
		return model.ToggleResult{}, model.ErrAccountNotFound
	}

	key := subKey{subscriber: e.ActorID, channel: e.TargetID}
	if _, exists := s.subscriptions[key]; exists {
		delete(s.subscriptions, key)
		channel.SubscriberCount = max(channel.SubscriberCount-1, 0)
		actor.SubscribedCount = max(actor.SubscribedCount-1, 0)
		n := channel.SubscriberCount
		return model.ToggleResult{Active: false, Count: &n}, nil
	}

	s.subscriptions[key] = &subRow{
		Subscription: model.Subscription{
			ID:           uuid.New(),
			SubscriberID: e.ActorID,
			ChannelID:    e.TargetID,
			CreatedAt:    s.now(),
		},
		seq: s.next(),
	}
	channel.SubscriberCount++
	actor.SubscribedCount++
	n := channel.SubscriberCount
	return model.ToggleResult{Active: true, Count: &n}, nil
}

func (r relationRepo) Recount(_ context.Context, kind model.TargetKind, targetID uuid.UUID) (int64, error) {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()

	if kind == model.TargetChannel {
		a, ok := r.s.accounts[targetID]
		if !ok {
			return 0, model.ErrAccountNotFound
		}
		a.SubscriberCount, a.SubscribedCount = r.s.subscriptionCounts(targetID)
		return a.SubscriberCount, nil
	}

	if !kind.IsLikeable() {
		return 0, model.ErrUnknownTargetKind
	}
	counter := r.s.counter(kind, targetID)
	if counter == nil {
		return 0, notFound(kind)
	}
	*counter = r.s.likeCount(kind, targetID)
	return *counter, nil
}

func (r relationRepo) RecountAll(_ context.Context, kind model.TargetKind) (int64, error) {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()

	var fixed int64
	switch kind {
	case model.TargetChannel:
		for id, a := range r.s.accounts {
			subs, subd := r.s.subscriptionCounts(id)
			if a.SubscriberCount != subs || a.SubscribedCount != subd {
				a.SubscriberCount, a.SubscribedCount = subs, subd
				fixed++
			}
		}
	case model.TargetVideo, model.TargetComment, model.TargetTweet:
		for _, id := range r.s.targetIDs(kind) {
			counter := r.s.counter(kind, id)
			if n := r.s.likeCount(kind, id); *counter != n {
				*counter = n
				fixed++
			}
		}
	default:
		return 0, model.ErrUnknownTargetKind
	}
	return fixed, nil
}

// Helpers below run under mu.

func (s *Store) likeCount(kind model.TargetKind, id uuid.UUID) int64 {
	var n int64
	for k := range s.likes {
		if k.kind == kind && k.target == id {
			n++
		}
	}
	return n
}

func (s *Store) subscriptionCounts(id uuid.UUID) (subscribers, subscribed int64) {
	for k := range s.subscriptions {
		if k.channel == id {
			subscribers++
		}
		if k.subscriber == id {
			subscribed++
		}
	}
	return subscribers, subscribed
}

func (s *Store) targetIDs(kind model.TargetKind) []uuid.UUID {
	var ids []uuid.UUID
	switch kind {
	case model.TargetVideo:
		for id := range s.videos {
			ids = append(ids, id)
		}
	case model.TargetComment:
		for id := range s.comments {
			ids = append(ids, id)
		}
	case model.TargetTweet:
		for id := range s.tweets {
			ids = append(ids, id)
		}
	}
	return ids
}

func likeTarget(kind model.TargetKind, id uuid.UUID) (model.LikeTarget, error) {
	switch kind {
	case model.TargetVideo:
		return model.VideoTarget(id), nil
	case model.TargetComment:
		return model.CommentTarget(id), nil
	case model.TargetTweet:
		return model.TweetTarget(id), nil
	}
	return model.LikeTarget{}, model.ErrUnknownTargetKind
}

func notFound(kind model.TargetKind) error {
	switch kind {
	case model.TargetVideo:
		return model.ErrVideoNotFound
	case model.TargetComment:
		return model.ErrCommentNotFound
	case model.TargetTweet:
		return model.ErrTweetNotFound
	default:
		return model.ErrAccountNotFound
	}
}
