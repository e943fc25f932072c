package memory

import (
	"context"
	"sort"

	"github.com/google/uuid"

	"videotube/internal/model"
)

type videoRepo struct{ s *Store }

func (r videoRepo) Create(_ context.Context, v *model.Video) error {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()

	if v.ID == uuid.Nil {
		v.ID = uuid.New()
	}
	now := r.s.now()
	if v.CreatedAt.IsZero() {
		v.CreatedAt = now
	}
	v.UpdatedAt = now
	stored := *v
	r.s.videos[v.ID] = &stored
	return nil
}

func (r videoRepo) GetByID(_ context.Context, id uuid.UUID) (*model.Video, error) {
	r.s.mu.RLock()
	defer r.s.mu.RUnlock()

	v, ok := r.s.videos[id]
	if !ok {
		return nil, model.ErrVideoNotFound
	}
	c := *v
	return &c, nil
}

func (r videoRepo) GetByIDs(_ context.Context, ids []uuid.UUID) (map[uuid.UUID]model.Video, error) {
	r.s.mu.RLock()
	defer r.s.mu.RUnlock()

	out := make(map[uuid.UUID]model.Video, len(ids))
	for _, id := range ids {
		if v, ok := r.s.videos[id]; ok {
			out[id] = *v
		}
	}
	return out, nil
}

func (r videoRepo) TotalsByOwner(_ context.Context, ownerID uuid.UUID) (model.VideoTotals, error) {
	r.s.mu.RLock()
	defer r.s.mu.RUnlock()

	var t model.VideoTotals
	for _, v := range r.s.videos {
		if v.OwnerID == ownerID {
			t.VideoCount++
			t.TotalViews += v.Views
		}
	}
	return t, nil
}

func (r videoRepo) IncrementViews(_ context.Context, id uuid.UUID) error {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()

	v, ok := r.s.videos[id]
	if !ok {
		return model.ErrVideoNotFound
	}
	v.Views++
	return nil
}

type tweetRepo struct{ s *Store }

func (r tweetRepo) Create(_ context.Context, t *model.Tweet) error {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()

	if t.ID == uuid.Nil {
		t.ID = uuid.New()
	}
	now := r.s.now()
	t.CreatedAt, t.UpdatedAt = now, now
	stored := *t
	r.s.tweets[t.ID] = &stored
	return nil
}

func (r tweetRepo) GetByID(_ context.Context, id uuid.UUID) (*model.Tweet, error) {
	r.s.mu.RLock()
	defer r.s.mu.RUnlock()

	t, ok := r.s.tweets[id]
	if !ok {
		return nil, model.ErrTweetNotFound
	}
	c := *t
	return &c, nil
}

func (r tweetRepo) CountByOwner(_ context.Context, ownerID uuid.UUID) (int64, error) {
	r.s.mu.RLock()
	defer r.s.mu.RUnlock()

	var n int64
	for _, t := range r.s.tweets {
		if t.OwnerID == ownerID {
			n++
		}
	}
	return n, nil
}

type commentRepo struct{ s *Store }

func (r commentRepo) Create(_ context.Context, c *model.Comment) error {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()

	if c.ID == uuid.Nil {
		c.ID = uuid.New()
	}
	now := r.s.now()
	if c.CreatedAt.IsZero() {
		c.CreatedAt = now
	}
	c.UpdatedAt = c.CreatedAt
	c.Seq = r.s.next()
	r.s.comments[c.ID] = copyComment(c)
	return nil
}

func (r commentRepo) GetByID(_ context.Context, id uuid.UUID) (*model.Comment, error) {
	r.s.mu.RLock()
	defer r.s.mu.RUnlock()

	c, ok := r.s.comments[id]
	if !ok {
		return nil, model.ErrCommentNotFound
	}
	return copyComment(c), nil
}

func (r commentRepo) UpdateContent(_ context.Context, id, ownerID uuid.UUID, content string) (*model.Comment, error) {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()

	c, ok := r.s.comments[id]
	if !ok {
		return nil, model.ErrCommentNotFound
	}
	if c.OwnerID != ownerID {
		return nil, model.ErrNotCommentOwner
	}
	c.Content = content
	c.UpdatedAt = r.s.now()
	return copyComment(c), nil
}

func (r commentRepo) Delete(_ context.Context, id, ownerID uuid.UUID) error {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()

	c, ok := r.s.comments[id]
	if !ok {
		return model.ErrCommentNotFound
	}
	if c.OwnerID != ownerID {
		return model.ErrNotCommentOwner
	}

	doomed := map[uuid.UUID]bool{id: true}
	for cid, other := range r.s.comments {
		if other.ParentID != nil && *other.ParentID == id {
			doomed[cid] = true
		}
	}
	for cid := range doomed {
		delete(r.s.comments, cid)
	}
	for k := range r.s.likes {
		if k.kind == model.TargetComment && doomed[k.target] {
			delete(r.s.likes, k)
		}
	}
	return nil
}

func (r commentRepo) ListTopLevel(_ context.Context, videoID uuid.UUID, order model.SortOrder, page model.PageRequest) ([]model.Comment, int64, error) {
	r.s.mu.RLock()
	defer r.s.mu.RUnlock()

	var all []model.Comment
	for _, c := range r.s.comments {
		if c.VideoID == videoID && c.IsTopLevel() {
			all = append(all, *copyComment(c))
		}
	}
	sortComments(all, order)
	return paginate(all, page), int64(len(all)), nil
}

func (r commentRepo) ListReplies(_ context.Context, parentID uuid.UUID, page model.PageRequest) ([]model.Comment, int64, error) {
	r.s.mu.RLock()
	defer r.s.mu.RUnlock()

	all := r.s.repliesOf(parentID)
	return paginate(all, page), int64(len(all)), nil
}

func (r commentRepo) CountReplies(_ context.Context, parentIDs []uuid.UUID) (map[uuid.UUID]int64, error) {
	r.s.mu.RLock()
	defer r.s.mu.RUnlock()

	wanted := make(map[uuid.UUID]bool, len(parentIDs))
	for _, id := range parentIDs {
		wanted[id] = true
	}
	out := make(map[uuid.UUID]int64, len(parentIDs))
	for _, c := range r.s.comments {
		if c.ParentID != nil && wanted[*c.ParentID] {
			out[*c.ParentID]++
		}
	}
	return out, nil
}

func (r commentRepo) LatestReplies(_ context.Context, parentIDs []uuid.UUID, perParent int) (map[uuid.UUID][]model.Comment, error) {
	r.s.mu.RLock()
	defer r.s.mu.RUnlock()

	out := make(map[uuid.UUID][]model.Comment, len(parentIDs))
	if perParent <= 0 {
		return out, nil
	}
	for _, id := range parentIDs {
		replies := r.s.repliesOf(id)
		if len(replies) > perParent {
			replies = replies[:perParent]
		}
		if len(replies) > 0 {
			out[id] = replies
		}
	}
	return out, nil
}

// repliesOf returns replies most recent first. Caller holds mu.
func (s *Store) repliesOf(parentID uuid.UUID) []model.Comment {
	var out []model.Comment
	for _, c := range s.comments {
		if c.ParentID != nil && *c.ParentID == parentID {
			out = append(out, *copyComment(c))
		}
	}
	sortComments(out, model.SortDesc)
	return out
}

func copyComment(c *model.Comment) *model.Comment {
	cp := *c
	if c.ParentID != nil {
		p := *c.ParentID
		cp.ParentID = &p
	}
	return &cp
}

type playlistRepo struct{ s *Store }

func (r playlistRepo) Create(_ context.Context, p *model.Playlist) error {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()

	if p.ID == uuid.Nil {
		p.ID = uuid.New()
	}
	now := r.s.now()
	p.CreatedAt, p.UpdatedAt = now, now
	p.VideoIDs = []uuid.UUID{}
	stored := *p
	stored.VideoIDs = []uuid.UUID{}
	r.s.playlists[p.ID] = &stored
	return nil
}

func (r playlistRepo) GetByID(_ context.Context, id uuid.UUID) (*model.Playlist, error) {
	r.s.mu.RLock()
	defer r.s.mu.RUnlock()

	p, ok := r.s.playlists[id]
	if !ok {
		return nil, model.ErrPlaylistNotFound
	}
	return copyPlaylist(p), nil
}

func (r playlistRepo) AddVideo(_ context.Context, playlistID, videoID uuid.UUID) (bool, error) {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()

	p, ok := r.s.playlists[playlistID]
	if !ok {
		return false, model.ErrPlaylistNotFound
	}
	for _, id := range p.VideoIDs {
		if id == videoID {
			return false, nil
		}
	}
	p.VideoIDs = append(p.VideoIDs, videoID)
	p.UpdatedAt = r.s.now()
	return true, nil
}

func (r playlistRepo) RemoveVideo(_ context.Context, playlistID, videoID uuid.UUID) (bool, error) {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()

	p, ok := r.s.playlists[playlistID]
	if !ok {
		return false, model.ErrPlaylistNotFound
	}
	for i, id := range p.VideoIDs {
		if id == videoID {
			p.VideoIDs = append(p.VideoIDs[:i:i], p.VideoIDs[i+1:]...)
			p.UpdatedAt = r.s.now()
			return true, nil
		}
	}
	return false, nil
}

func (r playlistRepo) ListByOwner(_ context.Context, ownerID uuid.UUID) ([]model.Playlist, error) {
	r.s.mu.RLock()
	defer r.s.mu.RUnlock()

	var out []model.Playlist
	for _, p := range r.s.playlists {
		if p.OwnerID == ownerID {
			out = append(out, *copyPlaylist(p))
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i].CreatedAt.After(out[j].CreatedAt) })
	return out, nil
}

func copyPlaylist(p *model.Playlist) *model.Playlist {
	cp := *p
	cp.VideoIDs = append([]uuid.UUID{}, p.VideoIDs...)
	return &cp
}
