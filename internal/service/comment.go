package service

import (
	"context"
	"strings"
	"unicode/utf8"

	"github.com/google/uuid"

	"videotube/internal/logging"
	"videotube/internal/model"
	"videotube/internal/repository"
)

type CommentService struct {
	comments repository.CommentRepository
	videos   repository.VideoRepository
	accounts repository.AccountRepository
}

func NewCommentService(
	comments repository.CommentRepository,
	videos repository.VideoRepository,
	accounts repository.AccountRepository,
) *CommentService {
	return &CommentService{
		comments: comments,
		videos:   videos,
		accounts: accounts,
	}
}

func validateContent(content string) (string, error) {
	content = strings.TrimSpace(content)
	if content == "" {
		return "", model.ErrContentRequired
	}
	if utf8.RuneCountInString(content) > model.MaxCommentLength {
		return "", model.ErrContentTooLong
	}
	return content, nil
}

// Add posts a comment on a video. Threads are two levels deep: replying to a
// reply attaches to the thread's top-level comment and mentions the reply's author.
func (s *CommentService) Add(ctx context.Context, rawVideoID string, ownerID uuid.UUID, req model.CreateCommentRequest) (*model.Comment, error) {
	videoID, err := model.ParseID(rawVideoID)
	if err != nil {
		return nil, err
	}
	content, err := validateContent(req.Content)
	if err != nil {
		return nil, err
	}

	if _, err := s.videos.GetByID(ctx, videoID); err != nil {
		return nil, err
	}

	var parentID *uuid.UUID
	if req.ParentID != nil {
		id, err := model.ParseID(*req.ParentID)
		if err != nil {
			return nil, err
		}
		parent, err := s.comments.GetByID(ctx, id)
		if err != nil {
			return nil, err
		}
		if parent.VideoID != videoID {
			return nil, model.ErrParentMismatch
		}

		parentID = &parent.ID
		if !parent.IsTopLevel() {
			parentID = parent.ParentID
			if author, err := s.accounts.GetByID(ctx, parent.OwnerID); err == nil {
				content = "@" + author.Username + " " + content
			}
		}
	}

	comment := &model.Comment{
		VideoID:  videoID,
		OwnerID:  ownerID,
		Content:  content,
		ParentID: parentID,
	}
	if err := s.comments.Create(ctx, comment); err != nil {
		return nil, err
	}

	logging.Ctx(ctx).Debug().
		Str("comment_id", comment.ID.String()).
		Str("video_id", videoID.String()).
		Bool("reply", parentID != nil).
		Msg("comment added")
	return comment, nil
}

// Update edits the content of the caller's own comment.
func (s *CommentService) Update(ctx context.Context, rawCommentID string, ownerID uuid.UUID, req model.UpdateCommentRequest) (*model.Comment, error) {
	commentID, err := model.ParseID(rawCommentID)
	if err != nil {
		return nil, err
	}
	content, err := validateContent(req.Content)
	if err != nil {
		return nil, err
	}
	return s.comments.UpdateContent(ctx, commentID, ownerID, content)
}

// Delete removes the caller's own comment; a thread takes its replies with it.
func (s *CommentService) Delete(ctx context.Context, rawCommentID string, ownerID uuid.UUID) error {
	commentID, err := model.ParseID(rawCommentID)
	if err != nil {
		return err
	}
	return s.comments.Delete(ctx, commentID, ownerID)
}
