package handlers

import (
	"context"
	"net/http"
	"strconv"
	"strings"

	"github.com/gofiber/fiber/v2"

	"github.com/spec-kit/post-scheduler/internal/api/dto"
	"github.com/spec-kit/post-scheduler/internal/auth"
	"github.com/spec-kit/post-scheduler/internal/domain"
	"github.com/spec-kit/post-scheduler/internal/service"
	apperrors "github.com/spec-kit/post-scheduler/pkg/util/errorutil"
)

const maxPageSize = 100

// PostScheduler is the slice of the post service used over HTTP.
type PostScheduler interface {
	Schedule(ctx context.Context, userID int64, input service.PostScheduleInput) (*domain.Post, error)
	ListForUser(ctx context.Context, userID int64, limit, offset int) ([]domain.Post, error)
	Get(ctx context.Context, userID, id int64) (*domain.Post, error)
}

// PostsHandler serves the caller's scheduled posts.
type PostsHandler struct {
	service PostScheduler
}

// NewPostsHandler constructs handler.
func NewPostsHandler(postService PostScheduler) *PostsHandler {
	return &PostsHandler{service: postService}
}

// SchedulePost POST /api/posts.
func (h *PostsHandler) SchedulePost(c *fiber.Ctx) error {
	userID, err := callerID(c)
	if err != nil {
		return err
	}
	var req dto.SchedulePostRequest
	if err := c.BodyParser(&req); err != nil {
		return apperrors.NewValidationError("invalid payload", nil)
	}

	details := map[string]any{}
	if strings.TrimSpace(req.Content) == "" {
		details["content"] = "required"
	}
	if req.AccountID <= 0 {
		details["account_id"] = "must be positive"
	}
	if req.ScheduledTime.IsZero() {
		details["scheduled_time"] = "required"
	}
	if len(details) > 0 {
		return apperrors.NewValidationError("content, account_id, scheduled_time required", details)
	}

	post, err := h.service.Schedule(c.UserContext(), userID, service.PostScheduleInput{
		AccountID:     req.AccountID,
		Content:       req.Content,
		MediaURL:      req.MediaURL,
		ScheduledTime: req.ScheduledTime,
	})
	if err != nil {
		return err
	}
	return c.Status(http.StatusCreated).JSON(fiber.Map{"data": dto.NewPostResponse(post)})
}

// ListPosts GET /api/posts.
func (h *PostsHandler) ListPosts(c *fiber.Ctx) error {
	userID, err := callerID(c)
	if err != nil {
		return err
	}
	query := parsePostListQuery(c)
	posts, err := h.service.ListForUser(c.UserContext(), userID, query.Limit, query.Offset)
	if err != nil {
		return err
	}
	items := make([]dto.PostResponse, 0, len(posts))
	for i := range posts {
		items = append(items, dto.NewPostResponse(&posts[i]))
	}
	return c.JSON(fiber.Map{"data": items, "limit": query.Limit, "offset": query.Offset})
}

// GetPost GET /api/posts/:id.
func (h *PostsHandler) GetPost(c *fiber.Ctx) error {
	userID, err := callerID(c)
	if err != nil {
		return err
	}
	id, err := strconv.ParseInt(c.Params("id"), 10, 64)
	if err != nil || id <= 0 {
		return apperrors.NewValidationError("invalid post id", map[string]any{"id": c.Params("id")})
	}
	post, err := h.service.Get(c.UserContext(), userID, id)
	if err != nil {
		return err
	}
	return c.JSON(fiber.Map{"data": dto.NewPostResponse(post)})
}

// callerID reads the numeric user id carried in the token subject.
func callerID(c *fiber.Ctx) (int64, error) {
	principal, ok := auth.PrincipalFromContext(c)
	if !ok || principal.Subject == "" {
		return 0, apperrors.NewUnauthorized("user required")
	}
	id, err := strconv.ParseInt(principal.Subject, 10, 64)
	if err != nil || id <= 0 {
		return 0, apperrors.NewUnauthorized("token subject is not a user id")
	}
	return id, nil
}

func parsePostListQuery(c *fiber.Ctx) dto.PostListQuery {
	q := dto.PostListQuery{Limit: c.QueryInt("limit", 20), Offset: c.QueryInt("offset", 0)}
	if q.Limit <= 0 {
		q.Limit = 20
	}
	if q.Limit > maxPageSize {
		q.Limit = maxPageSize
	}
	if q.Offset < 0 {
		q.Offset = 0
	}
	return q
}
