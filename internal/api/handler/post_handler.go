package handler

import (
	"net/http"
	"strconv"

	"github.com/gin-gonic/gin"
	"github.com/gin-gonic/gin/binding"

	"github.com/d60-Lab/blogsphere/internal/api/dto"
	"github.com/d60-Lab/blogsphere/internal/api/middleware"
	"github.com/d60-Lab/blogsphere/internal/service"
	"github.com/d60-Lab/blogsphere/pkg/errcode"
	"github.com/d60-Lab/blogsphere/pkg/response"
)

type postJSON struct {
	Title *string `json:"title"`
	Body  *string `json:"body"`
}

// readPostInput accepts multipart/form-data (with files) or JSON (text fields only).
func (h *Handler) readPostInput(c *gin.Context) (service.PostInput, error) {
	var in service.PostInput
	if c.ContentType() == binding.MIMEJSON {
		var body postJSON
		if err := c.ShouldBindJSON(&body); err != nil {
			return in, errcode.FieldError("non_field_errors", "Malformed JSON body.")
		}
		in.Title, in.Body = body.Title, body.Body
		return in, nil
	}

	if v, ok := c.GetPostForm("title"); ok {
		in.Title = &v
	}
	if v, ok := c.GetPostForm("body"); ok {
		in.Body = &v
	}
	if c.ContentType() != binding.MIMEMultipartPOSTForm {
		return in, nil
	}

	form, err := c.MultipartForm()
	if err != nil {
		return in, errcode.FieldError("non_field_errors", "Malformed multipart body.")
	}
	if files := form.File["banner_image"]; len(files) > 0 {
		up, err := h.readUpload(files[0])
		if err != nil {
			return in, err
		}
		in.Banner = up
	}
	for _, fh := range form.File["uploaded_images"] {
		up, err := h.readUpload(fh)
		if err != nil {
			return in, err
		}
		in.Images = append(in.Images, *up)
	}
	return in, nil
}

// ListPosts 文章列表
// @Summary 文章列表
// @Tags 文章
// @Produce json
// @Security BearerAuth
// @Param ordering query string false "created_at | -created_at | updated_at | -updated_at"
// @Param search query string false "标题关键字"
// @Param author query string false "作者用户名"
// @Param page query int false "页码"
// @Param page_size query int false "每页数量"
// @Success 200 {array} dto.PostResponse
// @Failure 400 {object} map[string][]string
// @Router /posts/ [get]
func (h *Handler) ListPosts(c *gin.Context) {
	opts := service.ListOptions{
		Ordering: c.Query("ordering"),
		Search:   c.Query("search"),
		Author:   c.Query("author"),
	}
	for name, dst := range map[string]*int{"page": &opts.Page, "page_size": &opts.PageSize} {
		raw := c.Query(name)
		if raw == "" {
			continue
		}
		n, err := strconv.Atoi(raw)
		if err != nil {
			response.BadRequest(c, map[string][]string{name: {"A valid integer is required."}})
			return
		}
		*dst = n
	}

	views, err := h.posts.List(c.Request.Context(), middleware.CurrentUser(c), opts)
	if err != nil {
		response.Error(c, err)
		return
	}
	response.Success(c, dto.NewPostList(views, h.store))
}

// CreatePost 发布文章
// @Summary 发布文章
// @Tags 文章
// @Accept multipart/form-data
// @Produce json
// @Security BearerAuth
// @Param title formData string true "标题"
// @Param body formData string true "正文"
// @Param banner_image formData file false "封面图"
// @Param uploaded_images formData file false "图集"
// @Success 201 {object} dto.PostResponse
// @Failure 400 {object} map[string][]string
// @Router /posts/ [post]
func (h *Handler) CreatePost(c *gin.Context) {
	in, err := h.readPostInput(c)
	if err != nil {
		response.Error(c, err)
		return
	}
	view, err := h.posts.Create(c.Request.Context(), middleware.CurrentUser(c), in)
	if err != nil {
		response.Error(c, err)
		return
	}
	response.Created(c, dto.NewPostResponse(*view, h.store))
}

// MyPosts 我的文章（按赞数、时间倒序）
// @Summary 我的文章
// @Tags 文章
// @Produce json
// @Security BearerAuth
// @Success 200 {array} dto.PostResponse
// @Router /posts/mine/ [get]
func (h *Handler) MyPosts(c *gin.Context) {
	views, err := h.posts.ListMine(c.Request.Context(), middleware.CurrentUser(c))
	if err != nil {
		response.Error(c, err)
		return
	}
	response.Success(c, dto.NewPostList(views, h.store))
}

// GetPost 文章详情
// @Summary 文章详情
// @Tags 文章
// @Produce json
// @Security BearerAuth
// @Param slug path string true "slug"
// @Success 200 {object} dto.PostResponse
// @Failure 404
// @Router /posts/{slug}/ [get]
func (h *Handler) GetPost(c *gin.Context) {
	view, err := h.posts.Get(c.Request.Context(), middleware.CurrentUser(c), c.Param("slug"))
	if errcode.Is(err, errcode.KindNotFound) {
		c.Status(http.StatusNotFound)
		return
	}
	if err != nil {
		response.Error(c, err)
		return
	}
	response.Success(c, dto.NewPostResponse(*view, h.store))
}

// UpdatePost 修改文章（仅作者）
// @Summary 修改文章
// @Tags 文章
// @Accept multipart/form-data
// @Produce json
// @Security BearerAuth
// @Param slug path string true "slug"
// @Param title formData string false "标题"
// @Param body formData string false "正文"
// @Param banner_image formData file false "封面图"
// @Param uploaded_images formData file false "追加图集"
// @Success 200 {object} dto.PostResponse
// @Failure 400 {object} map[string][]string
// @Failure 403 {object} response.DetailBody
// @Failure 404 {object} response.DetailBody
// @Router /posts/{slug}/ [put]
// @Router /posts/{slug}/ [patch]
func (h *Handler) UpdatePost(c *gin.Context) {
	in, err := h.readPostInput(c)
	if err != nil {
		response.Error(c, err)
		return
	}
	partial := c.Request.Method == http.MethodPatch
	view, err := h.posts.Update(c.Request.Context(), middleware.CurrentUser(c), c.Param("slug"), in, partial)
	if err != nil {
		response.Error(c, err)
		return
	}
	response.Success(c, dto.NewPostResponse(*view, h.store))
}

// DeletePost 删除文章（仅作者）
// @Summary 删除文章
// @Tags 文章
// @Security BearerAuth
// @Param slug path string true "slug"
// @Success 204
// @Failure 403 {object} response.DetailBody
// @Failure 404 {object} response.DetailBody
// @Router /posts/{slug}/ [delete]
func (h *Handler) DeletePost(c *gin.Context) {
	if err := h.posts.Delete(c.Request.Context(), middleware.CurrentUser(c), c.Param("slug")); err != nil {
		response.Error(c, err)
		return
	}
	response.NoContent(c)
}

type postAction func(svc service.PostService, c *gin.Context) error

func (h *Handler) action(do postAction, okMsg string) gin.HandlerFunc {
	return func(c *gin.Context) {
		if err := do(h.posts, c); err != nil {
			response.Error(c, err)
			return
		}
		response.Message(c, http.StatusOK, okMsg)
	}
}

// BookmarkPost 收藏
// @Summary 收藏文章
// @Tags 文章
// @Produce json
// @Security BearerAuth
// @Param slug path string true "slug"
// @Success 200 {object} response.MessageBody
// @Failure 400 {object} response.MessageBody
// @Failure 404 {object} response.DetailBody
// @Router /posts/{slug}/bookmark/ [patch]
func (h *Handler) BookmarkPost() gin.HandlerFunc {
	return h.action(func(svc service.PostService, c *gin.Context) error {
		return svc.Bookmark(c.Request.Context(), middleware.CurrentUser(c), c.Param("slug"))
	}, "Post bookmarked")
}

// UnbookmarkPost 取消收藏
// @Summary 取消收藏
// @Tags 文章
// @Produce json
// @Security BearerAuth
// @Param slug path string true "slug"
// @Success 200 {object} response.MessageBody
// @Failure 400 {object} response.MessageBody
// @Failure 404 {object} response.DetailBody
// @Router /posts/{slug}/unbookmark/ [patch]
func (h *Handler) UnbookmarkPost() gin.HandlerFunc {
	return h.action(func(svc service.PostService, c *gin.Context) error {
		return svc.Unbookmark(c.Request.Context(), middleware.CurrentUser(c), c.Param("slug"))
	}, "Post Bookmark Removed")
}

// UpvotePost 点赞；已踩则改为赞
// @Summary 点赞
// @Tags 文章
// @Produce json
// @Security BearerAuth
// @Param slug path string true "slug"
// @Success 200 {object} response.MessageBody
// @Failure 400 {object} response.MessageBody
// @Failure 404 {object} response.DetailBody
// @Router /posts/{slug}/upvote/ [patch]
func (h *Handler) UpvotePost() gin.HandlerFunc {
	return h.action(func(svc service.PostService, c *gin.Context) error {
		return svc.Upvote(c.Request.Context(), middleware.CurrentUser(c), c.Param("slug"))
	}, "Post upvoted")
}

// DownvotePost 点踩；已赞则改为踩
// @Summary 点踩
// @Tags 文章
// @Produce json
// @Security BearerAuth
// @Param slug path string true "slug"
// @Success 200 {object} response.MessageBody
// @Failure 400 {object} response.MessageBody
// @Failure 404 {object} response.DetailBody
// @Router /posts/{slug}/downvote/ [patch]
func (h *Handler) DownvotePost() gin.HandlerFunc {
	return h.action(func(svc service.PostService, c *gin.Context) error {
		return svc.Downvote(c.Request.Context(), middleware.CurrentUser(c), c.Param("slug"))
	}, "Post downvoted")
}

// UnvotePost 撤销投票
// @Summary 撤销投票
// @Tags 文章
// @Produce json
// @Security BearerAuth
// @Param slug path string true "slug"
// @Success 200 {object} response.MessageBody
// @Failure 400 {object} response.MessageBody
// @Failure 404 {object} response.DetailBody
// @Router /posts/{slug}/unvote/ [patch]
func (h *Handler) UnvotePost() gin.HandlerFunc {
	return h.action(func(svc service.PostService, c *gin.Context) error {
		return svc.RemoveVote(c.Request.Context(), middleware.CurrentUser(c), c.Param("slug"))
	}, "Vote removed")
}
