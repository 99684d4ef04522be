package handler

import (
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/d60-Lab/blogsphere/internal/api/dto"
	"github.com/d60-Lab/blogsphere/internal/api/middleware"
	"github.com/d60-Lab/blogsphere/internal/service"
	"github.com/d60-Lab/blogsphere/pkg/errcode"
	"github.com/d60-Lab/blogsphere/pkg/response"
)

// MyProfile 当前用户资料
// @Summary 当前用户资料
// @Tags 资料
// @Produce json
// @Security BearerAuth
// @Success 200 {object} dto.ProfileResponse
// @Failure 404 {object} response.DetailBody
// @Router /profiles/me/ [get]
func (h *Handler) MyProfile(c *gin.Context) {
	p, err := h.profiles.Me(c.Request.Context(), middleware.CurrentUser(c))
	if err != nil {
		response.Error(c, err)
		return
	}
	response.Success(c, dto.NewProfileResponse(p, h.store))
}

// UpdateProfile 更新资料；首次调用时创建
// @Summary 更新资料
// @Tags 资料
// @Accept json
// @Produce json
// @Security BearerAuth
// @Param request body service.ProfileInput true "资料"
// @Success 200 {object} dto.ProfileResponse
// @Failure 400 {object} map[string][]string
// @Failure 403 {object} response.DetailBody
// @Router /profiles/update/ [put]
// @Router /profiles/update/ [patch]
func (h *Handler) UpdateProfile(c *gin.Context) {
	var in service.ProfileInput
	if err := c.ShouldBind(&in); err != nil {
		response.Error(c, errcode.FieldError("non_field_errors", "Malformed request body."))
		return
	}
	partial := c.Request.Method == http.MethodPatch
	p, err := h.profiles.Update(c.Request.Context(), middleware.CurrentUser(c), in, partial)
	if err != nil {
		response.Error(c, err)
		return
	}
	response.Success(c, dto.NewProfileResponse(p, h.store))
}

// UploadAvatar 头像异步上传
// @Summary 上传头像（异步）
// @Tags 资料
// @Accept multipart/form-data
// @Produce json
// @Security BearerAuth
// @Param avatar formData file true "头像"
// @Success 202 {object} response.MessageBody
// @Failure 400 {object} map[string][]string
// @Failure 404 {object} response.DetailBody
// @Failure 503 {object} response.DetailBody
// @Router /profiles/avatar/ [patch]
func (h *Handler) UploadAvatar(c *gin.Context) {
	var upload *service.Upload
	if fh, err := c.FormFile("avatar"); err == nil {
		upload, err = h.readUpload(fh)
		if err != nil {
			response.Error(c, err)
			return
		}
	}
	if err := h.profiles.ReplaceAvatar(c.Request.Context(), middleware.CurrentUser(c), upload); err != nil {
		response.Error(c, err)
		return
	}
	response.Message(c, http.StatusAccepted, "Avatar upload started.")
}
