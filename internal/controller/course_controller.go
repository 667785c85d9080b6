package controller

import (
	"errors"
	"strconv"

	"github.com/dialashami/RUWWAD-sub001/internal/service"
	"github.com/dialashami/RUWWAD-sub001/internal/util"

	"github.com/gin-gonic/gin"
)

type CourseController struct {
	CourseService *service.CourseService
}

func NewCourseController(courseService *service.CourseService) *CourseController {
	return &CourseController{CourseService: courseService}
}

// CreateCourse godoc
// @Summary 创建课程
// @Tags 课程
// @Accept  json
// @Produce  json
// @Security BearerAuth
// @Param   body body service.CreateCourseRequest true "课程信息"
// @Success 201 {object} util.Response{data=model.Course}
// @Failure 400 {object} util.Response
// @Router /api/courses [post]
func (c *CourseController) CreateCourse(ctx *gin.Context) {
	user := util.GetUserFromContext(ctx)

	var req service.CreateCourseRequest
	if err := ctx.ShouldBindJSON(&req); err != nil {
		util.BadRequest(ctx, err.Error())
		return
	}

	course, err := c.CourseService.CreateCourse(user.UserID, req)
	if err != nil {
		util.LogInternalError(ctx, err)
		return
	}
	util.Created(ctx, course)
}

// ListCourses godoc
// @Summary 课程列表
// @Tags 课程
// @Produce  json
// @Security BearerAuth
// @Param   page query int false "页码"
// @Param   limit query int false "每页数量"
// @Success 200 {object} util.Response{data=object}
// @Router /api/courses [get]
func (c *CourseController) ListCourses(ctx *gin.Context) {
	page, _ := strconv.Atoi(ctx.DefaultQuery("page", "1"))
	limit, _ := strconv.Atoi(ctx.DefaultQuery("limit", "20"))

	courses, total, err := c.CourseService.ListCourses(page, limit)
	if err != nil {
		util.LogInternalError(ctx, err)
		return
	}
	util.Success(ctx, gin.H{
		"courses": courses,
		"total":   total,
		"page":    page,
		"limit":   limit,
	})
}

// GetCourse godoc
// @Summary 课程详情
// @Tags 课程
// @Produce  json
// @Security BearerAuth
// @Param   id path int true "课程 ID"
// @Success 200 {object} util.Response{data=model.Course}
// @Failure 404 {object} util.Response
// @Router /api/courses/{id} [get]
func (c *CourseController) GetCourse(ctx *gin.Context) {
	id, err := pathID(ctx, "id")
	if err != nil {
		return
	}

	course, err := c.CourseService.GetCourse(id)
	if err != nil {
		util.NotFound(ctx)
		return
	}
	util.Success(ctx, course)
}

// CreateChapter godoc
// @Summary 追加章节
// @Description 章节号由课程内自动递增
// @Tags 课程
// @Accept  json
// @Produce  json
// @Security BearerAuth
// @Param   id path int true "课程 ID"
// @Param   body body service.CreateChapterRequest true "章节内容"
// @Success 201 {object} util.Response{data=model.Chapter}
// @Failure 403 {object} util.Response "非课程拥有者"
// @Failure 404 {object} util.Response
// @Router /api/courses/{id}/chapters [post]
func (c *CourseController) CreateChapter(ctx *gin.Context) {
	user := util.GetUserFromContext(ctx)

	courseID, err := pathID(ctx, "id")
	if err != nil {
		return
	}

	var req service.CreateChapterRequest
	if err := ctx.ShouldBindJSON(&req); err != nil {
		util.BadRequest(ctx, err.Error())
		return
	}

	chapter, err := c.CourseService.CreateChapter(user.UserID, courseID, req)
	if err != nil {
		writeCourseError(ctx, err)
		return
	}
	util.Created(ctx, chapter)
}

// UpdateChapter godoc
// @Summary 更新章节
// @Tags 课程
// @Accept  json
// @Produce  json
// @Security BearerAuth
// @Param   id path int true "章节 ID"
// @Param   body body service.UpdateChapterRequest true "要更新的字段"
// @Success 200 {object} util.Response{data=model.Chapter}
// @Failure 403 {object} util.Response
// @Failure 404 {object} util.Response
// @Router /api/chapters/{id} [put]
func (c *CourseController) UpdateChapter(ctx *gin.Context) {
	user := util.GetUserFromContext(ctx)

	chapterID, err := pathID(ctx, "id")
	if err != nil {
		return
	}

	var req service.UpdateChapterRequest
	if err := ctx.ShouldBindJSON(&req); err != nil {
		util.BadRequest(ctx, err.Error())
		return
	}

	chapter, err := c.CourseService.UpdateChapter(user.UserID, chapterID, req)
	if err != nil {
		writeCourseError(ctx, err)
		return
	}
	util.Success(ctx, chapter)
}

// AddLecture godoc
// @Summary 追加讲座
// @Tags 课程
// @Accept  json
// @Produce  json
// @Security BearerAuth
// @Param   id path int true "章节 ID"
// @Param   body body service.LectureInput true "讲座信息"
// @Success 201 {object} util.Response{data=model.Lecture}
// @Failure 403 {object} util.Response
// @Failure 404 {object} util.Response
// @Router /api/chapters/{id}/lectures [post]
func (c *CourseController) AddLecture(ctx *gin.Context) {
	user := util.GetUserFromContext(ctx)

	chapterID, err := pathID(ctx, "id")
	if err != nil {
		return
	}

	var req service.LectureInput
	if err := ctx.ShouldBindJSON(&req); err != nil {
		util.BadRequest(ctx, err.Error())
		return
	}

	lecture, err := c.CourseService.AddLecture(user.UserID, chapterID, req)
	if err != nil {
		writeCourseError(ctx, err)
		return
	}
	util.Created(ctx, lecture)
}

// pathID 解析路径里的数字 ID，非法时直接写 400。
func pathID(ctx *gin.Context, name string) (uint, error) {
	id, err := strconv.ParseUint(ctx.Param(name), 10, 32)
	if err != nil {
		util.BadRequest(ctx, "无效的 "+name)
		return 0, err
	}
	return uint(id), nil
}

func writeCourseError(ctx *gin.Context, err error) {
	switch {
	case errors.Is(err, util.ErrCourseNotFound), errors.Is(err, util.ErrChapterNotFound):
		util.NotFound(ctx)
	case errors.Is(err, util.ErrPermissionDenied):
		util.Forbidden(ctx)
	default:
		util.LogInternalError(ctx, err)
	}
}
