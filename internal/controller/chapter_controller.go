package controller

import (
	"errors"

	"github.com/dialashami/RUWWAD-sub001/internal/service"
	"github.com/dialashami/RUWWAD-sub001/internal/util"

	"github.com/gin-gonic/gin"
)

type ChapterController struct {
	ChapterService  *service.ChapterService
	ProgressService *service.ProgressService
}

func NewChapterController(chapterService *service.ChapterService, progressService *service.ProgressService) *ChapterController {
	return &ChapterController{
		ChapterService:  chapterService,
		ProgressService: progressService,
	}
}

// ListChapters godoc
// @Summary 课程章节列表
// @Description 学生视角带解锁状态、自己的章节进度和课程级进度；教师视角返回完整内容
// @Tags 章节
// @Produce  json
// @Security BearerAuth
// @Param   id path int true "课程 ID"
// @Success 200 {object} util.Response{data=service.ChapterListView}
// @Failure 404 {object} util.Response
// @Router /api/courses/{id}/chapters [get]
func (c *ChapterController) ListChapters(ctx *gin.Context) {
	user := util.GetUserFromContext(ctx)

	courseID, err := pathID(ctx, "id")
	if err != nil {
		return
	}

	views, err := c.ChapterService.ListChapters(courseID, user)
	if err != nil {
		writeChapterError(ctx, err)
		return
	}
	util.Success(ctx, views)
}

// GetChapter godoc
// @Summary 章节详情
// @Description 学生访问锁定章节返回 403，并带 requiredChapter
// @Tags 章节
// @Produce  json
// @Security BearerAuth
// @Param   id path int true "章节 ID"
// @Success 200 {object} util.Response{data=service.ChapterView}
// @Failure 403 {object} util.Response "章节未解锁"
// @Failure 404 {object} util.Response
// @Router /api/chapters/{id} [get]
func (c *ChapterController) GetChapter(ctx *gin.Context) {
	user := util.GetUserFromContext(ctx)

	chapterID, err := pathID(ctx, "id")
	if err != nil {
		return
	}

	view, err := c.ChapterService.GetChapter(chapterID, user)
	if err != nil {
		writeChapterError(ctx, err)
		return
	}
	util.Success(ctx, view)
}

// MarkSlidesViewed godoc
// @Summary 标记幻灯片已看
// @Description 幂等；重复标记返回当前进度
// @Tags 章节
// @Produce  json
// @Security BearerAuth
// @Param   id path int true "章节 ID"
// @Success 200 {object} util.Response{data=model.ChapterProgress}
// @Failure 404 {object} util.Response
// @Router /api/chapters/{id}/slides/viewed [post]
func (c *ChapterController) MarkSlidesViewed(ctx *gin.Context) {
	user := util.GetUserFromContext(ctx)

	chapterID, err := pathID(ctx, "id")
	if err != nil {
		return
	}

	progress, err := c.ProgressService.MarkSlidesViewed(chapterID, user.UserID)
	if err != nil {
		writeChapterError(ctx, err)
		return
	}
	util.Success(ctx, progress)
}

// MarkLectureWatched godoc
// @Summary 标记讲座已看
// @Description 集合语义，重复标记不产生重复记录
// @Tags 章节
// @Produce  json
// @Security BearerAuth
// @Param   id path int true "章节 ID"
// @Param   lectureId path int true "讲座 ID"
// @Success 200 {object} util.Response{data=model.ChapterProgress}
// @Failure 404 {object} util.Response "讲座不属于该章节"
// @Router /api/chapters/{id}/lectures/{lectureId}/watched [post]
func (c *ChapterController) MarkLectureWatched(ctx *gin.Context) {
	user := util.GetUserFromContext(ctx)

	chapterID, err := pathID(ctx, "id")
	if err != nil {
		return
	}
	lectureID, err := pathID(ctx, "lectureId")
	if err != nil {
		return
	}

	progress, err := c.ProgressService.MarkLectureWatched(chapterID, user.UserID, lectureID)
	if err != nil {
		writeChapterError(ctx, err)
		return
	}
	util.Success(ctx, progress)
}

func writeChapterError(ctx *gin.Context, err error) {
	var locked *util.ChapterLockedError
	if errors.As(err, &locked) {
		util.ErrorWithData(ctx, 403, locked.Error(), gin.H{
			"isLocked":        true,
			"chapterNumber":   locked.ChapterNumber,
			"requiredChapter": locked.RequiredChapter,
		})
		return
	}

	switch {
	case errors.Is(err, util.ErrCourseNotFound),
		errors.Is(err, util.ErrChapterNotFound),
		errors.Is(err, util.ErrLectureNotFound):
		util.NotFound(ctx)
	case errors.Is(err, util.ErrPermissionDenied):
		util.Forbidden(ctx)
	default:
		util.LogInternalError(ctx, err)
	}
}
