package controller

import (
	"errors"
	"net/http"

	"github.com/dialashami/RUWWAD-sub001/internal/service"
	"github.com/dialashami/RUWWAD-sub001/internal/util"

	"github.com/gin-gonic/gin"
)

type QuizController struct {
	GenerationService *service.GenerationService
	AttemptService    *service.AttemptService
}

func NewQuizController(generationService *service.GenerationService, attemptService *service.AttemptService) *QuizController {
	return &QuizController{
		GenerationService: generationService,
		AttemptService:    attemptService,
	}
}

// GenerateQuiz godoc
// @Summary 为章节生成测验
// @Description 基于幻灯片文本生成题库；重复调用整套替换旧题库
// @Tags 测验
// @Accept  json
// @Produce  json
// @Security BearerAuth
// @Param   id path int true "章节 ID"
// @Param   body body service.GenerateQuizRequest true "生成参数"
// @Success 201 {object} util.Response{data=object}
// @Failure 400 {object} util.Response "幻灯片内容过短"
// @Failure 403 {object} util.Response "非课程拥有者"
// @Router /api/chapters/{id}/quiz/generate [post]
func (c *QuizController) GenerateQuiz(ctx *gin.Context) {
	user := util.GetUserFromContext(ctx)

	chapterID, err := pathID(ctx, "id")
	if err != nil {
		return
	}

	var req service.GenerateQuizRequest
	if err := ctx.ShouldBindJSON(&req); err != nil {
		util.BadRequest(ctx, err.Error())
		return
	}

	quiz, err := c.GenerationService.GenerateQuiz(ctx.Request.Context(), user.UserID, chapterID, req)
	if err != nil {
		var short *util.ContentTooShortError
		if errors.As(err, &short) {
			util.ErrorWithData(ctx, http.StatusBadRequest, short.Error(), gin.H{
				"contentLength":  short.Length,
				"requiredLength": short.Required,
			})
			return
		}
		writeChapterError(ctx, err)
		return
	}

	util.Created(ctx, gin.H{
		"quizId":        quiz.ID,
		"questionCount": len(quiz.Questions),
		"passingScore":  quiz.PassingScore,
	})
}

// StartQuiz godoc
// @Summary 开始测验作答
// @Description 已有未过期的进行中作答时幂等返回它（isResuming=true）
// @Tags 测验
// @Produce  json
// @Security BearerAuth
// @Param   id path int true "章节 ID"
// @Success 200 {object} util.Response{data=service.StartQuizResult}
// @Failure 403 {object} util.Response "章节未解锁或次数用尽"
// @Failure 404 {object} util.Response "测验尚未生成"
// @Failure 412 {object} util.Response "讲座或幻灯片前置条件未满足"
// @Router /api/chapters/{id}/quiz/start [post]
func (c *QuizController) StartQuiz(ctx *gin.Context) {
	user := util.GetUserFromContext(ctx)

	chapterID, err := pathID(ctx, "id")
	if err != nil {
		return
	}

	result, err := c.AttemptService.StartQuiz(chapterID, user.UserID)
	if err != nil {
		writeAttemptError(ctx, err)
		return
	}
	util.Success(ctx, result)
}

type SubmitQuizRequest struct {
	// Answers 按下发的题目顺序给出所选选项下标，未作答传 -1
	Answers []int `json:"answers" binding:"required"`
}

// SubmitQuiz godoc
// @Summary 提交测验答案
// @Description 评分一次性完成；重复提交返回 409 和已存的结果
// @Tags 测验
// @Accept  json
// @Produce  json
// @Security BearerAuth
// @Param   id path string true "作答 ID"
// @Param   body body SubmitQuizRequest true "答案"
// @Success 200 {object} util.Response{data=service.SubmitQuizResult}
// @Failure 404 {object} util.Response
// @Failure 409 {object} util.Response "该作答已提交过"
// @Router /api/quiz/attempts/{id}/submit [post]
func (c *QuizController) SubmitQuiz(ctx *gin.Context) {
	user := util.GetUserFromContext(ctx)
	attemptID := ctx.Param("id")

	var req SubmitQuizRequest
	if err := ctx.ShouldBindJSON(&req); err != nil {
		util.BadRequest(ctx, err.Error())
		return
	}

	result, err := c.AttemptService.SubmitQuiz(attemptID, user.UserID, req.Answers)
	if err != nil {
		writeAttemptError(ctx, err)
		return
	}
	util.Success(ctx, result)
}

// GetResults godoc
// @Summary 测验作答历史
// @Tags 测验
// @Produce  json
// @Security BearerAuth
// @Param   id path int true "章节 ID"
// @Success 200 {object} util.Response{data=service.QuizResultsView}
// @Failure 404 {object} util.Response
// @Router /api/chapters/{id}/quiz/results [get]
func (c *QuizController) GetResults(ctx *gin.Context) {
	user := util.GetUserFromContext(ctx)

	chapterID, err := pathID(ctx, "id")
	if err != nil {
		return
	}

	results, err := c.AttemptService.GetResults(chapterID, user.UserID)
	if err != nil {
		writeAttemptError(ctx, err)
		return
	}
	util.Success(ctx, results)
}

func writeAttemptError(ctx *gin.Context, err error) {
	var lectures *util.LecturesIncompleteError
	if errors.As(err, &lectures) {
		util.ErrorWithData(ctx, http.StatusPreconditionFailed, lectures.Error(), gin.H{
			"lecturesWatched": lectures.Watched,
			"lecturesTotal":   lectures.Total,
		})
		return
	}

	var limit *util.AttemptLimitError
	if errors.As(err, &limit) {
		util.ErrorWithData(ctx, http.StatusForbidden, limit.Error(), gin.H{
			"maxAttempts":  limit.MaxAttempts,
			"attemptsUsed": limit.Used,
		})
		return
	}

	var completed *util.AttemptCompletedError
	if errors.As(err, &completed) {
		util.ErrorWithData(ctx, http.StatusConflict, completed.Error(), gin.H{
			"score":          completed.Score,
			"correctAnswers": completed.CorrectAnswers,
			"totalQuestions": completed.TotalQuestions,
			"passed":         completed.Passed,
		})
		return
	}

	switch {
	case errors.Is(err, util.ErrSlidesNotViewed):
		util.Error(ctx, http.StatusPreconditionFailed, err.Error())
	case errors.Is(err, util.ErrQuizNotGenerated),
		errors.Is(err, util.ErrAttemptNotFound):
		util.NotFound(ctx)
	default:
		writeChapterError(ctx, err)
	}
}
