package service

import (
	"context"
	"math"
	"time"

	"github.com/dialashami/RUWWAD-sub001/internal/model"
	"github.com/dialashami/RUWWAD-sub001/internal/repository"
	"github.com/dialashami/RUWWAD-sub001/internal/util"
	"github.com/dialashami/RUWWAD-sub001/pkg/cache"
	"github.com/dialashami/RUWWAD-sub001/pkg/logger"
	"github.com/dialashami/RUWWAD-sub001/pkg/monitoring"

	"go.uber.org/zap"
	"gorm.io/gorm"
)

// AttemptService 实现 (student, chapter) 上的作答状态机：
// no-attempt → in_progress → completed。开始受解锁、讲座、幻灯片、次数
// 上限四个前置条件约束；提交恰好发生一次，重复提交按幂等读返回旧结果。
type AttemptService struct {
	CourseRepo   *repository.CourseRepository
	ChapterRepo  *repository.ChapterRepository
	ProgressRepo *repository.ProgressRepository
	AttemptRepo  *repository.AttemptRepository
	Unlock       *UnlockService
	Progress     *ProgressService
	Cache        cache.Cache

	// Expiry 超过该时长仍未提交的 in_progress 视为过期；过期状态在下次
	// 读到它时落库为 abandoned，不再占用“唯一进行中”的名额。
	Expiry time.Duration

	now func() time.Time
}

func NewAttemptService(
	courseRepo *repository.CourseRepository,
	chapterRepo *repository.ChapterRepository,
	progressRepo *repository.ProgressRepository,
	attemptRepo *repository.AttemptRepository,
	unlock *UnlockService,
	progress *ProgressService,
	c cache.Cache,
	expiry time.Duration,
) *AttemptService {
	if expiry <= 0 {
		expiry = 2 * time.Hour
	}
	return &AttemptService{
		CourseRepo:   courseRepo,
		ChapterRepo:  chapterRepo,
		ProgressRepo: progressRepo,
		AttemptRepo:  attemptRepo,
		Unlock:       unlock,
		Progress:     progress,
		Cache:        c,
		Expiry:       expiry,
		now:          time.Now,
	}
}

type StartQuizResult struct {
	AttemptID      string                  `json:"attemptId"`
	AttemptNumber  int                     `json:"attemptNumber"`
	Questions      []SanitizedQuestionView `json:"questions"`
	TotalQuestions int                     `json:"totalQuestions"`
	PassingScore   int                     `json:"passingScore"`
	TimeLimit      int                     `json:"timeLimit"`
	IsResuming     bool                    `json:"isResuming"`
}

// SanitizedQuestionView 下发给作答学生的题目，不含正确答案和解析。
type SanitizedQuestionView struct {
	Text           string   `json:"text"`
	Options        []string `json:"options"`
	SelectedAnswer int      `json:"selectedAnswer"`
}

// StartQuiz 开始（或恢复）一次作答。前置条件不满足时返回携带明细的
// 类型化错误；已存在未过期的 in_progress 时幂等返回它。
func (s *AttemptService) StartQuiz(chapterID, studentID uint) (*StartQuizResult, error) {
	chapter, err := s.ChapterRepo.FindByID(chapterID)
	if err != nil {
		return nil, util.ErrChapterNotFound
	}

	quiz := chapter.Quiz
	if quiz == nil || len(quiz.Questions) == 0 {
		return nil, util.ErrQuizNotGenerated
	}

	course, err := s.CourseRepo.FindByID(chapter.CourseID)
	if err != nil {
		return nil, util.ErrCourseNotFound
	}
	chapters, err := s.ChapterRepo.ListByCourse(course.ID)
	if err != nil {
		return nil, err
	}

	unlocked, _, err := s.Unlock.ResolveForStudent(course, chapters, studentID)
	if err != nil {
		return nil, err
	}
	if !unlocked[chapter.ChapterNumber] {
		return nil, &util.ChapterLockedError{
			ChapterNumber:   chapter.ChapterNumber,
			RequiredChapter: chapter.ChapterNumber - 1,
		}
	}

	progress, err := s.ProgressRepo.FindOrCreate(chapterID, studentID)
	if err != nil {
		return nil, err
	}

	if total := len(chapter.Lectures); total > 0 && !progress.AllLecturesCompleted {
		if watched := progress.WatchedCount(); watched < total {
			return nil, &util.LecturesIncompleteError{Watched: watched, Total: total}
		}
	}

	if chapter.HasSlides() && !progress.SlidesViewed {
		return nil, util.ErrSlidesNotViewed
	}

	var result *StartQuizResult
	err = s.AttemptRepo.Transaction(func(tx *gorm.DB) error {
		existing, err := s.AttemptRepo.LockInProgress(tx, chapterID, studentID)
		if err != nil {
			return err
		}

		if existing != nil {
			if !existing.ExpiredAt(s.now(), s.Expiry) {
				result = s.startResult(existing, true)
				return nil
			}
			// 显式落库过期状态，而不是只在读取时当作 abandoned
			existing.Status = model.AttemptStatusAbandoned
			if err := tx.Save(existing).Error; err != nil {
				return err
			}
			monitoring.QuizAttemptCounter.WithLabelValues("expired").Inc()
		}

		completed, err := s.countCompleted(tx, chapterID, studentID)
		if err != nil {
			return err
		}
		if quiz.MaxAttempts > 0 && completed >= quiz.MaxAttempts {
			return &util.AttemptLimitError{MaxAttempts: quiz.MaxAttempts, Used: completed}
		}

		nextNumber, err := s.nextAttemptNumber(tx, chapterID, studentID)
		if err != nil {
			return err
		}

		attempt := &model.QuizAttempt{
			ChapterID:     chapterID,
			StudentID:     studentID,
			AttemptNumber: nextNumber,
			Status:        model.AttemptStatusInProgress,
			PassingScore:  quiz.PassingScore,
			TimeLimit:     quiz.TimeLimit,
			StartedAt:     s.now(),
		}
		attempt.SetQuestions(buildAttemptSnapshot(quiz.Questions))
		attempt.TotalQuestions = len(quiz.Questions)

		if err := tx.Create(attempt).Error; err != nil {
			return err
		}

		monitoring.QuizAttemptCounter.WithLabelValues("started").Inc()
		result = s.startResult(attempt, false)
		return nil
	})
	if err != nil {
		return nil, err
	}

	return result, nil
}

// buildAttemptSnapshot 从题库复制作答快照：题目顺序和每题选项顺序都
// 独立于题库重洗一次，selected_answer 置为未作答哨兵值。
func buildAttemptSnapshot(questions []model.Question) []model.AttemptQuestion {
	order := util.ShuffleIndexes(len(questions))

	snapshot := make([]model.AttemptQuestion, 0, len(questions))
	for _, idx := range order {
		q := questions[idx]
		opts, correct := util.ShuffleOptions(q.OptionList(), q.CorrectAnswer)
		snapshot = append(snapshot, model.AttemptQuestion{
			QuestionID:     q.ID,
			Text:           q.Text,
			Options:        opts,
			CorrectAnswer:  correct,
			Explanation:    q.Explanation,
			Difficulty:     q.Difficulty,
			SelectedAnswer: model.UnansweredSentinel,
		})
	}
	return snapshot
}

func (s *AttemptService) startResult(attempt *model.QuizAttempt, resuming bool) *StartQuizResult {
	questions := attempt.QuestionList()
	views := make([]SanitizedQuestionView, len(questions))
	for i, q := range questions {
		views[i] = SanitizedQuestionView{
			Text:           q.Text,
			Options:        q.Options,
			SelectedAnswer: q.SelectedAnswer,
		}
	}

	return &StartQuizResult{
		AttemptID:      attempt.ID,
		AttemptNumber:  attempt.AttemptNumber,
		Questions:      views,
		TotalQuestions: len(questions),
		PassingScore:   attempt.PassingScore,
		TimeLimit:      attempt.TimeLimit,
		IsResuming:     resuming,
	}
}

func (s *AttemptService) countCompleted(tx *gorm.DB, chapterID, studentID uint) (int, error) {
	var count int64
	err := tx.Model(&model.QuizAttempt{}).
		Where("chapter_id = ? AND student_id = ? AND status = ?",
			chapterID, studentID, model.AttemptStatusCompleted).
		Count(&count).Error
	return int(count), err
}

// nextAttemptNumber 按 (student, chapter) 递增，abandoned 也占号，保证
// 历史序号稳定。
func (s *AttemptService) nextAttemptNumber(tx *gorm.DB, chapterID, studentID uint) (int, error) {
	var max int
	err := tx.Model(&model.QuizAttempt{}).
		Where("chapter_id = ? AND student_id = ?", chapterID, studentID).
		Select("COALESCE(MAX(attempt_number), 0)").
		Scan(&max).Error
	return max + 1, err
}

type AnsweredQuestionView struct {
	Text           string   `json:"text"`
	Options        []string `json:"options"`
	SelectedAnswer int      `json:"selectedAnswer"`
	CorrectAnswer  int      `json:"correctAnswer"`
	IsCorrect      bool     `json:"isCorrect"`
	Explanation    string   `json:"explanation,omitempty"`
}

type SubmitQuizResult struct {
	Score           int                    `json:"score"`
	Passed          bool                   `json:"passed"`
	CorrectAnswers  int                    `json:"correctAnswers"`
	TotalQuestions  int                    `json:"totalQuestions"`
	DetailedResults []AnsweredQuestionView `json:"detailedResults"`
	CanProceed      bool                   `json:"canProceed"`
}

// SubmitQuiz 把 in_progress 作答置为 completed，评分并触发进度与课程
// 缓存的下游更新。重复提交返回 AttemptCompletedError，携带已算好的
// 结果，不做第二次计算。
func (s *AttemptService) SubmitQuiz(attemptID string, studentID uint, answers []int) (*SubmitQuizResult, error) {
	var result *SubmitQuizResult
	var submitted *model.QuizAttempt

	err := s.AttemptRepo.Transaction(func(tx *gorm.DB) error {
		attempt, err := s.AttemptRepo.LockByID(tx, attemptID)
		if err != nil {
			return util.ErrAttemptNotFound
		}
		if attempt.StudentID != studentID {
			return util.ErrPermissionDenied
		}

		// 并发提交的短路检查：第二个提交在行锁后看到 completed
		if attempt.Status == model.AttemptStatusCompleted {
			return &util.AttemptCompletedError{
				Score:          attempt.Score,
				CorrectAnswers: attempt.CorrectAnswers,
				TotalQuestions: attempt.TotalQuestions,
				Passed:         attempt.Passed,
			}
		}
		if attempt.Status == model.AttemptStatusAbandoned {
			return util.ErrAttemptNotFound
		}

		questions := attempt.QuestionList()
		correct := 0
		for i := range questions {
			selected := model.UnansweredSentinel
			if i < len(answers) {
				selected = answers[i]
			}
			questions[i].SelectedAnswer = selected
			if selected == questions[i].CorrectAnswer {
				correct++
			}
		}

		total := len(questions)
		score := 0
		if total > 0 {
			score = int(math.Round(float64(correct) / float64(total) * 100))
		}

		now := s.now()
		attempt.SetQuestions(questions)
		attempt.Status = model.AttemptStatusCompleted
		attempt.CompletedAt = &now
		attempt.TimeSpent = int(now.Sub(attempt.StartedAt).Seconds())
		attempt.Score = score
		attempt.CorrectAnswers = correct
		attempt.TotalQuestions = total
		// 恰好等于及格线也算通过
		attempt.Passed = score >= attempt.PassingScore

		if err := tx.Save(attempt).Error; err != nil {
			return err
		}

		submitted = attempt
		result = submitResult(attempt)
		return nil
	})
	if err != nil {
		return nil, err
	}

	monitoring.QuizAttemptCounter.WithLabelValues("completed").Inc()

	chapter, err := s.ChapterRepo.FindByID(submitted.ChapterID)
	if err != nil {
		return nil, err
	}
	chapters, err := s.ChapterRepo.ListByCourse(chapter.CourseID)
	if err != nil {
		return nil, err
	}
	if err := s.Progress.ApplyQuizResult(chapter, len(chapters), submitted); err != nil {
		logger.Log.Error("failed to apply quiz result to progress",
			zap.String("attemptId", submitted.ID), zap.Error(err))
		return nil, err
	}

	return result, nil
}

func submitResult(attempt *model.QuizAttempt) *SubmitQuizResult {
	questions := attempt.QuestionList()
	details := make([]AnsweredQuestionView, len(questions))
	for i, q := range questions {
		details[i] = AnsweredQuestionView{
			Text:           q.Text,
			Options:        q.Options,
			SelectedAnswer: q.SelectedAnswer,
			CorrectAnswer:  q.CorrectAnswer,
			IsCorrect:      q.SelectedAnswer == q.CorrectAnswer,
			Explanation:    q.Explanation,
		}
	}

	return &SubmitQuizResult{
		Score:           attempt.Score,
		Passed:          attempt.Passed,
		CorrectAnswers:  attempt.CorrectAnswers,
		TotalQuestions:  attempt.TotalQuestions,
		DetailedResults: details,
		CanProceed:      attempt.Passed,
	}
}

type QuizResultsView struct {
	Attempts  []model.QuizAttemptSummary `json:"attempts"`
	BestScore int                        `json:"bestScore"`
	Passed    bool                       `json:"passed"`
}

// GetResults 作答历史与最好成绩。
func (s *AttemptService) GetResults(chapterID, studentID uint) (*QuizResultsView, error) {
	if _, err := s.ChapterRepo.FindByID(chapterID); err != nil {
		return nil, util.ErrChapterNotFound
	}

	progress, err := s.ProgressRepo.Find(chapterID, studentID)
	if err != nil {
		return nil, err
	}

	view := &QuizResultsView{Attempts: []model.QuizAttemptSummary{}}
	if progress == nil {
		return view, nil
	}

	view.Passed = progress.QuizPassed
	view.Attempts = progress.QuizAttempts
	for _, a := range progress.QuizAttempts {
		if a.Score > view.BestScore {
			view.BestScore = a.Score
		}
	}
	return view, nil
}

// ExpireStale 后台清扫：把超时的 in_progress 批量落库为 abandoned。
func (s *AttemptService) ExpireStale(ctx context.Context) (int64, error) {
	cutoff := s.now().Add(-s.Expiry)
	res := s.AttemptRepo.DB.WithContext(ctx).
		Model(&model.QuizAttempt{}).
		Where("status = ? AND started_at < ?", model.AttemptStatusInProgress, cutoff).
		Update("status", model.AttemptStatusAbandoned)
	if res.Error != nil {
		return 0, res.Error
	}
	if res.RowsAffected > 0 {
		monitoring.QuizAttemptCounter.WithLabelValues("expired").Add(float64(res.RowsAffected))
	}
	return res.RowsAffected, nil
}
