package service

import (
	"sort"
	"testing"
	"time"

	"github.com/dialashami/RUWWAD-sub001/internal/model"
	"github.com/dialashami/RUWWAD-sub001/internal/util"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// prepareQuizChapter 看完讲座和幻灯片，让学生满足开始作答的前置条件。
func prepareQuizChapter(t *testing.T, env *testEnv, chapterID, studentID uint) {
	t.Helper()
	chapter, err := env.chapters.FindByID(chapterID)
	require.NoError(t, err)
	for _, l := range chapter.Lectures {
		_, err := env.progressSvc.MarkLectureWatched(chapterID, studentID, l.ID)
		require.NoError(t, err)
	}
	if chapter.HasSlides() {
		_, err := env.progressSvc.MarkSlidesViewed(chapterID, studentID)
		require.NoError(t, err)
	}
}

func TestStartQuiz_Preconditions(t *testing.T) {
	env := newTestEnv(t)
	_, chapters := env.seedCourse(t, 1, 2)
	const studentID = 20

	t.Run("locked chapter", func(t *testing.T) {
		env.seedQuiz(t, chapters[1].ID, 5, 60, 0)
		_, err := env.attempt.StartQuiz(chapters[1].ID, studentID)
		var locked *util.ChapterLockedError
		require.ErrorAs(t, err, &locked)
		assert.Equal(t, 2, locked.ChapterNumber)
		assert.Equal(t, 1, locked.RequiredChapter)
	})

	t.Run("quiz not generated", func(t *testing.T) {
		_, err := env.attempt.StartQuiz(chapters[0].ID, studentID)
		assert.ErrorIs(t, err, util.ErrQuizNotGenerated)
	})

	t.Run("lectures incomplete", func(t *testing.T) {
		env.seedQuiz(t, chapters[0].ID, 5, 60, 0)
		lectures := env.seedLectures(t, chapters[0].ID, 3)

		_, err := env.progressSvc.MarkLectureWatched(chapters[0].ID, studentID, lectures[0].ID)
		require.NoError(t, err)

		_, err = env.attempt.StartQuiz(chapters[0].ID, studentID)
		var incomplete *util.LecturesIncompleteError
		require.ErrorAs(t, err, &incomplete)
		assert.Equal(t, 1, incomplete.Watched)
		assert.Equal(t, 3, incomplete.Total)
	})

	t.Run("slides not viewed", func(t *testing.T) {
		chapter, err := env.chapters.FindByID(chapters[0].ID)
		require.NoError(t, err)
		for _, l := range chapter.Lectures {
			_, err := env.progressSvc.MarkLectureWatched(chapter.ID, studentID, l.ID)
			require.NoError(t, err)
		}

		_, err = env.attempt.StartQuiz(chapter.ID, studentID)
		assert.ErrorIs(t, err, util.ErrSlidesNotViewed)
	})
}

func TestStartQuiz_SnapshotShuffle(t *testing.T) {
	env := newTestEnv(t)
	_, chapters := env.seedCourse(t, 1, 1)
	env.seedQuiz(t, chapters[0].ID, 10, 60, 0)
	const studentID = 21
	prepareQuizChapter(t, env, chapters[0].ID, studentID)

	started, err := env.attempt.StartQuiz(chapters[0].ID, studentID)
	require.NoError(t, err)
	assert.Equal(t, 1, started.AttemptNumber)
	assert.False(t, started.IsResuming)
	assert.Equal(t, 10, started.TotalQuestions)
	require.Len(t, started.Questions, 10)

	// 下发的题目不含答案字段，选项数固定，selectedAnswer 为未作答哨兵
	for _, q := range started.Questions {
		assert.Len(t, q.Options, model.QuestionOptionCount)
		assert.Equal(t, model.UnansweredSentinel, q.SelectedAnswer)
	}

	// 快照保留所有原题，只是顺序和选项排列不同
	attempt, err := env.attempts.FindByID(started.AttemptID)
	require.NoError(t, err)
	snapshot := attempt.QuestionList()
	texts := make([]string, len(snapshot))
	for i, q := range snapshot {
		texts[i] = q.Text
		require.GreaterOrEqual(t, q.CorrectAnswer, 0)
		require.Less(t, q.CorrectAnswer, len(q.Options))
	}
	sort.Strings(texts)
	assert.Equal(t, []string{
		"Question 1", "Question 10", "Question 2", "Question 3", "Question 4",
		"Question 5", "Question 6", "Question 7", "Question 8", "Question 9",
	}, texts)
}

func TestStartQuiz_ResumesInProgress(t *testing.T) {
	env := newTestEnv(t)
	_, chapters := env.seedCourse(t, 1, 1)
	env.seedQuiz(t, chapters[0].ID, 5, 60, 0)
	const studentID = 22
	prepareQuizChapter(t, env, chapters[0].ID, studentID)

	first, err := env.attempt.StartQuiz(chapters[0].ID, studentID)
	require.NoError(t, err)

	second, err := env.attempt.StartQuiz(chapters[0].ID, studentID)
	require.NoError(t, err)
	assert.True(t, second.IsResuming)
	assert.Equal(t, first.AttemptID, second.AttemptID)
	assert.Equal(t, first.AttemptNumber, second.AttemptNumber)
}

func TestStartQuiz_ExpiredAttemptAbandoned(t *testing.T) {
	env := newTestEnv(t)
	_, chapters := env.seedCourse(t, 1, 1)
	env.seedQuiz(t, chapters[0].ID, 5, 60, 0)
	const studentID = 23
	prepareQuizChapter(t, env, chapters[0].ID, studentID)

	first, err := env.attempt.StartQuiz(chapters[0].ID, studentID)
	require.NoError(t, err)

	// 把时钟拨过过期窗口
	env.attempt.now = func() time.Time { return time.Now().Add(3 * time.Hour) }

	second, err := env.attempt.StartQuiz(chapters[0].ID, studentID)
	require.NoError(t, err)
	assert.False(t, second.IsResuming)
	assert.NotEqual(t, first.AttemptID, second.AttemptID)
	assert.Equal(t, 2, second.AttemptNumber)

	// 过期状态要显式落库
	stale, err := env.attempts.FindByID(first.AttemptID)
	require.NoError(t, err)
	assert.Equal(t, model.AttemptStatusAbandoned, stale.Status)
}

func TestAttemptNumberUniquePerStudentChapter(t *testing.T) {
	env := newTestEnv(t)
	_, chapters := env.seedCourse(t, 1, 1)
	const studentID = 70

	require.NoError(t, env.attempts.Create(&model.QuizAttempt{
		ChapterID:     chapters[0].ID,
		StudentID:     studentID,
		AttemptNumber: 1,
		Status:        model.AttemptStatusInProgress,
		StartedAt:     time.Now(),
	}))

	// 并发开始算出同一个序号时，后插入的一方在唯一索引上失败
	err := env.attempts.Create(&model.QuizAttempt{
		ChapterID:     chapters[0].ID,
		StudentID:     studentID,
		AttemptNumber: 1,
		Status:        model.AttemptStatusInProgress,
		StartedAt:     time.Now(),
	})
	require.Error(t, err)
}

func TestStartQuiz_AttemptLimit(t *testing.T) {
	env := newTestEnv(t)
	_, chapters := env.seedCourse(t, 1, 1)
	env.seedQuiz(t, chapters[0].ID, 5, 60, 2)
	const studentID = 24
	prepareQuizChapter(t, env, chapters[0].ID, studentID)

	for i := 0; i < 2; i++ {
		started, err := env.attempt.StartQuiz(chapters[0].ID, studentID)
		require.NoError(t, err)
		// 全部答错，不通过也消耗一次机会
		wrong := make([]int, started.TotalQuestions)
		for j := range wrong {
			wrong[j] = -1
		}
		_, err = env.attempt.SubmitQuiz(started.AttemptID, studentID, wrong)
		require.NoError(t, err)
	}

	_, err := env.attempt.StartQuiz(chapters[0].ID, studentID)
	var limit *util.AttemptLimitError
	require.ErrorAs(t, err, &limit)
	assert.Equal(t, 2, limit.MaxAttempts)
	assert.Equal(t, 2, limit.Used)
}

func TestSubmitQuiz_Scoring(t *testing.T) {
	tests := []struct {
		name      string
		total     int
		correct   int
		wantScore int
		wantPass  bool
	}{
		{"15 of 20 passes", 20, 15, 75, true},
		{"exactly at threshold passes", 20, 12, 60, true},
		{"just below threshold fails", 20, 11, 55, false},
		{"all wrong", 20, 0, 0, false},
		{"all correct", 20, 20, 100, true},
		{"rounding up", 3, 2, 67, true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			env := newTestEnv(t)
			_, chapters := env.seedCourse(t, 1, 1)
			env.seedQuiz(t, chapters[0].ID, tt.total, 60, 0)
			const studentID = 25
			prepareQuizChapter(t, env, chapters[0].ID, studentID)

			started, err := env.attempt.StartQuiz(chapters[0].ID, studentID)
			require.NoError(t, err)

			answers := env.correctAnswers(t, started.AttemptID)
			for i := tt.correct; i < len(answers); i++ {
				answers[i] = model.UnansweredSentinel
			}

			result, err := env.attempt.SubmitQuiz(started.AttemptID, studentID, answers)
			require.NoError(t, err)
			assert.Equal(t, tt.wantScore, result.Score)
			assert.Equal(t, tt.wantPass, result.Passed)
			assert.Equal(t, tt.correct, result.CorrectAnswers)
			assert.Equal(t, tt.total, result.TotalQuestions)
			assert.Equal(t, tt.wantPass, result.CanProceed)
			require.Len(t, result.DetailedResults, tt.total)
		})
	}
}

func TestSubmitQuiz_RepeatReturnsStoredResult(t *testing.T) {
	env := newTestEnv(t)
	_, chapters := env.seedCourse(t, 1, 1)
	env.seedQuiz(t, chapters[0].ID, 4, 60, 0)
	const studentID = 26
	prepareQuizChapter(t, env, chapters[0].ID, studentID)

	started, err := env.attempt.StartQuiz(chapters[0].ID, studentID)
	require.NoError(t, err)

	answers := env.correctAnswers(t, started.AttemptID)
	first, err := env.attempt.SubmitQuiz(started.AttemptID, studentID, answers)
	require.NoError(t, err)

	// 第二次提交不重新评分，返回已存结果
	_, err = env.attempt.SubmitQuiz(started.AttemptID, studentID, []int{0, 0, 0, 0})
	var completed *util.AttemptCompletedError
	require.ErrorAs(t, err, &completed)
	assert.Equal(t, first.Score, completed.Score)
	assert.Equal(t, first.CorrectAnswers, completed.CorrectAnswers)
	assert.Equal(t, first.Passed, completed.Passed)
}

func TestSubmitQuiz_WrongStudent(t *testing.T) {
	env := newTestEnv(t)
	_, chapters := env.seedCourse(t, 1, 1)
	env.seedQuiz(t, chapters[0].ID, 4, 60, 0)
	const studentID = 27
	prepareQuizChapter(t, env, chapters[0].ID, studentID)

	started, err := env.attempt.StartQuiz(chapters[0].ID, studentID)
	require.NoError(t, err)

	_, err = env.attempt.SubmitQuiz(started.AttemptID, 999, []int{0, 0, 0, 0})
	assert.ErrorIs(t, err, util.ErrPermissionDenied)
}

func TestSubmitQuiz_PassUnlocksNextChapter(t *testing.T) {
	env := newTestEnv(t)
	course, chapters := env.seedCourse(t, 1, 2)
	env.seedQuiz(t, chapters[0].ID, 5, 60, 0)
	env.seedQuiz(t, chapters[1].ID, 5, 60, 0)
	const studentID = 28

	env.completeChapter(t, chapters[0].ID, studentID)

	// 章节级进度粘滞
	progress, err := env.progress.Find(chapters[0].ID, studentID)
	require.NoError(t, err)
	require.NotNil(t, progress)
	assert.True(t, progress.QuizPassed)
	assert.True(t, progress.ChapterCompleted)
	require.NotNil(t, progress.QuizPassedAt)
	require.Len(t, progress.QuizAttempts, 1)
	assert.Equal(t, 100, progress.QuizAttempts[0].Score)

	// 课程级缓存推进，第 2 章解锁
	courseProgress, err := env.courses.FindProgress(course.ID, studentID)
	require.NoError(t, err)
	require.NotNil(t, courseProgress)
	assert.True(t, courseProgress.CompletedSet()[1])

	_, err = env.attempt.StartQuiz(chapters[1].ID, studentID)
	assert.ErrorIs(t, err, util.ErrSlidesNotViewed)
}

func TestSubmitQuiz_FailedAttemptDoesNotUnset(t *testing.T) {
	env := newTestEnv(t)
	_, chapters := env.seedCourse(t, 1, 1)
	env.seedQuiz(t, chapters[0].ID, 5, 60, 0)
	const studentID = 29

	env.completeChapter(t, chapters[0].ID, studentID)

	// 通过后再答一次且全错，quizPassed 不回退
	started, err := env.attempt.StartQuiz(chapters[0].ID, studentID)
	require.NoError(t, err)
	wrong := []int{-1, -1, -1, -1, -1}
	result, err := env.attempt.SubmitQuiz(started.AttemptID, studentID, wrong)
	require.NoError(t, err)
	assert.False(t, result.Passed)

	progress, err := env.progress.Find(chapters[0].ID, studentID)
	require.NoError(t, err)
	assert.True(t, progress.QuizPassed)
	assert.True(t, progress.ChapterCompleted)
	assert.Len(t, progress.QuizAttempts, 2)
}

func TestGetResults(t *testing.T) {
	env := newTestEnv(t)
	_, chapters := env.seedCourse(t, 1, 1)
	env.seedQuiz(t, chapters[0].ID, 4, 60, 0)
	const studentID = 30

	results, err := env.attempt.GetResults(chapters[0].ID, studentID)
	require.NoError(t, err)
	assert.Empty(t, results.Attempts)
	assert.False(t, results.Passed)

	env.completeChapter(t, chapters[0].ID, studentID)

	results, err = env.attempt.GetResults(chapters[0].ID, studentID)
	require.NoError(t, err)
	require.Len(t, results.Attempts, 1)
	assert.Equal(t, 100, results.BestScore)
	assert.True(t, results.Passed)
}
