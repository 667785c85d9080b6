package service

import (
	"fmt"
	"strings"
	"testing"
	"time"

	"github.com/dialashami/RUWWAD-sub001/internal/model"
	"github.com/dialashami/RUWWAD-sub001/internal/repository"
	"github.com/dialashami/RUWWAD-sub001/pkg/cache"
	"github.com/dialashami/RUWWAD-sub001/pkg/database"
	"github.com/dialashami/RUWWAD-sub001/pkg/logger"

	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
	"gorm.io/driver/sqlite"
	"gorm.io/gorm"
	gormlogger "gorm.io/gorm/logger"
)

func init() {
	logger.Log = zap.NewNop()
}

func newTestDB(t *testing.T) *gorm.DB {
	t.Helper()
	dsn := fmt.Sprintf("file:%s?mode=memory&cache=shared", strings.ReplaceAll(t.Name(), "/", "_"))
	db, err := gorm.Open(sqlite.Open(dsn), &gorm.Config{
		Logger: gormlogger.Default.LogMode(gormlogger.Silent),
	})
	require.NoError(t, err)
	require.NoError(t, database.Migrate(db))
	return db
}

// testEnv 把仓储和服务按生产 wiring 组起来，缓存换成可控时钟的内存实现。
type testEnv struct {
	db       *gorm.DB
	cache    *cache.MemoryCache
	users    *repository.UserRepository
	courses  *repository.CourseRepository
	chapters *repository.ChapterRepository
	progress *repository.ProgressRepository
	attempts *repository.AttemptRepository

	unlock      *UnlockService
	progressSvc *ProgressService
	attempt     *AttemptService
	chapter     *ChapterService
}

func newTestEnv(t *testing.T) *testEnv {
	t.Helper()
	db := newTestDB(t)
	mem := cache.NewMemoryCache()

	env := &testEnv{
		db:       db,
		cache:    mem,
		users:    repository.NewUserRepository(db),
		courses:  repository.NewCourseRepository(db),
		chapters: repository.NewChapterRepository(db),
		progress: repository.NewProgressRepository(db),
		attempts: repository.NewAttemptRepository(db),
	}
	env.unlock = NewUnlockService(env.courses, env.progress)
	env.progressSvc = NewProgressService(env.chapters, env.progress, env.unlock, mem)
	env.attempt = NewAttemptService(env.courses, env.chapters, env.progress, env.attempts,
		env.unlock, env.progressSvc, mem, 2*time.Hour)
	env.chapter = NewChapterService(env.courses, env.chapters, env.progress, env.attempts,
		env.unlock, mem, 15*time.Second)
	return env
}

func (e *testEnv) seedCourse(t *testing.T, teacherID uint, chapterCount int) (*model.Course, []model.Chapter) {
	t.Helper()
	course := &model.Course{TeacherID: teacherID, Title: "الرياضيات للصف الأول", Subject: "math"}
	require.NoError(t, e.courses.Create(course))

	chapters := make([]model.Chapter, 0, chapterCount)
	for i := 1; i <= chapterCount; i++ {
		ch := model.Chapter{
			CourseID:      course.ID,
			ChapterNumber: i,
			Title:         fmt.Sprintf("Chapter %d", i),
			SlideContent:  strings.Repeat("slide content for the chapter. ", 10),
			SlideCount:    5,
		}
		require.NoError(t, e.chapters.Create(&ch))
		chapters = append(chapters, ch)
	}
	return course, chapters
}

func (e *testEnv) seedQuiz(t *testing.T, chapterID uint, questionCount, passingScore, maxAttempts int) *model.Quiz {
	t.Helper()
	quiz := &model.Quiz{
		ChapterID:    chapterID,
		IsGenerated:  true,
		PassingScore: passingScore,
		MaxAttempts:  maxAttempts,
	}
	for i := 0; i < questionCount; i++ {
		q := model.Question{
			Text:          fmt.Sprintf("Question %d", i+1),
			CorrectAnswer: i % model.QuestionOptionCount,
			Difficulty:    model.QuestionDifficultyMedium,
			Order:         i,
		}
		q.SetOptions([]string{"A", "B", "C", "D"})
		quiz.Questions = append(quiz.Questions, q)
	}
	require.NoError(t, e.chapters.ReplaceQuiz(chapterID, quiz))
	return quiz
}

func (e *testEnv) seedLectures(t *testing.T, chapterID uint, count int) []model.Lecture {
	t.Helper()
	lectures := make([]model.Lecture, 0, count)
	for i := 1; i <= count; i++ {
		l := model.Lecture{
			ChapterID: chapterID,
			Title:     fmt.Sprintf("Lecture %d", i),
			URL:       fmt.Sprintf("https://videos.example.com/%d/%d", chapterID, i),
			Order:     i,
		}
		require.NoError(t, e.chapters.AddLecture(&l))
		lectures = append(lectures, l)
	}
	return lectures
}

// completeChapter 替学生走完一章：看完讲座和幻灯片，作答并全对提交。
func (e *testEnv) completeChapter(t *testing.T, chapterID, studentID uint) {
	t.Helper()
	chapter, err := e.chapters.FindByID(chapterID)
	require.NoError(t, err)

	for _, l := range chapter.Lectures {
		_, err := e.progressSvc.MarkLectureWatched(chapterID, studentID, l.ID)
		require.NoError(t, err)
	}
	if chapter.HasSlides() {
		_, err := e.progressSvc.MarkSlidesViewed(chapterID, studentID)
		require.NoError(t, err)
	}

	started, err := e.attempt.StartQuiz(chapterID, studentID)
	require.NoError(t, err)
	result, err := e.attempt.SubmitQuiz(started.AttemptID, studentID, e.correctAnswers(t, started.AttemptID))
	require.NoError(t, err)
	require.True(t, result.Passed)
}

// correctAnswers 从作答快照里读出每题的正确下标。
func (e *testEnv) correctAnswers(t *testing.T, attemptID string) []int {
	t.Helper()
	attempt, err := e.attempts.FindByID(attemptID)
	require.NoError(t, err)
	questions := attempt.QuestionList()
	answers := make([]int, len(questions))
	for i, q := range questions {
		answers[i] = q.CorrectAnswer
	}
	return answers
}
