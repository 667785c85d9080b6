package service

import (
	"testing"
	"time"

	"github.com/dialashami/RUWWAD-sub001/internal/model"
	"github.com/dialashami/RUWWAD-sub001/internal/util"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func studentClaims(id uint) *util.Claims {
	return &util.Claims{UserID: id, Role: model.Student}
}

func teacherClaims(id uint) *util.Claims {
	return &util.Claims{UserID: id, Role: model.Teacher}
}

func TestListChapters_StudentView(t *testing.T) {
	env := newTestEnv(t)
	course, chapters := env.seedCourse(t, 1, 3)
	env.seedQuiz(t, chapters[0].ID, 5, 60, 0)
	const studentID = 50

	list, err := env.chapter.ListChapters(course.ID, studentClaims(studentID))
	require.NoError(t, err)
	views := list.Chapters
	require.Len(t, views, 3)

	assert.False(t, views[0].IsLocked)
	assert.True(t, views[1].IsLocked)
	assert.True(t, views[2].IsLocked)

	// 解锁章节下发课件，测验视图不携带题目
	assert.NotEmpty(t, views[0].SlideContent)
	require.NotNil(t, views[0].Quiz)
	assert.Equal(t, 5, views[0].Quiz.QuestionCount)
	assert.Empty(t, views[0].Quiz.Questions)

	// 锁定章节只露标题和序号
	assert.Empty(t, views[1].SlideContent)
	assert.Nil(t, views[1].Quiz)

	// 还没有任何进度的学生拿到起始进度而不是空
	require.NotNil(t, list.CourseProgress)
	assert.Equal(t, 1, list.CourseProgress.CurrentChapter)
	assert.Empty(t, list.CourseProgress.ChaptersCompleted)
	assert.Equal(t, 0, list.CourseProgress.OverallProgress)
}

func TestListChapters_TeacherSeesAnswers(t *testing.T) {
	env := newTestEnv(t)
	course, chapters := env.seedCourse(t, 7, 1)
	env.seedQuiz(t, chapters[0].ID, 5, 60, 0)

	list, err := env.chapter.ListChapters(course.ID, teacherClaims(7))
	require.NoError(t, err)
	require.Len(t, list.Chapters, 1)

	views := list.Chapters
	assert.False(t, views[0].IsLocked)
	require.NotNil(t, views[0].Quiz)
	require.Len(t, views[0].Quiz.Questions, 5)
	for _, q := range views[0].Quiz.Questions {
		require.NotNil(t, q.CorrectAnswer)
	}

	// 教师没有进度可言
	assert.Nil(t, list.CourseProgress)
}

func TestListChapters_CachedWithinTTL(t *testing.T) {
	env := newTestEnv(t)
	course, chapters := env.seedCourse(t, 1, 2)
	const studentID = 51

	list, err := env.chapter.ListChapters(course.ID, studentClaims(studentID))
	require.NoError(t, err)
	require.Len(t, list.Chapters, 2)

	// 缓存命中期间，新增的章节不反映在列表里
	require.NoError(t, env.chapters.Create(&model.Chapter{
		CourseID: course.ID, ChapterNumber: 3, Title: "Chapter 3",
	}))
	cached, err := env.chapter.ListChapters(course.ID, studentClaims(studentID))
	require.NoError(t, err)
	assert.Len(t, cached.Chapters, 2)
	require.NotNil(t, cached.CourseProgress)

	// TTL 过后重新组装
	env.cache.Now = func() time.Time { return time.Now().Add(16 * time.Second) }
	fresh, err := env.chapter.ListChapters(course.ID, studentClaims(studentID))
	require.NoError(t, err)
	assert.Len(t, fresh.Chapters, 3)

	// 教师路径不走缓存
	_ = chapters
}

func TestListChapters_CacheInvalidatedOnProgress(t *testing.T) {
	env := newTestEnv(t)
	course, chapters := env.seedCourse(t, 1, 2)
	env.seedQuiz(t, chapters[0].ID, 4, 60, 0)
	const studentID = 52

	list, err := env.chapter.ListChapters(course.ID, studentClaims(studentID))
	require.NoError(t, err)
	assert.True(t, list.Chapters[1].IsLocked)

	env.completeChapter(t, chapters[0].ID, studentID)

	// 提交通过使列表缓存失效，第二章立刻显示解锁
	list, err = env.chapter.ListChapters(course.ID, studentClaims(studentID))
	require.NoError(t, err)
	views := list.Chapters
	assert.False(t, views[1].IsLocked)
	require.NotNil(t, views[0].Progress)
	assert.True(t, views[0].Progress.QuizPassed)
	assert.Equal(t, 100, views[0].Progress.BestScore)

	// 课程级进度随列表一起返回，反映第一章已完成
	require.NotNil(t, list.CourseProgress)
	assert.Equal(t, []int{1}, list.CourseProgress.ChaptersCompleted)
	assert.Equal(t, 2, list.CourseProgress.CurrentChapter)
	assert.Equal(t, 50, list.CourseProgress.OverallProgress)
	assert.NotEmpty(t, list.CourseProgress.LastActivityAt)
}

func TestGetChapter_LockedForStudent(t *testing.T) {
	env := newTestEnv(t)
	_, chapters := env.seedCourse(t, 1, 2)
	const studentID = 53

	_, err := env.chapter.GetChapter(chapters[1].ID, studentClaims(studentID))
	var locked *util.ChapterLockedError
	require.ErrorAs(t, err, &locked)
	assert.Equal(t, 2, locked.ChapterNumber)
	assert.Equal(t, 1, locked.RequiredChapter)

	// 同一章节教师不受门控
	view, err := env.chapter.GetChapter(chapters[1].ID, teacherClaims(1))
	require.NoError(t, err)
	assert.False(t, view.IsLocked)
}

func TestGetChapter_AdminBypassesGating(t *testing.T) {
	env := newTestEnv(t)
	_, chapters := env.seedCourse(t, 1, 2)

	admin := &util.Claims{UserID: 99, Role: model.Admin}
	view, err := env.chapter.GetChapter(chapters[1].ID, admin)
	require.NoError(t, err)
	assert.False(t, view.IsLocked)
}

func TestGetChapter_WatchedFlags(t *testing.T) {
	env := newTestEnv(t)
	_, chapters := env.seedCourse(t, 1, 1)
	lectures := env.seedLectures(t, chapters[0].ID, 2)
	const studentID = 54

	_, err := env.progressSvc.MarkLectureWatched(chapters[0].ID, studentID, lectures[0].ID)
	require.NoError(t, err)

	view, err := env.chapter.GetChapter(chapters[0].ID, studentClaims(studentID))
	require.NoError(t, err)
	require.Len(t, view.Lectures, 2)
	assert.True(t, view.Lectures[0].Watched)
	assert.False(t, view.Lectures[1].Watched)
}
