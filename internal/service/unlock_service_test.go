package service

import (
	"testing"

	"github.com/dialashami/RUWWAD-sub001/internal/model"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func chapterFixtures(n int) []model.Chapter {
	chapters := make([]model.Chapter, n)
	for i := range chapters {
		chapters[i].ID = uint(i + 1)
		chapters[i].ChapterNumber = i + 1
	}
	return chapters
}

func TestResolveUnlock(t *testing.T) {
	chapters := chapterFixtures(4)

	tests := []struct {
		name        string
		completed   map[int]bool
		progress    map[uint]*model.ChapterProgress
		wantUnlock  map[int]bool
		wantRepairs []int
	}{
		{
			name:       "first chapter always unlocked",
			completed:  map[int]bool{},
			progress:   map[uint]*model.ChapterProgress{},
			wantUnlock: map[int]bool{1: true, 2: false, 3: false, 4: false},
		},
		{
			name:       "course cache unlocks next chapter",
			completed:  map[int]bool{1: true},
			progress:   map[uint]*model.ChapterProgress{},
			wantUnlock: map[int]bool{1: true, 2: true, 3: false, 4: false},
		},
		{
			name:      "chapter record unlocks when cache is stale",
			completed: map[int]bool{},
			progress: map[uint]*model.ChapterProgress{
				1: {ChapterID: 1, QuizPassed: true},
			},
			wantUnlock:  map[int]bool{1: true, 2: true, 3: false, 4: false},
			wantRepairs: []int{1},
		},
		{
			name:      "cache and records combine",
			completed: map[int]bool{1: true},
			progress: map[uint]*model.ChapterProgress{
				2: {ChapterID: 2, QuizPassed: true},
			},
			wantUnlock:  map[int]bool{1: true, 2: true, 3: true, 4: false},
			wantRepairs: []int{2},
		},
		{
			name:      "quiz not passed does not unlock",
			completed: map[int]bool{},
			progress: map[uint]*model.ChapterProgress{
				1: {ChapterID: 1, QuizPassed: false, SlidesViewed: true},
			},
			wantUnlock: map[int]bool{1: true, 2: false, 3: false, 4: false},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			unlocked, repairs := ResolveUnlock(chapters, tt.completed, tt.progress)
			assert.Equal(t, tt.wantUnlock, unlocked)
			assert.Equal(t, tt.wantRepairs, repairs)
		})
	}
}

func TestResolveForStudent_RepairsCourseCache(t *testing.T) {
	env := newTestEnv(t)
	course, chapters := env.seedCourse(t, 1, 3)
	const studentID = 10

	// 只有章节级记录，课程级缓存为空
	progress, err := env.progress.FindOrCreate(chapters[0].ID, studentID)
	require.NoError(t, err)
	progress.QuizPassed = true
	require.NoError(t, env.progress.Save(progress))

	unlocked, _, err := env.unlock.ResolveForStudent(course, chapters, studentID)
	require.NoError(t, err)
	assert.True(t, unlocked[2])
	assert.False(t, unlocked[3])

	// 回退路径发现的完成事实要落回课程级缓存
	courseProgress, err := env.courses.FindProgress(course.ID, studentID)
	require.NoError(t, err)
	require.NotNil(t, courseProgress)
	assert.True(t, courseProgress.CompletedSet()[1])
	assert.Equal(t, 2, courseProgress.CurrentChapter)
	assert.Equal(t, 33, courseProgress.OverallProgress)
}

func TestRecordCompletion_Idempotent(t *testing.T) {
	env := newTestEnv(t)
	course, _ := env.seedCourse(t, 1, 4)
	const studentID = 11

	require.NoError(t, env.unlock.RecordCompletion(course.ID, studentID, 1, 4))
	require.NoError(t, env.unlock.RecordCompletion(course.ID, studentID, 1, 4))
	require.NoError(t, env.unlock.RecordCompletion(course.ID, studentID, 2, 4))

	progress, err := env.courses.FindProgress(course.ID, studentID)
	require.NoError(t, err)
	require.NotNil(t, progress)

	set := progress.CompletedSet()
	assert.Len(t, set, 2)
	assert.True(t, set[1])
	assert.True(t, set[2])
	assert.Equal(t, 50, progress.OverallProgress)
	assert.Equal(t, 3, progress.CurrentChapter)
}
