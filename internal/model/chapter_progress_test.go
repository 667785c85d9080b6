package model

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestChapterProgress_MarkWatched(t *testing.T) {
	var p ChapterProgress

	assert.True(t, p.MarkWatched(3))
	assert.False(t, p.MarkWatched(3)) // 重复观看不追加
	assert.True(t, p.MarkWatched(7))

	set := p.WatchedSet()
	assert.Len(t, set, 2)
	assert.True(t, set[3])
	assert.True(t, set[7])
	assert.Equal(t, 2, p.WatchedCount())
}

func TestCourseProgress_CompletedSetRoundTrip(t *testing.T) {
	var p CourseProgress
	assert.Empty(t, p.CompletedSet())

	p.SetCompleted(map[int]bool{3: true, 1: true, 2: true})
	set := p.CompletedSet()
	require.Len(t, set, 3)
	assert.True(t, set[1] && set[2] && set[3])

	// 编码按章节号升序，内容相同则字节相同
	assert.Equal(t, "[1,2,3]", string(p.ChaptersCompleted))
	var q CourseProgress
	q.SetCompleted(map[int]bool{2: true, 3: true, 1: true})
	assert.Equal(t, string(p.ChaptersCompleted), string(q.ChaptersCompleted))
}

func TestQuizAttempt_ExpiredAt(t *testing.T) {
	start := time.Date(2026, 3, 1, 10, 0, 0, 0, time.UTC)
	attempt := QuizAttempt{Status: AttemptStatusInProgress, StartedAt: start}

	assert.False(t, attempt.ExpiredAt(start.Add(time.Hour), 2*time.Hour))
	assert.False(t, attempt.ExpiredAt(start.Add(2*time.Hour), 2*time.Hour)) // 恰好到期不算过期
	assert.True(t, attempt.ExpiredAt(start.Add(2*time.Hour+time.Second), 2*time.Hour))

	attempt.Status = AttemptStatusCompleted
	assert.False(t, attempt.ExpiredAt(start.Add(5*time.Hour), 2*time.Hour))
}
