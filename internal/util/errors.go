package util

import (
	"errors"
	"fmt"
)

var (
	ErrUserNotFound     = errors.New("用户不存在")
	ErrEmailRegistered  = errors.New("该邮箱已被注册")
	ErrUnauthorized     = errors.New("unauthorized")
	ErrPermissionDenied = errors.New("permission denied")

	ErrCourseNotFound  = errors.New("course not found")
	ErrChapterNotFound = errors.New("chapter not found")
	ErrAttemptNotFound = errors.New("attempt not found")
	ErrLectureNotFound = errors.New("lecture not found")

	ErrQuizNotGenerated = errors.New("quiz not generated for this chapter")
	ErrSlidesNotViewed  = errors.New("slides must be viewed before starting the quiz")
)

// ChapterLockedError 章节未解锁。RequiredChapter 告诉客户端需要先通过哪一章。
type ChapterLockedError struct {
	ChapterNumber   int
	RequiredChapter int
}

func (e *ChapterLockedError) Error() string {
	return fmt.Sprintf("chapter %d is locked, complete chapter %d first", e.ChapterNumber, e.RequiredChapter)
}

// LecturesIncompleteError 讲座未看完，携带进度数字供客户端展示。
type LecturesIncompleteError struct {
	Watched int
	Total   int
}

func (e *LecturesIncompleteError) Error() string {
	return fmt.Sprintf("watch all lectures before starting the quiz (%d/%d watched)", e.Watched, e.Total)
}

// AttemptLimitError 已用完允许的作答次数。
type AttemptLimitError struct {
	MaxAttempts int
	Used        int
}

func (e *AttemptLimitError) Error() string {
	return fmt.Sprintf("attempt limit reached (%d/%d used)", e.Used, e.MaxAttempts)
}

// AttemptCompletedError 重复提交已完成的作答。携带已算好的结果，提交
// 接口按幂等读返回而不是报毁灭性错误。
type AttemptCompletedError struct {
	Score          int
	CorrectAnswers int
	TotalQuestions int
	Passed         bool
}

func (e *AttemptCompletedError) Error() string {
	return "attempt already completed"
}

// ContentTooShortError 幻灯片文本不足以生成测验。
type ContentTooShortError struct {
	Length   int
	Required int
}

func (e *ContentTooShortError) Error() string {
	return fmt.Sprintf("slide content too short to generate a quiz (%d chars, need at least %d); add more content first", e.Length, e.Required)
}
