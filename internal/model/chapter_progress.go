package model

import (
	"encoding/json"
	"time"
)

// ChapterProgress 学生在单个章节上的进度记录，(chapter_id, student_id) 唯一。
// quiz_passed 和 chapter_completed 一旦为 true 不再回退：后续挂科的重考
// 不会撤销已经拿到的通过。
// swagger:model ChapterProgress
type ChapterProgress struct {
	BaseModel

	ChapterID uint `gorm:"index:idx_chapter_student,unique;not null" json:"chapterId"`
	StudentID uint `gorm:"index:idx_chapter_student,unique;not null" json:"studentId"`

	SlidesViewed   bool       `gorm:"default:false" json:"slidesViewed"`
	SlidesViewedAt *time.Time `json:"slidesViewedAt,omitempty"`

	LecturesWatched      json.RawMessage `gorm:"type:json" json:"lecturesWatched"` // 已观看讲座ID数组，按集合语义维护
	AllLecturesCompleted bool            `gorm:"default:false" json:"allLecturesCompleted"`

	QuizPassed         bool       `gorm:"default:false" json:"quizPassed"`
	QuizPassedAt       *time.Time `json:"quizPassedAt,omitempty"`
	ChapterCompleted   bool       `gorm:"default:false" json:"chapterCompleted"`
	ChapterCompletedAt *time.Time `json:"chapterCompletedAt,omitempty"`

	QuizAttempts []QuizAttemptSummary `gorm:"foreignKey:ProgressID" json:"quizAttempts,omitempty"`
}

func (ChapterProgress) TableName() string {
	return "chapter_progress"
}

// WatchedSet 解码 lectures_watched。
func (p *ChapterProgress) WatchedSet() map[uint]bool {
	set := make(map[uint]bool)
	if len(p.LecturesWatched) == 0 {
		return set
	}
	var ids []uint
	if err := json.Unmarshal(p.LecturesWatched, &ids); err != nil {
		return set
	}
	for _, id := range ids {
		set[id] = true
	}
	return set
}

// MarkWatched 按集合语义追加，重复观看不产生重复标记。
// 返回是否真的新增了条目。
func (p *ChapterProgress) MarkWatched(lectureID uint) bool {
	var ids []uint
	if len(p.LecturesWatched) > 0 {
		_ = json.Unmarshal(p.LecturesWatched, &ids)
	}
	for _, id := range ids {
		if id == lectureID {
			return false
		}
	}
	ids = append(ids, lectureID)
	raw, _ := json.Marshal(ids)
	p.LecturesWatched = raw
	return true
}

// WatchedCount 已观看讲座数量。
func (p *ChapterProgress) WatchedCount() int {
	return len(p.WatchedSet())
}

// QuizAttemptSummary 挂在 ChapterProgress 下的已完成测验小结，按
// attempt_number 递增追加。
// swagger:model QuizAttemptSummary
type QuizAttemptSummary struct {
	BaseModel

	ProgressID     uint      `gorm:"index;not null" json:"-"`
	AttemptNumber  int       `gorm:"not null" json:"attemptNumber"`
	Score          int       `gorm:"not null" json:"score"`
	CorrectAnswers int       `gorm:"not null" json:"correctAnswers"`
	TotalQuestions int       `gorm:"not null" json:"totalQuestions"`
	Passed         bool      `gorm:"default:false" json:"passed"`
	AttemptedAt    time.Time `json:"attemptedAt"`
}

func (QuizAttemptSummary) TableName() string {
	return "quiz_attempt_summaries"
}
