package model

import (
	"encoding/json"
	"time"
)

const (
	AttemptStatusInProgress = "in_progress"
	AttemptStatusCompleted  = "completed"
	AttemptStatusAbandoned  = "abandoned"

	// UnansweredSentinel 表示尚未作答的选项值
	UnansweredSentinel = -1
)

// AttemptQuestion 开始答题时从题库复制的题目快照：题目顺序和每题选项
// 顺序都独立重洗过，评分只看快照，不回读题库。
type AttemptQuestion struct {
	QuestionID     uint     `json:"questionId"`
	Text           string   `json:"text"`
	Options        []string `json:"options"`
	CorrectAnswer  int      `json:"correctAnswer"`
	Explanation    string   `json:"explanation,omitempty"`
	Difficulty     string   `json:"difficulty,omitempty"`
	SelectedAnswer int      `json:"selectedAnswer"`
}

// QuizAttempt 一次测验作答。同一 (student, chapter) 同时最多一条未过期的
// in_progress 记录；in_progress → completed 只发生一次。
// swagger:model QuizAttempt
type QuizAttempt struct {
	UUIDBase

	ChapterID uint `gorm:"index:idx_attempt_student_chapter;uniqueIndex:idx_attempt_slot;not null" json:"chapterId"`
	StudentID uint `gorm:"index:idx_attempt_student_chapter;uniqueIndex:idx_attempt_slot;not null" json:"studentId"`

	// AttemptNumber 1-based，按 (student, chapter) 递增。唯一索引保证并发
	// 开始只能有一个事务抢到同一个序号，另一个在插入时失败。
	AttemptNumber int `gorm:"uniqueIndex:idx_attempt_slot;not null" json:"attemptNumber"`
	Status        string `gorm:"size:20;default:'in_progress';index" json:"status"`

	Questions    json.RawMessage `gorm:"type:json" json:"-"` // []AttemptQuestion 快照
	PassingScore int             `gorm:"default:60" json:"passingScore"` // 开始时从题库拷贝
	TimeLimit    int             `gorm:"default:0" json:"timeLimit"`

	StartedAt      time.Time  `json:"startedAt"`
	CompletedAt    *time.Time `json:"completedAt,omitempty"`
	TimeSpent      int        `gorm:"default:0" json:"timeSpent"` // 秒
	Score          int        `gorm:"default:0" json:"score"`
	CorrectAnswers int        `gorm:"default:0" json:"correctAnswers"`
	TotalQuestions int        `gorm:"default:0" json:"totalQuestions"`
	Passed         bool       `gorm:"default:false" json:"passed"`
}

func (QuizAttempt) TableName() string {
	return "quiz_attempts"
}

// QuestionList 解码题目快照。
func (a *QuizAttempt) QuestionList() []AttemptQuestion {
	var qs []AttemptQuestion
	if len(a.Questions) > 0 {
		_ = json.Unmarshal(a.Questions, &qs)
	}
	return qs
}

// SetQuestions 编码题目快照。
func (a *QuizAttempt) SetQuestions(qs []AttemptQuestion) {
	raw, _ := json.Marshal(qs)
	a.Questions = raw
}

// ExpiredAt 判断在参考时刻 now 下，超过 expiry 仍未提交的作答是否视为过期。
func (a *QuizAttempt) ExpiredAt(now time.Time, expiry time.Duration) bool {
	return a.Status == AttemptStatusInProgress && now.Sub(a.StartedAt) > expiry
}
