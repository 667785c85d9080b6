package model

import "encoding/json"

const (
	QuestionOptionCount  = 4
	DefaultPassingScore  = 60
	QuestionDifficultyEasy   = "easy"
	QuestionDifficultyMedium = "medium"
	QuestionDifficultyHard   = "hard"
)

// Quiz 每章一份题库，由教师生成或手工录入，学生侧只读。
// swagger:model Quiz
type Quiz struct {
	BaseModel

	ChapterID    uint `gorm:"uniqueIndex;not null" json:"chapterId"`
	IsGenerated  bool `gorm:"default:false" json:"isGenerated"`
	PassingScore int  `gorm:"default:60" json:"passingScore"` // 百分比阈值，达到即通过
	MaxAttempts  int  `gorm:"default:0" json:"maxAttempts"`   // 0 表示不限次数
	TimeLimit    int  `gorm:"default:0" json:"timeLimit"`     // 分钟，0 表示不限时

	Questions []Question `gorm:"foreignKey:QuizID" json:"questions,omitempty"`
}

func (Quiz) TableName() string {
	return "quizzes"
}

// swagger:model Question
type Question struct {
	BaseModel

	QuizID        uint            `gorm:"index;not null" json:"quizId"`
	Text          string          `gorm:"type:text;not null" json:"text"`
	Options       json.RawMessage `gorm:"type:json" json:"options"` // 固定 4 个选项
	CorrectAnswer int             `gorm:"not null" json:"correctAnswer"`
	Explanation   string          `gorm:"type:text" json:"explanation"`
	Difficulty    string          `gorm:"size:20;default:'medium'" json:"difficulty"`
	Order         int             `gorm:"default:0" json:"order"`
}

func (Question) TableName() string {
	return "questions"
}

// OptionList 解码选项数组。
func (q *Question) OptionList() []string {
	var opts []string
	if len(q.Options) > 0 {
		_ = json.Unmarshal(q.Options, &opts)
	}
	return opts
}

// SetOptions 编码选项数组。
func (q *Question) SetOptions(opts []string) {
	raw, _ := json.Marshal(opts)
	q.Options = raw
}
