package model

import (
	"encoding/json"
	"sort"
	"time"
)

// swagger:model Course
type Course struct {
	BaseModel

	TeacherID   uint   `gorm:"index;not null" json:"teacherId"`
	Title       string `gorm:"size:255;not null" json:"title"`
	Subject     string `gorm:"size:100" json:"subject"`
	Description string `gorm:"type:text" json:"description"`
	CoverURL    string `gorm:"size:255" json:"coverUrl"`
	Grade       string `gorm:"size:50" json:"grade"`

	Chapters []Chapter `gorm:"foreignKey:CourseID" json:"chapters,omitempty"`
}

func (Course) TableName() string {
	return "courses"
}

// CourseProgress 按学生维度缓存课程完成进度。chapters_completed 是
// ChapterProgress 事实的冗余索引，可以落后于章节级记录；解锁判定发现
// 偏差时负责回写（见 service.UnlockService）。
type CourseProgress struct {
	BaseModel

	CourseID          uint            `gorm:"index:idx_course_student,unique;not null" json:"courseId"`
	StudentID         uint            `gorm:"index:idx_course_student,unique;not null" json:"studentId"`
	CurrentChapter    int             `gorm:"default:1" json:"currentChapter"`
	ChaptersCompleted json.RawMessage `gorm:"type:json" json:"chaptersCompleted"` // 已完成章节号数组
	OverallProgress   int             `gorm:"default:0" json:"overallProgress"`   // 百分比
	LastActivityAt    *time.Time      `json:"lastActivityAt,omitempty"`
}

func (CourseProgress) TableName() string {
	return "course_progress"
}

// CompletedSet 解码 chapters_completed。
func (p *CourseProgress) CompletedSet() map[int]bool {
	set := make(map[int]bool)
	if len(p.ChaptersCompleted) == 0 {
		return set
	}
	var nums []int
	if err := json.Unmarshal(p.ChaptersCompleted, &nums); err != nil {
		return set
	}
	for _, n := range nums {
		set[n] = true
	}
	return set
}

// SetCompleted 编码回 chapters_completed，保持升序方便人工排查。
func (p *CourseProgress) SetCompleted(set map[int]bool) {
	nums := make([]int, 0, len(set))
	for n, ok := range set {
		if ok {
			nums = append(nums, n)
		}
	}
	sort.Ints(nums)
	raw, _ := json.Marshal(nums)
	p.ChaptersCompleted = raw
}
