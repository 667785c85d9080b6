package model

// swagger:model Chapter
type Chapter struct {
	BaseModel

	CourseID      uint   `gorm:"index:idx_course_chapter,unique;not null" json:"courseId"`
	ChapterNumber int    `gorm:"index:idx_course_chapter,unique;not null" json:"chapterNumber"` // 1-based，课程内唯一
	Title         string `gorm:"size:255;not null" json:"title"`
	Description   string `gorm:"type:text" json:"description"`
	SlideContent  string `gorm:"type:text" json:"slideContent"` // 幻灯片提取文本，测验生成的素材
	SlideCount    int    `gorm:"default:0" json:"slideCount"`

	Lectures []Lecture `gorm:"foreignKey:ChapterID" json:"lectures,omitempty"`
	Quiz     *Quiz     `gorm:"foreignKey:ChapterID" json:"quiz,omitempty"`

	Progress []ChapterProgress `gorm:"foreignKey:ChapterID" json:"studentProgress,omitempty"`
}

func (Chapter) TableName() string {
	return "chapters"
}

// HasSlides 有无幻灯片内容，打开测验前的前置条件之一
func (c *Chapter) HasSlides() bool {
	return c.SlideCount > 0 || c.SlideContent != ""
}

// swagger:model Lecture
type Lecture struct {
	BaseModel

	ChapterID uint   `gorm:"index;not null" json:"chapterId"`
	Title     string `gorm:"size:255" json:"title"`
	URL       string `gorm:"size:512" json:"url"`
	Duration  int    `gorm:"default:0" json:"duration"` // 秒
	Order     int    `gorm:"default:0" json:"order"`
}

func (Lecture) TableName() string {
	return "lectures"
}
