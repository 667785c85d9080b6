package repository

import (
	"errors"

	"github.com/dialashami/RUWWAD-sub001/internal/model"

	"gorm.io/gorm"
)

type ChapterRepository struct {
	DB *gorm.DB
}

func NewChapterRepository(db *gorm.DB) *ChapterRepository {
	return &ChapterRepository{DB: db}
}

func (r *ChapterRepository) Create(chapter *model.Chapter) error {
	return r.DB.Create(chapter).Error
}

func (r *ChapterRepository) Update(chapter *model.Chapter) error {
	return r.DB.Save(chapter).Error
}

func (r *ChapterRepository) FindByID(id uint) (*model.Chapter, error) {
	var chapter model.Chapter
	err := r.DB.Preload("Lectures", func(db *gorm.DB) *gorm.DB {
		return db.Order("lectures.`order` asc")
	}).Preload("Quiz.Questions", func(db *gorm.DB) *gorm.DB {
		return db.Order("questions.`order` asc")
	}).Preload("Quiz").First(&chapter, id).Error
	if err != nil {
		return nil, err
	}
	return &chapter, nil
}

// ListByCourse 按章节号升序取整门课的章节，连同讲座和题库一次取全，
// 解锁判定用列表里的前一章而不是再查一次。
func (r *ChapterRepository) ListByCourse(courseID uint) ([]model.Chapter, error) {
	var chapters []model.Chapter
	err := r.DB.Where("course_id = ?", courseID).
		Preload("Lectures", func(db *gorm.DB) *gorm.DB {
			return db.Order("lectures.`order` asc")
		}).
		Preload("Quiz.Questions", func(db *gorm.DB) *gorm.DB {
			return db.Order("questions.`order` asc")
		}).
		Preload("Quiz").
		Order("chapter_number asc").
		Find(&chapters).Error
	return chapters, err
}

func (r *ChapterRepository) NextChapterNumber(courseID uint) (int, error) {
	var max int
	err := r.DB.Model(&model.Chapter{}).Where("course_id = ?", courseID).
		Select("COALESCE(MAX(chapter_number), 0)").Scan(&max).Error
	return max + 1, err
}

func (r *ChapterRepository) AddLecture(lecture *model.Lecture) error {
	return r.DB.Create(lecture).Error
}

// FindQuiz 取章节题库，不存在时返回 nil。
func (r *ChapterRepository) FindQuiz(chapterID uint) (*model.Quiz, error) {
	var quiz model.Quiz
	err := r.DB.Where("chapter_id = ?", chapterID).
		Preload("Questions", func(db *gorm.DB) *gorm.DB {
			return db.Order("questions.`order` asc")
		}).
		First(&quiz).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	return &quiz, nil
}

// ReplaceQuiz 整体替换章节题库：重新生成等于替换，不做合并。
func (r *ChapterRepository) ReplaceQuiz(chapterID uint, quiz *model.Quiz) error {
	return r.DB.Transaction(func(tx *gorm.DB) error {
		var old model.Quiz
		err := tx.Where("chapter_id = ?", chapterID).First(&old).Error
		if err == nil {
			if err := tx.Where("quiz_id = ?", old.ID).Unscoped().Delete(&model.Question{}).Error; err != nil {
				return err
			}
			if err := tx.Unscoped().Delete(&old).Error; err != nil {
				return err
			}
		} else if !errors.Is(err, gorm.ErrRecordNotFound) {
			return err
		}

		quiz.ChapterID = chapterID
		return tx.Create(quiz).Error
	})
}
