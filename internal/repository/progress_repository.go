package repository

import (
	"errors"

	"github.com/dialashami/RUWWAD-sub001/internal/model"

	"gorm.io/gorm"
)

type ProgressRepository struct {
	DB *gorm.DB
}

func NewProgressRepository(db *gorm.DB) *ProgressRepository {
	return &ProgressRepository{DB: db}
}

// Find 读取学生在某章节上的进度，不存在时返回 nil。
func (r *ProgressRepository) Find(chapterID, studentID uint) (*model.ChapterProgress, error) {
	var progress model.ChapterProgress
	err := r.DB.Where("chapter_id = ? AND student_id = ?", chapterID, studentID).
		Preload("QuizAttempts", func(db *gorm.DB) *gorm.DB {
			return db.Order("attempt_number asc")
		}).
		First(&progress).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	return &progress, nil
}

// FindOrCreate 首次交互时建立进度记录。
func (r *ProgressRepository) FindOrCreate(chapterID, studentID uint) (*model.ChapterProgress, error) {
	progress, err := r.Find(chapterID, studentID)
	if err != nil {
		return nil, err
	}
	if progress != nil {
		return progress, nil
	}

	progress = &model.ChapterProgress{
		ChapterID: chapterID,
		StudentID: studentID,
	}
	if err := r.DB.Create(progress).Error; err != nil {
		return nil, err
	}
	return progress, nil
}

func (r *ProgressRepository) Save(progress *model.ChapterProgress) error {
	return r.DB.Save(progress).Error
}

// ListByChapters 一次取回学生在一组章节上的所有进度记录，章节列表接口用。
func (r *ProgressRepository) ListByChapters(chapterIDs []uint, studentID uint) (map[uint]*model.ChapterProgress, error) {
	var rows []model.ChapterProgress
	err := r.DB.Where("chapter_id IN ? AND student_id = ?", chapterIDs, studentID).
		Preload("QuizAttempts", func(db *gorm.DB) *gorm.DB {
			return db.Order("attempt_number asc")
		}).
		Find(&rows).Error
	if err != nil {
		return nil, err
	}

	byChapter := make(map[uint]*model.ChapterProgress, len(rows))
	for i := range rows {
		byChapter[rows[i].ChapterID] = &rows[i]
	}
	return byChapter, nil
}

func (r *ProgressRepository) AppendAttemptSummary(summary *model.QuizAttemptSummary) error {
	return r.DB.Create(summary).Error
}
