package repository

import (
	"errors"

	"github.com/dialashami/RUWWAD-sub001/internal/model"

	"gorm.io/gorm"
	"gorm.io/gorm/clause"
)

type AttemptRepository struct {
	DB *gorm.DB
}

func NewAttemptRepository(db *gorm.DB) *AttemptRepository {
	return &AttemptRepository{DB: db}
}

func (r *AttemptRepository) Create(attempt *model.QuizAttempt) error {
	return r.DB.Create(attempt).Error
}

func (r *AttemptRepository) FindByID(id string) (*model.QuizAttempt, error) {
	var attempt model.QuizAttempt
	err := r.DB.First(&attempt, "id = ?", id).Error
	if err != nil {
		return nil, err
	}
	return &attempt, nil
}

func (r *AttemptRepository) Save(attempt *model.QuizAttempt) error {
	return r.DB.Save(attempt).Error
}

// FindInProgress 取学生在该章节上的 in_progress 记录，不存在时返回 nil。
func (r *AttemptRepository) FindInProgress(chapterID, studentID uint) (*model.QuizAttempt, error) {
	var attempt model.QuizAttempt
	err := r.DB.Where("chapter_id = ? AND student_id = ? AND status = ?",
		chapterID, studentID, model.AttemptStatusInProgress).First(&attempt).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	return &attempt, nil
}

// CountCompleted 已提交的作答数，次数上限按它判定。
func (r *AttemptRepository) CountCompleted(chapterID, studentID uint) (int64, error) {
	var count int64
	err := r.DB.Model(&model.QuizAttempt{}).
		Where("chapter_id = ? AND student_id = ? AND status = ?",
			chapterID, studentID, model.AttemptStatusCompleted).
		Count(&count).Error
	return count, err
}

// ListCompleted 作答历史，按 attempt_number 升序。
func (r *AttemptRepository) ListCompleted(chapterID, studentID uint) ([]model.QuizAttempt, error) {
	var attempts []model.QuizAttempt
	err := r.DB.Where("chapter_id = ? AND student_id = ? AND status = ?",
		chapterID, studentID, model.AttemptStatusCompleted).
		Order("attempt_number asc").
		Find(&attempts).Error
	return attempts, err
}

// Transaction 把开始/提交的读改写包进一个事务，回调里的读通过行锁
// 重新校验，并发的重复开始/提交在这里被挡住。
func (r *AttemptRepository) Transaction(fn func(tx *gorm.DB) error) error {
	return r.DB.Transaction(fn)
}

// LockByID 在事务内用 FOR UPDATE 读作答记录。
func (r *AttemptRepository) LockByID(tx *gorm.DB, id string) (*model.QuizAttempt, error) {
	var attempt model.QuizAttempt
	err := tx.Clauses(clause.Locking{Strength: "UPDATE"}).First(&attempt, "id = ?", id).Error
	if err != nil {
		return nil, err
	}
	return &attempt, nil
}

// LockInProgress 在事务内用 FOR UPDATE 读 in_progress 记录。命中时锁行；
// 未命中时靠 InnoDB 对 idx_attempt_student_chapter 的 next-key lock 阻塞并发
// 插入。sqlite 没有这个语义，最终由 idx_attempt_slot 唯一索引兜底：两个并发
// 开始算出同一个 attempt_number，后插入的一方直接失败。
func (r *AttemptRepository) LockInProgress(tx *gorm.DB, chapterID, studentID uint) (*model.QuizAttempt, error) {
	var attempt model.QuizAttempt
	err := tx.Clauses(clause.Locking{Strength: "UPDATE"}).
		Where("chapter_id = ? AND student_id = ? AND status = ?",
			chapterID, studentID, model.AttemptStatusInProgress).
		First(&attempt).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	return &attempt, nil
}
