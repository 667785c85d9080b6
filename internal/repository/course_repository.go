package repository

import (
	"errors"

	"github.com/dialashami/RUWWAD-sub001/internal/model"

	"gorm.io/gorm"
)

type CourseRepository struct {
	DB *gorm.DB
}

func NewCourseRepository(db *gorm.DB) *CourseRepository {
	return &CourseRepository{DB: db}
}

func (r *CourseRepository) Create(course *model.Course) error {
	return r.DB.Create(course).Error
}

func (r *CourseRepository) FindByID(id uint) (*model.Course, error) {
	var course model.Course
	err := r.DB.First(&course, id).Error
	if err != nil {
		return nil, err
	}
	return &course, nil
}

func (r *CourseRepository) List(page, limit int) ([]model.Course, int64, error) {
	var total int64
	if err := r.DB.Model(&model.Course{}).Count(&total).Error; err != nil {
		return nil, 0, err
	}

	var courses []model.Course
	query := r.DB.Order("created_at desc")
	if limit > 0 {
		query = query.Offset((page - 1) * limit).Limit(limit)
	}
	err := query.Find(&courses).Error
	return courses, total, err
}

func (r *CourseRepository) ListByTeacher(teacherID uint) ([]model.Course, error) {
	var courses []model.Course
	err := r.DB.Where("teacher_id = ?", teacherID).Order("created_at desc").Find(&courses).Error
	return courses, err
}

// FindProgress 读取学生的课程级进度缓存，不存在时返回 nil 而不是错误。
func (r *CourseRepository) FindProgress(courseID, studentID uint) (*model.CourseProgress, error) {
	var progress model.CourseProgress
	err := r.DB.Where("course_id = ? AND student_id = ?", courseID, studentID).First(&progress).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	return &progress, nil
}

func (r *CourseRepository) SaveProgress(progress *model.CourseProgress) error {
	return r.DB.Save(progress).Error
}
