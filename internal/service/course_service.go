package service

import (
	"github.com/dialashami/RUWWAD-sub001/internal/model"
	"github.com/dialashami/RUWWAD-sub001/internal/repository"
	"github.com/dialashami/RUWWAD-sub001/internal/util"
	"github.com/dialashami/RUWWAD-sub001/pkg/logger"

	"go.uber.org/zap"
)

// CourseService 课程与章节的教师侧写路径。
type CourseService struct {
	CourseRepo  *repository.CourseRepository
	ChapterRepo *repository.ChapterRepository
}

func NewCourseService(courseRepo *repository.CourseRepository, chapterRepo *repository.ChapterRepository) *CourseService {
	return &CourseService{CourseRepo: courseRepo, ChapterRepo: chapterRepo}
}

type CreateCourseRequest struct {
	Title       string `json:"title" binding:"required"`
	Subject     string `json:"subject"`
	Description string `json:"description"`
	CoverURL    string `json:"coverUrl"`
	Grade       string `json:"grade"`
}

func (s *CourseService) CreateCourse(teacherID uint, req CreateCourseRequest) (*model.Course, error) {
	course := &model.Course{
		TeacherID:   teacherID,
		Title:       req.Title,
		Subject:     req.Subject,
		Description: req.Description,
		CoverURL:    req.CoverURL,
		Grade:       req.Grade,
	}
	if err := s.CourseRepo.Create(course); err != nil {
		return nil, err
	}
	logger.Log.Info("course created",
		zap.Uint("courseId", course.ID), zap.Uint("teacherId", teacherID))
	return course, nil
}

func (s *CourseService) GetCourse(id uint) (*model.Course, error) {
	course, err := s.CourseRepo.FindByID(id)
	if err != nil {
		return nil, util.ErrCourseNotFound
	}
	return course, nil
}

func (s *CourseService) ListCourses(page, limit int) ([]model.Course, int64, error) {
	if page < 1 {
		page = 1
	}
	if limit < 1 || limit > 100 {
		limit = 20
	}
	return s.CourseRepo.List(page, limit)
}

func (s *CourseService) ListByTeacher(teacherID uint) ([]model.Course, error) {
	return s.CourseRepo.ListByTeacher(teacherID)
}

type LectureInput struct {
	Title    string `json:"title" binding:"required"`
	URL      string `json:"url" binding:"required"`
	Duration int    `json:"duration"`
}

type CreateChapterRequest struct {
	Title        string         `json:"title" binding:"required"`
	Description  string         `json:"description"`
	SlideContent string         `json:"slideContent"`
	SlideCount   int            `json:"slideCount"`
	Lectures     []LectureInput `json:"lectures"`
}

// CreateChapter 追加章节，章节号由课程内当前最大值自动递增，调用方
// 不指定也不能跳号。
func (s *CourseService) CreateChapter(teacherID, courseID uint, req CreateChapterRequest) (*model.Chapter, error) {
	course, err := s.CourseRepo.FindByID(courseID)
	if err != nil {
		return nil, util.ErrCourseNotFound
	}
	if course.TeacherID != teacherID {
		return nil, util.ErrPermissionDenied
	}

	number, err := s.ChapterRepo.NextChapterNumber(courseID)
	if err != nil {
		return nil, err
	}

	chapter := &model.Chapter{
		CourseID:      courseID,
		ChapterNumber: number,
		Title:         req.Title,
		Description:   req.Description,
		SlideContent:  req.SlideContent,
		SlideCount:    req.SlideCount,
	}
	for i, l := range req.Lectures {
		chapter.Lectures = append(chapter.Lectures, model.Lecture{
			Title:    l.Title,
			URL:      l.URL,
			Duration: l.Duration,
			Order:    i + 1,
		})
	}

	if err := s.ChapterRepo.Create(chapter); err != nil {
		return nil, err
	}
	logger.Log.Info("chapter created",
		zap.Uint("courseId", courseID),
		zap.Uint("chapterId", chapter.ID),
		zap.Int("chapterNumber", number))
	return chapter, nil
}

type UpdateChapterRequest struct {
	Title        *string `json:"title"`
	Description  *string `json:"description"`
	SlideContent *string `json:"slideContent"`
	SlideCount   *int    `json:"slideCount"`
}

func (s *CourseService) UpdateChapter(teacherID, chapterID uint, req UpdateChapterRequest) (*model.Chapter, error) {
	chapter, err := s.ownedChapter(teacherID, chapterID)
	if err != nil {
		return nil, err
	}

	if req.Title != nil {
		chapter.Title = *req.Title
	}
	if req.Description != nil {
		chapter.Description = *req.Description
	}
	if req.SlideContent != nil {
		chapter.SlideContent = *req.SlideContent
	}
	if req.SlideCount != nil {
		chapter.SlideCount = *req.SlideCount
	}

	if err := s.ChapterRepo.Update(chapter); err != nil {
		return nil, err
	}
	return chapter, nil
}

// AddLecture 在现有章节末尾追加讲座。
func (s *CourseService) AddLecture(teacherID, chapterID uint, req LectureInput) (*model.Lecture, error) {
	chapter, err := s.ownedChapter(teacherID, chapterID)
	if err != nil {
		return nil, err
	}

	lecture := &model.Lecture{
		ChapterID: chapter.ID,
		Title:     req.Title,
		URL:       req.URL,
		Duration:  req.Duration,
		Order:     len(chapter.Lectures) + 1,
	}
	if err := s.ChapterRepo.AddLecture(lecture); err != nil {
		return nil, err
	}
	return lecture, nil
}

func (s *CourseService) ownedChapter(teacherID, chapterID uint) (*model.Chapter, error) {
	chapter, err := s.ChapterRepo.FindByID(chapterID)
	if err != nil {
		return nil, util.ErrChapterNotFound
	}
	course, err := s.CourseRepo.FindByID(chapter.CourseID)
	if err != nil {
		return nil, util.ErrCourseNotFound
	}
	if course.TeacherID != teacherID {
		return nil, util.ErrPermissionDenied
	}
	return chapter, nil
}
