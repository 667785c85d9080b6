package service

import (
	"context"
	"time"

	"github.com/dialashami/RUWWAD-sub001/internal/model"
	"github.com/dialashami/RUWWAD-sub001/internal/repository"
	"github.com/dialashami/RUWWAD-sub001/internal/util"
	"github.com/dialashami/RUWWAD-sub001/pkg/cache"
)

// ProgressService 维护学生的章节级进度：幻灯片、讲座、测验小结和完成
// 标记。所有写入都会让该学生的章节列表缓存失效。
type ProgressService struct {
	ChapterRepo  *repository.ChapterRepository
	ProgressRepo *repository.ProgressRepository
	Unlock       *UnlockService
	Cache        cache.Cache
}

func NewProgressService(chapterRepo *repository.ChapterRepository, progressRepo *repository.ProgressRepository, unlock *UnlockService, c cache.Cache) *ProgressService {
	return &ProgressService{
		ChapterRepo:  chapterRepo,
		ProgressRepo: progressRepo,
		Unlock:       unlock,
		Cache:        c,
	}
}

// MarkSlidesViewed 幂等：重复上报不改变已有时间戳。
func (s *ProgressService) MarkSlidesViewed(chapterID, studentID uint) (*model.ChapterProgress, error) {
	chapter, err := s.ChapterRepo.FindByID(chapterID)
	if err != nil {
		return nil, util.ErrChapterNotFound
	}

	progress, err := s.ProgressRepo.FindOrCreate(chapterID, studentID)
	if err != nil {
		return nil, err
	}

	if !progress.SlidesViewed {
		now := time.Now()
		progress.SlidesViewed = true
		progress.SlidesViewedAt = &now
		if err := s.ProgressRepo.Save(progress); err != nil {
			return nil, err
		}
		s.invalidateList(chapter.CourseID, studentID)
	}

	return progress, nil
}

// MarkLectureWatched 按集合语义记录观看，重复观看不产生第二条标记。
// all_lectures_completed 一旦为 true 不再回退，教师事后补充讲座不会把
// 已完成的学生重新锁回去。
func (s *ProgressService) MarkLectureWatched(chapterID, studentID, lectureID uint) (*model.ChapterProgress, error) {
	chapter, err := s.ChapterRepo.FindByID(chapterID)
	if err != nil {
		return nil, util.ErrChapterNotFound
	}

	found := false
	for _, lecture := range chapter.Lectures {
		if lecture.ID == lectureID {
			found = true
			break
		}
	}
	if !found {
		return nil, util.ErrLectureNotFound
	}

	progress, err := s.ProgressRepo.FindOrCreate(chapterID, studentID)
	if err != nil {
		return nil, err
	}

	changed := progress.MarkWatched(lectureID)

	if !progress.AllLecturesCompleted && progress.WatchedCount() >= len(chapter.Lectures) {
		progress.AllLecturesCompleted = true
		changed = true
	}

	if changed {
		if err := s.ProgressRepo.Save(progress); err != nil {
			return nil, err
		}
		s.invalidateList(chapter.CourseID, studentID)
	}

	return progress, nil
}

// ApplyQuizResult 提交评分后的下游更新：追加作答小结；首个通过把
// quiz_passed / chapter_completed 置位（粘滞，后续挂科不清除），并推进
// 课程级缓存。
func (s *ProgressService) ApplyQuizResult(chapter *model.Chapter, totalChapters int, attempt *model.QuizAttempt) error {
	progress, err := s.ProgressRepo.FindOrCreate(chapter.ID, attempt.StudentID)
	if err != nil {
		return err
	}

	summary := &model.QuizAttemptSummary{
		ProgressID:     progress.ID,
		AttemptNumber:  attempt.AttemptNumber,
		Score:          attempt.Score,
		CorrectAnswers: attempt.CorrectAnswers,
		TotalQuestions: attempt.TotalQuestions,
		Passed:         attempt.Passed,
		AttemptedAt:    attempt.StartedAt,
	}
	if err := s.ProgressRepo.AppendAttemptSummary(summary); err != nil {
		return err
	}

	if attempt.Passed && !progress.QuizPassed {
		now := time.Now()
		progress.QuizPassed = true
		progress.QuizPassedAt = &now
		progress.ChapterCompleted = true
		progress.ChapterCompletedAt = &now
		if err := s.ProgressRepo.Save(progress); err != nil {
			return err
		}

		if err := s.Unlock.RecordCompletion(chapter.CourseID, attempt.StudentID, chapter.ChapterNumber, totalChapters); err != nil {
			return err
		}
	}

	s.invalidateList(chapter.CourseID, attempt.StudentID)
	return nil
}

func (s *ProgressService) invalidateList(courseID, studentID uint) {
	if s.Cache != nil {
		s.Cache.Delete(context.Background(), listCacheKey(courseID, studentID))
	}
}
