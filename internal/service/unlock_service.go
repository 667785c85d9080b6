package service

import (
	"math"
	"time"

	"github.com/dialashami/RUWWAD-sub001/internal/model"
	"github.com/dialashami/RUWWAD-sub001/internal/repository"
	"github.com/dialashami/RUWWAD-sub001/pkg/logger"

	"go.uber.org/zap"
)

// UnlockService 判定章节对学生是否可进入。课程级 chapters_completed 是
// 冗余缓存，章节级 ChapterProgress.quiz_passed 是事实；两边不一致时以
// 章节级为准，并把发现的事实回写进缓存，而不是只覆盖一次判定结果。
type UnlockService struct {
	CourseRepo   *repository.CourseRepository
	ProgressRepo *repository.ProgressRepository
}

func NewUnlockService(courseRepo *repository.CourseRepository, progressRepo *repository.ProgressRepository) *UnlockService {
	return &UnlockService{
		CourseRepo:   courseRepo,
		ProgressRepo: progressRepo,
	}
}

// ResolveUnlock 纯函数：按章节号序决定每章的解锁状态。所有入口共用这
// 一个实现，回退逻辑不在各接口里重复。返回需要回写进课程级缓存的章节号。
func ResolveUnlock(chapters []model.Chapter, completed map[int]bool, progress map[uint]*model.ChapterProgress) (unlocked map[int]bool, repairs []int) {
	unlocked = make(map[int]bool, len(chapters))

	for i, chapter := range chapters {
		n := chapter.ChapterNumber
		if n == 1 {
			unlocked[n] = true
			continue
		}

		if completed[n-1] {
			unlocked[n] = true
			continue
		}

		// 缓存说没完成时再看前一章自己的记录
		if i > 0 {
			prev := chapters[i-1]
			if p, ok := progress[prev.ID]; ok && p != nil && p.QuizPassed {
				unlocked[n] = true
				repairs = append(repairs, prev.ChapterNumber)
				continue
			}
		}

		unlocked[n] = false
	}
	return unlocked, repairs
}

// ResolveForStudent 读取两级进度、解锁判定、并把回退发现的完成事实
// 持久化回课程级缓存。返回判定结果和按章节索引的学生进度。
func (s *UnlockService) ResolveForStudent(course *model.Course, chapters []model.Chapter, studentID uint) (map[int]bool, map[uint]*model.ChapterProgress, error) {
	courseProgress, err := s.CourseRepo.FindProgress(course.ID, studentID)
	if err != nil {
		return nil, nil, err
	}

	completed := map[int]bool{}
	if courseProgress != nil {
		completed = courseProgress.CompletedSet()
	}

	chapterIDs := make([]uint, len(chapters))
	for i, c := range chapters {
		chapterIDs[i] = c.ID
	}
	chapterProgress, err := s.ProgressRepo.ListByChapters(chapterIDs, studentID)
	if err != nil {
		return nil, nil, err
	}

	unlocked, repairs := ResolveUnlock(chapters, completed, chapterProgress)

	if len(repairs) > 0 {
		if courseProgress == nil {
			courseProgress = &model.CourseProgress{
				CourseID:  course.ID,
				StudentID: studentID,
			}
		}
		set := courseProgress.CompletedSet()
		for _, n := range repairs {
			set[n] = true
		}
		applyCompletionSet(courseProgress, set, len(chapters))

		if err := s.CourseRepo.SaveProgress(courseProgress); err != nil {
			return nil, nil, err
		}
		logger.Log.Info("course progress cache repaired from chapter records",
			zap.Uint("courseId", course.ID),
			zap.Uint("studentId", studentID),
			zap.Ints("chapters", repairs))
	}

	return unlocked, chapterProgress, nil
}

// RecordCompletion 测验通过后把章节号推进课程级缓存。
func (s *UnlockService) RecordCompletion(courseID, studentID uint, chapterNumber, totalChapters int) error {
	courseProgress, err := s.CourseRepo.FindProgress(courseID, studentID)
	if err != nil {
		return err
	}
	if courseProgress == nil {
		courseProgress = &model.CourseProgress{
			CourseID:  courseID,
			StudentID: studentID,
		}
	}

	set := courseProgress.CompletedSet()
	if set[chapterNumber] {
		return nil
	}
	set[chapterNumber] = true
	applyCompletionSet(courseProgress, set, totalChapters)

	return s.CourseRepo.SaveProgress(courseProgress)
}

func applyCompletionSet(progress *model.CourseProgress, set map[int]bool, totalChapters int) {
	progress.SetCompleted(set)

	if totalChapters > 0 {
		progress.OverallProgress = int(math.Round(float64(len(set)) / float64(totalChapters) * 100))
	}

	// current_chapter 指向第一个未完成的章节
	current := 1
	for set[current] {
		current++
	}
	if totalChapters > 0 && current > totalChapters {
		current = totalChapters
	}
	if current > progress.CurrentChapter {
		progress.CurrentChapter = current
	}

	now := time.Now()
	progress.LastActivityAt = &now
}
