package service

import (
	"context"
	"encoding/json"
	"fmt"
	"sort"
	"time"

	"github.com/dialashami/RUWWAD-sub001/internal/model"
	"github.com/dialashami/RUWWAD-sub001/internal/repository"
	"github.com/dialashami/RUWWAD-sub001/internal/util"
	"github.com/dialashami/RUWWAD-sub001/pkg/cache"
	"github.com/dialashami/RUWWAD-sub001/pkg/logger"

	"go.uber.org/zap"
)

// listCacheKey 学生章节列表的缓存键，提交测验或进度变化时失效。
func listCacheKey(courseID, studentID uint) string {
	return fmt.Sprintf("ruwwad:chapters:%d:%d", courseID, studentID)
}

// ChapterService 章节读取门面：组装章节、测验、进度与解锁状态，并按
// 调用者角色裁剪敏感字段（正确答案、解析、他人进度）。
type ChapterService struct {
	CourseRepo   *repository.CourseRepository
	ChapterRepo  *repository.ChapterRepository
	ProgressRepo *repository.ProgressRepository
	AttemptRepo  *repository.AttemptRepository
	Unlock       *UnlockService
	Cache        cache.Cache

	// ListTTL 学生章节列表的缓存时长
	ListTTL time.Duration
}

func NewChapterService(
	courseRepo *repository.CourseRepository,
	chapterRepo *repository.ChapterRepository,
	progressRepo *repository.ProgressRepository,
	attemptRepo *repository.AttemptRepository,
	unlock *UnlockService,
	c cache.Cache,
	listTTL time.Duration,
) *ChapterService {
	if listTTL <= 0 {
		listTTL = 15 * time.Second
	}
	return &ChapterService{
		CourseRepo:   courseRepo,
		ChapterRepo:  chapterRepo,
		ProgressRepo: progressRepo,
		AttemptRepo:  attemptRepo,
		Unlock:       unlock,
		Cache:        c,
		ListTTL:      listTTL,
	}
}

type LectureView struct {
	ID       uint   `json:"id"`
	Title    string `json:"title"`
	VideoURL string `json:"videoUrl"`
	Duration int    `json:"duration"`
	Order    int    `json:"order"`
	Watched  bool   `json:"watched"`
}

type QuestionView struct {
	ID            uint     `json:"id"`
	Text          string   `json:"text"`
	Options       []string `json:"options"`
	CorrectAnswer *int     `json:"correctAnswer,omitempty"` // 仅教师可见
	Explanation   string   `json:"explanation,omitempty"`   // 仅教师可见
	Difficulty    string   `json:"difficulty,omitempty"`
}

type QuizView struct {
	ID            uint           `json:"id"`
	QuestionCount int            `json:"questionCount"`
	PassingScore  int            `json:"passingScore"`
	MaxAttempts   int            `json:"maxAttempts"`
	TimeLimit     int            `json:"timeLimit"`
	AttemptsUsed  int            `json:"attemptsUsed"`
	HasInProgress bool           `json:"hasInProgress"`
	Questions     []QuestionView `json:"questions,omitempty"` // 仅教师可见
}

type ProgressView struct {
	SlidesViewed         bool   `json:"slidesViewed"`
	LecturesWatched      int    `json:"lecturesWatched"`
	AllLecturesCompleted bool   `json:"allLecturesCompleted"`
	QuizPassed           bool   `json:"quizPassed"`
	ChapterCompleted     bool   `json:"chapterCompleted"`
	BestScore            int    `json:"bestScore"`
	QuizPassedAt         string `json:"quizPassedAt,omitempty"`
}

// CourseProgressView 课程级进度，随章节列表一起返回。
type CourseProgressView struct {
	CurrentChapter    int    `json:"currentChapter"`
	ChaptersCompleted []int  `json:"chaptersCompleted"`
	OverallProgress   int    `json:"overallProgress"`
	LastActivityAt    string `json:"lastActivityAt,omitempty"`
}

// ChapterListView 章节列表响应体。教师视角没有进度可言，courseProgress
// 为空。
type ChapterListView struct {
	Chapters       []ChapterView       `json:"chapters"`
	CourseProgress *CourseProgressView `json:"courseProgress,omitempty"`
}

type ChapterView struct {
	ID            uint          `json:"id"`
	ChapterNumber int           `json:"chapterNumber"`
	Title         string        `json:"title"`
	Description   string        `json:"description"`
	SlideCount    int           `json:"slideCount"`
	SlideContent  string        `json:"slideContent,omitempty"`
	IsLocked      bool          `json:"isLocked"`
	Lectures      []LectureView `json:"lectures"`
	Quiz          *QuizView     `json:"quiz,omitempty"`
	Progress      *ProgressView `json:"progress,omitempty"`
}

// ListChapters 返回课程的章节列表和课程级进度。教师看到原始数据（含正确
// 答案），学生视角带解锁状态和自己的进度，并走短 TTL 缓存吸收轮询。
func (s *ChapterService) ListChapters(courseID uint, user *util.Claims) (*ChapterListView, error) {
	course, err := s.CourseRepo.FindByID(courseID)
	if err != nil {
		return nil, util.ErrCourseNotFound
	}

	chapters, err := s.ChapterRepo.ListByCourse(courseID)
	if err != nil {
		return nil, err
	}

	if s.isPrivileged(course, user) {
		views := make([]ChapterView, len(chapters))
		for i := range chapters {
			views[i] = s.teacherView(&chapters[i])
		}
		return &ChapterListView{Chapters: views}, nil
	}

	ctx := context.Background()
	key := listCacheKey(courseID, user.UserID)
	if raw, ok := s.Cache.Get(ctx, key); ok {
		var cached ChapterListView
		if err := json.Unmarshal([]byte(raw), &cached); err == nil && cached.CourseProgress != nil {
			return &cached, nil
		}
		logger.Log.Warn("dropping unreadable chapter list cache entry", zap.String("key", key))
		s.Cache.Delete(ctx, key)
	}

	unlocked, progressByChapter, err := s.Unlock.ResolveForStudent(course, chapters, user.UserID)
	if err != nil {
		return nil, err
	}

	views := make([]ChapterView, len(chapters))
	for i := range chapters {
		views[i], err = s.studentView(&chapters[i], user.UserID,
			unlocked[chapters[i].ChapterNumber], progressByChapter[chapters[i].ID])
		if err != nil {
			return nil, err
		}
	}

	// 再读一次课程级缓存，拿到 ResolveForStudent 回写修复后的版本
	courseProgress, err := s.CourseRepo.FindProgress(courseID, user.UserID)
	if err != nil {
		return nil, err
	}

	list := &ChapterListView{
		Chapters:       views,
		CourseProgress: courseProgressView(courseProgress),
	}

	if raw, err := json.Marshal(list); err == nil {
		s.Cache.Set(ctx, key, string(raw), s.ListTTL)
	}
	return list, nil
}

// courseProgressView 学生还没有任何进度时返回起始值而不是空。
func courseProgressView(p *model.CourseProgress) *CourseProgressView {
	view := &CourseProgressView{
		CurrentChapter:    1,
		ChaptersCompleted: []int{},
	}
	if p == nil {
		return view
	}

	if p.CurrentChapter > 0 {
		view.CurrentChapter = p.CurrentChapter
	}
	set := p.CompletedSet()
	for n := range set {
		view.ChaptersCompleted = append(view.ChaptersCompleted, n)
	}
	sort.Ints(view.ChaptersCompleted)
	view.OverallProgress = p.OverallProgress
	if p.LastActivityAt != nil {
		view.LastActivityAt = p.LastActivityAt.Format(time.RFC3339)
	}
	return view
}

// GetChapter 单章详情。学生访问锁定章节返回 ChapterLockedError，控制层
// 据此回 403 并带 requiredChapter。
func (s *ChapterService) GetChapter(chapterID uint, user *util.Claims) (*ChapterView, error) {
	chapter, err := s.ChapterRepo.FindByID(chapterID)
	if err != nil {
		return nil, util.ErrChapterNotFound
	}

	course, err := s.CourseRepo.FindByID(chapter.CourseID)
	if err != nil {
		return nil, util.ErrCourseNotFound
	}

	if s.isPrivileged(course, user) {
		view := s.teacherView(chapter)
		return &view, nil
	}

	chapters, err := s.ChapterRepo.ListByCourse(course.ID)
	if err != nil {
		return nil, err
	}
	unlocked, progressByChapter, err := s.Unlock.ResolveForStudent(course, chapters, user.UserID)
	if err != nil {
		return nil, err
	}

	if !unlocked[chapter.ChapterNumber] {
		return nil, &util.ChapterLockedError{
			ChapterNumber:   chapter.ChapterNumber,
			RequiredChapter: chapter.ChapterNumber - 1,
		}
	}

	view, err := s.studentView(chapter, user.UserID, true, progressByChapter[chapter.ID])
	if err != nil {
		return nil, err
	}
	return &view, nil
}

// isPrivileged 课程拥有者和管理员不受解锁门控，且可见完整题目。
func (s *ChapterService) isPrivileged(course *model.Course, user *util.Claims) bool {
	if user.Role == model.Admin {
		return true
	}
	return user.Role == model.Teacher && course.TeacherID == user.UserID
}

func (s *ChapterService) teacherView(chapter *model.Chapter) ChapterView {
	view := ChapterView{
		ID:            chapter.ID,
		ChapterNumber: chapter.ChapterNumber,
		Title:         chapter.Title,
		Description:   chapter.Description,
		SlideCount:    chapter.SlideCount,
		SlideContent:  chapter.SlideContent,
		Lectures:      lectureViews(chapter.Lectures, nil),
	}

	if chapter.Quiz != nil {
		quiz := &QuizView{
			ID:            chapter.Quiz.ID,
			QuestionCount: len(chapter.Quiz.Questions),
			PassingScore:  chapter.Quiz.PassingScore,
			MaxAttempts:   chapter.Quiz.MaxAttempts,
			TimeLimit:     chapter.Quiz.TimeLimit,
		}
		for _, q := range chapter.Quiz.Questions {
			correct := q.CorrectAnswer
			quiz.Questions = append(quiz.Questions, QuestionView{
				ID:            q.ID,
				Text:          q.Text,
				Options:       q.OptionList(),
				CorrectAnswer: &correct,
				Explanation:   q.Explanation,
				Difficulty:    q.Difficulty,
			})
		}
		view.Quiz = quiz
	}
	return view
}

func (s *ChapterService) studentView(chapter *model.Chapter, studentID uint, unlocked bool, progress *model.ChapterProgress) (ChapterView, error) {
	view := ChapterView{
		ID:            chapter.ID,
		ChapterNumber: chapter.ChapterNumber,
		Title:         chapter.Title,
		Description:   chapter.Description,
		SlideCount:    chapter.SlideCount,
		IsLocked:      !unlocked,
	}

	if !unlocked {
		// 锁定章节只露标题和序号，课件一概不下发
		view.Lectures = []LectureView{}
		return view, nil
	}

	view.SlideContent = chapter.SlideContent

	var watched map[uint]bool
	if progress != nil {
		watched = progress.WatchedSet()
	}
	view.Lectures = lectureViews(chapter.Lectures, watched)

	if chapter.Quiz != nil {
		completed, err := s.AttemptRepo.CountCompleted(chapter.ID, studentID)
		if err != nil {
			return ChapterView{}, err
		}
		inProgress, err := s.AttemptRepo.FindInProgress(chapter.ID, studentID)
		if err != nil {
			return ChapterView{}, err
		}
		view.Quiz = &QuizView{
			ID:            chapter.Quiz.ID,
			QuestionCount: len(chapter.Quiz.Questions),
			PassingScore:  chapter.Quiz.PassingScore,
			MaxAttempts:   chapter.Quiz.MaxAttempts,
			TimeLimit:     chapter.Quiz.TimeLimit,
			AttemptsUsed:  int(completed),
			HasInProgress: inProgress != nil,
		}
	}

	if progress != nil {
		pv := &ProgressView{
			SlidesViewed:         progress.SlidesViewed,
			LecturesWatched:      progress.WatchedCount(),
			AllLecturesCompleted: progress.AllLecturesCompleted,
			QuizPassed:           progress.QuizPassed,
			ChapterCompleted:     progress.ChapterCompleted,
		}
		for _, a := range progress.QuizAttempts {
			if a.Score > pv.BestScore {
				pv.BestScore = a.Score
			}
		}
		if progress.QuizPassedAt != nil {
			pv.QuizPassedAt = progress.QuizPassedAt.Format(time.RFC3339)
		}
		view.Progress = pv
	}
	return view, nil
}

func lectureViews(lectures []model.Lecture, watched map[uint]bool) []LectureView {
	views := make([]LectureView, len(lectures))
	for i, l := range lectures {
		views[i] = LectureView{
			ID:       l.ID,
			Title:    l.Title,
			VideoURL: l.URL,
			Duration: l.Duration,
			Order:    l.Order,
			Watched:  watched[l.ID],
		}
	}
	return views
}
