package service

import (
	"context"
	"encoding/json"
	"fmt"
	"strings"
	"unicode/utf8"

	"github.com/dialashami/RUWWAD-sub001/internal/model"
	"github.com/dialashami/RUWWAD-sub001/internal/repository"
	"github.com/dialashami/RUWWAD-sub001/internal/util"
	"github.com/dialashami/RUWWAD-sub001/pkg/logger"

	"go.uber.org/zap"
)

// MinSlideContentLength 低于该字符数的幻灯片文本不足以出题。按字符计，
// 不按字节，阿拉伯语内容每个字符占两个字节。
const MinSlideContentLength = 100

type GenerationService struct {
	CourseRepo  *repository.CourseRepository
	ChapterRepo *repository.ChapterRepository
	LLM         TextGenerator

	QuestionCount int
}

func NewGenerationService(courseRepo *repository.CourseRepository, chapterRepo *repository.ChapterRepository, llm TextGenerator, questionCount int) *GenerationService {
	if questionCount <= 0 {
		questionCount = 20
	}
	return &GenerationService{
		CourseRepo:    courseRepo,
		ChapterRepo:   chapterRepo,
		LLM:           llm,
		QuestionCount: questionCount,
	}
}

type GenerateQuizRequest struct {
	PassingScore int `json:"passingScore"`
	MaxAttempts  int `json:"maxAttempts"`
	TimeLimit    int `json:"timeLimit"`
}

// generatedQuestion 外部生成路径约定的 JSON 形状
type generatedQuestion struct {
	Question      string   `json:"question"`
	Options       []string `json:"options"`
	CorrectAnswer int      `json:"correctAnswer"`
	Explanation   string   `json:"explanation"`
	Difficulty    string   `json:"difficulty"`
}

// GenerateQuiz 为章节生成题库并整体替换旧题库。只有课程教师可以操作，
// 校验在这里而不是路由层，避免绕过。
func (s *GenerationService) GenerateQuiz(ctx context.Context, teacherID, chapterID uint, req GenerateQuizRequest) (*model.Quiz, error) {
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

	content := strings.TrimSpace(chapter.SlideContent)
	if runes := utf8.RuneCountInString(content); runes < MinSlideContentLength {
		return nil, &util.ContentTooShortError{Length: runes, Required: MinSlideContentLength}
	}

	questions := s.generateQuestions(ctx, course.Subject, chapter.Title, content)

	quiz := &model.Quiz{
		ChapterID:    chapterID,
		IsGenerated:  true,
		PassingScore: req.PassingScore,
		MaxAttempts:  req.MaxAttempts,
		TimeLimit:    req.TimeLimit,
	}
	if quiz.PassingScore <= 0 {
		quiz.PassingScore = model.DefaultPassingScore
	}

	for i, gq := range questions {
		// 题库边界的唯一一次选项洗牌，正确答案不固定在第一位
		opts, correct := util.ShuffleOptions(gq.Options, gq.CorrectAnswer)

		q := model.Question{
			Text:          gq.Question,
			CorrectAnswer: correct,
			Explanation:   gq.Explanation,
			Difficulty:    gq.Difficulty,
			Order:         i + 1,
		}
		if q.Difficulty == "" {
			q.Difficulty = model.QuestionDifficultyMedium
		}
		q.SetOptions(opts)
		quiz.Questions = append(quiz.Questions, q)
	}

	if err := s.ChapterRepo.ReplaceQuiz(chapterID, quiz); err != nil {
		return nil, err
	}

	logger.Log.Info("quiz generated",
		zap.Uint("chapterId", chapterID),
		zap.Int("questions", len(quiz.Questions)))

	return quiz, nil
}

// generateQuestions 先走外部生成，不满纸面要求的静默降级到本地生成器，
// 结果始终恰好 QuestionCount 道合法的四选一题。
func (s *GenerationService) generateQuestions(ctx context.Context, subject, title, content string) []generatedQuestion {
	var questions []generatedQuestion

	if s.LLM != nil {
		raw, err := s.LLM.Generate(ctx, buildQuizPrompt(subject, title, content, s.QuestionCount))
		if err == nil {
			questions = parseGeneratedQuestions(raw)
		} else {
			logger.Log.Warn("external quiz generation failed, using local generator", zap.Error(err))
		}
	}

	if len(questions) > s.QuestionCount {
		questions = questions[:s.QuestionCount]
	}
	if len(questions) < s.QuestionCount {
		questions = append(questions, localQuestions(subject, title, content, s.QuestionCount-len(questions))...)
	}
	return questions
}

func buildQuizPrompt(subject, title, content string, count int) string {
	return fmt.Sprintf(`You are generating a multiple-choice quiz for a school chapter.
Subject: %s
Chapter: %s

Create exactly %d questions from the following slide content. Respond with a
raw JSON array only, no markdown fences, where each element is:
{"question": string, "options": [4 strings], "correctAnswer": 0-3, "explanation": string, "difficulty": "easy"|"medium"|"hard"}

Slide content:
%s`, subject, title, count, content)
}

// parseGeneratedQuestions 解析并校验外部返回，非法条目直接丢弃。
func parseGeneratedQuestions(raw string) []generatedQuestion {
	raw = strings.TrimSpace(raw)
	raw = strings.TrimPrefix(raw, "```json")
	raw = strings.TrimPrefix(raw, "```")
	raw = strings.TrimSuffix(raw, "```")
	raw = strings.TrimSpace(raw)

	var parsed []generatedQuestion
	if err := json.Unmarshal([]byte(raw), &parsed); err != nil {
		logger.Log.Warn("unparseable generation response", zap.Error(err))
		return nil
	}

	valid := parsed[:0]
	for _, q := range parsed {
		if strings.TrimSpace(q.Question) == "" {
			continue
		}
		if len(q.Options) != model.QuestionOptionCount {
			continue
		}
		if q.CorrectAnswer < 0 || q.CorrectAnswer >= model.QuestionOptionCount {
			continue
		}
		valid = append(valid, q)
	}
	return valid
}

// localQuestions 本地降级生成器：从幻灯片文本切句出题，素材不够时用
// 章节级的通用题补齐，保证数量和选项形状。
func localQuestions(subject, title, content string, count int) []generatedQuestion {
	sentences := splitSentences(content)

	questions := make([]generatedQuestion, 0, count)
	for _, sentence := range sentences {
		if len(questions) >= count {
			break
		}
		q, ok := sentenceQuestion(title, sentence)
		if ok {
			questions = append(questions, q)
		}
	}

	for i := 0; len(questions) < count; i++ {
		questions = append(questions, genericQuestion(subject, title, i))
	}
	return questions
}

func splitSentences(content string) []string {
	fields := strings.FieldsFunc(content, func(r rune) bool {
		return r == '.' || r == '!' || r == '?' || r == '\n' || r == '؟' || r == '۔'
	})

	var sentences []string
	for _, f := range fields {
		f = strings.TrimSpace(f)
		if utf8.RuneCountInString(f) >= 30 {
			sentences = append(sentences, f)
		}
	}
	return sentences
}

// sentenceQuestion 真陈述配三个改写过的干扰项。
func sentenceQuestion(title, sentence string) (generatedQuestion, bool) {
	words := strings.Fields(sentence)
	if len(words) < 5 {
		return generatedQuestion{}, false
	}

	distractors := []string{
		"The opposite of what the chapter states: " + flipStatement(sentence),
		"This statement does not appear anywhere in the chapter slides",
		"None of the chapter content supports this claim",
	}

	return generatedQuestion{
		Question:      fmt.Sprintf("According to the slides of \"%s\", which statement is accurate?", title),
		Options:       append([]string{sentence}, distractors...),
		CorrectAnswer: 0,
		Explanation:   "This statement is taken directly from the chapter slides.",
		Difficulty:    model.QuestionDifficultyEasy,
	}, true
}

func flipStatement(sentence string) string {
	lower := strings.ToLower(sentence)
	switch {
	case strings.Contains(lower, " is "):
		return strings.Replace(sentence, " is ", " is not ", 1)
	case strings.Contains(lower, " are "):
		return strings.Replace(sentence, " are ", " are not ", 1)
	case strings.Contains(lower, " can "):
		return strings.Replace(sentence, " can ", " cannot ", 1)
	default:
		return "Not " + sentence
	}
}

func genericQuestion(subject, title string, seq int) generatedQuestion {
	return generatedQuestion{
		Question: fmt.Sprintf("Which subject does the chapter \"%s\" belong to?", title),
		Options: []string{
			subject,
			"General knowledge",
			"An unrelated subject",
			"It is not part of any subject",
		},
		CorrectAnswer: 0,
		Explanation:   fmt.Sprintf("\"%s\" is a chapter of the %s course. (review question %d)", title, subject, seq+1),
		Difficulty:    model.QuestionDifficultyEasy,
	}
}
