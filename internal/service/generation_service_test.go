package service

import (
	"context"
	"encoding/json"
	"errors"
	"strings"
	"testing"
	"unicode/utf8"

	"github.com/dialashami/RUWWAD-sub001/internal/model"
	"github.com/dialashami/RUWWAD-sub001/internal/util"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// fakeGenerator 固定返回一段文本或错误。
type fakeGenerator struct {
	response string
	err      error
	prompts  []string
}

func (f *fakeGenerator) Generate(_ context.Context, prompt string) (string, error) {
	f.prompts = append(f.prompts, prompt)
	if f.err != nil {
		return "", f.err
	}
	return f.response, nil
}

func generationEnv(t *testing.T, llm TextGenerator) (*testEnv, *GenerationService) {
	env := newTestEnv(t)
	return env, NewGenerationService(env.courses, env.chapters, llm, 20)
}

func llmResponse(count int) string {
	questions := make([]generatedQuestion, count)
	for i := range questions {
		questions[i] = generatedQuestion{
			Question:      "What does the chapter say about topic " + string(rune('A'+i)) + "?",
			Options:       []string{"right", "wrong 1", "wrong 2", "wrong 3"},
			CorrectAnswer: 0,
			Explanation:   "stated in the slides",
			Difficulty:    "easy",
		}
	}
	raw, _ := json.Marshal(questions)
	return string(raw)
}

func TestGenerateQuiz_FromLLM(t *testing.T) {
	llm := &fakeGenerator{response: llmResponse(20)}
	env, generation := generationEnv(t, llm)
	course, chapters := env.seedCourse(t, 1, 1)

	quiz, err := generation.GenerateQuiz(context.Background(), course.TeacherID, chapters[0].ID,
		GenerateQuizRequest{PassingScore: 70, MaxAttempts: 3})
	require.NoError(t, err)

	assert.Equal(t, 70, quiz.PassingScore)
	assert.Equal(t, 3, quiz.MaxAttempts)
	assert.True(t, quiz.IsGenerated)
	require.Len(t, quiz.Questions, 20)

	for _, q := range quiz.Questions {
		opts := q.OptionList()
		require.Len(t, opts, model.QuestionOptionCount)
		require.GreaterOrEqual(t, q.CorrectAnswer, 0)
		require.Less(t, q.CorrectAnswer, model.QuestionOptionCount)
		// 题库边界洗过牌，正确选项仍指向原来的正确文本
		assert.Equal(t, "right", opts[q.CorrectAnswer])
	}

	require.Len(t, llm.prompts, 1)
	assert.Contains(t, llm.prompts[0], "exactly 20 questions")
}

func TestGenerateQuiz_LLMFailureFallsBack(t *testing.T) {
	llm := &fakeGenerator{err: errors.New("quota exceeded")}
	env, generation := generationEnv(t, llm)
	course, chapters := env.seedCourse(t, 1, 1)

	quiz, err := generation.GenerateQuiz(context.Background(), course.TeacherID, chapters[0].ID, GenerateQuizRequest{})
	require.NoError(t, err)

	// 静默降级，数量和形状不受影响
	require.Len(t, quiz.Questions, 20)
	assert.Equal(t, model.DefaultPassingScore, quiz.PassingScore)
	for _, q := range quiz.Questions {
		assert.Len(t, q.OptionList(), model.QuestionOptionCount)
	}
}

func TestGenerateQuiz_NilLLMUsesLocalGenerator(t *testing.T) {
	env, generation := generationEnv(t, nil)
	course, chapters := env.seedCourse(t, 1, 1)

	quiz, err := generation.GenerateQuiz(context.Background(), course.TeacherID, chapters[0].ID, GenerateQuizRequest{})
	require.NoError(t, err)
	require.Len(t, quiz.Questions, 20)
}

func TestGenerateQuiz_ShortContentRejected(t *testing.T) {
	env, generation := generationEnv(t, nil)
	course, chapters := env.seedCourse(t, 1, 1)

	chapter, err := env.chapters.FindByID(chapters[0].ID)
	require.NoError(t, err)
	chapter.SlideContent = "too short"
	require.NoError(t, env.chapters.Update(chapter))

	_, err = generation.GenerateQuiz(context.Background(), course.TeacherID, chapter.ID, GenerateQuizRequest{})
	var short *util.ContentTooShortError
	require.ErrorAs(t, err, &short)
	assert.Equal(t, len("too short"), short.Length)
	assert.Equal(t, MinSlideContentLength, short.Required)
}

func TestGenerateQuiz_ContentLengthCountsRunes(t *testing.T) {
	env, generation := generationEnv(t, nil)
	course, chapters := env.seedCourse(t, 1, 1)

	chapter, err := env.chapters.FindByID(chapters[0].ID)
	require.NoError(t, err)

	// 50 个阿拉伯字符占 100 字节，按字符计仍然不达标
	chapter.SlideContent = strings.Repeat("ب", 50)
	require.NoError(t, env.chapters.Update(chapter))

	_, err = generation.GenerateQuiz(context.Background(), course.TeacherID, chapter.ID, GenerateQuizRequest{})
	var short *util.ContentTooShortError
	require.ErrorAs(t, err, &short)
	assert.Equal(t, 50, short.Length)
	assert.Equal(t, MinSlideContentLength, short.Required)

	// 100 个字符刚好过线
	chapter.SlideContent = strings.Repeat("ب", MinSlideContentLength)
	require.NoError(t, env.chapters.Update(chapter))

	quiz, err := generation.GenerateQuiz(context.Background(), course.TeacherID, chapter.ID, GenerateQuizRequest{})
	require.NoError(t, err)
	require.Len(t, quiz.Questions, 20)
}

func TestGenerateQuiz_OnlyCourseOwner(t *testing.T) {
	env, generation := generationEnv(t, nil)
	_, chapters := env.seedCourse(t, 1, 1)

	_, err := generation.GenerateQuiz(context.Background(), 999, chapters[0].ID, GenerateQuizRequest{})
	assert.ErrorIs(t, err, util.ErrPermissionDenied)
}

func TestGenerateQuiz_ReplacesOldBank(t *testing.T) {
	llm := &fakeGenerator{response: llmResponse(20)}
	env, generation := generationEnv(t, llm)
	course, chapters := env.seedCourse(t, 1, 1)

	first, err := generation.GenerateQuiz(context.Background(), course.TeacherID, chapters[0].ID, GenerateQuizRequest{})
	require.NoError(t, err)

	second, err := generation.GenerateQuiz(context.Background(), course.TeacherID, chapters[0].ID, GenerateQuizRequest{})
	require.NoError(t, err)

	// 重新生成整套替换，旧题不残留
	var count int64
	require.NoError(t, env.db.Model(&model.Question{}).Count(&count).Error)
	assert.EqualValues(t, 20, count)
	assert.NotEqual(t, first.ID, 0)
	_ = second
}

func TestParseGeneratedQuestions(t *testing.T) {
	valid := llmResponse(3)

	tests := []struct {
		name string
		raw  string
		want int
	}{
		{"plain json", valid, 3},
		{"fenced json", "```json\n" + valid + "\n```", 3},
		{"bare fence", "```\n" + valid + "\n```", 3},
		{"garbage", "not json at all", 0},
		{"wrong option count", `[{"question":"q","options":["a","b"],"correctAnswer":0}]`, 0},
		{"answer out of range", `[{"question":"q","options":["a","b","c","d"],"correctAnswer":4}]`, 0},
		{"empty question dropped", `[{"question":"  ","options":["a","b","c","d"],"correctAnswer":1}]`, 0},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Len(t, parseGeneratedQuestions(tt.raw), tt.want)
		})
	}
}

func TestLocalQuestions(t *testing.T) {
	content := strings.Repeat("The water cycle moves water between the oceans and the sky. ", 8)

	questions := localQuestions("science", "The Water Cycle", content, 20)
	require.Len(t, questions, 20)
	for _, q := range questions {
		assert.NotEmpty(t, q.Question)
		require.Len(t, q.Options, model.QuestionOptionCount)
		assert.GreaterOrEqual(t, q.CorrectAnswer, 0)
		assert.Less(t, q.CorrectAnswer, model.QuestionOptionCount)
	}
}

func TestSplitSentences(t *testing.T) {
	// 第三句 22 个字符但超过 30 字节，按字符计要被过滤掉
	content := "Short one. This sentence is comfortably longer than thirty characters total. " +
		"هذه جملة عربية طويلة بما يكفي لتجاوز حد الثلاثين حرفا المطلوب؟ " +
		"قصيرة جدا ولا تكفي هنا. tiny."

	sentences := splitSentences(content)
	require.Len(t, sentences, 2)
	for _, s := range sentences {
		assert.GreaterOrEqual(t, utf8.RuneCountInString(s), 30)
	}
}
