package service

import (
	"context"
	"errors"
	"fmt"

	"github.com/dialashami/RUWWAD-sub001/internal/config"
	"github.com/dialashami/RUWWAD-sub001/pkg/logger"

	"github.com/google/generative-ai-go/genai"
	"go.uber.org/zap"
	"google.golang.org/api/option"
)

// TextGenerator 是测验生成的外部文本生成入口，生成失败由调用方静默
// 降级到本地生成器。
type TextGenerator interface {
	Generate(ctx context.Context, prompt string) (string, error)
}

type GeminiGenerator struct {
	model *genai.GenerativeModel
}

// NewGeminiGenerator 未配置 API key 时返回空 client，调用时直接报错，
// 由生成服务走本地降级路径。
func NewGeminiGenerator(cfg config.AIConfig) (*GeminiGenerator, error) {
	if cfg.APIKey == "" {
		logger.Log.Warn("GEMINI_API_KEY is not set, quiz generation will use the local fallback only")
		return &GeminiGenerator{}, nil
	}

	client, err := genai.NewClient(context.Background(), option.WithAPIKey(cfg.APIKey))
	if err != nil {
		return nil, fmt.Errorf("failed to create gemini client: %w", err)
	}

	name := cfg.Model
	if name == "" {
		name = "gemini-1.5-flash"
	}

	return &GeminiGenerator{model: client.GenerativeModel(name)}, nil
}

func (g *GeminiGenerator) Generate(ctx context.Context, prompt string) (string, error) {
	if g.model == nil {
		return "", errors.New("gemini client not configured")
	}

	resp, err := g.model.GenerateContent(ctx, genai.Text(prompt))
	if err != nil {
		logger.Log.Warn("gemini generation failed", zap.Error(err))
		return "", err
	}

	if len(resp.Candidates) == 0 || resp.Candidates[0].Content == nil {
		return "", errors.New("empty gemini response")
	}

	var out string
	for _, part := range resp.Candidates[0].Content.Parts {
		if text, ok := part.(genai.Text); ok {
			out += string(text)
		}
	}
	if out == "" {
		return "", errors.New("no text parts in gemini response")
	}
	return out, nil
}
