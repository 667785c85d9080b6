// 手动触发测验补齐脚本
//
// 为所有有幻灯片内容但尚未生成测验的章节批量生成题库。适合首次部署
// 或批量导入课程内容后使用；日常由教师在界面上按章节触发。
//
// 用法: go run scripts/backfill_quizzes.go

package main

import (
	"context"
	"log"
	"os"

	"github.com/dialashami/RUWWAD-sub001/internal/config"
	"github.com/dialashami/RUWWAD-sub001/internal/model"
	"github.com/dialashami/RUWWAD-sub001/internal/repository"
	"github.com/dialashami/RUWWAD-sub001/internal/service"
	"github.com/dialashami/RUWWAD-sub001/pkg/database"
	"github.com/dialashami/RUWWAD-sub001/pkg/logger"

	"gopkg.in/yaml.v3"
)

func main() {
	data, err := os.ReadFile("configs/config.yaml")
	if err != nil {
		log.Fatalf("无法读取配置文件: %v", err)
	}

	var cfg config.Config
	if err := yaml.Unmarshal(data, &cfg); err != nil {
		log.Fatalf("解析配置文件失败: %v", err)
	}

	logger.InitLogger(&cfg)

	db, err := database.InitDB(&cfg.Database)
	if err != nil {
		log.Fatalf("数据库连接失败: %v", err)
	}

	courseRepo := repository.NewCourseRepository(db)
	chapterRepo := repository.NewChapterRepository(db)

	var llm service.TextGenerator
	if gemini, err := service.NewGeminiGenerator(cfg.AI); err != nil {
		log.Printf("gemini 客户端不可用，将使用本地出题: %v", err)
	} else {
		llm = gemini
	}
	generation := service.NewGenerationService(courseRepo, chapterRepo, llm, cfg.Quiz.QuestionCount)

	var courses []model.Course
	if err := db.Find(&courses).Error; err != nil {
		log.Fatalf("读取课程失败: %v", err)
	}

	ctx := context.Background()
	generated, skipped := 0, 0
	for _, course := range courses {
		chapters, err := chapterRepo.ListByCourse(course.ID)
		if err != nil {
			log.Printf("课程 %d 章节读取失败: %v", course.ID, err)
			continue
		}
		for _, chapter := range chapters {
			if chapter.Quiz != nil && len(chapter.Quiz.Questions) > 0 {
				skipped++
				continue
			}
			if len(chapter.SlideContent) < service.MinSlideContentLength {
				skipped++
				continue
			}
			_, err := generation.GenerateQuiz(ctx, course.TeacherID, chapter.ID, service.GenerateQuizRequest{})
			if err != nil {
				log.Printf("章节 %d 生成失败: %v", chapter.ID, err)
				continue
			}
			log.Printf("课程 %d 章节 %d 已生成测验", course.ID, chapter.ChapterNumber)
			generated++
		}
	}

	log.Printf("完成: 生成 %d, 跳过 %d", generated, skipped)
}
