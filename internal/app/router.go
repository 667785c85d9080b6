package app

import (
	"github.com/dialashami/RUWWAD-sub001/docs"
	"github.com/dialashami/RUWWAD-sub001/internal/config"
	"github.com/dialashami/RUWWAD-sub001/internal/middleware"
	"github.com/dialashami/RUWWAD-sub001/internal/model"
	"github.com/dialashami/RUWWAD-sub001/pkg/monitoring"

	"github.com/gin-gonic/gin"
	swaggerFiles "github.com/swaggo/files"
	ginSwagger "github.com/swaggo/gin-swagger"
)

func (a *App) registerRoutes(router *gin.Engine, c *controllers, cfg *config.Config) {
	docs.SwaggerInfo.BasePath = "/api"
	router.GET("/swagger/*any", ginSwagger.WrapHandler(swaggerFiles.Handler, ginSwagger.URL("/swagger/doc.json")))

	router.GET("/metrics", monitoring.PrometheusHandler())

	// 公共路由(无需登录)
	public := router.Group("/api")
	{
		public.GET("/health", c.health.HealthCheck)
		public.POST("/register", c.auth.Register)
		public.POST("/login", c.auth.Login)
	}

	// 需要授权的路由
	authGroup := router.Group("/api")
	authGroup.Use(middleware.AuthMiddleware(cfg))
	{
		authGroup.GET("/me", c.auth.Me)

		// 课程与章节读取，学生视角带解锁门控
		authGroup.GET("/courses", c.course.ListCourses)
		authGroup.GET("/courses/:id", c.course.GetCourse)
		authGroup.GET("/courses/:id/chapters", c.chapter.ListChapters)
		authGroup.GET("/chapters/:id", c.chapter.GetChapter)

		// 学习进度
		authGroup.POST("/chapters/:id/slides/viewed", c.chapter.MarkSlidesViewed)
		authGroup.POST("/chapters/:id/lectures/:lectureId/watched", c.chapter.MarkLectureWatched)

		// 测验作答
		authGroup.POST("/chapters/:id/quiz/start", c.quiz.StartQuiz)
		authGroup.POST("/quiz/attempts/:id/submit", c.quiz.SubmitQuiz)
		authGroup.GET("/chapters/:id/quiz/results", c.quiz.GetResults)

		// 教师相关接口
		teacher := authGroup.Group("/")
		teacher.Use(middleware.RoleMiddleware(model.Teacher))
		{
			teacher.POST("/courses", c.course.CreateCourse)
			teacher.POST("/courses/:id/chapters", c.course.CreateChapter)
			teacher.PUT("/chapters/:id", c.course.UpdateChapter)
			teacher.POST("/chapters/:id/lectures", c.course.AddLecture)
			teacher.POST("/chapters/:id/quiz/generate", c.quiz.GenerateQuiz)
		}
	}
}
