package router

import (
	"net/http"
	"time"

	ratelimit "github.com/JGLTechnologies/gin-rate-limit"
	"github.com/gin-contrib/sessions"
	"github.com/gin-contrib/sessions/cookie"
	"github.com/gin-gonic/gin"
	"github.com/unrolled/secure"
	"go.uber.org/zap"

	"lightdark-study/internal/config"
	"lightdark-study/internal/export"
	"lightdark-study/internal/handlers"
	"lightdark-study/internal/session"
)

func keyFunc(c *gin.Context) string {
	return c.ClientIP()
}

func errorHandler(c *gin.Context, info ratelimit.Info) {
	c.JSON(http.StatusTooManyRequests, gin.H{
		"error":      "Too many session starts. Try again later.",
		"retryAfter": time.Until(info.ResetTime).Round(time.Second).String(),
	})
}

func Setup(log *zap.Logger, serverConf config.ServerConfig, ctrl *session.Controller) *gin.Engine {
	// Set up a new Gin router, add recovery middleware and request logging.
	router := gin.New()
	router.Use(gin.Recovery())
	router.Use(RequestLogger(log))

	secureMiddleware := secure.New(secure.Options{
		FrameDeny:             true,
		ContentTypeNosniff:    true,
		BrowserXssFilter:      true,
		ReferrerPolicy:        "same-origin",
		ContentSecurityPolicy: "default-src 'self'; style-src 'self' 'unsafe-inline'; img-src 'self' data:",
		IsDevelopment:         serverConf.Debug,
	})
	router.Use(func(c *gin.Context) {
		if err := secureMiddleware.Process(c.Writer, c.Request); err != nil {
			c.Abort()
			return
		}
		c.Next()
	})

	store := cookie.NewStore([]byte(serverConf.SessionSecret))
	store.Options(sessions.Options{
		Path:     "/",
		HttpOnly: true,
		Secure:   false, // the study host listens on localhost over plain HTTP
		SameSite: http.SameSiteStrictMode,
		MaxAge:   86400,
	})

	rateLimitStore := ratelimit.InMemoryStore(&ratelimit.InMemoryOptions{
		Rate:  time.Minute,
		Limit: uint(max(serverConf.StartRateLimit, 1)),
	})
	limiter := ratelimit.RateLimiter(rateLimitStore, &ratelimit.Options{
		ErrorHandler: errorHandler,
		KeyFunc:      keyFunc,
	})

	sessionHandler := handlers.NewSessionHandler(log, ctrl)
	calibrationHandler := handlers.NewCalibrationHandler(log, ctrl)
	taskHandler := handlers.NewTaskHandler(log, ctrl)
	exportHandler := handlers.NewExportHandler(log, ctrl)

	api := router.Group("/api")
	api.Use(sessions.Sessions("ldstudy", store))
	api.Use(CSRFProtection())
	{
		api.GET("/session", sessionHandler.Get)
		api.POST("/session/start", limiter, sessionHandler.Start)
		api.POST("/session/reset", sessionHandler.Reset)

		api.GET("/calibration", calibrationHandler.Get)
		api.GET("/calibration/trial", calibrationHandler.Trial)
		api.GET("/calibration/chart", calibrationHandler.Chart)
		api.GET("/tasks/current", taskHandler.Current)

		api.GET("/export/results.csv", exportHandler.Download(export.KindResults))
		api.GET("/export/calibration.csv", exportHandler.Download(export.KindCalibration))
		api.GET("/export/study.json", exportHandler.Download(export.KindJSON))

		bound := api.Group("")
		bound.Use(SessionBinding(log, ctrl))
		{
			bound.POST("/session/next", sessionHandler.Next)
			bound.POST("/session/skip", DebugOnly(ctrl), sessionHandler.Skip)

			bound.POST("/calibration/arm", calibrationHandler.Arm)
			bound.POST("/calibration/fitts", calibrationHandler.RecordFitts)
			bound.POST("/calibration/hicks", calibrationHandler.RecordHicks)
			bound.POST("/calibration/finish", calibrationHandler.Finish)

			bound.POST("/tasks/result", taskHandler.RecordResult)
		}
	}

	// Everything outside /api is the participant UI.
	router.NoRoute(gin.WrapH(http.FileServer(http.Dir(serverConf.AssetsDir))))

	return router
}
