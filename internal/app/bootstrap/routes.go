// internal/app/bootstrap/routes.go
package bootstrap

import (
	"net/http"
	"strings"

	adminsfeature "github.com/combinefoundation/portal/internal/app/features/admins"
	authfeature "github.com/combinefoundation/portal/internal/app/features/authapi"
	categoriesfeature "github.com/combinefoundation/portal/internal/app/features/categoriesapi"
	coursesfeature "github.com/combinefoundation/portal/internal/app/features/coursesapi"
	healthfeature "github.com/combinefoundation/portal/internal/app/features/health"
	idcardfeature "github.com/combinefoundation/portal/internal/app/features/idcard"
	lecturesfeature "github.com/combinefoundation/portal/internal/app/features/lecturesapi"
	logsfeature "github.com/combinefoundation/portal/internal/app/features/logs"
	postsfeature "github.com/combinefoundation/portal/internal/app/features/postsapi"
	reportsfeature "github.com/combinefoundation/portal/internal/app/features/reports"
	tasksfeature "github.com/combinefoundation/portal/internal/app/features/tasksapi"
	trusteesfeature "github.com/combinefoundation/portal/internal/app/features/trustees"
	volunteersfeature "github.com/combinefoundation/portal/internal/app/features/volunteers"
	auditstore "github.com/combinefoundation/portal/internal/app/store/audit"
	categorystore "github.com/combinefoundation/portal/internal/app/store/categories"
	coursestore "github.com/combinefoundation/portal/internal/app/store/courses"
	errorlogstore "github.com/combinefoundation/portal/internal/app/store/errorlog"
	idcardstore "github.com/combinefoundation/portal/internal/app/store/idcards"
	lecturestore "github.com/combinefoundation/portal/internal/app/store/lectures"
	resetstore "github.com/combinefoundation/portal/internal/app/store/passwordreset"
	poststore "github.com/combinefoundation/portal/internal/app/store/posts"
	taskstore "github.com/combinefoundation/portal/internal/app/store/tasks"
	userstore "github.com/combinefoundation/portal/internal/app/store/users"
	"github.com/combinefoundation/portal/internal/app/system/auditlog"
	"github.com/combinefoundation/portal/internal/app/system/auth"
	"github.com/combinefoundation/portal/internal/app/system/errlog"
	"github.com/combinefoundation/portal/internal/app/system/mailer"
	"github.com/combinefoundation/portal/internal/app/system/ratelimit"
	"github.com/combinefoundation/portal/internal/app/system/respond"
	"github.com/combinefoundation/portal/internal/app/system/storage"
	"github.com/dalemusser/waffle/config"
	"github.com/go-chi/chi/v5"
	"github.com/go-chi/cors"
	"go.uber.org/zap"
)

// BuildHandler constructs the root HTTP handler (router) for this WAFFLE app.
//
// WAFFLE calls this after configuration, DB connections, schema setup, and
// any Startup hooks have completed. Everything the feature handlers share
// is wired here once: stores, session manager, rate limiters, the error
// and audit loggers, the mailer, and the image store.
func BuildHandler(coreCfg *config.CoreConfig, appCfg AppConfig, deps DBDeps, logger *zap.Logger) (http.Handler, error) {
	db := deps.MongoDatabase

	// Stores.
	users := userstore.New(db)
	courses := coursestore.New(db)
	posts := poststore.New(db)
	lectures := lecturestore.New(db)
	categories := categorystore.New(db)
	tasks := taskstore.New(db)
	cards := idcardstore.New(db)
	resets := resetstore.New(db)
	audits := auditstore.New(db)
	errlogs := errorlogstore.New(db)

	// Session manager. Secure cookies are enabled in production mode, and
	// the fresh-user fetcher makes deactivations bite on the next request.
	secure := coreCfg.Env == "prod"
	sessionMgr, err := auth.NewSessionManager(appCfg.TokenSecret, appCfg.TokenTTL, appCfg.CookieName, appCfg.CookieDomain, secure, logger)
	if err != nil {
		logger.Error("session manager init failed", zap.Error(err))
		return nil, err
	}
	sessionMgr.SetUserFetcher(users.GetByID)

	// Error logger: rolling file plus the error_logs collection.
	errLog := errlog.New(errlog.FileConfig{
		Path:       appCfg.ErrorLogFile,
		MaxSizeMB:  50,
		MaxBackups: 5,
		MaxAgeDays: 30,
	}, errlogs, logger)

	resp := &respond.Writer{
		ErrLog:      errLog,
		ExposeStack: coreCfg.Env != "prod",
	}

	auditLog := auditlog.New(audits, logger)
	mail := mailer.New(appCfg.SendGridKey, appCfg.MailFromName, appCfg.MailFrom, logger)

	var images storage.ImageStore = storage.Disabled{}
	if appCfg.CloudinaryURL != "" {
		cld, err := storage.NewCloudinary(appCfg.CloudinaryURL, appCfg.CloudinaryFolder, logger)
		if err != nil {
			logger.Error("cloudinary init failed", zap.Error(err))
			return nil, err
		}
		images = cld
	} else {
		logger.Warn("cloudinary_url not set; image uploads disabled")
	}

	logins := ratelimit.NewLoginLimiter(
		appCfg.LoginIPLimit, appCfg.LoginIPWindow,
		appCfg.LoginEmailLimit, appCfg.LoginEmailWindow,
	)
	apiLimiter := ratelimit.New(appCfg.APIRateLimit, appCfg.APIRateWindow)

	loginURL := strings.TrimRight(appCfg.BaseURL, "/") + "/login"
	adminFetch := users.AdminProfile

	r := chi.NewRouter()
	r.Use(resp.Recoverer)
	r.Use(cors.Handler(corsOptions(appCfg)))
	r.Use(sessionMgr.LoadSession)

	// Health check endpoint for load balancers and orchestrators.
	healthHandler := healthfeature.NewHandler(deps.MongoClient, logger)
	r.Get("/health", healthHandler.Serve)

	r.Route("/api/v1", func(api chi.Router) {
		api.Use(ratelimit.Middleware(apiLimiter))

		api.Mount("/auth", authfeature.Routes(&authfeature.Handler{
			Log: logger, Resp: resp, AuditLog: auditLog,
			Sessions: sessionMgr, Users: users, Resets: resets,
			Mail: mail, Images: images, Logins: logins,
			SiteName: appCfg.SiteName, LoginURL: loginURL,
		}))

		api.Mount("/volunteers", volunteersfeature.Routes(&volunteersfeature.Handler{
			Log: logger, Resp: resp, AuditLog: auditLog,
			Users: users, Cards: cards, Images: images, Mail: mail,
			SiteName: appCfg.SiteName, LoginURL: loginURL,
		}, adminFetch))

		api.Mount("/admins", adminsfeature.Routes(&adminsfeature.Handler{
			Log: logger, Resp: resp, AuditLog: auditLog,
			Users: users, Mail: mail,
			SiteName: appCfg.SiteName, LoginURL: loginURL,
		}, adminFetch))

		api.Mount("/trustees", trusteesfeature.Routes(&trusteesfeature.Handler{
			Log: logger, Resp: resp, AuditLog: auditLog,
			Users: users, Mail: mail,
			SiteName: appCfg.SiteName, LoginURL: loginURL,
		}))

		api.Mount("/reports", reportsfeature.Routes(&reportsfeature.Handler{
			Log: logger, Resp: resp,
			Users: users, Courses: courses, Posts: posts,
			Lectures: lectures, Audits: audits,
		}, adminFetch))

		api.Mount("/courses", coursesfeature.Routes(&coursesfeature.Handler{
			Log: logger, Resp: resp, AuditLog: auditLog,
			Courses: courses, Images: images,
		}, adminFetch))

		api.Mount("/posts", postsfeature.Routes(&postsfeature.Handler{
			Log: logger, Resp: resp, AuditLog: auditLog,
			Posts: posts, Images: images,
		}, adminFetch))

		api.Mount("/lectures", lecturesfeature.Routes(&lecturesfeature.Handler{
			Log: logger, Resp: resp, AuditLog: auditLog,
			Lectures: lectures, Images: images,
		}, adminFetch))

		api.Mount("/categories", categoriesfeature.Routes(&categoriesfeature.Handler{
			Log: logger, Resp: resp, AuditLog: auditLog,
			Categories: categories,
		}, adminFetch))

		api.Mount("/tasks", tasksfeature.Routes(&tasksfeature.Handler{
			Log: logger, Resp: resp, Tasks: tasks,
		}))

		api.Mount("/idcards", idcardfeature.Routes(&idcardfeature.Handler{
			Log: logger, Resp: resp, AuditLog: auditLog,
			Cards: cards, Users: users, SiteName: appCfg.SiteName,
		}, adminFetch))

		api.Mount("/logs", logsfeature.Routes(&logsfeature.Handler{
			Log: logger, Resp: resp, AuditLog: auditLog,
			Audits: audits, Errors: errlogs,
		}))
	})

	return r, nil
}

// corsOptions allows the configured origins, or only the base URL when
// none are listed. Credentials stay on so the session cookie flows.
func corsOptions(appCfg AppConfig) cors.Options {
	origins := []string{strings.TrimRight(appCfg.BaseURL, "/")}
	if appCfg.AllowedOrigins != "" {
		origins = origins[:0]
		for _, o := range strings.Split(appCfg.AllowedOrigins, ",") {
			if o = strings.TrimSpace(o); o != "" {
				origins = append(origins, o)
			}
		}
	}
	return cors.Options{
		AllowedOrigins:   origins,
		AllowedMethods:   []string{"GET", "POST", "PUT", "DELETE", "OPTIONS"},
		AllowedHeaders:   []string{"Accept", "Authorization", "Content-Type"},
		AllowCredentials: true,
		MaxAge:           300,
	}
}
