package router

import (
	"net/http"

	"github.com/go-chi/chi/v5"

	"storyteller-admin/internal/config"
	"storyteller-admin/internal/handler"
	"storyteller-admin/internal/middleware"
)

type Handlers struct {
	Auth         *handler.AuthHandler
	User         *handler.UserHandler
	Story        *handler.StoryHandler
	Subscription *handler.SubscriptionHandler
	Wallet       *handler.WalletHandler
	Moderation   *handler.ModerationHandler
	SystemConfig *handler.SystemConfigHandler
	Dashboard    *handler.DashboardHandler
	AI           *handler.AIHandler
	CDN          *handler.CDNHandler
	Pipeline     *handler.PipelineHandler
	Page         *handler.PageHandler
	Health       *handler.HealthHandler
}

func New(cfg *config.Config, session *middleware.Session, h Handlers) http.Handler {
	r := chi.NewRouter()
	rateLimitMiddleware := middleware.NewRateLimitMiddleware(cfg.RateLimitRPM, cfg.AuthRateLimitRPM)

	r.Use(middleware.Recovery)
	r.Use(middleware.Logging)
	r.Use(middleware.CORS(cfg.CORSOrigins))
	r.Use(middleware.SecurityHeaders)
	r.Use(rateLimitMiddleware.Handler)
	r.Use(session.Attach)

	r.Get("/health", h.Health.Health)

	r.Group(func(pages chi.Router) {
		pages.Use(middleware.RoleGate)
		pages.Get("/", func(w http.ResponseWriter, r *http.Request) {
			http.Redirect(w, r, middleware.LoginPath, http.StatusFound)
		})
		pages.Get("/*", h.Page.Serve)
	})

	r.Route("/api", func(api chi.Router) {
		// Websocket upgrades need the raw connection, so no timeout wrapper.
		api.With(session.RequirePrincipal).Get("/stories/ai/pipeline/ws", h.Pipeline.Stream)

		api.Group(func(rest chi.Router) {
			rest.Use(middleware.Timeout(cfg.RequestTimeout))

			rest.Route("/auth", func(auth chi.Router) {
				auth.Post("/login", h.Auth.Login)
				auth.Post("/logout", h.Auth.Logout)
				auth.Get("/me", h.Auth.Me)
				auth.Post("/forgot-password", h.Auth.ForgotPassword)
				auth.Post("/reset-password", h.Auth.ResetPassword)
				auth.Post("/verify-token", h.Auth.VerifyToken)
			})

			rest.Get("/users", h.User.List)
			rest.Post("/users", h.User.Create)
			rest.Get("/users/{id}", h.User.Get)
			rest.Put("/users/{id}", h.User.Update)
			rest.Delete("/users/{id}", h.User.Delete)
			rest.Put("/users/{id}/status", h.User.UpdateStatus)
			rest.Get("/notifications", h.User.ListNotifications)
			rest.Post("/notifications", h.User.SendNotification)

			rest.Get("/stories", h.Story.List)
			rest.Post("/stories", h.Story.Create)
			rest.Get("/stories/pending", h.Story.ListPending)
			rest.Post("/stories/pending", h.Story.Review)
			rest.Get("/stories/{id}", h.Story.Get)
			rest.Put("/stories/{id}", h.Story.Update)
			rest.Delete("/stories/{id}", h.Story.Delete)
			rest.Put("/stories/{id}/featured", h.Story.SetFeatured)
			rest.Post("/stories/{id}/publish-request", h.Story.RequestPublish)

			rest.Get("/subscriptions", h.Subscription.List)
			rest.Post("/subscriptions", h.Subscription.Create)
			rest.Get("/subscriptions/{id}", h.Subscription.Get)
			rest.Put("/subscriptions/{id}", h.Subscription.Update)
			rest.Delete("/subscriptions/{id}", h.Subscription.Delete)
			rest.Get("/billing", h.Subscription.BillingHistory)

			rest.Get("/wallet/transactions", h.Wallet.ListTransactions)
			rest.Post("/wallet/transactions", h.Wallet.CreateTransaction)

			rest.Get("/comments", h.Moderation.ListComments)
			rest.Get("/comments/flagged", h.Moderation.ListFlaggedComments)
			rest.Put("/comments/{id}/moderate", h.Moderation.ModerateComment)
			rest.Delete("/comments/{id}", h.Moderation.DeleteComment)
			rest.Get("/issues", h.Moderation.ListIssues)
			rest.Get("/issues/{id}", h.Moderation.GetIssue)
			rest.Put("/issues/{id}/status", h.Moderation.UpdateIssueStatus)

			rest.Get("/system-configs", h.SystemConfig.List)
			rest.Put("/system-configs/{key}", h.SystemConfig.Update)

			rest.Get("/dashboard/summary", h.Dashboard.Summary)

			rest.With(session.RequirePrincipal).Get("/stories/ai/pipeline", h.Pipeline.List)
			rest.With(session.RequirePrincipal).Get("/stories/ai/pipeline/{runID}", h.Pipeline.Get)
		})

		api.Group(func(gen chi.Router) {
			gen.Use(middleware.StreamingTimeout(cfg.AIRequestTimeout, cfg.RequestTimeout))

			gen.Post("/cdn/upload", h.CDN.Upload)
			gen.Post("/stories/ai/optimize", h.AI.Optimize)
			gen.Post("/stories/ai/translation", h.AI.Translate)
			gen.Post("/stories/ai/generate-image", h.AI.GenerateImage)
			gen.Post("/stories/ai/tts", h.AI.TTS)
			gen.Post("/stories/ai/tts-vietnamese", h.AI.TTSVietnamese)
			gen.Post("/stories/ai/tts-long", h.AI.TTSLong)
			gen.With(session.RequirePrincipal).Post("/stories/ai/pipeline", h.Pipeline.Start)
		})
	})

	return r
}
