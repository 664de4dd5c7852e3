package handlers

import (
	"tamagotree/middleware"
	"tamagotree/services"

	"github.com/gofiber/fiber/v2"
)

// Services bundles everything the routes call into.
type Services struct {
	Profiles     *services.ProfileService
	Trees        *services.TreeService
	Quests       *services.QuestService
	Achievements *services.AchievementService
	Rewards      *services.RewardService
	Leaderboard  *services.LeaderboardService
	Decorations  *services.DecorationService
	Friends      *services.FriendService
	FriendTasks  *services.FriendTaskService
}

type RouteConfig struct {
	JWTSecret    string
	ServiceToken string
}

// SecuredPrefixes are the path prefixes that require a user token. Anything outside them
// and the public or internal groups falls through to fiber's 404.
var SecuredPrefixes = []string{
	"/me", "/profiles", "/quests", "/achievements", "/trees",
	"/decorations", "/placements", "/friends", "/friend-tasks", "/rewards",
}

// Register mounts every route group. Public, internal and stream routes go first so the
// user auth middleware does not run in front of them.
func Register(app *fiber.App, cfg RouteConfig, svc Services) {
	SetupPublicRoutes(app, svc)
	SetupInternalRoutes(app.Group("/internal", middleware.GatewayAuthMiddleware(cfg.ServiceToken)), svc.Quests, svc.Rewards)
	SetupRewardStream(app, middleware.StreamAuthMiddleware(cfg.JWTSecret, svc.Profiles), svc.Rewards)

	app.Use(SecuredPrefixes, middleware.AuthMiddleware(cfg.JWTSecret, svc.Profiles))
	SetupProfileRoutes(app, svc.Profiles)
	SetupProgressionRoutes(app, svc.Quests, svc.Achievements)
	SetupTreeRoutes(app, svc.Trees, svc.Decorations)
	SetupDecorationRoutes(app, svc.Decorations)
	SetupFriendRoutes(app, svc.Friends, svc.FriendTasks)
	SetupRewardRoutes(app, svc.Rewards)
}
