package handlers

import (
	"github.com/gofiber/fiber/v2"
	"github.com/gofiber/websocket/v2"

	"github.com/Windi-Fikriyansyah/handloom_be/internal/middleware"
	"github.com/Windi-Fikriyansyah/handloom_be/internal/models"
)

// Routes is the full set of handlers behind the api.
type Routes struct {
	JWTSecret string

	Auth       *AuthHandler
	Google     *GoogleOAuthHandler
	Categories *CategoryHandler
	Products   *ProductHandler
	Profile    *ProfileHandler
	Cart       *CartHandler
	Chat       *ChatHandler
	Orders     *OrderHandler
	Dashboard  *DashboardHandler
}

func (r Routes) Mount(app *fiber.App) {
	jwtCookie := middleware.JWTFromCookie(r.JWTSecret)
	locals := middleware.AttachJWTLocals()

	api := app.Group("/api")

	// public
	api.Post("/auth/register", r.Auth.Register)
	api.Post("/auth/login", r.Auth.Login)
	api.Post("/auth/logout", r.Auth.Logout)
	if r.Google != nil {
		api.Get("/auth/google/start", r.Google.GoogleStart)
		api.Get("/auth/google/callback", r.Google.GoogleCallback)
	}
	api.Get("/categories", r.Categories.GetCategories)
	api.Get("/products", r.Products.ListPublic)
	api.Get("/products/:id", r.Products.GetDetail)
	api.Get("/weavers", r.Products.ListWeavers)
	api.Get("/weavers/:id", r.Products.GetWeaver)

	// protected (JWT cookie)
	protected := api.Group("/", jwtCookie, locals)

	protected.Get("/me", r.Auth.Me)
	r.Profile.Routes(protected)

	customer := middleware.RequireRoles(string(models.RoleCustomer))
	weaver := middleware.RequireRoles(string(models.RoleWeaver))

	r.Cart.Routes(protected, customer)
	r.Chat.Routes(protected)

	protected.Get("/customer/dashboard", customer, r.Dashboard.Customer)
	protected.Get("/customer/orders", customer, r.Orders.CustomerOrders)

	protected.Get("/weaver/dashboard", weaver, r.Dashboard.Weaver)
	protected.Get("/weaver/orders", weaver, r.Orders.WeaverOrders)
	protected.Patch("/weaver/orders/:id/status", weaver, r.Orders.UpdateStatus)
	r.Products.Routes(protected, weaver)

	// websocket: same cookie auth as the api
	app.Use("/ws", jwtCookie, locals, func(c *fiber.Ctx) error {
		if websocket.IsWebSocketUpgrade(c) {
			return c.Next()
		}
		return fiber.ErrUpgradeRequired
	})
	app.Get("/ws", websocket.New(r.Chat.WebSocketHandler))
}
