package http

import (
	"github.com/gofiber/fiber/v2"

	"github.com/guts-yang/estone-api/internal/transport/http/handler"
	"github.com/guts-yang/estone-api/internal/transport/http/middleware"
)

type Handlers struct {
	Auth     *handler.AuthHandler
	User     *handler.UserHandler
	Category *handler.CategoryHandler
	Product  *handler.ProductHandler
	Cart     *handler.CartHandler
	Order    *handler.OrderHandler
}

func RegisterRoutes(app *fiber.App, h *Handlers) {
	authGroup := app.Group("/auth")
	authGroup.Post("/register", h.Auth.Register)
	authGroup.Post("/login", h.Auth.Login)

	// The catalog is readable without a token.
	app.Get("/products", h.Product.List)
	app.Get("/products/:id", h.Product.FindByID)
	app.Get("/categories", h.Category.List)
	app.Get("/categories/:id", h.Category.FindByID)

	api := app.Group("/api", middleware.NewAuthMiddleware())
	api.Get("/me", h.Auth.GetMe)
	api.Put("/me", h.Auth.UpdateMe)
	api.Put("/me/password", h.Auth.ChangePassword)

	cart := api.Group("/cart")
	cart.Get("", h.Cart.GetCart)
	cart.Post("/items", h.Cart.AddItem)
	cart.Put("/items/:id", h.Cart.UpdateItem)
	cart.Delete("/items/:id", h.Cart.RemoveItem)
	cart.Delete("", h.Cart.Clear)

	order := api.Group("/orders")
	order.Post("", h.Order.Place)
	order.Get("", h.Order.List)
	order.Post("/:id/pay", h.Order.Pay)
	order.Post("/:id/cancel", h.Order.Cancel)
	order.Get("/:id", h.Order.Get)

	admin := api.Group("/admin", middleware.NewRequireAdminMiddleware())
	admin.Post("/products", h.Product.Create)
	admin.Put("/products/:id", h.Product.Update)
	admin.Delete("/products/:id", h.Product.Delete)
	admin.Post("/products/:id/images", h.Product.AddImage)
	admin.Delete("/products/:id/images/:imageId", h.Product.DeleteImage)
	admin.Put("/products/:id/images/:imageId/primary", h.Product.SetPrimaryImage)
	admin.Post("/categories", h.Category.Create)
	admin.Put("/categories/:id", h.Category.Update)
	admin.Delete("/categories/:id", h.Category.Delete)
	admin.Patch("/orders/:id/status", h.Order.UpdateStatus)
	admin.Get("/orders/stats", h.Order.Stats)
	admin.Get("/users", h.User.List)
	admin.Get("/users/:id", h.User.Get)
	admin.Patch("/users/:id/status", h.User.UpdateStatus)
}
