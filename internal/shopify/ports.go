package shopify

import "context"

// Структуры повторяют куски payload'ов Shopify, которые реально читаем.

type Customer struct {
	ID    int64  `json:"id"`
	Email string `json:"email"`
}

type OrderLineItem struct {
	ID       int64  `json:"id"`
	Name     string `json:"name"`
	Price    string `json:"price"`
	Quantity int    `json:"quantity"`
}

type Order struct {
	ID                int64           `json:"id"`
	OrderNumber       int             `json:"order_number"`
	FinancialStatus   string          `json:"financial_status"`
	FulfillmentStatus *string         `json:"fulfillment_status"`
	Customer          Customer        `json:"customer"`
	LineItems         []OrderLineItem `json:"line_items"`
}

type ProductVariant struct {
	ID    int64  `json:"id"`
	Title string `json:"title"`
	Price string `json:"price"`
}

type Product struct {
	ID       int64            `json:"id"`
	Title    string           `json:"title"`
	BodyHTML string           `json:"body_html"`
	Variants []ProductVariant `json:"variants"`
}

// OrderFilter — фильтр для orders.json. Пустой Status = "open" на стороне Shopify.
type OrderFilter struct {
	Status string
}

// LineItem — позиция будущего checkout'а (Storefront GID + количество).
type LineItem struct {
	VariantID string `json:"variantId"`
	Quantity  int    `json:"quantity"`
}

// CheckoutResult — либо URL, либо checkoutUserErrors от Storefront API.
type CheckoutResult struct {
	URL        string
	UserErrors []string
}

// Client — всё, что магазин умеет для бота.
type Client interface {
	GetOrders(ctx context.Context, filter OrderFilter) ([]Order, error)
	GetProducts(ctx context.Context) ([]Product, error)
	CreateCheckout(ctx context.Context, items []LineItem) (CheckoutResult, error)
}
