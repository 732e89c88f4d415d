package whatsapp

import (
	"context"
	"encoding/json"
	"log"
	"strconv"
	"strings"

	"github.com/Vovarama1992/wapp-ai-bridge/internal/ai"
	"github.com/Vovarama1992/wapp-ai-bridge/internal/shopify"
)

const (
	toolDeliveryStatus  = "deliveryStatus"
	toolCatalogProducts = "catalogProducts"
	toolSimilarProducts = "similarProducts"
	toolCreateCheckout  = "createCheckout"
)

// Тексты ошибок уходят ассистенту как output и дальше клиенту, поэтому испанский.
const (
	outNoArguments      = "Error: No se proporcionaron argumentos."
	outToolNotFound     = "Tool not recognized"
	outBadOrderNumber   = "El número de orden proporcionado no es válido."
	outOrderNotFound    = "No se encontró una orden con el número proporcionado."
	outDeliveryFailed   = "No pudimos obtener el estado de tu entrega, por favor intenta más tarde."
	outCatalogFailed    = "No pudimos verificar el catálogo, por favor intenta más tarde."
	outSimilarFailed    = "No pudimos encontrar productos similares, por favor intenta más tarde."
	outCheckoutFailed   = "No pudimos crear el checkout, por favor intenta más tarde."
	outOrderNotFinished = "El usuario aún no ha terminado de ordenar"
	outEmptyCart        = "Error: el carrito está vacío."
	outBadLineItem      = "Error: cada artículo debe incluir variantId y una cantidad mayor a cero."
)

// ToolDispatcher раскладывает пачку tool call'ов по конкретным операциям
// магазина. Любой исход — в том числе кривые аргументы и незнакомое имя —
// превращается в строку output'а: протокол требует ответ на каждый call,
// иначе run зависнет навсегда.
type ToolDispatcher struct {
	shop   shopify.Client
	vision ai.Vision
}

func NewToolDispatcher(shop shopify.Client, vision ai.Vision) *ToolDispatcher {
	return &ToolDispatcher{shop: shop, vision: vision}
}

func (d *ToolDispatcher) Resolve(ctx context.Context, calls []ai.ToolCall) []ai.ToolOutput {
	outputs := make([]ai.ToolOutput, 0, len(calls))

	for _, call := range calls {
		log.Printf("[tools] %s args=%s", call.Name, shortArgs(call.Arguments))
		outputs = append(outputs, ai.ToolOutput{
			CallID: call.ID,
			Output: d.resolve(ctx, call),
		})
	}

	return outputs
}

func (d *ToolDispatcher) resolve(ctx context.Context, call ai.ToolCall) string {
	switch call.Name {
	case toolDeliveryStatus:
		return d.deliveryStatus(ctx, call.Arguments)
	case toolCatalogProducts:
		return d.catalogProducts(ctx)
	case toolSimilarProducts:
		return d.similarProducts(ctx, call.Arguments)
	case toolCreateCheckout:
		return d.createCheckout(ctx, call.Arguments)
	default:
		return outToolNotFound
	}
}

func (d *ToolDispatcher) deliveryStatus(ctx context.Context, rawArgs string) string {
	if rawArgs == "" {
		return outNoArguments
	}

	// ассистент присылает orderNumber то строкой, то числом
	var args struct {
		OrderNumber any `json:"orderNumber"`
	}
	if err := json.Unmarshal([]byte(rawArgs), &args); err != nil {
		log.Println("[tools] deliveryStatus bad args:", err)
		return outNoArguments
	}

	orderNumber, ok := parseOrderNumber(args.OrderNumber)
	if !ok {
		return outBadOrderNumber
	}

	orders, err := d.shop.GetOrders(ctx, shopify.OrderFilter{Status: "any"})
	if err != nil {
		log.Println("[tools] deliveryStatus:", err)
		return outDeliveryFailed
	}

	for _, order := range orders {
		if order.OrderNumber == orderNumber {
			b, err := json.Marshal(map[string]any{
				"Descripción de la orden que corresponde a el número proporcionado: ": order,
			})
			if err != nil {
				return outDeliveryFailed
			}
			return string(b)
		}
	}

	return outOrderNotFound
}

func (d *ToolDispatcher) catalogProducts(ctx context.Context) string {
	products, err := d.shop.GetProducts(ctx)
	if err != nil {
		log.Println("[tools] catalogProducts:", err)
		return outCatalogFailed
	}

	b, err := json.Marshal(products)
	if err != nil {
		return outCatalogFailed
	}
	return string(b)
}

func (d *ToolDispatcher) similarProducts(ctx context.Context, rawArgs string) string {
	if rawArgs == "" {
		return outNoArguments
	}

	var args struct {
		ImageURL string `json:"imageUrl"`
	}
	if err := json.Unmarshal([]byte(rawArgs), &args); err != nil || args.ImageURL == "" {
		return outNoArguments
	}

	description, err := d.vision.DescribeImage(ctx, args.ImageURL)
	if err != nil || description == "" {
		log.Println("[tools] similarProducts describe:", err)
		return outSimilarFailed
	}

	products, err := d.shop.GetProducts(ctx)
	if err != nil {
		log.Println("[tools] similarProducts products:", err)
		return outSimilarFailed
	}

	b, err := json.Marshal(map[string]any{
		"Descripción de la imagen recibida": description,
		"Productos":                         products,
	})
	if err != nil {
		return outSimilarFailed
	}
	return string(b)
}

func (d *ToolDispatcher) createCheckout(ctx context.Context, rawArgs string) string {
	if rawArgs == "" {
		return outNoArguments
	}

	var args struct {
		LineItems           []shopify.LineItem `json:"lineItems"`
		UserFinishedToOrder bool               `json:"userFinishedToOrder"`
	}
	if err := json.Unmarshal([]byte(rawArgs), &args); err != nil {
		log.Println("[tools] createCheckout bad args:", err)
		return outNoArguments
	}

	if !args.UserFinishedToOrder {
		return outOrderNotFinished
	}

	// валидация до любого сетевого вызова: один кривой item валит весь checkout
	if len(args.LineItems) == 0 {
		return outEmptyCart
	}
	for _, item := range args.LineItems {
		if item.VariantID == "" || item.Quantity <= 0 {
			return outBadLineItem
		}
	}

	result, err := d.shop.CreateCheckout(ctx, args.LineItems)
	if err != nil {
		log.Println("[tools] createCheckout:", err)
		return outCheckoutFailed
	}

	if len(result.UserErrors) > 0 {
		return "Error al crear el checkout: " + strings.Join(result.UserErrors, ", ")
	}

	return "Este es el url donde el usuario puede hacer la compra: " + result.URL
}

func parseOrderNumber(v any) (int, bool) {
	switch n := v.(type) {
	case string:
		parsed, err := strconv.Atoi(strings.TrimSpace(n))
		if err != nil {
			return 0, false
		}
		return parsed, true
	case float64:
		return int(n), true
	default:
		return 0, false
	}
}

func shortArgs(s string) string {
	if len(s) > 180 {
		return s[:180] + "..."
	}
	return s
}
