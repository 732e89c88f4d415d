package shopify

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"io"
	"log"
	"net/http"
	"net/url"
	"os"
	"strings"
	"time"
)

const (
	adminAPIVersion      = "2023-01"
	storefrontAPIVersion = "2023-07"
)

type ShopifyClient struct {
	storeDomain     string
	adminToken      string
	storefrontToken string
	client          *http.Client

	// перекрывается в тестах
	baseURL string
}

func NewShopifyClient() *ShopifyClient {
	domain := strings.TrimSpace(os.Getenv("SHOPIFY_STORE_DOMAIN"))
	if domain == "" {
		panic("SHOPIFY_STORE_DOMAIN not set")
	}

	adminToken := strings.TrimSpace(os.Getenv("SHOPIFY_ACCESS_TOKEN"))
	if adminToken == "" {
		panic("SHOPIFY_ACCESS_TOKEN not set")
	}

	storefrontToken := strings.TrimSpace(os.Getenv("STOREFRONT_ACCESS_TOKEN"))
	if storefrontToken == "" {
		panic("STOREFRONT_ACCESS_TOKEN not set")
	}

	return &ShopifyClient{
		storeDomain:     domain,
		adminToken:      adminToken,
		storefrontToken: storefrontToken,
		baseURL:         "https://" + domain,
		client:          &http.Client{Timeout: 15 * time.Second},
	}
}

func (c *ShopifyClient) GetOrders(ctx context.Context, filter OrderFilter) ([]Order, error) {
	endpoint := c.baseURL + "/admin/api/" + adminAPIVersion + "/orders.json"
	if filter.Status != "" {
		endpoint += "?status=" + url.QueryEscape(filter.Status)
	}

	var payload struct {
		Orders []Order `json:"orders"`
	}
	if err := c.adminGet(ctx, endpoint, &payload); err != nil {
		return nil, err
	}
	return payload.Orders, nil
}

func (c *ShopifyClient) GetProducts(ctx context.Context) ([]Product, error) {
	endpoint := c.baseURL + "/admin/api/" + adminAPIVersion + "/products.json"

	var payload struct {
		Products []Product `json:"products"`
	}
	if err := c.adminGet(ctx, endpoint, &payload); err != nil {
		return nil, err
	}
	return payload.Products, nil
}

const checkoutCreateMutation = `
mutation checkoutCreate($input: CheckoutCreateInput!) {
  checkoutCreate(input: $input) {
    checkout {
      id
      webUrl
    }
    checkoutUserErrors {
      field
      message
    }
  }
}
`

func (c *ShopifyClient) CreateCheckout(ctx context.Context, items []LineItem) (CheckoutResult, error) {
	body, err := json.Marshal(map[string]any{
		"query": checkoutCreateMutation,
		"variables": map[string]any{
			"input": map[string]any{"lineItems": items},
		},
	})
	if err != nil {
		return CheckoutResult{}, err
	}

	endpoint := c.baseURL + "/api/" + storefrontAPIVersion + "/graphql.json"
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, endpoint, bytes.NewReader(body))
	if err != nil {
		return CheckoutResult{}, err
	}
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("X-Shopify-Storefront-Access-Token", c.storefrontToken)

	resp, err := c.client.Do(req)
	if err != nil {
		return CheckoutResult{}, err
	}
	defer resp.Body.Close()

	if resp.StatusCode >= 300 {
		return CheckoutResult{}, apiError(resp)
	}

	var payload struct {
		Data struct {
			CheckoutCreate struct {
				Checkout *struct {
					ID     string `json:"id"`
					WebURL string `json:"webUrl"`
				} `json:"checkout"`
				CheckoutUserErrors []struct {
					Field   []string `json:"field"`
					Message string   `json:"message"`
				} `json:"checkoutUserErrors"`
			} `json:"checkoutCreate"`
		} `json:"data"`
	}
	if err := json.NewDecoder(resp.Body).Decode(&payload); err != nil {
		return CheckoutResult{}, err
	}

	created := payload.Data.CheckoutCreate
	if created.Checkout == nil {
		result := CheckoutResult{}
		for _, e := range created.CheckoutUserErrors {
			result.UserErrors = append(result.UserErrors, e.Message)
		}
		if len(result.UserErrors) == 0 {
			return CheckoutResult{}, errors.New("shopify: checkoutCreate returned neither checkout nor errors")
		}
		return result, nil
	}

	return CheckoutResult{URL: created.Checkout.WebURL}, nil
}

func (c *ShopifyClient) adminGet(ctx context.Context, endpoint string, out any) error {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, endpoint, nil)
	if err != nil {
		return err
	}
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("X-Shopify-Access-Token", c.adminToken)

	resp, err := c.client.Do(req)
	if err != nil {
		log.Println("[shopify] request error:", err)
		return err
	}
	defer resp.Body.Close()

	if resp.StatusCode >= 300 {
		return apiError(resp)
	}

	return json.NewDecoder(resp.Body).Decode(out)
}

func apiError(resp *http.Response) error {
	body, _ := io.ReadAll(resp.Body)
	return errors.New("shopify api error: " + resp.Status + " body=" + string(body))
}
