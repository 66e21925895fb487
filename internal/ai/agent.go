package ai

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"go-dokan-pos/internal/ledger"
	"go-dokan-pos/internal/models"

	"github.com/google/generative-ai-go/genai"
	"github.com/rs/zerolog/log"
)

const maxToolRounds = 4

// ShopReader is the read side of the ledger the agent may consult.
type ShopReader interface {
	ListProducts(ctx context.Context) ([]models.Product, error)
	LowStockProducts(ctx context.Context) ([]ledger.LowStockProduct, error)
	TopSelling(ctx context.Context, limit, days int) ([]ledger.TopProduct, error)
	SalesReport(ctx context.Context, from, to string) (*ledger.SalesReport, error)
	Stats(ctx context.Context) (*ledger.Stats, error)
}

// Agent answers free-form questions about the shop, calling read-only tools
// over the ledger when the model asks for data.
type Agent struct {
	gemini *Gemini
	shop   ShopReader
	now    func() time.Time
}

func NewAgent(g *Gemini, shop ShopReader) *Agent {
	return &Agent{gemini: g, shop: shop, now: time.Now}
}

var tools = []*genai.Tool{{
	FunctionDeclarations: []*genai.FunctionDeclaration{
		{
			Name:        "check_inventory",
			Description: "Get the full product list. Use this to find ANY product detail like ID, name, cost, selling price, stock or unit.",
		},
		{
			Name:        "low_stock",
			Description: "List products at or below their reorder point.",
		},
		{
			Name:        "top_selling",
			Description: "Rank products by units sold over the last N days.",
			Parameters: &genai.Schema{
				Type: genai.TypeObject,
				Properties: map[string]*genai.Schema{
					"days":  {Type: genai.TypeInteger, Description: "Look-back window in days"},
					"limit": {Type: genai.TypeInteger, Description: "How many products to return"},
				},
			},
		},
		{
			Name:        "get_sales_report",
			Description: "Get total sales revenue, profit and count for a date range.",
			Parameters: &genai.Schema{
				Type: genai.TypeObject,
				Properties: map[string]*genai.Schema{
					"start_date": {Type: genai.TypeString, Description: "Start date (YYYY-MM-DD)"},
					"end_date":   {Type: genai.TypeString, Description: "End date (YYYY-MM-DD)"},
				},
				Required: []string{"start_date", "end_date"},
			},
		},
		{
			Name:        "shop_stats",
			Description: "Dashboard totals: products, sales, customers, revenue, profit, today's figures and outstanding dues.",
		},
	},
}}

// Ask runs one question through the model, resolving tool calls until it answers in text.
func (a *Agent) Ask(ctx context.Context, question string) (string, error) {
	model := a.gemini.client.GenerativeModel(a.gemini.model)
	model.Tools = tools
	model.SystemInstruction = &genai.Content{Parts: []genai.Part{genai.Text(fmt.Sprintf(
		`Today is %s. You are the assistant of a small retail shop. Amounts are in Taka.
RULES:
1. If the user asks about price, cost, stock or details of a product, call 'check_inventory' and read the result. Never ask the user for an ID.
2. For revenue or profit questions use 'get_sales_report' or 'shop_stats'.
3. For restocking advice use 'low_stock' and 'top_selling'.
4. You cannot change data. Answer in two or three short sentences.`,
		a.now().Format(models.DateLayout)))}}

	session := model.StartChat()
	resp, err := session.SendMessage(ctx, genai.Text(question))
	if err != nil {
		return "", err
	}

	for round := 0; round < maxToolRounds; round++ {
		calls := functionCalls(resp)
		if len(calls) == 0 {
			return responseText(resp)
		}
		parts := make([]genai.Part, 0, len(calls))
		for _, call := range calls {
			out, err := a.callTool(ctx, call)
			if err != nil {
				log.Warn().Err(err).Str("tool", call.Name).Msg("agent tool failed")
				out = map[string]any{"error": err.Error()}
			}
			parts = append(parts, genai.FunctionResponse{Name: call.Name, Response: out})
		}
		if resp, err = session.SendMessage(ctx, parts...); err != nil {
			return "", err
		}
	}
	return "", errors.New("ai: too many tool rounds")
}

func functionCalls(resp *genai.GenerateContentResponse) []genai.FunctionCall {
	if resp == nil || len(resp.Candidates) == 0 || resp.Candidates[0].Content == nil {
		return nil
	}
	var calls []genai.FunctionCall
	for _, part := range resp.Candidates[0].Content.Parts {
		if fc, ok := part.(genai.FunctionCall); ok {
			calls = append(calls, fc)
		}
	}
	return calls
}

// callTool executes one declared tool against the ledger.
func (a *Agent) callTool(ctx context.Context, call genai.FunctionCall) (map[string]any, error) {
	switch call.Name {
	case "check_inventory":
		products, err := a.shop.ListProducts(ctx)
		if err != nil {
			return nil, err
		}
		type item struct {
			ID    uint   `json:"id"`
			Name  string `json:"name"`
			Stock int    `json:"stock"`
			Unit  string `json:"unit"`
			Cost  string `json:"cost"`
			Price string `json:"price"`
		}
		list := make([]item, 0, len(products))
		for _, p := range products {
			list = append(list, item{p.ID, p.Name, p.CurrentStock, p.Unit, p.CostPrice.StringFixed(2), p.SellingPrice.StringFixed(2)})
		}
		return toolResult("inventory", list)

	case "low_stock":
		low, err := a.shop.LowStockProducts(ctx)
		if err != nil {
			return nil, err
		}
		return toolResult("products", low)

	case "top_selling":
		top, err := a.shop.TopSelling(ctx, intArg(call.Args, "limit", 5), intArg(call.Args, "days", 30))
		if err != nil {
			return nil, err
		}
		return toolResult("products", top)

	case "get_sales_report":
		from, _ := call.Args["start_date"].(string)
		to, _ := call.Args["end_date"].(string)
		r, err := a.shop.SalesReport(ctx, from, to)
		if err != nil {
			return nil, err
		}
		return map[string]any{
			"revenue":     r.TotalRevenue.StringFixed(2),
			"profit":      r.TotalProfit.StringFixed(2),
			"sales_count": r.TotalCount,
		}, nil

	case "shop_stats":
		st, err := a.shop.Stats(ctx)
		if err != nil {
			return nil, err
		}
		return toolResult("stats", st)
	}
	return nil, fmt.Errorf("ai: unknown tool %q", call.Name)
}

// toolResult flattens v through JSON so the response holds only plain values.
func toolResult(key string, v any) (map[string]any, error) {
	b, err := json.Marshal(v)
	if err != nil {
		return nil, err
	}
	var plain any
	if err := json.Unmarshal(b, &plain); err != nil {
		return nil, err
	}
	return map[string]any{key: plain}, nil
}

// intArg reads a numeric tool argument; JSON numbers arrive as float64.
func intArg(args map[string]any, key string, def int) int {
	if v, ok := args[key].(float64); ok && v > 0 {
		return int(v)
	}
	return def
}
