package agent

import (
	"context"
	"errors"
	"fmt"
	"strconv"

	"github.com/etnz/capgains"
	"github.com/etnz/capgains/date"
	"github.com/etnz/capgains/docs"
	"github.com/etnz/capgains/renderer"
	"github.com/shopspring/decimal"
	"google.golang.org/genai"
)

// Tools returns the functions the tax advisor can call on e.
func Tools(e *capgains.Engine) []*Func {
	dates := must(docs.GetTopic("dates"))
	return []*Func{
		{
			Decl: &genai.FunctionDeclaration{
				Name:        "list_lots",
				Description: "Lists the tax lots of a holding, oldest first, with the day each one becomes tax free.",
				Parameters: &genai.Schema{
					Type: genai.TypeObject,
					Properties: map[string]*genai.Schema{
						"holding_id": {Type: genai.TypeString, Description: "The holding identifier."},
						"status":     {Type: genai.TypeString, Description: "Only lots with this status.", Enum: []string{"open", "partially_sold", "closed"}},
					},
					Required: []string{"holding_id"},
				},
				Response: &genai.Schema{Type: genai.TypeString, Description: "A markdown table of the lots."},
			},
			Func: func(ctx context.Context, args map[string]any) (string, error) {
				id, err := stringArg(args, "holding_id")
				if err != nil {
					return "", err
				}
				var statusIn []capgains.LotStatus
				if s := optionalString(args, "status"); s != "" {
					st, err := capgains.ParseLotStatus(s)
					if err != nil {
						return "", err
					}
					statusIn = append(statusIn, st)
				}
				h, a, err := e.Holding(ctx, id)
				if err != nil {
					return "", err
				}
				lots, err := e.Lots(ctx, id, statusIn...)
				if err != nil {
					return "", err
				}
				return renderer.LotsMarkdown(h, a, lots, date.Today()), nil
			},
		},
		{
			Decl: &genai.FunctionDeclaration{
				Name:        "simulate_sale",
				Description: "Simulates a sale on a holding: which lots are consumed, the gain, the exempt part and the estimated tax. Nothing is recorded.",
				Parameters: &genai.Schema{
					Type: genai.TypeObject,
					Properties: map[string]*genai.Schema{
						"holding_id": {Type: genai.TypeString, Description: "The holding identifier."},
						"quantity":   {Type: genai.TypeNumber, Description: "The quantity to sell."},
						"sale_price": {Type: genai.TypeNumber, Description: "The price per unit, in the portfolio currency."},
						"sale_date":  {Type: genai.TypeString, Description: "The day of the sale, today by default.\n\n" + dates},
					},
					Required: []string{"holding_id", "quantity", "sale_price"},
				},
				Response: &genai.Schema{Type: genai.TypeString, Description: "A markdown report of the simulated sale."},
			},
			Func: func(ctx context.Context, args map[string]any) (string, error) {
				id, err := stringArg(args, "holding_id")
				if err != nil {
					return "", err
				}
				qty, err := decimalArg(args, "quantity")
				if err != nil {
					return "", err
				}
				price, err := decimalArg(args, "sale_price")
				if err != nil {
					return "", err
				}
				on, err := dateArg(args, "sale_date")
				if err != nil {
					return "", err
				}
				sim, err := e.SimulateSale(ctx, capgains.SaleRequest{
					HoldingID: id,
					Quantity:  capgains.Q(qty),
					SalePrice: capgains.M(price, ""),
					SaleDate:  on,
				})
				var short *capgains.InsufficientLotsError
				if errors.As(err, &short) {
					return renderer.SaleMarkdown("Insufficient Lots", &short.Partial), nil
				}
				if err != nil {
					return "", err
				}
				return renderer.SimulationMarkdown(sim), nil
			},
		},
		{
			Decl: &genai.FunctionDeclaration{
				Name:        "tax_summary",
				Description: "Returns the yearly tax summary of a portfolio. It is computed when it was never computed or when recalculate is true.",
				Parameters: &genai.Schema{
					Type: genai.TypeObject,
					Properties: map[string]*genai.Schema{
						"portfolio_id": {Type: genai.TypeString, Description: "The portfolio identifier."},
						"year":         {Type: genai.TypeInteger, Description: "The tax year."},
						"recalculate":  {Type: genai.TypeBoolean, Description: "Compute the summary again from the recorded events."},
					},
					Required: []string{"portfolio_id", "year"},
				},
				Response: &genai.Schema{Type: genai.TypeString, Description: "A markdown report of the tax summary."},
			},
			Func: func(ctx context.Context, args map[string]any) (string, error) {
				id, err := stringArg(args, "portfolio_id")
				if err != nil {
					return "", err
				}
				year, err := intArg(args, "year")
				if err != nil {
					return "", err
				}
				recalculate, _ := args["recalculate"].(bool)
				var s *capgains.TaxSummary
				if !recalculate {
					s, err = e.Summary(ctx, id, year)
				}
				if recalculate || errors.Is(err, capgains.ErrNotFound) {
					s, err = e.CalculateSummary(ctx, id, year)
				}
				if err != nil {
					return "", err
				}
				return renderer.SummaryMarkdown(s), nil
			},
		},
		{
			Decl: &genai.FunctionDeclaration{
				Name:        "read_topic",
				Description: "Reads a documentation topic about the tax rules. Use '*' to read them all.",
				Parameters: &genai.Schema{
					Type: genai.TypeObject,
					Properties: map[string]*genai.Schema{
						"topic": {Type: genai.TypeString, Description: "The topic name.", Enum: append(must(docs.GetAllTopics()), "*")},
					},
					Required: []string{"topic"},
				},
				Response: &genai.Schema{Type: genai.TypeString, Description: "The markdown topic."},
			},
			Func: func(ctx context.Context, args map[string]any) (string, error) {
				topic, err := stringArg(args, "topic")
				if err != nil {
					return "", err
				}
				return docs.GetTopic(topic)
			},
		},
	}
}

func stringArg(args map[string]any, name string) (string, error) {
	v, ok := args[name]
	if !ok {
		return "", fmt.Errorf("argument %q is required", name)
	}
	s, ok := v.(string)
	if !ok {
		return "", fmt.Errorf("argument %q is not a string as expected but %T", name, v)
	}
	return s, nil
}

func optionalString(args map[string]any, name string) string {
	s, _ := args[name].(string)
	return s
}

func decimalArg(args map[string]any, name string) (decimal.Decimal, error) {
	switch v := args[name].(type) {
	case nil:
		return decimal.Zero, fmt.Errorf("argument %q is required", name)
	case float64:
		return decimal.NewFromFloat(v), nil
	case int:
		return decimal.NewFromInt(int64(v)), nil
	case string:
		d, err := decimal.NewFromString(v)
		if err != nil {
			return decimal.Zero, fmt.Errorf("argument %q must be a number got %q", name, v)
		}
		return d, nil
	default:
		return decimal.Zero, fmt.Errorf("argument %q is not a number as expected but %T", name, v)
	}
}

func intArg(args map[string]any, name string) (int, error) {
	switch v := args[name].(type) {
	case nil:
		return 0, fmt.Errorf("argument %q is required", name)
	case float64:
		return int(v), nil
	case int:
		return v, nil
	case string:
		return strconv.Atoi(v)
	default:
		return 0, fmt.Errorf("argument %q is not an integer as expected but %T", name, v)
	}
}

func dateArg(args map[string]any, name string) (date.Date, error) {
	v, ok := args[name]
	if !ok {
		return date.Today(), nil
	}
	s, ok := v.(string)
	if !ok {
		return date.Date{}, fmt.Errorf("argument %q is not a string as expected but %T", name, v)
	}
	d, err := date.ParseRelative(s, date.Today())
	if err != nil {
		return date.Date{}, fmt.Errorf("argument %q must be a valid date got %q. Below is the doc about the format date\n\n%s", name, s, must(docs.GetTopic("dates")))
	}
	return d, nil
}
