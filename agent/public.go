package agent

import (
	"context"

	"github.com/etnz/capgains"
	"google.golang.org/genai"
)

const model = "gemini-2.5-pro"

// creates the facilitator
func newFacilitator(experts ...*Expert) *Expert {
	return &Expert{
		Name:      "Facilitator",
		ModelName: model,
		Config: &genai.GenerateContentConfig{
			Tools: []*genai.Tool{
				{FunctionDeclarations: NewDeclaration(experts)},
			},
			SystemInstruction: &genai.Content{Parts: []*genai.Part{{Text: `
			As a facilitator you are in charge of the conversation and solving the user's request.

			Learn about the expert's skill that you can get from the Tools to ask them questions.
			They are at your service and 100% dedicated to you, they keep context of your previous questions.

			The user is here to understand the capital gains tax of their portfolio: what a sale would cost,
			which lots become tax free and when, how their allowance and loss carryforward are used.

			Devise a plan of questions to ask to each expert and come up with the best response to the user's request.
			Never invent an amount: every figure must come from the Tax Advisor.
		`}}},
		},
		Library: NewLibrary(experts),
	}
}

// NewResearcher creates an expert grounded on Google Search for tax rules and their changes.
func NewResearcher() *Expert {
	return &Expert{
		Name: "Researcher",
		Description: `This is an expert in German, Austrian and Swiss capital income taxation.
		Ask the Researcher whenever you need recent or grounding information about tax law,
		allowances, rates or court decisions.`,
		ModelName: model,
		Config: &genai.GenerateContentConfig{
			Tools: []*genai.Tool{
				{GoogleSearch: &genai.GoogleSearch{}},
			},
			SystemInstruction: &genai.Content{Parts: []*genai.Part{{Text: `
			You are an expert in capital income taxation. You Leverage Google Search to
			ground your assertions in a solid truth, and you quote the law or the authority you rely on.
				`}}},
		},
	}
}

// NewTaxAdvisor creates the expert that computes figures with the engine.
func NewTaxAdvisor(e *capgains.Engine) *Expert {
	lib := Tools(e)
	return &Expert{
		Name: "TaxAdvisor",
		Description: `This is the Tax Advisor. It reads the user's tax lots and computes sale simulations
		and yearly tax summaries. Ask it for any figure about the user's capital gains.`,
		ModelName: model,
		Config: &genai.GenerateContentConfig{
			Tools: []*genai.Tool{
				{FunctionDeclarations: NewDeclaration(lib)},
			},
			SystemInstruction: &genai.Content{Parts: []*genai.Part{{Text: `
				You are a tax advisor in charge of the user's capital gains.
				Use the available tools to
				  - list the lots of a holding and when they become tax free
				  - simulate a sale and estimate the tax it triggers
				  - compute the yearly tax summary of a portfolio
				  - read the documentation about the rules the computation follows
				Explain the figures you get, do not recompute them.
			`}}},
		},
		Library: NewLibrary(lib),
	}
}

// Func implements a simple Function
type Func struct {
	// Declare this function
	Decl *genai.FunctionDeclaration
	// Call this function
	Func func(ctx context.Context, args map[string]any) (string, error)
}

func (f *Func) Declaration() *genai.FunctionDeclaration { return f.Decl }

func (f *Func) Call(ctx context.Context, id string, args map[string]any) *genai.FunctionResponse {
	out, err := f.Func(ctx, args)
	if err != nil {
		return failed(id, f.Decl.Name, err)
	}
	return succeeded(id, f.Decl.Name, out)
}

func must[T any](v T, err error) T {
	if err != nil {
		panic(err)
	}
	return v
}
