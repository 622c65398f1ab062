// Package lambdafn serves optimization requests behind an AWS Lambda Function
// URL. The request body is a JSON item source (see package catalog) that may
// also carry the annealing parameters:
//
//	{
//	  "items": [{"id": 1, "weight": 10, "value": 60}, ...],
//	  "capacity": 30,
//	  "initialTemperature": 500,
//	  "coolingRate": 0.99995,
//	  "iterations": 100000,
//	  "runs": 3,
//	  "seed": 42
//	}
package lambdafn

import (
	"context"
	"encoding/base64"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"math/rand"
	"time"

	"github.com/aws/aws-lambda-go/events"
	"github.com/tidwall/gjson"

	"github.com/cwbudde/knapsackanneal/internal/anneal"
	"github.com/cwbudde/knapsackanneal/internal/catalog"
)

// Request limits keep one invocation inside the function timeout.
const (
	DefaultIterations = 1_000_000
	MaxIterations     = 20_000_000
	MaxRuns           = 10
)

var jsonHeader = map[string]string{
	"Content-Type": "application/json",
}

// RunResult is one finished run.
type RunResult struct {
	Value            int     `json:"value"`
	Weight           int     `json:"weight"`
	SelectedIDs      []int   `json:"selectedIds"`
	Accepted         int     `json:"accepted"`
	FinalTemperature float64 `json:"finalTemperature"`
	TimeMs           int64   `json:"timeMs"`
}

// Response is the handler's success body.
type Response struct {
	Items    int         `json:"items"`
	Capacity int         `json:"capacity"`
	Seed     int64       `json:"seed"`
	Params   Params      `json:"params"`
	Runs     []RunResult `json:"runs"`
	Best     *RunResult  `json:"best,omitempty"`

	// Truncated is set when the deadline cut the runs short.
	Truncated bool `json:"truncated,omitempty"`
}

// Params echoes the annealing parameters used.
type Params struct {
	InitialTemperature float64 `json:"initialTemperature"`
	CoolingRate        float64 `json:"coolingRate"`
	Iterations         int     `json:"iterations"`
}

// Handle answers one Function URL invocation.
func Handle(ctx context.Context, event events.LambdaFunctionURLRequest) (events.LambdaFunctionURLResponse, error) {
	body := event.Body
	if event.IsBase64Encoded {
		decoded, err := base64.StdEncoding.DecodeString(body)
		if err != nil {
			return errResp(400, "invalid base64 body")
		}
		body = string(decoded)
	}

	cat, err := catalog.ParseJSON(body, "request", catalog.Options{})
	if err != nil {
		return errResp(400, err.Error())
	}

	p, runs, seed, err := parseParams(body)
	if err != nil {
		return errResp(400, err.Error())
	}

	rng := rand.New(rand.NewSource(seed))
	opt := anneal.New(rng)

	resp := Response{
		Items:    cat.Len(),
		Capacity: cat.Capacity(),
		Seed:     seed,
		Params:   Params{InitialTemperature: p.InitialTemperature, CoolingRate: p.CoolingRate, Iterations: p.Iterations},
		Runs:     make([]RunResult, 0, runs),
	}

	for i := 0; i < runs; i++ {
		start := time.Now()
		res, err := opt.Run(ctx, cat, p)
		if errors.Is(err, context.Canceled) || errors.Is(err, context.DeadlineExceeded) {
			resp.Truncated = true
			break
		}
		if err != nil {
			return errResp(500, err.Error())
		}

		ids := res.Solution.SelectedIDs(cat)
		if ids == nil {
			ids = []int{}
		}
		resp.Runs = append(resp.Runs, RunResult{
			Value:            res.Solution.Value(),
			Weight:           res.Solution.Weight(),
			SelectedIDs:      ids,
			Accepted:         res.Accepted,
			FinalTemperature: res.FinalTemperature,
			TimeMs:           time.Since(start).Milliseconds(),
		})
	}

	if len(resp.Runs) == 0 {
		return errResp(504, "deadline reached before the first run finished")
	}
	best := 0
	for i, r := range resp.Runs {
		if r.Value > resp.Runs[best].Value {
			best = i
		}
	}
	resp.Best = &resp.Runs[best]

	slog.Info("Request served",
		"items", resp.Items,
		"runs", len(resp.Runs),
		"best_value", resp.Best.Value,
		"truncated", resp.Truncated)

	respJSON, err := json.Marshal(resp)
	if err != nil {
		return errResp(500, "failed to encode response")
	}
	return events.LambdaFunctionURLResponse{StatusCode: 200, Headers: jsonHeader, Body: string(respJSON)}, nil
}

// parseParams reads the optional parameter members of body, falling back to
// anneal.DefaultParams with DefaultIterations, one run and a time-based seed.
func parseParams(body string) (anneal.Params, int, int64, error) {
	p := anneal.DefaultParams()
	p.Iterations = DefaultIterations
	root := gjson.Parse(body)

	if v := root.Get("initialTemperature"); v.Exists() {
		p.InitialTemperature = v.Float()
	}
	if v := root.Get("coolingRate"); v.Exists() {
		p.CoolingRate = v.Float()
	}
	if v := root.Get("iterations"); v.Exists() {
		p.Iterations = int(v.Int())
	}
	if err := p.Validate(); err != nil {
		return p, 0, 0, err
	}
	if p.Iterations > MaxIterations {
		return p, 0, 0, fmt.Errorf("iterations cannot exceed %d, got %d", MaxIterations, p.Iterations)
	}

	runs := 1
	if v := root.Get("runs"); v.Exists() {
		runs = int(v.Int())
	}
	if runs < 1 || runs > MaxRuns {
		return p, 0, 0, fmt.Errorf("runs must be between 1 and %d, got %d", MaxRuns, runs)
	}

	seed := root.Get("seed").Int()
	if seed == 0 {
		seed = time.Now().UnixNano()
	}

	return p, runs, seed, nil
}

func errResp(code int, msg string) (events.LambdaFunctionURLResponse, error) {
	body, _ := json.Marshal(map[string]string{"error": msg})
	return events.LambdaFunctionURLResponse{StatusCode: code, Headers: jsonHeader, Body: string(body)}, nil
}
