package main

import (
	"encoding/json"
	"fmt"
	"os"
	"sort"

	nfapi "neuralfield/pkg/neuralfield"
)

func readConfig(path string) (map[string]any, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, err
	}
	var raw map[string]any
	if err := json.Unmarshal(data, &raw); err != nil {
		return nil, err
	}
	return raw, nil
}

func loadSimulateRequestFromConfig(path string) (nfapi.SimulateRequest, error) {
	raw, err := readConfig(path)
	if err != nil {
		return nfapi.SimulateRequest{}, err
	}

	var req nfapi.SimulateRequest
	if v, ok := asString(raw["scenario"]); ok {
		req.Scenario = v
	}
	if v, ok := asInt(raw["size"]); ok {
		req.Size = v
	}
	if v, ok := asString(raw["kernel"]); ok {
		req.Kernel = v
	}
	if v, ok := asString(raw["transfer"]); ok {
		req.Transfer = v
	}
	if v, ok := raw["params"]; ok {
		params, err := paramsFromConfig(v)
		if err != nil {
			return nfapi.SimulateRequest{}, err
		}
		req.Params = params
	}
	return req, nil
}

func loadOptimizeRequestFromConfig(path string) (nfapi.OptimizeRequest, error) {
	raw, err := readConfig(path)
	if err != nil {
		return nfapi.OptimizeRequest{}, err
	}

	var req nfapi.OptimizeRequest
	if v, ok := asString(raw["scenario"]); ok {
		req.Scenario = v
	}
	if v, ok := asInt(raw["size"]); ok {
		req.Size = v
	}
	if v, ok := asString(raw["kernel"]); ok {
		req.Kernel = v
	}
	if v, ok := asString(raw["transfer"]); ok {
		req.Transfer = v
	}
	if v, ok := asString(raw["optimizer"]); ok {
		req.Optimizer = v
	}
	if v, ok := asInt64(raw["seed"]); ok {
		req.Seed = v
	}
	if v, ok := asInt(raw["epochs"]); ok {
		req.Epochs = v
	}
	if v, ok := asInt(raw["swarm"]); ok {
		req.Swarm = v
	}
	if v, ok := asInt(raw["workers"]); ok {
		req.Workers = v
	}
	if v, ok := asFloat64(raw["fitness_goal"]); ok {
		req.GoalFitness = &v
	}
	return req, nil
}

func loadOrDefaultSimulateRequest(configPath string) (nfapi.SimulateRequest, error) {
	if configPath == "" {
		return nfapi.SimulateRequest{}, nil
	}
	req, err := loadSimulateRequestFromConfig(configPath)
	if err != nil {
		return nfapi.SimulateRequest{}, fmt.Errorf("load config: %w", err)
	}
	return req, nil
}

func loadOrDefaultOptimizeRequest(configPath string) (nfapi.OptimizeRequest, error) {
	if configPath == "" {
		return nfapi.OptimizeRequest{}, nil
	}
	req, err := loadOptimizeRequestFromConfig(configPath)
	if err != nil {
		return nfapi.OptimizeRequest{}, fmt.Errorf("load config: %w", err)
	}
	return req, nil
}

// overrideSimulate applies explicitly set flags on top of a config file.
func overrideSimulate(req *nfapi.SimulateRequest, set map[string]bool, flagValue map[string]any) {
	for name := range set {
		v, ok := flagValue[name]
		if !ok {
			continue
		}
		switch name {
		case "scenario":
			req.Scenario = v.(string)
		case "size":
			req.Size = v.(int)
		case "kernel":
			req.Kernel = v.(string)
		case "transfer":
			req.Transfer = v.(string)
		}
	}
}

func overrideOptimize(req *nfapi.OptimizeRequest, set map[string]bool, flagValue map[string]any) {
	for name := range set {
		v, ok := flagValue[name]
		if !ok {
			continue
		}
		switch name {
		case "scenario":
			req.Scenario = v.(string)
		case "size":
			req.Size = v.(int)
		case "kernel":
			req.Kernel = v.(string)
		case "transfer":
			req.Transfer = v.(string)
		case "optimizer":
			req.Optimizer = v.(string)
		case "seed":
			req.Seed = v.(int64)
		case "epochs":
			req.Epochs = v.(int)
		case "swarm":
			req.Swarm = v.(int)
		case "workers":
			req.Workers = v.(int)
		case "fitness-goal":
			g := v.(float64)
			req.GoalFitness = &g
		}
	}
}

func paramsFromConfig(v any) ([]float64, error) {
	items, ok := v.([]any)
	if !ok {
		return nil, fmt.Errorf("params must be a list of numbers")
	}
	out := make([]float64, 0, len(items))
	for i, item := range items {
		f, ok := asFloat64(item)
		if !ok {
			return nil, fmt.Errorf("params[%d] is not a number", i)
		}
		out = append(out, f)
	}
	return out, nil
}

func asString(v any) (string, bool) {
	s, ok := v.(string)
	return s, ok
}

func asInt(v any) (int, bool) {
	switch x := v.(type) {
	case int:
		return x, true
	case float64:
		return int(x), true
	default:
		return 0, false
	}
}

func asInt64(v any) (int64, bool) {
	switch x := v.(type) {
	case int64:
		return x, true
	case int:
		return int64(x), true
	case float64:
		return int64(x), true
	default:
		return 0, false
	}
}

func asFloat64(v any) (float64, bool) {
	switch x := v.(type) {
	case float64:
		return x, true
	case int:
		return float64(x), true
	default:
		return 0, false
	}
}

func sortedKeys(m map[string]float64) []string {
	keys := make([]string, 0, len(m))
	for k := range m {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	return keys
}
