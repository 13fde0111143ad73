package nn

import (
	"errors"
	"fmt"
	"sort"
	"strings"
	"sync"
)

var (
	ErrTransferExists   = errors.New("transfer function already registered")
	ErrTransferNotFound = errors.New("transfer function not found")
)

// TransferFunc maps one activation value to one output value.
type TransferFunc func(x float64) float64

var transferRegistry = struct {
	mu sync.RWMutex
	m  map[string]TransferFunc
}{
	m: make(map[string]TransferFunc),
}

func init() {
	initializeBuiltInTransfers()
}

func initializeBuiltInTransfers() {
	MustRegisterTransfer("heaviside", Heaviside)
	MustRegisterTransfer("sigmoid", Sigmoid(1, -1, 0))
	MustRegisterTransfer("rectified", Rectified)
}

func RegisterTransfer(name string, fn TransferFunc) error {
	name = NormalizeTransferName(name)
	if name == "" {
		return errors.New("transfer function name is required")
	}
	if fn == nil {
		return errors.New("transfer function is required")
	}

	transferRegistry.mu.Lock()
	defer transferRegistry.mu.Unlock()

	if _, exists := transferRegistry.m[name]; exists {
		return fmt.Errorf("%w: %s", ErrTransferExists, name)
	}
	transferRegistry.m[name] = fn
	return nil
}

func MustRegisterTransfer(name string, fn TransferFunc) {
	if err := RegisterTransfer(name, fn); err != nil {
		panic(err)
	}
}

// GetTransfer resolves a transfer function by name. Names are case-insensitive
// and "relu" is accepted for "rectified".
func GetTransfer(name string) (TransferFunc, error) {
	key := NormalizeTransferName(name)
	transferRegistry.mu.RLock()
	fn, ok := transferRegistry.m[key]
	transferRegistry.mu.RUnlock()
	if !ok {
		return nil, fmt.Errorf("%w: %s", ErrTransferNotFound, name)
	}
	return fn, nil
}

func ListTransfers() []string {
	transferRegistry.mu.RLock()
	defer transferRegistry.mu.RUnlock()

	names := make([]string, 0, len(transferRegistry.m))
	for name := range transferRegistry.m {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}

func NormalizeTransferName(name string) string {
	switch key := strings.TrimSpace(strings.ToLower(name)); key {
	case "relu", "rectified_linear":
		return "rectified"
	case "step":
		return "heaviside"
	default:
		return key
	}
}

func resetTransferRegistryForTests() {
	transferRegistry.mu.Lock()
	transferRegistry.m = make(map[string]TransferFunc)
	transferRegistry.mu.Unlock()
	initializeBuiltInTransfers()
}
