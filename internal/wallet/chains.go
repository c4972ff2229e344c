package wallet

import (
	"fmt"
	"log/slog"
	"os"
	"strings"

	"paybot/internal/domain"

	"gopkg.in/yaml.v3"
)

// Registry maps chain identifiers to human-readable labels. Labels are
// snapshotted into intents at creation, so edits to the registry file
// never rewrite history.
type Registry struct {
	byChainID map[string]string
	byFamily  map[string]string
}

// registryFile is the YAML schema of a chains file:
//
//	chains:
//	  "eip155:11155111": Sepolia Testnet
//	families:
//	  ethereum: Ethereum
type registryFile struct {
	Chains   map[string]string `yaml:"chains"`
	Families map[string]string `yaml:"families"`
}

// DefaultRegistry returns the built-in chain labels.
func DefaultRegistry() *Registry {
	return &Registry{
		byChainID: map[string]string{
			"eip155:1":        "Ethereum",
			"eip155:11155111": "Sepolia Testnet",
			"eip155:8453":     "Base",
			"eip155:137":      "Polygon",
		},
		byFamily: map[string]string{
			"ethereum": "Ethereum",
			"solana":   "Solana",
		},
	}
}

// LoadRegistry reads a chains file and overlays it on the built-in
// defaults. An empty path, or a path that does not exist, yields the
// defaults unchanged.
func LoadRegistry(path string, logger *slog.Logger) (*Registry, error) {
	reg := DefaultRegistry()
	if path == "" {
		return reg, nil
	}
	data, err := os.ReadFile(path)
	if os.IsNotExist(err) {
		logger.Debug("chains file does not exist, using built-in labels", "path", path)
		return reg, nil
	}
	if err != nil {
		return nil, fmt.Errorf("read chains file: %w", err)
	}

	var file registryFile
	if err := yaml.Unmarshal(data, &file); err != nil {
		return nil, fmt.Errorf("parse chains file %s: %w", path, err)
	}
	for id, label := range file.Chains {
		reg.byChainID[id] = label
	}
	for family, label := range file.Families {
		reg.byFamily[family] = label
	}
	logger.Info("chain registry loaded", "path", path, "chains", len(file.Chains), "families", len(file.Families))
	return reg, nil
}

// Label resolves the display label for a wallet account. Unknown chains
// fall back by namespace recognition, then to the raw chain family.
func (r *Registry) Label(acct domain.WalletAccount) string {
	if label, ok := r.byChainID[acct.ChainID]; ok {
		return label
	}
	if label, ok := r.byFamily[acct.ChainFamily]; ok {
		return label
	}
	switch {
	case strings.Contains(acct.ChainID, "eip155"):
		return "Ethereum"
	case strings.Contains(acct.ChainID, "solana"):
		return "Solana"
	}
	return acct.ChainFamily
}
