package config

import (
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"aave-ledger-go/internal/models"

	"github.com/go-playground/validator/v10"
	"gopkg.in/yaml.v2"
)

type AssetsConfig struct {
	Assets []models.TrackedAsset `yaml:"assets"`
}

var validate = validator.New()

// LoadAssetConfig reads and validates the tracked reserve list
func LoadAssetConfig(assetsFile string) ([]models.TrackedAsset, error) {
	var assetsPath string
	if filepath.IsAbs(assetsFile) {
		assetsPath = assetsFile
	} else {
		wd, err := os.Getwd()
		if err != nil {
			return nil, fmt.Errorf("failed to get working directory: %w", err)
		}
		assetsPath = filepath.Join(wd, assetsFile)
	}

	data, err := os.ReadFile(assetsPath)
	if err != nil {
		return nil, fmt.Errorf("unable to read %s: %w", assetsFile, err)
	}

	return ParseAssetConfig(data)
}

// ParseAssetConfig parses YAML asset definitions and canonicalises addresses
func ParseAssetConfig(data []byte) ([]models.TrackedAsset, error) {
	var config AssetsConfig
	if err := yaml.Unmarshal(data, &config); err != nil {
		return nil, fmt.Errorf("unable to parse assets: %w", err)
	}

	if len(config.Assets) == 0 {
		return nil, fmt.Errorf("no assets configured")
	}

	seen := make(map[string]bool)
	for i := range config.Assets {
		asset := &config.Assets[i]
		if err := validate.Struct(asset); err != nil {
			return nil, fmt.Errorf("asset at index %d is invalid: %w", i, err)
		}

		asset.Address = strings.ToLower(asset.Address)
		asset.AToken = strings.ToLower(asset.AToken)

		if seen[asset.Address] || seen[asset.AToken] {
			return nil, fmt.Errorf("asset at index %d duplicates an address already configured", i)
		}
		seen[asset.Address] = true
		seen[asset.AToken] = true
	}

	return config.Assets, nil
}
