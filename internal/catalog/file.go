package catalog

import (
	"context"
	"errors"
	"fmt"
	"os"
	"time"

	"gopkg.in/yaml.v3"

	"github.com/rickgao/live-market/internal/model"
)

// FileSource reads seeds from a YAML file of the form
//
//	items:
//	  - id: "1"
//	    name: Premium Basmati Rice
//	    current_price: 85
//	    minimum_bid: 82
//	    time_left: 2h45m
type FileSource struct {
	Path string
	Now  func() time.Time // Defaults to time.Now
}

type fileCatalog struct {
	Items []Seed `yaml:"items"`
}

// Load implements Source.
func (s FileSource) Load(ctx context.Context) ([]model.AuctionItem, error) {
	data, err := os.ReadFile(s.Path)
	if err != nil {
		return nil, fmt.Errorf("read catalog file: %w", err)
	}

	var doc fileCatalog
	if err := yaml.Unmarshal(data, &doc); err != nil {
		return nil, fmt.Errorf("parse catalog yaml: %w", err)
	}
	if len(doc.Items) == 0 {
		return nil, errors.New("catalog file has no items")
	}

	return fromSeeds(doc.Items, nowOrDefault(s.Now))
}
