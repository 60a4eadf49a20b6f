package domain

import (
	"context"
	"encoding/json"
	"fmt"

	"github.com/modelcontextprotocol/go-sdk/mcp"
)

// SectorsURI names the sector catalog resource.
const SectorsURI = "practice://sectors"

type sectorEntry struct {
	Key       string `json:"key"`
	Name      string `json:"name"`
	Operation string `json:"operation"`
	Color     string `json:"color"`
	BaseExp   int    `json:"base_exp"`
	Available bool   `json:"available"`
}

// SectorsResource describes the sector catalog resource.
func SectorsResource() *mcp.Resource {
	return &mcp.Resource{
		Name:        "practice_sectors",
		Title:       "Practice sectors",
		Description: "Every practice sector with its operation and availability.",
		MIMEType:    "application/json",
		URI:         SectorsURI,
	}
}

// SectorsResourceHandler reads the sector catalog.
func SectorsResourceHandler(engine Engine) mcp.ResourceHandler {
	return func(_ context.Context, req *mcp.ReadResourceRequest) (*mcp.ReadResourceResult, error) {
		uri := SectorsURI
		if req != nil && req.Params != nil && req.Params.URI != "" {
			uri = req.Params.URI
		}
		if uri != SectorsURI {
			return nil, fmt.Errorf("unknown resource %q", uri)
		}
		configs := engine.ListSectors()
		entries := make([]sectorEntry, 0, len(configs))
		for _, cfg := range configs {
			entries = append(entries, sectorEntry{
				Key:       string(cfg.Key),
				Name:      cfg.Name,
				Operation: cfg.Operation.String(),
				Color:     cfg.Color,
				BaseExp:   cfg.BaseExp,
				Available: cfg.Available,
			})
		}
		payload, err := json.MarshalIndent(map[string]any{"sectors": entries}, "", "  ")
		if err != nil {
			return nil, fmt.Errorf("encode sectors: %w", err)
		}
		return &mcp.ReadResourceResult{
			Contents: []*mcp.ResourceContents{{
				URI:      uri,
				MIMEType: "application/json",
				Text:     string(payload),
			}},
		}, nil
	}
}
