package ensembl

import (
	"context"
	"fmt"

	"github.com/Jeffail/gabs"
	"github.com/mitchellh/mapstructure"
)

// Gene is one entry of a gene overlap response.
type Gene struct {
	ID           string `mapstructure:"gene_id"`
	ExternalName string `mapstructure:"external_name"`
	Biotype      string `mapstructure:"biotype"`
	Description  string `mapstructure:"description"`
}

// OverlapGenes returns the genes overlapping chrom:start-end, in API order.
func (c *Client) OverlapGenes(ctx context.Context, chrom string, start, end int64) ([]Gene, error) {
	const endpoint = "overlap/region"

	resp, err := c.http.R().
		SetContext(ctx).
		SetPathParams(map[string]string{
			"species": c.species,
			"region":  fmt.Sprintf("%s:%d-%d", chrom, start, end),
		}).
		SetQueryParam("feature", "gene").
		SetHeader("Content-Type", "application/json").
		Get("/overlap/region/{species}/{region}")
	if err != nil {
		return nil, fmt.Errorf("%s request: %w", endpoint, err)
	}
	if err := checkResponse(endpoint, resp); err != nil {
		return nil, err
	}

	parsed, err := gabs.ParseJSON(resp.Body())
	if err != nil {
		return nil, fmt.Errorf("decode %s response: %w", endpoint, err)
	}
	entries, ok := parsed.Data().([]interface{})
	if !ok {
		return nil, fmt.Errorf("decode %s response: expected array, got %T", endpoint, parsed.Data())
	}

	genes := make([]Gene, 0, len(entries))
	for i, e := range entries {
		var g Gene
		if err := mapstructure.Decode(e, &g); err != nil {
			return nil, fmt.Errorf("decode %s entry %d: %w", endpoint, i, err)
		}
		genes = append(genes, g)
	}
	return genes, nil
}
