package ensembl

import (
	"context"
	"fmt"
	"strconv"
	"strings"

	"github.com/Jeffail/gabs"
	"github.com/mitchellh/mapstructure"
)

// VariantQuery identifies one variant for VEP region annotation.
type VariantQuery struct {
	Chrom string
	Pos   int64
	ID    string // "." when missing
	Ref   string
	Alt   string
}

// String renders the query in VEP's VCF-like input form.
func (q VariantQuery) String() string {
	id := q.ID
	if id == "" {
		id = "."
	}
	return strings.Join([]string{q.Chrom, strconv.FormatInt(q.Pos, 10), id, q.Ref, q.Alt, ".", ".", "."}, " ")
}

// ColocatedVariant is a known variant at the queried position.
type ColocatedVariant struct {
	ID              string   `mapstructure:"id"`
	MinorAllele     *string  `mapstructure:"minor_allele"`
	MinorAlleleFreq *float64 `mapstructure:"minor_allele_freq"`
}

// Consequence is the VEP result for one variant.
type Consequence struct {
	MostSevere string
	Colocated  []ColocatedVariant
}

// FirstMinorAllele returns the first colocated variant that reports a minor allele.
func (c *Consequence) FirstMinorAllele() (ColocatedVariant, bool) {
	for _, cv := range c.Colocated {
		if cv.MinorAllele != nil {
			return cv, true
		}
	}
	return ColocatedVariant{}, false
}

// Consequence annotates q with the VEP region endpoint.
func (c *Client) Consequence(ctx context.Context, q VariantQuery) (*Consequence, error) {
	const endpoint = "vep/region"

	body := make(map[string]any, len(c.vepOptions)+1)
	for k, v := range c.vepOptions {
		body[k] = v
	}
	body["variants"] = []string{q.String()}

	resp, err := c.http.R().
		SetContext(ctx).
		SetPathParam("species", c.species).
		SetHeader("Content-Type", "application/json").
		SetBody(body).
		Post("/vep/{species}/region")
	if err != nil {
		return nil, fmt.Errorf("%s request: %w", endpoint, err)
	}
	if err := checkResponse(endpoint, resp); err != nil {
		return nil, err
	}

	return parseConsequence(resp.Body())
}

func parseConsequence(data []byte) (*Consequence, error) {
	parsed, err := gabs.ParseJSON(data)
	if err != nil {
		return nil, fmt.Errorf("decode vep response: %w", err)
	}
	results, ok := parsed.Data().([]interface{})
	if !ok {
		return nil, fmt.Errorf("decode vep response: expected array, got %T", parsed.Data())
	}
	if len(results) != 1 {
		return nil, fmt.Errorf("decode vep response: expected 1 result, got %d", len(results))
	}

	result := parsed.Index(0)
	most, ok := result.Path("most_severe_consequence").Data().(string)
	if !ok {
		return nil, fmt.Errorf("decode vep response: missing most_severe_consequence")
	}

	cons := &Consequence{MostSevere: most}
	if !result.Exists("colocated_variants") {
		return cons, nil
	}
	children, err := result.S("colocated_variants").Children()
	if err != nil {
		return nil, fmt.Errorf("decode vep colocated_variants: %w", err)
	}
	for i, child := range children {
		var cv ColocatedVariant
		if err := mapstructure.Decode(child.Data(), &cv); err != nil {
			return nil, fmt.Errorf("decode vep colocated variant %d: %w", i, err)
		}
		cons.Colocated = append(cons.Colocated, cv)
	}
	return cons, nil
}
