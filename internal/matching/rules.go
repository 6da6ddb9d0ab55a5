package matching

import (
	"errors"
	"fmt"
	"io/fs"
	"os"

	"gopkg.in/yaml.v3"

	"address-reconciliation/internal/constants"
	errs "address-reconciliation/pkg/errors"
)

// Rules tune how candidates are found and judged.
type Rules struct {
	// CorroborateWithinFeet is the largest distance at which a candidate's
	// coordinates still corroborate the match.
	CorroborateWithinFeet int `yaml:"corroborate_within_feet" json:"corroborate_within_feet"`
	// NearMatchSimilarity is the minimum street-segment similarity for a
	// record in the same city/state/zip to be listed as a near match.
	NearMatchSimilarity float64 `yaml:"near_match_similarity" json:"near_match_similarity"`
}

func DefaultRules() Rules {
	return Rules{
		CorroborateWithinFeet: constants.CorroborateWithinFeetDefault,
		NearMatchSimilarity:   constants.NearMatchSimilarityDefault,
	}
}

func (r Rules) Validate() error {
	if r.CorroborateWithinFeet <= 0 {
		return errs.NewValidation("matching.Rules", fmt.Sprintf("corroborate_within_feet must be positive, got %d", r.CorroborateWithinFeet), nil)
	}
	if r.NearMatchSimilarity <= 0 || r.NearMatchSimilarity > 1 {
		return errs.NewValidation("matching.Rules", fmt.Sprintf("near_match_similarity must be in (0,1], got %g", r.NearMatchSimilarity), nil)
	}
	return nil
}

// LoadRules overlays the YAML file at path onto base. An empty path or a
// missing file returns base unchanged; keys absent from the file keep their
// base value.
func LoadRules(path string, base Rules) (Rules, error) {
	if path == "" {
		return base, nil
	}
	b, err := os.ReadFile(path)
	if errors.Is(err, fs.ErrNotExist) {
		return base, nil
	}
	if err != nil {
		return base, errs.NewValidation("matching.LoadRules", "read rules file", err)
	}
	return ParseRules(b, base)
}

// ParseRules is LoadRules for an in-memory document.
func ParseRules(doc []byte, base Rules) (Rules, error) {
	var overlay struct {
		CorroborateWithinFeet *int     `yaml:"corroborate_within_feet"`
		NearMatchSimilarity   *float64 `yaml:"near_match_similarity"`
	}
	if err := yaml.Unmarshal(doc, &overlay); err != nil {
		return base, errs.NewValidation("matching.ParseRules", "invalid rules YAML", err)
	}
	out := base
	if overlay.CorroborateWithinFeet != nil {
		out.CorroborateWithinFeet = *overlay.CorroborateWithinFeet
	}
	if overlay.NearMatchSimilarity != nil {
		out.NearMatchSimilarity = *overlay.NearMatchSimilarity
	}
	if err := out.Validate(); err != nil {
		return base, err
	}
	return out, nil
}
