package disposition

import (
	"fmt"
	"strings"

	"go.uber.org/zap"

	"github.com/cognicore/plantag/pkg/plantag/internalerr"
	"github.com/cognicore/plantag/pkg/plantag/token"
)

func (p *Pipeline) preProcess(r *Result) error {
	tr := r.Tokens
	if r.RawInput == "" {
		r.RawInput = tr.RawInput
	}
	if r.NormalizedInput == "" {
		r.NormalizedInput = tr.NormalizedInput
	}

	r.Identifier = r.RawInput
	if strings.TrimSpace(r.RawInput) == "" {
		r.IsTagEmptyOrWhitespace = true
		r.Identifier = UnnamedPrefix + r.ItemID
		r.warn("tag is empty, using identifier %s", r.Identifier)
		p.log.Warn("empty tag", zap.String("item", r.ItemID), zap.String("identifier", r.Identifier))
	}

	for _, t := range tr.Tokens.Entries() {
		if t.IsProcessable() {
			r.HasAnyTokens = true
			break
		}
	}
	return nil
}

func (p *Pipeline) tokenSnapshot(r *Result) error {
	toks := r.Tokens.Tokens

	r.HasPlant = toks.Resolved(token.KeyPlant)
	r.HasPlantUnit = toks.Resolved(token.KeyPlantUnit)
	r.HasPlantSection = toks.Resolved(token.KeyPlantSection) || r.Tokens.HasSectionToken
	r.HasComponent = toks.Resolved(token.KeyComponent)
	r.HasEquipment = toks.Resolved(token.KeyEquipment)

	if !r.HasEquipment {
		if c, ok := toks.Processable(token.KeyComponent); ok && c.ReplacesKey == token.KeyEquipment {
			r.EquipmentReplacedByComponent = true
			r.HasEquipment = true
			r.message("Equipment replaced by Component %s", c.Value)
		}
	}

	disc, hasDisc := toks.Processable(token.KeyDiscipline)
	r.HasEffectiveDiscipline = hasDisc
	r.HasEffectiveEntity = toks.Resolved(token.KeyEntity)
	if hasDisc && r.Discipline != "" && !strings.EqualFold(disc.Value, r.Discipline) {
		r.message("tag discipline %s differs from item discipline %s", disc.Value, r.Discipline)
	}
	return nil
}

func (p *Pipeline) qualityAssessment(r *Result) error {
	structural := r.HasPlant && r.HasPlantUnit && r.HasPlantSection && r.HasComponent &&
		(r.HasEquipment || r.EquipmentReplacedByComponent)
	r.IsFinalImportEligible = structural &&
		r.HasEffectiveDiscipline && r.HasEffectiveEntity &&
		!r.IsTagEmptyOrWhitespace && r.HasAnyTokens

	r.IsDbLimboEligible = !r.IsFinalImportEligible &&
		r.HasPlant && r.HasPlantUnit && r.HasComponent && r.HasEffectiveEntity

	if r.IsFinalImportEligible {
		return nil
	}
	for _, m := range []struct {
		ok   bool
		what string
	}{
		{r.HasPlant, "Plant"},
		{r.HasPlantUnit, "PlantUnit"},
		{r.HasPlantSection, "PlantSection"},
		{r.HasEquipment || r.EquipmentReplacedByComponent, "Equipment"},
		{r.HasComponent, "Component"},
		{r.HasEffectiveDiscipline, "Discipline"},
		{r.HasEffectiveEntity, "Entity"},
		{!r.IsTagEmptyOrWhitespace, "tag"},
		{r.HasAnyTokens, "tokens"},
	} {
		if !m.ok {
			r.message("not final-import eligible: missing %s", m.what)
			p.log.Debug("missing part", zap.String("item", r.ItemID), zap.String("part", m.what))
		}
	}
	return nil
}

func (p *Pipeline) bucketAssignment(r *Result) error {
	switch {
	case r.IsFinalImportEligible:
		r.QualityBucket = BucketFinalImport
	case r.IsDbLimboEligible:
		r.QualityBucket = BucketDbLimbo
	default:
		r.QualityBucket = BucketMdbLimbo
	}
	r.IsValid = len(r.Errors) == 0 && !r.Tokens.HasErrors() && r.QualityBucket != BucketUnknown
	return nil
}

func (p *Pipeline) routeResolution(r *Result) error {
	r.Route = r.QualityBucket.Route()
	r.TargetServerKey = r.Tokens.Tokens.Value(token.KeyEntity)
	r.TargetMdbKey = r.Tokens.Tokens.Value(token.KeyPlant)
	return nil
}

// consistency cross-checks the bucket against the eligibility flags and
// derives the quality label. It always marks the result checked.
func (p *Pipeline) consistency(r *Result) error {
	defer func() { r.IsConsistencyChecked = true }()

	if err := checkBucket(r); err != nil {
		r.fail("%v", err)
		r.IsValid = false
		p.log.Warn("inconsistent disposition", zap.String("item", r.ItemID), zap.Error(err))
	}
	r.QualityLabel = p.qualityLabel(r)
	return nil
}

func checkBucket(r *Result) error {
	switch r.QualityBucket {
	case BucketFinalImport:
		if !r.IsFinalImportEligible {
			return fmt.Errorf("bucket FinalImport without final-import eligibility: %w", internalerr.ErrConsistency)
		}
	case BucketDbLimbo:
		if !r.IsDbLimboEligible {
			return fmt.Errorf("bucket DbLimbo without db-limbo eligibility: %w", internalerr.ErrConsistency)
		}
	case BucketMdbLimbo:
		if r.IsFinalImportEligible || r.IsDbLimboEligible {
			return fmt.Errorf("bucket MdbLimbo while eligible for a better bucket: %w", internalerr.ErrConsistency)
		}
	default:
		return fmt.Errorf("bucket %s is not a valid outcome: %w", r.QualityBucket, internalerr.ErrConsistency)
	}
	return nil
}

func (p *Pipeline) qualityLabel(r *Result) string {
	switch r.QualityBucket {
	case BucketFinalImport:
		if r.Tokens != nil && r.Tokens.Score0to100 >= p.opts.HighScore {
			return "High"
		}
		return "Medium"
	case BucketDbLimbo:
		return "Medium"
	case BucketMdbLimbo:
		return "Low"
	}
	return "Undefined"
}
