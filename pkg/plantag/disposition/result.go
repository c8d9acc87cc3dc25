package disposition

import (
	"fmt"

	"github.com/cognicore/plantag/pkg/plantag/tokenize"
)

// Bucket is the quality-based routing class of an item.
type Bucket int

const (
	BucketUnknown Bucket = iota
	BucketFinalImport
	BucketDbLimbo
	BucketMdbLimbo
)

var bucketNames = [...]string{"Unknown", "FinalImport", "DbLimbo", "MdbLimbo"}

func (b Bucket) String() string {
	if b < 0 || int(b) >= len(bucketNames) {
		return fmt.Sprintf("Bucket(%d)", int(b))
	}
	return bucketNames[b]
}

// MarshalText renders the bucket by name.
func (b Bucket) MarshalText() ([]byte, error) { return []byte(b.String()), nil }

// Route labels per bucket.
const (
	RouteProduction = "ProductionHierarchy"
	RouteDbLimbo    = "DbLimboHierarchy"
	RouteMdbLimbo   = "MdbLimboHierarchy"
)

// Route returns the fixed route label of b; empty for Unknown.
func (b Bucket) Route() string {
	switch b {
	case BucketFinalImport:
		return RouteProduction
	case BucketDbLimbo:
		return RouteDbLimbo
	case BucketMdbLimbo:
		return RouteMdbLimbo
	}
	return ""
}

// UnnamedPrefix starts the identifier given to items with an empty tag.
const UnnamedPrefix = "UNNAMED_"

// Result is the disposition context of one item. It is created fresh by
// Pipeline.Run and mutated only by its stages, in order.
type Result struct {
	ItemID     string           `json:"itemId"`
	Discipline string           `json:"discipline,omitempty"`
	Tokens     *tokenize.Result `json:"-"`

	RawInput        string `json:"rawInput"`
	NormalizedInput string `json:"normalizedInput"`
	// Identifier is the raw tag, or UNNAMED_<item id> when the tag is blank.
	Identifier string `json:"identifier"`

	HasPlant                     bool `json:"hasPlant"`
	HasPlantUnit                 bool `json:"hasPlantUnit"`
	HasPlantSection              bool `json:"hasPlantSection"`
	HasEquipment                 bool `json:"hasEquipment"`
	HasComponent                 bool `json:"hasComponent"`
	EquipmentReplacedByComponent bool `json:"equipmentReplacedByComponent"`
	HasEffectiveDiscipline       bool `json:"hasEffectiveDiscipline"`
	HasEffectiveEntity           bool `json:"hasEffectiveEntity"`
	IsTagEmptyOrWhitespace       bool `json:"isTagEmptyOrWhitespace"`
	HasAnyTokens                 bool `json:"hasAnyTokens"`

	IsFinalImportEligible bool `json:"isFinalImportEligible"`
	IsDbLimboEligible     bool `json:"isDbLimboEligible"`

	QualityBucket   Bucket `json:"qualityBucket"`
	QualityLabel    string `json:"qualityLabel"`
	Route           string `json:"route"`
	TargetServerKey string `json:"targetServerKey"`
	TargetMdbKey    string `json:"targetMdbKey"`

	Messages []string `json:"messages"`
	Warnings []string `json:"warnings"`
	Errors   []string `json:"errors"`

	IsValid              bool `json:"isValid"`
	IsConsistencyChecked bool `json:"isConsistencyChecked"`
}

func newResult(itemID, discipline string, tr *tokenize.Result) *Result {
	return &Result{
		ItemID:     itemID,
		Discipline: discipline,
		Tokens:     tr,
		Messages:   []string{},
		Warnings:   []string{},
		Errors:     []string{},
	}
}

func (r *Result) message(format string, args ...any) {
	r.Messages = append(r.Messages, fmt.Sprintf(format, args...))
}

func (r *Result) warn(format string, args ...any) {
	r.Warnings = append(r.Warnings, fmt.Sprintf(format, args...))
}

func (r *Result) fail(format string, args ...any) {
	r.Errors = append(r.Errors, fmt.Sprintf(format, args...))
}
