// Package registrytest provides a registry set shared by tests across
// packages.
package registrytest

import (
	"testing"

	"github.com/cognicore/plantag/pkg/plantag/registry"
	"github.com/cognicore/plantag/pkg/plantag/token"
)

// Parts returns a complete registry set:
//
//	AGL (Plant) -> PU0 (PlantUnit) -> PS0 (PlantSection) -> EQ0 (Equipment)
//	BRK (Plant) -> PU9 (PlantUnit)
//
// Equipment and Component share the leaf position; Equipment is declared
// first and is the expected slot there.
func Parts() registry.Parts {
	return registry.Parts{
		Codification: []registry.CodificationEntry{
			{Code: "AGL", Type: registry.CodificationPlant},
			{Code: "PU0", Type: registry.CodificationPlantUnit, ParentCode: "AGL"},
			{Code: "PS0", Type: registry.CodificationPlantSection, ParentCode: "PU0"},
			{Code: "EQ0", Type: registry.CodificationEquipment, ParentCode: "PS0"},
			{Code: "BRK", Type: registry.CodificationPlant},
			{Code: "PU9", Type: registry.CodificationPlantUnit, ParentCode: "BRK"},
		},
		Patterns: []registry.PatternSpec{
			{Key: token.KeyPlant, Kind: token.KindBase, Pattern: `^[A-Z]{3}\d{2}$`, Position: 0},
			{Key: token.KeyPlantUnit, Kind: token.KindBase, Pattern: `^PU\d{2,}$`, Position: 1},
			{Key: token.KeyPlantSection, Kind: token.KindBase, Pattern: `^PS\d{2,}$`, Position: 2},
			{Key: token.KeyEquipment, Kind: token.KindBase, Pattern: `^EQ\d{2,}$`, Position: 3},
			{Key: token.KeyComponent, Kind: token.KindBase, Pattern: `^[A-Z]{2}\d{2,}[A-Z]?$`, Position: 3},
			{Key: token.KeyDiscipline, Kind: token.KindSuffix, Position: 5},
			{Key: token.KeyEntity, Kind: token.KindSuffix, Position: 6},
			{Key: "Incremental", Kind: token.KindSuffix, Pattern: `^INC\d*$`, Position: 2, TargetsNext: true},
			{Key: "Composite", Kind: token.KindSuffix, Pattern: `^CMP\d*$`, Position: 3},
			{Key: "Layout", Kind: token.KindSuffix, Pattern: `^(LAY|LAYOUT)$`, Position: 2, Exception: true},
			{Key: "Building", Kind: token.KindSuffix, Pattern: `^(BLD|BLDG|BUILDING)$`, Position: 2, Exception: true},
			{Key: "Walkway", Kind: token.KindSuffix, Pattern: `^(WLK|WALKWAY)$`, Position: 2, Exception: true},
		},
		Disciplines: []string{"ME", "EL", "IN", "PI", "ST"},
		Entities:    []string{"SDE", "PDE", "CDE"},
		Hierarchy: []registry.DisciplineHierarchy{
			{
				Discipline: registry.DefaultDiscipline,
				Roles:      []string{"SITE", "ZONE", "EQUI"},
				RoleSpecs: map[string]registry.RoleSpec{
					"SITE": {BaseKeys: []string{token.KeyPlant}, SuffixKeys: []string{token.KeyDiscipline}},
					"ZONE": {
						BaseKeys:   []string{token.KeyPlant, token.KeyPlantUnit, token.KeyPlantSection},
						SuffixKeys: []string{token.KeyDiscipline},
					},
					"EQUI": {
						BaseKeys:   []string{token.KeyPlant, token.KeyPlantUnit, token.KeyPlantSection, token.KeyEquipment},
						SuffixKeys: []string{token.KeyDiscipline, token.KeyEntity},
					},
				},
			},
			{
				Discipline: "ST",
				Roles:      []string{"SITE", "ZONE", "STRU"},
				RoleSpecs: map[string]registry.RoleSpec{
					"ZONE": {BaseKeys: []string{token.KeyPlant, token.KeyPlantUnit}, SuffixKeys: []string{token.KeyDiscipline}},
				},
			},
			{
				Discipline: "EL",
				Roles:      []string{"SITE", "AREA", "EQUI"},
			},
		},
	}
}

// Snapshot builds Parts into a snapshot, failing the test on error.
func Snapshot(tb testing.TB) *registry.Snapshot {
	tb.Helper()
	s, err := registry.Build(Parts())
	if err != nil {
		tb.Fatalf("build registry fixture: %v", err)
	}
	return s
}
