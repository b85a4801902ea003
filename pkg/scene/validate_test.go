package scene

import (
	"strings"
	"testing"
)

// buildTable creates a valid scene: a top and a leg placed under it,
// both reachable from a group root.
func buildTable() *Scene {
	s := New()

	topID := NewNodeID("solid/top")
	legID := NewNodeID("solid/leg")
	placeID := NewNodeID("place/leg/1")
	groupID := NewNodeID("group/table")

	s.AddNode(&Node{
		ID: topID, Kind: KindSolid, Name: "top",
		Data: SolidData{Shape: ShapeBox, Size: Vec3{100, 60, 4}},
	})
	s.AddNode(&Node{
		ID: legID, Kind: KindSolid, Name: "leg",
		Data: SolidData{Shape: ShapeCylinder, Radius: 3, Height: 70},
	})
	s.AddNode(&Node{
		ID: placeID, Kind: KindTransform, Children: []NodeID{legID},
		Data: TransformData{Translation: &Vec3{10, 10, -35}},
	})
	s.AddNode(&Node{
		ID: groupID, Kind: KindGroup, Name: "table",
		Children: []NodeID{topID, placeID},
		Data:     GroupData{},
	})
	s.AddRoot(groupID)
	return s
}

func hasFinding(errs []ValidationError, sev Severity, substr string) bool {
	for _, e := range errs {
		if e.Severity == sev && strings.Contains(e.Message, substr) {
			return true
		}
	}
	return false
}

func TestValidScene(t *testing.T) {
	errs := Validate(buildTable())
	if len(errs) != 0 {
		t.Fatalf("expected no findings, got %v", errs)
	}
	if HasErrors(errs) {
		t.Error("HasErrors() = true for valid scene")
	}
}

func TestValidateEmptyScene(t *testing.T) {
	if errs := Validate(New()); len(errs) != 0 {
		t.Fatalf("expected no findings, got %v", errs)
	}
}

func TestValidateFindings(t *testing.T) {
	tests := []struct {
		name   string
		mutate func(s *Scene)
		sev    Severity
		substr string
	}{
		{
			name: "cycle",
			mutate: func(s *Scene) {
				leg := s.MustLookup("leg")
				leg.Kind = KindGroup
				leg.Data = GroupData{}
				leg.Children = []NodeID{NewNodeID("group/table")}
			},
			sev:    SeverityError,
			substr: "cycle",
		},
		{
			name: "dangling child",
			mutate: func(s *Scene) {
				g := s.MustLookup("table")
				g.Children = append(g.Children, NewNodeID("solid/missing"))
			},
			sev:    SeverityError,
			substr: "does not exist",
		},
		{
			name:   "dangling root",
			mutate: func(s *Scene) { s.AddRoot(NewNodeID("group/missing")) },
			sev:    SeverityError,
			substr: "root reference",
		},
		{
			name: "duplicate name",
			mutate: func(s *Scene) {
				s.Nodes[NewNodeID("solid/top2")] = &Node{
					ID: NewNodeID("solid/top2"), Kind: KindSolid, Name: "top",
					Data: SolidData{Shape: ShapeSphere, Radius: 1},
				}
			},
			sev:    SeverityError,
			substr: "duplicate name",
		},
		{
			name: "zero size box",
			mutate: func(s *Scene) {
				top := s.MustLookup("top")
				top.Data = SolidData{Shape: ShapeBox, Size: Vec3{100, 0, 4}}
			},
			sev:    SeverityError,
			substr: "non-positive",
		},
		{
			name: "negative radius",
			mutate: func(s *Scene) {
				leg := s.MustLookup("leg")
				leg.Data = SolidData{Shape: ShapeCylinder, Radius: -1, Height: 70}
			},
			sev:    SeverityError,
			substr: "non-positive",
		},
		{
			name: "wrong payload",
			mutate: func(s *Scene) {
				s.MustLookup("top").Data = GroupData{}
			},
			sev:    SeverityError,
			substr: "carries",
		},
		{
			name: "transform without child",
			mutate: func(s *Scene) {
				s.Get(NewNodeID("place/leg/1")).Children = nil
			},
			sev:    SeverityError,
			substr: "want 1",
		},
		{
			name: "orphan",
			mutate: func(s *Scene) {
				s.AddNode(&Node{
					ID: NewNodeID("solid/spare"), Kind: KindSolid, Name: "spare",
					Data: SolidData{Shape: ShapeSphere, Radius: 2},
				})
			},
			sev:    SeverityWarning,
			substr: "orphan",
		},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			s := buildTable()
			tt.mutate(s)
			errs := Validate(s)
			if !hasFinding(errs, tt.sev, tt.substr) {
				t.Errorf("expected %s containing %q, got %v", tt.sev, tt.substr, errs)
			}
			if tt.sev == SeverityWarning && HasErrors(errs) {
				t.Errorf("warning case produced errors: %v", errs)
			}
		})
	}
}

func TestValidationErrorString(t *testing.T) {
	e := ValidationError{Message: "boom", Severity: SeverityWarning}
	if got := e.Error(); got != "[warning] boom" {
		t.Errorf("Error() = %q", got)
	}
	e.NodeID = NodeID("0123456789abcdef")
	if got := e.Error(); got != "[warning] node 01234567: boom" {
		t.Errorf("Error() = %q", got)
	}
}
