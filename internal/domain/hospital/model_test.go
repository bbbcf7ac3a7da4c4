package hospital

import (
	"encoding/json"
	"testing"
)

func TestPatient_JSONShape(t *testing.T) {
	raw := `{"personId":3,"firstname":"Anna","name":"Schmidt","birthdate":"1980-02-01","adress":"Main St 1","wardId":null}`
	var p Patient
	if err := json.Unmarshal([]byte(raw), &p); err != nil {
		t.Fatalf("unmarshal: %v", err)
	}
	if p.PersonID != 3 || p.FullName() != "Anna Schmidt" {
		t.Errorf("unexpected patient %+v", p)
	}
	if p.WardID != nil {
		t.Errorf("expected nil ward, got %d", *p.WardID)
	}
	if p.Adress != "Main St 1" {
		t.Errorf("adress = %q", p.Adress)
	}
}

func TestDoctor_FullNameTrims(t *testing.T) {
	d := Doctor{Name: "House"}
	if d.FullName() != "House" {
		t.Errorf("FullName() = %q, want House", d.FullName())
	}
}

func TestWardCapacity_OccupancyPercent(t *testing.T) {
	w := WardCapacity{TotalCapacity: 8, CurrentOccupancy: 6}
	if got := w.OccupancyPercent(); got != 75 {
		t.Errorf("OccupancyPercent() = %d, want 75", got)
	}
	if (WardCapacity{}).OccupancyPercent() != 0 {
		t.Error("expected 0 for zero capacity")
	}
}
