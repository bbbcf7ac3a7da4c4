package sandbox

import (
	"reflect"
	"testing"
	"time"

	"github.com/healthsphere/admin/internal/domain/hospital"
)

var anchor = time.Date(2025, 4, 15, 0, 0, 0, 0, time.UTC)

func TestDataGenerator_Deterministic(t *testing.T) {
	a := NewDataGenerator(7)
	b := NewDataGenerator(7)
	for i := 0; i < 10; i++ {
		if pa, pb := a.GeneratePatient(), b.GeneratePatient(); !reflect.DeepEqual(pa, pb) {
			t.Fatalf("iteration %d: same seed produced %+v and %+v", i, pa, pb)
		}
	}
}

func TestDataGenerator_GeneratePatient(t *testing.T) {
	p := NewDataGenerator(42).GeneratePatient()
	if p.Firstname == "" || p.Name == "" {
		t.Fatalf("expected names, got %+v", p)
	}
	if _, ok := hospital.ParseDay(p.Birthdate); !ok {
		t.Errorf("expected a parseable birthdate, got %q", p.Birthdate)
	}
	if p.WardID != nil {
		t.Error("expected generated patients to start without a ward")
	}
}

func TestDataGenerator_GenerateDoctor(t *testing.T) {
	d := NewDataGenerator(42).GenerateDoctor([]string{"Radiologie"})
	if d.Department != "Radiologie" {
		t.Errorf("expected department from the list, got %q", d.Department)
	}
	if d.Salary == nil || *d.Salary < 4500 {
		t.Errorf("expected a plausible salary, got %v", d.Salary)
	}
}

func TestDataGenerator_GenerateWard_UniqueNames(t *testing.T) {
	gen := NewDataGenerator(42)
	seen := map[string]bool{}
	for i := 0; i < 20; i++ {
		w := gen.GenerateWard(i)
		if seen[w.WardName] {
			t.Fatalf("duplicate ward name %q", w.WardName)
		}
		seen[w.WardName] = true
		if w.Capacity < 4 {
			t.Errorf("expected capacity >= 4, got %d", w.Capacity)
		}
	}
}

func TestDataGenerator_GenerateTreatment_NearAnchor(t *testing.T) {
	gen := NewDataGenerator(42)
	for i := 0; i < 50; i++ {
		tr := gen.GenerateTreatment(1, 2, anchor)
		day, ok := hospital.ParseDay(tr.Date)
		if !ok {
			t.Fatalf("unparseable date %q", tr.Date)
		}
		if diff := day.Sub(anchor); diff < -45*24*time.Hour || diff > 45*24*time.Hour {
			t.Fatalf("date %s too far from anchor", tr.Date)
		}
		if tr.Therapy == "" {
			t.Fatal("expected a therapy")
		}
	}
}

func TestSeeder_Generate(t *testing.T) {
	cfg := DefaultSeedConfig()
	cfg.Anchor = anchor
	store := NewStore()

	result, err := NewSeeder(cfg).Generate(store)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	counts := store.Counts()
	if counts.Wards != cfg.Wards || result.Wards != cfg.Wards {
		t.Errorf("expected %d wards, got %d (result %d)", cfg.Wards, counts.Wards, result.Wards)
	}
	if counts.Doctors != cfg.Doctors {
		t.Errorf("expected %d employees, got %d", cfg.Doctors, counts.Doctors)
	}
	if counts.Patients != cfg.Patients {
		t.Errorf("expected %d patients, got %d", cfg.Patients, counts.Patients)
	}
	if want := cfg.Patients * cfg.TreatmentsPerPatient; counts.Treatments != want || result.Treatments != want {
		t.Errorf("expected %d treatments, got %d", want, counts.Treatments)
	}

	for _, wc := range store.Capacities() {
		if wc.CurrentOccupancy > wc.TotalCapacity {
			t.Errorf("ward %s over capacity: %d/%d", wc.WardName, wc.CurrentOccupancy, wc.TotalCapacity)
		}
	}
}

func TestSeeder_SameSeedSameData(t *testing.T) {
	cfg := DefaultSeedConfig()
	cfg.Anchor = anchor

	a, b := NewStore(), NewStore()
	if _, err := NewSeeder(cfg).Generate(a); err != nil {
		t.Fatal(err)
	}
	if _, err := NewSeeder(cfg).Generate(b); err != nil {
		t.Fatal(err)
	}
	if !reflect.DeepEqual(a.Treatments(), b.Treatments()) {
		t.Error("expected identical treatments for the same seed")
	}
	if !reflect.DeepEqual(a.Patients(), b.Patients()) {
		t.Error("expected identical patients for the same seed")
	}
}

func TestSeeder_GenerateResets(t *testing.T) {
	cfg := SeedConfig{Wards: 1, Patients: 2, Doctors: 1, TreatmentsPerPatient: 1, Seed: 1, Anchor: anchor}
	store := NewStore()
	seeder := NewSeeder(cfg)
	if _, err := seeder.Generate(store); err != nil {
		t.Fatal(err)
	}
	if _, err := seeder.Generate(store); err != nil {
		t.Fatal(err)
	}
	if got := store.Counts(); got.Patients != 2 || got.Treatments != 2 {
		t.Errorf("expected a fresh data set, got %+v", got)
	}
}
