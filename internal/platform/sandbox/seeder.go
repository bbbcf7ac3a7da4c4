// Package sandbox is an in-memory stand-in for the hospital backend. It
// serves the same REST surface from a seeded, reproducible data set for
// demos, local development and end-to-end tests of the console.
package sandbox

import (
	"fmt"
	"math/rand"
	"time"

	"github.com/healthsphere/admin/internal/domain/hospital"
)

// ---------------------------------------------------------------------------
// Configuration
// ---------------------------------------------------------------------------

// SeedConfig controls the volume and shape of the generated data set.
type SeedConfig struct {
	Wards                int       `json:"wards"`
	Patients             int       `json:"patients"`
	Doctors              int       `json:"employees"`
	TreatmentsPerPatient int       `json:"treatmentsPerPatient"`
	Departments          []string  `json:"departments,omitempty"`
	Anchor               time.Time `json:"anchor"`
	Seed                 int64     `json:"seed"`
}

// DefaultSeedConfig fills a hospital large enough for the calendar to look
// busy around the anchor date.
func DefaultSeedConfig() SeedConfig {
	return SeedConfig{
		Wards:                5,
		Patients:             40,
		Doctors:              12,
		TreatmentsPerPatient: 3,
		Seed:                 42,
	}
}

// SeedResult summarizes a seed run.
type SeedResult struct {
	Wards      int           `json:"wards"`
	Patients   int           `json:"patients"`
	Doctors    int           `json:"employees"`
	Treatments int           `json:"treatments"`
	Unplaced   int           `json:"unplaced"`
	Duration   time.Duration `json:"duration"`
}

// ---------------------------------------------------------------------------
// Pools
// ---------------------------------------------------------------------------

var (
	firstNames = []string{
		"Anna", "Ben", "Clara", "David", "Elena", "Felix", "Greta", "Hannes",
		"Ida", "Jonas", "Karla", "Lukas", "Mia", "Noah", "Olivia", "Paul",
		"Romy", "Simon", "Tilda", "Udo", "Vera", "Wilhelm", "Yara", "Zoe",
	}

	lastNames = []string{
		"Becker", "Fischer", "Hoffmann", "Koch", "Krüger", "Lange", "Meyer",
		"Müller", "Neumann", "Richter", "Schmidt", "Schneider", "Schulz",
		"Wagner", "Weber", "Wolf", "Zimmermann",
	}

	streets = []string{
		"Hauptstraße", "Gartenweg", "Bahnhofstraße", "Lindenallee",
		"Schulstraße", "Bergstraße", "Am Markt", "Rosenweg",
	}

	cities = []string{
		"Berlin", "Hamburg", "München", "Köln", "Leipzig", "Dresden", "Bremen",
	}

	defaultDepartments = []string{
		"Kardiologie", "Neurologie", "Chirurgie", "Orthopädie", "Pädiatrie",
		"Radiologie", "Innere Medizin",
	}

	wardNames = []string{
		"Kardiologie A", "Intensivstation", "Chirurgie B", "Neurologie",
		"Kinderstation", "Geriatrie", "Orthopädie C", "Onkologie",
	}

	therapies = []string{
		"Physiotherapie Knie",
		"Physiotherapie Rücken",
		"Operation Hüfte",
		"Chirurgische Wundversorgung",
		"Medikamentöse Einstellung Blutdruck",
		"Arzneimittelumstellung",
		"Diagnostik MRT Kopf",
		"Untersuchung Blutbild",
		"Beratungsgespräch",
		"Verbandswechsel",
	}
)

// ---------------------------------------------------------------------------
// DataGenerator
// ---------------------------------------------------------------------------

// DataGenerator produces deterministic hospital records.
type DataGenerator struct {
	rng *rand.Rand
}

// NewDataGenerator returns a generator seeded for reproducibility. If seed is
// 0 a time-based seed is chosen.
func NewDataGenerator(seed int64) *DataGenerator {
	if seed == 0 {
		seed = time.Now().UnixNano()
	}
	return &DataGenerator{rng: rand.New(rand.NewSource(seed))}
}

func (g *DataGenerator) pick(pool []string) string {
	return pool[g.rng.Intn(len(pool))]
}

func (g *DataGenerator) randomBirthdate(minYear, maxYear int) string {
	y := minYear + g.rng.Intn(maxYear-minYear+1)
	m := 1 + g.rng.Intn(12)
	d := 1 + g.rng.Intn(28) // valid in every month
	return fmt.Sprintf("%04d-%02d-%02d", y, m, d)
}

func (g *DataGenerator) randomPhone() string {
	return fmt.Sprintf("0%d %07d", 30+g.rng.Intn(60), g.rng.Intn(10000000))
}

func (g *DataGenerator) person() (first, last, phone, email, address string) {
	first = g.pick(firstNames)
	last = g.pick(lastNames)
	phone = g.randomPhone()
	email = fmt.Sprintf("%s.%s@example.org", first, last)
	address = fmt.Sprintf("%s %d, %s", g.pick(streets), 1+g.rng.Intn(120), g.pick(cities))
	return
}

// GeneratePatient produces a patient without a ward.
func (g *DataGenerator) GeneratePatient() hospital.Patient {
	first, last, phone, email, address := g.person()
	return hospital.Patient{
		Firstname:   first,
		Name:        last,
		Phonenumber: phone,
		Email:       email,
		Birthdate:   g.randomBirthdate(1935, 2015),
		Adress:      address,
	}
}

// GenerateDoctor produces a doctor of one of the departments.
func (g *DataGenerator) GenerateDoctor(departments []string) hospital.Doctor {
	first, last, phone, email, address := g.person()
	salary := float64(4500+g.rng.Intn(7000)) + float64(g.rng.Intn(100))/100
	return hospital.Doctor{
		Firstname:   first,
		Name:        last,
		Phonenumber: phone,
		Email:       email,
		Birthdate:   g.randomBirthdate(1960, 1995),
		Adress:      address,
		Department:  g.pick(departments),
		Salary:      &salary,
	}
}

// GenerateWard produces the i-th ward.
func (g *DataGenerator) GenerateWard(i int) hospital.Ward {
	name := wardNames[i%len(wardNames)]
	if i >= len(wardNames) {
		name = fmt.Sprintf("%s %d", name, i/len(wardNames)+1)
	}
	return hospital.Ward{
		WardName:    name,
		Capacity:    4 + g.rng.Intn(12),
		Description: "Station " + name,
	}
}

// GenerateTreatment produces a treatment within 45 days of anchor.
func (g *DataGenerator) GenerateTreatment(patientID, doctorID int64, anchor time.Time) hospital.Treatment {
	day := hospital.Day(anchor).AddDate(0, 0, g.rng.Intn(91)-45)
	return hospital.Treatment{
		Date:            hospital.DayKey(day),
		Therapy:         g.pick(therapies),
		PatientPersonID: patientID,
		DoctorPersonID:  doctorID,
	}
}

// ---------------------------------------------------------------------------
// Seeder
// ---------------------------------------------------------------------------

// Seeder fills a Store with a generated data set.
type Seeder struct {
	generator *DataGenerator
	config    SeedConfig
}

func NewSeeder(config SeedConfig) *Seeder {
	if len(config.Departments) == 0 {
		config.Departments = defaultDepartments
	}
	if config.Anchor.IsZero() {
		config.Anchor = time.Now()
	}
	return &Seeder{
		generator: NewDataGenerator(config.Seed),
		config:    config,
	}
}

// Generate resets store and fills it. About two thirds of the patients get
// a bed; patients whose ward is full stay unplaced.
func (s *Seeder) Generate(store *Store) (*SeedResult, error) {
	start := time.Now()
	store.Reset()
	result := &SeedResult{}

	var wardIDs []int64
	for i := 0; i < s.config.Wards; i++ {
		w, err := store.CreateWard(s.generator.GenerateWard(i))
		if err != nil {
			return nil, fmt.Errorf("seed ward %d: %w", i, err)
		}
		wardIDs = append(wardIDs, w.WardID)
	}
	result.Wards = len(wardIDs)

	var doctorIDs []int64
	for i := 0; i < s.config.Doctors; i++ {
		d := s.generator.GenerateDoctor(s.config.Departments)
		if len(wardIDs) > 0 && s.generator.rng.Intn(2) == 0 {
			id := wardIDs[s.generator.rng.Intn(len(wardIDs))]
			d.WardID = &id
		}
		created, err := store.CreateDoctor(d)
		if err != nil {
			return nil, fmt.Errorf("seed employee %d: %w", i, err)
		}
		doctorIDs = append(doctorIDs, created.PersonID)
	}
	result.Doctors = len(doctorIDs)

	for i := 0; i < s.config.Patients; i++ {
		p := s.generator.GeneratePatient()
		if len(wardIDs) > 0 && s.generator.rng.Intn(3) > 0 {
			id := wardIDs[s.generator.rng.Intn(len(wardIDs))]
			p.WardID = &id
		}
		created, err := store.CreatePatient(p)
		if err != nil {
			// Full ward: admit without a bed.
			p.WardID = nil
			result.Unplaced++
			if created, err = store.CreatePatient(p); err != nil {
				return nil, fmt.Errorf("seed patient %d: %w", i, err)
			}
		}
		result.Patients++

		if len(doctorIDs) == 0 {
			continue
		}
		for j := 0; j < s.config.TreatmentsPerPatient; j++ {
			doctorID := doctorIDs[(i+j)%len(doctorIDs)]
			t := s.generator.GenerateTreatment(created.PersonID, doctorID, s.config.Anchor)
			if _, err := store.CreateTreatment(t); err != nil {
				return nil, fmt.Errorf("seed treatment: %w", err)
			}
			result.Treatments++
		}
	}

	result.Duration = time.Since(start)
	return result, nil
}
