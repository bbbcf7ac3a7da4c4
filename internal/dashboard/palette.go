package dashboard

import (
	"sort"

	"github.com/healthsphere/admin/internal/domain/hospital"
)

// Colors is the fixed doctor palette. Duplicates are intentional; the
// palette wraps after 24 doctors.
var Colors = []string{
	"#007bff", "#28a745", "#ffc107", "#dc3545", "#6f42c1", "#fd7e14", "#20c997", "#e83e8c",
	"#17a2b8", "#6c757d", "#343a40", "#f8f9fa", "#e9ecef", "#dee2e6", "#ced4da", "#adb5bd",
	"#6610f2", "#e21e7e", "#fd7e14", "#20c997", "#0dcaf0", "#198754", "#ffc107", "#fd7e14",
}

// Palette assigns every doctor a colour by its rank in ascending id order.
// It depends only on the doctor list, never on filters.
type Palette struct {
	rank map[int64]int
}

func NewPalette(doctors []hospital.Doctor) Palette {
	ids := make([]int64, len(doctors))
	for i, d := range doctors {
		ids[i] = d.PersonID
	}
	sort.Slice(ids, func(i, j int) bool { return ids[i] < ids[j] })
	rank := make(map[int64]int, len(ids))
	for i, id := range ids {
		if _, dup := rank[id]; !dup {
			rank[id] = i
		}
	}
	return Palette{rank: rank}
}

// Color returns the doctor's colour; unknown doctors get the first colour.
func (p Palette) Color(doctorID int64) string {
	i, ok := p.rank[doctorID]
	if !ok {
		return Colors[0]
	}
	return Colors[i%len(Colors)]
}
