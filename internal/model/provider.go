package model

import (
	"strings"

	"github.com/google/uuid"
)

// Column order of every per-combination and merged CSV file.
var Columns = []string{
	"Name",
	"Address",
	"Email",
	"Phone",
	"Locality",
	"Province",
	"Latitude",
	"Longitude",
	"Neighborhood",
	"Plan",
	"Specialty",
}

// IdentityColumns is how many leading columns form the identity key.
const IdentityColumns = 9

type Plan struct {
	ID   string
	Name string
}

// Slug is the plan name as used in file names and the Plan column.
func (p Plan) Slug() string {
	return strings.ReplaceAll(p.Name, " ", "_")
}

type Province struct {
	ID   string
	Name string
	Type string
}

type Specialty struct {
	ID    string
	Label string
}

// Identity recognizes one provider location across files.
type Identity struct {
	Name         string
	Address      string
	Email        string
	Phone        string
	Locality     string
	Province     string
	Latitude     string
	Longitude    string
	Neighborhood string
}

func (id Identity) fields() []string {
	return []string{id.Name, id.Address, id.Email, id.Phone, id.Locality, id.Province, id.Latitude, id.Longitude, id.Neighborhood}
}

// locationNamespace scopes LocationID so ids never collide with other
// name-based UUIDs.
var locationNamespace = uuid.NewSHA1(uuid.NameSpaceURL, []byte("https://www.osde.com.ar/Cartilla/prestador"))

// LocationID is a stable id derived from the identity fields, the same
// across runs for the same provider location.
func LocationID(id Identity) uuid.UUID {
	return uuid.NewSHA1(locationNamespace, []byte(strings.Join(id.fields(), "\x1f")))
}

// Less orders identities field by field in column order.
func (id Identity) Less(other Identity) bool {
	a, b := id.fields(), other.fields()
	for i := range a {
		if a[i] != b[i] {
			return a[i] < b[i]
		}
	}
	return false
}

// Row is one (provider, office) pair with its plan and specialty.
type Row struct {
	Identity
	Plan      string
	Specialty string
}

// Record renders the row in Columns order.
func (r Row) Record() []string {
	return append(r.Identity.fields(), r.Plan, r.Specialty)
}

// RowFromRecord builds a row from values in Columns order. Short records
// leave the trailing fields empty.
func RowFromRecord(rec []string) Row {
	v := make([]string, len(Columns))
	copy(v, rec)
	return Row{
		Identity: Identity{
			Name:         v[0],
			Address:      v[1],
			Email:        v[2],
			Phone:        v[3],
			Locality:     v[4],
			Province:     v[5],
			Latitude:     v[6],
			Longitude:    v[7],
			Neighborhood: v[8],
		},
		Plan:      v[9],
		Specialty: v[10],
	}
}

// MergedRow is one distinct identity with the comma-joined union of the
// plans and specialties it appeared under.
type MergedRow struct {
	Identity
	Plans       string
	Specialties string
}

func (m MergedRow) Record() []string {
	return append(m.Identity.fields(), m.Plans, m.Specialties)
}

// FetchOutcome records what one plan/province/specialty query produced.
type FetchOutcome struct {
	RunID     string
	PlanID    string
	Plan      string
	Province  string
	Specialty string
	Kind      string
	Status    int
	Attempts  int
	Rows      int
}

// ComboKey names one plan/province/specialty combination.
func ComboKey(plan Plan, province Province, specialty Specialty) string {
	return plan.ID + ":" + province.Type + ":" + province.ID + ":" + specialty.ID
}
