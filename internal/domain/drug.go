package domain

import (
	"strings"
	"time"
)

type Category string

const (
	CategoryAntibiotics       Category = "antibiotics"
	CategoryAnalgesics        Category = "analgesics"
	CategoryAntipyretics      Category = "antipyretics"
	CategoryAntidepressants   Category = "antidepressants"
	CategoryAntihypertensives Category = "antihypertensives"
	CategoryDiabetes          Category = "diabetes"
	CategoryCardiology        Category = "cardiology"
	CategoryRespiratory       Category = "respiratory"
	CategoryGastrointestinal  Category = "gastrointestinal"
	CategoryDermatology       Category = "dermatology"
	CategoryVitamins          Category = "vitamins"
	CategorySupplements       Category = "supplements"
	CategoryFirstAid          Category = "first-aid"
	CategoryContraceptives    Category = "contraceptives"
	CategoryOther             Category = "other"
)

var categories = map[Category]struct{}{
	CategoryAntibiotics: {}, CategoryAnalgesics: {}, CategoryAntipyretics: {},
	CategoryAntidepressants: {}, CategoryAntihypertensives: {}, CategoryDiabetes: {},
	CategoryCardiology: {}, CategoryRespiratory: {}, CategoryGastrointestinal: {},
	CategoryDermatology: {}, CategoryVitamins: {}, CategorySupplements: {},
	CategoryFirstAid: {}, CategoryContraceptives: {}, CategoryOther: {},
}

func (c Category) Valid() bool {
	_, ok := categories[c]
	return ok
}

type Form string

const (
	FormTablet    Form = "tablet"
	FormCapsule   Form = "capsule"
	FormSyrup     Form = "syrup"
	FormInjection Form = "injection"
	FormOintment  Form = "ointment"
	FormCream     Form = "cream"
	FormDrops     Form = "drops"
	FormInhaler   Form = "inhaler"
	FormOther     Form = "other"
)

var forms = map[Form]struct{}{
	FormTablet: {}, FormCapsule: {}, FormSyrup: {}, FormInjection: {}, FormOintment: {},
	FormCream: {}, FormDrops: {}, FormInhaler: {}, FormOther: {},
}

func (f Form) Valid() bool {
	_, ok := forms[f]
	return ok
}

type Strength struct {
	Value float64 `dynamodbav:"value" json:"value"`
	Unit  string  `dynamodbav:"unit"  json:"unit"`
}

type Drug struct {
	DrugID               string    `dynamodbav:"drug_id"               json:"drug_id"`
	Name                 string    `dynamodbav:"name"                  json:"name"`
	GenericName          string    `dynamodbav:"generic_name"          json:"generic_name,omitempty"`
	Brand                string    `dynamodbav:"brand"                 json:"brand,omitempty"`
	Description          string    `dynamodbav:"description"           json:"description,omitempty"`
	Manufacturer         string    `dynamodbav:"manufacturer"          json:"manufacturer,omitempty"`
	Category             Category  `dynamodbav:"category"              json:"category"`
	Form                 Form      `dynamodbav:"form"                  json:"form"`
	Strength             *Strength `dynamodbav:"strength,omitempty"    json:"strength,omitempty"`
	PrescriptionRequired bool      `dynamodbav:"prescription_required" json:"prescription_required"`
	IsActive             bool      `dynamodbav:"is_active"             json:"is_active"`
	SearchText           string    `dynamodbav:"search_text"           json:"-"`
	CreatedAt            time.Time `dynamodbav:"created_at"            json:"created_at"`
	UpdatedAt            time.Time `dynamodbav:"updated_at"            json:"updated_at"`
}

// Matches reports whether the lower-cased term is a substring of any
// searchable field.
func (d *Drug) Matches(term string) bool {
	if term == "" {
		return true
	}
	return strings.Contains(BuildSearchText(d), strings.ToLower(term))
}

// BuildSearchText joins the searchable fields in lower case, one per line, so
// a term never matches across a field boundary.
func BuildSearchText(d *Drug) string {
	return strings.ToLower(strings.Join([]string{d.Name, d.GenericName, d.Brand, d.Description}, "\n"))
}

type DrugRequest struct {
	Name                 string    `json:"name"                  binding:"required,max=100"`
	GenericName          string    `json:"generic_name"          binding:"max=100"`
	Brand                string    `json:"brand"                 binding:"max=50"`
	Description          string    `json:"description"           binding:"max=500"`
	Manufacturer         string    `json:"manufacturer"`
	Category             Category  `json:"category"              binding:"required"`
	Form                 Form      `json:"form"                  binding:"required"`
	Strength             *Strength `json:"strength"`
	PrescriptionRequired bool      `json:"prescription_required"`
}

func (r DrugRequest) Validate() error {
	if strings.TrimSpace(r.Name) == "" {
		return invalid("name", "is required")
	}
	if !r.Category.Valid() {
		return invalid("category", "unknown category "+string(r.Category))
	}
	if !r.Form.Valid() {
		return invalid("form", "unknown form "+string(r.Form))
	}
	if r.Strength != nil && r.Strength.Value < 0 {
		return invalid("strength", "value cannot be negative")
	}
	return nil
}

// DrugFilter is the structured catalog query. Every set field narrows the
// result (AND); Term is matched against name, generic name, brand and
// description (OR across those fields).
type DrugFilter struct {
	Term                 string
	Category             Category
	Form                 Form
	PrescriptionRequired *bool
	MinStrength          *float64
	MaxStrength          *float64
}

func (f DrugFilter) HasFilters() bool {
	return f.Category != "" || f.Form != "" || f.PrescriptionRequired != nil ||
		f.MinStrength != nil || f.MaxStrength != nil
}

func (f DrugFilter) Validate() error {
	if strings.TrimSpace(f.Term) == "" && !f.HasFilters() {
		return ErrEmptyQuery
	}
	if f.Category != "" && !f.Category.Valid() {
		return invalid("category", "unknown category "+string(f.Category))
	}
	if f.Form != "" && !f.Form.Valid() {
		return invalid("form", "unknown form "+string(f.Form))
	}
	if f.MinStrength != nil && f.MaxStrength != nil && *f.MinStrength > *f.MaxStrength {
		return invalid("strength", "min_strength exceeds max_strength")
	}
	return nil
}

// Accept evaluates the filter against a drug in process. Storage backends
// translate the same filter into their native query language.
func (f DrugFilter) Accept(d *Drug) bool {
	if !d.IsActive {
		return false
	}
	if f.Category != "" && d.Category != f.Category {
		return false
	}
	if f.Form != "" && d.Form != f.Form {
		return false
	}
	if f.PrescriptionRequired != nil && d.PrescriptionRequired != *f.PrescriptionRequired {
		return false
	}
	if f.MinStrength != nil || f.MaxStrength != nil {
		if d.Strength == nil {
			return false
		}
		if f.MinStrength != nil && d.Strength.Value < *f.MinStrength {
			return false
		}
		if f.MaxStrength != nil && d.Strength.Value > *f.MaxStrength {
			return false
		}
	}
	return d.Matches(strings.TrimSpace(f.Term))
}
