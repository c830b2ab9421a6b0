package domain

// Gender selections accepted by the summary table filter.
const (
	GenderAll    = "All"
	GenderMale   = "Male"
	GenderFemale = "Female"
)

// Subject is one row of the spirometry population. Values holds every export
// column in Columns order; the typed fields are the ones the filter reads.
type Subject struct {
	Values []any `json:"values"`

	Age    float64 `json:"age"`
	Height float64 `json:"height"`
	Weight float64 `json:"weight"`
	BMI    float64 `json:"bmi"`
	Gender string  `json:"gender"`

	// Complete is false when any export column was empty in the source.
	Complete bool `json:"complete"`
}

// PopulationFilter selects subjects for the summary table and its export.
// Range bounds are inclusive.
type PopulationFilter struct {
	Gender    string  `json:"gender" query:"gender" validate:"omitempty,oneof=All Male Female"`
	AgeMin    float64 `json:"age_min" query:"age_min" validate:"gte=0"`
	AgeMax    float64 `json:"age_max" query:"age_max" validate:"gtefield=AgeMin"`
	HeightMin float64 `json:"height_min" query:"height_min" validate:"gte=0"`
	HeightMax float64 `json:"height_max" query:"height_max" validate:"gtefield=HeightMin"`
	WeightMin float64 `json:"weight_min" query:"weight_min" validate:"gte=0"`
	WeightMax float64 `json:"weight_max" query:"weight_max" validate:"gtefield=WeightMin"`
	BMIMin    float64 `json:"bmi_min" query:"bmi_min" validate:"gte=0"`
	BMIMax    float64 `json:"bmi_max" query:"bmi_max" validate:"gtefield=BMIMin"`
}

// DefaultPopulationFilter returns the slider ranges the summary table starts with.
func DefaultPopulationFilter() PopulationFilter {
	return PopulationFilter{
		Gender:    GenderAll,
		AgeMin:    1,
		AgeMax:    28,
		HeightMin: 80,
		HeightMax: 200,
		WeightMin: 10,
		WeightMax: 200,
		BMIMin:    10,
		BMIMax:    60,
	}
}

// Matches reports whether s passes the filter. Incomplete subjects never match.
func (f PopulationFilter) Matches(s Subject) bool {
	if !s.Complete {
		return false
	}
	if f.Gender != "" && f.Gender != GenderAll && s.Gender != f.Gender {
		return false
	}
	return s.Height >= f.HeightMin && s.Height <= f.HeightMax &&
		s.Weight >= f.WeightMin && s.Weight <= f.WeightMax &&
		s.Age >= f.AgeMin && s.Age <= f.AgeMax &&
		s.BMI >= f.BMIMin && s.BMI <= f.BMIMax
}

// SummaryRow is the subset of columns shown in the summary table.
type SummaryRow struct {
	SEQN        any `json:"SEQN"`
	FVCMax      any `json:"FVC_MAX"`
	Age         any `json:"AGE"`
	Gender      any `json:"GENDER2"`
	Height      any `json:"HEIGHT"`
	BMI         any `json:"BMI"`
	SessionBest any `json:"SESSION_BEST"`
}

// SummaryColumns lists the summary table columns with their display titles.
var SummaryColumns = []struct {
	Field string `json:"field"`
	Title string `json:"title"`
}{
	{ColSEQN, "SEQN"},
	{ColFVCMax, "FVC (ml)"},
	{ColAge, "AGE (years)"},
	{ColGender2, "GENDER"},
	{ColHeight, "HEIGHT (cm)"},
	{ColBMI, "BMI"},
	{ColSessionBest, "SESSION MAXIMUM (ml)"},
}
