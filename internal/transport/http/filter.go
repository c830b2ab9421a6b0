package http

import (
	"net/http"

	"spiroexport/internal/middleware"
	"spiroexport/pkg/contracts/domain"
)

var genders = []string{domain.GenderAll, domain.GenderMale, domain.GenderFemale}

// parseFilter reads a population filter from the query string. Absent
// parameters keep the defaults of domain.DefaultPopulationFilter.
func parseFilter(r *http.Request, v *middleware.Validator) (domain.PopulationFilter, error) {
	q := middleware.Query(r)
	f := domain.DefaultPopulationFilter()

	var err error
	if f.Gender, err = q.Enum("gender", genders, f.Gender); err != nil {
		return f, err
	}

	ranges := []struct {
		param string
		dst   *float64
	}{
		{"age_min", &f.AgeMin},
		{"age_max", &f.AgeMax},
		{"height_min", &f.HeightMin},
		{"height_max", &f.HeightMax},
		{"weight_min", &f.WeightMin},
		{"weight_max", &f.WeightMax},
		{"bmi_min", &f.BMIMin},
		{"bmi_max", &f.BMIMax},
	}
	for _, rg := range ranges {
		if *rg.dst, err = q.Float(rg.param, *rg.dst); err != nil {
			return f, err
		}
	}

	return f, v.ValidateStruct(f)
}
