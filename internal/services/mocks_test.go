package services

import (
	"github.com/stretchr/testify/mock"

	"spiroexport/internal/population"
	"spiroexport/pkg/contracts/domain"
)

// MockPopulationSource is a mock for PopulationSource
type MockPopulationSource struct {
	mock.Mock
}

func (m *MockPopulationSource) Filter(f domain.PopulationFilter) ([]domain.Subject, error) {
	args := m.Called(f)
	subjects, _ := args.Get(0).([]domain.Subject)
	return subjects, args.Error(1)
}

func (m *MockPopulationSource) Stats() population.Stats {
	args := m.Called()
	return args.Get(0).(population.Stats)
}

func subject(seqn int64, gender string, age, height float64) domain.Subject {
	values := make([]any, len(domain.Columns))
	for i := range values {
		values[i] = int64(0)
	}
	set := func(col string, v any) {
		for i, c := range domain.Columns {
			if c == col {
				values[i] = v
			}
		}
	}
	set(domain.ColSEQN, seqn)
	set(domain.ColRawCurve, "0.1;0.2")
	set(domain.ColFVCMax, 3100.5)
	set(domain.ColAge, age)
	set(domain.ColGender2, gender)
	set(domain.ColGender, "M")
	set(domain.ColHeight, height)
	set(domain.ColBMI, 18.25)
	set(domain.ColSessionBest, int64(3150))

	return domain.Subject{
		Values:   values,
		Age:      age,
		Height:   height,
		Weight:   40,
		BMI:      18.25,
		Gender:   gender,
		Complete: true,
	}
}
