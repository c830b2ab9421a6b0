package exporter

import (
	"spiroexport/pkg/contracts/domain"
)

const expectedHeader = "SEQN,RAW_CURVE,FVC_MAX,FEV1,FEV3,FEV6,PEAK_EXPIRATORY,MAX_MID_EXPIRATORY,PSEUDO_PSU,AGE,GENDER2,GENDER,HEIGHT,WEIGHT,BMI,SESSION_BEST,SESSION_MEAN,SESSION_STD,SESSION_MEDIAN,SESSION_IQR,SESSION_MINIMUM,SESSION_MAXIMUM,SESSION_MAX_DISTANCE,SESSION_MEDIAN_DISTANCE"

// scenarioDataset is a single subject with mixed integer, float and string values.
func scenarioDataset() domain.Dataset {
	return domain.Dataset{
		"SEQN":                    {1},
		"RAW_CURVE":               {"a;b"},
		"FVC_MAX":                 {3.5},
		"FEV1":                    {0},
		"FEV3":                    {0},
		"FEV6":                    {0},
		"PEAK_EXPIRATORY":         {0},
		"MAX_MID_EXPIRATORY":      {0},
		"PSEUDO_PSU":              {0},
		"AGE":                     {40},
		"GENDER2":                 {1},
		"GENDER":                  {"M"},
		"HEIGHT":                  {170},
		"WEIGHT":                  {70},
		"BMI":                     {24.2},
		"SESSION_BEST":            {1},
		"SESSION_MEAN":            {1},
		"SESSION_STD":             {0},
		"SESSION_MEDIAN":          {1},
		"SESSION_IQR":             {0},
		"SESSION_MINIMUM":         {1},
		"SESSION_MAXIMUM":         {1},
		"SESSION_MAX_DISTANCE":    {0},
		"SESSION_MEDIAN_DISTANCE": {0},
	}
}

const scenarioLine = "1,a;b,3.5,0,0,0,0,0,0,40,1,M,170,70,24.2,1,1,0,1,0,1,1,0,0"

// numberedDataset has n records; every cell is row*100+column.
func numberedDataset(n int) domain.Dataset {
	ds := domain.NewDataset()
	for i := 0; i < n; i++ {
		rec := make([]any, len(domain.Columns))
		for j := range rec {
			rec[j] = i*100 + j
		}
		ds.Append(rec)
	}
	return ds
}
