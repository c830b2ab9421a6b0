// Package domain contains the data contracts shared by the exporter, the
// population store and the HTTP transport.
package domain

// Column identifiers of the spirometry summary table.
const (
	ColSEQN                  = "SEQN"
	ColRawCurve              = "RAW_CURVE"
	ColFVCMax                = "FVC_MAX"
	ColFEV1                  = "FEV1"
	ColFEV3                  = "FEV3"
	ColFEV6                  = "FEV6"
	ColPeakExpiratory        = "PEAK_EXPIRATORY"
	ColMaxMidExpiratory      = "MAX_MID_EXPIRATORY"
	ColPseudoPSU             = "PSEUDO_PSU"
	ColAge                   = "AGE"
	ColGender2               = "GENDER2"
	ColGender                = "GENDER"
	ColHeight                = "HEIGHT"
	ColWeight                = "WEIGHT"
	ColBMI                   = "BMI"
	ColSessionBest           = "SESSION_BEST"
	ColSessionMean           = "SESSION_MEAN"
	ColSessionStd            = "SESSION_STD"
	ColSessionMedian         = "SESSION_MEDIAN"
	ColSessionIQR            = "SESSION_IQR"
	ColSessionMinimum        = "SESSION_MINIMUM"
	ColSessionMaximum        = "SESSION_MAXIMUM"
	ColSessionMaxDistance    = "SESSION_MAX_DISTANCE"
	ColSessionMedianDistance = "SESSION_MEDIAN_DISTANCE"
)

// Columns is the fixed export order. Every header and every data line follow it.
var Columns = []string{
	ColSEQN,
	ColRawCurve,
	ColFVCMax,
	ColFEV1,
	ColFEV3,
	ColFEV6,
	ColPeakExpiratory,
	ColMaxMidExpiratory,
	ColPseudoPSU,
	ColAge,
	ColGender2,
	ColGender,
	ColHeight,
	ColWeight,
	ColBMI,
	ColSessionBest,
	ColSessionMean,
	ColSessionStd,
	ColSessionMedian,
	ColSessionIQR,
	ColSessionMinimum,
	ColSessionMaximum,
	ColSessionMaxDistance,
	ColSessionMedianDistance,
}

// RowCountColumn is the column whose length defines the number of records.
const RowCountColumn = ColSEQN

// Dataset maps a column identifier to its ordered values. All columns are
// expected to have the same length. Values are numbers, strings or booleans.
type Dataset map[string][]any

// Len returns the record count, taken from RowCountColumn.
func (d Dataset) Len() int {
	return len(d[RowCountColumn])
}

// Record returns the values of row i in Columns order.
// It does not check bounds; callers validate the dataset first.
func (d Dataset) Record(i int) []any {
	rec := make([]any, len(Columns))
	for j, col := range Columns {
		rec[j] = d[col][i]
	}
	return rec
}

// Append adds one record, given in Columns order, to the dataset.
func (d Dataset) Append(values []any) {
	for j, col := range Columns {
		d[col] = append(d[col], values[j])
	}
}

// NewDataset returns a dataset with every column present and empty.
func NewDataset() Dataset {
	ds := make(Dataset, len(Columns))
	for _, col := range Columns {
		ds[col] = []any{}
	}
	return ds
}
