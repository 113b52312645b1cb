package dataprep

import (
	"fmt"
	"math"
	"strconv"
	"strings"
	"time"

	"github.com/sirupsen/logrus"

	"github.com/manjudata/predict-mlops/pkg/data"
	"github.com/manjudata/predict-mlops/pkg/errs"
)

// Raw vehicle columns with special handling.
const (
	DateColumn        = "Last_Maintenance_Date"
	LabelColumn       = "Maintenance_Required"
	VehicleTypeColumn = "Vehicle_Type"
	BrakeColumn       = "Brake_Condition"
)

// IdentifierColumns are required in the raw file but never become features.
var IdentifierColumns = []string{"Vehicle_ID", "Make_and_Model", "Route_Info"}

// Field is one column of the feature table.
type Field struct {
	Name string
	Kind data.Kind
}

// FeatureSchema is the declared column order of the transformed feature table.
// Numeric columns come first, then the date parts, then categorical columns.
var FeatureSchema = []Field{
	{"Year_of_Manufacture", data.Numeric},
	{VehicleTypeColumn, data.Numeric},
	{"Usage_Hours", data.Numeric},
	{"Load_Capacity", data.Numeric},
	{"Actual_Load", data.Numeric},
	{"Maintenance_Cost", data.Numeric},
	{"Engine_Temperature", data.Numeric},
	{"Tire_Pressure", data.Numeric},
	{"Fuel_Consumption", data.Numeric},
	{"Battery_Status", data.Numeric},
	{"Vibration_Levels", data.Numeric},
	{"Oil_Quality", data.Numeric},
	{BrakeColumn, data.Numeric},
	{"Delivery_Times", data.Numeric},
	{"Impact_on_Efficiency", data.Numeric},
	{"Maintenance_Year", data.Numeric},
	{"Maintenance_Month", data.Numeric},
	{"Maintenance_Day", data.Numeric},
	{"Maintenance_Weekday", data.Numeric},
	{"Maintenance_Type", data.Categorical},
	{"Weather_Conditions", data.Categorical},
	{"Road_Conditions", data.Categorical},
}

var dateParts = map[string]func(time.Time) float64{
	"Maintenance_Year":  func(t time.Time) float64 { return float64(t.Year()) },
	"Maintenance_Month": func(t time.Time) float64 { return float64(t.Month()) },
	"Maintenance_Day":   func(t time.Time) float64 { return float64(t.Day()) },
	// Monday = 0 ... Sunday = 6
	"Maintenance_Weekday": func(t time.Time) float64 { return float64((int(t.Weekday()) + 6) % 7) },
}

var dateLayouts = []string{
	"2006-01-02",
	"2006-01-02 15:04:05",
	time.RFC3339,
	"01/02/2006",
	"1/2/2006",
}

// RequiredColumns lists every raw column the transformer needs.
func RequiredColumns() []string {
	out := append([]string(nil), IdentifierColumns...)
	for _, f := range FeatureSchema {
		if _, derived := dateParts[f.Name]; derived {
			continue
		}
		out = append(out, f.Name)
	}
	return append(out, DateColumn, LabelColumn)
}

// Transformed is the output of VehicleTransformer.
type Transformed struct {
	Features *data.Table
	Labels   []int
	// VehicleTypes are the fitted label-encoder classes; code i is VehicleTypes[i].
	VehicleTypes []string
}

// VehicleTransformer turns raw vehicle records into the fixed feature table.
type VehicleTransformer struct {
	vehicleTypes LabelEncoder
	brake        OrdinalEncoder
}

func NewVehicleTransformer() *VehicleTransformer {
	return &VehicleTransformer{brake: OrdinalEncoder{Ranks: BrakeRanks}}
}

// Transform validates the raw schema and produces the feature table and labels.
// Any missing column, unparseable value or unmapped category aborts the whole
// transform; rows are never dropped.
func (v *VehicleTransformer) Transform(raw *data.RawTable) (*Transformed, error) {
	const op = "transform vehicle records"
	raw = &data.RawTable{Header: StripColumnNames(raw.Header), Rows: raw.Rows}

	if missing := missingColumns(raw.Header, RequiredColumns()); len(missing) > 0 {
		return nil, errs.Errorf(errs.KindSchema, op, "missing columns %s", strings.Join(missing, ", "))
	}
	for _, extra := range DropColumns(raw.Header, RequiredColumns()...) {
		logrus.Warnf("dropping undeclared column %q", extra)
	}

	dates, err := v.parseDates(raw)
	if err != nil {
		return nil, errs.E(errs.KindSchema, op, err)
	}

	out := &Transformed{Features: &data.Table{Columns: make([]data.Column, 0, len(FeatureSchema))}}
	for _, f := range FeatureSchema {
		col, err := v.column(raw, f, dates)
		if err != nil {
			return nil, errs.E(errs.KindSchema, op, fmt.Errorf("column %s: %w", f.Name, err))
		}
		out.Features.Columns = append(out.Features.Columns, col)
	}
	out.VehicleTypes = append([]string(nil), v.vehicleTypes.Classes...)

	labels, _ := raw.Column(LabelColumn)
	out.Labels = make([]int, len(labels))
	for i, s := range labels {
		y, err := strconv.Atoi(strings.TrimSpace(s))
		if err != nil {
			return nil, errs.Errorf(errs.KindSchema, op, "row %d: label %q is not an integer", i, s)
		}
		out.Labels[i] = y
	}

	logrus.WithFields(logrus.Fields{"rows": len(out.Labels), "features": len(out.Features.Columns)}).
		Info("feature transformation done")
	return out, nil
}

func (v *VehicleTransformer) column(raw *data.RawTable, f Field, dates []time.Time) (data.Column, error) {
	col := data.Column{Name: f.Name, Kind: f.Kind}
	if part, ok := dateParts[f.Name]; ok {
		col.Num = make([]float64, len(dates))
		for i, d := range dates {
			col.Num[i] = part(d)
		}
		return col, nil
	}

	values, _ := raw.Column(f.Name)
	var err error
	switch {
	case f.Kind == data.Categorical:
		col.Cat = make([]string, len(values))
		for i, s := range values {
			if !IsMissing(s) {
				col.Cat[i] = strings.TrimSpace(s)
			}
		}
	case f.Name == VehicleTypeColumn:
		col.Num, err = v.vehicleTypes.FitTransform(values)
	case f.Name == BrakeColumn:
		col.Num, err = v.brake.Transform(values)
	default:
		col.Num = make([]float64, len(values))
		for i, s := range values {
			if col.Num[i], err = ParseNumeric(s); err != nil {
				return col, fmt.Errorf("row %d: %q is not numeric", i, s)
			}
		}
	}
	return col, err
}

func (v *VehicleTransformer) parseDates(raw *data.RawTable) ([]time.Time, error) {
	values, _ := raw.Column(DateColumn)
	out := make([]time.Time, len(values))
	for i, s := range values {
		t, err := ParseDate(s)
		if err != nil {
			return nil, fmt.Errorf("row %d: %w", i, err)
		}
		out[i] = t
	}
	return out, nil
}

// ParseDate parses a maintenance date in any accepted layout.
func ParseDate(s string) (time.Time, error) {
	s = strings.TrimSpace(s)
	for _, layout := range dateLayouts {
		if t, err := time.Parse(layout, s); err == nil {
			return t, nil
		}
	}
	return time.Time{}, fmt.Errorf("unparseable date %q", s)
}

func missingColumns(header, required []string) []string {
	have := make(map[string]struct{}, len(header))
	for _, h := range header {
		have[h] = struct{}{}
	}
	var missing []string
	for _, r := range required {
		if _, ok := have[r]; !ok {
			missing = append(missing, r)
		}
	}
	return missing
}

// NaNCount returns the number of missing numeric cells in t, for logging.
func NaNCount(t *data.Table) int {
	n := 0
	for _, c := range t.Columns {
		for _, v := range c.Num {
			if math.IsNaN(v) {
				n++
			}
		}
	}
	return n
}
