// Package testutil generates synthetic vehicle fleet data for tests.
// Labels follow a fixed rule (poor brakes or a hot engine need maintenance) so
// that fitted models are checkable without hardcoding business logic in tests.
package testutil

import (
	"bytes"
	"encoding/csv"
	"fmt"
	"math/rand"
	"os"
	"path/filepath"
	"strconv"
	"testing"
	"time"
)

// FleetHeader is the raw column order of generated files.
var FleetHeader = []string{
	"Vehicle_ID", "Make_and_Model", "Year_of_Manufacture", "Vehicle_Type", "Usage_Hours",
	"Route_Info", "Load_Capacity", "Actual_Load", "Last_Maintenance_Date", "Maintenance_Type",
	"Maintenance_Cost", "Engine_Temperature", "Tire_Pressure", "Fuel_Consumption",
	"Battery_Status", "Vibration_Levels", "Oil_Quality", "Brake_Condition",
	"Weather_Conditions", "Road_Conditions", "Delivery_Times", "Impact_on_Efficiency",
	"Maintenance_Required",
}

var (
	makes           = []string{"Ford F-150", "Volvo FH16", "Mercedes Sprinter", "Isuzu NPR"}
	vehicleTypes    = []string{"Bus", "Car", "Truck", "Van"}
	maintenance     = []string{"Engine Overhaul", "Oil Change", "Tire Rotation"}
	brakes          = []string{"Good", "Fair", "Poor"}
	weather         = []string{"Clear", "Rainy", "Snowy", "Windy"}
	roads           = []string{"Highway", "Rural", "Urban"}
	maintenanceBase = time.Date(2023, 1, 1, 0, 0, 0, 0, time.UTC)
)

// FleetRecords returns n deterministic raw records (without the header).
// Every category value appears at least once when n >= 4.
func FleetRecords(n int, seed int64) [][]string {
	rng := rand.New(rand.NewSource(seed))
	f := func(lo, hi float64) string {
		return strconv.FormatFloat(lo+rng.Float64()*(hi-lo), 'f', 2, 64)
	}
	out := make([][]string, n)
	for i := 0; i < n; i++ {
		brake := brakes[i%len(brakes)]
		temp := 60 + rng.Float64()*60
		label := 0
		if brake == "Poor" || temp > 100 {
			label = 1
		}
		date := maintenanceBase.AddDate(0, 0, rng.Intn(700))
		out[i] = []string{
			fmt.Sprintf("V%05d", i),
			makes[rng.Intn(len(makes))],
			strconv.Itoa(2000 + rng.Intn(23)),
			vehicleTypes[i%len(vehicleTypes)],
			f(100, 10000),
			fmt.Sprintf("Route-%d", rng.Intn(50)),
			f(1000, 20000),
			f(500, 15000),
			date.Format("2006-01-02"),
			maintenance[i%len(maintenance)],
			f(100, 5000),
			strconv.FormatFloat(temp, 'f', 2, 64),
			f(28, 40),
			f(5, 30),
			f(10, 100),
			f(0, 5),
			f(10, 100),
			brake,
			weather[i%len(weather)],
			roads[(i/2)%len(roads)],
			f(1, 10),
			f(0, 1),
			strconv.Itoa(label),
		}
	}
	return out
}

// FleetCSV renders n generated records with a header as CSV text.
func FleetCSV(n int, seed int64) string {
	var buf bytes.Buffer
	w := csv.NewWriter(&buf)
	_ = w.Write(FleetHeader)
	_ = w.WriteAll(FleetRecords(n, seed))
	return buf.String()
}

// WriteFleetCSV writes a generated file into dir and returns its path.
func WriteFleetCSV(t testing.TB, dir string, n int, seed int64) string {
	t.Helper()
	path := filepath.Join(dir, "vehicledata.csv")
	if err := os.WriteFile(path, []byte(FleetCSV(n, seed)), 0o644); err != nil {
		t.Fatalf("write fleet csv: %v", err)
	}
	return path
}

// FallbackFeatureNames is the encoded feature order expected for generated data.
var FallbackFeatureNames = []string{
	"Year_of_Manufacture", "Vehicle_Type", "Usage_Hours", "Load_Capacity",
	"Actual_Load", "Maintenance_Cost", "Engine_Temperature", "Tire_Pressure",
	"Fuel_Consumption", "Battery_Status", "Vibration_Levels", "Oil_Quality",
	"Brake_Condition", "Delivery_Times", "Impact_on_Efficiency",
	"Maintenance_Year", "Maintenance_Month", "Maintenance_Day", "Maintenance_Weekday",
	"Maintenance_Type_Engine Overhaul", "Maintenance_Type_Oil Change",
	"Maintenance_Type_Tire Rotation", "Weather_Conditions_Clear",
	"Weather_Conditions_Rainy", "Weather_Conditions_Snowy",
	"Weather_Conditions_Windy", "Road_Conditions_Highway",
	"Road_Conditions_Rural", "Road_Conditions_Urban",
}

// MidRangeRecord returns a representative form submission over the encoded
// features, with the given brake rank and engine temperature.
func MidRangeRecord(brake, engineTemp float64) map[string]string {
	rec := map[string]string{
		"Year_of_Manufacture": "2012", "Vehicle_Type": "2", "Usage_Hours": "5000",
		"Load_Capacity": "10000", "Actual_Load": "7500", "Maintenance_Cost": "2500",
		"Engine_Temperature": strconv.FormatFloat(engineTemp, 'f', -1, 64),
		"Tire_Pressure": "34", "Fuel_Consumption": "17", "Battery_Status": "55",
		"Vibration_Levels": "2.5", "Oil_Quality": "55",
		"Brake_Condition": strconv.FormatFloat(brake, 'f', -1, 64),
		"Delivery_Times": "5", "Impact_on_Efficiency": "0.5",
		"Maintenance_Year": "2024", "Maintenance_Month": "6", "Maintenance_Day": "15",
		"Maintenance_Weekday": "2",
	}
	for _, name := range FallbackFeatureNames[19:] {
		rec[name] = "0"
	}
	rec["Maintenance_Type_Oil Change"] = "1"
	rec["Weather_Conditions_Clear"] = "1"
	rec["Road_Conditions_Highway"] = "1"
	return rec
}
