package pipeline

import (
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"gopkg.in/yaml.v3"

	"github.com/manjudata/predict-mlops/pkg/data"
)

// Schema describes the structure of a dataset.
type Schema struct {
	FeatureNames []string
	Types        []string // "float" or "category"
}

// SchemaOf returns the schema of a feature table.
func SchemaOf(t *data.Table) Schema {
	s := Schema{FeatureNames: t.Names(), Types: make([]string, len(t.Columns))}
	for i, c := range t.Columns {
		s.Types[i] = string(c.Kind)
	}
	return s
}

// FallbackFeatures is the encoded feature order used for artifacts that do
// not carry their own feature names.
var FallbackFeatures = []string{
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

// SchemaFile is the YAML sidecar written next to a model artifact.
type SchemaFile struct {
	RunID       string        `yaml:"run_id"`
	TrainedAt   string        `yaml:"trained_at"`
	Seed        int64         `yaml:"seed"`
	NEstimators int           `yaml:"n_estimators"`
	Features    []string      `yaml:"features"`
	Inputs      []SchemaField `yaml:"inputs"`
}

// SchemaField is one column of the pre-encoding input table.
type SchemaField struct {
	Name string `yaml:"name"`
	Type string `yaml:"type"`
}

// SchemaPath returns the sidecar path for a model path:
// artifacts/models/model.gob => artifacts/models/model.schema.yaml.
func SchemaPath(modelPath string) string {
	return strings.TrimSuffix(modelPath, filepath.Ext(modelPath)) + ".schema.yaml"
}

func schemaFileFor(m Metadata) SchemaFile {
	sf := SchemaFile{
		RunID:       m.RunID,
		TrainedAt:   m.TrainedAt.UTC().Format("2006-01-02T15:04:05Z07:00"),
		Seed:        m.Seed,
		NEstimators: m.NEstimators,
		Features:    m.FeatureNames,
	}
	for i, name := range m.Inputs.FeatureNames {
		sf.Inputs = append(sf.Inputs, SchemaField{Name: name, Type: m.Inputs.Types[i]})
	}
	return sf
}

// WriteSchemaFile writes sf as YAML.
func WriteSchemaFile(path string, sf SchemaFile) error {
	out, err := yaml.Marshal(sf)
	if err != nil {
		return fmt.Errorf("marshal schema: %w", err)
	}
	return os.WriteFile(path, out, 0o644)
}

// ReadSchemaFile reads a sidecar strictly; unknown keys are an error.
func ReadSchemaFile(path string) (*SchemaFile, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, err
	}
	defer f.Close()

	dec := yaml.NewDecoder(f)
	dec.KnownFields(true)
	var sf SchemaFile
	if err := dec.Decode(&sf); err != nil {
		return nil, fmt.Errorf("parse schema %s: %w", path, err)
	}
	return &sf, nil
}
