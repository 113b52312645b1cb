package pipeline

import (
	"encoding/gob"
	"fmt"
	"os"
	"path/filepath"
	"slices"

	"github.com/sirupsen/logrus"

	"github.com/manjudata/predict-mlops/pkg/errs"
)

// Save writes p to path as gob and its schema sidecar next to it. An existing
// artifact at path is overwritten.
func Save(path string, p *Pipeline) error {
	const op = "save model"
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return errs.E(errs.KindSerialization, op, err)
	}

	f, err := os.Create(path)
	if err != nil {
		return errs.E(errs.KindSerialization, op, err)
	}
	if err := gob.NewEncoder(f).Encode(p); err != nil {
		f.Close()
		return errs.E(errs.KindSerialization, op, err)
	}
	if err := f.Close(); err != nil {
		return errs.E(errs.KindSerialization, op, err)
	}

	if err := WriteSchemaFile(SchemaPath(path), schemaFileFor(p.Meta)); err != nil {
		return errs.E(errs.KindSerialization, op, err)
	}
	logrus.WithFields(logrus.Fields{"path": path, "run_id": p.Meta.RunID}).Info("model saved")
	return nil
}

// Load reads a pipeline written by Save. When a sidecar exists its feature
// list must match the artifact's.
func Load(path string) (*Pipeline, error) {
	const op = "load model"
	f, err := os.Open(path)
	if err != nil {
		return nil, errs.E(errs.KindDataLoad, op, err)
	}
	defer f.Close()

	var p Pipeline
	if err := gob.NewDecoder(f).Decode(&p); err != nil {
		return nil, errs.E(errs.KindSerialization, op, fmt.Errorf("%s: %w", path, err))
	}
	if p.Forest == nil || len(p.Forest.Trees) == 0 {
		return nil, errs.Errorf(errs.KindSerialization, op, "%s holds no fitted forest", path)
	}

	sf, err := ReadSchemaFile(SchemaPath(path))
	switch {
	case os.IsNotExist(err):
		logrus.Warnf("no schema sidecar for %s", path)
	case err != nil:
		return nil, errs.E(errs.KindSerialization, op, err)
	case len(p.Meta.FeatureNames) > 0 && !slices.Equal(sf.Features, p.Meta.FeatureNames):
		return nil, errs.Errorf(errs.KindSchema, op, "sidecar features do not match artifact %s", path)
	}

	if n := len(p.FeatureNames()); n != p.Forest.NInputs {
		return nil, errs.Errorf(errs.KindSchema, op, "%d feature names but model expects %d inputs", n, p.Forest.NInputs)
	}
	return &p, nil
}
