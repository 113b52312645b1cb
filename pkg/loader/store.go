package loader

import (
	"encoding/gob"
	"os"
	"path/filepath"

	"github.com/sirupsen/logrus"

	"github.com/manjudata/predict-mlops/pkg/data"
	"github.com/manjudata/predict-mlops/pkg/errs"
)

// Partition file names inside the processed directory.
const (
	XTrainFile = "X_train.gob"
	XTestFile  = "X_test.gob"
	YTrainFile = "y_train.gob"
	YTestFile  = "y_test.gob"
)

// SavePartitions writes the four partitions into dir, creating it if needed.
func SavePartitions(dir string, s *Split) error {
	const op = "save partitions"
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return errs.E(errs.KindSerialization, op, err)
	}
	for name, v := range map[string]any{
		XTrainFile: s.XTrain,
		XTestFile:  s.XTest,
		YTrainFile: s.YTrain,
		YTestFile:  s.YTest,
	} {
		if err := writeGob(filepath.Join(dir, name), v); err != nil {
			return errs.E(errs.KindSerialization, op, err)
		}
	}
	logrus.WithFields(logrus.Fields{"dir": dir, "split": s.String()}).Info("partitions saved")
	return nil
}

// LoadPartitions reads the partitions written by SavePartitions.
func LoadPartitions(dir string) (*Split, error) {
	const op = "load partitions"
	s := &Split{XTrain: &data.Table{}, XTest: &data.Table{}}
	for name, v := range map[string]any{
		XTrainFile: s.XTrain,
		XTestFile:  s.XTest,
		YTrainFile: &s.YTrain,
		YTestFile:  &s.YTest,
	} {
		if err := readGob(filepath.Join(dir, name), v); err != nil {
			if os.IsNotExist(err) {
				return nil, errs.E(errs.KindDataLoad, op, err)
			}
			return nil, errs.E(errs.KindSerialization, op, err)
		}
	}
	if s.XTrain.Len() != len(s.YTrain) || s.XTest.Len() != len(s.YTest) {
		return nil, errs.Errorf(errs.KindSchema, op, "partition sizes disagree: %s", s)
	}
	return s, nil
}

func writeGob(path string, v any) error {
	f, err := os.Create(path)
	if err != nil {
		return err
	}
	if err := gob.NewEncoder(f).Encode(v); err != nil {
		f.Close()
		return err
	}
	return f.Close()
}

func readGob(path string, v any) error {
	f, err := os.Open(path)
	if err != nil {
		return err
	}
	defer f.Close()
	return gob.NewDecoder(f).Decode(v)
}
