package pipeline

import (
	"archive/zip"
	"bytes"
	"encoding/json"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"time"

	"github.com/google/uuid"

	"github.com/YuminosukeSato/salesforecast/core/model"
	"github.com/YuminosukeSato/salesforecast/pkg/errors"
	"github.com/YuminosukeSato/salesforecast/pkg/log"
)

// Archive entry names and the payload format version.
const (
	ManifestEntry = "manifest.json"
	PayloadEntry  = "pipeline.gob"
	FormatVersion = 1
)

// Manifest describes a saved model without decoding its payload.
type Manifest struct {
	ModelID       string    `json:"model_id"`
	CreatedAt     time.Time `json:"created_at"`
	Trainer       string    `json:"trainer"`
	Objective     string    `json:"objective"`
	NumTrees      int       `json:"num_trees"`
	FeatureNames  []string  `json:"feature_names"`
	FormatVersion int       `json:"format_version"`
}

// Manifest returns the manifest written by Save.
func (m *Model) Manifest() Manifest {
	mf := Manifest{
		ModelID:       m.ID,
		CreatedAt:     m.CreatedAt,
		Trainer:       m.TrainerName,
		FeatureNames:  m.FeatureNames(),
		FormatVersion: FormatVersion,
	}
	if m.Regressor != nil {
		mf.Objective = m.Regressor.Objective
		mf.NumTrees = m.Regressor.NumTrees()
	}
	return mf
}

// Save writes the model as a zip archive holding the manifest and the gob
// encoded pipeline. A model without an ID is assigned a new UUID.
func (m *Model) Save(w io.Writer) error {
	if m.Regressor == nil {
		return errors.NewNotFittedError("pipeline.Model", "Save")
	}
	if m.ID == "" {
		m.ID = uuid.NewString()
	}
	if m.CreatedAt.IsZero() {
		m.CreatedAt = time.Now().UTC()
	}

	zw := zip.NewWriter(w)
	mw, err := zw.Create(ManifestEntry)
	if err != nil {
		return errors.Wrap(err, "create manifest entry")
	}
	enc := json.NewEncoder(mw)
	enc.SetIndent("", "  ")
	if err := enc.Encode(m.Manifest()); err != nil {
		return errors.Wrap(err, "encode manifest")
	}

	pw, err := zw.Create(PayloadEntry)
	if err != nil {
		return errors.Wrap(err, "create payload entry")
	}
	if err := model.SaveModelToWriter(m, pw); err != nil {
		return err
	}
	if err := zw.Close(); err != nil {
		return errors.Wrap(err, "finish model archive")
	}
	return nil
}

// SaveToFile writes the model to path. The archive is written to a temporary
// file in the same directory and renamed into place, so path never holds a
// partial model.
func (m *Model) SaveToFile(path string) (err error) {
	dir := filepath.Dir(path)
	tmp, err := os.CreateTemp(dir, "."+filepath.Base(path)+".*.tmp")
	if err != nil {
		return errors.Wrapf(err, "create model file in %s", dir)
	}
	defer func() {
		if err != nil {
			tmp.Close()
			os.Remove(tmp.Name())
		}
	}()

	if err = m.Save(tmp); err != nil {
		return err
	}
	if err = tmp.Close(); err != nil {
		return errors.Wrapf(err, "close %s", tmp.Name())
	}
	if err = os.Rename(tmp.Name(), path); err != nil {
		return errors.Wrapf(err, "move model to %s", path)
	}

	log.GetLoggerWithName("pipeline").Info("Model saved",
		log.OperationKey, log.OperationSave,
		log.EstimatorIDKey, m.ID,
		log.DataPathKey, path,
	)
	return nil
}

// Load reads a model archive from r.
func Load(r io.Reader) (*Model, error) {
	data, err := io.ReadAll(r)
	if err != nil {
		return nil, errors.Wrap(err, "read model archive")
	}
	zr, err := zip.NewReader(bytes.NewReader(data), int64(len(data)))
	if err != nil {
		return nil, errors.Wrap(err, "open model archive")
	}
	return loadArchive(zr)
}

// LoadFromFile reads a model archive from path.
func LoadFromFile(path string) (*Model, error) {
	zr, err := zip.OpenReader(path)
	if err != nil {
		return nil, errors.Wrapf(err, "open model %s", path)
	}
	defer zr.Close()

	m, err := loadArchive(&zr.Reader)
	if err != nil {
		return nil, errors.Wrapf(err, "load model %s", path)
	}
	log.GetLoggerWithName("pipeline").Info("Model loaded",
		log.OperationKey, log.OperationLoad,
		log.EstimatorIDKey, m.ID,
		log.DataPathKey, path,
	)
	return m, nil
}

// ReadManifest returns only the manifest of a model archive.
func ReadManifest(path string) (Manifest, error) {
	zr, err := zip.OpenReader(path)
	if err != nil {
		return Manifest{}, errors.Wrapf(err, "open model %s", path)
	}
	defer zr.Close()
	return readManifest(&zr.Reader)
}

func openEntry(zr *zip.Reader, name string) (io.ReadCloser, error) {
	f, err := zr.Open(name)
	if err != nil {
		return nil, errors.NewModelError("pipeline.Load", fmt.Sprintf("missing %s", name), err)
	}
	return f, nil
}

func readManifest(zr *zip.Reader) (Manifest, error) {
	f, err := openEntry(zr, ManifestEntry)
	if err != nil {
		return Manifest{}, err
	}
	defer f.Close()

	var mf Manifest
	if err := json.NewDecoder(f).Decode(&mf); err != nil {
		return Manifest{}, errors.Wrap(err, "decode manifest")
	}
	if mf.FormatVersion != FormatVersion {
		return Manifest{}, errors.NewModelError("pipeline.Load",
			fmt.Sprintf("unsupported format version %d", mf.FormatVersion), nil)
	}
	return mf, nil
}

func loadArchive(zr *zip.Reader) (*Model, error) {
	mf, err := readManifest(zr)
	if err != nil {
		return nil, err
	}

	f, err := openEntry(zr, PayloadEntry)
	if err != nil {
		return nil, err
	}
	defer f.Close()

	var m Model
	if err := model.LoadModelFromReader(&m, f); err != nil {
		return nil, err
	}
	if m.Regressor == nil || m.Regressor.NumTrees() != mf.NumTrees {
		return nil, errors.NewModelError("pipeline.Load", "payload does not match manifest", nil)
	}
	m.ID = mf.ModelID
	m.CreatedAt = mf.CreatedAt
	return &m, nil
}
