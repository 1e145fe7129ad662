// Package artifact persists the fitted classifier and its label encoders.
package artifact

import (
	"encoding/gob"
	"errors"
	"fmt"
	"os"
	"path/filepath"

	"github.com/Skufu/StrokeRisk/internal/forest"
	"github.com/Skufu/StrokeRisk/internal/labelenc"
)

// ResidenceEncoder is the only encoder applied at inference time; the other
// categorical fields arrive already encoded from the form.
const ResidenceEncoder = "Residence_type"

// PositiveClass is the stroke label.
const PositiveClass = 1

type Bundle struct {
	Forest   *forest.Forest
	Encoders labelenc.Set
}

// Predict returns the predicted label and the positive-class probability.
func (b *Bundle) Predict(features []float64) (int, float64, error) {
	label, proba, err := b.Forest.Classify(features)
	if err != nil {
		return 0, 0, err
	}
	var positive float64
	for i, c := range b.Forest.Classes {
		if c == PositiveClass {
			positive = proba[i]
		}
	}
	return label, positive, nil
}

// Save writes both artifacts. Each is encoded to a temporary file next to
// its destination and only renamed into place once both encodes succeed.
// The encoders are installed first; if the model cannot be installed the
// previous encoders are put back, so the pair on disk always matches.
func Save(b *Bundle, modelPath, encodersPath string) error {
	if b == nil || b.Forest == nil || b.Encoders == nil {
		return errors.New("incomplete bundle")
	}

	modelTmp, err := writeTemp(modelPath, b.Forest)
	if err != nil {
		return fmt.Errorf("encode model: %w", err)
	}
	encTmp, err := writeTemp(encodersPath, b.Encoders)
	if err != nil {
		os.Remove(modelTmp)
		return fmt.Errorf("encode encoders: %w", err)
	}

	backup, err := moveAside(encodersPath)
	if err != nil {
		os.Remove(modelTmp)
		os.Remove(encTmp)
		return fmt.Errorf("back up encoders: %w", err)
	}
	if err := os.Rename(encTmp, encodersPath); err != nil {
		os.Remove(modelTmp)
		os.Remove(encTmp)
		restore(backup, encodersPath)
		return fmt.Errorf("install encoders: %w", err)
	}
	if err := os.Rename(modelTmp, modelPath); err != nil {
		os.Remove(modelTmp)
		restore(backup, encodersPath)
		return fmt.Errorf("install model: %w", err)
	}
	if backup != "" {
		os.Remove(backup)
	}
	return nil
}

// moveAside renames an existing file to a sibling backup path and returns
// it. It returns "" when there is nothing to back up.
func moveAside(path string) (string, error) {
	if !fileExists(path) {
		return "", nil
	}
	backup := path + ".bak"
	if err := os.Rename(path, backup); err != nil {
		return "", err
	}
	return backup, nil
}

// restore puts a backup from moveAside back in place, or removes path when
// there was no previous file.
func restore(backup, path string) {
	if backup == "" {
		os.Remove(path)
		return
	}
	os.Rename(backup, path)
}

// Load reads both artifacts. A missing file yields an error wrapping
// os.ErrNotExist.
func Load(modelPath, encodersPath string) (*Bundle, error) {
	var f forest.Forest
	if err := readGob(modelPath, &f); err != nil {
		return nil, fmt.Errorf("load model: %w", err)
	}
	if err := f.Validate(); err != nil {
		return nil, fmt.Errorf("load model: %w", err)
	}

	var encoders labelenc.Set
	if err := readGob(encodersPath, &encoders); err != nil {
		return nil, fmt.Errorf("load encoders: %w", err)
	}
	if _, ok := encoders[ResidenceEncoder]; !ok {
		return nil, fmt.Errorf("load encoders: no %s encoder", ResidenceEncoder)
	}

	return &Bundle{Forest: &f, Encoders: encoders}, nil
}

// Locate resolves a relative artifact path against the working directory
// and up to two of its parents, returning the first that exists. When none
// exists the path is returned unchanged.
func Locate(path string) string {
	if filepath.IsAbs(path) {
		return path
	}
	startDir, err := os.Getwd()
	if err != nil {
		return path
	}

	candidates := []string{
		startDir,
		filepath.Dir(startDir),
		filepath.Dir(filepath.Dir(startDir)),
	}
	for _, dir := range candidates {
		full := filepath.Join(dir, path)
		if fileExists(full) {
			return full
		}
	}
	return path
}

func writeTemp(dest string, v any) (string, error) {
	tmp, err := os.CreateTemp(filepath.Dir(dest), filepath.Base(dest)+".*.tmp")
	if err != nil {
		return "", err
	}
	if err := gob.NewEncoder(tmp).Encode(v); err != nil {
		tmp.Close()
		os.Remove(tmp.Name())
		return "", err
	}
	if err := tmp.Close(); err != nil {
		os.Remove(tmp.Name())
		return "", err
	}
	return tmp.Name(), nil
}

func readGob(path string, v any) error {
	file, err := os.Open(path)
	if err != nil {
		return err
	}
	defer file.Close()
	return gob.NewDecoder(file).Decode(v)
}

func fileExists(path string) bool {
	info, err := os.Stat(path)
	if err != nil {
		return false
	}
	return !info.IsDir()
}
