package artifact

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/Skufu/StrokeRisk/internal/forest"
	"github.com/Skufu/StrokeRisk/internal/labelenc"
)

func testBundle() *Bundle {
	return &Bundle{
		Forest: &forest.Forest{
			Classes:  []int{0, 1},
			Features: []string{"age", "bmi"},
			Trees: []forest.Tree{{Nodes: []forest.Node{
				{Feature: 0, Threshold: 60, Left: 1, Right: 2},
				{Left: -1, Right: -1, Dist: []float64{0.9, 0.1}},
				{Left: -1, Right: -1, Dist: []float64{0.25, 0.75}},
			}}},
		},
		Encoders: labelenc.Set{
			ResidenceEncoder: labelenc.Fit([]string{"Urban", "Rural"}),
		},
	}
}

func TestSaveLoadRoundTrip(t *testing.T) {
	dir := t.TempDir()
	modelPath := filepath.Join(dir, "stroke_model.gob")
	encPath := filepath.Join(dir, "label_encoders.gob")

	require.NoError(t, Save(testBundle(), modelPath, encPath))

	loaded, err := Load(modelPath, encPath)
	require.NoError(t, err)
	assert.Equal(t, testBundle().Forest, loaded.Forest)
	assert.Equal(t, []string{"Rural", "Urban"}, loaded.Encoders[ResidenceEncoder].Classes)

	label, p, err := loaded.Predict([]float64{67, 36.6})
	require.NoError(t, err)
	assert.Equal(t, 1, label)
	assert.InDelta(t, 0.75, p, 1e-9)

	label, p, err = loaded.Predict([]float64{30, 22})
	require.NoError(t, err)
	assert.Equal(t, 0, label)
	assert.InDelta(t, 0.1, p, 1e-9)
}

func TestLoadMissingFiles(t *testing.T) {
	dir := t.TempDir()
	_, err := Load(filepath.Join(dir, "nope.gob"), filepath.Join(dir, "nope2.gob"))
	require.Error(t, err)
	assert.ErrorIs(t, err, os.ErrNotExist)
}

func TestLoadRequiresResidenceEncoder(t *testing.T) {
	dir := t.TempDir()
	b := testBundle()
	b.Encoders = labelenc.Set{"gender": labelenc.Fit([]string{"Male", "Female"})}
	modelPath := filepath.Join(dir, "m.gob")
	encPath := filepath.Join(dir, "e.gob")
	require.NoError(t, Save(b, modelPath, encPath))

	_, err := Load(modelPath, encPath)
	require.Error(t, err)
	assert.Contains(t, err.Error(), ResidenceEncoder)
}

func TestLoadRejectsCorruptModel(t *testing.T) {
	dir := t.TempDir()
	modelPath := filepath.Join(dir, "m.gob")
	require.NoError(t, os.WriteFile(modelPath, []byte("not a gob"), 0o644))

	_, err := Load(modelPath, filepath.Join(dir, "e.gob"))
	assert.Error(t, err)
}

func TestSaveLeavesNoPartialArtifacts(t *testing.T) {
	dir := t.TempDir()
	modelPath := filepath.Join(dir, "stroke_model.gob")
	encPath := filepath.Join(dir, "missing", "label_encoders.gob")

	err := Save(testBundle(), modelPath, encPath)
	require.Error(t, err)

	entries, err := os.ReadDir(dir)
	require.NoError(t, err)
	assert.Empty(t, entries)
}

func TestSaveRejectsIncompleteBundle(t *testing.T) {
	dir := t.TempDir()
	err := Save(&Bundle{}, filepath.Join(dir, "m"), filepath.Join(dir, "e"))
	assert.Error(t, err)
}

func TestLocate(t *testing.T) {
	root := t.TempDir()
	nested := filepath.Join(root, "cmd", "server")
	require.NoError(t, os.MkdirAll(nested, 0o755))
	require.NoError(t, os.WriteFile(filepath.Join(root, "stroke_model.gob"), []byte("x"), 0o644))

	wd, err := os.Getwd()
	require.NoError(t, err)
	require.NoError(t, os.Chdir(nested))
	t.Cleanup(func() { _ = os.Chdir(wd) })

	found := Locate("stroke_model.gob")
	assert.FileExists(t, found)
	assert.Equal(t, "stroke_model.gob", filepath.Base(found))

	assert.Equal(t, "absent.gob", Locate("absent.gob"))
	assert.Equal(t, "/abs/model.gob", Locate("/abs/model.gob"))
}

func TestSaveRestoresEncodersWhenModelInstallFails(t *testing.T) {
	dir := t.TempDir()
	encPath := filepath.Join(dir, "label_encoders.gob")
	require.NoError(t, os.WriteFile(encPath, []byte("previous encoders"), 0o644))

	// A non-empty directory at the model path makes the final rename fail.
	modelPath := filepath.Join(dir, "stroke_model.gob")
	require.NoError(t, os.MkdirAll(filepath.Join(modelPath, "keep"), 0o755))

	err := Save(testBundle(), modelPath, encPath)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "install model")

	data, err := os.ReadFile(encPath)
	require.NoError(t, err)
	assert.Equal(t, "previous encoders", string(data))

	entries, err := os.ReadDir(dir)
	require.NoError(t, err)
	var names []string
	for _, e := range entries {
		names = append(names, e.Name())
	}
	assert.ElementsMatch(t, []string{"label_encoders.gob", "stroke_model.gob"}, names)
}

func TestSaveRemovesNewEncodersWhenModelInstallFails(t *testing.T) {
	dir := t.TempDir()
	encPath := filepath.Join(dir, "label_encoders.gob")
	modelPath := filepath.Join(dir, "stroke_model.gob")
	require.NoError(t, os.MkdirAll(filepath.Join(modelPath, "keep"), 0o755))

	require.Error(t, Save(testBundle(), modelPath, encPath))
	assert.NoFileExists(t, encPath)
}

func TestSaveReplacesExistingPair(t *testing.T) {
	dir := t.TempDir()
	modelPath := filepath.Join(dir, "stroke_model.gob")
	encPath := filepath.Join(dir, "label_encoders.gob")

	require.NoError(t, Save(testBundle(), modelPath, encPath))
	require.NoError(t, Save(testBundle(), modelPath, encPath))

	entries, err := os.ReadDir(dir)
	require.NoError(t, err)
	assert.Len(t, entries, 2)

	_, err = Load(modelPath, encPath)
	require.NoError(t, err)
}

func TestPredictWithoutPositiveClass(t *testing.T) {
	b := &Bundle{
		Forest: &forest.Forest{
			Classes:  []int{0},
			Features: []string{"age"},
			Trees:    []forest.Tree{{Nodes: []forest.Node{{Left: -1, Right: -1, Dist: []float64{1}}}}},
		},
	}
	label, p, err := b.Predict([]float64{40})
	require.NoError(t, err)
	assert.Equal(t, 0, label)
	assert.Zero(t, p)
}
