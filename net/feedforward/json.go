package feedforward

import (
	"compress/lzw"
	"encoding/json"
	"errors"
	"fmt"
	"io"

	"github.com/neurlang/blazepose/layer"
	"github.com/neurlang/blazepose/tensor"
	"github.com/spf13/afero"
)

// WeightsFormat tags the weight files written by this package.
const WeightsFormat = "blazepose.weights.v1"

// ErrMissingWeights is returned when a weight file lacks a parameter of the network.
var ErrMissingWeights = errors.New("feedforward: parameter missing from weights")

type weightsFile struct {
	Format string         `json:"format"`
	Params []weightsEntry `json:"params"`
}

type weightsEntry struct {
	Name  string    `json:"name"`
	Shape []int     `json:"shape"`
	Data  []float32 `json:"data"`
}

// WriteCompressedWeightsToFile writes model weights to a lzw file
func (f FeedforwardNetwork) WriteCompressedWeightsToFile(fs afero.Fs, name string) error {
	return WriteParamsToFile(fs, name, f.Params())
}

// ReadCompressedWeightsFromFile reads model weights from a lzw file
func (f FeedforwardNetwork) ReadCompressedWeightsFromFile(fs afero.Fs, name string) error {
	return ReadParamsFromFile(fs, name, f.Params())
}

// WriteParamsToFile writes parameters to a lzw file. The file is written
// under a temporary name and renamed, so readers never see a partial file.
func WriteParamsToFile(fs afero.Fs, name string, params []*layer.Param) error {
	tmp := name + ".tmp"
	file, err := fs.Create(tmp)
	if err != nil {
		return err
	}
	err = WriteParams(file, params)
	if cerr := file.Close(); err == nil {
		err = cerr
	}
	if err != nil {
		_ = fs.Remove(tmp)
		return err
	}
	return fs.Rename(tmp, name)
}

// ReadParamsFromFile reads parameters from a lzw file
func ReadParamsFromFile(fs afero.Fs, name string, params []*layer.Param) error {
	file, err := fs.Open(name)
	if err != nil {
		return err
	}
	defer file.Close()
	return ReadParams(file, params)
}

// WriteParams writes parameter values to a writer as lzw compressed json
func WriteParams(w io.Writer, params []*layer.Param) error {
	doc := weightsFile{Format: WeightsFormat, Params: make([]weightsEntry, 0, len(params))}
	for _, p := range params {
		doc.Params = append(doc.Params, weightsEntry{Name: p.Name, Shape: p.Value.Shape, Data: p.Value.Data})
	}
	lw := lzw.NewWriter(w, lzw.LSB, 8)
	if err := json.NewEncoder(lw).Encode(&doc); err != nil {
		lw.Close()
		return err
	}
	return lw.Close()
}

// ReadParams reads parameter values from a reader, matching them by name.
// Entries in the stream that no parameter asks for are ignored.
func ReadParams(r io.Reader, params []*layer.Param) error {
	lr := lzw.NewReader(r, lzw.LSB, 8)
	defer lr.Close()

	var doc weightsFile
	if err := json.NewDecoder(lr).Decode(&doc); err != nil {
		return fmt.Errorf("decode weights: %w", err)
	}
	if doc.Format != WeightsFormat {
		return fmt.Errorf("decode weights: unknown format %q", doc.Format)
	}
	byName := make(map[string]weightsEntry, len(doc.Params))
	for _, e := range doc.Params {
		byName[e.Name] = e
	}
	for _, p := range params {
		e, ok := byName[p.Name]
		if !ok {
			return fmt.Errorf("%w: %s", ErrMissingWeights, p.Name)
		}
		if !tensor.EqualShape(e.Shape, p.Value.Shape) || len(e.Data) != p.Value.Len() {
			return fmt.Errorf("%s: %w: weights %v, model %v", p.Name, tensor.ErrShapeMismatch, e.Shape, p.Value.Shape)
		}
	}
	for _, p := range params {
		copy(p.Value.Data, byName[p.Name].Data)
	}
	return nil
}
