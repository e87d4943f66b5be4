// Package data loads gene-expression tables and produces reproducible
// train/test splits.
package data

import (
	"encoding/csv"
	"fmt"
	"io"
	"math"
	"os"
	"strconv"
	"strings"

	"github.com/ulikunitz/xz"
	"golang.org/x/exp/rand"
	"gonum.org/v1/gonum/mat"
)

// Matrix is an expression matrix: samples (rows) by genes (columns),
// with values normalized into [0,1].
type Matrix struct {
	SampleIDs []string
	Genes     []string

	values *mat.Dense
}

// NewMatrix builds a matrix from row slices. Every row must have
// len(genes) values.
func NewMatrix(sampleIDs, genes []string, rows [][]float64) (*Matrix, error) {
	if len(rows) != len(sampleIDs) {
		return nil, fmt.Errorf("data: %d rows for %d sample ids", len(rows), len(sampleIDs))
	}
	flat := make([]float64, 0, len(rows)*len(genes))
	for i, row := range rows {
		if len(row) != len(genes) {
			return nil, fmt.Errorf("data: row %d has %d values, want %d", i, len(row), len(genes))
		}
		flat = append(flat, row...)
	}
	return &Matrix{
		SampleIDs: sampleIDs,
		Genes:     genes,
		values:    mat.NewDense(len(sampleIDs), len(genes), flat),
	}, nil
}

// NumSamples returns the number of rows.
func (m *Matrix) NumSamples() int {
	r, _ := m.values.Dims()
	return r
}

// NumGenes returns the number of columns.
func (m *Matrix) NumGenes() int {
	_, c := m.values.Dims()
	return c
}

// Row returns a view of row i. The slice aliases the matrix storage and
// must not be modified.
func (m *Matrix) Row(i int) []float64 {
	return m.values.RawRowView(i)
}

// Rows returns views of the rows at the given indices.
func (m *Matrix) Rows(indices []int) [][]float64 {
	rows := make([][]float64, len(indices))
	for i, idx := range indices {
		rows[i] = m.values.RawRowView(idx)
	}
	return rows
}

// LoadTable reads a tab-separated expression table: first row gene
// identifiers, first column sample identifiers, remaining cells float
// expression values. Files ending in .xz are decompressed on the fly.
func LoadTable(path string) (*Matrix, error) {
	file, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("failed to open table: %w", err)
	}
	defer file.Close()

	var r io.Reader = file
	if strings.HasSuffix(path, ".xz") {
		xr, err := xz.NewReader(file)
		if err != nil {
			return nil, fmt.Errorf("failed to open xz stream: %w", err)
		}
		r = xr
	}

	return ReadTable(r)
}

// ReadTable parses a tab-separated expression table from r.
func ReadTable(r io.Reader) (*Matrix, error) {
	reader := csv.NewReader(r)
	reader.Comma = '\t'

	records, err := reader.ReadAll()
	if err != nil {
		return nil, fmt.Errorf("failed to read table: %w", err)
	}
	if len(records) < 2 {
		return nil, fmt.Errorf("table has no data rows")
	}

	header := records[0]
	if len(header) < 2 {
		return nil, fmt.Errorf("table has no gene columns")
	}
	// First header cell labels the index column.
	genes := append([]string(nil), header[1:]...)

	numSamples := len(records) - 1
	sampleIDs := make([]string, numSamples)
	flat := make([]float64, 0, numSamples*len(genes))

	for i := 1; i < len(records); i++ {
		record := records[i]
		if len(record) != len(genes)+1 {
			return nil, fmt.Errorf("inconsistent number of columns at row %d", i)
		}
		sampleIDs[i-1] = record[0]
		for j := 1; j < len(record); j++ {
			val, err := strconv.ParseFloat(record[j], 64)
			if err != nil {
				return nil, fmt.Errorf("failed to parse value at row %d, col %d: %w", i, j, err)
			}
			flat = append(flat, val)
		}
	}

	return &Matrix{
		SampleIDs: sampleIDs,
		Genes:     genes,
		values:    mat.NewDense(numSamples, len(genes), flat),
	}, nil
}

// SaveTable writes the matrix as a tab-separated table at path. Files
// ending in .xz are compressed on the fly.
func (m *Matrix) SaveTable(path string) error {
	file, err := os.Create(path)
	if err != nil {
		return fmt.Errorf("failed to create table: %w", err)
	}
	defer file.Close()

	if strings.HasSuffix(path, ".xz") {
		xw, err := xz.NewWriter(file)
		if err != nil {
			return fmt.Errorf("failed to open xz stream: %w", err)
		}
		if err := m.WriteTable(xw); err != nil {
			return err
		}
		if err := xw.Close(); err != nil {
			return fmt.Errorf("failed to close xz stream: %w", err)
		}
		return file.Close()
	}

	if err := m.WriteTable(file); err != nil {
		return err
	}
	return file.Close()
}

// WriteTable writes the matrix to w in the layout ReadTable parses:
// gene header with an unnamed index cell, one row per sample.
func (m *Matrix) WriteTable(w io.Writer) error {
	cw := csv.NewWriter(w)
	cw.Comma = '\t'

	header := make([]string, 0, len(m.Genes)+1)
	header = append(header, "")
	header = append(header, m.Genes...)
	if err := cw.Write(header); err != nil {
		return fmt.Errorf("failed to write table header: %w", err)
	}

	record := make([]string, len(m.Genes)+1)
	for i := 0; i < m.NumSamples(); i++ {
		record[0] = m.SampleIDs[i]
		for j, val := range m.Row(i) {
			record[j+1] = strconv.FormatFloat(val, 'g', -1, 64)
		}
		if err := cw.Write(record); err != nil {
			return fmt.Errorf("failed to write table row %d: %w", i, err)
		}
	}

	cw.Flush()
	return cw.Error()
}

// Split holds disjoint train/test row indices into a Matrix.
type Split struct {
	TrainIdx []int
	TestIdx  []int
}

// SplitTest samples round(fraction*N) test rows without replacement
// using the seeded generator. Train rows keep their original order.
// Identical seed and input always produce the identical split.
func (m *Matrix) SplitTest(fraction float64, seed uint64) Split {
	n := m.NumSamples()
	k := int(math.Round(fraction * float64(n)))
	if k < 0 {
		k = 0
	}
	if k > n {
		k = n
	}

	rng := rand.New(rand.NewSource(seed))
	perm := rng.Perm(n)
	testIdx := append([]int(nil), perm[:k]...)

	inTest := make(map[int]bool, k)
	for _, idx := range testIdx {
		inTest[idx] = true
	}

	trainIdx := make([]int, 0, n-k)
	for i := 0; i < n; i++ {
		if !inTest[i] {
			trainIdx = append(trainIdx, i)
		}
	}

	return Split{TrainIdx: trainIdx, TestIdx: testIdx}
}
