package report

import (
	"encoding/csv"
	"encoding/json"
	"os"
	"strconv"
	"strings"

	"github.com/parquet-go/parquet-go"
)

// Row is the flat record rendered into the candidates file. Field names
// follow the result schema so readers can consume them verbatim.
type Row struct {
	Symbol         string  `json:"symbol" parquet:"symbol"`
	Classification string  `json:"classification" parquet:"classification"`
	ReferenceHigh  float64 `json:"reference_high" parquet:"reference_high"`
	LatestClose    float64 `json:"latest_close" parquet:"latest_close"`
	PriceExcess    float64 `json:"price_excess" parquet:"price_excess"`
	VolumeRatio    float64 `json:"volume_ratio" parquet:"volume_ratio"`
	ATR            float64 `json:"atr" parquet:"atr"`
	Timestamp      string  `json:"timestamp" parquet:"timestamp"`
}

// rowSaver persists one batch of rows to a file.
type rowSaver interface {
	Save(rows []Row, path string) error
	Extension() string
}

// newRowSaver returns the saver for a format (csv, json, parquet).
// Returns nil for unsupported formats.
func newRowSaver(format string) rowSaver {
	switch strings.ToLower(strings.TrimSpace(format)) {
	case "csv":
		return csvSaver{}
	case "json":
		return jsonSaver{}
	case "parquet":
		return parquetSaver{}
	default:
		return nil
	}
}

type csvSaver struct{}

func (csvSaver) Extension() string { return "csv" }

func (csvSaver) Save(rows []Row, path string) error {
	f, err := os.Create(path)
	if err != nil {
		return err
	}
	defer f.Close()
	w := csv.NewWriter(f)
	defer w.Flush()

	header := []string{"symbol", "classification", "reference_high", "latest_close", "price_excess", "volume_ratio", "atr", "timestamp"}
	if err := w.Write(header); err != nil {
		return err
	}
	for _, r := range rows {
		rec := []string{
			r.Symbol,
			r.Classification,
			strconv.FormatFloat(r.ReferenceHigh, 'f', 2, 64),
			strconv.FormatFloat(r.LatestClose, 'f', 2, 64),
			strconv.FormatFloat(r.PriceExcess, 'f', 2, 64),
			strconv.FormatFloat(r.VolumeRatio, 'f', 2, 64),
			strconv.FormatFloat(r.ATR, 'f', 2, 64),
			r.Timestamp,
		}
		if err := w.Write(rec); err != nil {
			return err
		}
	}
	w.Flush()
	return w.Error()
}

type jsonSaver struct{}

func (jsonSaver) Extension() string { return "json" }

func (jsonSaver) Save(rows []Row, path string) error {
	data, err := json.MarshalIndent(rows, "", "  ")
	if err != nil {
		return err
	}
	return os.WriteFile(path, data, 0o644)
}

type parquetSaver struct{}

func (parquetSaver) Extension() string { return "parquet" }

func (parquetSaver) Save(rows []Row, path string) error {
	return parquet.WriteFile(path, rows)
}
