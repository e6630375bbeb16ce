package export

import (
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/parquet-go/parquet-go"
	"gopkg.in/yaml.v3"

	"github.com/isajjim/estimator/internal/models"
	"github.com/isajjim/estimator/internal/session"
	"github.com/isajjim/estimator/internal/translate"
)

type Format string

const (
	FormatYAML    Format = "yaml"
	FormatJSON    Format = "json"
	FormatParquet Format = "parquet"
)

// ErrNoResult is returned when the session has no analysed estimate to export.
var ErrNoResult = errors.New("session has no analysis result to export")

// Truck summarizes the TRUCK line item with its display name.
type Truck struct {
	Type        string `yaml:"type" json:"type"`
	DisplayName string `yaml:"displayname" json:"displayName"`
	Quantity    int    `yaml:"quantity" json:"quantity"`
}

// Row is one reviewed furniture item. It is also the Parquet row layout.
type Row struct {
	EstimateID  int64  `yaml:"-" json:"-" parquet:"estimate_id"`
	ImageIndex  int    `yaml:"imageindex" json:"imageIndex" parquet:"image_index"`
	ImageURL    string `yaml:"imageurl,omitempty" json:"imageUrl,omitempty" parquet:"image_url"`
	FurnitureID int64  `yaml:"furnitureid" json:"furnitureId" parquet:"furniture_id"`
	Label       string `yaml:"label" json:"label" parquet:"label"`
	LabelName   string `yaml:"labelname" json:"labelName" parquet:"label_name"`
	Type        string `yaml:"type,omitempty" json:"type,omitempty" parquet:"type"`
	TypeName    string `yaml:"typename,omitempty" json:"typeName,omitempty" parquet:"type_name"`
	Quantity    int    `yaml:"quantity" json:"quantity" parquet:"quantity"`
}

// Report is the document written for YAML and JSON exports.
type Report struct {
	EstimateID int64                 `yaml:"estimateid" json:"estimateId"`
	ExportedAt string                `yaml:"exportedat" json:"exportedAt"`
	Answers    *models.DetailAnswers `yaml:"answers,omitempty" json:"answers,omitempty"`
	Truck      *Truck                `yaml:"truck,omitempty" json:"truck,omitempty"`
	Furniture  []Row                 `yaml:"furniture" json:"furniture"`
	Items      []models.LineItem     `yaml:"items" json:"items"`
}

// FormatFromPath picks the export format from a file extension.
func FormatFromPath(path string) (Format, error) {
	switch strings.ToLower(filepath.Ext(path)) {
	case ".yaml", ".yml":
		return FormatYAML, nil
	case ".json":
		return FormatJSON, nil
	case ".parquet":
		return FormatParquet, nil
	default:
		return "", fmt.Errorf("unsupported export format: %s (supported: .yaml, .json, .parquet)", filepath.Ext(path))
	}
}

// BuildReport flattens the session's analysis result into export rows.
func BuildReport(state session.State, now time.Time) (Report, error) {
	if state.Result == nil {
		return Report{}, ErrNoResult
	}

	report := Report{
		EstimateID: state.EstimateID,
		ExportedAt: now.UTC().Format(time.RFC3339),
		Answers:    state.Answers,
		Furniture:  Rows(state.EstimateID, *state.Result),
		Items:      state.Result.Items,
	}
	if truck, ok := state.Result.Truck(); ok {
		report.Truck = &Truck{
			Type:        truck.ItemType,
			DisplayName: translate.TruckType(truck.ItemType),
			Quantity:    truck.Quantity,
		}
	}
	return report, nil
}

// Rows lists every furniture item of result in image order.
func Rows(estimateID int64, result models.AnalysisResult) []Row {
	var rows []Row
	for i, img := range result.Images {
		for _, item := range img.FurnitureList {
			rows = append(rows, Row{
				EstimateID:  estimateID,
				ImageIndex:  i,
				ImageURL:    img.ImageURL,
				FurnitureID: item.FurnitureID,
				Label:       item.Label,
				LabelName:   translate.Label(item.Label),
				Type:        item.Type,
				TypeName:    translate.Type(item.Type),
				Quantity:    item.Quantity,
			})
		}
	}
	return rows
}

// Write exports the session's reviewed inventory to path.
func Write(path string, format Format, state session.State) error {
	report, err := BuildReport(state, time.Now())
	if err != nil {
		return err
	}
	if dir := filepath.Dir(path); dir != "." {
		if err := os.MkdirAll(dir, 0755); err != nil {
			return fmt.Errorf("failed to create export directory: %w", err)
		}
	}

	switch format {
	case FormatYAML:
		data, err := yaml.Marshal(&report)
		if err != nil {
			return fmt.Errorf("failed to marshal YAML: %w", err)
		}
		err = os.WriteFile(path, data, 0644)
		if err != nil {
			return fmt.Errorf("failed to write YAML file: %w", err)
		}
	case FormatJSON:
		data, err := json.MarshalIndent(&report, "", "  ")
		if err != nil {
			return fmt.Errorf("failed to marshal JSON: %w", err)
		}
		err = os.WriteFile(path, append(data, '\n'), 0644)
		if err != nil {
			return fmt.Errorf("failed to write JSON file: %w", err)
		}
	case FormatParquet:
		if err := writeParquet(path, report.Furniture); err != nil {
			return err
		}
	default:
		return fmt.Errorf("unsupported export format: %s", format)
	}

	slog.Info("Exported estimate", "estimate_id", report.EstimateID, "format", format, "path", path, "rows", len(report.Furniture))
	return nil
}

func writeParquet(path string, rows []Row) error {
	file, err := os.Create(path)
	if err != nil {
		return fmt.Errorf("failed to create parquet file: %w", err)
	}
	defer file.Close()

	writer := parquet.NewGenericWriter[Row](file)
	if _, err := writer.Write(rows); err != nil {
		return fmt.Errorf("failed to write parquet rows: %w", err)
	}
	if err := writer.Close(); err != nil {
		return fmt.Errorf("failed to close parquet writer: %w", err)
	}
	return file.Close()
}

// ReadParquet loads rows written by a Parquet export.
func ReadParquet(path string) ([]Row, error) {
	file, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("failed to open parquet file: %w", err)
	}
	defer file.Close()

	info, err := file.Stat()
	if err != nil {
		return nil, fmt.Errorf("failed to stat file: %w", err)
	}

	pf, err := parquet.OpenFile(file, info.Size())
	if err != nil {
		return nil, fmt.Errorf("failed to open parquet: %w", err)
	}

	reader := parquet.NewGenericReader[Row](pf)
	defer reader.Close()

	var rows []Row
	batch := make([]Row, 64)
	for {
		n, err := reader.Read(batch)
		rows = append(rows, batch[:n]...)
		if errors.Is(err, io.EOF) {
			break
		}
		if err != nil {
			return nil, fmt.Errorf("failed to read parquet rows: %w", err)
		}
	}
	slog.Debug("Read parquet export", "path", path, "rows", len(rows))
	return rows, nil
}
