package labs

import (
	"fmt"
	"strings"

	"github.com/mitchellh/mapstructure"

	"github.com/spigell/labconnect/internal/domain"
)

// Some copies of the table name the major column "Department/Major".
const majorAltColumn = "Department/Major"

func decodeRows(rows []map[string]any) ([]domain.LabRecord, error) {
	records := make([]domain.LabRecord, 0, len(rows))
	for i, row := range rows {
		record, err := decodeRow(row)
		if err != nil {
			return nil, fmt.Errorf("decode row %d: %w", i, err)
		}
		records = append(records, record)
	}
	return records, nil
}

func decodeRow(row map[string]any) (domain.LabRecord, error) {
	var record domain.LabRecord

	normalized := make(map[string]any, len(row))
	for key, value := range row {
		if b, ok := value.([]byte); ok {
			value = string(b)
		}
		normalized[key] = value
	}

	decoder, err := mapstructure.NewDecoder(&mapstructure.DecoderConfig{
		WeaklyTypedInput: true,
		Result:           &record,
	})
	if err != nil {
		return record, err
	}

	if err := decoder.Decode(normalized); err != nil {
		return record, err
	}

	record.Columns = normalized

	if strings.TrimSpace(record.Major) == "" {
		if alt, ok := normalized[majorAltColumn].(string); ok {
			record.Major = alt
		}
	}

	return record, nil
}
