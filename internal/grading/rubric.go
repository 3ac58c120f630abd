package grading

import (
	"bytes"
	"encoding/json"
	"fmt"
	"sort"
	"strconv"
	"strings"
)

// RubricTable is one authored table of grading criteria.
type RubricTable struct {
	Title   string      `json:"title,omitempty"`
	Columns []string    `json:"columns"`
	Rows    []RubricRow `json:"rows"`
}

type rowKind int

const (
	rowPositional rowKind = iota
	rowKeyed
)

// RubricRow is either a positional list of cells or a mapping from column index to cell.
// Authoring tools emit both shapes in the same field.
type RubricRow struct {
	kind  rowKind
	cells []string
	keyed map[int]string
}

// PositionalRow builds a row from cells in column order.
func PositionalRow(cells ...string) RubricRow {
	return RubricRow{kind: rowPositional, cells: append([]string(nil), cells...)}
}

// KeyedRow builds a row from cells keyed by column index.
func KeyedRow(cells map[int]string) RubricRow {
	keyed := make(map[int]string, len(cells))
	for idx, cell := range cells {
		keyed[idx] = cell
	}
	return RubricRow{kind: rowKeyed, keyed: keyed}
}

// IsKeyed reports whether the row was supplied as an index-keyed mapping.
func (r RubricRow) IsKeyed() bool {
	return r.kind == rowKeyed
}

// Cells resolves the row into ordered cell strings. Keyed rows produce exactly
// columnCount cells, with missing indices rendered empty.
func (r RubricRow) Cells(columnCount int) []string {
	if r.kind == rowPositional {
		return append([]string(nil), r.cells...)
	}

	cells := make([]string, columnCount)
	for i := range cells {
		cells[i] = r.keyed[i]
	}
	return cells
}

func (r *RubricRow) UnmarshalJSON(data []byte) error {
	trimmed := bytes.TrimSpace(data)
	if len(trimmed) == 0 || bytes.Equal(trimmed, []byte("null")) {
		*r = PositionalRow()
		return nil
	}

	switch trimmed[0] {
	case '[':
		var raw []json.RawMessage
		if err := json.Unmarshal(trimmed, &raw); err != nil {
			return fmt.Errorf("decode rubric row cells: %w", err)
		}
		cells := make([]string, 0, len(raw))
		for _, cell := range raw {
			cells = append(cells, cellString(cell))
		}
		*r = PositionalRow(cells...)
		return nil
	case '{':
		var raw map[string]json.RawMessage
		if err := json.Unmarshal(trimmed, &raw); err != nil {
			return fmt.Errorf("decode rubric row mapping: %w", err)
		}
		keyed := make(map[int]string, len(raw))
		for key, cell := range raw {
			idx, ok := columnIndex(key)
			if !ok {
				continue
			}
			keyed[idx] = cellString(cell)
		}
		*r = KeyedRow(keyed)
		return nil
	default:
		return fmt.Errorf("rubric row must be an array or an object")
	}
}

func (r RubricRow) MarshalJSON() ([]byte, error) {
	if r.kind == rowPositional {
		cells := r.cells
		if cells == nil {
			cells = []string{}
		}
		return json.Marshal(cells)
	}

	indices := make([]int, 0, len(r.keyed))
	for idx := range r.keyed {
		indices = append(indices, idx)
	}
	sort.Ints(indices)

	keyed := make(map[string]string, len(r.keyed))
	for _, idx := range indices {
		keyed["c"+strconv.Itoa(idx)] = r.keyed[idx]
	}
	return json.Marshal(keyed)
}

// columnIndex parses keys of the form c0, c1, ...
func columnIndex(key string) (int, bool) {
	if !strings.HasPrefix(key, "c") {
		return 0, false
	}
	idx, err := strconv.Atoi(key[1:])
	if err != nil || idx < 0 {
		return 0, false
	}
	return idx, true
}

// cellString renders a JSON scalar as the text an author would have typed.
func cellString(raw json.RawMessage) string {
	var value interface{}
	if err := json.Unmarshal(raw, &value); err != nil {
		return strings.TrimSpace(string(raw))
	}

	switch v := value.(type) {
	case nil:
		return ""
	case string:
		return v
	case float64:
		return strconv.FormatFloat(v, 'f', -1, 64)
	case bool:
		return strconv.FormatBool(v)
	default:
		return strings.TrimSpace(string(raw))
	}
}

// RenderRubric flattens tables into the markdown-like block embedded in prompts.
// It returns an empty string when no table renders any content.
func RenderRubric(tables []RubricTable) string {
	builder := strings.Builder{}
	for _, table := range tables {
		if title := strings.TrimSpace(table.Title); title != "" {
			builder.WriteString("\n### ")
			builder.WriteString(title)
			builder.WriteString("\n")
		}
		if len(table.Columns) == 0 || len(table.Rows) == 0 {
			continue
		}

		builder.WriteString(strings.Join(table.Columns, " | "))
		builder.WriteString("\n")

		separators := make([]string, len(table.Columns))
		for i := range separators {
			separators[i] = "---"
		}
		builder.WriteString(strings.Join(separators, " | "))
		builder.WriteString("\n")

		for _, row := range table.Rows {
			builder.WriteString(strings.Join(row.Cells(len(table.Columns)), " | "))
			builder.WriteString("\n")
		}
	}
	return builder.String()
}
