package sqliteengine

import (
	"errors"
	"fmt"

	jsoniter "github.com/json-iterator/go"

	"github.com/AntonStoeckl/provider-directory-go/directory"
)

var wireJSON = jsoniter.ConfigCompatibleWithStandardLibrary

// ErrUnsupportedValue is returned when a statement argument or cell has no wire representation.
var ErrUnsupportedValue = errors.New("unsupported value type")

type cellKind uint8

const (
	cellNull cellKind = iota
	cellInt
	cellFloat
	cellText
	cellBlob
	cellBool
)

// cell carries one value across the worker boundary without losing its type.
// JSON alone would turn every integer into a float.
type cell struct {
	K cellKind `json:"k"`
	I int64    `json:"i,omitempty"`
	F float64  `json:"f,omitempty"`
	S string   `json:"s,omitempty"`
	B []byte   `json:"b,omitempty"`
}

func toCell(v any) (cell, error) {
	switch t := v.(type) {
	case nil:
		return cell{K: cellNull}, nil
	case int64:
		return cell{K: cellInt, I: t}, nil
	case int:
		return cell{K: cellInt, I: int64(t)}, nil
	case int32:
		return cell{K: cellInt, I: int64(t)}, nil
	case float64:
		return cell{K: cellFloat, F: t}, nil
	case float32:
		return cell{K: cellFloat, F: float64(t)}, nil
	case string:
		return cell{K: cellText, S: t}, nil
	case []byte:
		return cell{K: cellBlob, B: t}, nil
	case bool:
		return cell{K: cellBool, I: boolToInt(t)}, nil
	default:
		return cell{}, fmt.Errorf("%w: %T", ErrUnsupportedValue, v)
	}
}

func (c cell) value() any {
	switch c.K {
	case cellInt:
		return c.I
	case cellFloat:
		return c.F
	case cellText:
		return c.S
	case cellBlob:
		if c.B == nil {
			return []byte{}
		}
		return c.B
	case cellBool:
		return c.I != 0
	default:
		return nil
	}
}

func boolToInt(b bool) int64 {
	if b {
		return 1
	}

	return 0
}

const (
	wireErrorEngine = "engine"
	wireErrorScan   = "scan"
)

type wireRequest struct {
	SQL  string `json:"sql"`
	Args []cell `json:"args"`
}

type wireResponse struct {
	Rows      []map[string]cell `json:"rows"`
	Error     string            `json:"error,omitempty"`
	ErrorKind string            `json:"error_kind,omitempty"`
}

func encodeRequest(stmt directory.Statement) ([]byte, error) {
	req := wireRequest{SQL: stmt.SQL, Args: make([]cell, len(stmt.Args))}

	for i, arg := range stmt.Args {
		c, err := toCell(arg)
		if err != nil {
			return nil, err
		}
		req.Args[i] = c
	}

	return wireJSON.Marshal(req)
}

func decodeRequest(payload []byte) (directory.Statement, error) {
	var req wireRequest
	if err := wireJSON.Unmarshal(payload, &req); err != nil {
		return directory.Statement{}, err
	}

	args := make([]any, len(req.Args))
	for i, c := range req.Args {
		args[i] = c.value()
	}

	return directory.Statement{SQL: req.SQL, Args: args}, nil
}

func encodeRows(rows directory.Rows) ([]byte, error) {
	resp := wireResponse{Rows: make([]map[string]cell, len(rows))}

	for i, row := range rows {
		encoded := make(map[string]cell, len(row))
		for col, v := range row {
			c, err := toCell(v)
			if err != nil {
				return nil, err
			}
			encoded[col] = c
		}
		resp.Rows[i] = encoded
	}

	return wireJSON.Marshal(resp)
}

func encodeError(err error) []byte {
	kind := wireErrorEngine
	if errors.Is(err, directory.ErrScanningRowFailed) {
		kind = wireErrorScan
	}

	payload, _ := wireJSON.Marshal(wireResponse{Error: err.Error(), ErrorKind: kind})

	return payload
}

func decodeResponse(payload []byte) (directory.Rows, error) {
	var resp wireResponse
	if err := wireJSON.Unmarshal(payload, &resp); err != nil {
		return nil, directory.QueryError(directory.ErrScanningRowFailed, err)
	}

	if resp.Error != "" {
		cause := directory.ErrEngineFailed
		if resp.ErrorKind == wireErrorScan {
			cause = directory.ErrScanningRowFailed
		}

		return nil, directory.QueryError(cause, errors.New(resp.Error))
	}

	rows := make(directory.Rows, len(resp.Rows))
	for i, encoded := range resp.Rows {
		row := make(directory.Row, len(encoded))
		for col, c := range encoded {
			row[col] = c.value()
		}
		rows[i] = row
	}

	return rows, nil
}
