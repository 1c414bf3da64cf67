package api

import (
	"bytes"
	"encoding/json"

	"github.com/collabnotes/collabnotes-server/internal/domain"
	domainerrors "github.com/collabnotes/collabnotes-server/internal/errors"
)

var jsonNull = []byte("null")

// decodeNotePatch reads a JSON object into a NotePatch, keeping absent keys
// apart from keys explicitly set to null. Unknown keys are ignored.
func decodeNotePatch(body []byte) (domain.NotePatch, error) {
	var patch domain.NotePatch

	body = bytes.TrimSpace(body)
	if len(body) == 0 {
		return patch, domainerrors.Validation("Request body is required")
	}

	var fields map[string]json.RawMessage
	if err := json.Unmarshal(body, &fields); err != nil || fields == nil {
		return patch, domainerrors.Validation("Request body must be a JSON object")
	}

	var err error
	if patch.Title, err = decodeField[string](fields, "title"); err != nil {
		return patch, err
	}
	if patch.Content, err = decodeField[string](fields, "content"); err != nil {
		return patch, err
	}
	if patch.Visibility, err = decodeField[domain.Visibility](fields, "visibility"); err != nil {
		return patch, err
	}
	if patch.Tags, err = decodeField[[]string](fields, "tags"); err != nil {
		return patch, err
	}
	return patch, nil
}

func decodeField[T any](fields map[string]json.RawMessage, name string) (domain.Field[T], error) {
	raw, ok := fields[name]
	if !ok {
		return domain.Field[T]{}, nil
	}
	if bytes.Equal(bytes.TrimSpace(raw), jsonNull) {
		return domain.Null[T](), nil
	}

	var v T
	if err := json.Unmarshal(raw, &v); err != nil {
		return domain.Field[T]{}, domainerrors.ValidationWithDetails("Invalid value for "+name,
			map[string]string{name: "has the wrong type"})
	}
	return domain.Set(v), nil
}
