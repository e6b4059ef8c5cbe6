package daemon

import (
	"bytes"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
)

const maxBodyBytes = 1 << 20

// object is a request body decoded one level deep, so each field's JSON
// type can be checked before it is converted.
type object map[string]json.RawMessage

func decodeObject(w http.ResponseWriter, r *http.Request) (object, error) {
	body, err := io.ReadAll(http.MaxBytesReader(w, r.Body, maxBodyBytes))
	if err != nil {
		return nil, badRequest("request body could not be read")
	}
	var obj object
	if err := json.Unmarshal(body, &obj); err != nil || obj == nil {
		return nil, badRequest("request body must be a JSON object")
	}
	return obj, nil
}

// field returns the raw value, treating null like an absent field.
func (o object) field(name string) (json.RawMessage, error) {
	raw, ok := o[name]
	if !ok || bytes.Equal(bytes.TrimSpace(raw), []byte("null")) {
		return nil, badRequest(name + " is required")
	}
	return bytes.TrimSpace(raw), nil
}

func (o object) str(name string) (string, error) {
	raw, err := o.field(name)
	if err != nil {
		return "", err
	}
	var s string
	if err := json.Unmarshal(raw, &s); err != nil {
		return "", badRequest(name + " must be a string")
	}
	return s, nil
}

func (o object) integer(name string) (int, error) {
	raw, err := o.field(name)
	if err != nil {
		return 0, err
	}
	var n json.Number
	// json.Number also accepts a quoted number
	if raw[0] == '"' || json.Unmarshal(raw, &n) != nil {
		return 0, badRequest(name + " must be an integer")
	}
	i, err := n.Int64()
	if err != nil {
		return 0, badRequest(name + " must be an integer")
	}
	return int(i), nil
}

func (o object) boolean(name string) (bool, error) {
	raw, err := o.field(name)
	if err != nil {
		return false, err
	}
	var b bool
	if err := json.Unmarshal(raw, &b); err != nil {
		return false, badRequest(name + " must be a boolean")
	}
	return b, nil
}

func (o object) obj(name string) (json.RawMessage, error) {
	raw, err := o.field(name)
	if err != nil {
		return nil, err
	}
	if raw[0] != '{' {
		return nil, badRequest(name + " must be an object")
	}
	return raw, nil
}

func (o object) list(name string) ([]json.RawMessage, error) {
	raw, err := o.field(name)
	if err != nil {
		return nil, err
	}
	var items []json.RawMessage
	if raw[0] != '[' || json.Unmarshal(raw, &items) != nil {
		return nil, badRequest(fmt.Sprintf("%s must be a list", name))
	}
	return items, nil
}
