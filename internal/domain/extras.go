package domain

import (
	"bytes"
	"encoding/json"
	"sort"

	"github.com/tidwall/gjson"
	"github.com/tidwall/sjson"
)

// extraFields keeps JSON members produced by the tally that the typed model
// does not name, so a decode/encode cycle writes them back unchanged.
type extraFields map[string]json.RawMessage

func collectExtras(data []byte, known ...string) extraFields {
	var extras extraFields
	gjson.ParseBytes(data).ForEach(func(key, value gjson.Result) bool {
		name := key.String()
		for _, k := range known {
			if k == name {
				return true
			}
		}
		if extras == nil {
			extras = extraFields{}
		}
		extras[name] = json.RawMessage(value.Raw)
		return true
	})
	return extras
}

func missingKeys(data []byte, required ...string) []string {
	var missing []string
	for _, key := range required {
		if !gjson.GetBytes(data, gjson.Escape(key)).Exists() {
			missing = append(missing, key)
		}
	}
	return missing
}

func (e extraFields) mergeInto(out []byte) ([]byte, error) {
	if len(e) == 0 {
		return out, nil
	}
	keys := make([]string, 0, len(e))
	for k := range e {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	var err error
	for _, k := range keys {
		out, err = sjson.SetRawBytes(out, gjson.Escape(k), e[k])
		if err != nil {
			return nil, err
		}
	}
	return out, nil
}

// marshalLiteral encodes v without HTML escaping; the output keeps <, > and &
// as written.
func marshalLiteral(v any) ([]byte, error) {
	var buf bytes.Buffer
	enc := json.NewEncoder(&buf)
	enc.SetEscapeHTML(false)
	if err := enc.Encode(v); err != nil {
		return nil, err
	}
	return bytes.TrimRight(buf.Bytes(), "\n"), nil
}
