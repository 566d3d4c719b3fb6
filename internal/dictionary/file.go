package dictionary

import (
	"bytes"
	"encoding/json"
	"io"
	"os"
	"path/filepath"

	"github.com/pkg/errors"
)

// ErrNotObject is returned when a dictionary payload is valid JSON but not an object.
var ErrNotObject = errors.New("dictionary payload is not a JSON object")

// DecodeBytes is Decode over an in-memory payload.
func DecodeBytes(b []byte) (*Dictionary, error) {
	return Decode(bytes.NewReader(b))
}

// Decode reads a flat JSON object, keeping the key order of the document.
// Entries whose value is not a string are skipped.
func Decode(r io.Reader) (*Dictionary, error) {
	dec := json.NewDecoder(r)
	tok, err := dec.Token()
	if err != nil {
		return nil, errors.Wrap(err, "decode dictionary")
	}
	if delim, ok := tok.(json.Delim); !ok || delim != '{' {
		return nil, ErrNotObject
	}

	var entries []Entry
	for dec.More() {
		keyTok, err := dec.Token()
		if err != nil {
			return nil, errors.Wrap(err, "decode dictionary key")
		}
		key, _ := keyTok.(string)
		var raw json.RawMessage
		if err := dec.Decode(&raw); err != nil {
			return nil, errors.Wrapf(err, "decode dictionary value for %q", key)
		}
		var value string
		if err := json.Unmarshal(raw, &value); err != nil {
			continue
		}
		entries = append(entries, Entry{Key: key, Value: value})
	}
	if _, err := dec.Token(); err != nil {
		return nil, errors.Wrap(err, "decode dictionary end")
	}
	return New(entries), nil
}

// MarshalJSON encodes the dictionary as an indented object in entry order.
func (d *Dictionary) MarshalJSON() ([]byte, error) {
	out := bytes.NewBufferString("{")
	for i, e := range d.Entries() {
		if i > 0 {
			out.WriteByte(',')
		}
		key, err := encodeString(e.Key)
		if err != nil {
			return nil, err
		}
		value, err := encodeString(e.Value)
		if err != nil {
			return nil, err
		}
		out.WriteString("\n    ")
		out.Write(key)
		out.WriteString(": ")
		out.Write(value)
	}
	if d.Len() > 0 {
		out.WriteByte('\n')
	}
	out.WriteString("}")
	return out.Bytes(), nil
}

func encodeString(s string) ([]byte, error) {
	var buf bytes.Buffer
	enc := json.NewEncoder(&buf)
	enc.SetEscapeHTML(false)
	if err := enc.Encode(s); err != nil {
		return nil, err
	}
	return bytes.TrimRight(buf.Bytes(), "\n"), nil
}

// LoadFile reads the local dictionary at path. A missing file is created with
// Default and created reports true.
func LoadFile(path string) (dict *Dictionary, created bool, err error) {
	f, err := os.Open(path)
	if errors.Is(err, os.ErrNotExist) {
		dict = Default()
		if err := SaveFile(path, dict); err != nil {
			return dict, false, err
		}
		return dict, true, nil
	}
	if err != nil {
		return nil, false, errors.Wrap(err, "open dictionary")
	}
	defer f.Close()

	dict, err = Decode(f)
	if err != nil {
		return nil, false, errors.Wrapf(err, "load %s", path)
	}
	return dict, false, nil
}

// SaveFile writes dict to path, creating parent directories.
func SaveFile(path string, dict *Dictionary) error {
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return errors.Wrap(err, "create dictionary dir")
	}
	data, err := dict.MarshalJSON()
	if err != nil {
		return errors.Wrap(err, "encode dictionary")
	}
	tmp := path + ".tmp"
	if err := os.WriteFile(tmp, append(data, '\n'), 0o644); err != nil {
		return errors.Wrap(err, "write dictionary")
	}
	return errors.Wrap(os.Rename(tmp, path), "replace dictionary")
}
