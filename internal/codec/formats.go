package codec

import (
	"bytes"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"reflect"

	"github.com/fxamacker/cbor/v2"
	"github.com/tidwall/jsonc"
	"gopkg.in/yaml.v3"
)

const minYAMLIndent = 2

var (
	cborEnc cbor.EncMode
	cborDec cbor.DecMode
)

func init() {
	var err error

	// Core Deterministic Encoding: sorted keys, shortest integers, so the
	// same scores always produce the same bytes.
	cborEnc, err = cbor.CoreDetEncOptions().EncMode()
	if err != nil {
		panic("codec: CBOR encoder initialization failed: " + err.Error())
	}

	cborDec, err = cbor.DecOptions{
		// Tagged containers are string-keyed; the hooks expect
		// map[string]any rather than CBOR's map[any]any default.
		DefaultMapType: reflect.TypeOf(map[string]any(nil)),
	}.DecMode()
	if err != nil {
		panic("codec: CBOR decoder initialization failed: " + err.Error())
	}
}

func writeJSON(tree any, indent string) ([]byte, error) {
	var buf bytes.Buffer
	enc := json.NewEncoder(&buf)
	enc.SetEscapeHTML(false)
	if indent != "" {
		enc.SetIndent("", indent)
	}
	if err := enc.Encode(tree); err != nil {
		return nil, err
	}
	return bytes.TrimSuffix(buf.Bytes(), []byte("\n")), nil
}

// readJSON accepts JSONC (comments, trailing commas) and keeps numbers as
// json.Number so integers never pass through float64.
func readJSON(data []byte) (any, error) {
	dec := json.NewDecoder(bytes.NewReader(jsonc.ToJSON(data)))
	dec.UseNumber()

	var tree any
	if err := dec.Decode(&tree); err != nil {
		return nil, err
	}
	if _, err := dec.Token(); !errors.Is(err, io.EOF) {
		return nil, errors.New("trailing data after document")
	}
	return tree, nil
}

func writeYAML(tree any, indent string) ([]byte, error) {
	var buf bytes.Buffer
	enc := yaml.NewEncoder(&buf)
	if indent != "" {
		enc.SetIndent(max(len(indent), minYAMLIndent))
	}
	if err := enc.Encode(tree); err != nil {
		return nil, err
	}
	if err := enc.Close(); err != nil {
		return nil, err
	}
	return bytes.TrimSuffix(buf.Bytes(), []byte("\n")), nil
}

func readYAML(data []byte) (any, error) {
	var tree any
	if err := yaml.Unmarshal(data, &tree); err != nil {
		return nil, err
	}
	return tree, nil
}

func writeCBOR(tree any) ([]byte, error) {
	return cborEnc.Marshal(tree)
}

func readCBOR(data []byte) (any, error) {
	var tree any
	if err := cborDec.Unmarshal(data, &tree); err != nil {
		return nil, err
	}
	return tree, nil
}

func diagnoseCBOR(data []byte) (string, error) {
	s, err := cbor.Diagnose(data)
	if err != nil {
		return "", fmt.Errorf("diagnose cbor: %w", err)
	}
	return s, nil
}
