// Package formfill fills PDF AcroForm fields from a JSON document and
// lists the fields a form exposes.
package formfill

import (
	"encoding/json"
	"fmt"
	"math"
	"os"
	"sort"
	"time"

	"github.com/pdfcpu/pdfcpu/pkg/api"
	"github.com/pdfcpu/pdfcpu/pkg/cli"
	"go.uber.org/zap"

	"github.com/ocr-provenance/workers/internal/domain"
)

// Result is the form fill output document.
type Result struct {
	Success      bool     `json:"success"`
	FieldsFilled []string `json:"fields_filled,omitempty"`
	Fields       []string `json:"fields,omitempty"`
	Output       string   `json:"output,omitempty"`
	ElapsedMs    float64  `json:"elapsed_ms"`
}

// Filler drives the PDF form operations.
type Filler struct {
	logger *zap.Logger
}

// New creates a filler.
func New(logger *zap.Logger) *Filler {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Filler{logger: logger}
}

// Fill writes a copy of the input form with fields set from the data file.
// The data file holds either a flat {"field": "value"} object or a full
// form-fill document in the PDF library's native schema (detected by its
// top-level "forms" key).
func (f *Filler) Fill(input, dataPath, output string) (*Result, error) {
	start := time.Now()

	if input == "" || dataPath == "" || output == "" {
		return nil, fmt.Errorf("%w: input, data and output are required", domain.ErrInvalidInput)
	}
	if _, err := os.Stat(input); err != nil {
		return nil, fmt.Errorf("%w: input file not found: %s", domain.ErrInvalidInput, input)
	}

	data, err := os.ReadFile(dataPath)
	if err != nil {
		return nil, fmt.Errorf("%w: read data file: %v", domain.ErrInvalidInput, err)
	}

	formJSON, filled, err := normalizeFormData(data)
	if err != nil {
		return nil, err
	}

	jsonPath := dataPath
	if formJSON != nil {
		tmp, err := os.CreateTemp("", "provworker_form_*.json")
		if err != nil {
			return nil, fmt.Errorf("create form data file: %w", err)
		}
		defer os.Remove(tmp.Name())
		if _, err := tmp.Write(formJSON); err != nil {
			tmp.Close()
			return nil, fmt.Errorf("write form data file: %w", err)
		}
		if err := tmp.Close(); err != nil {
			return nil, fmt.Errorf("close form data file: %w", err)
		}
		jsonPath = tmp.Name()
	}

	if err := api.FillFormFile(input, jsonPath, output, nil); err != nil {
		return nil, fmt.Errorf("fill form: %w", err)
	}

	f.logger.Info("Form filled",
		zap.String("input", input),
		zap.String("output", output),
		zap.Int("fields", len(filled)))

	return &Result{
		Success:      true,
		FieldsFilled: filled,
		Output:       output,
		ElapsedMs:    round2(float64(time.Since(start).Microseconds()) / 1000),
	}, nil
}

// List reports the form fields the input PDF exposes.
func (f *Filler) List(input string) (*Result, error) {
	start := time.Now()

	if input == "" {
		return nil, fmt.Errorf("%w: input is required", domain.ErrInvalidInput)
	}
	if _, err := os.Stat(input); err != nil {
		return nil, fmt.Errorf("%w: input file not found: %s", domain.ErrInvalidInput, input)
	}

	fields, err := cli.ListFormFieldsFile([]string{input}, nil)
	if err != nil {
		return nil, fmt.Errorf("list form fields: %w", err)
	}
	if fields == nil {
		fields = []string{}
	}

	return &Result{
		Success:   true,
		Fields:    fields,
		ElapsedMs: round2(float64(time.Since(start).Microseconds()) / 1000),
	}, nil
}

// nativeForm mirrors the PDF library's form-fill JSON schema far enough to
// express text field values.
type nativeForm struct {
	Forms []formEntry `json:"forms"`
}

type formEntry struct {
	TextField []textField `json:"textfield,omitempty"`
	CheckBox  []checkBox  `json:"checkbox,omitempty"`
}

type textField struct {
	Name  string `json:"name"`
	Value string `json:"value"`
}

type checkBox struct {
	Name  string `json:"name"`
	Value bool   `json:"value"`
}

// normalizeFormData accepts either the native schema (passed through
// untouched, nil bytes returned) or a flat field map, which is translated
// into the native schema. Returns the field names being set.
func normalizeFormData(data []byte) ([]byte, []string, error) {
	var probe map[string]json.RawMessage
	if err := json.Unmarshal(data, &probe); err != nil {
		return nil, nil, fmt.Errorf("%w: data file is not a JSON object: %v", domain.ErrInvalidInput, err)
	}

	if _, ok := probe["forms"]; ok {
		var native nativeForm
		if err := json.Unmarshal(data, &native); err != nil {
			return nil, nil, fmt.Errorf("%w: invalid form document: %v", domain.ErrInvalidInput, err)
		}
		var names []string
		for _, entry := range native.Forms {
			for _, tf := range entry.TextField {
				names = append(names, tf.Name)
			}
			for _, cb := range entry.CheckBox {
				names = append(names, cb.Name)
			}
		}
		sort.Strings(names)
		return nil, names, nil
	}

	var flat map[string]any
	if err := json.Unmarshal(data, &flat); err != nil {
		return nil, nil, fmt.Errorf("%w: invalid field map: %v", domain.ErrInvalidInput, err)
	}
	if len(flat) == 0 {
		return nil, nil, fmt.Errorf("%w: no fields to fill", domain.ErrInvalidInput)
	}

	names := make([]string, 0, len(flat))
	for name := range flat {
		names = append(names, name)
	}
	sort.Strings(names)

	var entry formEntry
	for _, name := range names {
		switch v := flat[name].(type) {
		case bool:
			entry.CheckBox = append(entry.CheckBox, checkBox{Name: name, Value: v})
		case string:
			entry.TextField = append(entry.TextField, textField{Name: name, Value: v})
		default:
			entry.TextField = append(entry.TextField, textField{Name: name, Value: fmt.Sprint(v)})
		}
	}

	out, err := json.Marshal(nativeForm{Forms: []formEntry{entry}})
	if err != nil {
		return nil, nil, fmt.Errorf("encode form document: %w", err)
	}
	return out, names, nil
}

func round2(v float64) float64 { return math.Round(v*100) / 100 }
