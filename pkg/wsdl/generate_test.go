package wsdl

import (
	"context"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/getsoapd/soapd/pkg/soapmodel"
)

type weatherService struct{}

func (s *weatherService) GetForecast(ctx context.Context, city string, days int) (string, error) {
	return "", nil
}

func (s *weatherService) Report(ctx context.Context, data []byte) error { return nil }

func TestGenerate(t *testing.T) {
	sd, err := soapmodel.Describe(&weatherService{},
		soapmodel.WithNamespace("http://weather.example.com/"),
		soapmodel.WithOperation("GetForecast", soapmodel.OperationConfig{
			ParamNames: []string{"city", "days"},
		}),
		soapmodel.WithOperation("Report", soapmodel.OperationConfig{
			OneWay:     true,
			ParamNames: []string{"data"},
		}),
	)
	require.NoError(t, err)

	data, err := Generate(sd, GenerateOptions{BaseURL: "http://localhost:8080/weather"})
	require.NoError(t, err)

	out := string(data)
	assert.True(t, strings.HasPrefix(out, "<?xml"))
	assert.Contains(t, out, `targetNamespace="http://weather.example.com/"`)
	assert.Contains(t, out, `<wsdl:portType name="weatherService">`)
	assert.Contains(t, out, `soapAction="http://weather.example.com/weatherService/GetForecast"`)
	assert.Contains(t, out, `location="http://localhost:8080/weather"`)
	// Typed schema elements.
	assert.Contains(t, out, `name="city" type="xsd:string"`)
	assert.Contains(t, out, `name="days" type="xsd:long"`)
	assert.Contains(t, out, `name="data" type="xsd:base64Binary"`)
	// One-way operations have no output message.
	assert.NotContains(t, out, "ReportSoapOut")
	assert.Contains(t, out, "GetForecastSoapOut")
}

func TestGenerate_BasicAuthNote(t *testing.T) {
	sd, err := soapmodel.Describe(&weatherService{})
	require.NoError(t, err)

	data, err := Generate(sd, GenerateOptions{
		BaseURL:                "http://localhost/x",
		UseBasicAuthentication: true,
	})
	require.NoError(t, err)
	assert.Contains(t, string(data), "HTTP Basic")
}

func TestReadXsdFile_NameValidation(t *testing.T) {
	dir := t.TempDir()
	require.NoError(t, os.MkdirAll(filepath.Join(dir, "schemas"), 0o755))
	require.NoError(t, os.WriteFile(filepath.Join(dir, "schemas", "a.xsd"), []byte("<schema/>"), 0o644))

	opts := &FileOptions{
		AppPath:  dir,
		Mappings: map[string]Mapping{"svc": {SchemaFolder: "schemas"}},
	}

	tests := []struct {
		name    string
		file    string
		wantErr error
	}{
		{"valid", "a.xsd", nil},
		{"traversal", "../a.xsd", ErrInvalidXsdName},
		{"absolute", "/etc/passwd", ErrInvalidXsdName},
		{"wrong extension", "a.txt", ErrInvalidXsdName},
		{"empty", "", ErrInvalidXsdName},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := ReadXsdFile(opts, "svc", tt.file)
			if tt.wantErr != nil {
				assert.ErrorIs(t, err, tt.wantErr)
			} else {
				assert.NoError(t, err)
			}
		})
	}
}

func TestReadWsdlFile_NoMapping(t *testing.T) {
	opts := &FileOptions{}
	_, err := ReadWsdlFile(opts, "unknown")
	assert.ErrorIs(t, err, ErrNoMapping)
}
