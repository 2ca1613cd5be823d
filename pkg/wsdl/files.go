// Package wsdl emits service metadata: a thin WSDL 1.1 generator over the
// service description, plus file-backed WSDL/XSD serving with path-traversal
// defense.
package wsdl

import (
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/getsoapd/soapd/pkg/util"
)

// Error is a simple error type for metadata errors.
type Error string

// Error implements the error interface.
func (e Error) Error() string { return string(e) }

// Sentinel errors.
var (
	// ErrNoMapping is returned when no file mapping exists for a service.
	ErrNoMapping = Error("no WSDL file mapping for service")

	// ErrInvalidXsdName is returned for XSD names that are not bare
	// ".xsd" file names.
	ErrInvalidXsdName = Error("invalid xsd file name")
)

// Mapping locates the metadata files of one service.
type Mapping struct {
	// SchemaFolder holds the service's XSD files, relative to AppPath.
	SchemaFolder string `json:"schemaFolder,omitempty" yaml:"schemaFolder,omitempty"`

	// WSDLFolder holds the service's WSDL file, relative to AppPath.
	WSDLFolder string `json:"wsdlFolder,omitempty" yaml:"wsdlFolder,omitempty"`

	// WsdlFile is the WSDL file name.
	WsdlFile string `json:"wsdlFile,omitempty" yaml:"wsdlFile,omitempty"`
}

// FileOptions configures file-backed metadata serving.
type FileOptions struct {
	// AppPath is the filesystem root the folders resolve against.
	AppPath string `json:"appPath,omitempty" yaml:"appPath,omitempty"`

	// VirtualPath is carried with the options; no code in this module
	// reads it, so it does not affect generated links or file lookup.
	VirtualPath string `json:"virtualPath,omitempty" yaml:"virtualPath,omitempty"`

	// UrlOverride replaces the advertised endpoint URL.
	UrlOverride string `json:"urlOverride,omitempty" yaml:"urlOverride,omitempty"`

	// Mappings maps service names to their file mappings.
	Mappings map[string]Mapping `json:"mappings,omitempty" yaml:"mappings,omitempty"`
}

// MappingFor returns the mapping for a service name.
func (o *FileOptions) MappingFor(service string) (Mapping, bool) {
	if o == nil {
		return Mapping{}, false
	}
	m, ok := o.Mappings[service]
	return m, ok
}

// ReadWsdlFile loads the mapped WSDL file for a service.
func ReadWsdlFile(o *FileOptions, service string) ([]byte, error) {
	m, ok := o.MappingFor(service)
	if !ok || m.WsdlFile == "" {
		return nil, fmt.Errorf("%w: %s", ErrNoMapping, service)
	}
	path := filepath.Join(o.AppPath, m.WSDLFolder, m.WsdlFile)
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("reading WSDL file %q: %w", path, err)
	}
	return data, nil
}

// ReadXsdFile loads an XSD from the mapped schema folder. The name must be
// a bare file name containing ".xsd"; anything else fails fast before any
// file access.
func ReadXsdFile(o *FileOptions, service, name string) ([]byte, error) {
	if !util.SafeFileName(name) || !strings.Contains(name, ".xsd") {
		return nil, fmt.Errorf("%w: %q", ErrInvalidXsdName, name)
	}
	m, ok := o.MappingFor(service)
	if !ok {
		return nil, fmt.Errorf("%w: %s", ErrNoMapping, service)
	}
	path := filepath.Join(o.AppPath, m.SchemaFolder, name)
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("reading XSD file %q: %w", path, err)
	}
	return data, nil
}
