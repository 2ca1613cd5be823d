package metrics

// Default metrics recorded by the SOAP dispatcher.
//
// Label conventions: path is the configured endpoint path, status is the
// numeric HTTP status code as a string.
var (
	// RequestsTotal counts SOAP requests. Labels: path, status.
	RequestsTotal = NewCounter("soapd_requests_total",
		"Total number of SOAP requests handled.", "path", "status")

	// RequestDuration tracks SOAP request duration in seconds. Labels: path.
	RequestDuration = NewHistogram("soapd_request_duration_seconds",
		"Duration of SOAP request handling in seconds.", nil, "path")

	// FaultsTotal counts emitted SOAP faults. Labels: path, kind.
	FaultsTotal = NewCounter("soapd_faults_total",
		"Total number of SOAP faults emitted.", "path", "kind")
)

// Default is the registry holding the default metrics.
var Default = NewRegistry()

func init() {
	Default.RegisterCounter(RequestsTotal)
	Default.RegisterHistogram(RequestDuration)
	Default.RegisterCounter(FaultsTotal)
}
