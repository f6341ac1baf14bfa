package metricskey

import "github.com/effective-security/metrics"

// Perf
var (
	// PerfKeyPairOperation is perf metric
	PerfKeyPairOperation = metrics.Describe{
		Type:         metrics.TypeSample,
		Name:         "perf_keypair",
		Help:         "perf_keypair provides the sample metrics of key pair operations",
		RequiredTags: []string{"action"},
	}

	// PerfCSROperation is perf metric
	PerfCSROperation = metrics.Describe{
		Type:         metrics.TypeSample,
		Name:         "perf_csr",
		Help:         "perf_csr provides the sample metrics of CSR generation",
		RequiredTags: []string{"key_type"},
	}

	// PerfIdentityOperation is perf metric
	PerfIdentityOperation = metrics.Describe{
		Type:         metrics.TypeSample,
		Name:         "perf_identity",
		Help:         "perf_identity provides the sample metrics of PKCS#12 identity operations",
		RequiredTags: []string{"action"},
	}
)

// Metrics returns slice of metrics from this repo
var Metrics = []*metrics.Describe{
	&PerfKeyPairOperation,
	&PerfCSROperation,
	&PerfIdentityOperation,
}
