package scanners

import (
	"context"
	"strings"

	"github.com/go-tangra/go-tangra-assets/internal/hwquery"
	"github.com/go-tangra/go-tangra-assets/internal/plugin"
)

// Activation status values.
const (
	ActivationLicensed = "Activated"
	ActivationUnknown  = "Not activated or undetermined"
)

const licenseStatusLicensed = 1

// Activation reports whether Windows is licensed.
type Activation struct{}

func (Activation) Name() string     { return "Activation Status" }
func (Activation) IconName() string { return "key" }

// Scan queries SoftwareLicensingProduct for a licensed Windows product with
// a partial key installed. A failed query is reported in the record.
func (Activation) Scan(_ context.Context, q hwquery.Handle) ([]plugin.ScanRecord, error) {
	status := ActivationUnknown

	var products []hwquery.SoftwareLicensingProduct
	if err := query(q, "SoftwareLicensingProduct", &products, "PartialProductKey IS NOT NULL"); err != nil {
		status = "Query failed: " + err.Error()
	}
	for _, p := range products {
		if strings.Contains(strings.ToLower(p.Description), "windows") &&
			p.PartialProductKey != "" &&
			p.LicenseStatus == licenseStatusLicensed {
			status = ActivationLicensed
			break
		}
	}

	r := plugin.NewRecord(plugin.CategoryActivation)
	r.Model = status
	return []plugin.ScanRecord{r}, nil
}
