// Package piisweep is a client for the PII Sweep text-sanitization API.
// The service detects personally identifiable information (national ID
// numbers, phone numbers, emails, names) in free-form text and can replace
// each occurrence with a placeholder.
//
// Usage:
//
//	c := piisweep.New(os.Getenv("PIISWEEP_API_KEY"))
//	res, err := c.Strip(ctx, "Ring Anna på 070-123 45 67", piisweep.Phone)
//	if err != nil {
//		var apiErr *piisweep.Error
//		if errors.As(err, &apiErr) {
//			// apiErr.Code, apiErr.Message, apiErr.Status
//		}
//		return err
//	}
//	fmt.Println(res.StrippedText)
package piisweep

// DefaultBaseURL is the canonical service origin.
const DefaultBaseURL = "https://piisweep.com"

// Endpoint paths, appended to the configured base URL.
const (
	StripPath  = "/api/v1/strip"
	DetectPath = "/api/v1/detect"
)

// PIIType names a category of personal data. It is only used to filter
// requests; values outside the constants below are sent as-is and left to
// the service to accept or reject.
type PIIType string

const (
	Personnummer PIIType = "personnummer" // Swedish national ID number
	Phone        PIIType = "phone"
	Email        PIIType = "email"
	Name         PIIType = "name"
)

// Detection is a single match reported by the service.
type Detection struct {
	Type        string `json:"type"`
	Original    string `json:"original"`
	Placeholder string `json:"placeholder"` // only set in strip responses
}

// StripResult is the response of the strip endpoint.
type StripResult struct {
	OriginalLength   int         `json:"original_length"`
	StrippedLength   int         `json:"stripped_length"`
	StrippedText     string      `json:"stripped_text"`
	Detections       []Detection `json:"detections"`
	ProcessingTimeMS float64     `json:"processing_time_ms"`
}

// DetectResult is the response of the detect endpoint.
type DetectResult struct {
	OriginalLength   int         `json:"original_length"`
	Detections       []Detection `json:"detections"`
	PIIFound         bool        `json:"pii_found"`
	ProcessingTimeMS float64     `json:"processing_time_ms"`
}
