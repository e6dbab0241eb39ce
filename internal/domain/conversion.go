package domain

// ConversionRequest asks the external conversion worker to render a stored
// blob into other formats.
type ConversionRequest struct {
	Source  ConversionSource   `json:"source"`
	Targets []ConversionTarget `json:"targets"`
}

type ConversionSource struct {
	URI      string `json:"uri"`
	MimeType string `json:"mimeType"`
	Hash     string `json:"hash"`
}

type ConversionTarget struct {
	URI      string `json:"uri"`
	MimeType string `json:"mimeType"`
}
