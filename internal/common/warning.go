package common

import "fmt"

// Warning is a non-fatal problem recorded alongside a result.
type Warning struct {
	Code    string `json:"code"`
	Source  string `json:"source,omitempty"`
	Message string `json:"message"`
}

func (w Warning) String() string {
	if w.Source == "" {
		return fmt.Sprintf("%s: %s", w.Code, w.Message)
	}
	return fmt.Sprintf("%s: %s: %s", w.Code, w.Source, w.Message)
}

// PartialFailure builds an EXTRACTION_PARTIAL_FAILURE warning.
func PartialFailure(source string, err error) Warning {
	return Warning{Code: CodeExtractionPartial, Source: source, Message: err.Error()}
}

// TemplateWarning builds a TEMPLATE_LOAD_WARNING.
func TemplateWarning(source string, err error) Warning {
	return Warning{Code: CodeTemplateLoad, Source: source, Message: err.Error()}
}
