package domain

// MCCDescriptor describes a merchant category code.
type MCCDescriptor struct {
	Code        string `json:"code"`
	Description string `json:"description"`
	Category    string `json:"category"`
}
