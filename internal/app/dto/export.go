package dto

// ExportOutcome tells the client which persistence path produced the file.
type ExportOutcome struct {
	Method   string `json:"method"`
	Location string `json:"location,omitempty"`
	Message  string `json:"message"`
	FileName string `json:"file_name"`
	Size     int    `json:"size"`
}
