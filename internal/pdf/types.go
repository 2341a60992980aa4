package pdf

// Request Types

// TextRequest represents a request to extract the full text of a PDF
type TextRequest struct {
	Path     string `json:"file_path"`
	MaxLines int    `json:"max_lines,omitempty"` // 0 means no cap
}

// MetadataRequest represents a request to read the document information of a PDF
type MetadataRequest struct {
	Path string `json:"file_path"`
}

// SectionRequest represents a request to extract an inclusive page range
type SectionRequest struct {
	Path      string `json:"file_path"`
	StartPage int    `json:"start_page"`
	EndPage   int    `json:"end_page"`
}

// Response Types

// ExtractedText is the normalized text returned by the text and section tools
type ExtractedText struct {
	Content   string `json:"content"`
	LineCount int    `json:"line_count"`
	Truncated bool   `json:"truncated"`
	Path      string `json:"file_path"`
}

// SectionText is ExtractedText plus the page range that was actually extracted
type SectionText struct {
	ExtractedText

	Pages            string `json:"pages"` // "start-end" of the extracted range
	StartPage        int    `json:"start_page"`
	EndPage          int    `json:"end_page"`
	RequestedEndPage int    `json:"requested_end_page"`
	TotalPages       int    `json:"total_pages,omitempty"` // 0 when the page count was unavailable
	Clamped          bool   `json:"clamped"`
	Note             string `json:"note,omitempty"`
}

// MetadataResult wraps the parsed document information
type MetadataResult struct {
	Path     string   `json:"file_path"`
	Metadata Metadata `json:"metadata"`
}
