package descriptions

// Tool descriptions shown to the calling agent

const (
	ExtractPDFTextDescription = `Extract all text content from a PDF file, preserving the physical layout so columns and tables are not interleaved.

**When to use:** You need the readable text of a whole document for analysis, search or summarisation.

**Parameters:**
• file_path: absolute path to the PDF ("~" is expanded)
• max_lines: optional positive integer; only the first max_lines lines are returned

**Result:** {"success": true, "data": {"content", "line_count", "truncated", "file_path"}}. truncated is true when max_lines cut the output short.

**Best practices:** For large documents start with max_lines or use extract_pdf_section with a page range. Call extract_pdf_metadata first when you need the page count.`

	ExtractPDFMetadataDescription = `Extract metadata from a PDF file (title, author, creation date, page count, PDF version, etc.).

**When to use:** You need document properties or the number of pages before deciding how to read it.

**Parameters:**
• file_path: absolute path to the PDF

**Result:** {"success": true, "data": {"file_path", "metadata": {...}}}. Only fields the document actually reports are present; numeric fields such as Pages are integers.`

	ExtractPDFSectionDescription = `Extract text from a specific page range of a PDF (1-indexed, inclusive).

**When to use:** The document is long and you only need some pages, or you want to read it in chunks.

**Parameters:**
• file_path: absolute path to the PDF
• start_page: first page, >= 1
• end_page: last page, >= start_page

**Result:** {"success": true, "data": {"content", "line_count", "pages", "start_page", "end_page", "requested_end_page", "total_pages", "clamped", "note"}}. When end_page is past the last page the range is clamped to the last page, clamped is true and note explains it.`

	// ErrorKindsGuide is appended to every tool description
	ErrorKindsGuide = `

**Errors:** {"success": false, "error": {"kind", "message"}} where kind is one of ValidationError (fix the parameters), FileError (fix the path), DependencyMissingError (poppler-utils must be installed), FormatError (file is corrupt, encrypted or not a PDF), TimeoutError (document too slow to process; try a smaller page range), ExtractionError (utility failed; message contains its output) or InternalError.`
)
