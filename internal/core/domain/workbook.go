package domain

// Workbook describes one worksheet to read, either by direct Graph ids or
// by a SharePoint site/path/file description.
type Workbook struct {
	// StreamName overrides the stream name derived from WorksheetName.
	StreamName string

	// Direct Graph identifiers. Both must be set to skip resolution.
	DriveID        string
	WorkbookItemID string

	// SharePoint location, used when direct identifiers are absent.
	SharePointHostname      string
	SharePointSitePath      string
	SharePointDirectoryPath string
	ExcelFileName           string

	WorksheetName string
	// RangeAddress is an A1-style address. Empty means the used range.
	RangeAddress string
	// HeaderRow is the 1-based header row; 0 means no header.
	HeaderRow int
}

// HasDirectIDs reports whether the workbook is addressed by Graph ids.
func (w Workbook) HasDirectIDs() bool {
	return w.DriveID != "" && w.WorkbookItemID != ""
}

// Location is a fully resolved worksheet target.
type Location struct {
	DriveID        string
	WorkbookItemID string
	WorksheetName  string
	RangeAddress   string
}
