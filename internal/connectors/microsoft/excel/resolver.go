package excel

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"strings"

	"github.com/vinhhap/airbyte-custom-connectors/internal/connectors/microsoft"
	"github.com/vinhhap/airbyte-custom-connectors/internal/core/domain"
	"github.com/vinhhap/airbyte-custom-connectors/internal/logger"
)

// documentLibraryNames are the display names of a site's default document library.
var documentLibraryNames = []string{"Shared Documents", "Documents"}

// SiteCandidates returns the server-relative paths tried for a site path.
//
// Users paste "/sites/MySite", "teams/MyTeam" or just "MySite". Paths that
// already name a collection or contain a slash are used as-is; a bare name is
// tried under sites/, then teams/, then on its own.
func SiteCandidates(sitePath string) []string {
	p := strings.Trim(strings.TrimSpace(sitePath), "/")
	if strings.HasPrefix(p, "sites/") || strings.HasPrefix(p, "teams/") || strings.Contains(p, "/") {
		return []string{p}
	}
	return []string{"sites/" + p, "teams/" + p, p}
}

// ResolveSiteID resolves a SharePoint site to its Graph site id.
//
// Not-found responses move on to the next candidate; any other error is
// returned immediately.
func (c *Client) ResolveSiteID(ctx context.Context, hostname, sitePath string) (string, error) {
	host := strings.TrimSpace(hostname)
	if host == "" {
		return "", &ConfigurationError{Missing: []string{keySharePointHostname}}
	}
	if strings.Trim(strings.TrimSpace(sitePath), "/") == "" {
		return "", &ConfigurationError{Missing: []string{keySharePointSitePath}}
	}

	candidates := SiteCandidates(sitePath)
	var lastErr error
	for _, candidate := range candidates {
		u := fmt.Sprintf("%s/sites/%s:/%s", c.baseURL, escape(host), escapePath(candidate))
		payload, err := c.graph.RequestJSON(ctx, http.MethodGet, u, selectFields("id"))
		if err != nil {
			if microsoft.IsNotFound(err) {
				logger.Debug("excel: site candidate %q not found", candidate)
				lastErr = err
				continue
			}
			return "", err
		}

		if id := asString(payload["id"]); id != "" {
			logger.Debug("excel: resolved site %q to %s", candidate, id)
			return id, nil
		}
		lastErr = fmt.Errorf("no site id returned for candidate %q", candidate)
	}

	return "", &ResolutionError{
		Resource:   "SharePoint site id",
		Target:     fmt.Sprintf("hostname=%q site_path=%q", hostname, sitePath),
		Candidates: candidates,
		Err:        lastErr,
	}
}

// ResolveDocumentLibraryDriveID picks the drive backing a site's document library.
//
// A drive named "Documents" or "Shared Documents" wins; otherwise a site with a
// single drive uses it; otherwise the site's default drive is used.
func (c *Client) ResolveDocumentLibraryDriveID(ctx context.Context, siteID string) (string, error) {
	u := fmt.Sprintf("%s/sites/%s/drives", c.baseURL, escape(siteID))
	payload, err := c.graph.RequestJSON(ctx, http.MethodGet, u, selectFields("id,name"))
	if err != nil {
		return "", err
	}

	if drives, ok := payload["value"].([]any); ok {
		for _, d := range drives {
			drive, ok := d.(map[string]any)
			if !ok {
				continue
			}
			name, id := asString(drive["name"]), asString(drive["id"])
			if id != "" && isDocumentLibrary(name) {
				logger.Debug("excel: using drive %q (%s)", name, id)
				return id, nil
			}
		}
		if len(drives) == 1 {
			if drive, ok := drives[0].(map[string]any); ok {
				if id := asString(drive["id"]); id != "" {
					logger.Debug("excel: using the only drive %s", id)
					return id, nil
				}
			}
		}
	}

	return c.ResolveDefaultDriveID(ctx, siteID)
}

// ResolveDefaultDriveID returns the id of the site's default drive.
func (c *Client) ResolveDefaultDriveID(ctx context.Context, siteID string) (string, error) {
	u := fmt.Sprintf("%s/sites/%s/drive", c.baseURL, escape(siteID))
	payload, err := c.graph.RequestJSON(ctx, http.MethodGet, u, selectFields("id"))
	if err != nil {
		return "", err
	}

	id := asString(payload["id"])
	if id == "" {
		return "", &ResolutionError{
			Resource: "default drive id",
			Target:   fmt.Sprintf("site_id=%q", siteID),
			Err:      errors.New("response did not include an id"),
		}
	}
	return id, nil
}

// ResolveDriveItemIDByPath resolves a path inside a drive to a drive item id.
//
// Both "root:/{path}" and "root:/{path}:" are tried since some tenants only
// accept one form. Only not-found errors fall through to the second form.
func (c *Client) ResolveDriveItemIDByPath(ctx context.Context, driveID, itemPath string) (string, error) {
	target := fmt.Sprintf("drive_id=%q path=%q", driveID, itemPath)

	normalized := strings.Trim(strings.TrimSpace(itemPath), "/")
	if normalized == "" {
		return "", &ResolutionError{
			Resource: "drive item id",
			Target:   target,
			Err:      errors.New("excel file path is empty; check sharepoint_directory_path and excel_file_name"),
		}
	}

	base := fmt.Sprintf("%s/drives/%s/root:/%s", c.baseURL, escape(driveID), escapePath(normalized))
	forms := []string{base, base + ":"}

	var lastErr error
	for _, u := range forms {
		payload, err := c.graph.RequestJSON(ctx, http.MethodGet, u, selectFields("id,name"))
		if err != nil {
			if microsoft.IsNotFound(err) {
				lastErr = err
				continue
			}
			return "", err
		}
		if id := asString(payload["id"]); id != "" {
			return id, nil
		}
		lastErr = errors.New("response did not include an id")
	}

	return "", &ResolutionError{Resource: "drive item id", Target: target, Candidates: forms, Err: lastErr}
}

// ItemPath composes the path of a workbook inside its document library.
//
// Paths copied from the SharePoint UI often start with the library name
// ("Shared Documents/Reports"); that segment is dropped because the library
// is already selected by the drive.
func ItemPath(directoryPath, fileName string) string {
	dir := strings.Trim(strings.TrimSpace(directoryPath), "/")
	for _, library := range documentLibraryNames {
		if dir == library {
			dir = ""
			break
		}
		if prefix := library + "/"; strings.HasPrefix(dir, prefix) {
			dir = strings.TrimPrefix(dir, prefix)
			break
		}
	}

	if dir == "" {
		return fileName
	}
	return strings.TrimRight(dir, "/") + "/" + fileName
}

// ResolveLocation turns a workbook description into concrete Graph identifiers.
//
// Direct ids short-circuit without any request. Otherwise all four SharePoint
// fields are required and the site, drive and item are resolved in turn.
func (c *Client) ResolveLocation(ctx context.Context, wb domain.Workbook) (domain.Location, error) {
	if strings.TrimSpace(wb.WorksheetName) == "" {
		return domain.Location{}, &ConfigurationError{Missing: []string{keyWorksheetName}}
	}

	if wb.HasDirectIDs() {
		return domain.Location{
			DriveID:        wb.DriveID,
			WorkbookItemID: wb.WorkbookItemID,
			WorksheetName:  wb.WorksheetName,
			RangeAddress:   wb.RangeAddress,
		}, nil
	}

	hostname := strings.TrimSpace(wb.SharePointHostname)
	sitePath := strings.TrimSpace(wb.SharePointSitePath)
	directoryPath := strings.TrimSpace(wb.SharePointDirectoryPath)
	fileName := strings.TrimSpace(wb.ExcelFileName)

	var missing []string
	for _, f := range []struct{ key, val string }{
		{keySharePointHostname, hostname},
		{keySharePointSitePath, sitePath},
		{keySharePointDirectoryPath, directoryPath},
		{keyExcelFileName, fileName},
	} {
		if f.val == "" {
			missing = append(missing, f.key)
		}
	}
	if len(missing) > 0 {
		return domain.Location{}, &ConfigurationError{
			Missing: missing,
			Hint:    "missing configuration, provide either (drive_id + workbook_item_id) or SharePoint fields",
		}
	}

	siteID, err := c.ResolveSiteID(ctx, hostname, sitePath)
	if err != nil {
		return domain.Location{}, err
	}

	driveID, err := c.ResolveDocumentLibraryDriveID(ctx, siteID)
	if err != nil {
		return domain.Location{}, err
	}

	itemID, err := c.ResolveDriveItemIDByPath(ctx, driveID, ItemPath(directoryPath, fileName))
	if err != nil {
		return domain.Location{}, err
	}

	return domain.Location{
		DriveID:        driveID,
		WorkbookItemID: itemID,
		WorksheetName:  wb.WorksheetName,
		RangeAddress:   wb.RangeAddress,
	}, nil
}

func isDocumentLibrary(name string) bool {
	for _, library := range documentLibraryNames {
		if name == library {
			return true
		}
	}
	return false
}
