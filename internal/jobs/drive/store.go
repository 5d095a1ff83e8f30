package drive

import "context"

// FileInfo describes an uploaded archive file.
type FileInfo struct {
	ID          string `json:"id"`
	Name        string `json:"name"`
	WebViewLink string `json:"web_view_link,omitempty"`
	Size        int64  `json:"size,omitempty"`
}

// Store is the file-store surface the download job needs: folder lookup,
// folder creation and JSON upload. The production implementation talks to
// Google Drive; tests substitute an in-memory one.
type Store interface {
	// FindFolder returns the ID of a folder with the given name under
	// parentID, or "" when none exists. An empty parentID searches without a
	// parent constraint.
	FindFolder(ctx context.Context, name, parentID string) (string, error)

	// CreateFolder creates a folder with the given name under parentID and
	// returns its ID. An empty parentID creates it at the drive root.
	CreateFolder(ctx context.Context, name, parentID string) (string, error)

	// UploadJSON stores payload as a JSON file named name inside folderID.
	UploadJSON(ctx context.Context, folderID, name string, payload []byte) (*FileInfo, error)
}

// FindOrCreateFolder resolves a folder by name under parentID, creating it
// only when the lookup finds nothing. Repeated calls with the same arguments
// converge on the same folder.
func FindOrCreateFolder(ctx context.Context, s Store, name, parentID string) (string, error) {
	id, err := s.FindFolder(ctx, name, parentID)
	if err != nil {
		return "", err
	}
	if id != "" {
		return id, nil
	}
	return s.CreateFolder(ctx, name, parentID)
}
