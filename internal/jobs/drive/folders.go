package drive

import (
	"bytes"
	"context"
	"fmt"
	"strings"

	"github.com/sirupsen/logrus"
	"google.golang.org/api/drive/v3"
	"google.golang.org/api/googleapi"
)

const folderMimeType = "application/vnd.google-apps.folder"

// Drive implements Store against the Google Drive v3 API, scoped to the
// authenticated user's own drive.
type Drive struct {
	svc *drive.Service
}

func (d *Drive) FindFolder(ctx context.Context, name, parentID string) (string, error) {
	query := fmt.Sprintf("mimeType='%s' and name='%s' and trashed=false", folderMimeType, escapeQueryValue(name))
	if parentID != "" {
		query += fmt.Sprintf(" and '%s' in parents", parentID)
	}

	list, err := d.svc.Files.List().
		Q(query).
		Spaces("drive").
		Corpora("user").
		Fields("files(id, name)").
		Context(ctx).Do()
	if err != nil {
		return "", fmt.Errorf("searching for folder %q: %w", name, err)
	}
	if len(list.Files) == 0 {
		return "", nil
	}
	logrus.Debugf("found existing folder %q (%s)", name, list.Files[0].Id)
	return list.Files[0].Id, nil
}

func (d *Drive) CreateFolder(ctx context.Context, name, parentID string) (string, error) {
	meta := &drive.File{
		Name:     name,
		MimeType: folderMimeType,
	}
	if parentID != "" {
		meta.Parents = []string{parentID}
	}

	folder, err := d.svc.Files.Create(meta).Fields("id").Context(ctx).Do()
	if err != nil {
		return "", fmt.Errorf("creating folder %q: %w", name, err)
	}
	logrus.Infof("created drive folder %q (%s)", name, folder.Id)
	return folder.Id, nil
}

func (d *Drive) UploadJSON(ctx context.Context, folderID, name string, payload []byte) (*FileInfo, error) {
	meta := &drive.File{
		Name:    name,
		Parents: []string{folderID},
	}

	file, err := d.svc.Files.Create(meta).
		Media(bytes.NewReader(payload), googleapi.ContentType("application/json")).
		Fields("id, name, webViewLink, size").
		Context(ctx).Do()
	if err != nil {
		return nil, fmt.Errorf("uploading %q: %w", name, err)
	}
	logrus.Infof("uploaded %q (%s, %d bytes)", file.Name, file.Id, file.Size)
	return &FileInfo{
		ID:          file.Id,
		Name:        file.Name,
		WebViewLink: file.WebViewLink,
		Size:        file.Size,
	}, nil
}

// escapeQueryValue escapes a string for interpolation into a Drive search
// query, where single quotes delimit values and backslash is the escape
// character.
func escapeQueryValue(s string) string {
	s = strings.ReplaceAll(s, `\`, `\\`)
	return strings.ReplaceAll(s, `'`, `\'`)
}
