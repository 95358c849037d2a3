package admin

import (
	"bytes"
	"errors"
	"fmt"
	"io"
	"net/http"
	"os"
	"path/filepath"
	"sort"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/gorilla/mux"
	"go.uber.org/zap"
)

// DefaultMaxUpload is the upload limit when none is configured
const DefaultMaxUpload int64 = 50 << 20

var (
	ErrUnsupportedMedia = errors.New("unsupported file type")
	ErrMediaTooLarge    = errors.New("file is too large")
	ErrMediaNotFound    = errors.New("media file not found")
)

// mediaTypes maps the accepted extensions to the sniffed content type
// prefix their bytes must have
var mediaTypes = map[string]string{
	".jpg":  "image/jpeg",
	".jpeg": "image/jpeg",
	".png":  "image/png",
	".gif":  "image/gif",
	".webp": "image/webp",
	".mp4":  "video/mp4",
	".webm": "video/webm",
}

// MediaFile is an uploaded file
type MediaFile struct {
	Name     string
	URL      string
	Size     int64
	Modified time.Time
	Video    bool
}

// MediaLibrary stores uploads in one directory under random names. The
// public site serves the directory at /media/.
type MediaLibrary struct {
	dir      string
	maxBytes int64
}

// NewMediaLibrary creates dir if needed
func NewMediaLibrary(dir string, maxBytes int64) (*MediaLibrary, error) {
	if maxBytes <= 0 {
		maxBytes = DefaultMaxUpload
	}
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return nil, fmt.Errorf("failed to create media directory: %w", err)
	}
	return &MediaLibrary{dir: dir, maxBytes: maxBytes}, nil
}

// Accept lists the accepted extensions for a file input
func (m *MediaLibrary) Accept() string {
	exts := make([]string, 0, len(mediaTypes))
	for ext := range mediaTypes {
		exts = append(exts, ext)
	}
	sort.Strings(exts)
	return strings.Join(exts, ",")
}

// Save stores an upload named filename. The extension picks the type and
// the content must match it.
func (m *MediaLibrary) Save(filename string, r io.Reader) (MediaFile, error) {
	ext := strings.ToLower(filepath.Ext(filename))
	want, ok := mediaTypes[ext]
	if !ok {
		return MediaFile{}, fmt.Errorf("%w: %q", ErrUnsupportedMedia, ext)
	}

	head := make([]byte, 512)
	n, err := io.ReadFull(r, head)
	if err != nil && !errors.Is(err, io.ErrUnexpectedEOF) && !errors.Is(err, io.EOF) {
		return MediaFile{}, fmt.Errorf("failed to read upload: %w", err)
	}
	head = head[:n]
	if sniffed := http.DetectContentType(head); !strings.HasPrefix(sniffed, want) {
		return MediaFile{}, fmt.Errorf("%w: content is %s, not %s", ErrUnsupportedMedia, sniffed, want)
	}

	tmp, err := os.CreateTemp(m.dir, ".upload-*")
	if err != nil {
		return MediaFile{}, fmt.Errorf("failed to create temp file: %w", err)
	}
	defer os.Remove(tmp.Name())

	written, err := io.Copy(tmp, io.LimitReader(io.MultiReader(bytes.NewReader(head), r), m.maxBytes+1))
	if closeErr := tmp.Close(); err == nil {
		err = closeErr
	}
	if err != nil {
		return MediaFile{}, fmt.Errorf("failed to write upload: %w", err)
	}
	if written > m.maxBytes {
		return MediaFile{}, ErrMediaTooLarge
	}

	name := uuid.NewString() + ext
	if err := os.Rename(tmp.Name(), filepath.Join(m.dir, name)); err != nil {
		return MediaFile{}, fmt.Errorf("failed to store upload: %w", err)
	}
	return m.stat(name)
}

// List returns the stored files, newest first
func (m *MediaLibrary) List() ([]MediaFile, error) {
	entries, err := os.ReadDir(m.dir)
	if err != nil {
		return nil, fmt.Errorf("failed to read media directory: %w", err)
	}
	files := make([]MediaFile, 0, len(entries))
	for _, entry := range entries {
		if entry.IsDir() || !validName(entry.Name()) {
			continue
		}
		file, err := m.stat(entry.Name())
		if err != nil {
			continue
		}
		files = append(files, file)
	}
	sort.Slice(files, func(i, j int) bool {
		if files[i].Modified.Equal(files[j].Modified) {
			return files[i].Name < files[j].Name
		}
		return files[i].Modified.After(files[j].Modified)
	})
	return files, nil
}

// Delete removes a stored file
func (m *MediaLibrary) Delete(name string) error {
	if !validName(name) {
		return ErrMediaNotFound
	}
	if err := os.Remove(filepath.Join(m.dir, name)); err != nil {
		if errors.Is(err, os.ErrNotExist) {
			return ErrMediaNotFound
		}
		return err
	}
	return nil
}

func (m *MediaLibrary) stat(name string) (MediaFile, error) {
	info, err := os.Stat(filepath.Join(m.dir, name))
	if err != nil {
		return MediaFile{}, err
	}
	return MediaFile{
		Name:     name,
		URL:      "/media/" + name,
		Size:     info.Size(),
		Modified: info.ModTime(),
		Video:    strings.HasPrefix(mediaTypes[filepath.Ext(name)], "video/"),
	}, nil
}

// validName accepts only names Save produces
func validName(name string) bool {
	ext := filepath.Ext(name)
	if _, ok := mediaTypes[ext]; !ok {
		return false
	}
	_, err := uuid.Parse(strings.TrimSuffix(name, ext))
	return err == nil
}

func (a *Admin) maxUpload() int64 {
	if a.media != nil {
		return a.media.maxBytes
	}
	return 0
}

// HandleMedia lists the media library
func (a *Admin) HandleMedia(w http.ResponseWriter, r *http.Request) {
	if a.media == nil {
		a.notFound(w, r)
		return
	}
	files, err := a.media.List()
	if err != nil {
		a.serverError(w, r, err)
		return
	}
	a.render(w, r, http.StatusOK, "media", "Media", MediaView{
		Files:    files,
		MaxBytes: a.media.maxBytes,
		Accept:   a.media.Accept(),
	})
}

// HandleUpload stores the files posted in the "file" field
func (a *Admin) HandleUpload(w http.ResponseWriter, r *http.Request) {
	if a.media == nil {
		a.notFound(w, r)
		return
	}
	if r.MultipartForm == nil || len(r.MultipartForm.File["file"]) == 0 {
		a.flash(r, "error", "Choose a file to upload.")
		http.Redirect(w, r, "/admin/media", http.StatusSeeOther)
		return
	}

	saved := 0
	for _, header := range r.MultipartForm.File["file"] {
		file, err := header.Open()
		if err != nil {
			a.serverError(w, r, err)
			return
		}
		stored, err := a.media.Save(header.Filename, file)
		file.Close()

		switch {
		case errors.Is(err, ErrUnsupportedMedia):
			a.flash(r, "error", fmt.Sprintf("%s: only %s files are accepted.", header.Filename, a.media.Accept()))
		case errors.Is(err, ErrMediaTooLarge):
			a.flash(r, "error", fmt.Sprintf("%s is larger than %d MB.", header.Filename, a.media.maxBytes>>20))
		case err != nil:
			a.serverError(w, r, err)
			return
		default:
			saved++
			a.logger.Info("Uploaded media", zap.String("name", stored.Name), zap.Int64("size", stored.Size))
		}
	}
	if saved > 0 {
		a.flash(r, "success", fmt.Sprintf("Uploaded %d file(s).", saved))
	}
	http.Redirect(w, r, "/admin/media", http.StatusSeeOther)
}

// HandleDeleteMedia removes a file from the library
func (a *Admin) HandleDeleteMedia(w http.ResponseWriter, r *http.Request) {
	if a.media == nil {
		a.notFound(w, r)
		return
	}
	name := mux.Vars(r)["name"]
	switch err := a.media.Delete(name); {
	case errors.Is(err, ErrMediaNotFound):
		a.flash(r, "error", "That file no longer exists.")
	case err != nil:
		a.serverError(w, r, err)
		return
	default:
		a.logger.Info("Deleted media", zap.String("name", name))
		a.flash(r, "success", "File deleted.")
	}
	http.Redirect(w, r, "/admin/media", http.StatusSeeOther)
}
