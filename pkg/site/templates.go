package site

import (
	"bytes"
	"context"
	"embed"
	"fmt"
	"html/template"
	"io"
	"io/fs"
	"os"
	"path"
	"path/filepath"
	"strings"
	"sync"
	"time"

	"github.com/fsnotify/fsnotify"
	"go.uber.org/zap"
)

//go:embed templates
var embeddedTemplates embed.FS

//go:embed static
var embeddedStatic embed.FS

// reloadDelay groups the burst of events an editor save produces
const reloadDelay = 150 * time.Millisecond

// Templates holds one parsed template set per page. Every set shares the
// layout files and defines "base".
type Templates struct {
	mu     sync.RWMutex
	fsys   fs.FS
	dir    string
	pages  map[string]*template.Template
	logger *zap.Logger
}

// LoadTemplates parses the embedded templates, or the ones under dir when
// dir is set. dir must contain layout/ and pages/.
func LoadTemplates(dir string, logger *zap.Logger) (*Templates, error) {
	if logger == nil {
		logger = zap.NewNop()
	}
	t := &Templates{dir: dir, logger: logger}
	if dir == "" {
		sub, err := fs.Sub(embeddedTemplates, "templates")
		if err != nil {
			return nil, err
		}
		t.fsys = sub
	} else {
		t.fsys = os.DirFS(dir)
	}
	if err := t.load(); err != nil {
		return nil, err
	}
	return t, nil
}

func (t *Templates) load() error {
	files, err := fs.Glob(t.fsys, "pages/*.html")
	if err != nil {
		return err
	}
	if len(files) == 0 {
		return fmt.Errorf("no page templates found")
	}

	pages := make(map[string]*template.Template, len(files))
	for _, file := range files {
		name := strings.TrimSuffix(path.Base(file), ".html")
		tmpl, err := template.New(name).Funcs(funcs).ParseFS(t.fsys, "layout/*.html", file)
		if err != nil {
			return fmt.Errorf("failed to parse %s: %w", file, err)
		}
		pages[name] = tmpl
	}

	t.mu.Lock()
	t.pages = pages
	t.mu.Unlock()
	return nil
}

// Has reports whether a page template exists
func (t *Templates) Has(name string) bool {
	t.mu.RLock()
	defer t.mu.RUnlock()
	_, ok := t.pages[name]
	return ok
}

// Render executes page name into w. The output is buffered so a failing
// template never leaves half a page behind.
func (t *Templates) Render(w io.Writer, name string, data interface{}) error {
	t.mu.RLock()
	tmpl, ok := t.pages[name]
	t.mu.RUnlock()
	if !ok {
		return fmt.Errorf("unknown page template %q", name)
	}

	var buf bytes.Buffer
	if err := tmpl.ExecuteTemplate(&buf, "base", data); err != nil {
		return fmt.Errorf("failed to render %s: %w", name, err)
	}
	_, err := buf.WriteTo(w)
	return err
}

// Watch reloads the templates whenever a file under the template directory
// changes and then calls onReload. It returns when ctx is done. Embedded
// templates never change, so Watch returns at once for them.
func (t *Templates) Watch(ctx context.Context, onReload func()) error {
	if t.dir == "" {
		return nil
	}

	watcher, err := fsnotify.NewWatcher()
	if err != nil {
		return fmt.Errorf("failed to create watcher: %w", err)
	}
	defer watcher.Close()

	for _, sub := range []string{"layout", "pages"} {
		if err := watcher.Add(filepath.Join(t.dir, sub)); err != nil {
			return fmt.Errorf("failed to watch %s: %w", sub, err)
		}
	}
	t.logger.Info("Watching templates", zap.String("dir", t.dir))

	timer := time.NewTimer(time.Hour)
	timer.Stop()
	defer timer.Stop()

	for {
		select {
		case <-ctx.Done():
			return nil
		case event, ok := <-watcher.Events:
			if !ok {
				return nil
			}
			if !strings.HasSuffix(event.Name, ".html") || event.Op == fsnotify.Chmod {
				continue
			}
			timer.Reset(reloadDelay)
		case err, ok := <-watcher.Errors:
			if !ok {
				return nil
			}
			t.logger.Warn("Template watcher error", zap.Error(err))
		case <-timer.C:
			if err := t.load(); err != nil {
				t.logger.Error("Template reload failed, keeping previous set", zap.Error(err))
				continue
			}
			t.logger.Info("Templates reloaded")
			if onReload != nil {
				onReload()
			}
		}
	}
}

// staticFS returns the static asset tree, from dir when set
func staticFS(dir string) (fs.FS, error) {
	if dir != "" {
		return os.DirFS(dir), nil
	}
	return fs.Sub(embeddedStatic, "static")
}
