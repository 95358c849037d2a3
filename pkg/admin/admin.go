// Package admin serves the content management panel under /admin: login,
// per-kind CRUD forms, site settings, the media library and a websocket
// feed of store changes.
package admin

import (
	"io/fs"
	"net/http"
	"time"

	"github.com/gorilla/mux"
	"go.uber.org/zap"

	"github.com/adfharrison1/go-tours/pkg/content"
	"github.com/adfharrison1/go-tours/pkg/ratelimit"
)

// Options configures the admin panel
type Options struct {
	Username string
	// PasswordHash is a bcrypt hash, see HashPassword
	PasswordHash string
	SessionTTL   time.Duration
	// LoginPerMinute and LoginBurst limit login attempts per IP
	LoginPerMinute float64
	LoginBurst     int
	// MediaDir holds uploads; the media library is disabled when empty
	MediaDir       string
	MaxUploadBytes int64
	SecureCookie   bool
	TrustProxy     bool
}

// Admin serves the admin panel
type Admin struct {
	store    *content.Store
	tmpl     *templates
	sessions *SessionStore
	login    *ratelimit.Limiter
	media    *MediaLibrary
	opts     Options
	logger   *zap.Logger
}

// New prepares the admin panel
func New(store *content.Store, opts Options, logger *zap.Logger) (*Admin, error) {
	if logger == nil {
		logger = zap.NewNop()
	}
	logger = logger.Named("admin")
	if opts.LoginPerMinute <= 0 {
		opts.LoginPerMinute = 5
	}
	if opts.LoginBurst <= 0 {
		opts.LoginBurst = 5
	}

	tmpl, err := loadTemplates()
	if err != nil {
		return nil, err
	}
	a := &Admin{
		store:    store,
		tmpl:     tmpl,
		sessions: NewSessionStore(opts.SessionTTL),
		login:    ratelimit.New(opts.LoginPerMinute, opts.LoginBurst),
		opts:     opts,
		logger:   logger,
	}
	if opts.MediaDir != "" {
		media, err := NewMediaLibrary(opts.MediaDir, opts.MaxUploadBytes)
		if err != nil {
			return nil, err
		}
		a.media = media
	}
	return a, nil
}

// Sessions exposes the session store
func (a *Admin) Sessions() *SessionStore {
	return a.sessions
}

// RegisterRoutes registers the admin panel on router and returns the
// authenticated /admin/api subrouter for the JSON API. It must run before
// the public site registers its routes.
func (a *Admin) RegisterRoutes(router *mux.Router) *mux.Router {
	api := router.PathPrefix("/admin/api").Subrouter()
	api.Use(a.RequireAPIAuth)

	router.HandleFunc("/admin/login", a.HandleLoginPage).Methods("GET")
	router.HandleFunc("/admin/login", a.HandleLogin).Methods("POST")
	if static, err := fs.Sub(embeddedStatic, "static"); err == nil {
		router.PathPrefix("/admin/static/").Handler(http.StripPrefix("/admin/static/", http.FileServer(http.FS(static))))
	}

	router.Handle("/admin", a.authed(a.HandleDashboard)).Methods("GET")
	router.Handle("/admin/", a.authed(a.HandleDashboard)).Methods("GET")
	router.Handle("/admin/logout", a.authed(a.HandleLogout)).Methods("POST")
	router.Handle("/admin/events", a.authed(a.HandleEvents)).Methods("GET")
	router.Handle("/admin/settings", a.authed(a.HandleSettings)).Methods("GET")
	router.Handle("/admin/settings", a.authed(a.HandleSaveSettings)).Methods("POST")
	router.Handle("/admin/media", a.authed(a.HandleMedia)).Methods("GET")
	router.Handle("/admin/media", a.authed(a.HandleUpload)).Methods("POST")
	router.Handle("/admin/media/{name}/delete", a.authed(a.HandleDeleteMedia)).Methods("POST")

	router.Handle("/admin/{kind}", a.authed(a.HandleList)).Methods("GET")
	router.Handle("/admin/{kind}", a.authed(a.HandleCreate)).Methods("POST")
	router.Handle("/admin/{kind}/new", a.authed(a.HandleNew)).Methods("GET")
	router.Handle("/admin/{kind}/{id}", a.authed(a.HandleEdit)).Methods("GET")
	router.Handle("/admin/{kind}/{id}", a.authed(a.HandleUpdate)).Methods("POST")
	router.Handle("/admin/{kind}/{id}/delete", a.authed(a.HandleDelete)).Methods("POST")

	return api
}

// kind resolves the {kind} route variable. Singletons have their own page.
func (a *Admin) kind(w http.ResponseWriter, r *http.Request) (*content.Kind, bool) {
	kind, ok := content.Lookup(mux.Vars(r)["kind"])
	if !ok {
		a.notFound(w, r)
		return nil, false
	}
	if kind.Singleton() {
		http.Redirect(w, r, "/admin/settings", http.StatusSeeOther)
		return nil, false
	}
	return kind, true
}
